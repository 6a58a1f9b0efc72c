package engine

import (
	"context"
	"log/slog"

	"github.com/tremby/discord-tagbot/internal/chat"
	"github.com/tremby/discord-tagbot/internal/game"
)

// Mode selects whether a transition may perform side effects.
type Mode int

const (
	// ModeLive processes an event as it occurs: rejections notify and
	// delete, acceptances announce.
	ModeLive Mode = iota + 1
	// ModeRecount replays history: no side effects whatsoever. Violations
	// that live mode would have rejected are tolerated, because live
	// enforcement deletes the offending post; anything still present in
	// history must have been allowed to stand.
	ModeRecount
)

func (m Mode) String() string {
	switch m {
	case ModeLive:
		return "live"
	case ModeRecount:
		return "recount"
	default:
		return "unknown"
	}
}

// RejectReason categorizes why a live submission was turned away.
// Rule violations are normal outcomes, never errors.
type RejectReason int

const (
	// RejectNotYourTurn: the next tag must come from the matching post's
	// participants.
	RejectNotYourTurn RejectReason = iota + 1
	// RejectSelfMatch: a match shares participants with the tag it answers.
	RejectSelfMatch
	// RejectExcluded: the submitter is disqualified from the current round.
	RejectExcluded
	// RejectArchived: the game has concluded.
	RejectArchived
)

func (r RejectReason) String() string {
	switch r {
	case RejectNotYourTurn:
		return "not-your-turn"
	case RejectSelfMatch:
		return "self-match"
	case RejectExcluded:
		return "excluded"
	case RejectArchived:
		return "archived"
	default:
		return "unknown"
	}
}

// Effects receives the side effects of live transitions. Implementations
// notify the channel and delete rejected posts; the machine itself never
// contacts the platform. Injected so tests can substitute a recorder.
type Effects interface {
	// SubmissionRejected is expected to notify the channel and delete the
	// offending post.
	SubmissionRejected(ctx context.Context, g *game.Game, msg chat.Message, reason RejectReason)
	// TagPosted announces an accepted opening submission. late is set when
	// the submission arrived after the configured time limit; lateness
	// affects only what is broadcast, never eligibility.
	TagPosted(ctx context.Context, g *game.Game, tag game.Post, late bool)
	// MatchPosted announces an accepted match and the updated scores.
	MatchPosted(ctx context.Context, g *game.Game, match game.Post, scores game.Scores)
}

// Machine is the pure transition function over game states.
//
// Apply is deterministic: given the same state and event it produces the
// same result in both modes for any normally accepted event. Side effects
// fire only in live mode, through the injected Effects.
type Machine struct {
	selfID  string
	effects Effects
}

// NewMachine creates a transition machine. selfID is the bot's own user ID;
// its posts are ignored in every phase. effects may be nil only if the
// machine is exclusively driven in recount mode.
func NewMachine(selfID string, effects Effects) *Machine {
	return &Machine{selfID: selfID, effects: effects}
}

// Apply runs one event through the game's current state.
//
// A nil returned state means no change: the event was ignored or rejected.
// The caller owns committing a non-nil state, persisting, and re-arming
// timers. The passed game is never mutated.
func (m *Machine) Apply(ctx context.Context, g *game.Game, msg chat.Message, mode Mode) (game.State, error) {
	if msg.Author.ID == m.selfID {
		return nil, nil
	}
	if !msg.HasImage {
		return nil, nil
	}

	switch st := g.State.(type) {
	case game.Free:
		return m.applyTag(ctx, g, msg, mode, st.Scores, false)

	case game.AwaitingNext:
		eligible := st.Match.Participants()
		if !eligible.Has(msg.Author.ID) {
			if mode == ModeLive {
				m.effects.SubmissionRejected(ctx, g, msg, RejectNotYourTurn)
			}
			return nil, nil
		}
		late := g.Config.TimeLimit > 0 &&
			msg.CreatedAt.Sub(st.Match.CreatedAt) > g.Config.TimeLimit
		return m.applyTag(ctx, g, msg, mode, st.Scores, late)

	case game.AwaitingMatch:
		return m.applyMatch(ctx, g, msg, mode, st)

	case game.Archived:
		if mode == ModeRecount {
			// Archived games are never replayed; seeing this mid-recount
			// means the caller's state handling is broken.
			return nil, &StateError{ChannelID: g.Channel.ID, Status: st.Status(), Mode: mode}
		}
		m.effects.SubmissionRejected(ctx, g, msg, RejectArchived)
		return nil, nil

	case game.Inactive:
		return nil, nil

	default:
		return nil, &StateError{ChannelID: g.Channel.ID, Status: g.State.Status(), Mode: mode}
	}
}

// applyTag accepts an opening submission, starting a new round. The
// exclusion set resets: disqualifications belong to the round that ended.
// Eligibility has already been checked; only the broadcast varies by mode.
func (m *Machine) applyTag(ctx context.Context, g *game.Game, msg chat.Message, mode Mode, scores game.Scores, late bool) (game.State, error) {
	tag := game.PostOf(msg)
	next := game.AwaitingMatch{
		Scores:   scores.Clone(),
		Tag:      tag,
		Excluded: game.Participants{},
	}
	if mode == ModeLive {
		m.effects.TagPosted(ctx, g, tag, late)
	}
	slog.Debug("tag accepted",
		"channel", g.Channel.ID,
		"author", msg.Author.ID,
		"mode", mode.String(),
		"late", late,
	)
	return next, nil
}

// applyMatch accepts or rejects a match for the pending tag.
func (m *Machine) applyMatch(ctx context.Context, g *game.Game, msg chat.Message, mode Mode, st game.AwaitingMatch) (game.State, error) {
	match := game.PostOf(msg)
	participants := match.Participants()

	if mode == ModeLive {
		// A recount must not re-derive these rejections: live enforcement
		// deleted the offending posts, so whatever recount sees stood.
		if common := participants.Intersect(st.Tag.Participants()); len(common) > 0 {
			m.effects.SubmissionRejected(ctx, g, msg, RejectSelfMatch)
			return nil, nil
		}
		if barred := participants.Intersect(st.Excluded); len(barred) > 0 {
			m.effects.SubmissionRejected(ctx, g, msg, RejectExcluded)
			return nil, nil
		}
	}

	scores := st.Scores.Award(participants)
	next := game.AwaitingNext{
		Scores:   scores,
		Match:    match,
		Excluded: st.Excluded.Clone(),
	}
	if mode == ModeLive {
		m.effects.MatchPosted(ctx, g, match, scores)
	}
	slog.Debug("match accepted",
		"channel", g.Channel.ID,
		"author", msg.Author.ID,
		"mode", mode.String(),
		"awarded", len(participants),
	)
	return next, nil
}
