package engine

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/tremby/discord-tagbot/internal/chat"
	"github.com/tremby/discord-tagbot/internal/game"
)

// TimeoutEffects receives the user-visible outcomes of deadline
// enforcement. Injected so tests can substitute a recorder.
type TimeoutEffects interface {
	// TimeRunningOut warns the matching participants that the deadline is
	// approaching.
	TimeRunningOut(ctx context.Context, g *game.Game, remaining time.Duration)
	// TimeExpired announces the round reset: which participants were
	// disqualified and how the scores changed.
	TimeExpired(ctx context.Context, g *game.Game, dropped game.Participants, delta game.Scores)
}

// Enforcer performs the recovery that runs when a reminder or deadline
// timer fires.
//
// Both entry points are defensive about stale invocations: a timer may fire
// after the state has moved on (the normal path disarms first, but the race
// is expected under interleaving), in which case they log and do nothing.
type Enforcer struct {
	recounter *Recounter
	messenger chat.Messenger
	effects   TimeoutEffects
	sched     Scheduler
}

// NewEnforcer wires deadline enforcement. messenger deletes the expired
// matching post; effects broadcasts the outcomes.
func NewEnforcer(recounter *Recounter, messenger chat.Messenger, effects TimeoutEffects, sched Scheduler) *Enforcer {
	return &Enforcer{recounter: recounter, messenger: messenger, effects: effects, sched: sched}
}

// Remind handles a reminder firing: announce that time is running out.
// A stale firing (game no longer awaiting its next tag) is logged and
// ignored.
func (e *Enforcer) Remind(ctx context.Context, g *game.Game) {
	st, ok := g.State.(game.AwaitingNext)
	if !ok {
		slog.Warn("reminder fired after state moved on",
			"channel", g.Channel.ID,
			"status", g.State.Status(),
		)
		return
	}
	deadline := st.Match.CreatedAt.Add(g.Config.TimeLimit)
	remaining := deadline.Sub(e.sched.Now())
	if remaining < 0 {
		remaining = 0
	}
	e.effects.TimeRunningOut(ctx, g, remaining)
}

// Expire handles a deadline firing: delete the pending matching post,
// recount the channel, union the match's participants into the exclusion
// set of the recovered round, and announce the outcome with a score delta.
//
// Returns the new state for the caller to commit, or nil for a stale
// firing. A recount that does not come back as AwaitingMatch aborts the
// recovery with a RecoveryError and leaves the game untouched.
func (e *Enforcer) Expire(ctx context.Context, g *game.Game) (game.State, error) {
	st, ok := g.State.(game.AwaitingNext)
	if !ok {
		slog.Warn("deadline fired after state moved on",
			"channel", g.Channel.ID,
			"status", g.State.Status(),
		)
		return nil, nil
	}

	// Delete first so the recount below no longer sees the expired match.
	if err := e.messenger.Delete(ctx, st.Match.Ref()); err != nil {
		return nil, fmt.Errorf("delete expired match %s: %w", st.Match.MessageID, err)
	}
	dropped := st.Match.Participants()

	// State may have been replaced while Delete was suspended; re-check
	// before committing to the recovery.
	if cur, still := g.State.(game.AwaitingNext); !still || cur.Match.MessageID != st.Match.MessageID {
		slog.Warn("state moved on during deadline recovery", "channel", g.Channel.ID)
		return nil, nil
	}

	derived, err := e.recounter.Recount(ctx, g)
	if err != nil {
		return nil, fmt.Errorf("recount after deadline: %w", err)
	}
	recovered, ok := derived.(game.AwaitingMatch)
	if !ok {
		return nil, &RecoveryError{ChannelID: g.Channel.ID, Got: derived.Status()}
	}

	recovered.Excluded = recovered.Excluded.Union(dropped).Union(st.Excluded)
	delta := recovered.Scores.Diff(st.Scores)
	e.effects.TimeExpired(ctx, g, dropped, delta)

	slog.Info("deadline enforced",
		"channel", g.Channel.ID,
		"dropped", dropped.Sorted(),
		"excluded", recovered.Excluded.Sorted(),
	)
	return recovered, nil
}
