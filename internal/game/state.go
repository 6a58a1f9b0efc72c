package game

import (
	"time"

	"github.com/tremby/discord-tagbot/internal/chat"
)

// Status tags the phases of a game. The string values are the wire form
// used in the persisted snapshot document.
type Status string

const (
	// StatusFree means anyone may post the opening submission.
	StatusFree Status = "free"
	// StatusAwaitingMatch means a tag is pending and any other eligible
	// participant may post a match to it.
	StatusAwaitingMatch Status = "awaiting-match"
	// StatusAwaitingNext means a match was accepted and its participants
	// must post the next tag, optionally within a time limit.
	StatusAwaitingNext Status = "awaiting-next"
	// StatusArchived means the game has concluded.
	StatusArchived Status = "archived"
	// StatusInactive means the game exists but is not running.
	StatusInactive Status = "inactive"
)

// ParseStatus validates a wire-form status tag.
func ParseStatus(s string) (Status, bool) {
	switch Status(s) {
	case StatusFree, StatusAwaitingMatch, StatusAwaitingNext, StatusArchived, StatusInactive:
		return Status(s), true
	}
	return "", false
}

// Post is a submission retained inside a state: the opening tag or the
// accepted match. It carries identities only, never live platform objects.
type Post struct {
	MessageID  string
	ChannelID  string
	AuthorID   string
	MentionIDs []string
	CreatedAt  time.Time
}

// PostOf reduces a platform message to the form states carry.
func PostOf(m chat.Message) Post {
	mentions := make([]string, 0, len(m.Mentions))
	for _, u := range m.Mentions {
		mentions = append(mentions, u.ID)
	}
	return Post{
		MessageID:  m.ID,
		ChannelID:  m.ChannelID,
		AuthorID:   m.Author.ID,
		MentionIDs: mentions,
		CreatedAt:  m.CreatedAt,
	}
}

// Ref returns the post's content-free reference, used for deletion.
func (p Post) Ref() chat.MessageRef {
	return chat.MessageRef{ChannelID: p.ChannelID, ID: p.MessageID}
}

// Participants returns the post's associated participants:
// the author plus everyone it mentions.
func (p Post) Participants() Participants {
	out := NewParticipants(p.AuthorID)
	for _, id := range p.MentionIDs {
		out[id] = struct{}{}
	}
	return out
}

// State is the closed sum of game phases. Exactly one variant is active per
// game at a time. Adding a phase is a compile-checked change everywhere a
// State is switched on, because only the types below implement the
// unexported marker method.
type State interface {
	Status() Status
	sealedState()
}

// Free is the initial phase: no tag pending, anyone may open a round.
type Free struct {
	Scores Scores
}

// AwaitingMatch holds a pending tag. Excluded participants are barred from
// matching it for the rest of the round.
type AwaitingMatch struct {
	Scores   Scores
	Tag      Post
	Excluded Participants
}

// AwaitingNext holds the accepted match; its participants must post the
// next tag. The exclusion set rides through from AwaitingMatch so that a
// deadline firing can restore the round's accumulated disqualifications.
// Timer handles are never stored here; see engine.Deadlines.
type AwaitingNext struct {
	Scores   Scores
	Match    Post
	Excluded Participants
}

// Archived is terminal: no further transitions are accepted.
type Archived struct {
	Scores Scores
}

// Inactive means the game is registered but not running. No scores are
// tracked and every submission is ignored.
type Inactive struct{}

func (Free) Status() Status          { return StatusFree }
func (AwaitingMatch) Status() Status { return StatusAwaitingMatch }
func (AwaitingNext) Status() Status  { return StatusAwaitingNext }
func (Archived) Status() Status      { return StatusArchived }
func (Inactive) Status() Status      { return StatusInactive }

func (Free) sealedState()          {}
func (AwaitingMatch) sealedState() {}
func (AwaitingNext) sealedState()  {}
func (Archived) sealedState()      {}
func (Inactive) sealedState()      {}

// ScoresOf returns the state's score ledger, nil for phases without one.
func ScoresOf(s State) Scores {
	switch st := s.(type) {
	case Free:
		return st.Scores
	case AwaitingMatch:
		return st.Scores
	case AwaitingNext:
		return st.Scores
	case Archived:
		return st.Scores
	default:
		return nil
	}
}

// ExcludedOf returns the state's exclusion set, nil for phases without one.
func ExcludedOf(s State) Participants {
	switch st := s.(type) {
	case AwaitingMatch:
		return st.Excluded
	case AwaitingNext:
		return st.Excluded
	default:
		return nil
	}
}

// WithExcluded returns a copy of the state with its exclusion set replaced.
// States without an exclusion set are returned unchanged.
func WithExcluded(s State, excluded Participants) State {
	switch st := s.(type) {
	case AwaitingMatch:
		st.Excluded = excluded
		return st
	case AwaitingNext:
		st.Excluded = excluded
		return st
	default:
		return s
	}
}

// StatesEqual compares two states by phase and content (map equality, not
// reference equality). Used by replay idempotence checks.
func StatesEqual(a, b State) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	if a.Status() != b.Status() {
		return false
	}
	if !ScoresOf(a).Equal(ScoresOf(b)) {
		return false
	}
	ea, eb := ExcludedOf(a), ExcludedOf(b)
	if len(ea) != len(eb) {
		return false
	}
	for id := range ea {
		if !eb.Has(id) {
			return false
		}
	}
	switch sa := a.(type) {
	case AwaitingMatch:
		return postsEqual(sa.Tag, postOfState(b))
	case AwaitingNext:
		return postsEqual(sa.Match, postOfState(b))
	}
	return true
}

func postOfState(s State) Post {
	switch st := s.(type) {
	case AwaitingMatch:
		return st.Tag
	case AwaitingNext:
		return st.Match
	default:
		return Post{}
	}
}

func postsEqual(a, b Post) bool {
	if a.MessageID != b.MessageID || a.ChannelID != b.ChannelID ||
		a.AuthorID != b.AuthorID || !a.CreatedAt.Equal(b.CreatedAt) {
		return false
	}
	if len(a.MentionIDs) != len(b.MentionIDs) {
		return false
	}
	for i := range a.MentionIDs {
		if a.MentionIDs[i] != b.MentionIDs[i] {
			return false
		}
	}
	return true
}
