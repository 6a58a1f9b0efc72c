package engine_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tremby/discord-tagbot/internal/chat"
	"github.com/tremby/discord-tagbot/internal/chat/chattest"
	"github.com/tremby/discord-tagbot/internal/engine"
	"github.com/tremby/discord-tagbot/internal/game"
)

const selfID = "bot"

var epoch = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

// effectsRecorder captures machine and enforcer side effects for assertions.
type effectsRecorder struct {
	rejections []engine.RejectReason
	tags       []game.Post
	lateTags   []bool
	matches    []game.Post
	reminders  []time.Duration
	expired    []expiration
}

type expiration struct {
	dropped game.Participants
	delta   game.Scores
}

func (r *effectsRecorder) SubmissionRejected(_ context.Context, _ *game.Game, _ chat.Message, reason engine.RejectReason) {
	r.rejections = append(r.rejections, reason)
}

func (r *effectsRecorder) TagPosted(_ context.Context, _ *game.Game, tag game.Post, late bool) {
	r.tags = append(r.tags, tag)
	r.lateTags = append(r.lateTags, late)
}

func (r *effectsRecorder) MatchPosted(_ context.Context, _ *game.Game, match game.Post, _ game.Scores) {
	r.matches = append(r.matches, match)
}

func (r *effectsRecorder) TimeRunningOut(_ context.Context, _ *game.Game, remaining time.Duration) {
	r.reminders = append(r.reminders, remaining)
}

func (r *effectsRecorder) TimeExpired(_ context.Context, _ *game.Game, dropped game.Participants, delta game.Scores) {
	r.expired = append(r.expired, expiration{dropped: dropped, delta: delta})
}

func newGame(state game.State) *game.Game {
	g := game.New(chat.Channel{ID: "c1", Name: "tag"})
	g.State = state
	return g
}

func msgAt(author string, offset time.Duration, mentions ...string) chat.Message {
	m := chattest.Msg("c1", author, epoch.Add(offset), true, mentions...)
	m.ID = author + offset.String()
	return m
}

func TestMachine_Apply_IgnoresOwnPosts(t *testing.T) {
	rec := &effectsRecorder{}
	m := engine.NewMachine(selfID, rec)
	g := newGame(game.Free{Scores: game.Scores{}})

	next, err := m.Apply(context.Background(), g, msgAt(selfID, 0), engine.ModeLive)
	require.NoError(t, err)
	assert.Nil(t, next)
	assert.Empty(t, rec.rejections)
}

func TestMachine_Apply_IgnoresPostsWithoutImage(t *testing.T) {
	rec := &effectsRecorder{}
	m := engine.NewMachine(selfID, rec)
	g := newGame(game.Free{Scores: game.Scores{}})

	msg := chattest.Msg("c1", "alice", epoch, false)
	next, err := m.Apply(context.Background(), g, msg, engine.ModeLive)
	require.NoError(t, err)
	assert.Nil(t, next)
}

func TestMachine_Apply_Free_AcceptsOpeningTag(t *testing.T) {
	rec := &effectsRecorder{}
	m := engine.NewMachine(selfID, rec)
	g := newGame(game.Free{Scores: game.Scores{"alice": 2}})

	next, err := m.Apply(context.Background(), g, msgAt("alice", 0, "bob"), engine.ModeLive)
	require.NoError(t, err)

	st, ok := next.(game.AwaitingMatch)
	require.True(t, ok)
	assert.Equal(t, game.Scores{"alice": 2}, st.Scores, "scores carry over unchanged")
	assert.Equal(t, "alice", st.Tag.AuthorID)
	assert.Empty(t, st.Excluded)
	require.Len(t, rec.tags, 1)
	assert.False(t, rec.lateTags[0])

	// The passed game is never mutated.
	assert.Equal(t, game.StatusFree, g.State.Status())
}

func TestMachine_Apply_Match_AwardsAllParticipants(t *testing.T) {
	rec := &effectsRecorder{}
	m := engine.NewMachine(selfID, rec)
	tag := game.Post{MessageID: "t1", ChannelID: "c1", AuthorID: "alice", CreatedAt: epoch}
	g := newGame(game.AwaitingMatch{
		Scores:   game.Scores{"alice": 1},
		Tag:      tag,
		Excluded: game.Participants{},
	})

	next, err := m.Apply(context.Background(), g, msgAt("bob", time.Minute, "carol"), engine.ModeLive)
	require.NoError(t, err)

	st, ok := next.(game.AwaitingNext)
	require.True(t, ok)
	assert.Equal(t, game.Scores{"alice": 1, "bob": 1, "carol": 1}, st.Scores)
	assert.Equal(t, "bob", st.Match.AuthorID)
	require.Len(t, rec.matches, 1)
}

func TestMachine_Apply_Match_RejectsSelfMatchLive(t *testing.T) {
	rec := &effectsRecorder{}
	m := engine.NewMachine(selfID, rec)
	tag := game.Post{MessageID: "t1", ChannelID: "c1", AuthorID: "alice", MentionIDs: []string{"bob"}, CreatedAt: epoch}
	g := newGame(game.AwaitingMatch{Scores: game.Scores{}, Tag: tag, Excluded: game.Participants{}})

	// Author overlap.
	next, err := m.Apply(context.Background(), g, msgAt("alice", time.Minute), engine.ModeLive)
	require.NoError(t, err)
	assert.Nil(t, next)

	// Mention overlap counts too.
	next, err = m.Apply(context.Background(), g, msgAt("carol", time.Minute, "bob"), engine.ModeLive)
	require.NoError(t, err)
	assert.Nil(t, next)

	assert.Equal(t, []engine.RejectReason{engine.RejectSelfMatch, engine.RejectSelfMatch}, rec.rejections)
}

func TestMachine_Apply_Match_ToleratesSelfMatchInRecount(t *testing.T) {
	// Whatever survives in history was allowed to stand; a recount must not
	// re-reject it.
	m := engine.NewMachine(selfID, nil)
	tag := game.Post{MessageID: "t1", ChannelID: "c1", AuthorID: "alice", CreatedAt: epoch}
	g := newGame(game.AwaitingMatch{Scores: game.Scores{}, Tag: tag, Excluded: game.Participants{}})

	next, err := m.Apply(context.Background(), g, msgAt("alice", time.Minute), engine.ModeRecount)
	require.NoError(t, err)

	st, ok := next.(game.AwaitingNext)
	require.True(t, ok)
	assert.Equal(t, game.Scores{"alice": 1}, st.Scores)
}

func TestMachine_Apply_Match_RejectsExcludedLive(t *testing.T) {
	rec := &effectsRecorder{}
	m := engine.NewMachine(selfID, rec)
	tag := game.Post{MessageID: "t1", ChannelID: "c1", AuthorID: "alice", CreatedAt: epoch}
	g := newGame(game.AwaitingMatch{
		Scores:   game.Scores{},
		Tag:      tag,
		Excluded: game.NewParticipants("bob"),
	})

	next, err := m.Apply(context.Background(), g, msgAt("bob", time.Minute), engine.ModeLive)
	require.NoError(t, err)
	assert.Nil(t, next)
	assert.Equal(t, []engine.RejectReason{engine.RejectExcluded}, rec.rejections)

	// The same post is tolerated in recount mode.
	next, err = m.Apply(context.Background(), g, msgAt("bob", time.Minute), engine.ModeRecount)
	require.NoError(t, err)
	require.NotNil(t, next)
	assert.Equal(t, game.StatusAwaitingNext, next.Status())
}

func TestMachine_Apply_Match_ExclusionsCarryToNextPhase(t *testing.T) {
	m := engine.NewMachine(selfID, nil)
	tag := game.Post{MessageID: "t1", ChannelID: "c1", AuthorID: "alice", CreatedAt: epoch}
	g := newGame(game.AwaitingMatch{
		Scores:   game.Scores{},
		Tag:      tag,
		Excluded: game.NewParticipants("dave"),
	})

	next, err := m.Apply(context.Background(), g, msgAt("bob", time.Minute), engine.ModeRecount)
	require.NoError(t, err)

	st, ok := next.(game.AwaitingNext)
	require.True(t, ok)
	assert.True(t, st.Excluded.Has("dave"), "round exclusions ride through the match")
}

func TestMachine_Apply_Next_OnlyMatchParticipantsMayTag(t *testing.T) {
	rec := &effectsRecorder{}
	m := engine.NewMachine(selfID, rec)
	match := game.Post{MessageID: "m1", ChannelID: "c1", AuthorID: "bob", MentionIDs: []string{"carol"}, CreatedAt: epoch}
	g := newGame(game.AwaitingNext{Scores: game.Scores{"bob": 1}, Match: match, Excluded: game.Participants{}})

	// An outsider is rejected live, ignored in recount.
	next, err := m.Apply(context.Background(), g, msgAt("dave", time.Minute), engine.ModeLive)
	require.NoError(t, err)
	assert.Nil(t, next)
	assert.Equal(t, []engine.RejectReason{engine.RejectNotYourTurn}, rec.rejections)

	next, err = m.Apply(context.Background(), g, msgAt("dave", time.Minute), engine.ModeRecount)
	require.NoError(t, err)
	assert.Nil(t, next)

	// A mentioned participant qualifies, not just the author.
	next, err = m.Apply(context.Background(), g, msgAt("carol", time.Minute), engine.ModeLive)
	require.NoError(t, err)
	require.NotNil(t, next)
	assert.Equal(t, game.StatusAwaitingMatch, next.Status())
}

func TestMachine_Apply_Next_NewRoundResetsExclusions(t *testing.T) {
	m := engine.NewMachine(selfID, nil)
	match := game.Post{MessageID: "m1", ChannelID: "c1", AuthorID: "bob", CreatedAt: epoch}
	g := newGame(game.AwaitingNext{
		Scores:   game.Scores{"bob": 1},
		Match:    match,
		Excluded: game.NewParticipants("dave"),
	})

	next, err := m.Apply(context.Background(), g, msgAt("bob", time.Minute), engine.ModeRecount)
	require.NoError(t, err)

	st, ok := next.(game.AwaitingMatch)
	require.True(t, ok)
	assert.Empty(t, st.Excluded, "disqualifications belong to the round that ended")
}

func TestMachine_Apply_Next_LateTagStillAccepted(t *testing.T) {
	rec := &effectsRecorder{}
	m := engine.NewMachine(selfID, rec)
	match := game.Post{MessageID: "m1", ChannelID: "c1", AuthorID: "bob", CreatedAt: epoch}
	g := newGame(game.AwaitingNext{Scores: game.Scores{"bob": 1}, Match: match, Excluded: game.Participants{}})
	g.Config.TimeLimit = 30 * time.Minute

	next, err := m.Apply(context.Background(), g, msgAt("bob", time.Hour), engine.ModeLive)
	require.NoError(t, err)
	require.NotNil(t, next)
	assert.Equal(t, game.StatusAwaitingMatch, next.Status())
	require.Len(t, rec.lateTags, 1)
	assert.True(t, rec.lateTags[0], "lateness is announced, never enforced here")
}

func TestMachine_Apply_Next_OnTimeTagNotLate(t *testing.T) {
	rec := &effectsRecorder{}
	m := engine.NewMachine(selfID, rec)
	match := game.Post{MessageID: "m1", ChannelID: "c1", AuthorID: "bob", CreatedAt: epoch}
	g := newGame(game.AwaitingNext{Scores: game.Scores{"bob": 1}, Match: match, Excluded: game.Participants{}})
	g.Config.TimeLimit = 30 * time.Minute

	_, err := m.Apply(context.Background(), g, msgAt("bob", 10*time.Minute), engine.ModeLive)
	require.NoError(t, err)
	require.Len(t, rec.lateTags, 1)
	assert.False(t, rec.lateTags[0])
}

func TestMachine_Apply_Archived(t *testing.T) {
	rec := &effectsRecorder{}
	m := engine.NewMachine(selfID, rec)
	g := newGame(game.Archived{Scores: game.Scores{"alice": 5}})

	// Live: rejected as concluded.
	next, err := m.Apply(context.Background(), g, msgAt("alice", 0), engine.ModeLive)
	require.NoError(t, err)
	assert.Nil(t, next)
	assert.Equal(t, []engine.RejectReason{engine.RejectArchived}, rec.rejections)

	// Recount: archived games are never replayed.
	_, err = m.Apply(context.Background(), g, msgAt("alice", 0), engine.ModeRecount)
	require.Error(t, err)
	assert.True(t, engine.IsStateError(err))
}

func TestMachine_Apply_Inactive_IgnoresEverything(t *testing.T) {
	rec := &effectsRecorder{}
	m := engine.NewMachine(selfID, rec)
	g := newGame(game.Inactive{})

	for _, mode := range []engine.Mode{engine.ModeLive, engine.ModeRecount} {
		next, err := m.Apply(context.Background(), g, msgAt("alice", 0), mode)
		require.NoError(t, err)
		assert.Nil(t, next)
	}
	assert.Empty(t, rec.rejections)
}

func TestMachine_Apply_ModeParityForAcceptedEvents(t *testing.T) {
	// The same accepted event sequence must derive equal states in both
	// modes; only side effects differ.
	events := []chat.Message{
		msgAt("alice", 0),
		msgAt("bob", 1*time.Minute, "carol"),
		msgAt("carol", 2*time.Minute),
		msgAt("dave", 3*time.Minute),
	}

	run := func(mode engine.Mode) game.State {
		rec := &effectsRecorder{}
		m := engine.NewMachine(selfID, rec)
		g := newGame(game.Free{Scores: game.Scores{}})
		for _, ev := range events {
			next, err := m.Apply(context.Background(), g, ev, mode)
			require.NoError(t, err)
			if next != nil {
				g.State = next
			}
		}
		return g.State
	}

	live := run(engine.ModeLive)
	replayed := run(engine.ModeRecount)
	assert.True(t, game.StatesEqual(live, replayed))
}

func TestMachine_Apply_ScoreConservation(t *testing.T) {
	// Every accepted match adds exactly one point per participant; nothing
	// else changes scores.
	m := engine.NewMachine(selfID, nil)
	g := newGame(game.Free{Scores: game.Scores{}})

	events := []chat.Message{
		msgAt("alice", 0),                      // tag
		msgAt("bob", 1*time.Minute, "carol"),   // match: bob+1 carol+1
		msgAt("carol", 2*time.Minute),          // tag
		msgAt("dave", 3*time.Minute, "emma"),   // match: dave+1 emma+1
	}
	for _, ev := range events {
		next, err := m.Apply(context.Background(), g, ev, engine.ModeRecount)
		require.NoError(t, err)
		if next != nil {
			g.State = next
		}
	}

	total := 0
	for _, points := range game.ScoresOf(g.State) {
		total += points
	}
	assert.Equal(t, 4, total)
	assert.Equal(t, 0, game.ScoresOf(g.State).Get("alice"), "tagging alone never scores")
}
