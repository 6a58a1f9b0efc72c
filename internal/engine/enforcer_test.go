package engine_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tremby/discord-tagbot/internal/chat/chattest"
	"github.com/tremby/discord-tagbot/internal/engine"
	"github.com/tremby/discord-tagbot/internal/game"
	"github.com/tremby/discord-tagbot/internal/testutil"
)

type enforcerFixture struct {
	fake     *chattest.Fake
	enforcer *engine.Enforcer
	rec      *effectsRecorder
	sched    *testutil.ManualScheduler
}

func newEnforcerFixture(t *testing.T) *enforcerFixture {
	t.Helper()
	fake := chattest.NewFake()
	fake.AddChannel("c1", "tag")
	rec := &effectsRecorder{}
	machine := engine.NewMachine(selfID, rec)
	recounter := engine.NewRecounter(fake, machine)
	sched := testutil.NewManualScheduler(epoch.Add(time.Hour))
	return &enforcerFixture{
		fake:     fake,
		enforcer: engine.NewEnforcer(recounter, fake, rec, sched),
		rec:      rec,
		sched:    sched,
	}
}

func TestEnforcer_Remind(t *testing.T) {
	f := newEnforcerFixture(t)
	g := awaitingNextGame(epoch.Add(40*time.Minute), 30*time.Minute)

	// Deadline at epoch+70m, now epoch+60m: ten minutes remain.
	f.enforcer.Remind(context.Background(), g)
	require.Len(t, f.rec.reminders, 1)
	assert.Equal(t, 10*time.Minute, f.rec.reminders[0])
}

func TestEnforcer_Remind_StaleFiringIgnored(t *testing.T) {
	f := newEnforcerFixture(t)
	g := newGame(game.Free{Scores: game.Scores{}})

	f.enforcer.Remind(context.Background(), g)
	assert.Empty(t, f.rec.reminders)
}

func TestEnforcer_Expire_DeletesRecountsAndExcludes(t *testing.T) {
	f := newEnforcerFixture(t)

	// History: alice's tag, then bob's match that has now expired.
	tagMsg := msgAt("alice", 0)
	matchMsg := msgAt("bob", 1*time.Minute, "carol")
	f.fake.Seed(tagMsg)
	f.fake.Seed(matchMsg)

	match := game.PostOf(matchMsg)
	g := newGame(game.AwaitingNext{
		Scores:   game.Scores{"bob": 1, "carol": 1},
		Match:    match,
		Excluded: game.NewParticipants("zed"),
	})
	g.Config.TimeLimit = 30 * time.Minute

	next, err := f.enforcer.Expire(context.Background(), g)
	require.NoError(t, err)

	st, ok := next.(game.AwaitingMatch)
	require.True(t, ok)
	assert.Equal(t, "alice", st.Tag.AuthorID, "round rolls back to the pending tag")
	assert.Empty(t, st.Scores, "the deleted match's points are gone")

	// Dropped participants join the round's prior exclusions.
	assert.Equal(t, []string{"bob", "carol", "zed"}, st.Excluded.Sorted())

	// The expired matching post was deleted from the platform.
	require.Len(t, f.fake.Deleted(), 1)
	assert.Equal(t, match.Ref(), f.fake.Deleted()[0])

	// The announced delta reflects the lost points.
	require.Len(t, f.rec.expired, 1)
	assert.Equal(t, []string{"bob", "carol"}, f.rec.expired[0].dropped.Sorted())
	assert.Equal(t, game.Scores{"bob": -1, "carol": -1}, f.rec.expired[0].delta)
}

func TestEnforcer_Expire_StaleFiringIgnored(t *testing.T) {
	f := newEnforcerFixture(t)
	g := newGame(game.Free{Scores: game.Scores{}})

	next, err := f.enforcer.Expire(context.Background(), g)
	require.NoError(t, err)
	assert.Nil(t, next)
	assert.Empty(t, f.fake.Deleted())
	assert.Empty(t, f.rec.expired)
}

func TestEnforcer_Expire_UnexpectedRecoveryPhase(t *testing.T) {
	f := newEnforcerFixture(t)

	// Only the match is in history; after its deletion the recount derives
	// Free, which recovery cannot accept.
	matchMsg := msgAt("bob", 1*time.Minute)
	f.fake.Seed(matchMsg)

	g := newGame(game.AwaitingNext{
		Scores:   game.Scores{"bob": 1},
		Match:    game.PostOf(matchMsg),
		Excluded: game.Participants{},
	})
	g.Config.TimeLimit = 30 * time.Minute

	next, err := f.enforcer.Expire(context.Background(), g)
	require.Error(t, err)
	assert.True(t, engine.IsRecoveryError(err))
	assert.Nil(t, next)
	assert.Empty(t, f.rec.expired, "no announcement for an aborted recovery")
}
