package game

import (
	"fmt"
	"sort"

	"github.com/tremby/discord-tagbot/internal/chat"
)

// Game is one tag game. Its identity is its channel; at most one game
// exists per channel.
type Game struct {
	// Channel is the game's home channel. Immutable after registration.
	Channel chat.Channel

	Config Config
	State  State

	// StatusMessage references the pinned status announcement, nil until
	// one has been posted.
	StatusMessage *chat.MessageRef
}

// New creates a freshly registered game in the Free phase with defaults.
func New(channel chat.Channel) *Game {
	return &Game{
		Channel: channel,
		Config:  DefaultConfig(),
		State:   Free{Scores: Scores{}},
	}
}

// Archive concludes the game. With AutoRestart set the game immediately
// restarts with fresh scores instead of going terminal.
func (g *Game) Archive() {
	scores := ScoresOf(g.State).Clone()
	if g.Config.AutoRestart {
		g.State = Free{Scores: Scores{}}
		return
	}
	g.State = Archived{Scores: scores}
}

// Deactivate stops the game without destroying it. Scores are dropped.
func (g *Game) Deactivate() {
	g.State = Inactive{}
}

// Activate resumes an inactive game in the Free phase with fresh scores.
// Active games are left alone.
func (g *Game) Activate() {
	if _, ok := g.State.(Inactive); ok {
		g.State = Free{Scores: Scores{}}
	}
}

// Registry is the set of active games, keyed by channel ID.
//
// The registry is owned by the single-writer bot loop: all mutation happens
// from one goroutine, so no locking is done here. This mirrors the
// ownership model of the rest of the engine and is a correctness
// precondition, not something the registry enforces.
type Registry struct {
	games map[string]*Game
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{games: make(map[string]*Game)}
}

// Register creates a game for the channel. Registering a channel that
// already has a game is an error.
func (r *Registry) Register(channel chat.Channel) (*Game, error) {
	if _, ok := r.games[channel.ID]; ok {
		return nil, fmt.Errorf("channel %s already has a game", channel.ID)
	}
	g := New(channel)
	r.games[channel.ID] = g
	return g, nil
}

// Put inserts a game wholesale, replacing any existing game for its
// channel. Used by the persistence loader.
func (r *Registry) Put(g *Game) {
	r.games[g.Channel.ID] = g
}

// Unregister destroys the channel's game regardless of its phase.
// Reports whether a game existed.
func (r *Registry) Unregister(channelID string) bool {
	if _, ok := r.games[channelID]; !ok {
		return false
	}
	delete(r.games, channelID)
	return true
}

// Lookup returns the channel's game, if any.
func (r *Registry) Lookup(channelID string) (*Game, bool) {
	g, ok := r.games[channelID]
	return g, ok
}

// Games returns all games ordered by channel ID for deterministic
// serialization and iteration.
func (r *Registry) Games() []*Game {
	out := make([]*Game, 0, len(r.games))
	for _, g := range r.games {
		out = append(out, g)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Channel.ID < out[j].Channel.ID
	})
	return out
}

// Len returns the number of registered games.
func (r *Registry) Len() int {
	return len(r.games)
}
