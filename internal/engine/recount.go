package engine

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/tremby/discord-tagbot/internal/chat"
	"github.com/tremby/discord-tagbot/internal/game"
)

// Recounter deterministically reconstructs a game's state from its
// channel's full history.
//
// A recount is the same transition function as live processing, run in
// recount mode: no side effects, violations tolerated. Because of that it
// can be run arbitrarily often without external consequence, and running it
// twice over unchanged history yields equal states.
//
// It is used to initialize a freshly registered game, to recover after an
// edit or deletion whose incremental effect cannot be reasoned about, and
// by deadline enforcement.
type Recounter struct {
	history chat.History
	machine *Machine
}

// NewRecounter creates a recounter driving the given machine over the
// given history source.
func NewRecounter(history chat.History, machine *Machine) *Recounter {
	return &Recounter{history: history, machine: machine}
}

// Recount derives the game's current state from scratch.
//
// State starts at Free with empty scores; every historical event is applied
// in chronological order (an ordering the history collaborator guarantees),
// and each non-nil result becomes the state for the next event. The passed
// game is only read for its channel and config, never mutated.
func (r *Recounter) Recount(ctx context.Context, g *game.Game) (game.State, error) {
	msgs, err := r.history.ChannelMessages(ctx, g.Channel.ID)
	if err != nil {
		return nil, fmt.Errorf("fetch history for channel %s: %w", g.Channel.ID, err)
	}

	scratch := &game.Game{
		Channel: g.Channel,
		Config:  g.Config,
		State:   game.Free{Scores: game.Scores{}},
	}
	for _, msg := range msgs {
		next, err := r.machine.Apply(ctx, scratch, msg, ModeRecount)
		if err != nil {
			return nil, fmt.Errorf("recount channel %s at message %s: %w", g.Channel.ID, msg.ID, err)
		}
		if next != nil {
			scratch.State = next
		}
	}

	slog.Debug("recount complete",
		"channel", g.Channel.ID,
		"messages", len(msgs),
		"status", scratch.State.Status(),
	)
	return scratch.State, nil
}
