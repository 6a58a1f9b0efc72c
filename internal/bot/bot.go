// Package bot runs the single-writer event loop that owns all game state.
//
// The chat platform delivers raw events (new post, edit, deletion) through
// the On* methods; timers enqueue internal events when they fire. All
// mutation of the registry and of game states happens in the Run loop
// goroutine, which is what lets the transition machine stay lock-free.
package bot

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/tremby/discord-tagbot/internal/chat"
	"github.com/tremby/discord-tagbot/internal/engine"
	"github.com/tremby/discord-tagbot/internal/game"
	"github.com/tremby/discord-tagbot/internal/store"
)

// Bot wires the state machine, replay engine, timers, and persistence
// behind one FIFO event loop.
type Bot struct {
	client   chat.Client
	registry *game.Registry
	kv       store.KV
	selfID   string

	queue  *eventQueue
	tokens TokenGenerator
	sched  engine.Scheduler

	announcer *Announcer
	machine   *engine.Machine
	recounter *engine.Recounter
	deadlines *engine.Deadlines
	enforcer  *engine.Enforcer
}

// Option configures a Bot.
type Option func(*Bot)

// WithTokenGenerator overrides the correlation token generator.
func WithTokenGenerator(gen TokenGenerator) Option {
	return func(b *Bot) { b.tokens = gen }
}

// WithScheduler overrides the timer scheduler, letting tests drive time
// manually.
func WithScheduler(sched engine.Scheduler) Option {
	return func(b *Bot) { b.sched = sched }
}

// New creates a bot. selfID is the bot's own platform user ID, used to
// ignore its own posts.
func New(client chat.Client, registry *game.Registry, kv store.KV, selfID string, opts ...Option) *Bot {
	b := &Bot{
		client:   client,
		registry: registry,
		kv:       kv,
		selfID:   selfID,
		queue:    newEventQueue(),
		tokens:   UUIDv7Generator{},
		sched:    engine.WallScheduler{},
	}
	for _, opt := range opts {
		opt(b)
	}

	b.announcer = NewAnnouncer(client)
	b.machine = engine.NewMachine(selfID, b.announcer)
	b.recounter = engine.NewRecounter(client, b.machine)
	b.deadlines = engine.NewDeadlines(b.sched, b.fireReminder, b.fireDeadline)
	b.enforcer = engine.NewEnforcer(b.recounter, client, b.announcer, b.sched)
	return b
}

// Recounter exposes the replay engine for the loader and offline tooling.
func (b *Bot) Recounter() *engine.Recounter {
	return b.recounter
}

// OnMessageCreated enqueues a new post for processing.
// Safe from any goroutine. Returns false once the loop has stopped.
func (b *Bot) OnMessageCreated(msg chat.Message) bool {
	return b.queue.Enqueue(Event{
		Kind:      EventMessageCreated,
		ChannelID: msg.ChannelID,
		Message:   msg,
		Token:     b.tokens.Generate(),
	})
}

// OnMessageEdited enqueues an edit for processing.
func (b *Bot) OnMessageEdited(msg chat.Message) bool {
	return b.queue.Enqueue(Event{
		Kind:      EventMessageEdited,
		ChannelID: msg.ChannelID,
		Message:   msg,
		Token:     b.tokens.Generate(),
	})
}

// OnMessageDeleted enqueues a deletion for processing.
func (b *Bot) OnMessageDeleted(channelID, messageID string) bool {
	return b.queue.Enqueue(Event{
		Kind:      EventMessageDeleted,
		ChannelID: channelID,
		MessageID: messageID,
		Token:     b.tokens.Generate(),
	})
}

func (b *Bot) fireReminder(channelID string) {
	b.queue.Enqueue(Event{
		Kind:      EventReminderDue,
		ChannelID: channelID,
		Token:     b.tokens.Generate(),
	})
}

func (b *Bot) fireDeadline(channelID string) {
	b.queue.Enqueue(Event{
		Kind:      EventDeadlineDue,
		ChannelID: channelID,
		Token:     b.tokens.Generate(),
	})
}

// Start reconstructs games from the snapshot, re-announces their status,
// and re-arms timers. Must be called before Run, from the same goroutine.
func (b *Bot) Start(ctx context.Context) error {
	loader := store.NewLoader(b.kv, b.client, b.recounter)
	games, err := loader.Load(ctx)
	if err != nil {
		return fmt.Errorf("load games: %w", err)
	}
	for _, g := range games {
		b.registry.Put(g)
		b.updateStatus(ctx, g)
		b.deadlines.Arm(g)
	}
	slog.Info("bot started", "games", len(games))
	return nil
}

// Run starts the single-writer event loop and blocks until the context is
// cancelled or Stop is called.
//
// On an event processing failure the error is logged with the event's
// correlation token and processing continues; a retry would break the
// ordering the engine depends on.
func (b *Bot) Run(ctx context.Context) error {
	slog.Info("event loop starting")
	for {
		event, ok := b.queue.TryDequeue()
		if ok {
			if err := b.processEvent(ctx, event); err != nil {
				slog.Error("event processing failed",
					"error", err,
					"kind", event.Kind.String(),
					"channel", event.ChannelID,
					"token", event.Token,
				)
			}
			continue
		}

		select {
		case <-ctx.Done():
			slog.Info("event loop stopping: context cancelled")
			b.queue.Close()
			return ctx.Err()
		case <-b.queue.Wait():
			// The signal coalesces and may be stale; loop back to
			// TryDequeue, which decides whether there is work.
		case <-b.queue.Done():
			if b.queue.Len() == 0 {
				slog.Info("event loop stopping: queue closed")
				return nil
			}
		}
	}
}

// Stop closes the queue, causing Run to drain and return.
func (b *Bot) Stop() {
	b.queue.Close()
}

// RegisterChannel creates and initializes a game for the channel,
// deriving its starting state from whatever history the channel already
// has. Single-writer: call from the loop goroutine or before Run.
func (b *Bot) RegisterChannel(ctx context.Context, channel chat.Channel) (*game.Game, error) {
	g, err := b.registry.Register(channel)
	if err != nil {
		return nil, err
	}
	derived, err := b.recounter.Recount(ctx, g)
	if err != nil {
		b.registry.Unregister(channel.ID)
		return nil, fmt.Errorf("initial recount: %w", err)
	}
	b.commit(ctx, g, derived)
	return g, nil
}

// UnregisterChannel destroys the channel's game regardless of phase.
// Single-writer: call from the loop goroutine or before Run.
func (b *Bot) UnregisterChannel(ctx context.Context, channelID string) bool {
	if !b.registry.Unregister(channelID) {
		return false
	}
	b.deadlines.Disarm(channelID)
	b.persist(ctx)
	return true
}

// processEvent routes one event. Runs only on the loop goroutine.
func (b *Bot) processEvent(ctx context.Context, ev Event) error {
	g, ok := b.registry.Lookup(ev.ChannelID)
	if !ok {
		// Not a game channel; the platform delivers everything.
		return nil
	}

	switch ev.Kind {
	case EventMessageCreated:
		next, err := b.machine.Apply(ctx, g, ev.Message, engine.ModeLive)
		if err != nil {
			return err
		}
		if next != nil {
			b.commit(ctx, g, next)
		}
		return nil

	case EventMessageEdited, EventMessageDeleted:
		return b.repair(ctx, g)

	case EventReminderDue:
		b.enforcer.Remind(ctx, g)
		return nil

	case EventDeadlineDue:
		next, err := b.enforcer.Expire(ctx, g)
		if err != nil {
			return err
		}
		if next != nil {
			b.commit(ctx, g, next)
		}
		return nil

	default:
		return fmt.Errorf("unknown event kind %d", ev.Kind)
	}
}

// repair handles edits and deletions: their effect on image presence or
// participant sets cannot be incrementally reasoned about, so the state is
// rederived by a full recount. The current round's exclusion set is
// re-attached, as the loader does after a restart.
func (b *Bot) repair(ctx context.Context, g *game.Game) error {
	switch g.State.(type) {
	case game.Archived, game.Inactive:
		return nil
	}

	derived, err := b.recounter.Recount(ctx, g)
	if err != nil {
		return err
	}
	if prev := game.ExcludedOf(g.State); len(prev) > 0 {
		derived = game.WithExcluded(derived, game.ExcludedOf(derived).Union(prev))
	}
	if game.StatesEqual(derived, g.State) {
		return nil
	}
	b.commit(ctx, g, derived)
	return nil
}

// commit installs a new state and performs the bookkeeping every state
// change requires: replace timers, persist the collection, refresh the
// pinned status message.
func (b *Bot) commit(ctx context.Context, g *game.Game, next game.State) {
	g.State = next
	b.deadlines.Disarm(g.Channel.ID)
	b.deadlines.Arm(g)
	b.persist(ctx)
	b.updateStatus(ctx, g)
}

// persist writes the whole active game set. Failures are logged and
// swallowed: losing one persist is recoverable (the next state change
// persists again, and state is rederivable by replay), whereas failing the
// event would desynchronize the loop.
func (b *Bot) persist(ctx context.Context) {
	if err := store.Persist(ctx, b.kv, b.registry.Games()); err != nil {
		slog.Error("persist failed", "error", err)
	}
}

// updateStatus edits the pinned status announcement, creating and pinning
// it on first use or if the old one is gone.
func (b *Bot) updateStatus(ctx context.Context, g *game.Game) {
	text := b.announcer.StatusText(g)

	if g.StatusMessage != nil {
		err := b.client.Edit(ctx, *g.StatusMessage, text)
		if err == nil {
			return
		}
		slog.Warn("status message edit failed, reposting",
			"channel", g.Channel.ID,
			"message", g.StatusMessage.ID,
			"error", err,
		)
		g.StatusMessage = nil
	}

	ref, err := b.client.Send(ctx, g.Channel.ID, text)
	if err != nil {
		slog.Error("failed to post status message",
			"channel", g.Channel.ID,
			"error", err,
		)
		return
	}
	if err := b.client.Pin(ctx, ref); err != nil {
		slog.Warn("failed to pin status message",
			"channel", g.Channel.ID,
			"message", ref.ID,
			"error", err,
		)
	}
	g.StatusMessage = &ref
}
