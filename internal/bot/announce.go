package bot

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/text/message"

	"github.com/tremby/discord-tagbot/internal/chat"
	"github.com/tremby/discord-tagbot/internal/engine"
	"github.com/tremby/discord-tagbot/internal/game"
)

// Announcer renders and posts all user-facing text. It implements
// engine.Effects and engine.TimeoutEffects, so the state machine and the
// deadline enforcer broadcast through it without knowing the platform.
//
// Text is formatted through an x/text printer for the game's configured
// locale; templates themselves are English, with localization carried by
// the printer's number and list formatting.
type Announcer struct {
	messenger chat.Messenger
}

// NewAnnouncer creates an announcer posting through the given messenger.
func NewAnnouncer(messenger chat.Messenger) *Announcer {
	return &Announcer{messenger: messenger}
}

func (a *Announcer) printer(g *game.Game) *message.Printer {
	return message.NewPrinter(g.Config.Locale)
}

// SubmissionRejected implements engine.Effects: explain the rejection in
// the game channel and delete the offending post. Platform failures are
// logged and swallowed; a failed notification must not fail the event.
func (a *Announcer) SubmissionRejected(ctx context.Context, g *game.Game, msg chat.Message, reason engine.RejectReason) {
	p := a.printer(g)
	var text string
	switch reason {
	case engine.RejectNotYourTurn:
		text = p.Sprintf("Sorry <@%s>, the next tag has to come from whoever posted or was mentioned in the last match.", msg.Author.ID)
	case engine.RejectSelfMatch:
		text = p.Sprintf("Sorry <@%s>, you can't match a tag you or your mentions were part of.", msg.Author.ID)
	case engine.RejectExcluded:
		text = p.Sprintf("Sorry <@%s>, you're sitting this round out.", msg.Author.ID)
	case engine.RejectArchived:
		text = p.Sprintf("This game has concluded; no more submissions here.")
	default:
		text = p.Sprintf("Sorry <@%s>, that submission can't be accepted.", msg.Author.ID)
	}
	a.notify(ctx, g, text)
	if err := a.messenger.Delete(ctx, msg.Ref()); err != nil {
		slog.Error("failed to delete rejected submission",
			"channel", g.Channel.ID,
			"message", msg.ID,
			"error", err,
		)
	}
}

// TagPosted implements engine.Effects.
func (a *Announcer) TagPosted(ctx context.Context, g *game.Game, tag game.Post, late bool) {
	p := a.printer(g)
	text := p.Sprintf("New tag from %s! Find it and post your match.", mentionList(tag.Participants()))
	if late {
		text = p.Sprintf("New tag from %s (posted after the time limit, but it counts). Find it and post your match.", mentionList(tag.Participants()))
	}
	a.notify(ctx, g, text)
}

// MatchPosted implements engine.Effects.
func (a *Announcer) MatchPosted(ctx context.Context, g *game.Game, match game.Post, scores game.Scores) {
	p := a.printer(g)
	participants := match.Participants()
	lines := make([]string, 0, len(participants))
	for _, id := range participants.Sorted() {
		lines = append(lines, p.Sprintf("<@%s> now has %d", id, scores.Get(id)))
	}
	a.notify(ctx, g, p.Sprintf("Match by %s! +1 each. %s. Your turn to post the next tag.",
		mentionList(participants), strings.Join(lines, ", ")))
}

// TimeRunningOut implements engine.TimeoutEffects.
func (a *Announcer) TimeRunningOut(ctx context.Context, g *game.Game, remaining time.Duration) {
	st, ok := g.State.(game.AwaitingNext)
	if !ok {
		return
	}
	p := a.printer(g)
	a.notify(ctx, g, p.Sprintf("%s: time is running out for your next tag, about %s left.",
		mentionList(st.Match.Participants()), remaining.Round(time.Minute)))
}

// TimeExpired implements engine.TimeoutEffects.
func (a *Announcer) TimeExpired(ctx context.Context, g *game.Game, dropped game.Participants, delta game.Scores) {
	p := a.printer(g)
	parts := []string{p.Sprintf("Time's up for %s. Their match was withdrawn and they sit this round out.", mentionList(dropped))}
	for _, id := range delta.Ranked() {
		parts = append(parts, p.Sprintf("<@%s>: %+d", id, delta.Get(id)))
	}
	parts = append(parts, p.Sprintf("The previous tag is open for matches again."))
	a.notify(ctx, g, strings.Join(parts, " "))
}

// StatusText renders the pinned status announcement.
func (a *Announcer) StatusText(g *game.Game) string {
	p := a.printer(g)
	var b strings.Builder
	b.WriteString(p.Sprintf("Tag game in <#%s>", g.Channel.ID))
	b.WriteString("\n")

	switch st := g.State.(type) {
	case game.Free:
		b.WriteString(p.Sprintf("No round in progress; anyone may post a tag."))
	case game.AwaitingMatch:
		b.WriteString(p.Sprintf("Tag by %s is waiting for a match.", mentionList(st.Tag.Participants())))
		if len(st.Excluded) > 0 {
			b.WriteString("\n")
			b.WriteString(p.Sprintf("Sitting out this round: %s.", mentionList(st.Excluded)))
		}
	case game.AwaitingNext:
		b.WriteString(p.Sprintf("Waiting on %s for the next tag.", mentionList(st.Match.Participants())))
		if g.Config.TimeLimit > 0 {
			deadline := st.Match.CreatedAt.Add(g.Config.TimeLimit)
			b.WriteString("\n")
			b.WriteString(p.Sprintf("Deadline: %s.", deadline.UTC().Format(time.RFC1123)))
		}
	case game.Archived:
		b.WriteString(p.Sprintf("This game has concluded. Final scores below."))
	case game.Inactive:
		b.WriteString(p.Sprintf("The game is paused."))
		return b.String()
	}

	scores := game.ScoresOf(g.State)
	if len(scores) > 0 {
		b.WriteString("\n")
		b.WriteString(p.Sprintf("Scores:"))
		for _, id := range scores.Ranked() {
			b.WriteString("\n")
			b.WriteString(p.Sprintf("• <@%s>: %d", id, scores.Get(id)))
		}
	}
	return b.String()
}

func (a *Announcer) notify(ctx context.Context, g *game.Game, text string) {
	if _, err := a.messenger.Send(ctx, g.Channel.ID, text); err != nil {
		slog.Error("failed to post announcement",
			"channel", g.Channel.ID,
			"error", err,
		)
	}
}

// mentionList renders a participant set as platform mentions in stable
// order.
func mentionList(p game.Participants) string {
	ids := p.Sorted()
	mentions := make([]string, len(ids))
	for i, id := range ids {
		mentions[i] = fmt.Sprintf("<@%s>", id)
	}
	return strings.Join(mentions, " ")
}
