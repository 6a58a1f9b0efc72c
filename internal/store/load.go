package store

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/text/language"

	"github.com/tremby/discord-tagbot/internal/chat"
	"github.com/tremby/discord-tagbot/internal/engine"
	"github.com/tremby/discord-tagbot/internal/game"
)

// Loader reconstructs live games from the persisted snapshot.
//
// Error isolation is per entity reference at every step: a bad role,
// channel, or participant identity never aborts loading the remaining
// valid games or the remaining valid references within a game. An
// unresolvable primary channel drops that whole game; everything else
// drops only the reference, with a warning for operators.
type Loader struct {
	kv        KV
	resolver  chat.Resolver
	recounter *engine.Recounter
}

// NewLoader wires a loader. The recounter rederives state from history;
// the serialized phase tag is trusted only as a signal of whether replay
// is warranted.
func NewLoader(kv KV, resolver chat.Resolver, recounter *engine.Recounter) *Loader {
	return &Loader{kv: kv, resolver: resolver, recounter: recounter}
}

// Load reads the snapshot document and reconstructs each game
// independently. The caller owns re-announcing status and re-arming
// timers for the returned games.
func (l *Loader) Load(ctx context.Context) ([]*game.Game, error) {
	raw, ok, err := l.kv.Get(ctx, SnapshotKey)
	if err != nil {
		return nil, fmt.Errorf("read snapshot: %w", err)
	}
	if !ok {
		return nil, nil
	}
	doc, err := ParseDocument([]byte(raw))
	if err != nil {
		return nil, err
	}

	games := make([]*game.Game, 0, len(doc.Games))
	for _, rec := range doc.Games {
		g, ok := l.loadGame(ctx, rec)
		if !ok {
			continue
		}
		games = append(games, g)
	}
	slog.Info("games loaded", "persisted", len(doc.Games), "loaded", len(games))
	return games, nil
}

// loadGame reconstructs one game record, reporting false when the record
// must be dropped entirely.
func (l *Loader) loadGame(ctx context.Context, rec Record) (*game.Game, bool) {
	status, ok := game.ParseStatus(rec.Status)
	if !ok {
		slog.Error("dropping game with corrupted status tag",
			"channel", rec.ChannelID,
			"status", rec.Status,
		)
		return nil, false
	}

	channel, err := l.resolver.ResolveChannel(ctx, rec.ChannelID)
	if err != nil {
		slog.Error("dropping game with unresolvable channel",
			"channel", rec.ChannelID,
			"error", err,
		)
		return nil, false
	}

	g := &game.Game{
		Channel: channel,
		Config:  l.loadConfig(ctx, rec.ChannelID, rec.Config),
	}

	if rec.StatusMessageID != nil {
		ref, err := l.resolver.ResolveMessage(ctx, channel.ID, *rec.StatusMessageID)
		if err != nil {
			slog.Warn("dropping unresolvable status message",
				"channel", channel.ID,
				"message", *rec.StatusMessageID,
				"error", err,
			)
		} else {
			g.StatusMessage = &ref
		}
	}

	switch status {
	case game.StatusInactive:
		g.State = game.Inactive{}
		return g, true
	case game.StatusArchived:
		// Concluded games are not replayed; their final scores are not
		// rederivable without reopening the round history.
		g.State = game.Archived{Scores: game.Scores{}}
		return g, true
	}

	derived, err := l.recounter.Recount(ctx, g)
	if err != nil {
		slog.Error("dropping game whose history could not be replayed",
			"channel", channel.ID,
			"error", err,
		)
		return nil, false
	}
	if excluded := l.loadDisqualified(ctx, channel.ID, rec.Disqualified); len(excluded) > 0 {
		derived = game.WithExcluded(derived, game.ExcludedOf(derived).Union(excluded))
	}
	g.State = derived
	return g, true
}

// loadConfig re-resolves the config's external references, dropping only
// the unresolvable ones.
func (l *Loader) loadConfig(ctx context.Context, channelID string, rec ConfigRecord) game.Config {
	cfg := game.DefaultConfig()

	if rec.NextTagTimeLimit != nil && *rec.NextTagTimeLimit > 0 {
		cfg.TimeLimit = time.Duration(*rec.NextTagTimeLimit) * time.Minute
	}

	for _, roleID := range rec.TagJudgeRoleIDs {
		role, err := l.resolver.ResolveRole(ctx, roleID)
		if err != nil {
			slog.Warn("dropping unresolvable judge role",
				"channel", channelID,
				"role", roleID,
				"error", err,
			)
			continue
		}
		cfg.JudgeRoles = append(cfg.JudgeRoles, role)
	}

	if rec.ChatChannelID != nil {
		chatChannel, err := l.resolver.ResolveChannel(ctx, *rec.ChatChannelID)
		if err != nil {
			slog.Warn("dropping unresolvable chat channel",
				"channel", channelID,
				"chat_channel", *rec.ChatChannelID,
				"error", err,
			)
		} else {
			cfg.ChatChannel = &chatChannel
		}
	}

	cfg.AutoRestart = rec.AutoRestart
	if rec.Period != nil {
		cfg.Period = *rec.Period
	}
	if rec.Locale != "" {
		tag, err := language.Parse(rec.Locale)
		if err != nil {
			slog.Warn("dropping unparseable locale",
				"channel", channelID,
				"locale", rec.Locale,
				"error", err,
			)
		} else {
			cfg.Locale = tag
		}
	}
	cfg.Ranking = game.ParseRankingStrategy(rec.RankingStrategy)

	return cfg
}

// loadDisqualified re-resolves the persisted exclusion list, dropping only
// the participants that no longer resolve.
func (l *Loader) loadDisqualified(ctx context.Context, channelID string, ids []string) game.Participants {
	excluded := game.Participants{}
	for _, id := range ids {
		user, err := l.resolver.ResolveUser(ctx, id)
		if err != nil {
			slog.Warn("dropping unresolvable disqualified participant",
				"channel", channelID,
				"participant", id,
				"error", err,
			)
			continue
		}
		excluded[user.ID] = struct{}{}
	}
	return excluded
}
