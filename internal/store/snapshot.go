package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/tremby/discord-tagbot/internal/game"
)

// SnapshotKey is the fixed blob key holding the serialized game set.
const SnapshotKey = "games"

// Document is the persisted snapshot layout: one JSON document for the
// whole active game collection.
type Document struct {
	Games []Record `json:"games"`
}

// Record is one serialized game. External references are reduced to their
// identities; the loader re-resolves them.
type Record struct {
	ChannelID string `json:"channelId"`
	Status    string `json:"status"`

	// Disqualified carries the round's exclusion set, present only for
	// phases that have one.
	Disqualified []string `json:"disqualifiedFromRound,omitempty"`

	Config ConfigRecord `json:"config"`

	StatusMessageID *string `json:"statusMessageId"`
}

// ConfigRecord is the serialized per-game configuration.
type ConfigRecord struct {
	// NextTagTimeLimit is the time limit in whole minutes, null for none.
	NextTagTimeLimit *int     `json:"nextTagTimeLimit"`
	TagJudgeRoleIDs  []string `json:"tagJudgeRoleIds"`
	ChatChannelID    *string  `json:"chatChannelId"`
	AutoRestart      bool     `json:"autoRestart,omitempty"`
	Period           *string  `json:"period,omitempty"`
	Locale           string   `json:"locale,omitempty"`
	RankingStrategy  string   `json:"rankingStrategy,omitempty"`
}

// Snapshot flattens the games into a document. Timer handles and scores
// are deliberately absent: timers are process-local and scores are
// rederived by replay on load.
func Snapshot(games []*game.Game) Document {
	doc := Document{Games: make([]Record, 0, len(games))}
	for _, g := range games {
		doc.Games = append(doc.Games, recordOf(g))
	}
	return doc
}

func recordOf(g *game.Game) Record {
	rec := Record{
		ChannelID: g.Channel.ID,
		Status:    string(g.State.Status()),
		Config:    configRecordOf(g.Config),
	}
	if excluded := game.ExcludedOf(g.State); len(excluded) > 0 {
		rec.Disqualified = excluded.Sorted()
	}
	if g.StatusMessage != nil {
		id := g.StatusMessage.ID
		rec.StatusMessageID = &id
	}
	return rec
}

func configRecordOf(c game.Config) ConfigRecord {
	rec := ConfigRecord{
		TagJudgeRoleIDs: c.JudgeRoleIDs(),
		AutoRestart:     c.AutoRestart,
		Locale:          c.Locale.String(),
		RankingStrategy: string(c.Ranking),
	}
	if c.TimeLimit > 0 {
		minutes := int(c.TimeLimit / time.Minute)
		rec.NextTagTimeLimit = &minutes
	}
	if c.ChatChannel != nil {
		id := c.ChatChannel.ID
		rec.ChatChannelID = &id
	}
	if c.Period != "" {
		period := c.Period
		rec.Period = &period
	}
	return rec
}

// Marshal renders the document as JSON.
func (d Document) Marshal() ([]byte, error) {
	data, err := json.Marshal(d)
	if err != nil {
		return nil, fmt.Errorf("marshal snapshot: %w", err)
	}
	return data, nil
}

// ParseDocument parses a persisted snapshot.
func ParseDocument(data []byte) (Document, error) {
	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return Document{}, fmt.Errorf("parse snapshot: %w", err)
	}
	return doc, nil
}

// Persist serializes every active game and writes the collection as one
// blob under SnapshotKey.
func Persist(ctx context.Context, kv KV, games []*game.Game) error {
	data, err := Snapshot(games).Marshal()
	if err != nil {
		return err
	}
	if err := kv.Set(ctx, SnapshotKey, string(data)); err != nil {
		return fmt.Errorf("persist games: %w", err)
	}
	return nil
}
