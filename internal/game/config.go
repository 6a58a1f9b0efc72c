package game

import (
	"time"

	"golang.org/x/text/language"

	"github.com/tremby/discord-tagbot/internal/chat"
)

// RankingStrategy names how the scoreboard is ordered and bounded.
// Only the identity is modeled here; rendering lives with the announcer.
type RankingStrategy string

const (
	// RankingAllTime ranks by total points since the game began.
	// This is the default, including for unknown persisted values.
	RankingAllTime RankingStrategy = "all-time"
	// RankingPeriod ranks within the configured recurrence period.
	RankingPeriod RankingStrategy = "period"
)

// ParseRankingStrategy maps a wire-form strategy to a known one.
// Unknown or empty values fall back to RankingAllTime so older persisted
// records keep loading.
func ParseRankingStrategy(s string) RankingStrategy {
	switch RankingStrategy(s) {
	case RankingAllTime, RankingPeriod:
		return RankingStrategy(s)
	}
	return RankingAllTime
}

// Config holds a game's administrative settings. Role and channel fields
// are live resolved entities; the store reduces them to identities and the
// loader re-resolves them.
type Config struct {
	// TimeLimit bounds how long the matching participants have to post the
	// next tag. Zero means no limit. Stored as whole minutes.
	TimeLimit time.Duration

	// JudgeRoles may adjudicate disputed submissions.
	JudgeRoles []chat.Role

	// ChatChannel is an optional secondary channel for discussion and
	// administrative notices.
	ChatChannel *chat.Channel

	// AutoRestart restarts the game with fresh scores when it is archived.
	AutoRestart bool

	// Period is the recurrence period for periodic games ("month", "week").
	// Empty means none.
	Period string

	// Locale selects the language for user-facing announcements.
	Locale language.Tag

	// Ranking selects the scoreboard strategy.
	Ranking RankingStrategy
}

// DefaultConfig returns the settings a freshly registered game starts with.
func DefaultConfig() Config {
	return Config{
		Locale:  language.English,
		Ranking: RankingAllTime,
	}
}

// JudgeRoleIDs returns the judge role identities in declaration order.
func (c Config) JudgeRoleIDs() []string {
	ids := make([]string, 0, len(c.JudgeRoles))
	for _, r := range c.JudgeRoles {
		ids = append(ids, r.ID)
	}
	return ids
}
