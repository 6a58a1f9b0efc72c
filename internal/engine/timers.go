package engine

import (
	"log/slog"
	"sync"
	"time"

	"github.com/tremby/discord-tagbot/internal/game"
)

// reminderInterval is the rounding granularity for the reminder lead time.
const reminderInterval = 5 * time.Minute

// Timer is an outstanding delayed callback. Stop is safe to call whether or
// not the timer has already fired.
type Timer interface {
	// Stop cancels the timer, reporting whether it was still pending.
	Stop() bool
}

// Scheduler abstracts timer creation and the current time so tests can
// drive time manually (see testutil.ManualScheduler).
type Scheduler interface {
	Now() time.Time
	AfterFunc(d time.Duration, fn func()) Timer
}

// WallScheduler schedules on the real clock.
type WallScheduler struct{}

func (WallScheduler) Now() time.Time { return time.Now() }

func (WallScheduler) AfterFunc(d time.Duration, fn func()) Timer {
	return wallTimer{time.AfterFunc(d, fn)}
}

type wallTimer struct{ t *time.Timer }

func (w wallTimer) Stop() bool { return w.t.Stop() }

// FireFunc is invoked on the timer goroutine when a timer fires. It must
// not touch game state directly; the bot loop enqueues an event so the
// actual handling runs single-writer.
type FireFunc func(channelID string)

// Deadlines is the process-local side table of armed timers, keyed by
// channel ID. Timer handles never live inside game states, so
// serialization never has to skip them and disarming is reachable from the
// channel identity alone. After a restart nothing is armed until the loader
// re-arms.
type Deadlines struct {
	sched  Scheduler
	remind FireFunc
	expire FireFunc

	mu     sync.Mutex
	timers map[string]*timerPair
}

type timerPair struct {
	reminder Timer
	deadline Timer
}

// NewDeadlines creates an empty timer table. remind and expire are called
// when the respective timer fires.
func NewDeadlines(sched Scheduler, remind, expire FireFunc) *Deadlines {
	return &Deadlines{
		sched:  sched,
		remind: remind,
		expire: expire,
		timers: make(map[string]*timerPair),
	}
}

// Arm schedules the reminder and deadline timers for a game awaiting its
// next tag. A no-op unless the game is in AwaitingNext with a time limit
// configured. Any previously armed timers for the channel are replaced.
//
// The reminder fires roundUp(limit/10, 5m) before the deadline, skipped
// when the limit is under twice the rounding interval or the fire time has
// already passed. The deadline fires at match time plus the limit; a
// deadline already in the past (restart recovery) fires immediately.
func (d *Deadlines) Arm(g *game.Game) {
	st, ok := g.State.(game.AwaitingNext)
	if !ok {
		return
	}
	limit := g.Config.TimeLimit
	if limit <= 0 {
		return
	}

	channelID := g.Channel.ID
	d.Disarm(channelID)

	now := d.sched.Now()
	deadline := st.Match.CreatedAt.Add(limit)
	pair := &timerPair{}

	if lead, ok := ReminderLead(limit); ok {
		if at := deadline.Add(-lead); at.After(now) {
			pair.reminder = d.sched.AfterFunc(at.Sub(now), func() { d.remind(channelID) })
		}
	}

	wait := deadline.Sub(now)
	if wait < 0 {
		wait = 0
	}
	pair.deadline = d.sched.AfterFunc(wait, func() { d.expire(channelID) })

	d.mu.Lock()
	d.timers[channelID] = pair
	d.mu.Unlock()

	slog.Debug("timers armed",
		"channel", channelID,
		"deadline", deadline,
		"reminder_armed", pair.reminder != nil,
	)
}

// Disarm cancels both outstanding timers for the channel and clears their
// stored references. Safe to call when nothing is armed, or when a timer
// has already fired.
func (d *Deadlines) Disarm(channelID string) {
	d.mu.Lock()
	pair, ok := d.timers[channelID]
	if ok {
		delete(d.timers, channelID)
	}
	d.mu.Unlock()
	if !ok {
		return
	}

	if pair.reminder != nil {
		pair.reminder.Stop()
	}
	if pair.deadline != nil {
		pair.deadline.Stop()
	}
	slog.Debug("timers disarmed", "channel", channelID)
}

// Armed reports whether the channel has timers in the table.
func (d *Deadlines) Armed(channelID string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	_, ok := d.timers[channelID]
	return ok
}

// ReminderLead computes how long before the deadline the reminder fires:
// a tenth of the time limit, rounded up to the nearest five-minute
// boundary. Reports false when the limit is too short for a reminder to be
// worth sending (under twice the rounding interval).
//
// The heuristic exists to avoid noisy reminders on short games; it is
// preserved as-is rather than re-derived.
func ReminderLead(limit time.Duration) (time.Duration, bool) {
	if limit < 2*reminderInterval {
		return 0, false
	}
	lead := limit / 10
	if rem := lead % reminderInterval; rem != 0 {
		lead += reminderInterval - rem
	}
	return lead, true
}
