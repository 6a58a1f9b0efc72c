package testutil

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

var start = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

func TestManualScheduler_Now(t *testing.T) {
	s := NewManualScheduler(start)
	assert.Equal(t, start, s.Now())

	s.Advance(time.Minute)
	assert.Equal(t, start.Add(time.Minute), s.Now())
}

func TestManualScheduler_FiresInChronologicalOrder(t *testing.T) {
	s := NewManualScheduler(start)
	var fired []string
	s.AfterFunc(2*time.Minute, func() { fired = append(fired, "second") })
	s.AfterFunc(1*time.Minute, func() { fired = append(fired, "first") })

	s.Advance(5 * time.Minute)
	assert.Equal(t, []string{"first", "second"}, fired)
}

func TestManualScheduler_DoesNotFireEarly(t *testing.T) {
	s := NewManualScheduler(start)
	fired := false
	s.AfterFunc(10*time.Minute, func() { fired = true })

	s.Advance(9 * time.Minute)
	assert.False(t, fired)
	assert.Equal(t, 1, s.Pending())

	s.Advance(time.Minute)
	assert.True(t, fired)
	assert.Equal(t, 0, s.Pending())
}

func TestManualScheduler_ZeroDelayFiresOnZeroAdvance(t *testing.T) {
	s := NewManualScheduler(start)
	fired := false
	s.AfterFunc(0, func() { fired = true })

	s.Advance(0)
	assert.True(t, fired)
}

func TestManualTimer_Stop(t *testing.T) {
	s := NewManualScheduler(start)
	fired := false
	timer := s.AfterFunc(time.Minute, func() { fired = true })

	assert.True(t, timer.Stop())
	s.Advance(time.Hour)
	assert.False(t, fired)

	// Stopping again reports nothing pending.
	assert.False(t, timer.Stop())
}

func TestManualTimer_StopAfterFire(t *testing.T) {
	s := NewManualScheduler(start)
	timer := s.AfterFunc(time.Minute, func() {})

	s.Advance(time.Minute)
	assert.False(t, timer.Stop())
}
