package bot

import (
	"sync"

	"github.com/tremby/discord-tagbot/internal/chat"
)

// EventKind distinguishes the events the loop processes.
type EventKind int

const (
	// EventMessageCreated is a new post delivered by the platform.
	EventMessageCreated EventKind = iota + 1
	// EventMessageEdited is an edit to an existing post.
	EventMessageEdited
	// EventMessageDeleted is a deletion of an existing post.
	EventMessageDeleted
	// EventReminderDue is an internal event from a fired reminder timer.
	EventReminderDue
	// EventDeadlineDue is an internal event from a fired deadline timer.
	EventDeadlineDue
)

func (k EventKind) String() string {
	switch k {
	case EventMessageCreated:
		return "message-created"
	case EventMessageEdited:
		return "message-edited"
	case EventMessageDeleted:
		return "message-deleted"
	case EventReminderDue:
		return "reminder-due"
	case EventDeadlineDue:
		return "deadline-due"
	default:
		return "unknown"
	}
}

// Event is one unit of work for the loop.
type Event struct {
	Kind      EventKind
	ChannelID string

	// Message carries the post for created/edited events.
	Message chat.Message
	// MessageID identifies the post for deleted events.
	MessageID string

	// Token correlates every log line produced while handling this event.
	Token string
}

// eventQueue is a thread-safe FIFO queue feeding the single-writer loop.
//
// Unbounded, so platform callbacks and timer goroutines never block. A
// buffered signal channel of size one coalesces wakeups and keeps the Run
// loop context-aware while waiting.
type eventQueue struct {
	mu     sync.Mutex
	events []Event
	closed bool
	signal chan struct{}
	done   chan struct{}
}

func newEventQueue() *eventQueue {
	return &eventQueue{
		events: make([]Event, 0, 64),
		signal: make(chan struct{}, 1),
		done:   make(chan struct{}),
	}
}

// Enqueue adds an event to the back of the queue.
// Safe from any goroutine. Returns false if the queue is closed.
func (q *eventQueue) Enqueue(e Event) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return false
	}
	q.events = append(q.events, e)

	select {
	case q.signal <- struct{}{}:
	default:
	}
	return true
}

// TryDequeue removes the front event without blocking.
func (q *eventQueue) TryDequeue() (Event, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.events) == 0 {
		return Event{}, false
	}
	e := q.events[0]

	// Zero the slot so the backing array doesn't retain message payloads.
	q.events[0] = Event{}
	if len(q.events) == 1 {
		q.events = q.events[:0]
	} else {
		q.events = q.events[1:]
	}
	return e, true
}

// Wait returns the signal channel for select-based waiting. The signal
// coalesces, so a receive may be stale: it means "the queue was appended to
// at some point", never "the queue is non-empty now".
func (q *eventQueue) Wait() <-chan struct{} {
	return q.signal
}

// Done returns a channel closed by Close. Closure is only observable here;
// an empty queue with a pending stale signal is not closure.
func (q *eventQueue) Done() <-chan struct{} {
	return q.done
}

// Len returns the current queue length.
func (q *eventQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.events)
}

// Close marks the queue closed and wakes all waiters.
func (q *eventQueue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return
	}
	q.closed = true
	close(q.done)
}
