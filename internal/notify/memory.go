package notify

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// defaultHistory is the number of notifications a MemoryFeed retains.
const defaultHistory = 50

// MemoryFeed is an in-memory implementation of [Feed].
//
// MemoryFeed retains the most recent notifications (50 by default) and
// publishes each new one to all subscribers. Subscribers receive updates via
// buffered channels (buffer size 100); a full buffer drops the update for
// that subscriber.
type MemoryFeed struct {
	mu     sync.RWMutex
	recent []Notification
	limit  int
	now    func() time.Time
	hub    *hub[Notification]
}

// NewMemoryFeed creates a feed retaining up to limit notifications. A limit
// of zero or less uses the default of 50.
func NewMemoryFeed(limit int) *MemoryFeed {
	if limit <= 0 {
		limit = defaultHistory
	}
	return &MemoryFeed{
		limit: limit,
		now:   time.Now,
		hub:   newHub[Notification](),
	}
}

// NotifySuccess publishes a success notification.
func (m *MemoryFeed) NotifySuccess(text string) {
	m.publish(LevelSuccess, text)
}

// NotifyError publishes an error notification.
func (m *MemoryFeed) NotifyError(text string) {
	m.publish(LevelError, text)
}

// Recent returns a snapshot of the retained notifications, oldest first.
func (m *MemoryFeed) Recent() []Notification {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]Notification, len(m.recent))
	copy(out, m.recent)
	return out
}

// Subscribe creates a new subscription.
//
// Caller must call [MemoryFeed.Unsubscribe] when done to prevent resource
// leaks.
func (m *MemoryFeed) Subscribe() <-chan Notification {
	return m.hub.subscribe()
}

// Unsubscribe removes a subscription and closes its channel. Safe to call
// multiple times or with an unknown channel.
func (m *MemoryFeed) Unsubscribe(ch <-chan Notification) {
	m.hub.unsubscribe(ch)
}

func (m *MemoryFeed) publish(level Level, text string) {
	n := Notification{
		ID:    uuid.NewString(),
		Level: level,
		Text:  text,
		At:    m.now(),
	}

	m.mu.Lock()
	m.recent = append(m.recent, n)
	if over := len(m.recent) - m.limit; over > 0 {
		m.recent = append([]Notification(nil), m.recent[over:]...)
	}
	m.mu.Unlock()

	m.hub.publish(n)
}
