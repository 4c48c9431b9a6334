package notify

import "sync"

// Snapshots holds the latest rendered widget markup and publishes every
// replacement to subscribers.
type Snapshots struct {
	mu     sync.RWMutex
	latest string
	hub    *hub[string]
}

// NewSnapshots returns an empty snapshot holder.
func NewSnapshots() *Snapshots {
	return &Snapshots{hub: newHub[string]()}
}

// Set replaces the latest markup and notifies subscribers.
func (s *Snapshots) Set(markup string) {
	s.mu.Lock()
	s.latest = markup
	s.mu.Unlock()

	s.hub.publish(markup)
}

// Latest returns the most recent markup, or "" if none was set.
func (s *Snapshots) Latest() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.latest
}

// Subscribe returns a channel receiving every new markup.
// Caller must call Unsubscribe when done.
func (s *Snapshots) Subscribe() <-chan string {
	return s.hub.subscribe()
}

// Unsubscribe removes a subscription and closes its channel.
func (s *Snapshots) Unsubscribe(ch <-chan string) {
	s.hub.unsubscribe(ch)
}
