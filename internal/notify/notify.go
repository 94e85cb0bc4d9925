// Package notify provides the single-slot, user-facing notification channel.
//
// A pushed event immediately supersedes the visible one; no backlog is kept.
// Events expire after a fixed duration unless dismissed sooner. Severity is
// advisory and never changes timing.
package notify

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// DefaultDuration is how long an event stays visible without a dismissal.
const DefaultDuration = 6 * time.Second

// Severity classifies an event for display.
type Severity int

const (
	SeverityInfo Severity = iota
	SeveritySuccess
	SeverityWarning
	SeverityError
)

func (s Severity) String() string {
	switch s {
	case SeveritySuccess:
		return "success"
	case SeverityWarning:
		return "warning"
	case SeverityError:
		return "error"
	default:
		return "info"
	}
}

// Event is one notification.
type Event struct {
	ID        string
	Message   string
	Severity  Severity
	CreatedAt time.Time
}

// Channel holds at most one visible event and feeds a capacity-one stream
// with overwrite-on-push semantics.
type Channel struct {
	mu      sync.Mutex
	ttl     time.Duration
	now     func() time.Time
	current Event
	visible bool
	events  chan Event
}

// New creates a channel whose events expire after ttl (DefaultDuration if ttl <= 0).
func New(ttl time.Duration) *Channel {
	if ttl <= 0 {
		ttl = DefaultDuration
	}
	return &Channel{
		ttl:    ttl,
		now:    time.Now,
		events: make(chan Event, 1),
	}
}

// TTL returns the auto-dismiss interval.
func (c *Channel) TTL() time.Duration { return c.ttl }

// Push makes a new event visible, replacing any current one.
func (c *Channel) Push(sev Severity, message string) Event {
	c.mu.Lock()
	defer c.mu.Unlock()

	ev := Event{
		ID:        uuid.NewString(),
		Message:   message,
		Severity:  sev,
		CreatedAt: c.now(),
	}
	c.current = ev
	c.visible = true

	// Only Push sends, and always under mu, so after the drain the send cannot block.
	select {
	case <-c.events:
	default:
	}
	c.events <- ev
	return ev
}

// Events streams pushed events. An unread event is overwritten by the next push.
func (c *Channel) Events() <-chan Event { return c.events }

// Visible returns the current event if it has been neither dismissed nor expired.
func (c *Channel) Visible() (Event, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.visible {
		return Event{}, false
	}
	if c.now().Sub(c.current.CreatedAt) >= c.ttl {
		c.visible = false
		return Event{}, false
	}
	return c.current, true
}

// Dismiss hides the event with the given ID. It reports false when that event
// is no longer the visible one, so a late timer cannot hide a newer event.
func (c *Channel) Dismiss(id string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.visible || c.current.ID != id {
		return false
	}
	c.visible = false
	return true
}

// DismissCurrent hides whatever is visible.
func (c *Channel) DismissCurrent() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	was := c.visible
	c.visible = false
	return was
}
