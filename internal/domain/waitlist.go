package domain

import "time"

// WaitlistStatus represents the lifecycle state of a waitlist entry
type WaitlistStatus string

const (
	WaitlistStatusWaiting   WaitlistStatus = "waiting"
	WaitlistStatusNotified  WaitlistStatus = "notified"
	WaitlistStatusConverted WaitlistStatus = "converted"
	WaitlistStatusExpired   WaitlistStatus = "expired"
)

// String returns the string representation of the status
func (s WaitlistStatus) String() string {
	return string(s)
}

// IsValid checks if the status is a known waitlist state
func (s WaitlistStatus) IsValid() bool {
	switch s {
	case WaitlistStatusWaiting, WaitlistStatusNotified, WaitlistStatusConverted, WaitlistStatusExpired:
		return true
	}
	return false
}

// IsLive reports whether the status counts toward queue ordering.
// Converted and expired entries keep their historical position but are
// excluded from the live sequence.
func (s WaitlistStatus) IsLive() bool {
	return s == WaitlistStatusWaiting || s == WaitlistStatusNotified
}

// IsTerminal reports whether the status admits no further transitions
func (s WaitlistStatus) IsTerminal() bool {
	return s == WaitlistStatusConverted || s == WaitlistStatusExpired
}

// CanTransitionTo validates a status change against the entry state machine:
// waiting -> notified | converted | expired, notified -> converted | expired.
func (s WaitlistStatus) CanTransitionTo(target WaitlistStatus) bool {
	switch s {
	case WaitlistStatusWaiting:
		return target == WaitlistStatusNotified || target == WaitlistStatusConverted || target == WaitlistStatusExpired
	case WaitlistStatusNotified:
		return target == WaitlistStatusConverted || target == WaitlistStatusExpired
	}
	return false
}

// WaitlistEntry is one registrant's place in an event's queue.
// Live entries hold positions that form a dense ascending sequence
// starting at 1 within their event.
type WaitlistEntry struct {
	ID         string         `json:"id"`
	EventID    string         `json:"event_id"`
	Registrant Registrant     `json:"registrant"`
	Position   int            `json:"position"`
	JoinedAt   time.Time      `json:"joined_at"`
	NotifiedAt *time.Time     `json:"notified_at,omitempty"`
	Status     WaitlistStatus `json:"status"`
}

// IsLive reports whether the entry still occupies a queue slot
func (e *WaitlistEntry) IsLive() bool {
	return e.Status.IsLive()
}

// NotificationOverdue reports whether a notified entry has gone unanswered
// longer than the given response window
func (e *WaitlistEntry) NotificationOverdue(window time.Duration, now time.Time) bool {
	if e.Status != WaitlistStatusNotified || e.NotifiedAt == nil {
		return false
	}
	return now.Sub(*e.NotifiedAt) > window
}

// Validate validates the entry's identity fields
func (e *WaitlistEntry) Validate() error {
	if e.EventID == "" {
		return ErrInvalidEventID
	}
	return e.Registrant.Validate()
}
