// Package mode implements Component B: a background control loop that
// reconciles an iCal feed plus admin-configured overrides into a current
// ModeSnapshot, published via an atomic pointer swap so readers never see a
// partial value.
package mode

import "time"

// Mode is the binary operating state gating which intents/entities are
// permitted.
type Mode string

const (
	Owner Mode = "owner"
	Guest Mode = "guest"
)

// Event is a normalised calendar booking, all times in UTC.
type Event struct {
	UID      string
	Summary  string
	CheckIn  time.Time
	CheckOut time.Time
}

// ActiveEvent is the event responsible for the current guest window, if any.
type ActiveEvent struct {
	CheckIn   time.Time `json:"checkin"`
	CheckOut  time.Time `json:"checkout"`
	SourceUID string    `json:"source_uid"`
}

// Override is an admin-persisted manual mode override. The admin service
// owns storage for these; this package only reads and applies them.
type Override struct {
	Mode      Mode
	ActivatedAt time.Time
	ExpiresAt   *time.Time
	Source      string
	Priority    int
}

// Snapshot is the immutable, atomically publishable record every consumer
// reads. A consumer always observes a Snapshot whole, from before or after a
// given poll, never a partially updated one.
type Snapshot struct {
	Mode             Mode         `json:"mode"`
	ActiveEvent      *ActiveEvent `json:"active_event,omitempty"`
	ComputedAt       time.Time    `json:"computed_at"`
	SourceEventsHash string       `json:"source_events_hash"`
}

// Config is the admin-managed settings for this component (§4.B "Inputs").
type Config struct {
	Enabled            bool
	ICalURL            string
	PollInterval       time.Duration
	BufferBeforeCheckin time.Duration
	BufferAfterCheckout time.Duration
	OverrideTTL        time.Duration
}

// Policy is the projection of mode onto a specific intent.
type Policy struct {
	Allowed                  bool
	RateLimitPerMinute       int
	AllowedIntents           []string
	RestrictedEntityPatterns []string
	AllowedDeviceDomains     []string
}
