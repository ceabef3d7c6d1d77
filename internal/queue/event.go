// Package queue defines message payloads exchanged over the message broker.
package queue

// Queue names used by the notification dispatcher.
const (
	RegistrationAdmittedQueue = "registration.admitted"
	WaitlistPromotedQueue     = "waitlist.promoted"
	AttendanceFlaggedQueue    = "attendance.flagged"
)

// RegistrationAdmittedEvent is published when a registration claims a
// seat directly.  It carries enough information for downstream consumers
// to notify the student without querying the primary database.
type RegistrationAdmittedEvent struct {
	EventID    uint64 `json:"event_id"`
	UserID     uint64 `json:"user_id"`
	AdmittedAt string `json:"admitted_at"`
}

// WaitlistPromotedEvent is published when a waitlisted user is promoted
// into a freed seat.
type WaitlistPromotedEvent struct {
	EventID    uint64 `json:"event_id"`
	UserID     uint64 `json:"user_id"`
	PromotedAt string `json:"promoted_at"`
}

// AttendanceFlaggedEvent is published when a check-in lands outside the
// session geofence or reports no location, so staff can review it.
type AttendanceFlaggedEvent struct {
	SessionID   uint64   `json:"session_id"`
	EventID     uint64   `json:"event_id"`
	StudentID   uint64   `json:"student_id"`
	DistanceM   *float64 `json:"distance_m,omitempty"`
	Reason      string   `json:"reason"`
	CheckedInAt string   `json:"checked_in_at"`
}
