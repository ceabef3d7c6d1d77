package model

import "time"

// Registration status values.  A registration is "active" while it is
// REGISTERED or CHECKED_IN; only active registrations count against an
// event's capacity.  Cancellation is a status transition, never a row
// deletion, so the registration history survives for auditing.
const (
	RegistrationStatusRegistered = "REGISTERED"
	RegistrationStatusCheckedIn  = "CHECKED_IN"
	RegistrationStatusCancelled  = "CANCELLED"
)

// Registration records a student's confirmed seat for an event.  Each
// admitted registration carries an opaque check-in token which staff
// redeem at the door to transition the status to CHECKED_IN.
//
// Fields:
//  ID           – primary key identifier.
//  EventID      – event being attended.
//  UserID       – student who registered.
//  Status       – REGISTERED, CHECKED_IN or CANCELLED.
//  CheckinToken – unique opaque token issued on admission.
//  CheckedInAt  – when the token was redeemed (nullable).
//  CreatedAt    – creation timestamp.
//  UpdatedAt    – last update timestamp.
type Registration struct {
	ID           uint64     // registrations.id
	EventID      uint64     // registrations.event_id
	UserID       uint64     // registrations.user_id
	Status       string     // registrations.status
	CheckinToken string     // registrations.checkin_token
	CheckedInAt  *time.Time // registrations.checked_in_at (nullable)
	CreatedAt    time.Time  // registrations.created_at
	UpdatedAt    time.Time  // registrations.updated_at
}

// Active reports whether the registration currently occupies a seat.
func (r Registration) Active() bool {
	return r.Status == RegistrationStatusRegistered || r.Status == RegistrationStatusCheckedIn
}
