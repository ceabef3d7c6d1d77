package model

import "time"

// WaitlistEntry queues a student for an event that was full at admission
// time.  Entries are ordered by RequestedAt with the auto-increment ID as
// a tie-breaker, which gives a strict total order even when two requests
// land within the same timestamp granularity.  Promotion and withdrawal
// delete the row outright; the waitlist keeps no history.
//
// Fields:
//  ID          – primary key identifier, doubles as the FIFO tie-breaker.
//  EventID     – event the student is queued for.
//  UserID      – queued student.
//  RequestedAt – when the admission attempt was made.
//  CreatedAt   – creation timestamp.
type WaitlistEntry struct {
	ID          uint64    // waitlist_entries.id
	EventID     uint64    // waitlist_entries.event_id
	UserID      uint64    // waitlist_entries.user_id
	RequestedAt time.Time // waitlist_entries.requested_at
	CreatedAt   time.Time // waitlist_entries.created_at
}
