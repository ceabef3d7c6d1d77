package model

import "time"

// Event represents a campus event with a fixed seat capacity.  Events are
// created and maintained by staff through the catalog endpoints; the
// admission engine treats them as read-only and only ever consults the
// capacity and identity fields.
//
// Fields:
//  ID          – primary key identifier.
//  Title       – event title shown to students.
//  Description – free-form description.
//  Location    – human-readable venue reference.
//  Capacity    – maximum number of active registrations.
//  StartsAt    – when the event begins (nullable; may be set later).
//  EndsAt      – when the event ends (nullable; may be set later).
//  CreatedBy   – staff user who created the event.
//  CreatedAt   – creation timestamp.
//  UpdatedAt   – last update timestamp.
type Event struct {
	ID          uint64     // events.id
	Title       string     // events.title
	Description string     // events.description
	Location    string     // events.location
	Capacity    uint32     // events.capacity
	StartsAt    *time.Time // events.starts_at (nullable)
	EndsAt      *time.Time // events.ends_at (nullable)
	CreatedBy   uint64     // events.created_by
	CreatedAt   time.Time  // events.created_at
	UpdatedAt   time.Time  // events.updated_at
}
