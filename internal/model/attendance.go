package model

import "time"

// AttendanceSession defines a physical check-in window for an event: a
// geofence (center plus radius in meters) and a time window.  Students
// check in against a session, not against the event directly, so a single
// event may run several sessions (e.g. one per day of a workshop).
//
// Fields:
//  ID        – primary key identifier.
//  EventID   – event this session belongs to.
//  Title     – label shown to staff ("Day 1 morning").
//  CenterLat – geofence center latitude in degrees.
//  CenterLng – geofence center longitude in degrees.
//  RadiusM   – allowed distance from center in meters.
//  StartsAt  – window open time (nullable).
//  EndsAt    – window close time (nullable).
//  CreatedBy – staff user who created the session.
//  CreatedAt – creation timestamp.
type AttendanceSession struct {
	ID        uint64     // attendance_sessions.id
	EventID   uint64     // attendance_sessions.event_id
	Title     string     // attendance_sessions.title
	CenterLat float64    // attendance_sessions.center_lat
	CenterLng float64    // attendance_sessions.center_lng
	RadiusM   uint32     // attendance_sessions.radius_m
	StartsAt  *time.Time // attendance_sessions.starts_at (nullable)
	EndsAt    *time.Time // attendance_sessions.ends_at (nullable)
	CreatedBy uint64     // attendance_sessions.created_by
	CreatedAt time.Time  // attendance_sessions.created_at
}

// ActiveAt reports whether the session accepts check-ins at the given
// instant.  Both window bounds must be set; a session with either bound
// missing is closed.
func (s AttendanceSession) ActiveAt(now time.Time) bool {
	if s.StartsAt == nil || s.EndsAt == nil {
		return false
	}
	return !now.Before(*s.StartsAt) && now.Before(*s.EndsAt)
}

// AttendanceRecord stores a single student check-in for a session together
// with the geofence evaluation computed at check-in time.  A record is
// written at most once per (session, student) and never mutated afterwards;
// administrative overrides happen outside this engine.
//
// Fields:
//  ID          – primary key identifier.
//  SessionID   – session checked into.
//  StudentID   – student who checked in.
//  CheckedInAt – check-in timestamp.
//  Latitude    – reported latitude (nullable; device may not report).
//  Longitude   – reported longitude (nullable).
//  DistanceM   – computed distance from the geofence center (nullable).
//  Flagged     – true when the check-in needs manual review.
//  FlagReason  – human-readable reason when flagged (nullable).
//  CreatedAt   – creation timestamp.
type AttendanceRecord struct {
	ID          uint64    // attendance_records.id
	SessionID   uint64    // attendance_records.session_id
	StudentID   uint64    // attendance_records.student_id
	CheckedInAt time.Time // attendance_records.checked_in_at
	Latitude    *float64  // attendance_records.latitude (nullable)
	Longitude   *float64  // attendance_records.longitude (nullable)
	DistanceM   *float64  // attendance_records.distance_m (nullable)
	Flagged     bool      // attendance_records.is_flagged
	FlagReason  *string   // attendance_records.flag_reason (nullable)
	CreatedAt   time.Time // attendance_records.created_at
}
