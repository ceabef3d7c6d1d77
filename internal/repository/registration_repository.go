package repository

import (
	"context"
	"database/sql"
)

// RegistrationRepo backs the read-side registration endpoints.  All
// writes to the registrations table go through the integrity Store so
// they run under the event lock.
type RegistrationRepo struct {
	db *sql.DB
}

// NewRegistrationRepo returns a new RegistrationRepo bound to the given
// database.
func NewRegistrationRepo(db *sql.DB) *RegistrationRepo { return &RegistrationRepo{db: db} }

// RegistrationDetail is the student-facing view of one registration
// joined with its event.
type RegistrationDetail struct {
	ID           uint64  `json:"id"`
	EventID      uint64  `json:"event_id"`
	EventTitle   string  `json:"event_title"`
	Location     string  `json:"location"`
	Status       string  `json:"status"`
	CheckinToken string  `json:"checkin_token,omitempty"`
	StartTime    *string `json:"start_time"`
	EndTime      *string `json:"end_time"`
	CheckedInAt  *string `json:"checked_in_at,omitempty"`
}

// ListByUser returns all registrations for the given user with event
// details, newest first.  The check-in token is included only while the
// registration is active; a cancelled registration's token is dead.
func (r *RegistrationRepo) ListByUser(ctx context.Context, userID uint64) ([]RegistrationDetail, error) {
	const q = `SELECT g.id, g.event_id, e.title, e.location, g.status, g.checkin_token,
	                  e.starts_at, e.ends_at, g.checked_in_at
	           FROM registrations g
	           JOIN events e ON e.id = g.event_id
	           WHERE g.user_id = ?
	           ORDER BY g.created_at DESC, g.id DESC`
	rows, err := r.db.QueryContext(ctx, q, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	details := make([]RegistrationDetail, 0)
	for rows.Next() {
		var d RegistrationDetail
		var token string
		var startsAt, endsAt, checkedInAt sql.NullTime
		if err := rows.Scan(&d.ID, &d.EventID, &d.EventTitle, &d.Location, &d.Status,
			&token, &startsAt, &endsAt, &checkedInAt); err != nil {
			return nil, err
		}
		if d.Status != "CANCELLED" {
			d.CheckinToken = token
		}
		d.StartTime = isoTime(startsAt)
		d.EndTime = isoTime(endsAt)
		d.CheckedInAt = isoTime(checkedInAt)
		details = append(details, d)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return details, nil
}

// RosterEntry is the staff-facing view of one registration for an event.
type RosterEntry struct {
	UserID      uint64  `json:"user_id"`
	Email       string  `json:"email"`
	Status      string  `json:"status"`
	CheckedInAt *string `json:"checked_in_at,omitempty"`
}

// ListByEventForStaff returns the roster of active registrations for an
// event owned by the staff member, checked-in students first.  It
// returns ErrEventNotFound when the event does not exist and
// ErrForbidden when another staff member owns it.
func (r *RegistrationRepo) ListByEventForStaff(ctx context.Context, eventID, staffID uint64) ([]RosterEntry, error) {
	var createdBy uint64
	err := r.db.QueryRowContext(ctx, `SELECT created_by FROM events WHERE id = ?`, eventID).Scan(&createdBy)
	if err == sql.ErrNoRows {
		return nil, ErrEventNotFound
	}
	if err != nil {
		return nil, err
	}
	if createdBy != staffID {
		return nil, ErrForbidden
	}
	const q = `SELECT g.user_id, u.email, g.status, g.checked_in_at
	           FROM registrations g
	           JOIN users u ON u.id = g.user_id
	           WHERE g.event_id = ? AND g.status IN ('REGISTERED','CHECKED_IN')
	           ORDER BY g.status = 'CHECKED_IN' DESC, g.created_at, g.id`
	rows, err := r.db.QueryContext(ctx, q, eventID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	roster := make([]RosterEntry, 0)
	for rows.Next() {
		var e RosterEntry
		var checkedInAt sql.NullTime
		if err := rows.Scan(&e.UserID, &e.Email, &e.Status, &checkedInAt); err != nil {
			return nil, err
		}
		e.CheckedInAt = isoTime(checkedInAt)
		roster = append(roster, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return roster, nil
}
