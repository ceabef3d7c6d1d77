package repository

import (
	"context"
	"database/sql"
	"time"
)

// AttendanceRepo manages attendance sessions and the staff read side of
// attendance records.  Record inserts go through the integrity Store so
// the one-record-per-(session, student) invariant is enforced in one
// place.
type AttendanceRepo struct {
	db *sql.DB
}

// NewAttendanceRepo returns a new AttendanceRepo bound to the given
// database.
func NewAttendanceRepo(db *sql.DB) *AttendanceRepo { return &AttendanceRepo{db: db} }

// SessionRecord mirrors the attendance_sessions table.
type SessionRecord struct {
	ID        uint64
	EventID   uint64
	Title     string
	CenterLat float64
	CenterLng float64
	RadiusM   uint32
	StartsAt  *time.Time
	EndsAt    *time.Time
	CreatedBy uint64
	CreatedAt time.Time
}

// CreateSession inserts a new attendance session for an event owned by
// the staff member.  It returns ErrEventNotFound when the event does not
// exist and ErrForbidden when another staff member owns it.
func (r *AttendanceRepo) CreateSession(ctx context.Context, s *SessionRecord) error {
	var createdBy uint64
	err := r.db.QueryRowContext(ctx, `SELECT created_by FROM events WHERE id = ?`, s.EventID).Scan(&createdBy)
	if err == sql.ErrNoRows {
		return ErrEventNotFound
	}
	if err != nil {
		return err
	}
	if createdBy != s.CreatedBy {
		return ErrForbidden
	}
	const q = `INSERT INTO attendance_sessions
	           (event_id, title, center_lat, center_lng, radius_m, starts_at, ends_at, created_by)
	           VALUES (?, ?, ?, ?, ?, ?, ?, ?)`
	res, err := r.db.ExecContext(ctx, q,
		s.EventID, s.Title, s.CenterLat, s.CenterLng, s.RadiusM,
		nullDBTime(s.StartsAt), nullDBTime(s.EndsAt), s.CreatedBy)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	s.ID = uint64(id)
	return nil
}

// RecordDetail is the staff view of one attendance record.
type RecordDetail struct {
	StudentID   uint64   `json:"student_id"`
	Email       string   `json:"email"`
	CheckedInAt string   `json:"checked_in_at"`
	DistanceM   *float64 `json:"distance_m"`
	Flagged     bool     `json:"flagged"`
	FlagReason  *string  `json:"flag_reason,omitempty"`
}

// ListRecordsForStaff returns the attendance records of a session whose
// event the staff member owns, flagged records first so reviewers see
// them immediately.  It returns ErrSessionNotFound when the session does
// not exist and ErrForbidden for sessions on another staff member's
// event.
func (r *AttendanceRepo) ListRecordsForStaff(ctx context.Context, sessionID, staffID uint64) ([]RecordDetail, error) {
	const checkQ = `SELECT e.created_by
	                FROM attendance_sessions s
	                JOIN events e ON e.id = s.event_id
	                WHERE s.id = ?`
	var createdBy uint64
	err := r.db.QueryRowContext(ctx, checkQ, sessionID).Scan(&createdBy)
	if err == sql.ErrNoRows {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, err
	}
	if createdBy != staffID {
		return nil, ErrForbidden
	}
	const q = `SELECT a.student_id, u.email, a.checked_in_at, a.distance_m, a.is_flagged, a.flag_reason
	           FROM attendance_records a
	           JOIN users u ON u.id = a.student_id
	           WHERE a.session_id = ?
	           ORDER BY a.is_flagged DESC, a.checked_in_at, a.id`
	rows, err := r.db.QueryContext(ctx, q, sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	records := make([]RecordDetail, 0)
	for rows.Next() {
		var d RecordDetail
		var checkedInAt time.Time
		var distance sql.NullFloat64
		var reason sql.NullString
		if err := rows.Scan(&d.StudentID, &d.Email, &checkedInAt, &distance, &d.Flagged, &reason); err != nil {
			return nil, err
		}
		d.CheckedInAt = checkedInAt.UTC().Format(time.RFC3339)
		if distance.Valid {
			v := distance.Float64
			d.DistanceM = &v
		}
		if reason.Valid {
			v := reason.String
			d.FlagReason = &v
		}
		records = append(records, d)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return records, nil
}
