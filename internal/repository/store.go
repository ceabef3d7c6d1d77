package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/iliyamo/campus-event-attendance/internal/engine"
	"github.com/iliyamo/campus-event-attendance/internal/model"
)

// Store implements engine.Store over MySQL.  Per-event mutual exclusion
// comes from SELECT ... FOR UPDATE on the events row: every capacity
// check, waitlist mutation and promotion for an event runs inside a
// transaction holding that row lock, so conflicting operations on the
// same event serialize while different events proceed in parallel.
type Store struct {
	db *sql.DB
}

// NewStore returns a Store bound to the given database.
func NewStore(db *sql.DB) *Store { return &Store{db: db} }

// DB exposes the underlying handle for wiring other repositories.
func (s *Store) DB() *sql.DB { return s.db }

// WithEventLock begins a transaction, locks the event's row and runs fn.
// The transaction commits only when fn returns nil; every other exit
// path rolls back, so fn's mutations are all-or-nothing.
func (s *Store) WithEventLock(ctx context.Context, eventID uint64, fn func(tx engine.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	var locked uint64
	err = tx.QueryRowContext(ctx, `SELECT id FROM events WHERE id = ? FOR UPDATE`, eventID).Scan(&locked)
	if err == sql.ErrNoRows {
		return engine.ErrNotFound
	}
	if err != nil {
		return err
	}

	if err := fn(&eventTx{tx: tx}); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	committed = true
	return nil
}

// GetEvent loads an event by ID.
func (s *Store) GetEvent(ctx context.Context, eventID uint64) (model.Event, error) {
	const q = `SELECT id, title, description, location, capacity, starts_at, ends_at, created_by, created_at, updated_at
	           FROM events WHERE id = ?`
	var ev model.Event
	var startsAt, endsAt sql.NullTime
	err := s.db.QueryRowContext(ctx, q, eventID).Scan(
		&ev.ID, &ev.Title, &ev.Description, &ev.Location, &ev.Capacity,
		&startsAt, &endsAt, &ev.CreatedBy, &ev.CreatedAt, &ev.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return model.Event{}, engine.ErrNotFound
	}
	if err != nil {
		return model.Event{}, err
	}
	if startsAt.Valid {
		t := startsAt.Time.UTC()
		ev.StartsAt = &t
	}
	if endsAt.Valid {
		t := endsAt.Time.UTC()
		ev.EndsAt = &t
	}
	return ev, nil
}

// GetSession loads an attendance session by ID.
func (s *Store) GetSession(ctx context.Context, sessionID uint64) (model.AttendanceSession, error) {
	const q = `SELECT id, event_id, title, center_lat, center_lng, radius_m, starts_at, ends_at, created_by, created_at
	           FROM attendance_sessions WHERE id = ?`
	var sess model.AttendanceSession
	var startsAt, endsAt sql.NullTime
	err := s.db.QueryRowContext(ctx, q, sessionID).Scan(
		&sess.ID, &sess.EventID, &sess.Title, &sess.CenterLat, &sess.CenterLng,
		&sess.RadiusM, &startsAt, &endsAt, &sess.CreatedBy, &sess.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return model.AttendanceSession{}, engine.ErrNotFound
	}
	if err != nil {
		return model.AttendanceSession{}, err
	}
	if startsAt.Valid {
		t := startsAt.Time.UTC()
		sess.StartsAt = &t
	}
	if endsAt.Valid {
		t := endsAt.Time.UTC()
		sess.EndsAt = &t
	}
	return sess, nil
}

// CancelRegistration transitions the pair's active registration to
// CANCELLED in a single atomic statement.  It returns true when a seat
// was freed, false when every registration for the pair was already
// cancelled, and engine.ErrNotFound when none exists.
func (s *Store) CancelRegistration(ctx context.Context, eventID, userID uint64) (bool, error) {
	res, err := s.db.ExecContext(ctx,
		`UPDATE registrations SET status = 'CANCELLED'
		 WHERE event_id = ? AND user_id = ? AND status IN ('REGISTERED','CHECKED_IN')`,
		eventID, userID)
	if err != nil {
		return false, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	if affected > 0 {
		return true, nil
	}
	var n int
	err = s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM registrations WHERE event_id = ? AND user_id = ?`,
		eventID, userID).Scan(&n)
	if err != nil {
		return false, err
	}
	if n == 0 {
		return false, engine.ErrNotFound
	}
	return false, nil
}

// FindRegistrationByToken loads the registration holding a check-in token.
func (s *Store) FindRegistrationByToken(ctx context.Context, token string) (model.Registration, error) {
	const q = `SELECT id, event_id, user_id, status, checkin_token, checked_in_at, created_at, updated_at
	           FROM registrations WHERE checkin_token = ?`
	var reg model.Registration
	var checkedInAt sql.NullTime
	err := s.db.QueryRowContext(ctx, q, token).Scan(
		&reg.ID, &reg.EventID, &reg.UserID, &reg.Status, &reg.CheckinToken,
		&checkedInAt, &reg.CreatedAt, &reg.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return model.Registration{}, engine.ErrNotFound
	}
	if err != nil {
		return model.Registration{}, err
	}
	if checkedInAt.Valid {
		t := checkedInAt.Time.UTC()
		reg.CheckedInAt = &t
	}
	return reg, nil
}

// MarkCheckedIn transitions a REGISTERED registration to CHECKED_IN.  The
// status guard in the WHERE clause makes concurrent redeems of the same
// token resolve to a single winner.
func (s *Store) MarkCheckedIn(ctx context.Context, registrationID uint64, at time.Time) (bool, error) {
	res, err := s.db.ExecContext(ctx,
		`UPDATE registrations SET status = 'CHECKED_IN', checked_in_at = ?
		 WHERE id = ? AND status = 'REGISTERED'`,
		at.UTC().Format("2006-01-02 15:04:05"), registrationID)
	if err != nil {
		return false, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}

// InsertAttendanceRecord persists a check-in.  The unique key on
// (session_id, student_id) turns a duplicate attempt into
// engine.ErrDuplicate without writing anything.
func (s *Store) InsertAttendanceRecord(ctx context.Context, rec *model.AttendanceRecord) error {
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO attendance_records
		 (session_id, student_id, checked_in_at, latitude, longitude, distance_m, is_flagged, flag_reason)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.SessionID, rec.StudentID, rec.CheckedInAt.UTC().Format("2006-01-02 15:04:05"),
		rec.Latitude, rec.Longitude, rec.DistanceM, rec.Flagged, rec.FlagReason,
	)
	if err != nil {
		if isDuplicateKey(err) {
			return engine.ErrDuplicate
		}
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	rec.ID = uint64(id)
	return nil
}

// WaitlistPosition returns the 1-based FIFO rank of the user's entry
// without taking the event lock.  It backs the read-only position
// endpoint; enqueue computes the position inside the locked transaction.
func (s *Store) WaitlistPosition(ctx context.Context, eventID, userID uint64) (int, error) {
	return waitlistPosition(ctx, s.db, eventID, userID)
}

// queryRower is satisfied by both *sql.DB and *sql.Tx.
type queryRower interface {
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

func waitlistPosition(ctx context.Context, q queryRower, eventID, userID uint64) (int, error) {
	var requestedAt time.Time
	var entryID uint64
	err := q.QueryRowContext(ctx,
		`SELECT id, requested_at FROM waitlist_entries WHERE event_id = ? AND user_id = ?`,
		eventID, userID).Scan(&entryID, &requestedAt)
	if err == sql.ErrNoRows {
		return 0, engine.ErrNotFound
	}
	if err != nil {
		return 0, err
	}
	var rank int
	err = q.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM waitlist_entries
		 WHERE event_id = ? AND (requested_at < ? OR (requested_at = ? AND id <= ?))`,
		eventID, requestedAt, requestedAt, entryID).Scan(&rank)
	if err != nil {
		return 0, err
	}
	return rank, nil
}

// eventTx implements engine.Tx against the transaction holding the event
// row lock.
type eventTx struct {
	tx *sql.Tx
}

func (t *eventTx) CountActiveRegistrations(ctx context.Context, eventID uint64) (uint32, error) {
	var n uint32
	err := t.tx.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM registrations
		 WHERE event_id = ? AND status IN ('REGISTERED','CHECKED_IN')`,
		eventID).Scan(&n)
	return n, err
}

func (t *eventTx) ActiveRegistrationExists(ctx context.Context, eventID, userID uint64) (bool, error) {
	var n int
	err := t.tx.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM registrations
		 WHERE event_id = ? AND user_id = ? AND status IN ('REGISTERED','CHECKED_IN')`,
		eventID, userID).Scan(&n)
	return n > 0, err
}

func (t *eventTx) InsertRegistration(ctx context.Context, reg *model.Registration) error {
	res, err := t.tx.ExecContext(ctx,
		`INSERT INTO registrations (event_id, user_id, status, checkin_token) VALUES (?, ?, ?, ?)`,
		reg.EventID, reg.UserID, reg.Status, reg.CheckinToken)
	if err != nil {
		if isDuplicateKey(err) {
			return engine.ErrDuplicate
		}
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	reg.ID = uint64(id)
	return nil
}

func (t *eventTx) WaitlistEntryExists(ctx context.Context, eventID, userID uint64) (bool, error) {
	var n int
	err := t.tx.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM waitlist_entries WHERE event_id = ? AND user_id = ?`,
		eventID, userID).Scan(&n)
	return n > 0, err
}

func (t *eventTx) InsertWaitlistEntry(ctx context.Context, entry *model.WaitlistEntry) error {
	res, err := t.tx.ExecContext(ctx,
		`INSERT INTO waitlist_entries (event_id, user_id, requested_at) VALUES (?, ?, ?)`,
		entry.EventID, entry.UserID, entry.RequestedAt.UTC().Format("2006-01-02 15:04:05"))
	if err != nil {
		if isDuplicateKey(err) {
			return engine.ErrDuplicate
		}
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	entry.ID = uint64(id)
	return nil
}

func (t *eventTx) WaitlistPosition(ctx context.Context, eventID, userID uint64) (int, error) {
	return waitlistPosition(ctx, t.tx, eventID, userID)
}

// EarliestWaitlistEntry selects the queue head by the explicit FIFO key
// (requested_at, id) rather than physical row order.
func (t *eventTx) EarliestWaitlistEntry(ctx context.Context, eventID uint64) (model.WaitlistEntry, error) {
	const q = `SELECT id, event_id, user_id, requested_at, created_at
	           FROM waitlist_entries WHERE event_id = ?
	           ORDER BY requested_at, id LIMIT 1`
	var entry model.WaitlistEntry
	err := t.tx.QueryRowContext(ctx, q, eventID).Scan(
		&entry.ID, &entry.EventID, &entry.UserID, &entry.RequestedAt, &entry.CreatedAt)
	if err == sql.ErrNoRows {
		return model.WaitlistEntry{}, engine.ErrNotFound
	}
	if err != nil {
		return model.WaitlistEntry{}, err
	}
	return entry, nil
}

func (t *eventTx) DeleteWaitlistEntry(ctx context.Context, entryID uint64) error {
	_, err := t.tx.ExecContext(ctx, `DELETE FROM waitlist_entries WHERE id = ?`, entryID)
	return err
}

func (t *eventTx) DeleteWaitlistEntryByUser(ctx context.Context, eventID, userID uint64) (bool, error) {
	res, err := t.tx.ExecContext(ctx,
		`DELETE FROM waitlist_entries WHERE event_id = ? AND user_id = ?`,
		eventID, userID)
	if err != nil {
		return false, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}
