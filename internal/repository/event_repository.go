package repository

import (
	"context"
	"database/sql"
	"strings"
	"time"
)

// EventRepo provides CRUD operations for the event catalog.  The
// admission engine reads events through the integrity Store; this
// repository backs the browse and staff catalog endpoints.
type EventRepo struct {
	db *sql.DB
}

// NewEventRepo returns a new EventRepo bound to the given database.
func NewEventRepo(db *sql.DB) *EventRepo { return &EventRepo{db: db} }

// EventRecord mirrors the schema of the events table.  It is used by the
// repository when constructing or scanning rows; business logic should
// use the model.Event type instead.
type EventRecord struct {
	ID          uint64
	Title       string
	Description string
	Location    string
	Capacity    uint32
	StartsAt    *time.Time
	EndsAt      *time.Time
	CreatedBy   uint64
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Create inserts a new event and populates the generated ID on the
// provided record.
func (r *EventRepo) Create(ctx context.Context, ev *EventRecord) error {
	const q = `INSERT INTO events (title, description, location, capacity, starts_at, ends_at, created_by)
	           VALUES (?, ?, ?, ?, ?, ?, ?)`
	res, err := r.db.ExecContext(ctx, q,
		ev.Title, ev.Description, ev.Location, ev.Capacity,
		nullDBTime(ev.StartsAt), nullDBTime(ev.EndsAt), ev.CreatedBy)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	ev.ID = uint64(id)
	const sel = `SELECT created_at, updated_at FROM events WHERE id = ?`
	return r.db.QueryRowContext(ctx, sel, ev.ID).Scan(&ev.CreatedAt, &ev.UpdatedAt)
}

// UpdateWindow sets the start/end times of an event owned by the staff
// member.  Either bound may be nil to clear it.  Returns ErrEventNotFound
// when the event does not exist and ErrForbidden when the staff member
// does not own it.
func (r *EventRepo) UpdateWindow(ctx context.Context, eventID, staffID uint64, startsAt, endsAt *time.Time) error {
	var createdBy uint64
	err := r.db.QueryRowContext(ctx, `SELECT created_by FROM events WHERE id = ?`, eventID).Scan(&createdBy)
	if err == sql.ErrNoRows {
		return ErrEventNotFound
	}
	if err != nil {
		return err
	}
	if createdBy != staffID {
		return ErrForbidden
	}
	_, err = r.db.ExecContext(ctx,
		`UPDATE events SET starts_at = ?, ends_at = ? WHERE id = ?`,
		nullDBTime(startsAt), nullDBTime(endsAt), eventID)
	return err
}

// EventSummary is the browse view of an event: catalog fields plus the
// derived seat availability.  Registered counts active registrations;
// the capacity count is always computed from the registrations table,
// never cached as standalone state.
type EventSummary struct {
	ID         uint64  `json:"id"`
	Title      string  `json:"title"`
	Location   string  `json:"location"`
	Capacity   uint32  `json:"capacity"`
	Registered uint32  `json:"registered"`
	Waitlisted uint32  `json:"waitlisted"`
	StartTime  *string `json:"start_time"`
	EndTime    *string `json:"end_time"`
}

// List returns all events with their current registration and waitlist
// counts, ordered by start time with unscheduled events last.
func (r *EventRepo) List(ctx context.Context) ([]EventSummary, error) {
	const q = `SELECT e.id, e.title, e.location, e.capacity,
	                  (SELECT COUNT(*) FROM registrations g
	                    WHERE g.event_id = e.id AND g.status IN ('REGISTERED','CHECKED_IN')),
	                  (SELECT COUNT(*) FROM waitlist_entries w WHERE w.event_id = e.id),
	                  e.starts_at, e.ends_at
	           FROM events e
	           ORDER BY e.starts_at IS NULL, e.starts_at, e.id`
	rows, err := r.db.QueryContext(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	summaries := make([]EventSummary, 0)
	for rows.Next() {
		var s EventSummary
		var startsAt, endsAt sql.NullTime
		if err := rows.Scan(&s.ID, &s.Title, &s.Location, &s.Capacity,
			&s.Registered, &s.Waitlisted, &startsAt, &endsAt); err != nil {
			return nil, err
		}
		s.StartTime = isoTime(startsAt)
		s.EndTime = isoTime(endsAt)
		summaries = append(summaries, s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return summaries, nil
}

// GetSummary returns the browse view of a single event, or
// ErrEventNotFound.
func (r *EventRepo) GetSummary(ctx context.Context, eventID uint64) (EventSummary, error) {
	const q = `SELECT e.id, e.title, e.location, e.capacity,
	                  (SELECT COUNT(*) FROM registrations g
	                    WHERE g.event_id = e.id AND g.status IN ('REGISTERED','CHECKED_IN')),
	                  (SELECT COUNT(*) FROM waitlist_entries w WHERE w.event_id = e.id),
	                  e.starts_at, e.ends_at
	           FROM events e WHERE e.id = ?`
	var s EventSummary
	var startsAt, endsAt sql.NullTime
	err := r.db.QueryRowContext(ctx, q, eventID).Scan(&s.ID, &s.Title, &s.Location, &s.Capacity,
		&s.Registered, &s.Waitlisted, &startsAt, &endsAt)
	if err == sql.ErrNoRows {
		return EventSummary{}, ErrEventNotFound
	}
	if err != nil {
		return EventSummary{}, err
	}
	s.StartTime = isoTime(startsAt)
	s.EndTime = isoTime(endsAt)
	return s, nil
}

// nullDBTime formats an optional time for a nullable DATETIME column.
func nullDBTime(t *time.Time) interface{} {
	if t == nil {
		return nil
	}
	return t.UTC().Format("2006-01-02 15:04:05")
}

// isoTime converts a nullable DB timestamp to RFC3339 in UTC, skipping
// zero values.
func isoTime(t sql.NullTime) *string {
	if !t.Valid || t.Time.IsZero() {
		return nil
	}
	iso := t.Time.UTC().Format(time.RFC3339)
	if strings.HasPrefix(iso, "0001-01-01") {
		return nil
	}
	return &iso
}
