// Package engine implements the admission and attendance integrity core:
// capacity-safe event registration, strict FIFO waitlist promotion and
// geofence-validated attendance recording.  The engine owns no SQL; it
// drives a Store implementation which supplies per-event mutual exclusion
// and unique-key enforcement.  HTTP routing, authentication and
// notification delivery live outside this package.
package engine

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"time"

	"github.com/iliyamo/campus-event-attendance/internal/model"
)

// Sentinel errors the Store contract is expressed in.  Implementations
// translate their native failures (sql.ErrNoRows, MySQL error 1062) into
// these values so the engine can resolve races into business outcomes.
var (
	// ErrNotFound indicates a referenced event, session or row is absent.
	ErrNotFound = errors.New("not found")
	// ErrDuplicate indicates an insert broke a unique-key invariant.
	ErrDuplicate = errors.New("duplicate entry")
	// ErrInvalidCoordinates indicates out-of-range check-in coordinates.
	ErrInvalidCoordinates = errors.New("invalid coordinates")
)

// Store is the transactional integrity store the engine runs on.  Methods
// outside WithEventLock are single atomic statements; multi-step mutations
// that touch an event's capacity or waitlist happen inside WithEventLock.
type Store interface {
	// WithEventLock runs fn inside a transaction holding an exclusive
	// lock on the event's row.  The transaction commits when fn returns
	// nil and rolls back on every other exit path.  It returns
	// ErrNotFound when the event does not exist.
	WithEventLock(ctx context.Context, eventID uint64, fn func(tx Tx) error) error

	GetEvent(ctx context.Context, eventID uint64) (model.Event, error)
	GetSession(ctx context.Context, sessionID uint64) (model.AttendanceSession, error)

	// CancelRegistration transitions the pair's active registration to
	// CANCELLED.  It returns true when a seat was actually freed, false
	// when the registration was already cancelled, and ErrNotFound when
	// no registration exists for the pair.
	CancelRegistration(ctx context.Context, eventID, userID uint64) (bool, error)

	FindRegistrationByToken(ctx context.Context, token string) (model.Registration, error)

	// MarkCheckedIn transitions a REGISTERED registration to CHECKED_IN.
	// It returns false without error when the row was not in the
	// REGISTERED state (a concurrent redeem won).
	MarkCheckedIn(ctx context.Context, registrationID uint64, at time.Time) (bool, error)

	// InsertAttendanceRecord persists a check-in.  ErrDuplicate signals
	// the (session, student) pair already checked in.
	InsertAttendanceRecord(ctx context.Context, rec *model.AttendanceRecord) error
}

// Tx exposes the operations valid only while the event lock is held.
type Tx interface {
	CountActiveRegistrations(ctx context.Context, eventID uint64) (uint32, error)
	ActiveRegistrationExists(ctx context.Context, eventID, userID uint64) (bool, error)
	InsertRegistration(ctx context.Context, reg *model.Registration) error
	WaitlistEntryExists(ctx context.Context, eventID, userID uint64) (bool, error)
	InsertWaitlistEntry(ctx context.Context, entry *model.WaitlistEntry) error
	// WaitlistPosition returns the 1-based FIFO rank of the user's entry.
	WaitlistPosition(ctx context.Context, eventID, userID uint64) (int, error)
	// EarliestWaitlistEntry returns the head of the event's queue ordered
	// by (requested_at, id); ErrNotFound when the queue is empty.
	EarliestWaitlistEntry(ctx context.Context, eventID uint64) (model.WaitlistEntry, error)
	DeleteWaitlistEntry(ctx context.Context, entryID uint64) error
	// DeleteWaitlistEntryByUser removes the pair's entry and reports
	// whether one existed.
	DeleteWaitlistEntryByUser(ctx context.Context, eventID, userID uint64) (bool, error)
}

// Notifier receives fire-and-forget notices after state changes commit.
// Implementations must never block the caller for long and must swallow
// delivery failures; a lost notification never rolls back state.
type Notifier interface {
	RegistrationAdmitted(ctx context.Context, n AdmissionNotice)
	WaitlistPromoted(ctx context.Context, n PromotionNotice)
	AttendanceFlagged(ctx context.Context, n FlagNotice)
}

// AdmissionNotice describes a registration that was admitted directly.
type AdmissionNotice struct {
	EventID    uint64
	UserID     uint64
	AdmittedAt time.Time
}

// PromotionNotice describes a waitlist entry promoted into a seat.
type PromotionNotice struct {
	EventID    uint64
	UserID     uint64
	PromotedAt time.Time
}

// FlagNotice describes a check-in that fell outside the geofence.
type FlagNotice struct {
	SessionID   uint64
	EventID     uint64
	StudentID   uint64
	DistanceM   *float64
	Reason      string
	CheckedInAt time.Time
}

// Engine wires the store and notifier together with injectable clock and
// token generation seams so tests can run deterministically.
type Engine struct {
	store    Store
	notifier Notifier
	clock    func() time.Time
	newToken func() (string, error)
}

// Option customizes an Engine, mainly for tests.
type Option func(*Engine)

// WithClock replaces the wall clock.
func WithClock(clock func() time.Time) Option {
	return func(e *Engine) { e.clock = clock }
}

// WithTokenGenerator replaces the check-in token generator.
func WithTokenGenerator(gen func() (string, error)) Option {
	return func(e *Engine) { e.newToken = gen }
}

// New constructs an Engine.  The notifier may be nil, in which case no
// notices are emitted.
func New(store Store, notifier Notifier, opts ...Option) *Engine {
	e := &Engine{
		store:    store,
		notifier: notifier,
		clock:    func() time.Time { return time.Now().UTC() },
		newToken: func() (string, error) { return randomToken(32) },
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// randomToken generates a random hexadecimal string of n*2 characters
// using crypto/rand.  Check-in tokens use 32 bytes, giving a 64 character
// hex string.
func randomToken(n int) (string, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
