package engine

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/iliyamo/campus-event-attendance/internal/model"
)

// fakeStore is an in-memory Store used by the engine tests.  It enforces
// the same unique-key invariants as the MySQL schema and serializes
// WithEventLock callers per event, so concurrency properties can be
// exercised without a database.
type fakeStore struct {
	mu sync.Mutex

	events        map[uint64]model.Event
	sessions      map[uint64]model.AttendanceSession
	registrations []*model.Registration
	waitlist      []*model.WaitlistEntry
	attendance    []*model.AttendanceRecord
	nextID        uint64

	locks map[uint64]*sync.Mutex

	// failNextRegInserts forces InsertRegistration to report a
	// duplicate-key violation for the next n calls, simulating a lost
	// race against a concurrent admission.
	failNextRegInserts int
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		events:   map[uint64]model.Event{},
		sessions: map[uint64]model.AttendanceSession{},
		locks:    map[uint64]*sync.Mutex{},
	}
}

func (s *fakeStore) addEvent(ev model.Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events[ev.ID] = ev
	s.locks[ev.ID] = &sync.Mutex{}
}

func (s *fakeStore) addSession(sess model.AttendanceSession) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[sess.ID] = sess
}

func (s *fakeStore) id() uint64 {
	s.nextID++
	return s.nextID
}

func (s *fakeStore) activeCount(eventID uint64) uint32 {
	var n uint32
	for _, r := range s.registrations {
		if r.EventID == eventID && r.Active() {
			n++
		}
	}
	return n
}

func (s *fakeStore) WithEventLock(ctx context.Context, eventID uint64, fn func(tx Tx) error) error {
	s.mu.Lock()
	lock, ok := s.locks[eventID]
	s.mu.Unlock()
	if !ok {
		return ErrNotFound
	}
	lock.Lock()
	defer lock.Unlock()
	return fn(&fakeTx{s: s})
}

func (s *fakeStore) GetEvent(ctx context.Context, eventID uint64) (model.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ev, ok := s.events[eventID]
	if !ok {
		return model.Event{}, ErrNotFound
	}
	return ev, nil
}

func (s *fakeStore) GetSession(ctx context.Context, sessionID uint64) (model.AttendanceSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[sessionID]
	if !ok {
		return model.AttendanceSession{}, ErrNotFound
	}
	return sess, nil
}

func (s *fakeStore) CancelRegistration(ctx context.Context, eventID, userID uint64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	found := false
	for _, r := range s.registrations {
		if r.EventID != eventID || r.UserID != userID {
			continue
		}
		found = true
		if r.Active() {
			r.Status = model.RegistrationStatusCancelled
			return true, nil
		}
	}
	if !found {
		return false, ErrNotFound
	}
	return false, nil
}

func (s *fakeStore) FindRegistrationByToken(ctx context.Context, token string) (model.Registration, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range s.registrations {
		if r.CheckinToken == token {
			return *r, nil
		}
	}
	return model.Registration{}, ErrNotFound
}

func (s *fakeStore) MarkCheckedIn(ctx context.Context, registrationID uint64, at time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range s.registrations {
		if r.ID == registrationID && r.Status == model.RegistrationStatusRegistered {
			r.Status = model.RegistrationStatusCheckedIn
			t := at
			r.CheckedInAt = &t
			return true, nil
		}
	}
	return false, nil
}

func (s *fakeStore) InsertAttendanceRecord(ctx context.Context, rec *model.AttendanceRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range s.attendance {
		if r.SessionID == rec.SessionID && r.StudentID == rec.StudentID {
			return ErrDuplicate
		}
	}
	rec.ID = s.id()
	cp := *rec
	s.attendance = append(s.attendance, &cp)
	return nil
}

// fakeTx serves the operations valid under the event lock.
type fakeTx struct {
	s *fakeStore
}

func (t *fakeTx) CountActiveRegistrations(ctx context.Context, eventID uint64) (uint32, error) {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	return t.s.activeCount(eventID), nil
}

func (t *fakeTx) ActiveRegistrationExists(ctx context.Context, eventID, userID uint64) (bool, error) {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	for _, r := range t.s.registrations {
		if r.EventID == eventID && r.UserID == userID && r.Active() {
			return true, nil
		}
	}
	return false, nil
}

func (t *fakeTx) InsertRegistration(ctx context.Context, reg *model.Registration) error {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	if t.s.failNextRegInserts > 0 {
		t.s.failNextRegInserts--
		return ErrDuplicate
	}
	for _, r := range t.s.registrations {
		if r.EventID == reg.EventID && r.UserID == reg.UserID && r.Active() {
			return ErrDuplicate
		}
	}
	reg.ID = t.s.id()
	cp := *reg
	t.s.registrations = append(t.s.registrations, &cp)
	return nil
}

func (t *fakeTx) WaitlistEntryExists(ctx context.Context, eventID, userID uint64) (bool, error) {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	for _, w := range t.s.waitlist {
		if w.EventID == eventID && w.UserID == userID {
			return true, nil
		}
	}
	return false, nil
}

func (t *fakeTx) InsertWaitlistEntry(ctx context.Context, entry *model.WaitlistEntry) error {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	for _, w := range t.s.waitlist {
		if w.EventID == entry.EventID && w.UserID == entry.UserID {
			return ErrDuplicate
		}
	}
	entry.ID = t.s.id()
	cp := *entry
	t.s.waitlist = append(t.s.waitlist, &cp)
	return nil
}

func (t *fakeTx) WaitlistPosition(ctx context.Context, eventID, userID uint64) (int, error) {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	var me *model.WaitlistEntry
	for _, w := range t.s.waitlist {
		if w.EventID == eventID && w.UserID == userID {
			me = w
			break
		}
	}
	if me == nil {
		return 0, ErrNotFound
	}
	pos := 0
	for _, w := range t.s.waitlist {
		if w.EventID != eventID {
			continue
		}
		if before(w, me) || w.ID == me.ID {
			pos++
		}
	}
	return pos, nil
}

func (t *fakeTx) EarliestWaitlistEntry(ctx context.Context, eventID uint64) (model.WaitlistEntry, error) {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	var head *model.WaitlistEntry
	for _, w := range t.s.waitlist {
		if w.EventID != eventID {
			continue
		}
		if head == nil || before(w, head) {
			head = w
		}
	}
	if head == nil {
		return model.WaitlistEntry{}, ErrNotFound
	}
	return *head, nil
}

func (t *fakeTx) DeleteWaitlistEntry(ctx context.Context, entryID uint64) error {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	for i, w := range t.s.waitlist {
		if w.ID == entryID {
			t.s.waitlist = append(t.s.waitlist[:i], t.s.waitlist[i+1:]...)
			return nil
		}
	}
	return ErrNotFound
}

func (t *fakeTx) DeleteWaitlistEntryByUser(ctx context.Context, eventID, userID uint64) (bool, error) {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	for i, w := range t.s.waitlist {
		if w.EventID == eventID && w.UserID == userID {
			t.s.waitlist = append(t.s.waitlist[:i], t.s.waitlist[i+1:]...)
			return true, nil
		}
	}
	return false, nil
}

// before orders entries by (requested_at, id), the FIFO order.
func before(a, b *model.WaitlistEntry) bool {
	if !a.RequestedAt.Equal(b.RequestedAt) {
		return a.RequestedAt.Before(b.RequestedAt)
	}
	return a.ID < b.ID
}

// fakeNotifier records every notice it receives.
type fakeNotifier struct {
	mu         sync.Mutex
	admissions []AdmissionNotice
	promotions []PromotionNotice
	flags      []FlagNotice
}

func (n *fakeNotifier) RegistrationAdmitted(ctx context.Context, notice AdmissionNotice) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.admissions = append(n.admissions, notice)
}

func (n *fakeNotifier) WaitlistPromoted(ctx context.Context, notice PromotionNotice) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.promotions = append(n.promotions, notice)
}

func (n *fakeNotifier) AttendanceFlagged(ctx context.Context, notice FlagNotice) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.flags = append(n.flags, notice)
}

// fakeClock hands out strictly increasing timestamps so waitlist entries
// created in sequence get distinct request times.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(time.Second)
	return c.now
}

// newTestEngine builds an engine over the fake store with a deterministic
// token sequence tok-1, tok-2, ...
func newTestEngine(store *fakeStore, notifier Notifier) *Engine {
	var mu sync.Mutex
	n := 0
	return New(store, notifier,
		WithClock(newFakeClock().Now),
		WithTokenGenerator(func() (string, error) {
			mu.Lock()
			defer mu.Unlock()
			n++
			return fmt.Sprintf("tok-%d", n), nil
		}),
	)
}
