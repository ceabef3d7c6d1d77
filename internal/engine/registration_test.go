package engine

import (
	"context"
	"sync"
	"testing"

	"github.com/iliyamo/campus-event-attendance/internal/model"
)

func TestRegisterAdmitsUntilCapacity(t *testing.T) {
	store := newFakeStore()
	store.addEvent(model.Event{ID: 1, Capacity: 2})
	eng := newTestEngine(store, nil)
	ctx := context.Background()

	for _, userID := range []uint64{10, 11} {
		res, err := eng.Register(ctx, userID, 1)
		if err != nil {
			t.Fatalf("register user %d: %v", userID, err)
		}
		if res.Status != RegisterAdmitted {
			t.Fatalf("user %d: expected admitted, got %v", userID, res.Status)
		}
		if res.Token == "" {
			t.Fatalf("user %d: admitted without token", userID)
		}
	}

	res, err := eng.Register(ctx, 12, 1)
	if err != nil {
		t.Fatalf("register user 12: %v", err)
	}
	if res.Status != RegisterWaitlisted {
		t.Fatalf("expected waitlisted, got %v", res.Status)
	}
	if res.Position != 1 {
		t.Fatalf("expected position 1, got %d", res.Position)
	}
}

func TestRegisterEventNotFound(t *testing.T) {
	eng := newTestEngine(newFakeStore(), nil)
	res, err := eng.Register(context.Background(), 10, 99)
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if res.Status != RegisterEventNotFound {
		t.Fatalf("expected event not found, got %v", res.Status)
	}
}

func TestRegisterIsIdempotent(t *testing.T) {
	store := newFakeStore()
	store.addEvent(model.Event{ID: 1, Capacity: 1})
	eng := newTestEngine(store, nil)
	ctx := context.Background()

	if res, _ := eng.Register(ctx, 10, 1); res.Status != RegisterAdmitted {
		t.Fatalf("first register: expected admitted, got %v", res.Status)
	}
	res, err := eng.Register(ctx, 10, 1)
	if err != nil {
		t.Fatalf("second register: %v", err)
	}
	if res.Status != RegisterAlreadyRegistered {
		t.Fatalf("expected already registered, got %v", res.Status)
	}
	if got := store.activeCount(1); got != 1 {
		t.Fatalf("expected 1 active registration, got %d", got)
	}

	// A waitlisted user retrying is also reported as already registered
	// and does not get a second entry.
	if res, _ := eng.Register(ctx, 11, 1); res.Status != RegisterWaitlisted {
		t.Fatalf("expected waitlisted, got %v", res.Status)
	}
	if res, _ := eng.Register(ctx, 11, 1); res.Status != RegisterAlreadyRegistered {
		t.Fatalf("waitlisted retry: expected already registered, got %v", res.Status)
	}
	if len(store.waitlist) != 1 {
		t.Fatalf("expected a single waitlist entry, got %d", len(store.waitlist))
	}
}

func TestRegisterRetriesLostInsertRace(t *testing.T) {
	store := newFakeStore()
	store.addEvent(model.Event{ID: 1, Capacity: 5})
	store.failNextRegInserts = 1
	eng := newTestEngine(store, nil)

	res, err := eng.Register(context.Background(), 10, 1)
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if res.Status != RegisterAdmitted {
		t.Fatalf("expected admitted after one retry, got %v", res.Status)
	}
}

func TestRegisterResolvesSecondRaceToAlreadyRegistered(t *testing.T) {
	store := newFakeStore()
	store.addEvent(model.Event{ID: 1, Capacity: 5})
	store.failNextRegInserts = 2
	eng := newTestEngine(store, nil)

	res, err := eng.Register(context.Background(), 10, 1)
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if res.Status != RegisterAlreadyRegistered {
		t.Fatalf("expected already registered, got %v", res.Status)
	}
}

func TestConcurrentRegistrationNeverExceedsCapacity(t *testing.T) {
	const capacity = 5
	const attempts = 40

	store := newFakeStore()
	store.addEvent(model.Event{ID: 1, Capacity: capacity})
	eng := newTestEngine(store, nil)

	var wg sync.WaitGroup
	results := make([]RegisterResult, attempts)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			res, err := eng.Register(context.Background(), uint64(100+i), 1)
			if err != nil {
				t.Errorf("register %d: %v", i, err)
				return
			}
			results[i] = res
		}(i)
	}
	wg.Wait()

	admitted, waitlisted := 0, 0
	for _, res := range results {
		switch res.Status {
		case RegisterAdmitted:
			admitted++
		case RegisterWaitlisted:
			waitlisted++
		default:
			t.Fatalf("unexpected status %v", res.Status)
		}
	}
	if admitted != capacity {
		t.Fatalf("expected %d admissions, got %d", capacity, admitted)
	}
	if waitlisted != attempts-capacity {
		t.Fatalf("expected %d waitlisted, got %d", attempts-capacity, waitlisted)
	}
	if got := store.activeCount(1); got != capacity {
		t.Fatalf("active registrations %d exceed capacity %d", got, capacity)
	}
}

func TestCancelIsIdempotent(t *testing.T) {
	store := newFakeStore()
	store.addEvent(model.Event{ID: 1, Capacity: 1})
	notifier := &fakeNotifier{}
	eng := newTestEngine(store, notifier)
	ctx := context.Background()

	if res, _ := eng.Register(ctx, 10, 1); res.Status != RegisterAdmitted {
		t.Fatal("setup: register failed")
	}

	for i := 0; i < 2; i++ {
		status, err := eng.Cancel(ctx, 10, 1)
		if err != nil {
			t.Fatalf("cancel %d: %v", i, err)
		}
		if status != CancelDone {
			t.Fatalf("cancel %d: expected cancelled, got %v", i, status)
		}
	}
	if got := store.activeCount(1); got != 0 {
		t.Fatalf("expected no active registrations, got %d", got)
	}
	if len(notifier.promotions) != 0 {
		t.Fatalf("empty waitlist produced %d promotions", len(notifier.promotions))
	}
}

func TestCancelUnknownRegistration(t *testing.T) {
	store := newFakeStore()
	store.addEvent(model.Event{ID: 1, Capacity: 1})
	eng := newTestEngine(store, nil)

	status, err := eng.Cancel(context.Background(), 10, 1)
	if err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if status != CancelNotFound {
		t.Fatalf("expected not found, got %v", status)
	}
}

func TestCancelPromotesWaitlistHead(t *testing.T) {
	store := newFakeStore()
	store.addEvent(model.Event{ID: 1, Capacity: 2})
	notifier := &fakeNotifier{}
	eng := newTestEngine(store, notifier)
	ctx := context.Background()

	for _, userID := range []uint64{1, 2} {
		if res, _ := eng.Register(ctx, userID, 1); res.Status != RegisterAdmitted {
			t.Fatalf("setup: user %d not admitted", userID)
		}
	}
	res, _ := eng.Register(ctx, 3, 1)
	if res.Status != RegisterWaitlisted || res.Position != 1 {
		t.Fatalf("setup: expected waitlisted at 1, got %+v", res)
	}

	if status, err := eng.Cancel(ctx, 1, 1); err != nil || status != CancelDone {
		t.Fatalf("cancel: status=%v err=%v", status, err)
	}

	// U3 now holds a REGISTERED seat and the waitlist is empty.
	found := false
	for _, r := range store.registrations {
		if r.UserID == 3 && r.Status == model.RegistrationStatusRegistered {
			found = true
		}
	}
	if !found {
		t.Fatal("promoted user has no registered registration")
	}
	if len(store.waitlist) != 0 {
		t.Fatalf("expected empty waitlist, got %d entries", len(store.waitlist))
	}
	if got := store.activeCount(1); got != 2 {
		t.Fatalf("expected 2 active registrations, got %d", got)
	}
	if len(notifier.promotions) != 1 || notifier.promotions[0].UserID != 3 {
		t.Fatalf("expected one promotion notice for user 3, got %+v", notifier.promotions)
	}
}

func TestRedeemToken(t *testing.T) {
	store := newFakeStore()
	store.addEvent(model.Event{ID: 1, Capacity: 2})
	eng := newTestEngine(store, nil)
	ctx := context.Background()

	res, _ := eng.Register(ctx, 10, 1)
	if res.Status != RegisterAdmitted {
		t.Fatal("setup: register failed")
	}

	redeem, err := eng.RedeemToken(ctx, res.Token)
	if err != nil {
		t.Fatalf("redeem: %v", err)
	}
	if redeem.Status != RedeemCheckedIn || redeem.UserID != 10 {
		t.Fatalf("expected checked in for user 10, got %+v", redeem)
	}

	redeem, err = eng.RedeemToken(ctx, res.Token)
	if err != nil {
		t.Fatalf("second redeem: %v", err)
	}
	if redeem.Status != RedeemAlreadyCheckedIn {
		t.Fatalf("expected already checked in, got %v", redeem.Status)
	}

	if redeem, _ := eng.RedeemToken(ctx, "bogus"); redeem.Status != RedeemNotFound {
		t.Fatalf("expected not found for unknown token, got %v", redeem.Status)
	}

	// A checked-in registration still counts against capacity.
	if got := store.activeCount(1); got != 1 {
		t.Fatalf("expected 1 active registration, got %d", got)
	}
}

func TestRedeemTokenOfCancelledRegistration(t *testing.T) {
	store := newFakeStore()
	store.addEvent(model.Event{ID: 1, Capacity: 1})
	eng := newTestEngine(store, nil)
	ctx := context.Background()

	res, _ := eng.Register(ctx, 10, 1)
	if _, err := eng.Cancel(ctx, 10, 1); err != nil {
		t.Fatalf("cancel: %v", err)
	}
	redeem, err := eng.RedeemToken(ctx, res.Token)
	if err != nil {
		t.Fatalf("redeem: %v", err)
	}
	if redeem.Status != RedeemNotFound {
		t.Fatalf("cancelled token must not redeem, got %v", redeem.Status)
	}
}
