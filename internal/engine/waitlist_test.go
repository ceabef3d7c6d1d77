package engine

import (
	"context"
	"testing"

	"github.com/iliyamo/campus-event-attendance/internal/model"
)

func TestPromoteNextOnEmptyWaitlist(t *testing.T) {
	store := newFakeStore()
	store.addEvent(model.Event{ID: 1, Capacity: 2})
	eng := newTestEngine(store, nil)

	res, err := eng.PromoteNext(context.Background(), 1)
	if err != nil {
		t.Fatalf("promote: %v", err)
	}
	if res.Promoted {
		t.Fatal("promotion from an empty waitlist")
	}
}

func TestPromoteNextNeverOverfills(t *testing.T) {
	store := newFakeStore()
	store.addEvent(model.Event{ID: 1, Capacity: 1})
	eng := newTestEngine(store, nil)
	ctx := context.Background()

	if res, _ := eng.Register(ctx, 1, 1); res.Status != RegisterAdmitted {
		t.Fatal("setup: register failed")
	}
	if res, _ := eng.Register(ctx, 2, 1); res.Status != RegisterWaitlisted {
		t.Fatal("setup: waitlist failed")
	}

	// No seat has been freed; the waitlisted user must stay queued.
	res, err := eng.PromoteNext(ctx, 1)
	if err != nil {
		t.Fatalf("promote: %v", err)
	}
	if res.Promoted {
		t.Fatal("promoted into a full event")
	}
	if len(store.waitlist) != 1 {
		t.Fatalf("waitlist entry consumed without promotion, %d left", len(store.waitlist))
	}
	if got := store.activeCount(1); got != 1 {
		t.Fatalf("capacity exceeded: %d active", got)
	}
}

func TestPromotionIsStrictFIFO(t *testing.T) {
	store := newFakeStore()
	store.addEvent(model.Event{ID: 1, Capacity: 2})
	eng := newTestEngine(store, nil)
	ctx := context.Background()

	for _, userID := range []uint64{1, 2} {
		if res, _ := eng.Register(ctx, userID, 1); res.Status != RegisterAdmitted {
			t.Fatalf("setup: user %d not admitted", userID)
		}
	}
	// A enqueues strictly before B, then C.
	for i, userID := range []uint64{10, 11, 12} {
		res, _ := eng.Register(ctx, userID, 1)
		if res.Status != RegisterWaitlisted || res.Position != i+1 {
			t.Fatalf("setup: user %d expected position %d, got %+v", userID, i+1, res)
		}
	}

	// Free two seats; promotions must come out in enqueue order.
	var promoted []uint64
	for _, cancelled := range []uint64{1, 2} {
		if status, err := eng.Cancel(ctx, cancelled, 1); err != nil || status != CancelDone {
			t.Fatalf("cancel user %d: status=%v err=%v", cancelled, status, err)
		}
	}
	for _, r := range store.registrations {
		if r.UserID >= 10 && r.Active() {
			promoted = append(promoted, r.UserID)
		}
	}
	if len(promoted) != 2 || promoted[0] != 10 || promoted[1] != 11 {
		t.Fatalf("expected users 10 then 11 promoted, got %v", promoted)
	}
	if len(store.waitlist) != 1 || store.waitlist[0].UserID != 12 {
		t.Fatalf("expected user 12 still queued, got %+v", store.waitlist)
	}
}

func TestWithdrawRemovesEntryAndKeepsOrder(t *testing.T) {
	store := newFakeStore()
	store.addEvent(model.Event{ID: 1, Capacity: 1})
	eng := newTestEngine(store, nil)
	ctx := context.Background()

	if res, _ := eng.Register(ctx, 1, 1); res.Status != RegisterAdmitted {
		t.Fatal("setup: register failed")
	}
	for _, userID := range []uint64{10, 11, 12} {
		if res, _ := eng.Register(ctx, userID, 1); res.Status != RegisterWaitlisted {
			t.Fatalf("setup: user %d not waitlisted", userID)
		}
	}

	status, err := eng.Withdraw(ctx, 11, 1)
	if err != nil {
		t.Fatalf("withdraw: %v", err)
	}
	if status != WithdrawDone {
		t.Fatalf("expected withdrawn, got %v", status)
	}

	// 10 is still ahead of 12.
	if status, _ := eng.Cancel(ctx, 1, 1); status != CancelDone {
		t.Fatal("cancel failed")
	}
	promoted := false
	for _, r := range store.registrations {
		if r.UserID == 10 && r.Active() {
			promoted = true
		}
	}
	if !promoted {
		t.Fatal("user 10 was not promoted first after withdrawal of 11")
	}
	if len(store.waitlist) != 1 || store.waitlist[0].UserID != 12 {
		t.Fatalf("expected only user 12 queued, got %+v", store.waitlist)
	}
}

func TestWithdrawUnknownEntry(t *testing.T) {
	store := newFakeStore()
	store.addEvent(model.Event{ID: 1, Capacity: 1})
	eng := newTestEngine(store, nil)

	status, err := eng.Withdraw(context.Background(), 10, 1)
	if err != nil {
		t.Fatalf("withdraw: %v", err)
	}
	if status != WithdrawNotFound {
		t.Fatalf("expected not found, got %v", status)
	}
}

func TestPromoteNextUnknownEvent(t *testing.T) {
	eng := newTestEngine(newFakeStore(), nil)
	res, err := eng.PromoteNext(context.Background(), 42)
	if err != nil {
		t.Fatalf("promote: %v", err)
	}
	if res.Promoted {
		t.Fatal("promotion on a missing event")
	}
}
