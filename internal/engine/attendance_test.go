package engine

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/iliyamo/campus-event-attendance/internal/model"
)

// testSession returns a session at geofence center (0,0) radius 50m whose
// window covers the fake clock's starting time.
func testSession(id uint64) model.AttendanceSession {
	start := time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)
	end := time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)
	return model.AttendanceSession{
		ID:        id,
		EventID:   1,
		CenterLat: 0,
		CenterLng: 0,
		RadiusM:   50,
		StartsAt:  &start,
		EndsAt:    &end,
	}
}

func TestCheckInAtCenter(t *testing.T) {
	store := newFakeStore()
	store.addSession(testSession(1))
	eng := newTestEngine(store, nil)

	lat, lng := 0.0, 0.0
	res, err := eng.CheckIn(context.Background(), 1, 20, &lat, &lng)
	if err != nil {
		t.Fatalf("check in: %v", err)
	}
	if res.Status != CheckInRecorded {
		t.Fatalf("expected recorded, got %v", res.Status)
	}
	if res.Flagged {
		t.Fatalf("check-in at center flagged: %q", res.Reason)
	}
	if res.DistanceM == nil || *res.DistanceM != 0 {
		t.Fatalf("expected distance 0, got %v", res.DistanceM)
	}
	if len(store.attendance) != 1 {
		t.Fatalf("expected one record, got %d", len(store.attendance))
	}
}

func TestCheckInOutsideGeofenceIsFlagged(t *testing.T) {
	store := newFakeStore()
	store.addSession(testSession(1))
	notifier := &fakeNotifier{}
	eng := newTestEngine(store, notifier)

	lat, lng := 0.0, 0.0006 // ~66m east of center
	res, err := eng.CheckIn(context.Background(), 1, 20, &lat, &lng)
	if err != nil {
		t.Fatalf("check in: %v", err)
	}
	if res.Status != CheckInRecorded || !res.Flagged {
		t.Fatalf("expected recorded+flagged, got %+v", res)
	}
	if res.Reason == "" {
		t.Fatal("flagged check-in must carry a reason")
	}
	rec := store.attendance[0]
	if !rec.Flagged || rec.FlagReason == nil || *rec.FlagReason != res.Reason {
		t.Fatalf("persisted record does not match evaluation: %+v", rec)
	}
	if len(notifier.flags) != 1 || notifier.flags[0].StudentID != 20 {
		t.Fatalf("expected one flag notice for student 20, got %+v", notifier.flags)
	}
}

func TestCheckInWithoutLocationIsFlaggedNotRejected(t *testing.T) {
	store := newFakeStore()
	store.addSession(testSession(1))
	eng := newTestEngine(store, nil)

	res, err := eng.CheckIn(context.Background(), 1, 20, nil, nil)
	if err != nil {
		t.Fatalf("check in: %v", err)
	}
	if res.Status != CheckInRecorded || !res.Flagged {
		t.Fatalf("expected recorded+flagged, got %+v", res)
	}
	if res.Reason != "no location reported" {
		t.Fatalf("unexpected reason %q", res.Reason)
	}
	rec := store.attendance[0]
	if rec.Latitude != nil || rec.Longitude != nil || rec.DistanceM != nil {
		t.Fatalf("expected nil coordinates and distance, got %+v", rec)
	}
}

func TestCheckInIsIdempotent(t *testing.T) {
	store := newFakeStore()
	store.addSession(testSession(1))
	eng := newTestEngine(store, nil)
	ctx := context.Background()

	lat, lng := 0.0, 0.0
	if res, _ := eng.CheckIn(ctx, 1, 20, &lat, &lng); res.Status != CheckInRecorded {
		t.Fatal("setup: first check-in failed")
	}
	res, err := eng.CheckIn(ctx, 1, 20, &lat, &lng)
	if err != nil {
		t.Fatalf("second check in: %v", err)
	}
	if res.Status != CheckInDuplicate {
		t.Fatalf("expected duplicate, got %v", res.Status)
	}
	if len(store.attendance) != 1 {
		t.Fatalf("duplicate check-in created a second record")
	}
}

func TestCheckInSessionNotFound(t *testing.T) {
	eng := newTestEngine(newFakeStore(), nil)
	res, err := eng.CheckIn(context.Background(), 9, 20, nil, nil)
	if err != nil {
		t.Fatalf("check in: %v", err)
	}
	if res.Status != CheckInSessionNotFound {
		t.Fatalf("expected session not found, got %v", res.Status)
	}
}

func TestCheckInOutsideTimeWindow(t *testing.T) {
	store := newFakeStore()
	sess := testSession(1)
	closed := time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)
	sess.EndsAt = &closed // window already over at the fake clock's time
	store.addSession(sess)
	eng := newTestEngine(store, nil)

	res, err := eng.CheckIn(context.Background(), 1, 20, nil, nil)
	if err != nil {
		t.Fatalf("check in: %v", err)
	}
	if res.Status != CheckInSessionClosed {
		t.Fatalf("expected session closed, got %v", res.Status)
	}
	if len(store.attendance) != 0 {
		t.Fatal("closed session recorded attendance")
	}
}

func TestCheckInFailsClosedOnMissingWindowBound(t *testing.T) {
	store := newFakeStore()
	sess := testSession(1)
	sess.EndsAt = nil
	store.addSession(sess)
	eng := newTestEngine(store, nil)

	res, err := eng.CheckIn(context.Background(), 1, 20, nil, nil)
	if err != nil {
		t.Fatalf("check in: %v", err)
	}
	if res.Status != CheckInSessionClosed {
		t.Fatalf("session without an end bound must be closed, got %v", res.Status)
	}
}

func TestCheckInRejectsMalformedCoordinates(t *testing.T) {
	store := newFakeStore()
	store.addSession(testSession(1))
	eng := newTestEngine(store, nil)

	lat, lng := 91.0, 0.0
	_, err := eng.CheckIn(context.Background(), 1, 20, &lat, &lng)
	if !errors.Is(err, ErrInvalidCoordinates) {
		t.Fatalf("expected ErrInvalidCoordinates, got %v", err)
	}
	if len(store.attendance) != 0 {
		t.Fatal("invalid coordinates recorded attendance")
	}
}
