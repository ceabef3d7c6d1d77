package engine

import (
	"context"
	"errors"

	"github.com/iliyamo/campus-event-attendance/internal/geo"
	"github.com/iliyamo/campus-event-attendance/internal/model"
)

// CheckInStatus enumerates the outcomes of a session check-in.
type CheckInStatus int

const (
	// CheckInRecorded means an attendance record was written.
	CheckInRecorded CheckInStatus = iota
	// CheckInDuplicate means the student already checked into the session.
	CheckInDuplicate
	// CheckInSessionNotFound means the session does not exist.
	CheckInSessionNotFound
	// CheckInSessionClosed means the session's time window is not open.
	CheckInSessionClosed
)

// CheckInResult carries the outcome of CheckIn.  The geofence fields are
// populated only for CheckInRecorded.
type CheckInResult struct {
	Status    CheckInStatus
	Flagged   bool
	DistanceM *float64
	Reason    string
}

// CheckIn records the student's attendance for the session exactly once.
// The session must be inside its time window; a session missing either
// window bound is closed.  The reported coordinates are evaluated against
// the session geofence and the resulting distance, flag and reason are
// persisted with the record.  Missing coordinates flag the record but do
// not reject it.  Out-of-range coordinates fail with
// ErrInvalidCoordinates before any state is touched.
func (e *Engine) CheckIn(ctx context.Context, sessionID, studentID uint64, lat, lng *float64) (CheckInResult, error) {
	if !geo.ValidCoordinates(lat, lng) {
		return CheckInResult{}, ErrInvalidCoordinates
	}

	sess, err := e.store.GetSession(ctx, sessionID)
	if errors.Is(err, ErrNotFound) {
		return CheckInResult{Status: CheckInSessionNotFound}, nil
	}
	if err != nil {
		return CheckInResult{}, err
	}
	now := e.clock()
	if !sess.ActiveAt(now) {
		return CheckInResult{Status: CheckInSessionClosed}, nil
	}

	eval := geo.Evaluate(sess.CenterLat, sess.CenterLng, float64(sess.RadiusM), lat, lng)
	rec := &model.AttendanceRecord{
		SessionID:   sessionID,
		StudentID:   studentID,
		CheckedInAt: now,
		Latitude:    lat,
		Longitude:   lng,
		DistanceM:   eval.DistanceM,
		Flagged:     eval.Flagged,
	}
	if eval.Flagged {
		reason := eval.Reason
		rec.FlagReason = &reason
	}

	if err := e.store.InsertAttendanceRecord(ctx, rec); err != nil {
		if errors.Is(err, ErrDuplicate) {
			return CheckInResult{Status: CheckInDuplicate}, nil
		}
		return CheckInResult{}, err
	}

	if eval.Flagged && e.notifier != nil {
		e.notifier.AttendanceFlagged(ctx, FlagNotice{
			SessionID:   sessionID,
			EventID:     sess.EventID,
			StudentID:   studentID,
			DistanceM:   eval.DistanceM,
			Reason:      eval.Reason,
			CheckedInAt: now,
		})
	}
	return CheckInResult{
		Status:    CheckInRecorded,
		Flagged:   eval.Flagged,
		DistanceM: eval.DistanceM,
		Reason:    eval.Reason,
	}, nil
}
