package engine

import (
	"context"
	"errors"
	"log"

	"github.com/iliyamo/campus-event-attendance/internal/model"
)

// RegisterStatus enumerates the outcomes of an admission attempt.
type RegisterStatus int

const (
	// RegisterAdmitted means a seat was claimed and a token issued.
	RegisterAdmitted RegisterStatus = iota
	// RegisterWaitlisted means the event was full and the user queued.
	RegisterWaitlisted
	// RegisterAlreadyRegistered means the user already holds an active
	// registration or waitlist entry for the event.
	RegisterAlreadyRegistered
	// RegisterEventNotFound means the event does not exist.
	RegisterEventNotFound
)

// RegisterResult carries the outcome of Register.  Token is set only for
// RegisterAdmitted; Position (1-based) only for RegisterWaitlisted.
type RegisterResult struct {
	Status   RegisterStatus
	Token    string
	Position int
}

// CancelStatus enumerates the outcomes of a cancellation.
type CancelStatus int

const (
	// CancelDone means the registration is cancelled.  Cancelling an
	// already-cancelled registration also yields CancelDone.
	CancelDone CancelStatus = iota
	// CancelNotFound means no registration exists for the pair.
	CancelNotFound
)

// RedeemStatus enumerates the outcomes of redeeming a check-in token.
type RedeemStatus int

const (
	// RedeemCheckedIn means the registration transitioned to CHECKED_IN.
	RedeemCheckedIn RedeemStatus = iota
	// RedeemAlreadyCheckedIn means the token was redeemed earlier.
	RedeemAlreadyCheckedIn
	// RedeemNotFound means no redeemable registration matches the token.
	RedeemNotFound
)

// RedeemResult carries the outcome of RedeemToken along with the
// registration owner for RedeemCheckedIn and RedeemAlreadyCheckedIn.
type RedeemResult struct {
	Status RedeemStatus
	UserID uint64
}

// Register admits the user into the event or queues them on its waitlist.
// The capacity check, the duplicate checks and the insert all run under
// the event's exclusive lock, so the count of active registrations can
// never exceed capacity regardless of how many workers race on the same
// event.  A unique-key violation on the insert means another worker won
// an interleaved race; the attempt is retried once against fresh state
// and a second violation resolves to AlreadyRegistered.
func (e *Engine) Register(ctx context.Context, userID, eventID uint64) (RegisterResult, error) {
	event, err := e.store.GetEvent(ctx, eventID)
	if errors.Is(err, ErrNotFound) {
		return RegisterResult{Status: RegisterEventNotFound}, nil
	}
	if err != nil {
		return RegisterResult{}, err
	}

	res, err := e.tryAdmit(ctx, event, userID)
	if errors.Is(err, ErrDuplicate) {
		res, err = e.tryAdmit(ctx, event, userID)
		if errors.Is(err, ErrDuplicate) {
			return RegisterResult{Status: RegisterAlreadyRegistered}, nil
		}
	}
	if err != nil {
		return RegisterResult{}, err
	}

	if res.Status == RegisterAdmitted && e.notifier != nil {
		e.notifier.RegistrationAdmitted(ctx, AdmissionNotice{
			EventID:    eventID,
			UserID:     userID,
			AdmittedAt: e.clock(),
		})
	}
	return res, nil
}

// tryAdmit performs one locked admission attempt.
func (e *Engine) tryAdmit(ctx context.Context, event model.Event, userID uint64) (RegisterResult, error) {
	var res RegisterResult
	err := e.store.WithEventLock(ctx, event.ID, func(tx Tx) error {
		active, err := tx.ActiveRegistrationExists(ctx, event.ID, userID)
		if err != nil {
			return err
		}
		if active {
			res = RegisterResult{Status: RegisterAlreadyRegistered}
			return nil
		}
		queued, err := tx.WaitlistEntryExists(ctx, event.ID, userID)
		if err != nil {
			return err
		}
		if queued {
			res = RegisterResult{Status: RegisterAlreadyRegistered}
			return nil
		}

		count, err := tx.CountActiveRegistrations(ctx, event.ID)
		if err != nil {
			return err
		}
		if count < event.Capacity {
			token, err := e.newToken()
			if err != nil {
				return err
			}
			reg := &model.Registration{
				EventID:      event.ID,
				UserID:       userID,
				Status:       model.RegistrationStatusRegistered,
				CheckinToken: token,
			}
			if err := tx.InsertRegistration(ctx, reg); err != nil {
				return err
			}
			res = RegisterResult{Status: RegisterAdmitted, Token: token}
			return nil
		}

		entry := &model.WaitlistEntry{
			EventID:     event.ID,
			UserID:      userID,
			RequestedAt: e.clock(),
		}
		if err := tx.InsertWaitlistEntry(ctx, entry); err != nil {
			return err
		}
		pos, err := tx.WaitlistPosition(ctx, event.ID, userID)
		if err != nil {
			return err
		}
		res = RegisterResult{Status: RegisterWaitlisted, Position: pos}
		return nil
	})
	return res, err
}

// Cancel transitions the user's registration for the event to CANCELLED
// and, when a seat was actually freed, immediately offers it to the head
// of the event's waitlist.  The promotion runs in its own locked
// transaction after the cancellation commits; a promotion failure is
// logged rather than surfaced because the cancellation itself already
// took effect and the freed seat stays claimable by the next admission
// or promotion on the event.
func (e *Engine) Cancel(ctx context.Context, userID, eventID uint64) (CancelStatus, error) {
	freed, err := e.store.CancelRegistration(ctx, eventID, userID)
	if errors.Is(err, ErrNotFound) {
		return CancelNotFound, nil
	}
	if err != nil {
		return CancelDone, err
	}
	if freed {
		if _, err := e.PromoteNext(ctx, eventID); err != nil {
			log.Printf("engine: promote after cancel failed for event %d: %v", eventID, err)
		}
	}
	return CancelDone, nil
}

// RedeemToken looks up the registration holding the check-in token and
// transitions it from REGISTERED to CHECKED_IN.  Redeeming an already
// redeemed token reports AlreadyCheckedIn without mutating anything;
// cancelled registrations are not redeemable.
func (e *Engine) RedeemToken(ctx context.Context, token string) (RedeemResult, error) {
	reg, err := e.store.FindRegistrationByToken(ctx, token)
	if errors.Is(err, ErrNotFound) {
		return RedeemResult{Status: RedeemNotFound}, nil
	}
	if err != nil {
		return RedeemResult{}, err
	}
	switch reg.Status {
	case model.RegistrationStatusCheckedIn:
		return RedeemResult{Status: RedeemAlreadyCheckedIn, UserID: reg.UserID}, nil
	case model.RegistrationStatusCancelled:
		return RedeemResult{Status: RedeemNotFound}, nil
	}
	changed, err := e.store.MarkCheckedIn(ctx, reg.ID, e.clock())
	if err != nil {
		return RedeemResult{}, err
	}
	if !changed {
		return RedeemResult{Status: RedeemAlreadyCheckedIn, UserID: reg.UserID}, nil
	}
	return RedeemResult{Status: RedeemCheckedIn, UserID: reg.UserID}, nil
}
