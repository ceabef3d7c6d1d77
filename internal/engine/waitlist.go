package engine

import (
	"context"
	"errors"

	"github.com/iliyamo/campus-event-attendance/internal/model"
)

// PromoteResult carries the outcome of PromoteNext.  Promoted is false
// when the waitlist was empty or no seat was actually free.
type PromoteResult struct {
	Promoted bool
	UserID   uint64
	Token    string
}

// WithdrawStatus enumerates the outcomes of withdrawing from a waitlist.
type WithdrawStatus int

const (
	// WithdrawDone means the entry was removed.
	WithdrawDone WithdrawStatus = iota
	// WithdrawNotFound means the user had no entry for the event.
	WithdrawNotFound
)

// PromoteNext promotes the earliest waitlisted user for the event into a
// registration.  The capacity re-check, the head selection, the entry
// deletion and the registration insert all run under the event lock, so
// promotion can never overfill the event even when it races with
// concurrent admissions or other promotions: if the freed seat was
// already claimed, the call is a no-op.  Ordering is strict FIFO by
// (requested_at, id); no later entrant is ever promoted ahead of an
// earlier one.
func (e *Engine) PromoteNext(ctx context.Context, eventID uint64) (PromoteResult, error) {
	event, err := e.store.GetEvent(ctx, eventID)
	if errors.Is(err, ErrNotFound) {
		return PromoteResult{}, nil
	}
	if err != nil {
		return PromoteResult{}, err
	}

	var res PromoteResult
	err = e.store.WithEventLock(ctx, eventID, func(tx Tx) error {
		count, err := tx.CountActiveRegistrations(ctx, eventID)
		if err != nil {
			return err
		}
		if count >= event.Capacity {
			return nil
		}
		entry, err := tx.EarliestWaitlistEntry(ctx, eventID)
		if errors.Is(err, ErrNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		if err := tx.DeleteWaitlistEntry(ctx, entry.ID); err != nil {
			return err
		}
		token, err := e.newToken()
		if err != nil {
			return err
		}
		reg := &model.Registration{
			EventID:      eventID,
			UserID:       entry.UserID,
			Status:       model.RegistrationStatusRegistered,
			CheckinToken: token,
		}
		if err := tx.InsertRegistration(ctx, reg); err != nil {
			return err
		}
		res = PromoteResult{Promoted: true, UserID: entry.UserID, Token: token}
		return nil
	})
	if err != nil {
		return PromoteResult{}, err
	}

	if res.Promoted && e.notifier != nil {
		e.notifier.WaitlistPromoted(ctx, PromotionNotice{
			EventID:    eventID,
			UserID:     res.UserID,
			PromotedAt: e.clock(),
		})
	}
	return res, nil
}

// Withdraw removes the user's pending waitlist entry for the event.  The
// deletion runs under the event lock so it cannot race a promotion of the
// same entry.  Remaining entries keep their relative order.
func (e *Engine) Withdraw(ctx context.Context, userID, eventID uint64) (WithdrawStatus, error) {
	status := WithdrawNotFound
	err := e.store.WithEventLock(ctx, eventID, func(tx Tx) error {
		removed, err := tx.DeleteWaitlistEntryByUser(ctx, eventID, userID)
		if err != nil {
			return err
		}
		if removed {
			status = WithdrawDone
		}
		return nil
	})
	if errors.Is(err, ErrNotFound) {
		return WithdrawNotFound, nil
	}
	if err != nil {
		return WithdrawNotFound, err
	}
	return status, nil
}
