package handler

import (
	"errors"
	"net/http"
	"strings"

	"github.com/iliyamo/campus-event-attendance/internal/engine"
	"github.com/iliyamo/campus-event-attendance/internal/repository"
	"github.com/labstack/echo/v4"
)

// RegistrationHandler exposes the admission engine's registration and
// waitlist operations over HTTP.  All methods assume that JWT
// authentication and role validation have already been performed by
// middleware; they translate engine outcomes into status codes and never
// reimplement capacity or ordering logic themselves.
type RegistrationHandler struct {
	Engine        *engine.Engine
	Store         *repository.Store
	Registrations *repository.RegistrationRepo
}

// NewRegistrationHandler constructs a RegistrationHandler.  All
// dependencies must be non-nil.
func NewRegistrationHandler(eng *engine.Engine, store *repository.Store, registrations *repository.RegistrationRepo) *RegistrationHandler {
	if eng == nil || store == nil || registrations == nil {
		panic("nil dependency passed to NewRegistrationHandler")
	}
	return &RegistrationHandler{Engine: eng, Store: store, Registrations: registrations}
}

// Register handles POST /v1/events/:id/register.  It admits the student
// into the event or queues them on the waitlist when the event is full.
// Returns 201 with a check-in token on admission, 200 with the queue
// position when waitlisted, 409 when the student already holds a seat or
// an entry, and 404 for an unknown event.
func (h *RegistrationHandler) Register(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	eventID, ok := pathID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid event id"})
	}

	res, err := h.Engine.Register(c.Request().Context(), userID, eventID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "registration failed"})
	}
	switch res.Status {
	case engine.RegisterAdmitted:
		return c.JSON(http.StatusCreated, echo.Map{
			"status":        "registered",
			"checkin_token": res.Token,
		})
	case engine.RegisterWaitlisted:
		return c.JSON(http.StatusOK, echo.Map{
			"status":   "waitlisted",
			"position": res.Position,
		})
	case engine.RegisterAlreadyRegistered:
		return c.JSON(http.StatusConflict, echo.Map{"error": "already registered or waitlisted"})
	case engine.RegisterEventNotFound:
		return c.JSON(http.StatusNotFound, echo.Map{"error": "event not found"})
	}
	return c.JSON(http.StatusInternalServerError, echo.Map{"error": "unexpected outcome"})
}

// Cancel handles DELETE /v1/events/:id/registration.  Cancelling frees
// the seat and immediately promotes the head of the event's waitlist.
// Cancelling an already-cancelled registration is a no-op returning 200.
func (h *RegistrationHandler) Cancel(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	eventID, ok := pathID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid event id"})
	}

	status, err := h.Engine.Cancel(c.Request().Context(), userID, eventID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "cancel failed"})
	}
	if status == engine.CancelNotFound {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "registration not found"})
	}
	return c.JSON(http.StatusOK, echo.Map{"status": "cancelled"})
}

// Withdraw handles DELETE /v1/events/:id/waitlist.  It removes the
// student's pending waitlist entry without affecting the order of the
// remaining entries.
func (h *RegistrationHandler) Withdraw(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	eventID, ok := pathID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid event id"})
	}

	status, err := h.Engine.Withdraw(c.Request().Context(), userID, eventID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "withdraw failed"})
	}
	if status == engine.WithdrawNotFound {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "waitlist entry not found"})
	}
	return c.JSON(http.StatusOK, echo.Map{"status": "withdrawn"})
}

// WaitlistPosition handles GET /v1/events/:id/waitlist/position.  It
// returns the student's current 1-based rank in the event's queue.
func (h *RegistrationHandler) WaitlistPosition(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	eventID, ok := pathID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid event id"})
	}

	pos, err := h.Store.WaitlistPosition(c.Request().Context(), eventID, userID)
	if err != nil {
		if errors.Is(err, engine.ErrNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "waitlist entry not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{"position": pos})
}

// MyRegistrations handles GET /v1/registrations.  It lists the student's
// registrations with event details, newest first.
func (h *RegistrationHandler) MyRegistrations(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	details, err := h.Registrations.ListByUser(c.Request().Context(), userID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{"registrations": details})
}

// Redeem handles POST /v1/checkin-tokens/redeem (staff only).  Staff scan
// a student's check-in token at the door; the registration transitions
// to CHECKED_IN.  Redeeming the same token twice returns 200 with
// already_checked_in so door scanners can retry safely.
func (h *RegistrationHandler) Redeem(c echo.Context) error {
	var body struct {
		Token string `json:"token"`
	}
	if err := c.Bind(&body); err != nil || strings.TrimSpace(body.Token) == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "token is required"})
	}

	res, err := h.Engine.RedeemToken(c.Request().Context(), strings.TrimSpace(body.Token))
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "redeem failed"})
	}
	switch res.Status {
	case engine.RedeemCheckedIn:
		return c.JSON(http.StatusOK, echo.Map{"status": "checked_in", "user_id": res.UserID})
	case engine.RedeemAlreadyCheckedIn:
		return c.JSON(http.StatusOK, echo.Map{"status": "already_checked_in", "user_id": res.UserID})
	case engine.RedeemNotFound:
		return c.JSON(http.StatusNotFound, echo.Map{"error": "token not found"})
	}
	return c.JSON(http.StatusInternalServerError, echo.Map{"error": "unexpected outcome"})
}

// Roster handles GET /v1/events/:id/roster (staff only).  It lists the
// active registrations for an event the staff member owns.
func (h *RegistrationHandler) Roster(c echo.Context) error {
	staffID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	eventID, ok := pathID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid event id"})
	}

	roster, err := h.Registrations.ListByEventForStaff(c.Request().Context(), eventID, staffID)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrEventNotFound):
			return c.JSON(http.StatusNotFound, echo.Map{"error": "event not found"})
		case errors.Is(err, repository.ErrForbidden):
			return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{"roster": roster})
}
