package handler

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/iliyamo/campus-event-attendance/internal/repository"
	"github.com/labstack/echo/v4"
)

// EventHandler exposes the event catalog: public browse endpoints plus
// staff-only event management.
type EventHandler struct {
	Events *repository.EventRepo
}

// NewEventHandler constructs an EventHandler.
func NewEventHandler(events *repository.EventRepo) *EventHandler {
	if events == nil {
		panic("nil repository passed to NewEventHandler")
	}
	return &EventHandler{Events: events}
}

// List handles GET /v1/events.  The registered and waitlisted counts are
// derived from the registration tables at query time.
func (h *EventHandler) List(c echo.Context) error {
	summaries, err := h.Events.List(c.Request().Context())
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{"events": summaries})
}

// Get handles GET /v1/events/:id.
func (h *EventHandler) Get(c echo.Context) error {
	eventID, ok := pathID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid event id"})
	}
	summary, err := h.Events.GetSummary(c.Request().Context(), eventID)
	if err != nil {
		if errors.Is(err, repository.ErrEventNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "event not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	return c.JSON(http.StatusOK, summary)
}

type createEventRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Location    string `json:"location"`
	Capacity    uint32 `json:"capacity"`
	StartsAt    string `json:"starts_at"`
	EndsAt      string `json:"ends_at"`
}

// Create handles POST /v1/events (staff only).  Capacity must be at
// least one; the schedule window is optional but must be well ordered
// when both bounds are present.
func (h *EventHandler) Create(c echo.Context) error {
	staffID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	var req createEventRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	if strings.TrimSpace(req.Title) == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "title is required"})
	}
	if req.Capacity == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "capacity must be at least 1"})
	}
	startsAt, endsAt, ok := parseWindow(req.StartsAt, req.EndsAt)
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid schedule window"})
	}

	rec := &repository.EventRecord{
		Title:       strings.TrimSpace(req.Title),
		Description: req.Description,
		Location:    req.Location,
		Capacity:    req.Capacity,
		StartsAt:    startsAt,
		EndsAt:      endsAt,
		CreatedBy:   staffID,
	}
	if err := h.Events.Create(c.Request().Context(), rec); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "event creation failed"})
	}
	return c.JSON(http.StatusCreated, echo.Map{
		"event_id": rec.ID,
		"capacity": rec.Capacity,
	})
}

type updateWindowRequest struct {
	StartsAt string `json:"starts_at"`
	EndsAt   string `json:"ends_at"`
}

// UpdateWindow handles PATCH /v1/events/:id/window (staff only).  Empty
// strings clear the corresponding bound.
func (h *EventHandler) UpdateWindow(c echo.Context) error {
	staffID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	eventID, ok := pathID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid event id"})
	}
	var req updateWindowRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	startsAt, endsAt, okWin := parseWindow(req.StartsAt, req.EndsAt)
	if !okWin {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid schedule window"})
	}

	if err := h.Events.UpdateWindow(c.Request().Context(), eventID, staffID, startsAt, endsAt); err != nil {
		switch {
		case errors.Is(err, repository.ErrEventNotFound):
			return c.JSON(http.StatusNotFound, echo.Map{"error": "event not found"})
		case errors.Is(err, repository.ErrForbidden):
			return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "update failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{"status": "updated"})
}

// parseWindow parses optional RFC3339 bounds.  Empty strings yield nil.
// When both bounds are set the end must follow the start.
func parseWindow(start, end string) (*time.Time, *time.Time, bool) {
	var startsAt, endsAt *time.Time
	if start != "" {
		t, err := time.Parse(time.RFC3339, start)
		if err != nil {
			return nil, nil, false
		}
		u := t.UTC()
		startsAt = &u
	}
	if end != "" {
		t, err := time.Parse(time.RFC3339, end)
		if err != nil {
			return nil, nil, false
		}
		u := t.UTC()
		endsAt = &u
	}
	if startsAt != nil && endsAt != nil && !endsAt.After(*startsAt) {
		return nil, nil, false
	}
	return startsAt, endsAt, true
}
