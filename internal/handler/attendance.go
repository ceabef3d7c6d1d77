package handler

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/iliyamo/campus-event-attendance/internal/engine"
	"github.com/iliyamo/campus-event-attendance/internal/repository"
	"github.com/labstack/echo/v4"
)

// AttendanceHandler exposes attendance sessions and check-ins.  Students
// check into an open session with their reported coordinates; staff create
// sessions for their own events and review the resulting records.
type AttendanceHandler struct {
	Engine        *engine.Engine
	Attendance    *repository.AttendanceRepo
	DefaultRadius uint32
}

// NewAttendanceHandler constructs an AttendanceHandler.  defaultRadius is
// the geofence radius in meters applied when a session request omits one.
func NewAttendanceHandler(eng *engine.Engine, attendance *repository.AttendanceRepo, defaultRadius uint32) *AttendanceHandler {
	if eng == nil || attendance == nil {
		panic("nil dependency passed to NewAttendanceHandler")
	}
	return &AttendanceHandler{Engine: eng, Attendance: attendance, DefaultRadius: defaultRadius}
}

type checkInRequest struct {
	Latitude  *float64 `json:"latitude"`
	Longitude *float64 `json:"longitude"`
}

// CheckIn handles POST /v1/sessions/:id/checkin.  The coordinates are
// optional; a check-in without them is recorded but flagged for review.
// Checking in twice returns 409.  Coordinates outside valid ranges are
// rejected with 400 before anything is recorded.
func (h *AttendanceHandler) CheckIn(c echo.Context) error {
	studentID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	sessionID, ok := pathID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid session id"})
	}
	var req checkInRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}

	res, err := h.Engine.CheckIn(c.Request().Context(), sessionID, studentID, req.Latitude, req.Longitude)
	if err != nil {
		if errors.Is(err, engine.ErrInvalidCoordinates) {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid coordinates"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "check-in failed"})
	}
	switch res.Status {
	case engine.CheckInRecorded:
		body := echo.Map{"status": "checked_in", "flagged": res.Flagged}
		if res.DistanceM != nil {
			body["distance_m"] = *res.DistanceM
		}
		if res.Flagged {
			body["flag_reason"] = res.Reason
		}
		return c.JSON(http.StatusCreated, body)
	case engine.CheckInDuplicate:
		return c.JSON(http.StatusConflict, echo.Map{"error": "already checked in"})
	case engine.CheckInSessionNotFound:
		return c.JSON(http.StatusNotFound, echo.Map{"error": "session not found"})
	case engine.CheckInSessionClosed:
		return c.JSON(http.StatusForbidden, echo.Map{"error": "session is not open"})
	}
	return c.JSON(http.StatusInternalServerError, echo.Map{"error": "unexpected outcome"})
}

type createSessionRequest struct {
	Title     string  `json:"title"`
	CenterLat float64 `json:"center_lat"`
	CenterLng float64 `json:"center_lng"`
	RadiusM   uint32  `json:"radius_m"`
	StartsAt  string  `json:"starts_at"`
	EndsAt    string  `json:"ends_at"`
}

// CreateSession handles POST /v1/events/:id/sessions (staff only).  Both
// window bounds are required; a session without a complete window would
// never accept a check-in.
func (h *AttendanceHandler) CreateSession(c echo.Context) error {
	staffID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	eventID, ok := pathID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid event id"})
	}
	var req createSessionRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	if strings.TrimSpace(req.Title) == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "title is required"})
	}
	if req.CenterLat < -90 || req.CenterLat > 90 || req.CenterLng < -180 || req.CenterLng > 180 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid geofence center"})
	}
	startsAt, err := time.Parse(time.RFC3339, req.StartsAt)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "starts_at must be RFC3339"})
	}
	endsAt, err := time.Parse(time.RFC3339, req.EndsAt)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "ends_at must be RFC3339"})
	}
	if !endsAt.After(startsAt) {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "ends_at must be after starts_at"})
	}
	radius := req.RadiusM
	if radius == 0 {
		radius = h.DefaultRadius
	}

	startsUTC, endsUTC := startsAt.UTC(), endsAt.UTC()
	rec := &repository.SessionRecord{
		EventID:   eventID,
		Title:     strings.TrimSpace(req.Title),
		CenterLat: req.CenterLat,
		CenterLng: req.CenterLng,
		RadiusM:   radius,
		StartsAt:  &startsUTC,
		EndsAt:    &endsUTC,
		CreatedBy: staffID,
	}
	if err := h.Attendance.CreateSession(c.Request().Context(), rec); err != nil {
		switch {
		case errors.Is(err, repository.ErrEventNotFound):
			return c.JSON(http.StatusNotFound, echo.Map{"error": "event not found"})
		case errors.Is(err, repository.ErrForbidden):
			return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "session creation failed"})
	}
	return c.JSON(http.StatusCreated, echo.Map{
		"session_id": rec.ID,
		"event_id":   rec.EventID,
		"radius_m":   rec.RadiusM,
		"starts_at":  startsUTC.Format(time.RFC3339),
		"ends_at":    endsUTC.Format(time.RFC3339),
	})
}

// ListRecords handles GET /v1/sessions/:id/records (staff only).  Flagged
// records sort first so suspect check-ins surface at the top of the list.
func (h *AttendanceHandler) ListRecords(c echo.Context) error {
	staffID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	sessionID, ok := pathID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid session id"})
	}

	records, err := h.Attendance.ListRecordsForStaff(c.Request().Context(), sessionID, staffID)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrSessionNotFound):
			return c.JSON(http.StatusNotFound, echo.Map{"error": "session not found"})
		case errors.Is(err, repository.ErrForbidden):
			return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{"records": records})
}
