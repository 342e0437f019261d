package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"room-reservation-backend/internal/model"
	"room-reservation-backend/internal/occupancy"
	"room-reservation-backend/internal/store"
)

// ReservationResponse represents the API response for a single reservation.
type ReservationResponse struct {
	ID             int64         `json:"id"`
	UserName       string        `json:"user_name"`
	Room           *RoomResponse `json:"room,omitempty"`
	Date           string        `json:"date"`
	StartTime      string        `json:"start_time"`
	EndTime        string        `json:"end_time"`
	Purpose        string        `json:"purpose"`
	Attendees      int           `json:"attendees"`
	ContactEmail   string        `json:"contact_email"`
	ContactPhone   string        `json:"contact_phone"`
	Status         string        `json:"status"`
	CreatedAt      time.Time     `json:"created_at"`
	UpdatedAt      time.Time     `json:"updated_at"`
	TimeUntilStart int           `json:"time_until_start"`
	IsUpcoming     bool          `json:"is_upcoming"`
}

func newReservationResponse(r *model.Reservation, now time.Time) ReservationResponse {
	resp := ReservationResponse{
		ID:             r.ID,
		UserName:       r.UserName,
		Date:           r.Date,
		StartTime:      r.StartTime,
		EndTime:        r.EndTime,
		Purpose:        r.Purpose,
		Attendees:      r.Attendees,
		ContactEmail:   r.ContactEmail,
		ContactPhone:   r.ContactPhone,
		Status:         r.Status,
		CreatedAt:      r.CreatedAt,
		UpdatedAt:      r.UpdatedAt,
		TimeUntilStart: minutesUntilStart(r, now),
		IsUpcoming:     isUpcoming(r, now),
	}
	if r.Room.ID != 0 {
		room := newRoomResponse(&r.Room)
		resp.Room = &room
	}
	return resp
}

// minutesUntilStart returns whole minutes until the reservation starts, never
// negative. A malformed date or time yields zero.
func minutesUntilStart(r *model.Reservation, now time.Time) int {
	start, err := time.ParseInLocation("2006-01-02 15:04", r.Date+" "+r.StartTime, now.Location())
	if err != nil {
		return 0
	}
	until := start.Sub(now)
	if until <= 0 {
		return 0
	}
	return int(until.Minutes())
}

func isUpcoming(r *model.Reservation, now time.Time) bool {
	start, err := time.ParseInLocation("2006-01-02 15:04", r.Date+" "+r.StartTime, now.Location())
	if err != nil {
		return false
	}
	if !start.After(now) {
		return false
	}
	return r.Status == model.StatusPending || r.Status == model.StatusConfirmed
}

func countdownText(minutes int) string {
	if minutes < 60 {
		return fmt.Sprintf("%d minutes", minutes)
	}
	return fmt.Sprintf("%dh %dm", minutes/60, minutes%60)
}

type createReservationRequest struct {
	RoomID       int64  `json:"room_id"`
	UserName     string `json:"user_name"`
	Date         string `json:"date"`
	StartTime    string `json:"start_time"`
	EndTime      string `json:"end_time"`
	Purpose      string `json:"purpose"`
	Attendees    int    `json:"attendees"`
	ContactEmail string `json:"contact_email"`
	ContactPhone string `json:"contact_phone"`
}

// CreateReservation handles POST /api/reservations.
func (h *Handler) CreateReservation(c *gin.Context) {
	var req createReservationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.RoomID == 0 {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Room ID is required"})
		return
	}

	room, err := h.store.RoomByID(c.Request.Context(), req.RoomID)
	if errors.Is(err, store.ErrNotFound) {
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "Room not found"})
		return
	}
	if err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve room"})
		return
	}

	if req.UserName == "" {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "user_name is required"})
		return
	}
	if req.Date == "" || req.StartTime == "" || req.EndTime == "" || req.Purpose == "" || req.ContactEmail == "" {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Missing required fields: date, start_time, end_time, purpose, contact_email"})
		return
	}
	if _, err := time.Parse("2006-01-02", req.Date); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Invalid date format. Use YYYY-MM-DD"})
		return
	}
	if !validClock(req.StartTime) || !validClock(req.EndTime) {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Invalid time format. Use HH:MM"})
		return
	}
	if req.StartTime >= req.EndTime {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "start_time must be before end_time"})
		return
	}
	if req.Attendees <= 0 {
		req.Attendees = 1
	}

	overlap, err := h.store.HasOverlap(c.Request.Context(), req.RoomID, req.Date, req.StartTime, req.EndTime)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Failed to check availability"})
		return
	}
	if overlap {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "This time slot is already reserved for the selected room"})
		return
	}

	reservation := &model.Reservation{
		RoomID:       room.ID,
		UserName:     req.UserName,
		Date:         req.Date,
		StartTime:    req.StartTime,
		EndTime:      req.EndTime,
		Purpose:      req.Purpose,
		Attendees:    req.Attendees,
		ContactEmail: req.ContactEmail,
		ContactPhone: req.ContactPhone,
		Status:       model.StatusPending,
	}
	if err := h.store.CreateReservation(c.Request.Context(), reservation); err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Failed to create reservation"})
		return
	}
	c.JSON(http.StatusCreated, newReservationResponse(reservation, time.Now()))
}

// ListReservations handles GET /api/reservations with optional room_id,
// user_name, date, status and limit query filters.
func (h *Handler) ListReservations(c *gin.Context) {
	var filter store.ReservationFilter
	if raw := c.Query("room_id"); raw != "" {
		roomID, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Invalid room ID"})
			return
		}
		filter.RoomID = roomID
	}
	if raw := c.Query("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit <= 0 {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Invalid limit"})
			return
		}
		filter.Limit = limit
	}
	filter.UserName = c.Query("user_name")
	filter.Date = c.Query("date")
	filter.Status = c.Query("status")

	reservations, err := h.store.ListReservations(c.Request.Context(), filter)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve reservations"})
		return
	}
	c.JSON(http.StatusOK, serializeReservations(reservations))
}

// GetReservation handles GET /api/reservations/:id.
func (h *Handler) GetReservation(c *gin.Context) {
	id, ok := reservationIDParam(c)
	if !ok {
		return
	}

	reservation, err := h.store.ReservationByID(c.Request.Context(), id)
	if errors.Is(err, store.ErrNotFound) {
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "Reservation not found"})
		return
	}
	if err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve reservation"})
		return
	}
	c.JSON(http.StatusOK, newReservationResponse(reservation, time.Now()))
}

// GetUserReservations handles GET /api/reservations/user/:user_name.
func (h *Handler) GetUserReservations(c *gin.Context) {
	reservations, err := h.store.ListReservations(c.Request.Context(), store.ReservationFilter{
		UserName: c.Param("user_name"),
	})
	if err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve reservations"})
		return
	}
	c.JSON(http.StatusOK, serializeReservations(reservations))
}

// UpcomingReservationResponse is the condensed shape used by the upcoming
// feed. The room fields are flattened and a human countdown is attached.
type UpcomingReservationResponse struct {
	ID             int64  `json:"id"`
	RoomName       string `json:"room_name"`
	RoomBuilding   string `json:"room_building"`
	Date           string `json:"date"`
	StartTime      string `json:"start_time"`
	EndTime        string `json:"end_time"`
	Purpose        string `json:"purpose"`
	Attendees      int    `json:"attendees"`
	Status         string `json:"status"`
	TimeUntilStart int    `json:"time_until_start"`
	CountdownText  string `json:"countdown_text"`
}

// GetUpcomingReservations handles GET /api/reservations/upcoming for one
// user.
func (h *Handler) GetUpcomingReservations(c *gin.Context) {
	userName := c.Query("user_name")
	if userName == "" {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "user_name query parameter is required"})
		return
	}

	limit := 0
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Invalid limit"})
			return
		}
		limit = parsed
	}

	now := time.Now()
	reservations, err := h.store.UpcomingReservations(c.Request.Context(), userName, now, limit)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve reservations"})
		return
	}

	responses := make([]UpcomingReservationResponse, 0, len(reservations))
	for i := range reservations {
		r := &reservations[i]
		minutes := minutesUntilStart(r, now)
		responses = append(responses, UpcomingReservationResponse{
			ID:             r.ID,
			RoomName:       r.Room.Name,
			RoomBuilding:   r.Room.Building,
			Date:           r.Date,
			StartTime:      r.StartTime,
			EndTime:        r.EndTime,
			Purpose:        r.Purpose,
			Attendees:      r.Attendees,
			Status:         r.Status,
			TimeUntilStart: minutes,
			CountdownText:  countdownText(minutes),
		})
	}
	c.JSON(http.StatusOK, gin.H{
		"count":        len(responses),
		"reservations": responses,
	})
}

type reservationIDRequest struct {
	ID int64 `json:"id"`
}

// ConfirmReservation handles POST /api/reservations/confirm.
func (h *Handler) ConfirmReservation(c *gin.Context) {
	h.updateReservationStatus(c, h.store.ConfirmReservation, nil)
}

// CancelReservation handles POST /api/reservations/cancel. Cancelling a slot
// that is in progress frees the room, so subscribers are notified.
func (h *Handler) CancelReservation(c *gin.Context) {
	h.updateReservationStatus(c, h.store.CancelReservation, func(r *model.Reservation) {
		if occupancy.Covers(r, time.Now()) {
			h.notifyRoomFree(r.RoomID)
		}
	})
}

func (h *Handler) updateReservationStatus(c *gin.Context, update func(ctx context.Context, id int64) (*model.Reservation, error), after func(*model.Reservation)) {
	var req reservationIDRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.ID == 0 {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Reservation ID is required"})
		return
	}

	reservation, err := update(c.Request.Context(), req.ID)
	if errors.Is(err, store.ErrNotFound) {
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "Reservation not found"})
		return
	}
	if err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Failed to update reservation"})
		return
	}
	if after != nil {
		after(reservation)
	}
	c.JSON(http.StatusOK, newReservationResponse(reservation, time.Now()))
}

// DeleteReservation handles DELETE /api/reservations/:id. Callers must pass
// their user_name and may only delete their own reservations.
func (h *Handler) DeleteReservation(c *gin.Context) {
	id, ok := reservationIDParam(c)
	if !ok {
		return
	}

	reservation, err := h.store.ReservationByID(c.Request.Context(), id)
	if errors.Is(err, store.ErrNotFound) {
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "Reservation not found"})
		return
	}
	if err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve reservation"})
		return
	}
	if userName := c.Query("user_name"); userName != "" && userName != reservation.UserName {
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "You can only delete your own reservations"})
		return
	}

	if _, err := h.store.DeleteReservation(c.Request.Context(), id); err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete reservation"})
		return
	}
	if occupancy.Covers(reservation, time.Now()) {
		h.notifyRoomFree(reservation.RoomID)
	}
	c.Status(http.StatusNoContent)
}

func serializeReservations(reservations []model.Reservation) []ReservationResponse {
	now := time.Now()
	responses := make([]ReservationResponse, 0, len(reservations))
	for i := range reservations {
		responses = append(responses, newReservationResponse(&reservations[i], now))
	}
	return responses
}

func reservationIDParam(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Invalid reservation ID"})
		return 0, false
	}
	return id, true
}

// validClock reports whether s is a zero-padded 24h "HH:MM" clock value.
func validClock(s string) bool {
	if len(s) != 5 {
		return false
	}
	_, err := time.Parse("15:04", s)
	return err == nil
}
