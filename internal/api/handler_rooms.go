package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"room-reservation-backend/internal/model"
	"room-reservation-backend/internal/occupancy"
	"room-reservation-backend/internal/store"
)

// maxAvailabilityDays caps the availability query window.
const maxAvailabilityDays = 366

// RoomResponse represents the API response for a single room.
type RoomResponse struct {
	ID               int64             `json:"id"`
	Name             string            `json:"name"`
	Building         string            `json:"building"`
	Floor            int               `json:"floor"`
	Capacity         int               `json:"capacity"`
	Amenities        []string          `json:"amenities"`
	ImageURL         string            `json:"image_url"`
	IsActive         bool              `json:"is_active"`
	CreatedAt        time.Time         `json:"created_at"`
	UpdatedAt        time.Time         `json:"updated_at"`
	CurrentOccupancy *occupancy.Status `json:"current_occupancy,omitempty"`
}

func newRoomResponse(room *model.Room) RoomResponse {
	amenities := make([]string, 0)
	if room.Amenities != "" {
		// Stored as a JSON array; a malformed value degrades to empty.
		_ = json.Unmarshal([]byte(room.Amenities), &amenities)
	}
	return RoomResponse{
		ID:        room.ID,
		Name:      room.Name,
		Building:  room.Building,
		Floor:     room.Floor,
		Capacity:  room.Capacity,
		Amenities: amenities,
		ImageURL:  room.ImageURL,
		IsActive:  room.IsActive,
		CreatedAt: room.CreatedAt,
		UpdatedAt: room.UpdatedAt,
	}
}

// GetRooms handles GET /api/rooms.
func (h *Handler) GetRooms(c *gin.Context) {
	rooms, err := h.store.ActiveRooms(c.Request.Context())
	if err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve rooms"})
		return
	}

	responses := make([]RoomResponse, 0, len(rooms))
	for i := range rooms {
		responses = append(responses, newRoomResponse(&rooms[i]))
	}
	c.JSON(http.StatusOK, responses)
}

// GetRoom handles GET /api/rooms/:room_id, including the room's live
// occupancy.
func (h *Handler) GetRoom(c *gin.Context) {
	roomID, ok := roomIDParam(c)
	if !ok {
		return
	}

	room, err := h.store.RoomByID(c.Request.Context(), roomID)
	if errors.Is(err, store.ErrNotFound) {
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "Room not found"})
		return
	}
	if err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve room"})
		return
	}

	response := newRoomResponse(room)
	if status, err := h.agg.Snapshot(c.Request.Context(), roomID); err == nil {
		response.CurrentOccupancy = status
	}
	c.JSON(http.StatusOK, response)
}

// GetRoomsStatus handles GET /api/rooms/status with the occupancy of every
// active room. Responses are served from the aggregator's cache window.
func (h *Handler) GetRoomsStatus(c *gin.Context) {
	statuses, err := h.agg.SnapshotAll(c.Request.Context())
	if err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Failed to compute room statuses"})
		return
	}
	c.JSON(http.StatusOK, statuses)
}

// GetRoomStatus handles GET /api/rooms/:room_id/status for one room.
func (h *Handler) GetRoomStatus(c *gin.Context) {
	roomID, ok := roomIDParam(c)
	if !ok {
		return
	}

	status, err := h.agg.Snapshot(c.Request.Context(), roomID)
	if errors.Is(err, store.ErrNotFound) {
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "Room not found"})
		return
	}
	if err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Failed to compute room status"})
		return
	}
	c.JSON(http.StatusOK, status)
}

type availabilityDay struct {
	Date         string                    `json:"date"`
	IsAvailable  bool                      `json:"is_available"`
	Reservations []availabilityReservation `json:"reservations"`
}

type availabilityReservation struct {
	ID        int64  `json:"id"`
	StartTime string `json:"start_time"`
	EndTime   string `json:"end_time"`
	Status    string `json:"status"`
	Attendees int    `json:"attendees"`
}

// GetRoomAvailability handles
// GET /api/rooms/:room_id/availability?start_date=...&end_date=... with a
// per-day reservation breakdown.
func (h *Handler) GetRoomAvailability(c *gin.Context) {
	roomID, ok := roomIDParam(c)
	if !ok {
		return
	}

	room, err := h.store.RoomByID(c.Request.Context(), roomID)
	if errors.Is(err, store.ErrNotFound) {
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "Room not found"})
		return
	}
	if err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve room"})
		return
	}

	startStr := c.Query("start_date")
	endStr := c.Query("end_date")
	if startStr == "" || endStr == "" {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "start_date and end_date query parameters are required"})
		return
	}

	start, err := time.Parse("2006-01-02", startStr)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Invalid date format. Use YYYY-MM-DD"})
		return
	}
	end, err := time.Parse("2006-01-02", endStr)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Invalid date format. Use YYYY-MM-DD"})
		return
	}
	if end.Before(start) {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "end_date must not be before start_date"})
		return
	}
	if end.Sub(start) > maxAvailabilityDays*24*time.Hour {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Date range too large"})
		return
	}

	reservations, err := h.store.ReservationsInRange(c.Request.Context(), roomID, startStr, endStr)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve reservations"})
		return
	}

	byDate := make(map[string][]availabilityReservation)
	for _, r := range reservations {
		byDate[r.Date] = append(byDate[r.Date], availabilityReservation{
			ID:        r.ID,
			StartTime: r.StartTime,
			EndTime:   r.EndTime,
			Status:    r.Status,
			Attendees: r.Attendees,
		})
	}

	availability := make(map[string]availabilityDay)
	for day := start; !day.After(end); day = day.AddDate(0, 0, 1) {
		dateStr := day.Format("2006-01-02")
		dayReservations := byDate[dateStr]
		if dayReservations == nil {
			dayReservations = make([]availabilityReservation, 0)
		}
		availability[dateStr] = availabilityDay{
			Date: dateStr,
			// One reservation per hourly slot at most.
			IsAvailable:  len(dayReservations) < 24,
			Reservations: dayReservations,
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"room_id":      room.ID,
		"room_name":    room.Name,
		"start_date":   startStr,
		"end_date":     endStr,
		"availability": availability,
	})
}

func roomIDParam(c *gin.Context) (int64, bool) {
	roomID, err := strconv.ParseInt(c.Param("room_id"), 10, 64)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Invalid room ID"})
		return 0, false
	}
	return roomID, true
}
