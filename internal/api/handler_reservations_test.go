package api

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"room-reservation-backend/internal/model"
)

func validCreateBody(roomID int64) gin.H {
	return gin.H{
		"room_id":       roomID,
		"user_name":     "alice",
		"date":          dateOffset(1),
		"start_time":    "10:00",
		"end_time":      "11:00",
		"purpose":       "Quarterly planning",
		"attendees":     5,
		"contact_email": "alice@example.com",
		"contact_phone": "555-0100",
	}
}

func TestCreateReservation(t *testing.T) {
	env := newTestEnv(t)
	room := env.seedRoom(t, "Orion", "West", true)

	w := env.request(t, http.MethodPost, "/api/reservations", validCreateBody(room.ID))

	require.Equal(t, http.StatusCreated, w.Code)
	body := decodeObject(t, w)
	assert.Equal(t, "alice", body["user_name"])
	assert.Equal(t, "pending", body["status"])
	assert.Equal(t, float64(5), body["attendees"])
	assert.Equal(t, true, body["is_upcoming"])
	assert.Greater(t, body["time_until_start"], float64(0))

	nested, ok := body["room"].(map[string]any)
	require.True(t, ok, "created reservation must embed its room")
	assert.Equal(t, "Orion", nested["name"])

	var count int64
	env.db.Model(&model.Reservation{}).Count(&count)
	assert.Equal(t, int64(1), count)

	var logEntry model.ActivityLog
	require.NoError(t, env.db.Where("action = ?", model.ActionReservationCreated).First(&logEntry).Error)
	assert.Equal(t, fmt.Sprintf("Created reservation for Orion on %s at 10:00", dateOffset(1)), logEntry.Description)
	assert.Empty(t, env.notifier.dispatched())
}

func TestCreateReservationValidation(t *testing.T) {
	env := newTestEnv(t)
	room := env.seedRoom(t, "Orion", "West", true)

	cases := []struct {
		name    string
		mutate  func(gin.H)
		status  int
		message string
	}{
		{
			name:    "missing room id",
			mutate:  func(b gin.H) { delete(b, "room_id") },
			status:  http.StatusBadRequest,
			message: "Room ID is required",
		},
		{
			name:    "unknown room",
			mutate:  func(b gin.H) { b["room_id"] = 9999 },
			status:  http.StatusNotFound,
			message: "Room not found",
		},
		{
			name:    "missing user name",
			mutate:  func(b gin.H) { delete(b, "user_name") },
			status:  http.StatusBadRequest,
			message: "user_name is required",
		},
		{
			name:    "missing purpose",
			mutate:  func(b gin.H) { delete(b, "purpose") },
			status:  http.StatusBadRequest,
			message: "Missing required fields: date, start_time, end_time, purpose, contact_email",
		},
		{
			name:    "missing contact email",
			mutate:  func(b gin.H) { delete(b, "contact_email") },
			status:  http.StatusBadRequest,
			message: "Missing required fields: date, start_time, end_time, purpose, contact_email",
		},
		{
			name:    "bad date",
			mutate:  func(b gin.H) { b["date"] = "2025/03/14" },
			status:  http.StatusBadRequest,
			message: "Invalid date format. Use YYYY-MM-DD",
		},
		{
			name:    "bad start time",
			mutate:  func(b gin.H) { b["start_time"] = "9:00" },
			status:  http.StatusBadRequest,
			message: "Invalid time format. Use HH:MM",
		},
		{
			name:    "bad end time",
			mutate:  func(b gin.H) { b["end_time"] = "25:00" },
			status:  http.StatusBadRequest,
			message: "Invalid time format. Use HH:MM",
		},
		{
			name:    "start after end",
			mutate:  func(b gin.H) { b["start_time"] = "12:00"; b["end_time"] = "11:00" },
			status:  http.StatusBadRequest,
			message: "start_time must be before end_time",
		},
		{
			name:    "start equals end",
			mutate:  func(b gin.H) { b["start_time"] = "11:00"; b["end_time"] = "11:00" },
			status:  http.StatusBadRequest,
			message: "start_time must be before end_time",
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			body := validCreateBody(room.ID)
			tc.mutate(body)

			w := env.request(t, http.MethodPost, "/api/reservations", body)

			require.Equal(t, tc.status, w.Code)
			assert.Equal(t, tc.message, decodeObject(t, w)["error"])
		})
	}

	var count int64
	env.db.Model(&model.Reservation{}).Count(&count)
	assert.Equal(t, int64(0), count, "no rejected request may persist a reservation")
}

func TestCreateReservationOverlap(t *testing.T) {
	env := newTestEnv(t)
	room := env.seedRoom(t, "Orion", "West", true)
	day := dateOffset(1)
	env.seedReservation(t, room.ID, "bob", day, "10:00", "11:00", "confirmed")

	body := validCreateBody(room.ID)
	body["start_time"] = "10:30"
	body["end_time"] = "11:30"
	w := env.request(t, http.MethodPost, "/api/reservations", body)
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "This time slot is already reserved for the selected room", decodeObject(t, w)["error"])

	// Back-to-back slots do not overlap.
	body = validCreateBody(room.ID)
	body["start_time"] = "11:00"
	body["end_time"] = "12:00"
	w = env.request(t, http.MethodPost, "/api/reservations", body)
	assert.Equal(t, http.StatusCreated, w.Code)
}

func TestCreateReservationIgnoresCancelled(t *testing.T) {
	env := newTestEnv(t)
	room := env.seedRoom(t, "Orion", "West", true)
	env.seedReservation(t, room.ID, "bob", dateOffset(1), "10:00", "11:00", "cancelled")

	w := env.request(t, http.MethodPost, "/api/reservations", validCreateBody(room.ID))

	assert.Equal(t, http.StatusCreated, w.Code, "cancelled slots must not block new bookings")
}

func TestCreateReservationDefaultsAttendees(t *testing.T) {
	env := newTestEnv(t)
	room := env.seedRoom(t, "Orion", "West", true)

	body := validCreateBody(room.ID)
	body["attendees"] = 0
	w := env.request(t, http.MethodPost, "/api/reservations", body)

	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, float64(1), decodeObject(t, w)["attendees"])
}

func TestListReservations(t *testing.T) {
	env := newTestEnv(t)
	orion := env.seedRoom(t, "Orion", "West", true)
	cascade := env.seedRoom(t, "Cascade", "East", true)
	env.seedReservation(t, orion.ID, "alice", dateOffset(1), "10:00", "11:00", "pending")
	env.seedReservation(t, orion.ID, "bob", dateOffset(1), "12:00", "13:00", "confirmed")
	env.seedReservation(t, cascade.ID, "alice", dateOffset(2), "09:00", "10:00", "pending")

	w := env.request(t, http.MethodGet, "/api/reservations", nil)
	require.Equal(t, http.StatusOK, w.Code)
	all := decodeList(t, w)
	require.Len(t, all, 3)
	assert.Equal(t, dateOffset(2), all[0]["date"], "newest date first")

	w = env.request(t, http.MethodGet, "/api/reservations?user_name=alice", nil)
	assert.Len(t, decodeList(t, w), 2)

	w = env.request(t, http.MethodGet, "/api/reservations?status=confirmed", nil)
	assert.Len(t, decodeList(t, w), 1)

	w = env.request(t, http.MethodGet, fmt.Sprintf("/api/reservations?room_id=%d", cascade.ID), nil)
	assert.Len(t, decodeList(t, w), 1)

	w = env.request(t, http.MethodGet, "/api/reservations?date="+dateOffset(1), nil)
	assert.Len(t, decodeList(t, w), 2)

	w = env.request(t, http.MethodGet, "/api/reservations?limit=2", nil)
	assert.Len(t, decodeList(t, w), 2)

	w = env.request(t, http.MethodGet, "/api/reservations?room_id=abc", nil)
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Invalid room ID", decodeObject(t, w)["error"])

	w = env.request(t, http.MethodGet, "/api/reservations?limit=abc", nil)
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Invalid limit", decodeObject(t, w)["error"])
}

func TestGetReservation(t *testing.T) {
	env := newTestEnv(t)
	room := env.seedRoom(t, "Orion", "West", true)
	r := env.seedReservation(t, room.ID, "alice", dateOffset(1), "10:00", "11:00", "pending")

	w := env.request(t, http.MethodGet, fmt.Sprintf("/api/reservations/%d", r.ID), nil)
	require.Equal(t, http.StatusOK, w.Code)
	body := decodeObject(t, w)
	assert.Equal(t, float64(r.ID), body["id"])
	assert.Equal(t, "Orion", body["room"].(map[string]any)["name"])

	w = env.request(t, http.MethodGet, "/api/reservations/9999", nil)
	require.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "Reservation not found", decodeObject(t, w)["error"])

	w = env.request(t, http.MethodGet, "/api/reservations/abc", nil)
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Invalid reservation ID", decodeObject(t, w)["error"])
}

func TestGetUserReservations(t *testing.T) {
	env := newTestEnv(t)
	room := env.seedRoom(t, "Orion", "West", true)
	env.seedReservation(t, room.ID, "alice", dateOffset(1), "10:00", "11:00", "pending")
	env.seedReservation(t, room.ID, "alice", dateOffset(2), "10:00", "11:00", "pending")
	env.seedReservation(t, room.ID, "bob", dateOffset(1), "12:00", "13:00", "pending")

	w := env.request(t, http.MethodGet, "/api/reservations/user/alice", nil)

	require.Equal(t, http.StatusOK, w.Code)
	reservations := decodeList(t, w)
	require.Len(t, reservations, 2)
	for _, r := range reservations {
		assert.Equal(t, "alice", r["user_name"])
	}
}

func TestGetUpcomingReservations(t *testing.T) {
	env := newTestEnv(t)
	room := env.seedRoom(t, "Orion", "West", true)
	env.seedReservation(t, room.ID, "alice", dateOffset(1), "10:00", "11:00", "confirmed")
	env.seedReservation(t, room.ID, "alice", dateOffset(-1), "10:00", "11:00", "confirmed")
	env.seedReservation(t, room.ID, "bob", dateOffset(1), "12:00", "13:00", "confirmed")

	w := env.request(t, http.MethodGet, "/api/reservations/upcoming?user_name=alice", nil)

	require.Equal(t, http.StatusOK, w.Code)
	body := decodeObject(t, w)
	assert.Equal(t, float64(1), body["count"])

	reservations := body["reservations"].([]any)
	require.Len(t, reservations, 1)
	first := reservations[0].(map[string]any)
	assert.Equal(t, "Orion", first["room_name"])
	assert.Equal(t, "West", first["room_building"])
	assert.Greater(t, first["time_until_start"], float64(60))
	assert.Regexp(t, `^\d+h \d+m$`, first["countdown_text"])
}

func TestGetUpcomingReservationsRequiresUser(t *testing.T) {
	env := newTestEnv(t)

	w := env.request(t, http.MethodGet, "/api/reservations/upcoming", nil)

	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "user_name query parameter is required", decodeObject(t, w)["error"])
}

func TestConfirmReservation(t *testing.T) {
	env := newTestEnv(t)
	room := env.seedRoom(t, "Orion", "West", true)
	r := env.seedReservation(t, room.ID, "alice", dateOffset(1), "10:00", "11:00", "pending")

	w := env.request(t, http.MethodPost, "/api/reservations/confirm", gin.H{"id": r.ID})

	require.Equal(t, http.StatusOK, w.Code)
	body := decodeObject(t, w)
	assert.Equal(t, "confirmed", body["status"])

	var stored model.Reservation
	require.NoError(t, env.db.First(&stored, r.ID).Error)
	assert.Equal(t, "confirmed", stored.Status)

	var logEntry model.ActivityLog
	require.NoError(t, env.db.Where("action = ?", model.ActionReservationConfirmed).First(&logEntry).Error)
	assert.Equal(t, fmt.Sprintf("Confirmed reservation for Orion on %s", dateOffset(1)), logEntry.Description)

	// Re-confirming succeeds but records nothing new.
	w = env.request(t, http.MethodPost, "/api/reservations/confirm", gin.H{"id": r.ID})
	require.Equal(t, http.StatusOK, w.Code)
	var logCount int64
	env.db.Model(&model.ActivityLog{}).Where("action = ?", model.ActionReservationConfirmed).Count(&logCount)
	assert.Equal(t, int64(1), logCount)
}

func TestConfirmReservationErrors(t *testing.T) {
	env := newTestEnv(t)

	w := env.request(t, http.MethodPost, "/api/reservations/confirm", gin.H{})
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Reservation ID is required", decodeObject(t, w)["error"])

	w = env.request(t, http.MethodPost, "/api/reservations/confirm", gin.H{"id": 9999})
	require.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "Reservation not found", decodeObject(t, w)["error"])
}

func TestCancelReservationFreesRoom(t *testing.T) {
	env := newTestEnv(t)
	room := env.seedRoom(t, "Orion", "West", true)
	// Spans the whole of today, so cancelling frees the room right now.
	r := env.seedReservation(t, room.ID, "alice", dateOffset(0), "00:00", "23:59", "pending")

	w := env.request(t, http.MethodPost, "/api/reservations/cancel", gin.H{"id": r.ID})

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "cancelled", decodeObject(t, w)["status"])
	assert.Equal(t, []int64{room.ID}, env.notifier.dispatched())
}

func TestCancelReservationFutureSlotStaysQuiet(t *testing.T) {
	env := newTestEnv(t)
	room := env.seedRoom(t, "Orion", "West", true)
	r := env.seedReservation(t, room.ID, "alice", dateOffset(1), "10:00", "11:00", "pending")

	w := env.request(t, http.MethodPost, "/api/reservations/cancel", gin.H{"id": r.ID})

	require.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, env.notifier.dispatched(), "future slots free no room today")
}

func TestDeleteReservation(t *testing.T) {
	env := newTestEnv(t)
	room := env.seedRoom(t, "Orion", "West", true)
	r := env.seedReservation(t, room.ID, "alice", dateOffset(1), "10:00", "11:00", "pending")

	w := env.request(t, http.MethodDelete, fmt.Sprintf("/api/reservations/%d?user_name=alice", r.ID), nil)

	require.Equal(t, http.StatusNoContent, w.Code)

	var count int64
	env.db.Model(&model.Reservation{}).Count(&count)
	assert.Equal(t, int64(0), count)

	var logEntry model.ActivityLog
	require.NoError(t, env.db.Where("action = ?", model.ActionReservationDeleted).First(&logEntry).Error)
	assert.Equal(t, fmt.Sprintf("Deleted reservation for Orion on %s at 10:00", dateOffset(1)), logEntry.Description)
	assert.Nil(t, logEntry.ReservationID, "log must not point at the deleted row")
	assert.Empty(t, env.notifier.dispatched())
}

func TestDeleteReservationOwnership(t *testing.T) {
	env := newTestEnv(t)
	room := env.seedRoom(t, "Orion", "West", true)
	r := env.seedReservation(t, room.ID, "alice", dateOffset(1), "10:00", "11:00", "pending")

	w := env.request(t, http.MethodDelete, fmt.Sprintf("/api/reservations/%d?user_name=bob", r.ID), nil)

	require.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, "You can only delete your own reservations", decodeObject(t, w)["error"])

	var count int64
	env.db.Model(&model.Reservation{}).Count(&count)
	assert.Equal(t, int64(1), count, "forbidden delete must not remove the row")
}

func TestDeleteReservationFreesRoom(t *testing.T) {
	env := newTestEnv(t)
	room := env.seedRoom(t, "Orion", "West", true)
	r := env.seedReservation(t, room.ID, "alice", dateOffset(0), "00:00", "23:59", "confirmed")

	w := env.request(t, http.MethodDelete, fmt.Sprintf("/api/reservations/%d?user_name=alice", r.ID), nil)

	require.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, []int64{room.ID}, env.notifier.dispatched())
}

func TestDeleteReservationNotFound(t *testing.T) {
	env := newTestEnv(t)

	w := env.request(t, http.MethodDelete, "/api/reservations/9999", nil)

	require.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "Reservation not found", decodeObject(t, w)["error"])
}
