package api

import (
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPutSubscriptionInvalidBody(t *testing.T) {
	env := newTestEnv(t)

	w := env.request(t, http.MethodPut, "/api/subscriptions", nil)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, decodeObject(t, w), "error")
}

func TestSubscriptionLifecycle(t *testing.T) {
	env := newTestEnv(t)
	orion := env.seedRoom(t, "Orion", "West", true)
	cascade := env.seedRoom(t, "Cascade", "East", true)

	endpoint := "https://push.example.com/sub/abc123"
	w := env.request(t, http.MethodPut, "/api/subscriptions", gin.H{
		"endpoint":         endpoint,
		"p256dh":           "key-material",
		"auth":             "auth-secret",
		"subscribed_rooms": []int64{orion.ID, cascade.ID},
	})
	require.Equal(t, http.StatusCreated, w.Code)

	w = env.request(t, http.MethodGet, "/api/subscriptions?endpoint="+endpoint, nil)
	require.Equal(t, http.StatusOK, w.Code)
	body := decodeObject(t, w)
	assert.Equal(t, endpoint, body["endpoint"])
	assert.Len(t, body["subscribed_rooms"], 2)

	// Re-putting the same endpoint replaces the room set.
	w = env.request(t, http.MethodPut, "/api/subscriptions", gin.H{
		"endpoint":         endpoint,
		"p256dh":           "rotated-key",
		"auth":             "auth-secret",
		"subscribed_rooms": []int64{cascade.ID},
	})
	require.Equal(t, http.StatusCreated, w.Code)

	w = env.request(t, http.MethodGet, "/api/subscriptions?endpoint="+endpoint, nil)
	require.Equal(t, http.StatusOK, w.Code)
	rooms := decodeObject(t, w)["subscribed_rooms"].([]any)
	require.Len(t, rooms, 1)
	assert.Equal(t, float64(cascade.ID), rooms[0])

	w = env.request(t, http.MethodDelete, "/api/subscriptions", gin.H{"endpoint": endpoint})
	require.Equal(t, http.StatusNoContent, w.Code)

	w = env.request(t, http.MethodGet, "/api/subscriptions?endpoint="+endpoint, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestGetSubscriptionRequiresEndpoint(t *testing.T) {
	env := newTestEnv(t)

	w := env.request(t, http.MethodGet, "/api/subscriptions", nil)

	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "endpoint is required", decodeObject(t, w)["error"])
}

func TestGetVAPIDPublicKey(t *testing.T) {
	env := newTestEnv(t)

	w := env.request(t, http.MethodGet, "/api/vapid_public_key", nil)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "test-public-key", decodeObject(t, w)["public_key"])
}

func TestWebsocketRouteRejectsPlainRequests(t *testing.T) {
	env := newTestEnv(t)
	env.seedRoom(t, "Orion", "West", true)

	w := env.request(t, http.MethodGet, "/ws/rooms/overview", nil)

	assert.Equal(t, http.StatusBadRequest, w.Code, "non-upgrade requests cannot hold a socket")
}
