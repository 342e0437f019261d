package ws

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"room-reservation-backend/internal/hub"
	"room-reservation-backend/internal/model"
	"room-reservation-backend/internal/occupancy"
	"room-reservation-backend/internal/store"
)

type fakeSource struct {
	rooms []model.Room
}

func (f *fakeSource) ActiveRooms(ctx context.Context) ([]model.Room, error) {
	return f.rooms, nil
}

func (f *fakeSource) RoomByID(ctx context.Context, id int64) (*model.Room, error) {
	for i := range f.rooms {
		if f.rooms[i].ID == id {
			return &f.rooms[i], nil
		}
	}
	return nil, store.ErrNotFound
}

func (f *fakeSource) ReservationsOn(ctx context.Context, roomID int64, date string) ([]model.Reservation, error) {
	return nil, nil
}

func newTestServer(t *testing.T, src *fakeSource, b hub.Broadcaster, roomPeriod, overviewPeriod time.Duration) *httptest.Server {
	t.Helper()
	gin.SetMode(gin.TestMode)

	h := NewHandler(occupancy.NewAggregator(src, time.Minute), b, roomPeriod, overviewPeriod)

	r := gin.New()
	r.GET("/ws/rooms/overview", h.Overview)
	r.GET("/ws/rooms/:room_id", h.Room)

	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv
}

func dial(t *testing.T, srv *httptest.Server, path string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + path
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readFrame(t *testing.T, conn *websocket.Conn) map[string]any {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var frame map[string]any
	require.NoError(t, conn.ReadJSON(&frame))
	return frame
}

// publishUntilReceived retries the publish until the client side observes a
// frame, closing the gap between a successful dial and the server side
// joining the group.
func publishUntilReceived(t *testing.T, conn *websocket.Conn, b hub.Broadcaster, group string, payload []byte) map[string]any {
	t.Helper()

	frames := make(chan map[string]any, 1)
	go func() {
		conn.SetReadDeadline(time.Now().Add(2 * time.Second))
		var frame map[string]any
		if err := conn.ReadJSON(&frame); err == nil {
			frames <- frame
		}
	}()

	deadline := time.After(2 * time.Second)
	for {
		select {
		case frame := <-frames:
			return frame
		case <-deadline:
			t.Fatal("timed out waiting for relayed frame")
		default:
			require.NoError(t, b.Publish(context.Background(), group, payload))
			time.Sleep(10 * time.Millisecond)
		}
	}
}

func TestRoomSocketInitialStatusThenRelay(t *testing.T) {
	b := hub.NewLocalHub()
	src := &fakeSource{rooms: []model.Room{{ID: 1, Name: "Orion", IsActive: true}}}
	srv := newTestServer(t, src, b, time.Hour, time.Hour)

	conn := dial(t, srv, "/ws/rooms/1")

	initial := readFrame(t, conn)
	assert.Equal(t, "room.status", initial["type"])
	status, ok := initial["status"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, float64(1), status["room_id"])
	assert.Equal(t, false, status["is_occupied"])
	assert.Equal(t, "free", status["occupancy_status"])

	relayed := publishUntilReceived(t, conn, b, hub.RoomGroup(1),
		[]byte(`{"type":"reservation.created","reservation_id":9,"room_id":1,"event_type":"created"}`))
	assert.Equal(t, "reservation.created", relayed["type"])
	assert.Equal(t, float64(9), relayed["reservation_id"])
}

func TestRoomSocketHeartbeat(t *testing.T) {
	b := hub.NewLocalHub()
	src := &fakeSource{rooms: []model.Room{{ID: 1, Name: "Orion", IsActive: true}}}
	srv := newTestServer(t, src, b, 50*time.Millisecond, time.Hour)

	conn := dial(t, srv, "/ws/rooms/1")

	initial := readFrame(t, conn)
	require.Equal(t, "room.status", initial["type"])

	beat := readFrame(t, conn)
	assert.Equal(t, "heartbeat", beat["type"])
	assert.NotEmpty(t, beat["timestamp"])
	status, ok := beat["status"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, float64(1), status["room_id"])
}

func TestRoomSocketUnknownRoomStaysSilent(t *testing.T) {
	b := hub.NewLocalHub()
	srv := newTestServer(t, &fakeSource{}, b, 50*time.Millisecond, time.Hour)

	conn := dial(t, srv, "/ws/rooms/42")

	// No initial frame and no heartbeats: the first thing the client sees
	// is a relayed group message.
	frame := publishUntilReceived(t, conn, b, hub.RoomGroup(42),
		[]byte(`{"type":"reservation.created","reservation_id":1,"room_id":42,"event_type":"created"}`))
	assert.Equal(t, "reservation.created", frame["type"])
}

func TestRoomSocketRejectsBadID(t *testing.T) {
	srv := newTestServer(t, &fakeSource{}, hub.NewLocalHub(), time.Hour, time.Hour)

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/rooms/not-a-number"
	_, resp, err := websocket.DefaultDialer.Dial(url, nil)

	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestOverviewSocketInitialStatusThenRelay(t *testing.T) {
	b := hub.NewLocalHub()
	src := &fakeSource{rooms: []model.Room{
		{ID: 1, Name: "Orion", Building: "North Wing", IsActive: true},
		{ID: 2, Name: "Lyra", Building: "South Wing", IsActive: true},
	}}
	srv := newTestServer(t, src, b, time.Hour, time.Hour)

	conn := dial(t, srv, "/ws/rooms/overview")

	initial := readFrame(t, conn)
	assert.Equal(t, "rooms.status", initial["type"])
	rooms, ok := initial["rooms"].([]any)
	require.True(t, ok)
	require.Len(t, rooms, 2)
	first, ok := rooms[0].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "Orion", first["room_name"])

	relayed := publishUntilReceived(t, conn, b, hub.OverviewGroup,
		[]byte(`{"type":"room.update","room_id":2,"event_type":"cancelled"}`))
	assert.Equal(t, "room.update", relayed["type"])
	assert.Equal(t, float64(2), relayed["room_id"])
}

func TestOverviewSocketEmptyRoomsListIsNotNull(t *testing.T) {
	srv := newTestServer(t, &fakeSource{}, hub.NewLocalHub(), time.Hour, time.Hour)

	conn := dial(t, srv, "/ws/rooms/overview")

	initial := readFrame(t, conn)
	require.Equal(t, "rooms.status", initial["type"])
	rooms, ok := initial["rooms"].([]any)
	require.True(t, ok, "rooms must be an array, not null")
	assert.Empty(t, rooms)
}

func TestSessionTeardownOnClientClose(t *testing.T) {
	b := hub.NewLocalHub()
	src := &fakeSource{rooms: []model.Room{{ID: 1, Name: "Orion", IsActive: true}}}
	srv := newTestServer(t, src, b, 50*time.Millisecond, time.Hour)

	conn := dial(t, srv, "/ws/rooms/1")
	readFrame(t, conn)
	require.NoError(t, conn.Close())

	// Publishing after the client left must not block or panic while the
	// server unwinds the session.
	for i := 0; i < 10; i++ {
		require.NoError(t, b.Publish(context.Background(), hub.RoomGroup(1), []byte(`{"type":"room.update"}`)))
		time.Sleep(10 * time.Millisecond)
	}
}
