package api

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/SherClockHolmes/webpush-go"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"room-reservation-backend/config"
	"room-reservation-backend/internal/hub"
	"room-reservation-backend/internal/model"
	"room-reservation-backend/internal/occupancy"
	"room-reservation-backend/internal/store"
	"room-reservation-backend/internal/ws"
)

// captureNotifier records dispatched room IDs instead of sending pushes.
type captureNotifier struct {
	mu    sync.Mutex
	rooms []int64
}

func (n *captureNotifier) Dispatch(roomID int64) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.rooms = append(n.rooms, roomID)
}

func (n *captureNotifier) dispatched() []int64 {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]int64(nil), n.rooms...)
}

type testEnv struct {
	router   *gin.Engine
	db       *gorm.DB
	store    store.Store
	notifier *captureNotifier
}

// newTestEnv wires the full router against an in-memory SQLite database.
func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := gorm.Open(sqlite.Open("file::memory:?cache=shared"), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })

	require.NoError(t, db.AutoMigrate(
		&model.Room{},
		&model.Reservation{},
		&model.ActivityLog{},
		&model.PushSubscription{},
	))

	broadcaster := hub.NewLocalHub()
	s := store.NewGormStore(db, hub.NewDispatcher(broadcaster))
	agg := occupancy.NewAggregator(s, 50*time.Millisecond)
	live := ws.NewHandler(agg, broadcaster, time.Minute, time.Minute)
	notifier := &captureNotifier{}

	cfg := &config.Config{}
	cfg.Server.RateLimitPerSec = 1000
	cfg.Server.RateLimitBurst = 1000
	cfg.Server.CacheTTL = time.Minute

	router := NewRouter(s, agg, live, notifier, &webpush.Options{VAPIDPublicKey: "test-public-key"}, cfg)

	return &testEnv{router: router, db: db, store: s, notifier: notifier}
}

func (e *testEnv) request(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(buf)
	}

	req, err := http.NewRequest(method, path, reader)
	require.NoError(t, err)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func decodeObject(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body
}

func decodeList(t *testing.T, w *httptest.ResponseRecorder) []map[string]any {
	t.Helper()
	var body []map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body
}

func (e *testEnv) seedRoom(t *testing.T, name, building string, active bool) *model.Room {
	t.Helper()
	room := &model.Room{
		Name:      name,
		Building:  building,
		Floor:     1,
		Capacity:  8,
		Amenities: `["projector","whiteboard"]`,
		IsActive:  true,
	}
	require.NoError(t, e.db.Create(room).Error)
	if !active {
		// A plain create would drop the false back to the column default.
		require.NoError(t, e.db.Model(room).Update("is_active", false).Error)
	}
	return room
}

// seedReservation writes directly through gorm so tests control every field
// without emitting events.
func (e *testEnv) seedReservation(t *testing.T, roomID int64, user, date, start, end, status string) *model.Reservation {
	t.Helper()
	r := &model.Reservation{
		RoomID:       roomID,
		UserName:     user,
		Date:         date,
		StartTime:    start,
		EndTime:      end,
		Purpose:      "Sync",
		Attendees:    3,
		ContactEmail: user + "@example.com",
		Status:       status,
	}
	require.NoError(t, e.db.Omit("Room").Create(r).Error)
	return r
}

func dateOffset(days int) string {
	return time.Now().AddDate(0, 0, days).Format("2006-01-02")
}
