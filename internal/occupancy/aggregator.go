package occupancy

import (
	"context"
	"fmt"
	"time"

	"github.com/patrickmn/go-cache"

	"room-reservation-backend/internal/model"
)

// DataSource is the slice of the persistence layer the aggregator reads.
// RoomByID reports a missing or inactive room with the store's not-found
// sentinel, which callers pass through unchanged.
type DataSource interface {
	ActiveRooms(ctx context.Context) ([]model.Room, error)
	RoomByID(ctx context.Context, id int64) (*model.Room, error)
	ReservationsOn(ctx context.Context, roomID int64, date string) ([]model.Reservation, error)
}

const cacheKeyAll = "room_status_all"

// Aggregator computes room status snapshots. HTTP readers are served
// through a short-lived cache; heartbeat callers use the Live variants to
// bypass it, trading database load for freshness.
type Aggregator struct {
	src   DataSource
	cache *cache.Cache
	ttl   time.Duration
	now   func() time.Time
}

// NewAggregator creates an aggregator over src with the given cache TTL.
func NewAggregator(src DataSource, ttl time.Duration) *Aggregator {
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	return &Aggregator{
		src:   src,
		cache: cache.New(ttl, 2*ttl),
		ttl:   ttl,
		now:   time.Now,
	}
}

// Snapshot returns one room's status, serving a cached copy when fresh.
func (a *Aggregator) Snapshot(ctx context.Context, roomID int64) (*Status, error) {
	key := fmt.Sprintf("room_status_%d", roomID)
	if v, found := a.cache.Get(key); found {
		st := v.(Status)
		return &st, nil
	}

	st, err := a.LiveSnapshot(ctx, roomID)
	if err != nil {
		return nil, err
	}
	a.cache.Set(key, *st, a.ttl)
	return st, nil
}

// LiveSnapshot recomputes one room's status, skipping the cache.
func (a *Aggregator) LiveSnapshot(ctx context.Context, roomID int64) (*Status, error) {
	room, err := a.src.RoomByID(ctx, roomID)
	if err != nil {
		return nil, err
	}

	now := a.now()
	today, err := a.src.ReservationsOn(ctx, room.ID, now.Format("2006-01-02"))
	if err != nil {
		return nil, err
	}

	st := Classify(room.ID, now, today)
	return &st, nil
}

// SnapshotAll returns the status of every active room, serving a cached
// copy when fresh.
func (a *Aggregator) SnapshotAll(ctx context.Context) ([]OverviewStatus, error) {
	if v, found := a.cache.Get(cacheKeyAll); found {
		return v.([]OverviewStatus), nil
	}

	statuses, err := a.LiveSnapshotAll(ctx)
	if err != nil {
		return nil, err
	}
	a.cache.Set(cacheKeyAll, statuses, a.ttl)
	return statuses, nil
}

// LiveSnapshotAll recomputes the status of every active room, skipping the
// cache.
func (a *Aggregator) LiveSnapshotAll(ctx context.Context) ([]OverviewStatus, error) {
	rooms, err := a.src.ActiveRooms(ctx)
	if err != nil {
		return nil, err
	}

	now := a.now()
	date := now.Format("2006-01-02")

	statuses := make([]OverviewStatus, 0, len(rooms))
	for i := range rooms {
		today, err := a.src.ReservationsOn(ctx, rooms[i].ID, date)
		if err != nil {
			return nil, err
		}
		statuses = append(statuses, ClassifyRoom(&rooms[i], now, today))
	}
	return statuses, nil
}
