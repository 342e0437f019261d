package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"room-reservation-backend/internal/event"
	"room-reservation-backend/internal/model"
)

// ErrNotFound reports that a requested record does not exist or is not
// visible, such as a deactivated room.
var ErrNotFound = errors.New("record not found")

// activeStatuses are the reservation states that block a time slot.
var activeStatuses = []string{model.StatusPending, model.StatusConfirmed}

// Store defines the interface for all database operations.
type Store interface {
	// DB exposes the underlying connection for callers that manage their
	// own schema slice, such as the push subscription handlers.
	DB() *gorm.DB

	ActiveRooms(ctx context.Context) ([]model.Room, error)
	RoomByID(ctx context.Context, id int64) (*model.Room, error)

	ReservationsOn(ctx context.Context, roomID int64, date string) ([]model.Reservation, error)
	ReservationsInRange(ctx context.Context, roomID int64, startDate, endDate string) ([]model.Reservation, error)
	HasOverlap(ctx context.Context, roomID int64, date, startTime, endTime string) (bool, error)
	ListReservations(ctx context.Context, filter ReservationFilter) ([]model.Reservation, error)
	ReservationByID(ctx context.Context, id int64) (*model.Reservation, error)
	UpcomingReservations(ctx context.Context, userName string, now time.Time, limit int) ([]model.Reservation, error)

	CreateReservation(ctx context.Context, r *model.Reservation) error
	ConfirmReservation(ctx context.Context, id int64) (*model.Reservation, error)
	CancelReservation(ctx context.Context, id int64) (*model.Reservation, error)
	DeleteReservation(ctx context.Context, id int64) (*model.Reservation, error)

	AutoCancelPending(ctx context.Context, now time.Time, timeout time.Duration) (int, error)
	PurgeReservationsBefore(ctx context.Context, date string) (int64, error)

	ActivityFeed(ctx context.Context, limit int) ([]ActivityEntry, error)
	DashboardStats(ctx context.Context, now time.Time) (*DashboardStats, error)
}

// gormStore implements the Store interface using GORM. Every committed
// reservation mutation is reported to the emitter after the transaction,
// so subscribers never observe a change that later rolled back.
type gormStore struct {
	db      *gorm.DB
	emitter event.Emitter
}

// NewGormStore creates a new GORM-backed store. A nil emitter disables
// change notifications.
func NewGormStore(db *gorm.DB, emitter event.Emitter) Store {
	if emitter == nil {
		emitter = event.Discard{}
	}
	return &gormStore{db: db, emitter: emitter}
}

func (s *gormStore) DB() *gorm.DB { return s.db }

// ActiveRooms returns every bookable room.
func (s *gormStore) ActiveRooms(ctx context.Context) ([]model.Room, error) {
	var rooms []model.Room
	if err := s.db.WithContext(ctx).
		Where("is_active = ?", true).
		Order("building, floor, name").
		Find(&rooms).Error; err != nil {
		return nil, fmt.Errorf("failed to fetch rooms: %w", err)
	}
	return rooms, nil
}

// RoomByID returns one active room, or ErrNotFound when the room is
// missing or deactivated.
func (s *gormStore) RoomByID(ctx context.Context, id int64) (*model.Room, error) {
	var room model.Room
	err := s.db.WithContext(ctx).Where("is_active = ?", true).First(&room, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to fetch room %d: %w", id, err)
	}
	return &room, nil
}

func (s *gormStore) emit(ctx context.Context, eventType string, r *model.Reservation) {
	s.emitter.Emit(ctx, event.Change{
		Type:          eventType,
		RoomID:        r.RoomID,
		ReservationID: r.ID,
		Reservation:   event.NewPayload(r),
	})
}

func logActivity(tx *gorm.DB, userName, action string, roomID, reservationID *int64, description string) error {
	entry := model.ActivityLog{
		UserName:      userName,
		Action:        action,
		RoomID:        roomID,
		ReservationID: reservationID,
		Description:   description,
	}
	if err := tx.Create(&entry).Error; err != nil {
		return fmt.Errorf("failed to log activity: %w", err)
	}
	return nil
}
