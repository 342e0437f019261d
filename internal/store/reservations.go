package store

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"room-reservation-backend/internal/event"
	"room-reservation-backend/internal/model"
)

const defaultListLimit = 100

// ReservationsOn returns the pending and confirmed reservations of a room
// on one date, earliest first. This is the slice the status classifier
// consumes.
func (s *gormStore) ReservationsOn(ctx context.Context, roomID int64, date string) ([]model.Reservation, error) {
	var reservations []model.Reservation
	if err := s.db.WithContext(ctx).
		Where("room_id = ? AND date = ? AND status IN ?", roomID, date, activeStatuses).
		Order("start_time").
		Find(&reservations).Error; err != nil {
		return nil, fmt.Errorf("failed to fetch reservations for room %d on %s: %w", roomID, date, err)
	}
	return reservations, nil
}

// ReservationsInRange returns the pending and confirmed reservations of a
// room between two dates, both inclusive.
func (s *gormStore) ReservationsInRange(ctx context.Context, roomID int64, startDate, endDate string) ([]model.Reservation, error) {
	var reservations []model.Reservation
	if err := s.db.WithContext(ctx).
		Where("room_id = ? AND date >= ? AND date <= ? AND status IN ?", roomID, startDate, endDate, activeStatuses).
		Order("date, start_time").
		Find(&reservations).Error; err != nil {
		return nil, fmt.Errorf("failed to fetch reservations for room %d between %s and %s: %w", roomID, startDate, endDate, err)
	}
	return reservations, nil
}

// HasOverlap reports whether any pending or confirmed reservation of the
// room intersects the [startTime, endTime) slot on the given date.
func (s *gormStore) HasOverlap(ctx context.Context, roomID int64, date, startTime, endTime string) (bool, error) {
	var count int64
	if err := s.db.WithContext(ctx).Model(&model.Reservation{}).
		Where("room_id = ? AND date = ? AND status IN ? AND start_time < ? AND end_time > ?",
			roomID, date, activeStatuses, endTime, startTime).
		Count(&count).Error; err != nil {
		return false, fmt.Errorf("failed to check overlap for room %d: %w", roomID, err)
	}
	return count > 0, nil
}

// ListReservations returns reservations matching the filter, newest date
// first.
func (s *gormStore) ListReservations(ctx context.Context, filter ReservationFilter) ([]model.Reservation, error) {
	q := s.db.WithContext(ctx).Preload("Room")
	if filter.RoomID != 0 {
		q = q.Where("room_id = ?", filter.RoomID)
	}
	if filter.UserName != "" {
		q = q.Where("user_name = ?", filter.UserName)
	}
	if filter.Date != "" {
		q = q.Where("date = ?", filter.Date)
	}
	if filter.Status != "" {
		q = q.Where("status = ?", filter.Status)
	}

	limit := filter.Limit
	if limit <= 0 || limit > defaultListLimit {
		limit = defaultListLimit
	}

	var reservations []model.Reservation
	if err := q.Order("date DESC, start_time DESC").Limit(limit).Find(&reservations).Error; err != nil {
		return nil, fmt.Errorf("failed to list reservations: %w", err)
	}
	return reservations, nil
}

// ReservationByID returns one reservation with its room loaded, or
// ErrNotFound.
func (s *gormStore) ReservationByID(ctx context.Context, id int64) (*model.Reservation, error) {
	var reservation model.Reservation
	err := s.db.WithContext(ctx).Preload("Room").First(&reservation, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to fetch reservation %d: %w", id, err)
	}
	return &reservation, nil
}

// UpcomingReservations returns a user's next reservations from now on,
// soonest first.
func (s *gormStore) UpcomingReservations(ctx context.Context, userName string, now time.Time, limit int) ([]model.Reservation, error) {
	if limit <= 0 {
		limit = 10
	}
	today := now.Format("2006-01-02")
	clock := now.Format("15:04")

	var reservations []model.Reservation
	if err := s.db.WithContext(ctx).Preload("Room").
		Where("user_name = ? AND status IN ? AND (date > ? OR (date = ? AND start_time > ?))",
			userName, activeStatuses, today, today, clock).
		Order("date, start_time").
		Limit(limit).
		Find(&reservations).Error; err != nil {
		return nil, fmt.Errorf("failed to fetch upcoming reservations for %s: %w", userName, err)
	}
	return reservations, nil
}

// CreateReservation persists a new reservation, records the activity and
// announces the change. The caller is expected to have validated the slot;
// r comes back with ID, timestamps and Room populated.
func (s *gormStore) CreateReservation(ctx context.Context, r *model.Reservation) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit("Room").Create(r).Error; err != nil {
			return fmt.Errorf("failed to create reservation: %w", err)
		}
		if err := tx.First(&r.Room, r.RoomID).Error; err != nil {
			return fmt.Errorf("failed to load room %d: %w", r.RoomID, err)
		}
		return logActivity(tx, r.UserName, model.ActionReservationCreated, &r.RoomID, &r.ID,
			fmt.Sprintf("Created reservation for %s on %s at %s", r.Room.Name, r.Date, r.StartTime))
	})
	if err != nil {
		return err
	}

	s.emit(ctx, event.TypeCreated, r)
	return nil
}

// ConfirmReservation marks a reservation confirmed.
func (s *gormStore) ConfirmReservation(ctx context.Context, id int64) (*model.Reservation, error) {
	return s.setStatus(ctx, id, model.StatusConfirmed, event.TypeConfirmed, model.ActionReservationConfirmed,
		func(r *model.Reservation) string {
			return fmt.Sprintf("Confirmed reservation for %s on %s", r.Room.Name, r.Date)
		})
}

// CancelReservation marks a reservation cancelled.
func (s *gormStore) CancelReservation(ctx context.Context, id int64) (*model.Reservation, error) {
	return s.setStatus(ctx, id, model.StatusCancelled, event.TypeCancelled, model.ActionReservationCancelled,
		func(r *model.Reservation) string {
			return fmt.Sprintf("Cancelled reservation for %s on %s", r.Room.Name, r.Date)
		})
}

// setStatus moves a reservation into status. Re-applying the status the
// row already has is a no-op: nothing is written and nothing is announced.
// The preloaded Room association is omitted from the update so the status
// change never touches the rooms table.
func (s *gormStore) setStatus(ctx context.Context, id int64, status, eventType, action string, describe func(*model.Reservation) string) (*model.Reservation, error) {
	var reservation model.Reservation
	changed := false
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Preload("Room").First(&reservation, id).Error; err != nil {
			return err
		}
		if reservation.Status == status {
			return nil
		}
		if err := tx.Model(&reservation).Omit(clause.Associations).Update("status", status).Error; err != nil {
			return fmt.Errorf("failed to update reservation %d: %w", id, err)
		}
		changed = true
		return logActivity(tx, reservation.UserName, action, &reservation.RoomID, &reservation.ID,
			describe(&reservation))
	})
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	if changed {
		s.emit(ctx, eventType, &reservation)
	}
	return &reservation, nil
}

// DeleteReservation removes a reservation outright. The activity entry
// keeps the room reference; the reservation reference is gone with the
// row, and subscribers receive an identifier-only change.
func (s *gormStore) DeleteReservation(ctx context.Context, id int64) (*model.Reservation, error) {
	var reservation model.Reservation
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Preload("Room").First(&reservation, id).Error; err != nil {
			return err
		}
		if err := tx.Delete(&model.Reservation{}, id).Error; err != nil {
			return fmt.Errorf("failed to delete reservation %d: %w", id, err)
		}
		return logActivity(tx, reservation.UserName, model.ActionReservationDeleted, &reservation.RoomID, nil,
			fmt.Sprintf("Deleted reservation for %s on %s at %s", reservation.Room.Name, reservation.Date, reservation.StartTime))
	})
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	s.emitter.Emit(ctx, event.Change{
		Type:          event.TypeDeleted,
		RoomID:        reservation.RoomID,
		ReservationID: reservation.ID,
	})
	return &reservation, nil
}

// AutoCancelPending cancels reservations that sat unconfirmed for longer
// than timeout. Each row is handled in its own transaction and announced
// individually; one bad row does not stop the sweep.
func (s *gormStore) AutoCancelPending(ctx context.Context, now time.Time, timeout time.Duration) (int, error) {
	cutoff := now.Add(-timeout)

	var stale []model.Reservation
	if err := s.db.WithContext(ctx).Preload("Room").
		Where("status = ? AND created_at < ?", model.StatusPending, cutoff).
		Find(&stale).Error; err != nil {
		return 0, fmt.Errorf("failed to fetch stale pending reservations: %w", err)
	}

	minutes := int(timeout.Minutes())
	cancelled := 0
	for i := range stale {
		r := &stale[i]
		err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			if err := tx.Model(r).Omit(clause.Associations).Update("status", model.StatusCancelled).Error; err != nil {
				return fmt.Errorf("failed to cancel reservation %d: %w", r.ID, err)
			}
			return logActivity(tx, r.UserName, model.ActionReservationCancelled, &r.RoomID, &r.ID,
				fmt.Sprintf("Auto-cancelled reservation for %s due to no confirmation within %d minutes", r.Room.Name, minutes))
		})
		if err != nil {
			log.Printf("Error auto-cancelling reservation %d: %v", r.ID, err)
			continue
		}
		s.emit(ctx, event.TypeCancelled, r)
		cancelled++
	}
	return cancelled, nil
}

// PurgeReservationsBefore bulk-deletes reservations dated before the given
// day. Retention cleanup runs below the notification layer on purpose:
// nothing is announced and no activity is written.
func (s *gormStore) PurgeReservationsBefore(ctx context.Context, date string) (int64, error) {
	result := s.db.WithContext(ctx).Where("date < ?", date).Delete(&model.Reservation{})
	if result.Error != nil {
		return 0, fmt.Errorf("failed to purge reservations before %s: %w", date, result.Error)
	}
	return result.RowsAffected, nil
}
