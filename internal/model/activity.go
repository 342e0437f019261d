package model

import "time"

// ActivityLog actions.
const (
	ActionReservationCreated   = "reservation_created"
	ActionReservationConfirmed = "reservation_confirmed"
	ActionReservationCancelled = "reservation_cancelled"
	ActionReservationDeleted   = "reservation_deleted"
)

// ActivityLog is an append-only record of reservation lifecycle actions.
// Room and reservation references are nullable so the log survives deletes.
type ActivityLog struct {
	ID            int64  `gorm:"primaryKey"`
	UserName      string `gorm:"size:150"`
	Action        string `gorm:"size:50;not null"`
	RoomID        *int64
	ReservationID *int64
	Description   string    `gorm:"size:512"`
	CreatedAt     time.Time `gorm:"not null;index"`
}
