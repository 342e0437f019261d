package model

import "time"

// Reservation statuses.
const (
	StatusPending   = "pending"
	StatusConfirmed = "confirmed"
	StatusCancelled = "cancelled"
)

// Reservation represents a booking of a room for one contiguous slot on a
// single day. Date is "2006-01-02" and StartTime/EndTime are zero-padded
// "15:04", so lexical order equals chronological order within a day.
type Reservation struct {
	ID           int64  `gorm:"primaryKey"`
	RoomID       int64  `gorm:"not null;index:idx_room_date,priority:1"`
	UserName     string `gorm:"size:150;not null;index"`
	Date         string `gorm:"size:10;not null;index:idx_room_date,priority:2"`
	StartTime    string `gorm:"size:5;not null;index:idx_room_date,priority:3"`
	EndTime      string `gorm:"size:5;not null"`
	Purpose      string `gorm:"size:512"`
	Attendees    int    `gorm:"default:1"`
	ContactEmail string `gorm:"size:254"`
	ContactPhone string `gorm:"size:50"`
	Status       string `gorm:"size:20;not null;default:pending;index:idx_status_date,priority:1"`
	CreatedAt    time.Time `gorm:"index"`
	UpdatedAt    time.Time

	// Associations
	Room Room `gorm:"constraint:OnDelete:CASCADE"`
}
