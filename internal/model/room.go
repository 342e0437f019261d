package model

import "time"

// Room represents a reservable meeting room.
type Room struct {
	ID        int64  `gorm:"primaryKey"`
	Name      string `gorm:"uniqueIndex;size:150;not null"`
	Building  string `gorm:"size:150;index:idx_building_floor,priority:1"`
	Floor     int    `gorm:"default:1;index:idx_building_floor,priority:2"`
	Capacity  int    `gorm:"default:1"`
	Amenities string `gorm:"size:1024"` // JSON array of strings, e.g. ["projector","whiteboard"]
	ImageURL  string `gorm:"size:512"`
	IsActive  bool   `gorm:"not null;default:true;index"`
	CreatedAt time.Time
	UpdatedAt time.Time

	// Associations
	Reservations []Reservation `gorm:"foreignKey:RoomID"`
}
