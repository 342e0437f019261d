package store

import "time"

// ReservationFilter narrows ListReservations. Zero values mean the
// dimension is not filtered.
type ReservationFilter struct {
	RoomID   int64
	UserName string
	Date     string
	Status   string
	Limit    int
}

// ActivityEntry is one row of the activity feed. RoomName is nil when the
// entry never referenced a room or the room has been removed.
type ActivityEntry struct {
	ID          int64     `json:"id"`
	UserName    string    `json:"user_name"`
	Action      string    `json:"action"`
	RoomName    *string   `json:"room_name"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"created_at"`
}

// PopularRoom is a dashboard entry ranking rooms by confirmed bookings.
type PopularRoom struct {
	ID               int64  `json:"id"`
	Name             string `json:"name"`
	Building         string `json:"building"`
	ReservationCount int64  `json:"reservation_count"`
	Capacity         int    `json:"capacity"`
}

// DashboardStats is the aggregate view served at /api/stats/dashboard.
type DashboardStats struct {
	TotalRooms        int64         `json:"total_rooms"`
	TotalReservations int64         `json:"total_reservations"`
	TodayReservations int64         `json:"today_reservations"`
	OccupancyRate     float64       `json:"occupancy_rate"`
	OccupiedRooms     int64         `json:"occupied_rooms"`
	PopularRooms      []PopularRoom `json:"popular_rooms"`
	AvgAttendees      float64       `json:"avg_attendees"`
	UpcomingWeekCount int64         `json:"upcoming_week_count"`
	Timestamp         string        `json:"timestamp"`
}
