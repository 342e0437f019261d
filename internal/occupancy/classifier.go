// Package occupancy derives live room status from reservation data.
package occupancy

import (
	"time"

	"room-reservation-backend/internal/model"
)

// Occupancy classes reported in status snapshots.
const (
	ClassFree       = "free"
	ClassOccupied   = "occupied"
	ClassEndingSoon = "ending_soon"
)

// endingSoonMinutes is the remaining-minutes value at or below which an
// occupied room is labelled ending_soon.
const endingSoonMinutes = 15

// Status is the live occupancy snapshot of a single room.
type Status struct {
	RoomID            int64   `json:"room_id"`
	IsOccupied        bool    `json:"is_occupied"`
	OccupancyStatus   string  `json:"occupancy_status"`
	TimeUntilFree     *int    `json:"time_until_free"`
	ReservationsToday int     `json:"reservations_today"`
	NextAvailable     *string `json:"next_available"`
	CurrentAttendees  int     `json:"current_attendees"`
}

// OverviewStatus is a Status row for the all-rooms board, carrying the
// descriptive room fields alongside the live state.
type OverviewStatus struct {
	RoomName string `json:"room_name"`
	Building string `json:"building"`
	Floor    int    `json:"floor"`
	Capacity int    `json:"capacity"`
	Status
}

// clockSeconds converts a zero-padded "15:04" clock string into seconds
// since midnight. Malformed input yields -1, which never matches a valid
// instant; reservation times are validated at the API boundary.
func clockSeconds(clock string) int {
	t, err := time.Parse("15:04", clock)
	if err != nil {
		return -1
	}
	return t.Hour()*3600 + t.Minute()*60
}

// daySeconds is the clock of t as seconds since midnight.
func daySeconds(t time.Time) int {
	return t.Hour()*3600 + t.Minute()*60 + t.Second()
}

// Covers reports whether the reservation is in progress at now: its date
// matches and its [start, end] interval contains the clock, both bounds
// inclusive.
func Covers(r *model.Reservation, now time.Time) bool {
	if r.Date != now.Format("2006-01-02") {
		return false
	}
	sec := daySeconds(now)
	return clockSeconds(r.StartTime) <= sec && sec <= clockSeconds(r.EndTime)
}

// Classify computes the snapshot for one room from today's pending and
// confirmed reservations ordered by start time.
//
// A room is occupied by the first reservation whose [start, end] interval
// contains now, end inclusive. The next reservation is the first one
// starting strictly after now, found independently of the current one.
// Remaining minutes are floored; at fifteen or fewer the class switches
// from occupied to ending_soon.
func Classify(roomID int64, now time.Time, today []model.Reservation) Status {
	nowSec := daySeconds(now)

	var current *model.Reservation
	for i := range today {
		if clockSeconds(today[i].StartTime) <= nowSec && nowSec <= clockSeconds(today[i].EndTime) {
			current = &today[i]
			break
		}
	}

	var next *model.Reservation
	for i := range today {
		if clockSeconds(today[i].StartTime) > nowSec {
			next = &today[i]
			break
		}
	}

	st := Status{
		RoomID:            roomID,
		OccupancyStatus:   ClassFree,
		ReservationsToday: len(today),
	}

	if current != nil {
		st.IsOccupied = true
		st.CurrentAttendees = current.Attendees

		minutes := (clockSeconds(current.EndTime) - nowSec) / 60
		st.TimeUntilFree = &minutes
		if minutes <= endingSoonMinutes {
			st.OccupancyStatus = ClassEndingSoon
		} else {
			st.OccupancyStatus = ClassOccupied
		}

		end := current.EndTime
		st.NextAvailable = &end
	} else if next != nil {
		start := next.StartTime
		st.NextAvailable = &start
	}

	return st
}

// ClassifyRoom builds the overview row for a room, combining its
// descriptive fields with the classified status.
func ClassifyRoom(room *model.Room, now time.Time, today []model.Reservation) OverviewStatus {
	return OverviewStatus{
		RoomName: room.Name,
		Building: room.Building,
		Floor:    room.Floor,
		Capacity: room.Capacity,
		Status:   Classify(room.ID, now, today),
	}
}
