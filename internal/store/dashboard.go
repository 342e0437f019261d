package store

import (
	"context"
	"fmt"
	"math"
	"time"

	"room-reservation-backend/internal/model"
)

const maxFeedLimit = 100

// ActivityFeed returns the most recent activity entries, newest first.
// The room name rides along via a join so deleted references degrade to
// null instead of breaking the feed.
func (s *gormStore) ActivityFeed(ctx context.Context, limit int) ([]ActivityEntry, error) {
	if limit <= 0 {
		limit = 20
	}
	if limit > maxFeedLimit {
		limit = maxFeedLimit
	}

	entries := make([]ActivityEntry, 0, limit)
	if err := s.db.WithContext(ctx).Model(&model.ActivityLog{}).
		Select("activity_logs.id, activity_logs.user_name, activity_logs.action, rooms.name AS room_name, activity_logs.description, activity_logs.created_at").
		Joins("LEFT JOIN rooms ON rooms.id = activity_logs.room_id").
		Order("activity_logs.created_at DESC").
		Limit(limit).
		Scan(&entries).Error; err != nil {
		return nil, fmt.Errorf("failed to fetch activity feed: %w", err)
	}
	return entries, nil
}

// DashboardStats computes the aggregate counters shown on the dashboard.
func (s *gormStore) DashboardStats(ctx context.Context, now time.Time) (*DashboardStats, error) {
	db := s.db.WithContext(ctx)
	today := now.Format("2006-01-02")
	clock := now.Format("15:04")

	var totalRooms int64
	if err := db.Model(&model.Room{}).
		Where("is_active = ?", true).
		Count(&totalRooms).Error; err != nil {
		return nil, fmt.Errorf("failed to count rooms: %w", err)
	}

	var totalReservations int64
	if err := db.Model(&model.Reservation{}).
		Where("status = ?", model.StatusConfirmed).
		Count(&totalReservations).Error; err != nil {
		return nil, fmt.Errorf("failed to count reservations: %w", err)
	}

	var todayReservations int64
	if err := db.Model(&model.Reservation{}).
		Where("date = ? AND status IN ?", today, activeStatuses).
		Count(&todayReservations).Error; err != nil {
		return nil, fmt.Errorf("failed to count today's reservations: %w", err)
	}

	var occupiedRooms int64
	if err := db.Model(&model.Reservation{}).
		Where("date = ? AND start_time <= ? AND end_time >= ? AND status = ?", today, clock, clock, model.StatusConfirmed).
		Distinct("room_id").
		Count(&occupiedRooms).Error; err != nil {
		return nil, fmt.Errorf("failed to count occupied rooms: %w", err)
	}

	var occupancyRate float64
	if totalRooms > 0 {
		occupancyRate = round2(float64(occupiedRooms) / float64(totalRooms) * 100)
	}

	popular := make([]PopularRoom, 0, 5)
	if err := db.Model(&model.Room{}).
		Select("rooms.id, rooms.name, rooms.building, rooms.capacity, COUNT(reservations.id) AS reservation_count").
		Joins("LEFT JOIN reservations ON reservations.room_id = rooms.id AND reservations.status = ?", model.StatusConfirmed).
		Where("rooms.is_active = ?", true).
		Group("rooms.id, rooms.name, rooms.building, rooms.capacity").
		Order("reservation_count DESC").
		Limit(5).
		Scan(&popular).Error; err != nil {
		return nil, fmt.Errorf("failed to fetch popular rooms: %w", err)
	}

	var avgAttendees float64
	if err := db.Model(&model.Reservation{}).
		Where("status = ?", model.StatusConfirmed).
		Select("COALESCE(AVG(attendees), 0)").
		Scan(&avgAttendees).Error; err != nil {
		return nil, fmt.Errorf("failed to average attendees: %w", err)
	}

	nextWeek := now.AddDate(0, 0, 7).Format("2006-01-02")
	var upcomingWeek int64
	if err := db.Model(&model.Reservation{}).
		Where("date >= ? AND date <= ? AND status IN ?", today, nextWeek, activeStatuses).
		Count(&upcomingWeek).Error; err != nil {
		return nil, fmt.Errorf("failed to count upcoming reservations: %w", err)
	}

	return &DashboardStats{
		TotalRooms:        totalRooms,
		TotalReservations: totalReservations,
		TodayReservations: todayReservations,
		OccupancyRate:     occupancyRate,
		OccupiedRooms:     occupiedRooms,
		PopularRooms:      popular,
		AvgAttendees:      round2(avgAttendees),
		UpcomingWeekCount: upcomingWeek,
		Timestamp:         now.Format(time.RFC3339),
	}, nil
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
