package api

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
)

// GetDashboardStats handles GET /api/stats/dashboard.
func (h *Handler) GetDashboardStats(c *gin.Context) {
	stats, err := h.store.DashboardStats(c.Request.Context(), time.Now())
	if err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Failed to compute dashboard statistics"})
		return
	}
	c.JSON(http.StatusOK, stats)
}

type activityResponse struct {
	ID          int64     `json:"id"`
	UserName    string    `json:"user_name"`
	Action      string    `json:"action"`
	RoomName    *string   `json:"room_name"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"created_at"`
	TimeAgo     string    `json:"time_ago"`
}

// GetActivityFeed handles GET /api/activity/feed.
func (h *Handler) GetActivityFeed(c *gin.Context) {
	limit := 0
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Invalid limit"})
			return
		}
		limit = parsed
	}

	entries, err := h.store.ActivityFeed(c.Request.Context(), limit)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve activity feed"})
		return
	}

	now := time.Now()
	activities := make([]activityResponse, 0, len(entries))
	for _, e := range entries {
		activities = append(activities, activityResponse{
			ID:          e.ID,
			UserName:    e.UserName,
			Action:      e.Action,
			RoomName:    e.RoomName,
			Description: e.Description,
			CreatedAt:   e.CreatedAt,
			TimeAgo:     timeAgo(e.CreatedAt, now),
		})
	}
	c.JSON(http.StatusOK, gin.H{
		"count":      len(activities),
		"activities": activities,
	})
}

// timeAgo renders the elapsed time since t in the coarsest non-zero unit.
func timeAgo(t, now time.Time) string {
	elapsed := now.Sub(t)
	if days := int(elapsed.Hours() / 24); days > 0 {
		return pluralAgo(days, "day")
	}
	if hours := int(elapsed.Hours()); hours > 0 {
		return pluralAgo(hours, "hour")
	}
	if minutes := int(elapsed.Minutes()); minutes > 0 {
		return pluralAgo(minutes, "minute")
	}
	return "just now"
}

func pluralAgo(n int, unit string) string {
	if n == 1 {
		return fmt.Sprintf("1 %s ago", unit)
	}
	return fmt.Sprintf("%d %ss ago", n, unit)
}
