package api

import (
	"github.com/SherClockHolmes/webpush-go"
	"github.com/gin-gonic/gin"
	"github.com/patrickmn/go-cache"
	"golang.org/x/time/rate"

	"room-reservation-backend/config"
	"room-reservation-backend/internal/mw"
	"room-reservation-backend/internal/occupancy"
	"room-reservation-backend/internal/store"
	"room-reservation-backend/internal/ws"
)

// NewRouter creates and configures a new Gin router.
func NewRouter(s store.Store, agg *occupancy.Aggregator, live *ws.Handler, notifier Notifier, webpushOptions *webpush.Options, cfg *config.Config) *gin.Engine {
	r := gin.Default()

	handler := NewHandler(s, agg, notifier, webpushOptions)

	rateLimiter := mw.RateLimiter(rate.Limit(cfg.Server.RateLimitPerSec), cfg.Server.RateLimitBurst)

	// Response cache for the dashboard, the only endpoint whose queries are
	// heavy enough to shield.
	cacheStore := cache.New(cfg.Server.CacheTTL, 2*cfg.Server.CacheTTL)
	caching := mw.Cache(cacheStore, cfg.Server.CacheTTL)

	api := r.Group("/api")
	api.Use(rateLimiter)
	{
		api.GET("/rooms", handler.GetRooms)
		api.GET("/rooms/status", handler.GetRoomsStatus)
		api.GET("/rooms/:room_id", handler.GetRoom)
		api.GET("/rooms/:room_id/status", handler.GetRoomStatus)
		api.GET("/rooms/:room_id/availability", handler.GetRoomAvailability)

		api.GET("/reservations", handler.ListReservations)
		api.POST("/reservations", handler.CreateReservation)
		api.GET("/reservations/upcoming", handler.GetUpcomingReservations)
		api.POST("/reservations/confirm", handler.ConfirmReservation)
		api.POST("/reservations/cancel", handler.CancelReservation)
		api.GET("/reservations/user/:user_name", handler.GetUserReservations)
		api.GET("/reservations/:id", handler.GetReservation)
		api.DELETE("/reservations/:id", handler.DeleteReservation)

		api.GET("/stats/dashboard", caching, handler.GetDashboardStats)
		api.GET("/activity/feed", handler.GetActivityFeed)

		api.GET("/subscriptions", handler.GetSubscription)
		api.PUT("/subscriptions", handler.PutSubscription)
		api.DELETE("/subscriptions", handler.DeleteSubscription)
		api.GET("/vapid_public_key", handler.GetVAPIDPublicKey)
	}

	// Websocket endpoints skip the rate limiter: each client holds one
	// long-lived connection instead of issuing request bursts.
	wsGroup := r.Group("/ws")
	{
		wsGroup.GET("/rooms/overview", live.Overview)
		wsGroup.GET("/rooms/:room_id", live.Room)
	}

	return r
}
