package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/SherClockHolmes/webpush-go"
	"github.com/redis/go-redis/v9"

	"room-reservation-backend/config"
	"room-reservation-backend/internal/api"
	"room-reservation-backend/internal/db"
	"room-reservation-backend/internal/hub"
	"room-reservation-backend/internal/janitor"
	"room-reservation-backend/internal/notification"
	"room-reservation-backend/internal/occupancy"
	"room-reservation-backend/internal/store"
	"room-reservation-backend/internal/ws"
)

func main() {
	logger := log.New(os.Stdout, "rooms-backend ", log.LstdFlags)

	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "./config/config.yaml" // Default path for local development
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		logger.Fatalf("failed to load configuration from %s: %v", configPath, err)
	}
	logger.Printf("configuration loaded successfully from %s", configPath)

	if cfg.Push.PublicKey == "" || cfg.Push.PrivateKey == "" {
		logger.Fatalf("VAPID keys must be configured. Please generate them and add them to your config file.")
	}

	webpushOptions := webpush.Options{
		VAPIDPublicKey:  cfg.Push.PublicKey,
		VAPIDPrivateKey: cfg.Push.PrivateKey,
		Subscriber:      cfg.Push.Subject,
		TTL:             cfg.Push.TTL,
	}

	gormDB, err := db.Init(&cfg.Database)
	if err != nil {
		logger.Fatalf("failed to initialize database: %v", err)
	}
	logger.Println("database initialized successfully")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	broadcaster := newBroadcaster(cfg, logger)

	appStore := store.NewGormStore(gormDB, hub.NewDispatcher(broadcaster))
	logger.Println("data store initialized")

	agg := occupancy.NewAggregator(appStore, cfg.Status.CacheTTL)

	// Worker pool for room-available push notifications
	pool := notification.NewWorkerPool(cfg.WorkerPool.Size, gormDB, &webpushOptions)
	pool.Start(ctx)

	// Background maintenance: auto-cancel and retention sweeps
	janitorSvc := janitor.NewService(cfg, appStore)
	go janitorSvc.Run(ctx)

	live := ws.NewHandler(agg, broadcaster, cfg.Status.RoomHeartbeat, cfg.Status.OverviewHeartbeat)

	router := api.NewRouter(appStore, agg, live, pool, &webpushOptions, cfg)
	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: router,
	}

	go func() {
		logger.Printf("HTTP server starting on port %d", cfg.Server.Port)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatalf("HTTP server ListenAndServe: %v", err)
		}
	}()

	// Setup signal handling for graceful shutdown
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	<-stop
	logger.Println("Shutdown signal received, stopping services...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Fatalf("HTTP server Shutdown: %v", err)
	}

	logger.Println("Server gracefully stopped")
}

// newBroadcaster picks the fan-out backend. Redis lets several instances
// share live updates; without it the hub stays in-process.
func newBroadcaster(cfg *config.Config, logger *log.Logger) hub.Broadcaster {
	if cfg.Hub.RedisAddr == "" {
		logger.Println("no redis address configured, using in-process broadcast hub")
		return hub.NewLocalHub()
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Hub.RedisAddr,
		Password: cfg.Hub.RedisPassword,
		DB:       cfg.Hub.RedisDB,
	})

	pingCtx, pingCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer pingCancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		logger.Printf("redis at %s unreachable (%v), falling back to in-process broadcast hub", cfg.Hub.RedisAddr, err)
		return hub.NewLocalHub()
	}

	logger.Printf("broadcast hub backed by redis at %s", cfg.Hub.RedisAddr)
	return hub.NewRedisHub(rdb)
}
