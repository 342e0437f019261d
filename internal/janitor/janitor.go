// Package janitor runs the periodic reservation maintenance sweeps.
package janitor

import (
	"context"
	"log"
	"time"

	"room-reservation-backend/config"
	"room-reservation-backend/internal/store"
)

// Service expires unconfirmed reservations and purges rows past the
// retention window on a fixed interval.
type Service struct {
	cfg   *config.Config
	store store.Store
}

// NewService creates a new janitor service.
func NewService(cfg *config.Config, store store.Store) *Service {
	return &Service{
		cfg:   cfg,
		store: store,
	}
}

// Run starts the maintenance loop. It sweeps once immediately so a restart
// never leaves stale rows waiting a full interval.
func (s *Service) Run(ctx context.Context) {
	if !s.cfg.Janitor.Enabled {
		log.Println("Janitor is disabled. Not starting.")
		return
	}
	log.Println("Starting janitor service...")

	s.SweepOnce(ctx)

	timer := time.NewTimer(s.cfg.Janitor.Interval)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Println("Janitor service shutting down.")
			return
		case <-timer.C:
			s.SweepOnce(ctx)
			timer.Reset(s.cfg.Janitor.Interval)
		}
	}
}

// SweepOnce performs a single maintenance round.
func (s *Service) SweepOnce(ctx context.Context) {
	now := time.Now()

	cancelled, err := s.store.AutoCancelPending(ctx, now, s.cfg.Janitor.PendingTimeout)
	if err != nil {
		log.Printf("Error auto-cancelling stale reservations: %v", err)
	} else if cancelled > 0 {
		log.Printf("Auto-cancelled %d stale pending reservations", cancelled)
	}

	cutoff := now.AddDate(0, 0, -s.cfg.Janitor.RetentionDays).Format("2006-01-02")
	purged, err := s.store.PurgeReservationsBefore(ctx, cutoff)
	if err != nil {
		log.Printf("Error purging old reservations: %v", err)
	} else if purged > 0 {
		log.Printf("Purged %d reservations dated before %s", purged, cutoff)
	}
}
