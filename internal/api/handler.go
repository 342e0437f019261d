package api

import (
	"github.com/SherClockHolmes/webpush-go"

	"room-reservation-backend/internal/occupancy"
	"room-reservation-backend/internal/store"
)

// Notifier queues room-became-free push notifications. Dispatch must not
// block the request.
type Notifier interface {
	Dispatch(roomID int64)
}

// Handler holds shared dependencies for API handlers.
type Handler struct {
	store    store.Store
	agg      *occupancy.Aggregator
	notifier Notifier
	webpush  *webpush.Options
}

// NewHandler creates a new API handler. notifier may be nil when push
// notifications are disabled.
func NewHandler(s store.Store, agg *occupancy.Aggregator, notifier Notifier, webpushOptions *webpush.Options) *Handler {
	return &Handler{
		store:    s,
		agg:      agg,
		notifier: notifier,
		webpush:  webpushOptions,
	}
}

func (h *Handler) notifyRoomFree(roomID int64) {
	if h.notifier != nil {
		h.notifier.Dispatch(roomID)
	}
}
