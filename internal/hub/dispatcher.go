package hub

import (
	"context"
	"encoding/json"
	"log"

	"room-reservation-backend/internal/event"
)

// roomMessage is the frame sent to a room's own group. For deletions the
// reservation body is gone, so only the identifiers are carried.
type roomMessage struct {
	Type          string         `json:"type"`
	Reservation   *event.Payload `json:"reservation,omitempty"`
	ReservationID int64          `json:"reservation_id"`
	RoomID        int64          `json:"room_id"`
	EventType     string         `json:"event_type"`
}

// overviewMessage is the frame sent to the shared overview group.
type overviewMessage struct {
	Type        string         `json:"type"`
	RoomID      int64          `json:"room_id"`
	EventType   string         `json:"event_type"`
	Reservation *event.Payload `json:"reservation,omitempty"`
}

// Dispatcher turns reservation changes into group broadcasts. Delivery is
// best effort: a failed publish is logged and the change is otherwise
// dropped, so persistence never depends on fan-out.
type Dispatcher struct {
	broadcaster Broadcaster
}

// NewDispatcher creates a dispatcher publishing through b.
func NewDispatcher(b Broadcaster) *Dispatcher {
	return &Dispatcher{broadcaster: b}
}

// Emit implements event.Emitter.
func (d *Dispatcher) Emit(ctx context.Context, change event.Change) {
	d.publish(ctx, RoomGroup(change.RoomID), roomMessage{
		Type:          "reservation." + change.Type,
		Reservation:   change.Reservation,
		ReservationID: change.ReservationID,
		RoomID:        change.RoomID,
		EventType:     change.Type,
	})
	d.publish(ctx, OverviewGroup, overviewMessage{
		Type:        "room.update",
		RoomID:      change.RoomID,
		EventType:   change.Type,
		Reservation: change.Reservation,
	})
}

func (d *Dispatcher) publish(ctx context.Context, group string, msg any) {
	payload, err := json.Marshal(msg)
	if err != nil {
		log.Printf("Error marshalling message for group %s: %v", group, err)
		return
	}
	if err := d.broadcaster.Publish(ctx, group, payload); err != nil {
		log.Printf("Error publishing to group %s: %v", group, err)
	}
}
