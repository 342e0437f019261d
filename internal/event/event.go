// Package event defines the change notifications produced by reservation
// mutations and consumed by the broadcast layer.
package event

import (
	"context"
	"time"

	"room-reservation-backend/internal/model"
)

// Change event types, one per mutating operation.
const (
	TypeCreated   = "created"
	TypeConfirmed = "confirmed"
	TypeCancelled = "cancelled"
	TypeDeleted   = "deleted"
)

// Payload is the reservation representation carried inside a Change.
// Deleted events have no payload since the row is gone by the time the
// event is emitted.
type Payload struct {
	ID           int64     `json:"id"`
	RoomID       int64     `json:"room_id"`
	RoomName     string    `json:"room_name,omitempty"`
	UserName     string    `json:"user_name"`
	Date         string    `json:"date"`
	StartTime    string    `json:"start_time"`
	EndTime      string    `json:"end_time"`
	Purpose      string    `json:"purpose"`
	Attendees    int       `json:"attendees"`
	ContactEmail string    `json:"contact_email"`
	ContactPhone string    `json:"contact_phone"`
	Status       string    `json:"status"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// NewPayload builds the broadcast payload for a reservation. The Room
// association must be preloaded for the room name to be filled in.
func NewPayload(r *model.Reservation) *Payload {
	return &Payload{
		ID:           r.ID,
		RoomID:       r.RoomID,
		RoomName:     r.Room.Name,
		UserName:     r.UserName,
		Date:         r.Date,
		StartTime:    r.StartTime,
		EndTime:      r.EndTime,
		Purpose:      r.Purpose,
		Attendees:    r.Attendees,
		ContactEmail: r.ContactEmail,
		ContactPhone: r.ContactPhone,
		Status:       r.Status,
		CreatedAt:    r.CreatedAt,
		UpdatedAt:    r.UpdatedAt,
	}
}

// Change describes one committed reservation mutation.
type Change struct {
	Type          string
	RoomID        int64
	ReservationID int64
	Reservation   *Payload // nil for deleted
}

// Emitter receives a Change immediately after its mutation commits. Emit is
// called synchronously on the write path, so implementations must be quick
// and must never fail the caller.
type Emitter interface {
	Emit(ctx context.Context, change Change)
}

// Discard is an Emitter that drops every change.
type Discard struct{}

// Emit implements Emitter.
func (Discard) Emit(context.Context, Change) {}
