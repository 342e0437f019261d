// Package ws serves the live status websockets. A client either watches a
// single room or the whole floor plan; both sockets push an initial
// snapshot, relay reservation changes as they happen and refresh the full
// status on a heartbeat.
package ws

import (
	"context"
	"errors"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"room-reservation-backend/internal/hub"
	"room-reservation-backend/internal/occupancy"
	"room-reservation-backend/internal/store"
)

const (
	// RoomHeartbeat is the default refresh interval on a room socket.
	RoomHeartbeat = 30 * time.Second
	// OverviewHeartbeat is the default refresh interval on the overview
	// socket, which is heavier to compute.
	OverviewHeartbeat = 60 * time.Second
)

type roomStatusFrame struct {
	Type   string            `json:"type"`
	Status *occupancy.Status `json:"status"`
}

type roomHeartbeatFrame struct {
	Type      string            `json:"type"`
	Status    *occupancy.Status `json:"status"`
	Timestamp string            `json:"timestamp"`
}

type overviewStatusFrame struct {
	Type  string                     `json:"type"`
	Rooms []occupancy.OverviewStatus `json:"rooms"`
}

type overviewHeartbeatFrame struct {
	Type      string                     `json:"type"`
	Rooms     []occupancy.OverviewStatus `json:"rooms"`
	Timestamp string                     `json:"timestamp"`
}

// Handler upgrades HTTP requests into live status sessions.
type Handler struct {
	agg            *occupancy.Aggregator
	hub            hub.Broadcaster
	upgrader       websocket.Upgrader
	roomPeriod     time.Duration
	overviewPeriod time.Duration
}

// NewHandler creates a websocket handler over the aggregator and hub.
// Non-positive periods fall back to the defaults.
func NewHandler(agg *occupancy.Aggregator, b hub.Broadcaster, roomPeriod, overviewPeriod time.Duration) *Handler {
	if roomPeriod <= 0 {
		roomPeriod = RoomHeartbeat
	}
	if overviewPeriod <= 0 {
		overviewPeriod = OverviewHeartbeat
	}
	return &Handler{
		agg: agg,
		hub: b,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
		roomPeriod:     roomPeriod,
		overviewPeriod: overviewPeriod,
	}
}

// Room handles GET /ws/rooms/:room_id. The session joins the room's group
// before the initial snapshot so no change can slip between the two.
func (h *Handler) Room(c *gin.Context) {
	roomID, err := strconv.ParseInt(c.Param("room_id"), 10, 64)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Invalid room ID"})
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Printf("Error upgrading connection for room %d: %v", roomID, err)
		return
	}

	sess := newSession(conn, h.hub.Subscribe(hub.RoomGroup(roomID)))

	// An unknown or deactivated room keeps the socket open but silent.
	status, err := h.agg.LiveSnapshot(c.Request.Context(), roomID)
	switch {
	case err == nil:
		if err := sess.writeJSON(roomStatusFrame{Type: "room.status", Status: status}); err != nil {
			log.Printf("Error sending initial status for room %d: %v", roomID, err)
		}
	case !errors.Is(err, store.ErrNotFound):
		log.Printf("Error computing initial status for room %d: %v", roomID, err)
	}

	sess.run(h.roomPeriod, func(ctx context.Context) (any, error) {
		status, err := h.agg.LiveSnapshot(ctx, roomID)
		if err != nil {
			return nil, err
		}
		return roomHeartbeatFrame{
			Type:      "heartbeat",
			Status:    status,
			Timestamp: time.Now().UTC().Format(time.RFC3339),
		}, nil
	})
}

// Overview handles GET /ws/rooms/overview with the status of every active
// room.
func (h *Handler) Overview(c *gin.Context) {
	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Printf("Error upgrading overview connection: %v", err)
		return
	}

	sess := newSession(conn, h.hub.Subscribe(hub.OverviewGroup))

	rooms, err := h.agg.LiveSnapshotAll(c.Request.Context())
	if err != nil {
		log.Printf("Error computing initial overview: %v", err)
	} else if err := sess.writeJSON(overviewStatusFrame{Type: "rooms.status", Rooms: rooms}); err != nil {
		log.Printf("Error sending initial overview: %v", err)
	}

	sess.run(h.overviewPeriod, func(ctx context.Context) (any, error) {
		rooms, err := h.agg.LiveSnapshotAll(ctx)
		if err != nil {
			return nil, err
		}
		return overviewHeartbeatFrame{
			Type:      "heartbeat",
			Rooms:     rooms,
			Timestamp: time.Now().UTC().Format(time.RFC3339),
		}, nil
	})
}
