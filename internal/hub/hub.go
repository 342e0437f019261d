// Package hub fans reservation change messages out to websocket sessions.
// Sessions subscribe to named groups; a group exists per room plus one
// shared overview group. The in-process hub covers single-instance
// deployments, the Redis variant relays between instances.
package hub

import (
	"context"
	"fmt"
	"log"
	"sync"
)

// OverviewGroup receives a message for every reservation change,
// regardless of room.
const OverviewGroup = "rooms_overview"

// RoomGroup returns the group name carrying changes for one room.
func RoomGroup(roomID int64) string {
	return fmt.Sprintf("room_%d", roomID)
}

const subscriptionBuffer = 32

// Subscription is one session's membership in a group. Messages arriving
// faster than the session drains them are dropped, never queued without
// bound.
type Subscription struct {
	group  string
	ch     chan []byte
	cancel func()
	once   sync.Once
}

// Messages returns the channel of group payloads. It is closed when the
// subscription is closed.
func (s *Subscription) Messages() <-chan []byte { return s.ch }

// Group returns the group this subscription belongs to.
func (s *Subscription) Group() string { return s.group }

// Close leaves the group. Safe to call more than once.
func (s *Subscription) Close() {
	s.once.Do(s.cancel)
}

// Broadcaster delivers payloads to every subscriber of a group.
type Broadcaster interface {
	Publish(ctx context.Context, group string, payload []byte) error
	Subscribe(group string) *Subscription
}

// LocalHub is an in-process Broadcaster.
type LocalHub struct {
	mu     sync.RWMutex
	groups map[string]map[*Subscription]struct{}
}

// NewLocalHub creates an empty in-process hub.
func NewLocalHub() *LocalHub {
	return &LocalHub{groups: make(map[string]map[*Subscription]struct{})}
}

// Publish delivers payload to every current subscriber of group. Slow
// subscribers are skipped.
func (h *LocalHub) Publish(ctx context.Context, group string, payload []byte) error {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for sub := range h.groups[group] {
		select {
		case sub.ch <- payload:
		default:
			log.Printf("Dropping message for slow subscriber in group %s", group)
		}
	}
	return nil
}

// Subscribe joins group and returns the membership.
func (h *LocalHub) Subscribe(group string) *Subscription {
	sub := &Subscription{
		group: group,
		ch:    make(chan []byte, subscriptionBuffer),
	}
	sub.cancel = func() {
		h.mu.Lock()
		defer h.mu.Unlock()
		if members, ok := h.groups[group]; ok {
			delete(members, sub)
			if len(members) == 0 {
				delete(h.groups, group)
			}
		}
		close(sub.ch)
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.groups[group] == nil {
		h.groups[group] = make(map[*Subscription]struct{})
	}
	h.groups[group][sub] = struct{}{}
	return sub
}
