package ws

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"room-reservation-backend/internal/hub"
	"room-reservation-backend/internal/store"
)

// session pairs one websocket connection with one group subscription.
// Writes are serialized through the mutex: group relays and heartbeats
// arrive from different goroutines.
type session struct {
	conn *websocket.Conn
	sub  *hub.Subscription
	mu   sync.Mutex
}

func newSession(conn *websocket.Conn, sub *hub.Subscription) *session {
	return &session{conn: conn, sub: sub}
}

func (s *session) writeJSON(v any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conn.WriteJSON(v)
}

func (s *session) write(payload []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conn.WriteMessage(websocket.TextMessage, payload)
}

// run relays group messages and periodic snapshots until the client goes
// away, then tears the session down in order: heartbeat stopped and
// awaited, group left, socket closed.
func (s *session) run(period time.Duration, snapshot func(context.Context) (any, error)) {
	ctx, cancel := context.WithCancel(context.Background())

	hbDone := make(chan struct{})
	go func() {
		defer close(hbDone)
		s.heartbeatLoop(ctx, period, snapshot)
	}()

	readErr := make(chan error, 1)
	go func() {
		for {
			if _, _, err := s.conn.ReadMessage(); err != nil {
				readErr <- err
				return
			}
		}
	}()

relay:
	for {
		select {
		case payload, ok := <-s.sub.Messages():
			if !ok {
				break relay
			}
			if err := s.write(payload); err != nil {
				break relay
			}
		case <-readErr:
			break relay
		}
	}

	cancel()
	<-hbDone
	s.sub.Close()
	s.conn.Close()
}

// heartbeatLoop pushes a fresh snapshot every period. A failed refresh
// skips the beat; a room that has gone missing skips it silently, the
// session itself stays up.
func (s *session) heartbeatLoop(ctx context.Context, period time.Duration, snapshot func(context.Context) (any, error)) {
	ticker := time.NewTicker(period)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			frame, err := snapshot(ctx)
			if err != nil {
				if !errors.Is(err, store.ErrNotFound) {
					log.Printf("Error refreshing status for heartbeat: %v", err)
				}
				continue
			}
			if err := s.writeJSON(frame); err != nil {
				log.Printf("Error sending heartbeat: %v", err)
			}
		}
	}
}
