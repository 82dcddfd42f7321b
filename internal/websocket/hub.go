// Package websocket serves live trip reports over WebSocket connections.
package websocket

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/NomadCrew/nomad-budget-backend/logger"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"nhooyr.io/websocket"
)

// ErrTooManyStreams is returned when a user already has MaxPerUser open streams.
var ErrTooManyStreams = errors.New("too many live streams for user")

// ErrHubClosed is returned by Register after Shutdown.
var ErrHubClosed = errors.New("websocket hub is shut down")

// Hub tracks open live-report streams so they can be counted and closed on shutdown.
type Hub struct {
	log        *zap.SugaredLogger
	streams    map[string]*Stream
	perUser    map[string]int
	maxPerUser int
	mu         sync.RWMutex
	closed     bool
}

// Stream is one open connection watching one trip.
type Stream struct {
	ID        string
	UserID    string
	TripID    string
	Conn      *websocket.Conn
	StartedAt time.Time
	cancel    context.CancelFunc
}

// HubConfig contains configuration options for the Hub and its handler.
type HubConfig struct {
	PingInterval time.Duration
	WriteTimeout time.Duration
	MaxPerUser   int
}

// DefaultHubConfig returns the production defaults.
func DefaultHubConfig() HubConfig {
	return HubConfig{
		PingInterval: 30 * time.Second,
		WriteTimeout: 10 * time.Second,
		MaxPerUser:   5,
	}
}

func NewHub(cfg HubConfig) *Hub {
	if cfg.MaxPerUser <= 0 {
		cfg.MaxPerUser = DefaultHubConfig().MaxPerUser
	}
	return &Hub{
		log:        logger.GetLogger().Named("websocket_hub"),
		streams:    make(map[string]*Stream),
		perUser:    make(map[string]int),
		maxPerUser: cfg.MaxPerUser,
	}
}

// Register records a new stream. cancel is called when the hub shuts down.
func (h *Hub) Register(userID, tripID string, conn *websocket.Conn, cancel context.CancelFunc) (*Stream, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return nil, ErrHubClosed
	}
	if h.perUser[userID] >= h.maxPerUser {
		return nil, ErrTooManyStreams
	}

	s := &Stream{
		ID:        uuid.NewString(),
		UserID:    userID,
		TripID:    tripID,
		Conn:      conn,
		StartedAt: time.Now(),
		cancel:    cancel,
	}
	h.streams[s.ID] = s
	h.perUser[userID]++
	return s, nil
}

// Unregister forgets a stream. Unknown IDs are ignored.
func (h *Hub) Unregister(streamID string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	s, ok := h.streams[streamID]
	if !ok {
		return
	}
	delete(h.streams, streamID)
	if h.perUser[s.UserID]--; h.perUser[s.UserID] <= 0 {
		delete(h.perUser, s.UserID)
	}
}

// GetConnectionCount returns the number of open streams.
func (h *Hub) GetConnectionCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.streams)
}

// Shutdown closes every open stream with StatusGoingAway and refuses new ones.
// Streams are closed concurrently; any still open when ctx ends are dropped
// and ctx's error is returned.
func (h *Hub) Shutdown(ctx context.Context) error {
	h.mu.Lock()
	h.closed = true
	streams := make([]*Stream, 0, len(h.streams))
	for _, s := range h.streams {
		streams = append(streams, s)
	}
	h.streams = make(map[string]*Stream)
	h.perUser = make(map[string]int)
	h.mu.Unlock()

	var wg sync.WaitGroup
	for _, s := range streams {
		wg.Add(1)
		go func() {
			defer wg.Done()
			// Close before cancel so the peer sees GoingAway rather than a dropped socket.
			if s.Conn != nil {
				_ = s.Conn.Close(websocket.StatusGoingAway, "server shutdown")
			}
			if s.cancel != nil {
				s.cancel()
			}
		}()
	}

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-ctx.Done():
		// Peers that never answered the close handshake are dropped.
		for _, s := range streams {
			if s.cancel != nil {
				s.cancel()
			}
			if s.Conn != nil {
				_ = s.Conn.CloseNow()
			}
		}
		h.log.Warnw("WebSocket hub shutdown cut short", "streams", len(streams), "error", ctx.Err())
		return ctx.Err()
	}

	h.log.Infow("WebSocket hub shutdown complete", "closed_streams", len(streams))
	return nil
}
