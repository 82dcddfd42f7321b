package websocket

import (
	"context"
	"errors"
	"time"

	"github.com/NomadCrew/nomad-budget-backend/config"
	"github.com/NomadCrew/nomad-budget-backend/internal/aggregation"
	"github.com/NomadCrew/nomad-budget-backend/logger"
	"github.com/NomadCrew/nomad-budget-backend/middleware"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"
)

// ReportStreamer yields a fresh report for every change to a trip's expenses.
// The channel is closed when the stream ends.
type ReportStreamer interface {
	Live(ctx context.Context, userID, tripID string) (<-chan aggregation.Report, error)
}

// ServerMessage is the envelope for everything written to the client.
type ServerMessage struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// Handler upgrades GET /trips/:id/report/live and streams report snapshots.
type Handler struct {
	log            *zap.SugaredLogger
	hub            *Hub
	reports        ReportStreamer
	pingInterval   time.Duration
	writeTimeout   time.Duration
	allowedOrigins []string
	isDevelopment  bool
}

func NewHandler(hub *Hub, reports ReportStreamer, serverCfg *config.ServerConfig, cfg HubConfig) *Handler {
	defaults := DefaultHubConfig()
	if cfg.PingInterval <= 0 {
		cfg.PingInterval = defaults.PingInterval
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = defaults.WriteTimeout
	}
	return &Handler{
		log:            logger.GetLogger().Named("websocket_handler"),
		hub:            hub,
		reports:        reports,
		pingInterval:   cfg.PingInterval,
		writeTimeout:   cfg.WriteTimeout,
		allowedOrigins: serverCfg.AllowedOrigins,
		isDevelopment:  serverCfg.Environment == config.EnvDevelopment,
	}
}

// In development every origin is accepted; otherwise only the configured ones.
func (h *Handler) acceptOptions() *websocket.AcceptOptions {
	opts := &websocket.AcceptOptions{
		CompressionMode: websocket.CompressionContextTakeover,
	}
	if h.isDevelopment {
		opts.InsecureSkipVerify = true
	} else {
		opts.OriginPatterns = h.allowedOrigins
	}
	return opts
}

// HandleLiveReport godoc
// @Summary Stream a trip report
// @Description Upgrades to a WebSocket and pushes the full recomputed report on every expense change
// @Tags reports
// @Param id path string true "Trip ID"
// @Success 101 {object} ServerMessage
// @Failure 401 {object} middleware.ErrorResponse
// @Failure 404 {object} middleware.ErrorResponse
// @Router /trips/{id}/report/live [get]
// @Security BearerAuth
func (h *Handler) HandleLiveReport(c *gin.Context) {
	userID := middleware.GetUserID(c)
	tripID := c.Param("id")

	ctx, cancel := context.WithCancel(c.Request.Context())
	defer cancel()

	// Resolve the trip before upgrading so lookup failures get a normal HTTP error.
	snapshots, err := h.reports.Live(ctx, userID, tripID)
	if err != nil {
		_ = c.Error(err)
		return
	}

	conn, err := websocket.Accept(c.Writer, c.Request, h.acceptOptions())
	if err != nil {
		h.log.Warnw("Failed to accept WebSocket connection", "userID", userID, "tripID", tripID, "error", err)
		return
	}
	defer conn.CloseNow()

	stream, err := h.hub.Register(userID, tripID, conn, cancel)
	if err != nil {
		status := websocket.StatusTryAgainLater
		if errors.Is(err, ErrHubClosed) {
			status = websocket.StatusGoingAway
		}
		_ = conn.Close(status, err.Error())
		return
	}
	defer h.hub.Unregister(stream.ID)

	h.log.Infow("Live report stream opened", "userID", userID, "tripID", tripID, "streamID", stream.ID)

	// Clients only listen; CloseRead cancels ctx when they go away.
	ctx = conn.CloseRead(ctx)

	err = h.pump(ctx, conn, snapshots)
	switch {
	case err == nil:
		_ = conn.Close(websocket.StatusNormalClosure, "stream ended")
	case websocket.CloseStatus(err) == websocket.StatusNormalClosure || errors.Is(err, context.Canceled):
	default:
		h.log.Warnw("Live report stream error", "userID", userID, "tripID", tripID, "error", err)
		_ = conn.Close(websocket.StatusInternalError, "stream error")
	}
}

// pump writes snapshots until the channel closes (nil) or the connection fails.
func (h *Handler) pump(ctx context.Context, conn *websocket.Conn, snapshots <-chan aggregation.Report) error {
	ticker := time.NewTicker(h.pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case report, ok := <-snapshots:
			if !ok {
				return nil
			}
			if err := h.write(ctx, conn, ServerMessage{Type: "report", Payload: report}); err != nil {
				return err
			}
		case <-ticker.C:
			pingCtx, cancel := context.WithTimeout(ctx, h.writeTimeout)
			err := conn.Ping(pingCtx)
			cancel()
			if err != nil {
				return err
			}
		}
	}
}

func (h *Handler) write(ctx context.Context, conn *websocket.Conn, msg ServerMessage) error {
	writeCtx, cancel := context.WithTimeout(ctx, h.writeTimeout)
	defer cancel()
	return wsjson.Write(writeCtx, conn, msg)
}

