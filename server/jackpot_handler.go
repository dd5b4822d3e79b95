package server

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	apperrors "github.com/whiskylabs/whisky-protocol-core/errors"
	"github.com/whiskylabs/whisky-protocol-core/pkg/jackpot"
)

const (
	EventTypeConnected = "connected"
	EventTypeUpdated   = "updated"
	EventTypeHeartbeat = "heartbeat"
)

// JackpotHandler bridges jackpot.Service to HTTP routes (SSE + WebSocket).
// Streams are read-only and scoped to one pool's jackpot vault.
type JackpotHandler struct {
	svc             *jackpot.Service
	app             *App
	logger          zerolog.Logger
	heartbeatPeriod time.Duration
	upgrader        websocket.Upgrader
}

// NewJackpotHandler creates a jackpot handler.
func NewJackpotHandler(app *App, svc *jackpot.Service) *JackpotHandler {
	return &JackpotHandler{
		svc:             svc,
		app:             app,
		logger:          app.logger.With().Str("handler", "jackpot").Logger(),
		heartbeatPeriod: 30 * time.Second,
		upgrader: websocket.Upgrader{
			CheckOrigin:     func(r *http.Request) bool { return true },
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
	}
}

// StreamEvent is the wire format for jackpot stream messages.
type StreamEvent struct {
	Type      string          `json:"type"`
	PoolID    string          `json:"pool_id,omitempty"`
	Asset     string          `json:"asset,omitempty"`
	Amount    decimal.Decimal `json:"amount,omitempty"`
	Timestamp int64           `json:"timestamp"`
}

// Current returns the freshest known jackpot value for a pool.
// Route: GET /api/v1/pools/:pool_id/jackpot
func (h *JackpotHandler) Current(c *gin.Context) {
	poolID := c.Param("pool_id")
	updates := h.svc.Current(c.Request.Context(), []string{poolID})
	if len(updates) == 0 {
		NotFound(c, apperrors.New(apperrors.ErrPoolNotFound, "no jackpot value for pool"))
		return
	}
	OK(c, updates[0])
}

// StreamUpdates opens an SSE connection and streams jackpot updates.
// Route: GET /api/v1/pools/:pool_id/jackpot/updates
func (h *JackpotHandler) StreamUpdates(c *gin.Context) {
	poolID := c.Param("pool_id")
	h.svc.RegisterPool(c.Request.Context(), poolID)

	c.Writer.Header().Set("Content-Type", "text/event-stream")
	c.Writer.Header().Set("Cache-Control", "no-cache")
	c.Writer.Header().Set("Connection", "keep-alive")
	c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
	c.Writer.WriteHeader(http.StatusOK)

	sender := &sseSender{writer: c.Writer}
	h.stream(c, poolID, sender, nil)
}

// StreamUpdatesWebSocket opens a WebSocket connection and streams jackpot
// updates.
// Route: GET /api/v1/pools/:pool_id/jackpot/updates/ws
func (h *JackpotHandler) StreamUpdatesWebSocket(c *gin.Context) {
	poolID := c.Param("pool_id")
	h.svc.RegisterPool(c.Request.Context(), poolID)

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Error().Err(err).Msg("Failed to upgrade to WebSocket")
		return
	}
	defer conn.Close() //nolint:errcheck

	writeDeadline := 10 * time.Second
	conn.SetWriteDeadline(time.Now().Add(writeDeadline)) //nolint:errcheck

	done := make(chan struct{})

	// Detect connection close
	go func() {
		defer close(done)
		conn.SetReadDeadline(time.Now().Add(10 * time.Minute)) //nolint:errcheck
		if _, _, err := conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				h.logger.Warn().Err(err).Msg("WebSocket connection closed unexpectedly")
			} else {
				h.logger.Debug().Err(err).Msg("WebSocket closed normally")
			}
		}
	}()

	// Send ping to keep connection alive
	pingTicker := time.NewTicker(30 * time.Second)
	go func() {
		defer pingTicker.Stop()
		for {
			select {
			case <-done:
				return
			case <-pingTicker.C:
				deadline := time.Now().Add(5 * time.Second)
				if err := conn.WriteControl(websocket.PingMessage, []byte{}, deadline); err != nil {
					h.logger.Debug().Err(err).Msg("Failed to send ping")
					return
				}
			}
		}
	}()

	sender := &wsSender{
		conn:          conn,
		done:          done,
		logger:        h.logger,
		writeDeadline: writeDeadline,
	}
	h.stream(c, poolID, sender, done)
}

// stream handles the common streaming logic for both SSE and WebSocket.
func (h *JackpotHandler) stream(c *gin.Context, poolID string, sender messageSender, done <-chan struct{}) {
	ctx := c.Request.Context()
	updates, cancel := h.svc.Listen(ctx)
	defer cancel()

	if err := sender.Send(&StreamEvent{
		Type:      EventTypeConnected,
		PoolID:    poolID,
		Timestamp: time.Now().Unix(),
	}); err != nil {
		h.logger.Warn().Err(err).Msg("Failed to send connected event, stopping stream")
		return
	}

	// Initial value so the client renders without waiting for a round
	if current := h.svc.Current(ctx, []string{poolID}); len(current) > 0 {
		if err := sender.Send(eventFromUpdate(current[0])); err != nil {
			h.logger.Warn().Err(err).Msg("Failed to send initial jackpot value")
			return
		}
	}

	heartbeat := time.NewTicker(h.heartbeatPeriod)
	defer heartbeat.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-done:
			h.logger.Debug().Msg("WebSocket connection closed, stopping stream")
			return
		case <-heartbeat.C:
			if err := sender.Send(&StreamEvent{
				Type:      EventTypeHeartbeat,
				Timestamp: time.Now().Unix(),
			}); err != nil {
				h.logger.Warn().Err(err).Msg("Failed to send heartbeat, stopping stream")
				return
			}
		case update, ok := <-updates:
			if !ok {
				return
			}
			if update.PoolID != poolID {
				continue
			}
			if err := sender.Send(eventFromUpdate(update)); err != nil {
				h.logger.Warn().Err(err).Str("pool_id", poolID).Msg("Failed to send update, stopping stream")
				return
			}
		}
	}
}

func eventFromUpdate(u jackpot.Update) *StreamEvent {
	return &StreamEvent{
		Type:      EventTypeUpdated,
		PoolID:    u.PoolID,
		Asset:     u.Asset,
		Amount:    u.Amount,
		Timestamp: u.Timestamp.Unix(),
	}
}

// messageSender interface for sending messages (SSE or WebSocket).
type messageSender interface {
	Send(*StreamEvent) error
}

// sseSender sends messages via SSE.
type sseSender struct {
	writer http.ResponseWriter
}

func (s *sseSender) Send(event *StreamEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}
	_, err = s.writer.Write([]byte("data: " + string(payload) + "\n\n"))
	if err != nil {
		return err
	}
	s.writer.(http.Flusher).Flush()
	return nil
}

// wsSender sends messages via WebSocket.
type wsSender struct {
	conn          *websocket.Conn
	done          <-chan struct{}
	logger        zerolog.Logger
	writeDeadline time.Duration
}

func (s *wsSender) Send(event *StreamEvent) error {
	select {
	case <-s.done:
		s.logger.Debug().Str("event_type", event.Type).Msg("Connection already closed, skipping send")
		return io.EOF
	default:
	}

	deadline := time.Now().Add(s.writeDeadline)
	if err := s.conn.SetWriteDeadline(deadline); err != nil {
		s.logger.Warn().Err(err).Msg("Failed to set write deadline")
	}

	payload, err := json.Marshal(event)
	if err != nil {
		s.logger.Error().Err(err).Str("event_type", event.Type).Msg("Failed to marshal event")
		return err
	}

	if err := s.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			s.logger.Warn().Err(err).Str("event_type", event.Type).Msg("WebSocket write failed: connection closed")
		} else {
			s.logger.Warn().Err(err).Str("event_type", event.Type).Msg("WebSocket write failed")
		}
		return err
	}

	return nil
}
