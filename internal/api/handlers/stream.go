package handlers

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/websocket"

	"github.com/wonny/bistpro/internal/contracts"
	"github.com/wonny/bistpro/internal/selection"
	"github.com/wonny/bistpro/pkg/logger"
)

const writeWait = 10 * time.Second

// StreamMessage is one websocket frame of /ws/scan
type StreamMessage struct {
	Type     string                `json:"type"` // progress, result, error
	Fraction float64               `json:"fraction,omitempty"`
	Result   *contracts.ScanResult `json:"result,omitempty"`
	Error    string                `json:"error,omitempty"`
}

// StreamHandler streams scan progress over a websocket
type StreamHandler struct {
	scanner  Scanner
	universe UniverseLoader
	cacheTTL time.Duration
	upgrader websocket.Upgrader
	logger   *logger.Logger
}

// NewStreamHandler creates a new progress stream handler
func NewStreamHandler(scanner Scanner, universe UniverseLoader, cacheTTL time.Duration, log *logger.Logger) *StreamHandler {
	return &StreamHandler{
		scanner:  scanner,
		universe: universe,
		cacheTTL: cacheTTL,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		logger: log,
	}
}

// ServeScan runs a scan and streams progress, then the result
// GET /ws/scan?refresh=true
func (h *StreamHandler) ServeScan(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.WithError(err).Warn("Websocket upgrade failed")
		return
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	// client frames are ignored; a read error means the client left
	go func() {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				cancel()
				return
			}
		}
	}()

	send := func(msg StreamMessage) error {
		_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
		return conn.WriteJSON(msg)
	}

	universe, err := h.universe.Load(ctx)
	if err != nil {
		h.logger.WithError(err).Error("Failed to load universe")
		_ = send(StreamMessage{Type: "error", Error: "failed to load universe"})
		return
	}

	refresh, _ := strconv.ParseBool(r.URL.Query().Get("refresh"))
	result, err := h.scanner.Scan(ctx, universe, selection.ScanOptions{
		CacheTTL: h.cacheTTL,
		Refresh:  refresh,
		Progress: func(fraction float64) {
			if err := send(StreamMessage{Type: "progress", Fraction: fraction}); err != nil {
				cancel()
			}
		},
	})
	if err != nil {
		h.logger.WithError(err).Warn("Streamed scan aborted")
		_ = send(StreamMessage{Type: "error", Error: err.Error()})
		return
	}

	if err := send(StreamMessage{Type: "result", Result: result}); err != nil {
		h.logger.WithError(err).Debug("Failed to send scan result")
		return
	}
	_ = conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, "done"),
		time.Now().Add(writeWait))
}
