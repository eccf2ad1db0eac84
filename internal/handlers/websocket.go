package handlers

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/scribe/internal/interfaces"
	"github.com/ternarybob/scribe/internal/metrics"
	"golang.org/x/time/rate"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// progressInterval bounds how often job_progress events are forwarded per job
const progressInterval = 250 * time.Millisecond

const writeTimeout = 5 * time.Second

// WSMessage is the envelope for every message sent to clients
type WSMessage struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload"`
}

// WebSocketHandler fans event bus events out to connected clients
type WebSocketHandler struct {
	logger           arbor.ILogger
	clients          map[*websocket.Conn]bool
	clientMutex      map[*websocket.Conn]*sync.Mutex
	mu               sync.RWMutex
	throttleMu       sync.Mutex
	progressLimiters map[string]*rate.Limiter
	serverInstanceID string
}

// NewWebSocketHandler creates the handler and subscribes it to all events when
// eventService is non-nil
func NewWebSocketHandler(eventService interfaces.EventService, logger arbor.ILogger) *WebSocketHandler {
	h := &WebSocketHandler{
		logger:           logger,
		clients:          make(map[*websocket.Conn]bool),
		clientMutex:      make(map[*websocket.Conn]*sync.Mutex),
		progressLimiters: make(map[string]*rate.Limiter),
		serverInstanceID: uuid.New().String(),
	}

	if eventService != nil {
		if err := eventService.Subscribe(interfaces.EventAll, h.handleEvent); err != nil {
			logger.Warn().Err(err).Msg("Failed to subscribe WebSocket handler to events")
		}
	}

	logger.Debug().Str("server_instance_id", h.serverInstanceID).Msg("WebSocket handler initialized")
	return h
}

// HandleWebSocket upgrades the connection and keeps it registered until the client goes away
// GET /ws
func (h *WebSocketHandler) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Error().Err(err).Msg("Failed to upgrade WebSocket connection")
		return
	}

	h.mu.Lock()
	h.clients[conn] = true
	h.clientMutex[conn] = &sync.Mutex{}
	clientCount := len(h.clients)
	h.mu.Unlock()

	metrics.WebSocketConnections.Inc()
	h.logger.Debug().Int("clients", clientCount).Msg("WebSocket client connected")

	h.send(conn, WSMessage{
		Type:    "hello",
		Payload: map[string]string{"server_instance_id": h.serverInstanceID},
	})

	defer func() {
		h.mu.Lock()
		delete(h.clients, conn)
		delete(h.clientMutex, conn)
		clientCount := len(h.clients)
		h.mu.Unlock()

		metrics.WebSocketConnections.Dec()
		conn.Close()
		h.logger.Debug().Int("clients", clientCount).Msg("WebSocket client disconnected")
	}()

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				h.logger.Warn().Err(err).Msg("WebSocket error")
			}
			break
		}
	}
}

// ClientCount returns the number of connected clients
func (h *WebSocketHandler) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Broadcast sends msg to every connected client
func (h *WebSocketHandler) Broadcast(msg WSMessage) {
	h.mu.RLock()
	conns := make([]*websocket.Conn, 0, len(h.clients))
	for conn := range h.clients {
		conns = append(conns, conn)
	}
	h.mu.RUnlock()

	for _, conn := range conns {
		h.send(conn, msg)
	}
}

func (h *WebSocketHandler) send(conn *websocket.Conn, msg WSMessage) {
	h.mu.RLock()
	mutex, ok := h.clientMutex[conn]
	h.mu.RUnlock()
	if !ok {
		return
	}

	mutex.Lock()
	defer mutex.Unlock()

	conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	if err := conn.WriteJSON(msg); err != nil {
		h.logger.Debug().Err(err).Str("type", msg.Type).Msg("Failed to send WebSocket message")
	}
}

func (h *WebSocketHandler) handleEvent(ctx context.Context, event interfaces.Event) error {
	if !h.allow(event) {
		return nil
	}
	h.Broadcast(WSMessage{Type: string(event.Type), Payload: event.Payload})
	return nil
}

// allow throttles job_progress per job; terminal events always pass and release the limiter
func (h *WebSocketHandler) allow(event interfaces.Event) bool {
	payload, ok := jobPayload(event.Payload)
	if !ok {
		return true
	}

	h.throttleMu.Lock()
	defer h.throttleMu.Unlock()

	switch event.Type {
	case interfaces.EventJobProgress:
		limiter, exists := h.progressLimiters[payload.JobID]
		if !exists {
			limiter = rate.NewLimiter(rate.Every(progressInterval), 1)
			h.progressLimiters[payload.JobID] = limiter
		}
		return limiter.Allow()
	case interfaces.EventJobCompleted, interfaces.EventJobFailed:
		delete(h.progressLimiters, payload.JobID)
	}
	return true
}

func jobPayload(p interface{}) (interfaces.JobEventPayload, bool) {
	switch v := p.(type) {
	case interfaces.JobEventPayload:
		return v, true
	case *interfaces.JobEventPayload:
		if v != nil {
			return *v, true
		}
	}
	return interfaces.JobEventPayload{}, false
}
