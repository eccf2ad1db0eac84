package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/scribe/internal/interfaces"
	"github.com/ternarybob/scribe/internal/services/events"
)

func dialWS(t *testing.T, handler *WebSocketHandler) *websocket.Conn {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(handler.HandleWebSocket))
	t.Cleanup(server.Close)

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(server.URL, "http"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	var hello WSMessage
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	require.NoError(t, conn.ReadJSON(&hello))
	require.Equal(t, "hello", hello.Type)
	return conn
}

func readMessage(t *testing.T, conn *websocket.Conn) WSMessage {
	t.Helper()
	var msg WSMessage
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	require.NoError(t, conn.ReadJSON(&msg))
	return msg
}

func TestWebSocketHandler_ForwardsJobEvents(t *testing.T) {
	logger := arbor.NewLogger()
	bus := events.NewService(logger)
	handler := NewWebSocketHandler(bus, logger)
	conn := dialWS(t, handler)
	assert.Equal(t, 1, handler.ClientCount())

	ctx := context.Background()
	progress := interfaces.JobEventPayload{JobID: "job-1", Status: "PROCESSING", Step: "Writing draft", Progress: 35}
	require.NoError(t, bus.PublishSync(ctx, interfaces.Event{Type: interfaces.EventJobProgress, Payload: progress}))
	// Second progress update inside the throttle window is dropped
	progress.Progress = 40
	require.NoError(t, bus.PublishSync(ctx, interfaces.Event{Type: interfaces.EventJobProgress, Payload: progress}))
	require.NoError(t, bus.PublishSync(ctx, interfaces.Event{
		Type:    interfaces.EventJobCompleted,
		Payload: interfaces.JobEventPayload{JobID: "job-1", Status: "COMPLETED", Progress: 100},
	}))

	first := readMessage(t, conn)
	assert.Equal(t, "job_progress", first.Type)
	payload, ok := first.Payload.(map[string]interface{})
	require.True(t, ok)
	assert.EqualValues(t, 35, payload["progress"])

	second := readMessage(t, conn)
	assert.Equal(t, "job_completed", second.Type)
}

func TestWebSocketHandler_DisconnectUnregisters(t *testing.T) {
	handler := NewWebSocketHandler(nil, arbor.NewLogger())
	conn := dialWS(t, handler)
	require.Equal(t, 1, handler.ClientCount())

	conn.Close()

	assert.Eventually(t, func() bool { return handler.ClientCount() == 0 }, 5*time.Second, 20*time.Millisecond)
}

func TestWebSocketHandler_ProgressThrottlePerJob(t *testing.T) {
	handler := NewWebSocketHandler(nil, arbor.NewLogger())
	event := func(typ interfaces.EventType, id string) interfaces.Event {
		return interfaces.Event{Type: typ, Payload: interfaces.JobEventPayload{JobID: id}}
	}

	assert.True(t, handler.allow(event(interfaces.EventJobProgress, "a")))
	assert.False(t, handler.allow(event(interfaces.EventJobProgress, "a")))
	assert.True(t, handler.allow(event(interfaces.EventJobProgress, "b")))
	assert.True(t, handler.allow(event(interfaces.EventJobFailed, "a")))
	assert.True(t, handler.allow(event(interfaces.EventJobProgress, "a")))
	assert.True(t, handler.allow(interfaces.Event{Type: interfaces.EventArticlePublished, Payload: interfaces.ArticleEventPayload{}}))
}
