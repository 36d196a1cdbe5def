package ws

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newHubServer поднимает hub и тестовый сервер, апгрейдящий любое соединение
// в клиента с владельцем из query-параметра user.
func newHubServer(t *testing.T) (*Hub, *httptest.Server, context.CancelFunc) {
	t.Helper()
	hub := NewHub(0)
	ctx, cancel := context.WithCancel(context.Background())
	go hub.Run(ctx)

	upgrader := websocket.Upgrader{CheckOrigin: func(*http.Request) bool { return true }}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		cctx, ccancel := context.WithCancel(ctx)
		c := NewClient(hub, conn, r.URL.Query().Get("user"))
		c.Start(cctx, ccancel)
		hub.Register(c)
	}))

	t.Cleanup(func() {
		cancel()
		srv.Close()
	})
	return hub, srv, cancel
}

func dial(t *testing.T, srv *httptest.Server, userID string) *websocket.Conn {
	t.Helper()
	url := strings.Replace(srv.URL, "http", "ws", 1) + "/?user=" + userID
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func waitRegistered(t *testing.T, hub *Hub, userID string, want int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		hub.mu.RLock()
		n := len(hub.clients[userID])
		hub.mu.RUnlock()
		if n >= want {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("user %s: expected %d registered connections", userID, want)
}

func readEvent(t *testing.T, conn *websocket.Conn) OutgoingMessage {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)
	var msg OutgoingMessage
	require.NoError(t, json.Unmarshal(data, &msg))
	return msg
}

func TestBroadcastReachesOnlyOwner(t *testing.T) {
	hub, srv, _ := newHubServer(t)

	connA := dial(t, srv, "alice")
	connB := dial(t, srv, "bob")
	waitRegistered(t, hub, "alice", 1)
	waitRegistered(t, hub, "bob", 1)

	hub.BroadcastToUser("alice", OutgoingMessage{Type: EventChatCreated, Payload: ChatRef{ID: "c1"}})

	msg := readEvent(t, connA)
	assert.Equal(t, EventChatCreated, msg.Type)

	require.NoError(t, connB.SetReadDeadline(time.Now().Add(200*time.Millisecond)))
	_, _, err := connB.ReadMessage()
	assert.Error(t, err, "events of one owner must not leak to another")
}

func TestBroadcastReachesAllTabsOfOwner(t *testing.T) {
	hub, srv, _ := newHubServer(t)

	tab1 := dial(t, srv, "carol")
	tab2 := dial(t, srv, "carol")
	waitRegistered(t, hub, "carol", 2)

	hub.BroadcastToUser("carol", OutgoingMessage{Type: EventChatDeleted, Payload: ChatRef{ID: "c2"}})

	for _, conn := range []*websocket.Conn{tab1, tab2} {
		msg := readEvent(t, conn)
		assert.Equal(t, EventChatDeleted, msg.Type)
	}
}

func TestEventWireFormat(t *testing.T) {
	hub, srv, _ := newHubServer(t)

	conn := dial(t, srv, "dave")
	waitRegistered(t, hub, "dave", 1)

	hub.BroadcastToUser("dave", OutgoingMessage{Type: EventChatDeleted, Payload: ChatRef{ID: "c3"}})

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"chat_deleted","payload":{"id":"c3"}}`, string(data))
}

func TestShutdownClosesConnections(t *testing.T) {
	hub, srv, cancel := newHubServer(t)

	conn := dial(t, srv, "erin")
	waitRegistered(t, hub, "erin", 1)

	cancel()

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, _, err := conn.ReadMessage()
	assert.Error(t, err, "connection must be closed on shutdown")
}

func TestBroadcastToUnknownOwnerIsNoop(t *testing.T) {
	hub := NewHub(0)
	// Без Run и без клиентов: не должно ни паниковать, ни блокироваться.
	hub.BroadcastToUser("nobody", OutgoingMessage{Type: EventChatsCleared, Payload: struct{}{}})
}
