package ws

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"comms-service/internal/models"
)

func TestHubSubscribeAndUnsubscribe(t *testing.T) {
	hub := NewHub()

	hub.Subscribe(1, nil, ConnInfo{ConnID: "a"})
	if len(hub.channelRooms) != 1 {
		t.Fatalf("expected channel room to be created")
	}
	if len(hub.channelInfo[1]) != 1 {
		t.Fatalf("expected connection info to be tracked")
	}

	hub.Unsubscribe(1, nil)
	if len(hub.channelRooms) != 0 {
		t.Fatalf("expected channel room to be removed")
	}
	if len(hub.channelInfo) != 0 {
		t.Fatalf("expected connection info to be removed")
	}
}

func TestHubAddAndRemoveUserClient(t *testing.T) {
	hub := NewHub()

	hub.AddUserClient(2, nil, ConnInfo{ConnID: "b"})
	if len(hub.userRooms) != 1 {
		t.Fatalf("expected user room to be created")
	}

	hub.RemoveUserClient(2, nil)
	if len(hub.userRooms) != 0 {
		t.Fatalf("expected user room to be removed")
	}
	if len(hub.userInfo) != 0 {
		t.Fatalf("expected user connection info to be removed")
	}
}

// newSubscribedClient dials a real websocket connection and subscribes its
// server side to the channel as the given user.
func newSubscribedClient(t *testing.T, hub *Hub, channelID, userID int) *websocket.Conn {
	t.Helper()
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		hub.Subscribe(channelID, conn, ConnInfo{ConnID: newConnID(), UserID: userID, ConnectedAt: time.Now()})
	}))
	t.Cleanup(srv.Close)

	_, before, _, _ := hub.Stats()
	client, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	if err != nil {
		t.Fatalf("dial failed: %v", err)
	}
	t.Cleanup(func() { client.Close() })

	deadline := time.Now().Add(time.Second)
	for {
		if _, conns, _, _ := hub.Stats(); conns > before {
			return client
		}
		if time.Now().After(deadline) {
			t.Fatalf("subscription never registered")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestDropUserFromChannelStopsDelivery(t *testing.T) {
	hub := NewHub()
	removed := newSubscribedClient(t, hub, 42, 2)
	remaining := newSubscribedClient(t, hub, 42, 3)

	hub.BroadcastToChannel(42, models.ChannelEvent{Type: models.EventMessage, ChannelID: 42})
	removed.SetReadDeadline(time.Now().Add(time.Second))
	if _, _, err := removed.ReadMessage(); err != nil {
		t.Fatalf("expected delivery before removal, got %v", err)
	}

	hub.DropUserFromChannel(42, 2)
	hub.BroadcastToChannel(42, models.ChannelEvent{Type: models.EventMessage, ChannelID: 42})

	// The evicted connection is closed server side: the next read must fail
	// instead of delivering the second broadcast.
	removed.SetReadDeadline(time.Now().Add(time.Second))
	if _, _, err := removed.ReadMessage(); err == nil {
		t.Fatalf("expected no delivery after removal")
	}

	remaining.SetReadDeadline(time.Now().Add(time.Second))
	for i := 0; i < 2; i++ {
		if _, _, err := remaining.ReadMessage(); err != nil {
			t.Fatalf("expected remaining member to keep receiving, got %v", err)
		}
	}
}

func TestDropChannelClosesAllConnections(t *testing.T) {
	hub := NewHub()
	a := newSubscribedClient(t, hub, 7, 1)
	b := newSubscribedClient(t, hub, 7, 2)

	hub.DropChannel(7)

	for _, client := range []*websocket.Conn{a, b} {
		client.SetReadDeadline(time.Now().Add(time.Second))
		if _, _, err := client.ReadMessage(); err == nil {
			t.Fatalf("expected connection to be closed after channel drop")
		}
	}
	if rooms, conns, _, _ := hub.Stats(); rooms != 0 || conns != 0 {
		t.Fatalf("expected empty channel rooms, got %d rooms %d conns", rooms, conns)
	}
}

func TestHubStats(t *testing.T) {
	hub := NewHub()

	hub.Subscribe(1, nil, ConnInfo{ConnID: "a"})
	hub.AddUserClient(2, nil, ConnInfo{ConnID: "b"})

	channelRooms, channelConns, userRooms, userConns := hub.Stats()
	if channelRooms != 1 || channelConns != 1 {
		t.Fatalf("expected one channel room with one connection, got %d/%d", channelRooms, channelConns)
	}
	if userRooms != 1 || userConns != 1 {
		t.Fatalf("expected one user room with one connection, got %d/%d", userRooms, userConns)
	}
}

func TestHubUnsubscribeUnknownChannelIsNoop(t *testing.T) {
	hub := NewHub()

	hub.Unsubscribe(99, nil)
	hub.RemoveUserClient(99, nil)
	if len(hub.channelRooms) != 0 || len(hub.userRooms) != 0 {
		t.Fatalf("expected hub to stay empty")
	}
}
