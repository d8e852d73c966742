package chat

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// newTestClient builds a subscriber without a real connection; the hub only
// touches the room and send fields.
func newTestClient(h *Hub, room string) *Client {
	return &Client{
		hub:  h,
		room: room,
		send: make(chan []byte, 4),
	}
}

func receiveEvent(t *testing.T, c *Client) Event {
	t.Helper()

	select {
	case data := <-c.send:
		var event Event
		require.NoError(t, json.Unmarshal(data, &event))
		return event
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for event")
		return Event{}
	}
}

func TestHub_PublishReachesRoomSubscribers(t *testing.T) {
	req := require.New(t)
	h := NewHub()
	defer h.Shutdown()

	lobby := newTestClient(h, "lobby")
	trading := newTestClient(h, "trading")
	h.register <- lobby
	h.register <- trading

	h.Publish(Event{Type: EventMessage, Room: "lobby", Payload: map[string]string{"message": "gm"}})

	event := receiveEvent(t, lobby)
	req.Equal(EventMessage, event.Type)
	req.Equal("lobby", event.Room)

	// The other room saw nothing.
	select {
	case <-trading.send:
		t.Fatal("event leaked into another room")
	case <-time.After(50 * time.Millisecond):
	}
}

func TestHub_UnregisterStopsDelivery(t *testing.T) {
	req := require.New(t)
	h := NewHub()
	defer h.Shutdown()

	client := newTestClient(h, "lobby")
	h.register <- client
	h.unregister <- client

	// The send channel is closed once the hub drops the client.
	select {
	case _, open := <-client.send:
		req.False(open)
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for send channel to close")
	}
}

func TestHub_ShutdownClosesSubscribers(t *testing.T) {
	req := require.New(t)
	h := NewHub()

	client := newTestClient(h, "lobby")
	h.register <- client

	h.Shutdown()

	_, open := <-client.send
	req.False(open)
}
