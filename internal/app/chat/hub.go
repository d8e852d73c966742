/*
Package chat contains the live-update layer: a room-scoped WebSocket hub that
pushes message and typing events to subscribed clients.

The hub is additive to the HTTP polling contract. Clients that never open a
socket observe the same state through GET /api/messages and GET /api/typing;
clients that do get the same events pushed without waiting for the next poll.
*/
package chat

import (
	"encoding/json"
	"sync"

	"github.com/rs/zerolog"

	"retrochat/internal/pkg/logx"
)

// Event types pushed to room subscribers.
const (
	EventMessage    = "message"
	EventTyping     = "typing"
	EventStopTyping = "stop_typing"
)

// Event is the envelope broadcast to every subscriber of a room.
type Event struct {
	Type    string `json:"type"`
	Room    string `json:"room"`
	Payload any    `json:"payload,omitempty"`
}

// roomEvent pairs a serialized event with its destination room.
type roomEvent struct {
	room string
	data []byte
}

// Hub coordinates room subscriptions and event fan-out.
// All subscription state is owned by the Run loop; the public methods only
// communicate with it over channels.
type Hub struct {
	rooms map[string]map[*Client]bool

	register   chan *Client
	unregister chan *Client
	broadcast  chan roomEvent
	done       chan struct{}

	wg sync.WaitGroup

	logger zerolog.Logger
}

// NewHub constructs a hub and starts its run loop.
func NewHub() *Hub {
	h := &Hub{
		rooms:      make(map[string]map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan roomEvent, 64),
		done:       make(chan struct{}),
		logger:     logx.Logger().With().Str("component", "Hub").Logger(),
	}

	h.wg.Add(1)
	go h.run()

	return h
}

func (h *Hub) run() {
	defer h.wg.Done()

	h.logger.Info().Msg("Hub run loop started.")

	for {
		select {
		case client := <-h.register:
			subscribers, ok := h.rooms[client.room]
			if !ok {
				subscribers = make(map[*Client]bool)
				h.rooms[client.room] = subscribers
			}
			subscribers[client] = true
			h.logger.Info().Str("room", client.room).Int("subscribers", len(subscribers)).
				Msg("Client subscribed.")

		case client := <-h.unregister:
			h.dropClient(client)

		case event := <-h.broadcast:
			for client := range h.rooms[event.room] {
				select {
				case client.send <- event.data:
				default:
					// Slow consumer: drop it rather than block the hub.
					h.dropClient(client)
				}
			}

		case <-h.done:
			for room, subscribers := range h.rooms {
				for client := range subscribers {
					close(client.send)
				}
				delete(h.rooms, room)
			}
			h.logger.Info().Msg("Hub run loop stopped.")
			return
		}
	}
}

// dropClient removes a client from its room and closes its send channel.
// Run-loop only.
func (h *Hub) dropClient(client *Client) {
	subscribers, ok := h.rooms[client.room]
	if !ok {
		return
	}
	if _, ok := subscribers[client]; !ok {
		return
	}

	delete(subscribers, client)
	close(client.send)

	if len(subscribers) == 0 {
		delete(h.rooms, client.room)
	}

	h.logger.Info().Str("room", client.room).Int("subscribers", len(subscribers)).
		Msg("Client unsubscribed.")
}

// Publish fans an event out to every subscriber of its room.
// It never blocks the caller: when the hub's queue is full the event is
// dropped, since pollers will pick the state up on their next request anyway.
func (h *Hub) Publish(event Event) {
	data, err := json.Marshal(event)
	if err != nil {
		h.logger.Error().Err(err).Str("event_type", event.Type).Msg("Failed to encode event.")
		return
	}

	select {
	case h.broadcast <- roomEvent{room: event.Room, data: data}:
	case <-h.done:
	default:
		h.logger.Warn().Str("room", event.Room).Msg("Broadcast queue full, event dropped.")
	}
}

// Shutdown stops the run loop and disconnects every subscriber.
func (h *Hub) Shutdown() {
	close(h.done)
	h.wg.Wait()
}
