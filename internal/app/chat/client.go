package chat

import (
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"retrochat/internal/pkg/logx"
)

const (
	// timeout for writing a frame to the WebSocket connection.
	writeWait = 10 * time.Second

	// maximum time the server waits for a Pong from the client.
	pongWait = 60 * time.Second

	// frequency of server Ping frames, under pongWait.
	pingPeriod = (pongWait * 9) / 10

	// maximum size of inbound frames. The socket is read-only for clients,
	// so anything beyond a control frame is suspicious.
	maxMessageSize = 512
)

// Client represents one WebSocket subscription to a room's event feed.
type Client struct {
	hub  *Hub
	conn *websocket.Conn
	room string

	// send queues serialized events awaiting delivery to this client.
	send chan []byte

	logger zerolog.Logger
}

// NewClient wraps an upgraded connection as a subscriber of the given room.
func NewClient(hub *Hub, conn *websocket.Conn, room string) *Client {
	return &Client{
		hub:  hub,
		conn: conn,
		room: room,
		send: make(chan []byte, 64),
		logger: logx.Logger().With().
			Str("component", "ChatClient").
			Str("room", room).
			Logger(),
	}
}

// Subscribe registers the client with the hub and starts its pumps.
// It blocks until the connection closes.
func (c *Client) Subscribe() {
	c.hub.register <- c

	go c.writePump()
	c.readPump()
}

// readPump drains inbound frames. The feed is one-way: client frames carry no
// meaning beyond keeping the connection (and its Pong handler) alive.
func (c *Client) readPump() {
	defer func() {
		c.hub.unregister <- c
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	if err := c.conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
		c.logger.Error().Err(err).Msg("Failed to set read deadline")
		return
	}
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.logger.Info().Err(err).Msg("Subscriber connection closed unexpectedly")
			}
			return
		}
	}
}

// writePump delivers queued events to the connection and keeps it alive with
// periodic Ping frames.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case data, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
