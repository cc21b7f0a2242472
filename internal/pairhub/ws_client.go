package pairhub

import (
	"encoding/json"
	"log"
	"sync"
	"time"

	"vidgogo/backend/internal/models"

	"github.com/gorilla/websocket"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10

	// SDP offers run to a few KB; leave generous headroom.
	maxMessageSize = 64 * 1024

	// SendBufferSize bounds the per-client outbound queue. When it
	// fills, frames are dropped rather than letting a slow client
	// backpressure the hub.
	SendBufferSize = 256
)

// WebSocketClient implements the Client interface over a
// gorilla/websocket connection.
type WebSocketClient struct {
	UserID string
	Conn   *websocket.Conn
	Hub    *ManagerService
	Send   chan models.Frame

	done      chan struct{}
	closeOnce sync.Once
}

// NewWebSocketClient wraps an upgraded connection. Run starts the pumps.
func NewWebSocketClient(hub *ManagerService, userID string, conn *websocket.Conn) *WebSocketClient {
	return &WebSocketClient{
		UserID: userID,
		Conn:   conn,
		Hub:    hub,
		Send:   make(chan models.Frame, SendBufferSize),
		done:   make(chan struct{}),
	}
}

func (c *WebSocketClient) GetUserID() string                   { return c.UserID }
func (c *WebSocketClient) GetSendChannel() chan<- models.Frame { return c.Send }

// Run starts the read and write pumps.
func (c *WebSocketClient) Run() {
	go c.writePump()
	go c.readPump()
}

// Close signals the write pump to shut down. Safe to call more than
// once. The Send channel itself is never closed: the session and
// matcher goroutines may be mid-send when the hub tears a client down,
// and a send on a closed channel panics even under select/default.
func (c *WebSocketClient) Close() {
	c.closeOnce.Do(func() {
		close(c.done)
	})
}

// readPump reads frames off the WebSocket and hands them to the hub.
// A malformed frame earns the client an error frame and is dropped;
// the connection survives.
func (c *WebSocketClient) readPump() {
	defer func() {
		c.Hub.UnregisterCh <- c
		c.Conn.Close()
	}()

	c.Conn.SetReadLimit(maxMessageSize)
	c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	c.Conn.SetPongHandler(func(string) error {
		c.Conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, message, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("error reading message from %s: %v", c.UserID, err)
			}
			break
		}

		var frame models.Frame
		if err := json.Unmarshal(message, &frame); err != nil {
			log.Printf("Error decoding frame from client %s: %v", c.UserID, err)
			trySend(c, models.Frame{
				Type:    models.FrameError,
				Code:    CodeInvalidFrame,
				Message: "malformed frame",
			})
			continue
		}

		c.Hub.InboundCh <- InboundFrame{Client: c, Frame: frame}
	}
}

// writePump drains the Send channel onto the WebSocket and keeps the
// connection alive with pings.
func (c *WebSocketClient) writePump() {
	ticker := time.NewTicker(pingPeriod)

	defer func() {
		ticker.Stop()
		c.Conn.Close()
	}()

	for {
		select {
		case frame := <-c.Send:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteJSON(frame); err != nil {
				return
			}

		case <-c.done:
			// Shut down by the hub; tell the peer goodbye.
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
			return

		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
