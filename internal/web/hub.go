package web

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/gofiber/websocket/v2"
	"go.uber.org/zap"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10

	// Clients only send pongs and close frames.
	maxMessageSize = 4 * 1024

	clientBuffer = 16
)

type messageType int

const (
	textMessage messageType = iota
	binaryMessage
)

type message struct {
	typ  messageType
	data []byte
}

// hub fans messages out to websocket clients. Clients whose buffer fills up
// are dropped rather than slowing the others down.
type hub struct {
	name   string
	logger *zap.SugaredLogger

	clients    map[*client]bool
	broadcast  chan message
	register   chan *client
	unregister chan *client

	mu    sync.RWMutex
	count int
}

func newHub(name string, logger *zap.SugaredLogger) *hub {
	return &hub{
		name:       name,
		logger:     logger.With("hub", name),
		clients:    make(map[*client]bool),
		broadcast:  make(chan message, 64),
		register:   make(chan *client),
		unregister: make(chan *client),
	}
}

func (h *hub) run(ctx context.Context) {
	defer func() {
		for c := range h.clients {
			close(c.send)
			delete(h.clients, c)
		}
		h.setCount(0)
	}()

	for {
		select {
		case <-ctx.Done():
			return

		case c := <-h.register:
			h.clients[c] = true
			h.setCount(len(h.clients))
			h.logger.Debugw("client connected", "clients", len(h.clients))

		case c := <-h.unregister:
			if h.clients[c] {
				delete(h.clients, c)
				close(c.send)
			}
			h.setCount(len(h.clients))
			h.logger.Debugw("client disconnected", "clients", len(h.clients))

		case msg := <-h.broadcast:
			for c := range h.clients {
				select {
				case c.send <- msg:
				default:
					close(c.send)
					delete(h.clients, c)
					h.logger.Infow("dropped slow client")
				}
			}
			h.setCount(len(h.clients))
		}
	}
}

func (h *hub) setCount(n int) {
	h.mu.Lock()
	h.count = n
	h.mu.Unlock()
}

func (h *hub) clientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.count
}

// publish queues msg without blocking; it is dropped if the hub is behind.
func (h *hub) publish(msg message) {
	select {
	case h.broadcast <- msg:
	default:
		h.logger.Debugw("broadcast queue full, dropping message")
	}
}

func (h *hub) publishJSON(v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	h.publish(message{typ: textMessage, data: data})
	return nil
}

func (h *hub) publishBinary(data []byte) {
	h.publish(message{typ: binaryMessage, data: data})
}

// client is one websocket connection attached to a hub.
type client struct {
	hub  *hub
	conn *websocket.Conn
	send chan message
}

// serve registers conn with h and pumps messages until either side closes.
func (h *hub) serve(ctx context.Context, conn *websocket.Conn) {
	c := &client{hub: h, conn: conn, send: make(chan message, clientBuffer)}
	select {
	case h.register <- c:
	case <-ctx.Done():
		return
	}

	go c.writePump()
	c.readPump(ctx)
}

func (c *client) readPump(ctx context.Context) {
	defer func() {
		select {
		case c.hub.unregister <- c:
		case <-ctx.Done():
		}
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

// writePump is the only writer on the connection.
func (c *client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			wsType := websocket.TextMessage
			if msg.typ == binaryMessage {
				wsType = websocket.BinaryMessage
			}
			if err := c.conn.WriteMessage(wsType, msg.data); err != nil {
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
