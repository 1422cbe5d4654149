package http

import (
	"log"
	"sync"

	"trivia-rooms/internal/game"
	"github.com/gorilla/websocket"
)

// client is one websocket connection with its outbound queue. A dedicated
// writer goroutine drains the queue so only one goroutine ever writes to the
// socket.
type client struct {
	id   string
	conn *websocket.Conn
	send chan game.Event

	mu     sync.Mutex
	closed bool
}

// push never blocks: when the queue is full the oldest event is dropped so a
// slow client cannot stall a room broadcast. Events arriving after close are
// discarded; the engine may still be tearing the connection down.
func (c *client) push(ev game.Event) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	select {
	case c.send <- ev:
	default:
		select {
		case <-c.send:
		default:
		}
		select {
		case c.send <- ev:
		default:
		}
	}
}

func (c *client) close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.closed {
		c.closed = true
		close(c.send)
	}
}

// Hub tracks live connections and room-scoped broadcast groups. It implements
// game.Broadcaster for the engine.
type Hub struct {
	mu    sync.RWMutex
	conns map[string]*client
	rooms map[string]map[string]struct{}
}

func NewHub() *Hub {
	return &Hub{
		conns: make(map[string]*client),
		rooms: make(map[string]map[string]struct{}),
	}
}

func (h *Hub) register(connID string, conn *websocket.Conn) *client {
	c := &client{id: connID, conn: conn, send: make(chan game.Event, 32)}

	h.mu.Lock()
	h.conns[connID] = c
	h.mu.Unlock()

	go func() {
		for ev := range c.send {
			if err := c.conn.WriteJSON(ev); err != nil {
				log.Printf("ws write to %s: %v", c.id, err)
				return
			}
		}
	}()
	return c
}

func (h *Hub) unregister(connID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	c, ok := h.conns[connID]
	if !ok {
		return
	}
	delete(h.conns, connID)
	for roomID, members := range h.rooms {
		delete(members, connID)
		if len(members) == 0 {
			delete(h.rooms, roomID)
		}
	}
	c.close()
}

func (h *Hub) ToConn(connID string, ev game.Event) {
	h.mu.RLock()
	c, ok := h.conns[connID]
	h.mu.RUnlock()
	if ok {
		c.push(ev)
	}
}

func (h *Hub) ToRoom(roomID string, ev game.Event) {
	h.ToRoomExcept(roomID, "", ev)
}

func (h *Hub) ToRoomExcept(roomID, exceptID string, ev game.Event) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for connID := range h.rooms[roomID] {
		if connID == exceptID {
			continue
		}
		if c, ok := h.conns[connID]; ok {
			c.push(ev)
		}
	}
}

func (h *Hub) Subscribe(roomID, connID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	members, ok := h.rooms[roomID]
	if !ok {
		members = make(map[string]struct{})
		h.rooms[roomID] = members
	}
	members[connID] = struct{}{}
}

func (h *Hub) Unsubscribe(roomID, connID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if members, ok := h.rooms[roomID]; ok {
		delete(members, connID)
		if len(members) == 0 {
			delete(h.rooms, roomID)
		}
	}
}

func (h *Hub) CloseRoom(roomID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.rooms, roomID)
}
