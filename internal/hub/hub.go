// Package hub fans room messages out to websocket members. It owns no chat
// semantics: callers hand it fully-formed messages and it delivers them,
// dropping members whose sockets have gone dead.
package hub

import (
	"encoding/json"
	"sync"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"squadchat/internal/logging"
)

// Message is the outbound wire shape. Every delivered message carries a
// fresh id so clients can deduplicate replays.
type Message struct {
	ID     string `json:"id"`
	Sender string `json:"sender"`
	Body   string `json:"message"`
	Image  string `json:"image,omitempty"`
	Room   string `json:"room"`
}

// NewMessage builds a Message with a fresh id.
func NewMessage(roomKey, sender, body string) Message {
	return Message{
		ID:     uuid.NewString(),
		Sender: sender,
		Body:   body,
		Room:   roomKey,
	}
}

const sendBuffer = 64

// Client is one connected websocket member of a room.
type Client struct {
	ID   string
	Room string

	conn *websocket.Conn
	send chan []byte
	once sync.Once
}

// Send queues a message for this client only. Used for history replay on
// join. Returns false if the client's buffer is full or closed.
func (c *Client) Send(m Message) bool {
	data, err := json.Marshal(m)
	if err != nil {
		return false
	}
	select {
	case c.send <- data:
		return true
	default:
		return false
	}
}

// Read blocks until the next inbound frame and returns its raw payload.
// Inbound frames are not always JSON; callers own the decode.
func (c *Client) Read() ([]byte, error) {
	_, data, err := c.conn.ReadMessage()
	return data, err
}

func (c *Client) close() {
	c.once.Do(func() {
		close(c.send)
	})
}

// writePump drains the send channel onto the socket. Runs on its own
// goroutine per client; exits when the channel closes or a write fails.
func (c *Client) writePump() {
	defer c.conn.Close()
	for data := range c.send {
		if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
			logging.Debug("hub", "write to %s failed: %v", c.ID, err)
			return
		}
	}
}

// Hub tracks room membership and broadcasts to it.
type Hub struct {
	mu    sync.Mutex
	rooms map[string]map[*Client]struct{}
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{rooms: make(map[string]map[*Client]struct{})}
}

// Join registers a connection as a member of roomKey and starts its writer.
func (h *Hub) Join(roomKey string, conn *websocket.Conn) *Client {
	c := &Client{
		ID:   uuid.NewString(),
		Room: roomKey,
		conn: conn,
		send: make(chan []byte, sendBuffer),
	}
	h.mu.Lock()
	members, ok := h.rooms[roomKey]
	if !ok {
		members = make(map[*Client]struct{})
		h.rooms[roomKey] = members
	}
	members[c] = struct{}{}
	h.mu.Unlock()

	go c.writePump()
	logging.Debug("hub", "client %s joined room %s", c.ID, roomKey)
	return c
}

// Leave removes the client from its room and closes its writer.
func (h *Hub) Leave(c *Client) {
	h.mu.Lock()
	if members, ok := h.rooms[c.Room]; ok {
		delete(members, c)
		if len(members) == 0 {
			delete(h.rooms, c.Room)
		}
	}
	h.mu.Unlock()
	c.close()
}

// Broadcast delivers m to every member of roomKey. Members whose buffers are
// full are dropped from the room; a dead reader must not stall the rest.
func (h *Hub) Broadcast(roomKey string, m Message) {
	data, err := json.Marshal(m)
	if err != nil {
		logging.Info("hub", "broadcast marshal failed: %v", err)
		return
	}

	h.mu.Lock()
	var dead []*Client
	for c := range h.rooms[roomKey] {
		select {
		case c.send <- data:
		default:
			dead = append(dead, c)
		}
	}
	for _, c := range dead {
		delete(h.rooms[roomKey], c)
	}
	if len(h.rooms[roomKey]) == 0 {
		delete(h.rooms, roomKey)
	}
	h.mu.Unlock()

	for _, c := range dead {
		c.close()
	}
}

// Members returns how many clients are in roomKey.
func (h *Hub) Members(roomKey string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.rooms[roomKey])
}

// RoomCount returns how many rooms currently have members.
func (h *Hub) RoomCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.rooms)
}
