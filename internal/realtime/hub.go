package realtime

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/campus-portal/event-portal-api/internal/domain"
	"github.com/campus-portal/event-portal-api/internal/metrics"
)

const (
	RoomAdmin = "admin"

	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = pongWait * 9 / 10

	maxMessageSize = 4096
)

// Message is the frame pushed to clients.
type Message struct {
	Type string      `json:"type"`
	Room string      `json:"room,omitempty"`
	Data interface{} `json:"data,omitempty"`
}

type inbound struct {
	Type string `json:"type"`
	Room string `json:"room"`
}

type delivery struct {
	room    string
	payload []byte
}

type membership struct {
	client *Client
	room   string
}

type reply struct {
	client  *Client
	payload []byte
}

type Client struct {
	hub  *Hub
	conn *websocket.Conn
	send chan []byte

	userID uint
	role   domain.Role
}

// Hub owns every connection and room. Its maps are only touched from Run.
type Hub struct {
	upgrader   websocket.Upgrader
	sendBuffer int

	clients map[*Client]bool
	rooms   map[string]map[*Client]bool

	register   chan *Client
	unregister chan *Client
	join       chan membership
	replies    chan reply
	deliver    chan delivery
	done       chan struct{}
}

// NewHub accepts connections from allowedOrigins only; an empty list allows
// every origin.
func NewHub(allowedOrigins []string, sendBuffer int) *Hub {
	if sendBuffer <= 0 {
		sendBuffer = 256
	}

	h := &Hub{
		sendBuffer: sendBuffer,
		clients:    make(map[*Client]bool),
		rooms:      make(map[string]map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		join:       make(chan membership),
		replies:    make(chan reply),
		deliver:    make(chan delivery, sendBuffer),
		done:       make(chan struct{}),
	}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     originChecker(allowedOrigins),
	}

	return h
}

func originChecker(allowed []string) func(r *http.Request) bool {
	return func(r *http.Request) bool {
		if len(allowed) == 0 {
			return true
		}
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		for _, a := range allowed {
			if a == "*" || a == origin {
				return true
			}
		}
		return false
	}
}

func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			for client := range h.clients {
				h.remove(client)
			}
			close(h.done)
			return
		case client := <-h.register:
			h.clients[client] = true
			metrics.RealtimeConnections.Inc()
		case client := <-h.unregister:
			if h.clients[client] {
				h.remove(client)
			}
		case m := <-h.join:
			if !h.clients[m.client] {
				continue
			}
			if h.rooms[m.room] == nil {
				h.rooms[m.room] = make(map[*Client]bool)
			}
			h.rooms[m.room][m.client] = true
		case r := <-h.replies:
			// send is already closed once the client is gone
			if !h.clients[r.client] {
				continue
			}
			select {
			case r.client.send <- r.payload:
			default:
				metrics.RealtimeDropped.Inc()
			}
		case d := <-h.deliver:
			targets := h.clients
			if d.room != "" {
				targets = h.rooms[d.room]
			}
			for client := range targets {
				select {
				case client.send <- d.payload:
				default:
					metrics.RealtimeDropped.Inc()
					h.remove(client)
				}
			}
		}
	}
}

func (h *Hub) remove(client *Client) {
	delete(h.clients, client)
	for name, members := range h.rooms {
		delete(members, client)
		if len(members) == 0 {
			delete(h.rooms, name)
		}
	}
	close(client.send)
	metrics.RealtimeConnections.Dec()
}

// Broadcast sends to every connected client.
func (h *Hub) Broadcast(msgType string, payload interface{}) {
	h.enqueue("", Message{Type: msgType, Data: payload})
}

// SendToRoom sends to the members of room only.
func (h *Hub) SendToRoom(room, msgType string, payload interface{}) {
	h.enqueue(room, Message{Type: msgType, Room: room, Data: payload})
}

// enqueue never blocks the caller: a saturated hub drops the message.
func (h *Hub) enqueue(room string, msg Message) {
	b, err := json.Marshal(msg)
	if err != nil {
		zap.L().Error("realtime: json.Marshal", zap.String("type", msg.Type), zap.Error(err))
		return
	}

	select {
	case h.deliver <- delivery{room: room, payload: b}:
	default:
		metrics.RealtimeDropped.Inc()
		zap.L().Warn("realtime: hub saturated, message dropped", zap.String("type", msg.Type))
	}
}

// ServeWS upgrades the request. user is nil for anonymous listeners, which
// receive broadcasts but cannot join the admin room.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request, user *domain.User) error {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return err
	}

	client := &Client{
		hub:  h,
		conn: conn,
		send: make(chan []byte, h.sendBuffer),
	}
	if user != nil {
		client.userID = user.ID
		client.role = user.Role
	}

	select {
	case h.register <- client:
	case <-h.done:
		conn.Close()
		return nil
	}

	go client.writePump()
	go client.readPump()

	return nil
}

// mayJoin reports whether the client is entitled to room.
func (c *Client) mayJoin(room string) bool {
	if room == RoomAdmin {
		return c.role == domain.RoleAdmin
	}
	return room != ""
}

func (c *Client) readPump() {
	defer func() {
		select {
		case c.hub.unregister <- c:
		case <-c.hub.done:
		}
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				zap.L().Debug("realtime: read", zap.Uint("userID", c.userID), zap.Error(err))
			}
			return
		}

		var in inbound
		if err = json.Unmarshal(raw, &in); err != nil {
			c.reply(Message{Type: "error", Data: "malformed message"})
			continue
		}

		switch in.Type {
		case "join-room":
			if !c.mayJoin(in.Room) {
				c.reply(Message{Type: "error", Room: in.Room, Data: "not allowed to join this room"})
				continue
			}
			select {
			case c.hub.join <- membership{client: c, room: in.Room}:
			case <-c.hub.done:
				return
			}
			c.reply(Message{Type: "joined", Room: in.Room})
		default:
			c.reply(Message{Type: "error", Data: "unknown message type"})
		}
	}
}

// reply queues a frame for this client only. The hub performs the send so
// it never races with remove closing c.send.
func (c *Client) reply(msg Message) {
	b, err := json.Marshal(msg)
	if err != nil {
		return
	}
	select {
	case c.hub.replies <- reply{client: c, payload: b}:
	case <-c.hub.done:
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			w, err := c.conn.NextWriter(websocket.TextMessage)
			if err != nil {
				return
			}
			_, _ = w.Write(message)
			if err = w.Close(); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
