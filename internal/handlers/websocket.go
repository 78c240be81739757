package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer
	pongWait = 60 * time.Second

	// Send pings to peer with this period (must be less than pongWait)
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer
	maxMessageSize = 512
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Allow all origins (for development)
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// WebSocketMessage represents a message sent over WebSocket
type WebSocketMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// Client represents a WebSocket client connection
type Client struct {
	hub  *Hub
	conn *websocket.Conn
	send chan []byte
	// Caller identity
	principal string
}

// subscription is a request to start or stop watching a specific NFT.
type subscription struct {
	client *Client
	nftID  uint64
	add    bool
}

// nftEvent is a message targeted at the watchers of one NFT.
type nftEvent struct {
	nftID   uint64
	message []byte
}

// Hub maintains the set of active clients and broadcasts marketplace events
// (mints, bids, sales, finalizations) to them. Events about a specific NFT are
// additionally delivered to clients subscribed to that NFT id. All map access
// happens on the Run goroutine.
type Hub struct {
	// Registered clients
	clients map[*Client]bool

	// Clients by NFT id that they're watching
	nftClients map[uint64]map[*Client]bool

	// Inbound messages from the clients
	broadcast chan []byte

	// Targeted messages for the watchers of one NFT
	nftBroadcast chan nftEvent

	// Subscribe/unsubscribe requests from the clients
	subscribe chan subscription

	// Register requests from the clients
	register chan *Client

	// Unregister requests from clients
	unregister chan *Client

	logger *zap.Logger
}

// NewHub creates a new hub
func NewHub(logger *zap.Logger) *Hub {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Hub{
		broadcast:    make(chan []byte),
		nftBroadcast: make(chan nftEvent),
		subscribe:    make(chan subscription),
		register:     make(chan *Client),
		unregister:   make(chan *Client),
		clients:      make(map[*Client]bool),
		nftClients:   make(map[uint64]map[*Client]bool),
		logger:       logger,
	}
}

// Run starts the hub
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.clients[client] = true
		case client := <-h.unregister:
			if _, ok := h.clients[client]; ok {
				h.dropClient(client)
			}
		case sub := <-h.subscribe:
			if sub.add {
				if _, ok := h.nftClients[sub.nftID]; !ok {
					h.nftClients[sub.nftID] = make(map[*Client]bool)
				}
				h.nftClients[sub.nftID][sub.client] = true
			} else if watchers, ok := h.nftClients[sub.nftID]; ok {
				delete(watchers, sub.client)
				if len(watchers) == 0 {
					delete(h.nftClients, sub.nftID)
				}
			}
		case message := <-h.broadcast:
			// Broadcast message to all clients
			for client := range h.clients {
				select {
				case client.send <- message:
				default:
					h.dropClient(client)
				}
			}
		case ev := <-h.nftBroadcast:
			for client := range h.nftClients[ev.nftID] {
				select {
				case client.send <- ev.message:
				default:
					h.dropClient(client)
				}
			}
		}
	}
}

// dropClient removes a client from the hub and every NFT watch list.
func (h *Hub) dropClient(client *Client) {
	delete(h.clients, client)
	for nftID, watchers := range h.nftClients {
		delete(watchers, client)
		if len(watchers) == 0 {
			delete(h.nftClients, nftID)
		}
	}
	close(client.send)
}

// Publish broadcasts a marketplace event to every connected client. It is safe
// to call from any goroutine.
func (h *Hub) Publish(event string, payload any) {
	message, ok := h.encode(event, payload)
	if ok {
		h.broadcast <- message
	}
}

// PublishNFT delivers an event to the clients watching one NFT. It is safe to
// call from any goroutine.
func (h *Hub) PublishNFT(nftID uint64, event string, payload any) {
	message, ok := h.encode(event, payload)
	if ok {
		h.nftBroadcast <- nftEvent{nftID: nftID, message: message}
	}
}

func (h *Hub) encode(event string, payload any) ([]byte, bool) {
	body, err := json.Marshal(payload)
	if err != nil {
		h.logger.Error("marshal event payload", zap.String("event", event), zap.Error(err))
		return nil, false
	}
	message, err := json.Marshal(WebSocketMessage{Type: event, Payload: body})
	if err != nil {
		h.logger.Error("marshal event", zap.String("event", event), zap.Error(err))
		return nil, false
	}
	return message, true
}

// readPump pumps messages from the WebSocket connection to the hub
func (c *Client) readPump() {
	defer func() {
		c.hub.unregister <- c
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.hub.logger.Warn("websocket read", zap.Error(err))
			}
			break
		}

		// Parse the message
		var wsMessage WebSocketMessage
		if err := json.Unmarshal(message, &wsMessage); err != nil {
			c.hub.logger.Warn("parse message", zap.Error(err))
			continue
		}

		// Handle different message types
		switch wsMessage.Type {
		case "subscribe", "unsubscribe":
			nftID, ok := parseNFTID(wsMessage.Payload)
			if !ok {
				c.hub.logger.Warn("parse subscription payload", zap.String("type", wsMessage.Type))
				continue
			}
			c.hub.subscribe <- subscription{client: c, nftID: nftID, add: wsMessage.Type == "subscribe"}
		}
	}
}

func parseNFTID(payload json.RawMessage) (uint64, bool) {
	var raw string
	if err := json.Unmarshal(payload, &raw); err != nil {
		// Also accept a bare number
		var n uint64
		if err := json.Unmarshal(payload, &n); err != nil {
			return 0, false
		}
		return n, true
	}
	n, err := strconv.ParseUint(raw, 10, 64)
	return n, err == nil
}

// writePump pumps messages from the hub to the WebSocket connection
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// The hub closed the channel
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			w, err := c.conn.NextWriter(websocket.TextMessage)
			if err != nil {
				return
			}
			w.Write(message)

			// Add queued messages
			n := len(c.send)
			for i := 0; i < n; i++ {
				w.Write([]byte{'\n'})
				w.Write(<-c.send)
			}

			if err := w.Close(); err != nil {
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

// ServeWs handles WebSocket requests from clients
func ServeWs(hub *Hub) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			hub.logger.Warn("websocket upgrade", zap.Error(err))
			return
		}

		principal, _ := PrincipalFromContext(r.Context())

		client := &Client{
			hub:       hub,
			conn:      conn,
			send:      make(chan []byte, 256),
			principal: principal,
		}
		client.hub.register <- client

		// Send welcome message
		welcomeMsg := WebSocketMessage{
			Type:    "welcome",
			Payload: json.RawMessage(`{"message":"Connected to Tulips marketplace"}`),
		}
		welcomeBytes, _ := json.Marshal(welcomeMsg)
		client.send <- welcomeBytes

		// Allow collection of memory referenced by the caller by doing all work in
		// new goroutines
		go client.writePump()
		go client.readPump()
	}
}
