package api

import (
	"encoding/json"
	"log"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/simonerocutto/role-based-joust/internal/game"

	"github.com/gorilla/websocket"
)

const (
	// MaxWSConnectionsTotal is the maximum number of WebSocket connections allowed.
	MaxWSConnectionsTotal = 500

	// MaxWSConnectionsPerIP is the maximum WebSocket connections per IP.
	MaxWSConnectionsPerIP = 10
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if IsAllowedOrigin(origin) {
			return true
		}
		log.Printf("⚠️ WebSocket connection rejected from origin: %s", origin)
		RecordConnectionRejected("origin")
		return false
	},
}

// wsClient tracks a WebSocket connection with its source IP and the
// player id it has registered, if any (set once the client sends
// its "join" message).
type wsClient struct {
	conn *websocket.Conn
	ip   string

	mu       sync.Mutex
	playerID string
	socketID string
}

// WebSocketHub fans out engine events to every connected dashboard/player
// client and relays inbound client messages (join/ready/motion/base:tap)
// to the engine through its enqueue path.
type WebSocketHub struct {
	engine *game.Engine

	clients    map[*websocket.Conn]*wsClient
	broadcast  chan []byte
	register   chan *wsClient
	unregister chan *websocket.Conn
	mu         sync.RWMutex

	wsLimiter *WebSocketRateLimiter
}

// NewWebSocketHub creates a hub bound to engine, wired to broadcast every
// event the engine's bus publishes (spec §6's WS event catalog).
func NewWebSocketHub(engine *game.Engine) *WebSocketHub {
	h := &WebSocketHub{
		engine:     engine,
		clients:    make(map[*websocket.Conn]*wsClient),
		broadcast:  make(chan []byte, 256),
		register:   make(chan *wsClient),
		unregister: make(chan *websocket.Conn),
		wsLimiter:  NewWebSocketRateLimiter(MaxWSConnectionsPerIP),
	}
	engine.Bus().Subscribe(func(evt game.Event) {
		h.Broadcast(evt.Kind.String(), evt.Payload)
	})
	return h
}

// Run starts the hub's dispatch loop.
func (h *WebSocketHub) Run() {
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client.conn] = client
			h.mu.Unlock()
			count := len(h.clients)
			log.Printf("📱 client connected from %s (%d total)", client.ip, count)
			UpdateWSConnections(count)

		case conn := <-h.unregister:
			h.mu.Lock()
			client, ok := h.clients[conn]
			if ok {
				h.wsLimiter.Release(client.ip)
				delete(h.clients, conn)
				conn.Close()
			}
			h.mu.Unlock()
			if ok && client.playerID != "" {
				h.engine.HandleLobbyDisconnect(client.playerID, client.socketID)
			}
			count := len(h.clients)
			log.Printf("📱 client disconnected (%d remaining)", count)
			UpdateWSConnections(count)

		case message := <-h.broadcast:
			h.mu.RLock()
			for conn := range h.clients {
				if err := conn.WriteMessage(websocket.TextMessage, message); err != nil {
					conn.Close()
					h.mu.RUnlock()
					h.mu.Lock()
					if client, ok := h.clients[conn]; ok {
						h.wsLimiter.Release(client.ip)
						delete(h.clients, conn)
					}
					h.mu.Unlock()
					h.mu.RLock()
				}
			}
			h.mu.RUnlock()
			IncrementWSMessages()
		}
	}
}

// wireMessage is the broadcast envelope: {event, data}, matching the way
// every spec §6 WS event name is described ("name {payload}").
type wireMessage struct {
	Event string      `json:"event"`
	Data  interface{} `json:"data"`
}

// Broadcast sends one event to every connected client.
func (h *WebSocketHub) Broadcast(event string, data interface{}) {
	jsonBytes, err := json.Marshal(wireMessage{Event: event, Data: data})
	if err != nil {
		return
	}
	select {
	case h.broadcast <- jsonBytes:
	default:
		// Channel full: drop rather than block the publishing tick.
	}
}

// ClientCount returns the number of connected clients.
func (h *WebSocketHub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// inboundMessage is what a player/base device sends up the socket. Exactly
// one of the fields relevant to Type is populated.
type inboundMessage struct {
	Type      string  `json:"type"`
	PlayerID  string  `json:"playerId"`
	Name      string  `json:"name"`
	Ready     bool    `json:"ready"`
	Intensity float64 `json:"intensity"`
	BaseID    string  `json:"baseId"`
	TeamID    int     `json:"teamId"`
}

// HandleWebSocket upgrades the connection and relays inbound/outbound
// traffic for one client.
func (h *WebSocketHub) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	ip := GetClientIP(r)

	h.mu.RLock()
	total := len(h.clients)
	h.mu.RUnlock()
	if total >= MaxWSConnectionsTotal {
		log.Printf("⚠️ WebSocket connection rejected: total limit reached (%d)", total)
		RecordConnectionRejected("ws_total_limit")
		http.Error(w, "too many connections", http.StatusServiceUnavailable)
		return
	}

	if !h.wsLimiter.Allow(ip) {
		log.Printf("⚠️ WebSocket connection rejected from %s: per-IP limit reached", ip)
		RecordConnectionRejected("ws_ip_limit")
		http.Error(w, "too many connections from your IP", http.StatusTooManyRequests)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("WebSocket upgrade error: %v", err)
		h.wsLimiter.Release(ip)
		return
	}

	client := &wsClient{conn: conn, ip: ip, socketID: newSocketID()}
	h.register <- client

	go func() {
		defer func() { h.unregister <- conn }()

		for {
			_, raw, err := conn.ReadMessage()
			if err != nil {
				break
			}
			var msg inboundMessage
			if err := json.Unmarshal(raw, &msg); err != nil {
				continue
			}
			h.handleInbound(client, msg)
		}
	}()
}

// handleInbound dispatches one parsed client message onto the engine's
// command queue. Unrecognized ids/commands are rejected inside the
// engine (spec §7's Unknown-entity / Input-rejection taxonomy); the
// socket layer itself never validates engine state.
func (h *WebSocketHub) handleInbound(client *wsClient, msg inboundMessage) {
	switch msg.Type {
	case "join":
		res := h.engine.RegisterPlayer(msg.PlayerID, client.socketID, msg.Name, false)
		if res.OK {
			client.mu.Lock()
			client.playerID = msg.PlayerID
			client.mu.Unlock()
		}
	case "ready":
		h.engine.SetReady(msg.PlayerID, msg.Ready)
	case "motion":
		h.engine.ApplyMotion(msg.PlayerID, game.MovementSample{Intensity: msg.Intensity, At: time.Now()})
	case "base:tap":
		h.engine.TapBase(msg.BaseID, msg.TeamID)
	default:
		log.Printf("📨 unrecognized WebSocket message type %q from %s", msg.Type, client.ip)
	}
}

var socketIDCounter uint64
var socketIDMu sync.Mutex

// newSocketID mints a per-connection id distinct from the player id a
// "join" message later attaches (a player may reconnect under a new
// socket while keeping the same player id).
func newSocketID() string {
	socketIDMu.Lock()
	defer socketIDMu.Unlock()
	socketIDCounter++
	return "sock-" + strconv.FormatUint(socketIDCounter, 10)
}
