package game

import (
	"sync"
	"time"

	"github.com/simonerocutto/role-based-joust/internal/config"
)

// ConnectionManager owns every Player for the life of the process (spec
// §5: "players are owned by the ConnectionManager; the engine holds
// non-owning references via id lookup"). It allocates and reuses player
// numbers, tracks socket lifecycle, and runs the lobby-disconnect grace
// period on the shared timer queue.
type ConnectionManager struct {
	mu      sync.RWMutex
	players map[string]*Player
	grace   map[string]CancelToken

	limits config.ResourceLimits
	timers *timerQueue
}

// NewConnectionManager creates an empty registry.
func NewConnectionManager(limits config.ResourceLimits, timers *timerQueue) *ConnectionManager {
	return &ConnectionManager{
		players: make(map[string]*Player),
		grace:   make(map[string]CancelToken),
		limits:  limits,
		timers:  timers,
	}
}

// Register creates (or reconnects) a player. A known id reuses its prior
// number; a new id gets the lowest free number ≥1 (spec §4.9, and
// scenario 6: "reconnect preserves number").
func (m *ConnectionManager) Register(id, socketID, name string, isBot bool) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	if token, ok := m.grace[id]; ok {
		m.timers.Cancel(token)
		delete(m.grace, id)
	}

	if p, ok := m.players[id]; ok {
		p.SocketID = socketID
		p.Name = name
		p.Connected = true
		return p.Number
	}

	number := m.lowestFreeNumberLocked()
	p := NewPlayer(id, socketID, name, number, isBot,
		config.DefaultMovement(), 100, 1.0)
	m.players[id] = p
	return number
}

func (m *ConnectionManager) lowestFreeNumberLocked() int {
	used := make(map[int]bool, len(m.players))
	for _, p := range m.players {
		used[p.Number] = true
	}
	n := 1
	for used[n] {
		n++
	}
	return n
}

// Get returns the player for an id, or nil.
func (m *ConnectionManager) Get(id string) *Player {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.players[id]
}

// ByID is an alias for Get kept for readability at call sites that read
// like roster lookups.
func (m *ConnectionManager) ByID(id string) *Player { return m.Get(id) }

// Roster returns every registered player, in no particular order.
func (m *ConnectionManager) Roster() []*Player {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*Player, 0, len(m.players))
	for _, p := range m.players {
		out = append(out, p)
	}
	return out
}

// ConnectedRosterIDs returns ids of currently connected players, for
// "all ready" and launch-precondition checks (spec §3: "lobby-
// disconnected players do not block a match start").
func (m *ConnectionManager) ConnectedRosterIDs() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	ids := make([]string, 0, len(m.players))
	for id, p := range m.players {
		if p.Connected {
			ids = append(ids, id)
		}
	}
	return ids
}

// HandleSocketDisconnect marks the owner of socketID as disconnected,
// clearing readiness but retaining the player's number for reconnect
// (spec §4.9).
func (m *ConnectionManager) HandleSocketDisconnect(socketID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range m.players {
		if p.SocketID == socketID {
			p.Connected = false
			p.Ready = false
			return
		}
	}
}

// HandleLobbyDisconnect is HandleSocketDisconnect plus a grace timer: if
// the player hasn't reconnected (re-Register'd) within the configured
// grace duration, onExpiry fires and the caller is expected to fully
// remove the player.
func (m *ConnectionManager) HandleLobbyDisconnect(id, socketID string, now time.Time, onExpiry func()) {
	m.mu.Lock()
	defer m.mu.Unlock()

	p, ok := m.players[id]
	if !ok {
		return
	}
	p.Connected = false
	p.Ready = false

	if old, exists := m.grace[id]; exists {
		m.timers.Cancel(old)
	}

	fireAt := now.Add(m.limits.GraceDuration)
	token := m.timers.Schedule(fireAt, "grace:"+id, func() {
		m.mu.Lock()
		delete(m.grace, id)
		m.mu.Unlock()
		onExpiry()
	})
	m.grace[id] = token
}

// Remove deletes all state for a player: number reuse, grace timer
// cancellation (spec §4.9).
func (m *ConnectionManager) Remove(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if token, ok := m.grace[id]; ok {
		m.timers.Cancel(token)
		delete(m.grace, id)
	}
	delete(m.players, id)
}

// Count returns the number of registered players.
func (m *ConnectionManager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.players)
}
