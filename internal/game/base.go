package game

import (
	"sync"
	"time"
)

// Base is a Domination control-point device bound to a dedicated socket
// (spec §3). Ownership cycles neutral -> tapping team -> opposing team on
// each tap; disconnected bases stop scoring but keep their ownership.
type Base struct {
	ID         string     `json:"id"`
	Number     int        `json:"number"`
	SocketID   string     `json:"-"`
	OwnerTeam  *int       `json:"ownerTeam,omitempty"`
	CapturedAt *time.Time `json:"-"`
	Connected  bool       `json:"connected"`
}

// BaseManager registers, removes, and scores Domination control points
// (spec §4.11).
type BaseManager struct {
	mu    sync.RWMutex
	bases map[string]*Base
}

// NewBaseManager creates an empty base registry.
func NewBaseManager() *BaseManager {
	return &BaseManager{bases: make(map[string]*Base)}
}

// Register creates a base for a newly handshaken socket, reusing the
// lowest free base number.
func (m *BaseManager) Register(id, socketID string) *Base {
	m.mu.Lock()
	defer m.mu.Unlock()

	b := &Base{ID: id, Number: m.lowestFreeNumberLocked(), SocketID: socketID, Connected: true}
	m.bases[id] = b
	return b
}

func (m *BaseManager) lowestFreeNumberLocked() int {
	used := make(map[int]bool, len(m.bases))
	for _, b := range m.bases {
		used[b.Number] = true
	}
	n := 1
	for used[n] {
		n++
	}
	return n
}

// Remove purges a base entirely (kick / permanent disconnect), freeing
// its number for reuse.
func (m *BaseManager) Remove(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.bases, id)
}

// SetConnected marks a base's socket as dropped or restored. A
// disconnected base pauses scoring but retains ownership (spec §3).
func (m *BaseManager) SetConnected(id string, connected bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if b, ok := m.bases[id]; ok {
		b.Connected = connected
	}
}

// Tap cycles ownership: neutral -> tappingTeam; a tap from a different
// team hands it straight to that team; a re-tap from the team that
// already owns it cycles ownership to the next team instead of no-op'ing
// (spec §4.6: "neutral -> tapping team -> opposite team -> ..."). teamCount
// is the configured team count, needed to wrap the cycle. Rejected
// (returns false) for a disconnected base.
func (m *BaseManager) Tap(id string, tappingTeam, teamCount int, now time.Time) (Base, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	b, ok := m.bases[id]
	if !ok || !b.Connected {
		return Base{}, false
	}

	switch {
	case b.OwnerTeam == nil:
		owner := tappingTeam
		b.OwnerTeam = &owner
	case *b.OwnerTeam == tappingTeam:
		owner := tappingTeam
		if teamCount > 1 {
			owner = (tappingTeam + 1) % teamCount
		}
		b.OwnerTeam = &owner
	default:
		owner := tappingTeam
		b.OwnerTeam = &owner
	}
	t := now
	b.CapturedAt = &t
	return *b, true
}

// Get returns a snapshot of one base, if it exists.
func (m *BaseManager) Get(id string) (Base, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	b, ok := m.bases[id]
	if !ok {
		return Base{}, false
	}
	return *b, true
}

// All returns a snapshot of every registered base.
func (m *BaseManager) All() []Base {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Base, 0, len(m.bases))
	for _, b := range m.bases {
		out = append(out, *b)
	}
	return out
}

// ScoringBases returns every connected, owned base — the set that scores
// a point for its owner each controlInterval tick (spec §4.6). A
// disconnected base contributes 0 points per tick (spec §8).
func (m *BaseManager) ScoringBases() []Base {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Base, 0, len(m.bases))
	for _, b := range m.bases {
		if b.Connected && b.OwnerTeam != nil {
			out = append(out, *b)
		}
	}
	return out
}

// Reset clears ownership on every base for a re-launch, keeping
// registrations (bases are tied to sockets, not matches).
func (m *BaseManager) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, b := range m.bases {
		b.OwnerTeam = nil
		b.CapturedAt = nil
	}
}
