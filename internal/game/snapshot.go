package game

import (
	"sync/atomic"
	"time"
)

// SnapshotLimits caps how large a published snapshot's slices can grow,
// independent of config.ResourceLimits (which governs how many players
// may connect at all, not how many a single dashboard read serializes).
type SnapshotLimits struct {
	MaxPlayers int
	MaxTeams   int
	MaxBases   int
}

// DefaultSnapshotLimits provides production-safe default limits.
var DefaultSnapshotLimits = SnapshotLimits{
	MaxPlayers: 64,
	MaxTeams:   4,
	MaxBases:   8,
}

// PlayerSnapshot is an immutable copy of player state for dashboard reads.
type PlayerSnapshot struct {
	ID                string
	Name              string
	Number            int
	IsBot             bool
	IsAlive           bool
	AccumulatedDamage float64
	DeathThreshold    float64
	Points            int
	TotalPoints       int
	DeathCount        int
	RoleName          string
	Ready             bool
	TeamID            *int
	Connected         bool
}

// TeamSnapshot is an immutable copy of one team's standing.
type TeamSnapshot struct {
	ID          int
	Name        string
	Color       string
	MatchPoints int
}

// BaseSnapshot is an immutable copy of one Domination control point.
type BaseSnapshot struct {
	ID        string
	Number    int
	OwnerTeam *int
	Connected bool
}

// GameSnapshot is a complete immutable match state for dashboard reads.
// All slices are pre-allocated and capped to prevent memory attacks.
type GameSnapshot struct {
	Sequence   uint64
	Timestamp  time.Time
	TickNumber uint64

	State        string
	CurrentRound int
	ModeName     string

	Players []PlayerSnapshot
	Teams   []TeamSnapshot
	Bases   []BaseSnapshot

	PlayerCount int
	AliveCount  int
}

// SnapshotPool pre-allocates snapshots to avoid GC pressure and publishes
// them through a triple buffer so the tick goroutine (producer) and any
// number of dashboard readers (consumers) never contend for a lock.
type SnapshotPool struct {
	snapshots [3]GameSnapshot
	limits    SnapshotLimits
	writeIdx  uint32 // atomic - producer index
	readIdx   uint32 // atomic - consumer index
	sequence  uint64 // atomic - monotonic sequence
}

// NewSnapshotPool creates a pool with pre-allocated slices.
func NewSnapshotPool(limits SnapshotLimits) *SnapshotPool {
	pool := &SnapshotPool{limits: limits}

	for i := 0; i < 3; i++ {
		pool.snapshots[i] = GameSnapshot{
			Players: make([]PlayerSnapshot, 0, limits.MaxPlayers),
			Teams:   make([]TeamSnapshot, 0, limits.MaxTeams),
			Bases:   make([]BaseSnapshot, 0, limits.MaxBases),
		}
	}

	return pool
}

// AcquireWrite gets the next write slot (producer only, called once per
// tick). Returns a snapshot with reset slices but preserved capacity.
func (p *SnapshotPool) AcquireWrite(now time.Time) *GameSnapshot {
	idx := atomic.AddUint32(&p.writeIdx, 1) % 3
	snap := &p.snapshots[idx]

	snap.Players = snap.Players[:0]
	snap.Teams = snap.Teams[:0]
	snap.Bases = snap.Bases[:0]

	snap.Sequence = atomic.AddUint64(&p.sequence, 1)
	snap.Timestamp = now

	return snap
}

// PublishWrite marks the write complete and advances the read pointer.
// Called after the snapshot is fully populated.
func (p *SnapshotPool) PublishWrite() {
	atomic.StoreUint32(&p.readIdx, atomic.LoadUint32(&p.writeIdx))
}

// AcquireRead gets the latest complete snapshot (consumer only). Safe to
// call concurrently with AcquireWrite/PublishWrite from any goroutine.
func (p *SnapshotPool) AcquireRead() *GameSnapshot {
	idx := atomic.LoadUint32(&p.readIdx) % 3
	return &p.snapshots[idx]
}

// GetLimits returns the resource limits this pool was built with.
func (p *SnapshotPool) GetLimits() SnapshotLimits {
	return p.limits
}
