package game

import (
	"time"

	"github.com/simonerocutto/role-based-joust/internal/config"
)

// MovementSample is one accelerometer reading reported by a player's
// device, timestamped on arrival.
type MovementSample struct {
	Intensity float64
	At        time.Time
}

const movementHistoryCapacity = 10

// Player is the engine's entity for a connected (or grace-retained)
// participant. Exported fields double as the wire shape for dashboard/
// lobby snapshots (spec §3), the way the teacher's Player carries json
// tags straight through to the broadcast payload.
type Player struct {
	ID       string `json:"id"`
	SocketID string `json:"-"`
	Name     string `json:"name"`
	Number   int    `json:"number"`
	IsBot    bool   `json:"isBot"`

	IsAlive           bool    `json:"isAlive"`
	AccumulatedDamage float64 `json:"accumulatedDamage"`
	DeathThreshold    float64 `json:"-"`
	Points            int     `json:"points"`
	TotalPoints       int     `json:"totalPoints"`
	DeathCount        int     `json:"deathCount"`
	Toughness         float64 `json:"-"`

	MovementConfig config.MovementConfig `json:"-"`

	RoleName string `json:"role,omitempty"`
	role     Role

	Ready bool `json:"isReady"`
	Team  *int `json:"teamId,omitempty"`

	Connected bool `json:"isConnected"`

	effects effectStack

	movementHistory []MovementSample
	lastMotionAt    time.Time

	// lethalDamagePending is set by a status-effect onTick hook (Excited's
	// idle-kill) that wants the next death check to fire without going
	// through the normal accumulated-damage threshold comparison.
	lethalDamagePending bool
}

// NewPlayer constructs a player at its default per-round state.
func NewPlayer(id, socketID, name string, number int, isBot bool, cfg config.MovementConfig, deathThreshold, toughness float64) *Player {
	return &Player{
		ID:             id,
		SocketID:       socketID,
		Name:           name,
		Number:         number,
		IsBot:          isBot,
		IsAlive:        true,
		DeathThreshold: deathThreshold,
		Toughness:      toughness,
		MovementConfig: cfg,
		Connected:      true,
	}
}

// SetRole installs a role (or nil to clear one). Per spec §4.5 roles are
// polymorphic specializations; the core only ever reaches the player
// through the declared hooks.
func (p *Player) SetRole(r Role) {
	p.role = r
	if r != nil {
		p.RoleName = r.Name()
		p.Toughness = r.ToughnessModifier()
	} else {
		p.RoleName = ""
	}
}

// Role returns the installed role, or nil if the player has none.
func (p *Player) Role() Role { return p.role }

// ApplyMotion pushes a new sample into the bounded history (spec §4.3).
func (p *Player) ApplyMotion(sample MovementSample) {
	p.movementHistory = append(p.movementHistory, sample)
	if len(p.movementHistory) > movementHistoryCapacity {
		p.movementHistory = p.movementHistory[len(p.movementHistory)-movementHistoryCapacity:]
	}
	p.lastMotionAt = sample.At
}

// SmoothedIntensity averages the last SmoothingWindow samples when
// smoothing is enabled, otherwise returns the most recent sample.
func (p *Player) SmoothedIntensity() float64 {
	if len(p.movementHistory) == 0 {
		return 0
	}
	if !p.MovementConfig.SmoothingEnabled {
		return p.movementHistory[len(p.movementHistory)-1].Intensity
	}

	window := p.MovementConfig.SmoothingWindow
	if window <= 0 {
		window = 1
	}
	if window > len(p.movementHistory) {
		window = len(p.movementHistory)
	}

	var sum float64
	for _, s := range p.movementHistory[len(p.movementHistory)-window:] {
		sum += s.Intensity
	}
	return sum / float64(window)
}

// EffectiveThreshold is the danger threshold after role modifiers (e.g.
// Ninja's multiplier) are applied.
func (p *Player) EffectiveThreshold() float64 {
	threshold := p.MovementConfig.DangerThreshold
	if p.role != nil {
		threshold = p.role.ModifyThreshold(p, threshold)
	}
	return threshold
}

// idleFor reports how long it has been since the last reported motion
// sample, relative to now. Used by the Excited effect's onTick hook.
func (p *Player) idleFor(now time.Time) time.Duration {
	if p.lastMotionAt.IsZero() {
		return 0
	}
	return now.Sub(p.lastMotionAt)
}

// ComputeMotionDamage implements spec §4.2 step 3: from the smoothed
// intensity and the player's effective threshold, derive the raw damage
// the motion sample would deal this tick, before status-effect modifiers
// run. Returns 0 when intensity does not exceed threshold.
func (p *Player) ComputeMotionDamage() float64 {
	intensity := p.SmoothedIntensity()
	threshold := p.EffectiveThreshold()
	if intensity <= threshold {
		return 0
	}

	if p.MovementConfig.OneshotMode {
		return p.DeathThreshold
	}

	toughness := p.effects.ModifyToughness(p.Toughness)
	if toughness <= 0 {
		toughness = 1
	}
	return (intensity - threshold) * p.MovementConfig.DamageMultiplier / toughness
}

// TakeDamage runs the given raw amount through the active effect stack
// (Invulnerability zeroes it, Shielded absorbs it, Weakened amplifies it),
// accumulates whatever lands, and returns the delivered amount. Never
// negative (spec §4.3).
func (p *Player) TakeDamage(ctx *RoundContext, amount float64, now time.Time) float64 {
	if amount <= 0 {
		return 0
	}

	delivered := p.effects.ModifyIncomingDamage(amount)
	if delivered < 0 {
		delivered = 0
	}

	if p.role != nil {
		delivered = p.role.OnDamage(p, ctx, delivered, now)
	}

	p.AccumulatedDamage += delivered
	return delivered
}

// IsLethal reports whether the player's accumulated damage (or a pending
// forced-lethal flag from a role/effect hook) has reached the death
// threshold.
func (p *Player) IsLethal() bool {
	return p.lethalDamagePending || p.AccumulatedDamage >= p.DeathThreshold
}

// Die marks the player dead. One-shot: callers (the engine tick loop)
// are responsible for firing PlayerDied and mode/role death hooks exactly
// once per transition (spec §4.3).
func (p *Player) Die(now time.Time) {
	p.IsAlive = false
	p.DeathCount++
	p.lethalDamagePending = false
}

// Respawn resets liveness and accumulated damage (spec §4.3).
func (p *Player) Respawn(now time.Time) {
	p.IsAlive = true
	p.AccumulatedDamage = 0
	p.lethalDamagePending = false
}

// ResetForRound clears per-round state: liveness, damage, points, and any
// status effects that do not survive a round boundary (spec §4.8 Round-
// Setup: "resets isAlive=true, accumulatedDamage=0, points=0, clears
// per-round status effects").
func (p *Player) ResetForRound() {
	p.IsAlive = true
	p.AccumulatedDamage = 0
	p.Points = 0
	p.lethalDamagePending = false
	p.effects = effectStack{}
	p.movementHistory = nil
}

// Effects exposes the player's status-effect stack to the tick loop and
// to role/mode hooks that need to Apply/Remove effects.
func (p *Player) Effects() *effectStack { return &p.effects }

// AwardPoints adds to both the per-round and match-total point tallies
// (spec §3 invariant: totalPoints is monotonically nondecreasing).
func (p *Player) AwardPoints(n int) {
	if n <= 0 {
		return
	}
	p.Points += n
	p.TotalPoints += n
}
