package game

import (
	"math/rand"
	"time"
)

// GameEventHost is the narrow slice of engine state a game event needs:
// the live roster (to mutate visible thresholds) and the bus (to
// announce phase transitions). Kept separate from *Engine so event logic
// stays unit-testable without constructing a full engine.
type GameEventHost interface {
	Roster() []*Player
	Bus() *Bus
}

type shiftPhase int

const (
	phaseSlow shiftPhase = iota
	phaseFast
)

// PhaseShiftEvent is the shared shape behind SpeedShift and TempoShift
// (spec §4.7): a two-phase global modifier whose stay-in-phase
// probability decays geometrically the longer it has already stayed,
// driven by a constructor-injected RNG so tests can seed it (spec §9).
type PhaseShiftEvent struct {
	tag string

	rng *rand.Rand

	phase      shiftPhase
	checkCount int

	slowStayBase   float64 // e.g. 0.75 — probability base while in "slow"
	fastStayBase   float64 // e.g. 2/3 — probability base while in "fast"
	checkInterval  time.Duration
	fastMultiplier float64
	restoreDelay   time.Duration // delay before fast->slow restores thresholds

	lastCheckAt      time.Time
	pendingRestoreAt *time.Time
	originals        map[string]float64 // player id -> threshold before scaling
}

// NewSpeedShiftEvent builds the SpeedShift game event (spec §4.7).
func NewSpeedShiftEvent(rng *rand.Rand) *PhaseShiftEvent {
	return &PhaseShiftEvent{
		tag:            "speedshift",
		rng:            rng,
		slowStayBase:   0.75,
		fastStayBase:   2.0 / 3.0,
		checkInterval:  5 * time.Second,
		fastMultiplier: 2.0,
		restoreDelay:   1 * time.Second,
		originals:      make(map[string]float64),
	}
}

// NewTempoShiftEvent builds TempoShift: same phase-shift structure and
// the same danger-threshold target, with a different probability curve
// and fast-phase multiplier (spec §4.7).
func NewTempoShiftEvent(rng *rand.Rand) *PhaseShiftEvent {
	return &PhaseShiftEvent{
		tag:            "tempoShift",
		rng:            rng,
		slowStayBase:   0.8,
		fastStayBase:   0.6,
		checkInterval:  5 * time.Second,
		fastMultiplier: 1.5,
		restoreDelay:   1 * time.Second,
		originals:      make(map[string]float64),
	}
}

// Tag identifies the event on the wire (mode:event's eventType).
func (e *PhaseShiftEvent) Tag() string { return e.tag }

// OnStart arms the periodic check clock.
func (e *PhaseShiftEvent) OnStart(now time.Time, host GameEventHost) {
	e.phase = phaseSlow
	e.checkCount = 0
	e.lastCheckAt = now
	e.pendingRestoreAt = nil
	e.originals = make(map[string]float64)
}

// OnTick runs the periodic phase-transition check and drains any pending
// delayed restoration.
func (e *PhaseShiftEvent) OnTick(now time.Time, dt time.Duration, host GameEventHost) {
	if e.pendingRestoreAt != nil && !now.Before(*e.pendingRestoreAt) {
		e.restore(host)
		e.pendingRestoreAt = nil
	}

	if now.Sub(e.lastCheckAt) < e.checkInterval {
		return
	}
	e.lastCheckAt = e.lastCheckAt.Add(e.checkInterval)
	e.checkCount++

	base := e.slowStayBase
	if e.phase == phaseFast {
		base = e.fastStayBase
	}
	stayProbability := pow(base, e.checkCount)
	roll := e.rng.Float64()

	if roll < stayProbability {
		return // stays in current phase
	}

	e.checkCount = 0
	if e.phase == phaseSlow {
		e.transitionToFast(now, host)
	} else {
		e.transitionToSlow(now, host)
	}
}

func (e *PhaseShiftEvent) transitionToFast(now time.Time, host GameEventHost) {
	e.phase = phaseFast
	e.pendingRestoreAt = nil
	e.scale(host, e.fastMultiplier)
	host.Bus().Publish(Event{Kind: EventModeEvent, Payload: ModeEventPayload{
		EventType: e.tag,
		Data:      map[string]interface{}{"phase": "fast"},
	}})
}

func (e *PhaseShiftEvent) transitionToSlow(now time.Time, host GameEventHost) {
	e.phase = phaseSlow
	fireAt := now.Add(e.restoreDelay)
	e.pendingRestoreAt = &fireAt
	host.Bus().Publish(Event{Kind: EventModeEvent, Payload: ModeEventPayload{
		EventType: e.tag,
		Data:      map[string]interface{}{"phase": "slow"},
	}})
}

// scale multiplies every roster player's visible danger threshold by
// factor, remembering the pre-scale value so restore can undo it
// exactly (spec §4.7, §5: "capture and restore the previous value").
func (e *PhaseShiftEvent) scale(host GameEventHost, factor float64) {
	for _, p := range host.Roster() {
		if _, captured := e.originals[p.ID]; !captured {
			e.originals[p.ID] = p.MovementConfig.DangerThreshold
		}
		p.MovementConfig.DangerThreshold = e.originals[p.ID] * factor
	}
}

func (e *PhaseShiftEvent) restore(host GameEventHost) {
	for _, p := range host.Roster() {
		if orig, ok := e.originals[p.ID]; ok {
			p.MovementConfig.DangerThreshold = orig
		}
	}
	e.originals = make(map[string]float64)
}

// Deactivate force-restores thresholds immediately, even if a delayed
// restoration was still pending (spec §4.7: "cleanup restores immediately
// even inside that delay").
func (e *PhaseShiftEvent) Deactivate(host GameEventHost) {
	e.pendingRestoreAt = nil
	e.restore(host)
}

func pow(base float64, exp int) float64 {
	result := 1.0
	for i := 0; i < exp; i++ {
		result *= base
	}
	return result
}

// GameEventManager ticks every registered game event once per engine
// tick and force-deactivates all of them on round/game end.
type GameEventManager struct {
	events []*PhaseShiftEvent
	active map[string]bool
}

// NewGameEventManager creates an empty manager.
func NewGameEventManager() *GameEventManager {
	return &GameEventManager{active: make(map[string]bool)}
}

// Register installs a game event, inactive until Start activates it.
func (m *GameEventManager) Register(event *PhaseShiftEvent) {
	m.events = append(m.events, event)
}

// Start activates every registered event (called at round/game start).
func (m *GameEventManager) Start(now time.Time, host GameEventHost) {
	for _, e := range m.events {
		e.OnStart(now, host)
		m.active[e.Tag()] = true
	}
}

// Tick advances every active event.
func (m *GameEventManager) Tick(now time.Time, dt time.Duration, host GameEventHost) {
	for _, e := range m.events {
		if m.active[e.Tag()] {
			e.OnTick(now, dt, host)
		}
	}
}

// StopAll force-deactivates every active event, restoring thresholds
// immediately (spec §4.6: "all modes must restore the global movement
// config they changed on onGameEnd").
func (m *GameEventManager) StopAll(host GameEventHost) {
	for _, e := range m.events {
		if m.active[e.Tag()] {
			e.Deactivate(host)
			m.active[e.Tag()] = false
		}
	}
}

// Clear removes every registered event (engine Stop / re-launch).
func (m *GameEventManager) Clear() {
	m.events = nil
	m.active = make(map[string]bool)
}
