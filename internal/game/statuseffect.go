package game

import "time"

// EffectKind is the closed set of status effects (spec §4.4). Priority is
// fixed per kind and determines both tick-processing order (higher first)
// and which effect "wins" when more than one would otherwise block damage.
type EffectKind uint8

const (
	EffectInvulnerability EffectKind = iota
	EffectShielded
	EffectToughened // aka "Strengthened" in some fixtures — same kind
	EffectWeakened
	EffectExcited
)

// Priority returns the fixed ordering value for a kind; higher runs first.
func (k EffectKind) Priority() int {
	switch k {
	case EffectInvulnerability:
		return 100
	case EffectShielded:
		return 80
	case EffectToughened:
		return 60
	case EffectWeakened:
		return 40
	case EffectExcited:
		return 20
	default:
		return 0
	}
}

func (k EffectKind) String() string {
	switch k {
	case EffectInvulnerability:
		return "invulnerability"
	case EffectShielded:
		return "shielded"
	case EffectToughened:
		return "toughened"
	case EffectWeakened:
		return "weakened"
	case EffectExcited:
		return "excited"
	default:
		return "unknown"
	}
}

// effectHooks is the vtable of optional per-kind behavior (spec §9: "a
// fixed enum of effect kinds with a vtable of optional hook function
// pointers"). A zero value for any field means that hook is a no-op.
type effectHooks struct {
	onApply             func(p *Player, e *StatusEffect)
	onRemove            func(p *Player, e *StatusEffect)
	modifyIncomingDamage func(e *StatusEffect, amount float64) float64
	modifyToughness      func(e *StatusEffect, base float64) float64
	onTick               func(p *Player, e *StatusEffect, now time.Time, dt time.Duration)
}

var effectTable = map[EffectKind]effectHooks{
	EffectInvulnerability: {
		modifyIncomingDamage: func(e *StatusEffect, amount float64) float64 {
			return 0
		},
	},
	EffectShielded: {
		modifyIncomingDamage: func(e *StatusEffect, amount float64) float64 {
			if e.Magnitude <= 0 {
				return amount
			}
			absorbed := amount
			if absorbed > e.Magnitude {
				absorbed = e.Magnitude
			}
			e.Magnitude -= absorbed
			return amount - absorbed
		},
	},
	EffectToughened: {
		modifyToughness: func(e *StatusEffect, base float64) float64 {
			if e.Magnitude > 0 {
				return e.Magnitude
			}
			return base
		},
	},
	EffectWeakened: {
		modifyIncomingDamage: func(e *StatusEffect, amount float64) float64 {
			factor := e.Magnitude
			if factor <= 0 {
				factor = 1.5
			}
			return amount * factor
		},
	},
	EffectExcited: {
		// Excited kills the player after idleFor exceeds the magnitude
		// (spec §4.4 example: "kills on idle > 2s"); magnitude holds the
		// idle threshold in seconds, defaulting to 2.
		onTick: func(p *Player, e *StatusEffect, now time.Time, dt time.Duration) {
			threshold := e.Magnitude
			if threshold <= 0 {
				threshold = 2.0
			}
			if p.idleFor(now) > time.Duration(threshold*float64(time.Second)) {
				p.lethalDamagePending = true
			}
		},
	},
}

// StatusEffect is one applied effect instance on a player.
type StatusEffect struct {
	Kind      EffectKind
	AppliedAt time.Time
	ExpiresAt *time.Time // nil = until explicitly removed
	Magnitude float64    // effect-specific scalar: shield pool, toughness factor, etc.
}

func (e *StatusEffect) priority() int { return e.Kind.Priority() }

func (e *StatusEffect) expired(now time.Time) bool {
	return e.ExpiresAt != nil && !now.Before(*e.ExpiresAt)
}

// effectStack holds a player's active effects, at most one per kind,
// always kept sorted by descending priority.
type effectStack struct {
	effects []*StatusEffect
}

// Apply installs or refreshes an effect of the given kind. Re-applying
// refreshes appliedAt/expiresAt and replaces the magnitude rather than
// stacking (spec §4.4).
func (s *effectStack) Apply(p *Player, kind EffectKind, now time.Time, duration *time.Duration, magnitude float64) {
	var expiresAt *time.Time
	if duration != nil {
		t := now.Add(*duration)
		expiresAt = &t
	}

	for _, existing := range s.effects {
		if existing.Kind == kind {
			hooks := effectTable[kind]
			if hooks.onRemove != nil {
				hooks.onRemove(p, existing)
			}
			existing.AppliedAt = now
			existing.ExpiresAt = expiresAt
			existing.Magnitude = magnitude
			if hooks.onApply != nil {
				hooks.onApply(p, existing)
			}
			return
		}
	}

	e := &StatusEffect{Kind: kind, AppliedAt: now, ExpiresAt: expiresAt, Magnitude: magnitude}
	s.effects = append(s.effects, e)
	s.resort()
	if hooks := effectTable[kind]; hooks.onApply != nil {
		hooks.onApply(p, e)
	}
}

// Remove removes an effect of the given kind, if present, invoking onRemove.
func (s *effectStack) Remove(p *Player, kind EffectKind) {
	for i, e := range s.effects {
		if e.Kind == kind {
			if hooks := effectTable[kind]; hooks.onRemove != nil {
				hooks.onRemove(p, e)
			}
			s.effects = append(s.effects[:i], s.effects[i+1:]...)
			return
		}
	}
}

// Has reports whether an effect of the given kind is currently active.
func (s *effectStack) Has(kind EffectKind) bool {
	for _, e := range s.effects {
		if e.Kind == kind {
			return true
		}
	}
	return false
}

// Get returns the active effect instance of the given kind, if any.
func (s *effectStack) Get(kind EffectKind) *StatusEffect {
	for _, e := range s.effects {
		if e.Kind == kind {
			return e
		}
	}
	return nil
}

// ExpireDue removes every effect whose duration has elapsed as of now,
// invoking onRemove for each (spec §4.2 step 1: "advance status-effect
// timers; remove expired effects").
func (s *effectStack) ExpireDue(p *Player, now time.Time) {
	kept := s.effects[:0]
	for _, e := range s.effects {
		if e.expired(now) {
			if hooks := effectTable[e.Kind]; hooks.onRemove != nil {
				hooks.onRemove(p, e)
			}
			continue
		}
		kept = append(kept, e)
	}
	s.effects = kept
}

// Tick runs onTick for every active effect, priority order, and is called
// once per tick before motion damage is applied (spec §4.2 step 2 covers
// damage modification; onTick hooks like Excited's idle check run here).
func (s *effectStack) Tick(p *Player, now time.Time, dt time.Duration) {
	for _, e := range s.effects {
		if hooks := effectTable[e.Kind]; hooks.onTick != nil {
			hooks.onTick(p, e, now, dt)
		}
	}
}

// ModifyIncomingDamage runs every active effect's damage modifier in
// priority order (descending), so Invulnerability (100) short-circuits
// before Shielded (80) ever sees the amount, and so on (spec §4.2 step 2,
// §4.3 TakeDamage, §8 "priority ≥ Invulnerability-priority ⇒ no damage").
func (s *effectStack) ModifyIncomingDamage(amount float64) float64 {
	for _, e := range s.effects {
		if hooks := effectTable[e.Kind]; hooks.modifyIncomingDamage != nil {
			amount = hooks.modifyIncomingDamage(e, amount)
		}
		if amount <= 0 {
			return 0
		}
	}
	if amount < 0 {
		return 0
	}
	return amount
}

// ModifyToughness lets an active Toughened/Strengthened effect override
// the player's base toughness (spec §4.2 step 2, §4.4 modifyToughness).
func (s *effectStack) ModifyToughness(base float64) float64 {
	result := base
	for _, e := range s.effects {
		if hooks := effectTable[e.Kind]; hooks.modifyToughness != nil {
			result = hooks.modifyToughness(e, result)
		}
	}
	return result
}

// HasBlockingPriority reports whether any active effect's priority is at
// or above Invulnerability's, for the tick-level invariant in spec §8.
func (s *effectStack) HasBlockingPriority() bool {
	return s.Has(EffectInvulnerability)
}

func (s *effectStack) resort() {
	// insertion sort: stack stays small (≤5 kinds), descending priority.
	for i := 1; i < len(s.effects); i++ {
		for j := i; j > 0 && s.effects[j].priority() > s.effects[j-1].priority(); j-- {
			s.effects[j], s.effects[j-1] = s.effects[j-1], s.effects[j]
		}
	}
}

func (s *effectStack) snapshot() []StatusEffect {
	out := make([]StatusEffect, len(s.effects))
	for i, e := range s.effects {
		out[i] = *e
	}
	return out
}
