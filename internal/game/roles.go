package game

import "time"

// RoundContext is the narrow slice of match/round state a role hook may
// observe without reaching directly into engine internals (spec §9: "the
// core never reaches inside [role state] except via the role's declared
// hooks" — the same restriction applies in reverse). The engine rebuilds
// one of these at round start and keeps the death-timing fields current
// as deaths are processed during the tick loop.
type RoundContext struct {
	Roster       []*Player
	RoundStartAt time.Time

	// PriorDeathAt/PriorDeathPlayerID describe the most recent death
	// processed before the one currently being handled, so Vulture can
	// test "within 5s of a prior (not-own) death" without the engine
	// exposing a full death log.
	PriorDeathAt       time.Time
	PriorDeathPlayerID string
}

// PlayerByID finds a roster member, or nil.
func (c *RoundContext) PlayerByID(id string) *Player {
	for _, p := range c.Roster {
		if p.ID == id {
			return p
		}
	}
	return nil
}

// RoleAbilityResult is the outcome of a role's active ability use.
type RoleAbilityResult struct {
	OK     bool
	Reason string
}

// Role is the polymorphic specialization contract (spec §4.5). A
// concrete role embeds roleBase for the hooks it doesn't care about and
// overrides the rest — Go's method promotion stands in for the "shared
// method table" the spec's redesign note calls for, in place of the
// original's deep inheritance chain.
type Role interface {
	Name() string
	ToughnessModifier() float64
	ModifyThreshold(p *Player, base float64) float64
	OnRoundStart(p *Player, ctx *RoundContext, now time.Time)
	OnTick(p *Player, ctx *RoundContext, now time.Time, dt time.Duration)
	OnDamage(p *Player, ctx *RoundContext, amount float64, now time.Time) float64
	OnDeath(p *Player, now time.Time)
	OnOtherDeath(p *Player, victim *Player, ctx *RoundContext, now time.Time)
	OnRoundEnd(p *Player, ctx *RoundContext, rank int, now time.Time)
	UseAbility(p *Player, now time.Time) RoleAbilityResult
	// RerollIfTargetGone lets targeted roles (Executioner/Bodyguard/
	// Sibling) pick a new target when the current one dies or
	// disconnects, without the core knowing what "target" means for a
	// given role.
	RerollIfTargetGone(p *Player, ctx *RoundContext)
}

// roleBase supplies no-op defaults for every hook; concrete roles embed
// it and override only what they need.
type roleBase struct{}

func (roleBase) ModifyThreshold(p *Player, base float64) float64             { return base }
func (roleBase) OnRoundStart(p *Player, ctx *RoundContext, now time.Time)    {}
func (roleBase) OnTick(p *Player, ctx *RoundContext, now time.Time, dt time.Duration) {}
func (roleBase) OnDamage(p *Player, ctx *RoundContext, amount float64, now time.Time) float64 {
	return amount
}
func (roleBase) OnDeath(p *Player, now time.Time)                                    {}
func (roleBase) OnOtherDeath(p *Player, victim *Player, ctx *RoundContext, now time.Time) {}
func (roleBase) OnRoundEnd(p *Player, ctx *RoundContext, rank int, now time.Time)         {}
func (roleBase) UseAbility(p *Player, now time.Time) RoleAbilityResult {
	return RoleAbilityResult{OK: false, Reason: "role has no active ability"}
}
func (roleBase) RerollIfTargetGone(p *Player, ctx *RoundContext) {}

// =============================================================================
// Tunables. Exported so tests can assert on them without hard-coding magic
// numbers; mirrors the teacher's pattern of package-level const blocks next
// to the types that use them (see combat.go's DodgeDistance etc.).
// =============================================================================

const (
	VampireBloodlustDelay  = 15 * time.Second
	VampireBonusPoints     = 2
	BeastHunterBonusPoints = 2
	AngelInvulnWindow      = 2 * time.Second
	SurvivorInterval       = 30 * time.Second
	SurvivorPoints         = 1
	ExecutionerBonusPoints = 3
	BodyguardBonusPoints   = 3
	BerserkerDebounce      = 300 * time.Millisecond
	BerserkerToughenedFor  = 5 * time.Second
	BerserkerToughenedMag  = 2.0
	MasochistThreshold     = 0.5
	MasochistInterval      = 15 * time.Second
	MasochistPoints        = 1
	VultureWindow          = 5 * time.Second
	VulturePoints          = 2
	TrollHealDelay         = 3 * time.Second
	IroncladToughenedMag   = 3.0
	IroncladToughenedFor   = 4 * time.Second
)

// =============================================================================
// Vampire
// =============================================================================

type VampireRole struct {
	roleBase
	bloodlustAt    time.Time
	bloodlustArmed bool
}

func (r *VampireRole) Name() string               { return "vampire" }
func (r *VampireRole) ToughnessModifier() float64 { return 1.0 }

func (r *VampireRole) OnRoundStart(p *Player, ctx *RoundContext, now time.Time) {
	r.bloodlustAt = now.Add(VampireBloodlustDelay)
	r.bloodlustArmed = false
}

func (r *VampireRole) OnTick(p *Player, ctx *RoundContext, now time.Time, dt time.Duration) {
	if !r.bloodlustArmed && !now.Before(r.bloodlustAt) {
		r.bloodlustArmed = true
	}
}

func (r *VampireRole) OnOtherDeath(p *Player, victim *Player, ctx *RoundContext, now time.Time) {
	if r.bloodlustArmed {
		p.AwardPoints(VampireBonusPoints)
	}
}

// =============================================================================
// Beast / BeastHunter
// =============================================================================

type BeastRole struct{ roleBase }

func (r *BeastRole) Name() string               { return "beast" }
func (r *BeastRole) ToughnessModifier() float64 { return 1.5 }

type BeastHunterRole struct{ roleBase }

func (r *BeastHunterRole) Name() string               { return "beast_hunter" }
func (r *BeastHunterRole) ToughnessModifier() float64 { return 1.0 }

func (r *BeastHunterRole) OnOtherDeath(p *Player, victim *Player, ctx *RoundContext, now time.Time) {
	if victim.RoleName == "beast" {
		p.AwardPoints(BeastHunterBonusPoints)
	}
}

// =============================================================================
// Angel
// =============================================================================

type AngelRole struct {
	roleBase
	absorbedOnce bool
}

func (r *AngelRole) Name() string               { return "angel" }
func (r *AngelRole) ToughnessModifier() float64 { return 1.0 }

func (r *AngelRole) OnDamage(p *Player, ctx *RoundContext, amount float64, now time.Time) float64 {
	if r.absorbedOnce {
		return amount
	}
	if p.AccumulatedDamage+amount < p.DeathThreshold {
		return amount
	}
	r.absorbedOnce = true
	window := AngelInvulnWindow
	p.Effects().Apply(p, EffectInvulnerability, now, &window, 0)
	return 0
}

// =============================================================================
// Survivor
// =============================================================================

type SurvivorRole struct {
	roleBase
	elapsed time.Duration
}

func (r *SurvivorRole) Name() string               { return "survivor" }
func (r *SurvivorRole) ToughnessModifier() float64 { return 1.0 }

func (r *SurvivorRole) OnTick(p *Player, ctx *RoundContext, now time.Time, dt time.Duration) {
	if !p.IsAlive {
		return
	}
	r.elapsed += dt
	if r.elapsed >= SurvivorInterval {
		r.elapsed -= SurvivorInterval
		p.AwardPoints(SurvivorPoints)
	}
}

// =============================================================================
// Executioner
// =============================================================================

type ExecutionerRole struct {
	roleBase
	targetID string
}

func (r *ExecutionerRole) Name() string               { return "executioner" }
func (r *ExecutionerRole) ToughnessModifier() float64 { return 1.0 }

func (r *ExecutionerRole) OnRoundStart(p *Player, ctx *RoundContext, now time.Time) {
	r.targetID = pickEligibleTarget(p, ctx, "")
}

func (r *ExecutionerRole) OnOtherDeath(p *Player, victim *Player, ctx *RoundContext, now time.Time) {
	if victim.ID == r.targetID {
		p.AwardPoints(ExecutionerBonusPoints)
		r.targetID = pickEligibleTarget(p, ctx, victim.ID)
	}
}

func (r *ExecutionerRole) RerollIfTargetGone(p *Player, ctx *RoundContext) {
	target := ctx.PlayerByID(r.targetID)
	if target == nil || !target.Connected {
		r.targetID = pickEligibleTarget(p, ctx, r.targetID)
	}
}

// pickEligibleTarget returns the first connected, non-self roster id that
// isn't excludeID, in roster order — deterministic, no RNG needed for
// role targeting (only game events use injected randomness, spec §9).
func pickEligibleTarget(self *Player, ctx *RoundContext, excludeID string) string {
	for _, candidate := range ctx.Roster {
		if candidate.ID == self.ID || candidate.ID == excludeID {
			continue
		}
		if candidate.Connected {
			return candidate.ID
		}
	}
	return ""
}

// =============================================================================
// Bodyguard
// =============================================================================

type BodyguardRole struct {
	roleBase
	targetID string
}

func (r *BodyguardRole) Name() string               { return "bodyguard" }
func (r *BodyguardRole) ToughnessModifier() float64 { return 1.0 }

func (r *BodyguardRole) OnRoundStart(p *Player, ctx *RoundContext, now time.Time) {
	r.targetID = pickEligibleTarget(p, ctx, "")
}

func (r *BodyguardRole) RerollIfTargetGone(p *Player, ctx *RoundContext) {
	target := ctx.PlayerByID(r.targetID)
	if target == nil || !target.Connected {
		r.targetID = pickEligibleTarget(p, ctx, r.targetID)
	}
}

// OnRoundEnd awards the protection bonus if the bodyguard's target is
// still alive when the round ends; the target's placement rank is not
// consulted, so a target eliminated late in the round earns nothing.
func (r *BodyguardRole) OnRoundEnd(p *Player, ctx *RoundContext, rank int, now time.Time) {
	target := ctx.PlayerByID(r.targetID)
	if target != nil && target.IsAlive {
		p.AwardPoints(BodyguardBonusPoints)
	}
}

// =============================================================================
// Berserker
// =============================================================================

type BerserkerRole struct {
	roleBase
	armed      bool
	lastHitAt  time.Time
}

func (r *BerserkerRole) Name() string               { return "berserker" }
func (r *BerserkerRole) ToughnessModifier() float64 { return 1.0 }

func (r *BerserkerRole) OnDamage(p *Player, ctx *RoundContext, amount float64, now time.Time) float64 {
	if amount > 0 {
		r.armed = true
		r.lastHitAt = now
	}
	return amount
}

func (r *BerserkerRole) OnTick(p *Player, ctx *RoundContext, now time.Time, dt time.Duration) {
	if r.armed && now.Sub(r.lastHitAt) >= BerserkerDebounce {
		r.armed = false
		dur := BerserkerToughenedFor
		p.Effects().Apply(p, EffectToughened, now, &dur, BerserkerToughenedMag)
	}
}

// =============================================================================
// Ninja
// =============================================================================

type NinjaRole struct{ roleBase }

func (r *NinjaRole) Name() string               { return "ninja" }
func (r *NinjaRole) ToughnessModifier() float64 { return 1.0 }

func (r *NinjaRole) ModifyThreshold(p *Player, base float64) float64 {
	mult := p.MovementConfig.NinjaThresholdMultiplier
	if mult <= 0 {
		mult = 3.0
	}
	return base * mult
}

// OnDamage: any excess above the (already multiplied) threshold is
// instant death rather than accumulated damage (spec §4.5).
func (r *NinjaRole) OnDamage(p *Player, ctx *RoundContext, amount float64, now time.Time) float64 {
	if amount > 0 {
		return p.DeathThreshold
	}
	return amount
}

// =============================================================================
// Masochist
// =============================================================================

type MasochistRole struct {
	roleBase
	elapsed time.Duration
}

func (r *MasochistRole) Name() string               { return "masochist" }
func (r *MasochistRole) ToughnessModifier() float64 { return 1.0 }

func (r *MasochistRole) OnTick(p *Player, ctx *RoundContext, now time.Time, dt time.Duration) {
	if !p.IsAlive || p.DeathThreshold <= 0 {
		return
	}
	fraction := p.AccumulatedDamage / p.DeathThreshold
	if fraction < MasochistThreshold {
		r.elapsed = 0
		return
	}
	r.elapsed += dt
	if r.elapsed >= MasochistInterval {
		r.elapsed -= MasochistInterval
		p.AwardPoints(MasochistPoints)
	}
}

// =============================================================================
// Sibling
// =============================================================================

type SiblingRole struct {
	roleBase
	pairedWithID string
	mirroring    bool
}

func (r *SiblingRole) Name() string               { return "sibling" }
func (r *SiblingRole) ToughnessModifier() float64 { return 1.5 }

// PairWith sets the sibling whose damage this one mirrors. No mode in
// this package calls it: an unpaired Sibling mirrors nothing until the
// engine's post-death RerollIfTargetGone picks it a partner.
func (r *SiblingRole) PairWith(id string) { r.pairedWithID = id }

func (r *SiblingRole) OnDamage(p *Player, ctx *RoundContext, amount float64, now time.Time) float64 {
	if amount > 0 && !r.mirroring {
		if sibling := ctx.PlayerByID(r.pairedWithID); sibling != nil && sibling.IsAlive {
			r.mirroring = true
			if siblingRole, ok := sibling.Role().(*SiblingRole); ok {
				siblingRole.mirroring = true
			}
			sibling.TakeDamage(ctx, amount, now)
			if siblingRole, ok := sibling.Role().(*SiblingRole); ok {
				siblingRole.mirroring = false
			}
			r.mirroring = false
		}
	}
	return amount
}

func (r *SiblingRole) RerollIfTargetGone(p *Player, ctx *RoundContext) {
	sibling := ctx.PlayerByID(r.pairedWithID)
	if sibling == nil || !sibling.Connected {
		r.pairedWithID = pickEligibleTarget(p, ctx, r.pairedWithID)
	}
}

// =============================================================================
// Vulture
// =============================================================================

type VultureRole struct{ roleBase }

func (r *VultureRole) Name() string               { return "vulture" }
func (r *VultureRole) ToughnessModifier() float64 { return 1.0 }

func (r *VultureRole) OnOtherDeath(p *Player, victim *Player, ctx *RoundContext, now time.Time) {
	if victim.ID == p.ID {
		return
	}
	if ctx.PriorDeathPlayerID == "" || ctx.PriorDeathPlayerID == p.ID {
		return
	}
	if now.Sub(ctx.PriorDeathAt) <= VultureWindow {
		p.AwardPoints(VulturePoints)
	}
}

// =============================================================================
// Troll
// =============================================================================

type TrollRole struct {
	roleBase
	lastDamageAt time.Time
}

func (r *TrollRole) Name() string               { return "troll" }
func (r *TrollRole) ToughnessModifier() float64 { return 1.0 }

func (r *TrollRole) OnDamage(p *Player, ctx *RoundContext, amount float64, now time.Time) float64 {
	if amount > 0 {
		r.lastDamageAt = now
	}
	return amount
}

func (r *TrollRole) OnTick(p *Player, ctx *RoundContext, now time.Time, dt time.Duration) {
	if !p.IsAlive || p.AccumulatedDamage <= 0 {
		return
	}
	if now.Sub(r.lastDamageAt) >= TrollHealDelay {
		p.AccumulatedDamage = 0
	}
}

// =============================================================================
// Ironclad
// =============================================================================

type IroncladRole struct {
	roleBase
	charged bool
}

func (r *IroncladRole) Name() string               { return "ironclad" }
func (r *IroncladRole) ToughnessModifier() float64 { return 1.0 }

func (r *IroncladRole) OnRoundStart(p *Player, ctx *RoundContext, now time.Time) {
	r.charged = true
}

func (r *IroncladRole) UseAbility(p *Player, now time.Time) RoleAbilityResult {
	if !r.charged {
		return RoleAbilityResult{OK: false, Reason: "no charge remaining"}
	}
	r.charged = false
	dur := IroncladToughenedFor
	p.Effects().Apply(p, EffectToughened, now, &dur, IroncladToughenedMag)
	return RoleAbilityResult{OK: true}
}

// =============================================================================
// Factory
// =============================================================================

// NewRole constructs a role by its wire tag. Returns nil, false for an
// unrecognized tag — launch treats this as a programmer error and
// panics (spec §7), not a runtime-recoverable one.
func NewRole(tag string) (Role, bool) {
	switch tag {
	case "vampire":
		return &VampireRole{}, true
	case "beast":
		return &BeastRole{}, true
	case "beast_hunter":
		return &BeastHunterRole{}, true
	case "angel":
		return &AngelRole{}, true
	case "survivor":
		return &SurvivorRole{}, true
	case "executioner":
		return &ExecutionerRole{}, true
	case "bodyguard":
		return &BodyguardRole{}, true
	case "berserker":
		return &BerserkerRole{}, true
	case "ninja":
		return &NinjaRole{}, true
	case "masochist":
		return &MasochistRole{}, true
	case "sibling":
		return &SiblingRole{}, true
	case "vulture":
		return &VultureRole{}, true
	case "troll":
		return &TrollRole{}, true
	case "ironclad":
		return &IroncladRole{}, true
	default:
		return nil, false
	}
}

// AllRoleTags lists the closed set of role wire tags, in spec §4.5 order.
func AllRoleTags() []string {
	return []string{
		"vampire", "beast", "beast_hunter", "angel", "survivor",
		"executioner", "bodyguard", "berserker", "ninja", "masochist",
		"sibling", "vulture", "troll", "ironclad",
	}
}
