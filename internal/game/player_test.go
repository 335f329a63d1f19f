package game

import (
	"testing"
	"time"

	"github.com/simonerocutto/role-based-joust/internal/config"
)

func newTestPlayer(id string, number int) *Player {
	return NewPlayer(id, "sock-"+id, "Player "+id, number, false, config.DefaultMovement(), 100, 1.0)
}

func TestNewPlayerDefaults(t *testing.T) {
	p := newTestPlayer("p1", 1)
	if !p.IsAlive {
		t.Error("expected new player to be alive")
	}
	if p.AccumulatedDamage != 0 {
		t.Errorf("expected 0 accumulated damage, got %f", p.AccumulatedDamage)
	}
	if p.DeathThreshold != 100 {
		t.Errorf("expected death threshold 100, got %f", p.DeathThreshold)
	}
	if !p.Connected {
		t.Error("expected new player to be connected")
	}
}

func TestPlayerTakeDamageAccumulates(t *testing.T) {
	p := newTestPlayer("p1", 1)
	ctx := &RoundContext{Roster: []*Player{p}}
	now := time.Now()

	delivered := p.TakeDamage(ctx, 30, now)
	if delivered != 30 {
		t.Errorf("expected 30 damage delivered, got %f", delivered)
	}
	if p.AccumulatedDamage != 30 {
		t.Errorf("expected 30 accumulated damage, got %f", p.AccumulatedDamage)
	}
	if p.IsLethal() {
		t.Error("should not be lethal below threshold")
	}

	p.TakeDamage(ctx, 80, now)
	if !p.IsLethal() {
		t.Error("expected lethal once accumulated damage crosses threshold")
	}
}

func TestPlayerDieAndRespawn(t *testing.T) {
	p := newTestPlayer("p1", 1)
	now := time.Now()

	p.AccumulatedDamage = p.DeathThreshold
	p.Die(now)
	if p.IsAlive {
		t.Error("expected dead player to be not alive")
	}
	if p.DeathCount != 1 {
		t.Errorf("expected death count 1, got %d", p.DeathCount)
	}

	p.Respawn(now.Add(time.Second))
	if !p.IsAlive {
		t.Error("expected respawned player to be alive")
	}
	if p.AccumulatedDamage != 0 {
		t.Errorf("expected accumulated damage reset to 0, got %f", p.AccumulatedDamage)
	}
}

func TestPlayerResetForRoundClearsDamageNotTotals(t *testing.T) {
	p := newTestPlayer("p1", 1)
	p.AccumulatedDamage = 40
	p.TotalPoints = 10
	p.AwardPoints(5)

	p.ResetForRound()

	if p.AccumulatedDamage != 0 {
		t.Errorf("expected accumulated damage cleared, got %f", p.AccumulatedDamage)
	}
	if p.TotalPoints != 15 {
		t.Errorf("expected totalPoints to persist across round reset, got %d", p.TotalPoints)
	}
}

func TestPlayerAwardPointsAccumulatesAcrossRounds(t *testing.T) {
	p := newTestPlayer("p1", 1)
	p.AwardPoints(3)
	p.AwardPoints(2)
	if p.TotalPoints != 5 {
		t.Errorf("expected totalPoints 5, got %d", p.TotalPoints)
	}
}

func TestPlayerRoleOnDamageCanAbsorbLethalHit(t *testing.T) {
	p := newTestPlayer("p1", 1)
	p.SetRole(&AngelRole{})
	ctx := &RoundContext{Roster: []*Player{p}}
	now := time.Now()

	delivered := p.TakeDamage(ctx, 150, now)
	if delivered != 0 {
		t.Errorf("expected Angel to absorb the first lethal hit entirely, got %f delivered", delivered)
	}
	if p.IsLethal() {
		t.Error("expected the absorbed hit to not be lethal")
	}
	if !p.Effects().Has(EffectInvulnerability) {
		t.Error("expected Angel to grant invulnerability after absorbing")
	}
}
