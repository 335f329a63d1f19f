package game

import "time"

// DeathCountMode is respawn-on-death scored by fewest deaths (spec
// §4.6): the round runs for a fixed duration, deaths schedule a respawn
// after a per-mode delay (suppressed if it would land after round end),
// and placement bonuses reward the fewest deaths, ties sharing the
// higher bonus.
type DeathCountMode struct {
	placementBonuses []int
	roundCount       int
	roundDuration    time.Duration
	respawnDelay     time.Duration
}

// NewDeathCountMode builds a Death-Count strategy.
func NewDeathCountMode(defaults []int, roundCount int, roundDuration, respawnDelay time.Duration) *DeathCountMode {
	return &DeathCountMode{
		placementBonuses: defaults,
		roundCount:       roundCount,
		roundDuration:    roundDuration,
		respawnDelay:     respawnDelay,
	}
}

func (m *DeathCountMode) Name() string { return "death_count" }

func (m *DeathCountMode) OnModeSelected(e *Engine) {
	e.pushMovement()
	e.roundCount = m.roundCount
	e.targetScore = 0
	e.placementBonuses = m.placementBonuses
	e.roundDuration = m.roundDuration
}

func (m *DeathCountMode) OnGameStart(e *Engine, now time.Time) {}

func (m *DeathCountMode) OnRoundStart(e *Engine, now time.Time) {
	e.roundEndAt = now.Add(m.roundDuration)
}

func (m *DeathCountMode) OnTick(e *Engine, now time.Time, dt time.Duration) {}

func (m *DeathCountMode) OnPlayerDeath(victim *Player, e *Engine, now time.Time) {
	e.recordRoundDeath(victim.ID)
	e.scheduleRespawn(victim, now, m.respawnDelay)
}

func (m *DeathCountMode) CheckWinCondition(e *Engine) WinCheckResult {
	roundEnded := !e.now.Before(e.roundEndAt)
	gameEnded := false
	if roundEnded && e.roundCount > 0 && e.currentRound >= e.roundCount {
		gameEnded = true
	}
	return WinCheckResult{RoundEnded: roundEnded, GameEnded: gameEnded}
}

func (m *DeathCountMode) OnRoundEnd(e *Engine, now time.Time) RoundEndResult {
	ids := make([]string, len(e.matchRoster))
	for i, p := range e.matchRoster {
		ids[i] = p.ID
	}
	groups := groupByAscendingScore(ids, func(id string) float64 {
		if p := e.PlayerByID(id); p != nil {
			return float64(p.DeathCount)
		}
		return 0
	})
	bonuses := assignPlacementBonuses(groups, e.placementBonuses)
	e.awardPlacementBonuses(bonuses, groups, now)

	if e.teams.Enabled() {
		e.awardTeamDeathCountBonus(now)
	}

	return RoundEndResult{GameEnded: e.roundCount > 0 && e.currentRound >= e.roundCount}
}

func (m *DeathCountMode) OnGameEnd(e *Engine) {
	e.popMovement()
}

func (m *DeathCountMode) CalculateFinalScores(e *Engine) []ScoreEntry {
	return e.scoresByTotalPoints()
}

func (m *DeathCountMode) GetRolePool(n int) []string { return nil }

func (m *DeathCountMode) GetGameEvents(e *Engine) []*PhaseShiftEvent {
	return []*PhaseShiftEvent{NewTempoShiftEvent(e.rng)}
}
