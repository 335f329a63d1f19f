package game

import "time"

// ClassicMode is last-standing elimination (spec §4.6): rounds end when
// at most one player remains alive, placement bonuses are awarded by
// elimination order, and the match ends at a fixed round count or when
// someone reaches the target score.
type ClassicMode struct {
	placementBonuses []int
	roundCount       int
	targetScore      int
}

// NewClassicMode builds a Classic strategy from the launch-time overrides
// merged onto mode defaults.
func NewClassicMode(defaults []int, roundCount, targetScore int) *ClassicMode {
	return &ClassicMode{placementBonuses: defaults, roundCount: roundCount, targetScore: targetScore}
}

func (m *ClassicMode) Name() string { return "classic" }

func (m *ClassicMode) OnModeSelected(e *Engine) {
	e.pushMovement()
	e.roundCount = m.roundCount
	e.targetScore = m.targetScore
	e.placementBonuses = m.placementBonuses
}

func (m *ClassicMode) OnGameStart(e *Engine, now time.Time) {}

func (m *ClassicMode) OnRoundStart(e *Engine, now time.Time) {}

func (m *ClassicMode) OnTick(e *Engine, now time.Time, dt time.Duration) {}

func (m *ClassicMode) OnPlayerDeath(victim *Player, e *Engine, now time.Time) {
	e.recordRoundDeath(victim.ID)
}

func (m *ClassicMode) CheckWinCondition(e *Engine) WinCheckResult {
	alive := e.aliveCount()
	roundEnded := alive <= 1

	gameEnded := false
	if roundEnded {
		if e.targetScore > 0 {
			for _, p := range e.matchRoster {
				if p.TotalPoints >= e.targetScore {
					gameEnded = true
				}
			}
		}
		if e.roundCount > 0 && e.currentRound >= e.roundCount {
			gameEnded = true
		}
	}
	return WinCheckResult{RoundEnded: roundEnded, GameEnded: gameEnded}
}

func (m *ClassicMode) OnRoundEnd(e *Engine, now time.Time) RoundEndResult {
	groups := e.roundPlacementGroups()
	bonuses := assignPlacementBonuses(groups, e.placementBonuses)
	e.awardPlacementBonuses(bonuses, groups, now)

	gameEnded := e.roundCount > 0 && e.currentRound >= e.roundCount
	for _, p := range e.matchRoster {
		if e.targetScore > 0 && p.TotalPoints >= e.targetScore {
			gameEnded = true
		}
	}
	return RoundEndResult{GameEnded: gameEnded}
}

func (m *ClassicMode) OnGameEnd(e *Engine) {
	e.popMovement()
}

func (m *ClassicMode) CalculateFinalScores(e *Engine) []ScoreEntry {
	return e.scoresByTotalPoints()
}

func (m *ClassicMode) GetRolePool(n int) []string { return nil }

func (m *ClassicMode) GetGameEvents(e *Engine) []*PhaseShiftEvent {
	return []*PhaseShiftEvent{NewSpeedShiftEvent(e.rng)}
}
