package game

import "time"

// RoleBasedMode is Classic elimination with roles assigned from the
// catalog, a longer countdown to make room for a voice cue announcing
// assignments, and per-role placement-bonus overrides (spec §4.6).
type RoleBasedMode struct {
	placementBonuses []int
	roundCount       int
	targetScore      int
	roleOverrides    map[string][]int
	rolePool         []string
}

// NewRoleBasedMode builds a Role-Based strategy.
func NewRoleBasedMode(defaults []int, roundCount, targetScore int, roleOverrides map[string][]int, rolePool []string) *RoleBasedMode {
	return &RoleBasedMode{
		placementBonuses: defaults,
		roundCount:       roundCount,
		targetScore:      targetScore,
		roleOverrides:    roleOverrides,
		rolePool:         rolePool,
	}
}

func (m *RoleBasedMode) Name() string { return "role_based" }

func (m *RoleBasedMode) OnModeSelected(e *Engine) {
	e.pushMovement()
	e.roundCount = m.roundCount
	e.targetScore = m.targetScore
	e.placementBonuses = m.placementBonuses
	e.countdownDuration = longerOf(e.countdownDuration, 5*time.Second)
}

func longerOf(a, b time.Duration) time.Duration {
	if a > b {
		return a
	}
	return b
}

func (m *RoleBasedMode) OnGameStart(e *Engine, now time.Time) {}

func (m *RoleBasedMode) OnRoundStart(e *Engine, now time.Time) {
	for _, p := range e.matchRoster {
		if p.Role() != nil {
			p.Role().OnRoundStart(p, e.roundCtx, now)
		}
	}
}

func (m *RoleBasedMode) OnTick(e *Engine, now time.Time, dt time.Duration) {}

func (m *RoleBasedMode) OnPlayerDeath(victim *Player, e *Engine, now time.Time) {
	e.recordRoundDeath(victim.ID)
}

func (m *RoleBasedMode) CheckWinCondition(e *Engine) WinCheckResult {
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

func (m *RoleBasedMode) OnRoundEnd(e *Engine, now time.Time) RoundEndResult {
	groups := e.roundPlacementGroups()
	bonuses := make(map[string]int)
	rank := 0
	for _, group := range groups {
		for _, id := range group.ids {
			bonus := 0
			if p := e.PlayerByID(id); p != nil {
				if override, ok := m.roleOverrides[p.RoleName]; ok && rank < len(override) {
					bonus = override[rank]
				} else if rank < len(e.placementBonuses) {
					bonus = e.placementBonuses[rank]
				}
			}
			bonuses[id] = bonus
		}
		rank += len(group.ids)
	}
	e.awardPlacementBonuses(bonuses, groups, now)

	gameEnded := e.roundCount > 0 && e.currentRound >= e.roundCount
	for _, p := range e.matchRoster {
		if e.targetScore > 0 && p.TotalPoints >= e.targetScore {
			gameEnded = true
		}
	}
	return RoundEndResult{GameEnded: gameEnded}
}

func (m *RoleBasedMode) OnGameEnd(e *Engine) {
	e.popMovement()
}

func (m *RoleBasedMode) CalculateFinalScores(e *Engine) []ScoreEntry {
	return e.scoresByTotalPoints()
}

func (m *RoleBasedMode) GetRolePool(n int) []string {
	if len(m.rolePool) == 0 {
		return nil
	}
	out := make([]string, n)
	for i := range out {
		out[i] = m.rolePool[i%len(m.rolePool)]
	}
	return out
}

func (m *RoleBasedMode) GetGameEvents(e *Engine) []*PhaseShiftEvent {
	return []*PhaseShiftEvent{NewSpeedShiftEvent(e.rng)}
}
