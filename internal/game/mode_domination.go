package game

import "time"

// DominationMode is control-point capture with no round structure (spec
// §4.6): bases change owner cyclically on tap, a connected owned base
// scores its owner every controlInterval, and the first team to
// pointTarget wins the match outright.
type DominationMode struct {
	controlInterval time.Duration
	pointTarget     int
	elapsed         time.Duration
}

// NewDominationMode builds a Domination strategy.
func NewDominationMode(controlIntervalMs, pointTarget int) *DominationMode {
	return &DominationMode{
		controlInterval: time.Duration(controlIntervalMs) * time.Millisecond,
		pointTarget:     pointTarget,
	}
}

func (m *DominationMode) Name() string { return "domination" }

func (m *DominationMode) OnModeSelected(e *Engine) {
	e.pushMovement()
	e.roundCount = 1
	e.targetScore = 0
}

func (m *DominationMode) OnGameStart(e *Engine, now time.Time) {
	e.bases.Reset()
	m.elapsed = 0
}

func (m *DominationMode) OnRoundStart(e *Engine, now time.Time) {}

func (m *DominationMode) OnTick(e *Engine, now time.Time, dt time.Duration) {
	m.elapsed += dt
	if m.elapsed < m.controlInterval {
		return
	}
	m.elapsed -= m.controlInterval

	for _, b := range e.bases.ScoringBases() {
		e.teams.AddMatchPoints(*b.OwnerTeam, 1)
		e.bus.Publish(Event{Kind: EventBasePoint, Payload: BasePointPayload{
			BaseID: b.ID, TeamID: *b.OwnerTeam,
		}})
	}
}

func (m *DominationMode) OnPlayerDeath(victim *Player, e *Engine, now time.Time) {}

func (m *DominationMode) CheckWinCondition(e *Engine) WinCheckResult {
	if m.pointTarget <= 0 {
		return WinCheckResult{}
	}
	for _, t := range e.teams.Teams() {
		if t.MatchPoints >= m.pointTarget {
			return WinCheckResult{RoundEnded: true, GameEnded: true}
		}
	}
	return WinCheckResult{}
}

func (m *DominationMode) OnRoundEnd(e *Engine, now time.Time) RoundEndResult {
	winner := -1
	best := -1
	for _, t := range e.teams.Teams() {
		if t.MatchPoints > best {
			best = t.MatchPoints
			winner = t.ID
		}
	}
	if winner >= 0 {
		e.bus.Publish(Event{Kind: EventDominationWin, Payload: DominationWinPayload{WinningTeamID: winner}})
	}
	return RoundEndResult{GameEnded: true}
}

func (m *DominationMode) OnGameEnd(e *Engine) {
	e.popMovement()
}

func (m *DominationMode) CalculateFinalScores(e *Engine) []ScoreEntry {
	return nil
}

func (m *DominationMode) GetRolePool(n int) []string { return nil }

func (m *DominationMode) GetGameEvents(e *Engine) []*PhaseShiftEvent { return nil }
