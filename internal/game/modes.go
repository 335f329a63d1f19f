package game

import "time"

// RoundEndResult is onRoundEnd's verdict: whether the round concluded the
// whole match (spec §4.6).
type RoundEndResult struct {
	GameEnded bool
}

// WinCheckResult is checkWinCondition's verdict (spec §4.6).
type WinCheckResult struct {
	RoundEnded bool
	GameEnded  bool
}

// GameMode is the game-mode strategy contract (spec §4.6). Every hook
// takes the owning *Engine so a mode can read/mutate match state through
// the engine's exported surface; modes never reach into another mode's
// private fields.
type GameMode interface {
	Name() string

	OnModeSelected(e *Engine)
	OnGameStart(e *Engine, now time.Time)
	OnRoundStart(e *Engine, now time.Time)
	OnTick(e *Engine, now time.Time, dt time.Duration)
	OnPlayerDeath(victim *Player, e *Engine, now time.Time)
	OnRoundEnd(e *Engine, now time.Time) RoundEndResult
	OnGameEnd(e *Engine)
	CheckWinCondition(e *Engine) WinCheckResult
	CalculateFinalScores(e *Engine) []ScoreEntry
	GetRolePool(n int) []string
	GetGameEvents(e *Engine) []*PhaseShiftEvent
}

// rankGroup is one set of tied players at the same placement.
type rankGroup struct {
	ids []string
}

// assignPlacementBonuses walks placement groups best-to-worst (each group
// holding every player tied at that placement) and returns a per-player
// bonus, where a tied group is awarded the bonus of the best rank in the
// tie (spec §9 Open Question: "tied rank-2 both get [rank-2's] bonus, the
// higher of the shared ranks' bonuses" — the same rule is applied
// uniformly across Classic and Death-Count per this repo's resolution of
// that question, see DESIGN.md).
func assignPlacementBonuses(groups []rankGroup, bonuses []int) map[string]int {
	result := make(map[string]int)
	rank := 0
	for _, group := range groups {
		bonus := 0
		if rank < len(bonuses) {
			bonus = bonuses[rank]
		}
		for _, id := range group.ids {
			result[id] = bonus
		}
		rank += len(group.ids)
	}
	return result
}

// groupByDescendingScore buckets ids into ranked, tied groups given a
// score lookup, best (highest) score first.
func groupByDescendingScore(ids []string, score func(id string) float64) []rankGroup {
	sorted := make([]string, len(ids))
	copy(sorted, ids)
	sortByScore(sorted, score, true)
	return groupTies(sorted, score)
}

// groupByAscendingScore buckets ids into ranked, tied groups, lowest
// score first (used by Death-Count: fewest deaths wins).
func groupByAscendingScore(ids []string, score func(id string) float64) []rankGroup {
	sorted := make([]string, len(ids))
	copy(sorted, ids)
	sortByScore(sorted, score, false)
	return groupTies(sorted, score)
}

func sortByScore(ids []string, score func(id string) float64, descending bool) {
	for i := 1; i < len(ids); i++ {
		for j := i; j > 0; j-- {
			a, b := score(ids[j]), score(ids[j-1])
			swap := a > b
			if !descending {
				swap = a < b
			}
			if !swap {
				break
			}
			ids[j], ids[j-1] = ids[j-1], ids[j]
		}
	}
}

func groupTies(sorted []string, score func(id string) float64) []rankGroup {
	var groups []rankGroup
	i := 0
	for i < len(sorted) {
		j := i + 1
		for j < len(sorted) && score(sorted[j]) == score(sorted[i]) {
			j++
		}
		groups = append(groups, rankGroup{ids: append([]string(nil), sorted[i:j]...)})
		i = j
	}
	return groups
}
