package game

import (
	"math/rand"
	"sort"
	"sync"
)

// Team is one of a fixed 2-4 slots a match can divide its roster into
// (spec §3). Colors/names come from a fixed table, not user input.
type Team struct {
	ID          int    `json:"id"`
	Name        string `json:"name"`
	Color       string `json:"color"`
	MatchPoints int    `json:"matchPoints"`
}

// teamNames and teamColors are the fixed table spec §3 requires: "Red,
// Blue, Green, Yellow".
var teamNames = []string{"Red", "Blue", "Green", "Yellow"}
var teamColors = []string{"#e74c3c", "#3498db", "#2ecc71", "#f1c40f"}

// TeamManager owns the optional team partition of the match roster (spec
// §4.10): assignment, cycling, shuffling, and per-team match-point
// accumulation across rounds.
type TeamManager struct {
	mu      sync.RWMutex
	enabled bool
	count   int
	teams   []*Team
	member  map[string]int // player id -> team id
}

// NewTeamManager creates a disabled (no-teams) manager; Configure turns it
// on.
func NewTeamManager() *TeamManager {
	return &TeamManager{
		count:  2,
		member: make(map[string]int),
	}
}

// Configure sets whether teams are active and how many there are,
// clamping an out-of-range count into [2,4] (spec §4.10).
func (tm *TeamManager) Configure(enabled bool, count int) {
	tm.mu.Lock()
	defer tm.mu.Unlock()

	if count < 2 {
		count = 2
	}
	if count > 4 {
		count = 4
	}

	tm.enabled = enabled
	tm.count = count
	tm.teams = make([]*Team, count)
	for i := 0; i < count; i++ {
		tm.teams[i] = &Team{ID: i, Name: teamNames[i], Color: teamColors[i]}
	}
	tm.member = make(map[string]int)
}

// Enabled reports whether teams are currently active.
func (tm *TeamManager) Enabled() bool {
	tm.mu.RLock()
	defer tm.mu.RUnlock()
	return tm.enabled
}

// Count returns the configured team count.
func (tm *TeamManager) Count() int {
	tm.mu.RLock()
	defer tm.mu.RUnlock()
	return tm.count
}

// AssignSequential assigns ids to teams round-robin, in input order.
func (tm *TeamManager) AssignSequential(ids []string) {
	tm.mu.Lock()
	defer tm.mu.Unlock()

	if tm.count == 0 {
		return
	}
	for i, id := range ids {
		tm.member[id] = i % tm.count
	}
}

// AddPlayer assigns a single player id to whichever team currently has
// the fewest members (spec §4.10: "smallest-team").
func (tm *TeamManager) AddPlayer(id string) int {
	tm.mu.Lock()
	defer tm.mu.Unlock()

	if tm.count == 0 {
		return 0
	}

	counts := make([]int, tm.count)
	for _, teamID := range tm.member {
		if teamID >= 0 && teamID < tm.count {
			counts[teamID]++
		}
	}

	smallest := 0
	for i := 1; i < tm.count; i++ {
		if counts[i] < counts[smallest] {
			smallest = i
		}
	}
	tm.member[id] = smallest
	return smallest
}

// CyclePlayerTeam advances a player to the next team id, wrapping.
func (tm *TeamManager) CyclePlayerTeam(id string) int {
	tm.mu.Lock()
	defer tm.mu.Unlock()

	if tm.count == 0 {
		return 0
	}
	current, ok := tm.member[id]
	if !ok {
		current = -1
	}
	next := (current + 1) % tm.count
	tm.member[id] = next
	return next
}

// Shuffle randomly redistributes the given ids across the configured
// teams as evenly as possible.
func (tm *TeamManager) Shuffle(ids []string) {
	tm.mu.Lock()
	defer tm.mu.Unlock()

	if tm.count == 0 {
		return
	}

	shuffled := make([]string, len(ids))
	copy(shuffled, ids)
	rand.Shuffle(len(shuffled), func(i, j int) {
		shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
	})

	for i, id := range shuffled {
		tm.member[id] = i % tm.count
	}
}

// TeamOf returns the team id for a player, or -1 if unassigned.
func (tm *TeamManager) TeamOf(id string) int {
	tm.mu.RLock()
	defer tm.mu.RUnlock()
	if teamID, ok := tm.member[id]; ok {
		return teamID
	}
	return -1
}

// ValidateTeams reports whether every configured team has at least one
// member — a launch precondition when teams are enabled (spec §3: "empty
// team invalidates a launch").
func (tm *TeamManager) ValidateTeams() bool {
	tm.mu.RLock()
	defer tm.mu.RUnlock()

	if !tm.enabled {
		return true
	}

	counts := make([]int, tm.count)
	for _, teamID := range tm.member {
		if teamID >= 0 && teamID < tm.count {
			counts[teamID]++
		}
	}
	for _, c := range counts {
		if c == 0 {
			return false
		}
	}
	return true
}

// AddMatchPoints credits a team's running total.
func (tm *TeamManager) AddMatchPoints(teamID, points int) {
	tm.mu.Lock()
	defer tm.mu.Unlock()
	if teamID >= 0 && teamID < len(tm.teams) {
		tm.teams[teamID].MatchPoints += points
	}
}

// Teams returns a snapshot of every team, sorted by descending match
// points (ties keep team-id order).
func (tm *TeamManager) Teams() []Team {
	tm.mu.RLock()
	defer tm.mu.RUnlock()

	out := make([]Team, len(tm.teams))
	for i, t := range tm.teams {
		out[i] = *t
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].MatchPoints > out[j].MatchPoints
	})
	return out
}

// SumDeaths computes the sum of deathCount for members of a team, used by
// Death-Count's "team with lower sum-of-deaths wins" rule (spec §4.6).
func (tm *TeamManager) SumDeaths(roster []*Player, teamID int) int {
	tm.mu.RLock()
	defer tm.mu.RUnlock()

	sum := 0
	for _, p := range roster {
		if t, ok := tm.member[p.ID]; ok && t == teamID {
			sum += p.DeathCount
		}
	}
	return sum
}

// Reset clears per-match team state (match points, no membership) for a
// re-launch.
func (tm *TeamManager) Reset() {
	tm.mu.Lock()
	defer tm.mu.Unlock()
	for _, t := range tm.teams {
		t.MatchPoints = 0
	}
	tm.member = make(map[string]int)
}
