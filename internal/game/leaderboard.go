package game

// Leaderboard provides O(log n) rank queries over the match roster's
// total points, backed by the package's augmented skip list.
//
// Operations:
//   - UpdateScore: O(log n)
//   - GetRank: O(log n)
//   - GetTop: O(log n + k)
type Leaderboard struct {
	skipList *SkipList
}

// LeaderboardEntry represents a player in the leaderboard.
type LeaderboardEntry struct {
	PlayerID string
	Score    float64
	Rank     int
}

// NewLeaderboard creates a new leaderboard.
func NewLeaderboard() *Leaderboard {
	return &Leaderboard{skipList: NewSkipList()}
}

// UpdateScore updates a player's score directly.
// O(log n) time complexity
func (lb *Leaderboard) UpdateScore(playerID string, score float64) {
	lb.skipList.Insert(playerID, score)
}

// GetRank returns a player's rank (1-indexed, 1 = top).
// Returns 0 if player not found.
func (lb *Leaderboard) GetRank(playerID string) int {
	return lb.skipList.GetRank(playerID)
}

// GetScore returns a player's score.
// Returns (score, true) if found, (0, false) if not.
func (lb *Leaderboard) GetScore(playerID string) (float64, bool) {
	return lb.skipList.GetScore(playerID)
}

// GetTop returns the top N players.
func (lb *Leaderboard) GetTop(n int) []LeaderboardEntry {
	entries := lb.skipList.GetRange(1, n)
	result := make([]LeaderboardEntry, len(entries))

	for i, e := range entries {
		result[i] = LeaderboardEntry{
			PlayerID: e.Key,
			Score:    e.Score,
			Rank:     i + 1,
		}
	}

	return result
}

// Length returns the number of players in the leaderboard.
func (lb *Leaderboard) Length() int {
	return lb.skipList.Length()
}

// Clear removes all players from the leaderboard.
func (lb *Leaderboard) Clear() {
	lb.skipList.Clear()
}

// ForEach iterates over all players in rank order. Return false from the
// callback to stop iteration early.
func (lb *Leaderboard) ForEach(fn func(rank int, entry LeaderboardEntry) bool) {
	lb.skipList.ForEach(func(rank int, e SkipListEntry) bool {
		return fn(rank, LeaderboardEntry{
			PlayerID: e.Key,
			Score:    e.Score,
			Rank:     rank,
		})
	})
}
