package game

import "time"

// RoundSetupManager resets per-round player state and runs the
// countdown that precedes each round's "active" phase (spec §4.8).
type RoundSetupManager struct {
	timers *timerQueue
	bus    *Bus
}

func newRoundSetupManager(timers *timerQueue, bus *Bus) *RoundSetupManager {
	return &RoundSetupManager{timers: timers, bus: bus}
}

// ResetRoster clears liveness/damage/points/effects for every player
// ahead of a new round.
func (m *RoundSetupManager) ResetRoster(roster []*Player) {
	for _, p := range roster {
		p.ResetForRound()
	}
}

// RunCountdown emits a {phase, secondsRemaining, totalSeconds} event once
// per second counting down from duration, then a final "go" event, then
// calls onComplete. A zero duration jumps straight to "go" (spec §4.8).
func (m *RoundSetupManager) RunCountdown(now time.Time, duration time.Duration, onComplete func()) {
	totalSeconds := int(duration / time.Second)

	if totalSeconds <= 0 {
		m.bus.Publish(Event{Kind: EventCountdown, Payload: CountdownPayload{
			Phase: "go", SecondsRemaining: 0, TotalSeconds: 0,
		}})
		onComplete()
		return
	}

	for remaining := totalSeconds; remaining >= 1; remaining-- {
		elapsed := time.Duration(totalSeconds-remaining) * time.Second
		fireAt := now.Add(elapsed)
		secondsRemaining := remaining
		m.timers.Schedule(fireAt, "countdown:tick", func() {
			m.bus.Publish(Event{Kind: EventCountdown, Payload: CountdownPayload{
				Phase: "countdown", SecondsRemaining: secondsRemaining, TotalSeconds: totalSeconds,
			}})
		})
	}

	m.timers.Schedule(now.Add(duration), "countdown:go", func() {
		m.bus.Publish(Event{Kind: EventCountdown, Payload: CountdownPayload{
			Phase: "go", SecondsRemaining: 0, TotalSeconds: totalSeconds,
		}})
		onComplete()
	})
}
