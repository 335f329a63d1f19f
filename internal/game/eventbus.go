package game

import "sync"

// EventKind enumerates every occurrence the engine publishes. This is the
// ONLY coupling allowed between the engine and the transport layer (spec
// §1): the transport subscribes to a Bus and serializes whatever it
// receives, and never reaches back into engine state directly.
type EventKind uint8

const (
	EventUnknown EventKind = iota
	EventPlayerJoined
	EventPlayerLeft
	EventPlayerReady
	EventReadyUpdate
	EventReadyEnabled
	EventCountdown
	EventGameStart
	EventRoundStart
	EventRoundEnd
	EventGameFinished
	EventPlayerDamage
	EventPlayerDied
	EventRespawnPending
	EventPlayerRespawn
	EventModeEvent
	EventBaseCaptured
	EventBasePoint
	EventDominationWin
)

// String renders the kind the way the teacher's EventType.String() does,
// for logging and for the wire "event" field clients switch on.
func (k EventKind) String() string {
	switch k {
	case EventPlayerJoined:
		return "player:joined"
	case EventPlayerLeft:
		return "player:left"
	case EventPlayerReady:
		return "player:ready"
	case EventReadyUpdate:
		return "ready:update"
	case EventReadyEnabled:
		return "ready:enabled"
	case EventCountdown:
		return "game:countdown"
	case EventGameStart:
		return "game:start"
	case EventRoundStart:
		return "game:round-start"
	case EventRoundEnd:
		return "round:end"
	case EventGameFinished:
		return "game:finished"
	case EventPlayerDamage:
		return "player:damage"
	case EventPlayerDied:
		return "player:died"
	case EventRespawnPending:
		return "player:respawn-pending"
	case EventPlayerRespawn:
		return "player:respawn"
	case EventModeEvent:
		return "mode:event"
	case EventBaseCaptured:
		return "base:captured"
	case EventBasePoint:
		return "base:point"
	case EventDominationWin:
		return "domination:win"
	default:
		return "unknown"
	}
}

// Event is one published occurrence. Payload is whichever typed struct
// below matches Kind — handlers type-switch on it rather than parsing JSON,
// the wire encoding only happens at the outermost transport boundary.
type Event struct {
	Kind    EventKind
	Payload interface{}
}

// Typed payloads, one per EventKind that carries data.

type PlayerJoinedPayload struct {
	ID     string
	Name   string
	Number int
}

type PlayerLeftPayload struct{ ID string }

type PlayerReadyPayload struct {
	ID      string
	IsReady bool
}

type ReadyUpdatePayload struct {
	Ready int
	Total int
}

type ReadyEnabledPayload struct{ Enabled bool }

type CountdownPayload struct {
	Phase           string // "countdown" | "go"
	SecondsRemaining int
	TotalSeconds     int
}

type GameStartPayload struct {
	Mode        string
	Sensitivity string
}

type RoundStartPayload struct{ Round int }

type RoundEndPayload struct {
	Scores     []ScoreEntry
	TeamScores []TeamScoreEntry
}

type GameFinishedPayload struct {
	Scores     []ScoreEntry
	TeamScores []TeamScoreEntry
}

type ScoreEntry struct {
	PlayerID    string
	TotalPoints int
	Rank        int
}

type TeamScoreEntry struct {
	TeamID      int
	MatchPoints int
}

type PlayerDamagePayload struct {
	ID                string
	AccumulatedDamage float64
}

type PlayerDiedPayload struct{ ID string }

type RespawnPendingPayload struct {
	ID        string
	RespawnIn int // milliseconds
}

type PlayerRespawnPayload struct{ ID string }

type ModeEventPayload struct {
	ModeName  string
	EventType string
	Data      map[string]interface{}
}

type BaseCapturedPayload struct {
	BaseID string
	TeamID int
}

type BasePointPayload struct {
	BaseID string
	TeamID int
}

type DominationWinPayload struct{ WinningTeamID int }

// Subscriber receives events synchronously, on the engine's tick goroutine.
// Per spec §5, a subscriber must never re-enter engine mutation from this
// callback — if it needs to, it should post onto the engine's input queue
// for the next tick instead.
type Subscriber func(Event)

// Bus is a process-local, synchronous publish/subscribe dispatcher. There
// is no buffering and no re-entrancy: Publish calls every subscriber in
// registration order before returning, so "events published inside a tick
// are observed by listeners before the next tick begins" (spec §4.2) holds
// by construction.
type Bus struct {
	mu          sync.RWMutex
	subscribers []Subscriber
}

// NewBus creates an empty event bus.
func NewBus() *Bus {
	return &Bus{}
}

// Subscribe registers a listener. Returns an unsubscribe function.
func (b *Bus) Subscribe(fn Subscriber) func() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subscribers = append(b.subscribers, fn)
	idx := len(b.subscribers) - 1
	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		if idx < len(b.subscribers) {
			b.subscribers[idx] = nil
		}
	}
}

// Publish fans an event out to every live subscriber, in registration
// order, synchronously.
func (b *Bus) Publish(evt Event) {
	b.mu.RLock()
	subs := make([]Subscriber, len(b.subscribers))
	copy(subs, b.subscribers)
	b.mu.RUnlock()

	for _, fn := range subs {
		if fn != nil {
			fn(evt)
		}
	}
}
