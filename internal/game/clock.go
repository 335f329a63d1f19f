package game

import (
	"container/heap"
	"sync"
	"time"
)

// TickInterval is the fixed logical tick length (spec §2: "fixed 100 ms
// logical ticks").
const TickInterval = 100 * time.Millisecond

// clock drives the engine's tick loop. In production it fires from a
// time.Ticker on its own goroutine, the way the teacher's Engine.Start
// does; in test mode it advances virtual time only when FastForward is
// called, so tests never sleep (spec §9: "deterministic under
// FastForward(dt) in tests").
type clock struct {
	mu       sync.Mutex
	testMode bool
	now      time.Time
	onTick   func(now time.Time)

	ticker   *time.Ticker
	stopChan chan struct{}
	running  bool
}

// newClock creates a clock. When testMode is true, time only advances via
// FastForward; otherwise Start spins a real 100ms ticker goroutine.
func newClock(testMode bool) *clock {
	return &clock{
		testMode: testMode,
		now:      time.Unix(0, 0),
	}
}

// Start begins driving onTick. In production mode this starts the ticker
// goroutine; in test mode it just records the callback for FastForward.
func (c *clock) Start(onTick func(now time.Time)) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.running {
		return
	}
	c.onTick = onTick
	c.running = true

	if c.testMode {
		return
	}

	c.ticker = time.NewTicker(TickInterval)
	c.stopChan = make(chan struct{})
	ticker := c.ticker
	stopChan := c.stopChan

	go func() {
		for {
			select {
			case <-ticker.C:
				c.mu.Lock()
				c.now = time.Now()
				cb := c.onTick
				c.mu.Unlock()
				if cb != nil {
					cb(c.Now())
				}
			case <-stopChan:
				return
			}
		}
	}()
}

// Stop halts the ticker goroutine (production mode) or simply marks the
// clock idle (test mode). Idempotent.
func (c *clock) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.running {
		return
	}
	c.running = false

	if c.ticker != nil {
		c.ticker.Stop()
		close(c.stopChan)
		c.ticker = nil
	}
}

// Now returns the current logical time.
func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// IsTestMode reports whether this clock advances only via FastForward
// instead of a real ticker.
func (c *clock) IsTestMode() bool { return c.testMode }

// FastForward advances virtual time by the given number of milliseconds,
// driving onTick once per TickInterval consumed. Only meaningful in test
// mode; a no-op in production mode (real time cannot be fast-forwarded).
func (c *clock) FastForward(milliseconds int64) {
	c.mu.Lock()
	if !c.testMode || !c.running {
		c.mu.Unlock()
		return
	}
	cb := c.onTick
	c.mu.Unlock()

	remaining := time.Duration(milliseconds) * time.Millisecond
	for remaining > 0 {
		step := TickInterval
		if remaining < step {
			step = remaining
		}
		c.mu.Lock()
		c.now = c.now.Add(step)
		now := c.now
		c.mu.Unlock()

		if cb != nil {
			cb(now)
		}
		remaining -= step
	}
}

// =============================================================================
// Timer queue: a monotonic priority queue of (fireAt, tag, cancellation
// token) drained once per tick. Replaces setTimeout-style callbacks (spec
// §9) for respawns, ready-delay expiry, game-event deactivation, and grace
// timers — all cancelled in one sweep by Engine.Stop().
// =============================================================================

type scheduledTimer struct {
	fireAt   time.Time
	tag      string
	seq      uint64
	cancelled bool
	fn       func()
	index    int // heap index, maintained by container/heap
}

type timerHeap []*scheduledTimer

func (h timerHeap) Len() int { return len(h) }
func (h timerHeap) Less(i, j int) bool {
	if h[i].fireAt.Equal(h[j].fireAt) {
		return h[i].seq < h[j].seq
	}
	return h[i].fireAt.Before(h[j].fireAt)
}
func (h timerHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].index = i
	h[j].index = j
}
func (h *timerHeap) Push(x interface{}) {
	t := x.(*scheduledTimer)
	t.index = len(*h)
	*h = append(*h, t)
}
func (h *timerHeap) Pop() interface{} {
	old := *h
	n := len(old)
	t := old[n-1]
	old[n-1] = nil
	*h = old[:n-1]
	return t
}

// timerQueue schedules future callbacks keyed by virtual tick time.
type timerQueue struct {
	heap   timerHeap
	nextSeq uint64
}

func newTimerQueue() *timerQueue {
	tq := &timerQueue{}
	heap.Init(&tq.heap)
	return tq
}

// CancelToken identifies a scheduled timer for cancellation.
type CancelToken struct {
	timer *scheduledTimer
}

// Schedule arranges for fn to run the first time Drain observes a tick time
// at or after fireAt. Returns a token Cancel can use to suppress it.
func (tq *timerQueue) Schedule(fireAt time.Time, tag string, fn func()) CancelToken {
	tq.nextSeq++
	t := &scheduledTimer{fireAt: fireAt, tag: tag, seq: tq.nextSeq, fn: fn}
	heap.Push(&tq.heap, t)
	return CancelToken{timer: t}
}

// Cancel suppresses a previously scheduled timer; it is safe to call more
// than once and safe to call after the timer already fired.
func (tq *timerQueue) Cancel(token CancelToken) {
	if token.timer != nil {
		token.timer.cancelled = true
	}
}

// CancelAll suppresses every pending timer (Engine.Stop semantics: "clears
// respawns, cancels timers... leave no lingering callbacks").
func (tq *timerQueue) CancelAll() {
	for _, t := range tq.heap {
		t.cancelled = true
	}
	tq.heap = tq.heap[:0]
	heap.Init(&tq.heap)
}

// Drain runs every timer due at or before now, skipping cancelled ones.
func (tq *timerQueue) Drain(now time.Time) {
	for tq.heap.Len() > 0 {
		next := tq.heap[0]
		if next.fireAt.After(now) {
			return
		}
		heap.Pop(&tq.heap)
		if !next.cancelled && next.fn != nil {
			next.fn()
		}
	}
}
