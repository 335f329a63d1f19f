package game

import (
	"log"
	"math/rand"
	"time"

	"github.com/simonerocutto/role-based-joust/internal/config"
)

// MatchState is the closed set of states the match state machine moves
// through (spec §4.1). Transitions only follow the diagram in that
// section; every transition happens inside Tick or one of the Launch/
// ProceedFromPreGame/Stop operations below.
type MatchState int

const (
	StateWaiting MatchState = iota
	StatePreGame
	StateCountdown
	StateActive
	StateRoundEnded
	StateFinished
)

func (s MatchState) String() string {
	switch s {
	case StateWaiting:
		return "waiting"
	case StatePreGame:
		return "pre-game"
	case StateCountdown:
		return "countdown"
	case StateActive:
		return "active"
	case StateRoundEnded:
		return "round-ended"
	case StateFinished:
		return "finished"
	default:
		return "unknown"
	}
}

// Engine is the GameEngine shell (spec §4.1): it owns every manager in
// the package and is the only thing that ever mutates match state.
// Everything the transport layer does, apart from SetSensitivity and
// ConfigureTeams, reaches the engine through inqueue.go's command queue,
// which Tick drains (in test mode enqueue drains it right away).
type Engine struct {
	clock  *clock
	timers *timerQueue
	bus    *Bus

	inqueue     *lockFreeQueue[command]
	connections *ConnectionManager
	teams       *TeamManager
	bases       *BaseManager
	respawn     *RespawnManager
	readyMgr    *ReadyStateManager
	roundSetup  *RoundSetupManager
	gameEvents  *GameEventManager
	leaderboard *Leaderboard
	snapshots   *SnapshotPool
	eventLog    *EventLog

	tickCount uint64

	limits       config.ResourceLimits
	modeDefaults config.ModeDefaults

	rng *rand.Rand

	// movement is the process-wide movement config mode installation
	// pushes/pops (spec §5, §9: "stack discipline: each mode installation
	// pushes prior values, cleanup pops").
	movement      config.MovementConfig
	movementStack []config.MovementConfig

	state MatchState
	now   time.Time

	mode              GameMode
	modeName          string
	currentRound      int
	roundCount        int
	targetScore       int
	roundDuration     time.Duration
	roundStartedAt    time.Time
	roundEndAt        time.Time
	countdownDuration time.Duration
	placementBonuses  []int
	sensitivity       string

	matchRoster         []*Player
	roundCtx            *RoundContext
	roundDeathBatches   [][]string
	currentTickDeathIDs []string
}

// NewEngine wires every manager together. testMode selects the fake
// clock used by deterministic tests (FastForward instead of sleeping).
func NewEngine(cfg config.AppConfig, testMode bool, rngSeed int64) *Engine {
	timers := newTimerQueue()
	bus := NewBus()

	e := &Engine{
		clock:        newClock(testMode),
		timers:       timers,
		bus:          bus,
		inqueue:      newLockFreeQueue[command](4096),
		connections:  NewConnectionManager(cfg.Limits, timers),
		teams:        NewTeamManager(),
		bases:        NewBaseManager(),
		respawn:      newRespawnManager(timers),
		readyMgr:     newReadyStateManager(timers, bus),
		roundSetup:   newRoundSetupManager(timers, bus),
		gameEvents:   NewGameEventManager(),
		leaderboard:  NewLeaderboard(),
		snapshots:    NewSnapshotPool(DefaultSnapshotLimits),
		eventLog:     NewEventLog(),
		limits:       cfg.Limits,
		modeDefaults: cfg.Modes,
		rng:          rand.New(rand.NewSource(rngSeed)),
		movement:     cfg.Movement,
		state:        StateWaiting,
		sensitivity:  "medium",
	}
	bus.Subscribe(func(evt Event) {
		e.eventLog.Emit(evt.Kind, e.tickCount, payloadPlayerID(evt.Payload), evt.Payload)
	})
	// The fake clock drives Tick from FastForward as soon as the engine
	// exists; Start is then a no-op in test mode.
	if testMode {
		e.clock.Start(e.Tick)
	}
	return e
}

// payloadPlayerID extracts the player an event payload is scoped to, for
// per-player rate limiting in the event log. Payloads not scoped to a
// single player (round/game-level aggregates) return "".
func payloadPlayerID(payload interface{}) string {
	switch p := payload.(type) {
	case PlayerJoinedPayload:
		return p.ID
	case PlayerLeftPayload:
		return p.ID
	case PlayerReadyPayload:
		return p.ID
	case PlayerDamagePayload:
		return p.ID
	case PlayerDiedPayload:
		return p.ID
	case RespawnPendingPayload:
		return p.ID
	case PlayerRespawnPayload:
		return p.ID
	default:
		return ""
	}
}

// EventLog exposes the audit log for main.go to Start/Stop around the
// engine's own lifecycle.
func (e *Engine) EventLog() *EventLog { return e.eventLog }

// Start begins driving the tick loop (production: a real 100ms ticker
// goroutine; test mode: FastForward-only).
func (e *Engine) Start() {
	e.clock.Start(e.Tick)
}

// Shutdown halts the tick loop goroutine. Distinct from the game-level
// Stop() operation (spec §4.1), which only returns the match to
// "waiting" and leaves the engine process running.
func (e *Engine) Shutdown() {
	e.clock.Stop()
}

// FastForward is the test-mode-only virtual clock advance (spec §9).
func (e *Engine) FastForward(milliseconds int64) {
	e.clock.FastForward(milliseconds)
}

// Bus exposes the event bus for transport subscription (spec §1: "the
// event bus... is the only allowed coupling between the engine and the
// network layer").
func (e *Engine) Bus() *Bus { return e.bus }

// Roster returns the live match roster (GameEventHost, mode hooks).
func (e *Engine) Roster() []*Player { return e.matchRoster }

// State reports the current match state.
func (e *Engine) State() MatchState { return e.state }

// CurrentRound reports the 1-indexed round counter.
func (e *Engine) CurrentRound() int { return e.currentRound }

// ModeName reports the installed mode's tag, or "" before a launch.
func (e *Engine) ModeName() string { return e.modeName }

// Connections exposes the connection manager for transport-level
// register/disconnect glue that doesn't need to go through inqueue
// (read-only lookups only; all mutation still funnels through enqueue).
func (e *Engine) Connections() *ConnectionManager { return e.connections }

// Teams exposes the team manager for read-only dashboard/lobby queries.
func (e *Engine) Teams() *TeamManager { return e.teams }

// Bases exposes the base manager for read-only dashboard queries.
func (e *Engine) Bases() *BaseManager { return e.bases }

// Leaderboard exposes the skip-list-ranked standings for the dashboard's
// leaderboard read endpoint.
func (e *Engine) Leaderboard() *Leaderboard { return e.leaderboard }

// Sensitivity returns the currently configured sensitivity label.
func (e *Engine) Sensitivity() string { return e.sensitivity }

// SetSensitivity applies a named preset's danger threshold to the base
// movement config (settings endpoint, not part of the tick loop).
func (e *Engine) SetSensitivity(label string) bool {
	preset, ok := config.SensitivityPresets()[label]
	if !ok {
		return false
	}
	e.sensitivity = label
	e.movement.DangerThreshold = preset.DangerThreshold
	return true
}

// ConfigureTeams applies the team settings endpoint's knobs.
func (e *Engine) ConfigureTeams(enabled bool, count int) {
	e.teams.Configure(enabled, count)
}

// PlayerByID finds a player by id, preferring the live match roster and
// falling back to the full connection registry.
func (e *Engine) PlayerByID(id string) *Player {
	for _, p := range e.matchRoster {
		if p.ID == id {
			return p
		}
	}
	return e.connections.Get(id)
}

// connectedRosterIDs is the id set ready-gating and team operations
// check "all ready"/validity against: the live match roster's connected
// members, falling back to the full connection registry before a match
// roster exists (spec §3: "lobby-disconnected players do not block a
// match start").
func (e *Engine) connectedRosterIDs() []string {
	if len(e.matchRoster) == 0 {
		return e.connections.ConnectedRosterIDs()
	}
	ids := make([]string, 0, len(e.matchRoster))
	for _, p := range e.matchRoster {
		if p.Connected {
			ids = append(ids, p.ID)
		}
	}
	return ids
}

// pushMovement/popMovement give mode installation the stack discipline
// spec §9 requires over the process-wide movement config.
func (e *Engine) pushMovement() {
	e.movementStack = append(e.movementStack, e.movement)
}

func (e *Engine) popMovement() {
	n := len(e.movementStack)
	if n == 0 {
		return
	}
	e.movement = e.movementStack[n-1]
	e.movementStack = e.movementStack[:n-1]
}

func (e *Engine) aliveCount() int {
	n := 0
	for _, p := range e.matchRoster {
		if p.IsAlive {
			n++
		}
	}
	return n
}

// recordRoundDeath appends to the current tick's death batch; modes use
// the resulting groups for placement-bonus ranking (spec §4.6).
func (e *Engine) recordRoundDeath(id string) {
	e.currentTickDeathIDs = append(e.currentTickDeathIDs, id)
}

func (e *Engine) flushTickDeaths() {
	if len(e.currentTickDeathIDs) == 0 {
		return
	}
	e.roundDeathBatches = append(e.roundDeathBatches, e.currentTickDeathIDs)
	e.currentTickDeathIDs = nil
}

// roundPlacementGroups ranks the round's outcome best-to-worst: survivors
// (if any) first, then each death batch in reverse order (the earliest
// deaths placed worst), ties within a batch sharing a rank.
func (e *Engine) roundPlacementGroups() []rankGroup {
	var groups []rankGroup
	var survivors []string
	for _, p := range e.matchRoster {
		if p.IsAlive {
			survivors = append(survivors, p.ID)
		}
	}
	if len(survivors) > 0 {
		groups = append(groups, rankGroup{ids: survivors})
	}
	for i := len(e.roundDeathBatches) - 1; i >= 0; i-- {
		groups = append(groups, rankGroup{ids: e.roundDeathBatches[i]})
	}
	return groups
}

func rankIndexOf(groups []rankGroup, id string) int {
	rank := 0
	for _, g := range groups {
		for _, gid := range g.ids {
			if gid == id {
				return rank
			}
		}
		rank += len(g.ids)
	}
	return 0
}

// awardPlacementBonuses credits each player's bonus, invokes its role's
// onRoundEnd hook with its rank, and — when teams are enabled — credits
// the same bonus to the player's team match points.
func (e *Engine) awardPlacementBonuses(bonuses map[string]int, groups []rankGroup, now time.Time) {
	for id, bonus := range bonuses {
		p := e.PlayerByID(id)
		if p == nil {
			continue
		}
		p.AwardPoints(bonus)
		if p.Role() != nil {
			p.Role().OnRoundEnd(p, e.roundCtx, rankIndexOf(groups, id), now)
		}
		if e.teams.Enabled() {
			if teamID := e.teams.TeamOf(id); teamID >= 0 {
				e.teams.AddMatchPoints(teamID, bonus)
			}
		}
	}
}

// awardTeamDeathCountBonus gives the first placement bonus to the team
// with the lowest sum of deaths (spec §4.6: "team with lower sum of
// deaths wins the round bonus"); a tie awards nothing.
func (e *Engine) awardTeamDeathCountBonus(now time.Time) {
	count := e.teams.Count()
	best, bestSum, tie := -1, -1, false
	for i := 0; i < count; i++ {
		sum := e.teams.SumDeaths(e.matchRoster, i)
		switch {
		case best == -1 || sum < bestSum:
			best, bestSum, tie = i, sum, false
		case sum == bestSum:
			tie = true
		}
	}
	if best < 0 || tie {
		return
	}
	bonus := 0
	if len(e.placementBonuses) > 0 {
		bonus = e.placementBonuses[0]
	}
	e.teams.AddMatchPoints(best, bonus)
}

// scoresByTotalPoints ranks the match roster by totalPoints, descending,
// via the skip-list-backed leaderboard (spec §2 "Settings Store" row
// sibling, §9 domain-stack wiring).
func (e *Engine) scoresByTotalPoints() []ScoreEntry {
	e.leaderboard.Clear()
	for _, p := range e.matchRoster {
		e.leaderboard.UpdateScore(p.ID, float64(p.TotalPoints))
	}
	out := make([]ScoreEntry, 0, len(e.matchRoster))
	e.leaderboard.ForEach(func(rank int, entry LeaderboardEntry) bool {
		out = append(out, ScoreEntry{PlayerID: entry.PlayerID, TotalPoints: int(entry.Score), Rank: rank})
		return true
	})
	return out
}

// scheduleRespawn arranges a player's respawn and announces the pending
// delay, honoring the respawn manager's round-end cutoff (spec scenario
// 3: "Death-Count no-late-respawn").
func (e *Engine) scheduleRespawn(p *Player, now time.Time, delay time.Duration) {
	scheduled := e.respawn.Schedule(p, now, delay, e.roundEndAt, func(pl *Player, firedAt time.Time) {
		pl.Respawn(firedAt)
		e.bus.Publish(Event{Kind: EventPlayerRespawn, Payload: PlayerRespawnPayload{ID: pl.ID}})
	})
	if scheduled {
		e.bus.Publish(Event{Kind: EventRespawnPending, Payload: RespawnPendingPayload{
			ID: p.ID, RespawnIn: int(delay / time.Millisecond),
		}})
	}
}

// tapBase applies a Domination base tap. No-op outside the active state
// (spec scenario 4: "No emissions while state≠active").
func (e *Engine) tapBase(baseID string, teamID int) {
	if e.state != StateActive {
		return
	}
	base, ok := e.bases.Tap(baseID, teamID, e.teams.Count(), e.now)
	if !ok || base.OwnerTeam == nil {
		return
	}
	e.bus.Publish(Event{Kind: EventBaseCaptured, Payload: BaseCapturedPayload{
		BaseID: base.ID, TeamID: *base.OwnerTeam,
	}})
}

// removePlayerLocked fully removes a player: connection registry entry,
// pending respawn, and match-roster membership if mid-match.
func (e *Engine) removePlayerLocked(id string) {
	e.connections.Remove(id)
	e.respawn.Cancel(id)
	if len(e.matchRoster) > 0 {
		kept := e.matchRoster[:0]
		for _, p := range e.matchRoster {
			if p.ID != id {
				kept = append(kept, p)
			}
		}
		e.matchRoster = kept
	}
	e.bus.Publish(Event{Kind: EventPlayerLeft, Payload: PlayerLeftPayload{ID: id}})
}

// enqueueExpiry runs a lobby-disconnect grace timer's expiry. It is
// invoked from timerQueue.Drain, which only ever runs from inside Tick,
// so this already executes on the tick thread — no re-enqueue needed.
func (e *Engine) enqueueExpiry(playerID string) {
	e.removePlayerLocked(playerID)
}

func (e *Engine) publishReadyUpdate() {
	ids := e.connectedRosterIDs()
	ready, total := e.readyMgr.ReadyCount(ids)
	e.bus.Publish(Event{Kind: EventReadyUpdate, Payload: ReadyUpdatePayload{Ready: ready, Total: total}})
}

// killPlayer forces an immediate death, used by the debug-kill operation.
// Runs the same death pipeline the tick loop uses, flushes the resulting
// death batch, and checks the win condition immediately — a debug kill
// is meant to simulate a tick's outcome synchronously, not wait for the
// next one.
func (e *Engine) killPlayer(p *Player) {
	if !p.IsAlive {
		return
	}
	p.AccumulatedDamage = p.DeathThreshold
	e.processDeath(p, e.now)
	e.flushTickDeaths()
	e.checkWinCondition(e.now)
}

// Launch installs a mode and snapshots the connected roster into a
// match, transitioning waiting -> pre-game (spec §4.1). Rejected for
// fewer than 2 players, an enabled-but-empty team, or a match already
// underway.
func (e *Engine) Launch(opts *LaunchOptions) CommandResult {
	return e.enqueue(command{Kind: cmdLaunch, Launch: opts})
}

// ProceedFromPreGame advances pre-game straight to the round-start
// countdown without waiting on ready signals.
func (e *Engine) ProceedFromPreGame() CommandResult {
	return e.enqueue(command{Kind: cmdProceed})
}

// Stop is the game-level stop operation (spec §4.1): idempotent from any
// non-waiting state, it clears respawns, cancels timers, resets ready
// state, and restores the movement config mode installation mutated.
func (e *Engine) Stop() CommandResult {
	return e.enqueue(command{Kind: cmdStop})
}

// RegisterPlayer joins (or reconnects) a player and returns its assigned
// number (spec §4.9).
func (e *Engine) RegisterPlayer(id, socketID, name string, isBot bool) CommandResult {
	return e.enqueue(command{Kind: cmdRegisterPlayer, RegisterPlayer: &registerPlayerCmd{
		ID: id, SocketID: socketID, Name: name, IsBot: isBot,
	}})
}

// HandleSocketDisconnect marks a socket's owner disconnected without
// starting the removal grace timer (used for ungraceful transport drops
// that a reconnect on the same session can still recover from).
func (e *Engine) HandleSocketDisconnect(socketID string) CommandResult {
	return e.enqueue(command{Kind: cmdSocketDisconnect, SocketID: socketID})
}

// HandleLobbyDisconnect marks a player disconnected and starts the grace
// timer that fully removes them if they don't reconnect in time.
func (e *Engine) HandleLobbyDisconnect(id, socketID string) CommandResult {
	return e.enqueue(command{Kind: cmdLobbyDisconnect, PlayerID: id, SocketID: socketID})
}

// RemovePlayer fully removes a player immediately, skipping the grace
// timer.
func (e *Engine) RemovePlayer(id string) CommandResult {
	return e.enqueue(command{Kind: cmdRemovePlayer, PlayerID: id})
}

// KickPlayer removes a player from the lobby; only permitted while the
// match is in the waiting state.
func (e *Engine) KickPlayer(id string) CommandResult {
	return e.enqueue(command{Kind: cmdKickPlayer, PlayerID: id})
}

// SetReady records a player's ready flag for the ready-gated transitions.
func (e *Engine) SetReady(id string, ready bool) CommandResult {
	return e.enqueue(command{Kind: cmdSetReady, PlayerID: id, Ready: ready})
}

// ApplyMotion records one accelerometer sample for a player.
func (e *Engine) ApplyMotion(id string, sample MovementSample) CommandResult {
	return e.enqueue(command{Kind: cmdApplyMotion, PlayerID: id, Motion: sample})
}

// DebugKill forces an immediate death, bypassing accumulated damage
// (spec §7 debug surface).
func (e *Engine) DebugKill(id string) CommandResult {
	return e.enqueue(command{Kind: cmdDebugKill, PlayerID: id})
}

// DebugFastForward advances the virtual clock; only meaningful in test
// mode (spec §9).
func (e *Engine) DebugFastForward(milliseconds int64) CommandResult {
	return e.enqueue(command{Kind: cmdDebugFastForward, Milliseconds: milliseconds})
}

// ShuffleTeams randomly reassigns every connected player to a team.
func (e *Engine) ShuffleTeams() CommandResult {
	return e.enqueue(command{Kind: cmdShuffleTeams})
}

// CycleTeam moves a player to the next team in sequence, returning the
// new team id via CommandResult.Number.
func (e *Engine) CycleTeam(id string) CommandResult {
	return e.enqueue(command{Kind: cmdCycleTeam, PlayerID: id})
}

// TapBase applies a Domination base tap on behalf of a team.
func (e *Engine) TapBase(baseID string, teamID int) CommandResult {
	return e.enqueue(command{Kind: cmdTapBase, BaseID: baseID, TeamID: teamID})
}

func (e *Engine) launchLocked(opts *LaunchOptions) CommandResult {
	if e.state != StateWaiting {
		return CommandResult{OK: false, Reason: "already active"}
	}

	connectedIDs := e.connections.ConnectedRosterIDs()
	if len(connectedIDs) < 2 {
		return CommandResult{OK: false, Reason: "need at least 2 players"}
	}
	if e.teams.Enabled() {
		unassigned := make([]string, 0, len(connectedIDs))
		for _, id := range connectedIDs {
			if e.teams.TeamOf(id) < 0 {
				unassigned = append(unassigned, id)
			}
		}
		if len(unassigned) > 0 {
			e.teams.AssignSequential(unassigned)
		}
		if !e.teams.ValidateTeams() {
			return CommandResult{OK: false, Reason: "every team must have at least one player"}
		}
		for _, id := range connectedIDs {
			if p := e.connections.Get(id); p != nil {
				teamID := e.teams.TeamOf(id)
				p.Team = &teamID
			}
		}
	}

	mode, ok := e.buildMode(opts)
	if !ok {
		return CommandResult{OK: false, Reason: "unknown mode: " + opts.Mode}
	}

	e.matchRoster = make([]*Player, 0, len(connectedIDs))
	for _, id := range connectedIDs {
		if p := e.connections.Get(id); p != nil {
			e.matchRoster = append(e.matchRoster, p)
		}
	}

	e.mode = mode
	e.modeName = mode.Name()
	e.currentRound = 0
	e.roundDeathBatches = nil
	e.currentTickDeathIDs = nil
	e.countdownDuration = e.modeDefaults.CountdownDuration
	if opts.CountdownDuration >= 0 {
		e.countdownDuration = time.Duration(opts.CountdownDuration) * time.Millisecond
	}
	e.roundCtx = &RoundContext{Roster: e.matchRoster, RoundStartAt: e.now}

	mode.OnModeSelected(e)

	if pool := mode.GetRolePool(len(e.matchRoster)); len(pool) > 0 {
		for i, p := range e.matchRoster {
			if i < len(pool) {
				role, ok := NewRole(pool[i])
				if !ok {
					panic("game: role pool names unknown role tag " + pool[i])
				}
				p.SetRole(role)
			}
		}
	}

	e.gameEvents.Clear()
	for _, evt := range mode.GetGameEvents(e) {
		e.gameEvents.Register(evt)
	}

	mode.OnGameStart(e, e.now)

	e.readyMgr.Reset()
	e.readyMgr.EnableAfter(e.now, 0)

	e.state = StatePreGame
	log.Printf("🎮 engine: launched mode=%s players=%d", mode.Name(), len(e.matchRoster))

	if e.clock.IsTestMode() {
		e.currentRound = 1
		e.beginRound(e.now)
	}

	return CommandResult{OK: true}
}

func (e *Engine) proceedLocked() CommandResult {
	if e.state != StatePreGame {
		return CommandResult{OK: false, Reason: "not in pre-game"}
	}
	e.currentRound = 1
	e.beginRound(e.now)
	return CommandResult{OK: true}
}

func (e *Engine) stopLocked() {
	if e.mode != nil {
		e.gameEvents.StopAll(e)
		e.mode.OnGameEnd(e)
		e.mode = nil
		e.modeName = ""
	}
	e.timers.CancelAll()
	e.respawn.CancelAll()
	e.gameEvents.Clear()
	e.readyMgr.Reset()
	e.matchRoster = nil
	e.roundDeathBatches = nil
	e.currentTickDeathIDs = nil
	e.state = StateWaiting
	log.Printf("🛑 engine: stopped, returning to waiting")
}

func (e *Engine) buildMode(opts *LaunchOptions) (GameMode, bool) {
	d := e.modeDefaults
	switch opts.Mode {
	case "classic":
		roundCount, targetScore := d.RoundCount, d.TargetScore
		if opts.RoundCount > 0 {
			roundCount = opts.RoundCount
		}
		if opts.TargetScore > 0 {
			targetScore = opts.TargetScore
		}
		return NewClassicMode(d.PlacementBonuses, roundCount, targetScore), true
	case "role_based":
		roundCount, targetScore := d.RoundCount, d.TargetScore
		if opts.RoundCount > 0 {
			roundCount = opts.RoundCount
		}
		if opts.TargetScore > 0 {
			targetScore = opts.TargetScore
		}
		return NewRoleBasedMode(d.PlacementBonuses, roundCount, targetScore, nil, AllRoleTags()), true
	case "death_count":
		roundDuration := d.RoundDuration
		if opts.RoundDurationMs > 0 {
			roundDuration = time.Duration(opts.RoundDurationMs) * time.Millisecond
		}
		return NewDeathCountMode(d.PlacementBonuses, d.RoundCount, roundDuration, d.RespawnDelay), true
	case "domination":
		return NewDominationMode(d.ControlIntervalMs, d.PointTarget), true
	default:
		return nil, false
	}
}

// beginRound resets per-round player state, runs mode.OnRoundStart, and
// starts the countdown that leads into the active state (spec §4.8).
func (e *Engine) beginRound(now time.Time) {
	e.state = StateCountdown
	e.roundSetup.ResetRoster(e.matchRoster)
	e.roundDeathBatches = nil
	e.currentTickDeathIDs = nil
	e.roundCtx = &RoundContext{Roster: e.matchRoster, RoundStartAt: now}

	if e.mode != nil {
		e.mode.OnRoundStart(e, now)
	}
	e.bus.Publish(Event{Kind: EventRoundStart, Payload: RoundStartPayload{Round: e.currentRound}})
	e.roundStartedAt = now

	firstRound := e.currentRound == 1
	e.roundSetup.RunCountdown(now, e.countdownDuration, func() {
		e.state = StateActive
		e.gameEvents.Start(e.now, e)
		if firstRound {
			e.bus.Publish(Event{Kind: EventGameStart, Payload: GameStartPayload{
				Mode: e.mode.Name(), Sensitivity: e.sensitivity,
			}})
		}
	})
}

// Tick is the single mutator (spec §4.1/§4.2): drain queued operations,
// then — only while active — run the fixed per-tick ordering, then
// always drain due timers and check for ready-gated auto-advance.
func (e *Engine) Tick(now time.Time) {
	e.now = now
	e.drainCommands()

	if e.state == StateActive {
		e.tickActive(now, TickInterval)
	}

	e.timers.Drain(now)
	e.checkReadyAutoStart(now)

	e.tickCount++
	e.publishSnapshot(now)
}

// Snapshot returns the latest published dashboard snapshot. Safe to call
// from any goroutine; never blocks the tick loop.
func (e *Engine) Snapshot() *GameSnapshot {
	return e.snapshots.AcquireRead()
}

func (e *Engine) publishSnapshot(now time.Time) {
	snap := e.snapshots.AcquireWrite(now)
	snap.TickNumber = e.tickCount
	snap.State = e.state.String()
	snap.CurrentRound = e.currentRound
	snap.ModeName = e.modeName

	roster := e.matchRoster
	if len(roster) == 0 {
		roster = e.connections.Roster()
	}
	alive := 0
	limit := e.snapshots.GetLimits().MaxPlayers
	for _, p := range roster {
		if p.IsAlive {
			alive++
		}
		if len(snap.Players) >= limit {
			continue
		}
		snap.Players = append(snap.Players, PlayerSnapshot{
			ID:                p.ID,
			Name:              p.Name,
			Number:            p.Number,
			IsBot:             p.IsBot,
			IsAlive:           p.IsAlive,
			AccumulatedDamage: p.AccumulatedDamage,
			DeathThreshold:    p.DeathThreshold,
			Points:            p.Points,
			TotalPoints:       p.TotalPoints,
			DeathCount:        p.DeathCount,
			RoleName:          p.RoleName,
			Ready:             p.Ready,
			TeamID:            p.Team,
			Connected:         p.Connected,
		})
	}
	snap.PlayerCount = len(roster)
	snap.AliveCount = alive

	if e.teams.Enabled() {
		teamLimit := e.snapshots.GetLimits().MaxTeams
		for _, t := range e.teams.Teams() {
			if len(snap.Teams) >= teamLimit {
				break
			}
			snap.Teams = append(snap.Teams, TeamSnapshot{
				ID: t.ID, Name: t.Name, Color: t.Color, MatchPoints: t.MatchPoints,
			})
		}
	}

	baseLimit := e.snapshots.GetLimits().MaxBases
	for _, b := range e.bases.All() {
		if len(snap.Bases) >= baseLimit {
			break
		}
		snap.Bases = append(snap.Bases, BaseSnapshot{
			ID: b.ID, Number: b.Number, OwnerTeam: b.OwnerTeam, Connected: b.Connected,
		})
	}

	e.snapshots.PublishWrite()
}

func (e *Engine) tickActive(now time.Time, dt time.Duration) {
	var deaths []*Player
	for _, p := range e.matchRoster {
		if !p.IsAlive {
			continue
		}

		p.Effects().ExpireDue(p, now)
		p.Effects().Tick(p, now, dt)

		if dmg := p.ComputeMotionDamage(); dmg > 0 {
			delivered := p.TakeDamage(e.roundCtx, dmg, now)
			if delivered > 0 {
				e.bus.Publish(Event{Kind: EventPlayerDamage, Payload: PlayerDamagePayload{
					ID: p.ID, AccumulatedDamage: p.AccumulatedDamage,
				}})
			}
		}

		if p.Role() != nil {
			p.Role().OnTick(p, e.roundCtx, now, dt)
		}

		if p.IsLethal() {
			deaths = append(deaths, p)
		}
	}

	for _, p := range deaths {
		e.processDeath(p, now)
	}
	e.flushTickDeaths()

	if e.mode != nil {
		e.mode.OnTick(e, now, dt)
	}
	e.gameEvents.Tick(now, dt, e)

	e.checkWinCondition(now)
}

// processDeath runs the fixed death sequence (spec §4.2 step 5): mark
// dead, fire PlayerDied, invoke the mode's onPlayerDeath, then every
// other roster player's role onOtherDeath (dead or alive), then roll the round context's
// "prior death" bookkeeping forward for Vulture-style hooks.
func (e *Engine) processDeath(p *Player, now time.Time) {
	p.Die(now)
	if p.Role() != nil {
		p.Role().OnDeath(p, now)
	}
	e.bus.Publish(Event{Kind: EventPlayerDied, Payload: PlayerDiedPayload{ID: p.ID}})

	if e.mode != nil {
		e.mode.OnPlayerDeath(p, e, now)
	}

	for _, other := range e.matchRoster {
		if other.ID == p.ID || other.Role() == nil {
			continue
		}
		other.Role().OnOtherDeath(other, p, e.roundCtx, now)
		other.Role().RerollIfTargetGone(other, e.roundCtx)
	}

	e.roundCtx.PriorDeathAt = now
	e.roundCtx.PriorDeathPlayerID = p.ID
}

func (e *Engine) checkWinCondition(now time.Time) {
	if e.mode == nil {
		return
	}
	check := e.mode.CheckWinCondition(e)
	if !check.RoundEnded {
		return
	}

	result := e.mode.OnRoundEnd(e, now)

	e.bus.Publish(Event{Kind: EventRoundEnd, Payload: RoundEndPayload{
		Scores:     e.scoresByTotalPoints(),
		TeamScores: teamScoreEntries(e.teams),
	}})

	e.gameEvents.StopAll(e)
	e.respawn.CancelAll()

	readyDelay := e.modeDefaults.ReadyDelay
	if e.clock.IsTestMode() {
		readyDelay = 0
	}
	if result.GameEnded {
		e.state = StateFinished
		final := e.mode.CalculateFinalScores(e)
		e.mode.OnGameEnd(e)
		e.mode = nil
		e.modeName = ""
		e.bus.Publish(Event{Kind: EventGameFinished, Payload: GameFinishedPayload{
			Scores: final, TeamScores: teamScoreEntries(e.teams),
		}})
	} else {
		e.state = StateRoundEnded
		e.currentRound++
	}
	e.readyMgr.Reset()
	e.readyMgr.EnableAfter(now, readyDelay)

	e.roundDeathBatches = nil
	e.currentTickDeathIDs = nil
}

func teamScoreEntries(tm *TeamManager) []TeamScoreEntry {
	if !tm.Enabled() {
		return nil
	}
	teams := tm.Teams()
	out := make([]TeamScoreEntry, len(teams))
	for i, t := range teams {
		out[i] = TeamScoreEntry{TeamID: t.ID, MatchPoints: t.MatchPoints}
	}
	return out
}

// checkReadyAutoStart drives the ready-gated transitions of spec §4.1
// that don't depend on an explicit ProceedFromPreGame/Launch call:
// pre-game and round-ended both advance to the next round once every
// connected player is ready; finished optionally returns to waiting.
func (e *Engine) checkReadyAutoStart(now time.Time) {
	ids := e.connectedRosterIDs()
	switch e.state {
	case StatePreGame:
		if e.readyMgr.AllReady(ids) {
			e.currentRound = 1
			e.beginRound(now)
		}
	case StateRoundEnded:
		if e.readyMgr.AllReady(ids) {
			e.beginRound(now)
		}
	case StateFinished:
		if e.readyMgr.AllReady(ids) {
			e.stopLocked()
		}
	}
}
