package game

// commandKind tags which operation a queued inbound command represents.
// All mutating calls the transport makes (join/ready/motion/debug) are
// funneled through here instead of mutating engine state from the caller's
// goroutine, so the tick loop applies them (spec §5).
type commandKind uint8

const (
	cmdRegisterPlayer commandKind = iota
	cmdSocketDisconnect
	cmdLobbyDisconnect
	cmdRemovePlayer
	cmdKickPlayer
	cmdSetReady
	cmdApplyMotion
	cmdLaunch
	cmdProceed
	cmdStop
	cmdDebugKill
	cmdDebugFastForward
	cmdShuffleTeams
	cmdCycleTeam
	cmdTapBase
)

// command is the queue element. Exactly one of the typed fields is set,
// matched against Kind. A reply channel lets the originating HTTP handler
// block for a synchronous result without touching engine state itself.
type command struct {
	Kind commandKind
	Done chan CommandResult

	RegisterPlayer *registerPlayerCmd
	PlayerID       string
	SocketID       string
	Ready          bool
	Motion         MovementSample
	Launch         *LaunchOptions
	Milliseconds   int64
	BaseID         string
	TeamID         int
}

type registerPlayerCmd struct {
	ID       string
	SocketID string
	Name     string
	IsBot    bool
}

type LaunchOptions struct {
	Mode              string
	CountdownDuration int // ms; negative = use mode default, 0 is a valid literal countdown
	RoundCount        int
	RoundDurationMs   int
	TargetScore       int
}

// CommandResult is whatever the handler needs back: a bool, a number, or
// a structured rejection reason (spec §7: "Input-rejection... returned to
// caller as a structured {error}").
type CommandResult struct {
	OK     bool
	Number int
	Reason string
}

// enqueue pushes a command and blocks until it has been processed,
// mirroring a synchronous RPC over the lock-free queue. Returns ok=false if
// the queue is saturated (backpressure, never silently dropped for calls
// that expect a reply).
//
// In production, the reply arrives whenever the next real 100ms tick's
// drainCommands sweeps the queue. In test mode there is no autonomous
// ticker goroutine to do that, so enqueue drains the queue itself right
// here — applying the command without advancing virtual time or running
// the per-tick simulation, which stays exclusively driven by explicit
// FastForward calls.
func (e *Engine) enqueue(cmd command) CommandResult {
	cmd.Done = make(chan CommandResult, 1)
	if !e.inqueue.tryPush(cmd) {
		return CommandResult{OK: false, Reason: "engine busy"}
	}
	if e.clock.IsTestMode() {
		e.now = e.clock.Now()
		e.drainCommands()
	}
	return <-cmd.Done
}

// drainCommands pulls every command queued since the last tick and applies
// it, replying on each command's Done channel. Called once at the start of
// Tick, before the fixed §4.2 ordering runs, and by enqueue in test mode.
func (e *Engine) drainCommands() {
	for _, cmd := range e.inqueue.drain(maxCommandsPerTick) {
		res := e.applyCommand(cmd)
		if cmd.Done != nil {
			cmd.Done <- res
		}
	}
}

const maxCommandsPerTick = 4096

func (e *Engine) applyCommand(cmd command) CommandResult {
	switch cmd.Kind {
	case cmdRegisterPlayer:
		r := cmd.RegisterPlayer
		number := e.connections.Register(r.ID, r.SocketID, r.Name, r.IsBot)
		if e.teams.Enabled() {
			if p := e.connections.Get(r.ID); p != nil && p.Team == nil {
				teamID := e.teams.AddPlayer(r.ID)
				p.Team = &teamID
			}
		}
		return CommandResult{OK: true, Number: number}

	case cmdSocketDisconnect:
		e.connections.HandleSocketDisconnect(cmd.SocketID)
		return CommandResult{OK: true}

	case cmdLobbyDisconnect:
		e.connections.HandleLobbyDisconnect(cmd.PlayerID, cmd.SocketID, e.now, func() {
			e.enqueueExpiry(cmd.PlayerID)
		})
		return CommandResult{OK: true}

	case cmdRemovePlayer:
		e.removePlayerLocked(cmd.PlayerID)
		return CommandResult{OK: true}

	case cmdKickPlayer:
		if e.state != StateWaiting {
			return CommandResult{OK: false, Reason: "kick only allowed while waiting"}
		}
		e.removePlayerLocked(cmd.PlayerID)
		return CommandResult{OK: true}

	case cmdSetReady:
		ok := e.readyMgr.SetPlayerReady(cmd.PlayerID, cmd.Ready, e.connectedRosterIDs())
		if ok {
			if p := e.connections.Get(cmd.PlayerID); p != nil {
				p.Ready = cmd.Ready
			}
			e.bus.Publish(Event{Kind: EventPlayerReady, Payload: PlayerReadyPayload{ID: cmd.PlayerID, IsReady: cmd.Ready}})
			e.publishReadyUpdate()
		}
		return CommandResult{OK: ok}

	case cmdApplyMotion:
		p := e.connections.Get(cmd.PlayerID)
		if p == nil {
			return CommandResult{OK: false}
		}
		p.ApplyMotion(cmd.Motion)
		return CommandResult{OK: true}

	case cmdLaunch:
		return e.launchLocked(cmd.Launch)

	case cmdProceed:
		return e.proceedLocked()

	case cmdStop:
		e.stopLocked()
		return CommandResult{OK: true}

	case cmdDebugKill:
		p := e.connections.Get(cmd.PlayerID)
		if p == nil {
			return CommandResult{OK: false}
		}
		e.killPlayer(p)
		return CommandResult{OK: true}

	case cmdDebugFastForward:
		e.clock.FastForward(cmd.Milliseconds)
		return CommandResult{OK: true}

	case cmdShuffleTeams:
		ids := e.connectedRosterIDs()
		e.teams.Shuffle(ids)
		for _, id := range ids {
			if p := e.connections.Get(id); p != nil {
				teamID := e.teams.TeamOf(id)
				p.Team = &teamID
			}
		}
		return CommandResult{OK: true}

	case cmdCycleTeam:
		newID := e.teams.CyclePlayerTeam(cmd.PlayerID)
		if p := e.connections.Get(cmd.PlayerID); p != nil {
			p.Team = &newID
		}
		return CommandResult{OK: true, Number: newID}

	case cmdTapBase:
		e.tapBase(cmd.BaseID, cmd.TeamID)
		return CommandResult{OK: true}
	}

	return CommandResult{OK: false, Reason: "unknown command"}
}
