package api

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/simonerocutto/role-based-joust/internal/game"
)

// handleGetState returns the dashboard's at-a-glance match summary
// (spec §6 GET /api/game/state).
func (h *routerHandlers) handleGetState(w http.ResponseWriter, r *http.Request) {
	snap := h.engine.Snapshot()
	writeJSON(w, map[string]interface{}{
		"state":        snap.State,
		"currentRound": snap.CurrentRound,
		"mode":         snap.ModeName,
		"playerCount":  snap.PlayerCount,
		"alivePlayers": snap.AliveCount,
	})
}

// handleGetLobby returns the full connected roster (spec §6 GET
// /api/game/lobby).
func (h *routerHandlers) handleGetLobby(w http.ResponseWriter, r *http.Request) {
	roster := h.engine.Connections().Roster()
	writeJSON(w, map[string]interface{}{
		"success": true,
		"players": roster,
	})
}

// handleGetSettings returns the persisted settings document (spec §6
// GET /api/game/settings).
func (h *routerHandlers) handleGetSettings(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, h.settings.Current())
}

// handlePostSettings applies a partial settings update, validating the
// fields the engine can reject outright (spec §6 POST /api/game/settings).
func (h *routerHandlers) handlePostSettings(w http.ResponseWriter, r *http.Request) {
	patch := h.settings.Current()
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		writeError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	if patch.TeamsEnabled && (patch.TeamCount < 2 || patch.TeamCount > 4) {
		writeError(w, "teamCount must be between 2 and 4", http.StatusBadRequest)
		return
	}

	if err := h.settings.Save(patch); err != nil {
		writeError(w, "failed to persist settings", http.StatusInternalServerError)
		return
	}

	h.engine.ConfigureTeams(patch.TeamsEnabled, patch.TeamCount)
	if patch.Sensitivity != "" {
		h.engine.SetSensitivity(patch.Sensitivity)
	}

	writeJSON(w, h.settings.Current())
}

// handleLaunch installs a mode and starts the match (spec §6 POST
// /api/game/launch).
func (h *routerHandlers) handleLaunch(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Mode              string `json:"mode"`
		CountdownDuration *int   `json:"countdownDuration"`
		RoundCount        int    `json:"roundCount"`
		RoundDuration     int    `json:"roundDuration"`
		TargetScore       int    `json:"targetScore"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.Mode == "" {
		writeError(w, "mode is required", http.StatusBadRequest)
		return
	}

	countdown := -1
	if req.CountdownDuration != nil {
		countdown = *req.CountdownDuration
	}

	res := h.engine.Launch(&game.LaunchOptions{
		Mode:              req.Mode,
		CountdownDuration: countdown,
		RoundCount:        req.RoundCount,
		RoundDurationMs:   req.RoundDuration,
		TargetScore:       req.TargetScore,
	})
	writeCommandResult(w, res)
}

// handleProceed advances pre-game straight into the round-start
// countdown (spec §6 POST /api/game/proceed).
func (h *routerHandlers) handleProceed(w http.ResponseWriter, r *http.Request) {
	res := h.engine.ProceedFromPreGame()
	writeCommandResult(w, res)
}

// handleStop returns an in-progress match to waiting (spec §6 POST
// /api/game/stop).
func (h *routerHandlers) handleStop(w http.ResponseWriter, r *http.Request) {
	res := h.engine.Stop()
	writeJSON(w, map[string]bool{"success": res.OK})
}

// handleGetTeams returns the current team configuration and standings
// (spec §6 GET /api/game/teams).
func (h *routerHandlers) handleGetTeams(w http.ResponseWriter, r *http.Request) {
	tm := h.engine.Teams()
	writeJSON(w, map[string]interface{}{
		"enabled":   tm.Enabled(),
		"teamCount": tm.Count(),
		"teams":     tm.Teams(),
	})
}

// handleShuffleTeams randomly reassigns every connected player to a team
// (spec §6 POST /api/game/teams/shuffle).
func (h *routerHandlers) handleShuffleTeams(w http.ResponseWriter, r *http.Request) {
	h.engine.ShuffleTeams()
	tm := h.engine.Teams()
	writeJSON(w, map[string]interface{}{
		"enabled":   tm.Enabled(),
		"teamCount": tm.Count(),
		"teams":     tm.Teams(),
	})
}

// handleGetLeaderboard returns the skip-list-ranked totalPoints
// standings (a §1 "dashboard view" supplement to spec §6's HTTP table;
// dropped from the distilled spec's table but implied by "dashboard
// view", grounded in the teacher's /api/leaderboard handler).
func (h *routerHandlers) handleGetLeaderboard(w http.ResponseWriter, r *http.Request) {
	lb := h.engine.Leaderboard()
	n := 10
	if v := r.URL.Query().Get("limit"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil && parsed > 0 {
			n = parsed
		}
	}
	writeJSON(w, lb.GetTop(n))
}

// handleDebugKillPlayer forces an immediate death, bypassing
// accumulated damage (spec §6 POST /api/debug/player/:id/kill).
func (h *routerHandlers) handleDebugKillPlayer(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	res := h.engine.DebugKill(id)
	writeJSON(w, map[string]bool{"success": res.OK})
}

// handleDebugBotCommand routes a scripted bot action (ready/ apply-motion)
// through the same enqueue path a real client uses (spec §6 POST
// /api/debug/bot/:id/command).
func (h *routerHandlers) handleDebugBotCommand(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req struct {
		Command   string  `json:"command"`
		Ready     bool    `json:"ready"`
		Intensity float64 `json:"intensity"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	var res game.CommandResult
	switch req.Command {
	case "ready":
		res = h.engine.SetReady(id, req.Ready)
	case "motion":
		res = h.engine.ApplyMotion(id, game.MovementSample{Intensity: req.Intensity, At: time.Now()})
	default:
		writeError(w, "unknown command: "+req.Command, http.StatusBadRequest)
		return
	}
	writeJSON(w, map[string]bool{"success": res.OK})
}

// handleDebugFastForward advances the virtual clock; only meaningful in
// test mode (spec §6 POST /api/debug/fastforward).
func (h *routerHandlers) handleDebugFastForward(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Milliseconds int64 `json:"milliseconds"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	res := h.engine.DebugFastForward(req.Milliseconds)
	writeJSON(w, map[string]bool{"success": res.OK})
}

// handleDebugReset returns the match to waiting, same as Stop — exposed
// separately under /api/debug so test harnesses don't depend on the
// player-facing stop control (spec §6 POST /api/debug/reset).
func (h *routerHandlers) handleDebugReset(w http.ResponseWriter, r *http.Request) {
	res := h.engine.Stop()
	writeJSON(w, map[string]bool{"success": res.OK})
}

// writeCommandResult renders a CommandResult as the {success}/{error}
// shape spec §6 and §7 describe for input-rejection failures.
func writeCommandResult(w http.ResponseWriter, res game.CommandResult) {
	if !res.OK {
		writeError(w, res.Reason, http.StatusBadRequest)
		return
	}
	writeJSON(w, map[string]bool{"success": true})
}

func writeJSON(w http.ResponseWriter, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, message string, code int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}
