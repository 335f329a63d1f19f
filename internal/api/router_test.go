package api_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/simonerocutto/role-based-joust/internal/api"
	"github.com/simonerocutto/role-based-joust/internal/config"
	"github.com/simonerocutto/role-based-joust/internal/game"
)

func testEngineConfig() config.AppConfig {
	return config.AppConfig{
		Movement: config.DefaultMovement(),
		Limits:   config.DefaultLimits(),
		Modes:    config.DefaultModeDefaults(),
		Server:   config.DefaultServer(),
	}
}

func newTestRouter(t *testing.T) (*game.Engine, http.Handler) {
	t.Helper()
	engine := game.NewEngine(testEngineConfig(), true, 7)
	settings := config.NewStore(t.TempDir() + "/settings.json")
	settings.Disable()
	router := api.NewRouter(api.RouterConfig{
		Engine:         engine,
		Settings:       settings,
		DisableLogging: true,
		StaticFilesDir: t.TempDir(),
	})
	return engine, router
}

// TestRouterHasNoSideEffects verifies NewRouter builds a router without
// needing a listener; it checks only that construction returns one.
func TestRouterHasNoSideEffects(t *testing.T) {
	_, router := newTestRouter(t)
	if router == nil {
		t.Fatal("router should not be nil")
	}
}

func TestGetState(t *testing.T) {
	engine, router := newTestRouter(t)
	engine.Start()
	defer engine.Shutdown()
	engine.RegisterPlayer("p1", "sock-p1", "p1", false)
	engine.RegisterPlayer("p2", "sock-p2", "p2", false)
	engine.DebugFastForward(int64(game.TickInterval / time.Millisecond))

	ts := httptest.NewServer(router)
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/api/game/state")
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	var body map[string]interface{}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if int(body["playerCount"].(float64)) != 2 {
		t.Errorf("expected playerCount 2, got %v", body["playerCount"])
	}
}

func TestGetLobby(t *testing.T) {
	engine, router := newTestRouter(t)
	engine.RegisterPlayer("p1", "sock-p1", "p1", false)

	ts := httptest.NewServer(router)
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/api/game/lobby")
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()

	var body struct {
		Success bool          `json:"success"`
		Players []interface{} `json:"players"`
	}
	json.NewDecoder(resp.Body).Decode(&body)
	if !body.Success || len(body.Players) != 1 {
		t.Errorf("expected one player in lobby, got %+v", body)
	}
}

func TestPostSettingsValidatesTeamCount(t *testing.T) {
	_, router := newTestRouter(t)
	ts := httptest.NewServer(router)
	defer ts.Close()

	body := bytes.NewReader([]byte(`{"teamsEnabled": true, "teamCount": 7}`))
	resp, err := http.Post(ts.URL+"/api/game/settings", "application/json", body)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("expected 400 for out-of-range teamCount, got %d", resp.StatusCode)
	}
}

func TestPostSettingsAcceptsValidTeamCount(t *testing.T) {
	_, router := newTestRouter(t)
	ts := httptest.NewServer(router)
	defer ts.Close()

	body := bytes.NewReader([]byte(`{"teamsEnabled": true, "teamCount": 3}`))
	resp, err := http.Post(ts.URL+"/api/game/settings", "application/json", body)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Errorf("expected 200, got %d", resp.StatusCode)
	}
}

func TestLaunchAndDebugKill(t *testing.T) {
	engine, router := newTestRouter(t)
	engine.RegisterPlayer("p1", "sock-p1", "p1", false)
	engine.RegisterPlayer("p2", "sock-p2", "p2", false)

	ts := httptest.NewServer(router)
	defer ts.Close()

	launchBody := bytes.NewReader([]byte(`{"mode": "classic", "countdownDuration": 0, "roundCount": 1}`))
	resp, err := http.Post(ts.URL+"/api/game/launch", "application/json", launchBody)
	if err != nil {
		t.Fatalf("launch request failed: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected launch to succeed, got %d", resp.StatusCode)
	}
	if engine.State() != game.StateActive {
		t.Fatalf("expected active state after launch, got %v", engine.State())
	}

	resp, err = http.Post(ts.URL+"/api/debug/player/p2/kill", "application/json", nil)
	if err != nil {
		t.Fatalf("kill request failed: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected kill to succeed, got %d", resp.StatusCode)
	}
	if engine.State() != game.StateFinished {
		t.Errorf("expected match finished after eliminating p2, got %v", engine.State())
	}
}

func TestGetLeaderboard(t *testing.T) {
	engine, router := newTestRouter(t)
	engine.RegisterPlayer("p1", "sock-p1", "p1", false)
	engine.RegisterPlayer("p2", "sock-p2", "p2", false)
	engine.Launch(&game.LaunchOptions{Mode: "classic", CountdownDuration: 0, RoundCount: 1})
	engine.DebugKill("p2")

	ts := httptest.NewServer(router)
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/api/game/leaderboard?limit=5")
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()

	var entries []map[string]interface{}
	if err := json.NewDecoder(resp.Body).Decode(&entries); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 leaderboard entries, got %d", len(entries))
	}
}

func TestCORSHeaders(t *testing.T) {
	engine := game.NewEngine(testEngineConfig(), true, 1)
	settings := config.NewStore(t.TempDir() + "/settings.json")
	settings.Disable()
	router := api.NewRouter(api.RouterConfig{
		Engine:         engine,
		Settings:       settings,
		DisableLogging: true,
		CORSOrigins:    []string{"http://test.example.com"},
		StaticFilesDir: t.TempDir(),
	})

	ts := httptest.NewServer(router)
	defer ts.Close()

	req, _ := http.NewRequest("GET", ts.URL+"/api/game/state", nil)
	req.Header.Set("Origin", "http://test.example.com")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()

	if got := resp.Header.Get("Access-Control-Allow-Origin"); got != "http://test.example.com" {
		t.Errorf("expected CORS origin echoed back, got %q", got)
	}
}

func TestRateLimiting(t *testing.T) {
	engine := game.NewEngine(testEngineConfig(), true, 1)
	settings := config.NewStore(t.TempDir() + "/settings.json")
	settings.Disable()
	router := api.NewRouter(api.RouterConfig{
		Engine:   engine,
		Settings: settings,
		RateLimitConfig: &api.RateLimitConfig{
			RequestsPerSecond: 1,
			Burst:             2,
			CleanupInterval:   time.Hour,
		},
		DisableLogging: true,
		StaticFilesDir: t.TempDir(),
	})

	ts := httptest.NewServer(router)
	defer ts.Close()

	var gotRateLimited bool
	for i := 0; i < 10; i++ {
		resp, err := http.Get(ts.URL + "/api/game/state")
		if err != nil {
			t.Fatalf("request failed: %v", err)
		}
		resp.Body.Close()
		if resp.StatusCode == http.StatusTooManyRequests {
			gotRateLimited = true
			break
		}
	}
	if !gotRateLimited {
		t.Error("expected to be rate limited after burst exceeded")
	}
}
