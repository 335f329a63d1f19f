package api

import (
	"net/http"
	"time"

	"github.com/simonerocutto/role-based-joust/internal/config"
	"github.com/simonerocutto/role-based-joust/internal/game"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// EngineInterface defines the game engine methods the API layer calls.
// Keeping this minimal enables mocking in router tests without spinning
// up the full tick loop.
type EngineInterface interface {
	State() game.MatchState
	CurrentRound() int
	ModeName() string
	Sensitivity() string
	SetSensitivity(label string) bool
	Snapshot() *game.GameSnapshot
	Connections() *game.ConnectionManager
	Teams() *game.TeamManager
	Bases() *game.BaseManager
	Leaderboard() *game.Leaderboard
	PlayerByID(id string) *game.Player
	ConfigureTeams(enabled bool, count int)

	Launch(opts *game.LaunchOptions) game.CommandResult
	ProceedFromPreGame() game.CommandResult
	Stop() game.CommandResult
	RegisterPlayer(id, socketID, name string, isBot bool) game.CommandResult
	HandleSocketDisconnect(socketID string) game.CommandResult
	HandleLobbyDisconnect(id, socketID string) game.CommandResult
	RemovePlayer(id string) game.CommandResult
	KickPlayer(id string) game.CommandResult
	SetReady(id string, ready bool) game.CommandResult
	ApplyMotion(id string, sample game.MovementSample) game.CommandResult
	DebugKill(id string) game.CommandResult
	DebugFastForward(milliseconds int64) game.CommandResult
	ShuffleTeams() game.CommandResult
	CycleTeam(id string) game.CommandResult
	TapBase(baseID string, teamID int) game.CommandResult
}

// RouterConfig contains all dependencies needed to construct the HTTP
// router, structured for dependency injection and httptest use.
type RouterConfig struct {
	// Engine is the game engine (required).
	Engine EngineInterface

	// Settings is the persisted-settings store (required).
	Settings *config.Store

	// RateLimiter is an optional pre-configured rate limiter. If nil, a
	// new one is built from RateLimitConfig.
	RateLimiter *IPRateLimiter

	// RateLimitConfig only applies when RateLimiter is nil.
	RateLimitConfig *RateLimitConfig

	// CORSOrigins overrides the default allowed origins.
	CORSOrigins []string

	// StaticFilesDir serves the lobby/dashboard client. Defaults to "./web".
	StaticFilesDir string

	// DisableLogging disables the request logger middleware (benchmarks).
	DisableLogging bool
}

type routerHandlers struct {
	engine   EngineInterface
	settings *config.Store
}

// NewRouter constructs the HTTP router with all middleware and routes.
//
// No listeners are opened, so it is safe to use with httptest.NewServer.
// When cfg.RateLimiter is nil, the IP rate limiter it builds starts its
// own cleanup goroutine.
func NewRouter(cfg RouterConfig) *chi.Mux {
	r := chi.NewRouter()

	if !cfg.DisableLogging {
		r.Use(middleware.Logger)
	}
	r.Use(middleware.Recoverer)
	r.Use(requestMetricsMiddleware)

	rateLimiter := cfg.RateLimiter
	if rateLimiter == nil {
		rateLimitCfg := DefaultRateLimitConfig
		if cfg.RateLimitConfig != nil {
			rateLimitCfg = *cfg.RateLimitConfig
		}
		rateLimiter = NewIPRateLimiter(rateLimitCfg)
	}
	r.Use(rateLimiter.Middleware)

	corsOrigins := cfg.CORSOrigins
	if corsOrigins == nil {
		corsOrigins = []string{"http://localhost:*", "http://127.0.0.1:*"}
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   corsOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
		AllowCredentials: true,
	}))

	h := &routerHandlers{engine: cfg.Engine, settings: cfg.Settings}

	r.Route("/api/game", func(r chi.Router) {
		r.Get("/state", h.handleGetState)
		r.Get("/lobby", h.handleGetLobby)
		r.Get("/settings", h.handleGetSettings)
		r.Post("/settings", h.handlePostSettings)
		r.Post("/launch", h.handleLaunch)
		r.Post("/proceed", h.handleProceed)
		r.Post("/stop", h.handleStop)
		r.Get("/teams", h.handleGetTeams)
		r.Post("/teams/shuffle", h.handleShuffleTeams)
		r.Get("/leaderboard", h.handleGetLeaderboard)
	})

	r.Route("/api/debug", func(r chi.Router) {
		r.Post("/player/{id}/kill", h.handleDebugKillPlayer)
		r.Post("/bot/{id}/command", h.handleDebugBotCommand)
		r.Post("/fastforward", h.handleDebugFastForward)
		r.Post("/reset", h.handleDebugReset)
	})

	staticDir := cfg.StaticFilesDir
	if staticDir == "" {
		staticDir = "./web"
	}
	r.Handle("/*", http.FileServer(http.Dir(staticDir)))

	return r
}

// requestMetricsMiddleware records latency/status for every request
// against the path pattern chi matched, not the raw URL (bounded
// cardinality for Prometheus labels).
func requestMetricsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		pattern := chi.RouteContext(r.Context()).RoutePattern()
		if pattern == "" {
			pattern = "unmatched"
		}
		RecordRequest(r.Method, pattern, ww.Status(), time.Since(start))
	})
}

// GetRateLimiterFromRouter returns cfg.RateLimiter when one was injected;
// otherwise it builds a new limiter from the same config, which is not
// the instance a NewRouter call with that cfg installs.
func GetRateLimiterFromRouter(cfg RouterConfig) *IPRateLimiter {
	if cfg.RateLimiter != nil {
		return cfg.RateLimiter
	}
	rateLimitCfg := DefaultRateLimitConfig
	if cfg.RateLimitConfig != nil {
		rateLimitCfg = *cfg.RateLimitConfig
	}
	return NewIPRateLimiter(rateLimitCfg)
}
