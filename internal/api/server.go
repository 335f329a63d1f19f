package api

import (
	"log"
	"net/http"
	"time"

	"github.com/simonerocutto/role-based-joust/internal/config"
	"github.com/simonerocutto/role-based-joust/internal/game"

	"github.com/go-chi/chi/v5"
)

// Server is the HTTP API server with WebSocket support: it combines the
// HTTP router with the WebSocket hub for real-time dashboard/player
// updates.
type Server struct {
	engine      *game.Engine
	router      *chi.Mux
	wsHub       *WebSocketHub
	rateLimiter *IPRateLimiter
}

// NewServer creates a new API server with default production
// configuration.
//
// The WebSocket hub and the metrics poll loop do not start until Start()
// is called; the IP rate limiter built here already runs its cleanup
// goroutine.
func NewServer(engine *game.Engine, settings *config.Store) *Server {
	s := &Server{
		engine: engine,
		wsHub:  NewWebSocketHub(engine),
	}

	s.rateLimiter = NewIPRateLimiter(DefaultRateLimitConfig)

	s.router = NewRouter(RouterConfig{
		Engine:      engine,
		Settings:    settings,
		RateLimiter: s.rateLimiter,
	})

	s.router.Get("/ws", s.handleWS)

	return s
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	s.wsHub.HandleWebSocket(w, r)
}

// Start begins the HTTP server and starts the hub and metrics-poll
// goroutines. It is the only method that opens a network listener.
func (s *Server) Start(addr string) error {
	go s.wsHub.Run()
	go s.pollEventLogStats()

	log.Printf("🌐 API server starting on %s", addr)
	log.Printf("🎮 dashboard: http://localhost%s/", addr)

	return http.ListenAndServe(addr, s.router)
}

// pollEventLogStats mirrors the event log's cumulative counters and the
// current roster size onto their Prometheus gauges every few seconds.
func (s *Server) pollEventLogStats() {
	ticker := time.NewTicker(5 * time.Second)
	defer ticker.Stop()
	for range ticker.C {
		el := s.engine.EventLog()
		UpdateEventLogStats(el.GetTotalCount(), el.GetDroppedCount())
		UpdatePlayerCount(s.engine.Connections().Count())
	}
}

// Router returns the HTTP handler for use with httptest.
func (s *Server) Router() http.Handler {
	return s.router
}

// Stop stops the rate limiter's cleanup goroutine. The hub and
// metrics-poll goroutines started by Start keep running.
func (s *Server) Stop() {
	if s.rateLimiter != nil {
		s.rateLimiter.Stop()
	}
}
