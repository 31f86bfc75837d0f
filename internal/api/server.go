package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/dgallion1/bionic/internal/bootstrap"
	"github.com/dgallion1/bionic/internal/config"
	"github.com/dgallion1/bionic/internal/page"
	"github.com/dgallion1/bionic/internal/settings"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/patrickmn/go-cache"
)

// Server is the HTTP API for loading pages and driving their engines.
type Server struct {
	router   chi.Router
	pages    *page.Store
	settings settings.Store
	boot     *bootstrap.Bootstrapper
	limiters *cache.Cache
	log      *slog.Logger
	cfg      config.Config
}

// NewServer creates and configures the HTTP server.
func NewServer(pages *page.Store, store settings.Store, boot *bootstrap.Bootstrapper, log *slog.Logger, cfg config.Config) *Server {
	s := &Server{
		pages:    pages,
		settings: store,
		boot:     boot,
		limiters: cache.New(10*time.Minute, 5*time.Minute),
		log:      log,
		cfg:      cfg,
	}
	s.setupRoutes()
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) setupRoutes() {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(CORS(s.cfg.CORSOrigins))
	r.Use(RequestLogger(s.log))

	// Public endpoints.
	r.Get("/health", s.handleHealth)

	// Authenticated endpoints.
	r.Group(func(r chi.Router) {
		r.Use(AuthMiddleware(s.cfg.BionicAPIKey, s.log))
		r.Use(RateLimit(s.limiters, s.cfg.RateLimitRPS, s.cfg.RateLimitBurst))

		r.Post("/api/pages", s.handleCreatePage)
		r.Route("/api/pages/{pageID}", func(r chi.Router) {
			r.Get("/", s.handleGetPage)
			r.Delete("/", s.handleDeletePage)
			r.Post("/load", s.handleLoadPage)
			r.Post("/messages", s.handleMessage)
			r.Post("/mutations", s.handleMutation)
			r.Get("/stats", s.handlePageStats)
		})

		r.Get("/api/settings", s.handleGetSettings)
		r.Put("/api/settings", s.handlePutSettings)

		r.Post("/api/transform", s.handleTransform)
	})

	s.router = r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"status":"ok"}`))
}
