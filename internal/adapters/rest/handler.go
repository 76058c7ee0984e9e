package rest

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/ewilliams-labs/vibecheck/internal/core/domain"
	"github.com/ewilliams-labs/vibecheck/internal/core/ports"
	"github.com/ewilliams-labs/vibecheck/internal/core/services"
)

// DefaultMaxFrameBytes bounds one uploaded preview frame.
const DefaultMaxFrameBytes = 5 << 20

// StateSubscriber streams state changes of one session.
type StateSubscriber interface {
	Subscribe(sessionID string) (<-chan domain.SessionState, func(), error)
}

// Config wires a Handler. Artwork is optional.
type Config struct {
	Sessions      *services.Manager
	Events        StateSubscriber
	Artwork       ports.ArtworkFinder
	MaxFrameBytes int64
	Logger        *zap.Logger
}

// Handler manages the HTTP interface for our application.
type Handler struct {
	sessions      *services.Manager
	events        StateSubscriber
	artwork       ports.ArtworkFinder
	maxFrameBytes int64
	logger        *zap.Logger
	upgrader      websocket.Upgrader
	router        chi.Router
}

// NewHandler initializes the HTTP adapter and sets up routes.
func NewHandler(cfg Config) *Handler {
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	if cfg.MaxFrameBytes <= 0 {
		cfg.MaxFrameBytes = DefaultMaxFrameBytes
	}
	h := &Handler{
		sessions:      cfg.Sessions,
		events:        cfg.Events,
		artwork:       cfg.Artwork,
		maxFrameBytes: cfg.MaxFrameBytes,
		logger:        cfg.Logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  32 << 10,
			WriteBufferSize: 4 << 10,
		},
		router: chi.NewRouter(),
	}

	h.routes()

	return h
}

// ServeHTTP satisfies the http.Handler interface.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.router.ServeHTTP(w, r)
}

// routes defines the mapping between URLs and methods.
func (h *Handler) routes() {
	h.router.Use(middleware.RequestID)
	h.router.Use(middleware.RealIP)
	h.router.Use(requestLogger(h.logger))
	h.router.Use(middleware.Recoverer)

	h.router.Get("/health", h.HealthCheck)
	h.router.Get("/", h.Home)

	h.router.Route("/sessions", func(r chi.Router) {
		r.Post("/", h.CreateSession)
		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", h.GetSession)
			r.Delete("/", h.DeleteSession)
			r.Get("/view", h.ViewSession)
			r.Get("/camera", h.CameraSocket)
			r.Post("/frames", h.PushFrame)
			r.Post("/capture", h.Capture)
			r.Post("/reset", h.Reset)
			r.Post("/select", h.SelectSong)
			r.Get("/image", h.Image)
			r.Get("/playlist/{index}/artwork", h.Artwork)
		})
	})
}

// HealthCheck is a simple endpoint to verify the API is running.
func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "message": "VibeCheck is live 🎶"})
}

// requestLogger logs one line per request.
func requestLogger(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			next.ServeHTTP(ww, r)
			logger.Debug("request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Int("bytes", ww.BytesWritten()),
				zap.Duration("took", time.Since(start)),
				zap.String("request_id", middleware.GetReqID(r.Context())),
			)
		})
	}
}
