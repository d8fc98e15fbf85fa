// Package gateway is the HTTP front door: it authenticates relay
// submissions at the trust boundary, stores accepted photos, and enqueues
// extraction work.
package gateway

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/sells-group/leadsnap/internal/config"
	"github.com/sells-group/leadsnap/internal/media"
	"github.com/sells-group/leadsnap/internal/monitoring"
	"github.com/sells-group/leadsnap/internal/photo"
	"github.com/sells-group/leadsnap/internal/storage"
	"github.com/sells-group/leadsnap/pkg/hmacsign"
)

// QueueSender enqueues extraction jobs.
type QueueSender interface {
	Send(ctx context.Context, name string, payload any, delay time.Duration) (int64, error)
}

// StatusCollector produces the pipeline snapshot for GET /api/status.
type StatusCollector interface {
	Collect(ctx context.Context) (*monitoring.Snapshot, error)
}

// Deps bundles the gateway's collaborators.
type Deps struct {
	Signer     *hmacsign.Signer
	Normalizer *media.Normalizer
	Objects    storage.ObjectStore
	Photos     photo.Store
	Queue      QueueSender
	Collector  StatusCollector
}

// Server owns the gateway routes.
type Server struct {
	cfg    config.GatewayConfig
	queues config.QueueConfig
	deps   Deps
}

// New creates a gateway server.
func New(cfg config.GatewayConfig, queues config.QueueConfig, deps Deps) *Server {
	return &Server{cfg: cfg, queues: queues, deps: deps}
}

// Handler builds the chi router with CORS and request logging applied.
func (s *Server) Handler() http.Handler {
	origins := s.cfg.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}

	r := chi.NewRouter()
	r.Use(requestLogger)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Signature", "X-Timestamp"},
		MaxAge:         300,
	}))

	r.Get("/healthz", s.handleHealthz)
	r.Get("/api/status", s.handleStatus)
	r.Post("/api/photos", s.handleUpload)
	return r
}

func (s *Server) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	snap, err := s.deps.Collector.Collect(r.Context())
	if err != nil {
		zap.L().Error("gateway: status collection failed", zap.Error(err))
		respondError(w, http.StatusInternalServerError, "status collection failed")
		return
	}
	respondJSON(w, http.StatusOK, snap)
}
