// Package api serves alist-cli data over a local JSON HTTP API.
package api

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/hlog"

	"github.com/robertmeta/alist-cli/model"
	"github.com/robertmeta/alist-cli/store"
	"github.com/robertmeta/alist-cli/syncer"
)

const defaultRequestTimeout = 30 * time.Second

// Store is the persistence the API reads and edits.
type Store interface {
	AllMovies() ([]model.WatchRecord, error)
	GetMovies(opts store.QueryOptions) ([]model.WatchRecord, error)
	GetMovie(id string) (*model.WatchRecord, error)
	SaveMovie(r *model.WatchRecord) error
	SetMembership(ids []string, counts bool) (int, error)
	SetNotes(id, notes string) error
	DeleteMovie(id string) error
	GetSettings() (model.Settings, error)
	SaveSettings(settings model.Settings) error
	ResetSettings() (model.Settings, error)
}

// Syncer runs a feed sync.
type Syncer interface {
	Sync(ctx context.Context, username string) (syncer.Result, error)
}

type Server struct {
	logger zerolog.Logger
	store  Store
	syncer Syncer
	today  func() model.Date
}

// NewServer creates a Server. syncer may be nil, in which case POST /sync is
// not routed.
func NewServer(logger zerolog.Logger, st Store, sy Syncer) *Server {
	return &Server{logger: logger, store: st, syncer: sy, today: model.Today}
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RealIP)
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(defaultRequestTimeout))
	r.Use(hlog.NewHandler(s.logger))
	r.Use(hlog.RequestIDHandler("request_id", "Request-Id"))
	r.Use(hlog.RemoteAddrHandler("remote_ip"))
	r.Use(hlog.AccessHandler(accessLogFn))

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", s.handleHealth)
		r.Get("/stats", s.handleStats)
		NewMoviesHandler(s.store, s.today).Routes(r)
		NewSettingsHandler(s.store).Routes(r)
		NewExportHandler(s.store).Routes(r)
		if s.syncer != nil {
			r.Post("/sync", s.handleSync)
		}
	})

	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func accessLogFn(r *http.Request, status, size int, duration time.Duration) {
	logger := hlog.FromRequest(r)
	logger.Info().
		Int("status", status).
		Int("size", size).
		Dur("duration", duration).
		Str("method", r.Method).
		Str("path", r.URL.Path).
		Msg("http")
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// hlogError logs a failure after the response has started streaming.
func hlogError(r *http.Request, err error) {
	hlog.FromRequest(r).Error().Err(err).Msg("write response")
}
