// Package httpapi is the operator HTTP surface: introspection, reloads,
// position update ingestion and Prometheus metrics.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/udisondev/towergate/internal/game/progress"
	"github.com/udisondev/towergate/internal/game/region"
	"github.com/udisondev/towergate/internal/game/transition"
	"github.com/udisondev/towergate/internal/game/zone"
	"github.com/udisondev/towergate/internal/gameserver"
	"github.com/udisondev/towergate/internal/model"
)

// Service is the zone service behind the API (normally *gameserver.Service).
type Service interface {
	Backend() region.Backend
	Regions() []region.Region
	Groups() []zone.Group
	BindingFor(regionID string) (zone.Binding, bool)
	RegionFor(group string, floor int32) (string, bool)
	Reload(ctx context.Context) (gameserver.ReloadReport, error)
	Entity(ctx context.Context, entity model.EntityID) (gameserver.EntityView, error)
	Handle(ctx context.Context, u model.PositionUpdate) (transition.Verdict, error)
	Progress() *progress.Service
}

// Checker reports the health of one dependency.
type Checker func(ctx context.Context) error

// Handler serves the HTTP API.
type Handler struct {
	svc      Service
	gatherer prometheus.Gatherer
	checks   map[string]Checker
	logger   *slog.Logger
}

// New creates a Handler. A nil gatherer uses the default registry.
func New(svc Service, gatherer prometheus.Gatherer, checks map[string]Checker, logger *slog.Logger) *Handler {
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{svc: svc, gatherer: gatherer, checks: checks, logger: logger}
}

// Router returns the chi router with every route mounted.
func (h *Handler) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(10 * time.Second))

	r.Get("/healthz", h.handleHealth)
	r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(h.gatherer, promhttp.HandlerOpts{}))

	r.Get("/regions", h.handleRegions)
	r.Get("/zones", h.handleZones)
	r.Post("/reload", h.handleReload)
	r.Post("/events", h.handleEvent)

	r.Route("/entities/{id}", func(r chi.Router) {
		r.Get("/", h.handleEntity)
		r.Put("/level", h.handleSetLevel)
		r.Post("/kills", h.handleKill)
	})
	return r
}

type errorResponse struct {
	Error string `json:"error"`
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.logger.Warn("write response", "err", err)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, err error) {
	h.writeJSON(w, status, errorResponse{Error: err.Error()})
}

func decodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(nil, r.Body, 1<<20))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return errors.New("invalid JSON body: " + err.Error())
	}
	return nil
}

// statusFor maps service errors to HTTP statuses.
func statusFor(err error) int {
	switch {
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, transition.ErrDispatcherClosed):
		return http.StatusServiceUnavailable
	case errors.Is(err, progress.ErrNotInZone):
		return http.StatusConflict
	case errors.Is(err, progress.ErrInvalidLevel):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
