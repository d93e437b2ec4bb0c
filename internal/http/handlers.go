package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/breathesafe/air-quality-service/internal/lifecycle"
	"github.com/breathesafe/air-quality-service/internal/mapdata"
	"github.com/breathesafe/air-quality-service/internal/models"
	"github.com/breathesafe/air-quality-service/internal/service"
	"github.com/breathesafe/air-quality-service/internal/store"
	"github.com/breathesafe/air-quality-service/internal/validation"
)

// HealthConfig holds the dependency probes evaluated by the health handler.
type HealthConfig struct {
	// StorePing checks measurement store reachability.
	StorePing func(ctx context.Context) error
	// CachePing, when set, is called to check cache reachability. Used when backend is memcached.
	CachePing func() error
	StartTime time.Time
}

// Handler holds dependencies for HTTP handlers.
type Handler struct {
	dashboard        *service.DashboardService
	aggregator       *service.Aggregator
	artifacts        mapdata.ArtifactStore
	artifactType     string
	healthConfig     *HealthConfig
	logger           *zap.Logger
	maxRangeSpan     time.Duration
	defaultInterval  int
	healthStatusMu   sync.Mutex
	healthStatusPrev string
}

// NewHandler returns a new Handler. artifactType is the Content-Type served
// for /map/latest. maxRangeSpan bounds /readings queries (0 disables).
func NewHandler(
	dashboard *service.DashboardService,
	aggregator *service.Aggregator,
	artifacts mapdata.ArtifactStore,
	artifactType string,
	healthConfig *HealthConfig,
	logger *zap.Logger,
	maxRangeSpan time.Duration,
	defaultInterval int,
) *Handler {
	return &Handler{
		dashboard:       dashboard,
		aggregator:      aggregator,
		artifacts:       artifacts,
		artifactType:    artifactType,
		healthConfig:    healthConfig,
		logger:          logger,
		maxRangeSpan:    maxRangeSpan,
		defaultInterval: defaultInterval,
	}
}

// GetDashboard handles GET /dashboard/{userID}.
func (h *Handler) GetDashboard(w http.ResponseWriter, r *http.Request) {
	userID, err := validation.ValidateUserID(mux.Vars(r)["userID"])
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "INVALID_USER", err.Error())
		return
	}

	data, err := h.dashboard.DashboardData(r.Context(), userID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	if data == nil {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	writeJSON(w, http.StatusOK, data)
}

// GetReadings handles GET /readings/{userID}?start=&end=&interval=.
func (h *Handler) GetReadings(w http.ResponseWriter, r *http.Request) {
	userID, err := validation.ValidateUserID(mux.Vars(r)["userID"])
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "INVALID_USER", err.Error())
		return
	}
	q := r.URL.Query()
	rng, err := validation.ParseTimeRange(q.Get("start"), q.Get("end"), h.maxRangeSpan)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "INVALID_RANGE", err.Error())
		return
	}
	interval, err := validation.ParseIntervalHours(q.Get("interval"), h.defaultInterval)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "INVALID_INTERVAL", err.Error())
		return
	}

	readings, err := h.aggregator.ReadingsInRange(r.Context(), userID, rng.Start, rng.End, interval)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	overall, err := h.aggregator.AverageQuality(readings)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, models.ReadingsInfo{Readings: readings, OverallQuality: overall})
}

// GetLatestMap handles GET /map/latest, serving the most recent artifact.
func (h *Handler) GetLatestMap(w http.ResponseWriter, r *http.Request) {
	data, ok, err := h.artifacts.Latest()
	if err != nil {
		writeError(w, r, http.StatusInternalServerError, "ARTIFACT_READ_FAILED", "unable to read map artifact")
		if logger, ok := r.Context().Value("logger").(*zap.Logger); ok && logger != nil {
			logger.Error("map artifact read failed", zap.Error(err))
		}
		return
	}
	if !ok {
		writeError(w, r, http.StatusNotFound, "NO_MAP_AVAILABLE", "no map artifact has been published yet")
		return
	}
	w.Header().Set("Content-Type", h.artifactType)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

// healthResult holds the computed health status and metadata for logging.
type healthResult struct {
	status     string
	statusCode int
	reason     string
}

// GetHealth handles GET /health.
func (h *Handler) GetHealth(w http.ResponseWriter, r *http.Request) {
	result, checks := h.computeHealthStatus(r.Context())

	h.healthStatusMu.Lock()
	prev := h.healthStatusPrev
	if prev != "" && prev != result.status {
		h.logger.Info("health status transition",
			zap.String("previous_status", prev),
			zap.String("current_status", result.status),
			zap.String("reason", result.reason))
	}
	h.healthStatusPrev = result.status
	h.healthStatusMu.Unlock()

	resp := map[string]interface{}{
		"status":    result.status,
		"service":   "air-quality-service",
		"version":   "dev",
		"checks":    checks,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(result.statusCode)
	_ = json.NewEncoder(w).Encode(resp)
}

// computeHealthStatus evaluates health conditions in priority order:
// shutting-down > store unreachable > cache unreachable > healthy. A cache
// failure degrades rather than fails the service since reads fall through to
// the store.
func (h *Handler) computeHealthStatus(ctx context.Context) (healthResult, map[string]string) {
	checks := make(map[string]string)
	if lifecycle.IsShuttingDown() {
		return healthResult{"shutting-down", http.StatusServiceUnavailable, "signal"}, checks
	}
	if h.healthConfig == nil || h.healthConfig.StorePing == nil {
		return healthResult{"healthy", http.StatusOK, ""}, checks
	}

	if err := h.healthConfig.StorePing(ctx); err != nil {
		checks["store"] = "unhealthy"
		return healthResult{"unhealthy", http.StatusServiceUnavailable, "store_unreachable"}, checks
	}
	checks["store"] = "healthy"

	if h.healthConfig.CachePing != nil {
		if err := h.healthConfig.CachePing(); err != nil {
			checks["cache"] = "unhealthy"
			return healthResult{"degraded", http.StatusOK, "cache_unreachable"}, checks
		}
		checks["cache"] = "healthy"
	}
	return healthResult{"healthy", http.StatusOK, ""}, checks
}

// writeJSON writes a JSON response with the specified HTTP status code.
// Sets Content-Type header to application/json and encodes the provided value.
func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError writes an error response in the standard error format with code, message,
// and requestId (correlation ID) if available in request context.
func writeError(w http.ResponseWriter, r *http.Request, status int, code, message string) {
	corrID := ""
	if v := r.Context().Value("correlation_id"); v != nil {
		corrID = v.(string)
	}
	writeJSON(w, status, map[string]interface{}{
		"error": map[string]string{
			"code":      code,
			"message":   message,
			"requestId": corrID,
		},
	})
}

// writeServiceError maps service-layer failures to HTTP responses. Store
// outages become 503, everything else 500. Logs the underlying error at
// DEBUG level if logger is available in request context.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, store.ErrUnavailable) {
		writeError(w, r, http.StatusServiceUnavailable, "STORE_UNAVAILABLE", "Unable to read measurements")
	} else {
		writeError(w, r, http.StatusInternalServerError, "INTERNAL_ERROR", "Unable to process request")
	}
	if logger, ok := r.Context().Value("logger").(*zap.Logger); ok && logger != nil {
		logger.Debug("service error", zap.Error(err))
	}
}
