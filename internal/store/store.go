// Package store provides read access to ingested measurements.
package store

import (
	"context"
	"errors"
	"strings"

	"github.com/breathesafe/air-quality-service/internal/models"
)

// ErrUnavailable is returned when the backing store cannot be reached.
var ErrUnavailable = errors.New("measurement store unavailable")

// Filter selects measurements by user and half-open time range. An empty
// UserID matches all users (used by the map builder).
type Filter struct {
	UserID string
	Range  models.TimeRange
}

// Store is the measurement read port. Implementations must return
// measurements ordered ascending by timestamp: distance and last-reading
// computations depend on it.
type Store interface {
	FindMeasurements(ctx context.Context, f Filter) ([]models.Measurement, error)
	LastMeasurement(ctx context.Context, userID string) (models.Measurement, bool, error)
	Ping(ctx context.Context) error
}

// ErrorCategory is a stable label for store error classification in metrics.
type ErrorCategory string

const (
	ErrorCategoryTimeout     ErrorCategory = "timeout"
	ErrorCategoryConnection  ErrorCategory = "connection"
	ErrorCategoryUnavailable ErrorCategory = "unavailable"
	ErrorCategoryQuery       ErrorCategory = "query"
	ErrorCategoryUnknown     ErrorCategory = "unknown"
)

// CategorizeError maps a store error to a stable ErrorCategory for metrics.
func CategorizeError(err error) ErrorCategory {
	if err == nil {
		return ""
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return ErrorCategoryTimeout
	}
	if errors.Is(err, ErrUnavailable) {
		return ErrorCategoryUnavailable
	}
	errStr := err.Error()
	if strings.Contains(errStr, "timeout") {
		return ErrorCategoryTimeout
	}
	if strings.Contains(errStr, "connection") || strings.Contains(errStr, "network") ||
		strings.Contains(errStr, "refused") {
		return ErrorCategoryConnection
	}
	if strings.Contains(errStr, "syntax") || strings.Contains(errStr, "scan") ||
		strings.Contains(errStr, "column") {
		return ErrorCategoryQuery
	}
	return ErrorCategoryUnknown
}
