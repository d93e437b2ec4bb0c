package cache

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/breathesafe/air-quality-service/internal/models"
)

type mockDashboardFetcher struct {
	mu      sync.Mutex
	calls   []string
	failFor map[string]error
}

func (m *mockDashboardFetcher) DashboardData(ctx context.Context, userID string) (*models.DashboardData, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, userID)
	if err, ok := m.failFor[userID]; ok {
		return nil, err
	}
	return &models.DashboardData{}, nil
}

// TestCacheWarmer_Warm verifies that every user is fetched once.
func TestCacheWarmer_Warm(t *testing.T) {
	fetcher := &mockDashboardFetcher{}
	warmer := NewCacheWarmer(fetcher, nil)

	if err := warmer.Warm(context.Background(), []string{"u1", "u2", "u3"}); err != nil {
		t.Fatalf("Warm() error = %v, want nil", err)
	}
	if len(fetcher.calls) != 3 {
		t.Errorf("Warm() fetched %d users, want 3", len(fetcher.calls))
	}
}

// TestCacheWarmer_Warm_AggregatesErrors verifies that one failing user does
// not prevent warming the rest but does surface in the returned error.
func TestCacheWarmer_Warm_AggregatesErrors(t *testing.T) {
	fetcher := &mockDashboardFetcher{
		failFor: map[string]error{"u2": errors.New("store down")},
	}
	warmer := NewCacheWarmer(fetcher, nil)

	err := warmer.Warm(context.Background(), []string{"u1", "u2", "u3"})
	if err == nil {
		t.Fatal("Warm() error = nil, want aggregated error")
	}
	if len(fetcher.calls) != 3 {
		t.Errorf("Warm() fetched %d users, want 3 (failures must not short-circuit)", len(fetcher.calls))
	}
}
