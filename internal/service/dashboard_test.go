package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/breathesafe/air-quality-service/internal/cache"
	"github.com/breathesafe/air-quality-service/internal/models"
)

// failingCache simulates an unreachable cache backend.
type failingCache struct {
	getErr error
	setErr error
	sets   int
}

func (c *failingCache) Get(ctx context.Context, key string) (models.ReadingsInfo, bool, error) {
	return models.ReadingsInfo{}, false, c.getErr
}

func (c *failingCache) Set(ctx context.Context, key string, value models.ReadingsInfo, ttl time.Duration) error {
	c.sets++
	return c.setErr
}

func newDashboardForTest(st *spyStore, c cache.Cache, now time.Time) *DashboardService {
	agg := NewAggregator(st, 8, 60)
	svc := NewDashboardService(agg, c, 900*time.Second, 24, 2, false, 0)
	svc.now = func() time.Time { return now }
	return svc
}

// TestDashboardData_NoMeasurements verifies the "no data yet" terminal state:
// nil payload, nil error.
func TestDashboardData_NoMeasurements(t *testing.T) {
	svc := newDashboardForTest(newSpyStore(), cache.NewInMemoryCache(), time.Now())

	got, err := svc.DashboardData(context.Background(), "nobody")
	if err != nil {
		t.Fatalf("DashboardData() error = %v, want nil", err)
	}
	if got != nil {
		t.Errorf("DashboardData() = %+v, want nil for user with no measurements", got)
	}
}

// TestDashboardData_ComposesPayload verifies the three dashboard components
// are present and consistent.
func TestDashboardData_ComposesPayload(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	st := newSpyStore(
		sample("u1", now.Add(-3*time.Hour), 20, 5, 30),
		sample("u1", now.Add(-1*time.Hour), 120, 5, 30),
	)
	svc := newDashboardForTest(st, cache.NewInMemoryCache(), now)

	got, err := svc.DashboardData(context.Background(), "u1")
	if err != nil {
		t.Fatalf("DashboardData() error = %v, want nil", err)
	}
	if got == nil {
		t.Fatal("DashboardData() = nil, want payload")
	}
	if got.LastReading.WorstGas == nil || *got.LastReading.WorstGas != models.GasO3 {
		t.Errorf("LastReading.WorstGas = %v, want o3", got.LastReading.WorstGas)
	}
	if len(got.ReadingsInfo.Readings) != 12 {
		t.Errorf("ReadingsInfo has %d buckets, want 12 (24h in 2h buckets)", len(got.ReadingsInfo.Readings))
	}
	if got.ReadingsInfo.OverallQuality == nil {
		t.Error("OverallQuality = nil, want a classification (two buckets have data)")
	}
	// Identical coordinates: no movement.
	if got.TodayDistance != 0 {
		t.Errorf("TodayDistance = %d, want 0", got.TodayDistance)
	}
}

// TestReadingsInfo_CacheRoundTrip verifies the read-through behavior: the
// first call computes and writes back, a second call within the TTL serves
// the cached pair without touching the store again.
func TestReadingsInfo_CacheRoundTrip(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	st := newSpyStore(sample("u1", now.Add(-time.Hour), 20, 5, 30))
	svc := newDashboardForTest(st, cache.NewInMemoryCache(), now)

	first, err := svc.ReadingsInfo(context.Background(), "u1")
	if err != nil {
		t.Fatalf("ReadingsInfo() error = %v, want nil", err)
	}
	callsAfterFirst := st.findCount()
	if callsAfterFirst == 0 {
		t.Fatal("first ReadingsInfo() did not query the store")
	}

	second, err := svc.ReadingsInfo(context.Background(), "u1")
	if err != nil {
		t.Fatalf("second ReadingsInfo() error = %v, want nil", err)
	}
	if st.findCount() != callsAfterFirst {
		t.Errorf("second ReadingsInfo() queried the store (%d -> %d calls), want cache hit", callsAfterFirst, st.findCount())
	}
	if len(second.Readings) != len(first.Readings) {
		t.Errorf("cached series has %d readings, want %d", len(second.Readings), len(first.Readings))
	}
}

// TestReadingsInfo_CacheFailuresSoften verifies that cache get and set errors
// degrade to a miss and never fail the request.
func TestReadingsInfo_CacheFailuresSoften(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	st := newSpyStore(sample("u1", now.Add(-time.Hour), 20, 5, 30))
	c := &failingCache{
		getErr: errors.New("memcache: connect timeout"),
		setErr: errors.New("memcache: connect timeout"),
	}
	svc := newDashboardForTest(st, c, now)

	info, err := svc.ReadingsInfo(context.Background(), "u1")
	if err != nil {
		t.Fatalf("ReadingsInfo() error = %v, want nil (cache failure must soften)", err)
	}
	if len(info.Readings) != 12 {
		t.Errorf("ReadingsInfo has %d buckets, want 12", len(info.Readings))
	}
	if c.sets != 1 {
		t.Errorf("cache Set attempted %d times, want 1", c.sets)
	}
}

// TestReadingsInfo_StoreErrorPropagates verifies that aggregation failures
// surface to the caller (they become 5xx at the HTTP boundary).
func TestReadingsInfo_StoreErrorPropagates(t *testing.T) {
	st := newSpyStore()
	st.findErr = errors.New("connection refused")
	svc := newDashboardForTest(st, cache.NewInMemoryCache(), time.Now())

	if _, err := svc.ReadingsInfo(context.Background(), "u1"); err == nil {
		t.Fatal("ReadingsInfo() error = nil, want store error")
	}
}

// TestReadingsInfo_Coalescing verifies that with coalescing enabled the
// computation still completes and populates the cache.
func TestReadingsInfo_Coalescing(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	st := newSpyStore(sample("u1", now.Add(-time.Hour), 20, 5, 30))
	mem := cache.NewInMemoryCache()
	agg := NewAggregator(st, 8, 60)
	svc := NewDashboardService(agg, mem, 900*time.Second, 24, 2, true, 2*time.Second)
	svc.now = func() time.Time { return now }

	info, err := svc.ReadingsInfo(context.Background(), "u1")
	if err != nil {
		t.Fatalf("ReadingsInfo() error = %v, want nil", err)
	}
	if len(info.Readings) != 12 {
		t.Errorf("ReadingsInfo has %d buckets, want 12", len(info.Readings))
	}
	if _, ok, _ := mem.Get(context.Background(), readingsCacheKeyPrefix+"u1"); !ok {
		t.Error("cache not populated after coalesced compute")
	}
}
