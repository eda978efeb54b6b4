package usecases_test

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/manzaspots/manza/internal/adapters/memory"
	"github.com/manzaspots/manza/internal/core/domain"
	"github.com/manzaspots/manza/internal/pkg/geospatial"
)

var (
	ctx    = context.Background()
	fixed  = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	center = domain.GeoPoint{Lat: 19.0519, Lon: -104.3186}

	staff  = domain.Caller{UserID: "staff-1", Privileged: true}
	alice  = domain.Caller{UserID: "alice"}
	bob    = domain.Caller{UserID: "bob"}
	nobody = domain.Anonymous
)

func clock() time.Time { return fixed }

func sequentialIDs(prefix string) func() string {
	var (
		mu sync.Mutex
		n  int
	)
	return func() string {
		mu.Lock()
		defer mu.Unlock()
		n++
		return fmt.Sprintf("%s-%03d", prefix, n)
	}
}

// northOf returns the point km kilometers due north of p.
func northOf(p domain.GeoPoint, km float64) domain.GeoPoint {
	return domain.GeoPoint{Lat: p.Lat + km*1000/geospatial.EarthRadiusMeters*180/math.Pi, Lon: p.Lon}
}

// seedSpot stores a spot with the given review status directly in repo.
func seedSpot(t *testing.T, repo *memory.SpotRepo, id string, loc domain.GeoPoint, status domain.ReviewStatus) *domain.Spot {
	t.Helper()
	s, err := domain.NewSpot(id, alice.UserID, "Spot "+id, "", loc, fixed)
	if err != nil {
		t.Fatalf("new spot: %v", err)
	}
	switch status {
	case domain.StatusApproved:
		_ = s.Approve(staff, fixed)
	case domain.StatusRejected:
		_ = s.Reject(staff, "spam", fixed)
	}
	if err := repo.Create(ctx, s); err != nil {
		t.Fatalf("seed spot: %v", err)
	}
	return s
}

// --- Mock CacheService ---

type mockCache struct {
	mu   sync.Mutex
	data map[string][]byte
	sets int
	gets int
	dels []string
}

func newMockCache() *mockCache { return &mockCache{data: map[string][]byte{}} }

var errCacheMiss = errors.New("cache miss")

func (m *mockCache) Get(ctx context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.gets++
	if v, ok := m.data[key]; ok {
		return v, nil
	}
	return nil, errCacheMiss
}

func (m *mockCache) Set(ctx context.Context, key string, value []byte, ttlSeconds int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sets++
	m.data[key] = value
	return nil
}

func (m *mockCache) Delete(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.dels = append(m.dels, key)
	delete(m.data, key)
	return nil
}

// --- Mock EventPublisher ---

type mockPublisher struct {
	mu     sync.Mutex
	events []domain.ChangeEvent
	err    error
}

func (m *mockPublisher) PublishChange(ctx context.Context, ev domain.ChangeEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, ev)
	return m.err
}

func (m *mockPublisher) types() []domain.EventType {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]domain.EventType, len(m.events))
	for i, e := range m.events {
		out[i] = e.Type
	}
	return out
}

// --- Mock SpotRepository ---

type mockSpotRepo struct {
	withinRadiusFn func(ctx context.Context, center domain.GeoPoint, radiusKm float64, f domain.SpotFilter) ([]domain.Spot, error)
	getByIDFn      func(ctx context.Context, id string) (*domain.Spot, error)
}

func (m *mockSpotRepo) Create(ctx context.Context, s *domain.Spot) error { return nil }
func (m *mockSpotRepo) Update(ctx context.Context, s *domain.Spot) error { return nil }

func (m *mockSpotRepo) GetByID(ctx context.Context, id string) (*domain.Spot, error) {
	if m.getByIDFn != nil {
		return m.getByIDFn(ctx, id)
	}
	return nil, domain.ErrNotFound
}

func (m *mockSpotRepo) WithinRadius(ctx context.Context, c domain.GeoPoint, r float64, f domain.SpotFilter) ([]domain.Spot, error) {
	if m.withinRadiusFn != nil {
		return m.withinRadiusFn(ctx, c, r, f)
	}
	return nil, nil
}

func (m *mockSpotRepo) WithinBounds(ctx context.Context, b domain.Bounds, f domain.SpotFilter) ([]domain.Spot, error) {
	return nil, nil
}

func (m *mockSpotRepo) List(ctx context.Context, f domain.SpotFilter) ([]domain.Spot, error) {
	return nil, nil
}

func ptr[T any](v T) *T { return &v }
