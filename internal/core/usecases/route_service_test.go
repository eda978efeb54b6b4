package usecases_test

import (
	"errors"
	"testing"

	"github.com/manzaspots/manza/internal/adapters/memory"
	"github.com/manzaspots/manza/internal/core/domain"
	"github.com/manzaspots/manza/internal/core/usecases"
)

func examplePath(t *testing.T) domain.GeoPath {
	t.Helper()
	p, err := domain.NewGeoPath([]domain.GeoPoint{
		{Lon: -104.30, Lat: 19.00},
		{Lon: -104.31, Lat: 19.00},
	})
	if err != nil {
		t.Fatalf("path: %v", err)
	}
	return p
}

func newRouteService(t *testing.T) (*usecases.RouteService, *memory.RouteRepo, *domain.Spot) {
	t.Helper()
	spots := memory.NewSpotRepo()
	spot := seedSpot(t, spots, "spot-1", center, domain.StatusApproved)
	routes := memory.NewRouteRepo()
	svc := usecases.NewRouteService(routes, spots,
		usecases.WithClock(clock),
		usecases.WithIDGenerator(sequentialIDs("route")),
	)
	return svc, routes, spot
}

func TestRouteService_CreateComputesDistance(t *testing.T) {
	svc, _, spot := newRouteService(t)

	route, err := svc.Create(ctx, alice, usecases.CreateRouteInput{
		SpotID: spot.ID, Difficulty: "Easy", TravelMode: "WALKING", Path: examplePath(t),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if route.DistanceKm < 0.99 || route.DistanceKm > 1.09 {
		t.Errorf("expected ~1.04 km, got %v", route.DistanceKm)
	}
	if !route.Active {
		t.Error("expected route active on creation")
	}
	if route.Difficulty != "easy" || route.TravelMode != "walking" {
		t.Errorf("expected normalized keys, got %s/%s", route.Difficulty, route.TravelMode)
	}
}

func TestRouteService_RecomputeIsIdempotent(t *testing.T) {
	svc, _, spot := newRouteService(t)
	route, err := svc.Create(ctx, alice, usecases.CreateRouteInput{
		SpotID: spot.ID, Difficulty: "easy", TravelMode: "cycling", Path: examplePath(t),
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	first := route.DistanceKm

	for i := 0; i < 2; i++ {
		again, err := svc.ReplacePath(ctx, alice, route.ID, examplePath(t))
		if err != nil {
			t.Fatalf("replace path: %v", err)
		}
		if again.DistanceKm != first {
			t.Fatalf("expected %v after re-save, got %v", first, again.DistanceKm)
		}
	}
}

func TestRouteService_ReplacePathRecomputes(t *testing.T) {
	svc, _, spot := newRouteService(t)
	route, err := svc.Create(ctx, alice, usecases.CreateRouteInput{
		SpotID: spot.ID, Difficulty: "hard", TravelMode: "walking", Path: examplePath(t),
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	longer, _ := domain.NewGeoPath([]domain.GeoPoint{
		{Lon: -104.30, Lat: 19.00},
		{Lon: -104.32, Lat: 19.00},
	})
	got, err := svc.ReplacePath(ctx, alice, route.ID, longer)
	if err != nil {
		t.Fatalf("replace path: %v", err)
	}
	if got.DistanceKm != 2.1 {
		t.Errorf("expected 2.1 km, got %v", got.DistanceKm)
	}
}

func TestRouteService_CreateValidation(t *testing.T) {
	svc, _, spot := newRouteService(t)
	path := examplePath(t)

	tests := []struct {
		name   string
		caller domain.Caller
		in     usecases.CreateRouteInput
		want   error
	}{
		{"anonymous", nobody, usecases.CreateRouteInput{SpotID: spot.ID, Difficulty: "easy", TravelMode: "walking", Path: path}, domain.ErrPermissionDenied},
		{"empty path", alice, usecases.CreateRouteInput{SpotID: spot.ID, Difficulty: "easy", TravelMode: "walking"}, domain.ErrInvalidGeometry},
		{"bad difficulty", alice, usecases.CreateRouteInput{SpotID: spot.ID, Difficulty: "extreme", TravelMode: "walking", Path: path}, domain.ErrValidation},
		{"bad mode", alice, usecases.CreateRouteInput{SpotID: spot.ID, Difficulty: "easy", TravelMode: "flying", Path: path}, domain.ErrValidation},
		{"missing spot", alice, usecases.CreateRouteInput{SpotID: "nope", Difficulty: "easy", TravelMode: "walking", Path: path}, domain.ErrNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Create(ctx, tt.caller, tt.in)
			if !errors.Is(err, tt.want) {
				t.Fatalf("expected %v, got %v", tt.want, err)
			}
		})
	}
}

func TestRouteService_DeleteAndOwnership(t *testing.T) {
	svc, _, spot := newRouteService(t)
	route, err := svc.Create(ctx, alice, usecases.CreateRouteInput{
		SpotID: spot.ID, Difficulty: "easy", TravelMode: "walking", Path: examplePath(t),
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	if _, err := svc.ReplacePath(ctx, bob, route.ID, examplePath(t)); !errors.Is(err, domain.ErrPermissionDenied) {
		t.Errorf("expected ErrPermissionDenied, got %v", err)
	}
	if err := svc.Delete(ctx, bob, route.ID); !errors.Is(err, domain.ErrPermissionDenied) {
		t.Errorf("expected ErrPermissionDenied, got %v", err)
	}
	if err := svc.Delete(ctx, staff, route.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := svc.Get(ctx, route.ID); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("expected ErrNotFound after delete, got %v", err)
	}
	routes, err := svc.List(ctx, domain.RouteFilter{})
	if err != nil || len(routes) != 0 {
		t.Errorf("expected no listed routes, got %d (%v)", len(routes), err)
	}
}

func TestRouteService_Nearby(t *testing.T) {
	svc, _, spot := newRouteService(t)
	if _, err := svc.Create(ctx, alice, usecases.CreateRouteInput{
		SpotID: spot.ID, Difficulty: "easy", TravelMode: "walking", Path: examplePath(t),
	}); err != nil {
		t.Fatalf("create: %v", err)
	}

	near, err := svc.Nearby(ctx, 19.0, -104.305, ptr(1.0))
	if err != nil {
		t.Fatalf("nearby: %v", err)
	}
	if len(near) != 1 {
		t.Fatalf("expected 1 route, got %d", len(near))
	}

	far, err := svc.Nearby(ctx, 20.0, -104.305, ptr(1.0))
	if err != nil {
		t.Fatalf("nearby: %v", err)
	}
	if len(far) != 0 {
		t.Fatalf("expected no routes, got %d", len(far))
	}

	if _, err := svc.Nearby(ctx, 19.0, -104.305, ptr(0.0)); !errors.Is(err, domain.ErrInvalidQuery) {
		t.Errorf("expected ErrInvalidQuery, got %v", err)
	}
}
