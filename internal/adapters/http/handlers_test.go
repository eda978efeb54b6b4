package http_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"

	handler "github.com/manzaspots/manza/internal/adapters/http"
	"github.com/manzaspots/manza/internal/adapters/memory"
	"github.com/manzaspots/manza/internal/core/domain"
	"github.com/manzaspots/manza/internal/core/usecases"
)

var (
	staff = domain.Caller{UserID: "staff-1", Privileged: true}
	alice = domain.Caller{UserID: "alice"}
	bob   = domain.Caller{UserID: "bob"}
)

// ---- Test helpers ----

type testEnv struct {
	app   *fiber.App
	auth  *handler.Authenticator
	spots *memory.SpotRepo
}

func setupApp(deps *handler.Dependencies) *fiber.App {
	app := fiber.New(fiber.Config{DisableStartupMessage: true})
	handler.SetupRoutes(app, deps)
	return app
}

func newTestEnv(t *testing.T, opts ...func(*handler.Dependencies)) *testEnv {
	t.Helper()
	spots := memory.NewSpotRepo()
	routes := memory.NewRouteRepo()
	favs := memory.NewFavoriteRepo()
	auth := handler.NewAuthenticator("test-secret", "manza-test")

	deps := &handler.Dependencies{
		Search:    usecases.NewSearchService(spots, nil),
		Spots:     usecases.NewSpotService(spots, nil),
		Routes:    usecases.NewRouteService(routes, spots),
		Favorites: usecases.NewFavoriteService(favs, spots, routes),
		Auth:      auth,
		DocsPath:  "../../../api/openapi.yaml",
	}
	for _, o := range opts {
		o(deps)
	}
	return &testEnv{app: setupApp(deps), auth: auth, spots: spots}
}

// do sends a request as caller (nil = anonymous) with an optional JSON body.
func (e *testEnv) do(t *testing.T, method, path string, caller *domain.Caller, body any) *http.Response {
	t.Helper()
	var r io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		r = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, r)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if caller != nil {
		token, err := e.auth.Sign(*caller, time.Hour)
		if err != nil {
			t.Fatalf("sign token: %v", err)
		}
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := e.app.Test(req, -1)
	if err != nil {
		t.Fatal(err)
	}
	return resp
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	var v T
	if err := json.NewDecoder(resp.Body).Decode(&v); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	return v
}

func expectStatus(t *testing.T, resp *http.Response, want int) {
	t.Helper()
	if resp.StatusCode != want {
		b, _ := io.ReadAll(resp.Body)
		t.Fatalf("expected %d, got %d: %s", want, resp.StatusCode, b)
	}
}

type listResponse struct {
	Data       []map[string]any `json:"data"`
	Pagination struct {
		Offset int `json:"offset"`
		Limit  int `json:"limit"`
		Total  int `json:"total"`
	} `json:"pagination"`
}

type apiError struct {
	Status int    `json:"status"`
	Code   string `json:"code"`
}

// createApprovedSpot submits a spot as alice and approves it as staff.
func (e *testEnv) createApprovedSpot(t *testing.T, name string, lat, lng float64) string {
	t.Helper()
	resp := e.do(t, "POST", "/v1/spots", &alice, map[string]any{"name": name, "lat": lat, "lng": lng})
	expectStatus(t, resp, 201)
	id := decode[map[string]any](t, resp)["id"].(string)

	resp = e.do(t, "POST", "/v1/spots/"+id+"/approve", &staff, nil)
	expectStatus(t, resp, 200)
	return id
}

var examplePath = map[string]any{
	"type":        "LineString",
	"coordinates": [][2]float64{{-104.30, 19.00}, {-104.31, 19.00}},
}

// ---- System endpoints ----

func TestHealth(t *testing.T) {
	env := newTestEnv(t)
	resp := env.do(t, "GET", "/v1/health", nil, nil)
	expectStatus(t, resp, 200)
}

func TestReady_InMemory(t *testing.T) {
	env := newTestEnv(t)
	resp := env.do(t, "GET", "/v1/ready", nil, nil)
	expectStatus(t, resp, 200)

	body := decode[struct {
		Checks map[string]string `json:"checks"`
	}](t, resp)
	if body.Checks["database"] != "in-memory" {
		t.Errorf("expected in-memory database check, got %q", body.Checks["database"])
	}
}

func TestCatalog(t *testing.T) {
	env := newTestEnv(t)
	resp := env.do(t, "GET", "/v1/catalog", nil, nil)
	expectStatus(t, resp, 200)

	body := decode[struct {
		Difficulties []domain.Difficulty `json:"difficulties"`
		TravelModes  []domain.TravelMode `json:"travel_modes"`
	}](t, resp)
	if len(body.Difficulties) != 3 || len(body.TravelModes) != 2 {
		t.Fatalf("unexpected catalog: %+v", body)
	}
}

func TestDocs(t *testing.T) {
	env := newTestEnv(t)
	expectStatus(t, env.do(t, "GET", "/docs", nil, nil), 200)
	expectStatus(t, env.do(t, "GET", "/docs/openapi.yaml", nil, nil), 200)
}

// ---- Auth ----

func TestAuth_AnonymousWriteIsUnauthorized(t *testing.T) {
	env := newTestEnv(t)
	resp := env.do(t, "POST", "/v1/spots", nil, map[string]any{"name": "x", "lat": 19.0, "lng": -104.0})
	expectStatus(t, resp, 401)
	if e := decode[apiError](t, resp); e.Code != "unauthorized" {
		t.Errorf("expected unauthorized code, got %s", e.Code)
	}
}

func TestAuth_InvalidToken(t *testing.T) {
	env := newTestEnv(t)
	req := httptest.NewRequest("GET", "/v1/spots", nil)
	req.Header.Set("Authorization", "Bearer not-a-token")
	resp, err := env.app.Test(req, -1)
	if err != nil {
		t.Fatal(err)
	}
	expectStatus(t, resp, 401)
}

func TestAuth_WrongSecret(t *testing.T) {
	env := newTestEnv(t)
	token, err := handler.NewAuthenticator("other-secret", "manza-test").Sign(alice, time.Hour)
	if err != nil {
		t.Fatal(err)
	}
	req := httptest.NewRequest("GET", "/v1/spots/mine", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	resp, _ := env.app.Test(req, -1)
	expectStatus(t, resp, 401)
}

// ---- Spots ----

func TestCreateSpot_StartsPendingAndHidden(t *testing.T) {
	env := newTestEnv(t)

	resp := env.do(t, "POST", "/v1/spots", &alice, map[string]any{
		"name": "  Playa La Boquita ", "lat": 19.0519, "lng": -104.3186,
	})
	expectStatus(t, resp, 201)
	spot := decode[map[string]any](t, resp)
	if spot["status"] != "PENDING" || spot["is_active"] != false {
		t.Fatalf("expected pending inactive spot, got %v", spot)
	}

	resp = env.do(t, "GET", "/v1/spots?lat=19.0519&lng=-104.3186", nil, nil)
	expectStatus(t, resp, 200)
	if got := decode[listResponse](t, resp); got.Pagination.Total != 0 {
		t.Fatalf("pending spot must not be public, got %d results", got.Pagination.Total)
	}

	resp = env.do(t, "GET", "/v1/spots/"+spot["id"].(string), &bob, nil)
	expectStatus(t, resp, 404)
}

func TestCreateSpot_Validation(t *testing.T) {
	env := newTestEnv(t)

	cases := []map[string]any{
		{"lat": 19.0, "lng": -104.0},
		{"name": "No coords"},
		{"name": "Bad lat", "lat": 91.0, "lng": 0.0},
		{"name": strings.Repeat("x", 51), "lat": 19.0, "lng": -104.0},
	}
	for i, body := range cases {
		resp := env.do(t, "POST", "/v1/spots", &alice, body)
		if resp.StatusCode != 400 {
			t.Errorf("case %d: expected 400, got %d", i, resp.StatusCode)
		}
	}
}

func TestNearby_ScenarioAndProjection(t *testing.T) {
	env := newTestEnv(t)
	// Due north of the center at 0.5, 3.2, 4.9 and 7.0 km.
	for _, km := range []float64{0.5, 3.2, 4.9, 7.0} {
		env.createApprovedSpot(t, fmt.Sprintf("Spot %.1f", km), 19.0519+km/111.195, -104.3186)
	}

	resp := env.do(t, "GET", "/v1/spots/nearby?lat=19.0519&lng=-104.3186&radius=5", nil, nil)
	expectStatus(t, resp, 200)
	got := decode[listResponse](t, resp)
	if got.Pagination.Total != 3 {
		t.Fatalf("expected 3 spots within 5 km, got %d", got.Pagination.Total)
	}

	prev := -1.0
	for _, s := range got.Data {
		d := s["distance_km"].(float64)
		if d < prev {
			t.Fatalf("results not sorted by distance: %v", got.Data)
		}
		prev = d
		if _, ok := s["owner_id"]; ok {
			t.Error("public view must not expose owner_id")
		}
		if _, ok := s["status"]; ok {
			t.Error("public view must not expose status")
		}
	}
}

func TestNearby_DefaultRadius(t *testing.T) {
	env := newTestEnv(t)
	env.createApprovedSpot(t, "Near", 19.0519+4.0/111.195, -104.3186)
	env.createApprovedSpot(t, "Far", 19.0519+6.0/111.195, -104.3186)

	resp := env.do(t, "GET", "/v1/spots/nearby?lat=19.0519&lng=-104.3186", nil, nil)
	expectStatus(t, resp, 200)
	if got := decode[listResponse](t, resp); got.Pagination.Total != 1 {
		t.Fatalf("expected 1 spot inside the default 5 km, got %d", got.Pagination.Total)
	}
}

func TestSearch_InvalidQueries(t *testing.T) {
	env := newTestEnv(t)

	paths := []string{
		"/v1/spots?lat=19.05",
		"/v1/spots?radius=3",
		"/v1/spots?sw_lat=19&sw_lng=-105",
		"/v1/spots?lat=abc&lng=1",
		"/v1/spots?lat=19&lng=-104&radius=-1",
		"/v1/spots/nearby?lat=19",
		"/v1/spots/within?sw_lat=20&sw_lng=-105&ne_lat=19&ne_lng=-104",
		"/v1/spots/within?sw_lat=19&sw_lng=-105",
	}
	for _, p := range paths {
		resp := env.do(t, "GET", p, nil, nil)
		if resp.StatusCode != 400 {
			t.Errorf("%s: expected 400, got %d", p, resp.StatusCode)
			continue
		}
		if e := decode[apiError](t, resp); e.Code != "bad_request" {
			t.Errorf("%s: expected bad_request, got %s", p, e.Code)
		}
	}
}

func TestSearch_StatusFilterIgnoredForUnprivileged(t *testing.T) {
	env := newTestEnv(t)
	env.createApprovedSpot(t, "Cerro", 19.05, -104.31)

	paths := []string{
		"/v1/spots/nearby?lat=19.05&lng=-104.31&status=bogus",
		"/v1/spots/nearby?lat=19.05&lng=-104.31&active=maybe",
		"/v1/spots/within?sw_lat=19&sw_lng=-104.5&ne_lat=19.5&ne_lng=-104&status=bogus",
		"/v1/spots?status=MAYBE&active=maybe",
	}
	for _, caller := range []*domain.Caller{nil, &bob} {
		for _, p := range paths {
			resp := env.do(t, "GET", p, caller, nil)
			if resp.StatusCode != 200 {
				t.Errorf("%s: expected 200, got %d", p, resp.StatusCode)
				continue
			}
			if got := decode[listResponse](t, resp); got.Pagination.Total != 1 {
				t.Errorf("%s: expected the approved spot, got %d results", p, got.Pagination.Total)
			}
		}
	}

	// Staff filters are still validated.
	resp := env.do(t, "GET", "/v1/spots?status=MAYBE", &staff, nil)
	expectStatus(t, resp, 400)
	resp = env.do(t, "GET", "/v1/spots/nearby?lat=19.05&lng=-104.31&active=maybe", &staff, nil)
	expectStatus(t, resp, 400)
}

func TestWithin_BoundingBox(t *testing.T) {
	env := newTestEnv(t)
	env.createApprovedSpot(t, "Inside", 19.05, -104.32)
	env.createApprovedSpot(t, "Outside", 20.50, -104.32)

	resp := env.do(t, "GET", "/v1/spots/within?sw_lat=19&sw_lng=-104.5&ne_lat=19.5&ne_lng=-104", nil, nil)
	expectStatus(t, resp, 200)
	got := decode[listResponse](t, resp)
	if got.Pagination.Total != 1 || got.Data[0]["name"] != "Inside" {
		t.Fatalf("expected only Inside, got %v", got.Data)
	}
}

func TestSearch_StaffSeesPendingWithStatusFilter(t *testing.T) {
	env := newTestEnv(t)
	env.createApprovedSpot(t, "Approved", 19.05, -104.32)
	resp := env.do(t, "POST", "/v1/spots", &alice, map[string]any{"name": "Pending", "lat": 19.05, "lng": -104.32})
	expectStatus(t, resp, 201)

	resp = env.do(t, "GET", "/v1/spots?status=pending", &staff, nil)
	expectStatus(t, resp, 200)
	got := decode[listResponse](t, resp)
	if got.Pagination.Total != 1 || got.Data[0]["name"] != "Pending" {
		t.Fatalf("expected the pending spot for staff, got %v", got.Data)
	}

	// Unprivileged filters are ignored.
	resp = env.do(t, "GET", "/v1/spots?status=pending", &bob, nil)
	expectStatus(t, resp, 200)
	got = decode[listResponse](t, resp)
	if got.Pagination.Total != 1 || got.Data[0]["name"] != "Approved" {
		t.Fatalf("expected only the approved spot for bob, got %v", got.Data)
	}
}

func TestReview(t *testing.T) {
	env := newTestEnv(t)
	resp := env.do(t, "POST", "/v1/spots", &alice, map[string]any{"name": "Cerro", "lat": 19.1, "lng": -104.3})
	expectStatus(t, resp, 201)
	id := decode[map[string]any](t, resp)["id"].(string)

	expectStatus(t, env.do(t, "POST", "/v1/spots/"+id+"/approve", &alice, nil), 403)
	expectStatus(t, env.do(t, "POST", "/v1/spots/"+id+"/reject", &bob, map[string]any{"reason": "spam"}), 403)
	expectStatus(t, env.do(t, "POST", "/v1/spots/"+id+"/reject", &staff, map[string]any{}), 400)
	expectStatus(t, env.do(t, "POST", "/v1/spots/"+id+"/reject", &staff, map[string]any{"reason": "   "}), 400)

	resp = env.do(t, "POST", "/v1/spots/"+id+"/reject", &staff, map[string]any{"reason": "duplicate"})
	expectStatus(t, resp, 200)
	spot := decode[map[string]any](t, resp)
	if spot["status"] != "REJECTED" || spot["reject_reason"] != "duplicate" {
		t.Fatalf("unexpected rejected spot: %v", spot)
	}
	expectStatus(t, env.do(t, "POST", "/v1/spots/missing/approve", &staff, nil), 404)
}

func TestUpdateAndDeleteSpot(t *testing.T) {
	env := newTestEnv(t)
	id := env.createApprovedSpot(t, "Original", 19.05, -104.32)

	expectStatus(t, env.do(t, "PATCH", "/v1/spots/"+id, &bob, map[string]any{"name": "Hijack"}), 403)

	resp := env.do(t, "PATCH", "/v1/spots/"+id, &alice, map[string]any{"name": "Renamed"})
	expectStatus(t, resp, 200)
	if got := decode[map[string]any](t, resp); got["name"] != "Renamed" || got["status"] != "APPROVED" {
		t.Fatalf("unexpected update result: %v", got)
	}

	expectStatus(t, env.do(t, "PATCH", "/v1/spots/"+id, &alice, map[string]any{"lat": 19.2}), 400)

	expectStatus(t, env.do(t, "DELETE", "/v1/spots/"+id, &bob, nil), 403)
	expectStatus(t, env.do(t, "DELETE", "/v1/spots/"+id, &alice, nil), 204)
	expectStatus(t, env.do(t, "GET", "/v1/spots/"+id, &alice, nil), 404)

	resp = env.do(t, "GET", "/v1/spots/nearby?lat=19.05&lng=-104.32", nil, nil)
	if got := decode[listResponse](t, resp); got.Pagination.Total != 0 {
		t.Fatalf("deleted spot must not be searchable")
	}
}

func TestMySpots(t *testing.T) {
	env := newTestEnv(t)
	env.createApprovedSpot(t, "Mine", 19.05, -104.32)

	expectStatus(t, env.do(t, "GET", "/v1/spots/mine", nil, nil), 401)

	resp := env.do(t, "GET", "/v1/spots/mine", &alice, nil)
	expectStatus(t, resp, 200)
	if got := decode[listResponse](t, resp); got.Pagination.Total != 1 {
		t.Fatalf("expected 1 spot, got %d", got.Pagination.Total)
	}

	resp = env.do(t, "GET", "/v1/spots/mine", &bob, nil)
	if got := decode[listResponse](t, resp); got.Pagination.Total != 0 {
		t.Fatalf("expected no spots for bob, got %d", got.Pagination.Total)
	}
}

func TestPagination(t *testing.T) {
	env := newTestEnv(t)
	for i := 0; i < 5; i++ {
		env.createApprovedSpot(t, fmt.Sprintf("Spot %d", i), 19.05+float64(i)*0.001, -104.32)
	}

	resp := env.do(t, "GET", "/v1/spots/nearby?lat=19.05&lng=-104.32&offset=2&limit=2", nil, nil)
	expectStatus(t, resp, 200)
	got := decode[listResponse](t, resp)
	if got.Pagination.Total != 5 || len(got.Data) != 2 || got.Pagination.Offset != 2 {
		t.Fatalf("unexpected page: %+v", got.Pagination)
	}
	if got.Data[0]["name"] != "Spot 2" {
		t.Errorf("expected Spot 2 first on page, got %v", got.Data[0]["name"])
	}
	link := resp.Header.Get("Link")
	if !strings.Contains(link, `rel="next"`) || !strings.Contains(link, "lat=19.05") {
		t.Errorf("unexpected Link header: %s", link)
	}
}

// ---- Routes ----

func TestRoutes_CreateComputesDistance(t *testing.T) {
	env := newTestEnv(t)
	spotID := env.createApprovedSpot(t, "Trailhead", 19.0, -104.30)

	resp := env.do(t, "POST", "/v1/routes", &alice, map[string]any{
		"spot_id": spotID, "difficulty": "Easy", "travel_mode": "walking",
		"path": examplePath, "distance_km": 99,
	})
	expectStatus(t, resp, 201)
	route := decode[map[string]any](t, resp)
	if d := route["distance_km"].(float64); d < 0.99 || d > 1.09 {
		t.Fatalf("expected ~1.05 km, got %v", d)
	}
	id := route["id"].(string)

	resp = env.do(t, "PUT", "/v1/routes/"+id+"/path", &alice, map[string]any{
		"path": map[string]any{"type": "LineString", "coordinates": [][2]float64{{-104.30, 19.00}, {-104.32, 19.00}}},
	})
	expectStatus(t, resp, 200)
	if d := decode[map[string]any](t, resp)["distance_km"].(float64); d != 2.1 {
		t.Fatalf("expected 2.1 km after path change, got %v", d)
	}

	expectStatus(t, env.do(t, "PUT", "/v1/routes/"+id+"/path", &bob, map[string]any{"path": examplePath}), 403)
}

func TestRoutes_Validation(t *testing.T) {
	env := newTestEnv(t)
	spotID := env.createApprovedSpot(t, "Trailhead", 19.0, -104.30)

	cases := []map[string]any{
		{"spot_id": spotID, "difficulty": "extreme", "travel_mode": "walking", "path": examplePath},
		{"spot_id": spotID, "difficulty": "easy", "travel_mode": "swimming", "path": examplePath},
		{"spot_id": spotID, "difficulty": "easy", "travel_mode": "walking"},
		{"spot_id": spotID, "difficulty": "easy", "travel_mode": "walking",
			"path": map[string]any{"type": "LineString", "coordinates": [][2]float64{{-104.3, 19.0}}}},
	}
	for i, body := range cases {
		resp := env.do(t, "POST", "/v1/routes", &alice, body)
		if resp.StatusCode != 400 {
			t.Errorf("case %d: expected 400, got %d", i, resp.StatusCode)
		}
	}

	resp := env.do(t, "POST", "/v1/routes", &alice, map[string]any{
		"spot_id": "missing", "difficulty": "easy", "travel_mode": "walking", "path": examplePath,
	})
	expectStatus(t, resp, 404)
}

func TestRoutes_ListFiltersAndDelete(t *testing.T) {
	env := newTestEnv(t)
	spotID := env.createApprovedSpot(t, "Trailhead", 19.0, -104.30)

	for _, d := range []string{"easy", "hard"} {
		resp := env.do(t, "POST", "/v1/routes", &alice, map[string]any{
			"spot_id": spotID, "difficulty": d, "travel_mode": "cycling", "path": examplePath,
		})
		expectStatus(t, resp, 201)
	}

	resp := env.do(t, "GET", "/v1/routes?difficulty=HARD&spot="+spotID, nil, nil)
	expectStatus(t, resp, 200)
	got := decode[listResponse](t, resp)
	if got.Pagination.Total != 1 {
		t.Fatalf("expected 1 hard route, got %d", got.Pagination.Total)
	}
	id := got.Data[0]["id"].(string)

	expectStatus(t, env.do(t, "DELETE", "/v1/routes/"+id, &alice, nil), 204)
	expectStatus(t, env.do(t, "GET", "/v1/routes/"+id, nil, nil), 404)

	resp = env.do(t, "GET", "/v1/routes?user=alice", nil, nil)
	if got := decode[listResponse](t, resp); got.Pagination.Total != 1 {
		t.Fatalf("expected 1 remaining route, got %d", got.Pagination.Total)
	}
}

func TestRoutes_Nearby(t *testing.T) {
	env := newTestEnv(t)
	spotID := env.createApprovedSpot(t, "Trailhead", 19.0, -104.30)
	expectStatus(t, env.do(t, "POST", "/v1/routes", &alice, map[string]any{
		"spot_id": spotID, "difficulty": "medium", "travel_mode": "walking", "path": examplePath,
	}), 201)

	resp := env.do(t, "GET", "/v1/routes/nearby?lat=19.0&lng=-104.305&radius=1", nil, nil)
	expectStatus(t, resp, 200)
	if got := decode[listResponse](t, resp); got.Pagination.Total != 1 {
		t.Fatalf("expected 1 nearby route, got %d", got.Pagination.Total)
	}
}

// ---- Favorites ----

func TestSpotFavorites_Idempotent(t *testing.T) {
	env := newTestEnv(t)
	id := env.createApprovedSpot(t, "Fav", 19.05, -104.32)
	path := "/v1/spots/" + id

	resp := env.do(t, "POST", path+"/favorite", &bob, nil)
	expectStatus(t, resp, 201)
	if got := decode[map[string]string](t, resp); got["status"] != "added" {
		t.Fatalf("expected added, got %v", got)
	}

	resp = env.do(t, "POST", path+"/favorite", &bob, nil)
	expectStatus(t, resp, 200)
	if got := decode[map[string]string](t, resp); got["status"] != "already_favorited" {
		t.Fatalf("expected already_favorited, got %v", got)
	}

	expectStatus(t, env.do(t, "POST", path+"/unfavorite", &bob, nil), 200)
	expectStatus(t, env.do(t, "POST", path+"/unfavorite", &bob, nil), 404)

	resp = env.do(t, "POST", path+"/favorite", &bob, nil)
	expectStatus(t, resp, 200)
	if got := decode[map[string]string](t, resp); got["status"] != "reactivated" {
		t.Fatalf("expected reactivated, got %v", got)
	}

	resp = env.do(t, "GET", "/v1/favorites/spots", &bob, nil)
	expectStatus(t, resp, 200)
	got := decode[listResponse](t, resp)
	if got.Pagination.Total != 1 || got.Data[0]["target_id"] != id {
		t.Fatalf("unexpected favorites: %v", got.Data)
	}
}

func TestRouteFavorites_StrictAndHidesDeleted(t *testing.T) {
	env := newTestEnv(t)
	spotID := env.createApprovedSpot(t, "Trailhead", 19.0, -104.30)
	resp := env.do(t, "POST", "/v1/routes", &alice, map[string]any{
		"spot_id": spotID, "difficulty": "easy", "travel_mode": "walking", "path": examplePath,
	})
	expectStatus(t, resp, 201)
	id := decode[map[string]any](t, resp)["id"].(string)

	expectStatus(t, env.do(t, "POST", "/v1/routes/"+id+"/favorite", &bob, nil), 201)
	expectStatus(t, env.do(t, "POST", "/v1/routes/"+id+"/favorite", &bob, nil), 400)

	resp = env.do(t, "GET", "/v1/favorites/routes", &bob, nil)
	if got := decode[listResponse](t, resp); got.Pagination.Total != 1 {
		t.Fatalf("expected 1 route favorite, got %d", got.Pagination.Total)
	}

	expectStatus(t, env.do(t, "DELETE", "/v1/routes/"+id, &alice, nil), 204)
	resp = env.do(t, "GET", "/v1/favorites/routes", &bob, nil)
	if got := decode[listResponse](t, resp); got.Pagination.Total != 0 {
		t.Fatalf("deleted route must be hidden from favorites, got %d", got.Pagination.Total)
	}

	expectStatus(t, env.do(t, "GET", "/v1/favorites/routes", nil, nil), 401)
}

// ---- GraphQL ----

func TestGraphQL_SpotsNearby(t *testing.T) {
	env := newTestEnv(t)
	env.createApprovedSpot(t, "Graph", 19.0519, -104.3186)

	resp := env.do(t, "POST", "/graphql", nil, map[string]any{
		"query": `{ spotsNearby(lat: 19.0519, lng: -104.3186, radius: 1) { id name distance_km owner_id location { lat lon } } }`,
	})
	expectStatus(t, resp, 200)

	var body struct {
		Data struct {
			SpotsNearby []struct {
				Name       string   `json:"name"`
				DistanceKm float64  `json:"distance_km"`
				OwnerID    *string  `json:"owner_id"`
				Location   struct{ Lat float64 } `json:"location"`
			} `json:"spotsNearby"`
		} `json:"data"`
		Errors []any `json:"errors"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatal(err)
	}
	if len(body.Errors) > 0 {
		t.Fatalf("graphql errors: %v", body.Errors)
	}
	hits := body.Data.SpotsNearby
	if len(hits) != 1 || hits[0].Name != "Graph" {
		t.Fatalf("unexpected result: %+v", hits)
	}
	if hits[0].OwnerID != nil {
		t.Error("anonymous caller must not see owner_id")
	}
	if hits[0].Location.Lat != 19.0519 {
		t.Errorf("unexpected location: %+v", hits[0].Location)
	}
}

func TestGraphQL_InvalidRadius(t *testing.T) {
	env := newTestEnv(t)
	resp := env.do(t, "POST", "/graphql", nil, map[string]any{
		"query": `{ spotsNearby(lat: 19, lng: -104, radius: 0) { id } }`,
	})
	expectStatus(t, resp, 200)
	var body struct {
		Errors []struct {
			Message string `json:"message"`
		} `json:"errors"`
	}
	_ = json.NewDecoder(resp.Body).Decode(&body)
	if len(body.Errors) == 0 || !strings.Contains(body.Errors[0].Message, "radius") {
		t.Fatalf("expected radius error, got %+v", body.Errors)
	}
}

func TestGraphQL_StatusArgIgnoredForAnonymous(t *testing.T) {
	env := newTestEnv(t)
	env.createApprovedSpot(t, "Graph", 19.0519, -104.3186)

	resp := env.do(t, "POST", "/graphql", nil, map[string]any{
		"query": `{ spotsNearby(lat: 19.0519, lng: -104.3186, radius: 1, status: "bogus") { name } }`,
	})
	expectStatus(t, resp, 200)
	var body struct {
		Data struct {
			SpotsNearby []struct {
				Name string `json:"name"`
			} `json:"spotsNearby"`
		} `json:"data"`
		Errors []any `json:"errors"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatal(err)
	}
	if len(body.Errors) > 0 {
		t.Fatalf("graphql errors: %v", body.Errors)
	}
	if len(body.Data.SpotsNearby) != 1 {
		t.Fatalf("expected the approved spot, got %+v", body.Data.SpotsNearby)
	}
}

// ---- Error mapping ----

type unavailableSpots struct{ *memory.SpotRepo }

func (unavailableSpots) WithinRadius(ctx context.Context, c domain.GeoPoint, r float64, f domain.SpotFilter) ([]domain.Spot, error) {
	return nil, fmt.Errorf("dial: %w", domain.ErrStoreUnavailable)
}

func TestStoreUnavailable(t *testing.T) {
	env := newTestEnv(t, func(d *handler.Dependencies) {
		d.Search = usecases.NewSearchService(unavailableSpots{memory.NewSpotRepo()}, nil)
	})

	resp := env.do(t, "GET", "/v1/spots/nearby?lat=19&lng=-104", nil, nil)
	expectStatus(t, resp, 503)
	if resp.Header.Get("Retry-After") == "" {
		t.Error("expected Retry-After header")
	}
}

func TestETag_NotModified(t *testing.T) {
	env := newTestEnv(t)
	resp := env.do(t, "GET", "/v1/catalog", nil, nil)
	expectStatus(t, resp, 200)
	etag := resp.Header.Get("ETag")
	if etag == "" {
		t.Fatal("expected ETag header")
	}

	req := httptest.NewRequest("GET", "/v1/catalog", nil)
	req.Header.Set("If-None-Match", etag)
	resp, _ = env.app.Test(req, -1)
	expectStatus(t, resp, 304)
}
