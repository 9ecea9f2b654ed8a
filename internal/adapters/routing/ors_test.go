package routing

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"pizza-dispatch-service/internal/config"
	"pizza-dispatch-service/internal/domain"
)

type mapMatrixCache struct {
	m map[string][][]float64
}

func (c *mapMatrixCache) GetMatrix(ctx context.Context, key string) ([][]float64, error) {
	return c.m[key], nil
}

func (c *mapMatrixCache) PutMatrix(ctx context.Context, key string, matrix [][]float64) error {
	c.m[key] = matrix
	return nil
}

type mapGeocodeCache struct {
	m map[string]domain.Coordinates
}

func (c *mapGeocodeCache) GetMany(ctx context.Context, addresses []string) (map[string]domain.Coordinates, error) {
	out := map[string]domain.Coordinates{}
	for _, a := range addresses {
		if coords, ok := c.m[a]; ok {
			out[a] = coords
		}
	}
	return out, nil
}

func (c *mapGeocodeCache) PutMany(ctx context.Context, coords map[string]domain.Coordinates) error {
	for k, v := range coords {
		c.m[k] = v
	}
	return nil
}

func testPlanner(t *testing.T, baseURL string, opts ...Option) *ORSRoutePlanner {
	t.Helper()
	opts = append(opts, WithBaseURL(baseURL))
	p, err := NewORSRoutePlanner("test-key", "driving-car", "duration", opts...)
	if err != nil {
		t.Fatalf("NewORSRoutePlanner failed: %v", err)
	}
	return p
}

func TestNewORSRoutePlannerValidation(t *testing.T) {
	if _, err := NewORSRoutePlanner("", "driving-car", "duration"); err == nil {
		t.Error("expected an error for an empty api key")
	}
	if _, err := NewORSRoutePlanner("key", "driving-car", "speed"); err == nil {
		t.Error("expected an error for an unknown metric")
	}
}

func TestGetCoordinatesParsesAndCaches(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if r.URL.Path != "/geocode/search" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "test-key" {
			t.Errorf("unexpected authorization header %q", got)
		}
		if got := r.URL.Query().Get("boundary.country"); got != "IT" {
			t.Errorf("unexpected boundary.country %q", got)
		}
		w.Write([]byte(`{"features":[{"geometry":{"coordinates":[9.210024,45.479426]}}]}`))
	}))
	defer srv.Close()

	cache := &mapGeocodeCache{m: map[string]domain.Coordinates{}}
	planner := testPlanner(t, srv.URL, WithGeocodeCache(cache))

	addr := domain.DeliveryAddress{
		Address: "Via  Padova 12", PostalCode: "20127", City: "Milano", Country: "IT",
	}

	got, err := planner.GetCoordinates(context.Background(), addr)
	if err != nil {
		t.Fatalf("GetCoordinates failed: %v", err)
	}
	if got.Lon != 9.210024 || got.Lat != 45.479426 {
		t.Fatalf("unexpected coordinates %+v", got)
	}

	// Second lookup comes from the cache; the doubled space in the
	// street name must not produce a second cache key.
	if _, err := planner.GetCoordinates(context.Background(), addr); err != nil {
		t.Fatalf("cached GetCoordinates failed: %v", err)
	}
	if calls != 1 {
		t.Fatalf("expected 1 provider call, got %d", calls)
	}
}

func TestGetCoordinatesNoResults(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"features":[]}`))
	}))
	defer srv.Close()

	planner := testPlanner(t, srv.URL)

	_, err := planner.GetCoordinates(context.Background(), domain.DeliveryAddress{
		Address: "Nowhere 1", City: "Milano", Country: "IT",
	})
	if err == nil {
		t.Fatal("expected an error for zero results")
	}
	if !strings.Contains(err.Error(), "no results") {
		t.Errorf("unexpected error %v", err)
	}
}

func TestDistanceMatrixParsesAndCaches(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if r.URL.Path != "/v2/matrix/driving-car" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		w.Write([]byte(`{"durations":[[0,120.5],[130.2,0]]}`))
	}))
	defer srv.Close()

	cache := &mapMatrixCache{m: map[string][][]float64{}}
	planner := testPlanner(t, srv.URL, WithMatrixCache(cache))

	coords := []domain.Coordinates{
		{Lon: 9.210024, Lat: 45.479426},
		{Lon: 9.210421, Lat: 45.479812},
	}

	got, err := planner.DistanceMatrix(context.Background(), coords)
	if err != nil {
		t.Fatalf("DistanceMatrix failed: %v", err)
	}
	if got[0][1] != 120.5 || got[1][0] != 130.2 {
		t.Fatalf("unexpected matrix %v", got)
	}

	if _, err := planner.DistanceMatrix(context.Background(), coords); err != nil {
		t.Fatalf("cached DistanceMatrix failed: %v", err)
	}
	if calls != 1 {
		t.Fatalf("expected 1 provider call, got %d", calls)
	}
}

func TestDistanceMatrixUnreachablePair(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"durations":[[0,null],[130.2,0]]}`))
	}))
	defer srv.Close()

	planner := testPlanner(t, srv.URL)

	_, err := planner.DistanceMatrix(context.Background(), []domain.Coordinates{
		{Lon: 9.210024, Lat: 45.479426},
		{Lon: 9.210421, Lat: 45.479812},
	})
	if err == nil {
		t.Fatal("expected an error for an unreachable pair")
	}
	if !strings.Contains(err.Error(), "unreachable pair") {
		t.Errorf("unexpected error %v", err)
	}
}

func TestDoWithRetryRecoversFromServerErrors(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls < 3 {
			http.Error(w, "upstream hiccup", http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte(`{"durations":[[0]]}`))
	}))
	defer srv.Close()

	planner := testPlanner(t, srv.URL)

	got, err := planner.DistanceMatrix(context.Background(), []domain.Coordinates{
		{Lon: 9.210024, Lat: 45.479426},
	})
	if err != nil {
		t.Fatalf("DistanceMatrix failed after retries: %v", err)
	}
	if len(got) != 1 || got[0][0] != 0 {
		t.Fatalf("unexpected matrix %v", got)
	}
	if calls != 3 {
		t.Fatalf("expected 3 attempts, got %d", calls)
	}
}

func TestDoWithRetryGivesUpOnClientErrors(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		http.Error(w, "bad request", http.StatusBadRequest)
	}))
	defer srv.Close()

	planner := testPlanner(t, srv.URL)

	_, err := planner.DistanceMatrix(context.Background(), []domain.Coordinates{
		{Lon: 9.210024, Lat: 45.479426},
	})
	if err == nil {
		t.Fatal("expected an error")
	}
	if calls != 1 {
		t.Fatalf("expected no retries on a 400, got %d attempts", calls)
	}
}

func TestRequestsCarryConfiguredUnits(t *testing.T) {
	var matrixUnits, directionsUnits string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case strings.HasPrefix(r.URL.Path, "/v2/matrix/"):
			var req matrixRequest
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				t.Errorf("decode matrix request: %v", err)
			}
			matrixUnits = req.Units
			w.Write([]byte(`{"durations":[[0]]}`))
		case strings.HasPrefix(r.URL.Path, "/v2/directions/"):
			var req directionsRequest
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				t.Errorf("decode directions request: %v", err)
			}
			directionsUnits = req.Units
			w.Write([]byte(`{"routes":[{"summary":{"distance":1.2,"duration":90},"segments":[{"distance":1.2,"duration":90,"steps":[]}]}]}`))
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
		}
	}))
	defer srv.Close()

	planner := testPlanner(t, srv.URL, WithUnits("km"))

	if _, err := planner.DistanceMatrix(context.Background(), []domain.Coordinates{
		{Lon: 9.210024, Lat: 45.479426},
	}); err != nil {
		t.Fatalf("DistanceMatrix failed: %v", err)
	}
	if _, err := planner.Directions(context.Background(), []domain.Coordinates{
		{Lon: 9.188569, Lat: 45.463765},
		{Lon: 9.210024, Lat: 45.479426},
	}, true); err != nil {
		t.Fatalf("Directions failed: %v", err)
	}

	if matrixUnits != "km" {
		t.Errorf("expected matrix request units km, got %q", matrixUnits)
	}
	if directionsUnits != "km" {
		t.Errorf("expected directions request units km, got %q", directionsUnits)
	}
}

func TestNewFromSettingsForwardsUnits(t *testing.T) {
	p, err := NewFromSettings(config.ProviderSettings{
		Provider: "openrouteservice", APIKey: "key", Profile: "driving-car",
		Metric: "duration", Units: "mi",
	})
	if err != nil {
		t.Fatalf("NewFromSettings failed: %v", err)
	}
	ors, ok := p.(*ORSRoutePlanner)
	if !ok {
		t.Fatalf("expected an ORS planner, got %T", p)
	}
	if ors.units != "mi" {
		t.Fatalf("expected units mi, got %q", ors.units)
	}
}

func TestNewFromSettingsUnknownProvider(t *testing.T) {
	_, err := NewFromSettings(config.ProviderSettings{
		Provider: "osrm", APIKey: "key", Profile: "driving-car", Metric: "duration",
	})
	if err == nil {
		t.Fatal("expected an error for an unknown provider")
	}
}
