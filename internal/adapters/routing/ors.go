package routing

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"pizza-dispatch-service/internal/domain"
	"pizza-dispatch-service/internal/platform/obs"
	"pizza-dispatch-service/internal/ports"
)

// ORSRoutePlanner implements ports.RoutePlanner against OpenRouteService.
//
// It coordinates:
//   - Address normalization
//   - Persistent geocode caching
//   - Travel matrix caching
//   - External API calls with retry/backoff
//
// The planner is safe for concurrent use.
type ORSRoutePlanner struct {
	session      *http.Client
	apiKey       string
	baseURL      string
	profile      string
	metric       string
	units        string
	matrixCache  ports.MatrixCache
	geocodeCache ports.GeocodeCache
}

type Option func(*ORSRoutePlanner)

func WithMatrixCache(c ports.MatrixCache) Option {
	return func(o *ORSRoutePlanner) { o.matrixCache = c }
}

func WithGeocodeCache(c ports.GeocodeCache) Option {
	return func(o *ORSRoutePlanner) { o.geocodeCache = c }
}

func WithBaseURL(u string) Option {
	return func(o *ORSRoutePlanner) { o.baseURL = u }
}

// WithUnits sets the distance unit reported by matrix and directions
// responses (m, km or mi).
func WithUnits(u string) Option {
	return func(o *ORSRoutePlanner) { o.units = u }
}

func NewORSRoutePlanner(apiKey, profile, metric string, opts ...Option) (*ORSRoutePlanner, error) {
	if apiKey == "" {
		return nil, errors.New("ORS api key is empty")
	}
	if metric != ports.MetricDuration && metric != ports.MetricDistance {
		return nil, fmt.Errorf("unsupported ORS metric %q", metric)
	}
	if profile == "" {
		profile = "driving-car"
	}

	planner := &ORSRoutePlanner{
		session: &http.Client{Timeout: 15 * time.Second},
		apiKey:  apiKey,
		baseURL: "https://api.openrouteservice.org",
		profile: profile,
		metric:  metric,
		units:   "m",
	}
	for _, opt := range opts {
		opt(planner)
	}

	return planner, nil
}

func (o *ORSRoutePlanner) Metric() string { return o.metric }

// normalize ensures consistent cache keys by collapsing whitespace.
func (o *ORSRoutePlanner) normalize(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

type geocodeResponse struct {
	Features []struct {
		Geometry struct {
			Coordinates []float64 `json:"coordinates"`
		} `json:"geometry"`
	} `json:"features"`
}

// GetCoordinates resolves a structured address to (lon, lat) using the
// ORS geocode search endpoint, consulting the geocode cache first.
func (o *ORSRoutePlanner) GetCoordinates(
	ctx context.Context,
	addr domain.DeliveryAddress,
) (_ domain.Coordinates, err error) {
	defer obs.Time(ctx, "ors.GetCoordinates")(&err)

	text := o.normalize(fmt.Sprintf(
		"%s, %s %s, %s",
		addr.Address, addr.PostalCode, addr.City, addr.Country,
	))
	if text == ", ," {
		return domain.Coordinates{}, providerErr("geocode", errors.New("address is empty"))
	}

	if o.geocodeCache != nil {
		hits, err := o.geocodeCache.GetMany(ctx, []string{text})
		if err != nil {
			log.Printf("geocode cache read failed: %v", err)
		} else if c, ok := hits[text]; ok {
			return c, nil
		}
	}

	endpoint := o.baseURL + "/geocode/search"

	resp, err := o.doWithRetry(ctx, func() (*http.Request, error) {
		req, err := o.newRequest(ctx, http.MethodGet, endpoint, nil)
		if err != nil {
			return nil, err
		}
		q := req.URL.Query()
		q.Set("text", text)
		q.Set("size", "1")
		if addr.Country != "" {
			q.Set("boundary.country", addr.Country)
		}
		req.URL.RawQuery = q.Encode()
		return req, nil
	})
	if err != nil {
		return domain.Coordinates{}, providerErr("geocode", err)
	}
	defer resp.Body.Close()

	var decoded geocodeResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return domain.Coordinates{}, providerErr("geocode", fmt.Errorf("decode response: %w", err))
	}

	if len(decoded.Features) == 0 {
		return domain.Coordinates{}, providerErr("geocode", fmt.Errorf("no results for %q", text))
	}

	coords := decoded.Features[0].Geometry.Coordinates
	if len(coords) != 2 {
		return domain.Coordinates{}, providerErr("geocode", fmt.Errorf("invalid coordinate format for %q", text))
	}

	result := domain.Coordinates{Lon: coords[0], Lat: coords[1]}

	if o.geocodeCache != nil {
		if err := o.geocodeCache.PutMany(ctx, map[string]domain.Coordinates{text: result}); err != nil {
			log.Printf("geocode cache write failed: %v", err)
		}
	}

	return result, nil
}
