package routing

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"pizza-dispatch-service/internal/domain"
	"pizza-dispatch-service/internal/platform/obs"
	"pizza-dispatch-service/internal/ports"
)

type directionsRequest struct {
	Coordinates       [][]float64 `json:"coordinates"`
	Preference        string      `json:"preference"`
	Instructions      bool        `json:"instructions"`
	OptimizeWaypoints bool        `json:"optimize_waypoints"`
	Units             string      `json:"units,omitempty"`
}

type directionsResponse struct {
	Routes []struct {
		Summary struct {
			Distance float64 `json:"distance"`
			Duration float64 `json:"duration"`
		} `json:"summary"`
		Segments []struct {
			Distance float64 `json:"distance"`
			Duration float64 `json:"duration"`
			Steps    []struct {
				Name        string  `json:"name"`
				Type        int     `json:"type"`
				Distance    float64 `json:"distance"`
				Duration    float64 `json:"duration"`
				Instruction string  `json:"instruction"`
				WayPoints   []int   `json:"way_points"`
			} `json:"steps"`
		} `json:"segments"`
	} `json:"routes"`
	Metadata struct {
		Query struct {
			Coordinates [][]float64 `json:"coordinates"`
		} `json:"query"`
	} `json:"metadata"`
}

// Directions requests an optimised round trip through all coordinates
// (fastest preference). The provider reorders interior waypoints when
// optimize is true; metadata reflects the post-optimisation order.
func (o *ORSRoutePlanner) Directions(
	ctx context.Context,
	coords []domain.Coordinates,
	optimize bool,
) (_ *ports.DirectionsResult, err error) {
	defer obs.Time(ctx, "ors.Directions")(&err)

	if len(coords) < 2 {
		return nil, providerErr("directions", fmt.Errorf("need at least 2 coordinates, got %d", len(coords)))
	}

	locations := make([][]float64, 0, len(coords))
	for _, c := range coords {
		locations = append(locations, c.CoordsToList())
	}

	endpoint := fmt.Sprintf("%s/v2/directions/%s/json", o.baseURL, o.profile)

	payload, err := json.Marshal(directionsRequest{
		Coordinates:       locations,
		Preference:        "fastest",
		Instructions:      true,
		OptimizeWaypoints: optimize,
		Units:             o.units,
	})
	if err != nil {
		return nil, providerErr("directions", fmt.Errorf("marshal request: %w", err))
	}

	resp, err := o.doWithRetry(ctx, func() (*http.Request, error) {
		return o.newRequest(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	})
	if err != nil {
		return nil, providerErr("directions", err)
	}
	defer resp.Body.Close()

	var dr directionsResponse
	if err := json.NewDecoder(resp.Body).Decode(&dr); err != nil {
		return nil, providerErr("directions", fmt.Errorf("decode response: %w", err))
	}

	if len(dr.Routes) == 0 {
		return nil, providerErr("directions", fmt.Errorf("no routes returned"))
	}
	route := dr.Routes[0]

	out := &ports.DirectionsResult{
		Distance:    route.Summary.Distance,
		Duration:    route.Summary.Duration,
		Segments:    make([]ports.DirectionsSegment, 0, len(route.Segments)),
		Coordinates: dr.Metadata.Query.Coordinates,
	}
	if len(out.Coordinates) == 0 {
		// Provider omitted the reordered query echo; fall back to the
		// request order.
		out.Coordinates = locations
	}

	for _, seg := range route.Segments {
		s := ports.DirectionsSegment{
			Distance: seg.Distance,
			Duration: seg.Duration,
			Steps:    make([]ports.DirectionsStep, 0, len(seg.Steps)),
		}
		for _, step := range seg.Steps {
			s.Steps = append(s.Steps, ports.DirectionsStep{
				Name:        step.Name,
				Type:        step.Type,
				Distance:    step.Distance,
				Duration:    step.Duration,
				Instruction: step.Instruction,
				WayPoints:   step.WayPoints,
			})
		}
		out.Segments = append(out.Segments, s)
	}

	return out, nil
}
