package ports

import (
	"context"

	"pizza-dispatch-service/internal/domain"
)

// Matrix metric reported by the route provider.
const (
	MetricDuration = "duration"
	MetricDistance = "distance"
)

// One route option returned by the directions operation.
type DirectionsStep struct {
	Name        string
	Type        int
	Distance    float64
	Duration    float64
	Instruction string
	WayPoints   []int
}

type DirectionsSegment struct {
	Distance float64
	Duration float64
	Steps    []DirectionsStep
}

// DirectionsResult carries the provider's optimised route. Coordinates is
// the full (lon, lat) list in post-optimisation visiting order, depot
// bookends included.
type DirectionsResult struct {
	Distance    float64 // meters
	Duration    float64 // seconds
	Segments    []DirectionsSegment
	Coordinates [][]float64
}

// Port: boundary to the external routing provider (geocoding, travel
// matrices, optimised directions). Any failure surfaces as a provider
// error that aborts the current dispatch run.
type RoutePlanner interface {
	// Resolve a structured address to (lon, lat).
	GetCoordinates(ctx context.Context, addr domain.DeliveryAddress) (domain.Coordinates, error)

	// Pairwise travel matrix between all coordinates, in the configured
	// metric's unit (seconds or meters).
	DistanceMatrix(ctx context.Context, coords []domain.Coordinates) ([][]float64, error)

	// Optimised round trip visiting all coordinates. The provider reorders
	// interior waypoints when optimize is true.
	Directions(ctx context.Context, coords []domain.Coordinates, optimize bool) (*DirectionsResult, error)

	// Metric reports how DistanceMatrix values are to be interpreted.
	Metric() string
}
