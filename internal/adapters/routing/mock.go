package routing

import (
	"context"
	"errors"
	"fmt"

	"pizza-dispatch-service/internal/domain"
	"pizza-dispatch-service/internal/ports"
)

// MockRoutePlanner is a deterministic in-memory planner for tests. Travel
// times derive from great-circle distance at a fixed speed, so nearby
// coordinates produce short legs without any network I/O.
type MockRoutePlanner struct {
	MetricName string  // defaults to duration
	SpeedMPS   float64 // defaults to 8 m/s

	// Visit forces the interior visiting order of Directions (indices into
	// the interior coordinate list). Nil keeps the input order.
	Visit []int

	Geocoded map[string]domain.Coordinates

	FailMatrix     bool
	FailDirections bool
	FailGeocode    bool

	MatrixCalls     int
	DirectionsCalls int
}

func (m *MockRoutePlanner) Metric() string {
	if m.MetricName == "" {
		return ports.MetricDuration
	}
	return m.MetricName
}

func (m *MockRoutePlanner) speed() float64 {
	if m.SpeedMPS <= 0 {
		return 8
	}
	return m.SpeedMPS
}

func (m *MockRoutePlanner) legMeters(a, b domain.Coordinates) float64 {
	return a.DistanceKm(b) * 1000
}

func (m *MockRoutePlanner) legSeconds(a, b domain.Coordinates) float64 {
	return m.legMeters(a, b) / m.speed()
}

func (m *MockRoutePlanner) GetCoordinates(ctx context.Context, addr domain.DeliveryAddress) (domain.Coordinates, error) {
	if m.FailGeocode {
		return domain.Coordinates{}, providerErr("geocode", errors.New("mock failure"))
	}
	c, ok := m.Geocoded[addr.Address]
	if !ok {
		return domain.Coordinates{}, providerErr("geocode", fmt.Errorf("no results for %q", addr.Address))
	}
	return c, nil
}

func (m *MockRoutePlanner) DistanceMatrix(ctx context.Context, coords []domain.Coordinates) ([][]float64, error) {
	m.MatrixCalls++
	if m.FailMatrix {
		return nil, providerErr("matrix", errors.New("mock failure"))
	}

	n := len(coords)
	out := make([][]float64, n)
	for i := range coords {
		out[i] = make([]float64, n)
		for j := range coords {
			if i == j {
				continue
			}
			if m.Metric() == ports.MetricDistance {
				out[i][j] = m.legMeters(coords[i], coords[j])
			} else {
				out[i][j] = m.legSeconds(coords[i], coords[j])
			}
		}
	}
	return out, nil
}

func (m *MockRoutePlanner) Directions(ctx context.Context, coords []domain.Coordinates, optimize bool) (*ports.DirectionsResult, error) {
	m.DirectionsCalls++
	if m.FailDirections {
		return nil, providerErr("directions", errors.New("mock failure"))
	}
	if len(coords) < 2 {
		return nil, providerErr("directions", fmt.Errorf("need at least 2 coordinates, got %d", len(coords)))
	}

	interior := coords[1 : len(coords)-1]
	order := m.Visit
	if order == nil {
		order = make([]int, len(interior))
		for i := range order {
			order[i] = i
		}
	}
	if len(order) != len(interior) {
		return nil, providerErr("directions", fmt.Errorf("visit order length %d != %d interiors", len(order), len(interior)))
	}

	visited := make([]domain.Coordinates, 0, len(coords))
	visited = append(visited, coords[0])
	for _, idx := range order {
		visited = append(visited, interior[idx])
	}
	visited = append(visited, coords[len(coords)-1])

	out := &ports.DirectionsResult{
		Coordinates: make([][]float64, 0, len(visited)),
	}
	for i := 0; i+1 < len(visited); i++ {
		meters := m.legMeters(visited[i], visited[i+1])
		seconds := m.legSeconds(visited[i], visited[i+1])
		out.Distance += meters
		out.Duration += seconds
		out.Segments = append(out.Segments, ports.DirectionsSegment{
			Distance: meters,
			Duration: seconds,
			Steps: []ports.DirectionsStep{{
				Name:        fmt.Sprintf("leg-%d", i+1),
				Type:        11,
				Distance:    meters,
				Duration:    seconds,
				Instruction: fmt.Sprintf("Drive leg %d", i+1),
				WayPoints:   []int{i, i + 1},
			}},
		})
	}
	for _, v := range visited {
		out.Coordinates = append(out.Coordinates, v.CoordsToList())
	}

	return out, nil
}
