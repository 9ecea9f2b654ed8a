package dispatch

import (
	"context"
	"fmt"
	"math"

	"pizza-dispatch-service/internal/domain"
	"pizza-dispatch-service/internal/ports"
)

// Depot is the production site couriers depart from and return to.
type Depot struct {
	Coordinates domain.Coordinates
	Address     domain.DeliveryAddress
}

const coordEpsilon = 1e-6

// ComputeClusterRoute asks the provider for an optimised round trip
// through all cluster orders and converts the answer into a ClusterRoute.
// It returns the route and the orders reordered to the optimised visiting
// sequence. A cluster of N orders always yields N+1 segments.
func ComputeClusterRoute(
	ctx context.Context,
	planner ports.RoutePlanner,
	orders []domain.Order,
	depot Depot,
) (domain.ClusterRoute, []domain.Order, error) {
	if len(orders) == 0 {
		return domain.ClusterRoute{}, nil, fmt.Errorf("compute cluster route: cluster has no orders")
	}

	coords := make([]domain.Coordinates, 0, len(orders)+2)
	coords = append(coords, depot.Coordinates)
	for _, o := range orders {
		coords = append(coords, o.Coordinates())
	}
	coords = append(coords, depot.Coordinates)

	dir, err := planner.Directions(ctx, coords, true)
	if err != nil {
		return domain.ClusterRoute{}, nil, fmt.Errorf("compute cluster route: %w", err)
	}

	// All coordinates coinciding can produce an empty summary; treat the
	// whole trip as instantaneous.
	if len(dir.Segments) == 0 {
		return degenerateRoute(orders, depot), orders, nil
	}

	if len(dir.Segments) != len(orders)+1 {
		return domain.ClusterRoute{}, nil, fmt.Errorf(
			"compute cluster route: provider returned %d segments for %d orders",
			len(dir.Segments), len(orders),
		)
	}

	visitOrder, err := mapVisitedToOrders(dir.Coordinates, orders)
	if err != nil {
		return domain.ClusterRoute{}, nil, fmt.Errorf("compute cluster route: %w", err)
	}

	ordered := make([]domain.Order, 0, len(orders))
	for _, idx := range visitOrder {
		ordered = append(ordered, orders[idx])
	}

	route := domain.ClusterRoute{
		ID:       domain.NewClusterID(),
		Distance: dir.Distance,
		Duration: dir.Duration,
		Segments: make([]domain.RouteSegment, 0, len(dir.Segments)),
	}

	addressAt := func(stop int) domain.DeliveryAddress {
		// stop 0 and stop N+1 are the depot bookends.
		if stop == 0 || stop == len(orders)+1 {
			return depot.Address
		}
		return ordered[stop-1].DeliveryAddress
	}

	elapsed := 0.0
	for i, seg := range dir.Segments {
		segment := domain.RouteSegment{
			Distance:     seg.Distance,
			Duration:     seg.Duration,
			SegmentStart: addressAt(i),
			SegmentEnd:   addressAt(i + 1),
			Steps:        make([]domain.DeliveryStep, 0, len(seg.Steps)),
		}
		segment.DeliveryAddress = segment.SegmentEnd

		for _, step := range seg.Steps {
			elapsed += step.Duration
			segment.Steps = append(segment.Steps, domain.DeliveryStep{
				Name:              step.Name,
				Type:              step.Type,
				Distance:          step.Distance,
				Duration:          step.Duration,
				DurationFromStart: elapsed,
				Instruction:       step.Instruction,
				WayPoints:         append([]int{}, step.WayPoints...),
			})
		}

		if i == 0 {
			segment.DurationFromStart = seg.Duration
		} else {
			segment.DurationFromStart = route.Segments[i-1].DurationFromStart + seg.Duration
		}

		route.Segments = append(route.Segments, segment)
	}

	return route, ordered, nil
}

// mapVisitedToOrders resolves the provider's post-optimisation coordinate
// list (depot bookends included) back to input order indices.
func mapVisitedToOrders(visited [][]float64, orders []domain.Order) ([]int, error) {
	if len(visited) != len(orders)+2 {
		return nil, fmt.Errorf(
			"metadata lists %d coordinates for %d orders",
			len(visited), len(orders),
		)
	}

	used := make([]bool, len(orders))
	out := make([]int, 0, len(orders))

	for _, coord := range visited[1 : len(visited)-1] {
		if len(coord) != 2 {
			return nil, fmt.Errorf("invalid coordinate in metadata: %v", coord)
		}

		found := -1
		for idx, o := range orders {
			if used[idx] {
				continue
			}
			if math.Abs(o.Lon-coord[0]) < coordEpsilon && math.Abs(o.Lat-coord[1]) < coordEpsilon {
				found = idx
				break
			}
		}
		if found == -1 {
			return nil, fmt.Errorf("visited coordinate (%f, %f) matches no order", coord[0], coord[1])
		}

		used[found] = true
		out = append(out, found)
	}

	return out, nil
}

func degenerateRoute(orders []domain.Order, depot Depot) domain.ClusterRoute {
	route := domain.ClusterRoute{
		ID:       domain.NewClusterID(),
		Segments: make([]domain.RouteSegment, 0, len(orders)+1),
	}
	for i := 0; i <= len(orders); i++ {
		start := depot.Address
		if i > 0 {
			start = orders[i-1].DeliveryAddress
		}
		end := depot.Address
		if i < len(orders) {
			end = orders[i].DeliveryAddress
		}
		route.Segments = append(route.Segments, domain.RouteSegment{
			SegmentStart:    start,
			SegmentEnd:      end,
			DeliveryAddress: end,
			Steps:           []domain.DeliveryStep{},
		})
	}
	return route
}
