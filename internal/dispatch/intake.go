package dispatch

import (
	"context"
	"fmt"
	"time"

	"pizza-dispatch-service/internal/domain"
	"pizza-dispatch-service/internal/ports"
)

// Optional predicates applied to pending orders before clustering. All set
// predicates are AND-composed. The geographic predicate requires Lat, Lon
// and RadiusKm together; with any of the three missing it is disabled.
type FilterParams struct {
	StartTime *time.Time
	EndTime   *time.Time
	Lat       *float64
	Lon       *float64
	RadiusKm  *float64
}

// FetchPendingOrders reads all orders awaiting dispatch.
func FetchPendingOrders(ctx context.Context, repo ports.OrderRepository) ([]domain.Order, error) {
	orders, err := repo.ListPending(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetch pending orders: %w", err)
	}
	return orders, nil
}

// FilterOrders drops orders outside the requested time window or
// geographic radius. Distance is great-circle, in kilometers.
func FilterOrders(orders []domain.Order, params FilterParams) []domain.Order {
	geoEnabled := params.Lat != nil && params.Lon != nil && params.RadiusKm != nil

	var center domain.Coordinates
	if geoEnabled {
		center = domain.Coordinates{Lon: *params.Lon, Lat: *params.Lat}
	}

	filtered := make([]domain.Order, 0, len(orders))
	for _, o := range orders {
		if o.Status != domain.OrderPending {
			continue
		}
		if params.StartTime != nil && o.CreatedAt.Before(*params.StartTime) {
			continue
		}
		if params.EndTime != nil && o.CreatedAt.After(*params.EndTime) {
			continue
		}
		if geoEnabled && o.Coordinates().DistanceKm(center) > *params.RadiusKm {
			continue
		}
		filtered = append(filtered, o)
	}

	return filtered
}
