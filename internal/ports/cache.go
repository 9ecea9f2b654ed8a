package ports

import (
	"context"

	"pizza-dispatch-service/internal/domain"
)

// Port: cache for pairwise travel matrices keyed by an opaque request key.
// A nil matrix with a nil error is a cache miss.
type MatrixCache interface {
	GetMatrix(ctx context.Context, key string) ([][]float64, error)
	PutMatrix(ctx context.Context, key string, matrix [][]float64) error
}

// Port: cache for geocoded addresses. Keys are expected to be consistent
// (already normalized) by the caller.
type GeocodeCache interface {
	GetMany(ctx context.Context, addresses []string) (map[string]domain.Coordinates, error)
	PutMany(ctx context.Context, coords map[string]domain.Coordinates) error
}
