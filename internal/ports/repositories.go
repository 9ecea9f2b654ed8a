package ports

import (
	"context"
	"time"

	"pizza-dispatch-service/internal/domain"
)

// Port: order persistence consumed by the dispatch engine.
type OrderRepository interface {
	// Retrieve all orders with status = pending.
	ListPending(ctx context.Context) ([]domain.Order, error)
	// Bulk status update for the given order ids.
	UpdateStatus(ctx context.Context, orderIDs []int, status domain.OrderStatus) error
}

// Port: driver persistence consumed by the dispatch engine.
type DriverRepository interface {
	// Retrieve drivers eligible for assignment: available, or delivering
	// with estimated_finish_time <= now+etaThreshold, with known position.
	ListDispatchable(ctx context.Context, now time.Time, etaThreshold time.Duration) ([]domain.Driver, error)
	// Bulk status update for the given driver ids.
	UpdateStatus(ctx context.Context, driverIDs []int, status domain.DriverStatus) error
}

// Port: cluster persistence. Clusters are persisted before assignment so
// deferrals leave an audit trail.
type ClusterRepository interface {
	// Insert the cluster row plus its (cluster_id, order_id) join rows.
	Create(ctx context.Context, cluster *domain.OrderCluster) error
	// Bulk status update for the given cluster ids.
	UpdateStatus(ctx context.Context, clusterIDs []string, status domain.ClusterStatus) error
	// Record the thresholds a cluster was relaxed to.
	RecordRelaxation(ctx context.Context, clusterID string, rc domain.RelaxedConstraints) error
}
