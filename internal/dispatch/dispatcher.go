package dispatch

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"pizza-dispatch-service/internal/config"
	"pizza-dispatch-service/internal/domain"
	"pizza-dispatch-service/internal/platform/obs"
	"pizza-dispatch-service/internal/ports"
)

// Engine runs one dispatch batch end to end:
//
//	intake -> filter -> time buckets -> geo clusters -> persist clusters
//	-> fetch drivers -> strict assignment -> commit -> relaxation -> commit
//
// Route provider failures abort the run before any commit boundary.
// Unassignable clusters are a normal return value, never an error.
type Engine struct {
	Orders   ports.OrderRepository
	Drivers  ports.DriverRepository
	Clusters ports.ClusterRepository
	Planner  ports.RoutePlanner

	Kitchen    *Kitchen
	Clustering config.ClusteringSettings

	ETAThreshold   time.Duration
	TimeForPayment time.Duration
	MaxRelaxRounds int
	Strategies     []Strategy

	// Optional intake predicates (e.g. a service radius around the depot).
	Filter FilterParams

	// NowFunc is the run clock; tests pin it.
	NowFunc func() time.Time
}

// Final outcome of one run.
type RunResult struct {
	DriverToCluster map[int]Assignment
	Unassigned      []Deferral
}

func (e *Engine) now() time.Time {
	if e.NowFunc != nil {
		return e.NowFunc()
	}
	return time.Now()
}

func (e *Engine) depot() Depot {
	return Depot{
		Coordinates: e.Clustering.DepotCoordinates,
		Address:     e.Clustering.DepotAddress,
	}
}

// Run executes one dispatch batch.
func (e *Engine) Run(ctx context.Context) (_ *RunResult, err error) {
	ctx = context.WithValue(ctx, obs.RunIDKey, uuid.NewString())
	defer obs.Time(ctx, "dispatch.Run")(&err)

	now := e.now()

	// INTAKE + FILTER
	pending, err := FetchPendingOrders(ctx, e.Orders)
	if err != nil {
		return nil, fmt.Errorf("dispatch: %w", err)
	}
	filtered := FilterOrders(pending, e.Filter)
	log.Printf("run_id=%s op=intake pending=%d filtered=%d", obs.RunID(ctx), len(pending), len(filtered))

	result := &RunResult{DriverToCluster: map[int]Assignment{}}
	if len(filtered) == 0 {
		return result, nil
	}

	// TIME_BUCKET + GEO_CLUSTER
	clusters, err := e.buildClusters(ctx, filtered)
	if err != nil {
		return nil, err
	}
	if len(clusters) == 0 {
		return result, nil
	}

	// PERSIST_CLUSTERS: clusters are stored before assignment so even
	// deferred ones leave an audit trail.
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	for _, c := range clusters {
		if err := e.Clusters.Create(ctx, c); err != nil {
			return nil, fmt.Errorf("dispatch: persist cluster %s: %w", c.ID, err)
		}
	}

	// FETCH_DRIVERS
	drivers, err := e.Drivers.ListDispatchable(ctx, now, e.ETAThreshold)
	if err != nil {
		return nil, fmt.Errorf("dispatch: fetch drivers: %w", err)
	}
	dispatchable := drivers[:0:0]
	for _, d := range drivers {
		if d.Dispatchable(now, e.ETAThreshold) {
			dispatchable = append(dispatchable, d)
		}
	}
	log.Printf("run_id=%s op=drivers dispatchable=%d clusters=%d", obs.RunID(ctx), len(dispatchable), len(clusters))

	// STRICT_ASSIGN
	assigner := NewAssigner(e.Kitchen, e.TimeForPayment)
	profiles := make(map[string]*Profile, len(clusters))
	for _, c := range clusters {
		profiles[c.ID] = DefaultProfile()
	}
	strict := assigner.Solve(clusters, dispatchable, profiles, now)
	log.Printf("run_id=%s op=assign.strict assigned=%d deferred=%d", obs.RunID(ctx), len(strict.Assigned), len(strict.Deferred))

	// COMMIT 1
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := e.commit(ctx, strict.Assigned); err != nil {
		return nil, fmt.Errorf("dispatch: commit strict pass: %w", err)
	}
	for _, a := range strict.Assigned {
		result.DriverToCluster[a.Driver.ID] = a
	}

	// RELAX + COMMIT 2 (incremental, per round)
	remaining := dispatchable[:0:0]
	for _, d := range dispatchable {
		if _, ok := result.DriverToCluster[d.ID]; !ok {
			remaining = append(remaining, d)
		}
	}

	controller := NewRelaxationController(assigner, e.Strategies, e.MaxRelaxRounds)
	salvaged, stillDeferred, err := controller.Salvage(
		ctx, strict.Deferred, remaining, profiles, now,
		func(ctx context.Context, won []Assignment) error {
			if err := e.commit(ctx, won); err != nil {
				return err
			}
			for _, a := range won {
				if err := e.recordRelaxation(ctx, a.Cluster.ID, profiles[a.Cluster.ID]); err != nil {
					return err
				}
			}
			return nil
		},
	)
	if err != nil {
		return nil, fmt.Errorf("dispatch: %w", err)
	}

	for _, a := range salvaged {
		a.RelaxationLog = append([]string{}, profiles[a.Cluster.ID].Log...)
		result.DriverToCluster[a.Driver.ID] = a
	}

	// Record the final attempted thresholds for clusters that stayed
	// deferred through every round.
	for _, d := range stillDeferred {
		if p, ok := profiles[d.Cluster.ID]; ok && len(p.Log) > 0 {
			if err := e.recordRelaxation(ctx, d.Cluster.ID, p); err != nil {
				return nil, fmt.Errorf("dispatch: %w", err)
			}
		}
	}
	result.Unassigned = stillDeferred

	log.Printf(
		"run_id=%s op=dispatch.done assigned=%d unassigned=%d",
		obs.RunID(ctx), len(result.DriverToCluster), len(result.Unassigned),
	)
	return result, nil
}

// buildClusters runs time bucketing, geographic clustering and route
// construction for every bucket, preserving bucket insertion order.
func (e *Engine) buildClusters(ctx context.Context, orders []domain.Order) (_ []*domain.OrderCluster, err error) {
	defer obs.Time(ctx, "dispatch.buildClusters")(&err)

	keys, buckets := BucketByTimeWindow(orders, e.Clustering.TimeWindowMinutes)

	clusters := make([]*domain.OrderCluster, 0, len(keys))
	for _, key := range keys {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		groups, err := ClusterByProximity(
			ctx, e.Planner, buckets[key],
			e.Clustering.MaxPizzasPerCluster,
			e.Clustering.DistanceThreshold,
		)
		if err != nil {
			return nil, fmt.Errorf("dispatch: bucket %s: %w", key.Format(time.RFC3339), err)
		}

		for _, group := range groups {
			route, ordered, err := ComputeClusterRoute(ctx, e.Planner, group, e.depot())
			if err != nil {
				return nil, fmt.Errorf("dispatch: bucket %s: %w", key.Format(time.RFC3339), err)
			}

			cluster := domain.NewOrderCluster(key, ordered)
			cluster.Route = route
			clusters = append(clusters, cluster)
		}
	}

	return clusters, nil
}

// commit flips statuses for genuinely assigned pairs in one bulk write
// per entity type. Forced placeholders never reach here.
func (e *Engine) commit(ctx context.Context, assigned []Assignment) error {
	if len(assigned) == 0 {
		return nil
	}

	orderIDs := make([]int, 0)
	clusterIDs := make([]string, 0, len(assigned))
	driverIDs := make([]int, 0, len(assigned))
	for _, a := range assigned {
		orderIDs = append(orderIDs, a.Cluster.OrderIDs()...)
		clusterIDs = append(clusterIDs, a.Cluster.ID)
		driverIDs = append(driverIDs, a.Driver.ID)
	}

	if err := e.Orders.UpdateStatus(ctx, orderIDs, domain.OrderAssigned); err != nil {
		return err
	}
	if err := e.Clusters.UpdateStatus(ctx, clusterIDs, domain.ClusterAssigned); err != nil {
		return err
	}
	if err := e.Drivers.UpdateStatus(ctx, driverIDs, domain.DriverDelivering); err != nil {
		return err
	}
	return nil
}

func (e *Engine) recordRelaxation(ctx context.Context, clusterID string, p *Profile) error {
	if p == nil {
		return nil
	}
	return e.Clusters.RecordRelaxation(ctx, clusterID, domain.RelaxedConstraints{
		MaxHotnessMins:  int(p.Constraints.MaxHotness.Minutes()),
		LatenessTolMins: int(p.Constraints.LatenessTol.Minutes()),
		Log:             append([]string{}, p.Log...),
	})
}
