package dispatch

import (
	"context"
	"strings"
	"testing"
	"time"

	"pizza-dispatch-service/internal/adapters/routing"
	"pizza-dispatch-service/internal/config"
	"pizza-dispatch-service/internal/domain"
	"pizza-dispatch-service/internal/ports"
)

type fakeOrderRepo struct {
	orders  []domain.Order
	listErr error
	updates map[domain.OrderStatus][]int
}

func (r *fakeOrderRepo) ListPending(ctx context.Context) ([]domain.Order, error) {
	if r.listErr != nil {
		return nil, r.listErr
	}
	return append([]domain.Order{}, r.orders...), nil
}

func (r *fakeOrderRepo) UpdateStatus(ctx context.Context, orderIDs []int, status domain.OrderStatus) error {
	if r.updates == nil {
		r.updates = map[domain.OrderStatus][]int{}
	}
	r.updates[status] = append(r.updates[status], orderIDs...)
	return nil
}

type fakeDriverRepo struct {
	drivers []domain.Driver
	updates map[domain.DriverStatus][]int
}

func (r *fakeDriverRepo) ListDispatchable(ctx context.Context, now time.Time, etaThreshold time.Duration) ([]domain.Driver, error) {
	return append([]domain.Driver{}, r.drivers...), nil
}

func (r *fakeDriverRepo) UpdateStatus(ctx context.Context, driverIDs []int, status domain.DriverStatus) error {
	if r.updates == nil {
		r.updates = map[domain.DriverStatus][]int{}
	}
	r.updates[status] = append(r.updates[status], driverIDs...)
	return nil
}

type fakeClusterRepo struct {
	created     []*domain.OrderCluster
	statuses    map[domain.ClusterStatus][]string
	relaxations map[string]domain.RelaxedConstraints
}

func (r *fakeClusterRepo) Create(ctx context.Context, cluster *domain.OrderCluster) error {
	r.created = append(r.created, cluster)
	return nil
}

func (r *fakeClusterRepo) UpdateStatus(ctx context.Context, clusterIDs []string, status domain.ClusterStatus) error {
	if r.statuses == nil {
		r.statuses = map[domain.ClusterStatus][]string{}
	}
	r.statuses[status] = append(r.statuses[status], clusterIDs...)
	return nil
}

func (r *fakeClusterRepo) RecordRelaxation(ctx context.Context, clusterID string, rc domain.RelaxedConstraints) error {
	if r.relaxations == nil {
		r.relaxations = map[string]domain.RelaxedConstraints{}
	}
	r.relaxations[clusterID] = rc
	return nil
}

func newTestEngine(t *testing.T, orders []domain.Order, drivers []domain.Driver, planner ports.RoutePlanner) (*Engine, *fakeOrderRepo, *fakeDriverRepo, *fakeClusterRepo) {
	t.Helper()

	orderRepo := &fakeOrderRepo{orders: orders}
	driverRepo := &fakeDriverRepo{drivers: drivers}
	clusterRepo := &fakeClusterRepo{}

	engine := &Engine{
		Orders:   orderRepo,
		Drivers:  driverRepo,
		Clusters: clusterRepo,
		Planner:  planner,
		Kitchen:  testKitchen(t, 2),
		Clustering: config.ClusteringSettings{
			MaxPizzasPerCluster: 10,
			TimeWindowMinutes:   15,
			DistanceThreshold:   7200,
			DepotCoordinates:    testDepot.Coordinates,
			DepotAddress:        testDepot.Address,
		},
		ETAThreshold:   10 * time.Minute,
		TimeForPayment: 120 * time.Second,
		MaxRelaxRounds: 3,
		Strategies:     DefaultStrategies(),
		NowFunc:        func() time.Time { return testNow },
	}
	return engine, orderRepo, driverRepo, clusterRepo
}

func TestRunAssignsSingleBucket(t *testing.T) {
	desired := testNow.Add(time.Hour)
	orders := []domain.Order{
		pizzaOrder(1, 45.479426, 9.210024, desired, 1),
		pizzaOrder(2, 45.479812, 9.210421, desired, 1),
		pizzaOrder(3, 45.480500, 9.212000, desired, 1),
	}
	drivers := []domain.Driver{availableDriver(7)}

	engine, orderRepo, driverRepo, clusterRepo := newTestEngine(t, orders, drivers, &routing.MockRoutePlanner{})

	result, err := engine.Run(context.Background())
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if len(result.DriverToCluster) != 1 {
		t.Fatalf("expected 1 assignment, got %d", len(result.DriverToCluster))
	}
	if len(result.Unassigned) != 0 {
		t.Fatalf("expected no deferrals, got %+v", result.Unassigned)
	}

	asg, ok := result.DriverToCluster[7]
	if !ok {
		t.Fatal("expected driver 7 in the result")
	}
	if asg.Cluster.TotalItems != 3 {
		t.Errorf("expected 3 pizzas in the cluster, got %d", asg.Cluster.TotalItems)
	}
	if len(asg.Cluster.Route.Segments) != 4 {
		t.Errorf("expected 4 route segments for 3 stops, got %d", len(asg.Cluster.Route.Segments))
	}

	if len(clusterRepo.created) != 1 {
		t.Fatalf("expected 1 persisted cluster, got %d", len(clusterRepo.created))
	}
	if got := clusterRepo.statuses[domain.ClusterAssigned]; len(got) != 1 || got[0] != asg.Cluster.ID {
		t.Errorf("expected cluster %s marked assigned, got %v", asg.Cluster.ID, got)
	}
	if got := orderRepo.updates[domain.OrderAssigned]; len(got) != 3 {
		t.Errorf("expected 3 orders marked assigned, got %v", got)
	}
	if got := driverRepo.updates[domain.DriverDelivering]; len(got) != 1 || got[0] != 7 {
		t.Errorf("expected driver 7 marked delivering, got %v", got)
	}
}

func TestRunBucketsSeparately(t *testing.T) {
	orders := []domain.Order{
		pizzaOrder(1, 45.479426, 9.210024, testNow.Add(time.Hour), 1),
		pizzaOrder(2, 45.479812, 9.210421, testNow.Add(80*time.Minute), 1),
	}
	drivers := []domain.Driver{availableDriver(7), availableDriver(8)}

	engine, _, _, clusterRepo := newTestEngine(t, orders, drivers, &routing.MockRoutePlanner{})

	result, err := engine.Run(context.Background())
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if len(clusterRepo.created) != 2 {
		t.Fatalf("expected one cluster per time bucket, got %d", len(clusterRepo.created))
	}
	if len(result.DriverToCluster) != 2 || len(result.Unassigned) != 0 {
		t.Fatalf("expected both clusters assigned, got %d assigned and %d deferred",
			len(result.DriverToCluster), len(result.Unassigned))
	}
}

func TestRunNoPendingOrders(t *testing.T) {
	planner := &routing.MockRoutePlanner{}
	engine, _, _, clusterRepo := newTestEngine(t, nil, []domain.Driver{availableDriver(7)}, planner)

	result, err := engine.Run(context.Background())
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if len(result.DriverToCluster) != 0 || len(result.Unassigned) != 0 {
		t.Fatalf("expected an empty result, got %+v", result)
	}
	if len(clusterRepo.created) != 0 {
		t.Errorf("expected no clusters, got %d", len(clusterRepo.created))
	}
	if planner.MatrixCalls != 0 || planner.DirectionsCalls != 0 {
		t.Errorf("expected no provider calls, got %d matrix and %d directions",
			planner.MatrixCalls, planner.DirectionsCalls)
	}
}

func TestRunProviderFailureAbortsBeforeCommit(t *testing.T) {
	desired := testNow.Add(time.Hour)
	orders := []domain.Order{
		pizzaOrder(1, 45.479426, 9.210024, desired, 1),
		pizzaOrder(2, 45.479812, 9.210421, desired, 1),
	}
	drivers := []domain.Driver{availableDriver(7)}

	engine, orderRepo, driverRepo, clusterRepo := newTestEngine(t, orders, drivers, &routing.MockRoutePlanner{FailMatrix: true})

	if _, err := engine.Run(context.Background()); err == nil {
		t.Fatal("expected the run to fail on a provider error")
	}

	if len(clusterRepo.created) != 0 {
		t.Errorf("expected no persisted clusters, got %d", len(clusterRepo.created))
	}
	if len(orderRepo.updates) != 0 {
		t.Errorf("expected no order status changes, got %v", orderRepo.updates)
	}
	if len(driverRepo.updates) != 0 {
		t.Errorf("expected no driver status changes, got %v", driverRepo.updates)
	}
}

func TestRunNoDriversDefersEverything(t *testing.T) {
	desired := testNow.Add(time.Hour)
	orders := []domain.Order{pizzaOrder(1, 45.479426, 9.210024, desired, 1)}

	engine, orderRepo, _, clusterRepo := newTestEngine(t, orders, nil, &routing.MockRoutePlanner{})

	result, err := engine.Run(context.Background())
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if len(result.Unassigned) != 1 || result.Unassigned[0].Reason != "No drivers available" {
		t.Fatalf("unexpected deferrals %+v", result.Unassigned)
	}

	// Deferred clusters are still persisted as an audit trail, but no
	// status flips happen.
	if len(clusterRepo.created) != 1 {
		t.Errorf("expected the cluster persisted, got %d", len(clusterRepo.created))
	}
	if len(clusterRepo.statuses) != 0 {
		t.Errorf("expected no cluster status changes, got %v", clusterRepo.statuses)
	}
	if len(orderRepo.updates) != 0 {
		t.Errorf("expected orders to stay pending, got %v", orderRepo.updates)
	}
}

func TestRunFiltersIneligibleDrivers(t *testing.T) {
	desired := testNow.Add(time.Hour)
	orders := []domain.Order{pizzaOrder(1, 45.479426, 9.210024, desired, 1)}

	// Still out on a long delivery: past the ETA threshold even if the
	// repository returned it.
	finish := testNow.Add(30 * time.Minute)
	busy := availableDriver(7)
	busy.Status = domain.DriverDelivering
	busy.EstimatedFinishTime = &finish

	engine, _, _, _ := newTestEngine(t, orders, []domain.Driver{busy}, &routing.MockRoutePlanner{})

	result, err := engine.Run(context.Background())
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if len(result.DriverToCluster) != 0 {
		t.Fatalf("expected no assignments, got %d", len(result.DriverToCluster))
	}
	if len(result.Unassigned) != 1 || result.Unassigned[0].Reason != "No drivers available" {
		t.Fatalf("unexpected deferrals %+v", result.Unassigned)
	}
}

func TestRunRelaxationSalvagesAndRecordsConstraints(t *testing.T) {
	// A stop roughly 10 km out: about 23 minutes door to door, over
	// the strict 20 minute hotness bound but inside round one's 25.
	desired := testNow.Add(time.Hour)
	orders := []domain.Order{pizzaOrder(1, 45.553700, 9.188569, desired, 1)}
	drivers := []domain.Driver{availableDriver(7)}

	engine, orderRepo, driverRepo, clusterRepo := newTestEngine(t, orders, drivers, &routing.MockRoutePlanner{})

	result, err := engine.Run(context.Background())
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	asg, ok := result.DriverToCluster[7]
	if !ok {
		t.Fatalf("expected the cluster salvaged by relaxation, got %+v", result)
	}

	foundHotnessLine := false
	for _, line := range asg.RelaxationLog {
		if line == "Relaxed hotness tolerance to 25 mins" {
			foundHotnessLine = true
		}
	}
	if !foundHotnessLine {
		t.Errorf("expected the hotness relaxation logged, got %v", asg.RelaxationLog)
	}

	rc, ok := clusterRepo.relaxations[asg.Cluster.ID]
	if !ok {
		t.Fatal("expected the relaxed constraints recorded")
	}
	if rc.MaxHotnessMins != 25 || rc.LatenessTolMins != 15 {
		t.Errorf("expected thresholds 25/15, got %d/%d", rc.MaxHotnessMins, rc.LatenessTolMins)
	}

	if got := orderRepo.updates[domain.OrderAssigned]; len(got) != 1 || got[0] != 1 {
		t.Errorf("expected order 1 marked assigned, got %v", got)
	}
	if got := driverRepo.updates[domain.DriverDelivering]; len(got) != 1 || got[0] != 7 {
		t.Errorf("expected driver 7 marked delivering, got %v", got)
	}
}

func TestRunCancelledContext(t *testing.T) {
	desired := testNow.Add(time.Hour)
	orders := []domain.Order{pizzaOrder(1, 45.479426, 9.210024, desired, 1)}

	engine, orderRepo, _, _ := newTestEngine(t, orders, []domain.Driver{availableDriver(7)}, &routing.MockRoutePlanner{})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := engine.Run(ctx); err == nil {
		t.Fatal("expected a context error")
	} else if !strings.Contains(err.Error(), context.Canceled.Error()) {
		t.Errorf("expected a cancellation error, got %v", err)
	}

	if len(orderRepo.updates) != 0 {
		t.Errorf("expected no order status changes after cancellation, got %v", orderRepo.updates)
	}
}
