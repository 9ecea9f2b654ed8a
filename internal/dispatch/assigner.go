package dispatch

import (
	"fmt"
	"math"
	"sort"
	"time"

	"pizza-dispatch-service/internal/domain"
)

// Deferral motivations reported structurally; never errors.
const (
	reasonNoDrivers        = "No drivers available"
	reasonNoDriver         = "No driver available"
	reasonNoFeasibleDriver = "No feasible driver"
	reasonHotness          = "Hotness constraint not met"
)

// A committed driver/cluster pairing.
type Assignment struct {
	Driver        domain.Driver
	Cluster       *domain.OrderCluster
	Cost          float64
	RelaxationLog []string
}

// A cluster left without a courier, with its motivation.
type Deferral struct {
	Cluster *domain.OrderCluster
	Reason  string
}

type SolveResult struct {
	Assigned []Assignment
	Deferred []Deferral
}

// Assigner builds the driver x cluster cost matrix with feasibility
// masking and solves the rectangular assignment.
type Assigner struct {
	Kitchen        *Kitchen
	TimeForPayment time.Duration
}

func NewAssigner(kitchen *Kitchen, timeForPayment time.Duration) *Assigner {
	if timeForPayment <= 0 {
		timeForPayment = 120 * time.Second
	}
	return &Assigner{Kitchen: kitchen, TimeForPayment: timeForPayment}
}

type pairEval struct {
	feasible   bool
	cost       float64
	motivation string
}

// evaluate scores one driver/cluster pairing against the profile.
func (a *Assigner) evaluate(
	driver domain.Driver,
	cluster *domain.OrderCluster,
	profile *Profile,
	now time.Time,
) pairEval {
	latestPrep := a.Kitchen.EstimateReadyTime(cluster.TotalItems, now)
	dispatchReady := now
	if latestPrep.After(dispatchReady) {
		dispatchReady = latestPrep
	}

	driverReady := now
	if driver.EstimatedFinishTime != nil {
		driverReady = *driver.EstimatedFinishTime
	}

	wait := dispatchReady.Sub(driverReady)
	if wait < 0 {
		wait = 0
	}

	// Simulate arrival at each stop: cumulative segment durations plus a
	// fixed payment stop at each door. The final return leg is not a
	// delivery and carries no constraint.
	var maxLateness time.Duration
	t := dispatchReady
	for i, o := range cluster.Orders {
		if i >= len(cluster.Route.Segments) {
			break
		}
		t = t.Add(time.Duration(cluster.Route.Segments[i].Duration * float64(time.Second)))
		t = t.Add(a.TimeForPayment)

		hotness := t.Sub(dispatchReady)
		if hotness > profile.Constraints.MaxHotness {
			return pairEval{motivation: reasonHotness}
		}

		pastWindow := t.Sub(cluster.EarliestDeliveryTime)
		if pastWindow > profile.Constraints.LatenessTol {
			return pairEval{motivation: fmt.Sprintf(
				"Lateness > %d mins",
				int(profile.Constraints.LatenessTol.Minutes()),
			)}
		}

		if late := t.Sub(o.DesiredDeliveryTime); late > maxLateness {
			maxLateness = late
		}
	}

	w := profile.Weights
	cost := w.WaitTime*wait.Seconds() +
		w.MaxLateness*maxLateness.Seconds() +
		w.RouteDuration*cluster.Route.Duration

	return pairEval{feasible: true, cost: cost}
}

// Solve assigns clusters to drivers minimising the weighted cost blend.
// Clusters are considered in ascending earliest-delivery order regardless
// of input order, so results do not depend on upstream scheduling.
func (a *Assigner) Solve(
	clusters []*domain.OrderCluster,
	drivers []domain.Driver,
	profiles map[string]*Profile,
	now time.Time,
) SolveResult {
	result := SolveResult{}
	if len(clusters) == 0 {
		return result
	}

	sorted := append([]*domain.OrderCluster{}, clusters...)
	sort.SliceStable(sorted, func(i, j int) bool {
		if !sorted[i].EarliestDeliveryTime.Equal(sorted[j].EarliestDeliveryTime) {
			return sorted[i].EarliestDeliveryTime.Before(sorted[j].EarliestDeliveryTime)
		}
		return sorted[i].ID < sorted[j].ID
	})

	if len(drivers) == 0 {
		for _, c := range sorted {
			result.Deferred = append(result.Deferred, Deferral{Cluster: c, Reason: reasonNoDrivers})
		}
		return result
	}

	profileFor := func(c *domain.OrderCluster) *Profile {
		if p, ok := profiles[c.ID]; ok && p != nil {
			return p
		}
		return DefaultProfile()
	}

	evals := make([][]pairEval, len(drivers))
	maxFinite := 0.0
	for i, d := range drivers {
		evals[i] = make([]pairEval, len(sorted))
		for j, c := range sorted {
			evals[i][j] = a.evaluate(d, c, profileFor(c), now)
			if evals[i][j].feasible && evals[i][j].cost > maxFinite {
				maxFinite = evals[i][j].cost
			}
		}
	}

	bigM := math.Max(1.0, maxFinite) * 1e6

	cost := make([][]float64, len(drivers))
	for i := range evals {
		cost[i] = make([]float64, len(sorted))
		for j := range evals[i] {
			if evals[i][j].feasible {
				cost[i][j] = evals[i][j].cost
			} else {
				cost[i][j] = bigM
			}
		}
	}

	rowToCol := solveAssignment(cost)

	picked := make([]bool, len(sorted))
	for i, j := range rowToCol {
		if j < 0 {
			continue
		}
		picked[j] = true

		// A selected BIG_M cell is a forced placeholder: the pair is not
		// assigned and the cluster keeps its original motivation.
		if cost[i][j] >= bigM/2 {
			reason := evals[i][j].motivation
			if reason == "" {
				reason = reasonNoFeasibleDriver
			}
			result.Deferred = append(result.Deferred, Deferral{Cluster: sorted[j], Reason: reason})
			continue
		}

		p := profileFor(sorted[j])
		result.Assigned = append(result.Assigned, Assignment{
			Driver:        drivers[i],
			Cluster:       sorted[j],
			Cost:          cost[i][j],
			RelaxationLog: append([]string{}, p.Log...),
		})
	}

	for j, c := range sorted {
		if !picked[j] {
			result.Deferred = append(result.Deferred, Deferral{Cluster: c, Reason: reasonNoDriver})
		}
	}

	return result
}
