package dispatch

import (
	"context"
	"fmt"
	"log"
	"time"

	"pizza-dispatch-service/internal/domain"
	"pizza-dispatch-service/internal/platform/obs"
)

// A relaxation strategy loosens one constraint of a profile for the given
// round and records what it did. Strategies must be monotone: round n+1
// is never stricter than round n.
type Strategy struct {
	Name  string
	Apply func(p *Profile, round int)
}

// Canonical strategies. Both rebuild the threshold from the default and
// the round number, so skipped rounds cannot under-relax.
var (
	RelaxHotness = Strategy{
		Name: "relax_hotness",
		Apply: func(p *Profile, round int) {
			mins := 20 + 5*round
			p.Constraints.MaxHotness = time.Duration(mins) * time.Minute
			p.Log = append(p.Log, fmt.Sprintf("Relaxed hotness tolerance to %d mins", mins))
		},
	}

	RelaxLateness = Strategy{
		Name: "relax_lateness",
		Apply: func(p *Profile, round int) {
			mins := 10 + 5*round
			p.Constraints.LatenessTol = time.Duration(mins) * time.Minute
			p.Log = append(p.Log, fmt.Sprintf("Relaxed lateness tolerance to %d mins", mins))
		},
	}
)

func DefaultStrategies() []Strategy {
	return []Strategy{RelaxHotness, RelaxLateness}
}

// RelaxationController salvages deferred clusters by progressively
// loosening their profiles and re-solving against the remaining drivers.
type RelaxationController struct {
	Assigner   *Assigner
	Strategies []Strategy
	MaxRounds  int
}

func NewRelaxationController(assigner *Assigner, strategies []Strategy, maxRounds int) *RelaxationController {
	if maxRounds < 1 {
		maxRounds = 3
	}
	if len(strategies) == 0 {
		strategies = DefaultStrategies()
	}
	return &RelaxationController{Assigner: assigner, Strategies: strategies, MaxRounds: maxRounds}
}

// Salvage runs up to MaxRounds relaxation rounds. commit is invoked once
// per round with that round's wins so status updates land incrementally.
// It returns the salvaged assignments and the clusters still deferred.
func (rc *RelaxationController) Salvage(
	ctx context.Context,
	deferred []Deferral,
	remainingDrivers []domain.Driver,
	profiles map[string]*Profile,
	now time.Time,
	commit func(ctx context.Context, won []Assignment) error,
) (_ []Assignment, _ []Deferral, err error) {
	defer obs.Time(ctx, "relax.Salvage")(&err)

	salvaged := make([]Assignment, 0)

	for round := 1; round <= rc.MaxRounds; round++ {
		if len(deferred) == 0 || len(remainingDrivers) == 0 {
			break
		}
		if err := ctx.Err(); err != nil {
			return salvaged, deferred, err
		}

		clusters := make([]*domain.OrderCluster, 0, len(deferred))
		for _, d := range deferred {
			clusters = append(clusters, d.Cluster)

			p, ok := profiles[d.Cluster.ID]
			if !ok || p == nil {
				p = DefaultProfile()
				profiles[d.Cluster.ID] = p
			}
			for _, s := range rc.Strategies {
				s.Apply(p, round)
			}
		}

		result := rc.Assigner.Solve(clusters, remainingDrivers, profiles, now)

		log.Printf(
			"run_id=%s op=relax.round round=%d assigned=%d deferred=%d",
			obs.RunID(ctx), round, len(result.Assigned), len(result.Deferred),
		)

		if len(result.Assigned) == 0 {
			// Constraints keep loosening each round, so a fruitless round
			// can still pay off on the next one.
			deferred = result.Deferred
			continue
		}

		if commit != nil {
			if err := commit(ctx, result.Assigned); err != nil {
				return salvaged, deferred, fmt.Errorf("relaxation round %d: commit: %w", round, err)
			}
		}

		salvaged = append(salvaged, result.Assigned...)
		deferred = result.Deferred

		assignedDrivers := make(map[int]struct{}, len(result.Assigned))
		for _, a := range result.Assigned {
			assignedDrivers[a.Driver.ID] = struct{}{}
		}
		still := remainingDrivers[:0:0]
		for _, d := range remainingDrivers {
			if _, ok := assignedDrivers[d.ID]; !ok {
				still = append(still, d)
			}
		}
		remainingDrivers = still
	}

	return salvaged, deferred, nil
}
