package dispatch

import (
	"fmt"
	"time"

	"pizza-dispatch-service/internal/config"
)

// prep cycle length: pizzas prepped within a cycle all finish together.
const prepCycle = 120 * time.Second

// Kitchen models the production line as two serial stages: a prep stage
// working in fixed cycles and an oven stage working in batches.
type Kitchen struct {
	settings config.KitchenSettings
}

func NewKitchen(s config.KitchenSettings) (*Kitchen, error) {
	if s.Chefs < 1 {
		return nil, fmt.Errorf("kitchen: chefs must be at least 1")
	}
	if _, ok := s.ChefCapacity[s.ChefExperience]; !ok {
		return nil, fmt.Errorf("kitchen: no chef capacity configured for experience %q", s.ChefExperience)
	}
	if _, ok := s.BakeTimes[s.PizzaType]; !ok {
		return nil, fmt.Errorf("kitchen: no bake time configured for pizza type %q", s.PizzaType)
	}
	if s.NumOvens < 1 || s.SingleOvenCapacity < 1 {
		return nil, fmt.Errorf("kitchen: ovens and oven capacity must be at least 1")
	}
	return &Kitchen{settings: s}, nil
}

// prepCapacity is the number of pizzas finished per prep cycle. Two chefs
// sharing mise-en-place outperform double a single chef's throughput.
func (k *Kitchen) prepCapacity() int {
	base := k.settings.ChefCapacity[k.settings.ChefExperience]
	switch {
	case k.settings.Chefs == 1:
		return base
	case k.settings.Chefs == 2:
		return base * 3
	default:
		return base * k.settings.Chefs
	}
}

// EstimateReadyTime returns when the last of totalPizzas is baked and
// ready for pickup, counting from now.
func (k *Kitchen) EstimateReadyTime(totalPizzas int, now time.Time) time.Time {
	if totalPizzas <= 0 {
		return now
	}

	// Prep stage: each cycle finishes min(capacity, remaining) pizzas,
	// all sharing the cycle's finish offset.
	capacity := k.prepCapacity()
	prepFinish := make([]time.Duration, 0, totalPizzas)
	remaining := totalPizzas
	cycle := 0
	for remaining > 0 {
		cycle++
		batch := capacity
		if remaining < batch {
			batch = remaining
		}
		finish := time.Duration(cycle) * prepCycle
		for i := 0; i < batch; i++ {
			prepFinish = append(prepFinish, finish)
		}
		remaining -= batch
	}

	// Bake stage: pizzas enter the ovens in prep-finish order in batches
	// of the combined oven capacity. A batch cannot start before its last
	// pizza is prepped nor before the ovens are free.
	batchSize := k.settings.NumOvens * k.settings.SingleOvenCapacity
	bakeTime := k.settings.BakeTimes[k.settings.PizzaType]

	var ovenFree time.Duration
	var lastFinish time.Duration
	for start := 0; start < totalPizzas; start += batchSize {
		end := start + batchSize
		if end > totalPizzas {
			end = totalPizzas
		}
		lastPrep := prepFinish[end-1]

		batchStart := lastPrep
		if ovenFree > batchStart {
			batchStart = ovenFree
		}
		batchFinish := batchStart + bakeTime

		ovenFree = batchFinish
		if batchFinish > lastFinish {
			lastFinish = batchFinish
		}
	}

	return now.Add(lastFinish)
}
