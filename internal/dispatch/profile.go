package dispatch

import "time"

// Hard feasibility bounds applied to a driver/cluster pairing.
type Constraints struct {
	MaxHotness  time.Duration // dispatch-to-door bound per stop
	LatenessTol time.Duration // bound past the cluster's earliest desired time
}

// Cost blend weights. Terms are in seconds before weighting.
type Weights struct {
	WaitTime      float64
	MaxLateness   float64
	RouteDuration float64
}

// Per-cluster assignment profile. Relaxation strategies loosen the
// constraints between rounds and append to the log; the cluster itself is
// never mutated.
type Profile struct {
	Constraints Constraints
	Weights     Weights
	Log         []string
}

const (
	defaultMaxHotness  = 20 * time.Minute
	defaultLatenessTol = 10 * time.Minute
)

func DefaultProfile() *Profile {
	return &Profile{
		Constraints: Constraints{
			MaxHotness:  defaultMaxHotness,
			LatenessTol: defaultLatenessTol,
		},
		Weights: Weights{
			WaitTime:      0.2,
			MaxLateness:   0.5,
			RouteDuration: 0.3,
		},
	}
}
