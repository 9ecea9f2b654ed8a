package routing

import (
	"fmt"

	"pizza-dispatch-service/internal/config"
	"pizza-dispatch-service/internal/ports"
)

// NewFromSettings builds the configured route planner implementation.
// Only openrouteservice is supported today; an unknown provider name is a
// configuration error.
func NewFromSettings(s config.ProviderSettings, opts ...Option) (ports.RoutePlanner, error) {
	switch s.Provider {
	case "openrouteservice":
		if s.Units != "" {
			opts = append([]Option{WithUnits(s.Units)}, opts...)
		}
		return NewORSRoutePlanner(s.APIKey, s.Profile, s.Metric, opts...)
	default:
		return nil, fmt.Errorf("unsupported route service provider: %q", s.Provider)
	}
}
