package domain

import "time"

type DriverStatus string

const (
	DriverAvailable  DriverStatus = "available"
	DriverDelivering DriverStatus = "delivering"
	DriverOffline    DriverStatus = "offline"
)

// Mobile courier collecting clusters at the depot.
type Driver struct {
	ID                  int
	UserID              int
	FullName            string
	IsActive            bool
	Status              DriverStatus
	Lat                 *float64
	Lon                 *float64
	CurrentRoute        []byte // opaque JSON payload of the in-flight route
	EstimatedFinishTime *time.Time
	CreatedAt           time.Time
	UpdatedAt           time.Time
}

// Dispatchable reports whether the driver is eligible for assignment:
// available, or delivering with an estimated finish inside the ETA
// threshold, and with a known position either way.
func (d Driver) Dispatchable(now time.Time, etaThreshold time.Duration) bool {
	if d.Lat == nil || d.Lon == nil {
		return false
	}
	switch d.Status {
	case DriverAvailable:
		return true
	case DriverDelivering:
		return d.EstimatedFinishTime != nil && !d.EstimatedFinishTime.After(now.Add(etaThreshold))
	default:
		return false
	}
}

func (d Driver) Coordinates() (Coordinates, bool) {
	if d.Lat == nil || d.Lon == nil {
		return Coordinates{}, false
	}
	return Coordinates{Lon: *d.Lon, Lat: *d.Lat}, true
}
