package domain

import (
	"crypto/rand"
	"encoding/hex"
	"time"
)

type ClusterStatus string

const (
	ClusterToBeAssigned ClusterStatus = "to_be_assigned"
	ClusterAssigned     ClusterStatus = "assigned"
	ClusterDelivered    ClusterStatus = "delivered"
	ClusterCancelled    ClusterStatus = "cancelled"
)

// Thresholds a cluster was relaxed to before it found a driver, kept as an
// audit trail alongside the cluster row.
type RelaxedConstraints struct {
	MaxHotnessMins  int      `json:"max_hotness_mins"`
	LatenessTolMins int      `json:"lateness_tol_mins"`
	Log             []string `json:"log"`
}

// A capacity-bounded, geographically coherent group of orders from one time
// bucket, delivered as a single route by a single courier. Orders are kept
// in route visiting order once the route is computed.
type OrderCluster struct {
	ID                   string
	TimeWindow           time.Time
	Orders               []Order
	TotalItems           int
	EarliestDeliveryTime time.Time
	Route                ClusterRoute
	Status               ClusterStatus
	RelaxedConstraints   *RelaxedConstraints
}

// NewClusterID mints a short opaque token (4 hex chars).
func NewClusterID() string {
	b := make([]byte, 2)
	_, _ = rand.Read(b)
	return hex.EncodeToString(b)
}

// NewOrderCluster derives the cluster aggregates from its member orders.
func NewOrderCluster(timeWindow time.Time, orders []Order) *OrderCluster {
	c := &OrderCluster{
		ID:         NewClusterID(),
		TimeWindow: timeWindow,
		Orders:     orders,
		Status:     ClusterToBeAssigned,
	}
	for i, o := range orders {
		c.TotalItems += o.FoodCount()
		if i == 0 || o.DesiredDeliveryTime.Before(c.EarliestDeliveryTime) {
			c.EarliestDeliveryTime = o.DesiredDeliveryTime
		}
	}
	return c
}

func (c *OrderCluster) OrderIDs() []int {
	ids := make([]int, 0, len(c.Orders))
	for _, o := range c.Orders {
		ids = append(ids, o.ID)
	}
	return ids
}

func (c *OrderCluster) CustomerLocations() []Coordinates {
	locs := make([]Coordinates, 0, len(c.Orders))
	for _, o := range c.Orders {
		locs = append(locs, o.Coordinates())
	}
	return locs
}
