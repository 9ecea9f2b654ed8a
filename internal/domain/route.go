package domain

// A single maneuver within a route segment, as reported by the route
// provider's turn-by-turn instructions.
type DeliveryStep struct {
	Name              string  `json:"name"`
	Type              int     `json:"type"`
	Distance          float64 `json:"distance"`
	Duration          float64 `json:"duration"`
	DurationFromStart float64 `json:"duration_from_start"`
	Instruction       string  `json:"instruction"`
	WayPoints         []int   `json:"way_points"`
}

// The leg between two consecutive stops. The depot bookends the segment
// list: the first segment starts there and the last one returns there.
type RouteSegment struct {
	Distance          float64         `json:"distance"`
	Duration          float64         `json:"duration"`
	Steps             []DeliveryStep  `json:"steps"`
	SegmentStart      DeliveryAddress `json:"segment_start"`
	SegmentEnd        DeliveryAddress `json:"segment_end"`
	DurationFromStart float64         `json:"duration_from_start"`
	DeliveryAddress   DeliveryAddress `json:"delivery_address"`
}

// Optimised round trip for one cluster. A cluster of N orders always has
// N+1 segments (depot -> stop1, ..., stopN -> depot).
type ClusterRoute struct {
	ID       string         `json:"id"`
	Distance float64        `json:"distance"` // meters
	Duration float64        `json:"duration"` // seconds
	Segments []RouteSegment `json:"segments"`
}
