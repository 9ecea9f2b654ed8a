package domain

import "time"

type OrderStatus string

const (
	OrderPending    OrderStatus = "pending"
	OrderPreparing  OrderStatus = "preparing"
	OrderAssigned   OrderStatus = "assigned"
	OrderDelivering OrderStatus = "delivering"
	OrderDelivered  OrderStatus = "delivered"
	OrderCancelled  OrderStatus = "cancelled"
)

// Structured delivery address, persisted as a JSON column.
type DeliveryAddress struct {
	Address    string `json:"address"`
	PostalCode string `json:"postal_code"`
	City       string `json:"city"`
	Country    string `json:"country"`
}

// Item inventory of an order, persisted as a JSON column.
// Capacity accounting counts Food only; drinks do not occupy oven slots.
type OrderItems struct {
	Food  []string `json:"food"`
	Drink []string `json:"drink"`
}

// Represents a single customer order handled by the dispatch engine.
// Orders are created by the order-intake collaborator; the engine only
// advances their status.
type Order struct {
	ID                  int
	CreatorID           int
	CustomerName        string
	CustomerPhone       string
	DeliveryAddress     DeliveryAddress
	Lat                 float64
	Lon                 float64
	Items               OrderItems
	EstimatedPrepTime   float64 // minutes, informational only; the kitchen model owns timing
	DesiredDeliveryTime time.Time
	Priority            bool
	Status              OrderStatus
	CreatedAt           time.Time
}

func (o Order) Coordinates() Coordinates { return Coordinates{Lon: o.Lon, Lat: o.Lat} }

// FoodCount is the number of pizzas the order contributes to a cluster.
func (o Order) FoodCount() int { return len(o.Items.Food) }
