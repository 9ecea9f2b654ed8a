package repositories

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"pizza-dispatch-service/internal/domain"
)

type OrderSeed struct {
	CreatorID           int                    `json:"creator_id"`
	CustomerName        string                 `json:"customer_name"`
	CustomerPhone       string                 `json:"customer_phone"`
	DeliveryAddress     domain.DeliveryAddress `json:"delivery_address"`
	Lat                 *float64               `json:"lat"`
	Lon                 *float64               `json:"lon"`
	Items               domain.OrderItems      `json:"items"`
	EstimatedPrepTime   float64                `json:"estimated_prep_time"`
	DesiredDeliveryTime time.Time              `json:"desired_delivery_time"`
	Priority            bool                   `json:"priority"`
}

type DriverSeed struct {
	UserID   int     `json:"user_id"`
	FullName string  `json:"full_name"`
	Lat      float64 `json:"lat"`
	Lon      float64 `json:"lon"`
}

type SeedFile struct {
	Orders  []OrderSeed  `json:"orders"`
	Drivers []DriverSeed `json:"drivers"`
}

// Geocoder resolves a structured address to (lon, lat). The route
// provider satisfies it.
type Geocoder interface {
	GetCoordinates(ctx context.Context, addr domain.DeliveryAddress) (domain.Coordinates, error)
}

// resolveSeedCoordinates returns one coordinate per seed order. Orders
// carrying explicit lat/lon keep them verbatim; the rest are geocoded.
func resolveSeedCoordinates(ctx context.Context, orders []OrderSeed, geocoder Geocoder) ([]domain.Coordinates, error) {
	out := make([]domain.Coordinates, 0, len(orders))
	for i, o := range orders {
		if o.Lat != nil && o.Lon != nil {
			out = append(out, domain.Coordinates{Lon: *o.Lon, Lat: *o.Lat})
			continue
		}
		if geocoder == nil {
			return nil, fmt.Errorf("order at index %d: no lat/lon and no route provider to geocode %q", i+1, o.DeliveryAddress.Address)
		}
		coords, err := geocoder.GetCoordinates(ctx, o.DeliveryAddress)
		if err != nil {
			return nil, fmt.Errorf("order at index %d: geocode %q: %w", i+1, o.DeliveryAddress.Address, err)
		}
		out = append(out, coords)
	}
	return out, nil
}

// Populate the database with fixture orders and drivers from a JSON file.
// Orders without explicit coordinates are geocoded through the provider.
func SeedFromJSON(ctx context.Context, db *sql.DB, jsonPath string, geocoder Geocoder) error {
	raw, err := os.ReadFile(jsonPath)
	if err != nil {
		return fmt.Errorf("seed fixtures: read %q: %w", jsonPath, err)
	}

	var data SeedFile
	if err := json.Unmarshal(raw, &data); err != nil {
		return fmt.Errorf("seed fixtures: parse json: %w", err)
	}

	for i, o := range data.Orders {
		if strings.TrimSpace(o.DeliveryAddress.Address) == "" {
			return fmt.Errorf("seed fixtures: order at index %d: delivery address cannot be empty", i+1)
		}
		if len(o.Items.Food) == 0 {
			return fmt.Errorf("seed fixtures: order at index %d: items.food cannot be empty", i+1)
		}
		if o.DesiredDeliveryTime.IsZero() {
			return fmt.Errorf("seed fixtures: order at index %d: desired_delivery_time is required", i+1)
		}
	}
	for i, d := range data.Drivers {
		if d.UserID <= 0 {
			return fmt.Errorf("seed fixtures: driver at index %d: invalid user_id %d", i+1, d.UserID)
		}
		if strings.TrimSpace(d.FullName) == "" {
			return fmt.Errorf("seed fixtures: driver at index %d: full_name cannot be empty", i+1)
		}
	}

	coords, err := resolveSeedCoordinates(ctx, data.Orders, geocoder)
	if err != nil {
		return fmt.Errorf("seed fixtures: %w", err)
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("seed fixtures: begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	orderQuery := `
	INSERT INTO orders (
		creator_id,
		customer_name,
		customer_phone,
		delivery_address,
		lat,
		lon,
		desired_delivery_time,
		items,
		estimated_prep_time,
		priority
	)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10);
	`
	orderStmt, err := tx.PrepareContext(ctx, orderQuery)
	if err != nil {
		return fmt.Errorf("seed fixtures: prepare order insert: %w", err)
	}
	defer orderStmt.Close()

	for i, o := range data.Orders {
		addrJSON, err := json.Marshal(o.DeliveryAddress)
		if err != nil {
			return fmt.Errorf("seed fixtures: order at index %d: encode address: %w", i+1, err)
		}
		itemsJSON, err := json.Marshal(o.Items)
		if err != nil {
			return fmt.Errorf("seed fixtures: order at index %d: encode items: %w", i+1, err)
		}
		_, err = orderStmt.ExecContext(ctx,
			o.CreatorID,
			o.CustomerName,
			o.CustomerPhone,
			addrJSON,
			coords[i].Lat,
			coords[i].Lon,
			o.DesiredDeliveryTime,
			itemsJSON,
			o.EstimatedPrepTime,
			o.Priority,
		)
		if err != nil {
			return fmt.Errorf("seed fixtures: insert order at index %d: %w", i+1, err)
		}
	}

	driverQuery := `
	INSERT INTO drivers (user_id, full_name, lat, lon)
	VALUES ($1, $2, $3, $4)
	ON CONFLICT (user_id) DO UPDATE
	SET full_name = EXCLUDED.full_name,
		lat = EXCLUDED.lat,
		lon = EXCLUDED.lon;
	`
	driverStmt, err := tx.PrepareContext(ctx, driverQuery)
	if err != nil {
		return fmt.Errorf("seed fixtures: prepare driver insert: %w", err)
	}
	defer driverStmt.Close()

	for i, d := range data.Drivers {
		if _, err := driverStmt.ExecContext(ctx, d.UserID, d.FullName, d.Lat, d.Lon); err != nil {
			return fmt.Errorf("seed fixtures: insert driver user_id=%d at index %d: %w", d.UserID, i+1, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("seed fixtures: commit tx: %w", err)
	}

	return nil
}
