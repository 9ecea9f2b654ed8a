package repositories

import (
	"database/sql"
	"errors"
	"fmt"
)

// Initialize the database schema.
func InitSchema(db *sql.DB) error {
	if db == nil {
		return errors.New("init schema: DB is nil")
	}

	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("init schema: begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	createOrdersQuery := `
	CREATE TABLE IF NOT EXISTS orders (
		id SERIAL PRIMARY KEY,
		creator_id INTEGER NOT NULL,
		customer_name TEXT,
		customer_phone TEXT,
		delivery_address JSONB NOT NULL,
		lat DOUBLE PRECISION NOT NULL,
		lon DOUBLE PRECISION NOT NULL,
		desired_delivery_time TIMESTAMPTZ NOT NULL,
		items JSONB NOT NULL,
		status TEXT NOT NULL DEFAULT 'pending',
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		estimated_prep_time DOUBLE PRECISION NOT NULL DEFAULT 0,
		priority BOOLEAN NOT NULL DEFAULT FALSE
	);
	`

	createDriversQuery := `
	CREATE TABLE IF NOT EXISTS drivers (
		id SERIAL PRIMARY KEY,
		user_id INTEGER UNIQUE NOT NULL,
		full_name TEXT NOT NULL,
		is_active BOOLEAN NOT NULL DEFAULT TRUE,
		status TEXT NOT NULL DEFAULT 'available',
		lat DOUBLE PRECISION,
		lon DOUBLE PRECISION,
		current_route JSONB,
		estimated_finish_time TIMESTAMPTZ,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
	);
	`

	createClustersQuery := `
	CREATE TABLE IF NOT EXISTS order_clusters (
		id TEXT PRIMARY KEY,
		time_window TIMESTAMPTZ NOT NULL,
		total_items INTEGER NOT NULL,
		earliest_delivery_time TIMESTAMPTZ NOT NULL,
		cluster_route JSONB NOT NULL,
		cluster_status TEXT NOT NULL DEFAULT 'to_be_assigned',
		relaxed_constraints JSONB
	);
	`

	createAssociationQuery := `
	CREATE TABLE IF NOT EXISTS order_cluster_association (
		cluster_id TEXT NOT NULL REFERENCES order_clusters(id),
		order_id INTEGER NOT NULL REFERENCES orders(id),
		PRIMARY KEY (cluster_id, order_id)
	);
	`

	createGeocodeCacheQuery := `
	CREATE TABLE IF NOT EXISTS geocode_cache (
		address TEXT PRIMARY KEY,
		lon DOUBLE PRECISION NOT NULL,
		lat DOUBLE PRECISION NOT NULL
	);
	`

	createOrderStatusIndexQuery := `
	CREATE INDEX IF NOT EXISTS idx_orders_status ON orders(status);
	`

	createDriverStatusIndexQuery := `
	CREATE INDEX IF NOT EXISTS idx_drivers_status ON drivers(status);
	`

	statements := []string{
		createOrdersQuery,
		createDriversQuery,
		createClustersQuery,
		createAssociationQuery,
		createGeocodeCacheQuery,
		createOrderStatusIndexQuery,
		createDriverStatusIndexQuery,
	}

	for i, stmt := range statements {
		if _, err := tx.Exec(stmt); err != nil {
			return fmt.Errorf("init schema: exec statement #%d: %w", i+1, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("init schema: commit tx: %w", err)
	}

	return nil
}
