package repositories

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"pizza-dispatch-service/internal/domain"
	"pizza-dispatch-service/internal/platform/obs"
)

// Postgres-backed implementation of the OrderRepository port.
type PgOrderRepository struct{ DB *sql.DB }

func NewPgOrderRepository(db *sql.DB) *PgOrderRepository {
	return &PgOrderRepository{DB: db}
}

// ListPending returns all orders with status = pending, oldest first.
func (r *PgOrderRepository) ListPending(ctx context.Context) (_ []domain.Order, err error) {
	defer obs.Time(ctx, "orders.ListPending")(&err)

	if r.DB == nil {
		return nil, errors.New("order repository: DB is nil")
	}

	query := `
	SELECT
		id,
		creator_id,
		COALESCE(customer_name, ''),
		COALESCE(customer_phone, ''),
		delivery_address,
		lat,
		lon,
		desired_delivery_time,
		items,
		status,
		created_at,
		estimated_prep_time,
		priority
	FROM orders
	WHERE status = 'pending'
	ORDER BY id;
	`
	rows, err := r.DB.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list pending orders: query orders table: %w", err)
	}
	defer rows.Close()

	orders := make([]domain.Order, 0, 64)
	for rows.Next() {
		var o domain.Order
		var addressJSON, itemsJSON []byte
		err := rows.Scan(
			&o.ID,
			&o.CreatorID,
			&o.CustomerName,
			&o.CustomerPhone,
			&addressJSON,
			&o.Lat,
			&o.Lon,
			&o.DesiredDeliveryTime,
			&itemsJSON,
			&o.Status,
			&o.CreatedAt,
			&o.EstimatedPrepTime,
			&o.Priority,
		)
		if err != nil {
			return nil, fmt.Errorf("list pending orders: scan row: %w", err)
		}
		if err := json.Unmarshal(addressJSON, &o.DeliveryAddress); err != nil {
			return nil, fmt.Errorf("list pending orders: order %d: decode delivery_address: %w", o.ID, err)
		}
		if err := json.Unmarshal(itemsJSON, &o.Items); err != nil {
			return nil, fmt.Errorf("list pending orders: order %d: decode items: %w", o.ID, err)
		}
		orders = append(orders, o)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list pending orders: row iteration: %w", err)
	}

	return orders, nil
}

// UpdateStatus applies one bulk status write for the whole batch.
func (r *PgOrderRepository) UpdateStatus(ctx context.Context, orderIDs []int, status domain.OrderStatus) error {
	if r.DB == nil {
		return errors.New("order repository: DB is nil")
	}
	if len(orderIDs) == 0 {
		return nil
	}

	query := `
	UPDATE orders
	SET status = $1
	WHERE id = ANY($2::int[]);
	`
	if _, err := r.DB.ExecContext(ctx, query, string(status), orderIDs); err != nil {
		return fmt.Errorf("update order status to %q: %w", status, err)
	}
	return nil
}
