package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"pizza-dispatch-service/internal/domain"
	"pizza-dispatch-service/internal/platform/obs"
)

// Postgres-backed implementation of the DriverRepository port.
type PgDriverRepository struct{ DB *sql.DB }

func NewPgDriverRepository(db *sql.DB) *PgDriverRepository {
	return &PgDriverRepository{DB: db}
}

// ListDispatchable returns active drivers eligible for assignment:
// available, or delivering with estimated_finish_time within the ETA
// threshold, and with both coordinates known.
func (r *PgDriverRepository) ListDispatchable(
	ctx context.Context,
	now time.Time,
	etaThreshold time.Duration,
) (_ []domain.Driver, err error) {
	defer obs.Time(ctx, "drivers.ListDispatchable")(&err)

	if r.DB == nil {
		return nil, errors.New("driver repository: DB is nil")
	}

	query := `
	SELECT
		id,
		user_id,
		full_name,
		is_active,
		status,
		lat,
		lon,
		current_route,
		estimated_finish_time,
		created_at,
		updated_at
	FROM drivers
	WHERE is_active
		AND lat IS NOT NULL
		AND lon IS NOT NULL
		AND (
			status = 'available'
			OR (status = 'delivering' AND estimated_finish_time <= $1)
		)
	ORDER BY id;
	`
	rows, err := r.DB.QueryContext(ctx, query, now.Add(etaThreshold))
	if err != nil {
		return nil, fmt.Errorf("list dispatchable drivers: query drivers table: %w", err)
	}
	defer rows.Close()

	drivers := make([]domain.Driver, 0, 16)
	for rows.Next() {
		var d domain.Driver
		var currentRoute []byte
		var finish sql.NullTime
		err := rows.Scan(
			&d.ID,
			&d.UserID,
			&d.FullName,
			&d.IsActive,
			&d.Status,
			&d.Lat,
			&d.Lon,
			&currentRoute,
			&finish,
			&d.CreatedAt,
			&d.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("list dispatchable drivers: scan row: %w", err)
		}
		if currentRoute != nil {
			d.CurrentRoute = currentRoute
		}
		if finish.Valid {
			t := finish.Time
			d.EstimatedFinishTime = &t
		}
		drivers = append(drivers, d)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list dispatchable drivers: row iteration: %w", err)
	}

	return drivers, nil
}

// UpdateStatus applies one bulk status write for the whole batch.
func (r *PgDriverRepository) UpdateStatus(ctx context.Context, driverIDs []int, status domain.DriverStatus) error {
	if r.DB == nil {
		return errors.New("driver repository: DB is nil")
	}
	if len(driverIDs) == 0 {
		return nil
	}

	query := `
	UPDATE drivers
	SET status = $1,
		updated_at = now()
	WHERE id = ANY($2::int[]);
	`
	if _, err := r.DB.ExecContext(ctx, query, string(status), driverIDs); err != nil {
		return fmt.Errorf("update driver status to %q: %w", status, err)
	}
	return nil
}
