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

// Postgres-backed implementation of the ClusterRepository port.
type PgClusterRepository struct{ DB *sql.DB }

func NewPgClusterRepository(db *sql.DB) *PgClusterRepository {
	return &PgClusterRepository{DB: db}
}

// Create inserts the cluster row and its order join rows in one
// transaction, so a cluster is never visible without its members.
func (r *PgClusterRepository) Create(ctx context.Context, cluster *domain.OrderCluster) (err error) {
	defer obs.Time(ctx, "clusters.Create")(&err)

	if r.DB == nil {
		return errors.New("cluster repository: DB is nil")
	}
	if cluster == nil {
		return errors.New("create cluster: cluster is nil")
	}

	routeJSON, err := json.Marshal(cluster.Route)
	if err != nil {
		return fmt.Errorf("create cluster %s: encode route: %w", cluster.ID, err)
	}

	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("create cluster %s: begin tx: %w", cluster.ID, err)
	}
	defer func() { _ = tx.Rollback() }()

	insertCluster := `
	INSERT INTO order_clusters (
		id,
		time_window,
		total_items,
		earliest_delivery_time,
		cluster_route,
		cluster_status
	)
	VALUES ($1, $2, $3, $4, $5, $6);
	`
	_, err = tx.ExecContext(ctx, insertCluster,
		cluster.ID,
		cluster.TimeWindow,
		cluster.TotalItems,
		cluster.EarliestDeliveryTime,
		routeJSON,
		string(cluster.Status),
	)
	if err != nil {
		return fmt.Errorf("create cluster %s: insert row: %w", cluster.ID, err)
	}

	insertAssoc := `
	INSERT INTO order_cluster_association (cluster_id, order_id)
	VALUES ($1, $2);
	`
	stmt, err := tx.PrepareContext(ctx, insertAssoc)
	if err != nil {
		return fmt.Errorf("create cluster %s: prepare association insert: %w", cluster.ID, err)
	}
	defer stmt.Close()

	for _, orderID := range cluster.OrderIDs() {
		if _, err := stmt.ExecContext(ctx, cluster.ID, orderID); err != nil {
			return fmt.Errorf("create cluster %s: insert association order_id=%d: %w", cluster.ID, orderID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("create cluster %s: commit tx: %w", cluster.ID, err)
	}

	return nil
}

// UpdateStatus applies one bulk status write for the whole batch.
func (r *PgClusterRepository) UpdateStatus(ctx context.Context, clusterIDs []string, status domain.ClusterStatus) error {
	if r.DB == nil {
		return errors.New("cluster repository: DB is nil")
	}
	if len(clusterIDs) == 0 {
		return nil
	}

	query := `
	UPDATE order_clusters
	SET cluster_status = $1
	WHERE id = ANY($2::text[]);
	`
	if _, err := r.DB.ExecContext(ctx, query, string(status), clusterIDs); err != nil {
		return fmt.Errorf("update cluster status to %q: %w", status, err)
	}
	return nil
}

// RecordRelaxation stores the thresholds a cluster was relaxed to.
func (r *PgClusterRepository) RecordRelaxation(ctx context.Context, clusterID string, rc domain.RelaxedConstraints) error {
	if r.DB == nil {
		return errors.New("cluster repository: DB is nil")
	}

	raw, err := json.Marshal(rc)
	if err != nil {
		return fmt.Errorf("record relaxation for cluster %s: encode: %w", clusterID, err)
	}

	query := `
	UPDATE order_clusters
	SET relaxed_constraints = $1
	WHERE id = $2;
	`
	if _, err := r.DB.ExecContext(ctx, query, raw, clusterID); err != nil {
		return fmt.Errorf("record relaxation for cluster %s: %w", clusterID, err)
	}
	return nil
}
