package dispatch

import (
	"context"
	"fmt"
	"sort"

	"pizza-dispatch-service/internal/domain"
	"pizza-dispatch-service/internal/ports"
)

// ClusterByProximity partitions one time bucket's orders into groups that
// travel well together, then splits each group into capacity-bounded
// sub-clusters.
//
// Grouping is agglomerative hierarchical clustering with average linkage
// over the provider's pairwise travel matrix; merging stops once the
// closest pair of groups is farther apart than distanceThreshold
// (expressed in the matrix's native unit).
func ClusterByProximity(
	ctx context.Context,
	planner ports.RoutePlanner,
	orders []domain.Order,
	maxItemsPerCluster int,
	distanceThreshold float64,
) ([][]domain.Order, error) {
	if len(orders) < 2 {
		if len(orders) == 0 {
			return [][]domain.Order{}, nil
		}
		return [][]domain.Order{orders}, nil
	}

	coords := make([]domain.Coordinates, 0, len(orders))
	for _, o := range orders {
		coords = append(coords, o.Coordinates())
	}

	matrix, err := planner.DistanceMatrix(ctx, coords)
	if err != nil {
		return nil, fmt.Errorf("cluster orders: %w", err)
	}
	if len(matrix) != len(orders) {
		return nil, fmt.Errorf("cluster orders: matrix has %d rows for %d orders", len(matrix), len(orders))
	}

	labels := agglomerate(matrix, distanceThreshold)

	grouped := groupByLabel(orders, labels)

	out := make([][]domain.Order, 0, len(grouped))
	for _, group := range grouped {
		out = append(out, splitByCapacity(group, maxItemsPerCluster)...)
	}

	return out, nil
}

// agglomerate runs average-linkage clustering over a precomputed travel
// matrix and returns a group label per point. Travel matrices are not
// symmetric; the two directions are averaged.
func agglomerate(matrix [][]float64, threshold float64) []int {
	n := len(matrix)

	dissim := make([][]float64, n)
	for i := range dissim {
		dissim[i] = make([]float64, n)
		for j := range dissim[i] {
			dissim[i][j] = (matrix[i][j] + matrix[j][i]) / 2
		}
	}

	// Each active cluster holds its member indices in ascending order.
	clusters := make([][]int, 0, n)
	for i := 0; i < n; i++ {
		clusters = append(clusters, []int{i})
	}

	linkage := func(a, b []int) float64 {
		total := 0.0
		for _, i := range a {
			for _, j := range b {
				total += dissim[i][j]
			}
		}
		return total / float64(len(a)*len(b))
	}

	for len(clusters) > 1 {
		bestA, bestB := -1, -1
		bestDist := 0.0
		for a := 0; a < len(clusters); a++ {
			for b := a + 1; b < len(clusters); b++ {
				d := linkage(clusters[a], clusters[b])
				if bestA == -1 || d < bestDist {
					bestA, bestB, bestDist = a, b, d
				}
			}
		}

		if bestDist > threshold {
			break
		}

		merged := append(append([]int{}, clusters[bestA]...), clusters[bestB]...)
		sort.Ints(merged)

		next := make([][]int, 0, len(clusters)-1)
		for i, c := range clusters {
			if i != bestA && i != bestB {
				next = append(next, c)
			}
		}
		clusters = append(next, merged)
	}

	// Label groups by their smallest member so output order is stable
	// with respect to input order.
	sort.Slice(clusters, func(a, b int) bool { return clusters[a][0] < clusters[b][0] })

	labels := make([]int, n)
	for label, c := range clusters {
		for _, i := range c {
			labels[i] = label
		}
	}
	return labels
}

func groupByLabel(orders []domain.Order, labels []int) [][]domain.Order {
	count := 0
	for _, l := range labels {
		if l+1 > count {
			count = l + 1
		}
	}

	grouped := make([][]domain.Order, count)
	for i, o := range orders {
		grouped[labels[i]] = append(grouped[labels[i]], o)
	}
	return grouped
}

// splitByCapacity walks a group in order, accumulating food counts and
// emitting a sub-cluster whenever the next order would exceed the cap.
func splitByCapacity(group []domain.Order, maxItems int) [][]domain.Order {
	if maxItems < 1 {
		return [][]domain.Order{group}
	}

	out := make([][]domain.Order, 0, 1)
	current := make([]domain.Order, 0, len(group))
	currentItems := 0

	for _, o := range group {
		items := o.FoodCount()
		if len(current) > 0 && currentItems+items > maxItems {
			out = append(out, current)
			current = make([]domain.Order, 0, len(group))
			currentItems = 0
		}
		current = append(current, o)
		currentItems += items
	}

	if len(current) > 0 {
		out = append(out, current)
	}
	return out
}
