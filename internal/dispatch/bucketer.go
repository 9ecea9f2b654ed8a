package dispatch

import (
	"time"

	"pizza-dispatch-service/internal/domain"
)

// BucketByTimeWindow groups orders by quantised desired delivery time:
// each order lands in the bucket whose timestamp is its desired time with
// the minute floored to a multiple of windowMinutes and seconds zeroed.
// The returned key slice preserves first-seen order.
func BucketByTimeWindow(
	orders []domain.Order,
	windowMinutes int,
) ([]time.Time, map[time.Time][]domain.Order) {
	if windowMinutes < 1 {
		windowMinutes = 15
	}

	keys := make([]time.Time, 0)
	buckets := make(map[time.Time][]domain.Order)

	for _, o := range orders {
		key := floorToWindow(o.DesiredDeliveryTime, windowMinutes)
		if _, ok := buckets[key]; !ok {
			keys = append(keys, key)
		}
		buckets[key] = append(buckets[key], o)
	}

	return keys, buckets
}

func floorToWindow(t time.Time, windowMinutes int) time.Time {
	m := t.Minute() - t.Minute()%windowMinutes
	return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), m, 0, 0, t.Location())
}
