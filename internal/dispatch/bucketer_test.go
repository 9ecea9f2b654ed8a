package dispatch

import (
	"testing"
	"time"

	"pizza-dispatch-service/internal/domain"
)

func orderDueAt(id int, desired time.Time) domain.Order {
	return domain.Order{
		ID:                  id,
		Status:              domain.OrderPending,
		DesiredDeliveryTime: desired,
		Items:               domain.OrderItems{Food: []string{"margherita"}},
	}
}

func TestBucketByTimeWindowFloorsToWindow(t *testing.T) {
	base := time.Date(2026, 3, 14, 18, 0, 0, 0, time.UTC)

	orders := []domain.Order{
		orderDueAt(1, base.Add(7*time.Minute+30*time.Second)),
		orderDueAt(2, base.Add(13*time.Minute)),
		orderDueAt(3, base.Add(16*time.Minute)),
	}

	keys, buckets := BucketByTimeWindow(orders, 15)

	if len(keys) != 2 {
		t.Fatalf("expected 2 buckets, got %d", len(keys))
	}
	for _, key := range keys {
		if key.Minute()%15 != 0 || key.Second() != 0 || key.Nanosecond() != 0 {
			t.Errorf("bucket key %s is not aligned to a 15 minute boundary", key)
		}
	}

	first := buckets[base]
	if len(first) != 2 || first[0].ID != 1 || first[1].ID != 2 {
		t.Errorf("expected orders 1 and 2 in the 18:00 bucket, got %v", first)
	}
	second := buckets[base.Add(15*time.Minute)]
	if len(second) != 1 || second[0].ID != 3 {
		t.Errorf("expected order 3 in the 18:15 bucket, got %v", second)
	}
}

func TestBucketByTimeWindowPreservesFirstSeenOrder(t *testing.T) {
	base := time.Date(2026, 3, 14, 18, 0, 0, 0, time.UTC)

	orders := []domain.Order{
		orderDueAt(1, base.Add(16*time.Minute)),
		orderDueAt(2, base.Add(7*time.Minute)),
	}

	keys, _ := BucketByTimeWindow(orders, 15)

	if len(keys) != 2 {
		t.Fatalf("expected 2 buckets, got %d", len(keys))
	}
	if !keys[0].Equal(base.Add(15 * time.Minute)) {
		t.Errorf("expected first-seen bucket 18:15 first, got %s", keys[0])
	}
	if !keys[1].Equal(base) {
		t.Errorf("expected bucket 18:00 second, got %s", keys[1])
	}
}

func TestBucketByTimeWindowDefaultsInvalidWindow(t *testing.T) {
	desired := time.Date(2026, 3, 14, 18, 7, 0, 0, time.UTC)

	keys, _ := BucketByTimeWindow([]domain.Order{orderDueAt(1, desired)}, 0)

	want := time.Date(2026, 3, 14, 18, 0, 0, 0, time.UTC)
	if len(keys) != 1 || !keys[0].Equal(want) {
		t.Fatalf("expected fallback to 15 minute windows with key %s, got %v", want, keys)
	}
}
