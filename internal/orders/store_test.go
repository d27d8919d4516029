package orders

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := NewStore(filepath.Join(t.TempDir(), "orders.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func insertOrder(t *testing.T, s *Store, id, email, status, purchase string, deliveryDays, review any) {
	t.Helper()
	_, err := s.db.Exec(`
		INSERT INTO orders (order_id, customer_email, first_name, last_name, order_status,
			purchase_date, delivery_time_days, total_payment, payment_type,
			installments, num_items, review_score)
		VALUES (?, ?, 'Ana', 'Silva', ?, ?, ?, 129.9, 'credit_card', 1, 2, ?)`,
		id, email, status, purchase, deliveryDays, review)
	require.NoError(t, err)
}

func TestGetComputesDerivedFlags(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	insertOrder(t, s, "ord-delayed", "a@b.com", "delivered", "2018-01-01T00:00:00Z", 11, 4)
	insertOrder(t, s, "ord-on-time", "a@b.com", "delivered", "2018-01-02T00:00:00Z", 10, 3)
	insertOrder(t, s, "ord-low-review", "a@b.com", "delivered", "2018-01-03T00:00:00Z", 5, 1)

	delayed, err := s.Get(ctx, "ord-delayed")
	require.NoError(t, err)
	require.NotNil(t, delayed)
	assert.True(t, delayed.IsDelayed, "11 days is strictly greater than 10")
	assert.False(t, delayed.LowReview)

	onTime, err := s.Get(ctx, "ord-on-time")
	require.NoError(t, err)
	assert.False(t, onTime.IsDelayed, "10 days is not delayed")
	assert.False(t, onTime.LowReview, "review 3 is not low")

	low, err := s.Get(ctx, "ord-low-review")
	require.NoError(t, err)
	assert.True(t, low.LowReview)
	assert.False(t, low.IsDelayed)
}

func TestGetMissingOrderIsNotAnError(t *testing.T) {
	s := newTestStore(t)

	f, err := s.Get(context.Background(), "nope")
	require.NoError(t, err)
	assert.Nil(t, f)
}

func TestGetByEmailOrdersNewestFirstAndCaps(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	for i := 0; i < 7; i++ {
		day := time.Date(2018, 3, 1+i, 0, 0, 0, 0, time.UTC)
		insertOrder(t, s, "ord-"+day.Format("02"), "Maria@Shop.com", "delivered",
			day.Format(time.RFC3339), 5, 4)
	}
	insertOrder(t, s, "someone-else", "other@shop.com", "delivered", "2018-03-20T00:00:00Z", 5, 4)

	got, err := s.GetByEmail(ctx, "maria@shop.com", 10)
	require.NoError(t, err)
	require.Len(t, got, 7, "case-insensitive email match")
	assert.Equal(t, "ord-07", got[0].OrderID, "most recent purchase first")
	assert.Equal(t, "ord-01", got[6].OrderID)

	capped, err := s.GetByEmail(ctx, "maria@shop.com", 5)
	require.NoError(t, err)
	assert.Len(t, capped, 5)
}

func TestKeysAndMaxPurchaseDate(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	insertOrder(t, s, "k1", "k1@x.com", "shipped", "2018-01-05T00:00:00Z", nil, nil)
	insertOrder(t, s, "k2", "k2@x.com", "shipped", "2018-06-05T00:00:00Z", nil, nil)

	keys, err := s.Keys(ctx)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"k1 - k1@x.com", "k2 - k2@x.com"}, keys)

	maxDate, err := s.MaxPurchaseDate(ctx)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2018, 6, 5, 0, 0, 0, 0, time.UTC), maxDate)

	k1, err := s.Get(ctx, "k1")
	require.NoError(t, err)
	assert.Nil(t, k1.DeliveryTimeDays)
	assert.Nil(t, k1.ReviewScore)
	assert.False(t, k1.IsDelayed)
	assert.False(t, k1.LowReview)
}
