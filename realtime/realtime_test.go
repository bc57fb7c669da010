package realtime

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"foodconnect/logger"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type orderRow struct {
	ID           string  `json:"id"`
	RestaurantID string  `json:"restaurant_id"`
	UserID       string  `json:"user_id"`
	TotalAmount  float64 `json:"total_amount"`
}

func newTestFeed(t *testing.T) *Feed {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })
	return NewFeed(rdb, logger.Discard())
}

func TestParseFilter(t *testing.T) {
	f, err := ParseFilter("restaurant_id=eq.r1")
	require.NoError(t, err)
	assert.Equal(t, Filter{Column: "restaurant_id", Value: "r1"}, f)
	assert.Equal(t, "restaurant_id=eq.r1", f.String())

	zero, err := ParseFilter("")
	require.NoError(t, err)
	assert.True(t, zero.IsZero())

	for _, bad := range []string{"restaurant_id", "restaurant_id=gt.5", "=eq.1", "restaurant_id=eq."} {
		_, err := ParseFilter(bad)
		assert.ErrorIs(t, err, ErrInvalidFilter, bad)
	}
}

func TestChannel(t *testing.T) {
	assert.Equal(t, "realtime:public:orders:INSERT", Channel("orders", EventInsert, Filter{}))
	assert.Equal(t, "realtime:public:orders:INSERT:restaurant_id=eq.r1",
		Channel("orders", EventInsert, Filter{Column: "restaurant_id", Value: "r1"}))
}

func TestSubscribeReceivesOnlyMatchingRestaurant(t *testing.T) {
	feed := newTestFeed(t)
	ctx := context.Background()

	got := make(chan Change, 4)
	sub, err := feed.Subscribe(ctx, "orders", EventInsert, "restaurant_id=eq.r1", func(c Change) { got <- c })
	require.NoError(t, err)
	defer sub.Unsubscribe()

	require.NoError(t, feed.Publish(ctx, "orders", EventInsert, orderRow{ID: "o2", RestaurantID: "r2", UserID: "u1", TotalAmount: 5}, nil))
	require.NoError(t, feed.Publish(ctx, "orders", EventInsert, orderRow{ID: "o1", RestaurantID: "r1", UserID: "u1", TotalAmount: 145}, nil))

	select {
	case c := <-got:
		assert.Equal(t, "orders", c.Table)
		assert.Equal(t, EventInsert, c.Event)
		var row orderRow
		require.NoError(t, json.Unmarshal(c.New, &row))
		assert.Equal(t, "o1", row.ID)
	case <-time.After(2 * time.Second):
		t.Fatal("no change delivered")
	}

	select {
	case c := <-got:
		t.Fatalf("unexpected extra change: %s", c.New)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestUnfilteredSubscriptionSeesAllRows(t *testing.T) {
	feed := newTestFeed(t)
	ctx := context.Background()

	got := make(chan Change, 4)
	sub, err := feed.Subscribe(ctx, "orders", EventInsert, "", func(c Change) { got <- c })
	require.NoError(t, err)
	defer sub.Unsubscribe()

	require.NoError(t, feed.Publish(ctx, "orders", EventInsert, orderRow{ID: "o1", RestaurantID: "r1"}, nil))
	require.NoError(t, feed.Publish(ctx, "orders", EventInsert, orderRow{ID: "o2", RestaurantID: "r2"}, nil))

	for i := 0; i < 2; i++ {
		select {
		case <-got:
		case <-time.After(2 * time.Second):
			t.Fatalf("change %d not delivered", i)
		}
	}
}

func TestUnsubscribeStopsDelivery(t *testing.T) {
	feed := newTestFeed(t)
	ctx := context.Background()

	got := make(chan Change, 4)
	sub, err := feed.Subscribe(ctx, "orders", EventInsert, "restaurant_id=eq.r1", func(c Change) { got <- c })
	require.NoError(t, err)

	require.NoError(t, sub.Unsubscribe())
	require.NoError(t, sub.Unsubscribe(), "second release is a no-op")

	require.NoError(t, feed.Publish(ctx, "orders", EventInsert, orderRow{ID: "o1", RestaurantID: "r1"}, nil))
	select {
	case <-got:
		t.Fatal("delivered after unsubscribe")
	case <-time.After(100 * time.Millisecond):
	}
}

func TestSubscribeRejectsUnknownColumnAndEvent(t *testing.T) {
	feed := newTestFeed(t)
	ctx := context.Background()

	_, err := feed.Subscribe(ctx, "orders", EventInsert, "email=eq.a@b.c", func(Change) {})
	assert.ErrorIs(t, err, ErrInvalidFilter)

	_, err = feed.Subscribe(ctx, "orders", EventType("TRUNCATE"), "", func(Change) {})
	assert.Error(t, err)
}
