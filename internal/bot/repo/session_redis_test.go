package repo

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Chative-core-poc-v1/orderbot/internal/bot/model"
)

func newRedisRepo(t *testing.T) (*RedisSessionRepository, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return NewRedisSessionRepository(rdb, time.Hour), mr
}

func TestRedisSessionGetOrCreate(t *testing.T) {
	repo, mr := newRedisRepo(t)
	ctx := context.Background()

	s, err := repo.GetOrCreate(ctx, "t1", "p1")
	require.NoError(t, err)
	assert.Equal(t, model.StateMenu, s.State)
	assert.Empty(t, s.Cart)
	assert.True(t, s.Checkout.IsZero())
	assert.Equal(t, "t1", s.TenantID)

	assert.True(t, mr.Exists("session:t1:p1"))
	assert.Equal(t, time.Hour, mr.TTL("session:t1:p1"))

	// A second call must not reset existing data.
	st := model.StateCart
	require.NoError(t, repo.Update(ctx, "t1", "p1", model.SessionPatch{
		State: &st,
		Cart:  &[]model.CartLine{{ItemID: "i1", ItemName: "Tea", UnitPrice: 2, Quantity: 1}},
	}))
	s, err = repo.GetOrCreate(ctx, "t1", "p1")
	require.NoError(t, err)
	assert.Equal(t, model.StateCart, s.State)
	require.Len(t, s.Cart, 1)
	assert.Equal(t, 2.0, s.Cart[0].UnitPrice)
}

func TestRedisSessionUpdateMergesOnlyProvidedFields(t *testing.T) {
	repo, _ := newRedisRepo(t)
	ctx := context.Background()

	cart := []model.CartLine{{ItemID: "i1", Quantity: 2, UnitPrice: 5}}
	require.NoError(t, repo.Update(ctx, "t1", "p1", model.SessionPatch{Cart: &cart}))

	co := model.CheckoutState{Selection: &model.Selection{ItemID: "i2", ItemName: "Pizza"}}
	require.NoError(t, repo.Update(ctx, "t1", "p1", model.SessionPatch{Checkout: &co}))

	s, err := repo.GetOrCreate(ctx, "t1", "p1")
	require.NoError(t, err)
	assert.Len(t, s.Cart, 1, "cart survives a checkout-only patch")
	require.NotNil(t, s.Checkout.Selection)
	assert.Equal(t, "i2", s.Checkout.Selection.ItemID)
	assert.Equal(t, model.StateMenu, s.State)
}

func TestRedisSessionClear(t *testing.T) {
	repo, _ := newRedisRepo(t)
	ctx := context.Background()

	st := model.StateCheckoutPayment
	cart := []model.CartLine{{ItemID: "i1", Quantity: 1}}
	co := model.CheckoutState{OrderType: &model.OrderTypeSnapshot{ID: "ot1"}}
	require.NoError(t, repo.Update(ctx, "t1", "p1", model.SessionPatch{State: &st, Cart: &cart, Checkout: &co}))

	require.NoError(t, repo.Clear(ctx, "t1", "p1"))
	s, err := repo.GetOrCreate(ctx, "t1", "p1")
	require.NoError(t, err)
	assert.Equal(t, model.StateMenu, s.State)
	assert.Empty(t, s.Cart)
	assert.True(t, s.Checkout.IsZero())
}

func TestRedisSessionSeparatesTenants(t *testing.T) {
	repo, _ := newRedisRepo(t)
	ctx := context.Background()

	st := model.StateCart
	require.NoError(t, repo.Update(ctx, "t1", "p1", model.SessionPatch{State: &st}))
	s, err := repo.GetOrCreate(ctx, "t2", "p1")
	require.NoError(t, err)
	assert.Equal(t, model.StateMenu, s.State)
}

func TestRedisSessionToleratesDamagedFields(t *testing.T) {
	repo, mr := newRedisRepo(t)
	ctx := context.Background()

	mr.HSet("session:t1:p1", "state", "bogus", "cart_data", "not json", "checkout_state", "{}")
	s, err := repo.GetOrCreate(ctx, "t1", "p1")
	require.NoError(t, err)
	assert.Equal(t, model.StateMenu, s.State)
	assert.Empty(t, s.Cart)
}

func TestRedisSessionStoreDown(t *testing.T) {
	repo, mr := newRedisRepo(t)
	mr.Close()
	_, err := repo.GetOrCreate(context.Background(), "t1", "p1")
	require.Error(t, err)
}
