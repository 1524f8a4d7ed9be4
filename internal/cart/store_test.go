package cart_test

import (
	"bytes"
	"errors"
	"sync"
	"testing"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/google/uuid"
	"github.com/nikolayk812/storefront-cart/internal/cart"
	"github.com/nikolayk812/storefront-cart/internal/domain"
	"github.com/nikolayk812/storefront-cart/internal/memstore"
	"github.com/nikolayk812/storefront-cart/internal/notify"
	"github.com/nikolayk812/storefront-cart/internal/session"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"golang.org/x/text/currency"
)

var errStoreDown = errors.New("store is down")

type storeSuite struct {
	suite.Suite

	remote   *memstore.Store
	gateway  *faultyGateway
	recorder *notify.Recorder
	logs     *bytes.Buffer
	user     domain.User
	products []domain.Product
}

func TestStoreSuite(t *testing.T) {
	suite.Run(t, new(storeSuite))
}

// before each test
func (suite *storeSuite) SetupTest() {
	ctx := suite.T().Context()

	suite.remote = memstore.New()
	suite.gateway = newFaultyGateway(suite.remote)
	suite.recorder = notify.NewRecorder()
	suite.logs = &bytes.Buffer{}
	suite.user = domain.User{ID: uuid.New(), Email: gofakeit.Email()}

	suite.products = []domain.Product{
		product("10"),
		product("20"),
		product("5.50"),
	}
	for _, p := range suite.products {
		suite.Require().NoError(suite.remote.CreateProduct(ctx, p))
	}
}

func (suite *storeSuite) newStore(sess session.Session, opts ...cart.Option) *cart.Store {
	logger := zerolog.New(suite.logs)
	store, err := cart.NewStore(sess, suite.gateway, suite.recorder, logger, opts...)
	suite.Require().NoError(err)
	return store
}

// loadedStore returns a store whose remote and local carts hold quantities[i] of products[i].
func (suite *storeSuite) loadedStore(quantities []int, opts ...cart.Option) *cart.Store {
	ctx := suite.T().Context()

	for i, q := range quantities {
		_, err := suite.remote.UpsertItem(ctx, suite.user.ID, suite.products[i].ID, q)
		suite.Require().NoError(err)
	}

	store := suite.newStore(session.New(suite.user), opts...)
	suite.Require().NoError(store.Load(ctx))
	suite.recorder.Reset()
	suite.gateway.calls.Store(0)

	return store
}

func (suite *storeSuite) remoteItems() []domain.CartLineItem {
	items, err := suite.remote.FetchCart(suite.T().Context(), suite.user.ID)
	suite.Require().NoError(err)
	return items
}

func (suite *storeSuite) TestLoad() {
	t := suite.T()

	store := suite.newStore(session.New(suite.user))
	assert.True(t, store.Loading())

	_, err := suite.remote.UpsertItem(t.Context(), suite.user.ID, suite.products[0].ID, 2)
	require.NoError(t, err)

	require.NoError(t, store.Load(t.Context()))

	assert.False(t, store.Loading())
	require.Len(t, store.Items(), 1)
	assert.Equal(t, 2, store.Items()[0].Quantity)
	assert.Empty(t, suite.recorder.All())
}

func (suite *storeSuite) TestLoad_RemoteFailure() {
	t := suite.T()
	suite.gateway.fetchErr = errStoreDown

	store := suite.newStore(session.New(suite.user))

	err := store.Load(t.Context())
	require.ErrorIs(t, err, errStoreDown)
	assert.True(t, domain.IsRemoteStoreError(err))

	assert.False(t, store.Loading())
	assert.Empty(t, store.Items())
	assert.Empty(t, suite.recorder.All(), "load failures are not notified")
	assert.Contains(t, suite.logs.String(), `"op":"Load"`)
}

func (suite *storeSuite) TestUnauthenticated() {
	store := suite.newStore(session.Anonymous())
	productID := suite.products[0].ID

	tests := []struct {
		name       string
		call       func() error
		wantNotify bool
	}{
		{
			name:       "load",
			call:       func() error { return store.Load(suite.T().Context()) },
			wantNotify: false,
		},
		{
			name:       "add",
			call:       func() error { return store.AddToCart(suite.T().Context(), productID, 1) },
			wantNotify: true,
		},
		{
			name:       "update",
			call:       func() error { return store.UpdateQuantity(suite.T().Context(), productID, 2) },
			wantNotify: true,
		},
		{
			name:       "remove",
			call:       func() error { return store.RemoveFromCart(suite.T().Context(), productID) },
			wantNotify: true,
		},
		{
			name: "clear",
			call: func() error {
				_, err := store.ClearCart(suite.T().Context())
				return err
			},
			wantNotify: true,
		},
	}

	for _, tt := range tests {
		suite.Run(tt.name, func() {
			t := suite.T()
			suite.recorder.Reset()

			err := tt.call()
			require.ErrorIs(t, err, domain.ErrUnauthenticated)
			assert.False(t, domain.IsRemoteStoreError(err))

			assert.Zero(t, suite.gateway.calls.Load(), "gateway must not be reached")
			if tt.wantNotify {
				assert.Equal(t, 1, suite.recorder.Count(notify.LevelError))
			} else {
				assert.Empty(t, suite.recorder.All())
			}
		})
	}
}

func (suite *storeSuite) TestAddToCart() {
	t := suite.T()
	ctx := t.Context()
	store := suite.loadedStore(nil)

	require.NoError(t, store.AddToCart(ctx, suite.products[0].ID, 2))
	require.NoError(t, store.AddOne(ctx, suite.products[1].ID))

	items := store.Items()
	require.Len(t, items, 2)
	assert.Equal(t, suite.products[0].ID, items[0].ProductID)
	assert.Equal(t, 2, items[0].Quantity)
	assert.Equal(t, suite.products[1].ID, items[1].ProductID)
	assert.Equal(t, 1, items[1].Quantity)
	assert.Equal(t, suite.products[1].Name, items[1].Product.Name)

	all := suite.recorder.All()
	require.Len(t, all, 2)
	for _, n := range all {
		assert.Equal(t, notify.LevelSuccess, n.Level)
		assert.Equal(t, cart.MsgAdded, n.Message)
		require.NotNil(t, n.Action)
		assert.Equal(t, cart.ViewCartTarget, n.Action.Target)
	}
}

func (suite *storeSuite) TestAddToCart_ReplacesQuantity() {
	t := suite.T()
	ctx := t.Context()
	store := suite.loadedStore([]int{1, 1})

	productID := suite.products[0].ID
	require.NoError(t, store.AddToCart(ctx, productID, 3))
	require.NoError(t, store.AddToCart(ctx, productID, 5))

	items := store.Items()
	require.Len(t, items, 2, "one line item per product")
	assert.Equal(t, productID, items[0].ProductID, "position is kept")
	assert.Equal(t, 5, items[0].Quantity, "quantity is replaced, not summed")
	assert.Equal(t, suite.remoteItems(), items)
}

func (suite *storeSuite) TestAddToCart_Uniqueness() {
	t := suite.T()
	ctx := t.Context()
	store := suite.loadedStore(nil)

	for range 20 {
		p := suite.products[gofakeit.IntRange(0, len(suite.products)-1)]
		require.NoError(t, store.AddToCart(ctx, p.ID, gofakeit.IntRange(1, 9)))
	}

	seen := make(map[uuid.UUID]bool)
	for _, item := range store.Items() {
		assert.False(t, seen[item.ProductID], "duplicate line item for %s", item.ProductID)
		seen[item.ProductID] = true
	}
	assert.Equal(t, suite.remoteItems(), store.Items())
}

func (suite *storeSuite) TestAddToCart_Failure() {
	t := suite.T()
	store := suite.loadedStore([]int{1})
	suite.gateway.upsertErr = errStoreDown

	before := store.Items()
	err := store.AddToCart(t.Context(), suite.products[1].ID, 1)
	require.ErrorIs(t, err, errStoreDown)
	assert.True(t, domain.IsRemoteStoreError(err))

	assert.Equal(t, before, store.Items())
	all := suite.recorder.All()
	require.Len(t, all, 1)
	assert.Equal(t, notify.Error(cart.MsgAddFailed), all[0])
	assert.Contains(t, suite.logs.String(), `"op":"AddToCart"`)
	assert.Contains(t, suite.logs.String(), suite.products[1].ID.String())
}

func (suite *storeSuite) TestUpdateQuantity() {
	t := suite.T()
	store := suite.loadedStore([]int{2, 1})

	require.NoError(t, store.UpdateQuantity(t.Context(), suite.products[0].ID, 5))

	items := store.Items()
	require.Len(t, items, 2)
	assert.Equal(t, 5, items[0].Quantity)
	assert.Equal(t, 1, items[1].Quantity)

	subtotal, err := store.Subtotal()
	require.NoError(t, err)
	assert.True(t, decimal.NewFromInt(70).Equal(subtotal.Amount), "subtotal %s", subtotal.Amount)
	assert.Equal(t, 6, store.Count())

	assert.Equal(t, []notify.Notification{notify.Success(cart.MsgUpdated)}, suite.recorder.All())
}

func (suite *storeSuite) TestUpdateQuantity_BelowOne() {
	store := suite.loadedStore([]int{2})

	for _, quantity := range []int{0, -1} {
		t := suite.T()
		before := store.Items()

		require.NoError(t, store.UpdateQuantity(t.Context(), suite.products[0].ID, quantity))

		assert.Equal(t, before, store.Items())
		assert.Zero(t, suite.gateway.calls.Load())
		assert.Empty(t, suite.recorder.All())
	}
}

func (suite *storeSuite) TestUpdateQuantity_Failure() {
	t := suite.T()
	store := suite.loadedStore([]int{2})
	suite.gateway.updateErr = errStoreDown

	err := store.UpdateQuantity(t.Context(), suite.products[0].ID, 7)
	require.ErrorIs(t, err, errStoreDown)

	assert.Equal(t, 2, store.Items()[0].Quantity)
	assert.Equal(t, []notify.Notification{notify.Error(cart.MsgUpdateFailed)}, suite.recorder.All())
}

func (suite *storeSuite) TestUpdateQuantity_NotInCart() {
	t := suite.T()
	store := suite.loadedStore([]int{2})

	err := store.UpdateQuantity(t.Context(), suite.products[1].ID, 3)
	require.ErrorIs(t, err, domain.ErrItemNotFound)

	assert.Equal(t, int64(1), suite.gateway.calls.Load(), "remote call is still attempted")
	require.Len(t, store.Items(), 1)
	assert.Equal(t, 1, suite.recorder.Count(notify.LevelError))
}

func (suite *storeSuite) TestRemoveFromCart() {
	t := suite.T()
	ctx := t.Context()
	store := suite.loadedStore([]int{1, 2, 3})

	require.NoError(t, store.RemoveFromCart(ctx, suite.products[1].ID))

	items := store.Items()
	require.Len(t, items, 2)
	assert.Equal(t, suite.products[0].ID, items[0].ProductID)
	assert.Equal(t, suite.products[2].ID, items[1].ProductID)
	assert.Equal(t, suite.remoteItems(), items)

	// absent products are a local no-op
	require.NoError(t, store.RemoveFromCart(ctx, uuid.New()))
	assert.Len(t, store.Items(), 2)

	assert.Equal(t, 2, suite.recorder.Count(notify.LevelSuccess))
}

func (suite *storeSuite) TestRemoveFromCart_Failure() {
	t := suite.T()
	store := suite.loadedStore([]int{1})
	suite.gateway.failDelete(suite.products[0].ID, errStoreDown)

	err := store.RemoveFromCart(t.Context(), suite.products[0].ID)
	require.ErrorIs(t, err, errStoreDown)

	assert.Len(t, store.Items(), 1)
	assert.Equal(t, []notify.Notification{notify.Error(cart.MsgRemoveFailed)}, suite.recorder.All())
}

func (suite *storeSuite) TestClearCart() {
	t := suite.T()
	store := suite.loadedStore([]int{1, 2, 3})

	result, err := store.ClearCart(t.Context())
	require.NoError(t, err)

	assert.Len(t, result.Removed, 3)
	assert.Empty(t, result.Failed)
	assert.Empty(t, store.Items())
	assert.Empty(t, suite.remoteItems())
	assert.Equal(t, int64(3), suite.gateway.calls.Load())
	assert.Equal(t, []notify.Notification{notify.Success(cart.MsgCleared)}, suite.recorder.All())
}

func (suite *storeSuite) TestClearCart_Empty() {
	t := suite.T()
	store := suite.loadedStore(nil)

	_, err := store.ClearCart(t.Context())
	require.NoError(t, err)

	assert.Zero(t, suite.gateway.calls.Load())
	assert.Equal(t, 1, suite.recorder.Count(notify.LevelSuccess))
}

func (suite *storeSuite) TestClearCart_PartialFailure() {
	tests := []struct {
		name      string
		policy    cart.ClearPolicy
		wantLocal int
	}{
		{
			name:      "reconcile keeps only the failed item",
			policy:    cart.ClearReconcile,
			wantLocal: 1,
		},
		{
			name:      "all-or-nothing keeps every item",
			policy:    cart.ClearAllOrNothing,
			wantLocal: 3,
		},
	}

	for _, tt := range tests {
		suite.Run(tt.name, func() {
			suite.SetupTest()
			t := suite.T()

			store := suite.loadedStore([]int{1, 2, 3}, cart.WithClearPolicy(tt.policy), cart.WithDeleteLimit(2))
			failing := suite.products[1].ID
			suite.gateway.failDelete(failing, errStoreDown)

			result, err := store.ClearCart(t.Context())
			require.ErrorIs(t, err, errStoreDown)
			assert.True(t, domain.IsRemoteStoreError(err))

			assert.Equal(t, []uuid.UUID{failing}, result.Failed)
			assert.ElementsMatch(t, []uuid.UUID{suite.products[0].ID, suite.products[2].ID}, result.Removed)
			assert.Len(t, store.Items(), tt.wantLocal)

			all := suite.recorder.All()
			require.Len(t, all, 1, "exactly one notification")
			assert.Equal(t, notify.Error(cart.MsgClearFailed), all[0])

			// only the failed item is still stored remotely
			remote := suite.remoteItems()
			require.Len(t, remote, 1)
			assert.Equal(t, failing, remote[0].ProductID)
		})
	}
}

// With all-or-nothing, the local view keeps items that no longer exist remotely
// until the next Load.
func (suite *storeSuite) TestClearCart_AllOrNothingDiverges() {
	t := suite.T()
	ctx := t.Context()

	store := suite.loadedStore([]int{1, 2, 3}, cart.WithClearPolicy(cart.ClearAllOrNothing))
	suite.gateway.failDelete(suite.products[2].ID, errStoreDown)

	_, err := store.ClearCart(ctx)
	require.Error(t, err)

	assert.Len(t, store.Items(), 3)
	assert.Len(t, suite.remoteItems(), 1)
	assert.NotEqual(t, suite.remoteItems(), store.Items())

	require.NoError(t, store.Load(ctx))
	assert.Equal(t, suite.remoteItems(), store.Items())
}

func (suite *storeSuite) TestConcurrentUpdatesLastAppliedWins() {
	t := suite.T()
	ctx := t.Context()
	store := suite.loadedStore([]int{1})
	productID := suite.products[0].ID

	remoteDone := map[int]chan struct{}{2: make(chan struct{}), 3: make(chan struct{})}
	release := map[int]chan struct{}{2: make(chan struct{}), 3: make(chan struct{})}
	suite.gateway.afterUpdate = func(quantity int) {
		close(remoteDone[quantity])
		<-release[quantity]
	}

	var first, second sync.WaitGroup
	first.Add(1)
	go func() {
		defer first.Done()
		assert.NoError(t, store.UpdateQuantity(ctx, productID, 2))
	}()
	<-remoteDone[2]

	second.Add(1)
	go func() {
		defer second.Done()
		assert.NoError(t, store.UpdateQuantity(ctx, productID, 3))
	}()
	<-remoteDone[3]

	// the later remote write is applied locally first
	close(release[3])
	second.Wait()
	close(release[2])
	first.Wait()

	assert.Equal(t, 2, store.Items()[0].Quantity)
	assert.Equal(t, 3, suite.remoteItems()[0].Quantity)
}

func (suite *storeSuite) TestCheckout() {
	t := suite.T()
	ctx := t.Context()

	store := suite.loadedStore([]int{2, 1}, cart.WithOrderPlacer(suite.remote))

	order, err := store.Checkout(ctx)
	require.NoError(t, err)

	assert.True(t, decimal.NewFromInt(40).Equal(order.Total.Amount))
	assert.Len(t, order.Items, 2)
	assert.Empty(t, store.Items())
	assert.Empty(t, suite.remoteItems())
	assert.Len(t, suite.remote.Orders(suite.user.ID), 1)
	assert.Equal(t, []notify.Notification{notify.Success(cart.MsgOrderPlaced)}, suite.recorder.All())
}

func (suite *storeSuite) TestCheckout_EmptyCart() {
	t := suite.T()
	store := suite.loadedStore(nil, cart.WithOrderPlacer(suite.remote))

	_, err := store.Checkout(t.Context())
	require.ErrorIs(t, err, domain.ErrEmptyCart)

	assert.Equal(t, []notify.Notification{notify.Error(cart.MsgCartEmpty)}, suite.recorder.All())
	assert.Empty(t, suite.remote.Orders(suite.user.ID))
}

func (suite *storeSuite) TestCheckout_NotConfigured() {
	store := suite.loadedStore([]int{1})

	_, err := store.Checkout(suite.T().Context())
	require.ErrorIs(suite.T(), err, cart.ErrCheckoutUnavailable)

	assert.Equal(suite.T(), []notify.Notification{notify.Error(cart.MsgCheckoutFailed)}, suite.recorder.All())
	assert.Len(suite.T(), store.Items(), 1)
}

func TestNewStoreValidation(t *testing.T) {
	_, err := cart.NewStore(session.Anonymous(), nil, notify.NewRecorder(), zerolog.Nop())
	require.EqualError(t, err, "gateway is nil")

	_, err = cart.NewStore(session.Anonymous(), memstore.New(), nil, zerolog.Nop())
	require.EqualError(t, err, "notifier is nil")
}

func TestParseClearPolicy(t *testing.T) {
	policy, err := cart.ParseClearPolicy("")
	require.NoError(t, err)
	assert.Equal(t, cart.ClearReconcile, policy)

	policy, err = cart.ParseClearPolicy("all-or-nothing")
	require.NoError(t, err)
	assert.Equal(t, cart.ClearAllOrNothing, policy)

	_, err = cart.ParseClearPolicy("sometimes")
	require.Error(t, err)
}

func product(price string) domain.Product {
	return domain.Product{
		ID:       uuid.New(),
		Name:     gofakeit.ProductName(),
		Price:    domain.Money{Amount: decimal.RequireFromString(price), Currency: currency.USD},
		ImageURL: gofakeit.URL(),
	}
}
