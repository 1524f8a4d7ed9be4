// Package cart keeps a local view of a user's cart consistent with the remote
// authoritative cart store.
package cart

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/nikolayk812/storefront-cart/internal/domain"
	"github.com/nikolayk812/storefront-cart/internal/notify"
	"github.com/nikolayk812/storefront-cart/internal/port"
	"github.com/nikolayk812/storefront-cart/internal/session"
	"github.com/rs/zerolog"
	"go.uber.org/multierr"
	"golang.org/x/sync/errgroup"
)

const (
	MsgAdded          = "Product added to cart!"
	MsgAddFailed      = "Failed to add to cart"
	MsgUpdated        = "Cart updated"
	MsgUpdateFailed   = "Failed to update quantity"
	MsgRemoved        = "Item removed from cart"
	MsgRemoveFailed   = "Failed to remove item"
	MsgCleared        = "Cart cleared"
	MsgClearFailed    = "Failed to clear cart"
	MsgOrderPlaced    = "Order placed!"
	MsgCheckoutFailed = "Failed to place order"
	MsgCartEmpty      = "Your cart is empty"

	ViewCartLabel  = "View Cart"
	ViewCartTarget = "/cart"
)

// ErrCheckoutUnavailable is returned by Checkout when the store has no order placer.
var ErrCheckoutUnavailable = errors.New("order placement is not configured")

// ClearPolicy decides what happens locally when some deletes of ClearCart fail.
type ClearPolicy int

const (
	// ClearReconcile drops exactly the items whose remote delete succeeded.
	ClearReconcile ClearPolicy = iota
	// ClearAllOrNothing keeps every local item when any delete fails, even though
	// some of them are already gone remotely.
	ClearAllOrNothing
)

func ParseClearPolicy(s string) (ClearPolicy, error) {
	switch s {
	case "", "reconcile":
		return ClearReconcile, nil
	case "all-or-nothing":
		return ClearAllOrNothing, nil
	}
	return 0, fmt.Errorf("unknown clear policy %q", s)
}

type Option func(*Store)

func WithClearPolicy(policy ClearPolicy) Option {
	return func(s *Store) {
		s.clearPolicy = policy
	}
}

// WithDeleteLimit bounds how many ClearCart deletes run at once. Zero means no bound.
func WithDeleteLimit(n int) Option {
	return func(s *Store) {
		s.deleteLimit = n
	}
}

func WithOrderPlacer(orders port.OrderPlacer) Option {
	return func(s *Store) {
		s.orders = orders
	}
}

// Store mirrors the remote cart of the session's user. Local items change only
// after the remote call they depend on has succeeded. The lock guards memory
// only and is never held across a remote call, so concurrent operations on one
// product are applied in completion order.
type Store struct {
	session  session.Session
	gateway  port.CartGateway
	orders   port.OrderPlacer
	notifier port.Notifier
	logger   zerolog.Logger

	clearPolicy ClearPolicy
	deleteLimit int

	mu      sync.RWMutex
	items   []domain.CartLineItem
	loading bool
}

func NewStore(sess session.Session, gateway port.CartGateway, notifier port.Notifier, logger zerolog.Logger, opts ...Option) (*Store, error) {
	if gateway == nil {
		return nil, fmt.Errorf("gateway is nil")
	}
	if notifier == nil {
		return nil, fmt.Errorf("notifier is nil")
	}

	s := &Store{
		session:  sess,
		gateway:  gateway,
		notifier: notifier,
		logger:   logger.With().Str("component", "cart_store").Logger(),
		loading:  true,
	}
	for _, opt := range opts {
		opt(s)
	}

	return s, nil
}

// Load replaces local items with the remote cart. Failures are logged but not
// notified, and leave the cart empty.
func (s *Store) Load(ctx context.Context) error {
	defer s.setLoading(false)

	user, err := s.session.RequireUser()
	if err != nil {
		s.logFailure("Load", uuid.Nil, uuid.Nil, err)
		return err
	}

	items, err := s.gateway.FetchCart(ctx, user.ID)
	if err != nil {
		err = domain.NewRemoteStoreError("FetchCart", err)
		s.logFailure("Load", user.ID, uuid.Nil, err)
		s.setItems(nil)
		return err
	}

	s.setItems(items)
	return nil
}

func (s *Store) AddOne(ctx context.Context, productID uuid.UUID) error {
	return s.AddToCart(ctx, productID, 1)
}

// AddToCart sets the quantity of the product, replacing any previous quantity.
func (s *Store) AddToCart(ctx context.Context, productID uuid.UUID, quantity int) error {
	user, err := s.session.RequireUser()
	if err != nil {
		return s.fail("AddToCart", uuid.Nil, productID, MsgAddFailed, err)
	}

	item, err := s.gateway.UpsertItem(ctx, user.ID, productID, quantity)
	if err != nil {
		return s.fail("AddToCart", user.ID, productID, MsgAddFailed, domain.NewRemoteStoreError("UpsertItem", err))
	}

	s.update(func(items []domain.CartLineItem) []domain.CartLineItem {
		return applyUpsert(items, item)
	})
	s.notifier.Notify(notify.Success(MsgAdded).WithAction(ViewCartLabel, ViewCartTarget))

	return nil
}

// UpdateQuantity ignores quantities below 1 without contacting the remote store.
func (s *Store) UpdateQuantity(ctx context.Context, productID uuid.UUID, quantity int) error {
	if quantity < 1 {
		return nil
	}

	user, err := s.session.RequireUser()
	if err != nil {
		return s.fail("UpdateQuantity", uuid.Nil, productID, MsgUpdateFailed, err)
	}

	item, err := s.gateway.UpdateItemQuantity(ctx, user.ID, productID, quantity)
	if err != nil {
		return s.fail("UpdateQuantity", user.ID, productID, MsgUpdateFailed, domain.NewRemoteStoreError("UpdateItemQuantity", err))
	}

	s.update(func(items []domain.CartLineItem) []domain.CartLineItem {
		return applyReplace(items, item)
	})
	s.notifier.Notify(notify.Success(MsgUpdated))

	return nil
}

func (s *Store) RemoveFromCart(ctx context.Context, productID uuid.UUID) error {
	user, err := s.session.RequireUser()
	if err != nil {
		return s.fail("RemoveFromCart", uuid.Nil, productID, MsgRemoveFailed, err)
	}

	if err := s.gateway.DeleteItem(ctx, user.ID, productID); err != nil {
		return s.fail("RemoveFromCart", user.ID, productID, MsgRemoveFailed, domain.NewRemoteStoreError("DeleteItem", err))
	}

	s.update(func(items []domain.CartLineItem) []domain.CartLineItem {
		return applyRemove(items, productID)
	})
	s.notifier.Notify(notify.Success(MsgRemoved))

	return nil
}

// ClearResult reports the outcome of each delete issued by ClearCart.
type ClearResult struct {
	Removed []uuid.UUID
	Failed  []uuid.UUID
}

// ClearCart deletes every local item remotely, all at once, and waits for all of
// them. Any failure produces a single error notification; what stays local is
// decided by the ClearPolicy.
func (s *Store) ClearCart(ctx context.Context) (ClearResult, error) {
	user, err := s.session.RequireUser()
	if err != nil {
		return ClearResult{}, s.fail("ClearCart", uuid.Nil, uuid.Nil, MsgClearFailed, err)
	}

	snapshot := s.Items()
	errs := make([]error, len(snapshot))

	var g errgroup.Group
	if s.deleteLimit > 0 {
		g.SetLimit(s.deleteLimit)
	}
	for i, item := range snapshot {
		g.Go(func() error {
			errs[i] = s.gateway.DeleteItem(ctx, user.ID, item.ProductID)
			return nil
		})
	}
	_ = g.Wait()

	var (
		result   ClearResult
		combined error
		removed  = make(map[uuid.UUID]struct{}, len(snapshot))
	)
	for i, item := range snapshot {
		if errs[i] != nil {
			result.Failed = append(result.Failed, item.ProductID)
			combined = multierr.Append(combined, fmt.Errorf("product[%s]: %w", item.ProductID, errs[i]))
			continue
		}
		result.Removed = append(result.Removed, item.ProductID)
		removed[item.ProductID] = struct{}{}
	}

	if combined != nil {
		if s.clearPolicy == ClearReconcile {
			s.update(func(items []domain.CartLineItem) []domain.CartLineItem {
				return applyRemoved(items, removed)
			})
		}
		return result, s.fail("ClearCart", user.ID, uuid.Nil, MsgClearFailed, domain.NewRemoteStoreError("DeleteItem", combined))
	}

	s.setItems(nil)
	s.notifier.Notify(notify.Success(MsgCleared))

	return result, nil
}

// Checkout places an order for the current local items. The order placer empties
// the remote cart, so local items are dropped on success.
func (s *Store) Checkout(ctx context.Context) (domain.Order, error) {
	user, err := s.session.RequireUser()
	if err != nil {
		return domain.Order{}, s.fail("Checkout", uuid.Nil, uuid.Nil, MsgCheckoutFailed, err)
	}
	if s.orders == nil {
		return domain.Order{}, s.fail("Checkout", user.ID, uuid.Nil, MsgCheckoutFailed, ErrCheckoutUnavailable)
	}

	snapshot := s.Items()
	if len(snapshot) == 0 {
		return domain.Order{}, s.fail("Checkout", user.ID, uuid.Nil, MsgCartEmpty, domain.ErrEmptyCart)
	}

	order, err := s.orders.PlaceOrder(ctx, user.ID, snapshot)
	if err != nil {
		return domain.Order{}, s.fail("Checkout", user.ID, uuid.Nil, MsgCheckoutFailed, domain.NewRemoteStoreError("PlaceOrder", err))
	}

	s.setItems(nil)
	s.notifier.Notify(notify.Success(MsgOrderPlaced))

	return order, nil
}

// Items returns a copy of the local line items in fetch/insertion order.
func (s *Store) Items() []domain.CartLineItem {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]domain.CartLineItem, len(s.items))
	copy(result, s.items)
	return result
}

func (s *Store) Loading() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.loading
}

func (s *Store) Subtotal() (domain.Money, error) {
	return domain.Subtotal(s.Items())
}

// Count is the number of units across all line items.
func (s *Store) Count() int {
	return domain.Cart{Items: s.Items()}.ItemCount()
}

func (s *Store) update(fn func([]domain.CartLineItem) []domain.CartLineItem) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.items = fn(s.items)
}

func (s *Store) setItems(items []domain.CartLineItem) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.items = items
}

func (s *Store) setLoading(loading bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.loading = loading
}

func (s *Store) fail(op string, userID, productID uuid.UUID, message string, err error) error {
	s.logFailure(op, userID, productID, err)
	s.notifier.Notify(notify.Error(message))
	return err
}

func (s *Store) logFailure(op string, userID, productID uuid.UUID, err error) {
	event := s.logger.Error().Err(err).Str("op", op)
	if userID != uuid.Nil {
		event = event.Stringer("user_id", userID)
	}
	if productID != uuid.Nil {
		event = event.Stringer("product_id", productID)
	}
	if errors.Is(err, domain.ErrUnauthenticated) {
		event = event.Bool("unauthenticated", true)
	}
	event.Msg("cart operation failed")
}
