package cart_test

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/nikolayk812/storefront-cart/internal/domain"
	"github.com/nikolayk812/storefront-cart/internal/port"
)

// faultyGateway wraps a working gateway with per-operation failures and call counts.
type faultyGateway struct {
	next port.CartGateway

	mu          sync.Mutex
	fetchErr    error
	upsertErr   error
	updateErr   error
	deleteErr   map[uuid.UUID]error
	afterUpdate func(quantity int)

	calls atomic.Int64
}

func newFaultyGateway(next port.CartGateway) *faultyGateway {
	return &faultyGateway{next: next, deleteErr: make(map[uuid.UUID]error)}
}

func (g *faultyGateway) failDelete(productID uuid.UUID, err error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.deleteErr[productID] = err
}

func (g *faultyGateway) UpsertItem(ctx context.Context, userID, productID uuid.UUID, quantity int) (domain.CartLineItem, error) {
	g.calls.Add(1)
	if g.upsertErr != nil {
		return domain.CartLineItem{}, g.upsertErr
	}
	return g.next.UpsertItem(ctx, userID, productID, quantity)
}

func (g *faultyGateway) FetchCart(ctx context.Context, userID uuid.UUID) ([]domain.CartLineItem, error) {
	g.calls.Add(1)
	if g.fetchErr != nil {
		return nil, g.fetchErr
	}
	return g.next.FetchCart(ctx, userID)
}

func (g *faultyGateway) DeleteItem(ctx context.Context, userID, productID uuid.UUID) error {
	g.calls.Add(1)
	g.mu.Lock()
	err := g.deleteErr[productID]
	g.mu.Unlock()
	if err != nil {
		return err
	}
	return g.next.DeleteItem(ctx, userID, productID)
}

func (g *faultyGateway) UpdateItemQuantity(ctx context.Context, userID, productID uuid.UUID, quantity int) (domain.CartLineItem, error) {
	g.calls.Add(1)
	if g.updateErr != nil {
		return domain.CartLineItem{}, g.updateErr
	}
	item, err := g.next.UpdateItemQuantity(ctx, userID, productID, quantity)
	if g.afterUpdate != nil {
		g.afterUpdate(quantity)
	}
	return item, err
}
