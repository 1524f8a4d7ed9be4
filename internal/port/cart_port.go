package port

import (
	"context"

	"github.com/google/uuid"
	"github.com/nikolayk812/storefront-cart/internal/domain"
)

// CartGateway is the remote authoritative cart store, keyed by (userID, productID).
type CartGateway interface {
	// UpsertItem creates the line item or replaces its quantity.
	UpsertItem(ctx context.Context, userID, productID uuid.UUID, quantity int) (domain.CartLineItem, error)
	FetchCart(ctx context.Context, userID uuid.UUID) ([]domain.CartLineItem, error)
	// DeleteItem does not fail when the row is already absent.
	DeleteItem(ctx context.Context, userID, productID uuid.UUID) error
	// UpdateItemQuantity is update-only and fails with domain.ErrItemNotFound when no row matches.
	UpdateItemQuantity(ctx context.Context, userID, productID uuid.UUID, quantity int) (domain.CartLineItem, error)
}

type OrderPlacer interface {
	PlaceOrder(ctx context.Context, userID uuid.UUID, items []domain.CartLineItem) (domain.Order, error)
}

type ProductCatalog interface {
	CreateProduct(ctx context.Context, product domain.Product) error
	GetProduct(ctx context.Context, productID uuid.UUID) (domain.Product, error)
}
