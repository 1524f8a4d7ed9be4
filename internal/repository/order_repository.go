package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/nikolayk812/storefront-cart/internal/db"
	"github.com/nikolayk812/storefront-cart/internal/domain"
	"github.com/nikolayk812/storefront-cart/internal/port"
)

type orderRepository struct {
	q    *db.Queries
	pool txBeginner
}

func NewOrder(pool Pool) (port.OrderPlacer, error) {
	if pool == nil {
		return nil, fmt.Errorf("pool is nil")
	}

	return &orderRepository{
		q:    db.New(pool),
		pool: pool,
	}, nil
}

// PlaceOrder creates the order and its lines, then empties the user's cart, all in one
// transaction.
func (r *orderRepository) PlaceOrder(ctx context.Context, userID uuid.UUID, items []domain.CartLineItem) (domain.Order, error) {
	if userID == uuid.Nil {
		return domain.Order{}, fmt.Errorf("userID is empty")
	}
	if len(items) == 0 {
		return domain.Order{}, domain.ErrEmptyCart
	}

	total, err := domain.Subtotal(items)
	if err != nil {
		return domain.Order{}, fmt.Errorf("domain.Subtotal: %w", err)
	}

	orderItems := domain.OrderItemsFromCart(items)

	return withTx(ctx, r.pool, r.q, func(q *db.Queries) (domain.Order, error) {
		row, err := q.CreateOrder(ctx, db.CreateOrderParams{
			UserID:        userID,
			Status:        string(domain.OrderStatusPending),
			TotalAmount:   total.Amount,
			TotalCurrency: total.Currency.String(),
		})
		if err != nil {
			return domain.Order{}, fmt.Errorf("q.CreateOrder: %w", err)
		}

		for _, item := range orderItems {
			if err := q.CreateOrderItem(ctx, db.CreateOrderItemParams{
				OrderID:       row.ID,
				ProductID:     item.ProductID,
				Quantity:      int32(item.Quantity),
				PriceAmount:   item.Price.Amount,
				PriceCurrency: item.Price.Currency.String(),
			}); err != nil {
				return domain.Order{}, fmt.Errorf("q.CreateOrderItem: %w", err)
			}
		}

		if _, err := q.DeleteCart(ctx, userID); err != nil {
			return domain.Order{}, fmt.Errorf("q.DeleteCart: %w", err)
		}

		orderTotal, err := mapMoney(row.TotalAmount, row.TotalCurrency)
		if err != nil {
			return domain.Order{}, err
		}

		return domain.Order{
			ID:        row.ID,
			UserID:    row.UserID,
			Status:    domain.OrderStatus(row.Status),
			Total:     orderTotal,
			Items:     orderItems,
			CreatedAt: row.CreatedAt,
		}, nil
	})
}
