package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/nikolayk812/storefront-cart/internal/db"
	"github.com/nikolayk812/storefront-cart/internal/domain"
	"github.com/nikolayk812/storefront-cart/internal/port"
	"github.com/shopspring/decimal"
	"golang.org/x/text/currency"
)

type cartRepository struct {
	q    *db.Queries
	pool txBeginner
}

func NewCart(pool Pool) (port.CartGateway, error) {
	if pool == nil {
		return nil, fmt.Errorf("pool is nil")
	}

	return &cartRepository{
		q:    db.New(pool),
		pool: pool,
	}, nil
}

func NewCartWithTx(tx pgx.Tx) port.CartGateway {
	return &cartRepository{
		q:    db.New(tx),
		pool: nil, // use provided transaction instead
	}
}

func (r *cartRepository) FetchCart(ctx context.Context, userID uuid.UUID) ([]domain.CartLineItem, error) {
	if userID == uuid.Nil {
		return nil, fmt.Errorf("userID is empty")
	}

	rows, err := r.q.GetCart(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("q.GetCart: %w", err)
	}

	items, err := mapCartItemRowsToDomain(rows)
	if err != nil {
		return nil, fmt.Errorf("mapCartItemRowsToDomain: %w", err)
	}

	return items, nil
}

func (r *cartRepository) UpsertItem(ctx context.Context, userID, productID uuid.UUID, quantity int) (domain.CartLineItem, error) {
	if err := validateInput(itemInput{UserID: userID, ProductID: productID, Quantity: quantity}); err != nil {
		return domain.CartLineItem{}, err
	}

	row, err := r.q.UpsertItem(ctx, db.UpsertItemParams{
		UserID:    userID,
		ProductID: productID,
		Quantity:  int32(quantity),
	})
	if err != nil {
		return domain.CartLineItem{}, fmt.Errorf("q.UpsertItem: %w", err)
	}

	return mapCartItemRowToDomain(row)
}

func (r *cartRepository) UpdateItemQuantity(ctx context.Context, userID, productID uuid.UUID, quantity int) (domain.CartLineItem, error) {
	if err := validateInput(itemInput{UserID: userID, ProductID: productID, Quantity: quantity}); err != nil {
		return domain.CartLineItem{}, err
	}

	row, err := r.q.UpdateItemQuantity(ctx, db.UpdateItemQuantityParams{
		UserID:    userID,
		ProductID: productID,
		Quantity:  int32(quantity),
	})
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.CartLineItem{}, fmt.Errorf("product[%s]: %w", productID, domain.ErrItemNotFound)
	}
	if err != nil {
		return domain.CartLineItem{}, fmt.Errorf("q.UpdateItemQuantity: %w", err)
	}

	return mapCartItemRowToDomain(row)
}

func (r *cartRepository) DeleteItem(ctx context.Context, userID, productID uuid.UUID) error {
	if err := validateInput(itemKey{UserID: userID, ProductID: productID}); err != nil {
		return err
	}

	if _, err := r.q.DeleteItem(ctx, db.DeleteItemParams{
		UserID:    userID,
		ProductID: productID,
	}); err != nil {
		return fmt.Errorf("q.DeleteItem: %w", err)
	}

	return nil
}

func mapCartItemRowToDomain(row db.CartItemRow) (domain.CartLineItem, error) {
	price, err := mapMoney(row.PriceAmount, row.PriceCurrency)
	if err != nil {
		return domain.CartLineItem{}, err
	}

	return domain.CartLineItem{
		ProductID: row.ProductID,
		Quantity:  int(row.Quantity),
		Product: domain.Product{
			ID:       row.ProductID,
			Name:     row.ProductName,
			Price:    price,
			ImageURL: row.ImageUrl,
		},
		CreatedAt: row.CreatedAt,
	}, nil
}

func mapCartItemRowsToDomain(rows []db.CartItemRow) ([]domain.CartLineItem, error) {
	var items []domain.CartLineItem

	for _, row := range rows {
		item, err := mapCartItemRowToDomain(row)
		if err != nil {
			return nil, fmt.Errorf("mapCartItemRowToDomain: %w", err)
		}

		items = append(items, item)
	}

	return items, nil
}

func mapMoney(amount decimal.Decimal, code string) (domain.Money, error) {
	parsedCurrency, err := currency.ParseISO(code)
	if err != nil {
		return domain.Money{}, fmt.Errorf("currency[%s] is not valid: %w", code, err)
	}

	return domain.Money{Amount: amount, Currency: parsedCurrency}, nil
}
