package db

import (
	"context"

	"github.com/google/uuid"
)

const cartItemColumns = `ci.product_id, ci.quantity, ci.created_at, p.name, p.price_amount, p.price_currency, p.image_url`

const getCart = `
SELECT ` + cartItemColumns + `
FROM cart_items ci
         JOIN products p ON p.id = ci.product_id
WHERE ci.user_id = $1
ORDER BY ci.created_at, ci.product_id
`

func (q *Queries) GetCart(ctx context.Context, userID uuid.UUID) ([]CartItemRow, error) {
	rows, err := q.db.Query(ctx, getCart, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []CartItemRow
	for rows.Next() {
		var i CartItemRow
		if err := rows.Scan(
			&i.ProductID,
			&i.Quantity,
			&i.CreatedAt,
			&i.ProductName,
			&i.PriceAmount,
			&i.PriceCurrency,
			&i.ImageUrl,
		); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const upsertItem = `
WITH ci AS (
    INSERT INTO cart_items (user_id, product_id, quantity)
        VALUES ($1, $2, $3)
        ON CONFLICT (user_id, product_id) DO UPDATE SET quantity = EXCLUDED.quantity
        RETURNING product_id, quantity, created_at)
SELECT ` + cartItemColumns + `
FROM ci
         JOIN products p ON p.id = ci.product_id
`

type UpsertItemParams struct {
	UserID    uuid.UUID
	ProductID uuid.UUID
	Quantity  int32
}

func (q *Queries) UpsertItem(ctx context.Context, arg UpsertItemParams) (CartItemRow, error) {
	row := q.db.QueryRow(ctx, upsertItem, arg.UserID, arg.ProductID, arg.Quantity)
	return scanCartItemRow(row)
}

const updateItemQuantity = `
WITH ci AS (
    UPDATE cart_items
        SET quantity = $3
        WHERE user_id = $1 AND product_id = $2
        RETURNING product_id, quantity, created_at)
SELECT ` + cartItemColumns + `
FROM ci
         JOIN products p ON p.id = ci.product_id
`

type UpdateItemQuantityParams struct {
	UserID    uuid.UUID
	ProductID uuid.UUID
	Quantity  int32
}

func (q *Queries) UpdateItemQuantity(ctx context.Context, arg UpdateItemQuantityParams) (CartItemRow, error) {
	row := q.db.QueryRow(ctx, updateItemQuantity, arg.UserID, arg.ProductID, arg.Quantity)
	return scanCartItemRow(row)
}

const deleteItem = `
DELETE
FROM cart_items
WHERE user_id = $1
  AND product_id = $2
`

type DeleteItemParams struct {
	UserID    uuid.UUID
	ProductID uuid.UUID
}

func (q *Queries) DeleteItem(ctx context.Context, arg DeleteItemParams) (int64, error) {
	result, err := q.db.Exec(ctx, deleteItem, arg.UserID, arg.ProductID)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected(), nil
}

const deleteCart = `
DELETE
FROM cart_items
WHERE user_id = $1
`

func (q *Queries) DeleteCart(ctx context.Context, userID uuid.UUID) (int64, error) {
	result, err := q.db.Exec(ctx, deleteCart, userID)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected(), nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanCartItemRow(row rowScanner) (CartItemRow, error) {
	var i CartItemRow
	err := row.Scan(
		&i.ProductID,
		&i.Quantity,
		&i.CreatedAt,
		&i.ProductName,
		&i.PriceAmount,
		&i.PriceCurrency,
		&i.ImageUrl,
	)
	return i, err
}
