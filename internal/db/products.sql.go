package db

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const createProduct = `
INSERT INTO products (id, name, price_amount, price_currency, image_url)
VALUES ($1, $2, $3, $4, $5)
`

type CreateProductParams struct {
	ID            uuid.UUID
	Name          string
	PriceAmount   decimal.Decimal
	PriceCurrency string
	ImageUrl      string
}

func (q *Queries) CreateProduct(ctx context.Context, arg CreateProductParams) error {
	_, err := q.db.Exec(ctx, createProduct,
		arg.ID,
		arg.Name,
		arg.PriceAmount,
		arg.PriceCurrency,
		arg.ImageUrl,
	)
	return err
}

const getProduct = `
SELECT id, name, price_amount, price_currency, image_url
FROM products
WHERE id = $1
`

func (q *Queries) GetProduct(ctx context.Context, id uuid.UUID) (Product, error) {
	row := q.db.QueryRow(ctx, getProduct, id)
	var i Product
	err := row.Scan(
		&i.ID,
		&i.Name,
		&i.PriceAmount,
		&i.PriceCurrency,
		&i.ImageUrl,
	)
	return i, err
}
