// Package rediscart implements the cart gateway on Redis hashes.
//
// Layout per user: "cart:{user}" maps product id to quantity and
// "cart:{user}:added" maps product id to the time it first entered the cart.
// Product snapshots live under "product:{id}" as JSON.
package rediscart

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/nikolayk812/storefront-cart/internal/domain"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"golang.org/x/text/currency"
)

const (
	cartKeyPrefix    = "cart:"
	productKeyPrefix = "product:"
)

// updateIfExists sets the quantity only when the field is already present.
var updateIfExists = redis.NewScript(`
if redis.call('HEXISTS', KEYS[1], ARGV[1]) == 1 then
	redis.call('HSET', KEYS[1], ARGV[1], ARGV[2])
	return 1
end
return 0
`)

type Store struct {
	client redis.UniversalClient
	now    func() time.Time
}

func New(client redis.UniversalClient) (*Store, error) {
	if client == nil {
		return nil, fmt.Errorf("client is nil")
	}

	return &Store{
		client: client,
		now:    time.Now,
	}, nil
}

type productRecord struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	PriceAmount   string `json:"price_amount"`
	PriceCurrency string `json:"price_currency"`
	ImageURL      string `json:"image_url,omitempty"`
}

func (s *Store) CreateProduct(ctx context.Context, product domain.Product) error {
	if product.ID == uuid.Nil {
		return fmt.Errorf("productID is empty")
	}

	data, err := json.Marshal(productRecord{
		ID:            product.ID.String(),
		Name:          product.Name,
		PriceAmount:   product.Price.Amount.String(),
		PriceCurrency: product.Price.Currency.String(),
		ImageURL:      product.ImageURL,
	})
	if err != nil {
		return fmt.Errorf("json.Marshal: %w", err)
	}

	if err := s.client.Set(ctx, productKey(product.ID), data, 0).Err(); err != nil {
		return fmt.Errorf("redis set product: %w", err)
	}

	return nil
}

func (s *Store) GetProduct(ctx context.Context, productID uuid.UUID) (domain.Product, error) {
	data, err := s.client.Get(ctx, productKey(productID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return domain.Product{}, fmt.Errorf("product[%s]: %w", productID, domain.ErrProductNotFound)
	}
	if err != nil {
		return domain.Product{}, fmt.Errorf("redis get product: %w", err)
	}

	return decodeProduct(data)
}

func (s *Store) UpsertItem(ctx context.Context, userID, productID uuid.UUID, quantity int) (domain.CartLineItem, error) {
	if err := validateKey(userID, productID, quantity); err != nil {
		return domain.CartLineItem{}, err
	}

	product, err := s.GetProduct(ctx, productID)
	if err != nil {
		return domain.CartLineItem{}, err
	}

	field := productID.String()
	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, cartKey(userID), field, quantity)
		pipe.HSetNX(ctx, addedKey(userID), field, s.now().UTC().Format(time.RFC3339Nano))
		return nil
	})
	if err != nil {
		return domain.CartLineItem{}, fmt.Errorf("redis upsert item: %w", err)
	}

	createdAt, err := s.addedAt(ctx, userID, productID)
	if err != nil {
		return domain.CartLineItem{}, err
	}

	return domain.CartLineItem{
		ProductID: productID,
		Quantity:  quantity,
		Product:   product,
		CreatedAt: createdAt,
	}, nil
}

func (s *Store) UpdateItemQuantity(ctx context.Context, userID, productID uuid.UUID, quantity int) (domain.CartLineItem, error) {
	if err := validateKey(userID, productID, quantity); err != nil {
		return domain.CartLineItem{}, err
	}

	updated, err := updateIfExists.Run(ctx, s.client, []string{cartKey(userID)}, productID.String(), quantity).Int()
	if err != nil {
		return domain.CartLineItem{}, fmt.Errorf("redis update item: %w", err)
	}
	if updated == 0 {
		return domain.CartLineItem{}, fmt.Errorf("product[%s]: %w", productID, domain.ErrItemNotFound)
	}

	product, err := s.GetProduct(ctx, productID)
	if err != nil {
		return domain.CartLineItem{}, err
	}

	createdAt, err := s.addedAt(ctx, userID, productID)
	if err != nil {
		return domain.CartLineItem{}, err
	}

	return domain.CartLineItem{
		ProductID: productID,
		Quantity:  quantity,
		Product:   product,
		CreatedAt: createdAt,
	}, nil
}

func (s *Store) DeleteItem(ctx context.Context, userID, productID uuid.UUID) error {
	if userID == uuid.Nil {
		return fmt.Errorf("userID is empty")
	}

	field := productID.String()
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HDel(ctx, cartKey(userID), field)
		pipe.HDel(ctx, addedKey(userID), field)
		return nil
	})
	if err != nil {
		return fmt.Errorf("redis delete item: %w", err)
	}

	return nil
}

func (s *Store) FetchCart(ctx context.Context, userID uuid.UUID) ([]domain.CartLineItem, error) {
	if userID == uuid.Nil {
		return nil, fmt.Errorf("userID is empty")
	}

	quantities, err := s.client.HGetAll(ctx, cartKey(userID)).Result()
	if err != nil {
		return nil, fmt.Errorf("redis hgetall cart: %w", err)
	}
	if len(quantities) == 0 {
		return nil, nil
	}

	added, err := s.client.HGetAll(ctx, addedKey(userID)).Result()
	if err != nil {
		return nil, fmt.Errorf("redis hgetall added: %w", err)
	}

	productIDs := make([]uuid.UUID, 0, len(quantities))
	for field := range quantities {
		productID, err := uuid.Parse(field)
		if err != nil {
			return nil, fmt.Errorf("product field[%s] is not a uuid: %w", field, err)
		}
		productIDs = append(productIDs, productID)
	}

	products, err := s.getProducts(ctx, productIDs)
	if err != nil {
		return nil, err
	}

	items := make([]domain.CartLineItem, 0, len(quantities))
	for i, productID := range productIDs {
		field := productID.String()
		rawQuantity := quantities[field]

		quantity, err := strconv.Atoi(rawQuantity)
		if err != nil {
			return nil, fmt.Errorf("quantity[%s] is not a number: %w", rawQuantity, err)
		}

		item := domain.CartLineItem{
			ProductID: productID,
			Quantity:  quantity,
			Product:   products[i],
		}
		if ts, ok := added[field]; ok {
			if item.CreatedAt, err = time.Parse(time.RFC3339Nano, ts); err != nil {
				return nil, fmt.Errorf("added[%s] is not a timestamp: %w", ts, err)
			}
		}

		items = append(items, item)
	}

	sort.Slice(items, func(i, j int) bool {
		if !items[i].CreatedAt.Equal(items[j].CreatedAt) {
			return items[i].CreatedAt.Before(items[j].CreatedAt)
		}
		return items[i].ProductID.String() < items[j].ProductID.String()
	})

	return items, nil
}

// getProducts loads the snapshots of productIDs with a single MGET, in the same order.
func (s *Store) getProducts(ctx context.Context, productIDs []uuid.UUID) ([]domain.Product, error) {
	keys := make([]string, len(productIDs))
	for i, productID := range productIDs {
		keys[i] = productKey(productID)
	}

	values, err := s.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("redis mget products: %w", err)
	}

	products := make([]domain.Product, len(productIDs))
	for i, value := range values {
		data, ok := value.(string)
		if !ok {
			return nil, fmt.Errorf("product[%s]: %w", productIDs[i], domain.ErrProductNotFound)
		}

		if products[i], err = decodeProduct([]byte(data)); err != nil {
			return nil, err
		}
	}

	return products, nil
}

func (s *Store) addedAt(ctx context.Context, userID, productID uuid.UUID) (time.Time, error) {
	ts, err := s.client.HGet(ctx, addedKey(userID), productID.String()).Result()
	if errors.Is(err, redis.Nil) {
		return time.Time{}, nil
	}
	if err != nil {
		return time.Time{}, fmt.Errorf("redis hget added: %w", err)
	}

	parsed, err := time.Parse(time.RFC3339Nano, ts)
	if err != nil {
		return time.Time{}, fmt.Errorf("added[%s] is not a timestamp: %w", ts, err)
	}
	return parsed, nil
}

func decodeProduct(data []byte) (domain.Product, error) {
	var rec productRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return domain.Product{}, fmt.Errorf("json.Unmarshal: %w", err)
	}

	id, err := uuid.Parse(rec.ID)
	if err != nil {
		return domain.Product{}, fmt.Errorf("product id[%s] is not a uuid: %w", rec.ID, err)
	}

	amount, err := decimal.NewFromString(rec.PriceAmount)
	if err != nil {
		return domain.Product{}, fmt.Errorf("price[%s] is not a decimal: %w", rec.PriceAmount, err)
	}

	unit, err := currency.ParseISO(rec.PriceCurrency)
	if err != nil {
		return domain.Product{}, fmt.Errorf("currency[%s] is not valid: %w", rec.PriceCurrency, err)
	}

	return domain.Product{
		ID:       id,
		Name:     rec.Name,
		Price:    domain.Money{Amount: amount, Currency: unit},
		ImageURL: rec.ImageURL,
	}, nil
}

func validateKey(userID, productID uuid.UUID, quantity int) error {
	switch {
	case userID == uuid.Nil:
		return fmt.Errorf("userID is empty")
	case productID == uuid.Nil:
		return fmt.Errorf("productID is empty")
	case quantity < 1:
		return fmt.Errorf("quantity[%d] must be at least 1", quantity)
	}
	return nil
}

func cartKey(userID uuid.UUID) string {
	return cartKeyPrefix + userID.String()
}

func addedKey(userID uuid.UUID) string {
	return cartKeyPrefix + userID.String() + ":added"
}

func productKey(productID uuid.UUID) string {
	return productKeyPrefix + productID.String()
}
