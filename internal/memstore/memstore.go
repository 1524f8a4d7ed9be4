// Package memstore is an in-process implementation of the remote cart store. It backs
// the cart, metrics and CLI tests; it is not a deployable backend.
package memstore

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/nikolayk812/storefront-cart/internal/domain"
)

type entry struct {
	quantity  int
	createdAt time.Time
	seq       uint64
}

type Store struct {
	mu       sync.Mutex
	products map[uuid.UUID]domain.Product
	carts    map[uuid.UUID]map[uuid.UUID]entry
	orders   []domain.Order
	seq      uint64
}

func New() *Store {
	return &Store{
		products: make(map[uuid.UUID]domain.Product),
		carts:    make(map[uuid.UUID]map[uuid.UUID]entry),
	}
}

func (s *Store) CreateProduct(_ context.Context, product domain.Product) error {
	if product.ID == uuid.Nil {
		return fmt.Errorf("productID is empty")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.products[product.ID] = product
	return nil
}

func (s *Store) GetProduct(_ context.Context, productID uuid.UUID) (domain.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	product, ok := s.products[productID]
	if !ok {
		return domain.Product{}, fmt.Errorf("product[%s]: %w", productID, domain.ErrProductNotFound)
	}
	return product, nil
}

func (s *Store) UpsertItem(_ context.Context, userID, productID uuid.UUID, quantity int) (domain.CartLineItem, error) {
	if err := validateKey(userID, quantity); err != nil {
		return domain.CartLineItem{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	product, ok := s.products[productID]
	if !ok {
		return domain.CartLineItem{}, fmt.Errorf("product[%s]: %w", productID, domain.ErrProductNotFound)
	}

	cart := s.cart(userID)
	e, exists := cart[productID]
	if !exists {
		s.seq++
		e = entry{createdAt: time.Now().UTC(), seq: s.seq}
	}
	e.quantity = quantity
	cart[productID] = e

	return lineItem(productID, e, product), nil
}

func (s *Store) UpdateItemQuantity(_ context.Context, userID, productID uuid.UUID, quantity int) (domain.CartLineItem, error) {
	if err := validateKey(userID, quantity); err != nil {
		return domain.CartLineItem{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.carts[userID][productID]
	if !ok {
		return domain.CartLineItem{}, fmt.Errorf("product[%s]: %w", productID, domain.ErrItemNotFound)
	}
	e.quantity = quantity
	s.carts[userID][productID] = e

	return lineItem(productID, e, s.products[productID]), nil
}

func (s *Store) DeleteItem(_ context.Context, userID, productID uuid.UUID) error {
	if userID == uuid.Nil {
		return fmt.Errorf("userID is empty")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.carts[userID], productID)
	return nil
}

func (s *Store) FetchCart(_ context.Context, userID uuid.UUID) ([]domain.CartLineItem, error) {
	if userID == uuid.Nil {
		return nil, fmt.Errorf("userID is empty")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	return s.snapshot(userID), nil
}

// PlaceOrder records the order and empties the cart under one lock.
func (s *Store) PlaceOrder(_ context.Context, userID uuid.UUID, items []domain.CartLineItem) (domain.Order, error) {
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

	s.mu.Lock()
	defer s.mu.Unlock()

	order := domain.Order{
		ID:        uuid.New(),
		UserID:    userID,
		Status:    domain.OrderStatusPending,
		Total:     total,
		Items:     domain.OrderItemsFromCart(items),
		CreatedAt: time.Now().UTC(),
	}
	s.orders = append(s.orders, order)
	delete(s.carts, userID)

	return order, nil
}

func (s *Store) Orders(userID uuid.UUID) []domain.Order {
	s.mu.Lock()
	defer s.mu.Unlock()

	var result []domain.Order
	for _, o := range s.orders {
		if o.UserID == userID {
			result = append(result, o)
		}
	}
	return result
}

func (s *Store) cart(userID uuid.UUID) map[uuid.UUID]entry {
	cart, ok := s.carts[userID]
	if !ok {
		cart = make(map[uuid.UUID]entry)
		s.carts[userID] = cart
	}
	return cart
}

func (s *Store) snapshot(userID uuid.UUID) []domain.CartLineItem {
	cart := s.carts[userID]
	if len(cart) == 0 {
		return nil
	}

	ids := make([]uuid.UUID, 0, len(cart))
	for id := range cart {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool {
		return cart[ids[i]].seq < cart[ids[j]].seq
	})

	items := make([]domain.CartLineItem, 0, len(ids))
	for _, id := range ids {
		items = append(items, lineItem(id, cart[id], s.products[id]))
	}
	return items
}

func lineItem(productID uuid.UUID, e entry, product domain.Product) domain.CartLineItem {
	return domain.CartLineItem{
		ProductID: productID,
		Quantity:  e.quantity,
		Product:   product,
		CreatedAt: e.createdAt,
	}
}

func validateKey(userID uuid.UUID, quantity int) error {
	if userID == uuid.Nil {
		return fmt.Errorf("userID is empty")
	}
	if quantity < 1 {
		return fmt.Errorf("quantity[%d] must be at least 1", quantity)
	}
	return nil
}
