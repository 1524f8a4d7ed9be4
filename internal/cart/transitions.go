package cart

import (
	"github.com/google/uuid"
	"github.com/nikolayk812/storefront-cart/internal/domain"
)

// The functions below compute the next local item list from a remote result.
// They never modify their input.

// applyUpsert replaces the line item for the same product in place, or appends it.
func applyUpsert(items []domain.CartLineItem, item domain.CartLineItem) []domain.CartLineItem {
	next := make([]domain.CartLineItem, 0, len(items)+1)
	replaced := false

	for _, existing := range items {
		if existing.ProductID == item.ProductID {
			next = append(next, item)
			replaced = true
			continue
		}
		next = append(next, existing)
	}

	if !replaced {
		next = append(next, item)
	}

	return next
}

// applyReplace swaps the matching line item and leaves the list untouched otherwise.
func applyReplace(items []domain.CartLineItem, item domain.CartLineItem) []domain.CartLineItem {
	next := make([]domain.CartLineItem, len(items))
	copy(next, items)

	for i := range next {
		if next[i].ProductID == item.ProductID {
			next[i] = item
		}
	}

	return next
}

func applyRemove(items []domain.CartLineItem, productID uuid.UUID) []domain.CartLineItem {
	return applyRemoved(items, map[uuid.UUID]struct{}{productID: {}})
}

func applyRemoved(items []domain.CartLineItem, removed map[uuid.UUID]struct{}) []domain.CartLineItem {
	next := make([]domain.CartLineItem, 0, len(items))

	for _, item := range items {
		if _, ok := removed[item.ProductID]; ok {
			continue
		}
		next = append(next, item)
	}

	return next
}
