package domain

import (
	"errors"
	"fmt"
)

var (
	ErrUnauthenticated  = errors.New("user must be logged in")
	ErrItemNotFound     = errors.New("cart item not found")
	ErrProductNotFound  = errors.New("product not found")
	ErrEmptyCart        = errors.New("cart is empty")
	ErrCurrencyMismatch = errors.New("currency mismatch")
)

// RemoteStoreError wraps any failure reported by the remote cart store.
type RemoteStoreError struct {
	Op  string
	Err error
}

func (e *RemoteStoreError) Error() string {
	return fmt.Sprintf("remote store %s: %v", e.Op, e.Err)
}

func (e *RemoteStoreError) Unwrap() error {
	return e.Err
}

func NewRemoteStoreError(op string, err error) error {
	if err == nil {
		return nil
	}
	return &RemoteStoreError{Op: op, Err: err}
}

func IsRemoteStoreError(err error) bool {
	var target *RemoteStoreError
	return errors.As(err, &target)
}
