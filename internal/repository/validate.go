package repository

import (
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

type itemKey struct {
	UserID    uuid.UUID `validate:"required"`
	ProductID uuid.UUID `validate:"required"`
}

type itemInput struct {
	UserID    uuid.UUID `validate:"required"`
	ProductID uuid.UUID `validate:"required"`
	Quantity  int       `validate:"gte=1,lte=2147483647"`
}

func validateInput(input any) error {
	if err := validate.Struct(input); err != nil {
		return fmt.Errorf("invalid input: %w", err)
	}
	return nil
}
