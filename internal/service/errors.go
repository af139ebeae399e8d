package service

import (
	"errors"
	"fmt"
	"strings"

	"github.com/fjod/go_cart/cartsync/internal/domain"
)

var ErrValidation = errors.New("validation failed")

// ValidationError is returned before any I/O when an argument is malformed.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func (e *ValidationError) Unwrap() error {
	return ErrValidation
}

func requireValue(field, value string) error {
	if strings.TrimSpace(value) == "" {
		return &ValidationError{Field: field, Message: "is required"}
	}
	return nil
}

func requireQuantity(quantity int) error {
	if quantity < domain.MinQuantity || quantity > domain.MaxQuantity {
		return &ValidationError{
			Field:   "quantity",
			Message: fmt.Sprintf("must be between %d and %d, got %d", domain.MinQuantity, domain.MaxQuantity, quantity),
		}
	}
	return nil
}
