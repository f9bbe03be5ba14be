// Package services – errors
//
// Sentinel errors returned by the service layer. Handlers map them to HTTP
// statuses; nothing below the handler layer formats them for people.
package services

import "errors"

var (
	// ErrEmptyCart is returned when a checkout has no line items.
	ErrEmptyCart = errors.New("cart is empty")

	// ErrInvalidQuantity is returned when a line item quantity is not positive.
	ErrInvalidQuantity = errors.New("quantity must be positive")

	// ErrInvalidPrice is returned when a line item has a negative unit price.
	ErrInvalidPrice = errors.New("unit price must not be negative")

	// ErrQueueFailed is returned when a sale that could not be submitted
	// could not be parked offline either. The sale is lost unless the
	// caller retries.
	ErrQueueFailed = errors.New("offline queue unavailable")

	// ErrUnknownMutation is returned for a mutation kind with no invalidation
	// group.
	ErrUnknownMutation = errors.New("unknown mutation kind")
)
