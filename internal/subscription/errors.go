package subscription

import "errors"

// Domain errors for subscription operations.
var (
	// Subscription validation errors
	ErrEmptyURL   = errors.New("subscription URL cannot be empty")
	ErrInvalidURL = errors.New("subscription URL must start with http:// or https://")

	// Subscription operation errors
	ErrSubscriptionNotFound      = errors.New("subscription not found")
	ErrSubscriptionAlreadyExists = errors.New("subscription already exists")
)
