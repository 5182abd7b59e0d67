package driven

import (
	"context"

	"github.com/iptvkit/aggregator/internal/subscription"
)

// SubscriptionRepository defines the interface for subscription persistence.
// This is a driven port that will be implemented by concrete adapters (e.g., BoltDB).
type SubscriptionRepository interface {
	// Save persists a new subscription. Returns
	// subscription.ErrSubscriptionAlreadyExists if one with the same URL
	// already exists.
	Save(ctx context.Context, sub subscription.Subscription) error

	// Update persists changes to an existing subscription. Returns
	// subscription.ErrSubscriptionNotFound if it does not exist.
	Update(ctx context.Context, sub subscription.Subscription) error

	// FindByURL retrieves a subscription by its playlist URL. Returns
	// subscription.ErrSubscriptionNotFound if it does not exist.
	FindByURL(ctx context.Context, url string) (subscription.Subscription, error)

	// FindAll retrieves all subscriptions.
	FindAll(ctx context.Context) ([]subscription.Subscription, error)

	// Delete removes a subscription by its playlist URL. Returns
	// subscription.ErrSubscriptionNotFound if it does not exist.
	Delete(ctx context.Context, url string) error

	// Ping checks if the repository (database) is accessible and operational.
	// Returns nil if healthy, otherwise returns an error describing the issue.
	Ping(ctx context.Context) error
}
