package application

import (
	"context"
	"fmt"
	"time"

	"github.com/iptvkit/aggregator/internal/port/driven"
	"github.com/iptvkit/aggregator/internal/subscription"
)

// SubscriptionService manages playlist subscriptions.
// It orchestrates the subscription lifecycle against the repository; actually
// fetching the playlists is the refresh cycle's job.
type SubscriptionService struct {
	subscriptionRepo driven.SubscriptionRepository
	now              func() time.Time
}

// NewSubscriptionService creates a new subscription service with the required dependencies.
func NewSubscriptionService(subscriptionRepo driven.SubscriptionRepository) *SubscriptionService {
	return &SubscriptionService{
		subscriptionRepo: subscriptionRepo,
		now:              time.Now,
	}
}

// Subscribe registers a new playlist URL. When name is empty a sequential
// default ("Source 1", "Source 2", ...) is assigned.
// Returns subscription.ErrSubscriptionAlreadyExists if the URL is already
// registered, subscription.ErrEmptyURL or subscription.ErrInvalidURL for
// unusable URLs.
func (s *SubscriptionService) Subscribe(ctx context.Context, url, name string) (subscription.Subscription, error) {
	if name == "" {
		existing, err := s.subscriptionRepo.FindAll(ctx)
		if err != nil {
			return subscription.Subscription{}, fmt.Errorf("failed to list subscriptions: %w", err)
		}
		name = fmt.Sprintf("Source %d", len(existing)+1)
	}

	sub, err := subscription.New(url, name, s.now())
	if err != nil {
		return subscription.Subscription{}, fmt.Errorf("failed to create subscription: %w", err)
	}

	if err := s.subscriptionRepo.Save(ctx, sub); err != nil {
		return subscription.Subscription{}, fmt.Errorf("failed to save subscription: %w", err)
	}

	return sub, nil
}

// Unsubscribe removes the subscription for the given playlist URL.
// Channels already merged from it stay in the channel set until the next
// refresh cycle rebuilds it.
// Returns subscription.ErrSubscriptionNotFound if not registered.
func (s *SubscriptionService) Unsubscribe(ctx context.Context, url string) error {
	if err := s.subscriptionRepo.Delete(ctx, url); err != nil {
		return fmt.Errorf("failed to delete subscription: %w", err)
	}

	return nil
}

// ListSubscriptions retrieves all current subscriptions.
func (s *SubscriptionService) ListSubscriptions(ctx context.Context) ([]subscription.Subscription, error) {
	subscriptions, err := s.subscriptionRepo.FindAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list subscriptions: %w", err)
	}

	return subscriptions, nil
}

// GetSubscription retrieves a specific subscription by playlist URL.
// Returns subscription.ErrSubscriptionNotFound if not registered.
func (s *SubscriptionService) GetSubscription(ctx context.Context, url string) (subscription.Subscription, error) {
	sub, err := s.subscriptionRepo.FindByURL(ctx, url)
	if err != nil {
		return subscription.Subscription{}, err
	}

	return sub, nil
}

// Rename changes the display name of an existing subscription.
// Returns subscription.ErrSubscriptionNotFound if not registered.
func (s *SubscriptionService) Rename(ctx context.Context, url, name string) (subscription.Subscription, error) {
	sub, err := s.subscriptionRepo.FindByURL(ctx, url)
	if err != nil {
		return subscription.Subscription{}, err
	}

	renamed := sub.Rename(name)
	if err := s.subscriptionRepo.Update(ctx, renamed); err != nil {
		return subscription.Subscription{}, fmt.Errorf("failed to update subscription: %w", err)
	}

	return renamed, nil
}
