package driven

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"go.etcd.io/bbolt"

	"github.com/iptvkit/aggregator/internal/subscription"
)

const (
	subscriptionsBucket = "subscriptions"
)

// SubscriptionBoltDBRepository implements the SubscriptionRepository port using BoltDB.
type SubscriptionBoltDBRepository struct {
	db *bbolt.DB
}

// NewSubscriptionBoltDBRepository creates a new BoltDB-backed subscription repository.
// It initializes the required bucket if it doesn't exist.
func NewSubscriptionBoltDBRepository(db *bbolt.DB) (*SubscriptionBoltDBRepository, error) {
	if db == nil {
		return nil, errors.New("db cannot be nil")
	}

	// Create the subscriptions bucket if it doesn't exist
	err := db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(subscriptionsBucket))
		return err
	})
	if err != nil {
		return nil, err
	}

	return &SubscriptionBoltDBRepository{db: db}, nil
}

// subscriptionDTO is used for JSON serialization.
type subscriptionDTO struct {
	URL           string `json:"url"`
	Name          string `json:"name"`
	Status        string `json:"status"`
	AddedAt       string `json:"added_at"`
	LastUpdatedAt string `json:"last_updated_at,omitempty"`
	ChannelCount  int    `json:"channel_count"`
	LastError     string `json:"last_error,omitempty"`
}

func subscriptionToDTO(sub subscription.Subscription) subscriptionDTO {
	dto := subscriptionDTO{
		URL:          sub.URL(),
		Name:         sub.Name(),
		Status:       string(sub.Status()),
		AddedAt:      sub.AddedAt().Format(time.RFC3339),
		ChannelCount: sub.ChannelCount(),
		LastError:    sub.LastError(),
	}
	if !sub.LastUpdatedAt().IsZero() {
		dto.LastUpdatedAt = sub.LastUpdatedAt().Format(time.RFC3339)
	}
	return dto
}

func dtoToSubscription(dto subscriptionDTO) (subscription.Subscription, error) {
	addedAt, err := time.Parse(time.RFC3339, dto.AddedAt)
	if err != nil {
		return subscription.Subscription{}, err
	}

	var lastUpdatedAt time.Time
	if dto.LastUpdatedAt != "" {
		lastUpdatedAt, err = time.Parse(time.RFC3339, dto.LastUpdatedAt)
		if err != nil {
			return subscription.Subscription{}, err
		}
	}

	status := subscription.Status(dto.Status)
	if status == "" {
		status = subscription.StatusActive
	}

	return subscription.Reconstruct(
		dto.URL, dto.Name, status, addedAt, lastUpdatedAt,
		dto.ChannelCount, dto.LastError,
	), nil
}

// Save persists a new subscription to BoltDB.
func (r *SubscriptionBoltDBRepository) Save(ctx context.Context, sub subscription.Subscription) error {
	// Check context cancellation
	if err := ctx.Err(); err != nil {
		return err
	}

	return r.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(subscriptionsBucket))
		if bucket == nil {
			return errors.New("subscriptions bucket not found")
		}

		key := []byte(sub.URL())

		// Check if subscription already exists
		if bucket.Get(key) != nil {
			return subscription.ErrSubscriptionAlreadyExists
		}

		data, err := json.Marshal(subscriptionToDTO(sub))
		if err != nil {
			return err
		}

		return bucket.Put(key, data)
	})
}

// Update persists changes to an existing subscription in BoltDB.
func (r *SubscriptionBoltDBRepository) Update(ctx context.Context, sub subscription.Subscription) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	return r.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(subscriptionsBucket))
		if bucket == nil {
			return errors.New("subscriptions bucket not found")
		}

		key := []byte(sub.URL())

		if bucket.Get(key) == nil {
			return subscription.ErrSubscriptionNotFound
		}

		data, err := json.Marshal(subscriptionToDTO(sub))
		if err != nil {
			return err
		}

		return bucket.Put(key, data)
	})
}

// FindByURL retrieves a subscription by its playlist URL from BoltDB.
func (r *SubscriptionBoltDBRepository) FindByURL(ctx context.Context, url string) (subscription.Subscription, error) {
	// Check context cancellation
	if err := ctx.Err(); err != nil {
		return subscription.Subscription{}, err
	}

	var sub subscription.Subscription

	err := r.db.View(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(subscriptionsBucket))
		if bucket == nil {
			return errors.New("subscriptions bucket not found")
		}

		data := bucket.Get([]byte(url))
		if data == nil {
			return subscription.ErrSubscriptionNotFound
		}

		var dto subscriptionDTO
		if err := json.Unmarshal(data, &dto); err != nil {
			return err
		}

		reconstructed, err := dtoToSubscription(dto)
		if err != nil {
			return err
		}

		sub = reconstructed
		return nil
	})

	return sub, err
}

// FindAll retrieves all subscriptions from BoltDB.
func (r *SubscriptionBoltDBRepository) FindAll(ctx context.Context) ([]subscription.Subscription, error) {
	// Check context cancellation
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var subscriptions []subscription.Subscription

	err := r.db.View(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(subscriptionsBucket))
		if bucket == nil {
			return errors.New("subscriptions bucket not found")
		}

		return bucket.ForEach(func(k, v []byte) error {
			var dto subscriptionDTO
			if err := json.Unmarshal(v, &dto); err != nil {
				return err
			}

			sub, err := dtoToSubscription(dto)
			if err != nil {
				return err
			}

			subscriptions = append(subscriptions, sub)
			return nil
		})
	})

	if err != nil {
		return nil, err
	}

	// Return empty slice instead of nil if no subscriptions found
	if subscriptions == nil {
		subscriptions = []subscription.Subscription{}
	}

	return subscriptions, nil
}

// Delete removes a subscription by its playlist URL from BoltDB.
func (r *SubscriptionBoltDBRepository) Delete(ctx context.Context, url string) error {
	// Check context cancellation
	if err := ctx.Err(); err != nil {
		return err
	}

	return r.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(subscriptionsBucket))
		if bucket == nil {
			return errors.New("subscriptions bucket not found")
		}

		key := []byte(url)

		// Check if subscription exists before deleting
		if bucket.Get(key) == nil {
			return subscription.ErrSubscriptionNotFound
		}

		return bucket.Delete(key)
	})
}

// Ping checks if the BoltDB database is accessible and operational.
func (r *SubscriptionBoltDBRepository) Ping(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	return r.db.View(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(subscriptionsBucket))
		if bucket == nil {
			return errors.New("subscriptions bucket not found")
		}
		return nil
	})
}
