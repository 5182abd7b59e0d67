// Package subscription holds the external playlist source descriptor.
package subscription

import (
	"strings"
	"time"
)

// Status reflects the result of a subscription's most recent fetch.
type Status string

const (
	StatusActive Status = "active"
	StatusFailed Status = "failed"
)

// Subscription describes one remote M3U source the aggregator pulls from.
// It is a value object: state transitions return updated copies.
type Subscription struct {
	url           string
	name          string
	status        Status
	addedAt       time.Time
	lastUpdatedAt time.Time
	channelCount  int
	lastError     string
}

// New creates a Subscription for the given playlist URL.
// Returns ErrEmptyURL or ErrInvalidURL for unusable URLs.
func New(url, name string, addedAt time.Time) (Subscription, error) {
	url = strings.TrimSpace(url)
	if url == "" {
		return Subscription{}, ErrEmptyURL
	}
	lower := strings.ToLower(url)
	if !strings.HasPrefix(lower, "http://") && !strings.HasPrefix(lower, "https://") {
		return Subscription{}, ErrInvalidURL
	}

	return Subscription{
		url:     url,
		name:    strings.TrimSpace(name),
		status:  StatusActive,
		addedAt: addedAt,
	}, nil
}

// Reconstruct rebuilds a Subscription from persisted state.
// Intended for repository adapters; skips validation.
func Reconstruct(url, name string, status Status, addedAt, lastUpdatedAt time.Time, channelCount int, lastError string) Subscription {
	return Subscription{
		url:           url,
		name:          name,
		status:        status,
		addedAt:       addedAt,
		lastUpdatedAt: lastUpdatedAt,
		channelCount:  channelCount,
		lastError:     lastError,
	}
}

func (s Subscription) URL() string              { return s.url }
func (s Subscription) Name() string             { return s.name }
func (s Subscription) Status() Status           { return s.status }
func (s Subscription) AddedAt() time.Time       { return s.addedAt }
func (s Subscription) LastUpdatedAt() time.Time { return s.lastUpdatedAt }
func (s Subscription) ChannelCount() int        { return s.channelCount }
func (s Subscription) LastError() string        { return s.lastError }

// MarkUpdated records a successful fetch that yielded channelCount entries.
func (s Subscription) MarkUpdated(at time.Time, channelCount int) Subscription {
	s.status = StatusActive
	s.lastUpdatedAt = at
	s.channelCount = channelCount
	s.lastError = ""
	return s
}

// MarkFailed records a failed fetch with its reason. The previous channel
// count is kept; channels merged from earlier fetches stay in the store.
func (s Subscription) MarkFailed(at time.Time, reason string) Subscription {
	s.status = StatusFailed
	s.lastUpdatedAt = at
	s.lastError = reason
	return s
}

// Rename changes the display name.
func (s Subscription) Rename(name string) Subscription {
	s.name = strings.TrimSpace(name)
	return s
}
