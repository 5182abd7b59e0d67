package driven

import (
	"context"

	"github.com/iptvkit/aggregator/internal/channel"
)

// ChannelRepository defines the interface for channel persistence operations.
// This is a driven port that will be implemented by concrete adapters (e.g., BoltDB).
//
// The canonical channel set lives in memory; the repository only snapshots it
// for restart survival, so writes replace the whole set atomically.
type ChannelRepository interface {
	// ReplaceAll atomically replaces the persisted channel set with the
	// given snapshot.
	ReplaceAll(ctx context.Context, channels []*channel.Channel) error

	// LoadAll retrieves the persisted channel set. An empty store yields an
	// empty slice, not an error.
	LoadAll(ctx context.Context) ([]*channel.Channel, error)

	// Ping checks if the repository (database) is accessible and operational.
	// Returns nil if healthy, otherwise returns an error describing the issue.
	Ping(ctx context.Context) error
}
