package application

import (
	"context"

	"github.com/iptvkit/aggregator/internal/port/driven"
	"github.com/iptvkit/aggregator/internal/store"
)

// HealthService orchestrates health checks for the application and its dependencies.
type HealthService struct {
	channelRepo      driven.ChannelRepository
	subscriptionRepo driven.SubscriptionRepository
	store            *store.Store
}

// NewHealthService creates a new health check service.
func NewHealthService(channelRepo driven.ChannelRepository, subscriptionRepo driven.SubscriptionRepository, st *store.Store) *HealthService {
	return &HealthService{
		channelRepo:      channelRepo,
		subscriptionRepo: subscriptionRepo,
		store:            st,
	}
}

// ComponentHealth represents the health status of a single component.
type ComponentHealth struct {
	Status string // "ok" or "error"
	Error  string // empty if status is "ok", otherwise contains error message
}

// HealthStatus represents the overall health status of the application.
type HealthStatus struct {
	Status         string          // "ok" if all components are healthy, "degraded" otherwise
	DB             ComponentHealth // database health
	ChannelsTotal  int
	ChannelsOnline int
}

// Check performs health checks on all dependencies.
// Returns the overall health status and individual component statuses.
func (s *HealthService) Check(ctx context.Context) HealthStatus {
	status := HealthStatus{
		Status:         "ok",
		ChannelsTotal:  s.store.Len(),
		ChannelsOnline: s.store.OnlineCount(),
	}

	status.DB = ComponentHealth{Status: "ok"}
	if err := s.channelRepo.Ping(ctx); err != nil {
		status.DB = ComponentHealth{Status: "error", Error: err.Error()}
		status.Status = "degraded"
	} else if err := s.subscriptionRepo.Ping(ctx); err != nil {
		status.DB = ComponentHealth{Status: "error", Error: err.Error()}
		status.Status = "degraded"
	}

	return status
}
