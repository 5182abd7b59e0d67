package driven

import (
	port "github.com/iptvkit/aggregator/internal/port/driven"
)

// Compile-time check that ChannelBoltDBRepository implements ChannelRepository interface
var _ port.ChannelRepository = (*ChannelBoltDBRepository)(nil)

// Compile-time check that SubscriptionBoltDBRepository implements SubscriptionRepository interface
var _ port.SubscriptionRepository = (*SubscriptionBoltDBRepository)(nil)

// Compile-time check that PlaylistHTTPSource implements PlaylistSource interface
var _ port.PlaylistSource = (*PlaylistHTTPSource)(nil)

// Compile-time check that StreamProberHTTPAdapter implements StreamProber interface
var _ port.StreamProber = (*StreamProberHTTPAdapter)(nil)
