package driven

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"go.etcd.io/bbolt"

	"github.com/iptvkit/aggregator/internal/channel"
)

const (
	channelsBucket = "channels"
)

// ChannelBoltDBRepository implements the ChannelRepository port using BoltDB.
type ChannelBoltDBRepository struct {
	db *bbolt.DB
}

// NewChannelBoltDBRepository creates a new BoltDB-backed channel repository.
// It initializes the required bucket if it doesn't exist.
func NewChannelBoltDBRepository(db *bbolt.DB) (*ChannelBoltDBRepository, error) {
	if db == nil {
		return nil, errors.New("db cannot be nil")
	}

	// Create the channels bucket if it doesn't exist
	err := db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(channelsBucket))
		return err
	})
	if err != nil {
		return nil, err
	}

	return &ChannelBoltDBRepository{db: db}, nil
}

// channelDTO is used for JSON serialization.
type channelDTO struct {
	ID         string       `json:"id"`
	Name       string       `json:"name"`
	TVGID      string       `json:"tvg_id,omitempty"`
	TVGName    string       `json:"tvg_name,omitempty"`
	TVGLogo    string       `json:"tvg_logo,omitempty"`
	GroupTitle string       `json:"group_title,omitempty"`
	PrimaryURL string       `json:"primary_url"`
	Sources    []sourceDTO  `json:"sources"`
	Liveness   *livenessDTO `json:"liveness,omitempty"`
}

type sourceDTO struct {
	URL    string `json:"url"`
	Origin string `json:"origin,omitempty"`
}

// livenessDTO is used for JSON serialization of probe state.
type livenessDTO struct {
	Status         string `json:"status"`
	WorkingURL     string `json:"working_url,omitempty"`
	ResponseTimeMS int64  `json:"response_time_ms,omitempty"`
	LastCheckedAt  string `json:"last_checked_at,omitempty"`
	LastError      string `json:"last_error,omitempty"`
}

func channelToDTO(ch *channel.Channel) channelDTO {
	dto := channelDTO{
		ID:         ch.ID(),
		Name:       ch.Name(),
		TVGID:      ch.TVGID(),
		TVGName:    ch.TVGName(),
		TVGLogo:    ch.TVGLogo(),
		GroupTitle: ch.GroupTitle(),
		PrimaryURL: ch.PrimaryURL(),
	}
	for _, s := range ch.Sources() {
		dto.Sources = append(dto.Sources, sourceDTO{URL: s.URL, Origin: s.Origin})
	}

	l := ch.Liveness()
	if l.Status() != channel.StatusUntested {
		ldto := &livenessDTO{
			Status:         string(l.Status()),
			WorkingURL:     l.WorkingURL(),
			ResponseTimeMS: l.ResponseTime().Milliseconds(),
			LastError:      l.LastError(),
		}
		if !l.LastCheckedAt().IsZero() {
			ldto.LastCheckedAt = l.LastCheckedAt().Format(time.RFC3339)
		}
		dto.Liveness = ldto
	}
	return dto
}

func dtoToChannel(dto channelDTO) (*channel.Channel, error) {
	liveness := channel.UntestedLiveness()
	if dto.Liveness != nil {
		var checkedAt time.Time
		if dto.Liveness.LastCheckedAt != "" {
			parsed, err := time.Parse(time.RFC3339, dto.Liveness.LastCheckedAt)
			if err != nil {
				return nil, err
			}
			checkedAt = parsed
		}
		liveness = channel.ReconstructLiveness(
			channel.Status(dto.Liveness.Status),
			dto.Liveness.WorkingURL,
			time.Duration(dto.Liveness.ResponseTimeMS)*time.Millisecond,
			checkedAt,
			dto.Liveness.LastError,
		)
	}

	sources := make([]channel.Source, 0, len(dto.Sources))
	for _, s := range dto.Sources {
		sources = append(sources, channel.Source{URL: s.URL, Origin: s.Origin})
	}

	return channel.Reconstruct(
		dto.ID, dto.Name, dto.TVGID, dto.TVGName, dto.TVGLogo,
		dto.GroupTitle, dto.PrimaryURL, sources, liveness,
	), nil
}

// ReplaceAll atomically replaces the persisted channel set with the snapshot.
// The bucket is dropped and rebuilt inside a single transaction, so readers
// never see a half-written set.
func (r *ChannelBoltDBRepository) ReplaceAll(ctx context.Context, channels []*channel.Channel) error {
	// Check context cancellation
	if err := ctx.Err(); err != nil {
		return err
	}

	return r.db.Update(func(tx *bbolt.Tx) error {
		if err := tx.DeleteBucket([]byte(channelsBucket)); err != nil && !errors.Is(err, bbolt.ErrBucketNotFound) {
			return err
		}
		bucket, err := tx.CreateBucket([]byte(channelsBucket))
		if err != nil {
			return err
		}

		for _, ch := range channels {
			data, err := json.Marshal(channelToDTO(ch))
			if err != nil {
				return err
			}
			if err := bucket.Put([]byte(ch.ID()), data); err != nil {
				return err
			}
		}
		return nil
	})
}

// LoadAll retrieves all persisted channels from BoltDB.
func (r *ChannelBoltDBRepository) LoadAll(ctx context.Context) ([]*channel.Channel, error) {
	// Check context cancellation
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var channels []*channel.Channel

	err := r.db.View(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(channelsBucket))
		if bucket == nil {
			return errors.New("channels bucket not found")
		}

		return bucket.ForEach(func(k, v []byte) error {
			var dto channelDTO
			if err := json.Unmarshal(v, &dto); err != nil {
				return err
			}

			ch, err := dtoToChannel(dto)
			if err != nil {
				return err
			}

			channels = append(channels, ch)
			return nil
		})
	})

	if err != nil {
		return nil, err
	}

	// Return empty slice instead of nil if no channels found
	if channels == nil {
		channels = []*channel.Channel{}
	}

	return channels, nil
}

// Ping checks if the BoltDB database is accessible and operational.
func (r *ChannelBoltDBRepository) Ping(ctx context.Context) error {
	// Check context cancellation
	if err := ctx.Err(); err != nil {
		return err
	}

	// Perform a simple read transaction to verify DB is accessible
	return r.db.View(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(channelsBucket))
		if bucket == nil {
			return errors.New("channels bucket not found")
		}
		return nil
	})
}
