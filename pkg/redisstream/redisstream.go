package redisstream

import (
	"context"
	"strings"

	"github.com/ThreeDotsLabs/watermill/message"
	rstream "github.com/ThreeDotsLabs/watermill-redisstream/pkg/redisstream"
	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"github.com/go-go-golems/lexflow/pkg/logging"
)

// Settings holds Redis Streams transport configuration for session events.
type Settings struct {
	Enabled  bool
	Addr     string
	Group    string
	Consumer string
}

func DefaultSettings() Settings {
	return Settings{Addr: "localhost:6379", Group: "lexflow", Consumer: "cli-1"}
}

func (s Settings) withDefaults() Settings {
	d := DefaultSettings()
	if strings.TrimSpace(s.Addr) == "" {
		s.Addr = d.Addr
	}
	if strings.TrimSpace(s.Group) == "" {
		s.Group = d.Group
	}
	if strings.TrimSpace(s.Consumer) == "" {
		s.Consumer = d.Consumer
	}
	return s
}

// BuildPubSub constructs a watermill publisher and a consumer-group subscriber
// sharing one redis client. The consumer group is created at the tail of each
// stream first, so a fresh subscriber only sees new events. The returned
// closer releases the publisher, the subscriber and the client.
func BuildPubSub(ctx context.Context, s Settings, streams ...string) (message.Publisher, message.Subscriber, func() error, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	s = s.withDefaults()
	client := redis.NewClient(&redis.Options{Addr: s.Addr})

	for _, stream := range streams {
		if err := EnsureGroupAtTail(ctx, client, stream, s.Group); err != nil {
			_ = client.Close()
			return nil, nil, nil, err
		}
	}

	marshaler := rstream.DefaultMarshallerUnmarshaller{}
	logger := logging.NewWatermillLogger(log.Logger)

	pub, err := rstream.NewPublisher(rstream.PublisherConfig{
		Client:     client,
		Marshaller: marshaler,
	}, logger)
	if err != nil {
		_ = client.Close()
		return nil, nil, nil, errors.Wrap(err, "redisstream: publisher")
	}

	sub, err := rstream.NewSubscriber(rstream.SubscriberConfig{
		Client:        client,
		Unmarshaller:  marshaler,
		ConsumerGroup: s.Group,
		Consumer:      s.Consumer,
	}, logger)
	if err != nil {
		_ = pub.Close()
		_ = client.Close()
		return nil, nil, nil, errors.Wrap(err, "redisstream: subscriber")
	}

	// the subscriber goes first so its readers drain before the client closes
	closer := func() error {
		return closeShared(sub.Close, pub.Close, client.Close)
	}
	return pub, sub, closer, nil
}

// closeShared runs every closer and returns the first real error. Publisher
// and subscriber both close the client they share, so redis.ErrClosed from
// whoever comes second is expected.
func closeShared(closers ...func() error) error {
	var first error
	for _, c := range closers {
		if err := c(); err != nil && !errors.Is(err, redis.ErrClosed) && first == nil {
			first = err
		}
	}
	return first
}

// EnsureGroupAtTail creates the consumer group for a stream at the tail ($)
// if it doesn't exist, so a new consumer does not replay history.
func EnsureGroupAtTail(ctx context.Context, client redis.UniversalClient, stream, group string) error {
	if client == nil {
		return errors.New("redisstream: client is nil")
	}
	if ctx == nil {
		ctx = context.Background()
	}
	err := client.XGroupCreateMkStream(ctx, stream, group, "$").Err()
	if err != nil {
		if strings.Contains(err.Error(), "BUSYGROUP") {
			return nil
		}
		return errors.Wrap(err, "redisstream: create group")
	}
	log.Info().Str("stream", stream).Str("group", group).Msg("created redis consumer group at $ (tail)")
	return nil
}
