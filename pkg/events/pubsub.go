package events

import (
	"context"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/rs/zerolog/log"

	"github.com/go-go-golems/lexflow/pkg/logging"
	"github.com/go-go-golems/lexflow/pkg/redisstream"
)

// PubSub bundles a publisher and subscriber sharing one transport.
type PubSub struct {
	Publisher  message.Publisher
	Subscriber message.Subscriber
	close      func() error
}

func (p *PubSub) Close() error {
	if p == nil || p.close == nil {
		return nil
	}
	return p.close()
}

// BuildPubSub returns a Redis Streams pub/sub when settings enable it and an
// in-process go channel otherwise. On redis the consumer group is placed at
// the tail of DefaultTopic, so subscribers do not replay earlier sessions.
func BuildPubSub(ctx context.Context, settings redisstream.Settings) (*PubSub, error) {
	if settings.Enabled {
		pub, sub, closer, err := redisstream.BuildPubSub(ctx, settings, DefaultTopic)
		if err != nil {
			return nil, err
		}
		log.Info().Str("addr", settings.Addr).Str("group", settings.Group).Msg("using redis streams for session events")
		return &PubSub{Publisher: pub, Subscriber: sub, close: closer}, nil
	}

	ch := gochannel.NewGoChannel(gochannel.Config{OutputChannelBuffer: 64}, logging.NewWatermillLogger(log.Logger))
	return &PubSub{Publisher: ch, Subscriber: ch, close: ch.Close}, nil
}
