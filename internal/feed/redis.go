package feed

import (
	"context"
	"encoding/json"

	pkglogger "github.com/SwanHacks2025/2025-swan-hacks-sub000/pkg/logger"
	"github.com/redis/go-redis/v9"
)

const redisFeedChannel = "social:changes"

// RedisBroker fans changes out to every instance through Redis pub/sub and
// delivers them locally from the subscription loop, so the publishing
// instance sees its own changes exactly once. Without a Redis client it
// behaves like a LocalBroker.
type RedisBroker struct {
	local       *LocalBroker
	redisClient *redis.Client
	ctx         context.Context
	cancel      context.CancelFunc
	ready       chan struct{}
}

// NewRedisBroker creates a RedisBroker. Run must be started when redisClient is non-nil.
func NewRedisBroker(redisClient *redis.Client) *RedisBroker {
	ctx, cancel := context.WithCancel(context.Background())
	return &RedisBroker{
		local:       NewLocalBroker(),
		redisClient: redisClient,
		ctx:         ctx,
		cancel:      cancel,
		ready:       make(chan struct{}),
	}
}

// Publish sends the change to Redis, falling back to local delivery if
// Redis is unavailable
func (b *RedisBroker) Publish(ctx context.Context, change Change) {
	if b.redisClient == nil {
		b.local.Publish(ctx, change)
		return
	}

	data, err := json.Marshal(change)
	if err == nil {
		err = b.redisClient.Publish(ctx, redisFeedChannel, data).Err()
	}
	if err != nil {
		pkglogger.GetLogger().Warn().Err(err).Str("topic", change.Topic).Msg("feed: redis publish failed, delivering locally")
		b.local.Publish(ctx, change)
	}
}

// Subscribe registers fn for topic on this instance
func (b *RedisBroker) Subscribe(topic string, fn func(Change)) Subscription {
	return b.local.Subscribe(topic, fn)
}

// Run listens for changes from all instances until Stop is called
func (b *RedisBroker) Run() {
	if b.redisClient == nil {
		close(b.ready)
		return
	}

	pubsub := b.redisClient.Subscribe(b.ctx, redisFeedChannel)
	defer pubsub.Close()

	// wait for the subscription to be confirmed before accepting publishes
	if _, err := pubsub.Receive(b.ctx); err != nil {
		pkglogger.GetLogger().Error().Err(err).Msg("feed: redis subscribe failed")
	}
	close(b.ready)

	ch := pubsub.Channel()
	for {
		select {
		case msg, ok := <-ch:
			if !ok {
				return
			}
			var change Change
			if err := json.Unmarshal([]byte(msg.Payload), &change); err != nil {
				pkglogger.GetLogger().Warn().Err(err).Msg("feed: dropping malformed change")
				continue
			}
			b.local.Publish(b.ctx, change)
		case <-b.ctx.Done():
			return
		}
	}
}

// Ready is closed once Run has subscribed
func (b *RedisBroker) Ready() <-chan struct{} {
	return b.ready
}

// Stop ends Run
func (b *RedisBroker) Stop() {
	b.cancel()
}
