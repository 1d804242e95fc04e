package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"
)

const channelPrefix = "board:"

// RedisBroker fans events out across nodes via Redis pub/sub. Each node
// publishes to one channel per board and relays everything received from the
// pattern subscription into its local in-process broker.
type RedisBroker struct {
	client *redis.Client
	local  *MemoryBroker
	cancel context.CancelFunc
	done   chan struct{}
}

func NewRedisBroker(redisURL string) (*RedisBroker, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("connect to redis: %w", err)
	}

	return NewRedisBrokerWithClient(client), nil
}

func NewRedisBrokerWithClient(client *redis.Client) *RedisBroker {
	relayCtx, cancel := context.WithCancel(context.Background())
	b := &RedisBroker{
		client: client,
		local:  NewMemoryBroker(),
		cancel: cancel,
		done:   make(chan struct{}),
	}
	go b.relay(relayCtx)
	return b
}

func (b *RedisBroker) Publish(ctx context.Context, event Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	if err := b.client.Publish(ctx, channelPrefix+event.BoardID, payload).Err(); err != nil {
		return fmt.Errorf("publish event: %w", err)
	}
	return nil
}

func (b *RedisBroker) Subscribe(boardID string, handler Handler) func() {
	return b.local.Subscribe(boardID, handler)
}

func (b *RedisBroker) relay(ctx context.Context) {
	defer close(b.done)
	sub := b.client.PSubscribe(ctx, channelPrefix+"*")
	defer func() { _ = sub.Close() }()

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				log.Error("event relay channel closed")
				return
			}
			var event Event
			if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
				log.WithError(err).WithField("channel", msg.Channel).Error("unable to parse event")
				continue
			}
			b.local.dispatch(event)
		}
	}
}

func (b *RedisBroker) Close() error {
	b.cancel()
	select {
	case <-b.done:
	case <-time.After(2 * time.Second):
		log.Warn("event relay did not stop in time")
	}
	return b.client.Close()
}
