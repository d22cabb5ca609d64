package changefeed

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/lightningshop/jobtrack/internal/config"
	redis "github.com/redis/go-redis/v9"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Bridge relays changes between instances over a Redis pub/sub channel.
// Changes published by this process are ignored when they come back.
type Bridge struct {
	hub     *Hub
	client  *redis.Client
	channel string
	log     *zap.Logger

	pending chan Change
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

type BridgeParams struct {
	fx.In

	Lifecycle fx.Lifecycle
	Config    config.Config
	Hub       *Hub
	Redis     *redis.Client `optional:"true"`
	Log       *zap.Logger
}

func NewBridge(hub *Hub, client *redis.Client, channel string, log *zap.Logger) *Bridge {
	return &Bridge{
		hub:     hub,
		client:  client,
		channel: channel,
		log:     log.Named("changefeed.bridge"),
		pending: make(chan Change, 256),
	}
}

// RegisterBridge starts the bridge with the application when Redis is configured.
func RegisterBridge(p BridgeParams) *Bridge {
	if p.Redis == nil {
		return nil
	}
	b := NewBridge(p.Hub, p.Redis, p.Config.Redis.Channel, p.Log)
	p.Lifecycle.Append(fx.Hook{
		OnStart: func(ctx context.Context) error { return b.Start(ctx) },
		OnStop:  func(ctx context.Context) error { b.Stop(); return nil },
	})
	return b
}

func (b *Bridge) Start(ctx context.Context) error {
	sub := b.client.Subscribe(ctx, b.channel)
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return err
	}

	runCtx, cancel := context.WithCancel(context.Background())
	b.cancel = cancel
	b.hub.OnLocalChange(b.enqueue)

	b.wg.Add(2)
	go b.receive(runCtx, sub)
	go b.send(runCtx)

	b.log.Info("change feed bridge started", zap.String("channel", b.channel))
	return nil
}

func (b *Bridge) Stop() {
	if b.cancel != nil {
		b.cancel()
	}
	b.wg.Wait()
}

func (b *Bridge) enqueue(c Change) {
	select {
	case b.pending <- c:
	default:
		b.log.Warn("change feed bridge queue full, dropping change", zap.String("topic", c.Topic))
	}
}

func (b *Bridge) send(ctx context.Context) {
	defer b.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case c := <-b.pending:
			payload, err := json.Marshal(c)
			if err != nil {
				continue
			}
			if err := b.client.Publish(ctx, b.channel, payload).Err(); err != nil && ctx.Err() == nil {
				b.log.Warn("publish change failed", zap.String("topic", c.Topic), zap.Error(err))
			}
		}
	}
}

func (b *Bridge) receive(ctx context.Context, sub *redis.PubSub) {
	defer b.wg.Done()
	defer sub.Close()

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			b.handle(msg.Payload)
		}
	}
}

func (b *Bridge) handle(payload string) {
	var c Change
	if err := json.Unmarshal([]byte(payload), &c); err != nil {
		b.log.Warn("invalid change payload", zap.Error(err))
		return
	}
	if c.Origin == b.hub.Origin() {
		return
	}
	b.hub.Deliver(c)
}
