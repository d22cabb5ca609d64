package changefeed

import (
	"context"

	"go.uber.org/zap"
)

// Follow sends load's result right away and again after every change on
// topic. A nil result means the entity is gone: it is sent and the stream
// ends. Reload failures are logged and skipped. The channel closes when ctx
// is done.
func Follow[T any](ctx context.Context, hub *Hub, topic string, log *zap.Logger, load func(context.Context) (*T, error)) (<-chan *T, error) {
	sub, err := hub.Subscribe(topic)
	if err != nil {
		return nil, err
	}

	first, err := load(ctx)
	if err != nil {
		sub.Close()
		return nil, err
	}

	out := make(chan *T)
	go func() {
		defer close(out)
		defer sub.Close()

		current := first
		for {
			select {
			case <-ctx.Done():
				return
			case out <- current:
			}
			if current == nil {
				return
			}

			select {
			case <-ctx.Done():
				return
			case <-sub.Changes():
			}

			next, err := load(ctx)
			for err != nil {
				if ctx.Err() != nil {
					return
				}
				log.Warn("reload after change failed", zap.String("topic", topic), zap.Error(err))
				select {
				case <-ctx.Done():
					return
				case <-sub.Changes():
				}
				next, err = load(ctx)
			}
			current = next
		}
	}()

	return out, nil
}
