package events

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/goliatone/go-assistant"
	"github.com/goliatone/go-errors"
)

// Publisher is the narrow contract producers depend on.
type Publisher interface {
	Publish(ctx context.Context, topic string, env Envelope) error
}

// PublisherFunc adapts a function to Publisher.
type PublisherFunc func(ctx context.Context, topic string, env Envelope) error

func (f PublisherFunc) Publish(ctx context.Context, topic string, env Envelope) error {
	return f(ctx, topic, env)
}

// NopPublisher drops every envelope.
var NopPublisher Publisher = PublisherFunc(func(context.Context, string, Envelope) error { return nil })

// Bus is an in-memory pub/sub with a router for long-lived consumers.
type Bus struct {
	Router     *message.Router
	Publisher  message.Publisher
	Subscriber message.Subscriber

	pubsub  *gochannel.GoChannel
	logger  assistant.Logger
	runOnce sync.Once
}

// Option configures a Bus.
type Option func(*busConfig)

type busConfig struct {
	logger assistant.Logger
	buffer int64
}

// WithLogger routes watermill logs through logger.
func WithLogger(logger assistant.Logger) Option {
	return func(c *busConfig) {
		c.logger = logger
	}
}

// WithBuffer sets the per-subscriber output buffer.
func WithBuffer(n int64) Option {
	return func(c *busConfig) {
		if n > 0 {
			c.buffer = n
		}
	}
}

// NewInMemoryBus builds a gochannel backed bus.
func NewInMemoryBus(opts ...Option) (*Bus, error) {
	cfg := busConfig{buffer: 1024}
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}

	var wlogger watermill.LoggerAdapter = watermill.NopLogger{}
	if cfg.logger != nil {
		wlogger = NewLoggerAdapter(cfg.logger)
	}

	pubsub := gochannel.NewGoChannel(gochannel.Config{OutputChannelBuffer: cfg.buffer}, wlogger)
	r, err := message.NewRouter(message.RouterConfig{}, wlogger)
	if err != nil {
		return nil, errors.Wrap(err, errors.CategoryInternal, "new watermill router")
	}
	return &Bus{
		Router:     r,
		Publisher:  pubsub,
		Subscriber: pubsub,
		pubsub:     pubsub,
		logger:     assistant.NormalizeLogger(cfg.logger),
	}, nil
}

// Publish encodes env and publishes it on topic.
func (b *Bus) Publish(ctx context.Context, topic string, env Envelope) error {
	payload, err := json.Marshal(env)
	if err != nil {
		return errors.Wrap(err, errors.CategoryInternal, "marshal envelope")
	}
	msg := message.NewMessage(watermill.NewUUID(), payload)
	if ctx != nil {
		msg.SetContext(ctx)
	}
	if err := b.Publisher.Publish(topic, msg); err != nil {
		return errors.Wrap(err, errors.CategoryExternal, "publish envelope").
			WithMetadata(map[string]any{"topic": topic, "type": env.Type})
	}
	return nil
}

// AddHandler registers a consumer run by the router.
func (b *Bus) AddHandler(name, topic string, handler func(context.Context, Envelope) error) {
	b.Router.AddConsumerHandler(name, topic, b.Subscriber, func(msg *message.Message) error {
		defer msg.Ack()

		var env Envelope
		if err := json.Unmarshal(msg.Payload, &env); err != nil {
			b.logger.Warn("dropping malformed envelope topic=%s err=%v", topic, err)
			return nil
		}
		return handler(msg.Context(), env)
	})
}

// Subscribe streams decoded envelopes until ctx is done.
func (b *Bus) Subscribe(ctx context.Context, topic string) (<-chan Envelope, error) {
	messages, err := b.Subscriber.Subscribe(ctx, topic)
	if err != nil {
		return nil, errors.Wrap(err, errors.CategoryExternal, "subscribe").
			WithMetadata(map[string]any{"topic": topic})
	}
	out := make(chan Envelope)
	go func() {
		defer close(out)
		for msg := range messages {
			var env Envelope
			err := json.Unmarshal(msg.Payload, &env)
			msg.Ack()
			if err != nil {
				b.logger.Warn("dropping malformed envelope topic=%s err=%v", topic, err)
				continue
			}
			select {
			case out <- env:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, nil
}

// Run starts the router and blocks until ctx is done.
func (b *Bus) Run(ctx context.Context) error {
	var runErr error
	b.runOnce.Do(func() {
		go func() {
			<-ctx.Done()
			_ = b.Router.Close()
		}()
		runErr = b.Router.Run(ctx)
	})
	return runErr
}

// Running is closed once the router handlers are up.
func (b *Bus) Running() chan struct{} {
	return b.Router.Running()
}

// Close stops the router and the pub/sub.
func (b *Bus) Close() error {
	rerr := b.Router.Close()
	perr := b.pubsub.Close()
	if rerr != nil {
		return rerr
	}
	return perr
}
