// Package redis appends published records to Redis streams, one stream per
// topic.
package redis

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	goredis "github.com/redis/go-redis/v9"

	"github.com/drblury/abrflow/internal/runtime/jsoncodec"
	"github.com/drblury/abrflow/transport"
)

// TransportName is the name used to register this transport.
const TransportName = "redis"

// Stream entry field names.
const (
	FieldUUID     = "uuid"
	FieldPayload  = "payload"
	FieldMetadata = "metadata"
)

// StreamClient is the part of the go-redis client the publisher uses.
type StreamClient interface {
	Pipelined(ctx context.Context, fn func(goredis.Pipeliner) error) ([]goredis.Cmder, error)
	Close() error
}

// ClientFactory allows overriding the client for testing.
var ClientFactory = func(url string) (StreamClient, error) {
	opts, err := goredis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	return goredis.NewClient(opts), nil
}

func init() {
	Register()
}

// Register adds the redis sink to the default registry.
func Register() {
	transport.RegisterWithCapabilities(TransportName, Build, transport.RedisCapabilities)
}

// Build creates a stream publisher from the configured URL.
func Build(_ context.Context, cfg transport.Config, logger watermill.LoggerAdapter) (transport.Transport, error) {
	url := cfg.GetRedisURL()
	if url == "" {
		return transport.Transport{}, errors.New("redis url is required")
	}
	client, err := ClientFactory(url)
	if err != nil {
		return transport.Transport{}, err
	}
	return transport.Transport{Publisher: NewPublisher(client, 0, logger)}, nil
}

// Capabilities returns the capabilities of this transport.
func Capabilities() transport.Capabilities {
	return transport.RedisCapabilities
}

// Publisher sends every message of a Publish call in one pipeline.
type Publisher struct {
	client StreamClient
	maxLen int64
	logger watermill.LoggerAdapter

	mu     sync.Mutex
	closed bool
}

// NewPublisher wraps client. A positive maxLen trims streams approximately
// to that length.
func NewPublisher(client StreamClient, maxLen int64, logger watermill.LoggerAdapter) *Publisher {
	if logger == nil {
		logger = watermill.NopLogger{}
	}
	return &Publisher{client: client, maxLen: maxLen, logger: logger}
}

// StreamArgs converts a message into the XADD arguments for topic.
func StreamArgs(topic string, msg *message.Message, maxLen int64) (*goredis.XAddArgs, error) {
	meta, err := jsoncodec.Marshal(msg.Metadata)
	if err != nil {
		return nil, fmt.Errorf("marshal metadata: %w", err)
	}
	args := &goredis.XAddArgs{
		Stream: topic,
		Values: map[string]any{
			FieldUUID:     msg.UUID,
			FieldPayload:  string(msg.Payload),
			FieldMetadata: string(meta),
		},
	}
	if maxLen > 0 {
		args.MaxLen = maxLen
		args.Approx = true
	}
	return args, nil
}

func (p *Publisher) Publish(topic string, messages ...*message.Message) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return errors.New("redis publisher is closed")
	}
	if len(messages) == 0 {
		return nil
	}

	all := make([]*goredis.XAddArgs, 0, len(messages))
	for _, msg := range messages {
		args, err := StreamArgs(topic, msg, p.maxLen)
		if err != nil {
			return err
		}
		all = append(all, args)
	}

	ctx := context.Background()
	_, err := p.client.Pipelined(ctx, func(pipe goredis.Pipeliner) error {
		for _, args := range all {
			pipe.XAdd(ctx, args)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("xadd %s: %w", topic, err)
	}

	p.logger.Trace("published to redis stream", watermill.LogFields{"stream": topic, "count": len(messages)})
	return nil
}

// Close closes the client.
func (p *Publisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return nil
	}
	p.closed = true
	return p.client.Close()
}
