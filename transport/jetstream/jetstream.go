// Package jetstream publishes records into a NATS JetStream stream. Each
// group is sent with asynchronous publishes and awaited as a whole.
package jetstream

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/nats-io/nats.go"

	"github.com/drblury/abrflow/transport"
)

// TransportName is the name used to register this transport.
const TransportName = "jetstream"

const (
	// DefaultStreamName is the stream created when none is configured.
	DefaultStreamName = "ABR"
	// DefaultMaxAge bounds how long records are retained.
	DefaultMaxAge = 7 * 24 * time.Hour
	// DefaultPublishTimeout bounds the wait for one group's acks.
	DefaultPublishTimeout = 30 * time.Second
)

// ConnectFunc allows overriding the connection for testing.
var ConnectFunc = func(url string) (StreamPublisher, func(), error) {
	nc, err := nats.Connect(url)
	if err != nil {
		return nil, nil, fmt.Errorf("connect to nats: %w", err)
	}
	js, err := nc.JetStream()
	if err != nil {
		nc.Close()
		return nil, nil, fmt.Errorf("create jetstream context: %w", err)
	}
	return js, nc.Close, nil
}

// StreamPublisher is the subset of nats.JetStreamContext the sink uses.
type StreamPublisher interface {
	AddStream(cfg *nats.StreamConfig, opts ...nats.JSOpt) (*nats.StreamInfo, error)
	UpdateStream(cfg *nats.StreamConfig, opts ...nats.JSOpt) (*nats.StreamInfo, error)
	PublishMsgAsync(m *nats.Msg, opts ...nats.PubOpt) (nats.PubAckFuture, error)
	PublishAsyncComplete() <-chan struct{}
}

func init() {
	Register()
}

// Register adds the jetstream sink to the default registry.
func Register() {
	transport.RegisterWithCapabilities(TransportName, Build, transport.JetStreamCapabilities)
}

// Build connects and ensures the stream exists.
func Build(_ context.Context, cfg transport.Config, logger watermill.LoggerAdapter) (transport.Transport, error) {
	p, err := New(Config{URL: cfg.GetNATSURL()}, logger)
	if err != nil {
		return transport.Transport{}, err
	}
	return transport.Transport{Publisher: p}, nil
}

// Capabilities returns the capabilities of this transport.
func Capabilities() transport.Capabilities {
	return transport.JetStreamCapabilities
}

// Config holds JetStream settings.
type Config struct {
	URL            string
	StreamName     string
	MaxAge         time.Duration
	Replicas       int
	PublishTimeout time.Duration
}

func (c Config) withDefaults() Config {
	if c.StreamName == "" {
		c.StreamName = DefaultStreamName
	}
	if c.MaxAge <= 0 {
		c.MaxAge = DefaultMaxAge
	}
	if c.Replicas <= 0 {
		c.Replicas = 1
	}
	if c.PublishTimeout <= 0 {
		c.PublishTimeout = DefaultPublishTimeout
	}
	return c
}

// Publisher implements message.Publisher on a JetStream stream.
type Publisher struct {
	js     StreamPublisher
	close  func()
	config Config
	logger watermill.LoggerAdapter

	mu     sync.Mutex
	closed bool
}

// New connects to cfg.URL and ensures the stream.
func New(cfg Config, logger watermill.LoggerAdapter) (*Publisher, error) {
	cfg = cfg.withDefaults()
	js, closeFn, err := ConnectFunc(cfg.URL)
	if err != nil {
		return nil, err
	}
	p := &Publisher{js: js, close: closeFn, config: cfg, logger: logger}
	if err := p.ensureStream(); err != nil {
		closeFn()
		return nil, err
	}
	return p, nil
}

func (p *Publisher) ensureStream() error {
	streamCfg := &nats.StreamConfig{
		Name:      p.config.StreamName,
		Subjects:  []string{p.config.StreamName + ".>"},
		MaxAge:    p.config.MaxAge,
		Replicas:  p.config.Replicas,
		Retention: nats.LimitsPolicy,
	}
	if _, err := p.js.AddStream(streamCfg); err != nil {
		if _, err := p.js.UpdateStream(streamCfg); err != nil {
			return fmt.Errorf("ensure stream %s: %w", p.config.StreamName, err)
		}
	}
	return nil
}

// Publish sends every message asynchronously, then waits for all acks. The
// message UUID doubles as the JetStream dedupe id.
func (p *Publisher) Publish(topic string, messages ...*message.Message) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return errors.New("jetstream publisher is closed")
	}

	subject := p.config.StreamName + "." + topic
	futures := make([]nats.PubAckFuture, 0, len(messages))
	for _, msg := range messages {
		header := nats.Header{}
		for k, v := range msg.Metadata {
			header.Set(k, v)
		}
		header.Set(nats.MsgIdHdr, msg.UUID)

		f, err := p.js.PublishMsgAsync(&nats.Msg{Subject: subject, Data: msg.Payload, Header: header})
		if err != nil {
			return fmt.Errorf("publish to %s: %w", subject, err)
		}
		futures = append(futures, f)
	}

	select {
	case <-p.js.PublishAsyncComplete():
	case <-time.After(p.config.PublishTimeout):
		return fmt.Errorf("publish to %s: timed out waiting for acks", subject)
	}

	var errs []error
	for _, f := range futures {
		select {
		case err := <-f.Err():
			errs = append(errs, err)
		default:
		}
	}
	return errors.Join(errs...)
}

// Close drops the connection. It is safe to call twice.
func (p *Publisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return nil
	}
	p.closed = true
	if p.close != nil {
		p.close()
	}
	return nil
}
