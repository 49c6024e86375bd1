package nats

import (
	"context"
	"errors"
	"testing"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill-nats/v2/pkg/nats"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/drblury/abrflow/internal/runtime/config"
	"github.com/drblury/abrflow/transport"
	"github.com/drblury/abrflow/transport/transporttest"
)

func TestRegister(t *testing.T) {
	previous := transport.DefaultRegistry
	t.Cleanup(func() { transport.DefaultRegistry = previous })
	transport.DefaultRegistry = transport.NewRegistry()

	Register()

	caps := transport.GetCapabilities(TransportName)
	assert.Equal(t, "nats", caps.Name)
	assert.False(t, caps.SupportsOrdering)
	assert.Equal(t, transport.NATSCapabilities, Capabilities())
}

func TestBuild(t *testing.T) {
	original := PublisherFactory
	t.Cleanup(func() { PublisherFactory = original })

	t.Run("creates core publisher", func(t *testing.T) {
		fake := &transporttest.Publisher{}
		var got nats.PublisherConfig
		PublisherFactory = func(cfg nats.PublisherConfig, logger watermill.LoggerAdapter) (message.Publisher, error) {
			got = cfg
			return fake, nil
		}

		tr, err := Build(context.Background(), &config.Config{NATSURL: "nats://localhost:4222"}, watermill.NopLogger{})

		require.NoError(t, err)
		assert.Same(t, fake, tr.Publisher)
		assert.Equal(t, "nats://localhost:4222", got.URL)
		assert.True(t, got.JetStream.Disabled)
	})

	t.Run("propagates factory error", func(t *testing.T) {
		PublisherFactory = func(cfg nats.PublisherConfig, logger watermill.LoggerAdapter) (message.Publisher, error) {
			return nil, errors.New("no server")
		}
		_, err := Build(context.Background(), &config.Config{}, watermill.NopLogger{})
		assert.EqualError(t, err, "no server")
	})
}
