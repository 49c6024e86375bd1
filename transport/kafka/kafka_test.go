package kafka

import (
	"context"
	"errors"
	"testing"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill-kafka/v3/pkg/kafka"
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
	assert.True(t, caps.SupportsOrdering)
	assert.True(t, caps.SupportsBatching)
	assert.Equal(t, transport.KafkaCapabilities, Capabilities())
}

func TestBuild(t *testing.T) {
	original := PublisherFactory
	t.Cleanup(func() { PublisherFactory = original })

	t.Run("passes brokers and client id", func(t *testing.T) {
		fake := &transporttest.Publisher{}
		var got kafka.PublisherConfig
		PublisherFactory = func(cfg kafka.PublisherConfig, logger watermill.LoggerAdapter) (message.Publisher, error) {
			got = cfg
			return fake, nil
		}

		cfg := &config.Config{KafkaBrokers: []string{"localhost:9092"}, KafkaClientID: "abrflow"}
		tr, err := Build(context.Background(), cfg, watermill.NopLogger{})

		require.NoError(t, err)
		assert.Same(t, fake, tr.Publisher)
		assert.Equal(t, []string{"localhost:9092"}, got.Brokers)
		require.NotNil(t, got.OverwriteSaramaConfig)
		assert.Equal(t, "abrflow", got.OverwriteSaramaConfig.ClientID)
		assert.NotNil(t, got.Marshaler)
	})

	t.Run("propagates factory error", func(t *testing.T) {
		PublisherFactory = func(cfg kafka.PublisherConfig, logger watermill.LoggerAdapter) (message.Publisher, error) {
			return nil, errors.New("no brokers")
		}
		_, err := Build(context.Background(), &config.Config{}, watermill.NopLogger{})
		assert.EqualError(t, err, "no brokers")
	})
}

func TestPartitionKey(t *testing.T) {
	msg := message.NewMessage("01H", nil)
	key, err := PartitionKey("abr.records", msg)
	require.NoError(t, err)
	assert.Equal(t, "01H", key)

	msg.Metadata.Set("abn", "11000000948")
	key, err = PartitionKey("abr.records", msg)
	require.NoError(t, err)
	assert.Equal(t, "11000000948", key)
}

func TestPartitionKeyGroupsByABN(t *testing.T) {
	keyOf := func(uuid, abn string) string {
		msg := message.NewMessage(uuid, nil)
		msg.Metadata.Set("abn", abn)
		key, err := PartitionKey("abr.records", msg)
		require.NoError(t, err)
		return key
	}

	// Two updates for one ABN share a partition; different ABNs need not.
	assert.Equal(t, keyOf("a", "11000000948"), keyOf("b", "11000000948"))
	assert.NotEqual(t, keyOf("c", "11000000948"), keyOf("d", "53004085616"))
}
