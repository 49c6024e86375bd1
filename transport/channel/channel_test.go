package channel

import (
	"context"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/drblury/abrflow/internal/runtime/config"
	"github.com/drblury/abrflow/transport"
)

func TestRegister(t *testing.T) {
	previous := transport.DefaultRegistry
	t.Cleanup(func() { transport.DefaultRegistry = previous })
	transport.DefaultRegistry = transport.NewRegistry()

	Register()

	assert.True(t, transport.DefaultRegistry.Has(TransportName))
	assert.Equal(t, transport.ChannelCapabilities, Capabilities())
}

func TestBuildReplaysPublishedMessages(t *testing.T) {
	tr, err := Build(context.Background(), &config.Config{Sink: TransportName}, watermill.NopLogger{})
	require.NoError(t, err)
	t.Cleanup(func() { _ = tr.Close() })

	require.NoError(t, tr.Publisher.Publish("abr.records",
		message.NewMessage("1", []byte(`{"abn":"1"}`)),
		message.NewMessage("2", []byte(`{"abn":"2"}`)),
		message.NewMessage("3", []byte(`{"abn":"3"}`)),
	))

	// Persistent pub/sub replays to late subscribers.
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	msgs, err := tr.Subscriber.Subscribe(ctx, "abr.records")
	require.NoError(t, err)

	var got []string
	for range 3 {
		select {
		case msg := <-msgs:
			got = append(got, msg.UUID)
			msg.Ack()
		case <-ctx.Done():
			t.Fatalf("timed out waiting for messages, got %v", got)
		}
	}
	assert.ElementsMatch(t, []string{"1", "2", "3"}, got)
	assert.False(t, Capabilities().SupportsOrdering)
}
