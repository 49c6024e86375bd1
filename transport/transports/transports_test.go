package transports

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/drblury/abrflow/transport"
)

func TestAllSinksRegistered(t *testing.T) {
	for _, name := range []string{
		"aws", "sqs", "channel", "http", "io", "jetstream", "kafka",
		"nats", "postgres", "postgresql", "rabbitmq", "redis", "sqlite",
	} {
		assert.True(t, transport.DefaultRegistry.Has(name), name)
	}
}
