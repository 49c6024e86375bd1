package transport

// Capabilities describes what a sink guarantees about published records.
type Capabilities struct {
	Name string

	// SupportsOrdering means messages sharing a partition key are delivered in
	// the order they were published. Sinks without partitioning keep the
	// order of the whole topic.
	SupportsOrdering bool

	// SupportsBatching means a single Publish call with many messages is
	// cheaper than one call per message.
	SupportsBatching bool

	// SupportsTracing means metadata travels with the message as headers.
	SupportsTracing bool

	// Durable means published records survive a restart of the process.
	Durable bool

	// MaxMessageSize is the largest payload accepted, in bytes. Zero means
	// unlimited or unknown.
	MaxMessageSize int64
}

// Fits reports whether a payload of n bytes can be published.
func (c Capabilities) Fits(n int) bool {
	return c.MaxMessageSize == 0 || int64(n) <= c.MaxMessageSize
}

// Capability sets of the built-in transports.
var (
	// gochannel fans each message out on its own goroutine.
	ChannelCapabilities = Capabilities{
		Name:             "channel",
		SupportsBatching: true,
	}

	IOCapabilities = Capabilities{
		Name:             "io",
		SupportsOrdering: true,
		SupportsBatching: true,
		Durable:          true,
	}

	// Kafka orders per partition and records are keyed by ABN, so only
	// messages for the same ABN keep their relative order.
	KafkaCapabilities = Capabilities{
		Name:             "kafka",
		SupportsOrdering: true,
		SupportsBatching: true,
		SupportsTracing:  true,
		Durable:          true,
		MaxMessageSize:   1048576,
	}

	RabbitMQCapabilities = Capabilities{
		Name:             "rabbitmq",
		SupportsOrdering: true,
		SupportsTracing:  true,
		Durable:          true,
	}

	NATSCapabilities = Capabilities{
		Name:            "nats",
		SupportsTracing: true,
		MaxMessageSize:  1048576,
	}

	JetStreamCapabilities = Capabilities{
		Name:             "jetstream",
		SupportsOrdering: true,
		SupportsBatching: true,
		SupportsTracing:  true,
		Durable:          true,
		MaxMessageSize:   1048576,
	}

	HTTPCapabilities = Capabilities{
		Name:            "http",
		SupportsTracing: true,
	}

	AWSCapabilities = Capabilities{
		Name:            "aws",
		SupportsTracing: true,
		Durable:         true,
		MaxMessageSize:  262144,
	}

	SQLiteCapabilities = Capabilities{
		Name:             "sqlite",
		SupportsOrdering: true,
		SupportsBatching: true,
		Durable:          true,
	}

	PostgresCapabilities = Capabilities{
		Name:             "postgres",
		SupportsOrdering: true,
		SupportsBatching: true,
		Durable:          true,
	}

	RedisCapabilities = Capabilities{
		Name:             "redis",
		SupportsOrdering: true,
		SupportsBatching: true,
		SupportsTracing:  true,
		Durable:          true,
		MaxMessageSize:   512 << 20,
	}
)

// GetCapabilities looks a transport up in the default registry.
func GetCapabilities(transportName string) Capabilities {
	return DefaultRegistry.GetCapabilities(transportName)
}
