// Package kafka publishes records to Apache Kafka topics.
package kafka

import (
	"context"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill-kafka/v3/pkg/kafka"
	"github.com/ThreeDotsLabs/watermill/message"

	"github.com/drblury/abrflow/internal/runtime/metadata"
	"github.com/drblury/abrflow/transport"
)

// TransportName is the name used to register this transport.
const TransportName = "kafka"

// PublisherFactory allows overriding the publisher creation for testing.
var PublisherFactory = func(cfg kafka.PublisherConfig, logger watermill.LoggerAdapter) (message.Publisher, error) {
	return kafka.NewPublisher(cfg, logger)
}

func init() {
	Register()
}

// Register adds the kafka sink to the default registry.
func Register() {
	transport.RegisterWithCapabilities(TransportName, Build, transport.KafkaCapabilities)
}

// Build creates a synchronous Kafka publisher. Records are keyed by the
// partition key below so one entity always lands on one partition.
func Build(_ context.Context, cfg transport.Config, logger watermill.LoggerAdapter) (transport.Transport, error) {
	saramaCfg := kafka.DefaultSaramaSyncPublisherConfig()
	if id := cfg.GetKafkaClientID(); id != "" {
		saramaCfg.ClientID = id
	}

	publisher, err := PublisherFactory(
		kafka.PublisherConfig{
			Brokers:               cfg.GetKafkaBrokers(),
			Marshaler:             kafka.NewWithPartitioningMarshaler(PartitionKey),
			OverwriteSaramaConfig: saramaCfg,
		},
		logger,
	)
	if err != nil {
		return transport.Transport{}, err
	}
	return transport.Transport{Publisher: publisher}, nil
}

// PartitionKey keys a message by its abn metadata entry, falling back to the
// message id for rejections that never produced one.
func PartitionKey(_ string, msg *message.Message) (string, error) {
	if abn := msg.Metadata.Get(metadata.KeyABN); abn != "" {
		return abn, nil
	}
	return msg.UUID, nil
}

// Capabilities returns the capabilities of this transport.
func Capabilities() transport.Capabilities {
	return transport.KafkaCapabilities
}
