// Package transport defines the output backends abrflow can publish records
// to. Each backend lives in its own sub-package and registers a Builder with
// the registry under the sink name used in configuration.
package transport

import (
	"context"
	"errors"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
)

// Transport is what a Builder produces. Subscriber is only set by backends
// that can hand published messages back in-process.
type Transport struct {
	Publisher  message.Publisher
	Subscriber message.Subscriber
}

// Close closes the publisher and, when present, the subscriber.
func (t Transport) Close() error {
	var errs []error
	if t.Publisher != nil {
		errs = append(errs, t.Publisher.Close())
	}
	if t.Subscriber != nil {
		if c, ok := t.Subscriber.(message.Publisher); !ok || c != t.Publisher {
			errs = append(errs, t.Subscriber.Close())
		}
	}
	return errors.Join(errs...)
}

// Builder creates a transport from config.
type Builder func(ctx context.Context, cfg Config, logger watermill.LoggerAdapter) (Transport, error)

// Config exposes the settings transports read, so backends need not depend
// on the config package.
type Config interface {
	// GetSink returns the transport name.
	GetSink() string

	GetKafkaBrokers() []string
	GetKafkaClientID() string

	GetRabbitMQURL() string
	GetNATSURL() string
	GetHTTPPublisherURL() string
	GetIOFile() string
	GetSQLiteFile() string
	GetPostgresURL() string
	GetRedisURL() string

	GetAWSRegion() string
	GetAWSAccountID() string
	GetAWSAccessKeyID() string
	GetAWSSecretAccessKey() string
	GetAWSEndpoint() string
}
