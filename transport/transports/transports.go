// Package transports imports every built-in sink so they register with the
// default registry.
package transports

import (
	_ "github.com/drblury/abrflow/transport/aws"
	_ "github.com/drblury/abrflow/transport/channel"
	_ "github.com/drblury/abrflow/transport/http"
	_ "github.com/drblury/abrflow/transport/io"
	_ "github.com/drblury/abrflow/transport/jetstream"
	_ "github.com/drblury/abrflow/transport/kafka"
	_ "github.com/drblury/abrflow/transport/nats"
	_ "github.com/drblury/abrflow/transport/postgres"
	_ "github.com/drblury/abrflow/transport/rabbitmq"
	_ "github.com/drblury/abrflow/transport/redis"
	_ "github.com/drblury/abrflow/transport/sqlite"
)
