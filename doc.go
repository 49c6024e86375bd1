// Package abrflow converts Australian Business Register bulk extract records
// into validated, typed records.
//
// Each record in the bulk extract is one <ABR>…</ABR> element on its own line.
// Extract walks that element and assigns every leaf value to a raw field based
// on its position; Normalize then checks the business rules (required fields,
// status codes, dates, the postcode sentinel, GST pairing, entity type and
// name selection) and returns either a Record or an error describing the
// rejection. ParseRecord runs both steps.
//
// Values found at positions with no route are kept on Fields.Unrouted as
// diagnostics and never fail a record. Rejections are *RecordError values
// carrying a Kind: structural, missing field or domain format.
//
// # Pipeline
//
// NewPipeline processes whole container files. Lines are grouped into bounded
// batches, each batch is processed on a worker pool sized from the physical
// core count, and outcomes are emitted in input order. A rejected record never
// stops its batch or the run; only I/O errors do.
//
// # Sinks
//
// Records are written as line-delimited JSON to stdout by default. Any other
// sink name is built through the transport registry; import
// github.com/drblury/abrflow/transport/transports to register all of them:
//   - channel: in-memory Watermill gochannel, readable through its subscriber
//   - io: line-delimited files, one per topic
//   - kafka: keyed by ABN so one entity stays on one partition
//   - rabbitmq: durable AMQP queues
//   - nats and jetstream: core NATS or JetStream streams
//   - http: POST per message
//   - aws and sqs: SNS topics or SQS queues, LocalStack supported
//   - sqlite and postgres: a messages table, idempotent per message id
//   - redis: one stream per topic
//
// Records may be published as JSON, as a protobuf Struct or wrapped in a
// CloudEvents envelope; each message carries the run id, source file, line
// and ABN as metadata.
//
// # Observability
//
// Pipelines accept Hooks around every batch. MetricsHooks feed Prometheus
// collectors and NewStatusHandler serves /metrics, /stats and /healthz.
// Batches and sources are traced with OpenTelemetry spans.
package abrflow
