package abrflow

import (
	"github.com/drblury/abrflow/internal/extract"
	"github.com/drblury/abrflow/internal/normalize"
	"github.com/drblury/abrflow/internal/pipeline"
	"github.com/drblury/abrflow/internal/record"
	configpkg "github.com/drblury/abrflow/internal/runtime/config"
	errspkg "github.com/drblury/abrflow/internal/runtime/errors"
	"github.com/drblury/abrflow/internal/runtime/jsoncodec"
	loggingpkg "github.com/drblury/abrflow/internal/runtime/logging"
	metadatapkg "github.com/drblury/abrflow/internal/runtime/metadata"
	"github.com/drblury/abrflow/transport"
)

type (
	Config = configpkg.Config

	Fields   = extract.Fields
	Unrouted = extract.Unrouted

	Record        = record.Record
	Status        = record.Status
	Date          = record.Date
	EntityType    = record.EntityType
	EntityName    = record.EntityName
	Individual    = record.Individual
	NonIndividual = record.NonIndividual

	RecordError           = errspkg.RecordError
	ErrorKind             = errspkg.Kind
	ConfigValidationError = errspkg.ConfigValidationError

	Pipeline            = pipeline.Pipeline
	PipelineOption      = pipeline.Option
	Summary             = pipeline.Summary
	Span                = pipeline.Span
	Outcome             = pipeline.Outcome
	Sink                = pipeline.Sink
	WriterSink          = pipeline.WriterSink
	PublisherSink       = pipeline.PublisherSink
	PublisherSinkConfig = pipeline.PublisherSinkConfig
	Hooks               = pipeline.Hooks
	BatchContext        = pipeline.BatchContext
	Metrics             = pipeline.Metrics
	Stats               = pipeline.Stats
	Rejection           = pipeline.Rejection

	LogFields     = loggingpkg.LogFields
	ServiceLogger = loggingpkg.ServiceLogger

	Metadata = metadatapkg.Metadata

	Transport         = transport.Transport
	TransportBuilder  = transport.Builder
	TransportConfig   = transport.Config
	TransportRegistry = transport.Registry
	Capabilities      = transport.Capabilities
)

const (
	Active    = record.Active
	Cancelled = record.Cancelled

	KindStructural   = errspkg.KindStructural
	KindMissingField = errspkg.KindMissingField
	KindDomainFormat = errspkg.KindDomainFormat

	EncodingJSON        = configpkg.EncodingJSON
	EncodingProtobuf    = configpkg.EncodingProtobuf
	EncodingCloudEvents = configpkg.EncodingCloudEvents

	MetadataRunID       = metadatapkg.KeyRunID
	MetadataSource      = metadatapkg.KeySource
	MetadataLine        = metadatapkg.KeyLine
	MetadataABN         = metadatapkg.KeyABN
	MetadataContentType = metadatapkg.KeyContentType
	MetadataKind        = metadatapkg.KeyKind
)

var (
	Extract   = extract.Extract
	Normalize = normalize.Normalize

	NewPipeline      = pipeline.New
	NewSink          = pipeline.NewSink
	NewWriterSink    = pipeline.NewWriterSink
	NewPublisherSink = pipeline.NewPublisherSink
	ProcessSpan      = pipeline.ProcessSpan
	EncodeRecord     = pipeline.EncodeRecord
	DecodeRecord     = pipeline.DecodeRecord

	WithHooks   = pipeline.WithHooks
	WithMetrics = pipeline.WithMetrics
	WithTracer  = pipeline.WithTracer
	WithRunID   = pipeline.WithRunID

	LoggingHooks     = pipeline.LoggingHooks
	MetricsHooks     = pipeline.MetricsHooks
	NewMetrics       = pipeline.NewMetrics
	NewStatusHandler = pipeline.NewStatusHandler

	DefaultConfig  = configpkg.Default
	LoadConfig     = configpkg.Load
	ValidateConfig = configpkg.ValidateConfig

	NewSlogServiceLogger      = loggingpkg.NewSlogServiceLogger
	NewWatermillServiceLogger = loggingpkg.NewWatermillServiceLogger
	NewTextLogger             = loggingpkg.NewTextLogger
	NewJSONLogger             = loggingpkg.NewJSONLogger
	NewNopLogger              = loggingpkg.NewNopLogger

	ParseEntityType = record.ParseEntityType
	ErrorKindOf     = errspkg.KindOf

	GetCapabilities          = transport.GetCapabilities
	DefaultTransportRegistry = transport.DefaultRegistry
	RegisterTransport        = transport.Register
	BuildTransport           = transport.Build

	Marshal   = jsoncodec.Marshal
	Unmarshal = jsoncodec.Unmarshal

	NewMetadata = metadatapkg.New

	ErrConfigRequired    = errspkg.ErrConfigRequired
	ErrLoggerRequired    = errspkg.ErrLoggerRequired
	ErrSinkRequired      = errspkg.ErrSinkRequired
	ErrPublisherRequired = errspkg.ErrPublisherRequired
	ErrTopicRequired     = errspkg.ErrTopicRequired
	ErrInputRequired     = errspkg.ErrInputRequired
	ErrWriterRequired    = errspkg.ErrWriterRequired
)

// ParseRecord extracts and normalizes one record span.
func ParseRecord(span string) (*Record, error) {
	fields, err := extract.Extract(span)
	if err != nil {
		return nil, err
	}
	return normalize.Normalize(fields)
}
