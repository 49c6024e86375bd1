package pipeline

import (
	"fmt"
	"strconv"

	"github.com/ThreeDotsLabs/watermill/message"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/drblury/abrflow/internal/record"
	"github.com/drblury/abrflow/internal/runtime/cloudevents"
	"github.com/drblury/abrflow/internal/runtime/config"
	errspkg "github.com/drblury/abrflow/internal/runtime/errors"
	"github.com/drblury/abrflow/internal/runtime/ids"
	"github.com/drblury/abrflow/internal/runtime/jsoncodec"
	"github.com/drblury/abrflow/internal/runtime/metadata"
)

// Payload content types.
const (
	ContentTypeJSON        = "application/json"
	ContentTypeProtobuf    = "application/x-protobuf"
	ContentTypeCloudEvents = cloudevents.ContentType
)

// eventSource is the CloudEvents source of records encoded outside a run.
const eventSource = "abrflow"

// Rejection is the payload published for a rejected span.
type Rejection struct {
	Source string `json:"source"`
	Line   int    `json:"line"`
	Kind   string `json:"kind"`
	Error  string `json:"error"`
}

// NewRejection describes a rejected outcome.
func NewRejection(out Outcome) Rejection {
	return Rejection{
		Source: out.Span.Source,
		Line:   out.Span.Line,
		Kind:   errspkg.KindOf(out.Err).String(),
		Error:  out.Err.Error(),
	}
}

// EncodeRecord renders rec in the given encoding. Protobuf payloads are a
// google.protobuf.Struct carrying the same fields as the JSON form.
func EncodeRecord(rec *record.Record, encoding string) ([]byte, string, error) {
	return encodeRecord(rec, encoding, func(data []byte) cloudevents.Event {
		return cloudevents.New(cloudevents.TypeRecord, eventSource, data)
	})
}

func encodeRecord(rec *record.Record, encoding string, envelope func([]byte) cloudevents.Event) ([]byte, string, error) {
	data, err := jsoncodec.Marshal(rec)
	if err != nil {
		return nil, "", fmt.Errorf("failed to marshal record: %w", err)
	}
	switch encoding {
	case config.EncodingProtobuf:
	case config.EncodingCloudEvents:
		payload, err := cloudevents.Marshal(envelope(data).WithSubject(rec.ABN))
		if err != nil {
			return nil, "", err
		}
		return payload, ContentTypeCloudEvents, nil
	default:
		return data, ContentTypeJSON, nil
	}

	var fields map[string]any
	if err := jsoncodec.Unmarshal(data, &fields); err != nil {
		return nil, "", err
	}
	st, err := structpb.NewStruct(fields)
	if err != nil {
		return nil, "", fmt.Errorf("failed to build struct: %w", err)
	}
	payload, err := proto.Marshal(st)
	if err != nil {
		return nil, "", fmt.Errorf("failed to marshal struct: %w", err)
	}
	return payload, ContentTypeProtobuf, nil
}

// DecodeRecord reverses EncodeRecord.
func DecodeRecord(payload []byte, contentType string) (*record.Record, error) {
	data := payload
	switch contentType {
	case ContentTypeProtobuf:
		st := &structpb.Struct{}
		if err := proto.Unmarshal(payload, st); err != nil {
			return nil, fmt.Errorf("failed to unmarshal struct: %w", err)
		}
		var err error
		if data, err = protojson.Marshal(st); err != nil {
			return nil, err
		}
	case ContentTypeCloudEvents:
		evt, err := cloudevents.Unmarshal(payload)
		if err != nil {
			return nil, err
		}
		if evt.Type != cloudevents.TypeRecord {
			return nil, fmt.Errorf("unexpected event type %q", evt.Type)
		}
		data = evt.Data
	}
	rec := &record.Record{}
	if err := rec.UnmarshalJSON(data); err != nil {
		return nil, err
	}
	return rec, nil
}

func newRecordMessage(runID string, out Outcome, encoding string) (*message.Message, error) {
	id := ids.NewMessageID()
	payload, contentType, err := encodeRecord(out.Record, encoding, func(data []byte) cloudevents.Event {
		return cloudevents.NewWithID(id, cloudevents.TypeRecord, out.Span.Source, data).
			WithExtension(cloudevents.ExtRunID, runID).
			WithExtension(cloudevents.ExtLine, strconv.Itoa(out.Span.Line))
	})
	if err != nil {
		return nil, err
	}
	md := metadata.Provenance(runID, out.Span.Source, out.Span.Line).
		With(metadata.KeyABN, out.Record.ABN).
		With(metadata.KeyContentType, contentType)

	msg := message.NewMessage(id, payload)
	msg.Metadata = metadata.ToWatermill(md)
	return msg, nil
}

func newRejectionMessage(runID string, out Outcome) (*message.Message, error) {
	rej := NewRejection(out)
	payload, err := jsoncodec.Marshal(rej)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal rejection: %w", err)
	}
	md := metadata.Provenance(runID, out.Span.Source, out.Span.Line).
		With(metadata.KeyKind, rej.Kind).
		With(metadata.KeyContentType, ContentTypeJSON)

	msg := message.NewMessage(ids.NewMessageID(), payload)
	msg.Metadata = metadata.ToWatermill(md)
	return msg, nil
}
