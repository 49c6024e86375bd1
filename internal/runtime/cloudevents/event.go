// Package cloudevents wraps published payloads in CloudEvents v1.0
// structured-mode JSON envelopes.
// See https://github.com/cloudevents/spec/blob/v1.0/spec.md.
package cloudevents

import (
	"encoding/json"
	"fmt"
	"regexp"
	"sort"
	"time"

	"github.com/drblury/abrflow/internal/runtime/ids"
	"github.com/drblury/abrflow/internal/runtime/jsoncodec"
)

// SpecVersion is the CloudEvents specification version implemented.
const SpecVersion = "1.0"

// ContentType is the media type of a structured-mode event.
const ContentType = "application/cloudevents+json"

// Event types emitted by the pipeline.
const (
	TypeRecord    = "au.gov.abr.record.v1"
	TypeRejection = "au.gov.abr.rejection.v1"
)

// Extension attributes stamped on every event.
const (
	ExtRunID = "abrflowrunid"
	ExtLine  = "abrflowline"
)

var extensionName = regexp.MustCompile(`^[a-z0-9]{1,20}$`)

// reserved attribute names cannot be used as extensions.
var reserved = map[string]bool{
	"specversion":     true,
	"type":            true,
	"source":          true,
	"id":              true,
	"time":            true,
	"datacontenttype": true,
	"dataschema":      true,
	"subject":         true,
	"data":            true,
	"data_base64":     true,
}

// Event is a CloudEvent whose data is already encoded JSON.
type Event struct {
	ID              string
	Type            string
	Source          string
	Time            time.Time
	Subject         string
	DataContentType string
	Data            json.RawMessage

	// Extensions are flattened into the top-level object.
	Extensions map[string]string
}

// New creates an event with a ULID id and the current UTC time.
func New(eventType, source string, data []byte) Event {
	return NewWithID(ids.NewMessageID(), eventType, source, data)
}

// NewWithID creates an event with a caller-chosen id.
func NewWithID(id, eventType, source string, data []byte) Event {
	return Event{
		ID:              id,
		Type:            eventType,
		Source:          source,
		Time:            time.Now().UTC(),
		DataContentType: "application/json",
		Data:            data,
	}
}

// WithSubject sets the subject and returns the event.
func (e Event) WithSubject(subject string) Event {
	e.Subject = subject
	return e
}

// WithExtension sets an extension attribute and returns the event. The map
// is copied so events derived from one another never share it.
func (e Event) WithExtension(key, value string) Event {
	ext := make(map[string]string, len(e.Extensions)+1)
	for k, v := range e.Extensions {
		ext[k] = v
	}
	ext[key] = value
	e.Extensions = ext
	return e
}

// Validate checks the required attributes and extension names.
func (e Event) Validate() error {
	switch {
	case e.ID == "":
		return fmt.Errorf("id is required")
	case e.Type == "":
		return fmt.Errorf("type is required")
	case e.Source == "":
		return fmt.Errorf("source is required")
	}
	for _, k := range e.extensionKeys() {
		if reserved[k] || !extensionName.MatchString(k) {
			return fmt.Errorf("invalid extension name %q", k)
		}
	}
	return nil
}

func (e Event) extensionKeys() []string {
	keys := make([]string, 0, len(e.Extensions))
	for k := range e.Extensions {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Marshal validates e and renders it in structured mode.
func Marshal(e Event) ([]byte, error) {
	if err := e.Validate(); err != nil {
		return nil, fmt.Errorf("invalid event: %w", err)
	}

	m := map[string]any{
		"specversion": SpecVersion,
		"id":          e.ID,
		"type":        e.Type,
		"source":      e.Source,
	}
	if !e.Time.IsZero() {
		m["time"] = e.Time.Format(time.RFC3339Nano)
	}
	if e.Subject != "" {
		m["subject"] = e.Subject
	}
	if e.DataContentType != "" {
		m["datacontenttype"] = e.DataContentType
	}
	if len(e.Data) > 0 {
		m["data"] = e.Data
	}
	for k, v := range e.Extensions {
		m[k] = v
	}
	return jsoncodec.Marshal(m)
}

// Unmarshal parses a structured-mode event. Extension values that are not
// strings are rejected.
func Unmarshal(data []byte) (Event, error) {
	var raw map[string]json.RawMessage
	if err := jsoncodec.Unmarshal(data, &raw); err != nil {
		return Event{}, fmt.Errorf("invalid event: %w", err)
	}

	var e Event
	var version, stamp string
	for _, f := range []struct {
		name string
		dst  *string
	}{
		{"specversion", &version},
		{"id", &e.ID},
		{"type", &e.Type},
		{"source", &e.Source},
		{"time", &stamp},
		{"subject", &e.Subject},
		{"datacontenttype", &e.DataContentType},
	} {
		if v, ok := raw[f.name]; ok {
			if err := jsoncodec.Unmarshal(v, f.dst); err != nil {
				return Event{}, fmt.Errorf("invalid %s: %w", f.name, err)
			}
		}
	}
	if version != SpecVersion {
		return Event{}, fmt.Errorf("unsupported specversion %q", version)
	}
	if stamp != "" {
		t, err := ParseTime(stamp)
		if err != nil {
			return Event{}, fmt.Errorf("invalid time: %w", err)
		}
		e.Time = t
	}
	e.Data = raw["data"]

	for k, v := range raw {
		if reserved[k] {
			continue
		}
		var s string
		if err := jsoncodec.Unmarshal(v, &s); err != nil {
			return Event{}, fmt.Errorf("invalid extension %q: %w", k, err)
		}
		e = e.WithExtension(k, s)
	}
	if err := e.Validate(); err != nil {
		return Event{}, fmt.Errorf("invalid event: %w", err)
	}
	return e, nil
}
