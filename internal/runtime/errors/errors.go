package errors

import (
	sterrors "errors"
	"fmt"
	"strings"
)

var (
	ErrConfigRequired    = sterrors.New("abrflow: configuration is required")
	ErrLoggerRequired    = sterrors.New("abrflow: logger is required")
	ErrSinkRequired      = sterrors.New("abrflow: sink is required")
	ErrPublisherRequired = sterrors.New("abrflow: publisher is required")
	ErrTopicRequired     = sterrors.New("abrflow: topic is required")
	ErrInputRequired     = sterrors.New("abrflow: at least one input source is required")
	ErrWriterRequired    = sterrors.New("abrflow: output writer is required")
)

// ConfigValidationError wraps the joined problems reported by Config.Validate.
type ConfigValidationError struct {
	Err error
}

func (e ConfigValidationError) Error() string {
	return "abrflow: invalid configuration: " + e.Err.Error()
}

func (e ConfigValidationError) Unwrap() error {
	return e.Err
}

// NewConfigValidationError returns nil when err is nil so callers can wrap
// the result of Validate unconditionally.
func NewConfigValidationError(err error) error {
	if err == nil {
		return nil
	}
	return ConfigValidationError{Err: err}
}

// Kind classifies why a single record was rejected.
type Kind int

const (
	// KindStructural covers malformed event streams, double writes of a
	// single-valued field and misaligned repeated fields.
	KindStructural Kind = iota + 1
	// KindMissingField is reported when a required value is absent.
	KindMissingField
	// KindDomainFormat covers unparseable or unrecognised values and
	// inconsistent optional pairings.
	KindDomainFormat
)

func (k Kind) String() string {
	switch k {
	case KindStructural:
		return "structural"
	case KindMissingField:
		return "missing_field"
	case KindDomainFormat:
		return "domain_format"
	default:
		return "unknown"
	}
}

// RecordError is the rejection of one record. It never aborts a batch.
type RecordError struct {
	Kind Kind
	// Rule names the violated rule or the field involved.
	Rule string
	// Path is the ancestor chain at the point of failure, set for
	// extraction-time errors.
	Path []string
	Err  error
}

func (e *RecordError) Error() string {
	var b strings.Builder
	b.WriteString(e.Kind.String())
	if e.Rule != "" {
		b.WriteString(": ")
		b.WriteString(e.Rule)
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	if len(e.Path) > 0 {
		b.WriteString(" (in ")
		b.WriteString(strings.Join(e.Path, "/"))
		b.WriteString(")")
	}
	return b.String()
}

func (e *RecordError) Unwrap() error {
	return e.Err
}

// Structural builds a KindStructural rejection.
func Structural(path []string, rule string, err error) *RecordError {
	return &RecordError{Kind: KindStructural, Rule: rule, Path: clonePath(path), Err: err}
}

// Missing builds a KindMissingField rejection naming the absent field.
func Missing(field string) *RecordError {
	return &RecordError{Kind: KindMissingField, Rule: "missing " + field}
}

// DomainFormat builds a KindDomainFormat rejection with a formatted cause.
func DomainFormat(rule, format string, args ...any) *RecordError {
	return &RecordError{Kind: KindDomainFormat, Rule: rule, Err: fmt.Errorf(format, args...)}
}

// KindOf reports the rejection kind carried by err, or zero.
func KindOf(err error) Kind {
	var rec *RecordError
	if sterrors.As(err, &rec) {
		return rec.Kind
	}
	return 0
}

func clonePath(path []string) []string {
	if len(path) == 0 {
		return nil
	}
	out := make([]string, len(path))
	copy(out, path)
	return out
}
