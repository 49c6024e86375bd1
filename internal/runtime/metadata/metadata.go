package metadata

import "strconv"

// Keys carried on every published record or rejection.
const (
	KeyRunID       = "abrflow_run_id"
	KeySource      = "abrflow_source"
	KeyLine        = "abrflow_line"
	KeyABN         = "abn"
	KeyContentType = "content_type"
	KeyKind        = "abrflow_rejection_kind"
)

// Metadata represents the headers carried alongside a published record.
type Metadata map[string]string

func (m Metadata) cloneWithExtra(extra int) Metadata {
	size := len(m) + extra
	if size <= 0 {
		return Metadata{}
	}

	cloned := make(Metadata, size)
	for k, v := range m {
		cloned[k] = v
	}
	return cloned
}

// Clone returns a shallow copy of the metadata map.
func (m Metadata) Clone() Metadata {
	return m.cloneWithExtra(0)
}

// With returns a cloned metadata map containing the provided key/value pair.
// Empty values are skipped so optional headers stay absent.
func (m Metadata) With(key, value string) Metadata {
	cloned := m.cloneWithExtra(1)
	if value != "" {
		cloned[key] = value
	}
	return cloned
}

// New constructs a Metadata map from alternating key/value pairs.
func New(pairs ...string) Metadata {
	md := make(Metadata, len(pairs)/2)
	for i := 0; i < len(pairs)-1; i += 2 {
		md[pairs[i]] = pairs[i+1]
	}
	return md
}

// Provenance describes where a record span came from.
func Provenance(runID, source string, line int) Metadata {
	md := New(KeyRunID, runID, KeySource, source)
	if line > 0 {
		md[KeyLine] = strconv.Itoa(line)
	}
	return md
}
