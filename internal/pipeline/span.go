package pipeline

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"golang.org/x/text/encoding/htmlindex"
	"golang.org/x/text/transform"
)

// Span is the raw text of one record and where it was read from.
type Span struct {
	Source string
	// Line is 1-based.
	Line int
	Text string
}

// ReaderOptions describes the container layout of an input file.
type ReaderOptions struct {
	// HeaderLines leading lines are skipped.
	HeaderLines int
	// CloseMarker lines are skipped wherever they occur.
	CloseMarker string
	// Charset names the input encoding. Empty, "utf-8" and "utf8" read the
	// bytes unchanged.
	Charset      string
	MaxLineBytes int
}

// SpanReader splits a container file into record spans, one per line.
type SpanReader struct {
	source  string
	opts    ReaderOptions
	scanner *bufio.Scanner
	line    int
}

// NewSpanReader wraps r, decoding it from opts.Charset first.
func NewSpanReader(r io.Reader, source string, opts ReaderOptions) (*SpanReader, error) {
	decoded, err := decodeCharset(r, opts.Charset)
	if err != nil {
		return nil, err
	}

	maxLine := opts.MaxLineBytes
	if maxLine <= 0 {
		maxLine = 16 << 20
	}
	scanner := bufio.NewScanner(decoded)
	// the scanner's limit is the larger of maxLine and the initial capacity
	scanner.Buffer(make([]byte, 0, min(64*1024, maxLine)), maxLine)

	return &SpanReader{source: source, opts: opts, scanner: scanner}, nil
}

func decodeCharset(r io.Reader, charset string) (io.Reader, error) {
	switch strings.ToLower(strings.TrimSpace(charset)) {
	case "", "utf-8", "utf8":
		return r, nil
	}
	enc, err := htmlindex.Get(charset)
	if err != nil {
		return nil, fmt.Errorf("unsupported charset %q: %w", charset, err)
	}
	return transform.NewReader(r, enc.NewDecoder()), nil
}

// Next fills up to max spans. It returns io.EOF once the input is exhausted
// and no spans were read. Any other error is a fatal read error.
func (s *SpanReader) Next(max int) ([]Span, error) {
	if max <= 0 {
		max = 1
	}
	var spans []Span
	for len(spans) < max && s.scanner.Scan() {
		s.line++
		text := strings.TrimSuffix(s.scanner.Text(), "\r")
		if s.line <= s.opts.HeaderLines || text == s.opts.CloseMarker {
			continue
		}
		spans = append(spans, Span{Source: s.source, Line: s.line, Text: text})
	}
	if err := s.scanner.Err(); err != nil {
		return spans, fmt.Errorf("read %s line %d: %w", s.source, s.line+1, err)
	}
	if len(spans) == 0 {
		return nil, io.EOF
	}
	return spans, nil
}
