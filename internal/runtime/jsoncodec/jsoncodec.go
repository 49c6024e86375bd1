package jsoncodec

import (
	"io"

	"github.com/bytedance/sonic"
)

var defaultConfig = sonic.ConfigStd

func Marshal(v any) ([]byte, error) {
	return defaultConfig.Marshal(v)
}

func MarshalIndent(v any, prefix, indent string) ([]byte, error) {
	return defaultConfig.MarshalIndent(v, prefix, indent)
}

func Unmarshal(data []byte, v any) error {
	return defaultConfig.Unmarshal(data, v)
}

func Encode(w io.Writer, v any) error {
	enc := defaultConfig.NewEncoder(w)
	return enc.Encode(v)
}

func Decode(r io.Reader, v any) error {
	dec := defaultConfig.NewDecoder(r)
	return dec.Decode(v)
}

// LineWriter writes one compact JSON document per line.
type LineWriter struct {
	w   io.Writer
	buf []byte
}

// NewLineWriter wraps w. It does not buffer across calls; wrap w in a
// bufio.Writer for throughput.
func NewLineWriter(w io.Writer) *LineWriter {
	return &LineWriter{w: w}
}

// WriteValue marshals v and writes it followed by a newline.
func (l *LineWriter) WriteValue(v any) error {
	data, err := Marshal(v)
	if err != nil {
		return err
	}
	return l.WriteRaw(data)
}

// WriteRaw writes an already encoded document followed by a newline.
func (l *LineWriter) WriteRaw(data []byte) error {
	l.buf = append(l.buf[:0], data...)
	l.buf = append(l.buf, '\n')
	_, err := l.w.Write(l.buf)
	return err
}
