// Package extract walks one record's nested-element text and routes every
// value it recognises into a Fields accumulator, keyed by structural
// position.
package extract

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"

	errspkg "github.com/drblury/abrflow/internal/runtime/errors"
)

// Extract walks span, which must hold exactly one well-formed record, and
// returns the populated accumulator. Unknown positions are collected in
// Fields.Unrouted. Any returned error is an *errors.RecordError.
func Extract(span string) (*Fields, error) {
	w := walker{fields: &Fields{}}
	if err := w.walk(strings.NewReader(span)); err != nil {
		return nil, err
	}
	return w.fields, nil
}

type walker struct {
	fields *Fields
	path   Path
	text   []byte
	root   bool
	// scratch holds "path@attr" keys while routing attributes.
	scratch []byte
}

func (w *walker) walk(r io.Reader) error {
	dec := xml.NewDecoder(r)
	for {
		tok, err := dec.RawToken()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return errspkg.Structural(w.path.Current(), "malformed record", err)
		}

		switch t := tok.(type) {
		case xml.StartElement:
			if err := w.flushText(); err != nil {
				return err
			}
			w.root = true
			w.path.Enter(t.Name.Local)
			if err := w.routeAttrs(t.Attr); err != nil {
				return err
			}
		case xml.EndElement:
			if err := w.flushText(); err != nil {
				return err
			}
			if w.path.Depth() == 0 || w.path.Current()[w.path.Depth()-1] != t.Name.Local {
				return errspkg.Structural(w.path.Current(), "malformed record",
					fmt.Errorf("unexpected end element </%s>", t.Name.Local))
			}
			w.path.Exit()
		case xml.CharData:
			if w.path.Depth() == 0 {
				if len(bytes.TrimSpace(t)) > 0 {
					return errspkg.Structural(nil, "malformed record", errors.New("text outside root element"))
				}
				continue
			}
			w.text = append(w.text, t...)
		}
	}

	if !w.root {
		return errspkg.Structural(nil, "malformed record", errors.New("no root element"))
	}
	if w.path.Depth() != 0 {
		return errspkg.Structural(w.path.Current(), "malformed record", io.ErrUnexpectedEOF)
	}
	return w.checkAligned()
}

// flushText routes the character data gathered for the current element.
// Whitespace-only runs between elements are dropped.
func (w *walker) flushText() error {
	if len(w.text) == 0 {
		return nil
	}
	text := w.text
	w.text = w.text[:0]
	if len(bytes.TrimSpace(text)) == 0 {
		return nil
	}

	value := string(text)
	r, ok := contentRoutes[string(w.path.key)]
	if !ok {
		w.unrouted("", value)
		return nil
	}
	return w.apply(r, "", value)
}

func (w *walker) routeAttrs(attrs []xml.Attr) error {
	for _, a := range attrs {
		if a.Name.Space == "xmlns" || (a.Name.Space == "" && a.Name.Local == "xmlns") {
			continue
		}
		w.scratch = append(w.scratch[:0], w.path.key...)
		w.scratch = append(w.scratch, '@')
		w.scratch = append(w.scratch, a.Name.Local...)

		r, ok := attributeRoutes[string(w.scratch)]
		if !ok {
			w.unrouted(a.Name.Local, a.Value)
			continue
		}
		if err := w.apply(r, a.Name.Local, a.Value); err != nil {
			return err
		}
	}
	return nil
}

func (w *walker) apply(r route, attr, value string) error {
	err := r(w.fields, value)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, errUnrouted):
		w.unrouted(attr, value)
		return nil
	}

	var rec *errspkg.RecordError
	if errors.As(err, &rec) {
		if rec.Path == nil {
			rec.Path = append([]string(nil), w.path.Current()...)
		}
		return rec
	}
	rule := "already set"
	if attr != "" {
		rule = "attribute " + attr + " already set"
	}
	return errspkg.Structural(w.path.Current(), rule, err)
}

func (w *walker) unrouted(attr, value string) {
	w.fields.Unrouted = append(w.fields.Unrouted, Unrouted{
		Path:  w.path.String(),
		Attr:  attr,
		Value: value,
	})
}

func (w *walker) checkAligned() error {
	f := w.fields
	if len(f.OtherNames) != len(f.OtherNameTypes) {
		return errspkg.Structural([]string{"ABR", "OtherEntity", "NonIndividualName"}, "misaligned other names",
			fmt.Errorf("%d names but %d name types", len(f.OtherNames), len(f.OtherNameTypes)))
	}
	if len(f.DGRNames) != len(f.DGRDates) {
		return errspkg.Structural([]string{"ABR", "DGR"}, "misaligned dgr entries",
			fmt.Errorf("%d names but %d dates", len(f.DGRNames), len(f.DGRDates)))
	}
	return nil
}
