// Package record holds the normalized, validated form of one registry entry.
package record

import (
	"encoding/json"
	"fmt"

	"github.com/drblury/abrflow/internal/runtime/jsoncodec"
)

// Status is the registration state of the primary or secondary registration.
type Status int

const (
	Active Status = iota + 1
	Cancelled
)

func (s Status) String() string {
	switch s {
	case Active:
		return "Active"
	case Cancelled:
		return "Cancelled"
	default:
		return "Unknown"
	}
}

func (s Status) MarshalText() ([]byte, error) {
	if s != Active && s != Cancelled {
		return nil, fmt.Errorf("invalid status %d", int(s))
	}
	return []byte(s.String()), nil
}

func (s *Status) UnmarshalText(text []byte) error {
	switch string(text) {
	case "Active":
		*s = Active
	case "Cancelled":
		*s = Cancelled
	default:
		return fmt.Errorf("invalid status %q", text)
	}
	return nil
}

// EntityName is either an Individual or a NonIndividual.
type EntityName interface {
	entityName()
	// Display renders the name as a single line.
	Display() string
}

// Individual is the legal name of a natural person.
type Individual struct {
	Title  *string `json:"title,omitempty"`
	Given  *string `json:"given,omitempty"`
	Given2 *string `json:"given_2,omitempty"`
	Family string  `json:"family"`
}

// NonIndividual is the main name of an organisation, trust, fund or similar.
type NonIndividual struct {
	Name string `json:"name"`
}

func (Individual) entityName()    {}
func (NonIndividual) entityName() {}

func (n Individual) Display() string {
	out := ""
	for _, part := range []*string{n.Title, n.Given, n.Given2} {
		if part != nil && *part != "" {
			out += *part + " "
		}
	}
	return out + n.Family
}

func (n NonIndividual) Display() string { return n.Name }

const (
	nameTypeIndividual    = "Individual"
	nameTypeNonIndividual = "NonIndividual"
)

func (n Individual) MarshalJSON() ([]byte, error) {
	type plain Individual
	return jsoncodec.Marshal(struct {
		Type string `json:"type"`
		plain
	}{Type: nameTypeIndividual, plain: plain(n)})
}

func (n NonIndividual) MarshalJSON() ([]byte, error) {
	type plain NonIndividual
	return jsoncodec.Marshal(struct {
		Type string `json:"type"`
		plain
	}{Type: nameTypeNonIndividual, plain: plain(n)})
}

// Record is the normalized output for one entity. It is built once by the
// normalizer and never mutated afterwards.
type Record struct {
	ABN         string     `json:"abn"`
	Status      Status     `json:"status"`
	StatusSince Date       `json:"status_since"`
	LastUpdated Date       `json:"last_updated"`
	EntityName  EntityName `json:"entity_name"`
	EntityType  EntityType `json:"entity_type"`

	BusinessNames []string `json:"business_names,omitempty"`
	TradeNames    []string `json:"trade_names,omitempty"`

	Postcode *string `json:"postcode,omitempty"`
	State    *string `json:"state,omitempty"`

	ASICNumber *string `json:"asic_number,omitempty"`

	GSTStatus      *Status `json:"gst_status,omitempty"`
	GSTStatusSince *Date   `json:"gst_status_since,omitempty"`
}

// UnmarshalJSON restores the tagged entity name union.
func (r *Record) UnmarshalJSON(data []byte) error {
	type plain Record
	aux := struct {
		*plain
		EntityName json.RawMessage `json:"entity_name"`
	}{plain: (*plain)(r)}
	if err := jsoncodec.Unmarshal(data, &aux); err != nil {
		return err
	}
	if len(aux.EntityName) == 0 {
		r.EntityName = nil
		return nil
	}

	var tag struct {
		Type string `json:"type"`
	}
	if err := jsoncodec.Unmarshal(aux.EntityName, &tag); err != nil {
		return err
	}
	switch tag.Type {
	case nameTypeIndividual:
		var n Individual
		if err := jsoncodec.Unmarshal(aux.EntityName, &n); err != nil {
			return err
		}
		r.EntityName = n
	case nameTypeNonIndividual:
		var n NonIndividual
		if err := jsoncodec.Unmarshal(aux.EntityName, &n); err != nil {
			return err
		}
		r.EntityName = n
	default:
		return fmt.Errorf("unknown entity name type %q", tag.Type)
	}
	return nil
}
