package record

import (
	"reflect"
	"testing"

	"github.com/drblury/abrflow/internal/runtime/jsoncodec"
)

func strPtr(s string) *string { return &s }

func TestRecordJSONShape(t *testing.T) {
	gst := Active
	since := NewDate(2000, 7, 1)
	rec := Record{
		ABN:            "11000000948",
		Status:         Active,
		StatusSince:    NewDate(1999, 11, 1),
		LastUpdated:    NewDate(2018, 6, 5),
		EntityName:     NonIndividual{Name: "QBE"},
		EntityType:     EntityType("PUB"),
		TradeNames:     []string{"QBE DIRECT"},
		Postcode:       strPtr("2000"),
		GSTStatus:      &gst,
		GSTStatusSince: &since,
	}

	data, err := jsoncodec.Marshal(rec)
	if err != nil {
		t.Fatalf("Marshal returned error: %v", err)
	}

	var got map[string]any
	if err := jsoncodec.Unmarshal(data, &got); err != nil {
		t.Fatalf("Unmarshal returned error: %v", err)
	}
	want := map[string]any{
		"abn":              "11000000948",
		"status":           "Active",
		"status_since":     "1999-11-01",
		"last_updated":     "2018-06-05",
		"entity_name":      map[string]any{"type": "NonIndividual", "name": "QBE"},
		"entity_type":      "PUB",
		"trade_names":      []any{"QBE DIRECT"},
		"postcode":         "2000",
		"gst_status":       "Active",
		"gst_status_since": "2000-07-01",
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("unexpected JSON object:\n got %v\nwant %v", got, want)
	}
}

func TestRecordJSONRoundTripsIndividual(t *testing.T) {
	rec := Record{
		ABN:         "53004085616",
		Status:      Cancelled,
		StatusSince: NewDate(2010, 1, 1),
		LastUpdated: NewDate(2020, 1, 1),
		EntityName:  Individual{Given: strPtr("JANE"), Given2: strPtr("MARY"), Family: "DOE"},
		EntityType:  EntityType("IND"),
	}
	data, err := jsoncodec.Marshal(rec)
	if err != nil {
		t.Fatalf("Marshal returned error: %v", err)
	}

	var back Record
	if err := jsoncodec.Unmarshal(data, &back); err != nil {
		t.Fatalf("Unmarshal returned error: %v", err)
	}
	if !reflect.DeepEqual(back, rec) {
		t.Fatalf("round trip mismatch:\n got %+v\nwant %+v", back, rec)
	}
}

func TestParseRawDate(t *testing.T) {
	tests := []struct {
		raw     string
		want    Date
		wantErr bool
	}{
		{raw: "19991101", want: NewDate(1999, 11, 1)},
		{raw: "20240229", want: NewDate(2024, 2, 29)},
		{raw: "20230229", wantErr: true},
		{raw: "1999111", wantErr: true},
		{raw: "1999-11-01", wantErr: true},
		{raw: "", wantErr: true},
	}
	for _, tt := range tests {
		got, err := ParseRawDate(tt.raw)
		if tt.wantErr {
			if err == nil {
				t.Errorf("ParseRawDate(%q) expected error", tt.raw)
			}
			continue
		}
		if err != nil || got != tt.want {
			t.Errorf("ParseRawDate(%q) = %v, %v; want %v", tt.raw, got, err, tt.want)
		}
	}
}

func TestParseEntityType(t *testing.T) {
	if EntityTypeCount() != 85 {
		t.Fatalf("expected 85 entity types, got %d", EntityTypeCount())
	}
	for _, code := range []string{"IND", "PRV", "FPT", "CGC", "PUB"} {
		et, ok := ParseEntityType(code)
		if !ok || !et.Valid() || et.Description() == "" {
			t.Errorf("expected %s to be a known entity type", code)
		}
	}
	if _, ok := ParseEntityType("ZZZ"); ok {
		t.Fatal("ZZZ must not be a known entity type")
	}
}

func TestStatusText(t *testing.T) {
	var s Status
	if err := s.UnmarshalText([]byte("Cancelled")); err != nil || s != Cancelled {
		t.Fatalf("unexpected status %v, %v", s, err)
	}
	if _, err := Status(0).MarshalText(); err == nil {
		t.Fatal("expected zero status to fail to marshal")
	}
}
