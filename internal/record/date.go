package record

import (
	"fmt"
	"time"
)

// RawDateLayout is the eight-digit year-month-day layout used by the source.
const RawDateLayout = "20060102"

// Date is a calendar day without time-of-day or zone.
type Date struct {
	t time.Time
}

// NewDate returns the given calendar day.
func NewDate(year int, month time.Month, day int) Date {
	return Date{t: time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

// ParseRawDate parses a YYYYMMDD value.
func ParseRawDate(raw string) (Date, error) {
	if len(raw) != len(RawDateLayout) {
		return Date{}, fmt.Errorf("invalid date %q: want %d digits", raw, len(RawDateLayout))
	}
	t, err := time.Parse(RawDateLayout, raw)
	if err != nil {
		return Date{}, fmt.Errorf("invalid date %q: %w", raw, err)
	}
	return Date{t: t}, nil
}

func (d Date) Time() time.Time { return d.t }
func (d Date) IsZero() bool    { return d.t.IsZero() }

func (d Date) String() string {
	return d.t.Format(time.DateOnly)
}

func (d Date) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

func (d *Date) UnmarshalText(text []byte) error {
	t, err := time.Parse(time.DateOnly, string(text))
	if err != nil {
		return err
	}
	d.t = t
	return nil
}
