// Package normalize turns the raw values of one extracted record into a
// validated record.Record, or a rejection explaining the first rule the
// record breaks.
package normalize

import (
	"github.com/drblury/abrflow/internal/extract"
	"github.com/drblury/abrflow/internal/record"
	errspkg "github.com/drblury/abrflow/internal/runtime/errors"
)

// Raw tokens used by the source register.
const (
	replacedYes = "Y"
	replacedNo  = "N"

	statusActive     = "ACT"
	statusCancelled  = "CAN"
	gstNotRegistered = "NON"

	postcodeUnknown = "0000"
	gstNeverDate    = "19000101"

	asicUndetermined = "undetermined"

	individualLegalName = "LGL"
	mainName            = "MN"

	otherBusinessName = "BN"
	otherTradingName  = "TRD"
	otherName         = "OTN"
)

// Normalize validates f and builds the record. Rules are checked in a fixed
// order and the first failure is returned as an *errors.RecordError.
func Normalize(f *extract.Fields) (*record.Record, error) {
	if err := checkReplaced(f.Replaced); err != nil {
		return nil, err
	}

	abn, err := required(f.ABN, "abn")
	if err != nil {
		return nil, err
	}
	rawStatus, err := required(f.ABNStatus, "abn status")
	if err != nil {
		return nil, err
	}
	rawStatusSince, err := required(f.ABNStatusSince, "abn status date")
	if err != nil {
		return nil, err
	}
	rawLastUpdated, err := required(f.LastUpdated, "last updated date")
	if err != nil {
		return nil, err
	}
	rawEntityType, err := required(f.EntityTypeCode, "entity type")
	if err != nil {
		return nil, err
	}

	status, ok := parseStatus(rawStatus)
	if !ok {
		return nil, errspkg.DomainFormat("abn status", "invalid abn status: %s", rawStatus)
	}

	statusSince, err := parseDate("abn status date", rawStatusSince)
	if err != nil {
		return nil, err
	}
	lastUpdated, err := parseDate("last updated date", rawLastUpdated)
	if err != nil {
		return nil, err
	}

	rec := &record.Record{
		ABN:         abn,
		Status:      status,
		StatusSince: statusSince,
		LastUpdated: lastUpdated,
		State:       f.State,
	}

	if f.Postcode != nil && *f.Postcode != postcodeUnknown {
		rec.Postcode = f.Postcode
	}

	if rec.ASICNumber, err = asicNumber(f.ASICNumber, f.ASICNumberType); err != nil {
		return nil, err
	}

	if rec.GSTStatus, rec.GSTStatusSince, err = gst(f.GSTStatus, f.GSTStatusSince); err != nil {
		return nil, err
	}

	entityType, ok := record.ParseEntityType(rawEntityType)
	if !ok {
		return nil, errspkg.DomainFormat("entity type", "unknown entity type: code=%q label=%q",
			rawEntityType, valueOrEmpty(f.EntityTypeText))
	}
	rec.EntityType = entityType

	if rec.EntityName, err = entityName(f); err != nil {
		return nil, err
	}

	if rec.BusinessNames, rec.TradeNames, err = otherNames(f.OtherNames, f.OtherNameTypes); err != nil {
		return nil, err
	}

	return rec, nil
}

// checkReplaced accepts only the "not replaced" token. Superseded records
// are not handled so a "Y" is rejected rather than silently passed on.
func checkReplaced(raw *string) error {
	if raw == nil {
		return nil
	}
	switch *raw {
	case replacedNo:
		return nil
	case replacedYes:
		return errspkg.DomainFormat("replaced", "replaced records are not supported")
	default:
		return errspkg.DomainFormat("replaced", "invalid replaced flag: %s", *raw)
	}
}

func required(v *string, field string) (string, error) {
	if v == nil {
		return "", errspkg.Missing(field)
	}
	return *v, nil
}

func parseStatus(raw string) (record.Status, bool) {
	switch raw {
	case statusActive:
		return record.Active, true
	case statusCancelled:
		return record.Cancelled, true
	default:
		return 0, false
	}
}

func parseDate(field, raw string) (record.Date, error) {
	d, err := record.ParseRawDate(raw)
	if err != nil {
		return record.Date{}, &errspkg.RecordError{Kind: errspkg.KindDomainFormat, Rule: field, Err: err}
	}
	return d, nil
}

func asicNumber(number, kind *string) (*string, error) {
	if number == nil {
		if kind != nil {
			return nil, errspkg.DomainFormat("asic number type", "asic number type %s without a number", *kind)
		}
		return nil, nil
	}
	if kind == nil || *kind != asicUndetermined {
		return nil, errspkg.DomainFormat("asic number type", "invalid asic number type: %s", valueOrEmpty(kind))
	}
	return number, nil
}

// gst maps the raw secondary status and date. "NON" means never registered
// and drops the date along with it.
func gst(rawStatus, rawSince *string) (*record.Status, *record.Date, error) {
	var status *record.Status
	if rawStatus != nil {
		switch *rawStatus {
		case gstNotRegistered:
			return nil, nil, nil
		default:
			s, ok := parseStatus(*rawStatus)
			if !ok {
				return nil, nil, errspkg.DomainFormat("gst status", "invalid gst status: %s", *rawStatus)
			}
			status = &s
		}
	}

	var since *record.Date
	if rawSince != nil && *rawSince != gstNeverDate {
		d, err := parseDate("gst status date", *rawSince)
		if err != nil {
			return nil, nil, err
		}
		since = &d
	}

	if (status == nil) != (since == nil) {
		return nil, nil, errspkg.DomainFormat("gst status combination",
			"invalid gst status combination: status=%q date=%q", valueOrEmpty(rawStatus), valueOrEmpty(rawSince))
	}
	return status, since, nil
}

func entityName(f *extract.Fields) (record.EntityName, error) {
	if f.IndividualNameType != nil {
		if *f.IndividualNameType != individualLegalName {
			return nil, errspkg.DomainFormat("individual name type", "unexpected individual name type: %s", *f.IndividualNameType)
		}
		family, err := required(f.FamilyName, "family name")
		if err != nil {
			return nil, err
		}
		return record.Individual{
			Title:  f.NameTitle,
			Given:  f.GivenName,
			Given2: f.SecondGivenName,
			Family: family,
		}, nil
	}

	if f.NonIndividualNameType == nil || *f.NonIndividualNameType != mainName {
		return nil, errspkg.DomainFormat("non-individual name type", "unexpected non-individual name type: %s",
			valueOrEmpty(f.NonIndividualNameType))
	}
	name, err := required(f.NonIndividualName, "non-individual name")
	if err != nil {
		return nil, err
	}
	return record.NonIndividual{Name: name}, nil
}

func otherNames(names, kinds []string) (business, trade []string, err error) {
	if len(names) != len(kinds) {
		return nil, nil, errspkg.Structural(nil, "misaligned other names", nil)
	}
	for i, name := range names {
		switch kinds[i] {
		case otherBusinessName:
			business = append(business, name)
		case otherTradingName, otherName:
			trade = append(trade, name)
		default:
			return nil, nil, errspkg.DomainFormat("other name type", "unknown name type: %s", kinds[i])
		}
	}
	return business, trade, nil
}

func valueOrEmpty(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
