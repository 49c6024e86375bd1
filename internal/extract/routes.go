package extract

import (
	"errors"

	errspkg "github.com/drblury/abrflow/internal/runtime/errors"
)

// errUnrouted lets a route decline a value so it is reported as schema drift.
var errUnrouted = errors.New("unrouted")

type route func(f *Fields, value string) error

const (
	dgrActiveStatus = "ACT"
	dgrNameType     = "DGR"
)

func attrKey(path, attr string) string {
	return path + "@" + attr
}

// contentRoutes maps an element path to the field that receives its text.
var contentRoutes = map[string]route{
	"ABR/ABN": func(f *Fields, v string) error { return set(&f.ABN, v) },

	"ABR/EntityType/EntityTypeInd":  func(f *Fields, v string) error { return set(&f.EntityTypeCode, v) },
	"ABR/EntityType/EntityTypeText": func(f *Fields, v string) error { return set(&f.EntityTypeText, v) },

	"ABR/LegalEntity/IndividualName/NameTitle":  func(f *Fields, v string) error { return set(&f.NameTitle, v) },
	"ABR/LegalEntity/IndividualName/GivenName":  func(f *Fields, v string) error { return f.setGiven(v) },
	"ABR/LegalEntity/IndividualName/FamilyName": func(f *Fields, v string) error { return set(&f.FamilyName, v) },

	"ABR/MainEntity/BusinessAddress/AddressDetails/State":     func(f *Fields, v string) error { return set(&f.State, v) },
	"ABR/LegalEntity/BusinessAddress/AddressDetails/State":    func(f *Fields, v string) error { return set(&f.State, v) },
	"ABR/MainEntity/BusinessAddress/AddressDetails/Postcode":  func(f *Fields, v string) error { return set(&f.Postcode, v) },
	"ABR/LegalEntity/BusinessAddress/AddressDetails/Postcode": func(f *Fields, v string) error { return set(&f.Postcode, v) },

	"ABR/MainEntity/NonIndividualName/NonIndividualNameText": func(f *Fields, v string) error { return set(&f.NonIndividualName, v) },
	"ABR/OtherEntity/NonIndividualName/NonIndividualNameText": func(f *Fields, v string) error {
		f.OtherNames = append(f.OtherNames, v)
		return nil
	},
	"ABR/DGR/NonIndividualName/NonIndividualNameText": func(f *Fields, v string) error {
		f.DGRNames = append(f.DGRNames, v)
		return nil
	},

	"ABR/ASICNumber": func(f *Fields, v string) error { return set(&f.ASICNumber, v) },
}

// attributeRoutes maps "path@attribute" to the field that receives the
// attribute value. The path includes the element carrying the attribute.
var attributeRoutes = map[string]route{
	attrKey("ABR", "recordLastUpdatedDate"): func(f *Fields, v string) error { return set(&f.LastUpdated, v) },
	attrKey("ABR", "replaced"):              func(f *Fields, v string) error { return set(&f.Replaced, v) },

	attrKey("ABR/ABN", "status"):            func(f *Fields, v string) error { return set(&f.ABNStatus, v) },
	attrKey("ABR/ABN", "ABNStatusFromDate"): func(f *Fields, v string) error { return set(&f.ABNStatusSince, v) },

	attrKey("ABR/LegalEntity/IndividualName", "type"):   func(f *Fields, v string) error { return set(&f.IndividualNameType, v) },
	attrKey("ABR/MainEntity/NonIndividualName", "type"): func(f *Fields, v string) error { return set(&f.NonIndividualNameType, v) },
	attrKey("ABR/OtherEntity/NonIndividualName", "type"): func(f *Fields, v string) error {
		f.OtherNameTypes = append(f.OtherNameTypes, v)
		return nil
	},

	attrKey("ABR/GST", "status"):            func(f *Fields, v string) error { return set(&f.GSTStatus, v) },
	attrKey("ABR/GST", "GSTStatusFromDate"): func(f *Fields, v string) error { return set(&f.GSTStatusSince, v) },

	attrKey("ABR/ASICNumber", "ASICNumberType"): func(f *Fields, v string) error { return set(&f.ASICNumberType, v) },

	attrKey("ABR/DGR", "DGRStatusFromDate"): func(f *Fields, v string) error {
		f.DGRDates = append(f.DGRDates, v)
		return nil
	},
	// The status only ever says the endorsement is in force; its date is
	// captured above.
	attrKey("ABR/DGR", "status"): func(_ *Fields, v string) error {
		if v == dgrActiveStatus {
			return nil
		}
		return errUnrouted
	},
	attrKey("ABR/DGR/NonIndividualName", "type"): func(_ *Fields, v string) error {
		if v != dgrNameType {
			return errspkg.DomainFormat("dgr name type", "dgr name with unexpected type: %s", v)
		}
		return nil
	},
}
