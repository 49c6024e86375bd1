package extract

import "errors"

var errAlreadySet = errors.New("field already set")

// Fields holds every raw value extracted from one record before
// normalization. A nil pointer means the value never appeared.
type Fields struct {
	LastUpdated *string
	Replaced    *string

	ABN            *string
	ABNStatus      *string
	ABNStatusSince *string

	EntityTypeCode *string
	EntityTypeText *string

	NameTitle          *string
	GivenName          *string
	SecondGivenName    *string
	FamilyName         *string
	IndividualNameType *string

	NonIndividualName     *string
	NonIndividualNameType *string

	// OtherNames and OtherNameTypes are index aligned.
	OtherNames     []string
	OtherNameTypes []string

	// DGRNames and DGRDates are captured to keep the walk aligned but are
	// never surfaced in the normalized record.
	DGRNames []string
	DGRDates []string

	State    *string
	Postcode *string

	ASICNumber     *string
	ASICNumberType *string

	GSTStatus      *string
	GSTStatusSince *string

	// Unrouted lists positions the routing tables did not recognise.
	Unrouted []Unrouted
}

// Unrouted is a schema-drift diagnostic: a value found at a position the
// extractor has no route for. It never fails the record.
type Unrouted struct {
	Path  string
	Attr  string
	Value string
}

func (u Unrouted) String() string {
	if u.Attr != "" {
		return "unhandled attr: " + u.Path + "@" + u.Attr + ": " + u.Value
	}
	return "unhandled text: " + u.Path + ": " + u.Value
}

func set(dst **string, value string) error {
	if *dst != nil {
		return errAlreadySet
	}
	*dst = &value
	return nil
}

// setGiven routes the first given name to GivenName and any later one to
// SecondGivenName.
func (f *Fields) setGiven(value string) error {
	if f.GivenName == nil {
		return set(&f.GivenName, value)
	}
	return set(&f.SecondGivenName, value)
}
