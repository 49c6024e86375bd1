package pipeline

import (
	"fmt"
	"strings"
)

var containerHeader = []string{
	`<?xml version="1.0" encoding="UTF-8"?>`,
	`<Transfer>`,
	`<ReplacedFlag>N</ReplacedFlag>`,
	`<RecordCount>3</RecordCount>`,
}

// companySpan returns a valid record for abn.
func companySpan(abn string) string {
	return `<ABR recordLastUpdatedDate="20180605" replaced="N">` +
		fmt.Sprintf(`<ABN status="ACT" ABNStatusFromDate="19991101">%s</ABN>`, abn) +
		`<EntityType><EntityTypeInd>PRV</EntityTypeInd><EntityTypeText>Australian Private Company</EntityTypeText></EntityType>` +
		`<MainEntity><NonIndividualName type="MN"><NonIndividualNameText>ACME PTY LTD</NonIndividualNameText></NonIndividualName>` +
		`<BusinessAddress><AddressDetails><State>VIC</State><Postcode>3000</Postcode></AddressDetails></BusinessAddress></MainEntity>` +
		`<GST status="ACT" GSTStatusFromDate="20000701" />` +
		`</ABR>`
}

// missingABNSpan is well formed but lacks the identifier.
const missingABNSpan = `<ABR recordLastUpdatedDate="20180605" replaced="N">` +
	`<EntityType><EntityTypeInd>PRV</EntityTypeInd><EntityTypeText>x</EntityTypeText></EntityType>` +
	`</ABR>`

const malformedSpan = `<ABR><ABN>1</ABN>`

func container(spans ...string) string {
	lines := append([]string{}, containerHeader...)
	lines = append(lines, spans...)
	lines = append(lines, "</Transfer>")
	return strings.Join(lines, "\n") + "\n"
}
