package record

// EntityType is the three-letter classification of the registered entity.
// The set is closed: codes outside entityTypes are rejected during
// normalization.
type EntityType string

var entityTypes = map[EntityType]string{
	"IND": "Individual/Sole Trader",
	"PRV": "Australian Private Company",
	"FPT": "Family Partnership",
	"SMF": "ATO Regulated Self-Managed Superannuation Fund",
	"DIT": "Discretionary Investment Trust",
	"DTT": "Discretionary Trading Trust",
	"PTR": "Other Partnership",
	"FUT": "Fixed Unit Trust",
	"OIE": "Other Incorporated Entity",
	"TRT": "Other trust",
	"STR": "Strata-title",
	"UIE": "Other Unincorporated Entity",
	"DST": "Discretionary Services Management Trust",
	"PUB": "Australian Public Company",
	"DES": "Deceased Estate",
	"FXT": "Fixed Trust",
	"HYT": "Hybrid Trust",
	"SGE": "State Government Entity",
	"LPT": "Limited Partnership",
	"PQT": "Unlisted Public Unit Trust",
	"SAF": "Small APRA Fund",
	"CUT": "Corporate Unit Trust",
	"COP": "Co-operative",
	"NPF": "APRA Regulated Non-Public Offer Fund",
	"PTT": "Public Trading trust",
	"CMT": "Cash Management Trust",
	"NRF": "Non-Regulated Superannuation Fund",
	"LGE": "Local Government Entity",
	"CGE": "Commonwealth Government Entity",
	"PUT": "Listed Public Unit Trust",
	"SGA": "State Government Statutory Authority",
	"POF": "APRA Regulated Public Offer Fund",
	"TGE": "Territory Government Entity",
	"PST": "Pooled Superannuation Trust",
	"SCO": "State Government Other Incorporated Entity",
	"SCN": "State Government Other Unincorporated Entity",
	"SSS": "State Government Non-Regulated Super Fund",
	"CGA": "Commonwealth Government Statutory Authority",
	"ADF": "Approved Deposit Fund",
	"CSS": "Commonwealth Government Non-Regulated Super Fund",
	"LGA": "Local Government Statutory Authority",
	"STU": "State Government Fixed Unit Trust",
	"SCR": "State Government Private Company",
	"TGA": "Territory Government Statutory Authority",
	"LSS": "Local Government Non-Regulated Super Fund",
	"CCN": "Commonwealth Government Other Unincorporated Entity",
	"STI": "State Government Discretionary Investment Trust",
	"SUP": "Super Fund",
	"PDF": "Pooled Development Fund",
	"LCN": "Local Government Other Unincorporated Entity",
	"SCB": "State Government Public Company",
	"LCR": "Local Government Private Company",
	"SGP": "State Government Partnership",
	"TTF": "Territory Government Fixed Trust",
	"SGC": "State Government Company",
	"CCO": "Commonwealth Government Other Incorporated Entity",
	"LGC": "Local Government Company",
	"CCR": "Commonwealth Government Private Company",
	"CCB": "Commonwealth Government Public Company",
	"TSS": "Territory Government Non-Regulated Super Fund",
	"TCO": "Territory Government Other Incorporated Entity",
	"STF": "State Government Fixed Trust",
	"LCO": "Local Government Other Incorporated Entity",
	"TTI": "Territory Government Discretionary Investment Trust",
	"SSP": "State Government APRA Regulated Public Sector Scheme",
	"SGT": "State Government Trust",
	"SCC": "State Government Co-operative",
	"LTI": "Local Government Discretionary Investment Trust",
	"LSP": "Local Government APRA Regulated Public Sector Scheme",
	"CTI": "Commonwealth Government Discretionary Investment Trust",
	"CSF": "Corporate Collective Investment Vehicle (CCIV) Sub-Fund",
	"CSA": "Commonwealth Government APRA Regulated Public Sector Fund",
	"CGP": "Commonwealth Government Partnership",
	"TTU": "Territory Government Fixed Unit Trust",
	"TCN": "Territory Government Other Unincorporated Entity",
	"STD": "State Government Discretionary Services Management Trust",
	"LTT": "Local Government Discretionary Trading Trust",
	"LGP": "Local Government Partnership",
	"LCS": "Local Government Strata Title",
	"FHS": "First Home Saver Accounts Trust",
	"CTQ": "Commonwealth Government Unlisted Public Unit Trust",
	"CTF": "Commonwealth Government Fixed Trust",
	"CTD": "Commonwealth Government Discretionary Services Management Trust",
	"CSP": "Commonwealth Government APRA Regulated Public Sector Scheme",
	"CGC": "Commonwealth Government Company",
}

// ParseEntityType resolves a raw code against the closed set.
func ParseEntityType(code string) (EntityType, bool) {
	t := EntityType(code)
	if _, ok := entityTypes[t]; !ok {
		return "", false
	}
	return t, true
}

// Valid reports whether t belongs to the closed set.
func (t EntityType) Valid() bool {
	_, ok := entityTypes[t]
	return ok
}

// Description returns the registry's label for t, or "" when t is unknown.
func (t EntityType) Description() string {
	return entityTypes[t]
}

// EntityTypeCount is the size of the closed set.
func EntityTypeCount() int {
	return len(entityTypes)
}
