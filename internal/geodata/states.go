package geodata

import (
	"fmt"
	"sort"
)

// stateFIPS maps USPS state abbreviations to 2-digit FIPS codes (50 states + DC).
var stateFIPS = map[string]string{
	"AL": "01", "AK": "02", "AZ": "04", "AR": "05", "CA": "06",
	"CO": "08", "CT": "09", "DE": "10", "DC": "11", "FL": "12",
	"GA": "13", "HI": "15", "ID": "16", "IL": "17", "IN": "18",
	"IA": "19", "KS": "20", "KY": "21", "LA": "22", "ME": "23",
	"MD": "24", "MA": "25", "MI": "26", "MN": "27", "MS": "28",
	"MO": "29", "MT": "30", "NE": "31", "NV": "32", "NH": "33",
	"NJ": "34", "NM": "35", "NY": "36", "NC": "37", "ND": "38",
	"OH": "39", "OK": "40", "OR": "41", "PA": "42", "RI": "44",
	"SC": "45", "SD": "46", "TN": "47", "TX": "48", "UT": "49",
	"VT": "50", "VA": "51", "WA": "53", "WV": "54", "WI": "55",
	"WY": "56",
}

var stateByFIPS map[string]string

func init() {
	stateByFIPS = make(map[string]string, len(stateFIPS))
	for abbr, fips := range stateFIPS {
		stateByFIPS[fips] = abbr
	}
}

// abbrFromFIPS returns the USPS abbreviation for a state FIPS code.
func abbrFromFIPS(fips string) (string, bool) {
	abbr, ok := stateByFIPS[fips]
	return abbr, ok
}

// allStates returns all state abbreviations, sorted.
func allStates() []string {
	abbrs := make([]string, 0, len(stateFIPS))
	for abbr := range stateFIPS {
		abbrs = append(abbrs, abbr)
	}
	sort.Strings(abbrs)
	return abbrs
}

// placeURL builds the Census Bureau download URL for one state's PLACE
// shapefile.
func placeURL(year int, fips string) string {
	return fmt.Sprintf("https://www2.census.gov/geo/tiger/TIGER%d/PLACE/tl_%d_%s_place.zip",
		year, year, fips)
}
