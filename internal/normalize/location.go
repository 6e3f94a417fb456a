package normalize

import (
	"regexp"
	"strings"
)

// Location types.
const (
	LocationRemote = "remote"
	LocationHybrid = "hybrid"
	LocationOnsite = "onsite"
)

var (
	remoteRes = compileAll(`\bremote\b`, `\bwork\s*from\s*home\b`, `\bwfh\b`, `\bdistributed\b`, `\banywhere\b`, `\b100%\s*remote\b`)
	hybridRes = compileAll(`\bhybrid\b`, `\bflexible\b`, `\bremote.*office\b`, `\boffice.*remote\b`, `\b\d+\s*days?\s*(in\s*)?office\b`)
	onsiteRes = compileAll(`\bon-?site\b`, `\bin-?office\b`, `\bin\s*person\b`, `\boffice\s*based\b`, `\bno\s*remote\b`)
)

// gazetteer maps lowercased location tokens to their normalized form. Tokens
// that do not normalize are discarded.
var gazetteer = map[string]string{
	"san francisco":  "San Francisco, CA",
	"sf":             "San Francisco, CA",
	"bay area":       "San Francisco Bay Area, CA",
	"silicon valley": "San Francisco Bay Area, CA",
	"new york":       "New York, NY",
	"new york city":  "New York, NY",
	"nyc":            "New York, NY",
	"los angeles":    "Los Angeles, CA",
	"seattle":        "Seattle, WA",
	"austin":         "Austin, TX",
	"boston":         "Boston, MA",
	"chicago":        "Chicago, IL",
	"denver":         "Denver, CO",
	"miami":          "Miami, FL",
	"atlanta":        "Atlanta, GA",
	"portland":       "Portland, OR",
	"london":         "London, UK",
	"berlin":         "Berlin, Germany",
	"munich":         "Munich, Germany",
	"toronto":        "Toronto, Canada",
	"vancouver":      "Vancouver, Canada",
	"bangalore":      "Bangalore, India",
	"bengaluru":      "Bangalore, India",
	"sydney":         "Sydney, Australia",
	"dublin":         "Dublin, Ireland",
	"amsterdam":      "Amsterdam, Netherlands",
	"paris":          "Paris, France",
	"singapore":      "Singapore",
	"tokyo":          "Tokyo, Japan",
	"tel aviv":       "Tel Aviv, Israel",
	"zurich":         "Zurich, Switzerland",
	"stockholm":      "Stockholm, Sweden",
	"united states":  "United States",
	"usa":            "United States",
	"us":             "United States",
	"united kingdom": "United Kingdom",
	"uk":             "United Kingdom",
	"germany":        "Germany",
	"france":         "France",
	"canada":         "Canada",
	"india":          "India",
	"australia":      "Australia",
	"netherlands":    "Netherlands",
	"ireland":        "Ireland",
	"europe":         "Europe",
}

var locationSeparators = regexp.MustCompile(`[;/|•·]|\s+-\s+|,`)

// NormalizeLocation classifies the raw location string and extracts
// gazetteer-normalized location names.
func NormalizeLocation(raw string) (locationType string, locations []string) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", nil
	}

	locationType = detectLocationType(raw)

	seen := make(map[string]bool)
	for _, token := range locationSeparators.Split(raw, -1) {
		token = strings.ToLower(strings.TrimSpace(token))
		if token == "" {
			continue
		}
		normalized, ok := gazetteer[token]
		if !ok {
			continue
		}
		if !seen[normalized] {
			seen[normalized] = true
			locations = append(locations, normalized)
		}
	}

	// A concrete city with no explicit remote/hybrid wording is an office.
	if locationType == "" && len(locations) > 0 {
		locationType = LocationOnsite
	}

	return locationType, locations
}

func detectLocationType(raw string) string {
	for _, re := range remoteRes {
		if re.MatchString(raw) {
			return LocationRemote
		}
	}
	for _, re := range hybridRes {
		if re.MatchString(raw) {
			return LocationHybrid
		}
	}
	for _, re := range onsiteRes {
		if re.MatchString(raw) {
			return LocationOnsite
		}
	}
	return ""
}
