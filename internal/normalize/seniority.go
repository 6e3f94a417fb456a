package normalize

import (
	"regexp"
	"strconv"
)

// Seniority levels, ordered junior to executive.
const (
	SeniorityIntern    = "intern"
	SeniorityJunior    = "junior"
	SeniorityMid       = "mid"
	SenioritySenior    = "senior"
	SeniorityStaff     = "staff"
	SeniorityPrincipal = "principal"
	SeniorityDirector  = "director"
	SeniorityVP        = "vp"
	SeniorityCLevel    = "c_level"
)

// SeniorityOrder maps each level to its rank for one-step tolerance checks.
var SeniorityOrder = map[string]int{
	SeniorityIntern:    0,
	SeniorityJunior:    1,
	SeniorityMid:       2,
	SenioritySenior:    3,
	SeniorityStaff:     4,
	SeniorityPrincipal: 5,
	SeniorityDirector:  6,
	SeniorityVP:        7,
	SeniorityCLevel:    8,
}

type seniorityRule struct {
	level    string
	patterns []*regexp.Regexp
}

// Checked in order: executive titles are unambiguous and win over the level
// words they often contain ("Senior Vice President").
var seniorityRules = []seniorityRule{
	{SeniorityCLevel, compileAll(`\bceo\b`, `\bcto\b`, `\bcfo\b`, `\bcoo\b`, `\bcmo\b`, `\bchief\b`, `\bco-?founder\b`, `\bfounder\b`)},
	{SeniorityVP, compileAll(`\bvp\b`, `\bvice\s*president\b`, `\bsvp\b`, `\bevp\b`)},
	{SeniorityDirector, compileAll(`\bdirector\b`, `\bhead\s+of\b`)},
	{SeniorityPrincipal, compileAll(`\bprincipal\b`, `\bdistinguished\b`, `\bfellow\b`)},
	{SeniorityStaff, compileAll(`\bstaff\b`)},
	{SenioritySenior, compileAll(`\bsenior\b`, `\bsr\.?\b`, `\blead\b`)},
	{SeniorityMid, compileAll(`\bmid-?level\b`, `\bintermediate\b`, `\bii\b`)},
	{SeniorityJunior, compileAll(`\bjunior\b`, `\bjr\.?\b`, `\bentry\s*level\b`, `\bnew\s*grad\b`, `\bgraduate\b`)},
	{SeniorityIntern, compileAll(`\bintern\b`, `\binternship\b`, `\bco-?op\b`)},
}

var (
	yearsExpRe  = regexp.MustCompile(`(?i)(\d+)\+?\s*(?:years?|yrs?)\s*(?:of\s*)?(?:experience|exp)`)
	yearsPairRe = regexp.MustCompile(`(?i)(\d+)\s*-\s*(\d+)\s*(?:years?|yrs?)`)
)

// DetectSeniority scans explicit level words in the title, then falls back to
// years-of-experience phrases in the description. Returns "" when neither
// yields a signal.
func DetectSeniority(title, description string) string {
	for _, rule := range seniorityRules {
		for _, p := range rule.patterns {
			if p.MatchString(title) {
				return rule.level
			}
		}
	}

	if description == "" {
		return ""
	}

	if m := yearsPairRe.FindStringSubmatch(description); m != nil {
		lo, _ := strconv.Atoi(m[1])
		hi, _ := strconv.Atoi(m[2])
		return yearsToSeniority((lo + hi) / 2)
	}
	if m := yearsExpRe.FindStringSubmatch(description); m != nil {
		years, _ := strconv.Atoi(m[1])
		return yearsToSeniority(years)
	}

	return ""
}

func yearsToSeniority(years int) string {
	switch {
	case years < 1:
		return SeniorityIntern
	case years < 2:
		return SeniorityJunior
	case years < 5:
		return SeniorityMid
	case years < 8:
		return SenioritySenior
	case years < 12:
		return SeniorityStaff
	default:
		return SeniorityPrincipal
	}
}

// SeniorityWithinOneStep reports whether two levels are within one rank of
// each other. Unknown levels are always compatible.
func SeniorityWithinOneStep(a, b string) bool {
	ai, aok := SeniorityOrder[a]
	bi, bok := SeniorityOrder[b]
	if !aok || !bok {
		return true
	}
	diff := ai - bi
	if diff < 0 {
		diff = -diff
	}
	return diff <= 1
}
