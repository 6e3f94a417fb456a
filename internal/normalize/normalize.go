// Package normalize turns raw job records into canonical ones. Every function
// is pure: the same raw record and vocabulary version produce bit-identical
// output.
package normalize

import (
	"math"
	"strings"
	"time"

	"github.com/huntworks/hunt/internal/model"
)

// Employment types.
const (
	EmploymentFullTime   = "full_time"
	EmploymentPartTime   = "part_time"
	EmploymentContract   = "contract"
	EmploymentFreelance  = "freelance"
	EmploymentInternship = "internship"
)

// FreshnessHalfLifeDays is the half-life of the freshness decay.
const FreshnessHalfLifeDays = 7.0

// Job maps a raw record to its canonical form. The embedding is left empty;
// the embedder owns it. now is injected for reproducibility.
func Job(raw *model.RawJob, now time.Time) *model.Job {
	family, spec := MapRole(raw.TitleRaw)
	seniority := DetectSeniority(raw.TitleRaw, raw.DescriptionRaw)
	locationType, locations := NormalizeLocation(raw.LocationRaw)
	skills := ExtractSkills(raw.TitleRaw, raw.DescriptionRaw)
	minSalary, maxSalary := ParseSalary(raw.SalaryRaw)
	postedAt := ParseDate(raw.PostedAtRaw)

	return &model.Job{
		CompanyID:          raw.CompanyID,
		RawJobID:           &raw.ID,
		Title:              raw.TitleRaw,
		Description:        raw.DescriptionRaw,
		SourceURL:          raw.SourceURL,
		RoleFamily:         family,
		RoleSpecialization: spec,
		Seniority:          seniority,
		LocationType:       locationType,
		Locations:          locations,
		Skills:             skills,
		MinSalary:          minSalary,
		MaxSalary:          maxSalary,
		EmploymentType:     EmploymentType(raw.EmploymentTypeRaw, raw.TitleRaw),
		PostedAt:           postedAt,
		FreshnessScore:     Freshness(postedAt, now),
		IsActive:           true,
	}
}

// EmploymentType normalizes the raw employment string, falling back to
// keywords in the title. Nothing recognizable defaults to full_time.
func EmploymentType(raw, title string) string {
	text := strings.ToLower(raw + " " + title)
	switch {
	case strings.Contains(text, "intern"):
		return EmploymentInternship
	case strings.Contains(text, "freelance"):
		return EmploymentFreelance
	case strings.Contains(text, "contract"):
		return EmploymentContract
	case strings.Contains(text, "part-time") || strings.Contains(text, "part time"):
		return EmploymentPartTime
	default:
		return EmploymentFullTime
	}
}

// dateLayouts covers the formats the ATS APIs actually emit.
var dateLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05-07:00",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
	"Jan 2, 2006",
	"January 2, 2006",
}

// ParseDate parses a raw posted-at string, nil when unparseable.
func ParseDate(raw string) *time.Time {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return &t
		}
	}
	return nil
}

// Freshness is the exponential recency decay: 0.5^(age_days / 7), with 0.5
// when the posted date is unknown.
func Freshness(postedAt *time.Time, now time.Time) float64 {
	if postedAt == nil {
		return 0.5
	}
	ageDays := now.Sub(*postedAt).Hours() / 24
	if ageDays < 0 {
		ageDays = 0
	}
	return math.Pow(0.5, ageDays/FreshnessHalfLifeDays)
}
