package normalize

import (
	"math"
	"reflect"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/huntworks/hunt/internal/model"
)

func TestMapRole(t *testing.T) {
	t.Parallel()

	tests := []struct {
		title  string
		family string
	}{
		{"Senior Software Engineer", RoleSoftwareEngineering},
		{"Backend Developer", RoleSoftwareEngineering},
		{"Engineering Manager", RoleEngineeringManagement},
		{"Director of Engineering", RoleEngineeringManagement},
		{"Data Engineer", RoleData},
		{"Machine Learning Engineer", RoleData},
		{"Site Reliability Engineer", RoleInfrastructure},
		{"Security Engineer", RoleInfrastructure},
		{"Product Manager", RoleProduct},
		{"Product Designer", RoleDesign},
		{"Sales Engineer", RoleSales},
		{"Account Executive", RoleSales},
		{"Growth Marketing Lead", RoleMarketing},
		{"Customer Success Manager", RoleCustomerSuccess},
		{"Business Operations Analyst", RoleOperations},
		{"Senior Recruiter", RolePeople},
		{"Financial Controller", RoleFinance},
		{"General Counsel", RoleLegal},
		{"Office Barista", RoleOther},
	}

	for _, tt := range tests {
		t.Run(tt.title, func(t *testing.T) {
			family, _ := MapRole(tt.title)
			if family != tt.family {
				t.Fatalf("MapRole(%q) = %q, want %q", tt.title, family, tt.family)
			}
		})
	}
}

func TestMapRoleSpecialization(t *testing.T) {
	t.Parallel()

	_, spec := MapRole("Senior Frontend Engineer (React)")
	if spec != "frontend" {
		t.Fatalf("expected frontend specialization, got %q", spec)
	}

	_, spec = MapRole("Full-Stack Developer")
	if spec != "fullstack" {
		t.Fatalf("expected fullstack specialization, got %q", spec)
	}
}

func TestDetectSeniority(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		title       string
		description string
		expect      string
	}{
		{"explicit senior", "Senior Software Engineer", "", SenioritySenior},
		{"staff beats senior order", "Staff Engineer", "", SeniorityStaff},
		{"vp over level words", "Senior Vice President of Sales", "", SeniorityVP},
		{"intern", "Software Engineering Intern", "", SeniorityIntern},
		{"director via head of", "Head of Platform", "", SeniorityDirector},
		{"years fallback", "Software Engineer", "We require 6+ years of experience with Go.", SenioritySenior},
		{"years range fallback", "Software Engineer", "3-5 years experience preferred", SeniorityMid},
		{"no signal", "Software Engineer", "Join our team.", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := DetectSeniority(tt.title, tt.description); got != tt.expect {
				t.Fatalf("DetectSeniority(%q) = %q, want %q", tt.title, got, tt.expect)
			}
		})
	}
}

func TestSeniorityWithinOneStep(t *testing.T) {
	t.Parallel()

	if !SeniorityWithinOneStep(SeniorityMid, SenioritySenior) {
		t.Fatal("mid should be compatible with senior")
	}
	if SeniorityWithinOneStep(SeniorityJunior, SenioritySenior) {
		t.Fatal("junior should not be compatible with senior")
	}
	if !SeniorityWithinOneStep("unknown", SenioritySenior) {
		t.Fatal("unknown levels should be compatible")
	}
}

func TestNormalizeLocation(t *testing.T) {
	t.Parallel()

	tests := []struct {
		raw          string
		locationType string
		locations    []string
	}{
		{"Remote", LocationRemote, nil},
		{"Remote - Europe", LocationRemote, []string{"Europe"}},
		{"Hybrid / London", LocationHybrid, []string{"London, UK"}},
		{"San Francisco, CA (on-site)", LocationOnsite, []string{"San Francisco, CA"}},
		{"New York", LocationOnsite, []string{"New York, NY"}},
		{"Gotham City", "", nil},
		{"", "", nil},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			locationType, locations := NormalizeLocation(tt.raw)
			if locationType != tt.locationType {
				t.Fatalf("location type for %q = %q, want %q", tt.raw, locationType, tt.locationType)
			}
			if !reflect.DeepEqual(locations, tt.locations) {
				t.Fatalf("locations for %q = %v, want %v", tt.raw, locations, tt.locations)
			}
		})
	}
}

func TestExtractSkills(t *testing.T) {
	t.Parallel()

	skills := ExtractSkills("Senior Go Engineer",
		"You will build services in Go with PostgreSQL and Kubernetes, deployed on AWS.")

	want := map[string]bool{"golang": true, "postgresql": true, "kubernetes": true, "aws": true}
	for _, s := range skills {
		delete(want, s)
	}
	for missing := range want {
		t.Fatalf("expected skill %q in %v", missing, skills)
	}

	// Sorted, deduplicated.
	for i := 1; i < len(skills); i++ {
		if skills[i-1] >= skills[i] {
			t.Fatalf("skills are not sorted unique: %v", skills)
		}
	}
}

func TestParseSalary(t *testing.T) {
	t.Parallel()

	intp := func(v int) *int { return &v }

	tests := []struct {
		raw      string
		min, max *int
	}{
		{"$120,000 - $150,000", intp(120000), intp(150000)},
		{"120k-150K", intp(120000), intp(150000)},
		{"£90,000", intp(90000), intp(90000)},
		{"150000 - 120000", intp(120000), intp(150000)},
		{"competitive", nil, nil},
		{"", nil, nil},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			min, max := ParseSalary(tt.raw)
			if !intEq(min, tt.min) || !intEq(max, tt.max) {
				t.Fatalf("ParseSalary(%q) = (%v, %v), want (%v, %v)", tt.raw, deref(min), deref(max), deref(tt.min), deref(tt.max))
			}
			if min != nil && max != nil && *min > *max {
				t.Fatalf("ParseSalary(%q) returned min > max", tt.raw)
			}
		})
	}
}

func TestFreshness(t *testing.T) {
	t.Parallel()

	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	if got := Freshness(nil, now); got != 0.5 {
		t.Fatalf("missing posted_at should score 0.5, got %v", got)
	}

	posted := now.AddDate(0, 0, -7)
	if got := Freshness(&posted, now); math.Abs(got-0.5) > 1e-6 {
		t.Fatalf("7-day-old job should score 0.5, got %v", got)
	}

	posted = now.AddDate(0, 0, -14)
	if got := Freshness(&posted, now); math.Abs(got-0.25) > 1e-6 {
		t.Fatalf("14-day-old job should score 0.25, got %v", got)
	}

	future := now.AddDate(0, 0, 3)
	if got := Freshness(&future, now); got != 1 {
		t.Fatalf("future posted_at should clamp to 1, got %v", got)
	}
}

func TestEmploymentType(t *testing.T) {
	t.Parallel()

	tests := []struct {
		raw, title, expect string
	}{
		{"Full-time", "", EmploymentFullTime},
		{"", "Marketing Intern", EmploymentInternship},
		{"Contractor", "", EmploymentContract},
		{"", "Freelance Designer", EmploymentFreelance},
		{"Part-time", "", EmploymentPartTime},
		{"", "Software Engineer", EmploymentFullTime},
	}

	for _, tt := range tests {
		if got := EmploymentType(tt.raw, tt.title); got != tt.expect {
			t.Fatalf("EmploymentType(%q, %q) = %q, want %q", tt.raw, tt.title, got, tt.expect)
		}
	}
}

func TestJobDeterminism(t *testing.T) {
	t.Parallel()

	raw := &model.RawJob{
		ID:          uuid.New(),
		CompanyID:   uuid.New(),
		SourceURL:   "https://boards.greenhouse.io/acme/jobs/1",
		TitleRaw:    "Senior Backend Engineer",
		LocationRaw: "Remote - US",
		DescriptionRaw: "Build APIs in Go with PostgreSQL. 5+ years of experience required. " +
			"Salary $150k - $180k.",
		SalaryRaw:   "$150k - $180k",
		PostedAtRaw: "2025-05-20T00:00:00Z",
	}
	now := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)

	first := Job(raw, now)
	second := Job(raw, now)
	if !reflect.DeepEqual(first, second) {
		t.Fatal("normalization is not deterministic")
	}

	if first.RoleFamily != RoleSoftwareEngineering {
		t.Fatalf("unexpected role family %q", first.RoleFamily)
	}
	if first.Seniority != SenioritySenior {
		t.Fatalf("unexpected seniority %q", first.Seniority)
	}
	if first.LocationType != LocationRemote {
		t.Fatalf("unexpected location type %q", first.LocationType)
	}
	if first.MinSalary == nil || *first.MinSalary != 150000 || *first.MaxSalary != 180000 {
		t.Fatalf("unexpected salary range %v-%v", deref(first.MinSalary), deref(first.MaxSalary))
	}
}

func intEq(a, b *int) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func deref(v *int) any {
	if v == nil {
		return nil
	}
	return *v
}
