package extract

import (
	"testing"

	"go.uber.org/zap"

	"github.com/huntworks/hunt/internal/model"
)

func TestStripHTML(t *testing.T) {
	t.Parallel()

	html := `<div><script>var x = 1;</script><h1>Senior  Engineer</h1>
		<p>Build &amp; ship <b>fast.</b></p><style>.a{color:red}</style></div>`

	got := stripHTML(html)
	want := "Senior Engineer Build & ship fast."
	if got != want {
		t.Fatalf("stripHTML = %q, want %q", got, want)
	}
}

func TestRegistrySelection(t *testing.T) {
	t.Parallel()

	registry := NewRegistry(
		NewGreenhouse(nil, zap.NewNop()),
		NewLever(nil, zap.NewNop()),
		NewAshby(nil, zap.NewNop()),
		NewWorkday(nil, zap.NewNop()),
	)

	for _, atsType := range []string{model.ATSGreenhouse, model.ATSLever, model.ATSAshby, model.ATSWorkday} {
		e, ok := registry.For(atsType)
		if !ok {
			t.Fatalf("no extractor registered for %s", atsType)
		}
		if e.Type() != atsType {
			t.Fatalf("extractor type mismatch: %s != %s", e.Type(), atsType)
		}
	}

	if _, ok := registry.For("unknown"); ok {
		t.Fatal("unknown ats type should not resolve")
	}
}

func TestGreenhouseParse(t *testing.T) {
	t.Parallel()

	company := &model.Company{Name: "Acme", ATSIdentifier: "acme"}
	body := `{"jobs":[
		{"id":1,"title":"Senior Backend Engineer","absolute_url":"https://boards.greenhouse.io/acme/jobs/1",
		 "updated_at":"2025-05-20T00:00:00Z","location":{"name":"Remote - US"},
		 "departments":[{"name":"Engineering"}],"content":"<p>Build things</p>"},
		{"id":2,"title":"","absolute_url":"https://boards.greenhouse.io/acme/jobs/2"}
	]}`

	g := NewGreenhouse(nil, zap.NewNop())
	jobs, err := g.parse(body, company)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(jobs) != 1 {
		t.Fatalf("expected 1 job (titleless entry dropped), got %d", len(jobs))
	}

	job := jobs[0]
	if job.SourceURL != "https://boards.greenhouse.io/acme/jobs/1" {
		t.Fatalf("unexpected source url %q", job.SourceURL)
	}
	if job.TitleRaw != "Senior Backend Engineer" {
		t.Fatalf("unexpected title %q", job.TitleRaw)
	}
	if job.LocationRaw != "Remote - US" {
		t.Fatalf("unexpected location %q", job.LocationRaw)
	}
	if job.DepartmentRaw != "Engineering" {
		t.Fatalf("unexpected department %q", job.DepartmentRaw)
	}
	if job.DescriptionRaw != "Build things" {
		t.Fatalf("description should be stripped text, got %q", job.DescriptionRaw)
	}
}

func TestGreenhouseParseRejectsGarbage(t *testing.T) {
	t.Parallel()

	g := NewGreenhouse(nil, zap.NewNop())
	if _, err := g.parse("<html>not json</html>", &model.Company{}); err == nil {
		t.Fatal("expected parse error for non-JSON body")
	}
}

func TestLeverParse(t *testing.T) {
	t.Parallel()

	company := &model.Company{Name: "Acme", ATSIdentifier: "acme"}
	body := `[{
		"id":"abc","text":"Platform Engineer","hostedUrl":"https://jobs.lever.co/acme/abc",
		"createdAt":1716163200000,
		"categories":{"location":"London","team":"Infrastructure","commitment":"Full-time"},
		"descriptionPlain":"Keep the lights on.",
		"salaryRange":{"min":90000,"max":120000,"currency":"GBP"}
	}]`

	l := NewLever(nil, zap.NewNop())
	jobs, err := l.parse(body, company)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(jobs) != 1 {
		t.Fatalf("expected 1 job, got %d", len(jobs))
	}

	job := jobs[0]
	if job.EmploymentTypeRaw != "Full-time" {
		t.Fatalf("unexpected employment type %q", job.EmploymentTypeRaw)
	}
	if job.SalaryRaw != "90000 - 120000" {
		t.Fatalf("unexpected salary %q", job.SalaryRaw)
	}
	if job.PostedAtRaw == "" {
		t.Fatal("createdAt should map to a posted_at string")
	}
}

func TestAshbyParse(t *testing.T) {
	t.Parallel()

	company := &model.Company{Name: "Acme", ATSIdentifier: "acme"}
	body := `{"jobs":[{
		"id":"j1","title":"Product Designer","location":"","isRemote":true,
		"department":"Design","employmentType":"FullTime",
		"publishedAt":"2025-05-01T00:00:00Z","jobUrl":"https://jobs.ashbyhq.com/acme/j1"
	}]}`

	a := NewAshby(nil, zap.NewNop())
	jobs, err := a.parse(body, company)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(jobs) != 1 {
		t.Fatalf("expected 1 job, got %d", len(jobs))
	}
	if jobs[0].LocationRaw != "Remote" {
		t.Fatalf("remote flag should fill empty location, got %q", jobs[0].LocationRaw)
	}
}
