package match

import (
	"testing"

	"github.com/huntworks/hunt/internal/model"
	"github.com/huntworks/hunt/internal/normalize"
)

func intp(v int) *int { return &v }

func seJob(seniority string) *model.Job {
	return &model.Job{
		Title:          "Software Engineer",
		CompanyName:    "Acme",
		RoleFamily:     normalize.RoleSoftwareEngineering,
		Seniority:      seniority,
		LocationType:   normalize.LocationRemote,
		Skills:         []string{"golang", "postgresql", "kubernetes"},
		EmploymentType: normalize.EmploymentFullTime,
		FreshnessScore: 0.8,
		IsActive:       true,
	}
}

func TestHardFilterSeniorityTolerance(t *testing.T) {
	t.Parallel()

	candidate := &model.CandidateProfile{
		RoleFamilies: []string{normalize.RoleSoftwareEngineering},
		Seniority:    normalize.SenioritySenior,
	}

	if ok, _ := hardFilter(candidate, seJob(normalize.SenioritySenior)); !ok {
		t.Fatal("exact seniority should pass")
	}
	if ok, _ := hardFilter(candidate, seJob(normalize.SeniorityMid)); !ok {
		t.Fatal("one-step seniority should pass")
	}
	ok, failed := hardFilter(candidate, seJob(normalize.SeniorityJunior))
	if ok {
		t.Fatal("two-step seniority should fail")
	}
	if failed != "seniority" {
		t.Fatalf("expected seniority failure, got %q", failed)
	}
}

func TestHardFilterConstraints(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		candidate *model.CandidateProfile
		mutate    func(*model.Job)
		wantPass  bool
		wantWhy   string
	}{
		{
			name:      "role family mismatch",
			candidate: &model.CandidateProfile{RoleFamilies: []string{normalize.RoleDesign}},
			mutate:    func(*model.Job) {},
			wantPass:  false,
			wantWhy:   "role_family",
		},
		{
			name:      "no role preference passes everything",
			candidate: &model.CandidateProfile{},
			mutate:    func(*model.Job) {},
			wantPass:  true,
		},
		{
			name:      "location type mismatch",
			candidate: &model.CandidateProfile{LocationTypes: []string{normalize.LocationOnsite}},
			mutate:    func(*model.Job) {},
			wantPass:  false,
			wantWhy:   "location_type",
		},
		{
			name:      "salary below floor",
			candidate: &model.CandidateProfile{MinSalary: intp(200000)},
			mutate:    func(j *model.Job) { j.MaxSalary = intp(150000) },
			wantPass:  false,
			wantWhy:   "salary",
		},
		{
			name:      "salary unstated on job passes",
			candidate: &model.CandidateProfile{MinSalary: intp(200000)},
			mutate:    func(*model.Job) {},
			wantPass:  true,
		},
		{
			name:      "role type mapping permanent to full_time",
			candidate: &model.CandidateProfile{RoleTypes: []string{"permanent"}},
			mutate:    func(*model.Job) {},
			wantPass:  true,
		},
		{
			name:      "role type contract rejects full_time",
			candidate: &model.CandidateProfile{RoleTypes: []string{"contract"}},
			mutate:    func(*model.Job) {},
			wantPass:  false,
			wantWhy:   "employment_type",
		},
		{
			name:      "excluded company",
			candidate: &model.CandidateProfile{Exclusions: []string{"acme"}},
			mutate:    func(*model.Job) {},
			wantPass:  false,
			wantWhy:   "excluded_company",
		},
		{
			name:      "inactive job",
			candidate: &model.CandidateProfile{},
			mutate:    func(j *model.Job) { j.IsActive = false },
			wantPass:  false,
			wantWhy:   "inactive",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			job := seJob(normalize.SenioritySenior)
			tt.mutate(job)

			pass, why := hardFilter(tt.candidate, job)
			if pass != tt.wantPass {
				t.Fatalf("hardFilter = %v (%q), want pass=%v", pass, why, tt.wantPass)
			}
			if !tt.wantPass && why != tt.wantWhy {
				t.Fatalf("failure reason = %q, want %q", why, tt.wantWhy)
			}
		})
	}
}

func TestScoreJobBounds(t *testing.T) {
	t.Parallel()

	candidate := &model.CandidateProfile{
		RoleFamilies: []string{normalize.RoleSoftwareEngineering},
		Seniority:    normalize.SenioritySenior,
		Skills:       []string{"golang", "postgresql", "kubernetes"},
		MinSalary:    intp(100000),
	}
	job := seJob(normalize.SenioritySenior)
	job.MaxSalary = intp(150000)

	score, reasons := scoreJob(candidate, job, 0.9)
	if score < 0 || score > 1 {
		t.Fatalf("score %v out of [0,1]", score)
	}
	// Perfect dimensions: 0.9*0.4 + 1*0.15 + 1*0.15 + 1*0.15 + 0.8*0.1 + 1*0.05
	want := 0.9*0.4 + 0.15 + 0.15 + 0.15 + 0.08 + 0.05
	if diff := score - want; diff > 1e-9 || diff < -1e-9 {
		t.Fatalf("score = %v, want %v", score, want)
	}

	for _, dim := range []string{"semantic_similarity", "role_family", "seniority", "skill_overlap", "freshness", "salary_fit"} {
		if _, ok := reasons[dim]; !ok {
			t.Fatalf("expected reason %q, got %v", dim, reasons)
		}
	}
}

func TestScoreJobNeutralRolePreference(t *testing.T) {
	t.Parallel()

	// No role preference: the dimension scores neutral 0.5, not 0 or 1.
	if got := roleScore(&model.CandidateProfile{}, seJob("")); got != 0.5 {
		t.Fatalf("roleScore with no preference = %v, want 0.5", got)
	}

	candidate := &model.CandidateProfile{RoleFamilies: []string{normalize.RoleData}}
	job := seJob("")
	if got := roleScore(candidate, job); got != 0.5 {
		t.Fatalf("adjacent family should score 0.5, got %v", got)
	}

	candidate.RoleFamilies = []string{normalize.RoleLegal}
	if got := roleScore(candidate, job); got != 0 {
		t.Fatalf("distant family should score 0, got %v", got)
	}
}

func TestSkillScore(t *testing.T) {
	t.Parallel()

	candidate := &model.CandidateProfile{Skills: []string{"Golang", "redis"}}
	job := seJob("")

	score, overlap := skillScore(candidate, job)
	if overlap != 1 {
		t.Fatalf("expected 1 overlapping skill, got %d", overlap)
	}
	if want := 1.0 / 3.0; score != want {
		t.Fatalf("skill score = %v, want %v", score, want)
	}

	job.Skills = nil
	if score, _ := skillScore(candidate, job); score != 0.5 {
		t.Fatalf("jobs without skills should score neutral, got %v", score)
	}
}

func TestZeroContributionReasonsOmitted(t *testing.T) {
	t.Parallel()

	candidate := &model.CandidateProfile{
		RoleFamilies: []string{normalize.RoleLegal},
		MinSalary:    intp(500000),
	}
	job := seJob(normalize.SenioritySenior)
	job.MaxSalary = intp(100000)

	_, reasons := scoreJob(candidate, job, 0.6)
	if _, ok := reasons["role_family"]; ok {
		t.Fatalf("zero-weight role dimension should be omitted: %v", reasons)
	}
	if _, ok := reasons["salary_fit"]; ok {
		t.Fatalf("zero salary dimension should be omitted: %v", reasons)
	}
}
