package match

import (
	"fmt"
	"strings"

	"github.com/huntworks/hunt/internal/model"
	"github.com/huntworks/hunt/internal/normalize"
)

// Soft scoring weights. They sum to 1.0; the final score is clamped to [0,1].
const (
	weightSemantic  = 0.40
	weightRole      = 0.15
	weightSeniority = 0.15
	weightSkills    = 0.15
	weightFreshness = 0.10
	weightSalary    = 0.05
)

// adjacentFamilies maps each role family to the families close enough to be
// worth half credit.
var adjacentFamilies = map[string][]string{
	normalize.RoleSoftwareEngineering:   {normalize.RoleInfrastructure, normalize.RoleData, normalize.RoleEngineeringManagement},
	normalize.RoleInfrastructure:        {normalize.RoleSoftwareEngineering, normalize.RoleData},
	normalize.RoleData:                  {normalize.RoleSoftwareEngineering, normalize.RoleInfrastructure},
	normalize.RoleEngineeringManagement: {normalize.RoleSoftwareEngineering, normalize.RoleProduct},
	normalize.RoleProduct:               {normalize.RoleDesign, normalize.RoleEngineeringManagement},
	normalize.RoleDesign:                {normalize.RoleProduct},
	normalize.RoleSales:                 {normalize.RoleMarketing, normalize.RoleCustomerSuccess},
	normalize.RoleMarketing:             {normalize.RoleSales},
	normalize.RoleCustomerSuccess:       {normalize.RoleSales, normalize.RoleOperations},
	normalize.RoleOperations:            {normalize.RoleCustomerSuccess, normalize.RolePeople},
	normalize.RolePeople:                {normalize.RoleOperations},
	normalize.RoleFinance:               {normalize.RoleOperations, normalize.RoleLegal},
	normalize.RoleLegal:                 {normalize.RoleFinance},
}

// roleTypeToEmployment maps candidate role-type preferences onto canonical
// employment types.
var roleTypeToEmployment = map[string]string{
	"permanent": normalize.EmploymentFullTime,
	"full_time": normalize.EmploymentFullTime,
	"contract":  normalize.EmploymentContract,
	"freelance": normalize.EmploymentFreelance,
}

// Reason is one dimension's contribution to a match explanation.
type Reason struct {
	Score  float64 `json:"score"`
	Weight float64 `json:"weight"`
	Detail string  `json:"detail"`
}

// hardFilter applies the declared hard constraints. It returns false with the
// first failed constraint's name.
func hardFilter(c *model.CandidateProfile, j *model.Job) (bool, string) {
	if !j.IsActive {
		return false, "inactive"
	}

	if len(c.RoleFamilies) > 0 && !contains(c.RoleFamilies, j.RoleFamily) {
		return false, "role_family"
	}

	if c.Seniority != "" && j.Seniority != "" &&
		!normalize.SeniorityWithinOneStep(c.Seniority, j.Seniority) {
		return false, "seniority"
	}

	if len(c.LocationTypes) > 0 && j.LocationType != "" && !contains(c.LocationTypes, j.LocationType) {
		return false, "location_type"
	}

	if c.MinSalary != nil && j.MaxSalary != nil && *j.MaxSalary < *c.MinSalary {
		return false, "salary"
	}

	if len(c.RoleTypes) > 0 && j.EmploymentType != "" {
		ok := false
		for _, rt := range c.RoleTypes {
			if mapped, known := roleTypeToEmployment[strings.ToLower(rt)]; known && mapped == j.EmploymentType {
				ok = true
				break
			}
		}
		if !ok {
			return false, "employment_type"
		}
	}

	for _, excluded := range c.Exclusions {
		if strings.EqualFold(strings.TrimSpace(excluded), strings.TrimSpace(j.CompanyName)) {
			return false, "excluded_company"
		}
	}

	return true, ""
}

// scoreJob computes the weighted soft score and its per-dimension reasons.
// similarity is the cosine similarity between candidate and job embeddings.
func scoreJob(c *model.CandidateProfile, j *model.Job, similarity float64) (float64, map[string]any) {
	reasons := make(map[string]any)

	semantic := clamp01(similarity)
	addReason(reasons, "semantic_similarity", semantic, weightSemantic,
		fmt.Sprintf("Profile similarity %.0f%%", semantic*100))

	role := roleScore(c, j)
	addReason(reasons, "role_family", role, weightRole, roleDetail(role, j))

	seniority := seniorityScore(c, j)
	addReason(reasons, "seniority", seniority, weightSeniority, seniorityDetail(seniority, j))

	skills, overlap := skillScore(c, j)
	addReason(reasons, "skill_overlap", skills, weightSkills,
		fmt.Sprintf("Matches %d of the job's skills", overlap))

	addReason(reasons, "freshness", j.FreshnessScore, weightFreshness, freshnessDetail(j))

	salary := salaryScore(c, j)
	addReason(reasons, "salary_fit", salary, weightSalary, salaryDetail(salary))

	score := semantic*weightSemantic +
		role*weightRole +
		seniority*weightSeniority +
		skills*weightSkills +
		j.FreshnessScore*weightFreshness +
		salary*weightSalary

	return clamp01(score), reasons
}

// addReason records a dimension unless it contributed nothing.
func addReason(reasons map[string]any, name string, score, weight float64, detail string) {
	if score*weight == 0 {
		return
	}
	reasons[name] = Reason{Score: score, Weight: weight, Detail: detail}
}

// roleScore: 1 for the primary preferred family, 0.5 for an adjacent one,
// neutral 0.5 when the candidate stated no preference.
func roleScore(c *model.CandidateProfile, j *model.Job) float64 {
	if len(c.RoleFamilies) == 0 {
		return 0.5
	}
	if j.RoleFamily == c.RoleFamilies[0] {
		return 1
	}
	if contains(c.RoleFamilies, j.RoleFamily) || contains(adjacentFamilies[c.RoleFamilies[0]], j.RoleFamily) {
		return 0.5
	}
	return 0
}

// seniorityScore: 1 exact, 0.5 one step away, 0 otherwise; neutral when
// either side is unknown.
func seniorityScore(c *model.CandidateProfile, j *model.Job) float64 {
	if c.Seniority == "" || j.Seniority == "" {
		return 0.5
	}
	if c.Seniority == j.Seniority {
		return 1
	}
	if normalize.SeniorityWithinOneStep(c.Seniority, j.Seniority) {
		return 0.5
	}
	return 0
}

// skillScore: |cand ∩ job| / max(1, |job.skills|), except that a job listing
// no skills scores a neutral 0.5.
func skillScore(c *model.CandidateProfile, j *model.Job) (float64, int) {
	if len(j.Skills) == 0 {
		return 0.5, 0
	}
	jobSkills := make(map[string]bool, len(j.Skills))
	for _, s := range j.Skills {
		jobSkills[strings.ToLower(s)] = true
	}
	overlap := 0
	for _, s := range c.Skills {
		if jobSkills[strings.ToLower(s)] {
			overlap++
		}
	}
	denom := len(j.Skills)
	if denom < 1 {
		denom = 1
	}
	return float64(overlap) / float64(denom), overlap
}

// salaryScore: 1 when the job range satisfies the candidate floor, 0 when it
// falls short, neutral when either side is unstated.
func salaryScore(c *model.CandidateProfile, j *model.Job) float64 {
	if c.MinSalary == nil || j.MaxSalary == nil {
		return 0.5
	}
	if *j.MaxSalary >= *c.MinSalary {
		return 1
	}
	return 0
}

func roleDetail(score float64, j *model.Job) string {
	family := strings.ReplaceAll(j.RoleFamily, "_", " ")
	if score == 1 {
		return "Matches your " + family + " preference"
	}
	return "Close to your preferred role family (" + family + ")"
}

func seniorityDetail(score float64, j *model.Job) string {
	if j.Seniority == "" {
		return "Seniority not stated"
	}
	if score == 1 {
		return "Matches your " + j.Seniority + " level"
	}
	return "One level from your target (" + j.Seniority + ")"
}

func freshnessDetail(j *model.Job) string {
	if j.FreshnessScore > 0.7 {
		return "Posted recently"
	}
	return "Listing is still active"
}

func salaryDetail(score float64) string {
	if score == 1 {
		return "Meets your salary requirement"
	}
	if score == 0 {
		return "Below your salary requirement"
	}
	return "Salary not stated"
}

func contains(haystack []string, needle string) bool {
	for _, s := range haystack {
		if s == needle {
			return true
		}
	}
	return false
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
