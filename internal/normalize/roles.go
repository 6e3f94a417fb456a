package normalize

import "regexp"

// Role families, a closed set of 14 values.
const (
	RoleSoftwareEngineering   = "software_engineering"
	RoleInfrastructure        = "infrastructure"
	RoleData                  = "data"
	RoleProduct               = "product"
	RoleDesign                = "design"
	RoleEngineeringManagement = "engineering_management"
	RoleSales                 = "sales"
	RoleMarketing             = "marketing"
	RoleCustomerSuccess       = "customer_success"
	RoleOperations            = "operations"
	RolePeople                = "people"
	RoleFinance               = "finance"
	RoleLegal                 = "legal"
	RoleOther                 = "other"
)

type roleRule struct {
	family   string
	patterns []*regexp.Regexp
}

func compileAll(patterns ...string) []*regexp.Regexp {
	out := make([]*regexp.Regexp, 0, len(patterns))
	for _, p := range patterns {
		out = append(out, regexp.MustCompile(`(?i)`+p))
	}
	return out
}

// roleRules is evaluated in order; the first family whose pattern hits wins.
// Specific families come before software_engineering so that titles such as
// "Engineering Manager", "Data Engineer", and "Sales Engineer" do not land in
// the broad engineer bucket.
var roleRules = []roleRule{
	{RoleEngineeringManagement, compileAll(
		`engineering\s*manager`, `eng\s*manager`, `technical\s*lead`, `tech\s*lead`,
		`team\s*lead`, `director.*engineering`, `vp.*engineering`, `head\s*of\s*engineering`, `\bcto\b`,
	)},
	{RoleData, compileAll(
		`data\s*engineer`, `data\s*scientist`, `machine\s*learning`, `ml\s*engineer`,
		`ai\s*engineer`, `analytics`, `data\s*analyst`, `business\s*intelligence`,
	)},
	{RoleInfrastructure, compileAll(
		`devops`, `\bsre\b`, `site\s*reliability`, `infrastructure`, `cloud\s*engineer`,
		`systems?\s*engineer`, `network\s*engineer`, `security\s*engineer`, `solutions?\s*architect`,
		`platform\s*engineer`,
	)},
	{RoleProduct, compileAll(
		`product\s*manager`, `program\s*manager`, `technical\s*program`, `project\s*manager`, `scrum\s*master`,
	)},
	{RoleDesign, compileAll(
		`product\s*designer`, `ux\s*designer`, `ui\s*designer`, `ux/ui`, `user\s*experience`,
		`user\s*interface`, `ux\s*researcher`, `design\s*lead`,
	)},
	{RoleSales, compileAll(
		`sales\s*engineer`, `solutions?\s*engineer`, `account\s*executive`, `sales\s*representative`,
		`business\s*development`, `sales\s*manager`,
	)},
	{RoleMarketing, compileAll(
		`marketing`, `growth`, `content\s*writer`, `copywriter`, `developer\s*advocate`,
		`developer\s*relations`, `devrel`,
	)},
	{RoleCustomerSuccess, compileAll(
		`customer\s*success`, `customer\s*support`, `support\s*engineer`, `technical\s*support`,
	)},
	{RoleOperations, compileAll(
		`operations`, `ops\s*manager`, `business\s*operations`,
	)},
	{RolePeople, compileAll(
		`recruiter`, `talent`, `\bhr\b`, `human\s*resources`, `people\s*(partner|ops|operations)`,
	)},
	{RoleFinance, compileAll(
		`finance`, `accountant`, `financial`, `controller`, `\bcfo\b`,
	)},
	{RoleLegal, compileAll(
		`legal`, `counsel`, `attorney`, `lawyer`, `compliance`,
	)},
	{RoleSoftwareEngineering, compileAll(
		`software\s*engineer`, `developer`, `programmer`, `frontend`, `front-end`, `backend`,
		`back-end`, `fullstack`, `full-stack`, `mobile\s*(developer|engineer)`,
		`ios\s*(developer|engineer)`, `android\s*(developer|engineer)`, `web\s*(developer|engineer)`,
		`api\s*(developer|engineer)`, `qa\s*engineer`, `quality\s*engineer`, `test\s*engineer`, `\bsdet\b`,
	)},
}

type specRule struct {
	tag      string
	patterns []*regexp.Regexp
}

var specRules = []specRule{
	{"fullstack", compileAll(`fullstack`, `full-stack`, `full stack`)},
	{"frontend", compileAll(`frontend`, `front-end`, `front end`, `react`, `vue`, `angular`, `ui\s*engineer`)},
	{"backend", compileAll(`backend`, `back-end`, `back end`, `server`, `\bapi\b`)},
	{"ios", compileAll(`\bios\b`, `swift`, `objective-c`)},
	{"android", compileAll(`android`, `kotlin`)},
	{"mobile", compileAll(`mobile`, `react\s*native`, `flutter`)},
	{"sre", compileAll(`\bsre\b`, `site\s*reliability`)},
	{"devops", compileAll(`devops`, `dev\s*ops`)},
	{"ml", compileAll(`machine\s*learning`, `\bml\b`, `deep\s*learning`)},
	{"data", compileAll(`data\s*engineer`, `data\s*pipeline`, `\betl\b`)},
	{"security", compileAll(`security`, `infosec`, `appsec`, `cybersecurity`)},
	{"cloud", compileAll(`\baws\b`, `azure`, `\bgcp\b`, `cloud`)},
	{"platform", compileAll(`platform`)},
}

// MapRole classifies a title into (role_family, role_specialization).
// Unmatched titles fall to "other" with no specialization tag.
func MapRole(title string) (string, string) {
	family := RoleOther
outer:
	for _, rule := range roleRules {
		for _, p := range rule.patterns {
			if p.MatchString(title) {
				family = rule.family
				break outer
			}
		}
	}

	spec := ""
	for _, rule := range specRules {
		for _, p := range rule.patterns {
			if p.MatchString(title) {
				spec = rule.tag
				break
			}
		}
		if spec != "" {
			break
		}
	}

	return family, spec
}

// RoleFamilies lists the closed set, for validation at the API boundary.
var RoleFamilies = []string{
	RoleSoftwareEngineering, RoleInfrastructure, RoleData, RoleProduct, RoleDesign,
	RoleEngineeringManagement, RoleSales, RoleMarketing, RoleCustomerSuccess,
	RoleOperations, RolePeople, RoleFinance, RoleLegal, RoleOther,
}
