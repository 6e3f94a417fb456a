package normalize

import (
	"regexp"
	"sort"
)

// skillAliases maps canonical skill tags to the phrases that imply them.
var skillAliases = map[string][]string{
	"python":     {`python`, `python3`},
	"javascript": {`javascript`, `\bjs\b`, `ecmascript`, `\bes6\b`},
	"typescript": {`typescript`, `\bts\b`},
	"java":       {`\bjava\b`},
	"golang":     {`golang`, `\bgo\b`},
	"rust":       {`\brust\b`},
	"c++":        {`c\+\+`, `\bcpp\b`},
	"c#":         {`c#`, `csharp`, `\.net`},
	"ruby":       {`\bruby\b`},
	"php":        {`\bphp\b`},
	"swift":      {`\bswift\b`},
	"kotlin":     {`kotlin`},
	"scala":      {`\bscala\b`},
	"sql":        {`\bsql\b`},

	"react":    {`\breact\b`, `reactjs`, `react\.js`},
	"vue":      {`\bvue\b`, `vuejs`, `vue\.js`},
	"angular":  {`angular`},
	"svelte":   {`svelte`},
	"nextjs":   {`next\.js`, `nextjs`},
	"html":     {`\bhtml5?\b`},
	"css":      {`\bcss3?\b`, `\bscss\b`, `\bsass\b`},
	"tailwind": {`tailwind`},

	"nodejs":  {`node\.js`, `nodejs`, `\bnode\b`},
	"django":  {`django`},
	"flask":   {`\bflask\b`},
	"fastapi": {`fastapi`},
	"rails":   {`\brails\b`, `ruby on rails`},
	"spring":  {`\bspring\b`, `spring boot`},
	"graphql": {`graphql`},
	"rest":    {`\brest(ful)?\b`, `rest api`},
	"grpc":    {`\bgrpc\b`},

	"aws":            {`\baws\b`, `amazon web services`},
	"gcp":            {`\bgcp\b`, `google cloud`},
	"azure":          {`\bazure\b`},
	"kubernetes":     {`kubernetes`, `\bk8s\b`},
	"docker":         {`docker`},
	"terraform":      {`terraform`},
	"ansible":        {`ansible`},
	"ci/cd":          {`ci/cd`, `\bcicd\b`, `continuous integration`, `continuous deployment`},
	"github actions": {`github actions`},

	"postgresql":    {`postgres(ql)?`, `\bpsql\b`},
	"mysql":         {`mysql`},
	"mongodb":       {`mongodb`, `\bmongo\b`},
	"redis":         {`\bredis\b`},
	"elasticsearch": {`elasticsearch`, `elastic search`},
	"kafka":         {`\bkafka\b`},

	"pandas":       {`pandas`},
	"numpy":        {`numpy`},
	"pytorch":      {`pytorch`},
	"tensorflow":   {`tensorflow`},
	"scikit-learn": {`scikit-learn`, `sklearn`},
	"spark":        {`\bspark\b`, `pyspark`},
	"airflow":      {`airflow`},
	"dbt":          {`\bdbt\b`},

	"git":           {`\bgit\b`, `github`, `gitlab`},
	"agile":         {`\bagile\b`, `\bscrum\b`, `\bkanban\b`},
	"microservices": {`micro-?services`},
	"linux":         {`\blinux\b`, `\bunix\b`},
}

var skillPatterns = func() map[string][]*regexp.Regexp {
	compiled := make(map[string][]*regexp.Regexp, len(skillAliases))
	for tag, aliases := range skillAliases {
		compiled[tag] = compileAll(aliases...)
	}
	return compiled
}()

// ExtractSkills intersects the title and description against the skills
// vocabulary, returning a sorted, de-duplicated set of canonical tags.
func ExtractSkills(title, description string) []string {
	text := title + " " + description

	var found []string
	for tag, patterns := range skillPatterns {
		for _, p := range patterns {
			if p.MatchString(text) {
				found = append(found, tag)
				break
			}
		}
	}

	sort.Strings(found)
	return found
}
