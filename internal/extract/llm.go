package extract

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"go.uber.org/zap"
	"google.golang.org/genai"

	"github.com/huntworks/hunt/internal/errs"
	"github.com/huntworks/hunt/internal/fetch"
	"github.com/huntworks/hunt/internal/model"
	"github.com/huntworks/hunt/internal/utils"
)

// ContentGenerator produces schema-constrained JSON from a prompt.
type ContentGenerator interface {
	GenerateJSON(ctx context.Context, prompt string) (string, error)
}

// Generator wraps the Google GenAI client with a strict JSON response schema.
type Generator struct {
	client    *genai.Client
	modelName string
}

// NewGenerator creates a Generator configured for the Gemini API backend.
func NewGenerator(ctx context.Context, apiKey, modelName string) (*Generator, error) {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return nil, errors.New("gemini api key is required")
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}

	return &Generator{client: client, modelName: modelName}, nil
}

// listingSchema is the response schema the model must satisfy.
var listingSchema = &genai.Schema{
	Type: genai.TypeObject,
	Properties: map[string]*genai.Schema{
		"jobs": {
			Type: genai.TypeArray,
			Items: &genai.Schema{
				Type: genai.TypeObject,
				Properties: map[string]*genai.Schema{
					"title":           {Type: genai.TypeString},
					"location":        {Type: genai.TypeString},
					"department":      {Type: genai.TypeString},
					"employment_type": {Type: genai.TypeString},
					"url_path":        {Type: genai.TypeString},
				},
				Required: []string{"title"},
			},
		},
	},
	Required: []string{"jobs"},
}

func (g *Generator) GenerateJSON(ctx context.Context, prompt string) (string, error) {
	resp, err := g.client.Models.GenerateContent(ctx, g.modelName, genai.Text(prompt), &genai.GenerateContentConfig{
		ResponseMIMEType: "application/json",
		ResponseSchema:   listingSchema,
	})
	if err != nil {
		return "", fmt.Errorf("generate content: %w", err)
	}

	var builder strings.Builder
	for _, candidate := range resp.Candidates {
		if candidate == nil || candidate.Content == nil {
			continue
		}
		for _, part := range candidate.Content.Parts {
			if part == nil {
				continue
			}
			builder.WriteString(part.Text)
		}
	}

	output := strings.TrimSpace(builder.String())
	if output == "" {
		return "", errors.New("gemini api returned empty response")
	}
	return output, nil
}

const llmPrompt = `You are a job listing extractor. Given the text of a careers page, extract all job listings.

For each job return:
- title: the job title (required)
- location: location if mentioned, or "Remote" if remote
- department: department or team if mentioned
- employment_type: Full-time, Part-time, Contract, etc. if mentioned
- url_path: the relative URL path to the job posting, e.g. /jobs/123

Only extract actual job postings, not navigation items or page furniture.
If no jobs are present, return an empty list.

Careers page text:

`

var jobLinkRe = regexp.MustCompile(`(?i)<a[^>]+href="[^"]*(job|career|position|opening)[^"]*"`)

// LLMFallback extracts jobs from custom career pages via the language model.
type LLMFallback struct {
	fetcher     *fetch.Fetcher
	generator   ContentGenerator
	maxInputLen int
	logger      *zap.Logger
}

func NewLLMFallback(fetcher *fetch.Fetcher, generator ContentGenerator, maxInputLen int, logger *zap.Logger) *LLMFallback {
	return &LLMFallback{
		fetcher:     fetcher,
		generator:   generator,
		maxInputLen: maxInputLen,
		logger:      logger,
	}
}

func (l *LLMFallback) Type() string { return model.ATSCustom }

type llmJob struct {
	Title          string `json:"title"`
	Location       string `json:"location"`
	Department     string `json:"department"`
	EmploymentType string `json:"employment_type"`
	URLPath        string `json:"url_path"`
}

type llmListing struct {
	Jobs []llmJob `json:"jobs"`
}

func (l *LLMFallback) List(ctx context.Context, company *model.Company) ([]*model.RawJob, error) {
	if l.generator == nil {
		l.logger.Debug("llm extraction skipped, no generator configured", zap.String("company", company.Name))
		return nil, nil
	}
	if company.CareersURL == "" {
		return nil, fmt.Errorf("company %s has no careers url", company.Name)
	}

	res, err := l.fetcher.Fetch(ctx, company.CareersURL, fetch.Options{})
	if err != nil {
		return nil, err
	}

	// A page without job links is likely client-rendered; retry via browser.
	if !jobLinkRe.MatchString(res.Body) {
		rendered, rerr := l.fetcher.Fetch(ctx, company.CareersURL, fetch.Options{Render: true})
		if rerr == nil {
			res = rendered
		} else {
			l.logger.Debug("rendered fetch unavailable, using plain html",
				zap.String("company", company.Name), zap.Error(rerr))
		}
	}

	text := stripHTML(res.Body)
	if len(text) > l.maxInputLen {
		text = text[:l.maxInputLen]
	}

	listing, err := l.generate(ctx, text)
	if err != nil {
		// One retry with a reduced excerpt before giving up.
		reduced := text
		if len(reduced) > l.maxInputLen/2 {
			reduced = reduced[:l.maxInputLen/2]
		}
		listing, err = l.generate(ctx, reduced)
		if err != nil {
			l.logger.Warn("extractor_llm_failed",
				zap.String("company", company.Name),
				zap.String("url", company.CareersURL),
				zap.String("error_preview", utils.TruncateForLog(err.Error(), 200)),
			)
			return nil, nil
		}
	}

	base, _ := url.Parse(company.CareersURL)
	jobs := make([]*model.RawJob, 0, len(listing.Jobs))
	for _, j := range listing.Jobs {
		if strings.TrimSpace(j.Title) == "" {
			continue
		}

		sourceURL := company.CareersURL
		if j.URLPath != "" && base != nil {
			if ref, err := url.Parse(j.URLPath); err == nil {
				sourceURL = base.ResolveReference(ref).String()
			}
		}

		jobs = append(jobs, &model.RawJob{
			CompanyID:         company.ID,
			SourceURL:         sourceURL,
			TitleRaw:          strings.TrimSpace(j.Title),
			LocationRaw:       strings.TrimSpace(j.Location),
			DepartmentRaw:     strings.TrimSpace(j.Department),
			EmploymentTypeRaw: strings.TrimSpace(j.EmploymentType),
		})
	}

	l.logger.Debug("llm extraction complete",
		zap.String("company", company.Name),
		zap.Int("jobs", len(jobs)),
	)

	return jobs, nil
}

// generate runs the model and validates the response shape. Responses that
// fail schema validation are never persisted.
func (l *LLMFallback) generate(ctx context.Context, text string) (*llmListing, error) {
	raw, err := l.generator.GenerateJSON(ctx, llmPrompt+text)
	if err != nil {
		return nil, err
	}

	var listing llmListing
	if err := json.Unmarshal([]byte(raw), &listing); err != nil {
		return nil, errs.Wrap(errs.KindSchemaViolation, "llm response is not valid json", err)
	}
	for _, j := range listing.Jobs {
		if strings.TrimSpace(j.Title) == "" {
			return nil, errs.New(errs.KindSchemaViolation, "llm job entry missing title")
		}
	}
	return &listing, nil
}
