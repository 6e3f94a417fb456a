package extract

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"

	"go.uber.org/zap"

	"github.com/huntworks/hunt/internal/errs"
	"github.com/huntworks/hunt/internal/fetch"
	"github.com/huntworks/hunt/internal/model"
)

// Enricher backfills descriptions and posted dates for jobs that were
// ingested from list-only endpoints.
type Enricher struct {
	fetcher *fetch.Fetcher
	logger  *zap.Logger
}

func NewEnricher(fetcher *fetch.Fetcher, logger *zap.Logger) *Enricher {
	return &Enricher{fetcher: fetcher, logger: logger}
}

// Detail is the enrichment payload for one job.
type Detail struct {
	Description string
	PostedAtRaw string
}

var (
	ghJobIDRes = []*regexp.Regexp{
		regexp.MustCompile(`[?&]gh_jid=(\d+)`),
		regexp.MustCompile(`/jobs/(\d+)`),
		regexp.MustCompile(`/careers/(\d+)`),
	}
	leverPostingIDRe = regexp.MustCompile(`jobs\.lever\.co/[^/]+/([0-9a-f-]{36})`)
)

// Enrich fetches the job's detail endpoint for its company's ATS.
func (e *Enricher) Enrich(ctx context.Context, company *model.Company, job *model.Job) (*Detail, error) {
	switch company.ATSType {
	case model.ATSGreenhouse:
		return e.greenhouse(ctx, company, job)
	case model.ATSLever:
		return e.lever(ctx, job)
	default:
		return e.generic(ctx, job)
	}
}

type greenhouseDetail struct {
	Content   string `json:"content"`
	UpdatedAt string `json:"updated_at"`
}

func (e *Enricher) greenhouse(ctx context.Context, company *model.Company, job *model.Job) (*Detail, error) {
	var jobID string
	for _, re := range ghJobIDRes {
		if m := re.FindStringSubmatch(job.SourceURL); m != nil {
			jobID = m[1]
			break
		}
	}
	if jobID == "" {
		return e.generic(ctx, job)
	}

	url := fmt.Sprintf("https://boards-api.greenhouse.io/v1/boards/%s/jobs/%s", company.ATSIdentifier, jobID)
	res, err := e.fetcher.Fetch(ctx, url, fetch.Options{ATSType: model.ATSGreenhouse, APIEndpoint: true})
	if err != nil {
		return nil, err
	}

	var detail greenhouseDetail
	if err := json.Unmarshal([]byte(res.Body), &detail); err != nil {
		return nil, errs.Wrap(errs.KindParseError, "decode greenhouse job detail", err)
	}

	return &Detail{
		Description: stripHTML(detail.Content),
		PostedAtRaw: detail.UpdatedAt,
	}, nil
}

func (e *Enricher) lever(ctx context.Context, job *model.Job) (*Detail, error) {
	m := leverPostingIDRe.FindStringSubmatch(job.SourceURL)
	if m == nil {
		return e.generic(ctx, job)
	}

	url := job.SourceURL + "?mode=json"
	res, err := e.fetcher.Fetch(ctx, url, fetch.Options{ATSType: model.ATSLever, APIEndpoint: true})
	if err != nil {
		return nil, err
	}

	var posting leverPosting
	if err := json.Unmarshal([]byte(res.Body), &posting); err != nil {
		return nil, errs.Wrap(errs.KindParseError, "decode lever posting detail", err)
	}

	return &Detail{Description: posting.DescriptionPlain}, nil
}

// generic pulls the detail page itself and strips it to text.
func (e *Enricher) generic(ctx context.Context, job *model.Job) (*Detail, error) {
	res, err := e.fetcher.Fetch(ctx, job.SourceURL, fetch.Options{})
	if err != nil {
		return nil, err
	}

	text := stripHTML(res.Body)
	if len(text) > 10000 {
		text = text[:10000]
	}
	if text == "" {
		return nil, errs.New(errs.KindParseError, "detail page yielded no text")
	}

	return &Detail{Description: text}, nil
}
