package extract

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"

	"github.com/mitchellh/mapstructure"
	"go.uber.org/zap"

	"github.com/huntworks/hunt/internal/errs"
	"github.com/huntworks/hunt/internal/fetch"
	"github.com/huntworks/hunt/internal/model"
)

const workdayPageSize = 20

// Workday drives the POST-based search API with offset paging.
type Workday struct {
	fetcher *fetch.Fetcher
	logger  *zap.Logger
}

func NewWorkday(fetcher *fetch.Fetcher, logger *zap.Logger) *Workday {
	return &Workday{fetcher: fetcher, logger: logger}
}

func (w *Workday) Type() string { return model.ATSWorkday }

type workdaySearchResponse struct {
	Total       int              `json:"total"`
	JobPostings []map[string]any `json:"jobPostings"`
}

type workdayPosting struct {
	Title         string `mapstructure:"title"`
	ExternalPath  string `mapstructure:"externalPath"`
	LocationsText string `mapstructure:"locationsText"`
	PostedOn      string `mapstructure:"postedOn"`
	TimeType      string `mapstructure:"timeType"`
}

// endpoint derives the cxs search URL from the careers URL, e.g.
// https://acme.wd5.myworkdayjobs.com/External ->
// https://acme.wd5.myworkdayjobs.com/wday/cxs/acme/External/jobs
func (w *Workday) endpoint(company *model.Company) (string, *url.URL, error) {
	base, err := url.Parse(company.CareersURL)
	if err != nil || base.Host == "" {
		return "", nil, fmt.Errorf("company %s has no usable workday careers url", company.Name)
	}

	site := strings.Trim(base.Path, "/")
	if i := strings.LastIndex(site, "/"); i >= 0 {
		site = site[i+1:]
	}
	if site == "" {
		return "", nil, fmt.Errorf("workday careers url %q carries no site segment", company.CareersURL)
	}

	org := company.ATSIdentifier
	return fmt.Sprintf("%s://%s/wday/cxs/%s/%s/jobs", base.Scheme, base.Host, org, site), base, nil
}

func (w *Workday) List(ctx context.Context, company *model.Company) ([]*model.RawJob, error) {
	if err := requireIdentifier(company); err != nil {
		return nil, err
	}

	endpoint, base, err := w.endpoint(company)
	if err != nil {
		return nil, err
	}

	var jobs []*model.RawJob
	for offset := 0; ; offset += workdayPageSize {
		body := fmt.Sprintf(`{"appliedFacets":{},"limit":%d,"offset":%d,"searchText":""}`, workdayPageSize, offset)
		res, err := w.fetcher.Fetch(ctx, endpoint, fetch.Options{
			ATSType:     model.ATSWorkday,
			APIEndpoint: true,
			Method:      "POST",
			Body:        body,
		})
		if err != nil {
			return nil, err
		}

		var page workdaySearchResponse
		if err := json.Unmarshal([]byte(res.Body), &page); err != nil {
			return nil, errs.Wrap(errs.KindParseError, "decode workday search page", err)
		}

		for _, item := range page.JobPostings {
			var posting workdayPosting
			if err := mapstructure.Decode(item, &posting); err != nil {
				w.logger.Debug("skipping undecodable workday posting", zap.Error(err))
				continue
			}
			if posting.Title == "" || posting.ExternalPath == "" {
				continue
			}

			ref, err := url.Parse(posting.ExternalPath)
			if err != nil {
				continue
			}

			jobs = append(jobs, &model.RawJob{
				CompanyID:         company.ID,
				SourceURL:         base.ResolveReference(ref).String(),
				TitleRaw:          posting.Title,
				LocationRaw:       posting.LocationsText,
				PostedAtRaw:       posting.PostedOn,
				EmploymentTypeRaw: posting.TimeType,
			})
		}

		if len(page.JobPostings) < workdayPageSize || len(jobs) >= page.Total {
			break
		}
	}

	w.logger.Debug("extracted workday postings",
		zap.String("org", company.ATSIdentifier),
		zap.Int("jobs", len(jobs)),
	)

	return jobs, nil
}
