package extract

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/huntworks/hunt/internal/errs"
	"github.com/huntworks/hunt/internal/fetch"
	"github.com/huntworks/hunt/internal/model"
)

const leverPostingsAPI = "https://api.lever.co/v0/postings/%s?mode=json"

// Lever reads the public postings API.
type Lever struct {
	fetcher *fetch.Fetcher
	logger  *zap.Logger
}

func NewLever(fetcher *fetch.Fetcher, logger *zap.Logger) *Lever {
	return &Lever{fetcher: fetcher, logger: logger}
}

func (l *Lever) Type() string { return model.ATSLever }

type leverPosting struct {
	ID         string `json:"id"`
	Text       string `json:"text"`
	HostedURL  string `json:"hostedUrl"`
	CreatedAt  int64  `json:"createdAt"`
	Categories struct {
		Location   string `json:"location"`
		Team       string `json:"team"`
		Commitment string `json:"commitment"`
	} `json:"categories"`
	DescriptionPlain string `json:"descriptionPlain"`
	Salary           struct {
		Min      int    `json:"min"`
		Max      int    `json:"max"`
		Currency string `json:"currency"`
	} `json:"salaryRange"`
}

func (l *Lever) List(ctx context.Context, company *model.Company) ([]*model.RawJob, error) {
	if err := requireIdentifier(company); err != nil {
		return nil, err
	}

	url := fmt.Sprintf(leverPostingsAPI, company.ATSIdentifier)
	res, err := l.fetcher.Fetch(ctx, url, fetch.Options{ATSType: model.ATSLever, APIEndpoint: true})
	if err != nil {
		return nil, err
	}

	jobs, err := l.parse(res.Body, company)
	if err != nil {
		return nil, err
	}

	l.logger.Debug("extracted lever postings",
		zap.String("site", company.ATSIdentifier),
		zap.Int("jobs", len(jobs)),
	)

	return jobs, nil
}

func (l *Lever) parse(body string, company *model.Company) ([]*model.RawJob, error) {
	var postings []leverPosting
	if err := json.Unmarshal([]byte(body), &postings); err != nil {
		return nil, errs.Wrap(errs.KindParseError, "decode lever postings", err)
	}

	jobs := make([]*model.RawJob, 0, len(postings))
	for _, p := range postings {
		if p.Text == "" || p.HostedURL == "" {
			continue
		}

		postedAt := ""
		if p.CreatedAt > 0 {
			postedAt = time.UnixMilli(p.CreatedAt).UTC().Format(time.RFC3339)
		}

		salary := ""
		if p.Salary.Max > 0 {
			salary = strconv.Itoa(p.Salary.Min) + " - " + strconv.Itoa(p.Salary.Max)
		}

		jobs = append(jobs, &model.RawJob{
			CompanyID:         company.ID,
			SourceURL:         p.HostedURL,
			TitleRaw:          p.Text,
			DescriptionRaw:    p.DescriptionPlain,
			LocationRaw:       p.Categories.Location,
			DepartmentRaw:     p.Categories.Team,
			EmploymentTypeRaw: p.Categories.Commitment,
			PostedAtRaw:       postedAt,
			SalaryRaw:         salary,
		})
	}

	return jobs, nil
}
