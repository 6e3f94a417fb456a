package extract

import (
	"context"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"

	"github.com/huntworks/hunt/internal/errs"
	"github.com/huntworks/hunt/internal/fetch"
	"github.com/huntworks/hunt/internal/model"
)

const ashbyBoardAPI = "https://api.ashbyhq.com/posting-api/job-board/%s"

// Ashby reads the public posting API.
type Ashby struct {
	fetcher *fetch.Fetcher
	logger  *zap.Logger
}

func NewAshby(fetcher *fetch.Fetcher, logger *zap.Logger) *Ashby {
	return &Ashby{fetcher: fetcher, logger: logger}
}

func (a *Ashby) Type() string { return model.ATSAshby }

type ashbyBoard struct {
	Jobs []ashbyJob `json:"jobs"`
}

type ashbyJob struct {
	ID              string `json:"id"`
	Title           string `json:"title"`
	Location        string `json:"location"`
	Department      string `json:"department"`
	EmploymentType  string `json:"employmentType"`
	PublishedAt     string `json:"publishedAt"`
	JobURL          string `json:"jobUrl"`
	ApplyURL        string `json:"applyUrl"`
	IsRemote        bool   `json:"isRemote"`
	DescriptionHTML string `json:"descriptionHtml"`
}

func (a *Ashby) List(ctx context.Context, company *model.Company) ([]*model.RawJob, error) {
	if err := requireIdentifier(company); err != nil {
		return nil, err
	}

	url := fmt.Sprintf(ashbyBoardAPI, company.ATSIdentifier)
	res, err := a.fetcher.Fetch(ctx, url, fetch.Options{ATSType: model.ATSAshby, APIEndpoint: true})
	if err != nil {
		return nil, err
	}

	jobs, err := a.parse(res.Body, company)
	if err != nil {
		return nil, err
	}

	a.logger.Debug("extracted ashby board",
		zap.String("board", company.ATSIdentifier),
		zap.Int("jobs", len(jobs)),
	)

	return jobs, nil
}

func (a *Ashby) parse(body string, company *model.Company) ([]*model.RawJob, error) {
	var board ashbyBoard
	if err := json.Unmarshal([]byte(body), &board); err != nil {
		return nil, errs.Wrap(errs.KindParseError, "decode ashby board", err)
	}

	jobs := make([]*model.RawJob, 0, len(board.Jobs))
	for _, j := range board.Jobs {
		sourceURL := j.JobURL
		if sourceURL == "" {
			sourceURL = j.ApplyURL
		}
		if j.Title == "" || sourceURL == "" {
			continue
		}

		location := j.Location
		if j.IsRemote && location == "" {
			location = "Remote"
		}

		jobs = append(jobs, &model.RawJob{
			CompanyID:         company.ID,
			SourceURL:         sourceURL,
			TitleRaw:          j.Title,
			DescriptionRaw:    stripHTML(j.DescriptionHTML),
			LocationRaw:       location,
			DepartmentRaw:     j.Department,
			EmploymentTypeRaw: j.EmploymentType,
			PostedAtRaw:       j.PublishedAt,
		})
	}

	return jobs, nil
}
