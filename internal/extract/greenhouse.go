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

const greenhouseBoardAPI = "https://boards-api.greenhouse.io/v1/boards/%s/jobs"

// Greenhouse reads the public boards API.
type Greenhouse struct {
	fetcher *fetch.Fetcher
	logger  *zap.Logger
}

func NewGreenhouse(fetcher *fetch.Fetcher, logger *zap.Logger) *Greenhouse {
	return &Greenhouse{fetcher: fetcher, logger: logger}
}

func (g *Greenhouse) Type() string { return model.ATSGreenhouse }

type greenhouseBoard struct {
	Jobs []greenhouseJob `json:"jobs"`
}

type greenhouseJob struct {
	ID          int64  `json:"id"`
	Title       string `json:"title"`
	AbsoluteURL string `json:"absolute_url"`
	UpdatedAt   string `json:"updated_at"`
	Location    struct {
		Name string `json:"name"`
	} `json:"location"`
	Departments []struct {
		Name string `json:"name"`
	} `json:"departments"`
	Content string `json:"content"`
}

func (g *Greenhouse) List(ctx context.Context, company *model.Company) ([]*model.RawJob, error) {
	if err := requireIdentifier(company); err != nil {
		return nil, err
	}

	url := fmt.Sprintf(greenhouseBoardAPI, company.ATSIdentifier)
	res, err := g.fetcher.Fetch(ctx, url, fetch.Options{ATSType: model.ATSGreenhouse, APIEndpoint: true})
	if err != nil {
		return nil, err
	}

	jobs, err := g.parse(res.Body, company)
	if err != nil {
		return nil, err
	}

	g.logger.Debug("extracted greenhouse board",
		zap.String("board", company.ATSIdentifier),
		zap.Int("jobs", len(jobs)),
	)

	return jobs, nil
}

func (g *Greenhouse) parse(body string, company *model.Company) ([]*model.RawJob, error) {
	var board greenhouseBoard
	if err := json.Unmarshal([]byte(body), &board); err != nil {
		return nil, errs.Wrap(errs.KindParseError, "decode greenhouse board", err)
	}

	jobs := make([]*model.RawJob, 0, len(board.Jobs))
	for _, j := range board.Jobs {
		if j.Title == "" || j.AbsoluteURL == "" {
			continue
		}
		department := ""
		if len(j.Departments) > 0 {
			department = j.Departments[0].Name
		}
		jobs = append(jobs, &model.RawJob{
			CompanyID:      company.ID,
			SourceURL:      j.AbsoluteURL,
			TitleRaw:       j.Title,
			DescriptionRaw: stripHTML(j.Content),
			LocationRaw:    j.Location.Name,
			DepartmentRaw:  department,
			PostedAtRaw:    j.UpdatedAt,
		})
	}

	return jobs, nil
}
