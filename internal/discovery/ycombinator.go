package discovery

import (
	"context"
	"encoding/json"

	"go.uber.org/zap"

	"github.com/huntworks/hunt/internal/errs"
	"github.com/huntworks/hunt/internal/fetch"
)

const ycCompaniesURL = "https://yc-oss.github.io/api/companies/all.json"

// ycDirectorySource reads the public YC company directory export.
type ycDirectorySource struct {
	fetcher *fetch.Fetcher
	logger  *zap.Logger
}

func NewYCDirectory(fetcher *fetch.Fetcher, logger *zap.Logger) Source {
	return &ycDirectorySource{fetcher: fetcher, logger: logger}
}

func (s *ycDirectorySource) Name() string        { return "yc_directory" }
func (s *ycDirectorySource) Description() string { return "Y Combinator public company directory" }
func (s *ycDirectorySource) IsEnabled() bool     { return true }

type ycCompany struct {
	Name         string `json:"name"`
	Website      string `json:"website"`
	AllLocations string `json:"all_locations"`
	Industry     string `json:"industry"`
	TeamSize     int    `json:"team_size"`
	Stage        string `json:"stage"`
	Batch        string `json:"batch"`
	Status       string `json:"status"`
}

func (s *ycDirectorySource) Produce(ctx context.Context, limit int, known map[string]bool) ([]*Candidate, error) {
	res, err := s.fetcher.Fetch(ctx, ycCompaniesURL, fetch.Options{APIEndpoint: true})
	if err != nil {
		return nil, err
	}

	var companies []ycCompany
	if err := json.Unmarshal([]byte(res.Body), &companies); err != nil {
		return nil, errs.Wrap(errs.KindParseError, "decode yc directory", err)
	}

	var out []*Candidate
	for _, c := range companies {
		if len(out) >= limit {
			break
		}
		if c.Name == "" || c.Status == "Inactive" {
			continue
		}

		domain := NormalizeDomain(c.Website)
		if domain == "" || known[domain] {
			continue
		}

		candidate := &Candidate{
			Name:       c.Name,
			Domain:     domain,
			WebsiteURL: c.Website,
			Source:     s.Name(),
			SourceURL:  ycCompaniesURL,
			Location:   c.AllLocations,
			Industry:   c.Industry,
		}
		if c.TeamSize > 0 {
			size := c.TeamSize
			candidate.EmployeeCount = &size
		}
		if c.Stage != "" {
			candidate.FundingStage = c.Stage
		}
		out = append(out, candidate)
	}

	s.logger.Debug("yc directory produced candidates",
		zap.Int("total_listed", len(companies)),
		zap.Int("candidates", len(out)),
	)

	return out, nil
}
