package discovery

import (
	"context"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"

	"github.com/huntworks/hunt/internal/fetch"
	"github.com/huntworks/hunt/internal/model"
)

// atsDirectorySource probes vendor board APIs for a curated identifier list
// and yields the companies whose boards answer. Candidates carry the ATS
// hint so queue processing can skip re-detection.
type atsDirectorySource struct {
	fetcher     *fetch.Fetcher
	identifiers []string
	logger      *zap.Logger
}

func NewATSDirectory(fetcher *fetch.Fetcher, identifiers []string, logger *zap.Logger) Source {
	return &atsDirectorySource{fetcher: fetcher, identifiers: identifiers, logger: logger}
}

func (s *atsDirectorySource) Name() string { return "ats_directory" }
func (s *atsDirectorySource) Description() string {
	return "probes vendor board APIs for curated identifiers"
}
func (s *atsDirectorySource) IsEnabled() bool { return len(s.identifiers) > 0 }

type probe struct {
	atsType string
	url     string
	careers string
}

func probesFor(identifier string) []probe {
	return []probe{
		{
			atsType: model.ATSGreenhouse,
			url:     fmt.Sprintf("https://boards-api.greenhouse.io/v1/boards/%s/jobs", identifier),
			careers: "https://boards.greenhouse.io/" + identifier,
		},
		{
			atsType: model.ATSLever,
			url:     fmt.Sprintf("https://api.lever.co/v0/postings/%s?mode=json", identifier),
			careers: "https://jobs.lever.co/" + identifier,
		},
		{
			atsType: model.ATSAshby,
			url:     fmt.Sprintf("https://api.ashbyhq.com/posting-api/job-board/%s", identifier),
			careers: "https://jobs.ashbyhq.com/" + identifier,
		},
	}
}

func (s *atsDirectorySource) Produce(ctx context.Context, limit int, known map[string]bool) ([]*Candidate, error) {
	var out []*Candidate
	for _, identifier := range s.identifiers {
		if len(out) >= limit {
			break
		}
		if known[identifier+".com"] {
			continue
		}

		for _, p := range probesFor(identifier) {
			res, err := s.fetcher.Fetch(ctx, p.url, fetch.Options{ATSType: p.atsType, APIEndpoint: true})
			if err != nil {
				continue
			}
			if !json.Valid([]byte(res.Body)) {
				continue
			}

			out = append(out, &Candidate{
				Name:          identifier,
				CareersURL:    p.careers,
				Source:        s.Name(),
				SourceURL:     p.url,
				ATSType:       p.atsType,
				ATSIdentifier: identifier,
			})
			break
		}
	}

	s.logger.Debug("ats directory probe complete",
		zap.Int("identifiers", len(s.identifiers)),
		zap.Int("candidates", len(out)),
	)

	return out, nil
}
