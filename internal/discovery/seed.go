package discovery

import (
	"context"

	"github.com/huntworks/hunt/internal/config"
)

// seedListSource yields the curated seed companies from the config file.
type seedListSource struct {
	seeds []config.SeedEntry
}

func NewSeedList(seeds []config.SeedEntry) Source {
	return &seedListSource{seeds: seeds}
}

func (s *seedListSource) Name() string        { return "seed_list" }
func (s *seedListSource) Description() string { return "curated seed companies from configuration" }
func (s *seedListSource) IsEnabled() bool     { return len(s.seeds) > 0 }

func (s *seedListSource) Produce(_ context.Context, limit int, known map[string]bool) ([]*Candidate, error) {
	var out []*Candidate
	for _, seed := range s.seeds {
		if len(out) >= limit {
			break
		}
		domain := NormalizeDomain(seed.Domain)
		if domain != "" && known[domain] {
			continue
		}
		out = append(out, &Candidate{
			Name:       seed.Name,
			Domain:     domain,
			CareersURL: seed.CareersURL,
			Source:     s.Name(),
		})
	}
	return out, nil
}
