// Package discovery finds candidate companies from external catalogs and
// stages them through the deduplicated discovery queue.
package discovery

import (
	"context"
	"regexp"
	"strings"

	"github.com/huntworks/hunt/internal/model"
)

// Candidate is a company proposal produced by a source.
type Candidate struct {
	Name       string
	Domain     string
	CareersURL string
	WebsiteURL string
	Source     string
	SourceURL  string

	Location      string
	Country       string
	Industry      string
	EmployeeCount *int
	FundingStage  string

	// ATS hints when the source already knows the board.
	ATSType       string
	ATSIdentifier string
}

// Source is a pluggable producer of company candidates.
type Source interface {
	Name() string
	Description() string
	IsEnabled() bool
	// Produce streams up to limit candidates. Implementations should skip
	// domains the known set already covers to avoid wasted probes.
	Produce(ctx context.Context, limit int, known map[string]bool) ([]*Candidate, error)
}

// Registry selects sources by stable name.
type Registry struct {
	sources []Source
}

func NewSourceRegistry(sources ...Source) *Registry {
	return &Registry{sources: sources}
}

// Enabled returns the enabled sources, optionally filtered by name.
func (r *Registry) Enabled(names []string) []Source {
	wanted := make(map[string]bool, len(names))
	for _, n := range names {
		wanted[n] = true
	}

	var out []Source
	for _, s := range r.sources {
		if !s.IsEnabled() {
			continue
		}
		if len(wanted) > 0 && !wanted[s.Name()] {
			continue
		}
		out = append(out, s)
	}
	return out
}

// All lists every registered source.
func (r *Registry) All() []Source { return r.sources }

var nonAlnumRe = regexp.MustCompile(`[^a-z0-9]+`)

// DedupeKey computes the queue dedupe key: the normalized domain when
// present, otherwise the normalized name.
func DedupeKey(c *Candidate) string {
	if d := NormalizeDomain(c.Domain); d != "" {
		return d
	}
	name := strings.ToLower(strings.TrimSpace(c.Name))
	return "name:" + nonAlnumRe.ReplaceAllString(name, "-")
}

// NormalizeDomain lowercases and strips scheme, www, path, and port.
func NormalizeDomain(domain string) string {
	d := strings.ToLower(strings.TrimSpace(domain))
	d = strings.TrimPrefix(d, "http://")
	d = strings.TrimPrefix(d, "https://")
	d = strings.TrimPrefix(d, "www.")
	if i := strings.IndexAny(d, "/?#"); i >= 0 {
		d = d[:i]
	}
	if i := strings.IndexByte(d, ':'); i >= 0 {
		d = d[:i]
	}
	return d
}

// queueItem converts a candidate into its staged queue form.
func (c *Candidate) queueItem() *model.QueueItem {
	return &model.QueueItem{
		Name:          strings.TrimSpace(c.Name),
		Domain:        NormalizeDomain(c.Domain),
		CareersURL:    c.CareersURL,
		WebsiteURL:    c.WebsiteURL,
		Source:        c.Source,
		SourceURL:     c.SourceURL,
		Location:      c.Location,
		Country:       c.Country,
		Industry:      c.Industry,
		EmployeeCount: c.EmployeeCount,
		FundingStage:  c.FundingStage,
		ATSType:       c.ATSType,
		ATSIdentifier: c.ATSIdentifier,
	}
}
