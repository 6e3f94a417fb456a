// Package extract turns listing endpoints into raw job records, one extractor
// per ATS vendor plus a language-model fallback for custom pages.
package extract

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"go.uber.org/zap"

	"github.com/huntworks/hunt/internal/fetch"
	"github.com/huntworks/hunt/internal/model"
)

// Extractor lists the raw jobs a company currently advertises.
type Extractor interface {
	// Type is the ATS type this extractor serves.
	Type() string
	// List fetches the company's board and returns raw job records with
	// CompanyID and SourceURL filled.
	List(ctx context.Context, company *model.Company) ([]*model.RawJob, error)
}

// Registry selects extractors by ATS type.
type Registry struct {
	extractors map[string]Extractor
}

func NewRegistry(extractors ...Extractor) *Registry {
	r := &Registry{extractors: make(map[string]Extractor, len(extractors))}
	for _, e := range extractors {
		r.extractors[e.Type()] = e
	}
	return r
}

// For returns the extractor for the ATS type.
func (r *Registry) For(atsType string) (Extractor, bool) {
	e, ok := r.extractors[atsType]
	return e, ok
}

// Types lists the registered ATS types.
func (r *Registry) Types() []string {
	types := make([]string, 0, len(r.extractors))
	for t := range r.extractors {
		types = append(types, t)
	}
	return types
}

// Default wires the standard extractor set.
func Default(fetcher *fetch.Fetcher, generator ContentGenerator, maxInputLen int, logger *zap.Logger) *Registry {
	return NewRegistry(
		NewGreenhouse(fetcher, logger),
		NewLever(fetcher, logger),
		NewAshby(fetcher, logger),
		NewWorkday(fetcher, logger),
		NewLLMFallback(fetcher, generator, maxInputLen, logger),
	)
}

var (
	tagRe    = regexp.MustCompile(`<[^>]+>`)
	spacesRe = regexp.MustCompile(`\s+`)
	scriptRe = regexp.MustCompile(`(?is)<(script|style|noscript|svg)[^>]*>.*?</\s*(script|style|noscript|svg)\s*>`)
)

// stripHTML reduces markup to plain text.
func stripHTML(html string) string {
	text := scriptRe.ReplaceAllString(html, " ")
	text = tagRe.ReplaceAllString(text, " ")
	text = strings.NewReplacer("&amp;", "&", "&lt;", "<", "&gt;", ">", "&#39;", "'", "&quot;", `"`, "&nbsp;", " ").Replace(text)
	return strings.TrimSpace(spacesRe.ReplaceAllString(text, " "))
}

func requireIdentifier(company *model.Company) error {
	if strings.TrimSpace(company.ATSIdentifier) == "" {
		return fmt.Errorf("company %s has no ats identifier", company.Name)
	}
	return nil
}
