// Package ats identifies the ATS vendor behind a company's careers presence.
package ats

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/gocolly/colly/v2"
	"go.uber.org/zap"

	"github.com/huntworks/hunt/internal/fetch"
	"github.com/huntworks/hunt/internal/model"
)

// Detection is the detector's verdict for one company.
type Detection struct {
	ATSType       string
	ATSIdentifier string
	CareersURL    string
}

type hostPattern struct {
	atsType string
	re      *regexp.Regexp
}

// hostPatterns are tried in order; the first capture is the board identifier.
var hostPatterns = []hostPattern{
	{model.ATSGreenhouse, regexp.MustCompile(`(?:boards|job-boards)\.greenhouse\.io/([A-Za-z0-9_-]+)`)},
	{model.ATSGreenhouse, regexp.MustCompile(`boards-api\.greenhouse\.io/v1/boards/([A-Za-z0-9_-]+)`)},
	{model.ATSLever, regexp.MustCompile(`jobs\.lever\.co/([A-Za-z0-9_-]+)`)},
	{model.ATSAshby, regexp.MustCompile(`jobs\.ashbyhq\.com/([A-Za-z0-9_-]+)`)},
	{model.ATSWorkday, regexp.MustCompile(`([A-Za-z0-9_-]+)\.wd\d+\.myworkdayjobs\.com`)},
}

// apiProbes builds a vendor's well-known JSON endpoint for an identifier.
var apiProbes = map[string]func(identifier string) string{
	model.ATSGreenhouse: func(id string) string {
		return fmt.Sprintf("https://boards-api.greenhouse.io/v1/boards/%s/jobs", id)
	},
	model.ATSLever: func(id string) string {
		return fmt.Sprintf("https://api.lever.co/v0/postings/%s?mode=json", id)
	},
	model.ATSAshby: func(id string) string {
		return fmt.Sprintf("https://api.ashbyhq.com/posting-api/job-board/%s", id)
	},
}

// Detector resolves (ats_type, ats_identifier, careers_url) for companies.
// It is idempotent on identical inputs and is the sole writer of the ATS
// fields on companies.
type Detector struct {
	fetcher   *fetch.Fetcher
	userAgent string
	logger    *zap.Logger
}

func NewDetector(fetcher *fetch.Fetcher, userAgent string, logger *zap.Logger) *Detector {
	return &Detector{fetcher: fetcher, userAgent: userAgent, logger: logger}
}

// Detect runs the ordered algorithm: URL patterns, HTML probing, API probing,
// then custom.
func (d *Detector) Detect(ctx context.Context, company *model.Company) (*Detection, error) {
	// 1. URL pattern match on the URLs we already hold.
	for _, candidate := range []string{company.CareersURL, company.WebsiteURL} {
		if det := matchHost(candidate); det != nil {
			d.logger.Debug("ats detected from url",
				zap.String("company", company.Name),
				zap.String("ats_type", det.ATSType),
			)
			if det.CareersURL == "" {
				det.CareersURL = candidate
			}
			return det, nil
		}
	}

	// 2. HTML probing of the careers page candidates.
	for _, page := range d.probePages(company) {
		if det := d.probeHTML(ctx, page); det != nil {
			d.logger.Debug("ats detected from html",
				zap.String("company", company.Name),
				zap.String("ats_type", det.ATSType),
				zap.String("page", page),
			)
			return det, nil
		}
	}

	// 3. API probing with the identifier guessed from the domain.
	if guess := identifierGuess(company.Domain); guess != "" {
		for _, atsType := range []string{model.ATSGreenhouse, model.ATSLever, model.ATSAshby} {
			if det := d.probeAPI(ctx, atsType, guess); det != nil {
				d.logger.Debug("ats detected from api probe",
					zap.String("company", company.Name),
					zap.String("ats_type", det.ATSType),
				)
				return det, nil
			}
		}
	}

	// 4. Nothing matched: a custom page, keeping whatever careers URL we hold.
	careersURL := company.CareersURL
	if careersURL == "" && company.Domain != "" {
		careersURL = "https://" + company.Domain + "/careers"
	}
	return &Detection{ATSType: model.ATSCustom, CareersURL: careersURL}, nil
}

// probePages lists the URLs worth probing for embedded board links.
func (d *Detector) probePages(company *model.Company) []string {
	var pages []string
	if company.CareersURL != "" {
		pages = append(pages, company.CareersURL)
	}
	if company.Domain != "" {
		pages = append(pages,
			"https://"+company.Domain+"/careers",
			"https://"+company.Domain+"/jobs",
		)
	}
	if company.WebsiteURL != "" && company.CareersURL == "" {
		pages = append(pages, company.WebsiteURL)
	}
	return pages
}

// probeHTML visits the page and inspects iframes, scripts, and links for
// known board hosts.
func (d *Detector) probeHTML(ctx context.Context, page string) *Detection {
	if ctx.Err() != nil {
		return nil
	}

	var found *Detection

	c := colly.NewCollector(
		colly.UserAgent(d.userAgent),
		colly.MaxDepth(1),
	)
	c.SetRequestTimeout(15 * time.Second)

	c.OnHTML("a[href], iframe[src], script[src]", func(e *colly.HTMLElement) {
		if found != nil {
			return
		}
		for _, attr := range []string{"href", "src"} {
			if det := matchHost(e.Attr(attr)); det != nil {
				found = det
				return
			}
		}
	})

	if err := c.Visit(page); err != nil {
		d.logger.Debug("html probe failed", zap.String("page", page), zap.Error(err))
		return nil
	}
	c.Wait()

	return found
}

// probeAPI confirms a vendor by fetching its JSON endpoint and checking the
// response parses into the expected shape.
func (d *Detector) probeAPI(ctx context.Context, atsType, identifier string) *Detection {
	buildURL, ok := apiProbes[atsType]
	if !ok {
		return nil
	}

	res, err := d.fetcher.Fetch(ctx, buildURL(identifier), fetch.Options{ATSType: atsType, APIEndpoint: true})
	if err != nil {
		return nil
	}

	if !parseableBoard(atsType, res.Body) {
		return nil
	}

	return &Detection{
		ATSType:       atsType,
		ATSIdentifier: identifier,
		CareersURL:    boardURL(atsType, identifier),
	}
}

// parseableBoard checks a 200 response actually carries a board payload.
func parseableBoard(atsType, body string) bool {
	switch atsType {
	case model.ATSLever:
		var postings []map[string]any
		return json.Unmarshal([]byte(body), &postings) == nil
	default:
		var board struct {
			Jobs []map[string]any `json:"jobs"`
		}
		return json.Unmarshal([]byte(body), &board) == nil && board.Jobs != nil
	}
}

func boardURL(atsType, identifier string) string {
	switch atsType {
	case model.ATSGreenhouse:
		return "https://boards.greenhouse.io/" + identifier
	case model.ATSLever:
		return "https://jobs.lever.co/" + identifier
	case model.ATSAshby:
		return "https://jobs.ashbyhq.com/" + identifier
	}
	return ""
}

// matchHost matches a URL against the known board host patterns.
func matchHost(rawURL string) *Detection {
	if rawURL == "" {
		return nil
	}
	for _, hp := range hostPatterns {
		if m := hp.re.FindStringSubmatch(rawURL); m != nil {
			det := &Detection{ATSType: hp.atsType, ATSIdentifier: m[1]}
			if strings.HasPrefix(rawURL, "http") {
				det.CareersURL = rawURL
			} else {
				det.CareersURL = boardURL(hp.atsType, m[1])
			}
			return det
		}
	}
	return nil
}

// identifierGuess derives the probe identifier from a domain: the registrable
// label ("stripe.com" -> "stripe").
func identifierGuess(domain string) string {
	domain = strings.ToLower(strings.TrimSpace(domain))
	domain = strings.TrimPrefix(domain, "www.")
	if domain == "" {
		return ""
	}
	if i := strings.IndexByte(domain, '.'); i > 0 {
		return domain[:i]
	}
	return domain
}
