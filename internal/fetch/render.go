package fetch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/huntworks/hunt/internal/config"
	"github.com/huntworks/hunt/internal/errs"
)

// Renderer fetches pages through the external headless-browser service.
// The service owns the page lifecycle: it acquires a page, navigates, waits
// for network idle (or the given selector), reads the DOM, and releases the
// page on every exit path. The core only sees one HTTP round trip.
type Renderer struct {
	client     *http.Client
	serviceURL string
	logger     *zap.Logger
}

func NewRenderer(cfg *config.CrawlConfig, logger *zap.Logger) *Renderer {
	return &Renderer{
		client: &http.Client{
			Timeout: time.Duration(cfg.RenderTimeoutSecs) * time.Second,
		},
		serviceURL: cfg.BrowserServiceURL,
		logger:     logger,
	}
}

type renderRequest struct {
	URL          string `json:"url"`
	WaitUntil    string `json:"wait_until"`
	WaitSelector string `json:"wait_selector,omitempty"`
}

type renderResponse struct {
	HTML       string `json:"html"`
	StatusCode int    `json:"status_code"`
}

// Render asks the browser service for the fully rendered DOM of the URL.
func (r *Renderer) Render(ctx context.Context, rawURL, waitSelector string) (*Result, error) {
	if r.serviceURL == "" {
		return nil, errs.New(errs.KindInvalidArgument, "browser service is not configured")
	}

	payload := renderRequest{URL: rawURL, WaitUntil: "networkidle"}
	if waitSelector != "" {
		payload.WaitUntil = "selector"
		payload.WaitSelector = waitSelector
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, errs.Wrap(errs.KindInternal, "marshal render request", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.serviceURL+"/content", bytes.NewReader(body))
	if err != nil {
		return nil, errs.Wrap(errs.KindInvalidArgument, rawURL, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := r.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, errs.Wrap(errs.KindCancelled, rawURL, ctx.Err())
		}
		return nil, errs.Wrap(errs.KindRenderTimeout, rawURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, errs.New(errs.KindRenderTimeout, fmt.Sprintf("browser service returned %d for %s", resp.StatusCode, rawURL))
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, errs.Wrap(errs.KindTransport, "read rendered body", err)
	}

	var rendered renderResponse
	if err := json.Unmarshal(data, &rendered); err != nil {
		return nil, errs.Wrap(errs.KindParseError, "decode render response", err)
	}

	status := rendered.StatusCode
	if status == 0 {
		status = http.StatusOK
	}
	if status == http.StatusNotFound {
		return nil, errs.New(errs.KindNotFound, rawURL)
	}

	r.logger.Debug("rendered page", zap.String("url", rawURL), zap.Int("html_size", len(rendered.HTML)))

	return &Result{
		Body:       rendered.HTML,
		StatusCode: status,
		Rendered:   true,
	}, nil
}
