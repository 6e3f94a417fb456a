// Package notify sends match digest emails through the transactional email
// collaborator.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/huntworks/hunt/internal/config"
	"github.com/huntworks/hunt/internal/model"
	"github.com/huntworks/hunt/internal/store"
)

const (
	resendEndpoint   = "https://api.resend.com/emails"
	digestMinScore   = 0.6
	digestMaxMatches = 5
)

// Notifier emails candidates a digest of their freshest matches.
type Notifier struct {
	st       *store.Store
	client   *http.Client
	apiKey   string
	from     string
	endpoint string
	logger   *zap.Logger
}

func New(st *store.Store, cfg *config.EmailConfig, logger *zap.Logger) *Notifier {
	return &Notifier{
		st:       st,
		client:   &http.Client{Timeout: 15 * time.Second},
		apiKey:   cfg.APIKey,
		from:     cfg.From,
		endpoint: resendEndpoint,
		logger:   logger,
	}
}

// Enabled reports whether an API key is configured.
func (n *Notifier) Enabled() bool { return n.apiKey != "" }

type emailRequest struct {
	From    string   `json:"from"`
	To      []string `json:"to"`
	Subject string   `json:"subject"`
	HTML    string   `json:"html"`
}

// DigestAll sends digests to every active candidate with fresh matches.
func (n *Notifier) DigestAll(ctx context.Context) (int, error) {
	if !n.Enabled() {
		n.logger.Debug("email digests disabled, no api key")
		return 0, nil
	}

	candidates, err := n.st.Candidates.Active(ctx)
	if err != nil {
		return 0, err
	}

	sent := 0
	for _, c := range candidates {
		if err := ctx.Err(); err != nil {
			return sent, err
		}
		if err := n.digestCandidate(ctx, c); err != nil {
			n.logger.Warn("digest failed",
				zap.String("candidate_id", c.ID.String()),
				zap.Error(err),
			)
			continue
		}
		sent++
	}
	return sent, nil
}

func (n *Notifier) digestCandidate(ctx context.Context, c *model.CandidateProfile) error {
	matches, err := n.st.Matches.FreshForDigest(ctx, c.ID, digestMinScore, digestMaxMatches)
	if err != nil {
		return err
	}
	if len(matches) == 0 {
		return nil
	}

	if err := n.send(ctx, c.Email, matches); err != nil {
		return err
	}

	matchIDs := make([]uuid.UUID, 0, len(matches))
	for _, m := range matches {
		matchIDs = append(matchIDs, m.ID)
	}
	if err := n.st.Matches.MarkShown(ctx, matchIDs); err != nil {
		return err
	}
	return n.st.Candidates.TouchNotified(ctx, c.ID)
}

func (n *Notifier) send(ctx context.Context, to string, matches []*model.Match) error {
	var body strings.Builder
	body.WriteString("<h2>New roles matched to you</h2><ul>")
	for _, m := range matches {
		if m.Job == nil {
			continue
		}
		fmt.Fprintf(&body, `<li><a href="%s">%s</a> at %s (score %.0f%%)</li>`,
			m.Job.SourceURL, m.Job.Title, m.Job.CompanyName, m.Score*100)
	}
	body.WriteString("</ul>")

	payload, err := json.Marshal(emailRequest{
		From:    n.from,
		To:      []string{to},
		Subject: fmt.Sprintf("%d new job matches", len(matches)),
		HTML:    body.String(),
	})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.endpoint, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+n.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("email provider returned %d", resp.StatusCode)
	}
	return nil
}
