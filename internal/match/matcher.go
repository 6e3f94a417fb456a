// Package match ranks the active catalog against candidate profiles with hard
// constraints and weighted soft scoring.
package match

import (
	"context"
	"fmt"
	"sort"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/huntworks/hunt/internal/config"
	"github.com/huntworks/hunt/internal/errs"
	"github.com/huntworks/hunt/internal/model"
	"github.com/huntworks/hunt/internal/store"
)

// No-match reasons surfaced verbatim by the API.
const (
	NoMatchEmptyCatalog       = "empty_catalog"
	NoMatchNoVectorCandidates = "no_vector_candidates"
	NoMatchAllFilteredHard    = "all_filtered_hard"
	NoMatchAllFilteredScore   = "all_filtered_score"
)

// Outcome is one matching run for one candidate.
type Outcome struct {
	Matches        []*model.Match
	NoMatchReason  string
	RetrievedCount int
	HardFiltered   int
	ScoreFiltered  int
}

// Options control one matching run.
type Options struct {
	// SoftInclusive retains hard-filter failures with hard_match=false.
	SoftInclusive bool
	// Limit caps the persisted result set; zero means no cap.
	Limit int
}

// classifyNoMatch explains an empty result set after retrieval produced
// candidates. Hard filtering is only the story when nothing got far enough to
// fail on score; once any job was score-filtered, the threshold is what stood
// between the candidate and a match.
func classifyNoMatch(hardFiltered, scoreFiltered int) string {
	if scoreFiltered == 0 {
		return NoMatchAllFilteredHard
	}
	return NoMatchAllFilteredScore
}

// Matcher runs candidate-to-catalog matching.
type Matcher struct {
	st     *store.Store
	cfg    *config.MatchConfig
	logger *zap.Logger
}

func New(st *store.Store, cfg *config.MatchConfig, logger *zap.Logger) *Matcher {
	return &Matcher{st: st, cfg: cfg, logger: logger}
}

// MatchCandidate generates, filters, scores, and persists matches for one
// candidate.
func (m *Matcher) MatchCandidate(ctx context.Context, candidateID uuid.UUID, opts Options) (*Outcome, error) {
	candidate, err := m.st.Candidates.Get(ctx, candidateID)
	if err != nil {
		return nil, err
	}

	outcome := &Outcome{}

	total, err := m.st.Jobs.CountActive(ctx)
	if err != nil {
		return nil, fmt.Errorf("count catalog: %w", err)
	}
	if total == 0 {
		outcome.NoMatchReason = NoMatchEmptyCatalog
		return outcome, nil
	}

	if candidate.Embedding == nil {
		outcome.NoMatchReason = NoMatchNoVectorCandidates
		return outcome, nil
	}

	// Candidate set generation: top-K cosine neighbours above the floor.
	jobs, sims, err := m.st.Jobs.SimilarActive(ctx, *candidate.Embedding, m.cfg.MinSimilarity, m.cfg.TopK)
	if err != nil {
		return nil, err
	}
	outcome.RetrievedCount = len(jobs)
	if len(jobs) == 0 {
		outcome.NoMatchReason = NoMatchNoVectorCandidates
		return outcome, nil
	}

	var matches []*model.Match
	for i, job := range jobs {
		if err := ctx.Err(); err != nil {
			return nil, errs.Wrap(errs.KindCancelled, "matching", err)
		}

		hard, _ := hardFilter(candidate, job)
		if !hard {
			outcome.HardFiltered++
			if !opts.SoftInclusive {
				continue
			}
		}

		score, reasons := scoreJob(candidate, job, sims[i])
		if m.cfg.ScoreThreshold > 0 && score < m.cfg.ScoreThreshold {
			outcome.ScoreFiltered++
			continue
		}

		matches = append(matches, &model.Match{
			CandidateID:  candidate.ID,
			JobID:        job.ID,
			Score:        score,
			HardMatch:    hard,
			MatchReasons: reasons,
			Job:          job,
		})
	}

	if len(matches) == 0 {
		outcome.NoMatchReason = classifyNoMatch(outcome.HardFiltered, outcome.ScoreFiltered)
		return outcome, nil
	}

	sort.Slice(matches, func(i, j int) bool { return matches[i].Score > matches[j].Score })
	if opts.Limit > 0 && len(matches) > opts.Limit {
		matches = matches[:opts.Limit]
	}

	for _, match := range matches {
		if err := m.st.Matches.Upsert(ctx, match); err != nil {
			return nil, err
		}
	}
	if err := m.st.Candidates.TouchMatched(ctx, candidate.ID); err != nil {
		return nil, err
	}

	m.logger.Info("matching complete",
		zap.String("candidate_id", candidate.ID.String()),
		zap.Int("retrieved", outcome.RetrievedCount),
		zap.Int("hard_filtered", outcome.HardFiltered),
		zap.Int("matches", len(matches)),
	)

	outcome.Matches = matches
	return outcome, nil
}

// MatchAll runs matching for every active candidate, continuing past
// per-candidate failures.
func (m *Matcher) MatchAll(ctx context.Context, opts Options) (int, error) {
	candidates, err := m.st.Candidates.Active(ctx)
	if err != nil {
		return 0, err
	}

	matched := 0
	for _, c := range candidates {
		if err := ctx.Err(); err != nil {
			return matched, errs.Wrap(errs.KindCancelled, "matching all", err)
		}
		if _, err := m.MatchCandidate(ctx, c.ID, opts); err != nil {
			m.logger.Error("matching failed for candidate",
				zap.String("candidate_id", c.ID.String()),
				zap.Error(err),
			)
			continue
		}
		matched++
	}
	return matched, nil
}
