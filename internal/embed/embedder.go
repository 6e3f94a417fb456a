// Package embed produces fixed-dimension vectors for jobs and candidates.
package embed

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/pgvector/pgvector-go"
	"go.uber.org/zap"
	"google.golang.org/genai"

	"github.com/huntworks/hunt/internal/config"
	"github.com/huntworks/hunt/internal/model"
)

// Client turns a batch of texts into vectors.
type Client interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}

// GeminiClient embeds through the Gemini embedding API with a fixed output
// dimensionality.
type GeminiClient struct {
	client    *genai.Client
	modelName string
	dim       int32
}

func NewGeminiClient(ctx context.Context, apiKey, modelName string, dim int) (*GeminiClient, error) {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return nil, errors.New("gemini api key is required")
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}

	return &GeminiClient{client: client, modelName: modelName, dim: int32(dim)}, nil
}

func (g *GeminiClient) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	contents := make([]*genai.Content, 0, len(texts))
	for _, t := range texts {
		contents = append(contents, genai.NewContentFromText(t, genai.RoleUser))
	}

	dim := g.dim
	resp, err := g.client.Models.EmbedContent(ctx, g.modelName, contents, &genai.EmbedContentConfig{
		TaskType:             "RETRIEVAL_DOCUMENT",
		OutputDimensionality: &dim,
	})
	if err != nil {
		return nil, fmt.Errorf("embed content: %w", err)
	}

	if len(resp.Embeddings) != len(texts) {
		return nil, fmt.Errorf("embedding count mismatch: sent %d, got %d", len(texts), len(resp.Embeddings))
	}

	vectors := make([][]float32, len(resp.Embeddings))
	for i, e := range resp.Embeddings {
		vectors[i] = e.Values
	}
	return vectors, nil
}

// Embedder batches inputs and is safe for concurrent callers: requests are
// serialized through a single mutex so the upstream batch limit holds.
type Embedder struct {
	client    Client
	dim       int
	batchSize int
	version   string
	logger    *zap.Logger

	mu sync.Mutex
}

func New(client Client, cfg *config.EmbeddingConfig, logger *zap.Logger) *Embedder {
	return &Embedder{
		client:    client,
		dim:       cfg.Dim,
		batchSize: cfg.BatchSize,
		version:   cfg.ModelVersion,
		logger:    logger,
	}
}

// ModelVersion is stamped next to stored vectors so bumps trigger regeneration.
func (e *Embedder) ModelVersion() string { return e.version }

// EmbedTexts embeds the inputs in configured-size batches.
func (e *Embedder) EmbedTexts(ctx context.Context, texts []string) ([]pgvector.Vector, error) {
	if e.client == nil {
		return nil, errors.New("embedding client is not configured")
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	vectors := make([]pgvector.Vector, 0, len(texts))
	for start := 0; start < len(texts); start += e.batchSize {
		end := start + e.batchSize
		if end > len(texts) {
			end = len(texts)
		}

		batch, err := e.client.Embed(ctx, texts[start:end])
		if err != nil {
			return nil, err
		}
		for _, values := range batch {
			if len(values) != e.dim {
				return nil, fmt.Errorf("embedding has %d dimensions, want %d", len(values), e.dim)
			}
			vectors = append(vectors, pgvector.NewVector(values))
		}
	}

	e.logger.Debug("embedded batch", zap.Int("inputs", len(texts)))
	return vectors, nil
}

// EmbedText embeds a single input.
func (e *Embedder) EmbedText(ctx context.Context, text string) (pgvector.Vector, error) {
	vectors, err := e.EmbedTexts(ctx, []string{text})
	if err != nil {
		return pgvector.Vector{}, err
	}
	return vectors[0], nil
}

const maxDescriptionExcerpt = 2000

// JobText builds the embedding input for a job: title, location, skills, and
// a truncated description.
func JobText(job *model.Job) string {
	parts := []string{job.Title}
	if len(job.Locations) > 0 {
		parts = append(parts, strings.Join(job.Locations, ", "))
	} else if job.LocationType != "" {
		parts = append(parts, job.LocationType)
	}
	if len(job.Skills) > 0 {
		parts = append(parts, strings.Join(job.Skills, " "))
	}
	if job.Description != "" {
		desc := job.Description
		if len(desc) > maxDescriptionExcerpt {
			desc = desc[:maxDescriptionExcerpt]
		}
		parts = append(parts, desc)
	}
	return strings.Join(parts, "\n")
}

// CandidateText builds the embedding input for a candidate profile.
func CandidateText(c *model.CandidateProfile) string {
	var parts []string
	if len(c.RoleFamilies) > 0 {
		parts = append(parts, strings.Join(c.RoleFamilies, " "))
	}
	if c.Seniority != "" {
		parts = append(parts, c.Seniority)
	}
	if len(c.Skills) > 0 {
		parts = append(parts, strings.Join(c.Skills, " "))
	}
	if c.ProfileText != "" {
		parts = append(parts, c.ProfileText)
	}
	return strings.Join(parts, "\n")
}
