package embed

import (
	"context"
	"strings"
	"testing"

	"go.uber.org/zap"

	"github.com/huntworks/hunt/internal/config"
	"github.com/huntworks/hunt/internal/model"
)

type stubClient struct {
	dim     int
	batches [][]string
}

func (s *stubClient) Embed(_ context.Context, texts []string) ([][]float32, error) {
	s.batches = append(s.batches, texts)
	out := make([][]float32, len(texts))
	for i := range texts {
		vec := make([]float32, s.dim)
		vec[0] = float32(len(texts[i]))
		out[i] = vec
	}
	return out, nil
}

func testEmbedder(client Client) *Embedder {
	return New(client, &config.EmbeddingConfig{
		Model:        "text-embedding-004",
		ModelVersion: "1",
		Dim:          4,
		BatchSize:    2,
	}, zap.NewNop())
}

func TestEmbedTextsBatches(t *testing.T) {
	t.Parallel()

	client := &stubClient{dim: 4}
	e := testEmbedder(client)

	vectors, err := e.EmbedTexts(context.Background(), []string{"a", "bb", "ccc", "dddd", "eeeee"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(vectors) != 5 {
		t.Fatalf("expected 5 vectors, got %d", len(vectors))
	}
	if len(client.batches) != 3 {
		t.Fatalf("batch size 2 over 5 inputs should make 3 calls, got %d", len(client.batches))
	}
	if got := vectors[4].Slice()[0]; got != 5 {
		t.Fatalf("vector order lost: %v", got)
	}
}

func TestEmbedTextsRejectsWrongDimension(t *testing.T) {
	t.Parallel()

	e := testEmbedder(&stubClient{dim: 3})
	if _, err := e.EmbedTexts(context.Background(), []string{"a"}); err == nil {
		t.Fatal("expected dimension mismatch error")
	}
}

func TestEmbedTextsStability(t *testing.T) {
	t.Parallel()

	e := testEmbedder(&stubClient{dim: 4})

	first, err := e.EmbedText(context.Background(), "stable input")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	second, err := e.EmbedText(context.Background(), "stable input")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	a, b := first.Slice(), second.Slice()
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("embedding components differ at %d: %v vs %v", i, a[i], b[i])
		}
	}
}

func TestJobText(t *testing.T) {
	t.Parallel()

	job := &model.Job{
		Title:       "Senior Backend Engineer",
		Locations:   []string{"London, UK"},
		Skills:      []string{"golang", "postgresql"},
		Description: "Build services.",
	}

	text := JobText(job)
	for _, part := range []string{"Senior Backend Engineer", "London, UK", "golang", "Build services."} {
		if !contains(text, part) {
			t.Fatalf("job text missing %q: %q", part, text)
		}
	}
}

func TestJobTextTruncatesDescription(t *testing.T) {
	t.Parallel()

	long := make([]byte, maxDescriptionExcerpt*2)
	for i := range long {
		long[i] = 'x'
	}
	job := &model.Job{Title: "SE", Description: string(long)}

	if got := len(JobText(job)); got > maxDescriptionExcerpt+100 {
		t.Fatalf("description not truncated, text length %d", got)
	}
}

func TestCandidateText(t *testing.T) {
	t.Parallel()

	c := &model.CandidateProfile{
		RoleFamilies: []string{"software_engineering"},
		Seniority:    "senior",
		Skills:       []string{"golang"},
		ProfileText:  "Backend engineer who likes queues.",
	}

	text := CandidateText(c)
	for _, part := range []string{"software_engineering", "senior", "golang", "queues"} {
		if !contains(text, part) {
			t.Fatalf("candidate text missing %q: %q", part, text)
		}
	}
}

func contains(haystack, needle string) bool {
	return strings.Contains(haystack, needle)
}
