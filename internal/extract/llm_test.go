package extract

import (
	"context"
	"errors"
	"testing"

	"go.uber.org/zap"

	"github.com/huntworks/hunt/internal/errs"
)

type stubGenerator struct {
	responses []string
	err       error
	calls     int
	prompts   []string
}

func (s *stubGenerator) GenerateJSON(_ context.Context, prompt string) (string, error) {
	s.calls++
	s.prompts = append(s.prompts, prompt)
	if s.err != nil {
		return "", s.err
	}
	i := s.calls - 1
	if i >= len(s.responses) {
		i = len(s.responses) - 1
	}
	return s.responses[i], nil
}

func TestLLMGenerateValid(t *testing.T) {
	t.Parallel()

	stub := &stubGenerator{responses: []string{
		`{"jobs":[{"title":"Software Engineer","location":"Remote","url_path":"/jobs/1"}]}`,
	}}
	l := NewLLMFallback(nil, stub, 1000, zap.NewNop())

	listing, err := l.generate(context.Background(), "page text")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(listing.Jobs) != 1 || listing.Jobs[0].Title != "Software Engineer" {
		t.Fatalf("unexpected listing %+v", listing)
	}
	if stub.prompts[0] == "page text" {
		t.Fatal("prompt should carry the extraction instructions")
	}
}

func TestLLMGenerateRejectsInvalidJSON(t *testing.T) {
	t.Parallel()

	stub := &stubGenerator{responses: []string{"not json at all"}}
	l := NewLLMFallback(nil, stub, 1000, zap.NewNop())

	_, err := l.generate(context.Background(), "page text")
	if !errs.Is(err, errs.KindSchemaViolation) {
		t.Fatalf("expected schema_violation, got %v", err)
	}
}

func TestLLMGenerateRejectsMissingTitle(t *testing.T) {
	t.Parallel()

	stub := &stubGenerator{responses: []string{`{"jobs":[{"title":"  ","url_path":"/jobs/1"}]}`}}
	l := NewLLMFallback(nil, stub, 1000, zap.NewNop())

	_, err := l.generate(context.Background(), "page text")
	if !errs.Is(err, errs.KindSchemaViolation) {
		t.Fatalf("expected schema_violation for empty title, got %v", err)
	}
}

func TestLLMGenerateErrorPropagates(t *testing.T) {
	t.Parallel()

	stub := &stubGenerator{err: errors.New("model unavailable")}
	l := NewLLMFallback(nil, stub, 1000, zap.NewNop())

	if _, err := l.generate(context.Background(), "page text"); err == nil {
		t.Fatal("expected generator error to propagate")
	}
}

func TestEnricherGreenhouseJobID(t *testing.T) {
	t.Parallel()

	tests := []struct {
		url    string
		wantID string
	}{
		{"https://boards.greenhouse.io/acme/jobs/4012345", "4012345"},
		{"https://acme.com/careers?gh_jid=998877", "998877"},
		{"https://acme.com/careers/555?gh_jid=555", "555"},
		{"https://acme.com/careers/role-name", ""},
	}

	for _, tt := range tests {
		var got string
		for _, re := range ghJobIDRes {
			if m := re.FindStringSubmatch(tt.url); m != nil {
				got = m[1]
				break
			}
		}
		if got != tt.wantID {
			t.Fatalf("job id for %q = %q, want %q", tt.url, got, tt.wantID)
		}
	}
}
