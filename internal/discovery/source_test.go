package discovery

import (
	"context"
	"testing"

	"github.com/huntworks/hunt/internal/config"
)

func TestNormalizeDomain(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in, out string
	}{
		{"https://www.Acme.COM/careers?ref=x", "acme.com"},
		{"http://acme.io", "acme.io"},
		{"acme.dev:8080", "acme.dev"},
		{"  acme.test  ", "acme.test"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := NormalizeDomain(tt.in); got != tt.out {
			t.Fatalf("NormalizeDomain(%q) = %q, want %q", tt.in, got, tt.out)
		}
	}
}

func TestDedupeKey(t *testing.T) {
	t.Parallel()

	withDomain := &Candidate{Name: "Acme Inc", Domain: "https://www.acme.com"}
	if got := DedupeKey(withDomain); got != "acme.com" {
		t.Fatalf("domain dedupe key = %q, want acme.com", got)
	}

	nameOnly := &Candidate{Name: "  Acme  Labs! "}
	if got := DedupeKey(nameOnly); got != "name:acme-labs-" {
		t.Fatalf("name dedupe key = %q", got)
	}

	// Same company through two sources must collide.
	a := &Candidate{Name: "Acme", Domain: "acme.com", Source: "seed_list"}
	b := &Candidate{Name: "ACME Inc.", Domain: "www.acme.com", Source: "yc_directory"}
	if DedupeKey(a) != DedupeKey(b) {
		t.Fatal("same domain from different sources must share a dedupe key")
	}
}

func TestSeedListProduce(t *testing.T) {
	t.Parallel()

	source := NewSeedList([]config.SeedEntry{
		{Name: "Acme", Domain: "acme.com", CareersURL: "https://acme.com/careers"},
		{Name: "Globex", Domain: "globex.com"},
		{Name: "Initech", Domain: "initech.com"},
	})

	known := map[string]bool{"globex.com": true}
	candidates, err := source.Produce(context.Background(), 10, known)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(candidates) != 2 {
		t.Fatalf("expected 2 candidates (known domain skipped), got %d", len(candidates))
	}
	if candidates[0].Name != "Acme" || candidates[0].Source != "seed_list" {
		t.Fatalf("unexpected first candidate %+v", candidates[0])
	}

	limited, err := source.Produce(context.Background(), 1, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(limited) != 1 {
		t.Fatalf("limit not honored, got %d", len(limited))
	}
}

func TestRegistryEnabledFilter(t *testing.T) {
	t.Parallel()

	seeds := NewSeedList([]config.SeedEntry{{Name: "Acme", Domain: "acme.com"}})
	empty := NewSeedList(nil)
	registry := NewSourceRegistry(seeds, empty)

	enabled := registry.Enabled(nil)
	if len(enabled) != 1 {
		t.Fatalf("expected only the non-empty seed source, got %d", len(enabled))
	}

	filtered := registry.Enabled([]string{"yc_directory"})
	if len(filtered) != 0 {
		t.Fatalf("name filter should exclude seed_list, got %d", len(filtered))
	}
}
