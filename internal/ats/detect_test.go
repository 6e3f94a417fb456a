package ats

import (
	"testing"

	"github.com/huntworks/hunt/internal/model"
)

func TestMatchHost(t *testing.T) {
	t.Parallel()

	tests := []struct {
		url        string
		atsType    string
		identifier string
	}{
		{"https://boards.greenhouse.io/stripe", model.ATSGreenhouse, "stripe"},
		{"https://job-boards.greenhouse.io/rippling", model.ATSGreenhouse, "rippling"},
		{"https://jobs.lever.co/netflix?team=eng", model.ATSLever, "netflix"},
		{"https://jobs.ashbyhq.com/linear", model.ATSAshby, "linear"},
		{"https://acme.wd5.myworkdayjobs.com/External", model.ATSWorkday, "acme"},
	}

	for _, tt := range tests {
		t.Run(tt.url, func(t *testing.T) {
			det := matchHost(tt.url)
			if det == nil {
				t.Fatalf("matchHost(%q) = nil", tt.url)
			}
			if det.ATSType != tt.atsType {
				t.Fatalf("ats type = %q, want %q", det.ATSType, tt.atsType)
			}
			if det.ATSIdentifier != tt.identifier {
				t.Fatalf("identifier = %q, want %q", det.ATSIdentifier, tt.identifier)
			}
		})
	}

	if det := matchHost("https://acme.com/careers"); det != nil {
		t.Fatalf("plain careers page must not match, got %+v", det)
	}
	if det := matchHost(""); det != nil {
		t.Fatal("empty url must not match")
	}
}

func TestIdentifierGuess(t *testing.T) {
	t.Parallel()

	tests := []struct {
		domain string
		want   string
	}{
		{"stripe.com", "stripe"},
		{"www.Stripe.com", "stripe"},
		{"acme.co.uk", "acme"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := identifierGuess(tt.domain); got != tt.want {
			t.Fatalf("identifierGuess(%q) = %q, want %q", tt.domain, got, tt.want)
		}
	}
}

func TestParseableBoard(t *testing.T) {
	t.Parallel()

	if !parseableBoard(model.ATSGreenhouse, `{"jobs":[{"title":"SE"}]}`) {
		t.Fatal("greenhouse board payload should parse")
	}
	if parseableBoard(model.ATSGreenhouse, `{"error":"not found"}`) {
		t.Fatal("payload without jobs must not confirm greenhouse")
	}
	if !parseableBoard(model.ATSLever, `[{"text":"SE"}]`) {
		t.Fatal("lever postings payload should parse")
	}
	if parseableBoard(model.ATSLever, `{"jobs":[]}`) {
		t.Fatal("object payload must not confirm lever")
	}
}

func TestBoardURL(t *testing.T) {
	t.Parallel()

	if got := boardURL(model.ATSGreenhouse, "acme"); got != "https://boards.greenhouse.io/acme" {
		t.Fatalf("unexpected board url %q", got)
	}
	if got := boardURL("unknown", "acme"); got != "" {
		t.Fatalf("unknown ats should yield empty url, got %q", got)
	}
}
