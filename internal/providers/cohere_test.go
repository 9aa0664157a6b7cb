package providers

import "testing"

func TestNewCohereProviderDefaults(t *testing.T) {
	p := NewCohereProvider("")
	if p.model != "command-a-03-2025" {
		t.Fatalf("unexpected chat model: %s", p.model)
	}
	if p.embedModel != "embed-english-v3.0" {
		t.Fatalf("unexpected embed model: %s", p.embedModel)
	}
}

func TestResolveCohereKeyAlias(t *testing.T) {
	t.Setenv("BOOKGRAPH_COHERE_KEY_PRIMARY", "alias-key")
	t.Setenv("COHERE_API_KEY", "global-key")
	if got := resolveCohereKey("primary"); got != "alias-key" {
		t.Fatalf("expected alias key, got %q", got)
	}
	if got := resolveCohereKey(""); got != "global-key" {
		t.Fatalf("expected global key, got %q", got)
	}
}

func TestMatchDimension(t *testing.T) {
	v := []float32{1, 2, 3, 4}
	if got := matchDimension(v, 2); len(got) != 2 {
		t.Fatalf("expected truncation to 2, got %d", len(got))
	}
	if got := matchDimension(v, 6); len(got) != 6 || got[4] != 0 {
		t.Fatalf("expected zero-padding to 6, got %v", got)
	}
	if got := matchDimension(v, 0); len(got) != 4 {
		t.Fatalf("expected passthrough, got %d", len(got))
	}
}
