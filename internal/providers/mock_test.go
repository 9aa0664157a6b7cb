package providers

import (
	"context"
	"encoding/json"
	"testing"
)

func TestMockEmbedDeterministic(t *testing.T) {
	m := NewMockProvider(64)
	req := EmbedRequest{Operation: "segment_embed", Inputs: []string{"hello", "world"}, Dimension: 64}
	a, _, err := m.Embed(context.Background(), req)
	if err != nil {
		t.Fatalf("embed failed: %v", err)
	}
	b, _, err := m.Embed(context.Background(), req)
	if err != nil {
		t.Fatalf("embed failed: %v", err)
	}
	if len(a) != 2 || len(a[0]) != 64 {
		t.Fatalf("unexpected shape: %d x %d", len(a), len(a[0]))
	}
	for i := range a[0] {
		if a[0][i] != b[0][i] {
			t.Fatal("mock embedding is not deterministic")
		}
	}
	if a[0][0] == a[1][0] && a[0][1] == a[1][1] {
		t.Fatal("different inputs produced identical vectors")
	}
}

func TestMockGeneratePerOperation(t *testing.T) {
	m := NewMockProvider(0)
	out, _, err := m.Generate(context.Background(), GenerateRequest{Operation: "segment_analysis", Prompt: "x"})
	if err != nil {
		t.Fatalf("generate failed: %v", err)
	}
	var analysis map[string]any
	if err := json.Unmarshal([]byte(out.Text), &analysis); err != nil {
		t.Fatalf("segment_analysis output is not JSON: %v", err)
	}
	if _, ok := analysis["characters_mentioned"]; !ok {
		t.Fatal("analysis JSON missing characters_mentioned")
	}

	out, _, err = m.Generate(context.Background(), GenerateRequest{Operation: "character_profile", Prompt: "x"})
	if err != nil {
		t.Fatalf("generate failed: %v", err)
	}
	var profile map[string]any
	if err := json.Unmarshal([]byte(out.Text), &profile); err != nil {
		t.Fatalf("character_profile output is not JSON: %v", err)
	}

	out, _, err = m.Generate(context.Background(), GenerateRequest{Operation: "persona_reply", Prompt: "x"})
	if err != nil {
		t.Fatalf("generate failed: %v", err)
	}
	if out.Text == "" {
		t.Fatal("persona_reply returned empty text")
	}
}
