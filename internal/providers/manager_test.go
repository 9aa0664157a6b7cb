package providers

import (
	"testing"

	"bookgraph/internal/config"
)

func TestNewManagerDefaultsToMock(t *testing.T) {
	cfg := config.Config{LLMProviders: "mock", EmbedProviders: "mock", EmbedDim: 32}
	m, err := NewManager(cfg)
	if err != nil {
		t.Fatalf("manager failed: %v", err)
	}
	if m.LLMCount() != 1 || m.EmbedCount() != 1 {
		t.Fatalf("unexpected counts: %d llm, %d embed", m.LLMCount(), m.EmbedCount())
	}
	if m.FirstLLMProvider() == nil || m.FirstEmbedProvider() == nil {
		t.Fatal("nil primary provider")
	}
}

func TestNewManagerRejectsUnknownProvider(t *testing.T) {
	cfg := config.Config{LLMProviders: "nope", EmbedProviders: "mock", EmbedDim: 32}
	if _, err := NewManager(cfg); err == nil {
		t.Fatal("expected error for unknown provider")
	}
}

func TestPreferredOrderRanksRealProvidersFirst(t *testing.T) {
	cfg := config.Config{LLMProviders: "mock|cohere:primary", EmbedProviders: "mock", EmbedDim: 32}
	m, err := NewManager(cfg)
	if err != nil {
		t.Fatalf("manager failed: %v", err)
	}
	order := m.PreferredLLMOrder()
	if len(order) != 2 || order[0] != 1 || order[1] != 0 {
		t.Fatalf("unexpected order: %v", order)
	}
}
