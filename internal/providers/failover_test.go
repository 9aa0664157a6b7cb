package providers

import (
	"context"
	"errors"
	"testing"

	"bookgraph/internal/util"
)

type scriptedLLM struct {
	err   error
	text  string
	calls int
}

func (s *scriptedLLM) Generate(ctx context.Context, req GenerateRequest) (GenerateResponse, ProviderInfo, error) {
	s.calls++
	if s.err != nil {
		return GenerateResponse{}, ProviderInfo{Name: "scripted"}, s.err
	}
	return GenerateResponse{Text: s.text}, ProviderInfo{Name: "scripted"}, nil
}

type scriptedEmbed struct {
	err   error
	calls int
}

func (s *scriptedEmbed) Embed(ctx context.Context, req EmbedRequest) ([][]float32, ProviderInfo, error) {
	s.calls++
	if s.err != nil {
		return nil, ProviderInfo{Name: "scripted"}, s.err
	}
	return [][]float32{{0.1}}, ProviderInfo{Name: "scripted"}, nil
}

func managerWithLLMs(ps ...LLMProvider) *Manager {
	m := &Manager{}
	for i, p := range ps {
		m.llmProviders = append(m.llmProviders, NamedLLMProvider{Ref: ProviderRef{Raw: "cohere", Name: "cohere", KeyAlias: string(rune('a' + i))}, Provider: p})
	}
	return m
}

func TestFailoverLLMWalksPastTransientFailure(t *testing.T) {
	first := &scriptedLLM{err: errors.New("request timeout")}
	second := &scriptedLLM{text: "answer"}
	f := managerWithLLMs(first, second).FailoverLLM()

	resp, _, err := f.Generate(context.Background(), GenerateRequest{Operation: "persona_reply"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Text != "answer" {
		t.Fatalf("expected second provider's answer, got %q", resp.Text)
	}
	if first.calls != 1 || second.calls != 1 {
		t.Fatalf("expected one call each, got %d and %d", first.calls, second.calls)
	}
}

func TestFailoverLLMStopsOnPermanentFailure(t *testing.T) {
	first := &scriptedLLM{err: errors.New("invalid api key")}
	second := &scriptedLLM{text: "never reached"}
	f := managerWithLLMs(first, second).FailoverLLM()

	_, _, err := f.Generate(context.Background(), GenerateRequest{})
	if !errors.Is(err, util.ErrPermanent) {
		t.Fatalf("expected permanent sentinel, got %v", err)
	}
	if second.calls != 0 {
		t.Fatalf("permanent failure must not walk on, second called %d times", second.calls)
	}
}

func TestFailoverLLMWrapsQuotaSentinel(t *testing.T) {
	f := managerWithLLMs(&scriptedLLM{err: errors.New("insufficient_quota for key")}).FailoverLLM()
	_, _, err := f.Generate(context.Background(), GenerateRequest{})
	if !errors.Is(err, util.ErrQuotaExhausted) {
		t.Fatalf("expected quota sentinel, got %v", err)
	}
}

func TestFailoverEmbedWalksPastRateLimit(t *testing.T) {
	first := &scriptedEmbed{err: errors.New("429 too many requests")}
	second := &scriptedEmbed{}
	m := &Manager{embedProviders: []NamedEmbedProvider{
		{Ref: ProviderRef{Raw: "cohere", Name: "cohere"}, Provider: first},
		{Ref: ProviderRef{Raw: "ollama", Name: "ollama"}, Provider: second},
	}}

	vecs, _, err := m.FailoverEmbedder().Embed(context.Background(), EmbedRequest{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(vecs) != 1 || second.calls != 1 {
		t.Fatalf("expected the second embedder to answer, vecs=%d calls=%d", len(vecs), second.calls)
	}
}

func TestFailoverPrefersRealProvidersOverMock(t *testing.T) {
	mockP := &scriptedLLM{text: "mock answer"}
	real := &scriptedLLM{text: "real answer"}
	m := &Manager{llmProviders: []NamedLLMProvider{
		{Ref: ProviderRef{Raw: "mock", Name: "mock"}, Provider: mockP},
		{Ref: ProviderRef{Raw: "cohere", Name: "cohere"}, Provider: real},
	}}

	resp, _, err := m.FailoverLLM().Generate(context.Background(), GenerateRequest{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Text != "real answer" {
		t.Fatalf("expected the real provider first, got %q", resp.Text)
	}
	if mockP.calls != 0 {
		t.Fatalf("mock should only run after real providers fail, called %d times", mockP.calls)
	}
}
