package providers

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"fmt"
	"strings"
)

// MockProvider returns deterministic output for every pipeline
// operation so the full indexing flow runs without any API key.
type MockProvider struct {
	dim int
}

func NewMockProvider(dim int) *MockProvider {
	if dim <= 0 {
		dim = 1024
	}
	return &MockProvider{dim: dim}
}

func (m *MockProvider) Embed(ctx context.Context, req EmbedRequest) ([][]float32, ProviderInfo, error) {
	_ = ctx
	dim := req.Dimension
	if dim <= 0 {
		dim = m.dim
	}
	vectors := make([][]float32, 0, len(req.Inputs))
	for _, input := range req.Inputs {
		vectors = append(vectors, deterministicVector(input, dim))
	}
	return vectors, ProviderInfo{Name: "mock", Model: fmt.Sprintf("mock-embed-%d", dim), Key: "mock"}, nil
}

func (m *MockProvider) Generate(ctx context.Context, req GenerateRequest) (GenerateResponse, ProviderInfo, error) {
	_ = ctx
	text := "Mock response."
	switch {
	case strings.Contains(req.Operation, "segment_analysis"):
		text = `{"characters_mentioned":["Narrator"],"locations":[],"key_events":["A passage unfolds."],"mood_tone":"calm","relationships":[],"themes":["narrative"],"dialogue_speakers":[],"narrative_style":"third person"}`
	case strings.Contains(req.Operation, "character_profile"):
		text = `{"personality":"steady and observant","speech_pattern":"measured sentences","key_phrases":["as it happens"],"relationships":"keeps a small circle","role_in_story":"witness to events","character_arc":"grows more certain","dialogue_style":"plain","emotional_range":"reserved","background":"details emerge over time"}`
	case strings.Contains(req.Operation, "character_dedupe"):
		text = "{}"
	case strings.Contains(req.Operation, "persona_reply"):
		text = "As it happens, I remember that moment well."
	}
	return GenerateResponse{Text: text}, ProviderInfo{Name: "mock", Model: "mock-llm-v1", Key: "mock"}, nil
}

func deterministicVector(input string, dim int) []float32 {
	vec := make([]float32, dim)
	seed := []byte(input)
	if len(seed) == 0 {
		seed = []byte("empty")
	}
	for i := 0; i < dim; i++ {
		h := sha256.Sum256(append(seed, byte(i%251)))
		u := binary.BigEndian.Uint32(h[:4])
		v := float32(u%2000)/1000.0 - 1.0
		vec[i] = v
	}
	return normalize(vec)
}

func normalize(v []float32) []float32 {
	var sum float32
	for _, x := range v {
		sum += x * x
	}
	if sum == 0 {
		return v
	}
	inv := float32(1.0 / (float64(sum) + 1e-9))
	for i := range v {
		v[i] *= inv
	}
	return v
}
