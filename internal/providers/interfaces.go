package providers

import "context"

type ProviderInfo struct {
	Name  string `json:"name"`
	Model string `json:"model"`
	Key   string `json:"key"`
}

// GenerateRequest carries one oracle call. Operation names the pipeline
// step (segment_analysis, character_profile, character_dedupe,
// persona_reply) so providers can tune or mock per step.
type GenerateRequest struct {
	Operation   string  `json:"operation"`
	Prompt      string  `json:"prompt"`
	Preamble    string  `json:"preamble,omitempty"`
	Temperature float64 `json:"temperature,omitempty"`
	MaxTokens   int     `json:"max_tokens,omitempty"`
}

type GenerateResponse struct {
	Text string `json:"text"`
}

const (
	InputTypeDocument = "search_document"
	InputTypeQuery    = "search_query"
)

type EmbedRequest struct {
	Operation string   `json:"operation"`
	Inputs    []string `json:"inputs"`
	InputType string   `json:"input_type"`
	Dimension int      `json:"dimension"`
}

type LLMProvider interface {
	Generate(ctx context.Context, req GenerateRequest) (GenerateResponse, ProviderInfo, error)
}

type EmbeddingProvider interface {
	Embed(ctx context.Context, req EmbedRequest) ([][]float32, ProviderInfo, error)
}
