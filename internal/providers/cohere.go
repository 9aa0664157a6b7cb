package providers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"
)

// CohereProvider is the default production oracle. Generation uses the
// chat API with a persona preamble; embeddings use embed-english-v3.0,
// which distinguishes document and query input types.
type CohereProvider struct {
	keyName    string
	apiKey     string
	model      string
	embedModel string
	client     *http.Client
}

func NewCohereProvider(keyName string) *CohereProvider {
	model := strings.TrimSpace(os.Getenv("BOOKGRAPH_COHERE_MODEL"))
	if model == "" {
		model = "command-a-03-2025"
	}
	embedModel := strings.TrimSpace(os.Getenv("BOOKGRAPH_COHERE_EMBED_MODEL"))
	if embedModel == "" {
		embedModel = "embed-english-v3.0"
	}
	return &CohereProvider{
		keyName:    keyName,
		apiKey:     resolveCohereKey(keyName),
		model:      model,
		embedModel: embedModel,
		client:     &http.Client{Timeout: 90 * time.Second},
	}
}

func (c *CohereProvider) Generate(ctx context.Context, req GenerateRequest) (GenerateResponse, ProviderInfo, error) {
	info := ProviderInfo{Name: "cohere", Model: c.model, Key: c.keyName}
	if c.apiKey == "" {
		return GenerateResponse{}, info, fmt.Errorf("cohere key missing for alias %q", c.keyName)
	}
	body := map[string]any{
		"model":   c.model,
		"message": req.Prompt,
	}
	if req.Preamble != "" {
		body["preamble"] = req.Preamble
	}
	if req.Temperature > 0 {
		body["temperature"] = req.Temperature
	}
	if req.MaxTokens > 0 {
		body["max_tokens"] = req.MaxTokens
	}
	payload, _ := json.Marshal(body)
	httpReq, _ := http.NewRequestWithContext(ctx, http.MethodPost, "https://api.cohere.com/v1/chat", bytes.NewReader(payload))
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	httpReq.Header.Set("Content-Type", "application/json")
	resp, err := c.client.Do(httpReq)
	if err != nil {
		return GenerateResponse{}, info, fmt.Errorf("cohere chat request failed: %w", err)
	}
	defer resp.Body.Close()
	raw, _ := io.ReadAll(resp.Body)
	if resp.StatusCode >= 400 {
		return GenerateResponse{}, info, fmt.Errorf("cohere chat error %d: %s", resp.StatusCode, string(raw))
	}
	var parsed struct {
		Text string `json:"text"`
	}
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return GenerateResponse{}, info, fmt.Errorf("decode cohere chat response: %w", err)
	}
	if strings.TrimSpace(parsed.Text) == "" {
		return GenerateResponse{}, info, fmt.Errorf("cohere returned empty text")
	}
	return GenerateResponse{Text: parsed.Text}, info, nil
}

func (c *CohereProvider) Embed(ctx context.Context, req EmbedRequest) ([][]float32, ProviderInfo, error) {
	info := ProviderInfo{Name: "cohere", Model: c.embedModel, Key: c.keyName}
	if c.apiKey == "" {
		return nil, info, fmt.Errorf("cohere key missing for alias %q", c.keyName)
	}
	if len(req.Inputs) == 0 {
		return nil, info, fmt.Errorf("no embedding inputs")
	}
	inputType := req.InputType
	if inputType == "" {
		inputType = InputTypeDocument
	}
	payload, _ := json.Marshal(map[string]any{
		"model":      c.embedModel,
		"texts":      req.Inputs,
		"input_type": inputType,
	})
	httpReq, _ := http.NewRequestWithContext(ctx, http.MethodPost, "https://api.cohere.com/v1/embed", bytes.NewReader(payload))
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	httpReq.Header.Set("Content-Type", "application/json")
	resp, err := c.client.Do(httpReq)
	if err != nil {
		return nil, info, fmt.Errorf("cohere embed request failed: %w", err)
	}
	defer resp.Body.Close()
	raw, _ := io.ReadAll(resp.Body)
	if resp.StatusCode >= 400 {
		return nil, info, fmt.Errorf("cohere embed error %d: %s", resp.StatusCode, string(raw))
	}
	var parsed struct {
		Embeddings [][]float32 `json:"embeddings"`
	}
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return nil, info, fmt.Errorf("decode cohere embed response: %w", err)
	}
	if len(parsed.Embeddings) != len(req.Inputs) {
		return nil, info, fmt.Errorf("cohere returned %d embeddings for %d inputs", len(parsed.Embeddings), len(req.Inputs))
	}
	out := make([][]float32, 0, len(parsed.Embeddings))
	for _, e := range parsed.Embeddings {
		out = append(out, matchDimension(e, req.Dimension))
	}
	return out, info, nil
}

func resolveCohereKey(alias string) string {
	if alias != "" {
		if v := os.Getenv("BOOKGRAPH_COHERE_KEY_" + strings.ToUpper(sanitizeEnvToken(alias))); v != "" {
			return v
		}
	}
	return os.Getenv("COHERE_API_KEY")
}
