package providers

import (
	"context"
	"fmt"

	"github.com/charmbracelet/log"

	"bookgraph/internal/util"
)

// FailoverLLM returns an LLMProvider that walks the configured chain in
// preferred order. Quota, rate and transient failures move on to the
// next provider; permanent and context-length failures stop the walk.
func (m *Manager) FailoverLLM() LLMProvider {
	return &failoverLLM{m: m}
}

// FailoverEmbedder is the embedding counterpart of FailoverLLM.
func (m *Manager) FailoverEmbedder() EmbeddingProvider {
	return &failoverEmbed{m: m}
}

type failoverLLM struct {
	m *Manager
}

func (f *failoverLLM) Generate(ctx context.Context, req GenerateRequest) (GenerateResponse, ProviderInfo, error) {
	if f.m.LLMCount() == 1 {
		resp, info, err := f.m.FirstLLMProvider().Generate(ctx, req)
		return resp, info, wrapProviderError(err)
	}
	var lastInfo ProviderInfo
	var lastErr error
	for _, idx := range f.m.PreferredLLMOrder() {
		p, ref := f.m.LLMProviderByIndex(idx)
		resp, info, err := p.Generate(ctx, req)
		if err == nil {
			return resp, info, nil
		}
		lastInfo, lastErr = info, err
		class := ClassifyError(err)
		log.Warn("[Providers] generate failed", "provider", ref.Name, "op", req.Operation, "class", string(class), "err", err)
		if class == ErrorPermanent || class == ErrorContext {
			break
		}
	}
	return GenerateResponse{}, lastInfo, wrapProviderError(lastErr)
}

type failoverEmbed struct {
	m *Manager
}

func (f *failoverEmbed) Embed(ctx context.Context, req EmbedRequest) ([][]float32, ProviderInfo, error) {
	if f.m.EmbedCount() == 1 {
		vecs, info, err := f.m.FirstEmbedProvider().Embed(ctx, req)
		return vecs, info, wrapProviderError(err)
	}
	var lastInfo ProviderInfo
	var lastErr error
	for _, idx := range f.m.PreferredEmbedOrder() {
		p, ref := f.m.EmbedProviderByIndex(idx)
		vecs, info, err := p.Embed(ctx, req)
		if err == nil {
			return vecs, info, nil
		}
		lastInfo, lastErr = info, err
		class := ClassifyError(err)
		log.Warn("[Providers] embed failed", "provider", ref.Name, "op", req.Operation, "class", string(class), "err", err)
		if class == ErrorPermanent || class == ErrorContext {
			break
		}
	}
	return nil, lastInfo, wrapProviderError(lastErr)
}

// wrapProviderError tags an error with its classification sentinel so
// callers can branch with errors.Is instead of re-matching strings.
func wrapProviderError(err error) error {
	if err == nil {
		return nil
	}
	switch ClassifyError(err) {
	case ErrorQuota:
		return fmt.Errorf("%w: %v", util.ErrQuotaExhausted, err)
	case ErrorRate:
		return fmt.Errorf("%w: %v", util.ErrRateLimited, err)
	case ErrorContext:
		return fmt.Errorf("%w: %v", util.ErrContextTooLong, err)
	case ErrorTransient:
		return fmt.Errorf("%w: %v", util.ErrTransient, err)
	default:
		return fmt.Errorf("%w: %v", util.ErrPermanent, err)
	}
}
