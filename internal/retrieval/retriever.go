// Package retrieval assembles the story context for a chat turn. The
// query is embedded, similar segments are found, then the mode decides
// how much surrounding structure is pulled in.
package retrieval

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/log"

	"bookgraph/internal/models"
	"bookgraph/internal/providers"
	"bookgraph/internal/vector"
)

// Mode selects the context assembly strategy.
type Mode string

const (
	// ModeBasic returns the matching segment texts as-is.
	ModeBasic Mode = "basic"
	// ModeAdvanced widens each hit to its reading-order window and
	// falls back to relationship context when windows are unavailable.
	ModeAdvanced Mode = "advanced"
	// ModeChain prefers relationship-annotated context, then windows,
	// then plain hits.
	ModeChain Mode = "chain"
)

// ParseMode normalizes a request mode, defaulting to basic.
func ParseMode(s string) Mode {
	switch Mode(strings.ToLower(strings.TrimSpace(s))) {
	case ModeAdvanced:
		return ModeAdvanced
	case ModeChain:
		return ModeChain
	default:
		return ModeBasic
	}
}

type Searcher interface {
	SearchSegments(ctx context.Context, queryVec []float32, topK int, filters vector.SearchFilters) ([]models.SearchHit, error)
}

// GraphStore supplies the structural context around hits.
type GraphStore interface {
	Window(ctx context.Context, segmentID string) (string, error)
	MentionedCharacters(ctx context.Context, segmentIDs []string) ([]string, error)
}

type Retriever struct {
	embedder providers.EmbeddingProvider
	searcher Searcher
	graph    GraphStore
	topK     int
	embedDim int
}

func NewRetriever(embedder providers.EmbeddingProvider, searcher Searcher, graph GraphStore, topK, embedDim int) *Retriever {
	if topK <= 0 {
		topK = 3
	}
	return &Retriever{embedder: embedder, searcher: searcher, graph: graph, topK: topK, embedDim: embedDim}
}

// Retrieve builds the context block for a chat turn. Retrieval never
// blocks a reply: embedding or search failures return an empty block.
func (r *Retriever) Retrieve(ctx context.Context, character, message string, mode Mode) string {
	vecs, info, err := r.embedder.Embed(ctx, providers.EmbedRequest{
		Operation: "query_embed",
		Inputs:    []string{message},
		InputType: providers.InputTypeQuery,
		Dimension: r.embedDim,
	})
	if err != nil || len(vecs) == 0 {
		log.Warn("[Retrieve] query embedding failed", "provider", info.Name, "err", err)
		return ""
	}

	hits := r.search(ctx, vecs[0], character)
	if len(hits) == 0 {
		return ""
	}

	switch mode {
	case ModeAdvanced:
		if block := r.windowed(ctx, hits); block != "" {
			return block
		}
		return r.relational(ctx, hits)
	case ModeChain:
		if block := r.relational(ctx, hits); block != "" {
			return block
		}
		if block := r.windowed(ctx, hits); block != "" {
			return block
		}
		return basicBlock(hits)
	default:
		return basicBlock(hits)
	}
}

// search is scoped to segments that mention the character. A character
// with no embedded mentions gets no hits; the reply then runs on its
// no-context fallback instead of passages about someone else.
func (r *Retriever) search(ctx context.Context, queryVec []float32, character string) []models.SearchHit {
	filters := vector.SearchFilters{}
	if character != "" {
		filters.Characters = []string{character}
	}
	hits, err := r.searcher.SearchSegments(ctx, queryVec, r.topK, filters)
	if err != nil {
		log.Warn("[Retrieve] search failed", "character", character, "err", err)
		return nil
	}
	return hits
}

func basicBlock(hits []models.SearchHit) string {
	parts := make([]string, 0, len(hits))
	for _, h := range hits {
		parts = append(parts, h.Text)
	}
	return strings.Join(parts, "\n\n")
}

func (r *Retriever) windowed(ctx context.Context, hits []models.SearchHit) string {
	parts := make([]string, 0, len(hits))
	for _, h := range hits {
		w, err := r.graph.Window(ctx, h.SegmentID)
		if err != nil {
			log.Debug("[Retrieve] window lookup failed", "segment", h.SegmentID, "err", err)
			continue
		}
		if w != "" {
			parts = append(parts, w)
		}
	}
	return strings.Join(parts, "\n\n")
}

func (r *Retriever) relational(ctx context.Context, hits []models.SearchHit) string {
	parts := make([]string, 0, len(hits))
	for _, h := range hits {
		names, err := r.graph.MentionedCharacters(ctx, []string{h.SegmentID})
		if err != nil {
			log.Debug("[Retrieve] mention lookup failed", "segment", h.SegmentID, "err", err)
			continue
		}
		header := fmt.Sprintf("Book: %s | Characters: %s", h.BookTitle, strings.Join(names, ", "))
		parts = append(parts, header+"\n\n"+h.Text)
	}
	return strings.Join(parts, "\n\n")
}
