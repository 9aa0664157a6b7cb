// Package extract runs the per-segment oracle analysis and normalizes
// whatever comes back into typed fields. Analysis never fails hard: a
// broken oracle yields neutral defaults so indexing keeps moving.
package extract

import (
	"context"

	"github.com/charmbracelet/log"

	"bookgraph/internal/llmjson"
	"bookgraph/internal/models"
	"bookgraph/internal/providers"
)

const (
	analysisTemperature = 0.3
	analysisMaxTokens   = 500
)

type Analyzer struct {
	llm providers.LLMProvider
}

func NewAnalyzer(llm providers.LLMProvider) *Analyzer {
	return &Analyzer{llm: llm}
}

// Analyze asks the oracle about one segment. Oracle or parse failures
// are logged and replaced with NeutralAnalysis.
func (a *Analyzer) Analyze(ctx context.Context, bookTitle, segmentID, text string) models.Analysis {
	resp, info, err := a.llm.Generate(ctx, providers.GenerateRequest{
		Operation:   "segment_analysis",
		Prompt:      BuildAnalysisPrompt(bookTitle, text),
		Temperature: analysisTemperature,
		MaxTokens:   analysisMaxTokens,
	})
	if err != nil {
		log.Warn("[Extract] analysis call failed", "segment", segmentID, "provider", info.Name, "kind", providers.ClassifyError(err), "err", err)
		return NeutralAnalysis()
	}
	return ParseAnalysis(resp.Text)
}

// ParseAnalysis decodes the oracle's JSON. Missing or malformed fields
// degrade individually rather than discarding the whole result.
func ParseAnalysis(raw string) models.Analysis {
	m, err := llmjson.DecodeObject(raw)
	if err != nil {
		return NeutralAnalysis()
	}
	return models.Analysis{
		CharactersMentioned: llmjson.StringList(m, "characters_mentioned"),
		Locations:           llmjson.StringList(m, "locations"),
		KeyEvents:           llmjson.StringList(m, "key_events"),
		MoodTone:            llmjson.String(m, "mood_tone", "neutral"),
		Relationships:       llmjson.StringList(m, "relationships"),
		Themes:              llmjson.StringList(m, "themes"),
		DialogueSpeakers:    llmjson.StringList(m, "dialogue_speakers"),
		NarrativeStyle:      llmjson.String(m, "narrative_style", "unknown"),
	}
}

// NeutralAnalysis is the typed zero value used when the oracle fails.
func NeutralAnalysis() models.Analysis {
	return models.Analysis{
		MoodTone:       "neutral",
		NarrativeStyle: "unknown",
	}
}
