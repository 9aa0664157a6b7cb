// Package persona builds character profiles from a book's segments and
// answers chat turns in a character's voice.
package persona

import (
	"context"
	"fmt"

	"github.com/charmbracelet/log"

	"bookgraph/internal/llmjson"
	"bookgraph/internal/models"
	"bookgraph/internal/providers"
)

const (
	profileTemperature = 0.4
	profileMaxTokens   = 800
)

// SegmentSource yields the segments where a character is mentioned,
// matched case-insensitively, in reading order.
type SegmentSource interface {
	SegmentsMentioning(ctx context.Context, character string, limit int) ([]models.Segment, error)
}

type Profiler struct {
	llm         providers.LLMProvider
	segments    SegmentSource
	maxSegments int
}

func NewProfiler(llm providers.LLMProvider, segments SegmentSource, maxSegments int) *Profiler {
	if maxSegments <= 0 {
		maxSegments = 5
	}
	return &Profiler{llm: llm, segments: segments, maxSegments: maxSegments}
}

// Profile builds a persona sheet for a character from its earliest
// mention segments. Oracle failures produce an empty profile, not an
// error, so one bad character does not stall indexing.
func (p *Profiler) Profile(ctx context.Context, bookTitle, name string) (models.CharacterProfile, error) {
	segs, err := p.segments.SegmentsMentioning(ctx, name, p.maxSegments)
	if err != nil {
		return models.CharacterProfile{}, fmt.Errorf("load mention segments for %s: %w", name, err)
	}
	profile := models.CharacterProfile{Name: name}
	if len(segs) == 0 {
		log.Debug("[Persona] no mention segments", "character", name)
		return profile, nil
	}
	excerpts := make([]string, 0, len(segs))
	for _, s := range segs {
		excerpts = append(excerpts, s.Text)
	}
	resp, info, err := p.llm.Generate(ctx, providers.GenerateRequest{
		Operation:   "character_profile",
		Prompt:      BuildProfilePrompt(name, bookTitle, excerpts),
		Temperature: profileTemperature,
		MaxTokens:   profileMaxTokens,
	})
	if err != nil {
		log.Warn("[Persona] profile call failed", "character", name, "provider", info.Name, "err", err)
		return profile, nil
	}
	m, err := llmjson.DecodeObject(resp.Text)
	if err != nil {
		log.Warn("[Persona] profile response not parseable", "character", name, "err", err)
		return profile, nil
	}
	profile.Personality = llmjson.String(m, "personality", "")
	profile.SpeechPattern = llmjson.String(m, "speech_pattern", "")
	profile.KeyPhrases = llmjson.StringList(m, "key_phrases")
	profile.Relationships = llmjson.String(m, "relationships", "")
	profile.RoleInStory = llmjson.String(m, "role_in_story", "")
	profile.CharacterArc = llmjson.String(m, "character_arc", "")
	profile.DialogueStyle = llmjson.String(m, "dialogue_style", "")
	profile.EmotionalRange = llmjson.String(m, "emotional_range", "")
	profile.Background = llmjson.String(m, "background", "")
	return profile, nil
}
