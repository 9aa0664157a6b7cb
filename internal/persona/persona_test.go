package persona

import (
	"context"
	"errors"
	"strings"
	"testing"

	"bookgraph/internal/models"
	"bookgraph/internal/providers"
)

type fakeLLM struct {
	text string
	err  error
	last providers.GenerateRequest
}

func (f *fakeLLM) Generate(ctx context.Context, req providers.GenerateRequest) (providers.GenerateResponse, providers.ProviderInfo, error) {
	f.last = req
	if f.err != nil {
		return providers.GenerateResponse{}, providers.ProviderInfo{Name: "fake"}, f.err
	}
	return providers.GenerateResponse{Text: f.text}, providers.ProviderInfo{Name: "fake"}, nil
}

type fakeSegments struct {
	segs []models.Segment
	err  error
	got  struct {
		character string
		limit     int
	}
}

func (f *fakeSegments) SegmentsMentioning(ctx context.Context, character string, limit int) ([]models.Segment, error) {
	f.got.character = character
	f.got.limit = limit
	return f.segs, f.err
}

func TestProfileUsesLimitedMentionSegments(t *testing.T) {
	llm := &fakeLLM{text: `{"personality":"bold","speech_pattern":"clipped","key_phrases":["brilliant"],"relationships":"close to Ron","role_in_story":"protagonist","character_arc":"matures","dialogue_style":"direct","emotional_range":"wide","background":"orphan"}`}
	src := &fakeSegments{segs: []models.Segment{{Text: "a"}, {Text: "b"}}}
	p := NewProfiler(llm, src, 5)

	got, err := p.Profile(context.Background(), "Book", "Harry")
	if err != nil {
		t.Fatalf("profile failed: %v", err)
	}
	if src.got.character != "Harry" || src.got.limit != 5 {
		t.Fatalf("unexpected segment query: %+v", src.got)
	}
	if got.Name != "Harry" || got.Personality != "bold" || len(got.KeyPhrases) != 1 {
		t.Fatalf("unexpected profile: %+v", got)
	}
	if llm.last.Operation != "character_profile" || llm.last.Temperature != 0.4 || llm.last.MaxTokens != 800 {
		t.Fatalf("unexpected oracle tuning: %+v", llm.last)
	}
}

func TestProfileNoMentionsYieldsEmptyProfile(t *testing.T) {
	llm := &fakeLLM{text: "{}"}
	p := NewProfiler(llm, &fakeSegments{}, 5)
	got, err := p.Profile(context.Background(), "Book", "Nobody")
	if err != nil {
		t.Fatalf("profile failed: %v", err)
	}
	if !got.Empty() || got.Name != "Nobody" {
		t.Fatalf("expected named empty profile, got %+v", got)
	}
	if llm.last.Operation != "" {
		t.Fatal("oracle should not be called without mention segments")
	}
}

func TestProfileOracleFailureYieldsEmptyProfile(t *testing.T) {
	p := NewProfiler(&fakeLLM{err: errors.New("quota")}, &fakeSegments{segs: []models.Segment{{Text: "x"}}}, 5)
	got, err := p.Profile(context.Background(), "Book", "Harry")
	if err != nil {
		t.Fatalf("oracle failure should not error: %v", err)
	}
	if !got.Empty() {
		t.Fatalf("expected empty profile, got %+v", got)
	}
}

func TestRespondEmptyContextStillAnswers(t *testing.T) {
	llm := &fakeLLM{text: "I remember it well."}
	r := NewResponder(llm)
	out, err := r.Respond(context.Background(), models.CharacterProfile{Name: "Harry"}, "", "What happened?")
	if err != nil {
		t.Fatalf("respond failed: %v", err)
	}
	if out != "I remember it well." {
		t.Fatalf("unexpected reply: %q", out)
	}
	if !strings.Contains(llm.last.Prompt, "No specific context available.") {
		t.Fatalf("empty context placeholder missing from prompt: %q", llm.last.Prompt)
	}
	if !strings.Contains(llm.last.Preamble, "You are Harry") {
		t.Fatalf("preamble missing persona: %q", llm.last.Preamble)
	}
}

func TestRespondFailureReturnsApologyAndError(t *testing.T) {
	r := NewResponder(&fakeLLM{err: errors.New("rate limited")})
	out, err := r.Respond(context.Background(), models.CharacterProfile{Name: "Harry"}, "ctx", "hi")
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(out, "at a loss for words") {
		t.Fatalf("expected in-character apology, got %q", out)
	}
}

func TestPersonaPreambleDefaults(t *testing.T) {
	pre := BuildPersonaPreamble(models.CharacterProfile{Name: "Stranger"})
	for _, want := range []string{"mysterious", "formal", "conversational", "varied"} {
		if !strings.Contains(pre, want) {
			t.Fatalf("preamble missing default %q: %s", want, pre)
		}
	}
}
