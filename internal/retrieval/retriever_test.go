package retrieval

import (
	"context"
	"errors"
	"strings"
	"testing"

	"bookgraph/internal/models"
	"bookgraph/internal/providers"
	"bookgraph/internal/vector"
)

type fakeEmbedder struct {
	err  error
	last providers.EmbedRequest
}

func (f *fakeEmbedder) Embed(ctx context.Context, req providers.EmbedRequest) ([][]float32, providers.ProviderInfo, error) {
	f.last = req
	if f.err != nil {
		return nil, providers.ProviderInfo{Name: "fake"}, f.err
	}
	return [][]float32{{0.1, 0.2}}, providers.ProviderInfo{Name: "fake"}, nil
}

type fakeSearcher struct {
	filtered   []models.SearchHit
	unfiltered []models.SearchHit
	err        error
	lastTopK   int
}

func (f *fakeSearcher) SearchSegments(ctx context.Context, queryVec []float32, topK int, filters vector.SearchFilters) ([]models.SearchHit, error) {
	f.lastTopK = topK
	if f.err != nil {
		return nil, f.err
	}
	if len(filters.Characters) > 0 {
		return f.filtered, nil
	}
	return f.unfiltered, nil
}

type fakeGraph struct {
	windows   map[string]string
	windowErr error
	names     []string
	namesErr  error
}

func (f *fakeGraph) Window(ctx context.Context, segmentID string) (string, error) {
	if f.windowErr != nil {
		return "", f.windowErr
	}
	return f.windows[segmentID], nil
}

func (f *fakeGraph) MentionedCharacters(ctx context.Context, segmentIDs []string) ([]string, error) {
	if f.namesErr != nil {
		return nil, f.namesErr
	}
	return f.names, nil
}

var hits = []models.SearchHit{
	{SegmentID: "s1", BookTitle: "Book", SeqIndex: 1, Text: "first passage", Score: 0.9},
	{SegmentID: "s2", BookTitle: "Book", SeqIndex: 7, Text: "second passage", Score: 0.8},
}

func TestRetrieveBasicJoinsHits(t *testing.T) {
	r := NewRetriever(&fakeEmbedder{}, &fakeSearcher{filtered: hits}, &fakeGraph{}, 3, 2)
	got := r.Retrieve(context.Background(), "Harry", "what happened?", ModeBasic)
	if got != "first passage\n\nsecond passage" {
		t.Fatalf("unexpected block: %q", got)
	}
}

func TestRetrieveEmbedsAsQuery(t *testing.T) {
	emb := &fakeEmbedder{}
	r := NewRetriever(emb, &fakeSearcher{filtered: hits}, &fakeGraph{}, 3, 2)
	r.Retrieve(context.Background(), "Harry", "question", ModeBasic)
	if emb.last.InputType != providers.InputTypeQuery {
		t.Fatalf("expected query input type, got %q", emb.last.InputType)
	}
}

func TestRetrieveEmbedFailureYieldsEmptyBlock(t *testing.T) {
	r := NewRetriever(&fakeEmbedder{err: errors.New("boom")}, &fakeSearcher{filtered: hits}, &fakeGraph{}, 3, 2)
	if got := r.Retrieve(context.Background(), "Harry", "q", ModeBasic); got != "" {
		t.Fatalf("expected empty block, got %q", got)
	}
}

func TestRetrieveStaysScopedToCharacter(t *testing.T) {
	s := &fakeSearcher{filtered: nil, unfiltered: []models.SearchHit{
		{SegmentID: "s9", BookTitle: "Other", SeqIndex: 0, Text: "unrelated passage", Score: 0.9},
	}}
	r := NewRetriever(&fakeEmbedder{}, s, &fakeGraph{}, 3, 2)
	got := r.Retrieve(context.Background(), "Dobby", "q", ModeBasic)
	if got != "" {
		t.Fatalf("character without mentions must yield empty context, got %q", got)
	}
}

func TestRetrieveAdvancedUsesWindows(t *testing.T) {
	g := &fakeGraph{windows: map[string]string{"s1": "prev \n first passage \n next", "s2": "second window"}}
	r := NewRetriever(&fakeEmbedder{}, &fakeSearcher{filtered: hits}, g, 3, 2)
	got := r.Retrieve(context.Background(), "Harry", "q", ModeAdvanced)
	if got != "prev \n first passage \n next\n\nsecond window" {
		t.Fatalf("unexpected block: %q", got)
	}
}

func TestRetrieveAdvancedFallsBackToRelationships(t *testing.T) {
	g := &fakeGraph{windowErr: errors.New("down"), names: []string{"Harry", "Ron"}}
	r := NewRetriever(&fakeEmbedder{}, &fakeSearcher{filtered: hits}, g, 3, 2)
	got := r.Retrieve(context.Background(), "Harry", "q", ModeAdvanced)
	if !strings.Contains(got, "Book: Book | Characters: Harry, Ron") {
		t.Fatalf("expected relationship header, got %q", got)
	}
	if !strings.Contains(got, "first passage") {
		t.Fatalf("expected hit text, got %q", got)
	}
}

func TestRetrieveChainFallsBackToBasic(t *testing.T) {
	g := &fakeGraph{windowErr: errors.New("down"), namesErr: errors.New("down")}
	r := NewRetriever(&fakeEmbedder{}, &fakeSearcher{filtered: hits}, g, 3, 2)
	got := r.Retrieve(context.Background(), "Harry", "q", ModeChain)
	if got != "first passage\n\nsecond passage" {
		t.Fatalf("expected plain hit context, got %q", got)
	}
}

func TestParseMode(t *testing.T) {
	if ParseMode(" Advanced ") != ModeAdvanced {
		t.Fatal("advanced not parsed")
	}
	if ParseMode("chain") != ModeChain {
		t.Fatal("chain not parsed")
	}
	if ParseMode("whatever") != ModeBasic {
		t.Fatal("unknown should default to basic")
	}
}

func TestRetrieveTopKPassthrough(t *testing.T) {
	s := &fakeSearcher{filtered: hits}
	r := NewRetriever(&fakeEmbedder{}, s, &fakeGraph{}, 7, 2)
	r.Retrieve(context.Background(), "Harry", "q", ModeBasic)
	if s.lastTopK != 7 {
		t.Fatalf("expected topK 7, got %d", s.lastTopK)
	}
}
