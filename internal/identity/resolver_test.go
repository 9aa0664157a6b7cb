package identity

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"bookgraph/internal/providers"
)

type batchLLM struct {
	responses []string
	errAt     int
	calls     int
	prompts   []string
}

func (b *batchLLM) Generate(ctx context.Context, req providers.GenerateRequest) (providers.GenerateResponse, providers.ProviderInfo, error) {
	b.calls++
	b.prompts = append(b.prompts, req.Prompt)
	if b.errAt > 0 && b.calls == b.errAt {
		return providers.GenerateResponse{}, providers.ProviderInfo{Name: "fake"}, errors.New("boom")
	}
	i := b.calls - 1
	if i >= len(b.responses) {
		return providers.GenerateResponse{Text: "{}"}, providers.ProviderInfo{Name: "fake"}, nil
	}
	return providers.GenerateResponse{Text: b.responses[i]}, providers.ProviderInfo{Name: "fake"}, nil
}

func TestFindDuplicatesBatches(t *testing.T) {
	llm := &batchLLM{responses: []string{"{}", "{}", "{}"}}
	r := NewResolver(llm, 10)
	names := make([]string, 25)
	for i := range names {
		names[i] = "Name"
	}
	r.FindDuplicates(context.Background(), names)
	if llm.calls != 3 {
		t.Fatalf("expected 3 batches for 25 names, got %d", llm.calls)
	}
}

func TestFindDuplicatesSkipsFailedBatch(t *testing.T) {
	llm := &batchLLM{
		responses: []string{`{"Tom Riddle": ["Tom Riddle", "Voldemort"]}`, "", `{"Albus Dumbledore": ["Dumbledore", "Albus"]}`},
		errAt:     2,
	}
	r := NewResolver(llm, 1)
	got := r.FindDuplicates(context.Background(), []string{"a", "b", "c"})
	if len(got) != 2 {
		t.Fatalf("expected groups from surviving batches, got %v", got)
	}
	if !reflect.DeepEqual(got["Tom Riddle"], []string{"Tom Riddle", "Voldemort"}) {
		t.Fatalf("unexpected group: %v", got["Tom Riddle"])
	}
}

func TestParseDuplicateGroupsDropsSingletons(t *testing.T) {
	got := ParseDuplicateGroups(`{"Harry Potter": ["Harry"], "Tom Riddle": ["Tom Riddle", "Voldemort", "You-Know-Who"]}`)
	if len(got) != 1 {
		t.Fatalf("expected singleton group dropped, got %v", got)
	}
	if len(got["Tom Riddle"]) != 3 {
		t.Fatalf("unexpected variants: %v", got["Tom Riddle"])
	}
}

func TestParseDuplicateGroupsGarbage(t *testing.T) {
	if got := ParseDuplicateGroups("nonsense"); got != nil {
		t.Fatalf("expected nil for garbage, got %v", got)
	}
	if got := ParseDuplicateGroups("{}"); len(got) != 0 {
		t.Fatalf("expected empty for empty object, got %v", got)
	}
}

func TestBuildMergePlanDeterministic(t *testing.T) {
	groups := map[string][]string{
		"Tom Riddle":       {"Voldemort", "You-Know-Who", "The Dark Lord"},
		"Albus Dumbledore": {"Dumbledore", "Albus"},
		"Solo":             {"Solo"},
	}
	plan := BuildMergePlan(groups)
	if len(plan) != 2 {
		t.Fatalf("expected 2 steps, got %d", len(plan))
	}
	if plan[0].Canonical != "Albus Dumbledore" || plan[0].Pivot != "Dumbledore" {
		t.Fatalf("unexpected first step: %+v", plan[0])
	}
	if plan[1].Pivot != "Voldemort" || !reflect.DeepEqual(plan[1].Aliases, []string{"You-Know-Who", "The Dark Lord"}) {
		t.Fatalf("unexpected second step: %+v", plan[1])
	}
}

type fakeStore struct {
	existing map[string]bool
	ops      []string
}

func (f *fakeStore) CharacterExists(ctx context.Context, name string) (bool, error) {
	return f.existing[name], nil
}

func (f *fakeStore) RepointMentions(ctx context.Context, from, to string) error {
	f.ops = append(f.ops, "mentions:"+from+">"+to)
	return nil
}

func (f *fakeStore) RepointRelations(ctx context.Context, from, to string) error {
	f.ops = append(f.ops, "relations:"+from+">"+to)
	return nil
}

func (f *fakeStore) DeleteCharacter(ctx context.Context, name string) error {
	f.ops = append(f.ops, "delete:"+name)
	delete(f.existing, name)
	return nil
}

func (f *fakeStore) RenameCharacter(ctx context.Context, from, to string) error {
	f.ops = append(f.ops, "rename:"+from+">"+to)
	f.existing[to] = true
	delete(f.existing, from)
	return nil
}

func TestApplyMergePlanRepointsThenRenames(t *testing.T) {
	store := &fakeStore{existing: map[string]bool{"Voldemort": true, "You-Know-Who": true}}
	plan := []MergeStep{{Pivot: "Voldemort", Aliases: []string{"You-Know-Who"}, Canonical: "Tom Riddle"}}
	if err := ApplyMergePlan(context.Background(), store, plan); err != nil {
		t.Fatalf("apply failed: %v", err)
	}
	want := []string{
		"mentions:You-Know-Who>Voldemort",
		"relations:You-Know-Who>Voldemort",
		"delete:You-Know-Who",
		"rename:Voldemort>Tom Riddle",
	}
	if !reflect.DeepEqual(store.ops, want) {
		t.Fatalf("unexpected op order: %v", store.ops)
	}
}

func TestApplyMergePlanMissingAliasIsNoOp(t *testing.T) {
	store := &fakeStore{existing: map[string]bool{"Voldemort": true}}
	plan := []MergeStep{{Pivot: "Voldemort", Aliases: []string{"Ghost"}, Canonical: "Voldemort"}}
	if err := ApplyMergePlan(context.Background(), store, plan); err != nil {
		t.Fatalf("apply failed: %v", err)
	}
	if len(store.ops) != 0 {
		t.Fatalf("expected no ops, got %v", store.ops)
	}
}

func TestApplyMergePlanCanonicalCollisionKeepsPivot(t *testing.T) {
	store := &fakeStore{existing: map[string]bool{"Voldemort": true, "Tom Riddle": true}}
	plan := []MergeStep{{Pivot: "Voldemort", Aliases: nil, Canonical: "Tom Riddle"}}
	if err := ApplyMergePlan(context.Background(), store, plan); err != nil {
		t.Fatalf("apply failed: %v", err)
	}
	for _, op := range store.ops {
		if op == "rename:Voldemort>Tom Riddle" {
			t.Fatal("rename should be skipped on collision")
		}
	}
	if !store.existing["Voldemort"] {
		t.Fatal("pivot should keep its name")
	}
}
