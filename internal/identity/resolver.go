// Package identity deduplicates character names. The oracle proposes
// canonical groupings in small batches; a merge plan is computed first
// and applied afterwards so destructive deletes happen only once the
// full remap is known.
package identity

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/charmbracelet/log"

	"bookgraph/internal/llmjson"
	"bookgraph/internal/providers"
)

const (
	dedupeTemperature = 0.2
	dedupeMaxTokens   = 500
)

type Resolver struct {
	llm       providers.LLMProvider
	batchSize int
}

func NewResolver(llm providers.LLMProvider, batchSize int) *Resolver {
	if batchSize <= 0 {
		batchSize = 10
	}
	return &Resolver{llm: llm, batchSize: batchSize}
}

// FindDuplicates asks the oracle which of the given names refer to the
// same character. Names are processed in batches; a failed batch is
// skipped, never fatal. The result maps canonical name to the list of
// variant names the oracle grouped under it, in oracle order.
func (r *Resolver) FindDuplicates(ctx context.Context, names []string) map[string][]string {
	groups := map[string][]string{}
	for start := 0; start < len(names); start += r.batchSize {
		end := start + r.batchSize
		if end > len(names) {
			end = len(names)
		}
		batch := names[start:end]
		resp, info, err := r.llm.Generate(ctx, providers.GenerateRequest{
			Operation:   "character_dedupe",
			Prompt:      BuildDedupePrompt(batch),
			Temperature: dedupeTemperature,
			MaxTokens:   dedupeMaxTokens,
		})
		if err != nil {
			log.Warn("[Identity] dedupe batch failed", "from", start, "to", end, "provider", info.Name, "err", err)
			continue
		}
		for canonical, variants := range ParseDuplicateGroups(resp.Text) {
			groups[canonical] = append(groups[canonical], variants...)
		}
	}
	return groups
}

// ParseDuplicateGroups decodes {"Canonical Name": ["variant", ...], ...}.
// Groups with fewer than two variants carry no merge information and
// are dropped.
func ParseDuplicateGroups(raw string) map[string][]string {
	m, err := llmjson.DecodeObject(raw)
	if err != nil {
		return nil
	}
	out := map[string][]string{}
	for canonical, v := range m {
		canonical = strings.TrimSpace(canonical)
		if canonical == "" {
			continue
		}
		variants := coerceStrings(v)
		if len(variants) >= 2 {
			out[canonical] = variants
		}
	}
	return out
}

func coerceStrings(v any) []string {
	list, ok := v.([]any)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(list))
	seen := map[string]struct{}{}
	for _, e := range list {
		s, ok := e.(string)
		if !ok {
			continue
		}
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		if _, dup := seen[s]; dup {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}

// MergeStep is one planned merge: fold every alias into the pivot, then
// rename the pivot to the canonical name.
type MergeStep struct {
	Pivot     string
	Aliases   []string
	Canonical string
}

// BuildMergePlan turns oracle groupings into an ordered plan. The pivot
// is the first variant in each group; ordering by canonical name keeps
// the plan deterministic.
func BuildMergePlan(groups map[string][]string) []MergeStep {
	canonicals := make([]string, 0, len(groups))
	for c := range groups {
		canonicals = append(canonicals, c)
	}
	sort.Strings(canonicals)

	plan := make([]MergeStep, 0, len(canonicals))
	for _, canonical := range canonicals {
		variants := groups[canonical]
		if len(variants) < 2 {
			continue
		}
		plan = append(plan, MergeStep{
			Pivot:     variants[0],
			Aliases:   variants[1:],
			Canonical: canonical,
		})
	}
	return plan
}

// MergeStore is the storage surface a merge needs.
type MergeStore interface {
	CharacterExists(ctx context.Context, name string) (bool, error)
	RepointMentions(ctx context.Context, from, to string) error
	RepointRelations(ctx context.Context, from, to string) error
	DeleteCharacter(ctx context.Context, name string) error
	RenameCharacter(ctx context.Context, from, to string) error
}

// ApplyMergePlan executes a plan: for each step, aliases are repointed
// into the pivot and deleted, then the pivot is renamed to the
// canonical name. A missing alias is a silent no-op; a rename that
// would collide with an existing character keeps the pivot's name.
func ApplyMergePlan(ctx context.Context, store MergeStore, plan []MergeStep) error {
	for _, step := range plan {
		for _, alias := range step.Aliases {
			if alias == step.Pivot {
				continue
			}
			ok, err := store.CharacterExists(ctx, alias)
			if err != nil {
				return fmt.Errorf("check alias %s: %w", alias, err)
			}
			if !ok {
				continue
			}
			if err := store.RepointMentions(ctx, alias, step.Pivot); err != nil {
				return fmt.Errorf("repoint mentions %s -> %s: %w", alias, step.Pivot, err)
			}
			if err := store.RepointRelations(ctx, alias, step.Pivot); err != nil {
				return fmt.Errorf("repoint relations %s -> %s: %w", alias, step.Pivot, err)
			}
			if err := store.DeleteCharacter(ctx, alias); err != nil {
				return fmt.Errorf("delete alias %s: %w", alias, err)
			}
			log.Info("[Identity] merged alias", "alias", alias, "into", step.Pivot)
		}
		if step.Canonical == step.Pivot {
			continue
		}
		taken, err := store.CharacterExists(ctx, step.Canonical)
		if err != nil {
			return fmt.Errorf("check canonical %s: %w", step.Canonical, err)
		}
		if taken {
			log.Debug("[Identity] canonical name taken, keeping pivot", "pivot", step.Pivot, "canonical", step.Canonical)
			continue
		}
		if err := store.RenameCharacter(ctx, step.Pivot, step.Canonical); err != nil {
			return fmt.Errorf("rename %s -> %s: %w", step.Pivot, step.Canonical, err)
		}
	}
	return nil
}
