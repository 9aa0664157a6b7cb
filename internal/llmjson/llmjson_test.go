package llmjson

import "testing"

func TestStripCodeFence(t *testing.T) {
	cases := []struct{ in, want string }{
		{"```json\n{\"a\":1}\n```", "{\"a\":1}"},
		{"```\n{}\n```", "{}"},
		{"  {\"a\":1}  ", "{\"a\":1}"},
		{"", ""},
	}
	for _, c := range cases {
		if got := StripCodeFence(c.in); got != c.want {
			t.Fatalf("StripCodeFence(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestDecodeObjectRejectsGarbage(t *testing.T) {
	if _, err := DecodeObject("not json"); err == nil {
		t.Fatal("expected error for non-JSON input")
	}
	if _, err := DecodeObject(""); err == nil {
		t.Fatal("expected error for empty input")
	}
}

func TestStringFallbacks(t *testing.T) {
	m := map[string]any{"mood": "tense", "count": float64(3), "blank": "  "}
	if got := String(m, "mood", "neutral"); got != "tense" {
		t.Fatalf("got %q", got)
	}
	if got := String(m, "missing", "neutral"); got != "neutral" {
		t.Fatalf("got %q", got)
	}
	if got := String(m, "count", "neutral"); got != "neutral" {
		t.Fatalf("got %q", got)
	}
	if got := String(m, "blank", "neutral"); got != "neutral" {
		t.Fatalf("got %q", got)
	}
}

func TestStringListCoercion(t *testing.T) {
	m := map[string]any{
		"list":   []any{"Harry", " Ron ", "", 42},
		"scalar": "Hermione",
		"number": float64(1),
	}
	got := StringList(m, "list")
	if len(got) != 2 || got[0] != "Harry" || got[1] != "Ron" {
		t.Fatalf("unexpected list: %v", got)
	}
	got = StringList(m, "scalar")
	if len(got) != 1 || got[0] != "Hermione" {
		t.Fatalf("unexpected scalar coercion: %v", got)
	}
	if got := StringList(m, "number"); got != nil {
		t.Fatalf("expected nil for non-list, got %v", got)
	}
	if got := StringList(m, "missing"); got != nil {
		t.Fatalf("expected nil for missing key, got %v", got)
	}
}
