package segmenter

import (
	"strings"
	"testing"
)

func TestSplitSizeAndOverlap(t *testing.T) {
	text := strings.Repeat("lorem ipsum dolor sit amet ", 400)
	segs := Split("Test Book", text, 200, 20)
	if len(segs) < 10 {
		t.Fatalf("expected many segments, got %d", len(segs))
	}
	for i, s := range segs {
		if n := len([]rune(s.Text)); n > 200 {
			t.Fatalf("segment %d exceeds size: %d runes", i, n)
		}
		if s.SeqIndex != i {
			t.Fatalf("segment %d has seq index %d", i, s.SeqIndex)
		}
	}
}

func TestSplitDeterministic(t *testing.T) {
	text := strings.Repeat("the quick brown fox jumps over the lazy dog. ", 120)
	a := Split("Book", text, 300, 40)
	b := Split("Book", text, 300, 40)
	if len(a) != len(b) {
		t.Fatalf("lengths differ: %d vs %d", len(a), len(b))
	}
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("segment %d differs between runs", i)
		}
	}
}

func TestSplitSnapsToSentenceBoundary(t *testing.T) {
	sentence := "This is a full sentence that ends cleanly. "
	text := strings.Repeat(sentence, 30)
	segs := Split("Book", text, 100, 10)
	if len(segs) < 2 {
		t.Fatalf("expected multiple segments, got %d", len(segs))
	}
	// With sentence separators present, no interior segment should end mid-word.
	for _, s := range segs[:len(segs)-1] {
		if !strings.HasSuffix(s.Text, ".") {
			t.Fatalf("segment does not end at a sentence boundary: %q", s.Text)
		}
	}
}

func TestSplitSegmentIDs(t *testing.T) {
	segs := Split("The Sorcerer's Stone", strings.Repeat("x ", 500), 100, 0)
	if len(segs) == 0 {
		t.Fatal("expected segments")
	}
	if segs[0].ID != "the_sorcerer's_stone_segment_0000" {
		t.Fatalf("unexpected first id: %s", segs[0].ID)
	}
}

func TestSplitKeepsSeqContiguousAcrossBlankWindows(t *testing.T) {
	// A long whitespace run produces windows with no text; those must
	// not consume sequence numbers.
	text := "alpha beta gamma." + strings.Repeat("\n", 60) + "delta epsilon zeta."
	segs := Split("Book", text, 12, 0)
	if len(segs) < 2 {
		t.Fatalf("expected multiple segments, got %d", len(segs))
	}
	for i, s := range segs {
		if s.SeqIndex != i {
			t.Fatalf("segment %d has seq index %d, want contiguous from 0", i, s.SeqIndex)
		}
	}
}

func TestSplitEmptyInput(t *testing.T) {
	if segs := Split("Book", "   \n  ", 100, 10); segs != nil {
		t.Fatalf("expected nil for blank text, got %d segments", len(segs))
	}
}
