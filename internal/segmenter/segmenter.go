// Package segmenter splits book text into overlapping segments sized
// for language model analysis and embedding.
package segmenter

import (
	"fmt"
	"strings"
)

// Segment is one split of the source text with its position metadata.
type Segment struct {
	ID       string
	SeqIndex int
	Text     string
}

// Split cuts text into segments of at most size runes with the given
// overlap between consecutive segments. Cut points snap to the nearest
// paragraph, line, sentence, or word boundary in the latter half of the
// window so segments do not break mid-word. Output is deterministic for
// a given input.
func Split(bookTitle, text string, size, overlap int) []Segment {
	if size <= 0 {
		size = 2000
	}
	if overlap < 0 || overlap >= size {
		overlap = 0
	}
	runes := []rune(strings.TrimSpace(text))
	if len(runes) == 0 {
		return nil
	}

	slug := Slug(bookTitle)
	out := make([]Segment, 0, len(runes)/size+1)
	start := 0
	seq := 0
	for start < len(runes) {
		end := start + size
		if end >= len(runes) {
			end = len(runes)
		} else {
			end = start + boundary(runes[start:end])
		}
		part := strings.TrimSpace(string(runes[start:end]))
		// seq advances only on emission so seq_index stays contiguous
		// from 0 and reading-order links never skip a step.
		if part != "" {
			out = append(out, Segment{
				ID:       fmt.Sprintf("%s_segment_%04d", slug, seq),
				SeqIndex: seq,
				Text:     part,
			})
			seq++
		}
		if end == len(runes) {
			break
		}
		next := end - overlap
		if next <= start {
			next = start + 1
		}
		start = next
	}
	return out
}

// boundary returns the cut offset inside window, preferring natural
// break points found in the latter half of the window.
func boundary(window []rune) int {
	s := string(window)
	floor := len(window) / 2
	for _, sep := range []string{"\n\n", "\n", ". ", " "} {
		idx := strings.LastIndex(s, sep)
		if idx < 0 {
			continue
		}
		// idx is a byte offset; convert back to a rune offset.
		cut := len([]rune(s[:idx])) + len([]rune(sep))
		if cut > floor && cut <= len(window) {
			return cut
		}
	}
	return len(window)
}

// Slug lowercases a book title and replaces spaces for use in segment ids.
func Slug(title string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimSpace(title)), " ", "_")
}
