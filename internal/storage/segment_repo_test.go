package storage

import (
	"strings"
	"testing"
)

func TestSegmentsMentioningMatchesTextLiterally(t *testing.T) {
	if strings.Contains(segmentsMentioningQuery, "ILIKE") || strings.Contains(segmentsMentioningQuery, "LIKE '%'") {
		t.Fatalf("text match must not treat the name as a pattern: %s", segmentsMentioningQuery)
	}
	if !strings.Contains(segmentsMentioningQuery, "strpos(LOWER(text), LOWER($1)) > 0") {
		t.Fatalf("expected literal case-insensitive substring match, got: %s", segmentsMentioningQuery)
	}
	if !strings.Contains(segmentsMentioningQuery, "LOWER(cm) = LOWER($1)") {
		t.Fatalf("expected case-insensitive mention-list match, got: %s", segmentsMentioningQuery)
	}
}
