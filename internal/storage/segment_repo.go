package storage

import (
	"context"
	"fmt"

	"bookgraph/internal/models"
	"bookgraph/internal/vector"
)

type SegmentRepo struct {
	db *DB
}

func NewSegmentRepo(db *DB) *SegmentRepo {
	return &SegmentRepo{db: db}
}

func (r *SegmentRepo) Upsert(ctx context.Context, s models.Segment) error {
	_, err := r.db.Pool.Exec(ctx, `
INSERT INTO segments(
  segment_id, book_title, book_author, seq_index, text, source,
  characters_mentioned, locations, key_events, mood_tone,
  relationships, themes, dialogue_speakers, narrative_style)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14)
ON CONFLICT (segment_id)
DO UPDATE SET
  text = EXCLUDED.text,
  characters_mentioned = EXCLUDED.characters_mentioned,
  locations = EXCLUDED.locations,
  key_events = EXCLUDED.key_events,
  mood_tone = EXCLUDED.mood_tone,
  relationships = EXCLUDED.relationships,
  themes = EXCLUDED.themes,
  dialogue_speakers = EXCLUDED.dialogue_speakers,
  narrative_style = EXCLUDED.narrative_style`,
		s.SegmentID, s.BookTitle, s.BookAuthor, s.SeqIndex, s.Text, s.Source,
		orEmpty(s.CharactersMentioned), orEmpty(s.Locations), orEmpty(s.KeyEvents), s.MoodTone,
		orEmpty(s.Relationships), orEmpty(s.Themes), orEmpty(s.DialogueSpeakers), s.NarrativeStyle)
	if err != nil {
		return fmt.Errorf("upsert segment %s: %w", s.SegmentID, err)
	}
	return nil
}

func (r *SegmentRepo) UpdateEmbedding(ctx context.Context, segmentID string, embedding []float32, version string) error {
	_, err := r.db.Pool.Exec(ctx, `
UPDATE segments
SET embedding = $2::vector, embedding_version = $3
WHERE segment_id = $1`,
		segmentID, vector.ToLiteral(embedding), version)
	if err != nil {
		return fmt.Errorf("update embedding %s: %w", segmentID, err)
	}
	return nil
}

// MissingEmbeddings lists segment ids and text still awaiting vectors,
// in reading order, up to limit.
func (r *SegmentRepo) MissingEmbeddings(ctx context.Context, limit int) ([]models.Segment, error) {
	if limit <= 0 {
		limit = 10
	}
	rows, err := r.db.Pool.Query(ctx, `
SELECT segment_id, book_title, seq_index, text
FROM segments
WHERE embedding IS NULL
ORDER BY book_title, seq_index
LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("list segments missing embeddings: %w", err)
	}
	defer rows.Close()

	out := make([]models.Segment, 0, limit)
	for rows.Next() {
		var s models.Segment
		if err := rows.Scan(&s.SegmentID, &s.BookTitle, &s.SeqIndex, &s.Text); err != nil {
			return nil, fmt.Errorf("scan segment: %w", err)
		}
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate segments: %w", err)
	}
	return out, nil
}

// The text match uses strpos rather than a LIKE pattern so names
// containing % or _ match literally.
const segmentsMentioningQuery = `
SELECT segment_id, book_title, seq_index, text
FROM segments
WHERE EXISTS (
  SELECT 1 FROM unnest(characters_mentioned) AS cm
  WHERE LOWER(cm) = LOWER($1)
) OR strpos(LOWER(text), LOWER($1)) > 0
ORDER BY book_title, seq_index
LIMIT $2`

// SegmentsMentioning returns the earliest segments that mention the
// name, either in the extracted character list or in the raw text,
// matched case-insensitively.
func (r *SegmentRepo) SegmentsMentioning(ctx context.Context, character string, limit int) ([]models.Segment, error) {
	if limit <= 0 {
		limit = 5
	}
	rows, err := r.db.Pool.Query(ctx, segmentsMentioningQuery, character, limit)
	if err != nil {
		return nil, fmt.Errorf("segments mentioning %s: %w", character, err)
	}
	defer rows.Close()

	out := make([]models.Segment, 0, limit)
	for rows.Next() {
		var s models.Segment
		if err := rows.Scan(&s.SegmentID, &s.BookTitle, &s.SeqIndex, &s.Text); err != nil {
			return nil, fmt.Errorf("scan mention segment: %w", err)
		}
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate mention segments: %w", err)
	}
	return out, nil
}

// Window returns the hit segment joined with its predecessor and
// successor texts, concatenated in reading order.
func (r *SegmentRepo) Window(ctx context.Context, segmentID string) (string, error) {
	var prev, cur, next *string
	err := r.db.Pool.QueryRow(ctx, `
SELECT p.text, s.text, n.text
FROM segments s
LEFT JOIN segments p ON p.book_title = s.book_title AND p.seq_index = s.seq_index - 1
LEFT JOIN segments n ON n.book_title = s.book_title AND n.seq_index = s.seq_index + 1
WHERE s.segment_id = $1`, segmentID).Scan(&prev, &cur, &next)
	if err != nil {
		return "", fmt.Errorf("window for %s: %w", segmentID, err)
	}
	out := ""
	for _, part := range []*string{prev, cur, next} {
		if part == nil || *part == "" {
			continue
		}
		if out != "" {
			out += " \n "
		}
		out += *part
	}
	return out, nil
}

func (r *SegmentRepo) CountForBook(ctx context.Context, bookTitle string) (int, error) {
	var n int
	if err := r.db.Pool.QueryRow(ctx, `SELECT COUNT(*) FROM segments WHERE book_title = $1`, bookTitle).Scan(&n); err != nil {
		return 0, fmt.Errorf("count segments: %w", err)
	}
	return n, nil
}

func orEmpty(v []string) []string {
	if v == nil {
		return []string{}
	}
	return v
}
