package storage

import (
	"context"
	"fmt"

	"bookgraph/internal/models"
)

// GraphRepo builds the derived edges of the graph: the reading-order
// chain, mention edges, chapter groupings, and typed character
// relations.
type GraphRepo struct {
	db *DB
}

func NewGraphRepo(db *DB) *GraphRepo {
	return &GraphRepo{db: db}
}

// LinkReadingOrder connects each of a book's segments to its successor.
func (r *GraphRepo) LinkReadingOrder(ctx context.Context, bookTitle string) error {
	_, err := r.db.Pool.Exec(ctx, `
INSERT INTO segment_links(from_segment, to_segment)
SELECT a.segment_id, b.segment_id
FROM segments a
JOIN segments b ON b.book_title = a.book_title AND b.seq_index = a.seq_index + 1
WHERE a.book_title = $1
ON CONFLICT (from_segment) DO UPDATE SET to_segment = EXCLUDED.to_segment`, bookTitle)
	if err != nil {
		return fmt.Errorf("link reading order for %s: %w", bookTitle, err)
	}
	return nil
}

// LinkMentions materializes mention edges from each segment's extracted
// character list. Only characters that exist as rows are linked.
func (r *GraphRepo) LinkMentions(ctx context.Context, bookTitle string) error {
	_, err := r.db.Pool.Exec(ctx, `
INSERT INTO mentions(segment_id, character_name)
SELECT s.segment_id, c.name
FROM segments s
JOIN characters c ON c.name = ANY(s.characters_mentioned)
WHERE s.book_title = $1
ON CONFLICT DO NOTHING`, bookTitle)
	if err != nil {
		return fmt.Errorf("link mentions for %s: %w", bookTitle, err)
	}
	return nil
}

// UpsertChapters groups every chapterSegments consecutive segments into
// a numbered chapter anchored at its first and last segment.
func (r *GraphRepo) UpsertChapters(ctx context.Context, bookTitle string, chapterSegments int) error {
	if chapterSegments <= 0 {
		chapterSegments = 10
	}
	_, err := r.db.Pool.Exec(ctx, `
INSERT INTO chapters(book_title, chapter_number, title, start_segment_id, end_segment_id)
SELECT book_title,
       seq_index / $2 AS chapter_number,
       'Chapter ' || (seq_index / $2 + 1),
       (array_agg(segment_id ORDER BY seq_index))[1],
       (array_agg(segment_id ORDER BY seq_index DESC))[1]
FROM segments
WHERE book_title = $1
GROUP BY book_title, seq_index / $2
ON CONFLICT (book_title, chapter_number)
DO UPDATE SET start_segment_id = EXCLUDED.start_segment_id,
              end_segment_id = EXCLUDED.end_segment_id`, bookTitle, chapterSegments)
	if err != nil {
		return fmt.Errorf("upsert chapters for %s: %w", bookTitle, err)
	}
	return nil
}

// ChaptersForBook lists a book's chapters in reading order.
func (r *GraphRepo) ChaptersForBook(ctx context.Context, bookTitle string) ([]models.Chapter, error) {
	rows, err := r.db.Pool.Query(ctx, `
SELECT book_title, chapter_number, title, start_segment_id, end_segment_id
FROM chapters
WHERE book_title = $1
ORDER BY chapter_number`, bookTitle)
	if err != nil {
		return nil, fmt.Errorf("chapters for %s: %w", bookTitle, err)
	}
	defer rows.Close()

	out := make([]models.Chapter, 0, 16)
	for rows.Next() {
		var c models.Chapter
		if err := rows.Scan(&c.BookTitle, &c.ChapterNumber, &c.Title, &c.StartSegmentID, &c.EndSegmentID); err != nil {
			return nil, fmt.Errorf("scan chapter: %w", err)
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate chapters: %w", err)
	}
	return out, nil
}

// UpsertRelation stores one typed character edge. Edges whose endpoints
// are unknown characters are skipped silently, matching how loosely the
// oracle names people.
func (r *GraphRepo) UpsertRelation(ctx context.Context, rel models.CharacterRelation) error {
	_, err := r.db.Pool.Exec(ctx, `
INSERT INTO character_relations(source_name, target_name, rel_type)
SELECT $1, $2, $3
WHERE EXISTS (SELECT 1 FROM characters WHERE name = $1)
  AND EXISTS (SELECT 1 FROM characters WHERE name = $2)
ON CONFLICT DO NOTHING`, rel.SourceName, rel.TargetName, rel.RelType)
	if err != nil {
		return fmt.Errorf("upsert relation %s-%s-%s: %w", rel.SourceName, rel.RelType, rel.TargetName, err)
	}
	return nil
}

// LinkRelations parses every relationship string stored on a book's
// segments into typed edges.
func (r *GraphRepo) LinkRelations(ctx context.Context, bookTitle string) (int, error) {
	rows, err := r.db.Pool.Query(ctx, `
SELECT DISTINCT unnest(relationships)
FROM segments
WHERE book_title = $1`, bookTitle)
	if err != nil {
		return 0, fmt.Errorf("load relationship strings for %s: %w", bookTitle, err)
	}
	raw := make([]string, 0, 64)
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			rows.Close()
			return 0, fmt.Errorf("scan relationship string: %w", err)
		}
		raw = append(raw, s)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return 0, fmt.Errorf("iterate relationship strings: %w", err)
	}

	count := 0
	for _, s := range raw {
		rel, ok := ParseTriple(s)
		if !ok {
			continue
		}
		if err := r.UpsertRelation(ctx, rel); err != nil {
			return count, err
		}
		count++
	}
	return count, nil
}

// MentionedCharacters lists the distinct characters mentioned in any of
// the given segments, sorted by name.
func (r *GraphRepo) MentionedCharacters(ctx context.Context, segmentIDs []string) ([]string, error) {
	if len(segmentIDs) == 0 {
		return nil, nil
	}
	rows, err := r.db.Pool.Query(ctx, `
SELECT DISTINCT character_name
FROM mentions
WHERE segment_id = ANY($1)
ORDER BY character_name`, segmentIDs)
	if err != nil {
		return nil, fmt.Errorf("mentioned characters: %w", err)
	}
	defer rows.Close()

	out := make([]string, 0, 8)
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scan mentioned character: %w", err)
		}
		out = append(out, name)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate mentioned characters: %w", err)
	}
	return out, nil
}
