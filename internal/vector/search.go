package vector

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"bookgraph/internal/models"
)

// SearchFilters narrow a similarity query before ranking. Characters
// restricts hits to segments that mention at least one of the names.
type SearchFilters struct {
	BookTitle        string
	Characters       []string
	EmbeddingVersion string
}

type Queryer interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

type Searcher struct {
	q Queryer
}

func NewSearcher(q Queryer) *Searcher {
	return &Searcher{q: q}
}

// SearchSegments ranks embedded segments by cosine similarity to the
// query vector.
func (s *Searcher) SearchSegments(ctx context.Context, queryVec []float32, topK int, filters SearchFilters) ([]models.SearchHit, error) {
	if topK <= 0 {
		topK = 3
	}
	args := []any{ToLiteral(queryVec), topK}

	filterSQL := ""
	if strings.TrimSpace(filters.BookTitle) != "" {
		args = append(args, filters.BookTitle)
		filterSQL += fmt.Sprintf(" AND s.book_title = $%d", len(args))
	}
	if len(filters.Characters) > 0 {
		args = append(args, filters.Characters)
		filterSQL += fmt.Sprintf(` AND EXISTS (
    SELECT 1 FROM mentions m
    WHERE m.segment_id = s.segment_id AND m.character_name = ANY($%d)
  )`, len(args))
	}
	if strings.TrimSpace(filters.EmbeddingVersion) != "" {
		args = append(args, filters.EmbeddingVersion)
		filterSQL += fmt.Sprintf(" AND s.embedding_version = $%d", len(args))
	}

	query := `
SELECT s.segment_id,
       s.book_title,
       s.seq_index,
       s.text,
       1 - (s.embedding <=> $1::vector) AS score
FROM segments s
WHERE s.embedding IS NOT NULL` + filterSQL + `
ORDER BY s.embedding <=> $1::vector
LIMIT $2`

	rows, err := s.q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query vector search: %w", err)
	}
	defer rows.Close()

	results := make([]models.SearchHit, 0, topK)
	for rows.Next() {
		var h models.SearchHit
		if err := rows.Scan(&h.SegmentID, &h.BookTitle, &h.SeqIndex, &h.Text, &h.Score); err != nil {
			return nil, fmt.Errorf("scan search hit: %w", err)
		}
		results = append(results, h)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate search rows: %w", err)
	}
	return results, nil
}

func ToLiteral(v []float32) string {
	parts := make([]string, 0, len(v))
	for _, x := range v {
		parts = append(parts, fmt.Sprintf("%f", x))
	}
	return "[" + strings.Join(parts, ",") + "]"
}
