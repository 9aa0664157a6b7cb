package storage

import (
	"context"
	"fmt"

	"bookgraph/internal/models"
)

type BookRepo struct {
	db *DB
}

func NewBookRepo(db *DB) *BookRepo {
	return &BookRepo{db: db}
}

func (r *BookRepo) Upsert(ctx context.Context, b models.Book) error {
	_, err := r.db.Pool.Exec(ctx, `
INSERT INTO books(title, author, source)
VALUES ($1, $2, $3)
ON CONFLICT (title)
DO UPDATE SET author = EXCLUDED.author, source = EXCLUDED.source`,
		b.Title, b.Author, b.Source)
	if err != nil {
		return fmt.Errorf("upsert book: %w", err)
	}
	return nil
}

func (r *BookRepo) List(ctx context.Context) ([]models.Book, error) {
	rows, err := r.db.Pool.Query(ctx, `
SELECT title, author, source, created_at
FROM books
ORDER BY created_at, title`)
	if err != nil {
		return nil, fmt.Errorf("list books: %w", err)
	}
	defer rows.Close()

	out := make([]models.Book, 0, 8)
	for rows.Next() {
		var b models.Book
		if err := rows.Scan(&b.Title, &b.Author, &b.Source, &b.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan book: %w", err)
		}
		out = append(out, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate books: %w", err)
	}
	return out, nil
}

// GraphStats summarizes node and edge counts across the whole graph.
type GraphStats struct {
	Books      int `json:"books"`
	Segments   int `json:"segments"`
	Chapters   int `json:"chapters"`
	Characters int `json:"characters"`
	Mentions   int `json:"mentions"`
	Links      int `json:"links"`
	Relations  int `json:"relations"`
	Embedded   int `json:"embedded_segments"`
}

func (r *BookRepo) Stats(ctx context.Context) (GraphStats, error) {
	var s GraphStats
	err := r.db.Pool.QueryRow(ctx, `
SELECT
  (SELECT COUNT(*) FROM books),
  (SELECT COUNT(*) FROM segments),
  (SELECT COUNT(*) FROM chapters),
  (SELECT COUNT(*) FROM characters),
  (SELECT COUNT(*) FROM mentions),
  (SELECT COUNT(*) FROM segment_links),
  (SELECT COUNT(*) FROM character_relations),
  (SELECT COUNT(*) FROM segments WHERE embedding IS NOT NULL)`).
		Scan(&s.Books, &s.Segments, &s.Chapters, &s.Characters, &s.Mentions, &s.Links, &s.Relations, &s.Embedded)
	if err != nil {
		return GraphStats{}, fmt.Errorf("graph stats: %w", err)
	}
	return s, nil
}
