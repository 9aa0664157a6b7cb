package storage

import (
	"context"
	"fmt"
)

// EnsureSchema bootstraps the graph tables so a fresh database works
// without a separate migration step. Character foreign keys cascade on
// update so a canonical rename propagates to mentions and relations.
func EnsureSchema(ctx context.Context, db *DB, embedDim int) error {
	if embedDim <= 0 {
		embedDim = 1024
	}
	ddl := fmt.Sprintf(`
CREATE EXTENSION IF NOT EXISTS vector;

CREATE TABLE IF NOT EXISTS books (
  title TEXT PRIMARY KEY,
  author TEXT NOT NULL DEFAULT '',
  source TEXT NOT NULL DEFAULT '',
  created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS segments (
  segment_id TEXT PRIMARY KEY,
  book_title TEXT NOT NULL REFERENCES books(title) ON DELETE CASCADE,
  book_author TEXT NOT NULL DEFAULT '',
  seq_index INT NOT NULL,
  text TEXT NOT NULL,
  source TEXT NOT NULL DEFAULT '',
  characters_mentioned TEXT[] NOT NULL DEFAULT '{}',
  locations TEXT[] NOT NULL DEFAULT '{}',
  key_events TEXT[] NOT NULL DEFAULT '{}',
  mood_tone TEXT NOT NULL DEFAULT 'neutral',
  relationships TEXT[] NOT NULL DEFAULT '{}',
  themes TEXT[] NOT NULL DEFAULT '{}',
  dialogue_speakers TEXT[] NOT NULL DEFAULT '{}',
  narrative_style TEXT NOT NULL DEFAULT 'unknown',
  embedding vector(%d),
  embedding_version TEXT,
  UNIQUE (book_title, seq_index)
);

CREATE TABLE IF NOT EXISTS chapters (
  book_title TEXT NOT NULL REFERENCES books(title) ON DELETE CASCADE,
  chapter_number INT NOT NULL,
  title TEXT NOT NULL DEFAULT '',
  start_segment_id TEXT NOT NULL REFERENCES segments(segment_id) ON DELETE CASCADE,
  end_segment_id TEXT NOT NULL REFERENCES segments(segment_id) ON DELETE CASCADE,
  PRIMARY KEY (book_title, chapter_number)
);

CREATE TABLE IF NOT EXISTS characters (
  name TEXT PRIMARY KEY,
  personality TEXT NOT NULL DEFAULT '',
  speech_pattern TEXT NOT NULL DEFAULT '',
  key_phrases TEXT[] NOT NULL DEFAULT '{}',
  relationships TEXT NOT NULL DEFAULT '',
  role_in_story TEXT NOT NULL DEFAULT '',
  character_arc TEXT NOT NULL DEFAULT '',
  dialogue_style TEXT NOT NULL DEFAULT '',
  emotional_range TEXT NOT NULL DEFAULT '',
  background TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS mentions (
  segment_id TEXT NOT NULL REFERENCES segments(segment_id) ON DELETE CASCADE,
  character_name TEXT NOT NULL REFERENCES characters(name) ON UPDATE CASCADE ON DELETE CASCADE,
  PRIMARY KEY (segment_id, character_name)
);

CREATE TABLE IF NOT EXISTS segment_links (
  from_segment TEXT PRIMARY KEY REFERENCES segments(segment_id) ON DELETE CASCADE,
  to_segment TEXT NOT NULL REFERENCES segments(segment_id) ON DELETE CASCADE
);

CREATE TABLE IF NOT EXISTS character_relations (
  source_name TEXT NOT NULL REFERENCES characters(name) ON UPDATE CASCADE ON DELETE CASCADE,
  target_name TEXT NOT NULL REFERENCES characters(name) ON UPDATE CASCADE ON DELETE CASCADE,
  rel_type TEXT NOT NULL,
  PRIMARY KEY (source_name, target_name, rel_type)
);

CREATE INDEX IF NOT EXISTS idx_segments_book_seq ON segments(book_title, seq_index);
CREATE INDEX IF NOT EXISTS idx_mentions_character ON mentions(character_name);
CREATE INDEX IF NOT EXISTS idx_segments_embedding ON segments USING hnsw (embedding vector_cosine_ops);
`, embedDim)
	if _, err := db.Pool.Exec(ctx, ddl); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}
