package storage

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"bookgraph/internal/models"
)

type CharacterRepo struct {
	db *DB
}

func NewCharacterRepo(db *DB) *CharacterRepo {
	return &CharacterRepo{db: db}
}

// EnsureExists inserts a bare character row so mention and relation
// foreign keys have a target before profiling runs.
func (r *CharacterRepo) EnsureExists(ctx context.Context, name string) error {
	_, err := r.db.Pool.Exec(ctx, `
INSERT INTO characters(name) VALUES ($1)
ON CONFLICT (name) DO NOTHING`, name)
	if err != nil {
		return fmt.Errorf("ensure character %s: %w", name, err)
	}
	return nil
}

func (r *CharacterRepo) UpsertProfile(ctx context.Context, p models.CharacterProfile) error {
	_, err := r.db.Pool.Exec(ctx, `
INSERT INTO characters(
  name, personality, speech_pattern, key_phrases, relationships,
  role_in_story, character_arc, dialogue_style, emotional_range, background)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
ON CONFLICT (name)
DO UPDATE SET
  personality = EXCLUDED.personality,
  speech_pattern = EXCLUDED.speech_pattern,
  key_phrases = EXCLUDED.key_phrases,
  relationships = EXCLUDED.relationships,
  role_in_story = EXCLUDED.role_in_story,
  character_arc = EXCLUDED.character_arc,
  dialogue_style = EXCLUDED.dialogue_style,
  emotional_range = EXCLUDED.emotional_range,
  background = EXCLUDED.background`,
		p.Name, p.Personality, p.SpeechPattern, orEmpty(p.KeyPhrases), p.Relationships,
		p.RoleInStory, p.CharacterArc, p.DialogueStyle, p.EmotionalRange, p.Background)
	if err != nil {
		return fmt.Errorf("upsert profile %s: %w", p.Name, err)
	}
	return nil
}

func (r *CharacterRepo) Get(ctx context.Context, name string) (models.CharacterProfile, bool, error) {
	var p models.CharacterProfile
	err := r.db.Pool.QueryRow(ctx, `
SELECT name, personality, speech_pattern, key_phrases, relationships,
       role_in_story, character_arc, dialogue_style, emotional_range, background
FROM characters
WHERE name = $1`, name).
		Scan(&p.Name, &p.Personality, &p.SpeechPattern, &p.KeyPhrases, &p.Relationships,
			&p.RoleInStory, &p.CharacterArc, &p.DialogueStyle, &p.EmotionalRange, &p.Background)
	if err == pgx.ErrNoRows {
		return models.CharacterProfile{}, false, nil
	}
	if err != nil {
		return models.CharacterProfile{}, false, fmt.Errorf("get character %s: %w", name, err)
	}
	return p, true, nil
}

func (r *CharacterRepo) ListNames(ctx context.Context) ([]string, error) {
	rows, err := r.db.Pool.Query(ctx, `SELECT name FROM characters ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("list character names: %w", err)
	}
	defer rows.Close()

	out := make([]string, 0, 64)
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scan character name: %w", err)
		}
		out = append(out, name)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate character names: %w", err)
	}
	return out, nil
}

// MentionsFor lists the segments where a character appears, in reading
// order by segment id.
func (r *CharacterRepo) MentionsFor(ctx context.Context, name string, limit int) ([]models.Mention, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.db.Pool.Query(ctx, `
SELECT segment_id, character_name
FROM mentions
WHERE character_name = $1
ORDER BY segment_id
LIMIT $2`, name, limit)
	if err != nil {
		return nil, fmt.Errorf("mentions for %s: %w", name, err)
	}
	defer rows.Close()

	out := make([]models.Mention, 0, limit)
	for rows.Next() {
		var m models.Mention
		if err := rows.Scan(&m.SegmentID, &m.CharacterName); err != nil {
			return nil, fmt.Errorf("scan mention: %w", err)
		}
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate mentions: %w", err)
	}
	return out, nil
}

func (r *CharacterRepo) CharacterExists(ctx context.Context, name string) (bool, error) {
	var exists bool
	err := r.db.Pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM characters WHERE name = $1)`, name).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("character exists %s: %w", name, err)
	}
	return exists, nil
}

// RepointMentions moves every mention of one character to another,
// dropping rows the target already has.
func (r *CharacterRepo) RepointMentions(ctx context.Context, from, to string) error {
	tx, err := r.db.Pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin repoint mentions: %w", err)
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()
	if _, err := tx.Exec(ctx, `
INSERT INTO mentions(segment_id, character_name)
SELECT segment_id, $2 FROM mentions WHERE character_name = $1
ON CONFLICT DO NOTHING`, from, to); err != nil {
		return fmt.Errorf("copy mentions %s -> %s: %w", from, to, err)
	}
	if _, err := tx.Exec(ctx, `DELETE FROM mentions WHERE character_name = $1`, from); err != nil {
		return fmt.Errorf("drop old mentions %s: %w", from, err)
	}
	return tx.Commit(ctx)
}

// RepointRelations rewrites relation endpoints from one character to
// another, discarding duplicates and self loops.
func (r *CharacterRepo) RepointRelations(ctx context.Context, from, to string) error {
	tx, err := r.db.Pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin repoint relations: %w", err)
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()
	if _, err := tx.Exec(ctx, `
INSERT INTO character_relations(source_name, target_name, rel_type)
SELECT $2, target_name, rel_type FROM character_relations
WHERE source_name = $1 AND target_name <> $2
ON CONFLICT DO NOTHING`, from, to); err != nil {
		return fmt.Errorf("copy outgoing relations %s -> %s: %w", from, to, err)
	}
	if _, err := tx.Exec(ctx, `
INSERT INTO character_relations(source_name, target_name, rel_type)
SELECT source_name, $2, rel_type FROM character_relations
WHERE target_name = $1 AND source_name <> $2
ON CONFLICT DO NOTHING`, from, to); err != nil {
		return fmt.Errorf("copy incoming relations %s -> %s: %w", from, to, err)
	}
	if _, err := tx.Exec(ctx, `
DELETE FROM character_relations WHERE source_name = $1 OR target_name = $1`, from); err != nil {
		return fmt.Errorf("drop old relations %s: %w", from, err)
	}
	return tx.Commit(ctx)
}

func (r *CharacterRepo) DeleteCharacter(ctx context.Context, name string) error {
	if _, err := r.db.Pool.Exec(ctx, `DELETE FROM characters WHERE name = $1`, name); err != nil {
		return fmt.Errorf("delete character %s: %w", name, err)
	}
	return nil
}

// RenameCharacter updates the primary key; mention and relation foreign
// keys follow via ON UPDATE CASCADE.
func (r *CharacterRepo) RenameCharacter(ctx context.Context, from, to string) error {
	if _, err := r.db.Pool.Exec(ctx, `UPDATE characters SET name = $2 WHERE name = $1`, from, to); err != nil {
		return fmt.Errorf("rename character %s -> %s: %w", from, to, err)
	}
	return nil
}
