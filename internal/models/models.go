package models

import "time"

// Book is the root indexing unit. Title doubles as the primary key so
// segment and chapter rows can reference it without a surrogate id.
type Book struct {
	Title     string    `json:"title"`
	Author    string    `json:"author"`
	Source    string    `json:"source"`
	CreatedAt time.Time `json:"created_at"`
}

// Segment is an overlapping slice of a book's text plus the analysis
// fields the oracle filled in for it.
type Segment struct {
	SegmentID  string `json:"segment_id"`
	BookTitle  string `json:"book_title"`
	BookAuthor string `json:"book_author"`
	SeqIndex   int    `json:"seq_index"`
	Text       string `json:"text"`
	Source     string `json:"source"`

	CharactersMentioned []string `json:"characters_mentioned"`
	Locations           []string `json:"locations"`
	KeyEvents           []string `json:"key_events"`
	MoodTone            string   `json:"mood_tone"`
	Relationships       []string `json:"relationships"`
	Themes              []string `json:"themes"`
	DialogueSpeakers    []string `json:"dialogue_speakers"`
	NarrativeStyle      string   `json:"narrative_style"`

	Embedding        []float32 `json:"-"`
	EmbeddingVersion string    `json:"embedding_version,omitempty"`
}

// Analysis is the oracle's per-segment read of the text. Fields default
// to neutral values when the oracle fails or returns garbage.
type Analysis struct {
	CharactersMentioned []string `json:"characters_mentioned"`
	Locations           []string `json:"locations"`
	KeyEvents           []string `json:"key_events"`
	MoodTone            string   `json:"mood_tone"`
	Relationships       []string `json:"relationships"`
	Themes              []string `json:"themes"`
	DialogueSpeakers    []string `json:"dialogue_speakers"`
	NarrativeStyle      string   `json:"narrative_style"`
}

// Chapter groups a fixed run of consecutive segments.
type Chapter struct {
	BookTitle      string `json:"book_title"`
	ChapterNumber  int    `json:"chapter_number"`
	Title          string `json:"title"`
	StartSegmentID string `json:"start_segment_id"`
	EndSegmentID   string `json:"end_segment_id"`
}

// CharacterProfile is the oracle-built persona sheet for one character.
type CharacterProfile struct {
	Name           string   `json:"name"`
	Personality    string   `json:"personality"`
	SpeechPattern  string   `json:"speech_pattern"`
	KeyPhrases     []string `json:"key_phrases"`
	Relationships  string   `json:"relationships"`
	RoleInStory    string   `json:"role_in_story"`
	CharacterArc   string   `json:"character_arc"`
	DialogueStyle  string   `json:"dialogue_style"`
	EmotionalRange string   `json:"emotional_range"`
	Background     string   `json:"background"`
}

// Empty reports whether the profile carries no oracle content at all.
func (p CharacterProfile) Empty() bool {
	return p.Personality == "" && p.SpeechPattern == "" && len(p.KeyPhrases) == 0 &&
		p.Relationships == "" && p.RoleInStory == "" && p.CharacterArc == "" &&
		p.DialogueStyle == "" && p.EmotionalRange == "" && p.Background == ""
}

// CharacterRelation is one typed edge between two characters.
type CharacterRelation struct {
	SourceName string `json:"source_name"`
	TargetName string `json:"target_name"`
	RelType    string `json:"rel_type"`
}

// Mention records that a character appears in a segment.
type Mention struct {
	SegmentID     string `json:"segment_id"`
	CharacterName string `json:"character_name"`
}

// SearchHit is one similarity result with its cosine score.
type SearchHit struct {
	SegmentID string  `json:"segment_id"`
	BookTitle string  `json:"book_title"`
	SeqIndex  int     `json:"seq_index"`
	Text      string  `json:"text"`
	Score     float32 `json:"score"`
}
