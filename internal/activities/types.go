package activities

type ExtractTextInput struct {
	BookPath  string `json:"book_path"`
	BookTitle string `json:"book_title"`
}

type ExtractTextOutput struct {
	Text     string `json:"text"`
	Checksum string `json:"checksum"`
}

type UpsertBookInput struct {
	Title  string `json:"title"`
	Author string `json:"author"`
	Source string `json:"source"`
}

type SegmentTextInput struct {
	BookTitle string `json:"book_title"`
	Text      string `json:"text"`
}

type SegmentPiece struct {
	SegmentID string `json:"segment_id"`
	SeqIndex  int    `json:"seq_index"`
	Text      string `json:"text"`
}

type SegmentTextOutput struct {
	Segments []SegmentPiece `json:"segments"`
}

type AnalyzeSegmentInput struct {
	BookTitle  string `json:"book_title"`
	BookAuthor string `json:"book_author"`
	Source     string `json:"source"`
	SegmentID  string `json:"segment_id"`
	SeqIndex   int    `json:"seq_index"`
	Text       string `json:"text"`
}

type AnalyzeSegmentOutput struct {
	CharactersMentioned []string `json:"characters_mentioned"`
}

type ProfileCharacterInput struct {
	BookTitle string `json:"book_title"`
	Name      string `json:"name"`
}

type LinkGraphInput struct {
	BookTitle string `json:"book_title"`
}

type LinkGraphOutput struct {
	Relations int `json:"relations"`
}

type ListCharacterNamesOutput struct {
	Names []string `json:"names"`
}

type FindDuplicateCharactersInput struct {
	Names []string `json:"names"`
}

type FindDuplicateCharactersOutput struct {
	Groups map[string][]string `json:"groups"`
}

type MergeCharactersInput struct {
	Groups map[string][]string `json:"groups"`
}

type MergeCharactersOutput struct {
	Merges int `json:"merges"`
}

type EmbedSegmentsInput struct {
	BatchSize int `json:"batch_size"`
}

type EmbedSegmentsOutput struct {
	Embedded int `json:"embedded"`
	Skipped  int `json:"skipped"`
}

type WriteIndexSummaryInput struct {
	BookTitle string         `json:"book_title"`
	RunID     string         `json:"run_id"`
	Summary   map[string]any `json:"summary"`
}
