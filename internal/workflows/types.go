package workflows

type BookIndexInput struct {
	BookTitle string `json:"book_title"`
	Author    string `json:"author"`
	BookPath  string `json:"book_path"`
	RunID     string `json:"run_id"`
	// SkipDedupe leaves identity resolution to a later series-wide pass.
	SkipDedupe bool `json:"skip_dedupe,omitempty"`
}

type BookIndexProgress struct {
	BookTitle          string `json:"book_title"`
	Step               string `json:"step"`
	TotalSegments      int    `json:"total_segments"`
	AnalyzedSegments   int    `json:"analyzed_segments"`
	FailedSegments     int    `json:"failed_segments"`
	Characters         int    `json:"characters"`
	ProfiledCharacters int    `json:"profiled_characters"`
	Relations          int    `json:"relations"`
	Merges             int    `json:"merges"`
	EmbeddedSegments   int    `json:"embedded_segments"`
}

type SeriesBook struct {
	Title  string `json:"title"`
	Author string `json:"author"`
	Path   string `json:"path"`
}

type SeriesIndexInput struct {
	SeriesTitle string       `json:"series_title"`
	Books       []SeriesBook `json:"books"`
	RunID       string       `json:"run_id"`
}

type SeriesIndexProgress struct {
	SeriesTitle string            `json:"series_title"`
	PerBook     map[string]string `json:"per_book"`
	Done        int               `json:"done"`
	Failed      int               `json:"failed"`
	Merges      int               `json:"merges"`
}
