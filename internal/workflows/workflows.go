package workflows

import (
	"sort"
	"strings"
	"time"

	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"

	"bookgraph/internal/activities"
)

const (
	QueryGetIndexProgress  = "GetIndexProgress"
	QueryGetSeriesProgress = "GetSeriesProgress"

	maxEmbedBatches = 10000
)

// BookIndexWorkflow runs the full indexing pipeline for one book:
// extract, segment, analyze, profile, link, deduplicate, embed. The
// destructive dedupe merge runs before embedding so alias deletes are
// the last change to character identity, and every step before it
// operates on unmerged names.
func BookIndexWorkflow(ctx workflow.Context, input BookIndexInput) (string, error) {
	progress := BookIndexProgress{BookTitle: input.BookTitle, Step: "init"}
	if err := workflow.SetQueryHandler(ctx, QueryGetIndexProgress, func() (BookIndexProgress, error) {
		return progress, nil
	}); err != nil {
		return "", err
	}

	ao := workflow.ActivityOptions{
		StartToCloseTimeout: 5 * time.Minute,
		RetryPolicy: &temporal.RetryPolicy{
			InitialInterval:    2 * time.Second,
			BackoffCoefficient: 2,
			MaximumInterval:    20 * time.Second,
			MaximumAttempts:    3,
		},
	}
	ctx = workflow.WithActivityOptions(ctx, ao)
	logger := workflow.GetLogger(ctx)

	progress.Step = "extract"
	var textOut activities.ExtractTextOutput
	if err := workflow.ExecuteActivity(ctx, "ExtractTextActivity", activities.ExtractTextInput{BookPath: input.BookPath, BookTitle: input.BookTitle}).Get(ctx, &textOut); err != nil {
		return "", err
	}

	progress.Step = "upsert_book"
	if err := workflow.ExecuteActivity(ctx, "UpsertBookActivity", activities.UpsertBookInput{
		Title:  input.BookTitle,
		Author: input.Author,
		Source: input.BookPath,
	}).Get(ctx, nil); err != nil {
		return "", err
	}

	progress.Step = "segment"
	var segOut activities.SegmentTextOutput
	if err := workflow.ExecuteActivity(ctx, "SegmentTextActivity", activities.SegmentTextInput{
		BookTitle: input.BookTitle,
		Text:      textOut.Text,
	}).Get(ctx, &segOut); err != nil {
		return "", err
	}
	progress.TotalSegments = len(segOut.Segments)

	progress.Step = "analyze"
	characterSet := map[string]struct{}{}
	for _, piece := range segOut.Segments {
		var analyzeOut activities.AnalyzeSegmentOutput
		err := workflow.ExecuteActivity(ctx, "AnalyzeSegmentActivity", activities.AnalyzeSegmentInput{
			BookTitle:  input.BookTitle,
			BookAuthor: input.Author,
			Source:     input.BookPath,
			SegmentID:  piece.SegmentID,
			SeqIndex:   piece.SeqIndex,
			Text:       piece.Text,
		}).Get(ctx, &analyzeOut)
		if err != nil {
			// One bad segment must not sink the book.
			logger.Warn("segment analysis failed", "segment", piece.SegmentID, "error", err)
			progress.FailedSegments++
			continue
		}
		progress.AnalyzedSegments++
		for _, name := range analyzeOut.CharactersMentioned {
			characterSet[name] = struct{}{}
		}
	}

	names := make([]string, 0, len(characterSet))
	for name := range characterSet {
		names = append(names, name)
	}
	sort.Strings(names)
	progress.Characters = len(names)

	progress.Step = "profile"
	for _, name := range names {
		err := workflow.ExecuteActivity(ctx, "ProfileCharacterActivity", activities.ProfileCharacterInput{
			BookTitle: input.BookTitle,
			Name:      name,
		}).Get(ctx, nil)
		if err != nil {
			logger.Warn("character profiling failed", "character", name, "error", err)
			continue
		}
		progress.ProfiledCharacters++
	}

	progress.Step = "link"
	var linkOut activities.LinkGraphOutput
	if err := workflow.ExecuteActivity(ctx, "LinkGraphActivity", activities.LinkGraphInput{BookTitle: input.BookTitle}).Get(ctx, &linkOut); err != nil {
		return "", err
	}
	progress.Relations = linkOut.Relations

	if !input.SkipDedupe {
		progress.Step = "dedupe"
		merges, err := dedupeCharacters(ctx)
		if err != nil {
			return "", err
		}
		progress.Merges = merges
	}

	progress.Step = "embed"
	for i := 0; i < maxEmbedBatches; i++ {
		var embedOut activities.EmbedSegmentsOutput
		if err := workflow.ExecuteActivity(ctx, "EmbedSegmentsActivity", activities.EmbedSegmentsInput{}).Get(ctx, &embedOut); err != nil {
			return "", err
		}
		progress.EmbeddedSegments += embedOut.Embedded
		if embedOut.Embedded == 0 {
			break
		}
	}

	progress.Step = "summary"
	_ = workflow.ExecuteActivity(ctx, "WriteIndexSummaryActivity", activities.WriteIndexSummaryInput{
		BookTitle: input.BookTitle,
		RunID:     input.RunID,
		Summary: map[string]any{
			"book_title":          input.BookTitle,
			"author":              input.Author,
			"source":              input.BookPath,
			"text_checksum":       textOut.Checksum,
			"total_segments":      progress.TotalSegments,
			"analyzed_segments":   progress.AnalyzedSegments,
			"failed_segments":     progress.FailedSegments,
			"characters":          progress.Characters,
			"profiled_characters": progress.ProfiledCharacters,
			"relations":           progress.Relations,
			"merges":              progress.Merges,
			"embedded_segments":   progress.EmbeddedSegments,
			"generated_at":        workflow.Now(ctx),
		},
	}).Get(ctx, nil)

	progress.Step = "completed"
	return "completed", nil
}

// SeriesIndexWorkflow indexes several books in order, deferring
// identity resolution to a single series-wide pass so a character can
// be merged across books.
func SeriesIndexWorkflow(ctx workflow.Context, input SeriesIndexInput) (string, error) {
	progress := SeriesIndexProgress{SeriesTitle: input.SeriesTitle, PerBook: map[string]string{}}
	if err := workflow.SetQueryHandler(ctx, QueryGetSeriesProgress, func() (SeriesIndexProgress, error) {
		return progress, nil
	}); err != nil {
		return "", err
	}

	for _, book := range input.Books {
		progress.PerBook[book.Title] = "processing"
		cwo := workflow.ChildWorkflowOptions{
			WorkflowID: "book-" + sanitizeID(input.RunID) + "-" + sanitizeID(book.Title),
		}
		childCtx := workflow.WithChildOptions(ctx, cwo)
		var childStatus string
		err := workflow.ExecuteChildWorkflow(childCtx, BookIndexWorkflow, BookIndexInput{
			BookTitle:  book.Title,
			Author:     book.Author,
			BookPath:   book.Path,
			RunID:      input.RunID,
			SkipDedupe: true,
		}).Get(ctx, &childStatus)
		if err != nil {
			progress.PerBook[book.Title] = "failed"
			progress.Failed++
			continue
		}
		progress.PerBook[book.Title] = childStatus
		progress.Done++
	}

	ao := workflow.ActivityOptions{
		StartToCloseTimeout: 5 * time.Minute,
		RetryPolicy: &temporal.RetryPolicy{
			InitialInterval:    2 * time.Second,
			BackoffCoefficient: 2,
			MaximumInterval:    20 * time.Second,
			MaximumAttempts:    3,
		},
	}
	ctx = workflow.WithActivityOptions(ctx, ao)

	merges, err := dedupeCharacters(ctx)
	if err != nil {
		return "", err
	}
	progress.Merges = merges

	return "completed", nil
}

// dedupeCharacters runs the list, detect, merge sequence over whatever
// characters currently exist.
func dedupeCharacters(ctx workflow.Context) (int, error) {
	var namesOut activities.ListCharacterNamesOutput
	if err := workflow.ExecuteActivity(ctx, "ListCharacterNamesActivity").Get(ctx, &namesOut); err != nil {
		return 0, err
	}
	if len(namesOut.Names) == 0 {
		return 0, nil
	}
	var dupOut activities.FindDuplicateCharactersOutput
	if err := workflow.ExecuteActivity(ctx, "FindDuplicateCharactersActivity", activities.FindDuplicateCharactersInput{
		Names: namesOut.Names,
	}).Get(ctx, &dupOut); err != nil {
		return 0, err
	}
	if len(dupOut.Groups) == 0 {
		return 0, nil
	}
	var mergeOut activities.MergeCharactersOutput
	if err := workflow.ExecuteActivity(ctx, "MergeCharactersActivity", activities.MergeCharactersInput{
		Groups: dupOut.Groups,
	}).Get(ctx, &mergeOut); err != nil {
		return 0, err
	}
	return mergeOut.Merges, nil
}

func sanitizeID(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	var b strings.Builder
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
		default:
			b.WriteRune('-')
		}
	}
	return strings.Trim(b.String(), "-")
}
