package activities

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/ledongthuc/pdf"

	"bookgraph/internal/config"
	"bookgraph/internal/extract"
	"bookgraph/internal/identity"
	"bookgraph/internal/models"
	"bookgraph/internal/persona"
	"bookgraph/internal/providers"
	"bookgraph/internal/segmenter"
	"bookgraph/internal/storage"
	"bookgraph/internal/util"
)

type Activities struct {
	cfg           config.Config
	bookRepo      *storage.BookRepo
	segmentRepo   *storage.SegmentRepo
	characterRepo *storage.CharacterRepo
	graphRepo     *storage.GraphRepo
	providers     *providers.Manager
	analyzer      *extract.Analyzer
	profiler      *persona.Profiler
	resolver      *identity.Resolver
}

func New(cfg config.Config, db *storage.DB) (*Activities, error) {
	pm, err := providers.NewManager(cfg)
	if err != nil {
		return nil, err
	}
	segmentRepo := storage.NewSegmentRepo(db)
	llm := pm.FailoverLLM()
	return &Activities{
		cfg:           cfg,
		bookRepo:      storage.NewBookRepo(db),
		segmentRepo:   segmentRepo,
		characterRepo: storage.NewCharacterRepo(db),
		graphRepo:     storage.NewGraphRepo(db),
		providers:     pm,
		analyzer:      extract.NewAnalyzer(llm),
		profiler:      persona.NewProfiler(llm, segmentRepo, cfg.ProfileMaxSegments),
		resolver:      identity.NewResolver(llm, cfg.DedupeBatchSize),
	}, nil
}

// ExtractTextActivity reads a book file. PDF files go through the pdf
// extractor; anything else is read as plain text.
func (a *Activities) ExtractTextActivity(ctx context.Context, in ExtractTextInput) (ExtractTextOutput, error) {
	_ = ctx
	var text string
	if strings.HasSuffix(strings.ToLower(in.BookPath), ".pdf") {
		f, r, err := pdf.Open(in.BookPath)
		if err != nil {
			return ExtractTextOutput{}, fmt.Errorf("open pdf: %w", err)
		}
		defer f.Close()
		reader, err := r.GetPlainText()
		if err != nil {
			return ExtractTextOutput{}, fmt.Errorf("extract pdf text: %w", err)
		}
		buf := new(strings.Builder)
		if _, err := io.Copy(buf, reader); err != nil {
			return ExtractTextOutput{}, fmt.Errorf("read extracted text: %w", err)
		}
		text = buf.String()
	} else {
		raw, err := os.ReadFile(in.BookPath)
		if err != nil {
			return ExtractTextOutput{}, fmt.Errorf("read book file: %w", err)
		}
		text = string(raw)
	}
	text = util.SanitizeText(text)
	if text == "" {
		return ExtractTextOutput{}, util.ErrNoExtractableText
	}
	if a.cfg.DataOutRoot != "" && in.BookTitle != "" {
		dir := util.SafeJoin(a.cfg.DataOutRoot, segmenter.Slug(in.BookTitle))
		if err := util.WriteTextAtomic(filepath.Join(dir, "extracted.txt"), text); err != nil {
			log.Warn("[Extract] could not persist extracted text", "book", in.BookTitle, "err", err)
		}
	}
	log.Debug("[Extract] text ready", "book", in.BookTitle, "chars", len(text), "snippet", util.DisplaySnippet(text, 160))
	return ExtractTextOutput{Text: text, Checksum: util.SHA256Hex([]byte(text))}, nil
}

func (a *Activities) UpsertBookActivity(ctx context.Context, in UpsertBookInput) error {
	return a.bookRepo.Upsert(ctx, models.Book{Title: in.Title, Author: in.Author, Source: in.Source})
}

func (a *Activities) SegmentTextActivity(ctx context.Context, in SegmentTextInput) (SegmentTextOutput, error) {
	_ = ctx
	segs := segmenter.Split(in.BookTitle, in.Text, a.cfg.SegmentSize, a.cfg.SegmentOverlap)
	out := SegmentTextOutput{Segments: make([]SegmentPiece, 0, len(segs))}
	for _, s := range segs {
		out.Segments = append(out.Segments, SegmentPiece{SegmentID: s.ID, SeqIndex: s.SeqIndex, Text: s.Text})
	}
	return out, nil
}

// AnalyzeSegmentActivity runs the oracle over one segment and persists
// the segment with its analysis. Character rows are created up front so
// mention edges can reference them.
func (a *Activities) AnalyzeSegmentActivity(ctx context.Context, in AnalyzeSegmentInput) (AnalyzeSegmentOutput, error) {
	analysis := a.analyzer.Analyze(ctx, in.BookTitle, in.SegmentID, in.Text)

	seg := models.Segment{
		SegmentID:           in.SegmentID,
		BookTitle:           in.BookTitle,
		BookAuthor:          in.BookAuthor,
		SeqIndex:            in.SeqIndex,
		Text:                in.Text,
		Source:              in.Source,
		CharactersMentioned: analysis.CharactersMentioned,
		Locations:           analysis.Locations,
		KeyEvents:           analysis.KeyEvents,
		MoodTone:            analysis.MoodTone,
		Relationships:       analysis.Relationships,
		Themes:              analysis.Themes,
		DialogueSpeakers:    analysis.DialogueSpeakers,
		NarrativeStyle:      analysis.NarrativeStyle,
	}
	if err := a.segmentRepo.Upsert(ctx, seg); err != nil {
		return AnalyzeSegmentOutput{}, err
	}
	for _, name := range analysis.CharactersMentioned {
		if err := a.characterRepo.EnsureExists(ctx, name); err != nil {
			return AnalyzeSegmentOutput{}, err
		}
	}
	return AnalyzeSegmentOutput{CharactersMentioned: analysis.CharactersMentioned}, nil
}

func (a *Activities) ProfileCharacterActivity(ctx context.Context, in ProfileCharacterInput) error {
	profile, err := a.profiler.Profile(ctx, in.BookTitle, in.Name)
	if err != nil {
		return err
	}
	return a.characterRepo.UpsertProfile(ctx, profile)
}

func (a *Activities) LinkGraphActivity(ctx context.Context, in LinkGraphInput) (LinkGraphOutput, error) {
	if err := a.graphRepo.LinkReadingOrder(ctx, in.BookTitle); err != nil {
		return LinkGraphOutput{}, err
	}
	if err := a.graphRepo.LinkMentions(ctx, in.BookTitle); err != nil {
		return LinkGraphOutput{}, err
	}
	if err := a.graphRepo.UpsertChapters(ctx, in.BookTitle, a.cfg.ChapterSegments); err != nil {
		return LinkGraphOutput{}, err
	}
	relations, err := a.graphRepo.LinkRelations(ctx, in.BookTitle)
	if err != nil {
		return LinkGraphOutput{}, err
	}
	return LinkGraphOutput{Relations: relations}, nil
}

func (a *Activities) ListCharacterNamesActivity(ctx context.Context) (ListCharacterNamesOutput, error) {
	names, err := a.characterRepo.ListNames(ctx)
	if err != nil {
		return ListCharacterNamesOutput{}, err
	}
	return ListCharacterNamesOutput{Names: names}, nil
}

func (a *Activities) FindDuplicateCharactersActivity(ctx context.Context, in FindDuplicateCharactersInput) (FindDuplicateCharactersOutput, error) {
	groups := a.resolver.FindDuplicates(ctx, in.Names)
	return FindDuplicateCharactersOutput{Groups: groups}, nil
}

func (a *Activities) MergeCharactersActivity(ctx context.Context, in MergeCharactersInput) (MergeCharactersOutput, error) {
	plan := identity.BuildMergePlan(in.Groups)
	if err := identity.ApplyMergePlan(ctx, a.characterRepo, plan); err != nil {
		return MergeCharactersOutput{}, err
	}
	return MergeCharactersOutput{Merges: len(plan)}, nil
}

// EmbedSegmentsActivity vectorizes one batch of segments that still
// lack embeddings. A segment whose row update fails is skipped so the
// batch keeps moving; the workflow loops until Embedded is zero.
func (a *Activities) EmbedSegmentsActivity(ctx context.Context, in EmbedSegmentsInput) (EmbedSegmentsOutput, error) {
	batch := in.BatchSize
	if batch <= 0 {
		batch = a.cfg.EmbedBatchSize
	}
	segs, err := a.segmentRepo.MissingEmbeddings(ctx, batch)
	if err != nil {
		return EmbedSegmentsOutput{}, err
	}
	if len(segs) == 0 {
		return EmbedSegmentsOutput{}, nil
	}
	inputs := make([]string, 0, len(segs))
	for _, s := range segs {
		inputs = append(inputs, s.Text)
	}
	vecs, info, err := a.providers.FailoverEmbedder().Embed(ctx, providers.EmbedRequest{
		Operation: "segment_embed",
		Inputs:    inputs,
		InputType: providers.InputTypeDocument,
		Dimension: a.cfg.EmbedDim,
	})
	if err != nil {
		return EmbedSegmentsOutput{}, fmt.Errorf("embed batch via %s: %w", info.Name, err)
	}
	if len(vecs) != len(segs) {
		return EmbedSegmentsOutput{}, fmt.Errorf("embedder returned %d vectors for %d segments", len(vecs), len(segs))
	}
	out := EmbedSegmentsOutput{}
	for i, s := range segs {
		if err := a.segmentRepo.UpdateEmbedding(ctx, s.SegmentID, vecs[i], a.cfg.EmbedVersion); err != nil {
			log.Warn("[Embed] segment update failed", "segment", s.SegmentID, "err", err)
			out.Skipped++
			continue
		}
		out.Embedded++
	}
	return out, nil
}

func (a *Activities) WriteIndexSummaryActivity(ctx context.Context, in WriteIndexSummaryInput) error {
	_ = ctx
	// Titles and run ids come from request input; SafeJoin keeps the
	// artifact inside the data-out root.
	bookDir := util.SafeJoin(a.cfg.DataOutRoot, segmenter.Slug(in.BookTitle))
	runDir := util.SafeJoin(filepath.Join(bookDir, "runs"), in.RunID)
	return util.WriteJSONAtomic(filepath.Join(runDir, "index_summary.json"), in.Summary)
}
