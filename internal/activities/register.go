package activities

import "go.temporal.io/sdk/worker"

func Register(w worker.Worker, a *Activities) {
	w.RegisterActivity(a.ExtractTextActivity)
	w.RegisterActivity(a.UpsertBookActivity)
	w.RegisterActivity(a.SegmentTextActivity)
	w.RegisterActivity(a.AnalyzeSegmentActivity)
	w.RegisterActivity(a.ProfileCharacterActivity)
	w.RegisterActivity(a.LinkGraphActivity)
	w.RegisterActivity(a.ListCharacterNamesActivity)
	w.RegisterActivity(a.FindDuplicateCharactersActivity)
	w.RegisterActivity(a.MergeCharactersActivity)
	w.RegisterActivity(a.EmbedSegmentsActivity)
	w.RegisterActivity(a.WriteIndexSummaryActivity)
}
