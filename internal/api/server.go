package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"bookgraph/internal/config"
	"bookgraph/internal/persona"
	"bookgraph/internal/providers"
	"bookgraph/internal/retrieval"
	"bookgraph/internal/storage"
	"bookgraph/internal/vector"
	"bookgraph/internal/workflows"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	enumspb "go.temporal.io/api/enums/v1"
	tclient "go.temporal.io/sdk/client"
)

type Server struct {
	cfg           config.Config
	db            *storage.DB
	bookRepo      *storage.BookRepo
	segmentRepo   *storage.SegmentRepo
	characterRepo *storage.CharacterRepo
	graphRepo     *storage.GraphRepo
	searcher      *vector.Searcher
	providers     *providers.Manager
	retriever     *retrieval.Retriever
	responder     *persona.Responder
	temporal      tclient.Client
	initErr       error
}

// NewServer wires the full chat surface. Initialization failures are
// recorded instead of raised so the process can serve health checks and
// report a clear error on every other route.
func NewServer(cfg config.Config) *Server {
	s := &Server{cfg: cfg}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	db, err := storage.NewDB(ctx, cfg.PostgresURL)
	if err != nil {
		s.initErr = fmt.Errorf("connect storage: %w", err)
		return s
	}
	if err := storage.EnsureSchema(ctx, db, cfg.EmbedDim); err != nil {
		s.initErr = fmt.Errorf("prepare schema: %w", err)
		return s
	}
	pm, err := providers.NewManager(cfg)
	if err != nil {
		s.initErr = fmt.Errorf("build providers: %w", err)
		return s
	}
	tc, err := tclient.Dial(tclient.Options{HostPort: cfg.TemporalAddress})
	if err != nil {
		s.initErr = fmt.Errorf("connect temporal: %w", err)
		return s
	}

	s.db = db
	s.bookRepo = storage.NewBookRepo(db)
	s.segmentRepo = storage.NewSegmentRepo(db)
	s.characterRepo = storage.NewCharacterRepo(db)
	s.graphRepo = storage.NewGraphRepo(db)
	s.searcher = vector.NewSearcher(db.Pool)
	s.providers = pm
	s.retriever = retrieval.NewRetriever(pm.FailoverEmbedder(), s.searcher, &graphContext{segments: s.segmentRepo, graph: s.graphRepo}, cfg.RetrieveTopK, cfg.EmbedDim)
	s.responder = persona.NewResponder(pm.FailoverLLM())
	s.temporal = tc
	return s
}

// graphContext adapts the repos to the retriever's graph interface.
type graphContext struct {
	segments *storage.SegmentRepo
	graph    *storage.GraphRepo
}

func (g *graphContext) Window(ctx context.Context, segmentID string) (string, error) {
	return g.segments.Window(ctx, segmentID)
}

func (g *graphContext) MentionedCharacters(ctx context.Context, segmentIDs []string) ([]string, error) {
	return g.graph.MentionedCharacters(ctx, segmentIDs)
}

func (s *Server) Routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", s.handleHealthz)
	mux.HandleFunc("/books", s.ready(s.handleBooks))
	mux.HandleFunc("/books/", s.ready(s.handleBookScoped))
	mux.HandleFunc("/characters", s.ready(s.handleCharacters))
	mux.HandleFunc("/characters/", s.ready(s.handleCharacterScoped))
	mux.HandleFunc("/chat", s.ready(s.handleChat))
	mux.HandleFunc("/stats", s.ready(s.handleStats))
	mux.HandleFunc("/index", s.ready(s.handleIndex))
	mux.HandleFunc("/index/", s.ready(s.handleIndexScoped))
	return withCORS(mux)
}

// ready gates every data route behind successful initialization.
func (s *Server) ready(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if s.initErr != nil {
			writeErr(w, http.StatusServiceUnavailable, s.initErr)
			return
		}
		next(w, r)
	}
}

func (s *Server) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	if s.initErr != nil {
		writeJSON(w, http.StatusOK, map[string]any{"ok": false, "error": s.initErr.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"ok":              true,
		"llm_providers":   s.providers.LLMCount(),
		"embed_providers": s.providers.EmbedCount(),
	})
}

func (s *Server) handleBooks(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeErr(w, http.StatusMethodNotAllowed, fmt.Errorf("method not allowed"))
		return
	}
	books, err := s.bookRepo.List(r.Context())
	if err != nil {
		writeErr(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"books": books})
}

func (s *Server) handleCharacters(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeErr(w, http.StatusMethodNotAllowed, fmt.Errorf("method not allowed"))
		return
	}
	names, err := s.characterRepo.ListNames(r.Context())
	if err != nil {
		writeErr(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"characters": names})
}

func (s *Server) handleBookScoped(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeErr(w, http.StatusMethodNotAllowed, fmt.Errorf("method not allowed"))
		return
	}
	title := strings.TrimSpace(strings.TrimPrefix(r.URL.Path, "/books/"))
	if title == "" {
		writeErr(w, http.StatusNotFound, fmt.Errorf("not found"))
		return
	}
	segments, err := s.segmentRepo.CountForBook(r.Context(), title)
	if err != nil {
		writeErr(w, http.StatusInternalServerError, err)
		return
	}
	if segments == 0 {
		writeErr(w, http.StatusNotFound, fmt.Errorf("book not found"))
		return
	}
	chapters, err := s.graphRepo.ChaptersForBook(r.Context(), title)
	if err != nil {
		writeErr(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"book_title": title,
		"segments":   segments,
		"chapters":   chapters,
	})
}

func (s *Server) handleCharacterScoped(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeErr(w, http.StatusMethodNotAllowed, fmt.Errorf("method not allowed"))
		return
	}
	name := strings.TrimPrefix(r.URL.Path, "/characters/")
	name = strings.TrimSpace(name)
	if name == "" {
		writeErr(w, http.StatusNotFound, fmt.Errorf("not found"))
		return
	}
	profile, found, err := s.characterRepo.Get(r.Context(), name)
	if err != nil {
		writeErr(w, http.StatusInternalServerError, err)
		return
	}
	if !found {
		writeErr(w, http.StatusNotFound, fmt.Errorf("character not found"))
		return
	}
	mentions, err := s.characterRepo.MentionsFor(r.Context(), name, 50)
	if err != nil {
		writeErr(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"profile":  profile,
		"mentions": mentions,
	})
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeErr(w, http.StatusMethodNotAllowed, fmt.Errorf("method not allowed"))
		return
	}
	var req struct {
		Character string `json:"character"`
		Message   string `json:"message"`
		Mode      string `json:"mode"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErr(w, http.StatusBadRequest, fmt.Errorf("invalid json: %w", err))
		return
	}
	req.Character = strings.TrimSpace(req.Character)
	req.Message = strings.TrimSpace(req.Message)
	if req.Character == "" || req.Message == "" {
		writeErr(w, http.StatusBadRequest, fmt.Errorf("character and message are required"))
		return
	}

	profile, found, err := s.characterRepo.Get(r.Context(), req.Character)
	if err != nil {
		writeErr(w, http.StatusInternalServerError, err)
		return
	}
	if !found {
		writeErr(w, http.StatusNotFound, fmt.Errorf("character not found"))
		return
	}

	mode := retrieval.ParseMode(req.Mode)
	contextBlock := s.retriever.Retrieve(r.Context(), req.Character, req.Message, mode)
	reply, err := s.responder.Respond(r.Context(), profile, contextBlock, req.Message)
	if err != nil {
		log.Warn("[Chat] reply degraded", "character", req.Character, "err", err)
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"response":  reply,
		"character": req.Character,
		"mode":      string(mode),
	})
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeErr(w, http.StatusMethodNotAllowed, fmt.Errorf("method not allowed"))
		return
	}
	stats, err := s.bookRepo.Stats(r.Context())
	if err != nil {
		writeErr(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeErr(w, http.StatusMethodNotAllowed, fmt.Errorf("method not allowed"))
		return
	}
	var req struct {
		BookTitle   string                 `json:"book_title"`
		Author      string                 `json:"author"`
		BookPath    string                 `json:"book_path"`
		SeriesTitle string                 `json:"series_title"`
		Books       []workflows.SeriesBook `json:"books"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErr(w, http.StatusBadRequest, fmt.Errorf("invalid json: %w", err))
		return
	}

	runID := uuid.NewString()
	opts := tclient.StartWorkflowOptions{
		TaskQueue:                                s.cfg.TemporalTaskQueue,
		WorkflowIDReusePolicy:                    enumspb.WORKFLOW_ID_REUSE_POLICY_ALLOW_DUPLICATE,
		WorkflowExecutionErrorWhenAlreadyStarted: true,
	}

	if strings.TrimSpace(req.SeriesTitle) != "" && len(req.Books) > 0 {
		opts.ID = "series-" + runID
		we, err := s.temporal.ExecuteWorkflow(r.Context(), opts, workflows.SeriesIndexWorkflow, workflows.SeriesIndexInput{
			SeriesTitle: req.SeriesTitle,
			Books:       req.Books,
			RunID:       runID,
		})
		if err != nil {
			writeErr(w, http.StatusConflict, err)
			return
		}
		writeJSON(w, http.StatusAccepted, map[string]any{"workflow_id": we.GetID(), "run_id": we.GetRunID()})
		return
	}

	if strings.TrimSpace(req.BookTitle) == "" || strings.TrimSpace(req.BookPath) == "" {
		writeErr(w, http.StatusBadRequest, fmt.Errorf("book_title and book_path are required"))
		return
	}
	opts.ID = "index-" + runID
	we, err := s.temporal.ExecuteWorkflow(r.Context(), opts, workflows.BookIndexWorkflow, workflows.BookIndexInput{
		BookTitle: req.BookTitle,
		Author:    req.Author,
		BookPath:  req.BookPath,
		RunID:     runID,
	})
	if err != nil {
		writeErr(w, http.StatusConflict, err)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]any{"workflow_id": we.GetID(), "run_id": we.GetRunID()})
}

func (s *Server) handleIndexScoped(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeErr(w, http.StatusMethodNotAllowed, fmt.Errorf("method not allowed"))
		return
	}
	workflowID := strings.TrimPrefix(r.URL.Path, "/index/")
	workflowID = strings.TrimSpace(workflowID)
	if workflowID == "" {
		writeErr(w, http.StatusNotFound, fmt.Errorf("not found"))
		return
	}

	desc, err := s.temporal.DescribeWorkflowExecution(r.Context(), workflowID, "")
	if err != nil {
		writeErr(w, http.StatusNotFound, fmt.Errorf("workflow not found: %w", err))
		return
	}
	status := enumspb.WORKFLOW_EXECUTION_STATUS_UNSPECIFIED
	if info := desc.GetWorkflowExecutionInfo(); info != nil {
		status = info.GetStatus()
	}
	out := map[string]any{
		"workflow_id": workflowID,
		"status":      strings.ToLower(strings.TrimPrefix(status.String(), "WORKFLOW_EXECUTION_STATUS_")),
	}

	queryName := workflows.QueryGetIndexProgress
	if strings.HasPrefix(workflowID, "series-") {
		queryName = workflows.QueryGetSeriesProgress
	}
	if resp, qErr := s.temporal.QueryWorkflow(r.Context(), workflowID, "", queryName); qErr == nil {
		var progress map[string]any
		if gErr := resp.Get(&progress); gErr == nil {
			out["progress"] = progress
		}
	}
	writeJSON(w, http.StatusOK, out)
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeErr(w http.ResponseWriter, code int, err error) {
	apiErr := toAPIError(code, err)
	writeJSON(w, code, map[string]any{
		"error": map[string]any{
			"code":    apiErr.Code,
			"message": apiErr.Message,
		},
	})
}

type apiError struct {
	Code    string
	Message string
}

func toAPIError(status int, err error) apiError {
	msg := "Request failed."
	code := "BG-API-4000"
	raw := ""
	if err != nil {
		raw = strings.ToLower(err.Error())
	}

	switch {
	case status == http.StatusServiceUnavailable:
		return apiError{
			Code:    "BG-API-5003",
			Message: "Service is not initialized. Check database and temporal connectivity.",
		}
	case status >= 500:
		switch {
		case strings.Contains(raw, "relation") && strings.Contains(raw, "does not exist"):
			return apiError{
				Code:    "BG-DB-5001",
				Message: "Database schema is not initialized. Restart the service and retry.",
			}
		case strings.Contains(raw, "connect"), strings.Contains(raw, "dial tcp"), strings.Contains(raw, "connection refused"):
			return apiError{
				Code:    "BG-DB-5002",
				Message: "Database connection is unavailable. Check local services and retry.",
			}
		default:
			return apiError{
				Code:    "BG-API-5000",
				Message: "Internal server error. Please retry or check service logs.",
			}
		}
	case status == http.StatusBadRequest:
		code = "BG-API-4001"
		msg = "Invalid request. Check inputs and retry."
	case status == http.StatusNotFound:
		code = "BG-API-4004"
		msg = "Requested resource was not found."
	case status == http.StatusConflict:
		code = "BG-API-4009"
		msg = "Operation conflicts with current state. Retry after checking status."
	case status == http.StatusMethodNotAllowed:
		code = "BG-API-4005"
		msg = "This endpoint does not support the requested method."
	}

	if status >= 400 && status < 500 && err != nil {
		low := strings.ToLower(err.Error())
		switch {
		case strings.Contains(low, "character and message are required"):
			msg = "Both character and message are required."
		case strings.Contains(low, "book_title and book_path are required"):
			msg = "Both book_title and book_path are required."
		case strings.Contains(low, "character not found"):
			msg = "Character not found. Index a book first or check the name."
		case strings.Contains(low, "invalid json"):
			msg = "Malformed JSON request body."
		}
	}

	return apiError{Code: code, Message: msg}
}

func withCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		w.Header().Set("Access-Control-Allow-Methods", "GET,POST,OPTIONS")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}
