package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/nao1215/boardaid/internal/board"
	"github.com/nao1215/boardaid/internal/filter"
	"github.com/nao1215/boardaid/internal/model"
	"github.com/nao1215/boardaid/internal/stats"
)

// maxBodySize caps request bodies.
const maxBodySize = 1 << 20

// Block list names used in /blocklist/{kind}.
const (
	ListFileNames   = "filenames"
	ListPostContent = "content"
)

var (
	// ErrUnknownList is returned for an unknown block list name.
	ErrUnknownList = errors.New("unknown block list")

	// ErrMissingURL is returned when a request names no thread URL.
	ErrMissingURL = errors.New("missing url")

	// ErrMissingTerm is returned when a request names no block list term.
	ErrMissingTerm = errors.New("missing term")
)

// Boards is the board registry controlled by the API.
type Boards interface {
	List() []*board.Board
	Get(code string) (*board.Board, error)
}

// Filter is the review and block list surface of the filter.
type Filter interface {
	PendingItems(ctx context.Context) ([]model.FilterItem, error)
	SetAllow(ctx context.Context, url string) error
	SetDeny(ctx context.Context, url string) error
	RecheckAll(ctx context.Context) bool
	Thumbs(ctx context.Context, thread string) ([]model.Thumbnail, error)
	FileNames() *filter.BlockList
	PostContent() *filter.BlockList
}

// Queue is the download queue.
type Queue interface {
	Clear() int
	QueueLen() int
}

// StatsSource provides the runtime counters.
type StatsSource interface {
	Snapshot() stats.Snapshot
}

// Server holds the API dependencies.
type Server struct {
	// ctx outlives requests; boards and rechecks started through the API run with it.
	ctx    context.Context
	boards Boards
	filter Filter
	queue  Queue
	stats  StatsSource
	logger *slog.Logger
}

// NewServer creates the API. Background work started by requests runs
// with ctx.
func NewServer(ctx context.Context, boards Boards, f Filter, q Queue, s StatsSource, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{ctx: ctx, boards: boards, filter: f, queue: q, stats: s, logger: logger}
}

// Handler returns the router.
func (s *Server) Handler() http.Handler {
	mux := chi.NewRouter()
	mux.Use(middleware.RequestID)
	mux.Use(requestLogger(s.logger))
	mux.Use(middleware.Recoverer)

	mux.Get("/boards", s.handleBoards)
	mux.Post("/boards/{code}/start", s.handleBoardStart)
	mux.Post("/boards/{code}/stop", s.handleBoardStop)

	mux.Route("/filters", func(r chi.Router) {
		r.Get("/pending", s.handlePending)
		r.Post("/allow", s.handleDecision(s.filter.SetAllow))
		r.Post("/deny", s.handleDecision(s.filter.SetDeny))
		r.Post("/recheck", s.handleRecheck)
		r.Get("/thumbs", s.handleThumbs)
	})

	mux.Get("/blocklist/{kind}", s.handleBlockList)
	mux.Post("/blocklist/{kind}", s.handleBlockListAdd)
	mux.Delete("/blocklist/{kind}", s.handleBlockListRemove)

	mux.Post("/queue/clear", s.handleQueueClear)
	mux.Get("/stats", s.handleStats)
	return mux
}

// requestLogger logs one record per request.
func requestLogger(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			next.ServeHTTP(ww, r)
			logger.Debug("api request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"bytes", ww.BytesWritten(),
				"duration", time.Since(start),
				"request_id", middleware.GetReqID(r.Context()),
			)
		})
	}
}

// respondJSON writes payload with the given status.
func (s *Server) respondJSON(w http.ResponseWriter, status int, payload any) {
	body, err := json.Marshal(payload)
	if err != nil {
		s.logger.Error("failed to marshal JSON payload", "error", err)
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if _, err := w.Write(body); err != nil {
		s.logger.Warn("failed to write JSON response", "error", err)
	}
}

type errorResponse struct {
	Error string `json:"error"`
}

func (s *Server) respondError(w http.ResponseWriter, status int, err error) {
	if status >= http.StatusInternalServerError {
		s.logger.Error("api request failed", "error", err)
	}
	s.respondJSON(w, status, errorResponse{Error: err.Error()})
}

// decode reads a JSON request body into v.
func decode(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodySize))
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}
