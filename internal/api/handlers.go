package api

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/nao1215/boardaid/internal/board"
	"github.com/nao1215/boardaid/internal/filter"
	"github.com/nao1215/boardaid/internal/stats"
)

type boardView struct {
	Code   string `json:"code"`
	URL    string `json:"url"`
	State  string `json:"state"`
	Status string `json:"status"`
}

func viewOf(b *board.Board) boardView {
	return boardView{Code: b.Code(), URL: b.URL(), State: b.State().String(), Status: b.Status()}
}

func (s *Server) handleBoards(w http.ResponseWriter, _ *http.Request) {
	list := s.boards.List()
	views := make([]boardView, 0, len(list))
	for _, b := range list {
		views = append(views, viewOf(b))
	}
	s.respondJSON(w, http.StatusOK, views)
}

// handleBoardStart starts a board. The optional delay query parameter is
// a Go duration such as "10m"; without it the configured delay is used.
func (s *Server) handleBoardStart(w http.ResponseWriter, r *http.Request) {
	b, ok := s.board(w, r)
	if !ok {
		return
	}

	delay := b.Delay()
	if raw := r.URL.Query().Get("delay"); raw != "" {
		d, err := time.ParseDuration(raw)
		if err != nil || d < 0 {
			s.respondError(w, http.StatusBadRequest, fmt.Errorf("invalid delay %q", raw))
			return
		}
		delay = d
	}
	b.Start(s.ctx, delay)
	s.respondJSON(w, http.StatusOK, viewOf(b))
}

func (s *Server) handleBoardStop(w http.ResponseWriter, r *http.Request) {
	b, ok := s.board(w, r)
	if !ok {
		return
	}
	b.Stop()
	s.respondJSON(w, http.StatusOK, viewOf(b))
}

func (s *Server) board(w http.ResponseWriter, r *http.Request) (*board.Board, bool) {
	b, err := s.boards.Get(chi.URLParam(r, "code"))
	if err != nil {
		s.respondError(w, http.StatusNotFound, err)
		return nil, false
	}
	return b, true
}

func (s *Server) handlePending(w http.ResponseWriter, r *http.Request) {
	items, err := s.filter.PendingItems(r.Context())
	if err != nil {
		s.respondError(w, http.StatusInternalServerError, err)
		return
	}
	s.respondJSON(w, http.StatusOK, items)
}

type urlRequest struct {
	URL string `json:"url"`
}

func (s *Server) handleDecision(decide func(ctx context.Context, url string) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req urlRequest
		if err := decode(w, r, &req); err != nil {
			s.respondError(w, http.StatusBadRequest, err)
			return
		}
		if strings.TrimSpace(req.URL) == "" {
			s.respondError(w, http.StatusBadRequest, ErrMissingURL)
			return
		}
		if err := decide(r.Context(), req.URL); err != nil {
			s.respondError(w, http.StatusInternalServerError, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

type recheckResponse struct {
	Started bool `json:"started"`
}

func (s *Server) handleRecheck(w http.ResponseWriter, _ *http.Request) {
	s.respondJSON(w, http.StatusAccepted, recheckResponse{Started: s.filter.RecheckAll(s.ctx)})
}

func (s *Server) handleThumbs(w http.ResponseWriter, r *http.Request) {
	thread := r.URL.Query().Get("url")
	if thread == "" {
		s.respondError(w, http.StatusBadRequest, ErrMissingURL)
		return
	}
	thumbs, err := s.filter.Thumbs(r.Context(), thread)
	if err != nil {
		s.respondError(w, http.StatusInternalServerError, err)
		return
	}
	s.respondJSON(w, http.StatusOK, thumbs)
}

func (s *Server) blockList(kind string) (*filter.BlockList, error) {
	switch kind {
	case ListFileNames:
		return s.filter.FileNames(), nil
	case ListPostContent:
		return s.filter.PostContent(), nil
	default:
		return nil, fmt.Errorf("%s: %w", kind, ErrUnknownList)
	}
}

func (s *Server) handleBlockList(w http.ResponseWriter, r *http.Request) {
	list, err := s.blockList(chi.URLParam(r, "kind"))
	if err != nil {
		s.respondError(w, http.StatusNotFound, err)
		return
	}
	s.respondJSON(w, http.StatusOK, list.Entries())
}

type termRequest struct {
	Term string `json:"term"`
}

type changeResponse struct {
	Changed bool `json:"changed"`
}

func (s *Server) handleBlockListAdd(w http.ResponseWriter, r *http.Request) {
	list, err := s.blockList(chi.URLParam(r, "kind"))
	if err != nil {
		s.respondError(w, http.StatusNotFound, err)
		return
	}
	var req termRequest
	if err := decode(w, r, &req); err != nil {
		s.respondError(w, http.StatusBadRequest, err)
		return
	}
	if strings.TrimSpace(req.Term) == "" {
		s.respondError(w, http.StatusBadRequest, ErrMissingTerm)
		return
	}
	s.respondJSON(w, http.StatusOK, changeResponse{Changed: list.Add(req.Term)})
}

// handleBlockListRemove removes the term given in the term query parameter.
func (s *Server) handleBlockListRemove(w http.ResponseWriter, r *http.Request) {
	list, err := s.blockList(chi.URLParam(r, "kind"))
	if err != nil {
		s.respondError(w, http.StatusNotFound, err)
		return
	}
	term := r.URL.Query().Get("term")
	if strings.TrimSpace(term) == "" {
		s.respondError(w, http.StatusBadRequest, ErrMissingTerm)
		return
	}
	s.respondJSON(w, http.StatusOK, changeResponse{Changed: list.Remove(term)})
}

type clearResponse struct {
	Cleared int `json:"cleared"`
}

func (s *Server) handleQueueClear(w http.ResponseWriter, _ *http.Request) {
	s.respondJSON(w, http.StatusOK, clearResponse{Cleared: s.queue.Clear()})
}

type statsResponse struct {
	QueueLen int            `json:"queue_len"`
	Stats    stats.Snapshot `json:"stats"`
}

func (s *Server) handleStats(w http.ResponseWriter, _ *http.Request) {
	s.respondJSON(w, http.StatusOK, statsResponse{QueueLen: s.queue.QueueLen(), Stats: s.stats.Snapshot()})
}
