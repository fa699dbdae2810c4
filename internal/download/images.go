package download

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"sync/atomic"

	"github.com/nao1215/boardaid/internal/fetch"
	"github.com/nao1215/boardaid/internal/model"
	"github.com/nao1215/boardaid/internal/stats"
)

// ExitRateLimited is the process exit code used when a site answers 503.
const ExitRateLimited = 3

// CacheStore is the URL cache used by ImageHandler.
type CacheStore interface {
	IsCached(ctx context.Context, url string) (bool, error)
	Cache(ctx context.Context, url string) error
}

// FileWriter persists downloaded payloads under a relative path.
type FileWriter interface {
	Write(ctx context.Context, path string, data []byte) error
}

// ImageHandler holds the download policy for board images.
type ImageHandler struct {
	cache  CacheStore
	writer FileWriter
	sink   stats.Sink
	logger *slog.Logger
	exit   func(code int)
	halted atomic.Bool
}

// HandlerOption configures an ImageHandler.
type HandlerOption func(*ImageHandler)

// WithHandlerStats sets the sink receiving download sizes.
func WithHandlerStats(s stats.Sink) HandlerOption {
	return func(h *ImageHandler) {
		if s != nil {
			h.sink = s
		}
	}
}

// WithHandlerLogger sets the logger.
func WithHandlerLogger(l *slog.Logger) HandlerOption {
	return func(h *ImageHandler) {
		if l != nil {
			h.logger = l
		}
	}
}

// WithExit replaces os.Exit.
func WithExit(exit func(code int)) HandlerOption {
	return func(h *ImageHandler) {
		if exit != nil {
			h.exit = exit
		}
	}
}

// NewImageHandler creates the policy writing payloads to writer.
func NewImageHandler(cache CacheStore, writer FileWriter, opts ...HandlerOption) *ImageHandler {
	h := &ImageHandler{
		cache:  cache,
		writer: writer,
		sink:   stats.Discard,
		logger: slog.Default(),
		exit:   os.Exit,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Hooks returns the Loader hooks implementing the policy.
func (h *ImageHandler) Hooks() Hooks {
	return Hooks{
		BeforeAdd:     h.beforeAdd,
		AfterDownload: h.afterDownload,
	}
}

// beforeAdd drops cached URLs after refreshing their timestamp, and every
// URL once the handler has halted.
func (h *ImageHandler) beforeAdd(ctx context.Context, item model.DownloadItem) bool {
	if h.halted.Load() {
		return true
	}
	cached, err := h.cache.IsCached(ctx, item.URL)
	if err != nil {
		h.logger.Warn("cache lookup failed", "url", item.URL, "error", err)
		return false
	}
	if !cached {
		return false
	}
	if err := h.cache.Cache(ctx, item.URL); err != nil {
		h.logger.Warn("failed to refresh cache entry", "url", item.URL, "error", err)
	}
	return true
}

func (h *ImageHandler) afterDownload(ctx context.Context, item model.DownloadItem, data []byte, err error) {
	if h.halted.Load() {
		return
	}
	if err != nil {
		h.onError(ctx, item, err)
		return
	}

	if err := h.writer.Write(ctx, item.Path, data); err != nil {
		h.logger.Error("failed to write image", "path", item.Path, "url", item.URL, "error", err)
	}
	if err := h.cache.Cache(ctx, item.URL); err != nil {
		h.logger.Warn("failed to cache url", "url", item.URL, "error", err)
	}
	h.sink.AddDownload(len(data))
	h.logger.Debug("downloaded image", "url", item.URL, "path", item.Path, "bytes", len(data))
}

func (h *ImageHandler) onError(ctx context.Context, item model.DownloadItem, err error) {
	switch code := fetch.StatusCode(err); code {
	case http.StatusNotFound, http.StatusInternalServerError:
		// Remember dead links so later crawls skip them.
		if err := h.cache.Cache(ctx, item.URL); err != nil {
			h.logger.Warn("failed to cache url", "url", item.URL, "error", err)
		}
		h.logger.Info("image unavailable", "url", item.URL, "status", code)
	case http.StatusServiceUnavailable:
		if h.halted.CompareAndSwap(false, true) {
			h.logger.Error("IP was banned, terminating", "url", item.URL, "status", code)
			h.exit(ExitRateLimited)
		}
	case 0:
		h.logger.Warn("image download failed", "url", item.URL, "error", err)
	default:
		h.logger.Warn("unexpected status for image", "url", item.URL, "status", code)
	}
}
