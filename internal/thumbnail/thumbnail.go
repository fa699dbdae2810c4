// Package thumbnail fetches preview images of suspended threads so a
// reviewer can judge them without downloading the full images.
package thumbnail

import (
	"bytes"
	"context"
	"log/slog"
	"path"
	"strings"

	"github.com/disintegration/imaging"
	_ "golang.org/x/image/webp" // WebP decoder for image.Decode

	"github.com/nao1215/boardaid/internal/model"
)

// Limits applied per thread.
const (
	// DefaultMaxThumbs is the number of thumbnails stored per thread.
	DefaultMaxThumbs = 17

	// DefaultMaxSize caps a single thumbnail download.
	DefaultMaxSize = 2 * 1024 * 1024

	// DefaultMaxDimension is the bounding box stored thumbnails are fit into.
	DefaultMaxDimension = 250
)

// Fetcher downloads a binary payload.
type Fetcher interface {
	FetchBinary(ctx context.Context, url string, maxSize int64) ([]byte, error)
}

// Store persists thumbnails.
type Store interface {
	AddThumb(ctx context.Context, thread, filename string, data []byte) error
}

// Loader downloads and stores thumbnails.
type Loader struct {
	fetcher   Fetcher
	store     Store
	logger    *slog.Logger
	maxThumbs int
	maxSize   int64
	maxDim    int
	urlFor    func(imageURL string) string
}

// Option configures a Loader.
type Option func(*Loader)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(t *Loader) {
		if l != nil {
			t.logger = l
		}
	}
}

// WithMaxThumbs sets the per-thread limit.
func WithMaxThumbs(n int) Option {
	return func(t *Loader) {
		if n > 0 {
			t.maxThumbs = n
		}
	}
}

// WithMaxDimension sets the bounding box for stored thumbnails.
// Zero stores payloads unchanged.
func WithMaxDimension(px int) Option {
	return func(t *Loader) {
		t.maxDim = px
	}
}

// WithURLMapper replaces the image to thumbnail URL mapping.
func WithURLMapper(fn func(imageURL string) string) Option {
	return func(t *Loader) {
		if fn != nil {
			t.urlFor = fn
		}
	}
}

// NewLoader creates a Loader.
func NewLoader(fetcher Fetcher, store Store, opts ...Option) *Loader {
	t := &Loader{
		fetcher:   fetcher,
		store:     store,
		logger:    slog.Default(),
		maxThumbs: DefaultMaxThumbs,
		maxSize:   DefaultMaxSize,
		maxDim:    DefaultMaxDimension,
		urlFor:    ThumbURL,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// ThumbURL derives the thumbnail URL of a 4chan image: the images host
// becomes the thumbs host, the src directory becomes thumb and the
// extension is replaced by "s.jpg".
func ThumbURL(imageURL string) string {
	u := strings.Replace(imageURL, "images", "thumbs", 1)
	u = strings.Replace(u, "/src/", "/thumb/", 1)
	if ext := path.Ext(u); ext != "" && !strings.Contains(ext, "/") {
		u = strings.TrimSuffix(u, ext) + "s.jpg"
	}
	return u
}

// DownloadThumbs stores up to the per-thread limit of thumbnails for the
// image posts of a thread and returns how many were stored. Failures are
// logged and skipped.
func (t *Loader) DownloadThumbs(ctx context.Context, threadURL string, posts []model.Post) int {
	stored := 0
	for _, p := range posts {
		if stored >= t.maxThumbs {
			break
		}
		if ctx.Err() != nil {
			break
		}
		if !p.HasImage() {
			continue
		}

		thumbURL := t.urlFor(p.ImageURL)
		data, err := t.fetcher.FetchBinary(ctx, thumbURL, t.maxSize)
		if err != nil {
			t.logger.Warn("failed to fetch thumbnail", "thread", threadURL, "url", thumbURL, "error", err)
			continue
		}

		name := thumbURL[strings.LastIndex(thumbURL, "/")+1:]
		if err := t.store.AddThumb(ctx, threadURL, name, t.normalize(data)); err != nil {
			t.logger.Warn("failed to store thumbnail", "thread", threadURL, "file", name, "error", err)
			continue
		}
		stored++
	}
	t.logger.Debug("stored thumbnails", "thread", threadURL, "count", stored)
	return stored
}

// normalize scales images larger than the bounding box down to fit it.
// Payloads that are not decodable images are stored as they are.
func (t *Loader) normalize(data []byte) []byte {
	if t.maxDim <= 0 {
		return data
	}
	img, err := imaging.Decode(bytes.NewReader(data))
	if err != nil {
		return data
	}
	b := img.Bounds()
	if b.Dx() <= t.maxDim && b.Dy() <= t.maxDim {
		return data
	}

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, imaging.Fit(img, t.maxDim, t.maxDim, imaging.Lanczos), imaging.JPEG, imaging.JPEGQuality(85)); err != nil {
		return data
	}
	return buf.Bytes()
}
