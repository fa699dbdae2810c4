package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/nao1215/boardaid/internal/api"
	"github.com/nao1215/boardaid/internal/board"
	"github.com/nao1215/boardaid/internal/config"
	"github.com/nao1215/boardaid/internal/database"
	"github.com/nao1215/boardaid/internal/download"
	"github.com/nao1215/boardaid/internal/filter"
	"github.com/nao1215/boardaid/internal/schedule"
	"github.com/nao1215/boardaid/internal/site"
	"github.com/nao1215/boardaid/internal/stats"
	"github.com/nao1215/boardaid/internal/storage"
	"github.com/nao1215/boardaid/internal/thumbnail"
)

const shutdownTimeout = 10 * time.Second

// errNoBoardCode is returned when neither the configuration nor the site
// strategy yields a board short code.
var errNoBoardCode = errors.New("cannot derive board code from url")

// app is one boardaid session: the store, the filter, the download pool
// and the board schedulers wired together.
type app struct {
	cfg     *config.Config
	logger  *slog.Logger
	clients *clientSet
	db      *database.BoardDB
	filter  *filter.Filter
	stats   *stats.Recorder
	loader  *download.Loader
	sched   *schedule.Scheduler
	boards  *board.Manager
	exit    func(code int)

	// autostart holds the codes of the boards started with the session.
	autostart map[string]bool
}

type appOption func(*app)

// withExit replaces os.Exit for the rate limit shutdown.
func withExit(exit func(code int)) appOption {
	return func(a *app) {
		a.exit = exit
	}
}

// newApp opens the store and builds every component. The download
// workers run until ctx ends or close is called.
func newApp(ctx context.Context, cfg *config.Config, logger *slog.Logger, opts ...appOption) (*app, error) {
	a := &app{
		cfg:       cfg,
		logger:    logger,
		stats:     stats.NewRecorder(stats.DefaultSeriesLength),
		sched:     schedule.New(logger),
		boards:    board.NewManager(),
		exit:      os.Exit,
		autostart: make(map[string]bool),
	}
	for _, opt := range opts {
		opt(a)
	}

	var err error
	a.clients, err = newClientSet(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create http client: %w", err)
	}

	a.db, err = database.Open(cfg.DataDir, database.Options{
		CreateIfNotExists: true,
		EnableWAL:         true,
		PoolSize:          cfg.PoolSize,
		AcquireTimeout:    cfg.AcquireTimeout,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	a.filter = filter.New(a.db,
		filter.WithStatusChecker(a.clients),
		filter.WithStats(a.stats),
		filter.WithLogger(logger),
		filter.WithCacheMaxAge(cfg.CacheMaxAge),
	)
	if err := a.loadFilterList(); err != nil {
		_ = a.db.Close()
		return nil, err
	}
	if err := a.filter.SyncPending(ctx); err != nil {
		_ = a.db.Close()
		return nil, fmt.Errorf("failed to count pending threads: %w", err)
	}

	writer, err := newImageWriter(ctx, cfg, a.filter, logger)
	if err != nil {
		_ = a.db.Close()
		return nil, err
	}
	handler := download.NewImageHandler(a.filter, writer,
		download.WithHandlerStats(a.stats),
		download.WithHandlerLogger(logger),
		download.WithExit(a.rateLimited),
	)
	a.loader = download.NewLoader(ctx, a.clients,
		download.WithWorkers(cfg.Workers),
		download.WithHooks(handler.Hooks()),
		download.WithDownloadSleep(cfg.DownloadSleep),
		download.WithMaxSize(cfg.MaxImageSize),
		download.WithStats(a.stats),
		download.WithLogger(logger),
	)

	thumbs := thumbnail.NewLoader(a.clients, a.filter, thumbnail.WithLogger(logger))
	deps := board.Deps{
		Pages:  a.clients,
		Filter: a.filter,
		Thumbs: thumbs,
		Images: a.loader,
	}
	if err := a.addBoards(site.DefaultRegistry(), deps); err != nil {
		a.loader.Shutdown()
		_ = a.db.Close()
		return nil, err
	}
	return a, nil
}

// newImageWriter returns the S3 or local store wrapped in the content
// hash dedup.
func newImageWriter(ctx context.Context, cfg *config.Config, hashes storage.HashStore, logger *slog.Logger) (storage.Writer, error) {
	var base storage.Writer
	if cfg.S3.Enabled() {
		s3, err := storage.NewS3(ctx, storage.S3Config{
			Endpoint:  cfg.S3.Endpoint,
			Bucket:    cfg.S3.Bucket,
			Region:    cfg.S3.Region,
			Prefix:    cfg.S3.Prefix,
			AccessKey: cfg.S3.AccessKey,
			SecretKey: cfg.S3.SecretKey,
			UseSSL:    cfg.S3.UseSSL,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to open S3 bucket: %w", err)
		}
		logger.Info("storing images in S3", "endpoint", cfg.S3.Endpoint, "bucket", cfg.S3.Bucket)
		base = s3
	} else {
		logger.Info("storing images on disk", "dir", cfg.DownloadDir)
		base = storage.NewLocal(cfg.DownloadDir)
	}
	return storage.NewDedup(base, hashes, logger), nil
}

func (a *app) addBoards(registry *site.Registry, deps board.Deps) error {
	for _, entry := range a.cfg.Boards {
		strategy, err := resolveStrategy(registry, entry)
		if err != nil {
			return fmt.Errorf("board %s: %w", entry.URL, err)
		}
		code := entry.Code
		if code == "" {
			code = strategy.BoardShortcut(entry.URL)
		}
		if code == "" {
			return fmt.Errorf("%w: %s", errNoBoardCode, entry.URL)
		}

		b := board.New(code, entry.URL, strategy, a.sched, deps,
			board.WithLogger(a.logger),
			board.WithInterval(a.cfg.CrawlInterval),
			board.WithDelay(entry.Delay),
		)
		if err := a.boards.Add(b); err != nil {
			return err
		}
		if entry.Autostart {
			a.autostart[code] = true
		}
	}
	return nil
}

func resolveStrategy(registry *site.Registry, entry config.BoardEntry) (site.Strategy, error) {
	if entry.Site != "" {
		return registry.ByName(entry.Site)
	}
	return registry.ForURL(entry.URL)
}

// loadFilterList loads the block lists. A missing file leaves them empty.
func (a *app) loadFilterList() error {
	if _, err := os.Stat(a.cfg.FilterListPath); errors.Is(err, os.ErrNotExist) {
		a.logger.Info("no filter list yet, starting with empty block lists", "path", a.cfg.FilterListPath)
		return nil
	}
	if err := a.filter.LoadFilterListFile(a.cfg.FilterListPath); err != nil {
		return err
	}
	a.logger.Debug("filter list loaded",
		"path", a.cfg.FilterListPath,
		"fileNames", a.filter.FileNames().Len(),
		"postContent", a.filter.PostContent().Len(),
	)
	return nil
}

func (a *app) saveFilterList() {
	if err := a.filter.SaveFilterListFile(a.cfg.FilterListPath); err != nil {
		a.logger.Error("failed to save filter list", "path", a.cfg.FilterListPath, "error", err)
	}
}

// rateLimited keeps the block lists before the process ends with code.
func (a *app) rateLimited(code int) {
	a.saveFilterList()
	a.exit(code)
}

// run crawls until ctx ends. With cfg.Once every board is crawled a single
// time and run returns when the download queue is drained.
func (a *app) run(ctx context.Context) error {
	a.sched.Start()

	if a.cfg.Once {
		a.boards.RunOnce(ctx)
		if err := a.loader.Wait(ctx); err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	}

	a.filter.StartUpdater(ctx, a.sched, a.cfg.RefreshInterval)
	for _, b := range a.boards.List() {
		if a.autostart[b.Code()] {
			b.StartDefault(ctx)
			a.logger.Info("board started", "board", b.String(), "delay", b.Delay())
		}
	}

	var errCh chan error
	var srv *http.Server
	if a.cfg.APIAddress != "" {
		srv = &http.Server{
			Addr:              a.cfg.APIAddress,
			Handler:           api.NewServer(ctx, a.boards, a.filter, a.loader, a.stats, a.logger).Handler(),
			ReadHeaderTimeout: 10 * time.Second,
		}
		errCh = make(chan error, 1)
		go func() {
			a.logger.Info("control API listening", "address", a.cfg.APIAddress)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errCh <- err
			}
		}()
	}

	var err error
	select {
	case <-ctx.Done():
	case err = <-errCh:
		err = fmt.Errorf("control API failed: %w", err)
	}

	if srv != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if serr := srv.Shutdown(shutdownCtx); serr != nil {
			a.logger.Warn("control API shutdown failed", "error", serr)
		}
	}
	return err
}

// close stops the boards and the workers, saves the block lists and
// closes the store.
func (a *app) close() {
	a.boards.StopAll()
	a.loader.Shutdown()

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	a.sched.Stop(ctx)

	a.saveFilterList()
	if err := a.db.Close(); err != nil {
		a.logger.Error("failed to close database", "error", err)
	}
}
