package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/nao1215/boardaid/internal/config"
)

// NewRunCmd creates the run command.
func NewRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run [board-url...]",
		Short: "Crawl boards and download images",
		Long: `Run crawls the configured boards on a schedule and downloads the images of
every thread that passes the block lists. Threads that match are held for
review; use the control API to allow or deny them.

Boards given as arguments are added to the boards of the configuration file
and start immediately.

Examples:
  # Crawl a board every hour
  boardaid run https://boards.4chan.org/wg/

  # Crawl every configured board once and exit when the downloads finish
  boardaid run --once

  # Use a SOCKS5 proxy and four download workers
  boardaid run -x 127.0.0.1:9050 -w 4 https://boards.4chan.org/w/

The process exits with code 3 when a site answers 503, which means the
address was rate limited or banned.`,
		Args: cobra.ArbitraryArgs,
		RunE: runRunCmd,
	}

	cmd.Flags().IntP("workers", "w", config.DefaultWorkers,
		"Number of concurrent image downloads")
	cmd.Flags().Duration("sleep", config.DefaultDownloadSleep,
		"Pause before each image download")
	cmd.Flags().DurationP("timeout", "t", config.DefaultTimeout,
		"Timeout for each request")
	cmd.Flags().StringP("proxy", "x", "",
		"SOCKS5 proxy address (e.g., 127.0.0.1:9050)")
	cmd.Flags().Float64("rate", config.DefaultRateLimit,
		"Maximum requests per second across all boards (0 disables the limit)")
	cmd.Flags().DurationP("interval", "i", config.DefaultCrawlInterval,
		"Time between two crawls of a board")
	cmd.Flags().StringP("download-dir", "d", "",
		"Directory for downloaded images (default: XDG pictures directory)")
	cmd.Flags().String("api", config.DefaultAPIAddress,
		"Listen address of the control API")
	cmd.Flags().Bool("no-api", false,
		"Do not start the control API")
	cmd.Flags().Bool("once", false,
		"Crawl every board once and exit when the downloads finish")

	return cmd
}

func runRunCmd(cmd *cobra.Command, args []string) error {
	cfg, err := buildRunConfig(cmd, args)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	logger := setupLogger(cfg)

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	go func() {
		select {
		case <-sigCh:
			logger.Info("received shutdown signal, stopping...")
			cancel()
		case <-ctx.Done():
		}
	}()

	a, err := newApp(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer a.close()

	logger.Info("boardaid started",
		"boards", len(cfg.Boards),
		"workers", cfg.Workers,
		"once", cfg.Once,
		"proxy", cfg.ProxyAddress,
	)
	return a.run(ctx)
}

// buildRunConfig applies the run flags over the configuration file. Flags
// override the file only when they were set.
func buildRunConfig(cmd *cobra.Command, args []string) (*config.Config, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}

	flags := cmd.Flags()
	if flags.Changed("workers") {
		if cfg.Workers, err = flags.GetInt("workers"); err != nil {
			return nil, err
		}
	}
	if flags.Changed("sleep") {
		if cfg.DownloadSleep, err = flags.GetDuration("sleep"); err != nil {
			return nil, err
		}
	}
	if flags.Changed("timeout") {
		if cfg.Timeout, err = flags.GetDuration("timeout"); err != nil {
			return nil, err
		}
	}
	if flags.Changed("proxy") {
		if cfg.ProxyAddress, err = flags.GetString("proxy"); err != nil {
			return nil, err
		}
	}
	if flags.Changed("rate") {
		if cfg.RateLimit, err = flags.GetFloat64("rate"); err != nil {
			return nil, err
		}
	}
	if flags.Changed("interval") {
		if cfg.CrawlInterval, err = flags.GetDuration("interval"); err != nil {
			return nil, err
		}
	}
	if flags.Changed("download-dir") {
		if cfg.DownloadDir, err = flags.GetString("download-dir"); err != nil {
			return nil, err
		}
	}
	if flags.Changed("api") {
		if cfg.APIAddress, err = flags.GetString("api"); err != nil {
			return nil, err
		}
	}
	noAPI, err := flags.GetBool("no-api")
	if err != nil {
		return nil, err
	}
	if noAPI {
		cfg.APIAddress = ""
	}
	if cfg.Once, err = flags.GetBool("once"); err != nil {
		return nil, err
	}

	for _, u := range args {
		cfg.Boards = append(cfg.Boards, config.BoardEntry{URL: u, Autostart: true})
	}
	return cfg, nil
}
