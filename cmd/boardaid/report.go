package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/nao1215/boardaid/internal/config"
	"github.com/nao1215/boardaid/internal/database"
	"github.com/nao1215/boardaid/internal/filter"
	"github.com/nao1215/boardaid/internal/model"
	"github.com/nao1215/boardaid/internal/report"
	"github.com/nao1215/boardaid/internal/site"
	"github.com/nao1215/boardaid/internal/stats"
)

const liveTimeout = 5 * time.Second

var errLiveDisabled = errors.New("--live needs the control API, but it is disabled")

// NewReportCmd creates the report command.
func NewReportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "report",
		Short: "Print a status report",
		Long: `Report summarizes the store: configured boards, row counts, review
states, threads waiting for review and the block lists.

With --live the board states and download counters are read from the
control API of a running session.

Examples:
  # Text report on the terminal
  boardaid report

  # Markdown report written to a file
  boardaid report --markdown -o status.md

  # JSON report including the counters of a running session
  boardaid report --json --live`,
		Args: cobra.NoArgs,
		RunE: runReportCmd,
	}

	cmd.Flags().BoolP("json", "j", false,
		"Output JSON report (mutually exclusive with --markdown)")
	cmd.Flags().BoolP("markdown", "m", false,
		"Output Markdown report (mutually exclusive with --json)")
	cmd.Flags().StringP("output", "o", "",
		"Write report to specified file path (creates directories if needed)")
	cmd.Flags().Bool("live", false,
		"Read board states and counters from the control API of a running session")
	cmd.MarkFlagsMutuallyExclusive("json", "markdown")

	return cmd
}

func runReportCmd(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	flags := cmd.Flags()
	asJSON, err := flags.GetBool("json")
	if err != nil {
		return err
	}
	asMarkdown, err := flags.GetBool("markdown")
	if err != nil {
		return err
	}
	outputPath, err := flags.GetString("output")
	if err != nil {
		return err
	}
	live, err := flags.GetBool("live")
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	status, err := collectStatus(ctx, cfg, live)
	if err != nil {
		return err
	}

	output := cmd.OutOrStdout()
	if outputPath != "" {
		if dir := filepath.Dir(outputPath); dir != "" && dir != "." {
			if err := os.MkdirAll(dir, 0750); err != nil {
				return fmt.Errorf("failed to create output directory: %w", err)
			}
		}
		f, err := os.OpenFile(outputPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600) //nolint:gosec // user-provided output path
		if err != nil {
			return fmt.Errorf("failed to create output file: %w", err)
		}
		defer f.Close()
		output = f
	}

	var w report.Writer
	switch {
	case asJSON:
		w = report.NewJSONWriter(output, report.WithPrettyPrint())
	case asMarkdown:
		w = report.NewMarkdownWriter(output)
	default:
		w = report.NewSimpleWriter(output, report.WithVerbose(getVerboseFlag(cmd)))
	}
	_, err = w.Write(status)
	return err
}

// collectStatus reads the store without creating it.
func collectStatus(ctx context.Context, cfg *config.Config, live bool) (*report.Status, error) {
	opts := database.DefaultOptions()
	opts.CreateIfNotExists = false
	db, err := database.Open(cfg.DataDir, opts)
	if err != nil {
		return nil, err
	}
	defer db.Close()

	lists := filter.New(nil)
	if _, err := os.Stat(cfg.FilterListPath); err == nil {
		if err := lists.LoadFilterListFile(cfg.FilterListPath); err != nil {
			return nil, err
		}
	}

	in := report.Input{
		DB:     db,
		Lists:  lists.Snapshot(),
		Boards: configuredBoards(cfg),
	}
	if live {
		if cfg.APIAddress == "" {
			return nil, errLiveDisabled
		}
		boards, snap, err := fetchLive(ctx, "http://"+cfg.APIAddress)
		if err != nil {
			return nil, err
		}
		in.Boards = boards
		in.Stats = snap
	}
	return report.Collect(ctx, in)
}

// listedBoard is a board known only by its description.
type listedBoard struct {
	code   string
	url    string
	state  model.BoardState
	status string
}

func (b listedBoard) Code() string            { return b.code }
func (b listedBoard) URL() string             { return b.url }
func (b listedBoard) State() model.BoardState { return b.state }
func (b listedBoard) Status() string          { return b.status }

// configuredBoards lists the boards of the configuration as idle.
func configuredBoards(cfg *config.Config) []report.Board {
	registry := site.DefaultRegistry()
	boards := make([]report.Board, 0, len(cfg.Boards))
	for _, entry := range cfg.Boards {
		code := entry.Code
		if code == "" {
			if s, err := resolveStrategy(registry, entry); err == nil {
				code = s.BoardShortcut(entry.URL)
			}
		}
		boards = append(boards, listedBoard{
			code:   code,
			url:    entry.URL,
			state:  model.BoardIdle,
			status: "/" + code + "/ idle",
		})
	}
	return boards
}

// fetchLive reads the board states and counters of a running session.
func fetchLive(ctx context.Context, baseURL string) ([]report.Board, *stats.Snapshot, error) {
	client := &http.Client{Timeout: liveTimeout}

	var views []report.BoardStatus
	if err := getJSON(ctx, client, baseURL+"/boards", &views); err != nil {
		return nil, nil, err
	}
	boards := make([]report.Board, 0, len(views))
	for _, v := range views {
		state := model.BoardIdle
		if v.State == model.BoardRunning.String() {
			state = model.BoardRunning
		}
		boards = append(boards, listedBoard{code: v.Code, url: v.URL, state: state, status: v.Status})
	}

	var st struct {
		Stats stats.Snapshot `json:"stats"`
	}
	if err := getJSON(ctx, client, baseURL+"/stats", &st); err != nil {
		return nil, nil, err
	}
	return boards, &st.Stats, nil
}

func getJSON(ctx context.Context, client *http.Client, target string, v any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, http.NoBody)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("control API unreachable: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, resp.Body) //nolint:errcheck // body is discarded
		return fmt.Errorf("control API answered %s for %s", resp.Status, target)
	}
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return fmt.Errorf("failed to decode %s: %w", target, err)
	}
	return nil
}
