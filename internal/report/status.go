package report

import (
	"context"
	"fmt"
	"time"

	"github.com/nao1215/boardaid/internal/database"
	"github.com/nao1215/boardaid/internal/filter"
	"github.com/nao1215/boardaid/internal/model"
	"github.com/nao1215/boardaid/internal/stats"
)

// Status is a point-in-time summary of the pipeline state.
type Status struct {
	// GeneratedAt is the time Collect ran.
	GeneratedAt time.Time `json:"generated_at"`

	// Database is the path of the SQLite file.
	Database string `json:"database"`

	Boards []BoardStatus `json:"boards"`

	// Tables holds the row count of every table in schema order.
	Tables []TableCount `json:"tables"`

	Filters FilterCounts `json:"filters"`

	// Pending lists the threads waiting for review, oldest first.
	Pending []model.FilterItem `json:"pending"`

	BlockList BlockList `json:"block_list"`

	// Stats is set when the report was taken from a running process.
	Stats *stats.Snapshot `json:"stats,omitempty"`
}

// BoardStatus describes one configured board.
type BoardStatus struct {
	Code   string `json:"code"`
	URL    string `json:"url"`
	State  string `json:"state"`
	Status string `json:"status"`
}

// TableCount is the number of rows of a table.
type TableCount struct {
	Table string `json:"table"`
	Rows  int    `json:"rows"`
}

// FilterCounts counts the filter records per review state.
type FilterCounts struct {
	Pending int `json:"pending"`
	Allow   int `json:"allow"`
	Deny    int `json:"deny"`
}

// Total returns the number of filter records.
func (c FilterCounts) Total() int {
	return c.Pending + c.Allow + c.Deny
}

// BlockList holds the block-list terms.
type BlockList struct {
	FileNames   []string `json:"file_names"`
	PostContent []string `json:"post_content"`
}

// Board is the part of a board scheduler the report reads.
type Board interface {
	Code() string
	URL() string
	State() model.BoardState
	Status() string
}

// Input gathers the sources of a report. DB is required; the other
// fields are optional.
type Input struct {
	DB     *database.BoardDB
	Lists  filter.List
	Boards []Board
	Stats  *stats.Snapshot
	Now    func() time.Time
}

// Collect builds a Status from in.
func Collect(ctx context.Context, in Input) (*Status, error) {
	if in.DB == nil {
		return nil, ErrNoDatabase
	}
	now := time.Now
	if in.Now != nil {
		now = in.Now
	}

	s := &Status{
		GeneratedAt: now(),
		Database:    in.DB.Path(),
		Boards:      make([]BoardStatus, 0, len(in.Boards)),
		Tables:      make([]TableCount, 0, len(database.AllTables)),
		Pending:     []model.FilterItem{},
		BlockList: BlockList{
			FileNames:   nonNil(in.Lists.FileNames),
			PostContent: nonNil(in.Lists.PostContent),
		},
		Stats: in.Stats,
	}
	for _, b := range in.Boards {
		s.Boards = append(s.Boards, BoardStatus{
			Code:   b.Code(),
			URL:    b.URL(),
			State:  b.State().String(),
			Status: b.Status(),
		})
	}

	err := in.DB.With(ctx, func(c *database.Conn) error {
		for _, table := range database.AllTables {
			n, err := c.TableSize(ctx, table)
			if err != nil {
				return err
			}
			s.Tables = append(s.Tables, TableCount{Table: string(table), Rows: n})
		}

		counts := map[model.FilterState]*int{
			model.FilterStatePending: &s.Filters.Pending,
			model.FilterStateAllow:   &s.Filters.Allow,
			model.FilterStateDeny:    &s.Filters.Deny,
		}
		for state, dst := range counts {
			n, err := c.CountFilters(ctx, state)
			if err != nil {
				return err
			}
			*dst = n
		}

		pending, err := c.FiltersByState(ctx, model.FilterStatePending)
		if err != nil {
			return err
		}
		s.Pending = append(s.Pending, pending...)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to collect status: %w", err)
	}
	return s, nil
}

// Rows returns the row count of table, or 0 when it is not in the report.
func (s *Status) Rows(table database.Table) int {
	for _, t := range s.Tables {
		if t.Table == string(table) {
			return t.Rows
		}
	}
	return 0
}

func nonNil(terms []string) []string {
	if terms == nil {
		return []string{}
	}
	return terms
}
