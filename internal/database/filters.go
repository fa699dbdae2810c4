package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/nao1215/boardaid/internal/model"
)

// FilterState returns the state stored for url, or FilterStateUnknown
// when there is no record.
func (c *Conn) FilterState(ctx context.Context, url string) (model.FilterState, error) {
	var state string
	err := c.conn.QueryRowContext(ctx, `SELECT state FROM filters WHERE url = ?`, url).Scan(&state)
	if errors.Is(err, sql.ErrNoRows) {
		return model.FilterStateUnknown, nil
	}
	if err != nil {
		return model.FilterStateUnknown, fmt.Errorf("failed to get filter state: %w", err)
	}
	return model.ParseFilterState(state), nil
}

// UpsertFilter inserts item or overwrites the existing record for its URL.
func (c *Conn) UpsertFilter(ctx context.Context, item model.FilterItem) error {
	if item.State == model.FilterStateUnknown {
		return ErrUnknownState
	}
	at := item.UpdatedAt
	if at.IsZero() {
		at = time.Now()
	}

	query := `
	INSERT INTO filters (url, board, reason, state, timestamp)
	VALUES (?, ?, ?, ?, ?)
	ON CONFLICT(url) DO UPDATE SET
		board = excluded.board,
		reason = excluded.reason,
		state = excluded.state,
		timestamp = excluded.timestamp
	`
	if _, err := c.conn.ExecContext(ctx, query, item.URL, item.Board, item.Reason, item.State.String(), toMillis(at)); err != nil {
		return fmt.Errorf("failed to upsert filter: %w", err)
	}
	return nil
}

// UpdateFilterState changes the state of an existing record.
// It reports whether a record was found.
func (c *Conn) UpdateFilterState(ctx context.Context, url string, state model.FilterState) (bool, error) {
	if state == model.FilterStateUnknown {
		return false, ErrUnknownState
	}
	res, err := c.conn.ExecContext(ctx, `UPDATE filters SET state = ?, timestamp = ? WHERE url = ?`,
		state.String(), toMillis(time.Now()), url)
	if err != nil {
		return false, fmt.Errorf("failed to update filter state: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to update filter state: %w", err)
	}
	return n > 0, nil
}

// TouchFilter sets the timestamp of the record for url.
func (c *Conn) TouchFilter(ctx context.Context, url string, at time.Time) error {
	if _, err := c.conn.ExecContext(ctx, `UPDATE filters SET timestamp = ? WHERE url = ?`, toMillis(at), url); err != nil {
		return fmt.Errorf("failed to touch filter: %w", err)
	}
	return nil
}

// DeleteFilter removes the record for url.
func (c *Conn) DeleteFilter(ctx context.Context, url string) error {
	if _, err := c.conn.ExecContext(ctx, `DELETE FROM filters WHERE url = ?`, url); err != nil {
		return fmt.Errorf("failed to delete filter: %w", err)
	}
	return nil
}

// OldestPending returns the pending record with the oldest timestamp.
// The boolean is false when there is none.
func (c *Conn) OldestPending(ctx context.Context) (model.FilterItem, bool, error) {
	query := `
	SELECT url, board, reason, state, timestamp FROM filters
	WHERE state = ?
	ORDER BY timestamp ASC, url ASC
	LIMIT 1
	`
	item, err := scanFilter(c.conn.QueryRowContext(ctx, query, model.FilterStatePending.String()))
	if errors.Is(err, sql.ErrNoRows) {
		return model.FilterItem{}, false, nil
	}
	if err != nil {
		return model.FilterItem{}, false, fmt.Errorf("failed to get oldest pending filter: %w", err)
	}
	return item, true, nil
}

// FiltersByState lists the records in state, oldest first.
func (c *Conn) FiltersByState(ctx context.Context, state model.FilterState) ([]model.FilterItem, error) {
	query := `
	SELECT url, board, reason, state, timestamp FROM filters
	WHERE state = ?
	ORDER BY timestamp ASC, url ASC
	`
	rows, err := c.conn.QueryContext(ctx, query, state.String())
	if err != nil {
		return nil, fmt.Errorf("failed to list filters: %w", err)
	}
	defer rows.Close()

	var items []model.FilterItem
	for rows.Next() {
		item, err := scanFilter(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan filter: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list filters: %w", err)
	}
	return items, nil
}

// CountFilters counts the records in state.
func (c *Conn) CountFilters(ctx context.Context, state model.FilterState) (int, error) {
	var n int
	if err := c.conn.QueryRowContext(ctx, `SELECT COUNT(*) FROM filters WHERE state = ?`, state.String()).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count filters: %w", err)
	}
	return n, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanFilter(row rowScanner) (model.FilterItem, error) {
	var (
		item  model.FilterItem
		state string
		ts    int64
	)
	if err := row.Scan(&item.URL, &item.Board, &item.Reason, &state, &ts); err != nil {
		return model.FilterItem{}, err
	}
	item.State = model.ParseFilterState(state)
	item.UpdatedAt = fromMillis(ts)
	return item, nil
}
