package database

import (
	"context"
	"fmt"
	"time"
)

// IsCached reports whether url has a cache entry.
func (c *Conn) IsCached(ctx context.Context, url string) (bool, error) {
	var n int
	if err := c.conn.QueryRowContext(ctx, `SELECT COUNT(*) FROM cache WHERE url = ?`, url).Scan(&n); err != nil {
		return false, fmt.Errorf("failed to check cache: %w", err)
	}
	return n > 0, nil
}

// UpsertCache inserts url or refreshes its timestamp.
func (c *Conn) UpsertCache(ctx context.Context, url string, at time.Time) error {
	query := `
	INSERT INTO cache (url, timestamp) VALUES (?, ?)
	ON CONFLICT(url) DO UPDATE SET timestamp = excluded.timestamp
	`
	if _, err := c.conn.ExecContext(ctx, query, url, toMillis(at)); err != nil {
		return fmt.Errorf("failed to cache url: %w", err)
	}
	return nil
}

// PruneCache removes entries last seen before cutoff and returns how many
// were removed.
func (c *Conn) PruneCache(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := c.conn.ExecContext(ctx, `DELETE FROM cache WHERE timestamp < ?`, toMillis(cutoff))
	if err != nil {
		return 0, fmt.Errorf("failed to prune cache: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to prune cache: %w", err)
	}
	return n, nil
}

// TableSize returns the number of rows in table.
func (c *Conn) TableSize(ctx context.Context, table Table) (int, error) {
	if !table.valid() {
		return 0, fmt.Errorf("%w: %s", ErrUnknownTable, table)
	}
	var n int
	if err := c.conn.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+string(table)).Scan(&n); err != nil { //nolint:gosec // table is validated against the schema
		return 0, fmt.Errorf("failed to count %s: %w", table, err)
	}
	return n, nil
}
