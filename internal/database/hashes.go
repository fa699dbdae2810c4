package database

import (
	"context"
	"fmt"

	"github.com/nao1215/boardaid/internal/model"
)

// HasHash reports whether hash is recorded in table.
func (c *Conn) HasHash(ctx context.Context, table Table, hash string) (bool, error) {
	if !table.isHashTable() {
		return false, fmt.Errorf("%w: %s", ErrUnknownTable, table)
	}
	var n int
	query := "SELECT COUNT(*) FROM " + string(table) + " WHERE hash = ?" //nolint:gosec // table is validated against the schema
	if err := c.conn.QueryRowContext(ctx, query, hash).Scan(&n); err != nil {
		return false, fmt.Errorf("failed to check %s: %w", table, err)
	}
	return n > 0, nil
}

// InsertHash records rec in table. Inserting a hash that already exists
// fails with the underlying constraint error.
func (c *Conn) InsertHash(ctx context.Context, table Table, rec model.HashRecord) error {
	if !table.isHashTable() {
		return fmt.Errorf("%w: %s", ErrUnknownTable, table)
	}
	query := "INSERT INTO " + string(table) + " (hash, path, size) VALUES (?, ?, ?)" //nolint:gosec // table is validated against the schema
	if _, err := c.conn.ExecContext(ctx, query, rec.Hash, rec.Path, rec.Size); err != nil {
		return fmt.Errorf("failed to insert into %s: %w", table, err)
	}
	return nil
}

// DeleteHash removes hash from table.
func (c *Conn) DeleteHash(ctx context.Context, table Table, hash string) error {
	if !table.isHashTable() {
		return fmt.Errorf("%w: %s", ErrUnknownTable, table)
	}
	query := "DELETE FROM " + string(table) + " WHERE hash = ?" //nolint:gosec // table is validated against the schema
	if _, err := c.conn.ExecContext(ctx, query, hash); err != nil {
		return fmt.Errorf("failed to delete from %s: %w", table, err)
	}
	return nil
}
