package database

import (
	"context"
	"fmt"

	"github.com/nao1215/boardaid/internal/model"
)

// UpsertThumb stores a thumbnail, replacing one with the same thread and
// file name.
func (c *Conn) UpsertThumb(ctx context.Context, thumb model.Thumbnail) error {
	query := `
	INSERT INTO thumbs (thread, filename, data) VALUES (?, ?, ?)
	ON CONFLICT(thread, filename) DO UPDATE SET data = excluded.data
	`
	if _, err := c.conn.ExecContext(ctx, query, thumb.Thread, thumb.Filename, thumb.Data); err != nil {
		return fmt.Errorf("failed to store thumbnail: %w", err)
	}
	return nil
}

// Thumbs returns the thumbnails stored for thread in insertion order.
func (c *Conn) Thumbs(ctx context.Context, thread string) ([]model.Thumbnail, error) {
	rows, err := c.conn.QueryContext(ctx, `SELECT thread, filename, data FROM thumbs WHERE thread = ? ORDER BY id`, thread)
	if err != nil {
		return nil, fmt.Errorf("failed to list thumbnails: %w", err)
	}
	defer rows.Close()

	var thumbs []model.Thumbnail
	for rows.Next() {
		var t model.Thumbnail
		if err := rows.Scan(&t.Thread, &t.Filename, &t.Data); err != nil {
			return nil, fmt.Errorf("failed to scan thumbnail: %w", err)
		}
		thumbs = append(thumbs, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list thumbnails: %w", err)
	}
	return thumbs, nil
}

// DeleteThumbs removes every thumbnail of thread.
func (c *Conn) DeleteThumbs(ctx context.Context, thread string) error {
	if _, err := c.conn.ExecContext(ctx, `DELETE FROM thumbs WHERE thread = ?`, thread); err != nil {
		return fmt.Errorf("failed to delete thumbnails: %w", err)
	}
	return nil
}
