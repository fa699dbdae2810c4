package database

import (
	"context"
	"database/sql"
	"fmt"
	"sync/atomic"
)

// Conn is a pooled connection. It must be handed back with Release.
type Conn struct {
	conn     *sql.Conn
	released atomic.Bool
}

// Acquire takes a connection from the pool, waiting at most the
// configured acquire timeout. It fails with ErrPoolExhausted when the
// wait times out and with the context error when ctx ends first.
func (bdb *BoardDB) Acquire(ctx context.Context) (*Conn, error) {
	waitCtx, cancel := context.WithTimeout(ctx, bdb.acquireTimeout)
	defer cancel()

	if err := bdb.sem.Acquire(waitCtx, 1); err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("%w: no connection within %s", ErrPoolExhausted, bdb.acquireTimeout)
	}

	c, err := bdb.db.Conn(ctx)
	if err != nil {
		bdb.sem.Release(1)
		return nil, fmt.Errorf("failed to get connection: %w", err)
	}
	return &Conn{conn: c}, nil
}

// Release returns c to the pool. Releasing twice is a no-op.
func (bdb *BoardDB) Release(c *Conn) {
	if c == nil || !c.released.CompareAndSwap(false, true) {
		return
	}
	_ = c.conn.Close()
	bdb.sem.Release(1)
}

// With runs fn on a pooled connection and releases it on every path.
func (bdb *BoardDB) With(ctx context.Context, fn func(*Conn) error) error {
	c, err := bdb.Acquire(ctx)
	if err != nil {
		return err
	}
	defer bdb.Release(c)
	return fn(c)
}
