package storage

import (
	"context"
	"encoding/hex"
	"fmt"
	"log/slog"

	"golang.org/x/crypto/sha3"
	"golang.org/x/sync/singleflight"

	"github.com/nao1215/boardaid/internal/model"
)

// HashStore is the hash bookkeeping used by Dedup.
type HashStore interface {
	IsBlacklisted(ctx context.Context, hash string) (bool, error)
	Exists(ctx context.Context, hash string) (bool, error)
	AddHash(ctx context.Context, rec model.HashRecord) error
}

// Dedup writes payloads through next unless their content hash is
// blacklisted or already stored. Concurrent writes of the same content
// share one check and one write.
type Dedup struct {
	next     Writer
	hashes   HashStore
	logger   *slog.Logger
	inflight singleflight.Group
}

// NewDedup wraps next. A nil logger uses slog.Default.
func NewDedup(next Writer, hashes HashStore, logger *slog.Logger) *Dedup {
	if logger == nil {
		logger = slog.Default()
	}
	return &Dedup{next: next, hashes: hashes, logger: logger}
}

// Hash returns the hex SHA3-256 digest of data.
func Hash(data []byte) string {
	sum := sha3.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// Write implements Writer.
func (d *Dedup) Write(ctx context.Context, p string, data []byte) error {
	hash := Hash(data)
	_, err, shared := d.inflight.Do(hash, func() (any, error) {
		return nil, d.write(ctx, hash, p, data)
	})
	if shared {
		d.logger.Debug("identical file was written concurrently", "path", p, "hash", hash)
	}
	return err
}

func (d *Dedup) write(ctx context.Context, hash, p string, data []byte) error {
	blacklisted, err := d.hashes.IsBlacklisted(ctx, hash)
	if err != nil {
		return fmt.Errorf("failed to check blacklist: %w", err)
	}
	if blacklisted {
		d.logger.Info("skipped blacklisted file", "path", p, "hash", hash)
		return nil
	}

	exists, err := d.hashes.Exists(ctx, hash)
	if err != nil {
		return fmt.Errorf("failed to check hash: %w", err)
	}
	if exists {
		d.logger.Debug("skipped known file", "path", p, "hash", hash)
		return nil
	}

	if err := d.next.Write(ctx, p, data); err != nil {
		return err
	}
	return d.hashes.AddHash(ctx, model.HashRecord{Hash: hash, Path: p, Size: int64(len(data))})
}
