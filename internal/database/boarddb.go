package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"golang.org/x/sync/semaphore"
	_ "modernc.org/sqlite" // SQLite driver
)

// DBFileName is the name of the database file inside the data directory.
const DBFileName = "boardaid.db"

// Pool defaults.
const (
	// DefaultPoolSize is the number of connections that may be held at once.
	DefaultPoolSize = 4

	// DefaultAcquireTimeout bounds the wait for a free connection.
	DefaultAcquireTimeout = 5 * time.Second

	// busyTimeoutMillis makes SQLite wait for a competing writer instead
	// of failing with SQLITE_BUSY.
	busyTimeoutMillis = 5000
)

var (
	// ErrPoolExhausted is returned when no connection becomes free within
	// the acquire timeout.
	ErrPoolExhausted = errors.New("connection pool exhausted")

	// ErrUnknownState is returned when a filter record would be stored
	// without a concrete state.
	ErrUnknownState = errors.New("filter state must be pending, allow or deny")

	// ErrUnknownTable is returned for table names outside the schema.
	ErrUnknownTable = errors.New("unknown table")
)

// BoardDB is the SQLite store holding filter, cache, hash and thumbnail
// state. Access goes through pooled connections obtained from Acquire or With.
type BoardDB struct {
	db             *sql.DB
	dbPath         string
	sem            *semaphore.Weighted
	acquireTimeout time.Duration
}

// Options configures BoardDB behavior.
type Options struct {
	// CreateIfNotExists creates the database file if it doesn't exist.
	CreateIfNotExists bool

	// EnableWAL enables Write-Ahead Logging so readers don't block the writer.
	EnableWAL bool

	// PoolSize is the maximum number of connections held at once.
	PoolSize int

	// AcquireTimeout bounds the wait in Acquire.
	AcquireTimeout time.Duration
}

// DefaultOptions returns the default database options.
func DefaultOptions() Options {
	return Options{
		CreateIfNotExists: true,
		EnableWAL:         true,
		PoolSize:          DefaultPoolSize,
		AcquireTimeout:    DefaultAcquireTimeout,
	}
}

// Open opens or creates the database inside dbDir.
func Open(dbDir string, opts Options) (*BoardDB, error) {
	dbPath := filepath.Join(dbDir, DBFileName)

	if !opts.CreateIfNotExists {
		if _, err := os.Stat(dbPath); os.IsNotExist(err) {
			return nil, fmt.Errorf("database not found at %s (use CreateIfNotExists option to create)", dbPath)
		} else if err != nil {
			return nil, fmt.Errorf("failed to check database path: %w", err)
		}
	} else {
		if err := os.MkdirAll(dbDir, 0750); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	if opts.PoolSize <= 0 {
		opts.PoolSize = DefaultPoolSize
	}
	if opts.AcquireTimeout <= 0 {
		opts.AcquireTimeout = DefaultAcquireTimeout
	}

	mode := "rw"
	if opts.CreateIfNotExists {
		mode = "rwc"
	}
	dsn := fmt.Sprintf("%s?mode=%s&_pragma=busy_timeout(%d)", dbPath, mode, busyTimeoutMillis)

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(opts.PoolSize)
	db.SetMaxIdleConns(opts.PoolSize)
	db.SetConnMaxLifetime(time.Hour)

	bdb := &BoardDB{
		db:             db,
		dbPath:         dbPath,
		sem:            semaphore.NewWeighted(int64(opts.PoolSize)),
		acquireTimeout: opts.AcquireTimeout,
	}

	if opts.EnableWAL {
		if _, err := db.ExecContext(context.Background(), "PRAGMA journal_mode=WAL"); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
		}
	}

	if err := bdb.createTables(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	return bdb, nil
}

// Path returns the database file path.
func (bdb *BoardDB) Path() string {
	return bdb.dbPath
}

// Close closes the database.
func (bdb *BoardDB) Close() error {
	return bdb.db.Close()
}

func (bdb *BoardDB) createTables() error {
	schema := `
	-- Review state of threads that tripped the content filter
	CREATE TABLE IF NOT EXISTS filters (
		url TEXT PRIMARY KEY,
		board TEXT NOT NULL DEFAULT '',
		reason TEXT NOT NULL DEFAULT '',
		state TEXT NOT NULL,
		timestamp INTEGER NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_filters_state_ts ON filters(state, timestamp);

	-- Image URLs seen recently, including negative entries for dead links
	CREATE TABLE IF NOT EXISTS cache (
		url TEXT PRIMARY KEY,
		timestamp INTEGER NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_cache_ts ON cache(timestamp);

	-- Content hashes of files already handled
	CREATE TABLE IF NOT EXISTS hashes (
		hash TEXT PRIMARY KEY,
		path TEXT NOT NULL DEFAULT '',
		size INTEGER NOT NULL DEFAULT 0
	);

	CREATE TABLE IF NOT EXISTS archive (
		hash TEXT PRIMARY KEY,
		path TEXT NOT NULL DEFAULT '',
		size INTEGER NOT NULL DEFAULT 0
	);

	CREATE TABLE IF NOT EXISTS dnw (
		hash TEXT PRIMARY KEY,
		path TEXT NOT NULL DEFAULT '',
		size INTEGER NOT NULL DEFAULT 0
	);

	CREATE TABLE IF NOT EXISTS blacklist (
		hash TEXT PRIMARY KEY,
		path TEXT NOT NULL DEFAULT '',
		size INTEGER NOT NULL DEFAULT 0
	);

	-- Preview images of suspended threads
	CREATE TABLE IF NOT EXISTS thumbs (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		thread TEXT NOT NULL,
		filename TEXT NOT NULL,
		data BLOB NOT NULL,
		UNIQUE(thread, filename)
	);

	CREATE INDEX IF NOT EXISTS idx_thumbs_thread ON thumbs(thread);
	`

	_, err := bdb.db.ExecContext(context.Background(), schema)
	return err
}

// Table names a table of the schema.
type Table string

// Tables of the schema.
const (
	TableFilter    Table = "filters"
	TableCache     Table = "cache"
	TableHash      Table = "hashes"
	TableArchive   Table = "archive"
	TableDnw       Table = "dnw"
	TableBlacklist Table = "blacklist"
	TableThumbs    Table = "thumbs"
)

// AllTables lists every table in report order.
var AllTables = []Table{TableFilter, TableCache, TableHash, TableArchive, TableDnw, TableBlacklist, TableThumbs}

// HashTables lists the tables holding HashRecords.
var HashTables = []Table{TableHash, TableArchive, TableDnw, TableBlacklist}

func (t Table) valid() bool {
	for _, known := range AllTables {
		if t == known {
			return true
		}
	}
	return false
}

func (t Table) isHashTable() bool {
	for _, known := range HashTables {
		if t == known {
			return true
		}
	}
	return false
}

func toMillis(t time.Time) int64 {
	return t.UnixMilli()
}

func fromMillis(ms int64) time.Time {
	return time.UnixMilli(ms)
}
