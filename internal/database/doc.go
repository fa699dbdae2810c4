// Package database provides the SQLite store behind the filter and cache
// subsystem.
//
// BoardDB keeps:
//   - filter records (review state of threads)
//   - the image URL cache, including negative entries for dead links
//   - content hashes in the hash, archive, dnw and blacklist tables
//   - thumbnails of suspended threads
//
// All table operations are methods on Conn. A Conn is taken from a
// bounded pool with Acquire, which waits at most the configured timeout,
// and must be handed back with Release. With wraps both calls so the
// connection is released on every path. The store uses modernc.org/sqlite,
// which needs no cgo.
package database
