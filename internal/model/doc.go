// Package model defines the core data structures shared by the crawler,
// the filter store and the download engine.
//
// This package contains the following main types:
//   - ThreadLink and Post: ephemeral values produced by site strategies
//   - FilterItem and FilterState: the persisted review state of a thread
//   - DownloadItem: one unit of work for the download worker pool
//   - HashRecord and Thumbnail: persisted dedup and review data
//
// Models live in their own package so that site, filter, download and
// board can share them without import cycles.
package model
