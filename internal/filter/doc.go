// Package filter decides which threads and images the crawler may touch.
//
// A Filter combines the content block lists (file names and post text)
// with the persistent state in the database: review records of suspended
// threads, the image URL cache and the content hash tables used for
// deduplication. Two refresh routines keep review records current by
// re-requesting suspended threads and dropping those that are gone.
package filter
