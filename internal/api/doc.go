// Package api serves the HTTP control interface of a running crawler.
//
// It lists and starts boards, lets a reviewer allow or deny suspended
// threads and look at their thumbnails, edits the block lists, clears the
// download queue and reports the runtime counters. All responses are JSON.
package api
