// Package download implements the image download engine.
//
// A Loader owns a deduplicating queue and a fixed number of workers. Each
// worker takes an item, sleeps for the download throttle, fetches the
// payload and hands the outcome to the configured Hooks. Items are
// consumed exactly once; failed downloads are not retried.
//
// ImageHandler supplies the Hooks used in production: payloads go to the
// file writer and the URL cache, dead links are cached negatively and a
// 503 answer, which the sites use to signal a ban, terminates the process.
package download
