package model

// DownloadItem is one queued image download.
// Each item is consumed exactly once and never retried.
type DownloadItem struct {
	// URL is the absolute image URL. It doubles as the queue identity.
	URL string

	// Path is the relative target path, e.g. "p/57867301/photo.jpg".
	Path string
}
