package model

// HashRecord is a content hash with the file it was computed from.
type HashRecord struct {
	Hash string `json:"hash"`
	Path string `json:"path"`
	Size int64  `json:"size"`
}

// Thumbnail is a stored preview image for a suspended thread.
type Thumbnail struct {
	// Thread is the thread URL the thumbnail belongs to.
	Thread string `json:"thread"`

	// Filename is the last path segment of the thumbnail URL.
	Filename string `json:"filename"`

	// Data is the image payload.
	Data []byte `json:"data"`
}
