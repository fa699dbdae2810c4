package model

// ThreadLink references one thread found on a board page.
type ThreadLink struct {
	// URL is the absolute thread URL.
	URL string

	// Number is the numeric thread id derived from the URL.
	// Zero when the strategy could not extract it.
	Number int
}

// Post is a single post in a thread.
type Post struct {
	// Comment is the post text. Empty when the post has none.
	Comment string

	// ImageURL is the absolute URL of the attached image.
	// Empty when the post has no image.
	ImageURL string

	// ImageName is the file name declared by the poster.
	ImageName string
}

// HasImage reports whether the post carries an image.
func (p Post) HasImage() bool {
	return p.ImageURL != ""
}

// HasComment reports whether the post carries text.
func (p Post) HasComment() bool {
	return p.Comment != ""
}
