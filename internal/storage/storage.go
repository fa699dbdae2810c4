package storage

import (
	"context"
	"errors"
	"path"
	"strings"
)

var (
	// ErrInvalidPath is returned for empty, absolute or escaping paths.
	ErrInvalidPath = errors.New("invalid storage path")

	// ErrBucketNotFound is returned when the configured bucket does not exist.
	ErrBucketNotFound = errors.New("bucket does not exist")
)

// Writer stores a payload under a relative path.
type Writer interface {
	Write(ctx context.Context, path string, data []byte) error
}

// WriterFunc adapts a function to Writer.
type WriterFunc func(ctx context.Context, path string, data []byte) error

// Write implements Writer.
func (f WriterFunc) Write(ctx context.Context, p string, data []byte) error {
	return f(ctx, p, data)
}

// cleanPath validates p and returns its clean slash form.
func cleanPath(p string) (string, error) {
	p = strings.ReplaceAll(p, "\\", "/")
	if p == "" || strings.HasPrefix(p, "/") {
		return "", ErrInvalidPath
	}
	clean := path.Clean(p)
	if clean == "." || clean == ".." || strings.HasPrefix(clean, "../") {
		return "", ErrInvalidPath
	}
	return clean, nil
}
