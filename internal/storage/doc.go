// Package storage persists downloaded images.
//
// Writers take a slash separated relative path such as "g/1234/image.jpg".
// Local stores files below a root directory, S3 stores objects in a bucket
// and Dedup skips payloads whose content hash is already known or
// blacklisted.
package storage
