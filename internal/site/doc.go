// Package site defines how board pages are parsed.
//
// Each family of imageboard layouts is handled by one Strategy. All
// Strategy operations are pure: given a parsed document or a URL they
// return plain values and degrade to empty or zero results on malformed
// input instead of failing. Documents are parsed with goquery.
package site
