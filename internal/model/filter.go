package model

import (
	"strings"
	"time"
)

// FilterState is the review state of a thread.
//
// FilterStateUnknown is never persisted. It is only returned for threads
// that have no filter record.
type FilterState int

const (
	// FilterStateUnknown means the thread has no filter record.
	FilterStateUnknown FilterState = iota

	// FilterStatePending means the thread tripped the content filter and
	// waits for a human decision. Its images are not downloaded.
	FilterStatePending

	// FilterStateAllow means a reviewer allowed the thread.
	FilterStateAllow

	// FilterStateDeny means a reviewer denied the thread. It is skipped
	// by every later crawl.
	FilterStateDeny
)

// String returns the lowercase name used for storage and output.
func (s FilterState) String() string {
	switch s {
	case FilterStatePending:
		return "pending"
	case FilterStateAllow:
		return "allow"
	case FilterStateDeny:
		return "deny"
	default:
		return "unknown"
	}
}

// ParseFilterState converts a stored state name back into a FilterState.
// Unrecognized names map to FilterStateUnknown.
func ParseFilterState(s string) FilterState {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "pending":
		return FilterStatePending
	case "allow":
		return FilterStateAllow
	case "deny":
		return FilterStateDeny
	default:
		return FilterStateUnknown
	}
}

// MarshalText implements encoding.TextMarshaler.
func (s FilterState) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *FilterState) UnmarshalText(text []byte) error {
	*s = ParseFilterState(string(text))
	return nil
}

// Skips reports whether a crawl must skip threads in this state.
func (s FilterState) Skips() bool {
	return s == FilterStatePending || s == FilterStateDeny
}

// FilterItem is the persisted review record of a thread, keyed by URL.
type FilterItem struct {
	// URL is the thread URL.
	URL string `json:"url"`

	// Board is the short code of the board the thread was found on.
	Board string `json:"board"`

	// Reason describes which block-list entry the thread matched,
	// e.g. "file name, foo" or "post content, bar".
	Reason string `json:"reason"`

	// State is the review state.
	State FilterState `json:"state"`

	// UpdatedAt is the last time the record was written or refreshed.
	UpdatedAt time.Time `json:"updated_at"`
}
