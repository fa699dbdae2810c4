package filter

import (
	"slices"
	"strings"
	"sync"

	"golang.org/x/text/cases"
)

// BlockList is a set of terms matched case-insensitively as substrings.
// Terms keep their insertion order. It is safe for concurrent use.
type BlockList struct {
	mu      sync.RWMutex
	entries []string
	folded  []string
}

// NewBlockList creates a list holding terms.
func NewBlockList(terms ...string) *BlockList {
	b := &BlockList{}
	for _, t := range terms {
		b.Add(t)
	}
	return b
}

func fold(s string) string {
	return cases.Fold().String(s)
}

// Add inserts term. Blank terms and duplicates are ignored.
// It reports whether the list changed.
func (b *BlockList) Add(term string) bool {
	term = strings.TrimSpace(term)
	if term == "" {
		return false
	}
	f := fold(term)

	b.mu.Lock()
	defer b.mu.Unlock()
	if slices.Contains(b.folded, f) {
		return false
	}
	b.entries = append(b.entries, term)
	b.folded = append(b.folded, f)
	return true
}

// Remove deletes term. It reports whether the list changed.
func (b *BlockList) Remove(term string) bool {
	f := fold(strings.TrimSpace(term))

	b.mu.Lock()
	defer b.mu.Unlock()
	i := slices.Index(b.folded, f)
	if i < 0 {
		return false
	}
	b.entries = slices.Delete(b.entries, i, i+1)
	b.folded = slices.Delete(b.folded, i, i+1)
	return true
}

// Entries returns a copy of the terms in insertion order.
func (b *BlockList) Entries() []string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return slices.Clone(b.entries)
}

// Len returns the number of terms.
func (b *BlockList) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.entries)
}

// Match returns the first term contained in text.
func (b *BlockList) Match(text string) (string, bool) {
	if text == "" {
		return "", false
	}
	ft := fold(text)

	b.mu.RLock()
	defer b.mu.RUnlock()
	for i, f := range b.folded {
		if strings.Contains(ft, f) {
			return b.entries[i], true
		}
	}
	return "", false
}
