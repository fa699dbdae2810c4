package main

import (
	"errors"
	"testing"

	"github.com/nao1215/boardaid/internal/site"
)

func TestBoardsCmdUnknownSite(t *testing.T) {
	t.Parallel()

	global, _ := isolatedFlags(t, "")
	_, err := execute(t, append([]string{"boards", "https://example.com/"}, global...)...)
	if !errors.Is(err, site.ErrNoStrategy) {
		t.Errorf("expected ErrNoStrategy, got %v", err)
	}
}

func TestBoardsCmdNeedsURL(t *testing.T) {
	t.Parallel()

	global, _ := isolatedFlags(t, "")
	if _, err := execute(t, append([]string{"boards"}, global...)...); err == nil {
		t.Error("expected an error without site url")
	}
}
