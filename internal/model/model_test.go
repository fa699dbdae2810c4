package model

import (
	"encoding/json"
	"testing"
)

func TestFilterState(t *testing.T) {
	t.Parallel()

	tests := []struct {
		state FilterState
		name  string
		skips bool
	}{
		{FilterStateUnknown, "unknown", false},
		{FilterStatePending, "pending", true},
		{FilterStateAllow, "allow", false},
		{FilterStateDeny, "deny", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := tt.state.String(); got != tt.name {
				t.Errorf("String() = %q, want %q", got, tt.name)
			}
			if got := ParseFilterState(tt.name); got != tt.state {
				t.Errorf("ParseFilterState(%q) = %v, want %v", tt.name, got, tt.state)
			}
			if got := tt.state.Skips(); got != tt.skips {
				t.Errorf("Skips() = %v, want %v", got, tt.skips)
			}
		})
	}

	t.Run("parse is case insensitive", func(t *testing.T) {
		t.Parallel()
		if got := ParseFilterState(" DENY "); got != FilterStateDeny {
			t.Errorf("expected deny, got %v", got)
		}
	})

	t.Run("unrecognized name is unknown", func(t *testing.T) {
		t.Parallel()
		if got := ParseFilterState("maybe"); got != FilterStateUnknown {
			t.Errorf("expected unknown, got %v", got)
		}
	})
}

func TestFilterItemJSON(t *testing.T) {
	t.Parallel()

	item := FilterItem{URL: "http://boards.4chan.org/p/res/1", Board: "p", Reason: "file name, foo", State: FilterStatePending}
	data, err := json.Marshal(item)
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}

	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}
	if m["state"] != "pending" {
		t.Errorf("expected state to be rendered as \"pending\", got %v", m["state"])
	}
}

func TestPost(t *testing.T) {
	t.Parallel()

	if (Post{}).HasImage() || (Post{}).HasComment() {
		t.Error("empty post must have neither image nor comment")
	}
	p := Post{Comment: "hi", ImageURL: "http://images.4chan.org/p/src/1.jpg", ImageName: "a.jpg"}
	if !p.HasImage() || !p.HasComment() {
		t.Error("expected post with image and comment")
	}
}

func TestBoardState(t *testing.T) {
	t.Parallel()

	if BoardIdle.String() != "idle" {
		t.Errorf("expected idle, got %s", BoardIdle)
	}
	if BoardRunning.String() != "running" {
		t.Errorf("expected running, got %s", BoardRunning)
	}
}
