package main

import (
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"github.com/nao1215/boardaid/internal/config"
)

func TestNewInitCmd(t *testing.T) {
	t.Parallel()

	cmd := NewInitCmd()
	output := cmd.Flags().Lookup("output")
	if output == nil || output.Shorthand != "o" || output.DefValue != config.DefaultConfigFile {
		t.Errorf("unexpected output flag %+v", output)
	}
	force := cmd.Flags().Lookup("force")
	if force == nil || force.Shorthand != "f" || force.DefValue != "false" {
		t.Errorf("unexpected force flag %+v", force)
	}
}

func TestRunInitCmd(t *testing.T) {
	t.Parallel()

	t.Run("writes a loadable template", func(t *testing.T) {
		t.Parallel()

		path := filepath.Join(t.TempDir(), "nested", config.DefaultConfigFile)
		out, err := execute(t, "init", "-o", path)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !strings.Contains(out, "Created configuration file") {
			t.Errorf("unexpected output %q", out)
		}

		f, err := config.LoadConfigFile(path)
		if err != nil {
			t.Fatalf("template does not load: %v", err)
		}
		if len(f.Boards) != 1 || !f.Boards[0].Autostart {
			t.Errorf("unexpected template boards %+v", f.Boards)
		}
		if f.Settings.Workers != config.DefaultWorkers || f.Settings.CrawlInterval != config.DefaultCrawlInterval {
			t.Errorf("template settings differ from the defaults: %+v", f.Settings)
		}

		cfg := config.NewConfig()
		cfg.Apply(f)
		if err := cfg.Validate(); err != nil {
			t.Errorf("template does not validate: %v", err)
		}

		if runtime.GOOS != "windows" {
			info, err := os.Stat(path)
			if err != nil {
				t.Fatal(err)
			}
			if perm := info.Mode().Perm(); perm != 0600 {
				t.Errorf("expected permissions 0600, got %o", perm)
			}
		}
	})

	t.Run("refuses to overwrite", func(t *testing.T) {
		t.Parallel()

		path := filepath.Join(t.TempDir(), config.DefaultConfigFile)
		if err := os.WriteFile(path, []byte("keep"), 0600); err != nil {
			t.Fatal(err)
		}
		if _, err := execute(t, "init", "-o", path); err == nil {
			t.Fatal("expected an error for an existing file")
		}
		data, err := os.ReadFile(path)
		if err != nil || string(data) != "keep" {
			t.Errorf("existing file was modified: %q, %v", data, err)
		}
	})

	t.Run("force overwrites", func(t *testing.T) {
		t.Parallel()

		path := filepath.Join(t.TempDir(), config.DefaultConfigFile)
		if err := os.WriteFile(path, []byte("old"), 0600); err != nil {
			t.Fatal(err)
		}
		if _, err := execute(t, "init", "-o", path, "-f"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		data, err := os.ReadFile(path)
		if err != nil || !strings.Contains(string(data), "boards:") {
			t.Errorf("file was not overwritten: %v", err)
		}
	})
}
