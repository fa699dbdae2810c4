package storage

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"
)

const (
	dirPerm  = 0o750
	filePerm = 0o600

	// maxRenames bounds the search for a free file name.
	maxRenames = 1000
)

// Local writes files below a root directory.
type Local struct {
	root string
}

// NewLocal returns a Local writer rooted at root.
func NewLocal(root string) *Local {
	return &Local{root: root}
}

// Root returns the root directory.
func (l *Local) Root() string {
	return l.root
}

// Write stores data at root/p. An existing file with identical content is
// kept; a different file with the same name gets a numeric suffix.
func (l *Local) Write(ctx context.Context, p string, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	clean, err := cleanPath(p)
	if err != nil {
		return fmt.Errorf("%q: %w", p, err)
	}

	target := filepath.Join(l.root, filepath.FromSlash(clean))
	if err := os.MkdirAll(filepath.Dir(target), dirPerm); err != nil {
		return fmt.Errorf("failed to create directory for %s: %w", clean, err)
	}

	target, skip, err := freeName(target, data)
	if err != nil {
		return err
	}
	if skip {
		return nil
	}
	return writeAtomic(target, data)
}

// freeName returns the first usable name for data based on target.
// skip is true when a file with identical content already exists.
func freeName(target string, data []byte) (string, bool, error) {
	ext := path.Ext(target)
	base := strings.TrimSuffix(target, ext)
	candidate := target
	for i := 1; i <= maxRenames; i++ {
		existing, err := os.ReadFile(candidate) //nolint:gosec // path is built below root
		if os.IsNotExist(err) {
			return candidate, false, nil
		}
		if err != nil {
			return "", false, fmt.Errorf("failed to inspect %s: %w", candidate, err)
		}
		if bytes.Equal(existing, data) {
			return candidate, true, nil
		}
		candidate = fmt.Sprintf("%s_%d%s", base, i, ext)
	}
	return "", false, fmt.Errorf("no free file name for %s", target)
}

func writeAtomic(target string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(target), ".boardaid-*")
	if err != nil {
		return fmt.Errorf("failed to create temporary file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName) //nolint:errcheck // already renamed on success

	if _, err := tmp.Write(data); err != nil {
		tmp.Close() //nolint:errcheck,gosec // write error takes precedence
		return fmt.Errorf("failed to write %s: %w", target, err)
	}
	if err := tmp.Chmod(filePerm); err != nil {
		tmp.Close() //nolint:errcheck,gosec // chmod error takes precedence
		return fmt.Errorf("failed to chmod %s: %w", target, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close %s: %w", target, err)
	}
	if err := os.Rename(tmpName, target); err != nil {
		return fmt.Errorf("failed to move %s into place: %w", target, err)
	}
	return nil
}
