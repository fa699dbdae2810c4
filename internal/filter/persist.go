package filter

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// List is the on-disk form of the block lists.
type List struct {
	FileNames   []string `yaml:"fileNames"`
	PostContent []string `yaml:"postContent"`
}

// Snapshot returns the current block lists.
func (f *Filter) Snapshot() List {
	return List{
		FileNames:   f.fileNames.Entries(),
		PostContent: f.postContent.Entries(),
	}
}

// Apply adds every term of l to the block lists.
func (f *Filter) Apply(l List) {
	for _, t := range l.FileNames {
		f.fileNames.Add(t)
	}
	for _, t := range l.PostContent {
		f.postContent.Add(t)
	}
}

// SaveFilterList writes both block lists as YAML.
func (f *Filter) SaveFilterList(w io.Writer) error {
	if w == nil {
		return ErrNilWriter
	}
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(f.Snapshot()); err != nil {
		return fmt.Errorf("failed to encode filter list: %w", err)
	}
	return enc.Close()
}

// LoadFilterList reads block lists written by SaveFilterList and adds
// their terms to the current lists. On error the lists are unchanged.
func (f *Filter) LoadFilterList(r io.Reader) error {
	if r == nil {
		return ErrNilReader
	}
	var l List
	if err := yaml.NewDecoder(r).Decode(&l); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("failed to decode filter list: %w", err)
	}
	f.Apply(l)
	return nil
}

// SaveFilterListFile writes the block lists to path, creating parent
// directories as needed.
func (f *Filter) SaveFilterListFile(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0750); err != nil {
		return fmt.Errorf("failed to create filter list directory: %w", err)
	}
	file, err := os.Create(path) //nolint:gosec // path comes from configuration
	if err != nil {
		return fmt.Errorf("failed to create filter list: %w", err)
	}
	if err := f.SaveFilterList(file); err != nil {
		_ = file.Close()
		return err
	}
	return file.Close()
}

// LoadFilterListFile loads the block lists from path. A missing file is
// an error.
func (f *Filter) LoadFilterListFile(path string) error {
	file, err := os.Open(path) //nolint:gosec // path comes from configuration
	if err != nil {
		return fmt.Errorf("failed to open filter list: %w", err)
	}
	defer file.Close()
	return f.LoadFilterList(file)
}
