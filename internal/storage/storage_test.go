package storage

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/nao1215/boardaid/internal/model"
)

func TestCleanPath(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		in      string
		want    string
		wantErr bool
	}{
		{name: "plain", in: "g/1/a.jpg", want: "g/1/a.jpg"},
		{name: "redundant", in: "g//1/./a.jpg", want: "g/1/a.jpg"},
		{name: "backslash", in: `g\1\a.jpg`, want: "g/1/a.jpg"},
		{name: "empty", in: "", wantErr: true},
		{name: "absolute", in: "/etc/passwd", wantErr: true},
		{name: "escape", in: "g/../../x", wantErr: true},
		{name: "dot", in: ".", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, err := cleanPath(tt.in)
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidPath) {
					t.Errorf("expected ErrInvalidPath, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestLocalWrite(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	w := NewLocal(root)
	ctx := context.Background()

	if err := w.Write(ctx, "g/1/a.jpg", []byte("first")); err != nil {
		t.Fatalf("Write: %v", err)
	}
	// Same content is not written twice.
	if err := w.Write(ctx, "g/1/a.jpg", []byte("first")); err != nil {
		t.Fatalf("Write: %v", err)
	}
	// Different content gets a new name.
	if err := w.Write(ctx, "g/1/a.jpg", []byte("second")); err != nil {
		t.Fatalf("Write: %v", err)
	}

	got, err := os.ReadFile(filepath.Join(root, "g", "1", "a.jpg"))
	if err != nil || string(got) != "first" {
		t.Errorf("unexpected original file %q, %v", got, err)
	}
	got, err = os.ReadFile(filepath.Join(root, "g", "1", "a_1.jpg"))
	if err != nil || string(got) != "second" {
		t.Errorf("unexpected renamed file %q, %v", got, err)
	}
	entries, err := os.ReadDir(filepath.Join(root, "g", "1"))
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 2 {
		t.Errorf("expected 2 files, got %d", len(entries))
	}

	if err := w.Write(ctx, "../x.jpg", []byte("x")); !errors.Is(err, ErrInvalidPath) {
		t.Errorf("expected ErrInvalidPath, got %v", err)
	}
}

func TestS3Key(t *testing.T) {
	t.Parallel()

	s := &S3{prefix: "images"}
	got, err := s.key("g/1/a.jpg")
	if err != nil {
		t.Fatal(err)
	}
	if got != "images/g/1/a.jpg" {
		t.Errorf("unexpected key %q", got)
	}

	s = &S3{}
	if got, _ := s.key("g/1/a.jpg"); got != "g/1/a.jpg" {
		t.Errorf("unexpected key %q", got)
	}
	if _, err := s.key("/abs"); !errors.Is(err, ErrInvalidPath) {
		t.Errorf("expected ErrInvalidPath, got %v", err)
	}
}

type fakeHashes struct {
	mu        sync.Mutex
	blacklist map[string]bool
	known     map[string]model.HashRecord
}

func newFakeHashes() *fakeHashes {
	return &fakeHashes{blacklist: map[string]bool{}, known: map[string]model.HashRecord{}}
}

func (f *fakeHashes) IsBlacklisted(_ context.Context, hash string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.blacklist[hash], nil
}

func (f *fakeHashes) Exists(_ context.Context, hash string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.known[hash]
	return ok, nil
}

var errDuplicateHash = errors.New("duplicate hash")

func (f *fakeHashes) AddHash(_ context.Context, rec model.HashRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.known[rec.Hash]; ok {
		return errDuplicateHash
	}
	f.known[rec.Hash] = rec
	return nil
}

func TestDedup(t *testing.T) {
	t.Parallel()

	var written []string
	next := WriterFunc(func(_ context.Context, p string, _ []byte) error {
		written = append(written, p)
		return nil
	})
	hashes := newFakeHashes()
	hashes.blacklist[Hash([]byte("bad"))] = true
	d := NewDedup(next, hashes, nil)
	ctx := context.Background()

	if err := d.Write(ctx, "g/1/a.jpg", []byte("image")); err != nil {
		t.Fatal(err)
	}
	if err := d.Write(ctx, "g/2/copy.jpg", []byte("image")); err != nil {
		t.Fatal(err)
	}
	if err := d.Write(ctx, "g/3/bad.jpg", []byte("bad")); err != nil {
		t.Fatal(err)
	}

	if len(written) != 1 || written[0] != "g/1/a.jpg" {
		t.Errorf("unexpected writes %v", written)
	}
	rec, ok := hashes.known[Hash([]byte("image"))]
	if !ok || rec.Path != "g/1/a.jpg" || rec.Size != 5 {
		t.Errorf("unexpected hash record %+v", rec)
	}
}

func TestDedupConcurrentIdenticalWrites(t *testing.T) {
	t.Parallel()

	var (
		mu      sync.Mutex
		written []string
	)
	release := make(chan struct{})
	next := WriterFunc(func(_ context.Context, p string, _ []byte) error {
		<-release
		mu.Lock()
		defer mu.Unlock()
		written = append(written, p)
		return nil
	})
	hashes := newFakeHashes()
	d := NewDedup(next, hashes, nil)

	const writers = 8
	errs := make(chan error, writers)
	var wg sync.WaitGroup
	for i := range writers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs <- d.Write(context.Background(), fmt.Sprintf("g/1/copy%d.jpg", i), []byte("image"))
		}()
	}
	close(release)
	wg.Wait()
	close(errs)

	for err := range errs {
		if err != nil {
			t.Errorf("unexpected error: %v", err)
		}
	}
	if len(written) != 1 {
		t.Errorf("expected one write, got %v", written)
	}
	if len(hashes.known) != 1 {
		t.Errorf("expected one hash record, got %d", len(hashes.known))
	}
}

func TestDedupWriteFailureIsNotRecorded(t *testing.T) {
	t.Parallel()

	boom := errors.New("boom")
	hashes := newFakeHashes()
	d := NewDedup(WriterFunc(func(context.Context, string, []byte) error { return boom }), hashes, nil)
	if err := d.Write(context.Background(), "a.jpg", []byte("x")); !errors.Is(err, boom) {
		t.Errorf("expected write error, got %v", err)
	}
	if len(hashes.known) != 0 {
		t.Error("failed write must not record a hash")
	}
}

func TestHash(t *testing.T) {
	t.Parallel()

	// SHA3-256 of the empty input.
	const empty = "a7ffc6f8bf1ed76651c14756a061d662f580ff4de43b49fa82d80a4b80f8434a"
	if got := Hash(nil); got != empty {
		t.Errorf("got %s", got)
	}
}
