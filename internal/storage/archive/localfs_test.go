package archive

import (
	"context"
	"errors"
	"testing"

	"github.com/newthinker/frontier/internal/core"
)

func TestLocalFS_ImplementsStorage(t *testing.T) {
	var _ Storage = (*LocalFS)(nil)
}

func TestLocalFS_WriteRead(t *testing.T) {
	dir := t.TempDir()
	fs, err := NewLocalFS(dir)
	if err != nil {
		t.Fatalf("NewLocalFS: %v", err)
	}

	ctx := context.Background()
	data := []byte("return,volatility\n")

	if err := fs.Write(ctx, "runs/2024/01/x/trials.csv", data); err != nil {
		t.Fatalf("Write: %v", err)
	}

	got, err := fs.Read(ctx, "runs/2024/01/x/trials.csv")
	if err != nil {
		t.Fatalf("Read: %v", err)
	}

	if string(got) != string(data) {
		t.Errorf("got %q, want %q", got, data)
	}

	if _, err := fs.Read(ctx, "missing.csv"); !errors.Is(err, core.ErrNoData) {
		t.Errorf("expected ErrNoData for missing file, got %v", err)
	}
}

func TestLocalFS_Exists(t *testing.T) {
	dir := t.TempDir()
	fs, _ := NewLocalFS(dir)
	ctx := context.Background()

	exists, _ := fs.Exists(ctx, "nonexistent.txt")
	if exists {
		t.Error("expected false for nonexistent file")
	}

	fs.Write(ctx, "exists.txt", []byte("data"))
	exists, _ = fs.Exists(ctx, "exists.txt")
	if !exists {
		t.Error("expected true for existing file")
	}
}

func TestLocalFS_List(t *testing.T) {
	dir := t.TempDir()
	fs, _ := NewLocalFS(dir)
	ctx := context.Background()

	fs.Write(ctx, "data/2024/01/b.txt", []byte("b"))
	fs.Write(ctx, "data/2024/01/a.txt", []byte("a"))
	fs.Write(ctx, "data/2024/02/c.txt", []byte("c"))

	paths, err := fs.List(ctx, "data/2024/01")
	if err != nil {
		t.Fatalf("List: %v", err)
	}

	if len(paths) != 2 || paths[0] != "data/2024/01/a.txt" {
		t.Errorf("unexpected paths: %v", paths)
	}

	paths, err = fs.List(ctx, "nothing/here")
	if err != nil || len(paths) != 0 {
		t.Errorf("expected empty list for missing prefix, got %v, %v", paths, err)
	}
}

func TestLocalFS_Delete(t *testing.T) {
	dir := t.TempDir()
	fs, _ := NewLocalFS(dir)
	ctx := context.Background()

	fs.Write(ctx, "delete.txt", []byte("data"))
	fs.Delete(ctx, "delete.txt")

	exists, _ := fs.Exists(ctx, "delete.txt")
	if exists {
		t.Error("file should be deleted")
	}
}

func TestLocalFS_RejectsEscape(t *testing.T) {
	fs, _ := NewLocalFS(t.TempDir())
	ctx := context.Background()

	if err := fs.Write(ctx, "../outside.txt", []byte("x")); !errors.Is(err, core.ErrStorageFailed) {
		t.Errorf("expected ErrStorageFailed, got %v", err)
	}
	if _, err := fs.Read(ctx, "a/../../outside.txt"); err == nil {
		t.Error("expected error reading outside the root")
	}
}

func TestNew(t *testing.T) {
	s, err := New(Config{Type: "localfs", Path: t.TempDir()})
	if err != nil {
		t.Fatalf("New localfs: %v", err)
	}
	if _, ok := s.(*LocalFS); !ok {
		t.Errorf("expected *LocalFS, got %T", s)
	}

	if _, err := New(Config{Type: "ftp"}); err == nil {
		t.Error("expected error for unknown type")
	}
	if _, err := New(Config{Type: "s3"}); !errors.Is(err, core.ErrConfigMissing) {
		t.Errorf("expected ErrConfigMissing without bucket, got %v", err)
	}
}
