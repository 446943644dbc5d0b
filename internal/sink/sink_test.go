package sink

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
)

func TestFileCreatesParentDirectories(t *testing.T) {
	path := filepath.Join(t.TempDir(), "site", "nested", "positions.json")
	f := NewFile(FileOptions{Path: path}, zerolog.Nop())

	if err := f.Write(context.Background(), []byte(`{"a":1}`)); err != nil {
		t.Fatalf("Write error: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read back: %v", err)
	}
	if string(data) != `{"a":1}` {
		t.Fatalf("payload = %q", data)
	}
}

func TestFileOverwritesUnconditionally(t *testing.T) {
	path := filepath.Join(t.TempDir(), "positions.json")
	f := NewFile(FileOptions{Path: path}, zerolog.Nop())

	if err := f.Write(context.Background(), []byte("first payload that is longer")); err != nil {
		t.Fatalf("first write: %v", err)
	}
	if err := f.Write(context.Background(), []byte("second")); err != nil {
		t.Fatalf("second write: %v", err)
	}

	data, _ := os.ReadFile(path)
	if string(data) != "second" {
		t.Fatalf("payload = %q, want second", data)
	}

	entries, _ := os.ReadDir(filepath.Dir(path))
	if len(entries) != 1 {
		t.Fatalf("temporary files left behind: %d entries", len(entries))
	}
}

func TestFileParentBlockedByRegularFile(t *testing.T) {
	dir := t.TempDir()
	blocker := filepath.Join(dir, "site")
	if err := os.WriteFile(blocker, []byte("not a dir"), 0o644); err != nil {
		t.Fatal(err)
	}

	f := NewFile(FileOptions{Path: filepath.Join(blocker, "positions.json")}, zerolog.Nop())
	err := f.Write(context.Background(), []byte("{}"))

	var writeErr *WriteError
	if !errors.As(err, &writeErr) {
		t.Fatalf("expected *WriteError, got %v", err)
	}
	if writeErr.Op != "mkdir" {
		t.Fatalf("op = %s, want mkdir", writeErr.Op)
	}
}

func TestFileDestinationIsDirectory(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "positions.json")
	if err := os.Mkdir(target, 0o755); err != nil {
		t.Fatal(err)
	}

	f := NewFile(FileOptions{Path: target}, zerolog.Nop())
	err := f.Write(context.Background(), []byte("{}"))

	var writeErr *WriteError
	if !errors.As(err, &writeErr) {
		t.Fatalf("expected *WriteError, got %v", err)
	}

	entries, _ := os.ReadDir(dir)
	if len(entries) != 1 {
		t.Fatalf("temporary file not cleaned up: %d entries", len(entries))
	}
}

func TestFileDefaultPath(t *testing.T) {
	f := NewFile(FileOptions{}, zerolog.Nop())
	if f.Path() != DefaultPath {
		t.Fatalf("path = %s", f.Path())
	}
}

func TestWriterAppendsNewline(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf)
	if err := w.Write(context.Background(), []byte(`{"x":"☉"}`)); err != nil {
		t.Fatalf("Write error: %v", err)
	}
	if buf.String() != "{\"x\":\"☉\"}\n" {
		t.Fatalf("output = %q", buf.String())
	}
}
