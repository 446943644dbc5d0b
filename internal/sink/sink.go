package sink

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"
)

// DefaultPath is where the widget expects the payload.
const DefaultPath = "site/positions.json"

// Sink receives a serialized snapshot.
type Sink interface {
	Write(ctx context.Context, payload []byte) error
}

// WriteError reports a payload that could not be committed to its destination.
type WriteError struct {
	Path string
	Op   string
	Err  error
}

func (e *WriteError) Error() string {
	return fmt.Sprintf("sink %s %s: %v", e.Op, e.Path, e.Err)
}

func (e *WriteError) Unwrap() error { return e.Err }

// FileOptions configure File.
type FileOptions struct {
	Path string
	Perm os.FileMode
}

// File replaces a file atomically: the payload goes to a temporary file in
// the target directory which is then renamed over the destination.
type File struct {
	path   string
	perm   os.FileMode
	logger zerolog.Logger
}

// NewFile builds a file sink.
func NewFile(opts FileOptions, logger zerolog.Logger) *File {
	path := opts.Path
	if path == "" {
		path = DefaultPath
	}
	perm := opts.Perm
	if perm == 0 {
		perm = 0o644
	}
	return &File{
		path:   path,
		perm:   perm,
		logger: logger.With().Str("component", "file_sink").Logger(),
	}
}

// Path returns the destination path.
func (f *File) Path() string {
	return f.path
}

// Write commits payload to the destination, overwriting any previous content.
func (f *File) Write(ctx context.Context, payload []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := ensureDir(f.path); err != nil {
		return &WriteError{Path: f.path, Op: "mkdir", Err: err}
	}

	tmp, err := os.CreateTemp(filepath.Dir(f.path), "."+filepath.Base(f.path)+".*.tmp")
	if err != nil {
		return &WriteError{Path: f.path, Op: "create", Err: err}
	}
	tmpName := tmp.Name()
	committed := false
	defer func() {
		if !committed {
			os.Remove(tmpName)
		}
	}()

	if _, err := tmp.Write(payload); err != nil {
		tmp.Close()
		return &WriteError{Path: f.path, Op: "write", Err: err}
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return &WriteError{Path: f.path, Op: "sync", Err: err}
	}
	if err := tmp.Close(); err != nil {
		return &WriteError{Path: f.path, Op: "close", Err: err}
	}
	if err := os.Chmod(tmpName, f.perm); err != nil {
		return &WriteError{Path: f.path, Op: "chmod", Err: err}
	}
	if err := os.Rename(tmpName, f.path); err != nil {
		return &WriteError{Path: f.path, Op: "rename", Err: err}
	}
	committed = true

	f.logger.Info().Str("path", f.path).Int("bytes", len(payload)).Msg("snapshot written")
	return nil
}

func ensureDir(path string) error {
	dir := filepath.Dir(path)
	if dir == "." || dir == "" {
		return nil
	}
	return os.MkdirAll(dir, 0o755)
}

// Writer streams payloads to an io.Writer, one per line.
type Writer struct {
	out io.Writer
}

// NewWriter wraps out.
func NewWriter(out io.Writer) *Writer {
	return &Writer{out: out}
}

// Write emits payload followed by a newline.
func (w *Writer) Write(ctx context.Context, payload []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	buf := make([]byte, 0, len(payload)+1)
	buf = append(buf, payload...)
	buf = append(buf, '\n')
	if _, err := w.out.Write(buf); err != nil {
		return &WriteError{Path: "<stream>", Op: "write", Err: err}
	}
	return nil
}

var (
	_ Sink = (*File)(nil)
	_ Sink = (*Writer)(nil)
)
