package local

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/shpitdev/filemod/pkg/pipeline/core"
	"github.com/shpitdev/filemod/pkg/transform"
	"github.com/spf13/afero"
)

// DefaultSuffix is inserted before the extension of derived output paths.
const DefaultSuffix = "_modified"

// Files performs scoped text reads and writes against an afero filesystem.
type Files struct {
	FS afero.Fs
}

// NewFiles returns Files over fsys, or over the OS filesystem when fsys is nil.
func NewFiles(fsys afero.Fs) Files {
	if fsys == nil {
		fsys = afero.NewOsFs()
	}
	return Files{FS: fsys}
}

// Read returns the full content of path with "\r\n" and "\r" line breaks
// rewritten as "\n". The file is closed on every path out. Failures are
// returned as *FileError.
func (f Files) Read(ctx context.Context, path string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", newFileError(OpRead, path, err)
	}
	file, err := f.fs().Open(path)
	if err != nil {
		return "", newFileError(OpRead, path, err)
	}
	defer func() {
		_ = file.Close()
	}()

	b, err := io.ReadAll(file)
	if err != nil {
		return "", newFileError(OpRead, path, err)
	}
	if !utf8.Valid(b) {
		return "", newFileError(OpRead, path, errInvalidUTF8)
	}
	return transform.NormalizeNewlines(string(b)), nil
}

// Write creates or truncates path and writes content to it. A failing close
// is reported as a write failure.
func (f Files) Write(ctx context.Context, path string, content string) (err error) {
	if err := ctx.Err(); err != nil {
		return newFileError(OpWrite, path, err)
	}
	file, err := f.fs().OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return newFileError(OpWrite, path, err)
	}
	defer func() {
		if cerr := file.Close(); cerr != nil && err == nil {
			err = newFileError(OpWrite, path, cerr)
		}
	}()

	if _, err := io.WriteString(file, content); err != nil {
		return newFileError(OpWrite, path, err)
	}
	return nil
}

// Source binds path to the core.Source contract.
func (f Files) Source(path string) core.Source {
	return fileSource{files: f, path: path}
}

// Sink binds path to the core.Sink contract.
func (f Files) Sink(path string) core.Sink {
	return fileSink{files: f, path: path}
}

func (f Files) fs() afero.Fs {
	if f.FS == nil {
		return afero.NewOsFs()
	}
	return f.FS
}

type fileSource struct {
	files Files
	path  string
}

func (s fileSource) Load(ctx context.Context) (string, error) {
	return s.files.Read(ctx, s.path)
}

type fileSink struct {
	files Files
	path  string
}

func (s fileSink) Store(ctx context.Context, content string) error {
	return s.files.Write(ctx, s.path, content)
}

// OutputPath inserts suffix before the extension of the base name of input.
// Leading dots of the base name do not start an extension.
//
//	notes.txt      -> notes_modified.txt
//	a/b.tar.gz     -> a/b.tar_modified.gz
//	.env           -> .env_modified
//	README         -> README_modified
func OutputPath(input, suffix string) string {
	dir, base := filepath.Split(input)
	trimmed := strings.TrimLeft(base, ".")
	i := strings.LastIndex(trimmed, ".")
	if i < 0 {
		return input + suffix
	}
	cut := len(base) - len(trimmed) + i
	return dir + base[:cut] + suffix + base[cut:]
}

var errInvalidUTF8 = errors.New("content is not valid UTF-8 text")

// Op names the file access that failed.
type Op string

const (
	OpRead  Op = "read"
	OpWrite Op = "write"
)

// ErrorKind classifies a file access failure.
type ErrorKind string

const (
	KindNotFound         ErrorKind = "not_found"
	KindPermissionDenied ErrorKind = "permission_denied"
	KindIO               ErrorKind = "io"
	KindUnexpected       ErrorKind = "unexpected"
)

// FileError reports a failed read or write of one file.
type FileError struct {
	Op   Op
	Path string
	Kind ErrorKind
	Err  error
}

func newFileError(op Op, path string, err error) *FileError {
	return &FileError{Op: op, Path: path, Kind: classify(op, err), Err: err}
}

func (e *FileError) Error() string {
	if e == nil {
		return "file error"
	}
	return fmt.Sprintf("%s %s: %s: %v", e.Op, e.Path, e.Kind, e.Err)
}

func (e *FileError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// Message renders the failure for display to the user.
func (e *FileError) Message() string {
	if e.Op == OpWrite {
		switch e.Kind {
		case KindPermissionDenied:
			return fmt.Sprintf("Error: Permission denied to write to the file '%s'.", e.Path)
		case KindIO, KindNotFound:
			return fmt.Sprintf("Error: An I/O error occurred while writing to '%s': %v", e.Path, e.Err)
		default:
			return fmt.Sprintf("Error: An unexpected error occurred while writing to '%s': %v", e.Path, e.Err)
		}
	}
	switch e.Kind {
	case KindNotFound:
		return fmt.Sprintf("Error: The file '%s' was not found.", e.Path)
	case KindPermissionDenied:
		return fmt.Sprintf("Error: Permission denied to read the file '%s'.", e.Path)
	case KindIO:
		return fmt.Sprintf("Error: An I/O error occurred while reading '%s': %v", e.Path, e.Err)
	default:
		return fmt.Sprintf("Error: An unexpected error occurred while reading '%s': %v", e.Path, e.Err)
	}
}

// KindOf returns the kind of the first *FileError in err's chain, or
// KindUnexpected when there is none.
func KindOf(err error) ErrorKind {
	var fe *FileError
	if errors.As(err, &fe) {
		return fe.Kind
	}
	return KindUnexpected
}

func classify(op Op, err error) ErrorKind {
	switch {
	case errors.Is(err, fs.ErrNotExist):
		// A missing parent directory on write is an I/O failure, not a missing input.
		if op == OpWrite {
			return KindIO
		}
		return KindNotFound
	case errors.Is(err, fs.ErrPermission):
		return KindPermissionDenied
	}

	var pathErr *fs.PathError
	var sysErr *os.SyscallError
	var linkErr *os.LinkError
	switch {
	case errors.As(err, &pathErr), errors.As(err, &sysErr), errors.As(err, &linkErr):
		return KindIO
	case errors.Is(err, io.ErrUnexpectedEOF), errors.Is(err, io.ErrShortWrite):
		return KindIO
	}
	return KindUnexpected
}
