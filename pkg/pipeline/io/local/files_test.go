package local_test

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/shpitdev/filemod/pkg/pipeline/core"
	"github.com/shpitdev/filemod/pkg/pipeline/io/local"
	"github.com/spf13/afero"
)

// denyOpenFs rejects every Open with a permission error.
type denyOpenFs struct {
	afero.Fs
}

func (denyOpenFs) Open(name string) (afero.File, error) {
	return nil, &fs.PathError{Op: "open", Path: name, Err: fs.ErrPermission}
}

func TestFiles_ReadWrite(t *testing.T) {
	t.Parallel()

	files := local.NewFiles(afero.NewMemMapFs())
	ctx := context.Background()

	if err := files.Write(ctx, "notes.txt", "a\nb\n"); err != nil {
		t.Fatalf("Write: %v", err)
	}
	got, err := files.Read(ctx, "notes.txt")
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if got != "a\nb\n" {
		t.Fatalf("Read=%q want=%q", got, "a\nb\n")
	}

	if err := files.Write(ctx, "notes.txt", "short"); err != nil {
		t.Fatalf("rewrite: %v", err)
	}
	got, err = files.Read(ctx, "notes.txt")
	if err != nil {
		t.Fatalf("Read after rewrite: %v", err)
	}
	if got != "short" {
		t.Fatalf("rewrite must truncate, got %q", got)
	}
}

func TestFiles_ReadNormalizesLineBreaks(t *testing.T) {
	t.Parallel()

	mem := afero.NewMemMapFs()
	if err := afero.WriteFile(mem, "mac.txt", []byte("one\rtwo\r\nthree\n"), 0o644); err != nil {
		t.Fatalf("seed: %v", err)
	}
	got, err := local.NewFiles(mem).Read(context.Background(), "mac.txt")
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if got != "one\ntwo\nthree\n" {
		t.Fatalf("Read=%q want=%q", got, "one\ntwo\nthree\n")
	}
}

func TestFiles_ErrorKinds(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("missing input is not found", func(t *testing.T) {
		files := local.NewFiles(afero.NewMemMapFs())
		_, err := files.Read(ctx, "missing.txt")
		assertKind(t, err, local.OpRead, local.KindNotFound)
		want := "Error: The file 'missing.txt' was not found."
		if msg := message(t, err); msg != want {
			t.Fatalf("Message=%q want=%q", msg, want)
		}
	})

	t.Run("read permission denied", func(t *testing.T) {
		files := local.NewFiles(denyOpenFs{afero.NewMemMapFs()})
		_, err := files.Read(ctx, "secret.txt")
		assertKind(t, err, local.OpRead, local.KindPermissionDenied)
		want := "Error: Permission denied to read the file 'secret.txt'."
		if msg := message(t, err); msg != want {
			t.Fatalf("Message=%q want=%q", msg, want)
		}
	})

	t.Run("write permission denied", func(t *testing.T) {
		files := local.NewFiles(afero.NewReadOnlyFs(afero.NewMemMapFs()))
		err := files.Write(ctx, "out.txt", "x")
		assertKind(t, err, local.OpWrite, local.KindPermissionDenied)
		want := "Error: Permission denied to write to the file 'out.txt'."
		if msg := message(t, err); msg != want {
			t.Fatalf("Message=%q want=%q", msg, want)
		}
	})

	t.Run("reading a directory is an io failure", func(t *testing.T) {
		dir := t.TempDir()
		files := local.NewFiles(nil)
		_, err := files.Read(ctx, dir)
		assertKind(t, err, local.OpRead, local.KindIO)
		prefix := fmt.Sprintf("Error: An I/O error occurred while reading '%s': ", dir)
		if msg := message(t, err); !strings.HasPrefix(msg, prefix) {
			t.Fatalf("Message=%q want prefix %q", msg, prefix)
		}
	})

	t.Run("writing into a missing directory is an io failure", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "nope", "out.txt")
		files := local.NewFiles(afero.NewOsFs())
		err := files.Write(ctx, path, "x")
		assertKind(t, err, local.OpWrite, local.KindIO)
		if !errors.Is(err, fs.ErrNotExist) {
			t.Fatalf("expected wrapped ErrNotExist, got %v", err)
		}
	})

	t.Run("invalid utf-8 is unexpected", func(t *testing.T) {
		mem := afero.NewMemMapFs()
		if err := afero.WriteFile(mem, "bin.dat", []byte{0xff, 0xfe, 0x00}, 0o644); err != nil {
			t.Fatalf("seed: %v", err)
		}
		_, err := local.NewFiles(mem).Read(ctx, "bin.dat")
		assertKind(t, err, local.OpRead, local.KindUnexpected)
		prefix := "Error: An unexpected error occurred while reading 'bin.dat': "
		if msg := message(t, err); !strings.HasPrefix(msg, prefix) {
			t.Fatalf("Message=%q want prefix %q", msg, prefix)
		}
	})

	t.Run("cancelled context is unexpected", func(t *testing.T) {
		cctx, cancel := context.WithCancel(ctx)
		cancel()
		_, err := local.NewFiles(afero.NewMemMapFs()).Read(cctx, "x")
		assertKind(t, err, local.OpRead, local.KindUnexpected)
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("expected wrapped context.Canceled, got %v", err)
		}
	})
}

func TestKindOf(t *testing.T) {
	t.Parallel()

	_, err := local.NewFiles(afero.NewMemMapFs()).Read(context.Background(), "missing.txt")
	wrapped := fmt.Errorf("run: %w", err)
	if got := local.KindOf(wrapped); got != local.KindNotFound {
		t.Fatalf("KindOf=%q want=%q", got, local.KindNotFound)
	}
	if got := local.KindOf(errors.New("plain")); got != local.KindUnexpected {
		t.Fatalf("KindOf(plain)=%q want=%q", got, local.KindUnexpected)
	}
}

func TestFiles_SourceSink(t *testing.T) {
	t.Parallel()

	mem := afero.NewMemMapFs()
	if err := afero.WriteFile(mem, "in.txt", []byte("hi"), 0o644); err != nil {
		t.Fatalf("seed: %v", err)
	}
	files := local.NewFiles(mem)
	double := core.ProcessFunc[string, string](func(_ context.Context, in string) (string, error) {
		return in + in, nil
	})
	if err := core.Pipe(context.Background(), files.Source("in.txt"), double, files.Sink("out.txt")); err != nil {
		t.Fatalf("Pipe: %v", err)
	}
	b, err := afero.ReadFile(mem, "out.txt")
	if err != nil {
		t.Fatalf("read output: %v", err)
	}
	if string(b) != "hihi" {
		t.Fatalf("output=%q want=%q", b, "hihi")
	}
}

func TestOutputPath(t *testing.T) {
	t.Parallel()

	sep := string(os.PathSeparator)
	tests := []struct {
		name string
		in   string
		want string
	}{
		{name: "simple", in: "notes.txt", want: "notes_modified.txt"},
		{name: "no extension", in: "README", want: "README_modified"},
		{name: "double extension", in: "b.tar.gz", want: "b.tar_modified.gz"},
		{name: "dotfile", in: ".env", want: ".env_modified"},
		{name: "dotfile with extension", in: ".config.yaml", want: ".config_modified.yaml"},
		{name: "trailing dot", in: "a.", want: "a_modified."},
		{name: "keeps directory", in: "dir" + sep + "f.md", want: "dir" + sep + "f_modified.md"},
		{name: "dotted directory", in: "v1.2" + sep + "file", want: "v1.2" + sep + "file_modified"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := local.OutputPath(tt.in, local.DefaultSuffix); got != tt.want {
				t.Fatalf("OutputPath(%q)=%q want=%q", tt.in, got, tt.want)
			}
		})
	}
}

func assertKind(t *testing.T, err error, op local.Op, kind local.ErrorKind) {
	t.Helper()

	var fe *local.FileError
	if !errors.As(err, &fe) {
		t.Fatalf("expected *local.FileError, got %T (%v)", err, err)
	}
	if fe.Op != op || fe.Kind != kind {
		t.Fatalf("got op=%q kind=%q want op=%q kind=%q (%v)", fe.Op, fe.Kind, op, kind, fe.Err)
	}
}

func message(t *testing.T, err error) string {
	t.Helper()

	var fe *local.FileError
	if !errors.As(err, &fe) {
		t.Fatalf("expected *local.FileError, got %T", err)
	}
	return fe.Message()
}
