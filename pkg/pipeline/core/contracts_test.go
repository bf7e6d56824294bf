package core_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/shpitdev/filemod/pkg/pipeline/core"
)

type stringSource struct {
	s   string
	err error
}

func (s stringSource) Load(context.Context) (string, error) { return s.s, s.err }

type captureSink struct {
	got    string
	stored bool
}

func (c *captureSink) Store(_ context.Context, content string) error {
	c.got = content
	c.stored = true
	return nil
}

func TestPipe(t *testing.T) {
	t.Parallel()

	upper := core.ProcessFunc[string, string](func(_ context.Context, in string) (string, error) {
		return strings.ToUpper(in), nil
	})

	t.Run("loads processes stores", func(t *testing.T) {
		sink := &captureSink{}
		if err := core.Pipe(context.Background(), stringSource{s: "abc"}, upper, sink); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if sink.got != "ABC" {
			t.Fatalf("stored=%q want=%q", sink.got, "ABC")
		}
	})

	t.Run("load error skips store", func(t *testing.T) {
		sink := &captureSink{}
		loadErr := errors.New("boom")
		err := core.Pipe(context.Background(), stringSource{err: loadErr}, upper, sink)
		if !errors.Is(err, loadErr) {
			t.Fatalf("err=%v want=%v", err, loadErr)
		}
		if sink.stored {
			t.Fatalf("sink must not be called after a load error")
		}
	})
}
