package core

import "context"

// Source loads the raw content of one document.
type Source interface {
	Load(ctx context.Context) (string, error)
}

// Sink persists the transformed content of one document.
type Sink interface {
	Store(ctx context.Context, content string) error
}

// Processor transforms one input item into one output item.
type Processor[In any, Out any] interface {
	Process(ctx context.Context, in In) (Out, error)
}

// ProcessFunc adapts a function to the Processor interface.
type ProcessFunc[In any, Out any] func(ctx context.Context, in In) (Out, error)

func (f ProcessFunc[In, Out]) Process(ctx context.Context, in In) (Out, error) {
	return f(ctx, in)
}

// Pipe loads from src, runs p and stores the result in dst.
func Pipe(ctx context.Context, src Source, p Processor[string, string], dst Sink) error {
	in, err := src.Load(ctx)
	if err != nil {
		return err
	}
	out, err := p.Process(ctx, in)
	if err != nil {
		return err
	}
	return dst.Store(ctx, out)
}
