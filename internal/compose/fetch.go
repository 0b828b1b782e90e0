package compose

import (
	"context"

	"github.com/p-n-ai/pai-quiz/internal/curriculum"
)

// Fetch tracks one in-flight taxonomy lookup issued by the controller.
// Callers may ignore it; the controller applies or discards the result itself.
type Fetch struct {
	Level curriculum.Level

	tag   uint64
	done  chan struct{}
	err   error
	stale bool
}

func newFetch(level curriculum.Level, tag uint64) *Fetch {
	return &Fetch{Level: level, tag: tag, done: make(chan struct{})}
}

// Done is closed once the fetch has been applied or discarded.
func (f *Fetch) Done() <-chan struct{} {
	return f.done
}

// Err returns the *curriculum.FetchError of a failed, current fetch. It is nil
// for successful and stale fetches. Only valid after Done is closed.
func (f *Fetch) Err() error {
	return f.err
}

// Stale reports whether the result was discarded because the selection moved
// on before it arrived. Only valid after Done is closed.
func (f *Fetch) Stale() bool {
	return f.stale
}

// Wait blocks until the fetch settles or ctx ends.
func (f *Fetch) Wait(ctx context.Context) error {
	select {
	case <-f.done:
		return f.err
	case <-ctx.Done():
		return ctx.Err()
	}
}
