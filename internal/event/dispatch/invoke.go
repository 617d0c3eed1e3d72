package dispatch

import (
	"context"
	"runtime/debug"
	"time"
)

// Handler mirrors event.Handler so the two packages do not import each other.
type Handler interface {
	Handle(ctx context.Context, event any) error
}

// Status classifies a handler call.
type Status uint8

const (
	// Delivered means the handler returned nil.
	Delivered Status = iota
	// Failed means the handler returned an error.
	Failed
	// Panicked means the handler panicked and was recovered.
	Panicked
	// Skipped means the context was already done and the handler never ran.
	Skipped
)

// String returns a human-readable status name.
func (s Status) String() string {
	switch s {
	case Delivered:
		return "delivered"
	case Failed:
		return "failed"
	case Panicked:
		return "panicked"
	case Skipped:
		return "skipped"
	}
	return "unknown"
}

// Outcome describes one handler call.
type Outcome struct {
	Status    Status
	Err       error
	Recovered any
	Stack     []byte
	Elapsed   time.Duration
}

// Invoke calls h with event in the caller's goroutine.
func Invoke(ctx context.Context, event any, h Handler) (out Outcome) {
	if err := ctx.Err(); err != nil {
		return Outcome{Status: Skipped, Err: err}
	}

	start := time.Now()
	defer func() {
		out.Elapsed = time.Since(start)
		if r := recover(); r != nil {
			out.Status = Panicked
			out.Recovered = r
			out.Stack = debug.Stack()
			out.Err = nil
		}
	}()

	if err := h.Handle(ctx, event); err != nil {
		return Outcome{Status: Failed, Err: err}
	}
	return Outcome{Status: Delivered}
}
