package core

// These errors model failures of the context layer.  They are
// surfaced to callers rather than retried.

import (
	"errors"
)

var (
	// ErrLinkCycle occurs when link resolution comes back to a
	// (context, path) pair it has already visited.
	ErrLinkCycle = errors.New("link cycle")

	// ErrNoAccessor occurs when a link refers to its target by
	// name only and the context has no Accessor to fetch it.
	ErrNoAccessor = errors.New("no context accessor")

	// ErrNotSerializable occurs when a context holds a value that
	// has no JSON representation (for example a Go closure).
	ErrNotSerializable = errors.New("value not serializable")
)

// ContextError is the general context-layer failure.
type ContextError struct {
	Context string
	Path    string
	Msg     string
	Err     error
}

func (e *ContextError) Error() string {
	s := "context"
	if e.Context != "" {
		s += ` "` + e.Context + `"`
	}
	if e.Path != "" {
		s += ` path "` + e.Path + `"`
	}
	if e.Msg != "" {
		s += ": " + e.Msg
	}
	if e.Err != nil {
		s += ": " + e.Err.Error()
	}
	return s
}

func (e *ContextError) Unwrap() error {
	return e.Err
}

// EvaluationError occurs when a lazily evaluated value fails.
type EvaluationError struct {
	Path string
	Err  error
}

func (e *EvaluationError) Error() string {
	return `evaluation of "` + e.Path + `" failed: ` + e.Err.Error()
}

func (e *EvaluationError) Unwrap() error {
	return e.Err
}

// ModelError occurs when the dependency structure of a context is
// broken, for example when dependencies form a cycle.
type ModelError struct {
	Path string
	Msg  string
}

func (e *ModelError) Error() string {
	return `model error at "` + e.Path + `": ` + e.Msg
}

// ArgError reports a bad argument such as a negative element index.
type ArgError struct {
	Arg string
	Msg string
}

func (e *ArgError) Error() string {
	return `bad argument "` + e.Arg + `": ` + e.Msg
}
