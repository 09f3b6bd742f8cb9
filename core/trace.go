package core

import (
	"sync"
	"time"
)

var (
	// TracesInitialCap is the initial capacity for Traces buffers.
	TracesInitialCap = 16

	// TracesLimit bounds the number of trace messages kept.  Older
	// messages are dropped first.  Zero means no limit.
	TracesLimit = 1024
)

// ThrowableTrace is a record of a reported failure.
type ThrowableTrace struct {
	Message string    `json:"message"`
	At      time.Time `json:"at"`
	Cause   string    `json:"cause,omitempty"`

	err error
}

// NewThrowableTrace records the given error now.
func NewThrowableTrace(msg string, err error) ThrowableTrace {
	t := ThrowableTrace{
		Message: msg,
		At:      time.Now().UTC(),
		err:     err,
	}
	if err != nil {
		t.Cause = err.Error()
		if msg == "" {
			t.Message = t.Cause
		}
	}
	return t
}

// Err returns the recorded error, which doesn't survive
// serialization.
func (t ThrowableTrace) Err() error {
	return t.err
}

// Traces holds trace messages and reported exceptions.  A trace is a
// side channel: appending never affects error propagation.
type Traces struct {
	mu         sync.Mutex
	Messages   []string         `json:"messages,omitempty" yaml:",omitempty"`
	Exceptions []ThrowableTrace `json:"exceptions,omitempty" yaml:",omitempty"`
}

// NewTraces creates an initialized Traces.
func NewTraces() *Traces {
	return &Traces{
		Messages: make([]string, 0, TracesInitialCap),
	}
}

// Add appends trace messages.
func (ts *Traces) Add(msgs ...string) {
	ts.mu.Lock()
	ts.Messages = append(ts.Messages, msgs...)
	if 0 < TracesLimit && TracesLimit < len(ts.Messages) {
		ts.Messages = append(ts.Messages[:0], ts.Messages[len(ts.Messages)-TracesLimit:]...)
	}
	ts.mu.Unlock()
}

// Report records a failure.
func (ts *Traces) Report(msg string, err error) {
	ts.mu.Lock()
	ts.Exceptions = append(ts.Exceptions, NewThrowableTrace(msg, err))
	ts.mu.Unlock()
}

// Snapshot returns copies of the messages and exceptions.
func (ts *Traces) Snapshot() ([]string, []ThrowableTrace) {
	ts.mu.Lock()
	defer ts.mu.Unlock()
	return append([]string(nil), ts.Messages...), append([]ThrowableTrace(nil), ts.Exceptions...)
}

// AddTraces appends another Traces' messages and exceptions.
func (ts *Traces) AddTraces(more *Traces) {
	if more == nil || more == ts {
		return
	}
	msgs, exs := more.Snapshot()
	ts.Add(msgs...)
	ts.mu.Lock()
	ts.Exceptions = append(ts.Exceptions, exs...)
	ts.mu.Unlock()
}
