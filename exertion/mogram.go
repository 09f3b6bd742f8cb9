// Package exertion implements mograms: units of work that carry a
// service context (data) and signatures (behavior).
//
// A Task is a single routine.  A Job contains other mograms and runs
// them in sequence or in parallel.  An Exerter runs mograms.
package exertion

import (
	"sync"

	"github.com/google/uuid"

	"github.com/mwsobol/SORCER-sub002/core"
	"github.com/mwsobol/SORCER-sub002/fi"
)

// Status is the state of a mogram.
type Status int

const (
	Initial Status = iota
	Running
	Done
	Failed
)

func (s Status) String() string {
	switch s {
	case Initial:
		return "initial"
	case Running:
		return "running"
	case Done:
		return "done"
	case Failed:
		return "failed"
	default:
		return "unknown"
	}
}

// Mogram is what an Exerter exerts.
type Mogram interface {
	ID() uuid.UUID
	Name() string
	Context() *core.ServiceContext
	Status() Status
	SetStatus(Status)

	// Mograms returns the component mograms of a job.  Tasks have
	// none.
	Mograms() []Mogram

	// IsTree reports whether no mogram is reachable twice.
	IsTree() bool

	ReportException(msg string, err error)
	Exceptions() []core.ThrowableTrace
	AppendTrace(msgs ...string)
	Trace() []string
}

// Routine has what Tasks and Jobs share.
type Routine struct {
	mu     sync.Mutex
	id     uuid.UUID
	name   string
	ctx    *core.ServiceContext
	sigs   *fi.Fidelity[*Signature]
	others []*Signature
	status Status
	traces *core.Traces
}

func newRoutine(name string, ctx *core.ServiceContext, sigs []*Signature) *Routine {
	if ctx == nil {
		ctx = core.NewServiceContext(name)
	}
	r := &Routine{
		id:     uuid.New(),
		name:   name,
		ctx:    ctx,
		sigs:   fi.New[*Signature](name, fi.SIG),
		traces: core.NewTraces(),
	}
	r.AddSignatures(sigs...)
	return r
}

func (r *Routine) ID() uuid.UUID {
	return r.id
}

func (r *Routine) Name() string {
	return r.name
}

func (r *Routine) Context() *core.ServiceContext {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.ctx
}

// SetContext replaces the routine's data context.
func (r *Routine) SetContext(ctx *core.ServiceContext) {
	r.mu.Lock()
	r.ctx = ctx
	r.mu.Unlock()
}

func (r *Routine) Status() Status {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.status
}

func (r *Routine) SetStatus(s Status) {
	r.mu.Lock()
	r.status = s
	r.mu.Unlock()
}

// AddSignatures adds SRV signatures to the routine's fidelity and
// keeps the others for their phases.
func (r *Routine) AddSignatures(sigs ...*Signature) {
	for _, s := range sigs {
		if s.sigType() == SRV {
			r.sigs.Add(s)
			continue
		}
		r.mu.Lock()
		r.others = append(r.others, s)
		r.mu.Unlock()
	}
}

// Fidelity returns the fidelity of process signatures.  A Manager
// can morph it.
func (r *Routine) Fidelity() *fi.Fidelity[*Signature] {
	return r.sigs
}

// Process returns the selected process signature.
func (r *Routine) Process() (*Signature, error) {
	return r.sigs.Select()
}

// Signatures returns all signatures: the process alternatives first,
// then the others.
func (r *Routine) Signatures() []*Signature {
	acc := r.sigs.Selects()
	r.mu.Lock()
	acc = append(acc, r.others...)
	r.mu.Unlock()
	return acc
}

// SignaturesOf returns the non-process signatures of the given type.
func (r *Routine) SignaturesOf(t SigType) []*Signature {
	r.mu.Lock()
	defer r.mu.Unlock()
	var acc []*Signature
	for _, s := range r.others {
		if s.sigType() == t {
			acc = append(acc, s)
		}
	}
	return acc
}

func (r *Routine) ReportException(msg string, err error) {
	r.traces.Report(msg, err)
}

func (r *Routine) Exceptions() []core.ThrowableTrace {
	_, exs := r.traces.Snapshot()
	return exs
}

func (r *Routine) AppendTrace(msgs ...string) {
	r.traces.Add(msgs...)
}

func (r *Routine) Trace() []string {
	msgs, _ := r.traces.Snapshot()
	return msgs
}

// Task is a single routine.
type Task struct {
	*Routine
}

// NewTask makes a task.  A nil context gets an empty one.
func NewTask(name string, ctx *core.ServiceContext, sigs ...*Signature) *Task {
	return &Task{
		Routine: newRoutine(name, ctx, sigs),
	}
}

func (t *Task) Mograms() []Mogram {
	return nil
}

func (t *Task) IsTree() bool {
	return true
}
