package exertion

import (
	"sync"

	"github.com/google/uuid"

	"github.com/mwsobol/SORCER-sub002/core"
)

// Flow says how a job runs its mograms.
type Flow string

const (
	SEQ Flow = "SEQ"
	PAR Flow = "PAR"
)

// Pipe copies values between the contexts of two of a job's mograms
// before the To mogram runs.
type Pipe struct {
	From string
	To   string
	Map  *core.MapContext
}

// Job is a routine made of other mograms.
type Job struct {
	*Routine

	Flow Flow

	mu      sync.Mutex
	mograms []Mogram
	pipes   []Pipe
}

// NewJob makes an empty SEQ job.
func NewJob(name string, ctx *core.ServiceContext, sigs ...*Signature) *Job {
	return &Job{
		Routine: newRoutine(name, ctx, sigs),
		Flow:    SEQ,
	}
}

// AddMogram adds components and links each one's context into the
// job's context under the component's name.
//
// Adding a mogram that would make the job not a tree is an error, and
// nothing is added.
func (j *Job) AddMogram(ms ...Mogram) error {
	for _, m := range ms {
		j.mu.Lock()
		j.mograms = append(j.mograms, m)
		j.mu.Unlock()
		if !j.IsTree() {
			j.mu.Lock()
			j.mograms = j.mograms[:len(j.mograms)-1]
			j.mu.Unlock()
			return &MogramError{Mogram: j, Msg: `adding "` + m.Name() + `" breaks the tree`}
		}
		if err := j.Context().PutLink(m.Name(), m.Context(), ""); err != nil {
			return &MogramError{Mogram: j, Msg: "can't link context", Err: err}
		}
	}
	return nil
}

func (j *Job) Mograms() []Mogram {
	j.mu.Lock()
	defer j.mu.Unlock()
	return append([]Mogram(nil), j.mograms...)
}

// Mogram finds a component by name.
func (j *Job) Mogram(name string) (Mogram, bool) {
	for _, m := range j.Mograms() {
		if m.Name() == name {
			return m, true
		}
	}
	return nil, false
}

// AddPipe connects the output of one component to the input of
// another.
func (j *Job) AddPipe(from, to string, mc *core.MapContext) error {
	if _, have := j.Mogram(from); !have {
		return &MogramError{Mogram: j, Msg: `no mogram "` + from + `"`}
	}
	if _, have := j.Mogram(to); !have {
		return &MogramError{Mogram: j, Msg: `no mogram "` + to + `"`}
	}
	j.mu.Lock()
	j.pipes = append(j.pipes, Pipe{From: from, To: to, Map: mc})
	j.mu.Unlock()
	return nil
}

// pipesTo returns the pipes into the named component.
func (j *Job) pipesTo(name string) []Pipe {
	j.mu.Lock()
	defer j.mu.Unlock()
	var acc []Pipe
	for _, p := range j.pipes {
		if p.To == name {
			acc = append(acc, p)
		}
	}
	return acc
}

func (j *Job) hasPipes() bool {
	j.mu.Lock()
	defer j.mu.Unlock()
	return 0 < len(j.pipes)
}

// IsTree reports whether every mogram under the job, including the
// job itself, is reachable only once.
func (j *Job) IsTree() bool {
	return isTree(j, make(map[uuid.UUID]bool))
}

func isTree(m Mogram, seen map[uuid.UUID]bool) bool {
	if seen[m.ID()] {
		return false
	}
	seen[m.ID()] = true
	for _, c := range m.Mograms() {
		if !isTree(c, seen) {
			return false
		}
	}
	return true
}
