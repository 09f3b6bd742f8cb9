// Package fi implements fidelities: named slots holding alternative
// values, one of which is selected at a time.
package fi

import (
	"errors"
	"strconv"
	"sync"
)

// Kind says what a fidelity's selects are.
type Kind int

const (
	ENTRY Kind = iota
	SIG
	VAR
	MODEL
	CONTEXT
	MORPH
	SELECT
	META
)

var kindNames = [...]string{"ENTRY", "SIG", "VAR", "MODEL", "CONTEXT", "MORPH", "SELECT", "META"}

func (k Kind) String() string {
	if 0 <= k && int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "UNKNOWN"
}

// ErrNoSelect occurs when a fidelity has nothing to select.
var ErrNoSelect = errors.New("fidelity has no selects")

// UnknownSelect occurs when a select is requested by a name or index
// that the fidelity doesn't have.
type UnknownSelect struct {
	Fidelity string
	Select   string
}

func (e *UnknownSelect) Error() string {
	return `fidelity "` + e.Fidelity + `" has no select "` + e.Select + `"`
}

// Named things can be selects.
type Named interface {
	Name() string
}

// Selectable is the part of a Fidelity that doesn't depend on its
// select type.  A Manager holds Selectables.
type Selectable interface {
	Name() string
	Path() string
	Kind() Kind
	Names() []string
	SelectName() string
	SelectByName(name string) error
}

// Fidelity holds alternative selects, one of which is active.
type Fidelity[T Named] struct {
	mu      sync.RWMutex
	name    string
	path    string
	kind    Kind
	selects []T
	current int
	morpher Morpher
}

// New makes a fidelity.  The first select, if any, is active.
func New[T Named](name string, kind Kind, selects ...T) *Fidelity[T] {
	return &Fidelity[T]{
		name:    name,
		path:    name,
		kind:    kind,
		selects: append([]T(nil), selects...),
	}
}

func (f *Fidelity[T]) Name() string {
	return f.name
}

// Path is the fidelity's address for Reconfigure.  It defaults to the
// name.
func (f *Fidelity[T]) Path() string {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.path
}

func (f *Fidelity[T]) SetPath(p string) {
	f.mu.Lock()
	f.path = p
	f.mu.Unlock()
}

func (f *Fidelity[T]) Kind() Kind {
	return f.kind
}

// Add appends selects.
func (f *Fidelity[T]) Add(selects ...T) {
	f.mu.Lock()
	f.selects = append(f.selects, selects...)
	f.mu.Unlock()
}

// Selects returns a copy of the selects.
func (f *Fidelity[T]) Selects() []T {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return append([]T(nil), f.selects...)
}

// Names returns the selects' names in order.
func (f *Fidelity[T]) Names() []string {
	f.mu.RLock()
	defer f.mu.RUnlock()
	acc := make([]string, len(f.selects))
	for i, s := range f.selects {
		acc[i] = s.Name()
	}
	return acc
}

// Select returns the active select.
func (f *Fidelity[T]) Select() (T, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	var zero T
	if len(f.selects) == 0 {
		return zero, ErrNoSelect
	}
	return f.selects[f.current], nil
}

// SelectName returns the active select's name or "".
func (f *Fidelity[T]) SelectName() string {
	s, err := f.Select()
	if err != nil {
		return ""
	}
	return s.Name()
}

// SelectByName makes the named select active.
func (f *Fidelity[T]) SelectByName(name string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i, s := range f.selects {
		if s.Name() == name {
			f.current = i
			return nil
		}
	}
	return &UnknownSelect{Fidelity: f.name, Select: name}
}

// SelectAt makes the i-th select active.
func (f *Fidelity[T]) SelectAt(i int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if i < 0 || len(f.selects) <= i {
		return &UnknownSelect{Fidelity: f.name, Select: "#" + strconv.Itoa(i)}
	}
	f.current = i
	return nil
}

// SetMorpher sets the callback a Manager fires after switching this
// fidelity.
func (f *Fidelity[T]) SetMorpher(m Morpher) {
	f.mu.Lock()
	f.morpher = m
	f.mu.Unlock()
}

func (f *Fidelity[T]) Morpher() Morpher {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.morpher
}

// Copy makes a copy with the same selects and active select.
func (f *Fidelity[T]) Copy() *Fidelity[T] {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return &Fidelity[T]{
		name:    f.name,
		path:    f.path,
		kind:    f.kind,
		selects: append([]T(nil), f.selects...),
		current: f.current,
		morpher: f.morpher,
	}
}

// Fi is a request to select Select in the fidelity at Path.
type Fi struct {
	Path   string `json:"path"`
	Select string `json:"select"`
}

// MultiFiSlot is a keyed value that may instead be given by a
// fidelity of alternatives.
type MultiFiSlot[T Named] struct {
	Key string

	mu      sync.RWMutex
	value   T
	multiFi *Fidelity[T]
}

// NewMultiFiSlot makes a slot with a plain value.
func NewMultiFiSlot[T Named](key string, v T) *MultiFiSlot[T] {
	return &MultiFiSlot[T]{Key: key, value: v}
}

// SetMultiFi gives the slot a fidelity.  Value then returns the
// fidelity's active select.
func (s *MultiFiSlot[T]) SetMultiFi(f *Fidelity[T]) {
	s.mu.Lock()
	s.multiFi = f
	s.mu.Unlock()
}

func (s *MultiFiSlot[T]) MultiFi() *Fidelity[T] {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.multiFi
}

// Value returns the active select if there's a fidelity and the
// plain value otherwise.
func (s *MultiFiSlot[T]) Value() (T, error) {
	s.mu.RLock()
	f, v := s.multiFi, s.value
	s.mu.RUnlock()
	if f != nil {
		return f.Select()
	}
	return v, nil
}

func (s *MultiFiSlot[T]) SetValue(v T) {
	s.mu.Lock()
	s.value = v
	s.mu.Unlock()
}
