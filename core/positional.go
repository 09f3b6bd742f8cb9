package core

import (
	"sort"
	"strconv"
	"sync"
)

// PositionalContext is a ServiceContext whose paths also have
// integer positions, recorded with the index attribute.
type PositionalContext struct {
	*ServiceContext

	mu    sync.Mutex
	tally int
}

// NewPositionalContext makes an empty PositionalContext.
func NewPositionalContext(name string, opts ...Option) *PositionalContext {
	return &PositionalContext{
		ServiceContext: NewServiceContext(name, opts...),
	}
}

// Tally returns the next unused position.
func (pc *PositionalContext) Tally() int {
	pc.mu.Lock()
	defer pc.mu.Unlock()
	return pc.tally
}

// next returns the position for the path: its current one, if any,
// or else the tally, which is then incremented.
func (pc *PositionalContext) next(path string) int {
	if i, have := pc.index(path); have {
		return i
	}
	pc.mu.Lock()
	defer pc.mu.Unlock()
	i := pc.tally
	pc.tally++
	return i
}

func (pc *PositionalContext) index(path string) (int, bool) {
	s, have, _ := pc.AttributeValue(path, IndexAttr)
	if !have {
		return 0, false
	}
	i, err := strconv.Atoi(s)
	if err != nil {
		return 0, false
	}
	return i, true
}

func (pc *PositionalContext) bump(i int) {
	pc.mu.Lock()
	if pc.tally <= i {
		pc.tally = i + 1
	}
	pc.mu.Unlock()
}

// PutValue stores the value at the path and gives the path the next
// position unless it has one already.
func (pc *PositionalContext) PutValue(path string, v interface{}) error {
	return pc.PutValueAt(path, v, pc.next(path))
}

// PutValueAt stores the value at the path with the given position.
func (pc *PositionalContext) PutValueAt(path string, v interface{}, i int) error {
	if i < 0 {
		return &ArgError{Arg: "index", Msg: strconv.Itoa(i) + " is negative"}
	}
	if err := pc.ServiceContext.PutValue(path, v); err != nil {
		return err
	}
	if err := pc.Mark(path, IndexAttr+APS+strconv.Itoa(i)); err != nil {
		return err
	}
	pc.bump(i)
	return nil
}

func (pc *PositionalContext) putDirectedAt(path string, v interface{}, i int, d Direction) error {
	if i < 0 {
		return &ArgError{Arg: "index", Msg: strconv.Itoa(i) + " is negative"}
	}
	if err := pc.ServiceContext.PutValue(path, v); err != nil {
		return err
	}
	if err := pc.Mark(path, DirAttr+APS+string(d)+APS+strconv.Itoa(i)+APS); err != nil {
		return err
	}
	pc.bump(i)
	return nil
}

// PutInValueAt stores an input value with the given position.
func (pc *PositionalContext) PutInValueAt(path string, v interface{}, i int) error {
	return pc.putDirectedAt(path, v, i, In)
}

// PutOutValueAt stores an output value with the given position.
func (pc *PositionalContext) PutOutValueAt(path string, v interface{}, i int) error {
	return pc.putDirectedAt(path, v, i, Out)
}

// PutInoutValueAt stores an input/output value with the given
// position.
func (pc *PositionalContext) PutInoutValueAt(path string, v interface{}, i int) error {
	return pc.putDirectedAt(path, v, i, Inout)
}

// PutInValue stores an input value at the next position.
func (pc *PositionalContext) PutInValue(path string, v interface{}) error {
	return pc.PutInValueAt(path, v, pc.next(path))
}

// PutOutValue stores an output value at the next position.
func (pc *PositionalContext) PutOutValue(path string, v interface{}) error {
	return pc.PutOutValueAt(path, v, pc.next(path))
}

// PutInoutValue stores an input/output value at the next position.
func (pc *PositionalContext) PutInoutValue(path string, v interface{}) error {
	return pc.PutInoutValueAt(path, v, pc.next(path))
}

// PathAt returns the path with the given position.
func (pc *PositionalContext) PathAt(i int) (string, bool) {
	ps, _ := pc.MarkedPaths(IndexAttr + APS + strconv.Itoa(i))
	if len(ps) == 0 {
		return "", false
	}
	return ps[0], true
}

// pathAt finds the path at position i with the given direction.
func (pc *PositionalContext) pathAt(i int, d Direction) (string, bool) {
	ps, _ := pc.MarkedPaths(DirAttr + APS + string(d) + APS + strconv.Itoa(i))
	if len(ps) == 0 {
		return "", false
	}
	return ps[0], true
}

func (pc *PositionalContext) valueAt(p string, found bool, i int) (interface{}, error) {
	if !found {
		return nil, &ArgError{Arg: "index", Msg: "no path at " + strconv.Itoa(i)}
	}
	return pc.GetValue(p)
}

// ValueAt returns the value at the path with the given position.
func (pc *PositionalContext) ValueAt(i int) (interface{}, error) {
	p, found := pc.PathAt(i)
	return pc.valueAt(p, found, i)
}

// InValueAt returns the input value with the given position.
func (pc *PositionalContext) InValueAt(i int) (interface{}, error) {
	p, found := pc.pathAt(i, In)
	return pc.valueAt(p, found, i)
}

// OutValueAt returns the output value with the given position.
func (pc *PositionalContext) OutValueAt(i int) (interface{}, error) {
	p, found := pc.pathAt(i, Out)
	return pc.valueAt(p, found, i)
}

// PositionalPaths returns the paths that have positions, in position
// order.
func (pc *PositionalContext) PositionalPaths() []string {
	pc.ServiceContext.mu.RLock()
	tbl := pc.ServiceContext.meta.values[IndexAttr]
	type pos struct {
		path string
		i    int
	}
	acc := make([]pos, 0, len(tbl))
	for p, s := range tbl {
		if i, err := strconv.Atoi(s); err == nil {
			acc = append(acc, pos{p, i})
		}
	}
	pc.ServiceContext.mu.RUnlock()
	sort.Slice(acc, func(i, j int) bool {
		if acc[i].i == acc[j].i {
			return acc[i].path < acc[j].path
		}
		return acc[i].i < acc[j].i
	})
	ps := make([]string, len(acc))
	for i, p := range acc {
		ps[i] = p.path
	}
	return ps
}
