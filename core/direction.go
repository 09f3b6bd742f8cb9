package core

// Direction is the data-flow role of a path.
type Direction string

const (
	In    Direction = "in"
	Out   Direction = "out"
	Inout Direction = "inout"
)

// Valid reports whether the direction is one of In, Out, Inout.
func (d Direction) Valid() bool {
	switch d {
	case In, Out, Inout:
		return true
	}
	return false
}

// SetDirection marks the path with the direction.
func (sc *ServiceContext) SetDirection(path string, d Direction) error {
	if !d.Valid() {
		return &ContextError{Context: sc.Name(), Path: path, Msg: "bad direction " + string(d)}
	}
	return sc.Mark(path, DirAttr+APS+string(d)+APS+APS)
}

// Direction returns the direction of the path or "".
func (sc *ServiceContext) Direction(path string) Direction {
	sc.mu.RLock()
	defer sc.mu.RUnlock()
	return Direction(sc.meta.values[DirectionAttr][path])
}

func (sc *ServiceContext) SetIn(path string) error {
	return sc.SetDirection(path, In)
}

func (sc *ServiceContext) SetOut(path string) error {
	return sc.SetDirection(path, Out)
}

func (sc *ServiceContext) SetInout(path string) error {
	return sc.SetDirection(path, Inout)
}

func (sc *ServiceContext) putDirected(path string, v interface{}, d Direction) error {
	if err := sc.PutValue(path, v); err != nil {
		return err
	}
	return sc.SetDirection(path, d)
}

// PutInValue stores the value and marks the path as input.
func (sc *ServiceContext) PutInValue(path string, v interface{}) error {
	return sc.putDirected(path, v, In)
}

// PutOutValue stores the value and marks the path as output.
func (sc *ServiceContext) PutOutValue(path string, v interface{}) error {
	return sc.putDirected(path, v, Out)
}

// PutInoutValue stores the value and marks the path as both.
func (sc *ServiceContext) PutInoutValue(path string, v interface{}) error {
	return sc.putDirected(path, v, Inout)
}

func (sc *ServiceContext) directed(d Direction) []string {
	// Can't fail: dir is always registered.
	ps, _ := sc.MarkedPaths(DirAttr + APS + string(d))
	return ps
}

func (sc *ServiceContext) InPaths() []string {
	return sc.directed(In)
}

func (sc *ServiceContext) OutPaths() []string {
	return sc.directed(Out)
}

func (sc *ServiceContext) InoutPaths() []string {
	return sc.directed(Inout)
}

// InValues returns the values at InPaths().
func (sc *ServiceContext) InValues() ([]interface{}, error) {
	return sc.values(sc.InPaths())
}

// OutValues returns the values at OutPaths().
func (sc *ServiceContext) OutValues() ([]interface{}, error) {
	return sc.values(sc.OutPaths())
}
