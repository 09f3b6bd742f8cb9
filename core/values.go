package core

import (
	"sort"

	"go.uber.org/zap"
)

// GetValue implements Context.
//
// Entry args are first substituted into the context.  Then the value
// at the path is found, following links, and evaluated if the context
// is modeling or the value is reactive.  Args are passed on to the
// Evaluation.
func (sc *ServiceContext) GetValue(path string, args ...Arg) (interface{}, error) {
	if err := sc.Substitute(args...); err != nil {
		return nil, err
	}
	return sc.evaluate(path, args, make(map[visit]bool))
}

// Substitute writes the given Entry args into the context.  Other
// args are ignored.
func (sc *ServiceContext) Substitute(args ...Arg) error {
	for _, arg := range args {
		e, is := arg.(Entry)
		if !is {
			if p, is := arg.(*Entry); is && p != nil {
				e = *p
			} else {
				continue
			}
		}
		if e.Path == "" {
			return &ArgError{Arg: "entry", Msg: "empty path"}
		}
		if err := sc.PutValue(e.Path, e.Value); err != nil {
			return err
		}
	}
	return nil
}

// shouldEvaluate reports whether a stored value is evaluated on read.
func shouldEvaluate(v interface{}, modeling bool) (Evaluation, bool) {
	e, is := v.(Evaluation)
	if !is {
		return nil, false
	}
	if modeling {
		return e, true
	}
	if r, is := v.(Reactive); is && r.IsReactive() {
		return e, true
	}
	return nil, false
}

// evaluate reads the value at the path and evaluates it if needed.
//
// The active set holds the (context, path) pairs currently being
// evaluated so that dependency cycles are reported instead of
// recursing.
func (sc *ServiceContext) evaluate(path string, args []Arg, active map[visit]bool) (interface{}, error) {
	o, key, err := sc.owner(path, make(map[visit]bool))
	if err != nil {
		return nil, err
	}

	modeling := sc.IsModeling()
	o.mu.RLock()
	v := o.data[key]
	modeling = modeling || o.modeling
	deps := append([]string(nil), o.deps[key]...)
	o.mu.RUnlock()

	e, eval := shouldEvaluate(v, modeling)
	if !eval {
		return v, nil
	}

	here := visit{o.identity(), key}
	if active[here] {
		return nil, &ModelError{Path: path, Msg: "dependency cycle"}
	}
	active[here] = true
	defer delete(active, here)

	for _, d := range deps {
		if _, err := o.evaluate(d, args, active); err != nil {
			return nil, err
		}
	}

	if s, is := v.(Scopable); is && s.Scope() == nil {
		s.SetScope(o)
	}

	sc.log().Debug("evaluate",
		zap.String("context", sc.Name()),
		zap.String("path", path))

	x, err := e.Evaluate(args...)
	if err != nil {
		return nil, &EvaluationError{Path: path, Err: err}
	}
	return x, nil
}

// Links returns the local links keyed by path.
func (sc *ServiceContext) Links() map[string]*ContextLink {
	sc.mu.RLock()
	defer sc.mu.RUnlock()
	acc := make(map[string]*ContextLink, len(sc.links))
	for p, l := range sc.links {
		acc[p] = l
	}
	return acc
}

// SetDependency declares that the value at path depends on the values
// at the given paths.  Those are evaluated first, in order, whenever
// path is evaluated.  No dependencies removes the declaration.
func (sc *ServiceContext) SetDependency(path string, dependsOn ...string) {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	if len(dependsOn) == 0 {
		delete(sc.deps, path)
		return
	}
	sc.deps[path] = append([]string(nil), dependsOn...)
}

// Dependencies returns the paths that path depends on.
func (sc *ServiceContext) Dependencies(path string) []string {
	sc.mu.RLock()
	defer sc.mu.RUnlock()
	return append([]string(nil), sc.deps[path]...)
}

// DependentPaths returns the paths with declared dependencies.
func (sc *ServiceContext) DependentPaths() []string {
	sc.mu.RLock()
	defer sc.mu.RUnlock()
	acc := make([]string, 0, len(sc.deps))
	for p := range sc.deps {
		acc = append(acc, p)
	}
	sort.Strings(acc)
	return acc
}

// SetReturnPath sets the path that holds the context's result.
func (sc *ServiceContext) SetReturnPath(rp ReturnPath) error {
	if rp.Path == "" {
		return &ContextError{Context: sc.Name(), Msg: "empty return path"}
	}
	if rp.Direction != "" && !rp.Direction.Valid() {
		return &ContextError{Context: sc.Name(), Path: rp.Path, Msg: "bad direction " + string(rp.Direction)}
	}
	sc.mu.Lock()
	sc.returnPath = rp.Copy()
	sc.mu.Unlock()
	return nil
}

// ReturnPath returns a copy of the return path or nil.
func (sc *ServiceContext) ReturnPath() *ReturnPath {
	sc.mu.RLock()
	defer sc.mu.RUnlock()
	return sc.returnPath.Copy()
}

// ReturnValue returns the value at the return path.  Without a
// return path, the result is the context itself.
//
// If the return path names OutPaths, the result is a subcontext of
// those paths.
func (sc *ServiceContext) ReturnValue(args ...Arg) (interface{}, error) {
	rp := sc.ReturnPath()
	if rp == nil {
		if err := sc.Substitute(args...); err != nil {
			return nil, err
		}
		return sc, nil
	}
	if 0 < len(rp.OutPaths) {
		if err := sc.Substitute(args...); err != nil {
			return nil, err
		}
		return sc.SubContext(rp.OutPaths...)
	}
	return sc.GetValue(rp.Path, args...)
}

// SetReturnValue stores the value at the return path and marks it
// with the return path's direction.
func (sc *ServiceContext) SetReturnValue(v interface{}) error {
	rp := sc.ReturnPath()
	if rp == nil {
		return &ContextError{Context: sc.Name(), Msg: "no return path"}
	}
	if err := sc.PutValue(rp.Path, v); err != nil {
		return err
	}
	if rp.Direction != "" {
		return sc.SetDirection(rp.Path, rp.Direction)
	}
	return nil
}
