package core

import "sort"

// Mark associates the path with an attribute value.  The association
// is "attr|value" for a singleton attribute or "meta|v1|v2|..." for a
// composite one, where empty values are skipped.
func (sc *ServiceContext) Mark(path, association string) error {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	if err := sc.meta.mark(path, association); err != nil {
		return sc.wrap(path, err)
	}
	return nil
}

// Unmark removes an association from the path.
func (sc *ServiceContext) Unmark(path, association string) error {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	if err := sc.meta.unmark(path, association); err != nil {
		return sc.wrap(path, err)
	}
	return nil
}

// RemoveMarks removes every mark on the path.
func (sc *ServiceContext) RemoveMarks(path string) {
	sc.mu.Lock()
	sc.meta.removePath(path)
	sc.mu.Unlock()
}

// wrap fills in the context and path of a ContextError from the
// Metacontext, which doesn't know them.
//
// Caller must hold the lock.
func (sc *ServiceContext) wrap(path string, err error) error {
	if ce, is := err.(*ContextError); is && ce.Context == "" {
		return &ContextError{Context: sc.name, Path: path, Msg: ce.Msg, Err: ce.Err}
	}
	return err
}

// AttributeValue returns the value of the attribute at the path.  A
// composite attribute's value is the tuple of its component values.
// The second result is false if the path has no such mark.
func (sc *ServiceContext) AttributeValue(path, attr string) (string, bool, error) {
	sc.mu.RLock()
	defer sc.mu.RUnlock()
	v, have, err := sc.meta.attributeValue(path, attr)
	if err != nil {
		return "", false, sc.wrap(path, err)
	}
	return v, have, nil
}

// Marks returns the singleton attribute values on the path.
func (sc *ServiceContext) Marks(path string) map[string]string {
	sc.mu.RLock()
	defer sc.mu.RUnlock()
	return sc.meta.pathMarks(path)
}

// MarkedPaths returns the sorted paths carrying the association.
//
// For a composite attribute, empty or missing component values match
// anything, but at least one component must be given.
func (sc *ServiceContext) MarkedPaths(association string) ([]string, error) {
	sc.mu.RLock()
	defer sc.mu.RUnlock()
	ps, err := sc.meta.markedPaths(association)
	if err != nil {
		return nil, sc.wrap("", err)
	}
	return ps, nil
}

// MarkedValues returns the values at MarkedPaths(association) in path
// order.
func (sc *ServiceContext) MarkedValues(association string) ([]interface{}, error) {
	ps, err := sc.MarkedPaths(association)
	if err != nil {
		return nil, err
	}
	return sc.values(ps)
}

func (sc *ServiceContext) values(paths []string) ([]interface{}, error) {
	acc := make([]interface{}, 0, len(paths))
	for _, p := range paths {
		v, err := sc.GetValue(p)
		if err != nil {
			return nil, err
		}
		acc = append(acc, v)
	}
	return acc, nil
}

// SetAttribute registers a singleton attribute.
func (sc *ServiceContext) SetAttribute(name string) error {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	return sc.wrap("", sc.meta.setAttribute(name))
}

// SetCompositeAttribute registers a composite attribute given as
// "name|c1|c2|...".  Unknown components become singletons.
func (sc *ServiceContext) SetCompositeAttribute(descriptor string) error {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	return sc.wrap("", sc.meta.setCompositeAttribute(descriptor))
}

func (sc *ServiceContext) IsAttribute(name string) bool {
	sc.mu.RLock()
	defer sc.mu.RUnlock()
	_, have := sc.meta.attrs[name]
	return have
}

func (sc *ServiceContext) IsSingletonAttribute(name string) bool {
	sc.mu.RLock()
	defer sc.mu.RUnlock()
	a, have := sc.meta.attrs[name]
	return have && a.Kind == Singleton
}

func (sc *ServiceContext) IsCompositeAttribute(name string) bool {
	sc.mu.RLock()
	defer sc.mu.RUnlock()
	a, have := sc.meta.attrs[name]
	return have && a.Kind == Composite
}

// Metapath returns the components of a composite attribute joined by
// APS.
func (sc *ServiceContext) Metapath(name string) (string, error) {
	sc.mu.RLock()
	defer sc.mu.RUnlock()
	a, err := sc.meta.attribute(name)
	if err != nil {
		return "", sc.wrap("", err)
	}
	if a.Kind != Composite {
		return "", &ContextError{Context: sc.name, Msg: `attribute "` + name + `" is not composite`}
	}
	return a.Metapath(), nil
}

// Attributes returns the registered attributes sorted by name.
func (sc *ServiceContext) Attributes() []Attribute {
	sc.mu.RLock()
	defer sc.mu.RUnlock()
	return sc.meta.Attributes()
}

// AnnotatedPaths returns the sorted paths that carry any mark.
func (sc *ServiceContext) AnnotatedPaths() []string {
	sc.mu.RLock()
	defer sc.mu.RUnlock()
	seen := make(map[string]bool)
	for _, tbl := range sc.meta.values {
		for p := range tbl {
			seen[p] = true
		}
	}
	acc := make([]string, 0, len(seen))
	for p := range seen {
		acc = append(acc, p)
	}
	sort.Strings(acc)
	return acc
}
