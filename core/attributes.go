/* Copyright 2018 Comcast Cable Communications Management, LLC
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 * http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package core

import (
	"sort"
	"strings"
)

// AttrKind distinguishes simple attributes from composite ones.
type AttrKind int

const (
	// Singleton attributes keep a path-to-value table.
	Singleton AttrKind = iota

	// Composite attributes decompose into an ordered tuple of
	// singleton attributes (the metapath).
	Composite
)

func (k AttrKind) String() string {
	switch k {
	case Singleton:
		return "singleton"
	case Composite:
		return "composite"
	default:
		return "unknown"
	}
}

// Attribute is an entry in a context's attribute registry.
type Attribute struct {
	Name string
	Kind AttrKind

	// Components is the metapath of a Composite attribute.
	Components []string
}

// Metapath renders the components joined by APS.
func (a *Attribute) Metapath() string {
	return strings.Join(a.Components, APS)
}

// Names of the attributes every context starts with.
const (
	DirectionAttr   = "direction"
	IndexAttr       = "index"
	TypeAttr        = "type"
	TagAttr         = "tag"
	DescriptionAttr = "description"

	// DirAttr is the composite "context parameter" attribute:
	// direction|index|type.
	DirAttr = "dir"
)

// Metacontext holds attribute definitions and the per-attribute
// path-to-value tables.
//
// A Metacontext is not safe for concurrent use on its own.  The
// owning ServiceContext guards it.
type Metacontext struct {
	attrs  map[string]*Attribute
	values map[string]map[string]string
}

// NewMetacontext makes a Metacontext with the default attributes.
func NewMetacontext() *Metacontext {
	m := &Metacontext{
		attrs:  make(map[string]*Attribute, 8),
		values: make(map[string]map[string]string, 8),
	}
	for _, a := range []string{DirectionAttr, IndexAttr, TypeAttr, TagAttr, DescriptionAttr} {
		m.setAttribute(a)
	}
	// Can't fail: components are registered above.
	m.setCompositeAttribute(DirAttr + APS + DirectionAttr + APS + IndexAttr + APS + TypeAttr)
	return m
}

func (m *Metacontext) setAttribute(name string) error {
	if name == "" || strings.Contains(name, APS) {
		return &ContextError{Msg: `bad attribute name "` + name + `"`}
	}
	if a, have := m.attrs[name]; have {
		if a.Kind != Singleton {
			return &ContextError{Msg: `attribute "` + name + `" is already composite`}
		}
		return nil
	}
	m.attrs[name] = &Attribute{Name: name, Kind: Singleton}
	return nil
}

// setCompositeAttribute registers "name|c1|c2|...".  Components that
// aren't yet known are registered as singletons.
func (m *Metacontext) setCompositeAttribute(descriptor string) error {
	parts := strings.Split(descriptor, APS)
	if len(parts) < 2 {
		return &ContextError{Msg: `composite attribute "` + descriptor + `" has no components`}
	}
	name, comps := parts[0], parts[1:]
	if a, have := m.attrs[name]; have && a.Kind == Singleton {
		return &ContextError{Msg: `attribute "` + name + `" is already a singleton`}
	}
	for _, c := range comps {
		if c == name {
			return &ContextError{Msg: `composite attribute "` + name + `" refers to itself`}
		}
		if a, have := m.attrs[c]; have && a.Kind == Composite {
			return &ContextError{Msg: `component "` + c + `" of "` + name + `" is composite`}
		}
	}
	for _, c := range comps {
		if err := m.setAttribute(c); err != nil {
			return err
		}
	}
	m.attrs[name] = &Attribute{
		Name:       name,
		Kind:       Composite,
		Components: append([]string(nil), comps...),
	}
	return nil
}

func (m *Metacontext) attribute(name string) (*Attribute, error) {
	a, have := m.attrs[name]
	if !have {
		return nil, &ContextError{Msg: `no attribute "` + name + `"`}
	}
	return a, nil
}

// parseAssociation splits "attr|values" and finds the attribute.
func (m *Metacontext) parseAssociation(association string) (*Attribute, string, error) {
	name, value, ok := strings.Cut(association, APS)
	if !ok {
		return nil, "", &ContextError{Msg: `bad association "` + association + `"`}
	}
	a, err := m.attribute(name)
	if err != nil {
		return nil, "", err
	}
	return a, value, nil
}

// componentValues splits the value part of a composite association
// positionally.  Empty components are kept.
func componentValues(a *Attribute, value string) ([]string, error) {
	vals := strings.Split(value, APS)
	if len(a.Components) < len(vals) {
		return nil, &ContextError{
			Msg: `association "` + a.Name + APS + value + `" has more values than metapath "` + a.Metapath() + `"`,
		}
	}
	return vals, nil
}

func (m *Metacontext) put(attr, path, value string) {
	tbl, have := m.values[attr]
	if !have {
		tbl = make(map[string]string, 8)
		m.values[attr] = tbl
	}
	tbl[path] = value
}

func (m *Metacontext) mark(path, association string) error {
	a, value, err := m.parseAssociation(association)
	if err != nil {
		return err
	}
	if a.Kind == Singleton {
		m.put(a.Name, path, value)
		return nil
	}
	vals, err := componentValues(a, value)
	if err != nil {
		return err
	}
	for i, v := range vals {
		if v == "" {
			continue
		}
		m.put(a.Components[i], path, v)
	}
	return nil
}

// unmark removes the association from the path.  An empty value
// removes the attribute regardless of its current value.
func (m *Metacontext) unmark(path, association string) error {
	a, value, err := m.parseAssociation(association)
	if err != nil {
		return err
	}
	del := func(attr, v string) {
		tbl := m.values[attr]
		if tbl == nil {
			return
		}
		if cur, have := tbl[path]; have && (v == "" || v == cur) {
			delete(tbl, path)
		}
	}
	if a.Kind == Singleton {
		del(a.Name, value)
		return nil
	}
	vals, err := componentValues(a, value)
	if err != nil {
		return err
	}
	if value == "" {
		vals = make([]string, len(a.Components))
	}
	for i, v := range vals {
		del(a.Components[i], v)
	}
	return nil
}

func (m *Metacontext) removePath(path string) {
	for _, tbl := range m.values {
		delete(tbl, path)
	}
}

// movePath moves all marks from one path to another.  Marks already
// on the destination are replaced.
func (m *Metacontext) movePath(from, to string) {
	for _, tbl := range m.values {
		delete(tbl, to)
		if v, have := tbl[from]; have {
			tbl[to] = v
			delete(tbl, from)
		}
	}
}

func (m *Metacontext) attributeValue(path, name string) (string, bool, error) {
	a, err := m.attribute(name)
	if err != nil {
		return "", false, err
	}
	if a.Kind == Singleton {
		v, have := m.values[name][path]
		return v, have, nil
	}
	vals := make([]string, len(a.Components))
	found := false
	for i, c := range a.Components {
		if v, have := m.values[c][path]; have {
			vals[i] = v
			found = true
		}
	}
	return strings.Join(vals, APS), found, nil
}

func (m *Metacontext) candidates(attr, value string) map[string]bool {
	acc := make(map[string]bool)
	for p, v := range m.values[attr] {
		if v == value {
			acc[p] = true
		}
	}
	return acc
}

// markedPaths finds the paths carrying the association.
//
// For a composite attribute, missing and empty component values are
// wildcards, and the result is the intersection of the per-component
// candidate sets.
func (m *Metacontext) markedPaths(association string) ([]string, error) {
	a, value, err := m.parseAssociation(association)
	if err != nil {
		return nil, err
	}

	var found map[string]bool
	if a.Kind == Singleton {
		found = m.candidates(a.Name, value)
	} else {
		vals, err := componentValues(a, value)
		if err != nil {
			return nil, err
		}
		sets := make([]map[string]bool, 0, len(vals))
		for i, v := range vals {
			if v == "" {
				continue
			}
			sets = append(sets, m.candidates(a.Components[i], v))
		}
		if len(sets) == 0 {
			return nil, &ContextError{Msg: `association "` + association + `" constrains nothing`}
		}
		// Start with the smallest set.
		sort.Slice(sets, func(i, j int) bool { return len(sets[i]) < len(sets[j]) })
		found = sets[0]
	INTERSECT:
		for p := range found {
			for _, s := range sets[1:] {
				if !s[p] {
					delete(found, p)
					continue INTERSECT
				}
			}
		}
	}

	acc := make([]string, 0, len(found))
	for p := range found {
		acc = append(acc, p)
	}
	sort.Strings(acc)
	return acc, nil
}

// Attributes returns the registered attributes sorted by name.
func (m *Metacontext) Attributes() []Attribute {
	acc := make([]Attribute, 0, len(m.attrs))
	for _, a := range m.attrs {
		acc = append(acc, Attribute{
			Name:       a.Name,
			Kind:       a.Kind,
			Components: append([]string(nil), a.Components...),
		})
	}
	sort.Slice(acc, func(i, j int) bool { return acc[i].Name < acc[j].Name })
	return acc
}

// marks returns attr -> path -> value for paths with any marks.
func (m *Metacontext) marks() map[string]map[string]string {
	acc := make(map[string]map[string]string, len(m.values))
	for attr, tbl := range m.values {
		if len(tbl) == 0 {
			continue
		}
		cp := make(map[string]string, len(tbl))
		for p, v := range tbl {
			cp[p] = v
		}
		acc[attr] = cp
	}
	return acc
}

// pathMarks returns the singleton values on one path.
func (m *Metacontext) pathMarks(path string) map[string]string {
	acc := make(map[string]string)
	for attr, tbl := range m.values {
		if v, have := tbl[path]; have {
			acc[attr] = v
		}
	}
	return acc
}

// Copy makes a deep copy.
func (m *Metacontext) Copy() *Metacontext {
	acc := &Metacontext{
		attrs:  make(map[string]*Attribute, len(m.attrs)),
		values: m.marks(),
	}
	for name, a := range m.attrs {
		acc.attrs[name] = &Attribute{
			Name:       a.Name,
			Kind:       a.Kind,
			Components: append([]string(nil), a.Components...),
		}
	}
	return acc
}
