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

// Package match implements the pattern matcher used to select
// providers by the contents of a context.
//
// A pattern is a JSON-like value.  Strings starting with '?' are
// variables that bind to whatever they meet; a lone "?" matches
// anything without binding; "??x" is an optional variable that may
// be absent from a map.  Maps match maps that have at least the
// pattern's keys.  Arrays are sets: each pattern element must match a
// distinct fact element.
package match

import (
	"errors"
	"strings"
)

// Matcher holds matching options.
type Matcher struct {
	// AllowPropertyVariables permits a variable as the single key
	// of a map pattern.  It then matches any one property.
	AllowPropertyVariables bool

	// CheckForBadPropertyVariables rejects a map pattern with a
	// variable key and other keys up front, even if the match
	// would fail before reaching it.
	CheckForBadPropertyVariables bool

	// Inequalities enables numeric comparison variables.  Given
	// bindings {"?<n": 10}, the pattern "?<n" matches a number
	// less than 10 and binds it to "?n".  The operators are <,
	// <=, >, >=, and !=.
	Inequalities bool
}

// DefaultMatcher has every option turned on.
var DefaultMatcher = &Matcher{
	AllowPropertyVariables:       true,
	CheckForBadPropertyVariables: true,
	Inequalities:                 true,
}

// ErrPropertyVariable reports a variable key next to other keys.
var ErrPropertyVariable = errors.New("variable key with other keys")

// Bindings maps variables to their values.
type Bindings map[string]interface{}

func NewBindings() Bindings {
	return make(Bindings, 8)
}

// Extend sets the binding and returns the (modified) Bindings.
func (bs Bindings) Extend(p string, v interface{}) Bindings {
	bs[p] = v
	return bs
}

// Remove deletes the given variables and returns the (modified)
// Bindings.
func (bs Bindings) Remove(ps ...string) Bindings {
	for _, p := range ps {
		delete(bs, p)
	}
	return bs
}

// Copy makes a shallow copy.
func (bs Bindings) Copy() Bindings {
	acc := make(Bindings, len(bs))
	for k, v := range bs {
		acc[k] = v
	}
	return acc
}

// IsVariable reports whether the string is a pattern variable.
func IsVariable(s string) bool {
	return strings.HasPrefix(s, "?")
}

// IsAnonymousVariable reports whether the string is "?".
func IsAnonymousVariable(s string) bool {
	return s == "?"
}

// IsOptionalVariable reports whether x is a "??" variable.
func IsOptionalVariable(x interface{}) bool {
	s, is := x.(string)
	return is && strings.HasPrefix(s, "??")
}

// UnknownPatternType is returned for a pattern value that isn't
// JSON-like.
type UnknownPatternType struct {
	Pattern interface{}
}

func (e *UnknownPatternType) Error() string {
	return "unknown pattern type"
}

// Match matches the fact against the pattern starting with the given
// bindings, which are not modified.
//
// The result is every way the match can succeed.  No result means no
// match.  Arrays containing variables can make more than one result.
func Match(pattern, fact interface{}, bs Bindings) ([]Bindings, error) {
	return DefaultMatcher.Match(pattern, fact, bs)
}

// Match is the Matcher's version of the package function.
func (m *Matcher) Match(pattern, fact interface{}, bs Bindings) ([]Bindings, error) {
	if bs == nil {
		bs = NewBindings()
	}
	return m.match(pattern, fact, bs.Copy())
}

// Matches is Match with empty initial bindings.
func (m *Matcher) Matches(pattern, fact interface{}) ([]Bindings, error) {
	return m.Match(pattern, fact, nil)
}

// number converts Go numbers to float64 so that int patterns match
// JSON facts.
func number(x interface{}) interface{} {
	switch n := x.(type) {
	case int:
		return float64(n)
	case int32:
		return float64(n)
	case int64:
		return float64(n)
	case float32:
		return float64(n)
	case uint:
		return float64(n)
	case uint32:
		return float64(n)
	case uint64:
		return float64(n)
	}
	return x
}

// match may modify bs.
func (m *Matcher) match(pattern, fact interface{}, bs Bindings) ([]Bindings, error) {
	pattern, fact = number(pattern), number(fact)

	switch p := pattern.(type) {
	case nil:
		if fact == nil {
			return []Bindings{bs}, nil
		}
		return nil, nil

	case bool, float64:
		if fact == p {
			return []Bindings{bs}, nil
		}
		return nil, nil

	case string:
		if !IsVariable(p) {
			if s, is := fact.(string); is && s == p {
				return []Bindings{bs}, nil
			}
			return nil, nil
		}
		if IsAnonymousVariable(p) {
			return []Bindings{bs}, nil
		}
		if handled, bss := m.inequality(p, fact, bs); handled {
			return bss, nil
		}
		if bound, have := bs[p]; have {
			return m.match(bound, fact, bs)
		}
		bs[p] = fact
		return []Bindings{bs}, nil

	case map[string]interface{}:
		f, is := fact.(map[string]interface{})
		if !is {
			return nil, nil
		}
		return m.matchMap(p, f, bs)

	case []interface{}:
		f, is := fact.([]interface{})
		if !is {
			return nil, nil
		}
		return m.matchSet(p, f, bs)

	default:
		return nil, &UnknownPatternType{pattern}
	}
}

// each extends every Bindings in bss by matching pattern to fact.
func (m *Matcher) each(bss []Bindings, pattern, fact interface{}) ([]Bindings, error) {
	acc := make([]Bindings, 0, len(bss))
	for _, bs := range bss {
		more, err := m.match(pattern, fact, bs.Copy())
		if err != nil {
			return nil, err
		}
		acc = append(acc, more...)
	}
	return acc, nil
}

func (m *Matcher) matchMap(p, f map[string]interface{}, bs Bindings) ([]Bindings, error) {
	if m.CheckForBadPropertyVariables && 1 < len(p) {
		for k := range p {
			if IsVariable(k) {
				return nil, ErrPropertyVariable
			}
		}
	}

	bss := []Bindings{bs}
	for k, pv := range p {
		if IsVariable(k) {
			if !m.AllowPropertyVariables || 1 < len(p) {
				return nil, ErrPropertyVariable
			}
			return m.matchProperty(k, pv, f, bs)
		}
		fv, have := f[k]
		if !have {
			if IsOptionalVariable(pv) {
				continue
			}
			return nil, nil
		}
		var err error
		if bss, err = m.each(bss, pv, fv); err != nil || len(bss) == 0 {
			return nil, err
		}
	}
	return bss, nil
}

// matchProperty matches a one-property pattern with a variable key
// against each property of the fact.
func (m *Matcher) matchProperty(k string, pv interface{}, f map[string]interface{}, bs Bindings) ([]Bindings, error) {
	var acc []Bindings
	for fk, fv := range f {
		bss, err := m.each([]Bindings{bs}, k, fk)
		if err != nil {
			return nil, err
		}
		if bss, err = m.each(bss, pv, fv); err != nil {
			return nil, err
		}
		acc = append(acc, bss...)
	}
	return acc, nil
}

// matchSet matches array patterns as sets.  At most one element of
// the pattern may be a variable, which then binds to one remaining
// element of the fact.
func (m *Matcher) matchSet(p, f []interface{}, bs Bindings) ([]Bindings, error) {
	var (
		v     string
		elems = make([]interface{}, 0, len(p))
	)
	for _, x := range p {
		if s, is := x.(string); is && IsVariable(s) {
			if v != "" {
				return nil, errors.New("at most one variable per array")
			}
			v = s
			continue
		}
		elems = append(elems, x)
	}

	used := make([]bool, len(f))
	var acc []Bindings
	var walk func(i int, bs Bindings) error
	walk = func(i int, bs Bindings) error {
		if i == len(elems) {
			if v == "" {
				acc = append(acc, bs)
				return nil
			}
			matched := false
			for j, y := range f {
				if used[j] {
					continue
				}
				bss, err := m.match(v, y, bs.Copy())
				if err != nil {
					return err
				}
				matched = matched || 0 < len(bss)
				acc = append(acc, bss...)
			}
			if !matched && IsOptionalVariable(v) {
				acc = append(acc, bs)
			}
			return nil
		}
		for j, y := range f {
			if used[j] {
				continue
			}
			bss, err := m.match(elems[i], y, bs.Copy())
			if err != nil {
				return err
			}
			if len(bss) == 0 {
				continue
			}
			used[j] = true
			for _, next := range bss {
				if err := walk(i+1, next); err != nil {
					return err
				}
			}
			used[j] = false
			if isAtom(elems[i]) {
				// Atoms bind nothing, so other choices add only
				// duplicates.
				break
			}
		}
		return nil
	}
	if err := walk(0, bs); err != nil {
		return nil, err
	}
	return acc, nil
}

func isAtom(x interface{}) bool {
	switch x.(type) {
	case nil, bool, float64, string:
		return true
	}
	return false
}

// inequality handles "?<n"-style variables.  The first result is
// false if v isn't an inequality variable in use.
func (m *Matcher) inequality(v string, fact interface{}, bs Bindings) (bool, []Bindings) {
	if !m.Inequalities || len(v) < 3 {
		return false, nil
	}
	bound, have := bs[v]
	if !have {
		return false, nil
	}
	limit, is := number(bound).(float64)
	if !is {
		return false, nil
	}
	x, is := fact.(float64)
	if !is {
		return false, nil
	}

	var op, name string
	for _, o := range []string{"<=", ">=", "!=", "<", ">"} {
		if strings.HasPrefix(v[1:], o) {
			op, name = o, "?"+v[1+len(o):]
			break
		}
	}
	if op == "" {
		return false, nil
	}

	var ok bool
	switch op {
	case "<":
		ok = x < limit
	case "<=":
		ok = x <= limit
	case ">":
		ok = x > limit
	case ">=":
		ok = x >= limit
	case "!=":
		ok = x != limit
	}
	if !ok {
		return true, nil
	}
	if prev, have := bs[name]; have {
		if p, is := number(prev).(float64); !is || p != x {
			return true, nil
		}
		return true, []Bindings{bs}
	}
	bs[name] = x
	return true, []Bindings{bs}
}
