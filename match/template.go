package match

import (
	"sort"

	"github.com/mwsobol/SORCER-sub002/core"
)

// Template maps context paths to patterns.
type Template map[string]interface{}

// Paths returns the template's paths, sorted.
func (t Template) Paths() []string {
	acc := make([]string, 0, len(t))
	for p := range t {
		acc = append(acc, p)
	}
	sort.Strings(acc)
	return acc
}

// Getter is the part of core.Context that Context matching needs.
type Getter interface {
	Contains(path string) bool
	GetValue(path string, args ...core.Arg) (interface{}, error)
}

// Context matches each of the template's patterns against the value
// at the pattern's path.
//
// Values are canonicalized first, so Go numbers and structs compare
// like their JSON forms.  A path the context doesn't have only
// matches an optional variable.  The result is every consistent set
// of bindings.
func (m *Matcher) Context(ctx Getter, t Template, bs Bindings) ([]Bindings, error) {
	if bs == nil {
		bs = NewBindings()
	}
	bss := []Bindings{bs.Copy()}
	for _, p := range t.Paths() {
		pattern := t[p]
		if !ctx.Contains(p) {
			if IsOptionalVariable(pattern) {
				continue
			}
			return nil, nil
		}
		v, err := ctx.GetValue(p)
		if err != nil {
			return nil, err
		}
		if v, err = core.Canonicalize(v); err != nil {
			return nil, err
		}
		if bss, err = m.each(bss, pattern, v); err != nil || len(bss) == 0 {
			return nil, err
		}
	}
	return bss, nil
}

// Context uses the DefaultMatcher.
func Context(ctx Getter, t Template, bs Bindings) ([]Bindings, error) {
	return DefaultMatcher.Context(ctx, t, bs)
}

// Matches reports whether the template matches the context at all.
func Matches(ctx Getter, t Template) (bool, error) {
	bss, err := Context(ctx, t, nil)
	if err != nil {
		return false, err
	}
	return 0 < len(bss), nil
}
