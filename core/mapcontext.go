package core

import "sort"

// MapContext maps paths of one context to paths of another.  Each
// path holds the target path as its value, and its direction says
// how the target is marked when the mapping is applied.
type MapContext struct {
	*ServiceContext
}

// NewMapContext makes an empty MapContext.
func NewMapContext(name string, opts ...Option) *MapContext {
	return &MapContext{
		ServiceContext: NewServiceContext(name, opts...),
	}
}

// Map maps from to to.
func (mc *MapContext) Map(from, to string) error {
	return mc.PutValue(from, to)
}

// InMap maps from to to and marks the target as an input.
func (mc *MapContext) InMap(from, to string) error {
	return mc.PutInValue(from, to)
}

// OutMap maps from to to and marks the target as an output.
func (mc *MapContext) OutMap(from, to string) error {
	return mc.PutOutValue(from, to)
}

// Mappings returns from-path to to-path.
func (mc *MapContext) Mappings() map[string]string {
	acc := make(map[string]string)
	for _, p := range mc.Paths() {
		v, err := mc.Value0(p)
		if err != nil {
			continue
		}
		if to, is := v.(string); is {
			acc[p] = to
		}
	}
	return acc
}

// Apply copies each mapped value from one context to another.
//
// A source path that isn't present is an error.  Targets are marked
// with the mapping's direction, if any.
func (mc *MapContext) Apply(from, to Context) error {
	ms := mc.Mappings()
	srcs := make([]string, 0, len(ms))
	for p := range ms {
		srcs = append(srcs, p)
	}
	sort.Strings(srcs)

	for _, src := range srcs {
		dst := ms[src]
		if !from.Contains(src) {
			return &ContextError{Context: from.Name(), Path: src, Msg: "mapped path missing"}
		}
		v, err := from.GetValue(src)
		if err != nil {
			return err
		}
		if err := to.PutValue(dst, v); err != nil {
			return err
		}
		if d := mc.Direction(src); d != "" {
			if err := to.Base().SetDirection(dst, d); err != nil {
				return err
			}
		}
	}
	return nil
}
