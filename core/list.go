package core

import "strconv"

// ListContext is an ArrayContext without holes: elements occupy
// indexes 0 through Size()-1.
type ListContext struct {
	*ArrayContext
}

// NewListContext makes an empty ListContext.
func NewListContext(name string, opts ...Option) *ListContext {
	return &ListContext{
		ArrayContext: NewArrayContext(name, opts...),
	}
}

func (lc *ListContext) checkRange(i int) error {
	if i < 0 || lc.Len() <= i {
		return &ArgError{Arg: "index", Msg: strconv.Itoa(i) + " out of range"}
	}
	return nil
}

// Add appends the value.
func (lc *ListContext) Add(v interface{}) error {
	return lc.SetValue(lc.Len(), v)
}

// Get returns the i-th value.
func (lc *ListContext) Get(i int) (interface{}, error) {
	if err := lc.checkRange(i); err != nil {
		return nil, err
	}
	return lc.Value(i)
}

// Set replaces the i-th value.
func (lc *ListContext) Set(i int, v interface{}) error {
	if err := lc.checkRange(i); err != nil {
		return err
	}
	return lc.SetValue(i, v)
}

// RemoveAt removes the i-th value.  Later values move down one index
// along with their marks.
func (lc *ListContext) RemoveAt(i int) error {
	if err := lc.checkRange(i); err != nil {
		return err
	}
	n := lc.Len()
	if err := lc.Remove(ElementPath(i)); err != nil {
		return err
	}
	for j := i + 1; j < n; j++ {
		from, to := ElementPath(j), ElementPath(j-1)
		lc.rename(from, to)
		if err := lc.Mark(to, IndexAttr+APS+strconv.Itoa(j-1)); err != nil {
			return err
		}
	}
	return nil
}

// Size is Len.
func (lc *ListContext) Size() int {
	return lc.Len()
}
