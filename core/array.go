package core

import (
	"sort"
	"strconv"
	"strings"
)

// ElementPrefix is the path prefix of ArrayContext elements.
const ElementPrefix = "element"

// ElementPath returns the path of the i-th element: "element[i]".
func ElementPath(i int) string {
	return ElementPrefix + "[" + strconv.Itoa(i) + "]"
}

// ElementIndex parses an element path.
func ElementIndex(path string) (int, bool) {
	s := strings.TrimPrefix(path, ElementPrefix+"[")
	if len(s) == len(path) || !strings.HasSuffix(s, "]") {
		return 0, false
	}
	i, err := strconv.Atoi(s[:len(s)-1])
	if err != nil || i < 0 {
		return 0, false
	}
	return i, true
}

func checkIndex(i int) error {
	if i < 0 {
		return &ArgError{Arg: "index", Msg: strconv.Itoa(i) + " is negative"}
	}
	return nil
}

// ArrayContext is a ServiceContext used as an array of elements.
type ArrayContext struct {
	*ServiceContext
}

// NewArrayContext makes an empty ArrayContext.
func NewArrayContext(name string, opts ...Option) *ArrayContext {
	return &ArrayContext{
		ServiceContext: NewServiceContext(name, opts...),
	}
}

// SetValue stores the i-th element.
func (ac *ArrayContext) SetValue(i int, v interface{}) error {
	if err := checkIndex(i); err != nil {
		return err
	}
	p := ElementPath(i)
	if err := ac.ServiceContext.PutValue(p, v); err != nil {
		return err
	}
	return ac.Mark(p, IndexAttr+APS+strconv.Itoa(i))
}

// Value returns the i-th element.
func (ac *ArrayContext) Value(i int) (interface{}, error) {
	if err := checkIndex(i); err != nil {
		return nil, err
	}
	return ac.GetValue(ElementPath(i))
}

func (ac *ArrayContext) setDirected(i int, v interface{}, d Direction) error {
	if err := ac.SetValue(i, v); err != nil {
		return err
	}
	return ac.SetDirection(ElementPath(i), d)
}

// SetInValue stores the i-th element as an input.
func (ac *ArrayContext) SetInValue(i int, v interface{}) error {
	return ac.setDirected(i, v, In)
}

// SetOutValue stores the i-th element as an output.
func (ac *ArrayContext) SetOutValue(i int, v interface{}) error {
	return ac.setDirected(i, v, Out)
}

// SetInoutValue stores the i-th element as an input and output.
func (ac *ArrayContext) SetInoutValue(i int, v interface{}) error {
	return ac.setDirected(i, v, Inout)
}

// indexes returns the element indexes present, ascending.
func (ac *ArrayContext) indexes(paths []string) []int {
	acc := make([]int, 0, len(paths))
	for _, p := range paths {
		if i, ok := ElementIndex(p); ok {
			acc = append(acc, i)
		}
	}
	sort.Ints(acc)
	return acc
}

// Len is one more than the largest element index.
func (ac *ArrayContext) Len() int {
	is := ac.indexes(ac.Paths())
	if len(is) == 0 {
		return 0
	}
	return is[len(is)-1] + 1
}

// Values returns the elements in index order.  Missing elements are
// nil.
func (ac *ArrayContext) Values() ([]interface{}, error) {
	n := ac.Len()
	acc := make([]interface{}, n)
	for i := 0; i < n; i++ {
		if !ac.Contains(ElementPath(i)) {
			continue
		}
		v, err := ac.Value(i)
		if err != nil {
			return nil, err
		}
		acc[i] = v
	}
	return acc, nil
}

// InIndexes returns the indexes of input elements, ascending.
func (ac *ArrayContext) InIndexes() []int {
	return ac.indexes(ac.InPaths())
}

// OutIndexes returns the indexes of output elements, ascending.
func (ac *ArrayContext) OutIndexes() []int {
	return ac.indexes(ac.OutPaths())
}

func (ac *ArrayContext) valuesAt(is []int) ([]interface{}, error) {
	acc := make([]interface{}, 0, len(is))
	for _, i := range is {
		v, err := ac.Value(i)
		if err != nil {
			return nil, err
		}
		acc = append(acc, v)
	}
	return acc, nil
}

// InValues returns the input elements in index order.
func (ac *ArrayContext) InValues() ([]interface{}, error) {
	return ac.valuesAt(ac.InIndexes())
}

// OutValues returns the output elements in index order.
func (ac *ArrayContext) OutValues() ([]interface{}, error) {
	return ac.valuesAt(ac.OutIndexes())
}

func (ac *ArrayContext) setMark(i int, attr, v string) error {
	if err := checkIndex(i); err != nil {
		return err
	}
	return ac.Mark(ElementPath(i), attr+APS+v)
}

func (ac *ArrayContext) mark(i int, attr string) string {
	if i < 0 {
		return ""
	}
	v, _, _ := ac.AttributeValue(ElementPath(i), attr)
	return v
}

// SetDescription describes the i-th element.
func (ac *ArrayContext) SetDescription(i int, d string) error {
	return ac.setMark(i, DescriptionAttr, d)
}

// Description returns the description of the i-th element.
func (ac *ArrayContext) Description(i int) string {
	return ac.mark(i, DescriptionAttr)
}

// SetValueType records the type name of the i-th element.
func (ac *ArrayContext) SetValueType(i int, t string) error {
	return ac.setMark(i, TypeAttr, t)
}

// ValueType returns the type name of the i-th element.
func (ac *ArrayContext) ValueType(i int) string {
	return ac.mark(i, TypeAttr)
}
