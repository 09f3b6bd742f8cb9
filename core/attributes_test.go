package core

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultAttributes(t *testing.T) {
	c := NewServiceContext("test")
	for _, a := range []string{DirectionAttr, IndexAttr, TypeAttr, TagAttr, DescriptionAttr} {
		assert.True(t, c.IsSingletonAttribute(a), a)
	}
	assert.True(t, c.IsCompositeAttribute(DirAttr))
	mp, err := c.Metapath(DirAttr)
	require.NoError(t, err)
	assert.Equal(t, "direction|index|type", mp)

	_, err = c.Metapath(TagAttr)
	assert.Error(t, err)
}

func TestMarkRoundTrip(t *testing.T) {
	c := NewServiceContext("test")
	require.NoError(t, c.PutValue("arg/x", 1))
	require.NoError(t, c.Mark("arg/x", "dir|in||"))

	ps, err := c.MarkedPaths("dir|in")
	require.NoError(t, err)
	assert.Contains(t, ps, "arg/x")

	v, have, err := c.AttributeValue("arg/x", DirAttr)
	require.NoError(t, err)
	assert.True(t, have)
	assert.Equal(t, "in||", v)
	assert.Equal(t, In, c.Direction("arg/x"))
}

func TestMarkedPathsComposite(t *testing.T) {
	c := NewServiceContext("test")
	require.NoError(t, c.Mark("a", "dir|in|0|float"))
	require.NoError(t, c.Mark("b", "dir|in|1|float"))
	require.NoError(t, c.Mark("c", "dir|out|0|float"))
	require.NoError(t, c.Mark("d", "dir|in|0|"))

	tests := []struct {
		assoc string
		want  []string
	}{
		{"dir|in", []string{"a", "b", "d"}},
		{"dir|in|0", []string{"a", "d"}},
		{"dir||0", []string{"a", "c", "d"}},
		{"dir|||float", []string{"a", "b", "c"}},
		{"dir|in|0|float", []string{"a"}},
		{"dir|out|1", []string{}},
		{"index|1", []string{"b"}},
	}
	for _, tc := range tests {
		ps, err := c.MarkedPaths(tc.assoc)
		require.NoError(t, err, tc.assoc)
		assert.Equal(t, tc.want, ps, tc.assoc)
	}
}

func TestMarkErrors(t *testing.T) {
	c := NewServiceContext("test")

	err := c.Mark("a", "nope|x")
	var ce *ContextError
	require.True(t, errors.As(err, &ce))
	assert.Equal(t, "test", ce.Context)
	assert.Equal(t, "a", ce.Path)

	assert.Error(t, c.Mark("a", "dir|in|0|float|extra"))
	assert.Error(t, c.Mark("a", "noseparator"))

	_, err = c.MarkedPaths("dir|||")
	assert.Error(t, err, "constrains nothing")
}

func TestUnmark(t *testing.T) {
	c := NewServiceContext("test")
	require.NoError(t, c.Mark("a", "dir|in|2|"))
	require.NoError(t, c.Mark("a", "tag|t"))

	require.NoError(t, c.Unmark("a", "tag|other"))
	assert.Equal(t, "t", c.Marks("a")[TagAttr])

	require.NoError(t, c.Unmark("a", "tag|"))
	_, have := c.Marks("a")[TagAttr]
	assert.False(t, have)

	require.NoError(t, c.Unmark("a", "dir|"))
	assert.Empty(t, c.Marks("a"))

	require.NoError(t, c.Mark("a", "tag|t"))
	c.RemoveMarks("a")
	assert.Empty(t, c.Marks("a"))
}

func TestCustomAttributes(t *testing.T) {
	c := NewServiceContext("test")
	require.NoError(t, c.SetCompositeAttribute("unit|quantity|system"))
	assert.True(t, c.IsSingletonAttribute("quantity"))
	assert.True(t, c.IsSingletonAttribute("system"))

	require.NoError(t, c.Mark("len", "unit|length|si"))
	v, have, err := c.AttributeValue("len", "unit")
	require.NoError(t, err)
	assert.True(t, have)
	assert.Equal(t, "length|si", v)

	ps, err := c.MarkedPaths("unit||si")
	require.NoError(t, err)
	assert.Equal(t, []string{"len"}, ps)

	assert.Error(t, c.SetAttribute("unit"), "already composite")
	assert.Error(t, c.SetCompositeAttribute("quantity|x"), "already singleton")
	assert.Error(t, c.SetCompositeAttribute("meta|dir"), "composite component")
	assert.Error(t, c.SetCompositeAttribute("lonely"), "no components")
	assert.Error(t, c.SetAttribute("a|b"))
}
