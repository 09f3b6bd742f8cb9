package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWithin(t *testing.T) {
	tests := []struct {
		prefix, path string
		want         bool
	}{
		{"a", "a", true},
		{"a", "a/b", true},
		{"a", "ab", false},
		{"a/b", "a/bc", false},
		{"a/b", "a/b/c", true},
		{"", "anything", true},
		{"a/b", "a", false},
	}
	for _, tc := range tests {
		assert.Equal(t, tc.want, Within(tc.prefix, tc.path), "Within(%q, %q)", tc.prefix, tc.path)
	}
}

func TestPathHelpers(t *testing.T) {
	assert.Equal(t, "a/b/c", Join("a", "/b/", "", "c"))
	assert.Equal(t, []string{"a", "b"}, Split("/a//b/"))
	assert.Equal(t, "c", LastSegment("a/b/c"))
	assert.Equal(t, "c", LastSegment("c"))
	assert.Equal(t, "a/b", Parent("a/b/c"))
	assert.Equal(t, "", Parent("c"))
	assert.Equal(t, "c/d", Residual("a/b", "a/b/c/d"))
	assert.Equal(t, "", Residual("a/b", "a/b"))
}

func TestExtendedLinkPath(t *testing.T) {
	assert.Equal(t, "p", extendedLinkPath("p", ""))
	assert.Equal(t, "p/y", extendedLinkPath("p", "x/y"))
	assert.Equal(t, "x/y/z", linkedKey("p/y", "x/y", "p/y/z"))
	assert.Equal(t, "z", linkedKey("p", "", "p/z"))
}
