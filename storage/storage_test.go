package storage

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mwsobol/SORCER-sub002/core"
)

func TestKeys(t *testing.T) {
	assert.Equal(t, "Arithmetic#add", MethodKey("Arithmetic", "add"))
	assert.Equal(t, "calc@Arithmetic#add", ProviderKey("calc", "Arithmetic", "add"))
}

func TestNamespaceOf(t *testing.T) {
	assert.Equal(t, Plain, NamespaceOf("args"))
	assert.Equal(t, Method, NamespaceOf(MethodKey("Arithmetic", "add")))
	assert.Equal(t, Provider, NamespaceOf(ProviderKey("calc", "Arithmetic", "add")))
	assert.Equal(t, Plain, NamespaceOf("me@example.com"))
}

func TestMemory(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	c := core.NewServiceContext("c")
	require.NoError(t, c.PutInValue("arg/x1", 1.0))
	require.NoError(t, SaveProviderContext(ctx, m, "calc", "Arithmetic", "add", c))
	require.NoError(t, SaveMethodContext(ctx, m, "Arithmetic", "add", c))

	got, err := GetProviderContext(ctx, m, "calc", "Arithmetic", "add")
	require.NoError(t, err)
	assert.Equal(t, c.ID(), got.ID())
	assert.Equal(t, []string{"arg/x1"}, got.InPaths())

	names, err := m.ContextNames(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"Arithmetic#add", "calc@Arithmetic#add"}, names)

	require.NoError(t, DeleteMethodContext(ctx, m, "Arithmetic", "add"))
	_, err = GetMethodContext(ctx, m, "Arithmetic", "add")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, DeleteProviderContext(ctx, m, "x", "y", "z"), ErrNotFound)

	bad := core.NewServiceContext("bad")
	require.NoError(t, bad.PutValue("f", core.NewExpr(nil)))
	assert.ErrorIs(t, m.SaveContext(ctx, "bad", bad), core.ErrNotSerializable)
}

func TestAccessor(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	target := core.NewServiceContext("target")
	require.NoError(t, target.PutValue("v", "x"))
	require.NoError(t, m.SaveContext(ctx, "target", target))

	got, err := Accessor(m).Context(ctx, "target")
	require.NoError(t, err)
	assert.Equal(t, "target", got.Name())

	got, err = Accessor(m).Context(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Nil(t, got)
}

func TestNoop(t *testing.T) {
	var s ContextManagement = &Noop{}
	ctx := context.Background()
	require.NoError(t, s.SaveContext(ctx, "x", core.NewServiceContext("x")))
	_, err := s.GetContext(ctx, "x")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestStoredLinkCycle(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	c1 := core.NewServiceContext("c1")
	require.NoError(t, c1.PutValue("a", &core.ContextLink{Name: "c2"}))
	c2 := core.NewServiceContext("c2")
	require.NoError(t, c2.PutValue("b", &core.ContextLink{Name: "c1"}))
	require.NoError(t, m.SaveContext(ctx, "c1", c1))
	require.NoError(t, m.SaveContext(ctx, "c2", c2))

	got, err := m.GetContext(ctx, "c1")
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() {
		_, err := got.VisiblePaths()
		done <- err
	}()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, core.ErrLinkCycle)
	case <-time.After(5 * time.Second):
		t.Fatal("VisiblePaths didn't return")
	}
}
