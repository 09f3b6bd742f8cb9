package core

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mwsobol/SORCER-sub002/util/testutil"
)

func TestCodec(t *testing.T) {
	target := NewServiceContext("target")
	require.NoError(t, target.PutValue("arg/x", 3.0))

	c := NewServiceContext("orig", WithSubject("task/add", "adder"), WithDescription("an adder"))
	c.SetDomain("arith")
	c.SetVersion("1.0")
	c.SetModeling(true)
	require.NoError(t, c.SetCompositeAttribute("unit|quantity|system"))
	require.NoError(t, c.PutInValue("arg/x1", 20.0))
	require.NoError(t, c.Mark("arg/x1", "unit|length|si"))
	require.NoError(t, c.PutValue("list", []interface{}{"a", 1.0}))
	require.NoError(t, c.PutLink("linked", target, "arg"))
	require.NoError(t, c.PutValue("script", NewScriptEvaluation("goja", "return 1;")))
	c.SetDependency("script", "arg/x1")
	require.NoError(t, c.SetReturnPath(ReturnPath{Path: "result", Direction: Out}))

	js, err := json.Marshal(c)
	require.NoError(t, err)

	acc := AccessorFunc(func(ctx context.Context, name string) (Context, error) {
		if name == "target" {
			return target, nil
		}
		return nil, errors.New("unknown")
	})
	d, err := DecodeContext(js, WithAccessor(acc))
	require.NoError(t, err)

	assert.Equal(t, c.ID(), d.ID())
	assert.Equal(t, "orig", d.Name())
	assert.Equal(t, "arith", d.Domain())
	assert.Equal(t, "1.0", d.Version())
	assert.Equal(t, "an adder", d.Description())
	sp, sv := d.Subject()
	assert.Equal(t, "task/add", sp)
	assert.Equal(t, "adder", sv)
	assert.True(t, d.IsModeling())
	assert.Equal(t, c.Paths(), d.Paths())
	assert.Equal(t, []string{"arg/x1"}, d.InPaths())
	assert.True(t, d.IsCompositeAttribute("unit"))
	ps, err := d.MarkedPaths("unit|length")
	require.NoError(t, err)
	assert.Equal(t, []string{"arg/x1"}, ps)
	assert.Equal(t, []string{"arg/x1"}, d.Dependencies("script"))
	assert.Equal(t, &ReturnPath{Path: "result", Direction: Out}, d.ReturnPath())

	v, err := d.GetValue("list")
	require.NoError(t, err)
	assert.Equal(t, testutil.Dwimjs(`["a",1]`), v)

	l, have := d.Link("linked")
	require.True(t, have)
	assert.Equal(t, "target", l.Name)
	assert.Equal(t, "arg", l.Offset)
	v, err = d.GetValue("linked/arg/x")
	require.NoError(t, err)
	assert.Equal(t, 3.0, v)

	raw, err := d.Value0("script")
	require.NoError(t, err)
	se, is := raw.(*ScriptEvaluation)
	require.True(t, is)
	assert.Equal(t, "goja", se.Interpreter)
	assert.Equal(t, "return 1;", se.Source)
}

func TestCodecNotSerializable(t *testing.T) {
	c := NewServiceContext("c")
	require.NoError(t, c.PutValue("f", NewExpr(nil)))
	_, err := json.Marshal(c)
	assert.True(t, errors.Is(err, ErrNotSerializable), "%v", err)

	c = NewServiceContext("c")
	require.NoError(t, c.PutValue("ch", make(chan int)))
	_, err = json.Marshal(c)
	assert.True(t, errors.Is(err, ErrNotSerializable), "%v", err)
}

func TestCodecBadMarks(t *testing.T) {
	_, err := DecodeContext([]byte(`{"name":"x","data":{},"marks":{"nope":{"a":"b"}}}`))
	assert.Error(t, err)
}
