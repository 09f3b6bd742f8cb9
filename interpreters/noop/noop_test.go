package noop

import (
	"context"
	"testing"

	"github.com/mwsobol/SORCER-sub002/core"
	"github.com/mwsobol/SORCER-sub002/util"
	"github.com/mwsobol/SORCER-sub002/util/testutil"
)

func TestEvalReturnsSource(t *testing.T) {
	logger, logs := testutil.ObservedLogger()
	util.SetLogger(logger)
	defer util.SetLogger(nil)

	i := NewInterpreter()
	ctx := context.Background()
	compiled, err := i.Compile(ctx, "1+2")
	if err != nil {
		t.Fatal(err)
	}
	x, err := i.Eval(ctx, nil, nil, "1+2", compiled)
	if err != nil {
		t.Fatal(err)
	}
	if x != "1+2" {
		t.Fatal(x)
	}
	if n := logs.Len(); n != 2 {
		t.Fatalf("%d warnings", n)
	}

	i.Silent = true
	if _, err := i.Eval(ctx, nil, nil, "x", nil); err != nil {
		t.Fatal(err)
	}
	if n := logs.Len(); n != 2 {
		t.Fatalf("%d warnings", n)
	}
}

func TestScriptEvaluation(t *testing.T) {
	is := map[string]core.Interpreter{
		"noop": &Interpreter{Silent: true},
	}
	e := core.NewScriptEvaluation("noop", "return 42;")
	if err := e.Compile(context.Background(), is); err != nil {
		t.Fatal(err)
	}
	x, err := e.Evaluate()
	if err != nil {
		t.Fatal(err)
	}
	if x != "return 42;" {
		t.Fatal(x)
	}
}
