// Package noop provides an Interpreter that doesn't interpret.
package noop

import (
	"context"

	"github.com/mwsobol/SORCER-sub002/core"
	"github.com/mwsobol/SORCER-sub002/util"
)

// Interpreter is a core.Interpreter whose evaluations return their
// source unevaluated.
type Interpreter struct {
	// Silent, if true, suppresses warning log messages.
	Silent bool
}

func NewInterpreter() *Interpreter {
	return &Interpreter{}
}

func (i *Interpreter) Compile(ctx context.Context, code interface{}) (interface{}, error) {
	if !i.Silent {
		util.Logger().Warn("using noop Interpreter for compilation")
	}
	return nil, nil
}

func (i *Interpreter) Eval(ctx context.Context, scope core.Context, args []core.Arg, code interface{}, compiled interface{}) (interface{}, error) {
	if !i.Silent {
		util.Logger().Warn("using noop Interpreter for evaluation")
	}
	return code, nil
}
