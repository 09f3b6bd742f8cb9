/* Copyright 2018-2019 Comcast Cable Communications Management, LLC
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 * http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package core

import (
	"context"
	"errors"
	"sync"
)

// Arg is an argument to GetValue and to an Evaluation.
type Arg interface {
	ArgName() string
}

// Entry is a path/value pair.  As an Arg to GetValue, an Entry is
// substituted into the context before anything is evaluated.
type Entry struct {
	Path  string      `json:"path"`
	Value interface{} `json:"value"`
}

func (e Entry) ArgName() string {
	return e.Path
}

// Evaluation is a value that is computed when read.
type Evaluation interface {
	Evaluate(args ...Arg) (interface{}, error)
}

// Scopable is an Evaluation that reads other values from a scope
// context.
type Scopable interface {
	Scope() Context
	SetScope(Context)
}

// Reactive values are evaluated on read even when their context isn't
// in modeling mode.
type Reactive interface {
	IsReactive() bool
}

// Expr is an Evaluation implemented by a Go function.
type Expr struct {
	F func(scope Context, args []Arg) (interface{}, error)

	// Reactive makes the expression evaluate on every read.
	Reactive bool

	scope Context
}

// NewExpr makes an Expr from the given function.
func NewExpr(f func(scope Context, args []Arg) (interface{}, error)) *Expr {
	return &Expr{F: f}
}

func (e *Expr) Evaluate(args ...Arg) (interface{}, error) {
	if e.F == nil {
		return nil, nil
	}
	return e.F(e.scope, args)
}

func (e *Expr) Scope() Context {
	return e.scope
}

func (e *Expr) SetScope(c Context) {
	e.scope = c
}

func (e *Expr) IsReactive() bool {
	return e.Reactive
}

// Copy makes an Expr with the same function and no scope.
func (e *Expr) Copy() *Expr {
	return &Expr{F: e.F, Reactive: e.Reactive}
}

var (
	// InterpreterNotFound occurs when a ScriptEvaluation names an
	// interpreter that isn't in the given map of interpreters.
	InterpreterNotFound = errors.New("interpreter not found")

	// DefaultInterpreters will be used by ScriptEvaluation.Compile
	// if given nil interpreters.
	DefaultInterpreters = make(map[string]Interpreter)
)

// Interpreter compiles and evaluates script sources that are stored
// in contexts.
type Interpreter interface {
	// Compile can make something that helps when Eval()ing the
	// code later.
	Compile(ctx context.Context, code interface{}) (interface{}, error)

	// Eval evaluates the code with the given scope.  The result
	// of previous Compile() might be provided.
	Eval(ctx context.Context, scope Context, args []Arg, code interface{}, compiled interface{}) (interface{}, error)
}

// ScriptEvaluation is an Evaluation given as source code for an
// Interpreter.  Unlike an Expr, it survives serialization.
type ScriptEvaluation struct {
	Interpreter string      `json:"interpreter,omitempty" yaml:",omitempty"`
	Source      interface{} `json:"source"`

	mu       sync.Mutex
	interp   Interpreter
	compiled interface{}
	scope    Context
}

// NewScriptEvaluation makes an uncompiled ScriptEvaluation.
func NewScriptEvaluation(interpreter string, src interface{}) *ScriptEvaluation {
	return &ScriptEvaluation{
		Interpreter: interpreter,
		Source:      src,
	}
}

// Compile attempts to compile the source using the given
// interpreters, which defaults to DefaultInterpreters.
func (e *ScriptEvaluation) Compile(ctx context.Context, interpreters map[string]Interpreter) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.compile(ctx, interpreters)
}

func (e *ScriptEvaluation) compile(ctx context.Context, interpreters map[string]Interpreter) error {
	if interpreters == nil {
		interpreters = DefaultInterpreters
	}
	interp, have := interpreters[e.Interpreter]
	if !have {
		return InterpreterNotFound
	}
	x, err := interp.Compile(ctx, e.Source)
	if err != nil {
		return err
	}
	e.interp = interp
	e.compiled = x
	return nil
}

// Evaluate compiles with DefaultInterpreters if needed and then
// evaluates the source in the current scope.
func (e *ScriptEvaluation) Evaluate(args ...Arg) (interface{}, error) {
	ctx := context.Background()
	e.mu.Lock()
	if e.interp == nil {
		if err := e.compile(ctx, nil); err != nil {
			e.mu.Unlock()
			return nil, err
		}
	}
	interp, compiled, scope := e.interp, e.compiled, e.scope
	e.mu.Unlock()
	return interp.Eval(ctx, scope, args, e.Source, compiled)
}

func (e *ScriptEvaluation) Scope() Context {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.scope
}

func (e *ScriptEvaluation) SetScope(c Context) {
	e.mu.Lock()
	e.scope = c
	e.mu.Unlock()
}

// Copy makes an uncompiled copy with no scope.
func (e *ScriptEvaluation) Copy() *ScriptEvaluation {
	return NewScriptEvaluation(e.Interpreter, e.Source)
}

// detach returns a copy of a link or evaluation stored in from, fit
// to be stored in another context.  An evaluation keeps its scope
// only if that scope isn't from.  Other values are returned as is.
func detach(v interface{}, from *ServiceContext) interface{} {
	switch vv := v.(type) {
	case *ContextLink:
		return vv.Copy()
	case *ScriptEvaluation:
		acc := vv.Copy()
		if scope := vv.Scope(); scope != nil && scope.Base() != from {
			acc.SetScope(scope)
		}
		return acc
	case *Expr:
		acc := vv.Copy()
		if vv.scope != nil && vv.scope.Base() != from {
			acc.scope = vv.scope
		}
		return acc
	}
	return v
}
