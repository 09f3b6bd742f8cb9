/* Copyright 2018 Comcast Cable Communications Management, LLC
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

// Package goja evaluates ECMAScript stored in contexts.
package goja

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/dop251/goja"
	"github.com/gorhill/cronexpr"
	"go.uber.org/zap"

	"github.com/mwsobol/SORCER-sub002/core"
	"github.com/mwsobol/SORCER-sub002/match"
	"github.com/mwsobol/SORCER-sub002/util"
)

var (
	// InterruptedMessage is the string value of Interrupted.
	InterruptedMessage = "RuntimeError: timeout"

	// Interrupted is returned by Eval if the evaluation is
	// interrupted.
	Interrupted = errors.New(InterruptedMessage)
)

func init() {
	core.DefaultInterpreters["goja"] = NewInterpreter()
}

// LibraryProvider resolves a library name to its source.
type LibraryProvider func(ctx context.Context, i *Interpreter, libraryName string) (string, error)

// Interpreter implements core.Interpreter using Goja, which is a Go
// implementation of ECMAScript 5.1+.
//
// See https://github.com/dop251/goja.
type Interpreter struct {
	// Timeout, if positive, bounds each evaluation.
	Timeout time.Duration

	// LibraryProvider resolves the names in a source's
	// "requires".  DefaultLibraryProvider is used if nil.
	LibraryProvider LibraryProvider
}

// NewInterpreter makes a new Interpreter.
func NewInterpreter() *Interpreter {
	return &Interpreter{}
}

// ProvideLibrary resolves the library name into its source.
func (i *Interpreter) ProvideLibrary(ctx context.Context, name string) (string, error) {
	if i.LibraryProvider != nil {
		return i.LibraryProvider(ctx, i, name)
	}
	return DefaultLibraryProvider(ctx, i, name)
}

var DefaultLibraryProvider = MakeFileLibraryProvider(".")

// MakeFileLibraryProvider makes a LibraryProvider for names that are
// URLs with protocols "file", "http", and "https".  File names are
// relative to dir.
func MakeFileLibraryProvider(dir string) LibraryProvider {
	return func(ctx context.Context, i *Interpreter, name string) (string, error) {
		parts := strings.SplitN(name, "://", 2)
		if 2 != len(parts) {
			return "", fmt.Errorf("bad library name '%s'", name)
		}
		switch parts[0] {
		case "file":
			bs, err := os.ReadFile(filepath.Join(dir, filepath.Clean("/"+parts[1])))
			if err != nil {
				return "", err
			}
			return string(bs), nil
		case "http", "https":
			req, err := http.NewRequestWithContext(ctx, "GET", name, nil)
			if err != nil {
				return "", err
			}
			resp, err := http.DefaultClient.Do(req)
			if err != nil {
				return "", err
			}
			defer resp.Body.Close()
			if resp.StatusCode != http.StatusOK {
				return "", fmt.Errorf("library fetch status %s", resp.Status)
			}
			bs, err := io.ReadAll(resp.Body)
			if err != nil {
				return "", err
			}
			return string(bs), nil
		default:
			return "", fmt.Errorf("unknown protocol '%s'", parts[0])
		}
	}
}

func MakeMapLibraryProvider(srcs map[string]string) LibraryProvider {
	return func(ctx context.Context, i *Interpreter, name string) (string, error) {
		src, have := srcs[name]
		if !have {
			return "", fmt.Errorf("undefined library '%s'", name)
		}
		return src, nil
	}
}

// wrapSrc puts the code in a function so that it can "return" the
// evaluated value.
func wrapSrc(src string) string {
	return fmt.Sprintf("(function() {\n%s\n}());\n", src)
}

// AsSource interprets a stored source.  It's either a string of code
// or a map with "code" and optional "requires" (a library name or a
// list of them).
//
// Maps from gopkg.in/yaml.v2 (map[interface{}]interface{}) are
// accepted too.
func AsSource(src interface{}) (code string, libs []string, err error) {
	switch vv := src.(type) {
	case string:
		return vv, nil, nil
	case map[interface{}]interface{}:
		m := make(map[string]interface{}, len(vv))
		for k, v := range vv {
			s, is := k.(string)
			if !is {
				return "", nil, fmt.Errorf("bad source key (%T)", k)
			}
			m[s] = v
		}
		return parseSource(m)
	case map[string]interface{}:
		return parseSource(vv)
	default:
		return "", nil, fmt.Errorf("bad Goja source (%T)", src)
	}
}

func parseSource(m map[string]interface{}) (code string, libs []string, err error) {
	s, is := m["code"].(string)
	if !is {
		return "", nil, errors.New("bad Goja source code")
	}
	code = s

	switch vv := m["requires"].(type) {
	case nil:
	case string:
		libs = []string{vv}
	case []string:
		libs = vv
	case []interface{}:
		libs = make([]string, 0, len(vv))
		for _, x := range vv {
			lib, is := x.(string)
			if !is {
				return "", nil, fmt.Errorf("bad library (%T)", x)
			}
			libs = append(libs, lib)
		}
	default:
		return "", nil, fmt.Errorf("bad requires (%T)", vv)
	}
	return code, libs, nil
}

// Compile prepends any required libraries to the wrapped code and
// calls goja.Compile.
//
// This method can block if the interpreter's LibraryProvider blocks.
func (i *Interpreter) Compile(ctx context.Context, src interface{}) (interface{}, error) {
	code, libs, err := AsSource(src)
	if err != nil {
		return nil, err
	}

	var libsSrc string
	for _, lib := range libs {
		libSrc, err := i.ProvideLibrary(ctx, lib)
		if err != nil {
			return nil, err
		}
		libsSrc += libSrc + "\n"
	}

	code = libsSrc + wrapSrc(code)

	p, err := goja.Compile("", code, true)
	if err != nil {
		return nil, errors.New(err.Error() + ": " + code)
	}
	return p, nil
}

func protest(o *goja.Runtime, x interface{}) {
	panic(o.ToValue(x))
}

func export(x interface{}) interface{} {
	if v, is := x.(goja.Value); is {
		return v.Export()
	}
	return x
}

// argsMap renders the args for a script.  An Entry becomes its path
// and value.
func argsMap(args []core.Arg) map[string]interface{} {
	acc := make(map[string]interface{}, len(args))
	for _, a := range args {
		switch vv := a.(type) {
		case core.Entry:
			acc[vv.Path] = vv.Value
		case *core.Entry:
			acc[vv.Path] = vv.Value
		default:
			acc[a.ArgName()] = a
		}
	}
	return acc
}

// Eval implements core.Interpreter.
//
// The following properties are available from the runtime at _.
//
//    get(path): the value at the path in the scope context.
//    put(path, v): store the value in the scope context.
//    args: the evaluation's args by name.
//    name: the scope context's name.
//
// Some useful utilities:
//
//    gensym(): generate a random string.
//    esc(s): URL query-escape the given string.
//    cronNext(expr): the next time for the cron expression.
//    match(pat, obj, bs): execute the pattern matcher.
//    log(x): write x to the process log.
//
// The value the code returns is the result, canonicalized to
// JSON-like Go values.
func (i *Interpreter) Eval(ctx context.Context, scope core.Context, args []core.Arg, src interface{}, compiled interface{}) (interface{}, error) {
	if compiled == nil {
		var err error
		if compiled, err = i.Compile(ctx, src); err != nil {
			return nil, err
		}
	}
	p, is := compiled.(*goja.Program)
	if !is {
		return nil, fmt.Errorf("Goja bad compilation: %T %#v", compiled, compiled)
	}

	if 0 < i.Timeout {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, i.Timeout)
		defer cancel()
	}

	o := goja.New()

	env := map[string]interface{}{
		"args": argsMap(args),
	}
	o.Set("_", env)

	env["name"] = ""
	if scope != nil {
		env["name"] = scope.Name()
	}

	env["get"] = func(x interface{}) interface{} {
		path, is := export(x).(string)
		if !is {
			protest(o, "path not a string")
		}
		if scope == nil {
			protest(o, "no scope")
		}
		v, err := scope.GetValue(path)
		if err != nil {
			protest(o, err.Error())
		}
		return v
	}

	env["put"] = func(x interface{}, v interface{}) interface{} {
		path, is := export(x).(string)
		if !is {
			protest(o, "path not a string")
		}
		if scope == nil {
			protest(o, "no scope")
		}
		y, err := core.Canonicalize(export(v))
		if err != nil {
			protest(o, err.Error())
		}
		if err := scope.PutValue(path, y); err != nil {
			protest(o, err.Error())
		}
		return y
	}

	env["gensym"] = func() interface{} {
		return core.Gensym(32)
	}

	env["cronNext"] = func(x interface{}) interface{} {
		expr, is := export(x).(string)
		if !is {
			protest(o, "not a string")
		}
		c, err := cronexpr.Parse(expr)
		if err != nil {
			protest(o, err.Error())
		}
		return c.Next(time.Now()).UTC().Format(time.RFC3339Nano)
	}

	env["esc"] = func(x interface{}) interface{} {
		s, is := export(x).(string)
		if !is {
			protest(o, "not a string")
		}
		return url.QueryEscape(s)
	}

	env["log"] = func(x interface{}) interface{} {
		x = export(x)
		util.Logger().Info("goja", zap.Any("x", x))
		return x
	}

	env["match"] = func(pat, fact, bs goja.Value) interface{} {
		bindings := match.NewBindings()
		if bs != nil && !goja.IsUndefined(bs) && !goja.IsNull(bs) {
			x, err := core.Canonicalize(bs.Export())
			if err != nil {
				protest(o, err.Error())
			}
			m, is := x.(map[string]interface{})
			if !is {
				protest(o, "bad bindings")
			}
			bindings = match.Bindings(m)
		}
		p, err := core.Canonicalize(pat.Export())
		if err != nil {
			protest(o, err.Error())
		}
		f, err := core.Canonicalize(fact.Export())
		if err != nil {
			protest(o, err.Error())
		}
		bss, err := match.Match(p, f, bindings)
		if err != nil {
			protest(o, err.Error())
		}
		x, err := core.Canonicalize(bss)
		if err != nil {
			protest(o, err.Error())
		}
		return x
	}

	// The goroutine must end as soon as RunProgram returns.
	ictx, cancel := context.WithCancel(ctx)
	go func() {
		<-ictx.Done()
		// After a normal return, cancel() gets here too late to
		// matter.
		o.Interrupt(InterruptedMessage)
	}()

	v, err := o.RunProgram(p)
	cancel()

	if err != nil {
		if _, is := err.(*goja.InterruptedError); is {
			return nil, Interrupted
		}
		return nil, err
	}

	if v == nil || goja.IsUndefined(v) || goja.IsNull(v) {
		return nil, nil
	}
	return core.Canonicalize(v.Export())
}
