// Package interpreters collects the standard script interpreters.
package interpreters

import (
	"github.com/mwsobol/SORCER-sub002/core"
	"github.com/mwsobol/SORCER-sub002/interpreters/goja"
	"github.com/mwsobol/SORCER-sub002/interpreters/noop"
)

// Standard returns a new map of the standard interpreters by name.
func Standard() map[string]core.Interpreter {
	g := goja.NewInterpreter()
	return map[string]core.Interpreter{
		"goja":       g,
		"ecmascript": g,
		"noop":       noop.NewInterpreter(),
	}
}
