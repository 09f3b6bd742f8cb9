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

package tools

import (
	"errors"
	"sort"

	"github.com/mwsobol/SORCER-sub002/core"
)

// ContextAnalysis reports on the structure of a context and problems
// that would show up only when paths are read.
type ContextAnalysis struct {
	Name        string
	Paths       int
	Links       int
	Evaluations []string
	Linked      []string

	// Interpreters named by script evaluations.
	Interpreters []string

	// DanglingLinks are link paths whose targets can't be found.
	DanglingLinks []string

	// LinkCycle is true if following links leads back.
	LinkCycle bool

	// MarksOnMissingPaths lists marked paths with nothing stored.
	MarksOnMissingPaths []string

	// MissingDependencies are "path -> dependency" pairs where the
	// dependency isn't visible.
	MissingDependencies []string

	// MissingReturnPath is true if the return path names nothing.
	MissingReturnPath bool

	Errors []string
}

// Analyze examines the context and the contexts its links reach.
func Analyze(c *core.ServiceContext) (*ContextAnalysis, error) {
	a := ContextAnalysis{
		Name:   c.Name(),
		Paths:  c.Size(),
		Errors: make([]string, 0, 8),
	}

	interpreters := make(map[string]bool)
	local := make(map[string]bool)
	for _, p := range c.Paths() {
		local[p] = true
		v, err := c.Value0(p)
		if err != nil {
			a.Errors = append(a.Errors, err.Error())
			continue
		}
		switch vv := v.(type) {
		case *core.ContextLink:
			a.Links++
		case *core.ScriptEvaluation:
			a.Evaluations = append(a.Evaluations, p)
			interpreters[vv.Interpreter] = true
		case core.Evaluation:
			a.Evaluations = append(a.Evaluations, p)
		}
	}
	for name := range interpreters {
		a.Interpreters = append(a.Interpreters, name)
	}
	sort.Strings(a.Interpreters)

	nodes, edges := linkGraph(c)
	for _, n := range nodes[1:] {
		a.Linked = append(a.Linked, n.Name())
	}
	for _, e := range edges {
		if e.from == c.Name() && e.dangling {
			a.DanglingLinks = append(a.DanglingLinks, e.path)
		}
	}

	visible := make(map[string]bool)
	if len(a.DanglingLinks) == 0 {
		ps, err := c.VisiblePaths()
		if err != nil {
			if errors.Is(err, core.ErrLinkCycle) {
				a.LinkCycle = true
			}
			a.Errors = append(a.Errors, err.Error())
		}
		for _, p := range ps {
			visible[p] = true
		}
	} else {
		visible = local
	}

	for _, p := range c.AnnotatedPaths() {
		if !local[p] && !visible[p] {
			a.MarksOnMissingPaths = append(a.MarksOnMissingPaths, p)
		}
	}

	for _, p := range c.DependentPaths() {
		for _, d := range c.Dependencies(p) {
			if !visible[d] {
				a.MissingDependencies = append(a.MissingDependencies, p+" -> "+d)
			}
		}
	}

	if rp := c.ReturnPath(); rp != nil && len(rp.OutPaths) == 0 && !visible[rp.Path] {
		a.MissingReturnPath = true
	}

	return &a, nil
}

// Problems counts what the analysis found wrong.
func (a *ContextAnalysis) Problems() int {
	n := len(a.DanglingLinks) + len(a.MarksOnMissingPaths) + len(a.MissingDependencies) + len(a.Errors)
	if a.LinkCycle && len(a.Errors) == 0 {
		n++
	}
	if a.MissingReturnPath {
		n++
	}
	return n
}
