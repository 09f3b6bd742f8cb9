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
	"fmt"
	"io"
	"strings"

	"github.com/mwsobol/SORCER-sub002/core"
)

type MermaidOpts struct {
	// ShowOffsets puts the link path and offset on each edge.
	ShowOffsets bool `json:"showOffsets"`

	// ModelingFill is the fill color for modeling contexts.
	ModelingFill string `json:"modelingFill,omitempty"`

	// DanglingFill is the fill color for unresolved targets.
	DanglingFill string `json:"danglingFill,omitempty"`
}

// Mermaid makes a Mermaid (https://mermaidjs.github.io/) input file
// for the link graph of the context.
func Mermaid(c *core.ServiceContext, w io.Writer, opts *MermaidOpts) error {
	if opts == nil {
		opts = &MermaidOpts{
			ShowOffsets:  true,
			ModelingFill: "#bcf2db",
			DanglingFill: "#f98b8b",
		}
	}

	nodes, edges := linkGraph(c)

	fmt.Fprintf(w, "graph LR\n")

	nids := make(map[string]string)
	node := func(name string) string {
		if nid, already := nids[name]; already {
			return nid
		}
		nid := fmt.Sprintf("n%d", len(nids)+1)
		nids[name] = nid
		return nid
	}

	for _, n := range nodes {
		nid := node(n.Name())
		fmt.Fprintf(w, "  %s(\"%s\")\n", nid, quote(n.Name()))
		if n.IsModeling() && opts.ModelingFill != "" {
			fmt.Fprintf(w, "  style %s fill:%s\n", nid, opts.ModelingFill)
		}
	}

	for _, e := range edges {
		if _, have := nids[e.to]; !have {
			nid := node(e.to)
			fmt.Fprintf(w, "  %s[\"%s\"]\n", nid, quote(e.to))
			if e.dangling && opts.DanglingFill != "" {
				fmt.Fprintf(w, "  style %s fill:%s\n", nid, opts.DanglingFill)
			}
		}
		label := ""
		if opts.ShowOffsets {
			label = fmt.Sprintf(`-- "%s"`, quote(edgeLabel(e)))
		}
		fmt.Fprintf(w, "  %s %s --> %s\n", nids[e.from], label, nids[e.to])
	}

	_, err := fmt.Fprintf(w, "\n")
	return err
}

func quote(s string) string {
	return strings.Replace(s, `"`, `'`, -1)
}
