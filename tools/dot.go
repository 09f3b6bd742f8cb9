package tools

// dot -Tpng g.dot > g.png

import (
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"

	"gopkg.in/yaml.v2"

	"github.com/mwsobol/SORCER-sub002/core"
)

// Dot makes a Graphviz dot file for the context and the contexts its
// links reach.  Each node lists the context's local paths that aren't
// links.
func Dot(c *core.ServiceContext, w io.Writer) error {
	nodes, edges := linkGraph(c)

	fmt.Fprintf(w, "digraph G {\n")
	fmt.Fprintf(w, `  graph [ordering=out,rankdir=LR,nodesep=0.3,ranksep=0.6]
  node [shape="record" style="rounded,filled"]
  edge [fontsize = "12"]
`)

	for i, n := range nodes {
		label := escbraces(n.Name())
		var vals []string
		for _, p := range n.Paths() {
			if _, is := n.Link(p); is {
				continue
			}
			vals = append(vals, p)
		}
		if 0 < len(vals) {
			// A YAML list reads well in a record.
			bs, err := yaml.Marshal(vals)
			if err != nil {
				return err
			}
			label += "|" + strings.Replace(escbraces(string(bs)), "\n", `\l`, -1)
		}
		fillcolor := "#99ddc8"
		if n.IsModeling() {
			fillcolor = "#2d93ad"
		}
		style := "rounded,filled"
		if i == 0 {
			style += ",bold"
		}
		fmt.Fprintf(w, "  \"%s\" [style=\"%s\", fillcolor=\"%s\", label=\"{%s}\"]\n",
			escape(n.Name()), style, fillcolor, escape(label))
	}

	for _, e := range edges {
		color := "black"
		if e.dangling {
			color = "red"
			fmt.Fprintf(w, "  \"%s\" [style=\"dashed\", color=\"red\"]\n", escape(e.to))
		}
		fmt.Fprintf(w, "  \"%s\" -> \"%s\" [color=\"%s\", label=\"%s\"]\n",
			escape(e.from), escape(e.to), color, escape(edgeLabel(e)))
	}

	_, err := fmt.Fprintf(w, "}\n")
	return err
}

// PNG generates a PNG image based on output from Dot.
//
// This function will write two files: basename.dot and basename.png,
// where the basename is the given string.  It needs Graphviz's dot.
func PNG(c *core.ServiceContext, basename string) (string, error) {
	dotname := basename + ".dot"
	pngname := basename + ".png"

	dotfile, err := os.Create(dotname)
	if err != nil {
		return pngname, err
	}
	if err := Dot(c, dotfile); err != nil {
		dotfile.Close()
		return pngname, err
	}
	if err := dotfile.Close(); err != nil {
		return pngname, err
	}
	if err := exec.Command("dot", "-Tpng", "-o", pngname, dotname).Run(); err != nil {
		return pngname, err
	}
	return pngname, nil
}

func escape(s string) string {
	return strings.Replace(s, `"`, `\"`, -1)
}

func escbraces(s string) string {
	s = strings.Replace(s, "{", "\\{", -1)
	s = strings.Replace(s, "}", "\\}", -1)
	s = strings.Replace(s, "|", "\\|", -1)
	return s
}
