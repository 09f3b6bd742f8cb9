package tools

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/mwsobol/SORCER-sub002/core"
)

// edge is a link from one context to another.
type edge struct {
	from, to string
	path     string
	offset   string

	// dangling means the target couldn't be resolved.
	dangling bool
}

// node identifies a context.  Fetching the same stored context twice
// gives two instances with one node.
type node struct {
	id   uuid.UUID
	name string
}

func nodeOf(c *core.ServiceContext) node {
	return node{c.ID(), c.Name()}
}

// linkGraph walks the links reachable from c.  Contexts are named by
// Name(), and the result lists them in the order they were reached.
func linkGraph(c *core.ServiceContext) ([]*core.ServiceContext, []edge) {
	var (
		nodes = []*core.ServiceContext{c}
		edges []edge
		seen  = map[node]bool{nodeOf(c): true}
	)
	for i := 0; i < len(nodes); i++ {
		n := nodes[i]
		for _, p := range n.LinkPaths() {
			l, _ := n.Link(p)
			e := edge{
				from:   n.Name(),
				to:     l.Name,
				path:   p,
				offset: l.Offset,
			}
			target, err := n.LinkTarget(p)
			if err != nil {
				e.dangling = true
				edges = append(edges, e)
				continue
			}
			edges = append(edges, e)
			if t := target.Base(); !seen[nodeOf(t)] {
				seen[nodeOf(t)] = true
				nodes = append(nodes, t)
			}
		}
	}
	return nodes, edges
}

func edgeLabel(e edge) string {
	if e.offset == "" {
		return e.path
	}
	return fmt.Sprintf("%s → %s", e.path, e.offset)
}
