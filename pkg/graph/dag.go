package graph

import (
	"errors"
	"fmt"
	"io"

	"github.com/dominikbraun/graph"
	"github.com/dominikbraun/graph/draw"
)

// Directed converts a Graph into a dominikbraun/graph directed graph with
// cycle prevention enabled. Edges point from a dependency to its dependent,
// so an edge A -> B means A must complete before B.
func Directed(g *Graph) (graph.Graph[string, string], error) {
	if g == nil {
		return nil, fmt.Errorf("%w: graph cannot be nil", ErrInvalidGraph)
	}

	dg := graph.New(graph.StringHash, graph.Directed(), graph.PreventCycles())

	// Add all vertices first
	for _, id := range g.order {
		if err := dg.AddVertex(id); err != nil {
			return nil, fmt.Errorf("failed to add vertex %s: %w", id, err)
		}
	}

	for _, id := range g.order {
		deps, _ := g.deps(id)
		for _, dep := range deps {
			if err := dg.AddEdge(dep, id); err != nil {
				if errors.Is(err, graph.ErrEdgeCreatesCycle) {
					return nil, &CycleError{Job: id}
				}
				return nil, fmt.Errorf("failed to add edge %s -> %s: %w", dep, id, err)
			}
		}
	}

	return dg, nil
}

// WriteDOT renders the graph in Graphviz DOT format
func WriteDOT(g *Graph, w io.Writer) error {
	dg, err := Directed(g)
	if err != nil {
		return err
	}
	return draw.DOT(dg, w, draw.GraphAttribute("rankdir", "LR"))
}
