package graph

import (
	"context"
	"errors"
	"fmt"
	"time"

	"sigs.k8s.io/controller-runtime/pkg/log"

	"github.com/chazu/jobgraph/pkg/metrics"
)

// Validate runs the structural checks in order: acyclicity, connectivity, then
// presence of start and end jobs. It returns the first failure.
func Validate(g *Graph) error {
	if g == nil {
		return fmt.Errorf("%w: graph cannot be nil", ErrInvalidGraph)
	}

	// A cyclic graph makes the remaining checks meaningless
	if err := CheckAcyclic(g); err != nil {
		return err
	}

	if err := CheckConnected(g); err != nil {
		return err
	}

	return CheckEntryExit(g)
}

// Verify runs Validate, records the outcome in the validation metrics and logs
// the verdict
func Verify(ctx context.Context, g *Graph) error {
	logger := log.FromContext(ctx)

	start := time.Now()
	err := Validate(g)
	metrics.RecordValidation(ValidationResult(err), time.Since(start).Seconds())
	if err != nil {
		logger.Error(err, "graph validation failed")
		return err
	}

	logger.Info("DAG is valid", "graph", g.Name(), "jobs", g.Len(), "hash", g.ComputeHash())
	return nil
}

// ValidationResult classifies the outcome of Validate for metrics and logs
func ValidationResult(err error) string {
	switch {
	case err == nil:
		return "valid"
	case errors.Is(err, ErrCycleDetected):
		return "cycle"
	case errors.Is(err, ErrMultipleComponents):
		return "components"
	case errors.Is(err, ErrNoEntryOrExitPoint):
		return "entry_exit"
	default:
		return "invalid"
	}
}

// CheckAcyclic returns a *CycleError if the graph contains a cycle
func CheckAcyclic(g *Graph) error {
	if path := FindCycle(g); path != nil {
		return &CycleError{Job: path[0], Path: path}
	}
	return nil
}

// CheckConnected returns a *ComponentsError unless the graph forms exactly one
// connected component when edges are treated as undirected
func CheckConnected(g *Graph) error {
	components := ConnectedComponents(g)
	if len(components) != 1 {
		return &ComponentsError{Count: len(components), Components: components}
	}
	return nil
}

// CheckEntryExit returns a *EntryExitError unless the graph has at least one
// source and at least one sink
func CheckEntryExit(g *Graph) error {
	sources, sinks := SourcesAndSinks(g)
	if len(sources) == 0 || len(sinks) == 0 {
		return &EntryExitError{Sources: sources, Sinks: sinks}
	}
	return nil
}

// HasCycle reports whether the dependency edges contain a cycle
func HasCycle(g *Graph) bool {
	return FindCycle(g) != nil
}

const (
	unvisited = iota
	inProgress
	visited
)

// frame is one level of an explicit depth-first traversal: the job and the
// index of the next dependency to follow
type frame struct {
	job  string
	next int
}

// FindCycle returns the jobs of the first cycle found, starting and ending with
// the job that was re-entered, or nil if the graph is acyclic. Each job is tried
// as a root in declaration order, so disconnected parts are checked too.
func FindCycle(g *Graph) []string {
	color := make(map[string]int, g.Len())

	for _, root := range g.order {
		if color[root] != unvisited {
			continue
		}

		color[root] = inProgress
		stack := []frame{{job: root}}

		for len(stack) > 0 {
			top := &stack[len(stack)-1]
			deps, _ := g.deps(top.job)

			if top.next < len(deps) {
				dep := deps[top.next]
				top.next++

				switch color[dep] {
				case inProgress:
					return cyclePath(stack, dep)
				case unvisited:
					color[dep] = inProgress
					stack = append(stack, frame{job: dep})
				}
				continue
			}

			color[top.job] = visited
			stack = stack[:len(stack)-1]
		}
	}

	return nil
}

// cyclePath extracts the cycle closed by an edge back to job from the stack
func cyclePath(stack []frame, job string) []string {
	start := 0
	for i := range stack {
		if stack[i].job == job {
			start = i
			break
		}
	}

	path := make([]string, 0, len(stack)-start+1)
	for _, f := range stack[start:] {
		path = append(path, f.job)
	}
	return append(path, job)
}

// ConnectedComponents groups jobs reachable from one another when every
// dependency edge is followed in both directions. Components are returned in
// discovery order and jobs within a component in breadth-first order.
func ConnectedComponents(g *Graph) [][]string {
	adjacency := make(map[string][]string, g.Len())
	for _, id := range g.order {
		deps, _ := g.deps(id)
		for _, dep := range deps {
			adjacency[id] = append(adjacency[id], dep)
			adjacency[dep] = append(adjacency[dep], id)
		}
	}

	seen := make(map[string]bool, g.Len())
	var components [][]string

	for _, root := range g.order {
		if seen[root] {
			continue
		}

		seen[root] = true
		queue := []string{root}
		for head := 0; head < len(queue); head++ {
			for _, neighbor := range adjacency[queue[head]] {
				if !seen[neighbor] {
					seen[neighbor] = true
					queue = append(queue, neighbor)
				}
			}
		}

		components = append(components, queue)
	}

	return components
}

// SourcesAndSinks returns the jobs with no dependencies and the jobs no other
// job depends on, both in declaration order
func SourcesAndSinks(g *Graph) (sources, sinks []string) {
	referenced := make(map[string]bool, g.Len())
	for _, id := range g.order {
		deps, _ := g.deps(id)
		if len(deps) == 0 {
			sources = append(sources, id)
		}
		for _, dep := range deps {
			referenced[dep] = true
		}
	}

	for _, id := range g.order {
		if !referenced[id] {
			sinks = append(sinks, id)
		}
	}

	return sources, sinks
}
