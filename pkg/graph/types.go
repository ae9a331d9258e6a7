package graph

import (
	"encoding/json"
	"fmt"

	"github.com/cespare/xxhash/v2"
)

// Job is a named unit of work and the names of the jobs it depends on
type Job struct {
	// Name uniquely identifies the job within a graph
	Name string `json:"name"`

	// Dependencies lists the jobs that must complete before this job runs
	Dependencies []string `json:"dependencies,omitempty"`
}

// Graph is an immutable set of jobs and their dependency edges.
// Jobs keep the order in which they were declared.
type Graph struct {
	name  string
	order []string
	jobs  map[string]Job
}

// NewGraph builds a Graph from declared jobs. Construction is all-or-nothing:
// empty names, duplicate names and dependencies on undeclared jobs are errors.
// Repeated entries within one dependency list are collapsed.
func NewGraph(name string, jobs []Job) (*Graph, error) {
	g := &Graph{
		name:  name,
		order: make([]string, 0, len(jobs)),
		jobs:  make(map[string]Job, len(jobs)),
	}

	for _, job := range jobs {
		if job.Name == "" {
			return nil, fmt.Errorf("%w: job name is required", ErrInvalidJob)
		}
		if _, exists := g.jobs[job.Name]; exists {
			return nil, fmt.Errorf("%w: %q", ErrDuplicateJob, job.Name)
		}

		deps := make([]string, 0, len(job.Dependencies))
		seen := make(map[string]bool, len(job.Dependencies))
		for _, dep := range job.Dependencies {
			if dep == "" {
				return nil, fmt.Errorf("%w: job %q has an empty dependency name", ErrInvalidJob, job.Name)
			}
			if seen[dep] {
				continue
			}
			seen[dep] = true
			deps = append(deps, dep)
		}

		g.order = append(g.order, job.Name)
		g.jobs[job.Name] = Job{Name: job.Name, Dependencies: deps}
	}

	for _, id := range g.order {
		for _, dep := range g.jobs[id].Dependencies {
			if _, ok := g.jobs[dep]; !ok {
				return nil, &DanglingDependencyError{Job: id, Dependency: dep}
			}
		}
	}

	return g, nil
}

// Name returns the human-readable name the graph was built with
func (g *Graph) Name() string {
	return g.name
}

// Len returns the number of jobs in the graph
func (g *Graph) Len() int {
	return len(g.order)
}

// Get returns the job with the given name
func (g *Graph) Get(name string) (Job, error) {
	job, ok := g.jobs[name]
	if !ok {
		return Job{}, &UnknownJobError{Job: name}
	}
	return Job{Name: job.Name, Dependencies: copyNames(job.Dependencies)}, nil
}

// JobNames returns all job names in declaration order
func (g *Graph) JobNames() []string {
	return copyNames(g.order)
}

// DependenciesOf returns the direct dependencies of a job, in declaration order
func (g *Graph) DependenciesOf(name string) ([]string, error) {
	job, ok := g.jobs[name]
	if !ok {
		return nil, &UnknownJobError{Job: name}
	}
	return copyNames(job.Dependencies), nil
}

// DependentsOf returns the jobs that list name as a direct dependency,
// in declaration order
func (g *Graph) DependentsOf(name string) ([]string, error) {
	if _, ok := g.jobs[name]; !ok {
		return nil, &UnknownJobError{Job: name}
	}

	dependents := []string{}
	for _, id := range g.order {
		for _, dep := range g.jobs[id].Dependencies {
			if dep == name {
				dependents = append(dependents, id)
				break
			}
		}
	}
	return dependents, nil
}

// deps returns the stored dependency slice without copying. Callers in this
// package must not modify it.
func (g *Graph) deps(name string) ([]string, bool) {
	job, ok := g.jobs[name]
	return job.Dependencies, ok
}

// ComputeHash computes a hash of the jobs and their edges in declaration order.
// The graph name is not part of the hash.
func (g *Graph) ComputeHash() string {
	jobs := make([]Job, 0, len(g.order))
	for _, id := range g.order {
		jobs = append(jobs, g.jobs[id])
	}

	data, err := json.Marshal(jobs)
	if err != nil {
		return ""
	}

	return fmt.Sprintf("%x", xxhash.Sum64(data))
}

func copyNames(names []string) []string {
	out := make([]string, len(names))
	copy(out, names)
	return out
}
