package graph

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrInvalidGraph is returned for a nil or otherwise unusable graph.
	ErrInvalidGraph = errors.New("invalid job graph")

	// ErrInvalidJob is returned when a job definition is malformed.
	ErrInvalidJob = errors.New("invalid job")

	// ErrDuplicateJob is returned when two jobs share a name.
	ErrDuplicateJob = errors.New("duplicate job")

	// ErrDanglingDependency is returned when a job depends on a name that is not a job.
	ErrDanglingDependency = errors.New("dangling dependency")

	// ErrUnknownJob is returned when a lookup names a job that is not in the graph.
	ErrUnknownJob = errors.New("unknown job")

	// ErrCycleDetected is returned when the dependency edges contain a cycle.
	ErrCycleDetected = errors.New("DAG contains a cycle")

	// ErrMultipleComponents is returned when the graph is not exactly one connected component.
	ErrMultipleComponents = errors.New("DAG does not have exactly one connectivity component")

	// ErrNoEntryOrExitPoint is returned when the graph lacks a start job or an end job.
	ErrNoEntryOrExitPoint = errors.New("DAG does not have a start and end job")

	// ErrInvalidRunner is returned when an executor has no runner.
	ErrInvalidRunner = errors.New("invalid runner")

	// ErrJobExecutionFailed is returned when a runner fails a job.
	ErrJobExecutionFailed = errors.New("job execution failed")
)

// UnknownJobError reports a lookup of a job that does not exist
type UnknownJobError struct {
	Job string
}

func (e *UnknownJobError) Error() string {
	return fmt.Sprintf("%s: %q", ErrUnknownJob, e.Job)
}

func (e *UnknownJobError) Is(target error) bool { return target == ErrUnknownJob }

// DanglingDependencyError reports a dependency that names no job
type DanglingDependencyError struct {
	Job        string
	Dependency string
}

func (e *DanglingDependencyError) Error() string {
	return fmt.Sprintf("%s: job %q depends on non-existent job %q", ErrDanglingDependency, e.Job, e.Dependency)
}

// Is reports whether target is ErrDanglingDependency or ErrUnknownJob, since a
// dangling dependency is an unknown job seen from the dependent's side.
func (e *DanglingDependencyError) Is(target error) bool {
	return target == ErrDanglingDependency || target == ErrUnknownJob
}

// CycleError reports a dependency cycle. Path starts and ends with Job.
type CycleError struct {
	Job  string
	Path []string
}

func (e *CycleError) Error() string {
	if len(e.Path) == 0 {
		return fmt.Sprintf("%s involving job %q", ErrCycleDetected, e.Job)
	}
	return fmt.Sprintf("%s: %s", ErrCycleDetected, strings.Join(e.Path, " -> "))
}

func (e *CycleError) Is(target error) bool { return target == ErrCycleDetected }

// ComponentsError reports a graph whose undirected view is not a single component
type ComponentsError struct {
	Count      int
	Components [][]string
}

func (e *ComponentsError) Error() string {
	if e.Count == 0 {
		return fmt.Sprintf("%s: graph has no jobs", ErrMultipleComponents)
	}
	groups := make([]string, 0, len(e.Components))
	for _, c := range e.Components {
		groups = append(groups, "["+strings.Join(c, ", ")+"]")
	}
	return fmt.Sprintf("%s: found %d: %s", ErrMultipleComponents, e.Count, strings.Join(groups, " "))
}

func (e *ComponentsError) Is(target error) bool { return target == ErrMultipleComponents }

// EntryExitError reports a graph without a source job or without a sink job
type EntryExitError struct {
	Sources []string
	Sinks   []string
}

func (e *EntryExitError) Error() string {
	return fmt.Sprintf("%s (sources: %d, sinks: %d)", ErrNoEntryOrExitPoint, len(e.Sources), len(e.Sinks))
}

func (e *EntryExitError) Is(target error) bool { return target == ErrNoEntryOrExitPoint }

// JobExecutionError wraps a runner failure with the name of the job
type JobExecutionError struct {
	Job string
	Err error
}

func (e *JobExecutionError) Error() string {
	return fmt.Sprintf("%s: job %q: %v", ErrJobExecutionFailed, e.Job, e.Err)
}

func (e *JobExecutionError) Is(target error) bool { return target == ErrJobExecutionFailed }

func (e *JobExecutionError) Unwrap() error { return e.Err }
