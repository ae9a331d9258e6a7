package graph

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/sourcegraph/conc/pool"
	"sigs.k8s.io/controller-runtime/pkg/log"

	"github.com/chazu/jobgraph/pkg/metrics"
)

// Runner performs the work of a single job
type Runner interface {
	// Run executes the named job. A non-nil error fails the job and stops the run.
	Run(ctx context.Context, job string) error
}

// RunnerFunc adapts a function to a Runner
type RunnerFunc func(ctx context.Context, job string) error

// Run calls f(ctx, job)
func (f RunnerFunc) Run(ctx context.Context, job string) error {
	return f(ctx, job)
}

// ExecutorConfig contains configuration for the executor
type ExecutorConfig struct {
	// MaxConcurrency is the maximum number of jobs to run at once.
	// Values below 2 run jobs one at a time in depth-first dependency order.
	// Default: 1
	MaxConcurrency int

	// OnValid is called by Execute after the graph passes validation and
	// before any job starts. Optional.
	OnValid func(g *Graph)
}

// DefaultExecutorConfig returns the default executor configuration
func DefaultExecutorConfig() ExecutorConfig {
	return ExecutorConfig{
		MaxConcurrency: 1,
	}
}

// Executor runs every job of a graph exactly once, after all of its dependencies
type Executor struct {
	config ExecutorConfig
	runner Runner
	sink   EventSink
}

// NewExecutor creates a new executor. A nil sink discards completion events.
func NewExecutor(runner Runner, sink EventSink, config ExecutorConfig) *Executor {
	if sink == nil {
		sink = discardSink{}
	}
	return &Executor{
		config: config,
		runner: runner,
		sink:   sink,
	}
}

// Execute validates the graph and, only if it is valid, runs it.
// Validation failures are returned as is and no job is started.
func (e *Executor) Execute(ctx context.Context, g *Graph) (*ExecutionState, error) {
	if err := Verify(ctx, g); err != nil {
		return nil, err
	}

	if e.config.OnValid != nil {
		e.config.OnValid(g)
	}
	return e.Run(ctx, g)
}

// Run executes the graph without validating it first. Execution stops at the
// first failed job; jobs that already completed are left as they are.
func (e *Executor) Run(ctx context.Context, g *Graph) (*ExecutionState, error) {
	if g == nil {
		return nil, fmt.Errorf("%w: graph cannot be nil", ErrInvalidGraph)
	}
	if e.runner == nil {
		return nil, fmt.Errorf("%w: runner cannot be nil", ErrInvalidRunner)
	}

	logger := log.FromContext(ctx).WithValues("graph", g.Name())
	ctx = log.IntoContext(ctx, logger)

	r := &run{
		executor: e,
		graph:    g,
		state:    NewExecutionState(g.JobNames()),
		record:   true,
	}
	metrics.SetGraphJobs(g.Name(), g.Len())

	start := time.Now()
	var err error
	if e.config.MaxConcurrency > 1 {
		err = r.runConcurrent(ctx, e.config.MaxConcurrency)
	} else {
		err = r.runSequential(ctx)
	}
	r.state.MarkComplete()

	summary := r.state.GetSummary()
	if err != nil {
		metrics.RecordExecution("failure", time.Since(start).Seconds())
		logger.Error(err, "execution stopped",
			"done", summary.Done, "failed", summary.Failed, "pending", summary.Pending)
		return r.state, err
	}

	metrics.RecordExecution("success", time.Since(start).Seconds())
	logger.Info("All jobs done", "jobs", summary.Done, "duration", time.Since(start))
	return r.state, nil
}

// Plan returns the order in which a sequential run would execute the jobs,
// without running anything
func Plan(g *Graph) ([]string, error) {
	if g == nil {
		return nil, fmt.Errorf("%w: graph cannot be nil", ErrInvalidGraph)
	}

	recorder := NewRecorder()
	r := &run{
		executor: NewExecutor(RunnerFunc(func(context.Context, string) error { return nil }), recorder, DefaultExecutorConfig()),
		graph:    g,
		state:    NewExecutionState(g.JobNames()),
	}
	if err := r.runSequential(context.Background()); err != nil {
		return nil, err
	}
	return recorder.Order(), nil
}

// run holds the state of one execution of a graph
type run struct {
	executor *Executor
	graph    *Graph
	state    *ExecutionState

	// record enables metrics and logging per job
	record bool

	// emitMu serializes completion bookkeeping so events arrive in index order
	emitMu sync.Mutex
}

// runSequential executes each job's dependency closure depth-first, taking
// roots in declaration order. An explicit stack replaces recursion so long
// dependency chains cannot exhaust the goroutine stack.
func (r *run) runSequential(ctx context.Context) error {
	onStack := make(map[string]bool)

	for _, root := range r.graph.order {
		if r.state.IsDone(root) {
			continue
		}

		onStack[root] = true
		stack := []frame{{job: root}}

		for len(stack) > 0 {
			top := &stack[len(stack)-1]
			deps, ok := r.graph.deps(top.job)
			if !ok {
				return &UnknownJobError{Job: top.job}
			}

			if top.next < len(deps) {
				dep := deps[top.next]
				top.next++

				if _, ok := r.graph.deps(dep); !ok {
					return &UnknownJobError{Job: dep}
				}
				if r.state.IsDone(dep) {
					continue
				}
				if onStack[dep] {
					return &CycleError{Job: dep, Path: cyclePath(stack, dep)}
				}

				onStack[dep] = true
				stack = append(stack, frame{job: dep})
				continue
			}

			job := top.job
			stack = stack[:len(stack)-1]
			delete(onStack, job)

			if err := r.runJob(ctx, job); err != nil {
				return err
			}
		}
	}

	return nil
}

type jobResult struct {
	job string
	err error
}

// runConcurrent dispatches jobs whose dependencies have all completed to a
// bounded pool. Only the dispatcher touches the dependency counters, and a job
// is dispatched by the completion that brings its counter to zero.
func (r *run) runConcurrent(ctx context.Context, maxConcurrency int) error {
	remaining := make(map[string]int, r.graph.Len())
	dependents := make(map[string][]string, r.graph.Len())
	var ready []string

	for _, id := range r.graph.order {
		deps, _ := r.graph.deps(id)
		remaining[id] = len(deps)
		for _, dep := range deps {
			if _, ok := r.graph.deps(dep); !ok {
				return &UnknownJobError{Job: dep}
			}
			dependents[dep] = append(dependents[dep], id)
		}
		if len(deps) == 0 {
			ready = append(ready, id)
		}
	}

	p := pool.New().
		WithMaxGoroutines(maxConcurrency).
		WithContext(ctx).
		WithCancelOnError().
		WithFirstError()

	// Every job reports at most once, so workers never block on send
	results := make(chan jobResult, r.graph.Len())
	inFlight := 0
	dispatch := func(job string) {
		inFlight++
		p.Go(func(ctx context.Context) error {
			err := r.runJob(ctx, job)
			results <- jobResult{job: job, err: err}
			return err
		})
	}

	for _, job := range ready {
		dispatch(job)
	}

	var firstErr error
	for inFlight > 0 {
		res := <-results
		inFlight--

		if res.err != nil {
			if firstErr == nil {
				firstErr = res.err
			}
			continue
		}
		if firstErr != nil {
			continue
		}

		for _, dependent := range dependents[res.job] {
			remaining[dependent]--
			if remaining[dependent] == 0 {
				dispatch(dependent)
			}
		}
	}

	if err := p.Wait(); err != nil && firstErr == nil {
		firstErr = err
	}
	if firstErr != nil {
		return firstErr
	}

	if !r.state.IsComplete() {
		// Jobs left pending can only be waiting on each other
		if err := CheckAcyclic(r.graph); err != nil {
			return err
		}
		return fmt.Errorf("%w: %d jobs never became ready", ErrInvalidGraph, len(r.state.GetJobsInState(JobStatePending)))
	}

	return nil
}

// runJob invokes the runner for one job unless it has already been started
func (r *run) runJob(ctx context.Context, job string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	started, err := r.state.TryStart(job)
	if err != nil {
		return err
	}
	if !started {
		return nil
	}

	logger := log.FromContext(ctx).WithValues("job", job)
	if r.record {
		logger.V(1).Info("starting job")
	}

	begin := time.Now()
	runErr := r.executor.runner.Run(ctx, job)
	duration := time.Since(begin)

	if runErr != nil {
		if err := r.state.MarkFailed(job, runErr); err != nil {
			return errors.Join(&JobExecutionError{Job: job, Err: runErr}, err)
		}
		if r.record {
			metrics.RecordJob("failure", duration.Seconds())
			logger.Error(runErr, "job failed", "duration", duration)
		}
		return &JobExecutionError{Job: job, Err: runErr}
	}

	r.emitMu.Lock()
	defer r.emitMu.Unlock()

	index, err := r.state.MarkDone(job)
	if err != nil {
		return err
	}
	if r.record {
		metrics.RecordJob("success", duration.Seconds())
		logger.V(1).Info("job done", "index", index, "duration", duration)
	}

	r.executor.sink.Emit(CompletionEvent{
		Job:      job,
		Index:    index,
		Time:     time.Now(),
		Duration: duration,
	})
	return nil
}
