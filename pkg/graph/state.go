package graph

import (
	"fmt"
	"sync"
	"time"
)

// JobState represents the execution state of a job
type JobState string

const (
	// JobStatePending indicates the job has not started
	JobStatePending JobState = "Pending"

	// JobStateRunning indicates the runner is executing the job
	JobStateRunning JobState = "Running"

	// JobStateDone indicates the job completed successfully
	JobStateDone JobState = "Done"

	// JobStateFailed indicates the runner returned an error for the job
	JobStateFailed JobState = "Failed"
)

// JobStatus contains the execution status of a single job
type JobStatus struct {
	// State is the current state of the job
	State JobState

	// Error contains the error message if State is JobStateFailed
	Error string

	// StartTime is when the runner was invoked
	StartTime *time.Time

	// EndTime is when the job finished, successfully or not
	EndTime *time.Time
}

// ExecutionState tracks the execution state of every job in one run.
// It is safe for concurrent use.
type ExecutionState struct {
	mu sync.RWMutex

	// jobStates maps job name to its current status
	jobStates map[string]*JobStatus

	// completed counts jobs that reached JobStateDone
	completed int

	// startTime is when execution started
	startTime time.Time

	// endTime is when execution completed (or failed)
	endTime *time.Time
}

// NewExecutionState creates a new execution state tracker with every job pending
func NewExecutionState(jobNames []string) *ExecutionState {
	states := make(map[string]*JobStatus, len(jobNames))
	for _, name := range jobNames {
		states[name] = &JobStatus{
			State: JobStatePending,
		}
	}

	return &ExecutionState{
		jobStates: states,
		startTime: time.Now(),
	}
}

// GetState returns the current state of a job
func (es *ExecutionState) GetState(job string) (JobState, error) {
	es.mu.RLock()
	defer es.mu.RUnlock()

	status, found := es.jobStates[job]
	if !found {
		return "", &UnknownJobError{Job: job}
	}
	return status.State, nil
}

// GetStatus returns a copy of the full status of a job
func (es *ExecutionState) GetStatus(job string) (*JobStatus, error) {
	es.mu.RLock()
	defer es.mu.RUnlock()

	status, found := es.jobStates[job]
	if !found {
		return nil, &UnknownJobError{Job: job}
	}

	statusCopy := *status
	return &statusCopy, nil
}

// TryStart moves a pending job to running. It returns false if the job has
// already been started by anyone, so exactly one caller wins per job.
func (es *ExecutionState) TryStart(job string) (bool, error) {
	es.mu.Lock()
	defer es.mu.Unlock()

	status, found := es.jobStates[job]
	if !found {
		return false, &UnknownJobError{Job: job}
	}
	if status.State != JobStatePending {
		return false, nil
	}

	now := time.Now()
	status.State = JobStateRunning
	status.StartTime = &now
	return true, nil
}

// MarkDone records a successful completion and returns the job's 0-based
// completion index
func (es *ExecutionState) MarkDone(job string) (int, error) {
	es.mu.Lock()
	defer es.mu.Unlock()

	status, err := es.transitionLocked(job, JobStateDone)
	if err != nil {
		return 0, err
	}

	now := time.Now()
	status.EndTime = &now
	index := es.completed
	es.completed++
	return index, nil
}

// MarkFailed records a runner failure for a running job
func (es *ExecutionState) MarkFailed(job string, cause error) error {
	es.mu.Lock()
	defer es.mu.Unlock()

	status, err := es.transitionLocked(job, JobStateFailed)
	if err != nil {
		return err
	}

	now := time.Now()
	status.EndTime = &now
	status.Error = cause.Error()
	return nil
}

func (es *ExecutionState) transitionLocked(job string, to JobState) (*JobStatus, error) {
	status, found := es.jobStates[job]
	if !found {
		return nil, &UnknownJobError{Job: job}
	}

	if err := validateStateTransition(status.State, to); err != nil {
		return nil, fmt.Errorf("invalid state transition for job %s: %w", job, err)
	}

	status.State = to
	return status, nil
}

// IsDone reports whether the job has completed successfully
func (es *ExecutionState) IsDone(job string) bool {
	es.mu.RLock()
	defer es.mu.RUnlock()

	status, found := es.jobStates[job]
	return found && status.State == JobStateDone
}

// GetJobsInState returns all job names in a given state
func (es *ExecutionState) GetJobsInState(state JobState) []string {
	es.mu.RLock()
	defer es.mu.RUnlock()

	var jobs []string
	for name, status := range es.jobStates {
		if status.State == state {
			jobs = append(jobs, name)
		}
	}
	return jobs
}

// GetAllStates returns a copy of all job states
func (es *ExecutionState) GetAllStates() map[string]JobState {
	es.mu.RLock()
	defer es.mu.RUnlock()

	states := make(map[string]JobState, len(es.jobStates))
	for name, status := range es.jobStates {
		states[name] = status.State
	}
	return states
}

// IsComplete returns true if every job is done
func (es *ExecutionState) IsComplete() bool {
	es.mu.RLock()
	defer es.mu.RUnlock()

	return es.completed == len(es.jobStates)
}

// HasErrors returns true if any job failed
func (es *ExecutionState) HasErrors() bool {
	es.mu.RLock()
	defer es.mu.RUnlock()

	for _, status := range es.jobStates {
		if status.State == JobStateFailed {
			return true
		}
	}
	return false
}

// MarkComplete records the end of the run
func (es *ExecutionState) MarkComplete() {
	es.mu.Lock()
	defer es.mu.Unlock()

	now := time.Now()
	es.endTime = &now
}

// GetSummary returns a summary of execution state
func (es *ExecutionState) GetSummary() ExecutionSummary {
	es.mu.RLock()
	defer es.mu.RUnlock()

	summary := ExecutionSummary{
		Total:     len(es.jobStates),
		StartTime: es.startTime,
		EndTime:   es.endTime,
	}

	for _, status := range es.jobStates {
		switch status.State {
		case JobStatePending:
			summary.Pending++
		case JobStateRunning:
			summary.Running++
		case JobStateDone:
			summary.Done++
		case JobStateFailed:
			summary.Failed++
		}
	}

	return summary
}

// ExecutionSummary provides a summary of execution state
type ExecutionSummary struct {
	Total     int
	Pending   int
	Running   int
	Done      int
	Failed    int
	StartTime time.Time
	EndTime   *time.Time
}

// validateStateTransition checks if a state transition is valid.
// Pending -> Running happens only through TryStart.
func validateStateTransition(from, to JobState) error {
	validTransitions := map[JobState][]JobState{
		JobStatePending: {},
		JobStateRunning: {
			JobStateDone,
			JobStateFailed,
		},
		// Terminal states: jobs are never retried
		JobStateDone:   {},
		JobStateFailed: {},
	}

	allowed, found := validTransitions[from]
	if !found {
		return fmt.Errorf("unknown state: %s", from)
	}

	for _, allowedState := range allowed {
		if allowedState == to {
			return nil
		}
	}

	return fmt.Errorf("cannot transition from %s to %s", from, to)
}
