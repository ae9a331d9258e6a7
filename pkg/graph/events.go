package graph

import (
	"sync"
	"time"
)

// CompletionEvent is emitted once for every job that completes successfully
type CompletionEvent struct {
	// Job is the name of the completed job
	Job string

	// Index is the 0-based position of this completion within the run
	Index int

	// Time is when the job completed
	Time time.Time

	// Duration is how long the runner took for the job
	Duration time.Duration
}

// EventSink receives completion events. The executor never calls Emit
// concurrently and delivers events in Index order.
type EventSink interface {
	Emit(event CompletionEvent)
}

// EventSinkFunc adapts a function to an EventSink
type EventSinkFunc func(event CompletionEvent)

// Emit calls f(event)
func (f EventSinkFunc) Emit(event CompletionEvent) {
	f(event)
}

type discardSink struct{}

func (discardSink) Emit(CompletionEvent) {}

// Recorder is an EventSink that keeps every event in memory
type Recorder struct {
	mu     sync.Mutex
	events []CompletionEvent
}

// NewRecorder creates an empty recorder
func NewRecorder() *Recorder {
	return &Recorder{}
}

// Emit appends the event
func (r *Recorder) Emit(event CompletionEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
}

// Events returns a copy of the recorded events
func (r *Recorder) Events() []CompletionEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	result := make([]CompletionEvent, len(r.events))
	copy(result, r.events)
	return result
}

// Order returns the job names in completion order
func (r *Recorder) Order() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	order := make([]string, 0, len(r.events))
	for _, ev := range r.events {
		order = append(order, ev.Job)
	}
	return order
}
