package runner

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-logr/logr/funcr"
	"sigs.k8s.io/controller-runtime/pkg/log"

	"github.com/chazu/jobgraph/pkg/graph"
)

// captureLogs returns a context whose logger appends every line to the returned slice
func captureLogs() (context.Context, func() []string) {
	var mu sync.Mutex
	var lines []string
	logger := funcr.New(func(prefix, args string) {
		mu.Lock()
		defer mu.Unlock()
		lines = append(lines, args)
	}, funcr.Options{})

	get := func() []string {
		mu.Lock()
		defer mu.Unlock()
		return append([]string(nil), lines...)
	}
	return log.IntoContext(context.Background(), logger), get
}

func TestLogRunner_LogsJob(t *testing.T) {
	ctx, lines := captureLogs()

	if err := NewLogRunner(0).Run(ctx, "build"); err != nil {
		t.Fatalf("Run() failed: %v", err)
	}

	got := lines()
	if len(got) != 1 {
		t.Fatalf("expected 1 log line, got %v", got)
	}
	if !strings.Contains(got[0], `"msg"="Job done"`) || !strings.Contains(got[0], `"job"="build"`) {
		t.Errorf("unexpected log line: %s", got[0])
	}
}

func TestLogRunner_Delay(t *testing.T) {
	r := NewLogRunner(30 * time.Millisecond)

	start := time.Now()
	if err := r.Run(context.Background(), "slow"); err != nil {
		t.Fatalf("Run() failed: %v", err)
	}
	if elapsed := time.Since(start); elapsed < 30*time.Millisecond {
		t.Errorf("Run() returned after %v, want at least 30ms", elapsed)
	}
}

func TestLogRunner_CancelledDuringDelay(t *testing.T) {
	ctx, lines := captureLogs()
	ctx, cancel := context.WithCancel(ctx)

	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()

	start := time.Now()
	err := NewLogRunner(time.Minute).Run(ctx, "never")
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("Run() error = %v, want context.Canceled", err)
	}
	if time.Since(start) > 5*time.Second {
		t.Error("Run() did not return promptly after cancellation")
	}
	if len(lines()) != 0 {
		t.Errorf("cancelled job must not be logged as done: %v", lines())
	}
}

func TestLogRunner_DrivesExecutor(t *testing.T) {
	ctx, lines := captureLogs()

	g, err := graph.NewGraph("diamond", []graph.Job{
		{Name: "A"},
		{Name: "B", Dependencies: []string{"A"}},
		{Name: "C", Dependencies: []string{"A"}},
		{Name: "D", Dependencies: []string{"B", "C"}},
	})
	if err != nil {
		t.Fatalf("NewGraph() failed: %v", err)
	}

	recorder := graph.NewRecorder()
	if _, err := graph.NewExecutor(NewLogRunner(0), recorder, graph.DefaultExecutorConfig()).Execute(ctx, g); err != nil {
		t.Fatalf("Execute() failed: %v", err)
	}

	done := 0
	for _, line := range lines() {
		if strings.Contains(line, `"msg"="Job done"`) {
			done++
		}
	}
	if done != 4 {
		t.Errorf("expected 4 job done lines, got %d: %v", done, lines())
	}
	if order := recorder.Order(); order[0] != "A" || order[3] != "D" {
		t.Errorf("order = %v, want A first and D last", order)
	}
}
