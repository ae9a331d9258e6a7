/*
Copyright 2025.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"sigs.k8s.io/controller-runtime/pkg/metrics"
)

var (
	// Validation metrics
	validationTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "jobgraph_validation_total",
		Help: "Total number of graph validations by result",
	}, []string{"result"})

	validationDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "jobgraph_validation_duration_seconds",
		Help:    "Duration of graph validations",
		Buckets: prometheus.ExponentialBuckets(0.0001, 2, 12), // 100us to ~200ms
	})

	// Execution metrics
	graphJobs = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "jobgraph_graph_jobs",
		Help: "Number of jobs in the graph being executed",
	}, []string{"graph"})

	executionDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "jobgraph_execution_duration_seconds",
		Help:    "Duration of graph executions",
		Buckets: prometheus.ExponentialBuckets(0.01, 2, 14), // 10ms to ~80s
	}, []string{"result"})

	jobsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "jobgraph_jobs_total",
		Help: "Total number of job executions by result",
	}, []string{"result"})

	jobDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "jobgraph_job_duration_seconds",
		Help:    "Duration of individual job executions",
		Buckets: prometheus.ExponentialBuckets(0.001, 2, 14), // 1ms to ~8s
	}, []string{"result"})
)

func init() {
	// Register with controller-runtime's registry
	metrics.Registry.MustRegister(
		validationTotal,
		validationDuration,
		graphJobs,
		executionDuration,
		jobsTotal,
		jobDuration,
	)
}

// RecordValidation records a graph validation
// result: "valid", "cycle", "components", "entry_exit" or "invalid"
func RecordValidation(result string, durationSeconds float64) {
	validationTotal.WithLabelValues(result).Inc()
	validationDuration.Observe(durationSeconds)
}

// SetGraphJobs sets the number of jobs in the graph being executed
func SetGraphJobs(graph string, count int) {
	graphJobs.WithLabelValues(graph).Set(float64(count))
}

// RecordExecution records a whole-graph execution
// result: "success" or "failure"
func RecordExecution(result string, durationSeconds float64) {
	executionDuration.WithLabelValues(result).Observe(durationSeconds)
}

// RecordJob records a single job execution. Job names stay out of the labels;
// per-job detail is in the logs.
// result: "success" or "failure"
func RecordJob(result string, durationSeconds float64) {
	jobsTotal.WithLabelValues(result).Inc()
	jobDuration.WithLabelValues(result).Observe(durationSeconds)
}
