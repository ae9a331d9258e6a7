// Package graph provides the job dependency graph, its structural validation
// and the dependency-ordered executor. A Graph is built once from loader
// output, checked with Validate, and then driven through an Executor which
// invokes a caller-supplied Runner exactly once per job.
package graph
