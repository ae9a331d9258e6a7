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

package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/chazu/jobgraph/pkg/graph"
	"github.com/chazu/jobgraph/pkg/runner"
)

// loadFunc fetches and decodes the graph named by ref
type loadFunc func(cmd *cobra.Command, ref string) (*graph.Graph, error)

// loadValid loads the graph and fails unless it passes validation
func loadValid(cmd *cobra.Command, load loadFunc, ref string) (*graph.Graph, error) {
	g, err := load(cmd, ref)
	if err != nil {
		return nil, err
	}
	if err := graph.Verify(cmd.Context(), g); err != nil {
		return nil, err
	}
	return g, nil
}

func newValidateCommand(load loadFunc) *cobra.Command {
	return &cobra.Command{
		Use:   "validate <ref>",
		Short: "Check that the job definitions form a valid DAG",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := loadValid(cmd, load, args[0]); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "DAG is valid")
			return nil
		},
	}
}

// stdoutSink prints one line per completed job
type stdoutSink struct {
	out io.Writer
}

func (s stdoutSink) Emit(event graph.CompletionEvent) {
	fmt.Fprintf(s.out, "Job done: %s\n", event.Job)
}

func newRunCommand(cfg *Config, load loadFunc) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run <ref>",
		Short: "Validate the job definitions, then run every job in dependency order",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if cfg.Concurrency < 1 {
				return fmt.Errorf("--concurrency must be at least 1, got %d", cfg.Concurrency)
			}

			g, err := load(cmd, args[0])
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()

			executor := graph.NewExecutor(
				runner.NewLogRunner(cfg.JobDelay),
				stdoutSink{out: out},
				graph.ExecutorConfig{
					MaxConcurrency: cfg.Concurrency,
					OnValid:        func(*graph.Graph) { fmt.Fprintln(out, "DAG is valid") },
				},
			)
			if _, err := executor.Execute(cmd.Context(), g); err != nil {
				return err
			}

			fmt.Fprintln(out, "All jobs done")
			return nil
		},
	}

	cmd.Flags().IntVarP(&cfg.Concurrency, "concurrency", "c", 1,
		"Maximum number of jobs to run at once. 1 runs jobs one at a time in depth-first order.")
	cmd.Flags().DurationVar(&cfg.JobDelay, "job-delay", 0,
		"Simulated time each job takes to complete.")
	return cmd
}

func newPlanCommand(load loadFunc) *cobra.Command {
	return &cobra.Command{
		Use:   "plan <ref>",
		Short: "Print the order in which run would execute the jobs",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			g, err := loadValid(cmd, load, args[0])
			if err != nil {
				return err
			}
			order, err := graph.Plan(g)
			if err != nil {
				return err
			}
			for _, job := range order {
				fmt.Fprintln(cmd.OutOrStdout(), job)
			}
			return nil
		},
	}
}

func newGraphCommand(load loadFunc) *cobra.Command {
	return &cobra.Command{
		Use:   "graph <ref>",
		Short: "Print the job graph in Graphviz DOT format",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			g, err := load(cmd, args[0])
			if err != nil {
				return err
			}
			return graph.WriteDOT(g, cmd.OutOrStdout())
		},
	}
}
