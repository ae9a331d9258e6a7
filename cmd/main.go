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
	"flag"
	"fmt"
	"os"
	"time"

	// Import all Kubernetes client auth plugins (e.g. Azure, GCP, OIDC, etc.)
	// to ensure that the configmap source can make use of them.
	_ "k8s.io/client-go/plugin/pkg/client/auth"

	"github.com/spf13/cobra"
	"k8s.io/apimachinery/pkg/runtime"
	utilruntime "k8s.io/apimachinery/pkg/util/runtime"
	clientgoscheme "k8s.io/client-go/kubernetes/scheme"
	ctrl "sigs.k8s.io/controller-runtime"
	"sigs.k8s.io/controller-runtime/pkg/client"
	"sigs.k8s.io/controller-runtime/pkg/log/zap"

	"github.com/chazu/jobgraph/pkg/graph"
	"github.com/chazu/jobgraph/pkg/jobloader"
)

var (
	scheme   = runtime.NewScheme()
	setupLog = ctrl.Log.WithName("setup")
)

// Config holds the command-line configuration
type Config struct {
	Source      string
	Namespace   string
	Concurrency int
	JobDelay    time.Duration
	MetricsAddr string
	MetricsFile string
}

func init() {
	utilruntime.Must(clientgoscheme.AddToScheme(scheme))
}

// newRootCommand builds the jobgraph command tree. newClient is only called
// for the configmap source.
func newRootCommand(newClient func() (client.Client, error)) *cobra.Command {
	cfg := &Config{}
	opts := zap.Options{Development: true}

	root := &cobra.Command{
		Use:   "jobgraph",
		Short: "Validate and run job dependency graphs",
		Long: `jobgraph checks that a set of named jobs and their dependencies forms a
single connected DAG with a start and an end job, then runs every job exactly
once after all of its dependencies.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			ctrl.SetLogger(zap.New(zap.UseFlagOptions(&opts), zap.WriteTo(cmd.ErrOrStderr())))
		},
	}

	zapFlags := flag.NewFlagSet("zap", flag.ContinueOnError)
	opts.BindFlags(zapFlags)
	root.PersistentFlags().AddGoFlagSet(zapFlags)

	root.PersistentFlags().StringVarP(&cfg.Source, "source", "s", "file",
		"Where job definitions come from: file, inline or configmap.")
	root.PersistentFlags().StringVarP(&cfg.Namespace, "namespace", "n", jobloader.DefaultNamespace,
		"Namespace for configmap references without one.")
	root.PersistentFlags().StringVar(&cfg.MetricsAddr, "metrics-bind-address", "0",
		"The address the metrics endpoint binds to while a command runs, e.g. :8080. Leave as 0 to disable it.")
	root.PersistentFlags().StringVar(&cfg.MetricsFile, "metrics-file", "",
		"If set, write the metrics in Prometheus text format to this file when the command finishes.")

	load := func(cmd *cobra.Command, ref string) (*graph.Graph, error) {
		var k8sClient client.Client
		if cfg.Source == "configmap" {
			c, err := newClient()
			if err != nil {
				return nil, fmt.Errorf("unable to create Kubernetes client: %w", err)
			}
			k8sClient = c
		}

		loader := jobloader.NewLoader(jobloader.NewFetcherRegistry(k8sClient, cfg.Namespace))
		g, _, err := loader.Load(cmd.Context(), cfg.Source, ref)
		return g, err
	}

	root.AddCommand(
		newValidateCommand(load),
		newRunCommand(cfg, load),
		newPlanCommand(load),
		newGraphCommand(load),
	)
	for _, sub := range root.Commands() {
		withMetrics(cfg, sub)
	}
	return root
}

// newKubeClient creates a client from the kubeconfig or in-cluster config
func newKubeClient() (client.Client, error) {
	restConfig, err := ctrl.GetConfig()
	if err != nil {
		return nil, err
	}
	setupLog.V(1).Info("connecting to cluster", "host", restConfig.Host)
	return client.New(restConfig, client.Options{Scheme: scheme})
}

func main() {
	root := newRootCommand(newKubeClient)

	// Surfaces --kubeconfig, registered by controller-runtime on the default flag set
	root.PersistentFlags().AddGoFlagSet(flag.CommandLine)

	if err := root.ExecuteContext(ctrl.SetupSignalHandler()); err != nil {
		fmt.Fprintln(root.ErrOrStderr(), "Error:", err)
		os.Exit(1)
	}
}
