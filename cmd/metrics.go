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
	"context"
	"errors"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	ctrl "sigs.k8s.io/controller-runtime"
	"sigs.k8s.io/controller-runtime/pkg/metrics"
	metricsserver "sigs.k8s.io/controller-runtime/pkg/metrics/server"
)

// withMetrics wraps the command so that the metrics registry is served while it
// runs and written to cfg.MetricsFile once it returns, whether or not it failed
func withMetrics(cfg *Config, cmd *cobra.Command) {
	runE := cmd.RunE
	cmd.RunE = func(cmd *cobra.Command, args []string) (err error) {
		stop, err := startMetricsServer(cmd.Context(), cfg.MetricsAddr)
		if err != nil {
			return err
		}
		defer func() {
			err = errors.Join(err, stop())
			if cfg.MetricsFile != "" {
				if werr := prometheus.WriteToTextfile(cfg.MetricsFile, metrics.Registry); werr != nil {
					err = errors.Join(err, fmt.Errorf("failed to write metrics file: %w", werr))
				}
			}
		}()
		return runE(cmd, args)
	}
}

// startMetricsServer serves metrics.Registry on addr until the returned stop
// function is called. An address of "0" or "" disables the server.
func startMetricsServer(ctx context.Context, addr string) (func() error, error) {
	if addr == "" || addr == "0" {
		return func() error { return nil }, nil
	}

	server, err := metricsserver.NewServer(metricsserver.Options{BindAddress: addr}, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("unable to create metrics server: %w", err)
	}

	ctx, cancel := context.WithCancel(ctx)
	done := make(chan error, 1)
	go func() {
		done <- server.Start(ctx)
	}()
	ctrl.Log.WithName("metrics").V(1).Info("metrics server started", "bindAddress", addr)

	return func() error {
		cancel()
		if err := <-done; err != nil {
			return fmt.Errorf("metrics server: %w", err)
		}
		return nil
	}, nil
}
