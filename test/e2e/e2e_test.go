//go:build e2e
// +build e2e

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

package e2e

import (
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/onsi/gomega/gbytes"
	"github.com/onsi/gomega/gexec"
)

const (
	timeout  = time.Second * 30
	interval = time.Millisecond * 250
)

var _ = Describe("jobgraph", func() {
	// run starts the binary and returns the session without waiting for it
	run := func(args ...string) *gexec.Session {
		cmd := exec.Command(binaryPath, args...)
		session, err := gexec.Start(cmd, GinkgoWriter, GinkgoWriter)
		Expect(err).NotTo(HaveOccurred(), "Failed to start jobgraph")
		return session
	}

	testdata := func(name string) string {
		path, err := filepath.Abs(filepath.Join("testdata", name))
		Expect(err).NotTo(HaveOccurred())
		return path
	}

	Context("validate", func() {
		It("should accept a diamond", func() {
			session := run("validate", testdata("diamond.yaml"))
			Eventually(session, timeout, interval).Should(gexec.Exit(0))
			Expect(session.Out).To(gbytes.Say("DAG is valid"))
		})

		It("should reject a cycle", func() {
			session := run("validate", testdata("cycle.yaml"))
			Eventually(session, timeout, interval).Should(gexec.Exit(1))
			Expect(session.Err).To(gbytes.Say("DAG contains a cycle"))
			Expect(session.Out.Contents()).To(BeEmpty())
		})

		It("should reject disjoint job groups", func() {
			session := run("validate", testdata("disjoint.yaml"))
			Eventually(session, timeout, interval).Should(gexec.Exit(1))
			Expect(session.Err).To(gbytes.Say("exactly one connectivity component"))
		})

		It("should reject a dangling dependency from inline input", func() {
			session := run("--source", "inline", "validate", "jobs:\n  A: {dependencies: [ghost]}\n")
			Eventually(session, timeout, interval).Should(gexec.Exit(1))
			Expect(session.Err).To(gbytes.Say("ghost"))
		})

		It("should report a missing file", func() {
			session := run("validate", filepath.Join(os.TempDir(), "jobgraph-does-not-exist.yaml"))
			Eventually(session, timeout, interval).Should(gexec.Exit(1))
			Expect(session.Err).To(gbytes.Say("failed to read job file"))
		})
	})

	Context("run", func() {
		It("should run the diamond in dependency order", func() {
			session := run("run", testdata("diamond.yaml"))
			Eventually(session, timeout, interval).Should(gexec.Exit(0))

			Expect(session.Out).To(gbytes.Say("DAG is valid"))
			Expect(session.Out).To(gbytes.Say("Job done: A"))
			Expect(session.Out).To(gbytes.Say("Job done: B"))
			Expect(session.Out).To(gbytes.Say("Job done: C"))
			Expect(session.Out).To(gbytes.Say("Job done: D"))
			Expect(session.Out).To(gbytes.Say("All jobs done"))
		})

		It("should run every job once with concurrency", func() {
			for _, file := range []string{"pipeline.cue", "pipeline.hcl"} {
				By("running " + file)
				session := run("run", "--concurrency", "4", "--job-delay", "50ms", testdata(file))
				Eventually(session, timeout, interval).Should(gexec.Exit(0))

				out := string(session.Out.Contents())
				for _, job := range []string{"checkout", "build", "unit", "integration", "publish"} {
					Expect(strings.Count(out, "Job done: "+job+"\n")).To(Equal(1), job)
				}
				Expect(strings.Index(out, "Job done: checkout")).To(BeNumerically("<", strings.Index(out, "Job done: build")))
				Expect(strings.Index(out, "Job done: publish")).To(BeNumerically(">", strings.Index(out, "Job done: unit")))
				Expect(strings.Index(out, "Job done: publish")).To(BeNumerically(">", strings.Index(out, "Job done: integration")))
				Expect(out).To(HaveSuffix("All jobs done\n"))
			}
		})

		It("should not run any job of an invalid graph", func() {
			session := run("run", testdata("cycle.yaml"))
			Eventually(session, timeout, interval).Should(gexec.Exit(1))
			Expect(session.Out).NotTo(gbytes.Say("Job done"))
		})

		It("should stop when interrupted", func() {
			session := run("run", "--job-delay", "1m", testdata("diamond.yaml"))
			Eventually(session.Out, timeout, interval).Should(gbytes.Say("DAG is valid"))

			session.Interrupt()
			Eventually(session, timeout, interval).Should(gexec.Exit(1))
			Expect(session.Out).NotTo(gbytes.Say("All jobs done"))
		})
	})

	Context("plan and graph", func() {
		It("should print the sequential order", func() {
			session := run("plan", testdata("pipeline.hcl"))
			Eventually(session, timeout, interval).Should(gexec.Exit(0))
			Expect(string(session.Out.Contents())).To(Equal("checkout\nbuild\nunit\nintegration\npublish\n"))
		})

		It("should print DOT", func() {
			session := run("graph", testdata("diamond.yaml"))
			Eventually(session, timeout, interval).Should(gexec.Exit(0))
			Expect(session.Out).To(gbytes.Say("digraph"))
			Expect(string(session.Out.Contents())).To(ContainSubstring(`"A" -> "B"`))
		})
	})
})
