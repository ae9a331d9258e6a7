package jobloader

import (
	"context"
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	corev1 "k8s.io/api/core/v1"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/runtime"
	"k8s.io/apimachinery/pkg/types"
	clientgoscheme "k8s.io/client-go/kubernetes/scheme"
	"sigs.k8s.io/controller-runtime/pkg/client"
	"sigs.k8s.io/controller-runtime/pkg/client/fake"

	"github.com/chazu/jobgraph/pkg/graph"
)

const diamondYAML = `
jobs:
  A: {}
  B: {dependencies: [A]}
  C: {dependencies: [A]}
  D: {dependencies: [B, C]}
`

var _ = Describe("Loader", func() {
	var (
		ctx    context.Context
		dir    string
		loader *Loader
	)

	writeFile := func(name, content string) string {
		path := filepath.Join(dir, name)
		Expect(os.WriteFile(path, []byte(content), 0o600)).To(Succeed())
		return path
	}

	BeforeEach(func() {
		ctx = context.Background()
		dir = GinkgoT().TempDir()
		loader = NewLoader(NewFetcherRegistry(nil, ""))
	})

	Context("When loading from a file", func() {
		It("should build the graph in declaration order", func() {
			path := writeFile("diamond.yaml", diamondYAML)

			g, result, err := loader.Load(ctx, "file", path)
			Expect(err).NotTo(HaveOccurred())
			Expect(g.JobNames()).To(Equal([]string{"A", "B", "C", "D"}))
			Expect(g.Name()).To(Equal("diamond"))
			Expect(result.Format).To(Equal(FormatYAML))
			Expect(result.Digest).To(HavePrefix("file:"))
			Expect(graph.Validate(g)).To(Succeed())
		})

		It("should pick the decoder from the extension", func() {
			cuePath := writeFile("pipeline.cue", `
jobs: {
	build: {}
	test: dependencies: ["build"]
}
`)
			hclPath := writeFile("pipeline.hcl", `
job "build" {}
job "test" {
  dependencies = ["build"]
}
`)

			for _, path := range []string{cuePath, hclPath} {
				g, _, err := loader.Load(ctx, "file", path)
				Expect(err).NotTo(HaveOccurred(), path)
				Expect(g.JobNames()).To(Equal([]string{"build", "test"}))
				deps, err := g.DependenciesOf("test")
				Expect(err).NotTo(HaveOccurred())
				Expect(deps).To(Equal([]string{"build"}))
			}
		})

		It("should prefer the name set in the document", func() {
			path := writeFile("file-name.yaml", "name: from-document\njobs:\n  A: {}\n")

			g, _, err := loader.Load(ctx, "file", path)
			Expect(err).NotTo(HaveOccurred())
			Expect(g.Name()).To(Equal("from-document"))
		})

		It("should serve unchanged content from the cache", func() {
			path := writeFile("cached.yaml", diamondYAML)

			first, _, err := loader.Load(ctx, "file", path)
			Expect(err).NotTo(HaveOccurred())
			second, _, err := loader.Load(ctx, "file", path)
			Expect(err).NotTo(HaveOccurred())

			Expect(second).To(BeIdenticalTo(first))
			Expect(loader.Cache().Size()).To(Equal(1))

			By("changing the file content")
			writeFile("cached.yaml", "jobs:\n  only: {}\n")
			third, _, err := loader.Load(ctx, "file", path)
			Expect(err).NotTo(HaveOccurred())
			Expect(third.JobNames()).To(Equal([]string{"only"}))
			Expect(loader.Cache().Size()).To(Equal(2))
		})

		It("should reject a dangling dependency", func() {
			path := writeFile("dangling.yaml", "jobs:\n  A: {dependencies: [ghost]}\n")

			_, result, err := loader.Load(ctx, "file", path)
			Expect(err).To(MatchError(graph.ErrDanglingDependency))
			Expect(result).NotTo(BeNil())
			Expect(loader.Cache().Size()).To(BeZero())
		})

		It("should reject duplicate job names", func() {
			path := writeFile("duplicate.hcl", "job \"A\" {}\njob \"A\" {}\n")

			_, _, err := loader.Load(ctx, "file", path)
			Expect(err).To(MatchError(graph.ErrDuplicateJob))
		})

		It("should load a cyclic graph for validation to reject", func() {
			path := writeFile("cycle.yaml", "jobs:\n  A: {dependencies: [B]}\n  B: {dependencies: [A]}\n")

			g, _, err := loader.Load(ctx, "file", path)
			Expect(err).NotTo(HaveOccurred())
			Expect(graph.Validate(g)).To(MatchError(graph.ErrCycleDetected))
		})

		It("should report a missing file", func() {
			_, result, err := loader.Load(ctx, "file", filepath.Join(dir, "missing.yaml"))
			Expect(err).To(HaveOccurred())
			Expect(err).To(MatchError(ContainSubstring("failed to read job file")))
			Expect(result).To(BeNil())
		})
	})

	Context("When loading inline content", func() {
		It("should default to YAML", func() {
			g, result, err := loader.Load(ctx, "inline", diamondYAML)
			Expect(err).NotTo(HaveOccurred())
			Expect(g.Len()).To(Equal(4))
			Expect(g.Name()).To(Equal("inline"))
			Expect(result.Source).To(Equal("inline"))
		})

		It("should honour a format prefix", func() {
			g, result, err := loader.Load(ctx, "inline", `cue:jobs: {a: {}, b: dependencies: ["a"]}`)
			Expect(err).NotTo(HaveOccurred())
			Expect(result.Format).To(Equal(FormatCUE))
			Expect(g.JobNames()).To(Equal([]string{"a", "b"}))
		})

		It("should reject empty content", func() {
			_, _, err := loader.Load(ctx, "inline", "   ")
			Expect(err).To(MatchError(ContainSubstring("empty")))
		})
	})

	It("should reject an unknown source type", func() {
		_, _, err := loader.Load(ctx, "oci", "ghcr.io/example/jobs:latest")
		Expect(err).To(MatchError(ContainSubstring("unsupported source type: oci")))
	})

	It("should not offer ConfigMaps without a client", func() {
		Expect(NewFetcherRegistry(nil, "").Types()).To(Equal([]string{"file", "inline"}))
	})
})

var _ = Describe("ConfigMapFetcher", func() {
	var (
		ctx       context.Context
		k8sClient client.Client
		fetcher   *ConfigMapFetcher
	)

	newConfigMap := func(namespace, name string, data map[string]string) *corev1.ConfigMap {
		return &corev1.ConfigMap{
			ObjectMeta: metav1.ObjectMeta{
				Name:      name,
				Namespace: namespace,
				UID:       types.UID(namespace + "-" + name + "-uid"),
			},
			Data: data,
		}
	}

	BeforeEach(func() {
		ctx = context.Background()

		scheme := runtime.NewScheme()
		Expect(clientgoscheme.AddToScheme(scheme)).To(Succeed())

		k8sClient = fake.NewClientBuilder().
			WithScheme(scheme).
			WithObjects(
				newConfigMap("default", "diamond", map[string]string{"jobs.yaml": diamondYAML}),
				newConfigMap("batch", "nightly", map[string]string{
					"README":   "not jobs",
					"jobs.hcl": "job \"fetch\" {}\njob \"report\" {\n  dependencies = [\"fetch\"]\n}\n",
				}),
				newConfigMap("batch", "single", map[string]string{"pipeline.cue": `jobs: solo: {}`}),
				newConfigMap("batch", "ambiguous", map[string]string{"a.txt": "x", "b.txt": "y"}),
				newConfigMap("batch", "empty", nil),
			).
			Build()
		fetcher = NewConfigMapFetcher(k8sClient, "")
	})

	It("should fetch from the default namespace", func() {
		result, err := fetcher.Fetch(ctx, "diamond")
		Expect(err).NotTo(HaveOccurred())
		Expect(result.Source).To(Equal("configmap://default/diamond#jobs.yaml"))
		Expect(result.Format).To(Equal(FormatYAML))
		Expect(result.Name).To(Equal("diamond"))
		Expect(result.Digest).To(HavePrefix("default-diamond-uid:"))
	})

	It("should prefer the well-known keys", func() {
		result, err := fetcher.Fetch(ctx, "batch/nightly")
		Expect(err).NotTo(HaveOccurred())
		Expect(result.Format).To(Equal(FormatHCL))
		Expect(string(result.Content)).To(ContainSubstring(`job "fetch"`))
	})

	It("should fall back to a single data key", func() {
		result, err := fetcher.Fetch(ctx, "batch/single")
		Expect(err).NotTo(HaveOccurred())
		Expect(result.Format).To(Equal(FormatCUE))
	})

	It("should refuse to guess between several keys", func() {
		_, err := fetcher.Fetch(ctx, "batch/ambiguous")
		Expect(err).To(MatchError(ContainSubstring("no job definition key found")))
	})

	It("should report a ConfigMap without data", func() {
		_, err := fetcher.Fetch(ctx, "batch/empty")
		Expect(err).To(MatchError(ContainSubstring("no data")))
	})

	It("should surface NotFound", func() {
		_, err := fetcher.Fetch(ctx, "batch/missing")
		Expect(err).To(HaveOccurred())
		Expect(apierrors.IsNotFound(err)).To(BeTrue())
	})

	It("should use the configured namespace", func() {
		result, err := NewConfigMapFetcher(k8sClient, "batch").Fetch(ctx, "single")
		Expect(err).NotTo(HaveOccurred())
		Expect(result.Source).To(HavePrefix("configmap://batch/single"))
	})

	It("should load through the registry", func() {
		loader := NewLoader(NewFetcherRegistry(k8sClient, "batch"))

		g, _, err := loader.Load(ctx, "configmap", "nightly")
		Expect(err).NotTo(HaveOccurred())
		Expect(g.Name()).To(Equal("nightly"))
		Expect(g.JobNames()).To(Equal([]string{"fetch", "report"}))
		Expect(graph.Validate(g)).To(Succeed())
	})
})
