package jobloader

import (
	"context"
	"fmt"
	"sort"
	"strings"

	corev1 "k8s.io/api/core/v1"
	"sigs.k8s.io/controller-runtime/pkg/client"
)

// DefaultNamespace is used for ConfigMap references without a namespace when
// the fetcher has none configured
const DefaultNamespace = "default"

// ConfigMapKeys are the data keys looked up, in order, for job definitions
var ConfigMapKeys = []string{"jobs.yaml", "jobs.yml", "jobs.cue", "jobs.hcl"}

// ConfigMapFetcher fetches job definitions from Kubernetes ConfigMaps
type ConfigMapFetcher struct {
	client    client.Client
	namespace string
}

// NewConfigMapFetcher creates a new ConfigMap fetcher. namespace is used for
// references that do not name one.
func NewConfigMapFetcher(k8sClient client.Client, namespace string) *ConfigMapFetcher {
	if namespace == "" {
		namespace = DefaultNamespace
	}
	return &ConfigMapFetcher{
		client:    k8sClient,
		namespace: namespace,
	}
}

// Type returns the fetcher type
func (f *ConfigMapFetcher) Type() string {
	return "configmap"
}

// Fetch retrieves job definitions from a ConfigMap
// ref format: configmap-name or namespace/configmap-name
func (f *ConfigMapFetcher) Fetch(ctx context.Context, ref string) (*FetchResult, error) {
	namespace, name, err := parseConfigMapRef(ref)
	if err != nil {
		return nil, fmt.Errorf("invalid ConfigMap reference: %w", err)
	}
	if namespace == "" {
		namespace = f.namespace
	}

	cm := &corev1.ConfigMap{}
	if err := f.client.Get(ctx, client.ObjectKey{
		Namespace: namespace,
		Name:      name,
	}, cm); err != nil {
		return nil, fmt.Errorf("failed to get ConfigMap %s/%s: %w", namespace, name, err)
	}

	key, content, err := extractJobsFromConfigMap(cm)
	if err != nil {
		return nil, fmt.Errorf("failed to extract job definitions from ConfigMap %s/%s: %w", namespace, name, err)
	}

	// Use resourceVersion as the digest for change detection
	digest := string(cm.UID) + ":" + cm.ResourceVersion

	return &FetchResult{
		Content: []byte(content),
		Digest:  digest,
		Source:  fmt.Sprintf("configmap://%s/%s#%s", namespace, name, key),
		Name:    name,
		Format:  FormatFromPath(key),
	}, nil
}

// parseConfigMapRef parses a ConfigMap reference
// Supports formats:
//   - name (namespace left empty for the caller to default)
//   - namespace/name
func parseConfigMapRef(ref string) (namespace, name string, err error) {
	parts := strings.Split(ref, "/")

	switch {
	case len(parts) == 1 && parts[0] != "":
		return "", parts[0], nil
	case len(parts) == 2 && parts[0] != "" && parts[1] != "":
		return parts[0], parts[1], nil
	default:
		return "", "", fmt.Errorf("expected name or namespace/name, got %q", ref)
	}
}

// extractJobsFromConfigMap picks the data key holding the job definitions.
// It looks for:
// 1. The first of ConfigMapKeys present
// 2. The only data key, if there is exactly one
func extractJobsFromConfigMap(cm *corev1.ConfigMap) (key, content string, err error) {
	if len(cm.Data) == 0 {
		return "", "", fmt.Errorf("ConfigMap has no data")
	}

	for _, key := range ConfigMapKeys {
		if content, ok := cm.Data[key]; ok {
			return key, content, nil
		}
	}

	if len(cm.Data) == 1 {
		for key, content := range cm.Data {
			return key, content, nil
		}
	}

	keys := make([]string, 0, len(cm.Data))
	for key := range cm.Data {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return "", "", fmt.Errorf("no job definition key found among %v, expected one of %v", keys, ConfigMapKeys)
}
