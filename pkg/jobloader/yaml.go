package jobloader

import (
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/chazu/jobgraph/pkg/graph"
)

const (
	yamlStrTag  = "!!str"
	yamlNullTag  = "!!null"
	yamlMergeTag = "!!merge"
)

// resolveAlias follows aliases to the anchored node
func resolveAlias(n *yaml.Node) *yaml.Node {
	for n.Kind == yaml.AliasNode && n.Alias != nil {
		n = n.Alias
	}
	return n
}

// decodeYAML walks the node tree rather than unmarshalling into a map so that
// jobs keep the order they were written in
func decodeYAML(content []byte) (*Document, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(content, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}
	if doc.Kind != yaml.DocumentNode || len(doc.Content) == 0 {
		return nil, fmt.Errorf("YAML document is empty")
	}

	root := resolveAlias(doc.Content[0])
	if root.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("line %d: expected a mapping at the top level", root.Line)
	}

	result := &Document{}
	var jobsNode *yaml.Node
	for i := 0; i+1 < len(root.Content); i += 2 {
		key, value := root.Content[i], resolveAlias(root.Content[i+1])
		switch key.Value {
		case "name":
			if value.Kind != yaml.ScalarNode || value.Tag != yamlStrTag {
				return nil, fmt.Errorf("line %d: name must be a string", value.Line)
			}
			result.Name = value.Value
		case "jobs":
			jobsNode = value
		default:
			return nil, fmt.Errorf("line %d: unknown top-level key %q", key.Line, key.Value)
		}
	}

	if jobsNode == nil {
		return nil, fmt.Errorf("missing top-level key \"jobs\"")
	}
	if jobsNode.Tag == yamlNullTag {
		return result, nil
	}
	if jobsNode.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("line %d: jobs must be a mapping of job name to job", jobsNode.Line)
	}

	for i := 0; i+1 < len(jobsNode.Content); i += 2 {
		key, value := resolveAlias(jobsNode.Content[i]), jobsNode.Content[i+1]
		if key.Kind != yaml.ScalarNode || key.Tag != yamlStrTag {
			return nil, fmt.Errorf("line %d: job name must be a string", key.Line)
		}

		deps, err := yamlDependencies(value)
		if err != nil {
			return nil, fmt.Errorf("job %q: %w", key.Value, err)
		}
		result.Jobs = append(result.Jobs, graph.Job{Name: key.Value, Dependencies: deps})
	}

	return result, nil
}

// yamlDependencies reads the dependency list of one job. A null job or a
// missing or null dependencies key means the job has no dependencies.
func yamlDependencies(job *yaml.Node) ([]string, error) {
	job = resolveAlias(job)
	if job.Tag == yamlNullTag {
		return nil, nil
	}
	if job.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("line %d: expected a mapping", job.Line)
	}

	list, err := yamlDependencyNode(job)
	if err != nil {
		return nil, err
	}
	if list == nil {
		return nil, nil
	}
	list = resolveAlias(list)
	if list.Tag == yamlNullTag {
		return nil, nil
	}
	if list.Kind != yaml.SequenceNode {
		return nil, fmt.Errorf("line %d: dependencies must be a list", list.Line)
	}

	deps := make([]string, 0, len(list.Content))
	for _, item := range list.Content {
		item = resolveAlias(item)
		if item.Kind != yaml.ScalarNode || item.Tag != yamlStrTag {
			return nil, fmt.Errorf("line %d: dependency must be a job name", item.Line)
		}
		deps = append(deps, item.Value)
	}
	return deps, nil
}

// yamlDependencyNode returns the dependencies value of a job mapping, or nil.
// A dependencies key written in the job wins over one pulled in with "<<".
func yamlDependencyNode(job *yaml.Node) (*yaml.Node, error) {
	var list, merged *yaml.Node
	for i := 0; i+1 < len(job.Content); i += 2 {
		key, value := resolveAlias(job.Content[i]), job.Content[i+1]
		switch {
		case key.Tag == yamlMergeTag:
			node, err := yamlMergedDependencies(value)
			if err != nil {
				return nil, err
			}
			if merged == nil {
				merged = node
			}
		case key.Value == "dependencies":
			list = value
		default:
			return nil, fmt.Errorf("line %d: unknown key %q", key.Line, key.Value)
		}
	}

	if list != nil {
		return list, nil
	}
	return merged, nil
}

// yamlMergedDependencies reads a "<<" value: one mapping or a list of
// mappings, the first of which to set dependencies wins
func yamlMergedDependencies(value *yaml.Node) (*yaml.Node, error) {
	value = resolveAlias(value)
	switch value.Kind {
	case yaml.MappingNode:
		return yamlDependencyNode(value)
	case yaml.SequenceNode:
		for _, item := range value.Content {
			item = resolveAlias(item)
			if item.Kind != yaml.MappingNode {
				return nil, fmt.Errorf("line %d: merged value must be a mapping", item.Line)
			}
			node, err := yamlDependencyNode(item)
			if err != nil {
				return nil, err
			}
			if node != nil {
				return node, nil
			}
		}
		return nil, nil
	default:
		return nil, fmt.Errorf("line %d: merged value must be a mapping or a list of mappings", value.Line)
	}
}
