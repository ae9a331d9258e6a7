package jobloader

import (
	"fmt"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/zclconf/go-cty/cty"

	"github.com/chazu/jobgraph/pkg/graph"
)

// hclJobFile represents the top-level structure of an HCL job file for decoding
type hclJobFile struct {
	Name *string   `hcl:"name,optional"`
	Jobs []*hclJob `hcl:"job,block"`
}

// hclJob is one job block. Dependencies stays an expression so a missing
// attribute and an explicit null can both be read as "no dependencies".
type hclJob struct {
	Name         string         `hcl:"name,label"`
	Dependencies hcl.Expression `hcl:"dependencies,optional"`
}

func decodeHCL(filename string, content []byte) (*Document, error) {
	parser := hclparse.NewParser()
	file, diags := parser.ParseHCL(content, filename)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to parse HCL file %s: %w", filename, diags)
	}

	var parsed hclJobFile
	diags = gohcl.DecodeBody(file.Body, nil, &parsed)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to decode HCL file %s: %w", filename, diags)
	}

	result := &Document{}
	if parsed.Name != nil {
		result.Name = *parsed.Name
	}

	for _, job := range parsed.Jobs {
		deps, diags := hclDependencies(job.Dependencies)
		if diags.HasErrors() {
			return nil, fmt.Errorf("job %q in %s: %w", job.Name, filename, diags)
		}
		result.Jobs = append(result.Jobs, graph.Job{Name: job.Name, Dependencies: deps})
	}

	return result, nil
}

// hclDependencies evaluates the dependencies expression without variables and
// requires a list of strings
func hclDependencies(expr hcl.Expression) ([]string, hcl.Diagnostics) {
	if expr == nil {
		return nil, nil
	}

	value, diags := expr.Value(nil)
	if diags.HasErrors() {
		return nil, diags
	}
	if value.IsNull() {
		return nil, nil
	}

	invalid := &hcl.Diagnostic{
		Severity: hcl.DiagError,
		Summary:  "Invalid dependencies value",
		Detail:   "The 'dependencies' attribute must be a list of job names.",
		Subject:  expr.Range().Ptr(),
	}

	ty := value.Type()
	if !ty.IsTupleType() && !ty.IsListType() {
		return nil, hcl.Diagnostics{invalid}
	}

	deps := make([]string, 0, value.LengthInt())
	for it := value.ElementIterator(); it.Next(); {
		_, item := it.Element()
		if item.IsNull() || !item.IsKnown() || item.Type() != cty.String {
			return nil, hcl.Diagnostics{invalid}
		}
		deps = append(deps, item.AsString())
	}
	return deps, nil
}
