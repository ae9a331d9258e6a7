package jobloader

import (
	"fmt"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"

	jobschema "github.com/chazu/jobgraph/cue"
	"github.com/chazu/jobgraph/pkg/graph"
)

// loadSchema compiles the embedded #JobSet definition in ctx
func loadSchema(ctx *cue.Context) (cue.Value, error) {
	src, err := jobschema.SchemaFS.ReadFile(jobschema.SchemaFile)
	if err != nil {
		return cue.Value{}, fmt.Errorf("failed to read embedded schema: %w", err)
	}

	schema := ctx.CompileBytes(src, cue.Filename(jobschema.SchemaFile))
	if schema.Err() != nil {
		return cue.Value{}, fmt.Errorf("failed to compile embedded schema: %w", schema.Err())
	}

	def := schema.LookupPath(cue.ParsePath(jobschema.JobSetDefinition))
	if !def.Exists() {
		return cue.Value{}, fmt.Errorf("embedded schema has no %s definition", jobschema.JobSetDefinition)
	}
	return def, nil
}

// decodeCUE unifies the document with #JobSet and reads the jobs in the order
// they were declared
func decodeCUE(filename string, content []byte) (*Document, error) {
	ctx := cuecontext.New()

	schema, err := loadSchema(ctx)
	if err != nil {
		return nil, err
	}

	value := ctx.CompileBytes(content, cue.Filename(filename))
	if value.Err() != nil {
		return nil, fmt.Errorf("failed to compile CUE: %w", value.Err())
	}

	unified := schema.Unify(value)
	if err := unified.Validate(); err != nil {
		return nil, fmt.Errorf("job definitions do not match %s: %w", jobschema.JobSetDefinition, err)
	}

	result := &Document{}
	if name := unified.LookupPath(cue.ParsePath("name")); name.Exists() && name.IsConcrete() {
		s, err := name.String()
		if err != nil {
			return nil, fmt.Errorf("name must be a concrete string: %w", err)
		}
		result.Name = s
	}

	jobs := unified.LookupPath(cue.ParsePath("jobs"))
	if !jobs.Exists() {
		return nil, fmt.Errorf("missing field \"jobs\"")
	}

	iter, err := jobs.Fields()
	if err != nil {
		return nil, fmt.Errorf("jobs must be a struct: %w", err)
	}
	for iter.Next() {
		name := iter.Selector().Unquoted()

		deps, err := cueDependencies(iter.Value())
		if err != nil {
			return nil, fmt.Errorf("job %q: %w", name, err)
		}
		result.Jobs = append(result.Jobs, graph.Job{Name: name, Dependencies: deps})
	}

	return result, nil
}

func cueDependencies(job cue.Value) ([]string, error) {
	list := job.LookupPath(cue.ParsePath("dependencies"))
	if !list.Exists() {
		return nil, nil
	}
	list, _ = list.Default()

	items, err := list.List()
	if err != nil {
		return nil, fmt.Errorf("dependencies must be a list: %w", err)
	}

	var deps []string
	for items.Next() {
		dep, err := items.Value().String()
		if err != nil {
			return nil, fmt.Errorf("dependency must be a concrete job name: %w", err)
		}
		deps = append(deps, dep)
	}
	return deps, nil
}
