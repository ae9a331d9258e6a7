// Package cue provides the embedded CUE schema for job definition files.
package cue

import "embed"

// SchemaFS contains the embedded job definition schema.
//
//go:embed schema/*.cue
var SchemaFS embed.FS

// SchemaFile is the path of the job set schema within SchemaFS.
const SchemaFile = "schema/jobs.cue"

// JobSetDefinition is the definition every CUE job file is unified with.
const JobSetDefinition = "#JobSet"
