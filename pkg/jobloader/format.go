package jobloader

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/chazu/jobgraph/pkg/graph"
)

// Format identifies the syntax of a job definition document
type Format string

const (
	// FormatYAML is a YAML (or JSON) document: jobs: {name: {dependencies: [...]}}
	FormatYAML Format = "yaml"

	// FormatCUE is a CUE document checked against the embedded #JobSet schema
	FormatCUE Format = "cue"

	// FormatHCL is an HCL document of job "name" { dependencies = [...] } blocks
	FormatHCL Format = "hcl"
)

// ParseFormat returns the Format named by s
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(s) {
	case "yaml", "yml", "json":
		return FormatYAML, nil
	case "cue":
		return FormatCUE, nil
	case "hcl":
		return FormatHCL, nil
	default:
		return "", fmt.Errorf("unsupported format: %q", s)
	}
}

// FormatFromPath picks the format from a file extension. Unknown extensions
// are read as YAML.
func FormatFromPath(path string) Format {
	ext := strings.TrimPrefix(filepath.Ext(path), ".")
	if format, err := ParseFormat(ext); err == nil {
		return format
	}
	return FormatYAML
}

// Document is a decoded job definition file
type Document struct {
	// Name is the graph name, empty if the document does not set one
	Name string

	// Jobs in declaration order
	Jobs []graph.Job
}

// Decode parses content in the given format. filename is used in error messages.
func Decode(format Format, filename string, content []byte) (*Document, error) {
	switch format {
	case FormatYAML:
		return decodeYAML(content)
	case FormatCUE:
		return decodeCUE(filename, content)
	case FormatHCL:
		return decodeHCL(filename, content)
	default:
		return nil, fmt.Errorf("unsupported format: %q", format)
	}
}
