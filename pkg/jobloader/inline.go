package jobloader

import (
	"context"
	"fmt"
	"strings"

	"github.com/cespare/xxhash/v2"
)

// InlineFetcher handles job definitions passed directly as the reference
type InlineFetcher struct{}

// NewInlineFetcher creates a new inline fetcher
func NewInlineFetcher() *InlineFetcher {
	return &InlineFetcher{}
}

// Type returns the fetcher type
func (f *InlineFetcher) Type() string {
	return "inline"
}

// Fetch returns the inline content directly.
// The ref parameter IS the document, optionally prefixed with its format,
// e.g. "cue:jobs: a: {}". Without a recognised prefix the document is YAML.
func (f *InlineFetcher) Fetch(ctx context.Context, ref string) (*FetchResult, error) {
	format, body := splitFormatPrefix(ref)
	if strings.TrimSpace(body) == "" {
		return nil, fmt.Errorf("inline job definitions are empty")
	}

	content := []byte(body)

	// Compute a content-based digest
	digest := fmt.Sprintf("inline:%s:%x", format, xxhash.Sum64(content))

	return &FetchResult{
		Content: content,
		Digest:  digest,
		Source:  "inline",
		Name:    "inline",
		Format:  format,
	}, nil
}

// splitFormatPrefix separates a leading "<format>:" from an inline document
func splitFormatPrefix(ref string) (Format, string) {
	prefix, rest, found := strings.Cut(ref, ":")
	if !found || strings.ContainsAny(prefix, " \t\n") {
		return FormatYAML, ref
	}

	format, err := ParseFormat(prefix)
	if err != nil {
		return FormatYAML, ref
	}
	return format, rest
}
