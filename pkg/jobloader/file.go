package jobloader

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/cespare/xxhash/v2"
)

// FileFetcher reads job definitions from the local filesystem
type FileFetcher struct{}

// NewFileFetcher creates a new file fetcher
func NewFileFetcher() *FileFetcher {
	return &FileFetcher{}
}

// Type returns the fetcher type
func (f *FileFetcher) Type() string {
	return "file"
}

// Fetch reads the file at ref. The format comes from the file extension and
// the default graph name from the base name.
func (f *FileFetcher) Fetch(ctx context.Context, ref string) (*FetchResult, error) {
	if ref == "" {
		return nil, fmt.Errorf("file path is empty")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	content, err := os.ReadFile(ref)
	if err != nil {
		return nil, fmt.Errorf("failed to read job file: %w", err)
	}

	base := filepath.Base(ref)
	return &FetchResult{
		Content: content,
		Digest:  fmt.Sprintf("file:%x", xxhash.Sum64(content)),
		Source:  "file://" + ref,
		Name:    strings.TrimSuffix(base, filepath.Ext(base)),
		Format:  FormatFromPath(ref),
	}, nil
}
