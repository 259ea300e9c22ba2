// Package local implements the filesystem writer for rendered output.
package local

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Writer persists rendered routes under a root output directory.
type Writer struct {
	root string
}

// NewWriter creates the output directory if needed and returns a Writer
// rooted at it.
func NewWriter(root string) (*Writer, error) {
	if strings.TrimSpace(root) == "" {
		return nil, fmt.Errorf("output directory is required")
	}
	if err := os.MkdirAll(root, 0o750); err != nil {
		return nil, fmt.Errorf("create output dir %s: %w", root, err)
	}
	return &Writer{root: root}, nil
}

// WriteFile writes data at path relative to the output root, creating parent
// directories as needed. Paths resolving outside the root are rejected.
func (w *Writer) WriteFile(ctx context.Context, path string, data []byte) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("context canceled: %w", err)
	}
	if strings.TrimSpace(path) == "" {
		return fmt.Errorf("output path is required")
	}

	full := filepath.Join(w.root, filepath.FromSlash(path))
	cleanRoot := filepath.Clean(w.root)
	if !strings.HasPrefix(filepath.Clean(full), cleanRoot+string(filepath.Separator)) {
		return fmt.Errorf("output path %q escapes the output directory", path)
	}

	if err := os.MkdirAll(filepath.Dir(full), 0o750); err != nil {
		return fmt.Errorf("create parent dirs for %s: %w", full, err)
	}
	if err := os.WriteFile(full, data, 0o600); err != nil {
		return fmt.Errorf("write file %s: %w", full, err)
	}
	return nil
}

// Root returns the output directory the writer is rooted at.
func (w *Writer) Root() string {
	return w.root
}
