package workspace

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
)

// Package workspace provides the isolated per-request temporary directory
// that holds the input and output files of one conversion. A workspace is
// owned by exactly one request: created at request start and torn down on
// every exit path.

// Workspace is a uniquely named temporary directory. All filesystem
// mutation performed through it stays under Root.
type Workspace struct {
	root string
}

// New creates a fresh workspace directory. Uniqueness comes from the
// operating system's temp-dir creation; no global registry is kept.
func New() (*Workspace, error) {
	dir, err := os.MkdirTemp("", "invoicegw-")
	if err != nil {
		return nil, fmt.Errorf("create workspace: %w", err)
	}
	return &Workspace{root: dir}, nil
}

// Root returns the workspace directory.
func (w *Workspace) Root() string { return w.root }

// WriteInput materializes uploaded content inside the workspace under the
// sanitized base name of the declared filename. Directory components are
// stripped; if nothing remains, fallback is used instead. Returns the
// written path.
func (w *Workspace) WriteInput(filename string, data []byte, fallback string) (string, error) {
	name := SafeFilename(filename)
	if name == "" {
		name = fallback
	}
	dest := filepath.Join(w.root, name)
	if err := os.WriteFile(dest, data, 0o600); err != nil {
		return "", fmt.Errorf("write input %s: %w", name, err)
	}
	return dest, nil
}

// Resolve returns the path of a file inside the workspace without creating
// it. Used to declare output locations before they exist.
func (w *Workspace) Resolve(name string) string {
	return filepath.Join(w.root, filepath.Base(name))
}

// Close deletes everything under the workspace, deepest entries first.
// Individual deletion failures are logged and swallowed so a single locked
// file cannot block cleanup of the rest, and cleanup never masks the
// request's primary result.
func (w *Workspace) Close() {
	var paths []string
	err := filepath.WalkDir(w.root, func(path string, _ os.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		paths = append(paths, path)
		return nil
	})
	if err != nil {
		log.Printf("workspace walk %s: %v", w.root, err)
	}

	sort.Sort(sort.Reverse(sort.StringSlice(paths)))
	for _, path := range paths {
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			log.Printf("workspace cleanup %s: %v", path, err)
		}
	}
	// Catch anything a failed per-entry pass left behind.
	_ = os.RemoveAll(w.root)
}

// SafeFilename strips any directory components from an uploaded filename,
// returning only its base name. Empty, "." and path-separator-only names
// collapse to "".
func SafeFilename(filename string) string {
	if filename == "" {
		return ""
	}
	// Normalize both separator styles before taking the base name; uploads
	// may declare Windows-style paths.
	name := filepath.Base(filepath.FromSlash(filename))
	for i := len(name) - 1; i >= 0; i-- {
		if name[i] == '\\' {
			name = name[i+1:]
			break
		}
	}
	if name == "." || name == ".." || name == string(filepath.Separator) {
		return ""
	}
	return name
}
