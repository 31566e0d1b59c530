package ingest

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ResolveDocsRoot turns the configured docs directory into an absolute,
// symlink-resolved path and verifies it is a directory.
func ResolveDocsRoot(root string) (string, error) {
	if root == "" {
		cwd, err := os.Getwd()
		if err != nil {
			return "", fmt.Errorf("getwd: %w", err)
		}
		root = cwd
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return "", fmt.Errorf("abs(%q): %w", root, err)
	}
	if r, err := filepath.EvalSymlinks(abs); err == nil {
		abs = r
	}
	fi, err := os.Stat(abs)
	if err != nil {
		return "", fmt.Errorf("docs root: %w", err)
	}
	if !fi.IsDir() {
		return "", fmt.Errorf("docs root %q is not a directory", abs)
	}
	return abs, nil
}

// resolveUnderRoot maps a relative document path to an absolute path and
// rejects anything escaping the docs root (absolute inputs, parent
// traversal, symlinked escapes).
func resolveUnderRoot(absRoot, relPath string) (string, error) {
	if filepath.IsAbs(relPath) {
		return "", fmt.Errorf("absolute document paths are not allowed: %q", relPath)
	}
	candidate := filepath.Join(absRoot, filepath.Clean(relPath))
	if resolved, err := filepath.EvalSymlinks(candidate); err == nil {
		candidate = resolved
	}
	rel, err := filepath.Rel(absRoot, candidate)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("document path %q resolves outside the docs root", relPath)
	}
	return candidate, nil
}
