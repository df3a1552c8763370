// Package fileutil walks project trees for files the rules engine and plan
// ingestion care about.
package fileutil

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// SourceExtensions are the file types scanned by default.
var SourceExtensions = []string{".js", ".ts", ".jsx", ".tsx", ".py", ".java", ".cpp", ".c", ".go"}

// DefaultExcludeDirs are never descended into.
var DefaultExcludeDirs = []string{"node_modules", "vendor"}

// ScanOptions configures Scan.
type ScanOptions struct {
	// Extensions to include, case-insensitive, with or without the dot.
	// Empty includes every file.
	Extensions []string
	// ExcludeDirs are directory names to skip. Hidden directories are
	// always skipped.
	ExcludeDirs []string
	// MaxDepth limits recursion; 0 is unlimited, 1 is root only.
	MaxDepth int
}

// ScanResult holds matched files in sorted order plus the non-fatal errors
// hit along the way.
type ScanResult struct {
	Files  []string
	Errors []error
}

// Scan walks root and collects matching files. Only a missing or
// non-directory root is fatal.
func Scan(root string, opts ScanOptions) (*ScanResult, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("scan %s: %w", root, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("scan %s: not a directory", root)
	}

	exts := make(map[string]bool, len(opts.Extensions))
	for _, ext := range opts.Extensions {
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		exts[strings.ToLower(ext)] = true
	}
	excluded := make(map[string]bool, len(opts.ExcludeDirs))
	for _, d := range opts.ExcludeDirs {
		excluded[d] = true
	}

	result := &ScanResult{}
	walkErr := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			result.Errors = append(result.Errors, fmt.Errorf("access %s: %w", path, err))
			return nil
		}
		if path == root {
			return nil
		}
		if d.IsDir() {
			if excluded[d.Name()] || strings.HasPrefix(d.Name(), ".") {
				return filepath.SkipDir
			}
			if opts.MaxDepth > 0 && depth(root, path) >= opts.MaxDepth {
				return filepath.SkipDir
			}
			return nil
		}
		if len(exts) > 0 && !exts[strings.ToLower(filepath.Ext(d.Name()))] {
			return nil
		}
		result.Files = append(result.Files, path)
		return nil
	})
	if walkErr != nil {
		return nil, fmt.Errorf("walk %s: %w", root, walkErr)
	}

	sort.Strings(result.Files)
	return result, nil
}

func depth(root, path string) int {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return 0
	}
	return strings.Count(rel, string(filepath.Separator)) + 1
}
