// Package discovery finds candidate table files beneath a root directory.
package discovery

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/harrison/minrow/internal/models"
	"github.com/harrison/minrow/internal/pool"
)

// DefaultWalkers is the number of sub-roots walked concurrently when a
// prefix filter is active.
const DefaultWalkers = 4

// ScanResult contains the results of a discovery scan
type ScanResult struct {
	// Files contains the matched paths, sorted lexicographically
	Files []string
	// Skipped contains entries that could not be read and were ignored
	Skipped []error
	// SubRoots contains the prefixed entries searched (empty without a prefix)
	SubRoots []string
}

// NormalizeExtension returns ext with exactly one leading dot.
func NormalizeExtension(ext string) string {
	ext = strings.TrimSpace(ext)
	if ext == "" {
		return ""
	}
	return "." + strings.TrimLeft(ext, ".")
}

// Discover walks root and returns every file whose final extension matches
// filter.Extension exactly. When filter.Prefix is set only entries within
// filter.PrefixDepth levels of root whose names start with the prefix are
// searched.
func Discover(root string, filter models.DiscoveryFilter) (*ScanResult, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, &models.IOError{Op: "stat root", Path: root, Err: err}
	}
	if !info.IsDir() {
		return nil, &models.IOError{Op: "scan root", Path: root, Err: fmt.Errorf("not a directory")}
	}

	ext := NormalizeExtension(filter.Extension)
	if ext == "" {
		return nil, fmt.Errorf("discovery filter requires an extension")
	}

	if filter.Prefix == "" {
		files, skipped := walk(root, ext)
		sort.Strings(files)
		return &ScanResult{Files: files, Skipped: skipped}, nil
	}

	depth := filter.PrefixDepth
	if depth < 1 {
		depth = 1
	}
	subRoots, skipped := findSubRoots(root, filter.Prefix, depth)

	type walkResult struct {
		files   []string
		skipped []error
	}
	outcomes := pool.Map(context.Background(), subRoots, pool.Options{Workers: DefaultWalkers},
		func(ctx context.Context, i int, subRoot string) (walkResult, error) {
			files, errs := walk(subRoot, ext)
			return walkResult{files: files, skipped: errs}, nil
		})

	result := &ScanResult{SubRoots: subRoots, Skipped: skipped}
	for _, o := range outcomes {
		result.Files = append(result.Files, o.Value.files...)
		result.Skipped = append(result.Skipped, o.Value.skipped...)
	}
	sort.Strings(result.Files)
	return result, nil
}

// findSubRoots returns entries at depth 1..maxDepth below root whose names
// start with prefix. A matching directory is not descended into further
// since it is searched in full as a sub-root.
func findSubRoots(root, prefix string, maxDepth int) ([]string, []error) {
	var subRoots []string
	var skipped []error

	filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			skipped = append(skipped, fmt.Errorf("error accessing %s: %w", path, err))
			return nil
		}
		if path == root {
			return nil
		}

		rel, _ := filepath.Rel(root, path)
		depth := strings.Count(rel, string(filepath.Separator)) + 1

		if strings.HasPrefix(d.Name(), prefix) {
			subRoots = append(subRoots, path)
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}

		if d.IsDir() && depth >= maxDepth {
			return filepath.SkipDir
		}
		return nil
	})

	sort.Strings(subRoots)
	return subRoots, skipped
}

// walk collects files under root (or root itself when it is a file) with
// the given extension. Unreadable entries and broken symlinks are skipped.
func walk(root, ext string) ([]string, []error) {
	var files []string
	var skipped []error

	filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			skipped = append(skipped, fmt.Errorf("error accessing %s: %w", path, err))
			if d != nil && d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			return nil
		}
		if filepath.Ext(path) != ext {
			return nil
		}

		if d.Type()&fs.ModeSymlink != 0 {
			target, err := os.Stat(path)
			if err != nil {
				skipped = append(skipped, fmt.Errorf("broken symlink %s: %w", path, err))
				return nil
			}
			if target.IsDir() {
				return nil
			}
		} else if !d.Type().IsRegular() {
			return nil
		}

		files = append(files, path)
		return nil
	})

	return files, skipped
}
