package main

import (
	"errors"
	"fmt"
	"iter"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

var (
	// ErrSolutionNotFound is returned if no ancestor directory holds a solution.
	ErrSolutionNotFound = errors.New("failed to locate solution file")

	// ErrPathNotAbsolute is returned if discovery starts from a relative path.
	ErrPathNotAbsolute = errors.New("path is not rooted")
)

// Ancestors yields dir and each of its parents, stopping before the
// filesystem root.
func Ancestors(dir string) (iter.Seq[string], error) {
	if !filepath.IsAbs(dir) {
		return nil, fmt.Errorf("%w: %s", ErrPathNotAbsolute, dir)
	}
	dir = filepath.Clean(dir)

	return func(yield func(string) bool) {
		for {
			parent := filepath.Dir(dir)
			if parent == dir {
				return
			}
			if !yield(dir) {
				return
			}
			dir = parent
		}
	}, nil
}

// FindSolution returns the first solution file found walking up from dir.
func FindSolution(dir, ext string) (string, error) {
	dirs, err := Ancestors(dir)
	if err != nil {
		return "", err
	}

	for d := range dirs {
		entries, err := os.ReadDir(d)
		if err != nil {
			return "", err
		}
		for _, entry := range entries {
			if !entry.IsDir() && strings.HasSuffix(entry.Name(), ext) {
				return filepath.Join(d, entry.Name()), nil
			}
		}
	}

	return "", ErrSolutionNotFound
}

// FindProjects returns every project file below root, sorted.
func FindProjects(root, ext string) ([]string, error) {
	matches, err := doublestar.Glob(os.DirFS(root), "**/*"+ext, doublestar.WithFilesOnly())
	if err != nil {
		return nil, err
	}

	projects := make([]string, 0, len(matches))
	for _, m := range matches {
		projects = append(projects, filepath.Join(root, filepath.FromSlash(m)))
	}
	sort.Strings(projects)
	return projects, nil
}
