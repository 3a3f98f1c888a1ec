package main

import (
	"errors"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/git-lfs/git-lfs/v3/tools/humanize"
)

// AssemblySet holds the simple and full names of the game's assemblies.
type AssemblySet map[string]struct{}

// Contains reports whether name is a simple or full name in the set.
func (s AssemblySet) Contains(name string) bool {
	_, ok := s[name]
	return ok
}

func (s AssemblySet) add(a AssemblyIdentity) {
	s[a.Name] = struct{}{}
	s[a.FullName()] = struct{}{}
}

// ScanAssemblies collects the identities of the managed .dll and .exe files
// directly inside dir. Native modules and unreadable files are skipped.
func ScanAssemblies(dir string, logger *log.Logger) (AssemblySet, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	set := make(AssemblySet)
	var modules int
	var size uint64
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		ext := strings.ToLower(filepath.Ext(entry.Name()))
		if ext != ".dll" && ext != ".exe" {
			continue
		}

		path := filepath.Join(dir, entry.Name())
		identity, err := readAssemblyFile(path, logger)
		if err != nil {
			if !errors.Is(err, ErrNotAssembly) {
				logger.Debug("Skipping unreadable module", "file", path, "err", err)
			}
			continue
		}
		set.add(identity)

		modules++
		if fi, err := entry.Info(); err == nil {
			size += uint64(fi.Size())
		}
	}

	logger.Info("Scanned game assemblies", "dir", dir, "assemblies", modules, "size", humanize.FormatBytes(size))
	return set, nil
}

func readAssemblyFile(path string, logger *log.Logger) (AssemblyIdentity, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return AssemblyIdentity{}, err
	}
	return ReadAssemblyIdentity(data, logger.With("file", path))
}
