package main

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
)

// ErrInvalidInstallPath is returned if the install location does not lead to
// the game's binary directory.
var ErrInvalidInstallPath = errors.New("install location is not a game binary directory")

// ValidateInstallPath resolves path to the game's binary directory.
//
// Path may point at the binary directory itself or at the product directory
// containing it. One trailing separator is ignored.
func ValidateInstallPath(path string, cfg Config) (string, error) {
	if path == "" || !isDir(path) {
		return "", ErrInvalidInstallPath
	}

	if len(path) > 1 && os.IsPathSeparator(path[len(path)-1]) {
		path = path[:len(path)-1]
	}

	if strings.HasSuffix(path, cfg.ProductDir+string(filepath.Separator)+cfg.BinDir) {
		return path, nil
	}

	if strings.HasSuffix(path, cfg.ProductDir) {
		bin := filepath.Join(path, cfg.BinDir)
		if isDir(bin) {
			return bin, nil
		}
	}

	return "", ErrInvalidInstallPath
}

func isDir(path string) bool {
	fi, err := os.Stat(path)
	return err == nil && fi.IsDir()
}
