package main

import (
	"errors"
	"fmt"

	"github.com/charmbracelet/log"
)

var (
	// ErrInstallNotFound is returned if no registry key holds the install location.
	ErrInstallNotFound = errors.New("install location not found in registry")

	// ErrRegistryUnavailable is returned by the registry reader on platforms
	// without a Windows registry.
	ErrRegistryUnavailable = errors.New("registry is not available on this platform")
)

// KeyReader reads a string value from a key under HKEY_LOCAL_MACHINE.
type KeyReader interface {
	ReadString(keyPath, valueName string) (string, error)
}

// LocateInstall returns the game install location. The per-user override
// wins; otherwise each registry key is tried in order and the first string
// value found is returned.
func LocateInstall(reader KeyReader, cfg Config, logger *log.Logger) (string, error) {
	if cfg.InstallPath != "" {
		logger.Debug("Using configured install path", "path", cfg.InstallPath)
		return cfg.InstallPath, nil
	}

	var lastErr error
	for _, keyPath := range cfg.KeyPaths() {
		value, err := reader.ReadString(keyPath, cfg.ValueName)
		if err != nil {
			if errors.Is(err, ErrRegistryUnavailable) {
				return "", err
			}
			lastErr = err
			continue
		}
		logger.Debug("Read registry key", "key", keyPath)
		return value, nil
	}

	if lastErr != nil {
		return "", fmt.Errorf("%w: %v", ErrInstallNotFound, lastErr)
	}
	return "", ErrInstallNotFound
}
