//go:build !windows

package main

type systemRegistry struct{}

func (systemRegistry) ReadString(keyPath, valueName string) (string, error) {
	return "", ErrRegistryUnavailable
}
