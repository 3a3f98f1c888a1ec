package main

import (
	"golang.org/x/sys/windows/registry"
)

type systemRegistry struct{}

func (systemRegistry) ReadString(keyPath, valueName string) (string, error) {
	key, err := registry.OpenKey(registry.LOCAL_MACHINE, keyPath, registry.QUERY_VALUE)
	if err != nil {
		return "", err
	}
	defer key.Close()

	value, _, err := key.GetStringValue(valueName)
	return value, err
}
