package common

import (
	"fmt"
	"os"
)

// SafeReadFile reads path after expanding ~, wrapping errors with the path
func SafeReadFile(path string) ([]byte, error) {
	expanded, err := ExpandPath(path)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(expanded)
	if err != nil {
		return nil, fmt.Errorf("failed to read file %s: %w", path, err)
	}
	return data, nil
}

// FileExists checks if a file exists using os.Stat, returns false if any error occurs
func FileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
