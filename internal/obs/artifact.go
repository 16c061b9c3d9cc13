package obs

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// ReadArtifact reads a typed JSON record from an observation directory.
// Returns nil, nil if the file does not exist.
func ReadArtifact[T any](dir, filename string) (*T, error) {
	path := filepath.Join(dir, filename)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read artifact %s: %w", filename, err)
	}
	var result T
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, fmt.Errorf("parse artifact %s: %w", filename, err)
	}
	return &result, nil
}

// WriteArtifact writes a typed JSON record to an observation directory.
func WriteArtifact(dir, filename string, data any) error {
	path := filepath.Join(dir, filename)
	raw, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal artifact %s: %w", filename, err)
	}
	if err := os.WriteFile(path, raw, 0644); err != nil {
		return fmt.Errorf("write artifact %s: %w", filename, err)
	}
	return nil
}
