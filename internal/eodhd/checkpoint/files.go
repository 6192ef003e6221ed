package checkpoint

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// Files locates the three ledger artifacts.
type Files struct {
	Completed  string
	Failed     string
	Quarantine string // trailing failures split off on breaker halts
}

// loadList reads a JSON array of strings.
func loadList(path string) ([]string, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var list []string
	if err := json.Unmarshal(b, &list); err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	return list, nil
}

// saveList overwrites path with list as a JSON array.
func saveList(path string, list []string) error {
	if list == nil {
		list = []string{}
	}

	b, err := json.Marshal(list)
	if err != nil {
		return fmt.Errorf("encode %s: %w", path, err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err := os.WriteFile(path, b, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}
