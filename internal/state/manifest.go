package state

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/teamcutter/csharpls/internal/domain"
)

// readManifest returns an empty manifest when path does not exist.
func readManifest(path string) (*domain.Manifest, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return domain.NewManifest(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read manifest: %w", err)
	}

	var m domain.Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("failed to parse manifest: %w", err)
	}
	if m.Tools == nil {
		m.Tools = make(map[string]*domain.InstalledTool)
	}
	return &m, nil
}

func writeManifest(path string, m *domain.Manifest) error {
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return err
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, ".manifest-*")
	if err != nil {
		return err
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	return os.Rename(tmp.Name(), path)
}
