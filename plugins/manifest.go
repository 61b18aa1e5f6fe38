package plugins

import (
	"fmt"
	"io/fs"

	"gopkg.in/yaml.v3"
)

type Manifest struct {
	ID          string            `yaml:"id"`
	Name        string            `yaml:"name"`
	Description string            `yaml:"description"`
	URL         string            `yaml:"url"`
	Hooks       []string          `yaml:"hooks"`
	StaticDirs  map[string]string `yaml:"staticDirs"`
}

func ParseManifest(content []byte) (*Manifest, error) {
	var manifest Manifest

	err := yaml.Unmarshal(content, &manifest)
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal manifest: %w", err)
	}

	if manifest.ID == "" {
		return nil, ErrMissingPluginID
	}

	return &manifest, nil
}

func ReadManifest(fsys fs.FS, name string) (*Manifest, error) {
	content, err := fs.ReadFile(fsys, name)
	if err != nil {
		return nil, fmt.Errorf("failed to read manifest %q: %w", name, err)
	}

	return ParseManifest(content)
}
