// Package specfile loads feature specifications from YAML files.
package specfile

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/mohammed-a-khan/My-PWT-Framework-sub001/types"
)

// LoadFile parses a single feature file.
func LoadFile(path string) (*types.Feature, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read feature file %s: %w", path, err)
	}

	var feature types.Feature
	if err := yaml.Unmarshal(data, &feature); err != nil {
		return nil, fmt.Errorf("failed to parse feature file %s: %w", path, err)
	}
	if feature.Name == "" {
		return nil, fmt.Errorf("feature file %s has no feature name", path)
	}
	for i, sc := range feature.Scenarios {
		if sc.Name == "" {
			return nil, fmt.Errorf("feature file %s: scenario %d has no name", path, i+1)
		}
	}
	return &feature, nil
}

// LoadDir discovers every .yaml/.yml file under dir (recursively) and parses
// each as a feature. Files are visited in sorted path order so run contents
// are deterministic.
func LoadDir(dir string) ([]*types.Feature, error) {
	var paths []string
	err := filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		ext := strings.ToLower(filepath.Ext(path))
		if ext == ".yaml" || ext == ".yml" {
			paths = append(paths, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan feature directory %s: %w", dir, err)
	}
	sort.Strings(paths)

	if len(paths) == 0 {
		return nil, fmt.Errorf("no feature files found in %s", dir)
	}

	features := make([]*types.Feature, 0, len(paths))
	for _, path := range paths {
		feature, err := LoadFile(path)
		if err != nil {
			return nil, err
		}
		features = append(features, feature)
	}
	return features, nil
}
