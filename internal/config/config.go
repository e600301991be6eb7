// Package config loads the static parameter file that seeds the local
// parameter store.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

var ErrUnsupportedValue = errors.New("config: unsupported parameter value")

// ParametersFile is the on-disk layout:
//
//	[parameters]
//	robot_description = "<robot name=\"arm\"/>"
//
//	[files]
//	robot_description = "arm.urdf"
//
// Entries under files are read relative to the parameter file and win over
// inline parameters of the same name.
type ParametersFile struct {
	Parameters map[string]any    `toml:"parameters"`
	Files      map[string]string `toml:"files"`
}

// LoadParameters reads path and flattens every value to its string form.
func LoadParameters(path string) (map[string]string, error) {
	var file ParametersFile
	if err := loadToml(path, &file); err != nil {
		return nil, err
	}
	out := make(map[string]string, len(file.Parameters)+len(file.Files))
	for _, name := range sortedKeys(file.Parameters) {
		value, err := flatten(file.Parameters[name])
		if err != nil {
			return nil, fmt.Errorf("parameter %q: %w", name, err)
		}
		out[strings.TrimSpace(name)] = value
	}

	dir := filepath.Dir(path)
	for name, rel := range file.Files {
		p := strings.TrimSpace(rel)
		if p == "" {
			return nil, fmt.Errorf("file parameter %q has empty path", name)
		}
		if !filepath.IsAbs(p) {
			p = filepath.Join(dir, p)
		}
		data, err := os.ReadFile(p)
		if err != nil {
			return nil, fmt.Errorf("file parameter %q: %w", name, err)
		}
		out[strings.TrimSpace(name)] = string(data)
	}
	return out, nil
}

func loadToml(path string, out any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("config load failed (%s): %w", path, err)
	}
	if err := toml.Unmarshal(data, out); err != nil {
		return fmt.Errorf("config parse failed (%s): %w", path, err)
	}
	return nil
}

func flatten(v any) (string, error) {
	switch t := v.(type) {
	case string:
		return t, nil
	case bool:
		return strconv.FormatBool(t), nil
	case int64:
		return strconv.FormatInt(t, 10), nil
	case float64:
		return strconv.FormatFloat(t, 'g', -1, 64), nil
	default:
		return "", fmt.Errorf("%w: %T", ErrUnsupportedValue, v)
	}
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
