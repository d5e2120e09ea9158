// Package config reads the project manifest that lists modules, their
// dependency and friend relations, and where their platform sources live.
package config

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"

	toml "github.com/pelletier/go-toml/v2"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// Default manifest file names, tried in order by Find.
var ManifestFiles = []string{"trellis.toml", "trellis.yaml", "trellis.yml"}

// Manifest is the root of trellis.toml / trellis.yaml.
type Manifest struct {
	// Database is the snapshot path. Relative paths are resolved against
	// the manifest's directory.
	Database string         `toml:"database" yaml:"database"`
	Modules  []ModuleConfig `toml:"module" yaml:"modules"`

	// dir is the directory the manifest was read from.
	dir string
}

// ModuleConfig declares one compilation module.
type ModuleConfig struct {
	Name         string   `toml:"name" yaml:"name"`
	Dependencies []string `toml:"dependencies,omitempty" yaml:"dependencies,omitempty"`
	Friends      []string `toml:"friends,omitempty" yaml:"friends,omitempty"`
	// Sources are directories of platform-language source files.
	Sources []string `toml:"sources,omitempty" yaml:"sources,omitempty"`
	// Library marks the sources as a precompiled library.
	Library bool `toml:"library,omitempty" yaml:"library,omitempty"`
}

// Load reads and validates a manifest. The format follows the extension:
// .toml, or .yaml/.yml.
func Load(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "read manifest")
	}
	var m *Manifest
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		m, err = ParseTOML(data)
	case ".yaml", ".yml":
		m, err = ParseYAML(data)
	default:
		return nil, errors.Errorf("manifest %s: unsupported format", path)
	}
	if err != nil {
		return nil, errors.Wrapf(err, "manifest %s", path)
	}
	m.dir = filepath.Dir(path)
	if err := m.Validate(); err != nil {
		return nil, errors.Wrapf(err, "manifest %s", path)
	}
	return m, nil
}

// ParseTOML decodes a TOML manifest. Unknown keys are rejected.
func ParseTOML(data []byte) (*Manifest, error) {
	var m Manifest
	dec := toml.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&m); err != nil {
		return nil, errors.Wrap(err, "parse toml")
	}
	return &m, nil
}

// ParseYAML decodes a YAML manifest. Unknown keys are rejected.
func ParseYAML(data []byte) (*Manifest, error) {
	var m Manifest
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&m); err != nil {
		return nil, errors.Wrap(err, "parse yaml")
	}
	return &m, nil
}

// Find returns the first manifest file present in dir.
func Find(dir string) (string, error) {
	for _, name := range ManifestFiles {
		path := filepath.Join(dir, name)
		if _, err := os.Stat(path); err == nil {
			return path, nil
		}
	}
	return "", errors.Errorf("no manifest in %s (looked for %s)", dir, strings.Join(ManifestFiles, ", "))
}

// Validate checks that module names are unique and that every dependency
// and friend names a declared module.
func (m *Manifest) Validate() error {
	seen := map[string]bool{}
	for _, mod := range m.Modules {
		if mod.Name == "" {
			return errors.New("module with empty name")
		}
		if seen[mod.Name] {
			return errors.Errorf("duplicate module %q", mod.Name)
		}
		seen[mod.Name] = true
	}
	for _, mod := range m.Modules {
		for _, dep := range mod.Dependencies {
			if !seen[dep] {
				return errors.Errorf("module %q: unknown dependency %q", mod.Name, dep)
			}
		}
		for _, f := range mod.Friends {
			if !seen[f] {
				return errors.Errorf("module %q: unknown friend %q", mod.Name, f)
			}
		}
	}
	return nil
}

// DatabasePath returns the snapshot path, resolved against the manifest
// directory. It falls back to trellis.db.
func (m *Manifest) DatabasePath() string {
	db := m.Database
	if db == "" {
		db = "trellis.db"
	}
	return m.resolve(db)
}

// SourceDirs returns mod's source directories resolved against the
// manifest directory.
func (m *Manifest) SourceDirs(mod ModuleConfig) []string {
	out := make([]string, 0, len(mod.Sources))
	for _, s := range mod.Sources {
		out = append(out, m.resolve(s))
	}
	return out
}

func (m *Manifest) resolve(p string) string {
	if filepath.IsAbs(p) || m.dir == "" {
		return p
	}
	return filepath.Join(m.dir, p)
}
