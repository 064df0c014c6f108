package config

import (
	"path/filepath"

	"github.com/spf13/afero"
	"sigs.k8s.io/yaml"
)

// Load loads the configuration from the directory.
func Load(fsys afero.Fs, path string) (*Configuration, error) {
	// If given the path to a config.yaml file, move back up a level.
	if filepath.Base(path) == ConfigurationName {
		path = filepath.Dir(path)
	}

	configContents, err := afero.ReadFile(fsys, filepath.Join(path, ConfigurationName))
	if err != nil {
		return nil, err
	}
	var out Configuration
	if err := yaml.UnmarshalStrict(configContents, &out); err != nil {
		return nil, err
	}
	if err := out.Validate(); err != nil {
		return nil, err
	}
	out.configFs = afero.NewBasePathFs(fsys, path)
	return &out, nil
}

// Initialize writes a fresh config directory containing the default
// configuration; it refuses to clobber an existing config file.
func Initialize(fsys afero.Fs, path string) (*Configuration, error) {
	if err := fsys.MkdirAll(path, 0700); err != nil {
		return nil, err
	}

	configPath := filepath.Join(path, ConfigurationName)
	if exists, err := afero.Exists(fsys, configPath); err != nil {
		return nil, err
	} else if exists {
		return nil, afero.ErrFileExists
	}

	out := Default()
	contents, err := yaml.Marshal(out)
	if err != nil {
		return nil, err
	}
	if err := afero.WriteFile(fsys, configPath, contents, 0600); err != nil {
		return nil, err
	}
	out.configFs = afero.NewBasePathFs(fsys, path)
	return out, nil
}
