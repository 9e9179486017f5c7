package bundler

import (
	"os"
	"path/filepath"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"
)

// ConfigName is the conventional project config file name.
const ConfigName = "webbundle.yaml"

// Config is the optional project configuration. Paths are interpreted
// relative to the directory the config file lives in.
type Config struct {
	Entry        string `yaml:"entry"`
	Output       string `yaml:"output"`
	HTMLTemplate string `yaml:"htmlTemplate,omitempty"`
	Compress     bool   `yaml:"compress,omitempty"`
}

// LoadConfig reads and validates a config file and returns the build options
// it describes, with relative paths resolved against the config's directory.
func LoadConfig(path string) (*Options, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "failed to read %s", path)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, eris.Wrapf(err, "failed to parse %s", path)
	}

	if cfg.Entry == "" {
		return nil, eris.Errorf("%s does not declare an entry file", path)
	}
	if cfg.Output == "" {
		cfg.Output = "dist"
	}

	base := filepath.Dir(path)
	opts := &Options{
		Entry:     resolveAgainst(base, cfg.Entry),
		OutputDir: resolveAgainst(base, cfg.Output),
		Compress:  cfg.Compress,
	}
	if cfg.HTMLTemplate != "" {
		opts.HTMLTemplate = resolveAgainst(base, cfg.HTMLTemplate)
	}
	return opts, nil
}

// FindConfig searches for the config file in startDir and its ancestor
// directories, closest first.
func FindConfig(startDir string) (string, error) {
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return "", eris.Wrapf(err, "failed to resolve %s", startDir)
	}

	for {
		candidate := filepath.Join(dir, ConfigName)
		_, err := os.Stat(candidate)
		if err == nil {
			return candidate, nil
		}
		if !eris.Is(err, os.ErrNotExist) {
			return "", eris.Wrapf(err, "failed to check %s", candidate)
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return "", eris.Errorf("no %s found in %s or any parent directory", ConfigName, startDir)
		}
		dir = parent
	}
}

func resolveAgainst(base, path string) string {
	if filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(base, filepath.FromSlash(path))
}
