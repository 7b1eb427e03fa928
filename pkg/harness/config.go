package harness

import (
	"os"
	"path/filepath"
	"sort"

	"dario.cat/mergo"
	"github.com/adrg/xdg"
	"github.com/bmatcuk/doublestar/v4"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// Config controls a conformance run. Zero fields fall back to
// DefaultConfig.
type Config struct {
	// Suites are scenario files or doublestar patterns ("testdata/**/*.yaml").
	Suites []string `yaml:"suites"`
	// Output is the directory receiving latest.json and results.json. Empty
	// disables result writing.
	Output string `yaml:"output"`
	// Filter is an ECMAScript regular expression matched against
	// "suite/test" names.
	Filter string `yaml:"filter"`
	// Backend selects the engine under test: "model" or "goja".
	Backend string `yaml:"backend"`
	// Locale formats the summary percentages.
	Locale  string `yaml:"locale"`
	Verbose bool   `yaml:"verbose"`
}

// DefaultConfig is what a run uses when nothing else is configured.
func DefaultConfig() Config {
	return Config{
		Suites:  []string{"testdata/suites/**/*.yaml"},
		Backend: BackendModel,
		Locale:  "en",
	}
}

// DefaultConfigPath is the per-user configuration file.
func DefaultConfigPath() string {
	return filepath.Join(xdg.ConfigHome, "objconform", "config.yaml")
}

// LoadConfig reads a YAML config file and fills unset fields from
// DefaultConfig. A missing file at the default path is not an error.
func LoadConfig(path string) (Config, error) {
	var cfg Config
	explicit := path != ""
	if !explicit {
		path = DefaultConfigPath()
	}

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, errors.Wrapf(err, "failed to parse config %s", path)
		}
	case os.IsNotExist(err) && !explicit:
	default:
		return Config{}, errors.Wrapf(err, "failed to read config %s", path)
	}

	if err := mergo.Merge(&cfg, DefaultConfig()); err != nil {
		return Config{}, errors.Wrap(err, "failed to apply config defaults")
	}
	return cfg, nil
}

// Override lays the non-zero fields of other over cfg.
func (cfg *Config) Override(other Config) error {
	return errors.Wrap(mergo.Merge(cfg, other, mergo.WithOverride), "failed to apply config overrides")
}

// SuiteFiles expands the configured patterns into a sorted, de-duplicated
// list of files.
func (cfg Config) SuiteFiles() ([]string, error) {
	seen := make(map[string]bool)
	var files []string
	for _, pattern := range cfg.Suites {
		matches, err := doublestar.FilepathGlob(pattern)
		if err != nil {
			return nil, errors.Wrapf(err, "bad suite pattern %q", pattern)
		}
		if len(matches) == 0 && !hasMeta(pattern) {
			return nil, errors.Errorf("suite file %s does not exist", pattern)
		}
		for _, m := range matches {
			if !seen[m] {
				seen[m] = true
				files = append(files, m)
			}
		}
	}
	sort.Strings(files)
	return files, nil
}

func hasMeta(pattern string) bool {
	for _, c := range pattern {
		switch c {
		case '*', '?', '[', '{':
			return true
		}
	}
	return false
}
