package pbmcp

import (
	"os"
	"path/filepath"

	"github.com/caarlos0/env/v6"
	"gopkg.in/yaml.v3"
)

// Config represents the .pbmcp.yaml configuration file. Environment
// variables override file values.
type Config struct {
	Store StoreConfig `yaml:"store"`
	Log   LogConfig   `yaml:"log"`
}

// StoreConfig holds the record store connection settings.
type StoreConfig struct {
	URL           string `yaml:"url"            env:"POCKETBASE_URL"`
	AdminEmail    string `yaml:"admin_email"    env:"POCKETBASE_ADMIN_EMAIL"`
	AdminPassword string `yaml:"admin_password" env:"POCKETBASE_ADMIN_PASSWORD"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	// Level is one of debug, info, warn, error.
	Level string `yaml:"level" env:"LOG_LEVEL"`
}

// DefaultConfigNames are the filenames we search for.
var DefaultConfigNames = []string{".pbmcp.yaml", ".pbmcp.yml", "pbmcp.yaml", "pbmcp.yml"}

// LoadConfig finds and loads the nearest .pbmcp.yaml walking up from dir,
// then applies environment overrides. A missing config file is not an
// error: the environment alone can configure the process.
func LoadConfig(dir string) (*Config, error) {
	var cfg Config

	path, err := FindConfig(dir)
	if err == nil {
		data, err := os.ReadFile(filepath.Clean(path))
		if err != nil {
			return nil, err
		}

		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, err
		}
	}

	if err := env.Parse(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// FindConfig searches for a config file starting from dir and walking up.
func FindConfig(dir string) (string, error) {
	absDir, err := filepath.Abs(dir)
	if err != nil {
		return "", err
	}

	for dir := absDir; ; {
		for _, name := range DefaultConfigNames {
			path := filepath.Join(dir, name)

			_, err := os.Stat(path)
			if err == nil {
				return path, nil
			}
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return "", ErrConfigNotFound
		}

		dir = parent
	}
}
