package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

// FileReader defines the interface for reading files.
type FileReader interface {
	// ReadFile reads the file at the given path and returns the contents.
	ReadFile(path string) ([]byte, error)
}

// DefaultFileReader implements FileReader using os.ReadFile.
type DefaultFileReader struct{}

func (d *DefaultFileReader) ReadFile(path string) ([]byte, error) {
	return os.ReadFile(path)
}

// Loader wraps a FileReader to provide dependency injection for config
// loading.
type Loader struct {
	fileReader FileReader
}

// NewLoader creates a Loader with the given FileReader.
func NewLoader(fileReader FileReader) *Loader {
	return &Loader{fileReader: fileReader}
}

// NewDefaultLoader creates a Loader with the default file reader.
func NewDefaultLoader() *Loader {
	return NewLoader(&DefaultFileReader{})
}

// Load reads and validates the daemon config from the given path.
func (l *Loader) Load(configPath string) (*Config, error) {
	if !strings.HasSuffix(configPath, ".toml") {
		return nil, fmt.Errorf("config file must be a toml file")
	}
	body, err := l.fileReader.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := toml.Unmarshal(body, &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	cfg.applyDefaults()

	if cfg.Provider.URL == "" {
		return nil, fmt.Errorf("provider.url is required")
	}
	if len(cfg.Quoting.SupportedChains) == 0 {
		return nil, fmt.Errorf("quoting.supported_chains must not be empty")
	}

	return &cfg, nil
}
