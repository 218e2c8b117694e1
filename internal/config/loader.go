package config

import (
	"errors"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultConfigFile is the default configuration file name.
const DefaultConfigFile = ".citestrade"

// ErrConfigNotFound is returned when the configuration file does not exist.
var ErrConfigNotFound = errors.New("configuration file not found")

// File represents the structure of the .citestrade configuration file.
// Every field is optional; zero values leave the current setting untouched.
type File struct {
	URL             string `yaml:"url,omitempty"`
	DefaultFilename string `yaml:"defaultFilename,omitempty"`
	CacheDir        string `yaml:"cacheDir,omitempty"`
	DataDir         string `yaml:"dataDir,omitempty"`
	DatasetVersion  string `yaml:"datasetVersion,omitempty"`
	RegistryFile    string `yaml:"registry,omitempty"`
	Timeout         string `yaml:"timeout,omitempty"`
	BlockSize       int    `yaml:"blockSize,omitempty"`
	Proxy           string `yaml:"proxy,omitempty"`
	UserAgent       string `yaml:"userAgent,omitempty"`
	ReadConcurrency int    `yaml:"readConcurrency,omitempty"`
	StrictSchema    *bool  `yaml:"strictSchema,omitempty"`
}

// LoadConfigFile loads settings from a YAML file.
// If the file does not exist, it returns ErrConfigNotFound.
func LoadConfigFile(path string) (*File, error) {
	data, err := os.ReadFile(path) //nolint:gosec // User-provided config path is intentional
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrConfigNotFound
		}
		return nil, err
	}

	var cf File
	if err := yaml.Unmarshal(data, &cf); err != nil {
		return nil, err
	}
	return &cf, nil
}

// Apply overlays the non-zero settings of the file onto cfg.
func (cf *File) Apply(cfg *Config) error {
	if cf.URL != "" {
		cfg.URL = cf.URL
	}
	if cf.DefaultFilename != "" {
		cfg.DefaultFilename = cf.DefaultFilename
	}
	if cf.CacheDir != "" {
		cfg.CacheDir = cf.CacheDir
	}
	if cf.DataDir != "" {
		cfg.DataDir = cf.DataDir
	}
	if cf.DatasetVersion != "" {
		cfg.DatasetVersion = cf.DatasetVersion
	}
	if cf.RegistryFile != "" {
		cfg.RegistryFile = cf.RegistryFile
	}
	if cf.Timeout != "" {
		d, err := time.ParseDuration(cf.Timeout)
		if err != nil {
			return err
		}
		cfg.Timeout = d
	}
	if cf.BlockSize != 0 {
		cfg.BlockSize = cf.BlockSize
	}
	if cf.Proxy != "" {
		cfg.ProxyAddress = cf.Proxy
	}
	if cf.UserAgent != "" {
		cfg.UserAgent = cf.UserAgent
	}
	if cf.ReadConcurrency != 0 {
		cfg.ReadConcurrency = cf.ReadConcurrency
	}
	if cf.StrictSchema != nil {
		cfg.StrictSchema = *cf.StrictSchema
	}
	return nil
}

// FindConfigFile searches for the configuration file in the following order:
// 1. If configPath is specified, use it directly
// 2. Look for .citestrade in the current directory
// 3. Look for .citestrade in the user's home directory
//
// Returns the path to the configuration file if found, or empty string if not found.
func FindConfigFile(configPath string) string {
	if configPath != "" {
		if _, err := os.Stat(configPath); err == nil {
			return configPath
		}
		return ""
	}

	cwd, err := os.Getwd()
	if err == nil {
		cwdConfig := filepath.Join(cwd, DefaultConfigFile)
		if _, err := os.Stat(cwdConfig); err == nil {
			return cwdConfig
		}
	}

	home, err := os.UserHomeDir()
	if err == nil {
		homeConfig := filepath.Join(home, DefaultConfigFile)
		if _, err := os.Stat(homeConfig); err == nil {
			return homeConfig
		}
	}

	return ""
}
