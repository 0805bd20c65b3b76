package config

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/aleister1102/linkscout/internal/common"
	"gopkg.in/yaml.v3"
)

// GlobalConfig is the root of the configuration file
type GlobalConfig struct {
	LogConfig         LogConfig         `json:"log_config,omitempty" yaml:"log_config,omitempty"`
	BackgroundConfig  BackgroundConfig  `json:"background_config,omitempty" yaml:"background_config,omitempty"`
	ScannerConfig     ScannerConfig     `json:"scanner_config,omitempty" yaml:"scanner_config,omitempty"`
	PreferencesConfig PreferencesConfig `json:"preferences_config,omitempty" yaml:"preferences_config,omitempty"`
	BrowserConfig     BrowserConfig     `json:"browser_config,omitempty" yaml:"browser_config,omitempty"`
	ReporterConfig    ReporterConfig    `json:"reporter_config,omitempty" yaml:"reporter_config,omitempty"`
	MetricsConfig     MetricsConfig     `json:"metrics_config,omitempty" yaml:"metrics_config,omitempty"`
}

func NewDefaultGlobalConfig() *GlobalConfig {
	return &GlobalConfig{
		LogConfig:         NewDefaultLogConfig(),
		BackgroundConfig:  NewDefaultBackgroundConfig(),
		ScannerConfig:     NewDefaultScannerConfig(),
		PreferencesConfig: NewDefaultPreferencesConfig(),
		BrowserConfig:     NewDefaultBrowserConfig(),
		ReporterConfig:    NewDefaultReporterConfig(),
		MetricsConfig:     NewDefaultMetricsConfig(),
	}
}

// LoadGlobalConfig loads the configuration from a file or default locations.
// Values missing from the file keep their defaults. YAML is used when the file
// extension is .yaml or .yml, JSON otherwise.
func LoadGlobalConfig(providedPath string) (*GlobalConfig, error) {
	cfg := NewDefaultGlobalConfig()

	if providedPath != "" && !fileExists(providedPath) {
		return nil, common.NewValidationError("config_file", providedPath, "config file does not exist")
	}

	filePath := GetConfigPath(providedPath)
	if filePath == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, common.WrapError(err, "failed to read config file")
	}

	if err := parseConfigContent(data, filePath, cfg); err != nil {
		return nil, common.WrapError(err, "failed to parse config content")
	}

	if token := os.Getenv("LINKSCOUT_API_TOKEN"); token != "" && cfg.BackgroundConfig.APIToken == "" {
		cfg.BackgroundConfig.APIToken = token
	}

	return cfg, nil
}

// parseConfigContent parses the config content based on file extension
func parseConfigContent(data []byte, filePath string, cfg *GlobalConfig) error {
	if isYAMLFile(filepath.Ext(filePath)) {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return common.NewError("failed to unmarshal YAML from '%s': %w", filePath, err)
		}
		return nil
	}

	if err := json.Unmarshal(data, cfg); err != nil {
		return common.NewError("failed to unmarshal JSON from '%s': %w", filePath, err)
	}
	return nil
}

func isYAMLFile(ext string) bool {
	return ext == ".yaml" || ext == ".yml"
}
