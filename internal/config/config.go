// Package config provides YAML-based configuration with environment
// overrides for the evaluation credential and service endpoint.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"gopkg.in/yaml.v3"
)

// AppConfig is the root configuration structure.
type AppConfig struct {
	Server     ServerConfig     `yaml:"server"`
	Evaluation EvaluationConfig `yaml:"evaluation"`
	Storage    StorageConfig    `yaml:"storage"`
	Advanced   AdvancedConfig   `yaml:"advanced"`
}

// ServerConfig contains HTTP server settings.
type ServerConfig struct {
	Port         int    `yaml:"port"`
	BindAddress  string `yaml:"bindAddress"`
	EnableCORS   bool   `yaml:"enableCors"`
	AllowOrigins string `yaml:"allowOrigins"`
	ReadTimeout  int    `yaml:"readTimeoutSeconds"`
	WriteTimeout int    `yaml:"writeTimeoutSeconds"`
	IdleTimeout  int    `yaml:"idleTimeoutSeconds"`
	BodyLimit    string `yaml:"bodyLimit"`
}

// EvaluationConfig points at the remote evaluation service. The API key is
// an opaque credential passed through as a bearer token; it is usually
// supplied via the EVAL_API_KEY environment variable rather than the file.
type EvaluationConfig struct {
	BaseURL                string `yaml:"baseUrl"`
	APIKey                 string `yaml:"apiKey"`
	User                   string `yaml:"user"`
	UploadTimeoutSeconds   int    `yaml:"uploadTimeoutSeconds"`
	WorkflowTimeoutSeconds int    `yaml:"workflowTimeoutSeconds"`
}

// StorageConfig contains local scratch settings.
type StorageConfig struct {
	TempDirectory    string `yaml:"tempDirectory"`
	EnableAuditStore bool   `yaml:"enableAuditStore"`
}

// AdvancedConfig contains tuning options.
type AdvancedConfig struct {
	EnableRequestLogging bool `yaml:"enableRequestLogging"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *AppConfig {
	return &AppConfig{
		Server: ServerConfig{
			Port:         8090,
			BindAddress:  "0.0.0.0",
			EnableCORS:   true,
			AllowOrigins: "*",
			ReadTimeout:  30,
			WriteTimeout: 30,
			IdleTimeout:  120,
			BodyLimit:    "50M",
		},
		Evaluation: EvaluationConfig{
			BaseURL:                "https://api.dify.ai",
			User:                   "compliance-checker",
			UploadTimeoutSeconds:   60,
			WorkflowTimeoutSeconds: 600,
		},
		Storage: StorageConfig{
			TempDirectory:    "./data/temp",
			EnableAuditStore: true,
		},
		Advanced: AdvancedConfig{
			EnableRequestLogging: true,
		},
	}
}

// LoadConfig loads configuration from a YAML file, creating the default on
// first run.
func LoadConfig(configPath string) (*AppConfig, error) {
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		cfg := DefaultConfig()
		if err := cfg.Save(configPath); err != nil {
			return nil, fmt.Errorf("failed to create default config: %w", err)
		}
		cfg.applyEnvironmentOverrides()
		cfg.resolvePaths(filepath.Dir(configPath))
		return cfg, nil
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	cfg.applyEnvironmentOverrides()
	cfg.resolvePaths(filepath.Dir(configPath))
	return cfg, nil
}

// Save writes the configuration to a YAML file.
func (c *AppConfig) Save(configPath string) error {
	output, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	header := []byte("# Compliance Checker configuration\n# Auto-generated on first run; environment variables override selected values.\n\n")
	if err := os.WriteFile(configPath, append(header, output...), 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// applyEnvironmentOverrides allows environment variables to override config
// values. The credential in particular should not live in the file.
func (c *AppConfig) applyEnvironmentOverrides() {
	if port := os.Getenv("PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			c.Server.Port = p
		}
	}
	if base := os.Getenv("EVAL_BASE_URL"); base != "" {
		c.Evaluation.BaseURL = base
	}
	if key := os.Getenv("EVAL_API_KEY"); key != "" {
		c.Evaluation.APIKey = key
	}
	if user := os.Getenv("EVAL_USER"); user != "" {
		c.Evaluation.User = user
	}
	if tempDir := os.Getenv("TEMP_DIR"); tempDir != "" {
		c.Storage.TempDirectory = tempDir
	}
}

// resolvePaths converts relative paths to absolute based on the config file
// location.
func (c *AppConfig) resolvePaths(configDir string) {
	if !filepath.IsAbs(c.Storage.TempDirectory) {
		c.Storage.TempDirectory = filepath.Join(configDir, c.Storage.TempDirectory)
	}
}

// GetServerAddr returns the server bind address.
func (c *AppConfig) GetServerAddr() string {
	return fmt.Sprintf("%s:%d", c.Server.BindAddress, c.Server.Port)
}

// EnsureDirectories creates the scratch directories.
func (c *AppConfig) EnsureDirectories() error {
	if err := os.MkdirAll(c.Storage.TempDirectory, 0755); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", c.Storage.TempDirectory, err)
	}
	return nil
}
