package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Config holds all kaieval configuration.
type Config struct {
	// Log tree layout
	Logs LogsConfig `yaml:"logs"`

	// Analysis output indexing
	Incidents IncidentsConfig `yaml:"incidents"`

	// LLM judge
	Judge JudgeConfig `yaml:"judge"`

	// Logging
	Logging LoggingConfig `yaml:"logging"`
}

// LogsConfig describes where results and their sidecars live in a log tree.
type LogsConfig struct {
	Anchor       string `yaml:"anchor"`        // path segment preceding <model>/<app>
	ResultFile   string `yaml:"result_file"`   // leaf file name
	MetadataFile string `yaml:"metadata_file"` // sidecar in the leaf's parent directory
	ManifestFile string `yaml:"manifest_file"` // optional identity file next to the leaf
}

// IncidentsConfig filters incidents when building the per-file map.
type IncidentsConfig struct {
	ExcludedPrefixes []string `yaml:"excluded_prefixes"`
	ProjectRoot      string   `yaml:"project_root"`
}

// JudgeConfig configures the reviewing model.
type JudgeConfig struct {
	Provider    string `yaml:"provider"`
	Model       string `yaml:"model"`
	APIKey      string `yaml:"api_key"`
	Concurrency int    `yaml:"concurrency"`

	// Prompt defaults, overridable per run
	Language string `yaml:"language"`
	Source   string `yaml:"source"`
	Target   string `yaml:"target"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Logs: LogsConfig{
			Anchor:       "logs",
			ResultFile:   "llm_result",
			MetadataFile: "prompt_vars.json",
			ManifestFile: "llm_result.manifest.yaml",
		},

		Incidents: IncidentsConfig{
			ExcludedPrefixes: []string{"file:///root/.m2/"},
		},

		Judge: JudgeConfig{
			Provider:    "gemini",
			Model:       "gemini-2.5-pro",
			Concurrency: 1,
			Language:    "Java",
			Source:      "JavaEE",
			Target:      "Quarkus",
		},

		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// DefaultPath is the config file location inside a workspace.
func DefaultPath(workspace string) string {
	return filepath.Join(workspace, ".kaieval", "config.yaml")
}

// Load loads configuration from a YAML file. A missing file yields the
// defaults; environment overrides apply either way.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	} else if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.applyEnvOverrides()

	return cfg, nil
}

// Save saves configuration to a YAML file.
func (c *Config) Save(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	return nil
}

// applyEnvOverrides applies environment variable overrides.
func (c *Config) applyEnvOverrides() {
	// GEMINI_API_KEY wins over GOOGLE_API_KEY
	if key := os.Getenv("GOOGLE_API_KEY"); key != "" {
		c.Judge.APIKey = key
	}
	if key := os.Getenv("GEMINI_API_KEY"); key != "" {
		c.Judge.APIKey = key
	}
	if model := os.Getenv("KAIEVAL_JUDGE_MODEL"); model != "" {
		c.Judge.Model = model
	}
}

// ValidProviders lists the supported judge providers.
var ValidProviders = []string{"gemini"}

// Validate checks the settings every command depends on.
func (c *Config) Validate() error {
	if c.Logs.Anchor == "" || c.Logs.ResultFile == "" || c.Logs.MetadataFile == "" {
		return fmt.Errorf("logs.anchor, logs.result_file and logs.metadata_file must be set")
	}
	if c.Judge.Concurrency < 1 {
		return fmt.Errorf("judge.concurrency must be at least 1, got %d", c.Judge.Concurrency)
	}

	validProvider := false
	for _, p := range ValidProviders {
		if c.Judge.Provider == p {
			validProvider = true
			break
		}
	}
	if !validProvider {
		return fmt.Errorf("invalid judge provider: %s (valid: %v)", c.Judge.Provider, ValidProviders)
	}

	return nil
}

// ValidateJudge additionally requires credentials for the judge.
func (c *Config) ValidateJudge() error {
	if err := c.Validate(); err != nil {
		return err
	}
	if c.Judge.APIKey == "" {
		return fmt.Errorf("judge API key not configured (set GEMINI_API_KEY or GOOGLE_API_KEY)")
	}
	return nil
}
