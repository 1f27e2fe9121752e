package config

import (
	_ "embed"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

//go:embed default.yaml
var DefaultConfigYAML []byte

type Config struct {
	Jurisdiction Jurisdiction `yaml:"jurisdiction"`
	Scanner      Scanner      `yaml:"scanner"`
	Resolver     Resolver     `yaml:"resolver"`
	Summarizer   Summarizer   `yaml:"summarizer"`
	Events       Events       `yaml:"events"`
	Output       Output       `yaml:"output"`
	Server       Server       `yaml:"server"`
	Logging      Logging      `yaml:"logging"`
}

type Jurisdiction struct {
	Key   string `yaml:"key"`
	State string `yaml:"state"`
}

type Scanner struct {
	Enabled   bool     `yaml:"enabled"`
	BatchSize int      `yaml:"batch_size"`
	Statuses  []string `yaml:"statuses"`
}

type Resolver struct {
	BaseURLs     []string `yaml:"base_urls"`
	CacheHours   int      `yaml:"cache_hours"`
	ProbeTimeout int      `yaml:"probe_timeout_seconds"`
}

type Summarizer struct {
	Provider    string `yaml:"provider"`
	Model       string `yaml:"model"`
	OllamaURL   string `yaml:"ollama_url"`
	OpenAIModel string `yaml:"openai_model"`
	APIKeyEnv   string `yaml:"api_key_env"`
	MaxTokens   int    `yaml:"max_tokens"`
}

type Events struct {
	Feeds []Feed `yaml:"feeds"`
}

type Feed struct {
	URL  string `yaml:"url"`
	Name string `yaml:"name"`
}

type Output struct {
	DataDir string `yaml:"data_dir"`
}

type Server struct {
	Port          int    `yaml:"port"`
	InternalToken string `yaml:"internal_token"`
	AdminToken    string `yaml:"admin_token"`
}

type Logging struct {
	Level string `yaml:"level"`
}

// ConfigDir returns the XDG config directory for civicboard.
func ConfigDir() string {
	return filepath.Join(homeDir(), ".config", "civicboard")
}

// DataDir returns the XDG data directory for civicboard.
func DataDir() string {
	return filepath.Join(homeDir(), ".local", "share", "civicboard")
}

// ResolveConfigPath finds the config file following priority:
// explicit path > ~/.config/civicboard/config.yaml > ./config.yaml
func ResolveConfigPath(explicit string) (string, error) {
	if explicit != "" {
		if _, err := os.Stat(explicit); err != nil {
			return "", fmt.Errorf("config file not found: %s", explicit)
		}
		return explicit, nil
	}

	xdgConfig := filepath.Join(ConfigDir(), "config.yaml")
	if _, err := os.Stat(xdgConfig); err == nil {
		return xdgConfig, nil
	}

	cwdConfig := "config.yaml"
	if _, err := os.Stat(cwdConfig); err == nil {
		return cwdConfig, nil
	}

	return "", fmt.Errorf(
		"no config file found; searched:\n  %s\n  ./config.yaml\n\nRun 'civicboard init' to create a default config",
		xdgConfig,
	)
}

// Load reads and parses a config YAML file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	return parse(data)
}

// parse parses YAML bytes into a Config, applying defaults.
func parse(data []byte) (*Config, error) {
	cfg := &Config{
		Jurisdiction: Jurisdiction{
			Key:   "WY",
			State: "Wyoming",
		},
		Scanner: Scanner{
			Enabled:   false,
			BatchSize: 5,
			Statuses:  []string{"introduced", "in_committee", "engrossed"},
		},
		Resolver: Resolver{
			BaseURLs:     []string{"https://wyoleg.gov", "https://www.wyoleg.gov"},
			CacheHours:   24,
			ProbeTimeout: 10,
		},
		Summarizer: Summarizer{
			Provider:    "openai",
			Model:       "qwen2.5:7b",
			OllamaURL:   "http://localhost:11434",
			OpenAIModel: "gpt-4o",
			APIKeyEnv:   "OPENAI_API_KEY",
			MaxTokens:   500,
		},
		Server:  Server{Port: 8787},
		Logging: Logging{Level: "INFO"},
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	if cfg.Scanner.BatchSize <= 0 {
		cfg.Scanner.BatchSize = 5
	}
	if cfg.Resolver.CacheHours <= 0 {
		cfg.Resolver.CacheHours = 24
	}

	return cfg, nil
}

// GetDataDir returns the effective data directory from config or XDG default.
func (c *Config) GetDataDir() string {
	if c.Output.DataDir != "" {
		return c.Output.DataDir
	}
	return DataDir()
}

func homeDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return home
}
