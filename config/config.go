// Package config loads and validates purku run configuration.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the main run configuration.
type Config struct {
	Version     string      `yaml:"version"`
	Domain      string      `yaml:"domain"`
	Accounts    []Account   `yaml:"accounts"`
	Regions     Regions     `yaml:"regions"`
	Concurrency Concurrency `yaml:"concurrency,omitempty"`
	Retry       Retry       `yaml:"retry,omitempty"`
	Protection  Protection  `yaml:"protection,omitempty"`
	Audit       Audit       `yaml:"audit,omitempty"`
	Report      Report      `yaml:"report,omitempty"`
}

// Account identifies one AWS account and how to authenticate to it.
// If AccessKey is empty the default credential chain is used.
type Account struct {
	ID           string `yaml:"id"`
	AccessKey    string `yaml:"access_key,omitempty"`
	SecretKey    string `yaml:"secret_key,omitempty"`
	SecretKeyEnv string `yaml:"secret_key_env,omitempty"`
}

// Regions describes the region universe and the operator's selection.
type Regions struct {
	Available []string  `yaml:"available"`
	Selection Selection `yaml:"selection"`
}

// Selection accepts either a scalar ("all", "1-3", "a,b,c") or an
// explicit YAML list of region names.
type Selection struct {
	Raw  string
	List []string
}

// UnmarshalYAML implements yaml.Unmarshaler.
func (s *Selection) UnmarshalYAML(value *yaml.Node) error {
	switch value.Kind {
	case yaml.ScalarNode:
		return value.Decode(&s.Raw)
	case yaml.SequenceNode:
		return value.Decode(&s.List)
	default:
		return fmt.Errorf("regions.selection must be a string or a list")
	}
}

// IsEmpty reports whether no selection was made at all.
func (s Selection) IsEmpty() bool {
	return strings.TrimSpace(s.Raw) == "" && len(s.List) == 0
}

// Concurrency bounds the two worker pools.
type Concurrency struct {
	MaxScopes  int `yaml:"max_scopes,omitempty"`
	MaxDeletes int `yaml:"max_deletes,omitempty"`
}

// Retry configures the backoff policy shared by all resource types.
type Retry struct {
	MaxAttempts int           `yaml:"max_attempts,omitempty"`
	BaseDelay   time.Duration `yaml:"base_delay,omitempty"`
	MaxDelay    time.Duration `yaml:"max_delay,omitempty"`
	Jitter      float64       `yaml:"jitter,omitempty"`
}

// Protection configures preservation rules on top of the domain's
// built-in always-preserve categories.
type Protection struct {
	Names      []string `yaml:"names,omitempty"`
	Patterns   []string `yaml:"patterns,omitempty"`
	PolicyFile string   `yaml:"policy_file,omitempty"`
}

// Audit configures the plain-text audit log.
type Audit struct {
	Dir string `yaml:"dir,omitempty"`
}

// Report configures the run report archive.
type Report struct {
	Path string `yaml:"path,omitempty"`
}

// LoadConfig loads configuration from file and applies defaults.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path) // #nosec G304 -- path is intentional user input
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Concurrency.MaxScopes <= 0 {
		c.Concurrency.MaxScopes = 3
	}
	if c.Concurrency.MaxDeletes <= 0 {
		c.Concurrency.MaxDeletes = 8
	}
	if c.Retry.MaxAttempts <= 0 {
		c.Retry.MaxAttempts = 3
	}
	if c.Retry.BaseDelay <= 0 {
		c.Retry.BaseDelay = 2 * time.Second
	}
	if c.Retry.MaxDelay <= 0 {
		c.Retry.MaxDelay = 30 * time.Second
	}
	if c.Retry.Jitter <= 0 {
		c.Retry.Jitter = 0.5
	}
	if c.Audit.Dir == "" {
		c.Audit.Dir = "./audit"
	}
	if c.Report.Path == "" {
		c.Report.Path = "./purku.db"
	}
	if len(c.Regions.Available) == 0 {
		c.Regions.Available = DefaultRegions()
	}
}

// Validate ensures config has required fields.
func (c *Config) Validate() error {
	if c.Version == "" {
		return fmt.Errorf("version is required")
	}
	if c.Domain == "" {
		return fmt.Errorf("domain is required")
	}
	for i, acct := range c.Accounts {
		if acct.ID == "" {
			return fmt.Errorf("accounts[%d]: id is required", i)
		}
		if acct.AccessKey != "" && acct.SecretKey == "" && acct.SecretKeyEnv == "" {
			return fmt.Errorf("accounts[%d]: access_key set without secret_key or secret_key_env", i)
		}
	}
	return nil
}

// DefaultRegions is the region universe used when none is configured.
func DefaultRegions() []string {
	return []string{
		"us-east-1", "us-east-2", "us-west-1", "us-west-2",
		"eu-west-1", "eu-west-2", "eu-west-3", "eu-central-1", "eu-north-1",
		"ap-southeast-1", "ap-southeast-2", "ap-northeast-1", "ap-northeast-2",
		"ap-south-1", "sa-east-1", "ca-central-1",
	}
}
