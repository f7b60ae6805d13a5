// Package cfg loads the prkeeper configuration file.
package cfg

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/pelletier/go-toml"
)

const (
	DefGithubRepository   = "owner/name"
	DefNeedsRebaseLabel   = "Needs rebase"
	DefNeedsRebaseComment = "Needs rebase"
	DefMaxPollIterations  = 20
	DefPollInterval       = "3s"
	DefLogFormat          = "logfmt"
	DefLogTimeKey         = "time"
	DefLogLevel           = "info"
)

type Config struct {
	GithubAPIToken     string `toml:"github_api_token"`
	GithubRepository   string `toml:"github_repository"`
	DryRun             bool   `toml:"dry_run"`
	NeedsRebaseLabel   string `toml:"needs_rebase_label"`
	NeedsRebaseComment string `toml:"needs_rebase_comment"`
	PullFilterQuery    string `toml:"pull_filter_query"`
	// MaxPollIterations is a pointer to differentiate an unset value
	// from 0, 0 means unlimited.
	MaxPollIterations *int   `toml:"max_poll_iterations"`
	PollInterval      string `toml:"poll_interval"`
	LogFormat         string `toml:"log_format"`
	LogTimeKey        string `toml:"log_time_key"`
	LogLevel          string `toml:"log_level"`
	MetricsFile       string `toml:"metrics_file"`
}

// Default returns a configuration that has all fields set to their default
// values.
func Default() *Config {
	var c Config
	c.setDefaults()
	return &c
}

func (c *Config) setDefaults() {
	if c.GithubRepository == "" {
		c.GithubRepository = DefGithubRepository
	}

	if c.NeedsRebaseLabel == "" {
		c.NeedsRebaseLabel = DefNeedsRebaseLabel
	}

	if c.NeedsRebaseComment == "" {
		c.NeedsRebaseComment = DefNeedsRebaseComment
	}

	if c.MaxPollIterations == nil {
		v := DefMaxPollIterations
		c.MaxPollIterations = &v
	}

	if c.PollInterval == "" {
		c.PollInterval = DefPollInterval
	}

	if c.LogFormat == "" {
		c.LogFormat = DefLogFormat
	}

	if c.LogTimeKey == "" {
		c.LogTimeKey = DefLogTimeKey
	}

	if c.LogLevel == "" {
		c.LogLevel = DefLogLevel
	}
}

// Load reads a TOML configuration from reader.
// Unset fields are set to their default values.
func Load(reader io.Reader) (*Config, error) {
	var result Config

	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, err
	}

	if err := toml.Unmarshal(data, &result); err != nil {
		return nil, err
	}

	result.setDefaults()

	return &result, nil
}

// Repository returns the owner and name of GithubRepository.
func (c *Config) Repository() (owner, name string, err error) {
	return ParseRepository(c.GithubRepository)
}

// ParseRepository splits a repository slug in the format owner/name.
func ParseRepository(slug string) (owner, name string, err error) {
	owner, name, found := strings.Cut(slug, "/")
	if !found || owner == "" || name == "" || strings.Contains(name, "/") {
		return "", "", fmt.Errorf("invalid repository %q, expecting format owner/name", slug)
	}

	return owner, name, nil
}

// PollIntervalDuration returns PollInterval parsed as time.Duration.
func (c *Config) PollIntervalDuration() (time.Duration, error) {
	d, err := time.ParseDuration(c.PollInterval)
	if err != nil {
		return 0, fmt.Errorf("poll_interval: %w", err)
	}

	if d <= 0 {
		return 0, fmt.Errorf("poll_interval: must be positive, is: %s", d)
	}

	return d, nil
}

// Validate returns an error if the configuration contains invalid values.
func (c *Config) Validate() error {
	var errs []error

	if _, _, err := c.Repository(); err != nil {
		errs = append(errs, fmt.Errorf("github_repository: %w", err))
	}

	if _, err := c.PollIntervalDuration(); err != nil {
		errs = append(errs, err)
	}

	if c.MaxPollIterations != nil && *c.MaxPollIterations < 0 {
		errs = append(errs, fmt.Errorf("max_poll_iterations: must be >=0, is: %d", *c.MaxPollIterations))
	}

	if strings.TrimSpace(c.NeedsRebaseLabel) == "" {
		errs = append(errs, errors.New("needs_rebase_label: must not be empty"))
	}

	switch c.LogFormat {
	case "logfmt", "console", "json":
	default:
		errs = append(errs, fmt.Errorf("log_format: unsupported value: %q", c.LogFormat))
	}

	return errors.Join(errs...)
}
