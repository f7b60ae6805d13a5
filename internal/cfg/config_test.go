package cfg

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadSetsDefaults(t *testing.T) {
	c, err := Load(strings.NewReader(`github_api_token = "abc"`))
	require.NoError(t, err)

	assert.Equal(t, "abc", c.GithubAPIToken)
	assert.Equal(t, DefGithubRepository, c.GithubRepository)
	assert.Equal(t, DefNeedsRebaseLabel, c.NeedsRebaseLabel)
	assert.Equal(t, DefNeedsRebaseComment, c.NeedsRebaseComment)
	require.NotNil(t, c.MaxPollIterations)
	assert.Equal(t, DefMaxPollIterations, *c.MaxPollIterations)
	assert.Equal(t, DefLogFormat, c.LogFormat)
	assert.Equal(t, DefLogTimeKey, c.LogTimeKey)
	assert.Equal(t, DefLogLevel, c.LogLevel)
	assert.False(t, c.DryRun)

	d, err := c.PollIntervalDuration()
	require.NoError(t, err)
	assert.Equal(t, 3*time.Second, d)

	require.NoError(t, c.Validate())
}

func TestLoad(t *testing.T) {
	c, err := Load(strings.NewReader(`
github_repository = "bitcoin/bitcoin"
dry_run = true
needs_rebase_label = "conflict"
pull_filter_query = ".draft | not"
max_poll_iterations = 0
poll_interval = "500ms"
log_format = "json"
metrics_file = "/var/lib/node_exporter/prkeeper.prom"
`))
	require.NoError(t, err)
	require.NoError(t, c.Validate())

	owner, name, err := c.Repository()
	require.NoError(t, err)
	assert.Equal(t, "bitcoin", owner)
	assert.Equal(t, "bitcoin", name)

	assert.True(t, c.DryRun)
	assert.Equal(t, "conflict", c.NeedsRebaseLabel)
	assert.Equal(t, ".draft | not", c.PullFilterQuery)
	require.NotNil(t, c.MaxPollIterations)
	assert.Equal(t, 0, *c.MaxPollIterations)
	assert.Equal(t, "json", c.LogFormat)
	assert.Equal(t, "/var/lib/node_exporter/prkeeper.prom", c.MetricsFile)

	d, err := c.PollIntervalDuration()
	require.NoError(t, err)
	assert.Equal(t, 500*time.Millisecond, d)
}

func TestLoadInvalidToml(t *testing.T) {
	_, err := Load(strings.NewReader(`github_repository = `))
	require.Error(t, err)
}

func TestValidateFails(t *testing.T) {
	testcases := map[string]func(*Config){
		"repository_without_slash": func(c *Config) { c.GithubRepository = "bitcoin" },
		"repository_empty_owner":   func(c *Config) { c.GithubRepository = "/bitcoin" },
		"repository_nested":        func(c *Config) { c.GithubRepository = "a/b/c" },
		"poll_interval_invalid":    func(c *Config) { c.PollInterval = "3 seconds" },
		"poll_interval_negative":   func(c *Config) { c.PollInterval = "-1s" },
		"max_poll_iterations":      func(c *Config) { v := -1; c.MaxPollIterations = &v },
		"needs_rebase_label":       func(c *Config) { c.NeedsRebaseLabel = " " },
		"log_format":               func(c *Config) { c.LogFormat = "xml" },
	}

	for name, modify := range testcases {
		t.Run(name, func(t *testing.T) {
			c := Default()
			modify(c)
			require.Error(t, c.Validate())
		})
	}
}
