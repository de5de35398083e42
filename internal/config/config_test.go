package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadMissingFileYieldsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)

	assert.Equal(t, Default(), cfg)
	assert.Equal(t, "smart", cfg.ReusePolicy)
	assert.True(t, cfg.KeepSessionOpen)
	assert.Equal(t, 8, cfg.MaxTerminals)
}

func TestLoadPartialFileBackfills(t *testing.T) {
	path := filepath.Join(t.TempDir(), "scriptdeck.yaml")
	body := `
script_roots:
  - /srv/scripts
reuse_policy: never
timings:
  quiet_delay: 10s
`
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, []string{"/srv/scripts"}, cfg.ScriptRoots)
	assert.Equal(t, "never", cfg.ReusePolicy)
	assert.Equal(t, 10*time.Second, cfg.Timings.QuietDelay)

	// Everything the file omits keeps its default.
	assert.Equal(t, []string{".sh"}, cfg.Extensions)
	assert.Equal(t, "/bin/sh", cfg.Shell)
	assert.Equal(t, 250*time.Millisecond, cfg.Timings.PollInterval)
	assert.Equal(t, 1500*time.Millisecond, cfg.Timings.GracePeriod)
}

func TestLoadFullFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "scriptdeck.yaml")
	body := `
script_roots: [/srv/scripts, /opt/tools]
ignore_directories: [.git, node_modules]
extensions: [.sh, .bash]
default_working_directory: /srv
reuse_policy: always
max_terminals: 4
keep_session_open: false
confirm_before_execute: true
dangerous_commands_whitelist: ["rm -rf /tmp/build"]
dangerous_commands_blacklist: ["shutdown"]
shell: /bin/bash
history:
  backend: redis
  address: localhost:6379
  db: 2
timings:
  poll_interval: 100ms
  hard_ceiling: 1h
`
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, []string{"/srv/scripts", "/opt/tools"}, cfg.ScriptRoots)
	assert.Equal(t, []string{".git", "node_modules"}, cfg.IgnoreDirectories)
	assert.Equal(t, []string{".sh", ".bash"}, cfg.Extensions)
	assert.Equal(t, "/srv", cfg.DefaultWorkingDirectory)
	assert.Equal(t, "always", cfg.ReusePolicy)
	assert.Equal(t, 4, cfg.MaxTerminals)
	assert.False(t, cfg.KeepSessionOpen)
	assert.True(t, cfg.ConfirmBeforeExecute)
	assert.Equal(t, []string{"rm -rf /tmp/build"}, cfg.Whitelist)
	assert.Equal(t, []string{"shutdown"}, cfg.Blacklist)
	assert.Equal(t, "/bin/bash", cfg.Shell)
	assert.Equal(t, "redis", cfg.History.Backend)
	assert.Equal(t, "localhost:6379", cfg.History.Address)
	assert.Equal(t, 2, cfg.History.DB)
	assert.Equal(t, 100*time.Millisecond, cfg.Timings.PollInterval)
	assert.Equal(t, time.Hour, cfg.Timings.HardCeiling)
}

func TestLoadMalformedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "scriptdeck.yaml")
	require.NoError(t, os.WriteFile(path, []byte("script_roots: {not: [a, list"), 0o644))

	_, err := Load(path)
	assert.Error(t, err)
}
