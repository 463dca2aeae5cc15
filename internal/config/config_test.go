package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func lookupFrom(env map[string]string) func(string) (string, bool) {
	return func(key string) (string, bool) {
		v, ok := env[key]
		return v, ok
	}
}

func TestDefaults(t *testing.T) {
	cfg := Default()
	assert.Equal(t, "?", cfg.Discord.Prefix)
	assert.Equal(t, "proofs", cfg.Discord.ProofsChannel)
	assert.Equal(t, "rental-logs", cfg.Discord.LogChannel)
	assert.Equal(t, ":5000", cfg.Web.Addr)
	assert.Equal(t, time.Minute, time.Duration(cfg.Sweep.Interval))
	assert.NoError(t, cfg.Validate())
}

func TestParseYAML(t *testing.T) {
	cfg := Default()
	err := Parse([]byte(`
database: /var/lib/rentals/rentals.sqlite3
discord:
  prefix: "!"
  log_channel: audit
web:
  addr: 127.0.0.1:8080
  public: false
  token_ttl: 2h
sweep:
  interval: 30s
nats:
  url: nats://localhost:4222
`), cfg)
	require.NoError(t, err)

	assert.Equal(t, "/var/lib/rentals/rentals.sqlite3", cfg.Database)
	assert.Equal(t, "!", cfg.Discord.Prefix)
	assert.Equal(t, "audit", cfg.Discord.LogChannel)
	assert.Equal(t, "proofs", cfg.Discord.ProofsChannel, "unset keys keep defaults")
	assert.False(t, cfg.Web.Public)
	assert.Equal(t, 2*time.Hour, time.Duration(cfg.Web.TokenTTL))
	assert.Equal(t, 30*time.Second, time.Duration(cfg.Sweep.Interval))
	assert.Equal(t, "nats://localhost:4222", cfg.NATS.URL)
	assert.Equal(t, "rentals.events", cfg.NATS.Subject)
}

func TestParseRejectsUnknownKeys(t *testing.T) {
	err := Parse([]byte("discrod:\n  prefix: x\n"), Default())
	assert.Error(t, err)
}

func TestParseRejectsBadDuration(t *testing.T) {
	err := Parse([]byte("sweep:\n  interval: soon\n"), Default())
	assert.Error(t, err)
}

func TestParseEmptyDocument(t *testing.T) {
	cfg := Default()
	require.NoError(t, Parse(nil, cfg))
	assert.Equal(t, Default(), cfg)
}

func TestApplyEnv(t *testing.T) {
	cfg := Default()
	err := cfg.ApplyEnv(lookupFrom(map[string]string{
		"DISCORD_TOKEN":          "tok",
		"RENTALS_DB":             "other.sqlite3",
		"RENTALS_SWEEP_INTERVAL": "10s",
		"RENTALS_PANEL_PUBLIC":   "false",
		"RENTALS_PREFIX":         "",
	}))
	require.NoError(t, err)

	assert.Equal(t, "tok", cfg.Discord.Token)
	assert.Equal(t, "other.sqlite3", cfg.Database)
	assert.Equal(t, 10*time.Second, time.Duration(cfg.Sweep.Interval))
	assert.False(t, cfg.Web.Public)
	assert.Equal(t, "?", cfg.Discord.Prefix, "empty values do not override")

	err = cfg.ApplyEnv(lookupFrom(map[string]string{"RENTALS_SWEEP_INTERVAL": "often"}))
	assert.Error(t, err)
}

func TestLoadFile(t *testing.T) {
	t.Chdir(t.TempDir())
	path := filepath.Join(t.TempDir(), "rentals.yaml")
	require.NoError(t, os.WriteFile(path, []byte("discord:\n  prefix: \"$\"\n"), 0o644))
	require.NoError(t, os.WriteFile(".env", []byte("RENTALS_ADDR=:9999\n"), 0o644))
	t.Setenv("RENTALS_ADDR", "")
	os.Unsetenv("RENTALS_ADDR")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "$", cfg.Discord.Prefix)
	assert.Equal(t, ":9999", cfg.Web.Addr)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	cfg := Default()
	cfg.Discord.Prefix = ""
	cfg.Sweep.Interval = Duration(time.Millisecond)

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "prefix")
	assert.Contains(t, err.Error(), "sweep interval")
}
