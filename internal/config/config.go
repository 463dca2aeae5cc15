// Package config loads the bot's settings from a YAML file, a .env file and
// the environment, in increasing order of precedence.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Duration is a time.Duration written as "90s" or "5m" in YAML.
type Duration time.Duration

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("line %d: %w", value.Line, err)
	}
	*d = Duration(parsed)
	return nil
}

func (d Duration) MarshalYAML() (any, error) {
	return time.Duration(d).String(), nil
}

// Config holds all runtime settings.
type Config struct {
	Database string  `yaml:"database"`
	LogFile  string  `yaml:"log_file"`
	Discord  Discord `yaml:"discord"`
	Web      Web     `yaml:"web"`
	Sweep    Sweep   `yaml:"sweep"`
	NATS     NATS    `yaml:"nats"`
}

// Discord configures the chat platform connection.
type Discord struct {
	Token         string `yaml:"token"`
	Prefix        string `yaml:"prefix"`
	ProofsChannel string `yaml:"proofs_channel"`
	LogChannel    string `yaml:"log_channel"`
	Presence      string `yaml:"presence"`
}

// Web configures the read-only panel.
type Web struct {
	Addr     string   `yaml:"addr"`
	BaseURL  string   `yaml:"base_url"`
	Public   bool     `yaml:"public"`
	TokenTTL Duration `yaml:"token_ttl"`
}

// Sweep configures the expiry sweeper.
type Sweep struct {
	Interval Duration `yaml:"interval"`
}

// NATS configures the optional event stream. An empty URL disables it.
type NATS struct {
	URL     string `yaml:"url"`
	Subject string `yaml:"subject"`
}

// Default returns the built-in settings.
func Default() *Config {
	return &Config{
		Database: "rentals.sqlite3",
		Discord: Discord{
			Prefix:        "?",
			ProofsChannel: "proofs",
			LogChannel:    "rental-logs",
			Presence:      "Renting Minecraft sets",
		},
		Web: Web{
			Addr:     ":5000",
			BaseURL:  "http://localhost:5000",
			Public:   true,
			TokenTTL: Duration(24 * time.Hour),
		},
		Sweep: Sweep{Interval: Duration(time.Minute)},
		NATS:  NATS{Subject: "rentals.events"},
	}
}

// Load reads the defaults, then the YAML file at path (if path is not
// empty), then .env and the process environment.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config: %w", err)
		}
		if err := Parse(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing %s: %w", path, err)
		}
	}

	// A missing .env is fine.
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("loading .env: %w", err)
	}
	if err := cfg.ApplyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Parse decodes YAML into cfg. Unknown keys are rejected.
func Parse(data []byte, cfg *Config) error {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

// ApplyEnv overrides settings from environment variables looked up with
// lookup.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	strs := map[string]*string{
		"DISCORD_TOKEN":          &c.Discord.Token,
		"RENTALS_PREFIX":         &c.Discord.Prefix,
		"RENTALS_PROOFS_CHANNEL": &c.Discord.ProofsChannel,
		"RENTALS_LOG_CHANNEL":    &c.Discord.LogChannel,
		"RENTALS_DB":             &c.Database,
		"RENTALS_LOG_FILE":       &c.LogFile,
		"RENTALS_ADDR":           &c.Web.Addr,
		"RENTALS_BASE_URL":       &c.Web.BaseURL,
		"NATS_URL":               &c.NATS.URL,
	}
	for key, dst := range strs {
		if v, ok := lookup(key); ok && v != "" {
			*dst = v
		}
	}

	if v, ok := lookup("RENTALS_SWEEP_INTERVAL"); ok && v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("RENTALS_SWEEP_INTERVAL: %w", err)
		}
		c.Sweep.Interval = Duration(d)
	}
	if v, ok := lookup("RENTALS_PANEL_PUBLIC"); ok && v != "" {
		c.Web.Public = v == "true" || v == "1" || v == "yes"
	}
	return nil
}

// Validate checks settings every command needs.
func (c *Config) Validate() error {
	var errs []error
	if c.Database == "" {
		errs = append(errs, errors.New("database path must not be empty"))
	}
	if c.Discord.Prefix == "" {
		errs = append(errs, errors.New("command prefix must not be empty"))
	}
	if time.Duration(c.Sweep.Interval) < time.Second {
		errs = append(errs, fmt.Errorf("sweep interval %s is below 1s", time.Duration(c.Sweep.Interval)))
	}
	return errors.Join(errs...)
}
