package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/spf13/cobra"
)

// Config is the CLI configuration file. Flags override it.
type Config struct {
	// NodeURL is the node's REST endpoint.
	NodeURL string `toml:"node_url"`
	// Timeout bounds a single request, such as "10s".
	Timeout string `toml:"timeout"`
	// SchemaFiles are TOML schema files loaded on top of the built in declarations.
	SchemaFiles []string `toml:"schema_files"`
	// RetryAttempts is how often a read that found the node unavailable is retried.
	RetryAttempts int `toml:"retry_attempts"`
	// Concurrency bounds the sibling loads of --full.
	Concurrency int `toml:"concurrency"`
	// Headers are added to every request, such as an API key.
	Headers map[string]string `toml:"headers"`
	// H2C speaks HTTP/2 to http:// nodes.
	H2C bool `toml:"h2c"`
}

func defaultConfig() Config {
	return Config{
		NodeURL:       "https://fullnode.mainnet.aptoslabs.com",
		Timeout:       "30s",
		RetryAttempts: 3,
		Concurrency:   8,
	}
}

// loadConfig reads the config file at path on top of the defaults. An empty path returns the
// defaults.
func loadConfig(path string) (Config, error) {
	cfg := defaultConfig()
	if path == "" {
		return cfg, nil
	}
	meta, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		return Config{}, fmt.Errorf("%s: failed to parse TOML: %w", path, err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return Config{}, fmt.Errorf("%s: unknown keys: %s", path, strings.Join(keys, ", "))
	}
	return cfg, nil
}

// applyFlags overrides cfg with the persistent flags the user set.
func (c *Config) applyFlags(cmd *cobra.Command) error {
	flags := cmd.Flags()
	if flags.Changed("node") {
		v, err := flags.GetString("node")
		if err != nil {
			return err
		}
		c.NodeURL = v
	}
	if flags.Changed("timeout") {
		v, err := flags.GetDuration("timeout")
		if err != nil {
			return err
		}
		c.Timeout = v.String()
	}
	if flags.Changed("schema") {
		v, err := flags.GetStringSlice("schema")
		if err != nil {
			return err
		}
		c.SchemaFiles = append(c.SchemaFiles, v...)
	}
	if flags.Changed("retries") {
		v, err := flags.GetInt("retries")
		if err != nil {
			return err
		}
		c.RetryAttempts = v
	}
	return nil
}

func (c Config) timeout() (time.Duration, error) {
	d, err := time.ParseDuration(c.Timeout)
	if err != nil {
		return 0, fmt.Errorf("invalid timeout %q: %w", c.Timeout, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("timeout must be positive, got %s", d)
	}
	return d, nil
}
