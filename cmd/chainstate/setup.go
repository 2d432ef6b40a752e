package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/bearlytools/chainstate"
	"github.com/bearlytools/chainstate/decode"
	"github.com/bearlytools/chainstate/loader"
	"github.com/bearlytools/chainstate/mapping"
	"github.com/bearlytools/chainstate/node/nodeotel"
	"github.com/bearlytools/chainstate/node/rest"
	"github.com/bearlytools/chainstate/retry"
	"github.com/bearlytools/chainstate/schema"
)

var headColor = color.New(color.FgCyan, color.Bold)

// config returns the configuration for cmd: the config file with the flags on top.
func config(cmd *cobra.Command) (Config, error) {
	path, err := cmd.Flags().GetString("config")
	if err != nil {
		return Config{}, err
	}
	cfg, err := loadConfig(path)
	if err != nil {
		return Config{}, err
	}
	if err := cfg.applyFlags(cmd); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func logger(cmd *cobra.Command) *slog.Logger {
	level := slog.LevelWarn
	if v, _ := cmd.Flags().GetBool("verbose"); v {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))
}

// registry builds the decoder registry from the built in schema and the configured files.
func registry(cfg Config) (*decode.Registry, error) {
	var extra []*mapping.Map
	for _, path := range cfg.SchemaFiles {
		maps, err := schema.LoadFile(path)
		if err != nil {
			return nil, err
		}
		extra = append(extra, maps...)
	}
	return chainstate.NewRegistry(extra...)
}

// newLoader builds the node client stack: REST, then tracing and metrics, then retries.
func newLoader(cmd *cobra.Command) (*loader.Loader, error) {
	cfg, err := config(cmd)
	if err != nil {
		return nil, err
	}
	timeout, err := cfg.timeout()
	if err != nil {
		return nil, err
	}

	opts := []rest.Option{rest.WithTimeout(timeout)}
	for k, v := range cfg.Headers {
		opts = append(opts, rest.WithHeader(k, v))
	}
	if cfg.H2C {
		opts = append(opts, rest.WithH2C())
	}
	rc, err := rest.New(cfg.NodeURL, opts...)
	if err != nil {
		return nil, err
	}
	oc, err := nodeotel.New(cmd.Context(), rc, nodeotel.DefaultConfig())
	if err != nil {
		return nil, err
	}
	policy := retry.DefaultPolicy()
	policy.MaxAttempts = cfg.RetryAttempts

	reg, err := registry(cfg)
	if err != nil {
		return nil, err
	}
	return loader.New(
		retry.NewClient(oc, policy),
		reg,
		loader.WithConcurrency(cfg.Concurrency),
		loader.WithLogger(logger(cmd)),
	)
}

// printValue writes v as indented node JSON. Loaded references are written inline.
func printValue(w io.Writer, v any) error {
	raw, err := decode.Encode(v, decode.WithInlineResources(true))
	if err != nil {
		return err
	}
	var buf bytes.Buffer
	if err := json.Indent(&buf, raw, "", "  "); err != nil {
		return err
	}
	buf.WriteByte('\n')
	_, err = w.Write(buf.Bytes())
	return err
}

// printHead writes a colored heading line.
func printHead(w io.Writer, format string, a ...any) {
	headColor.Fprintf(w, format, a...)
	fmt.Fprintln(w)
}
