package loader

import (
	"log/slog"

	"github.com/bearlytools/chainstate/cache"
)

// config holds configuration for a Loader.
type config struct {
	// cache holds loaded resources. A Loader without one gets a private cache.
	cache *cache.Cache

	// concurrency bounds the sibling loads LoadFullState runs at once.
	concurrency int

	logger *slog.Logger
}

func defaultConfig() *config {
	return &config{
		concurrency: 8,
		logger:      slog.New(slog.DiscardHandler),
	}
}

// Option configures a Loader.
type Option func(*config)

// WithCache shares c with the Loader. Loaders built on the same node can share a cache.
func WithCache(c *cache.Cache) Option {
	return func(cfg *config) {
		cfg.cache = c
	}
}

// WithConcurrency sets how many sibling resources LoadFullState loads at once. Default is 8.
func WithConcurrency(n int) Option {
	return func(cfg *config) {
		cfg.concurrency = n
	}
}

// WithLogger sets the logger. Remote reads and shared loads are logged at debug level.
func WithLogger(l *slog.Logger) Option {
	return func(cfg *config) {
		if l != nil {
			cfg.logger = l
		}
	}
}
