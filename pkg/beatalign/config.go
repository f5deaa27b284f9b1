package beatalign

import "github.com/himanishpuri/BeatAlign/pkg/beatalign/quantize"

type Config struct {
	DBPath    string
	CacheSize int
	Defaults  quantize.Options
	Logger    Logger
	Storage   Storage
}

type Option func(*Config)

func WithDBPath(path string) Option {
	return func(c *Config) {
		c.DBPath = path
	}
}

// WithCacheSize bounds the number of project timelines kept in memory.
func WithCacheSize(n int) Option {
	return func(c *Config) {
		c.CacheSize = n
	}
}

// WithDefaults sets the alignment options requests are resolved against.
func WithDefaults(opts quantize.Options) Option {
	return func(c *Config) {
		c.Defaults = opts
	}
}

func WithLogger(log Logger) Option {
	return func(c *Config) {
		c.Logger = log
	}
}

func WithStorage(storage Storage) Option {
	return func(c *Config) {
		c.Storage = storage
	}
}

func defaultConfig() *Config {
	return &Config{
		DBPath:    "beatalign.sqlite3",
		CacheSize: 128,
		Defaults:  quantize.DefaultOptions(),
	}
}
