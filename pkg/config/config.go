// Package config loads settings for the beatalign binaries.
//
// Values are layered: built-in defaults, then an optional YAML file, then a .env
// file and the process environment. Command-line flags are applied by each binary
// on top of the result.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/himanishpuri/BeatAlign/pkg/beatalign/quantize"
)

const (
	EnvConfigPath = "BEATALIGN_CONFIG"
	EnvDBPath     = "BEATALIGN_DB_PATH"
	EnvPort       = "BEATALIGN_PORT"
	EnvOrigins    = "BEATALIGN_ORIGINS"
	EnvCacheSize  = "BEATALIGN_CACHE_SIZE"
	EnvLogLevel   = "LOG_LEVEL"
)

// DefaultFile is read from the working directory when no config path is given.
const DefaultFile = "beatalign.yaml"

type Config struct {
	DBPath         string        `yaml:"db_path" validate:"required"`
	Port           int           `yaml:"port" validate:"min=1,max=65535"`
	AllowedOrigins []string      `yaml:"allowed_origins"`
	LogLevel       string        `yaml:"log_level" validate:"omitempty,oneof=debug info warn warning error fatal DEBUG INFO WARN WARNING ERROR FATAL"`
	CacheSize      int           `yaml:"cache_size" validate:"min=1"`
	Align          AlignDefaults `yaml:"align"`
}

// AlignDefaults are the alignment parameters used when a request leaves them out.
type AlignDefaults struct {
	Mode            string  `yaml:"mode" validate:"required"`
	Swing           string  `yaml:"swing" validate:"required"`
	SwingRatio      float64 `yaml:"swing_ratio" validate:"omitempty,gte=0.5,lte=1"`
	Tolerance       float64 `yaml:"tolerance" validate:"gte=0"`
	PreserveOffGrid bool    `yaml:"preserve_off_grid"`
}

func Default() Config {
	return Config{
		DBPath:         "beatalign.sqlite3",
		Port:           8080,
		AllowedOrigins: []string{"*"},
		LogLevel:       "info",
		CacheSize:      128,
		Align: AlignDefaults{
			Mode:            quantize.Sixteenth.Value(),
			Swing:           string(quantize.SwingMedium),
			Tolerance:       0.25,
			PreserveOffGrid: true,
		},
	}
}

// Load builds a Config from defaults, the YAML file at path, envFile and the
// environment. An empty path falls back to $BEATALIGN_CONFIG, then DefaultFile.
// A missing envFile or DefaultFile is ignored.
func Load(path, envFile string) (Config, error) {
	cfg := Default()

	if err := loadEnvFile(envFile); err != nil {
		return cfg, err
	}

	explicit := true
	if path == "" {
		path = os.Getenv(EnvConfigPath)
	}
	if path == "" {
		path, explicit = DefaultFile, false
	}
	if err := mergeYAML(&cfg, path); err != nil {
		if explicit || !errors.Is(err, os.ErrNotExist) {
			return cfg, err
		}
	}

	if err := applyEnv(&cfg); err != nil {
		return cfg, err
	}
	return cfg, cfg.Validate()
}

func loadEnvFile(envFile string) error {
	if envFile == "" {
		envFile = ".env"
	}
	if _, err := os.Stat(envFile); errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err := godotenv.Load(envFile); err != nil {
		return fmt.Errorf("loading %s: %w", envFile, err)
	}
	return nil
}

func mergeYAML(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parsing config file %s: %w", path, err)
	}
	return nil
}

func applyEnv(cfg *Config) error {
	if v := os.Getenv(EnvDBPath); v != "" {
		cfg.DBPath = v
	}
	if v := os.Getenv(EnvPort); v != "" {
		port, err := strconv.Atoi(strings.TrimPrefix(v, ":"))
		if err != nil {
			return fmt.Errorf("%s: %w", EnvPort, err)
		}
		cfg.Port = port
	}
	if v := os.Getenv(EnvOrigins); v != "" {
		cfg.AllowedOrigins = SplitOrigins(v)
	}
	if v := os.Getenv(EnvCacheSize); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvCacheSize, err)
		}
		cfg.CacheSize = n
	}
	if v := os.Getenv(EnvLogLevel); v != "" {
		cfg.LogLevel = v
	}
	return nil
}

// SplitOrigins parses a comma separated CORS origin list. "*" allows every origin.
func SplitOrigins(s string) []string {
	if strings.TrimSpace(s) == "*" {
		return []string{"*"}
	}
	var origins []string
	for _, o := range strings.Split(s, ",") {
		if o = strings.TrimSpace(o); o != "" {
			origins = append(origins, o)
		}
	}
	return origins
}

func (c Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	if _, err := c.Align.Options(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}

// Options resolves the defaults into alignment options.
func (a AlignDefaults) Options() (quantize.Options, error) {
	mode, err := quantize.ParseMode(a.Mode)
	if err != nil {
		return quantize.Options{}, err
	}
	swing, err := quantize.ParseSwing(a.Swing)
	if err != nil {
		return quantize.Options{}, err
	}
	opts := quantize.Options{
		Mode:            mode,
		SwingRatio:      swing.Ratio(a.SwingRatio),
		Tolerance:       a.Tolerance,
		PreserveOffGrid: a.PreserveOffGrid,
	}
	return opts, opts.Validate()
}
