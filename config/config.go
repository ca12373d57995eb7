// Package config loads the settings of the tsanalysis service and CLI from defaults, an optional
// YAML file, a .env file and TSA_ prefixed environment variables.
package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	tsanalysis "github.com/aouyang1/go-tsanalysis"
	"github.com/aouyang1/go-tsanalysis/artifact"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const EnvPrefix = "TSA"

var (
	ErrInvalidLogLevel  = errors.New("unknown log level")
	ErrInvalidLogFormat = errors.New("unknown log format")
)

type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Artifacts ArtifactsConfig `mapstructure:"artifacts"`
	Dataset   DatasetConfig   `mapstructure:"dataset"`
	Analysis  AnalysisConfig  `mapstructure:"analysis"`
	Log       LogConfig       `mapstructure:"log"`
}

type ServerConfig struct {
	Addr           string        `mapstructure:"addr"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
	MaxUploadBytes int64         `mapstructure:"max_upload_bytes"`
}

// ArtifactsConfig selects where chart pages are written. An empty Dir keeps the most recent
// MaxPages of them in memory.
type ArtifactsConfig struct {
	Dir      string `mapstructure:"dir"`
	MaxPages int    `mapstructure:"max_pages"`
}

// DatasetConfig names a file loaded lazily as the active dataset.
type DatasetConfig struct {
	Path string `mapstructure:"path"`
}

type AnalysisConfig struct {
	ParseThreshold    float64 `mapstructure:"parse_threshold"`
	EpochMillisDigits int     `mapstructure:"epoch_millis_digits"`
	DateFormat        string  `mapstructure:"date_format"`
	Horizon           int     `mapstructure:"horizon"`
	Confidence        float64 `mapstructure:"confidence"`
	MaxLag            int     `mapstructure:"max_lag"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Load reads configuration from path, which may be empty. A .env file in the working directory
// is applied to the environment first when present.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("unable to load .env file, %w", err)
	}

	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("unable to read config file %s, %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unable to decode config, %w", err)
	}
	if _, err := cfg.Options(); err != nil {
		return nil, err
	}
	if _, err := cfg.Log.slogLevel(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	def := tsanalysis.NewDefaultOptions()

	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.request_timeout", "60s")
	v.SetDefault("server.max_upload_bytes", 32<<20)

	v.SetDefault("artifacts.dir", "")
	v.SetDefault("artifacts.max_pages", artifact.DefaultMemoryPages)
	v.SetDefault("dataset.path", "")

	v.SetDefault("analysis.parse_threshold", def.ParseOptions.Threshold)
	v.SetDefault("analysis.epoch_millis_digits", def.ParseOptions.EpochMillisDigits)
	v.SetDefault("analysis.date_format", "")
	v.SetDefault("analysis.horizon", def.ForecastOptions.Horizon)
	v.SetDefault("analysis.confidence", def.ForecastOptions.Confidence)
	v.SetDefault("analysis.max_lag", def.MaxLag)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
}

// Options converts the analysis section into validated library options without a sink.
func (c *Config) Options() (*tsanalysis.Options, error) {
	opt := tsanalysis.NewDefaultOptions()
	opt.ParseOptions.Threshold = c.Analysis.ParseThreshold
	opt.ParseOptions.EpochMillisDigits = c.Analysis.EpochMillisDigits
	opt.ParseOptions.DateFormat = c.Analysis.DateFormat
	opt.ForecastOptions.Horizon = c.Analysis.Horizon
	opt.ForecastOptions.Confidence = c.Analysis.Confidence
	opt.MaxLag = c.Analysis.MaxLag
	opt, err := opt.Validate()
	if err != nil {
		return nil, fmt.Errorf("invalid analysis config, %w", err)
	}
	return opt, nil
}

// Sink builds the artifact sink described by the artifacts section.
func (c *Config) Sink() (artifact.Sink, error) {
	if c.Artifacts.Dir == "" {
		return artifact.NewMemorySink(c.Artifacts.MaxPages), nil
	}
	return artifact.NewDirSink(c.Artifacts.Dir)
}

// Logger builds a slog logger writing to w.
func (c *Config) Logger(w io.Writer) (*slog.Logger, error) {
	level, err := c.Log.slogLevel()
	if err != nil {
		return nil, err
	}
	hopt := &slog.HandlerOptions{Level: level}
	switch strings.ToLower(c.Log.Format) {
	case "", "text":
		return slog.New(slog.NewTextHandler(w, hopt)), nil
	case "json":
		return slog.New(slog.NewJSONHandler(w, hopt)), nil
	}
	return nil, fmt.Errorf("got %q, %w", c.Log.Format, ErrInvalidLogFormat)
}

func (l LogConfig) slogLevel() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(l.Level)); err != nil {
		return level, fmt.Errorf("got %q, %w", l.Level, ErrInvalidLogLevel)
	}
	return level, nil
}
