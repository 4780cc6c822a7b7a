// Package config loads client settings from a YAML file with YTDLR_* environment overrides.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"ytdl-remote/internal/filestore"
)

const (
	AppName   = "ytdl-remote"
	EnvPrefix = "YTDLR"

	DefaultServer         = "http://localhost:5000"
	DefaultPollInterval   = time.Second
	DefaultDismissDelay   = 5 * time.Second
	DefaultAlertDuration  = 5 * time.Second
	DefaultRequestTimeout = 30 * time.Second
	DefaultOutputDir      = "."
	DefaultLogLevel       = "info"
)

type Settings struct {
	Server                  string        `mapstructure:"server" yaml:"server" json:"server"`
	PollInterval            time.Duration `mapstructure:"poll_interval" yaml:"poll_interval" json:"poll_interval"`
	DismissDelay            time.Duration `mapstructure:"dismiss_delay" yaml:"dismiss_delay" json:"dismiss_delay"`
	AlertDuration           time.Duration `mapstructure:"alert_duration" yaml:"alert_duration" json:"alert_duration"`
	MaxPollDuration         time.Duration `mapstructure:"max_poll_duration" yaml:"max_poll_duration" json:"max_poll_duration"`
	RequestTimeout          time.Duration `mapstructure:"request_timeout" yaml:"request_timeout" json:"request_timeout"`
	OutputDir               string        `mapstructure:"output_dir" yaml:"output_dir" json:"output_dir"`
	HistoryPath             string        `mapstructure:"history_path" yaml:"history_path" json:"history_path"`
	LogFile                 string        `mapstructure:"log_file" yaml:"log_file" json:"log_file"`
	LogLevel                string        `mapstructure:"log_level" yaml:"log_level" json:"log_level"`
	SurfaceModeChangeErrors bool          `mapstructure:"surface_mode_change_errors" yaml:"surface_mode_change_errors" json:"surface_mode_change_errors"`
}

// Dir is the per-user directory holding the config file, history database and log.
func Dir() string {
	base, err := os.UserConfigDir()
	if err != nil || strings.TrimSpace(base) == "" {
		return filepath.Join(".", "."+AppName)
	}
	return filepath.Join(base, AppName)
}

func DefaultPath() string {
	return filepath.Join(Dir(), "config.yaml")
}

func Defaults() Settings {
	dir := Dir()
	return Settings{
		Server:          DefaultServer,
		PollInterval:    DefaultPollInterval,
		DismissDelay:    DefaultDismissDelay,
		AlertDuration:   DefaultAlertDuration,
		MaxPollDuration: 0,
		RequestTimeout:  DefaultRequestTimeout,
		OutputDir:       DefaultOutputDir,
		HistoryPath:     filepath.Join(dir, "history.db"),
		LogFile:         filepath.Join(dir, AppName+".log"),
		LogLevel:        DefaultLogLevel,
	}
}

func Normalize(raw Settings) Settings {
	def := Defaults()
	norm := raw
	norm.Server = strings.TrimSpace(norm.Server)
	if norm.Server == "" {
		norm.Server = def.Server
	}
	if norm.PollInterval <= 0 {
		norm.PollInterval = def.PollInterval
	}
	if norm.DismissDelay <= 0 {
		norm.DismissDelay = def.DismissDelay
	}
	if norm.AlertDuration <= 0 {
		norm.AlertDuration = def.AlertDuration
	}
	if norm.MaxPollDuration < 0 {
		norm.MaxPollDuration = 0
	}
	if norm.RequestTimeout <= 0 {
		norm.RequestTimeout = def.RequestTimeout
	}
	norm.OutputDir = strings.TrimSpace(norm.OutputDir)
	if norm.OutputDir == "" {
		norm.OutputDir = def.OutputDir
	}
	norm.HistoryPath = strings.TrimSpace(norm.HistoryPath)
	norm.LogFile = strings.TrimSpace(norm.LogFile)
	norm.LogLevel = normalizeLogLevel(norm.LogLevel)
	return norm
}

func normalizeLogLevel(raw string) string {
	switch v := strings.ToLower(strings.TrimSpace(raw)); v {
	case "trace", "debug", "info", "error", "fatal", "panic":
		return v
	case "warn", "warning":
		return "warn"
	default:
		return DefaultLogLevel
	}
}

// Load reads path (or DefaultPath when empty) and applies environment overrides. A missing
// file is not an error; the defaults are used instead.
func Load(path string) (Settings, string, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		path = DefaultPath()
	}

	v := viper.New()
	setDefaults(v, Defaults())
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	if err := v.ReadInConfig(); err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			return Settings{}, path, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	var s Settings
	if err := v.Unmarshal(&s); err != nil {
		return Settings{}, path, fmt.Errorf("decode config %s: %w", path, err)
	}
	return Normalize(s), path, nil
}

func setDefaults(v *viper.Viper, def Settings) {
	v.SetDefault("server", def.Server)
	v.SetDefault("poll_interval", def.PollInterval)
	v.SetDefault("dismiss_delay", def.DismissDelay)
	v.SetDefault("alert_duration", def.AlertDuration)
	v.SetDefault("max_poll_duration", def.MaxPollDuration)
	v.SetDefault("request_timeout", def.RequestTimeout)
	v.SetDefault("output_dir", def.OutputDir)
	v.SetDefault("history_path", def.HistoryPath)
	v.SetDefault("log_file", def.LogFile)
	v.SetDefault("log_level", def.LogLevel)
	v.SetDefault("surface_mode_change_errors", def.SurfaceModeChangeErrors)
}

// WriteDefault writes the default settings to path. An existing file is kept unless force
// is set.
func WriteDefault(path string, force bool) (string, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		path = DefaultPath()
	}
	if !force {
		if _, err := os.Stat(path); err == nil {
			return path, fmt.Errorf("config already exists: %s (use --force to overwrite)", path)
		}
	}
	data, err := yaml.Marshal(Defaults())
	if err != nil {
		return path, fmt.Errorf("marshal default config: %w", err)
	}
	if err := filestore.WriteBytes(path, data); err != nil {
		return path, err
	}
	return path, nil
}
