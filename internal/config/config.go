// Package config loads speakerfilter settings from defaults, an optional
// YAML file, SPEAKERFILTER_* environment variables and command-line flags,
// in increasing order of precedence.
package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/mkguldan/speakerfilter/internal/backend"
	"github.com/mkguldan/speakerfilter/internal/notify"
)

const (
	EnvPrefix         = "SPEAKERFILTER"
	DefaultConfigName = "speakerfilter"
)

// Config holds every runtime setting.
type Config struct {
	BaseURL        string        `mapstructure:"base_url"`
	ProbePath      string        `mapstructure:"probe_path"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
	ProbeTimeout   time.Duration `mapstructure:"probe_timeout"`
	NotifyDuration time.Duration `mapstructure:"notify_duration"`
	ExportDir      string        `mapstructure:"export_dir"`
	LogFile        string        `mapstructure:"log_file"`
	Verbose        bool          `mapstructure:"verbose"`

	// ConfigFile is the file that was read, if any.
	ConfigFile string `mapstructure:"-"`
}

// flagKeys maps config keys to the flag names that override them.
var flagKeys = map[string]string{
	"base_url":        "base-url",
	"probe_path":      "probe-path",
	"request_timeout": "request-timeout",
	"probe_timeout":   "probe-timeout",
	"notify_duration": "notify-duration",
	"export_dir":      "export-dir",
	"log_file":        "log-file",
	"verbose":         "verbose",
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("base_url", backend.DefaultBaseURL)
	v.SetDefault("probe_path", backend.DefaultProbePath)
	v.SetDefault("request_timeout", 10*time.Minute)
	v.SetDefault("probe_timeout", 10*time.Second)
	v.SetDefault("notify_duration", notify.DefaultDuration)
	v.SetDefault("export_dir", ".")
	v.SetDefault("log_file", "")
	v.SetDefault("verbose", false)
}

// Load merges all configuration sources and validates the result. An
// explicitly named cfgFile must exist; otherwise speakerfilter.yaml is looked
// up in the working directory and ~/.config/speakerfilter. flags may be nil.
func Load(cfgFile string, flags *pflag.FlagSet) (Config, error) {
	var cfg Config
	v := viper.New()
	setDefaults(v)

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.SetConfigName(DefaultConfigName)
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".config", DefaultConfigName))
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) || cfgFile != "" {
			return cfg, fmt.Errorf("read config file: %w", err)
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()
	// API_URL is the variable the web frontend used for the same setting.
	if err := v.BindEnv("base_url", EnvPrefix+"_BASE_URL", "API_URL"); err != nil {
		return cfg, fmt.Errorf("bind env: %w", err)
	}

	if flags != nil {
		for key, name := range flagKeys {
			f := flags.Lookup(name)
			if f == nil {
				continue
			}
			if err := v.BindPFlag(key, f); err != nil {
				return cfg, fmt.Errorf("bind flag --%s: %w", name, err)
			}
		}
	}

	if err := v.Unmarshal(&cfg); err != nil {
		return cfg, fmt.Errorf("decode config: %w", err)
	}
	cfg.ConfigFile = v.ConfigFileUsed()

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Validate checks value ranges and the base URL.
func (c Config) Validate() error {
	u, err := url.Parse(c.BaseURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("invalid base_url %q: must be an absolute http(s) URL", c.BaseURL)
	}
	if !strings.HasPrefix(c.ProbePath, "/") {
		return fmt.Errorf("invalid probe_path %q: must start with /", c.ProbePath)
	}
	if c.RequestTimeout < 0 || c.ProbeTimeout < 0 {
		return errors.New("invalid timeout: must not be negative")
	}
	if c.NotifyDuration <= 0 {
		return fmt.Errorf("invalid notify_duration %s: must be positive", c.NotifyDuration)
	}
	return nil
}

// YAML renders the effective configuration.
func (c Config) YAML() ([]byte, error) {
	doc := struct {
		BaseURL        string `yaml:"base_url"`
		ProbePath      string `yaml:"probe_path"`
		RequestTimeout string `yaml:"request_timeout"`
		ProbeTimeout   string `yaml:"probe_timeout"`
		NotifyDuration string `yaml:"notify_duration"`
		ExportDir      string `yaml:"export_dir"`
		LogFile        string `yaml:"log_file,omitempty"`
		Verbose        bool   `yaml:"verbose"`
	}{
		BaseURL:        c.BaseURL,
		ProbePath:      c.ProbePath,
		RequestTimeout: c.RequestTimeout.String(),
		ProbeTimeout:   c.ProbeTimeout.String(),
		NotifyDuration: c.NotifyDuration.String(),
		ExportDir:      c.ExportDir,
		LogFile:        c.LogFile,
		Verbose:        c.Verbose,
	}
	out, err := yaml.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("encode config: %w", err)
	}
	return out, nil
}

// Logger builds the process logger. Output goes to LogFile when set;
// otherwise to fallback, or nowhere when fallback is nil (the TUI owns the
// terminal). The returned closer releases the log file.
func (c Config) Logger(fallback io.Writer) (*slog.Logger, io.Closer, error) {
	level := slog.LevelWarn
	if c.Verbose {
		level = slog.LevelDebug
	}

	var w io.Writer = fallback
	var closer io.Closer = nopCloser{}
	if c.LogFile != "" {
		f, err := os.OpenFile(c.LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, nil, fmt.Errorf("open log file: %w", err)
		}
		w, closer = f, f
		if !c.Verbose {
			level = slog.LevelInfo
		}
	}
	if w == nil {
		return slog.New(slog.DiscardHandler), closer, nil
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level})), closer, nil
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
