package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/caarlos0/env/v11"
	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory configuration for pipeline artifacts.
type Paths struct {
	OutputDir string `toml:"output_dir"`
	LogDir    string `toml:"log_dir"`
	InputCSV  string `toml:"input_csv"`
	OutputCSV string `toml:"output_csv"`
}

// Platform contains configuration for the target platform API.
type Platform struct {
	RemoteTarget   string `toml:"remote_target"`
	Token          string `toml:"token"`
	RequestTimeout int    `toml:"request_timeout"`
	RetryAttempts  int    `toml:"retry_attempts"`
}

// Albums contains configuration for the third-party album store.
type Albums struct {
	Origin         string `toml:"origin"`
	LoadGameRemote bool   `toml:"load_game_remote"`
	PerPage        int    `toml:"per_page"`
}

// Media contains configuration for asset transcoding.
type Media struct {
	FFmpegBinary string `toml:"ffmpeg_binary"`
	SampleRate   int    `toml:"sample_rate"`
}

// Workflow contains execution tuning for the pipeline scheduler.
type Workflow struct {
	MaxTasks         int `toml:"max_tasks"`
	JigsBatchSize    int `toml:"jigs_batch_size"`
	ModulesBatchSize int `toml:"modules_batch_size"`
}

// Config is the root configuration object for jigpipe.
type Config struct {
	Paths    `toml:"paths"`
	Platform Platform `toml:"platform"`
	Albums   Albums   `toml:"albums"`
	Media    Media    `toml:"media"`
	Workflow Workflow `toml:"workflow"`

	LogLevel  string `toml:"log_level"`
	LogFormat string `toml:"log_format"`
	DryRun    bool   `toml:"dry_run"`
	Verbose   bool   `toml:"verbose"`
	Hidden    bool   `toml:"hidden"`
}

// envOverrides collects values that may arrive through the environment
// instead of the config file or flags.
type envOverrides struct {
	Token        string `env:"AUTH_OVERRIDE"`
	RemoteTarget string `env:"JIGPIPE_REMOTE_TARGET"`
	OutputDir    string `env:"JIGPIPE_OUTPUT_DIR"`
	LogLevel     string `env:"JIGPIPE_LOG_LEVEL"`
}

// DefaultConfigPath returns the conventional location of the config file.
func DefaultConfigPath() string {
	return filepath.Join("~", ".config", "jigpipe", "config.toml")
}

// Load reads the configuration file at path, falling back to defaults when
// the file does not exist. Environment overrides are applied last.
func Load(path string) (*Config, error) {
	cfg := Default()

	resolved, err := ExpandPath(path)
	if err != nil {
		return nil, err
	}
	if resolved != "" {
		data, readErr := os.ReadFile(resolved)
		switch {
		case readErr == nil:
			if err := toml.Unmarshal(data, &cfg); err != nil {
				return nil, fmt.Errorf("parse config %s: %w", resolved, err)
			}
		case errors.Is(readErr, fs.ErrNotExist):
			// Defaults apply when no config file is present.
		default:
			return nil, fmt.Errorf("read config %s: %w", resolved, readErr)
		}
	}

	if err := applyEnvOverrides(&cfg); err != nil {
		return nil, err
	}
	if err := cfg.normalize(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func applyEnvOverrides(cfg *Config) error {
	var overrides envOverrides
	if err := env.Parse(&overrides); err != nil {
		return fmt.Errorf("parse environment overrides: %w", err)
	}
	if overrides.Token != "" {
		cfg.Platform.Token = overrides.Token
	}
	if overrides.RemoteTarget != "" {
		cfg.Platform.RemoteTarget = overrides.RemoteTarget
	}
	if overrides.OutputDir != "" {
		cfg.OutputDir = overrides.OutputDir
	}
	if overrides.LogLevel != "" {
		cfg.LogLevel = overrides.LogLevel
	}
	return nil
}

// ExpandPath resolves a leading ~ to the current user's home directory.
func ExpandPath(path string) (string, error) {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		return "", nil
	}
	if trimmed == "~" || strings.HasPrefix(trimmed, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if trimmed == "~" {
			return home, nil
		}
		return filepath.Join(home, trimmed[2:]), nil
	}
	return trimmed, nil
}

func (c *Config) normalize() error {
	var err error
	if c.OutputDir, err = ExpandPath(c.OutputDir); err != nil {
		return err
	}
	if c.LogDir, err = ExpandPath(c.LogDir); err != nil {
		return err
	}
	if c.InputCSV, err = ExpandPath(c.InputCSV); err != nil {
		return err
	}
	if c.OutputCSV, err = ExpandPath(c.OutputCSV); err != nil {
		return err
	}
	c.Platform.RemoteTarget = strings.ToLower(strings.TrimSpace(c.Platform.RemoteTarget))
	c.Albums.Origin = strings.TrimRight(strings.TrimSpace(c.Albums.Origin), "/")
	return nil
}

// EnsureDirectories creates the directories the pipeline writes into.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.OutputDir, c.LogDir} {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %s: %w", dir, err)
		}
	}
	return nil
}

// APIBaseURL maps the remote target to the platform API origin.
func (c *Config) APIBaseURL() (string, error) {
	switch c.Platform.RemoteTarget {
	case "local":
		return "http://localhost:8080", nil
	case "sandbox":
		return "https://api.sandbox.jigzi.org", nil
	case "release":
		return "https://api.jigzi.org", nil
	default:
		return "", fmt.Errorf("unknown remote target %q", c.Platform.RemoteTarget)
	}
}

// Sample returns the embedded sample configuration file.
func Sample() string {
	return sampleConfig
}
