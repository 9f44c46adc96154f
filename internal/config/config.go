package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

const (
	defaultStateDirLinux = ".local/state/annorec"
	defaultConfigDir     = ".config/annorec"
	defaultMaxParallel   = 4
	defaultEventQueue    = 64
)

// Config holds user configuration loaded from TOML.
type Config struct {
	Logging struct {
		Level  string `toml:"level"`  // debug, info, warn, error
		Format string `toml:"format"` // text, json
		Stdout bool   `toml:"stdout"`
	} `toml:"logging"`

	Paths struct {
		StateDir   string `toml:"state_dir"`
		LogPath    string `toml:"log_path"`
		ReportDir  string `toml:"report_dir"`
		ConfigPath string `toml:"-"`
	} `toml:"paths"`

	Metrics struct {
		Enabled bool   `toml:"enabled"`
		Addr    string `toml:"addr"`
	} `toml:"metrics"`

	Run struct {
		MaxParallel int `toml:"max_parallel"`
		EventQueue  int `toml:"event_queue"`
	} `toml:"run"`

	// Interpreters maps bare interpreter names (java, python) to bundled
	// executables used when the bare name is not on PATH.
	Interpreters map[string]string `toml:"interpreters"`

	Recognizers []RecognizerConfig `toml:"recognizers"`
}

// Default returns Config populated with defaults.
func Default() (*Config, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, err
	}

	stateDir := filepath.Join(home, defaultStateDirLinux)
	// macOS prefers ~/Library/Application Support/annorec for state/logs
	if isMac() {
		stateDir = filepath.Join(home, "Library", "Application Support", "annorec")
	}

	cfg := &Config{}

	cfg.Logging.Level = "info"
	cfg.Logging.Format = "text"
	cfg.Logging.Stdout = true

	cfg.Paths.StateDir = stateDir
	cfg.Paths.LogPath = filepath.Join(stateDir, "annorec.log")
	cfg.Paths.ReportDir = filepath.Join(stateDir, "reports")

	cfg.Metrics.Enabled = false
	cfg.Metrics.Addr = "127.0.0.1:9318"

	cfg.Run.MaxParallel = defaultMaxParallel
	cfg.Run.EventQueue = defaultEventQueue

	cfg.Interpreters = map[string]string{}

	return cfg, nil
}

// Load loads config from file, applying defaults.
func Load(path string) (*Config, error) {
	cfg, err := Default()
	if err != nil {
		return nil, err
	}

	if path == "" {
		home, _ := os.UserHomeDir()
		path = filepath.Join(home, defaultConfigDir, "config.toml")
	}

	// Read if exists; otherwise write template.
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			if err := Save(cfg, path); err != nil {
				return nil, err
			}
			cfg.Paths.ConfigPath = path
			applyEnvOverrides(cfg)
			return cfg, nil
		}
		return nil, err
	}

	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	cfg.Paths.ConfigPath = path
	applyEnvOverrides(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// Save writes cfg to path.
func Save(cfg *Config, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	out, err := toml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, out, 0o600)
}

// Validate reports every inconsistent recognizer entry.
func (c *Config) Validate() error {
	var errs []error
	seen := map[string]bool{}
	for i, rc := range c.Recognizers {
		if rc.ID == "" {
			errs = append(errs, fmt.Errorf("recognizers[%d]: id is required", i))
			continue
		}
		if seen[rc.ID] {
			errs = append(errs, fmt.Errorf("recognizers[%d]: duplicate id %q", i, rc.ID))
		}
		seen[rc.ID] = true
		if rc.Bundle == "" && strings.TrimSpace(rc.RunCommand) == "" {
			errs = append(errs, fmt.Errorf("recognizer %s: run_command or bundle is required", rc.ID))
		}
		if rc.Channel < 0 || rc.Channel > 2 {
			errs = append(errs, fmt.Errorf("recognizer %s: channel %d must be 1 or 2", rc.ID, rc.Channel))
		}
		if rc.FPS < 0 {
			errs = append(errs, fmt.Errorf("recognizer %s: fps must not be negative", rc.ID))
		}
	}
	if c.Run.MaxParallel < 0 {
		errs = append(errs, errors.New("run.max_parallel must not be negative"))
	}
	return errors.Join(errs...)
}

func isMac() bool {
	return runtime.GOOS == "darwin"
}

// MustStatePaths ensures state dirs exist.
func MustStatePaths(cfg *Config) error {
	for _, p := range []string{cfg.Paths.StateDir, filepath.Dir(cfg.Paths.LogPath), cfg.Paths.ReportDir} {
		if p == "" {
			continue
		}
		if err := os.MkdirAll(p, 0o755); err != nil {
			return err
		}
	}
	return nil
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("ANNOREC_METRICS_ADDR"); v != "" {
		cfg.Metrics.Addr = v
		cfg.Metrics.Enabled = true
	}
	if v := os.Getenv("ANNOREC_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("ANNOREC_LOG_FORMAT"); v != "" {
		cfg.Logging.Format = v
	}
	if v := os.Getenv("ANNOREC_REPORT_DIR"); v != "" {
		cfg.Paths.ReportDir = v
	}
}
