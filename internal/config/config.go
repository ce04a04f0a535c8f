// Package config loads rmtree's layered JSONC configuration.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/tailscale/hujson"

	"github.com/calvinalkan/rmtree/internal/logging"
)

// Error variables for configuration loading.
var (
	ErrConfigFileNotFound = errors.New("config file not found")
	ErrConfigFileRead     = errors.New("cannot read config file")
	ErrConfigInvalid      = errors.New("invalid config file")
	ErrDatabaseEmpty      = errors.New("database cannot be empty")
	ErrWorkersInvalid     = errors.New("workers must be at least 1")
	ErrLockTimeoutInvalid = errors.New("lock_timeout must be a positive duration")
)

// Config holds all configuration options.
type Config struct {
	// From config files (serialized)
	Database string   `json:"database"`
	Cellar   string   `json:"cellar,omitempty"`
	LogLevel string   `json:"log_level,omitempty"`
	Workers  int      `json:"workers,omitempty"`
	Ignore   []string `json:"ignore,omitempty"`

	// LockTimeout bounds the wait for the database lock, e.g. "10s".
	LockTimeout string `json:"lock_timeout,omitempty"`

	// Resolved paths (computed, not serialized)
	EffectiveCwd string `json:"-"` // Absolute working directory (from -C flag or os.Getwd)
	DatabaseAbs  string `json:"-"`
	CellarAbs    string `json:"-"` // Empty when no cellar is configured

	LockTimeoutDuration time.Duration `json:"-"`

	// Sources tracks which config files were loaded (for diagnostics)
	Sources Sources `json:"-"`
}

// Sources tracks which config files were loaded.
type Sources struct {
	Global  string // Path to global config if loaded, empty otherwise
	Project string // Path to project config if loaded, empty otherwise
}

// Default returns the default configuration.
func Default() Config {
	return Config{
		Database:    ".rmtree/installed.json",
		LogLevel:    "warn",
		Workers:     8,
		LockTimeout: "10s",
	}
}

// FileName is the default project config file name.
const FileName = ".rmtree.json"

// Environment variables consulted after config files.
const (
	EnvDatabase = "RMTREE_DATABASE"
	EnvCellar   = "RMTREE_CELLAR"
	EnvLogLevel = "RMTREE_LOG_LEVEL"
)

// globalPath returns $XDG_CONFIG_HOME/rmtree/config.json, falling back to
// ~/.config/rmtree/config.json. Empty if neither variable is set.
func globalPath(env map[string]string) string {
	if xdgConfig := env["XDG_CONFIG_HOME"]; xdgConfig != "" {
		return filepath.Join(xdgConfig, "rmtree", "config.json")
	}

	if home := env["HOME"]; home != "" {
		return filepath.Join(home, ".config", "rmtree", "config.json")
	}

	return ""
}

// Input holds the inputs for [Load].
type Input struct {
	WorkDirOverride  string            // -C/--cwd flag value; if empty, os.Getwd() is used
	ConfigPath       string            // -c/--config flag value
	DatabaseOverride string            // --database flag value; empty means no override
	Env              map[string]string // environment variables
}

// Load loads configuration with the following precedence (highest wins):
// 1. Defaults
// 2. Global user config (~/.config/rmtree/config.json or $XDG_CONFIG_HOME/rmtree/config.json)
// 3. Project config file (.rmtree.json) or the explicit -c file
// 4. RMTREE_* environment variables
// 5. CLI overrides.
//
// Ignore lists are concatenated across files rather than replaced.
func Load(input Input) (Config, error) {
	workDir := input.WorkDirOverride
	if workDir == "" {
		var err error

		workDir, err = os.Getwd()
		if err != nil {
			return Config{}, fmt.Errorf("cannot get working directory: %w", err)
		}
	} else if !filepath.IsAbs(workDir) {
		abs, err := filepath.Abs(workDir)
		if err != nil {
			return Config{}, fmt.Errorf("cannot resolve working directory: %w", err)
		}

		workDir = abs
	}

	cfg := Default()

	globalCfg, globalFile, err := loadGlobal(input.Env)
	if err != nil {
		return Config{}, err
	}

	cfg.Sources.Global = globalFile
	cfg = merge(cfg, globalCfg)

	projectCfg, projectFile, err := loadProject(workDir, input.ConfigPath)
	if err != nil {
		return Config{}, err
	}

	cfg.Sources.Project = projectFile
	cfg = merge(cfg, projectCfg)

	cfg = merge(cfg, Config{
		Database: input.Env[EnvDatabase],
		Cellar:   input.Env[EnvCellar],
		LogLevel: input.Env[EnvLogLevel],
	})

	if input.DatabaseOverride != "" {
		cfg.Database = input.DatabaseOverride
	}

	if err := validate(cfg); err != nil {
		return Config{}, err
	}

	cfg.EffectiveCwd = workDir
	cfg.LockTimeoutDuration, _ = time.ParseDuration(cfg.LockTimeout)
	cfg.DatabaseAbs = absPath(workDir, cfg.Database)

	if cfg.Cellar != "" {
		cfg.CellarAbs = absPath(workDir, cfg.Cellar)
	}

	return cfg, nil
}

func absPath(workDir, path string) string {
	if filepath.IsAbs(path) {
		return path
	}

	return filepath.Join(workDir, path)
}

func loadGlobal(env map[string]string) (Config, string, error) {
	path := globalPath(env)
	if path == "" {
		return Config{}, "", nil
	}

	cfg, explicitEmpty, loaded, err := loadFile(path, false)
	if err != nil {
		return Config{}, "", err
	}

	if !loaded {
		return Config{}, "", nil
	}

	if explicitEmpty["database"] {
		return Config{}, "", fmt.Errorf("%w %s: %w", ErrConfigInvalid, path, ErrDatabaseEmpty)
	}

	return cfg, path, nil
}

// loadProject loads .rmtree.json from workDir, or configPath when given.
// An explicit file must exist.
func loadProject(workDir, configPath string) (Config, string, error) {
	var cfgFile string

	var mustExist bool

	if configPath != "" {
		cfgFile = absPath(workDir, configPath)
		mustExist = true

		if _, statErr := os.Stat(cfgFile); statErr != nil {
			return Config{}, "", fmt.Errorf("%w: %s", ErrConfigFileNotFound, configPath)
		}
	} else {
		cfgFile = filepath.Join(workDir, FileName)
	}

	cfg, explicitEmpty, loaded, err := loadFile(cfgFile, mustExist)
	if err != nil {
		return Config{}, "", err
	}

	if !loaded {
		return Config{}, "", nil
	}

	if explicitEmpty["database"] {
		return Config{}, "", fmt.Errorf("%w %s: %w", ErrConfigInvalid, cfgFile, ErrDatabaseEmpty)
	}

	return cfg, cfgFile, nil
}

// loadFile reads a config file. Missing optional files return a zero config
// and loaded=false.
func loadFile(path string, mustExist bool) (Config, map[string]bool, bool, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) && !mustExist {
			return Config{}, nil, false, nil
		}

		if mustExist {
			return Config{}, nil, false, fmt.Errorf("%w: %s", ErrConfigFileRead, path)
		}

		return Config{}, nil, false, nil
	}

	cfg, explicitEmpty, parseErr := parse(data)
	if parseErr != nil {
		return Config{}, nil, false, fmt.Errorf("%w %s: %w", ErrConfigInvalid, path, parseErr)
	}

	return cfg, explicitEmpty, true, nil
}

func parse(data []byte) (Config, map[string]bool, error) {
	standardized, err := hujson.Standardize(data)
	if err != nil {
		return Config{}, nil, fmt.Errorf("invalid JSONC: %w", err)
	}

	var cfg Config

	if err := json.Unmarshal(standardized, &cfg); err != nil {
		return Config{}, nil, fmt.Errorf("invalid JSON: %w", err)
	}

	var raw map[string]any

	_ = json.Unmarshal(standardized, &raw)

	explicitEmpty := make(map[string]bool)

	if val, exists := raw["database"]; exists {
		if str, ok := val.(string); ok && strings.TrimSpace(str) == "" {
			explicitEmpty["database"] = true
		}
	}

	if val, exists := raw["workers"]; exists {
		if n, ok := val.(float64); ok && n < 1 {
			return Config{}, nil, ErrWorkersInvalid
		}
	}

	return cfg, explicitEmpty, nil
}

func merge(base, overlay Config) Config {
	if overlay.Database != "" {
		base.Database = overlay.Database
	}

	if overlay.Cellar != "" {
		base.Cellar = overlay.Cellar
	}

	if overlay.LogLevel != "" {
		base.LogLevel = overlay.LogLevel
	}

	if overlay.LockTimeout != "" {
		base.LockTimeout = overlay.LockTimeout
	}

	if overlay.Workers != 0 {
		base.Workers = overlay.Workers
	}

	base.Ignore = append(base.Ignore, overlay.Ignore...)

	return base
}

func validate(cfg Config) error {
	if cfg.Database == "" {
		return ErrDatabaseEmpty
	}

	if cfg.Workers < 1 {
		return ErrWorkersInvalid
	}

	if _, err := logging.ParseLevel(cfg.LogLevel); err != nil {
		return fmt.Errorf("%w: %w", ErrConfigInvalid, err)
	}

	if d, err := time.ParseDuration(cfg.LockTimeout); err != nil || d <= 0 {
		return fmt.Errorf("%w: %q", ErrLockTimeoutInvalid, cfg.LockTimeout)
	}

	return nil
}
