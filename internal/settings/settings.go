// Package settings loads the questsync configuration file and supplies the
// player level at status resolution time.
package settings

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	toml "github.com/pelletier/go-toml/v2"
)

const (
	configFileName = "config.toml"

	MaxPlayerLevel       = 79
	DefaultPollInterval  = 2 * time.Second
	DefaultSnapshotKeep  = 20
	DefaultLocale        = "en"
	DefaultLogLevel      = "info"
	minPollIntervalMilli = 100
)

type Config struct {
	PlayerLevel int        `toml:"player_level"`
	CatalogPath string     `toml:"catalog_path"`
	Locale      string     `toml:"locale"`
	LogLevel    string     `toml:"log_level"`
	Sync        SyncConfig `toml:"sync"`
}

type SyncConfig struct {
	LogPaths       []string `toml:"log_paths"`
	PollIntervalMs int      `toml:"poll_interval_ms"`
	IncludeHistory bool     `toml:"include_history"`
	SnapshotKeep   int      `toml:"snapshot_keep"`
	MetricsFile    string   `toml:"metrics_file,omitempty"`
}

// PollInterval returns the log polling interval.
func (c SyncConfig) PollInterval() time.Duration {
	return time.Duration(c.PollIntervalMs) * time.Millisecond
}

// Store reads and writes the configuration file and holds the effective
// configuration: the file's values with QUESTSYNC_* environment overrides
// applied on top. It is safe for concurrent use.
type Store struct {
	dir string

	mu        sync.RWMutex
	file      Config
	effective Config
}

func NewStore(dir string) *Store {
	s := &Store{dir: dir}
	s.file = normalizeConfig(Config{})
	s.effective = ApplyEnv(s.file)
	return s
}

// DefaultDir resolves the configuration directory in priority order:
// 1. QUESTSYNC_CONFIG_DIR environment variable
// 2. $XDG_CONFIG_HOME/questsync
// 3. ~/.config/questsync
func DefaultDir() (string, error) {
	if d := os.Getenv("QUESTSYNC_CONFIG_DIR"); d != "" {
		return d, nil
	}
	base := os.Getenv("XDG_CONFIG_HOME")
	if base == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home dir: %w", err)
		}
		base = filepath.Join(home, ".config")
	}
	return filepath.Join(base, "questsync"), nil
}

// Path returns the configuration file path.
func (s *Store) Path() string {
	return filepath.Join(s.dir, configFileName)
}

// LoadOrInit reads the configuration file, writing defaults when it does
// not exist yet, and returns the effective configuration.
func (s *Store) LoadOrInit() (Config, error) {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return Config{}, err
	}

	var cfg Config
	if b, err := os.ReadFile(s.Path()); err == nil {
		if err := toml.Unmarshal(b, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse %s: %w", s.Path(), err)
		}
		cfg = normalizeConfig(cfg)
	} else if os.IsNotExist(err) {
		cfg = normalizeConfig(Config{})
		if err := writeTOMLAtomically(s.Path(), cfg); err != nil {
			return Config{}, err
		}
	} else {
		return Config{}, err
	}

	s.mu.Lock()
	s.file = cfg
	s.effective = ApplyEnv(cfg)
	eff := s.effective
	s.mu.Unlock()
	return eff, nil
}

// Save writes cfg to the configuration file.
func (s *Store) Save(cfg Config) error {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return err
	}
	cfg = normalizeConfig(cfg)
	if err := writeTOMLAtomically(s.Path(), cfg); err != nil {
		return err
	}
	s.mu.Lock()
	s.file = cfg
	s.effective = ApplyEnv(cfg)
	s.mu.Unlock()
	return nil
}

// Config returns the effective configuration.
func (s *Store) Config() Config {
	s.mu.RLock()
	defer s.mu.RUnlock()
	cfg := s.effective
	cfg.Sync.LogPaths = append([]string(nil), cfg.Sync.LogPaths...)
	return cfg
}

// PlayerLevel returns the effective player level.
func (s *Store) PlayerLevel() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.effective.PlayerLevel
}

// SetPlayerLevel stores a new player level in the configuration file.
func (s *Store) SetPlayerLevel(level int) error {
	if level < 0 || level > MaxPlayerLevel {
		return fmt.Errorf("player level %d out of range 0-%d", level, MaxPlayerLevel)
	}
	s.mu.RLock()
	cfg := s.file
	s.mu.RUnlock()
	cfg.PlayerLevel = level
	return s.Save(cfg)
}

// ApplyEnv overlays QUESTSYNC_* environment variables on cfg.
func ApplyEnv(cfg Config) Config {
	if v := os.Getenv("QUESTSYNC_PLAYER_LEVEL"); v != "" {
		if n, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
			cfg.PlayerLevel = n
		}
	}
	if v := os.Getenv("QUESTSYNC_CATALOG"); v != "" {
		cfg.CatalogPath = v
	}
	if v := os.Getenv("QUESTSYNC_LOCALE"); v != "" {
		cfg.Locale = v
	}
	if v := os.Getenv("QUESTSYNC_LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
	if v := os.Getenv("QUESTSYNC_LOG_PATHS"); v != "" {
		cfg.Sync.LogPaths = filepath.SplitList(v)
	}
	if v := os.Getenv("QUESTSYNC_METRICS_FILE"); v != "" {
		cfg.Sync.MetricsFile = v
	}
	return normalizeConfig(cfg)
}

func normalizeConfig(cfg Config) Config {
	if cfg.PlayerLevel < 0 {
		cfg.PlayerLevel = 0
	}
	if cfg.PlayerLevel > MaxPlayerLevel {
		cfg.PlayerLevel = MaxPlayerLevel
	}
	cfg.CatalogPath = strings.TrimSpace(cfg.CatalogPath)
	cfg.Locale = strings.ToLower(strings.TrimSpace(cfg.Locale))
	if cfg.Locale == "" {
		cfg.Locale = DefaultLocale
	}
	cfg.LogLevel = strings.ToLower(strings.TrimSpace(cfg.LogLevel))
	switch cfg.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		cfg.LogLevel = DefaultLogLevel
	}
	if cfg.Sync.PollIntervalMs < minPollIntervalMilli {
		cfg.Sync.PollIntervalMs = int(DefaultPollInterval / time.Millisecond)
	}
	if cfg.Sync.SnapshotKeep <= 0 {
		cfg.Sync.SnapshotKeep = DefaultSnapshotKeep
	}
	paths := cfg.Sync.LogPaths[:0:0]
	for _, p := range cfg.Sync.LogPaths {
		if p = strings.TrimSpace(p); p != "" {
			paths = append(paths, p)
		}
	}
	cfg.Sync.LogPaths = paths
	cfg.Sync.MetricsFile = strings.TrimSpace(cfg.Sync.MetricsFile)
	return cfg
}

func writeTOMLAtomically(path string, v any) error {
	b, err := toml.Marshal(v)
	if err != nil {
		return err
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, b, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}
