package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/pelletier/go-toml/v2"

	"github.com/justyntemme/filepane/internal/debug"
)

// Config holds all user-configurable settings loaded from config.json or
// config.toml.
type Config struct {
	Storage StorageConfig `json:"storage" toml:"storage"`
	Engine  EngineConfig  `json:"engine" toml:"engine"`
	Logging LoggingConfig `json:"logging" toml:"logging"`
	Server  ServerConfig  `json:"server" toml:"server"`
}

// StorageConfig selects and configures the namespace persistence backend.
type StorageConfig struct {
	Backend     string   `json:"backend" toml:"backend"` // "memory" | "file" | "sqlite" | "postgres" | "s3" | "remote"
	Key         string   `json:"key" toml:"key"`         // Key the namespace blob is stored under
	Path        string   `json:"path" toml:"path"`       // File or SQLite database path
	PostgresURL string   `json:"postgresUrl" toml:"postgres_url"`
	RemoteURL   string   `json:"remoteUrl" toml:"remote_url"`
	QuotaBytes  int64    `json:"quotaBytes" toml:"quota_bytes"` // Memory backend only, 0 = unlimited
	Watch       bool     `json:"watch" toml:"watch"`            // Reload when the blob file changes on disk
	S3          S3Config `json:"s3" toml:"s3"`
}

// S3Config holds S3 connection settings.
type S3Config struct {
	Endpoint  string `json:"endpoint" toml:"endpoint"`
	Bucket    string `json:"bucket" toml:"bucket"`
	Region    string `json:"region" toml:"region"`
	AccessKey string `json:"accessKey" toml:"access_key"`
	SecretKey string `json:"secretKey" toml:"secret_key"`
}

// EngineConfig holds navigation engine settings
type EngineConfig struct {
	InitialPath      string `json:"initialPath" toml:"initial_path"`
	SimulatedDelayMs int    `json:"simulatedDelayMs" toml:"simulated_delay_ms"`
	DefaultSort      string `json:"defaultSort" toml:"default_sort"` // "name" | "modified" | "size" | "type"
	SortAscending    bool   `json:"sortAscending" toml:"sort_ascending"`
	ViewMode         string `json:"viewMode" toml:"view_mode"`       // "list" | "grid"
	HistorySize      int    `json:"historySize" toml:"history_size"` // 0 = unbounded
}

// SimulatedDelay returns the per-operation delay as a duration.
func (e EngineConfig) SimulatedDelay() time.Duration {
	if e.SimulatedDelayMs < 0 {
		return 0
	}
	return time.Duration(e.SimulatedDelayMs) * time.Millisecond
}

// LoggingConfig holds structured logging settings
type LoggingConfig struct {
	Level  string `json:"level" toml:"level"`   // debug, info, warn, error
	Format string `json:"format" toml:"format"` // json, console
	Output string `json:"output" toml:"output"` // stdout, stderr, or file path
}

// ServerConfig holds settings of the HTTP store API
type ServerConfig struct {
	ListenAddr      string `json:"listenAddr" toml:"listen_addr"`
	ShutdownTimeout int    `json:"shutdownTimeoutSec" toml:"shutdown_timeout_sec"`
}

// Manager handles loading, saving, and accessing configuration
type Manager struct {
	mu       sync.RWMutex
	config   *Config
	path     string
	parseErr error // Stores parsing error if config failed to load
}

// NewManager creates a configuration manager for the file at path. An empty
// path uses ConfigPath.
func NewManager(path string) *Manager {
	if path == "" {
		path = ConfigPath()
	}
	return &Manager{
		config: DefaultConfig(),
		path:   path,
	}
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		Storage: StorageConfig{
			Backend: "file",
			Key:     "fileManagerData",
			Path:    filepath.Join(dataDir(), "namespace.json"),
			Watch:   true,
		},
		Engine: EngineConfig{
			InitialPath:      "/",
			SimulatedDelayMs: 1000,
			DefaultSort:      "name",
			SortAscending:    true,
			ViewMode:         "list",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
			Output: "stderr",
		},
		Server: ServerConfig{
			ListenAddr:      ":8080",
			ShutdownTimeout: 10,
		},
	}
}

// ConfigPath returns the config file path: ~/.config/filepane/config.json
func ConfigPath() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config", "filepane", "config.json")
}

func dataDir() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".local", "share", "filepane")
}

// Path returns the file the manager reads and writes.
func (m *Manager) Path() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.path
}

// Load reads the configuration from the config file.
// If the file doesn't exist, creates it with defaults.
// If parsing fails, stores the error and uses defaults.
// Environment overrides are applied in every case.
func (m *Manager) Load() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.parseErr = nil

	data, err := os.ReadFile(m.path)
	switch {
	case os.IsNotExist(err):
		debug.Log(debug.CONFIG, "creating default config at %s", m.path)
		m.config = DefaultConfig()
		if err := os.MkdirAll(filepath.Dir(m.path), 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
		if err := m.saveUnlocked(); err != nil {
			return fmt.Errorf("save default config: %w", err)
		}
	case err != nil:
		return fmt.Errorf("read config %s: %w", m.path, err)
	default:
		cfg := DefaultConfig()
		if err := unmarshal(m.path, data, cfg); err != nil {
			debug.Log(debug.CONFIG, "parse error in %s: %v", m.path, err)
			m.parseErr = err
			cfg = DefaultConfig()
		} else {
			debug.Log(debug.CONFIG, "loaded from %s", m.path)
		}
		m.config = cfg
	}

	applyEnv(m.config)
	return nil
}

func isTOML(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".toml")
}

func unmarshal(path string, data []byte, cfg *Config) error {
	if isTOML(path) {
		return toml.Unmarshal(data, cfg)
	}
	return json.Unmarshal(data, cfg)
}

// saveUnlocked saves config without acquiring lock (caller must hold lock)
func (m *Manager) saveUnlocked() error {
	var (
		data []byte
		err  error
	)
	if isTOML(m.path) {
		data, err = toml.Marshal(m.config)
	} else {
		data, err = json.MarshalIndent(m.config, "", "  ")
	}
	if err != nil {
		return err
	}
	return os.WriteFile(m.path, data, 0o644)
}

// Save writes the current configuration to disk
func (m *Manager) Save() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.saveUnlocked()
}

// Get returns a copy of the current configuration
func (m *Manager) Get() Config {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.config == nil {
		return *DefaultConfig()
	}
	return *m.config
}

// ParseError returns the parsing error if config failed to load
func (m *Manager) ParseError() error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.parseErr
}

// SetSort records the preferred listing order.
func (m *Manager) SetSort(field string, ascending bool) error {
	m.mu.Lock()
	m.config.Engine.DefaultSort = field
	m.config.Engine.SortAscending = ascending
	m.mu.Unlock()
	return m.Save()
}

// SetViewMode records the preferred view mode.
func (m *Manager) SetViewMode(mode string) error {
	m.mu.Lock()
	m.config.Engine.ViewMode = mode
	m.mu.Unlock()
	return m.Save()
}

// applyEnv overlays FILEPANE_* environment variables onto cfg.
func applyEnv(cfg *Config) {
	cfg.Storage.Backend = envOr("FILEPANE_STORAGE_BACKEND", cfg.Storage.Backend)
	cfg.Storage.Key = envOr("FILEPANE_STORAGE_KEY", cfg.Storage.Key)
	cfg.Storage.Path = envOr("FILEPANE_STORAGE_PATH", cfg.Storage.Path)
	cfg.Storage.PostgresURL = envOr("FILEPANE_DATABASE_URL", cfg.Storage.PostgresURL)
	cfg.Storage.RemoteURL = envOr("FILEPANE_REMOTE_URL", cfg.Storage.RemoteURL)
	cfg.Storage.QuotaBytes = envInt64("FILEPANE_STORAGE_QUOTA", cfg.Storage.QuotaBytes)
	cfg.Storage.Watch = envBool("FILEPANE_STORAGE_WATCH", cfg.Storage.Watch)
	cfg.Storage.S3.Endpoint = envOr("FILEPANE_S3_ENDPOINT", cfg.Storage.S3.Endpoint)
	cfg.Storage.S3.Bucket = envOr("FILEPANE_S3_BUCKET", cfg.Storage.S3.Bucket)
	cfg.Storage.S3.Region = envOr("FILEPANE_S3_REGION", cfg.Storage.S3.Region)
	cfg.Storage.S3.AccessKey = envOr("FILEPANE_S3_ACCESS_KEY", cfg.Storage.S3.AccessKey)
	cfg.Storage.S3.SecretKey = envOr("FILEPANE_S3_SECRET_KEY", cfg.Storage.S3.SecretKey)

	cfg.Engine.SimulatedDelayMs = int(envInt64("FILEPANE_DELAY_MS", int64(cfg.Engine.SimulatedDelayMs)))

	cfg.Logging.Level = envOr("FILEPANE_LOG_LEVEL", cfg.Logging.Level)
	cfg.Logging.Format = envOr("FILEPANE_LOG_FORMAT", cfg.Logging.Format)

	cfg.Server.ListenAddr = envOr("FILEPANE_LISTEN_ADDR", cfg.Server.ListenAddr)
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		debug.Log(debug.CONFIG, "override from %s", key)
		return v
	}
	return fallback
}

func envInt64(key string, fallback int64) int64 {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		debug.Log(debug.CONFIG, "ignoring %s=%q: %v", key, v, err)
		return fallback
	}
	return n
}

func envBool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		debug.Log(debug.CONFIG, "ignoring %s=%q: %v", key, v, err)
		return fallback
	}
	return b
}

// GenerateConfig backs up the config at path (if any) and writes a fresh
// default. It returns the backup path, or "" when nothing was backed up.
func GenerateConfig(path string) (backupPath string, err error) {
	if path == "" {
		path = ConfigPath()
	}

	if data, err := os.ReadFile(path); err == nil {
		timestamp := time.Now().Format("20060102-150405")
		ext := filepath.Ext(path)
		backupPath = strings.TrimSuffix(path, ext) + ".backup." + timestamp + ext
		if err := os.WriteFile(backupPath, data, 0o644); err != nil {
			return "", fmt.Errorf("failed to write backup: %w", err)
		}
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return backupPath, fmt.Errorf("failed to create config directory: %w", err)
	}

	m := &Manager{config: DefaultConfig(), path: path}
	if err := m.saveUnlocked(); err != nil {
		return backupPath, fmt.Errorf("failed to write config: %w", err)
	}
	return backupPath, nil
}
