// Package config resolves murmur's settings from defaults, the config file,
// a .env file and MURMUR_* environment variables, in that order.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
	"github.com/naveenspark/murmur/internal/store"
	"github.com/naveenspark/murmur/pkg/client"
	"github.com/naveenspark/murmur/pkg/domain"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "MURMUR_"

// Duration is a time.Duration that reads "30s" style strings from TOML.
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalText(text []byte) error {
	v, err := parseDuration(string(text))
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// parseDuration accepts Go duration strings or a bare number of milliseconds.
func parseDuration(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	if ms, err := strconv.ParseInt(s, 10, 64); err == nil {
		return time.Duration(ms) * time.Millisecond, nil
	}
	return time.ParseDuration(s)
}

// Config is the resolved configuration.
type Config struct {
	APIURL        string   `toml:"api_url"`
	Room          string   `toml:"room"`
	RoomName      string   `toml:"room_name"`
	Store         string   `toml:"store"`
	RedisAddr     string   `toml:"redis_addr"`
	RedisPassword string   `toml:"redis_password"`
	RedisDB       int      `toml:"redis_db"`
	PebblePath    string   `toml:"pebble_path"`
	HTTPTimeout   Duration `toml:"http_timeout"`
	MaxInputLen   int      `toml:"max_input_len"`
	ExportDir     string   `toml:"export_dir"`
	LogFile       string   `toml:"log_file"`
	LogLevel      string   `toml:"log_level"`
}

// Dir returns ~/.murmur.
func Dir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("get home dir: %w", err)
	}
	return filepath.Join(home, ".murmur"), nil
}

// DefaultPath returns ~/.murmur/config.toml.
func DefaultPath() (string, error) {
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.toml"), nil
}

// Default returns the built-in configuration rooted at dir.
func Default(dir string) Config {
	return Config{
		APIURL:      "http://localhost:8000",
		Room:        domain.DefaultRoomID,
		Store:       store.KindPebble,
		RedisAddr:   "localhost:6379",
		PebblePath:  filepath.Join(dir, "data"),
		HTTPTimeout: Duration{client.DefaultTimeout},
		MaxInputLen: domain.MaxInputLen,
		ExportDir:   ".",
		LogFile:     filepath.Join(dir, "murmur.log"),
		LogLevel:    "info",
	}
}

// Load resolves the configuration from the default locations.
func Load() (Config, error) {
	dir, err := Dir()
	if err != nil {
		return Config{}, err
	}
	return LoadFrom(dir, filepath.Join(dir, "config.toml"), ".env")
}

// LoadFrom resolves the configuration with explicit file locations. Missing
// files are skipped. Variables from envFile never override the real environment.
func LoadFrom(dir, path, envFile string) (Config, error) {
	cfg := Default(dir)

	if path != "" {
		if _, err := toml.DecodeFile(path, &cfg); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return cfg, fmt.Errorf("config.Load: %s: %w", path, err)
		}
	}
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return cfg, fmt.Errorf("config.Load: %s: %w", envFile, err)
		}
	}
	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return cfg, fmt.Errorf("config.Load: %w", err)
	}

	cfg.PebblePath = expandHome(cfg.PebblePath)
	cfg.LogFile = expandHome(cfg.LogFile)
	cfg.ExportDir = expandHome(cfg.ExportDir)
	cfg.APIURL = strings.TrimRight(cfg.APIURL, "/")

	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("config.Load: %w", err)
	}
	return cfg, nil
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	strs := map[string]*string{
		"API_URL":        &c.APIURL,
		"ROOM":           &c.Room,
		"ROOM_NAME":      &c.RoomName,
		"STORE":          &c.Store,
		"REDIS_ADDR":     &c.RedisAddr,
		"REDIS_PASSWORD": &c.RedisPassword,
		"PEBBLE_PATH":    &c.PebblePath,
		"EXPORT_DIR":     &c.ExportDir,
		"LOG_FILE":       &c.LogFile,
		"LOG_LEVEL":      &c.LogLevel,
	}
	for key, dst := range strs {
		if v, ok := lookup(EnvPrefix + key); ok {
			*dst = v
		}
	}

	ints := map[string]*int{
		"REDIS_DB":      &c.RedisDB,
		"MAX_INPUT_LEN": &c.MaxInputLen,
	}
	for key, dst := range ints {
		v, ok := lookup(EnvPrefix + key)
		if !ok || v == "" {
			continue
		}
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("%s%s: %w", EnvPrefix, key, err)
		}
		*dst = n
	}

	if v, ok := lookup(EnvPrefix + "HTTP_TIMEOUT"); ok && v != "" {
		d, err := parseDuration(v)
		if err != nil {
			return fmt.Errorf("%sHTTP_TIMEOUT: %w", EnvPrefix, err)
		}
		c.HTTPTimeout = Duration{d}
	}
	return nil
}

// Validate reports the first invalid field.
func (c Config) Validate() error {
	switch {
	case c.APIURL == "":
		return errors.New("api_url is required")
	case !strings.HasPrefix(c.APIURL, "http://") && !strings.HasPrefix(c.APIURL, "https://"):
		return fmt.Errorf("api_url %q must start with http:// or https://", c.APIURL)
	case strings.TrimSpace(c.Room) == "":
		return errors.New("room is required")
	case c.HTTPTimeout.Duration <= 0:
		return fmt.Errorf("http_timeout must be positive, got %s", c.HTTPTimeout.Duration)
	case c.MaxInputLen <= 0:
		return fmt.Errorf("max_input_len must be positive, got %d", c.MaxInputLen)
	}
	switch c.Store {
	case store.KindMemory:
	case store.KindRedis:
		if c.RedisAddr == "" {
			return errors.New("redis_addr is required for the redis store")
		}
	case store.KindPebble:
		if c.PebblePath == "" {
			return errors.New("pebble_path is required for the pebble store")
		}
	default:
		return fmt.Errorf("unknown store %q (want memory, redis or pebble)", c.Store)
	}
	return nil
}

// StoreOptions returns the backend settings for store.Open.
func (c Config) StoreOptions() store.Options {
	return store.Options{
		Kind:          c.Store,
		RedisAddr:     c.RedisAddr,
		RedisPassword: c.RedisPassword,
		RedisDB:       c.RedisDB,
		PebblePath:    c.PebblePath,
	}
}

// RoomInfo returns the configured room.
func (c Config) RoomInfo() domain.Room {
	name := c.RoomName
	if name == "" {
		name = "AI Assistant"
	}
	return domain.Room{ID: c.Room, Name: name}
}

func expandHome(p string) string {
	if p != "~" && !strings.HasPrefix(p, "~/") {
		return p
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return p
	}
	return filepath.Join(home, strings.TrimPrefix(p, "~"))
}
