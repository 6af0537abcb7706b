package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
}

func TestLoadFrom_Defaults(t *testing.T) {
	dir := t.TempDir()
	cfg, err := LoadFrom(dir, filepath.Join(dir, "missing.toml"), filepath.Join(dir, "missing.env"))
	if err != nil {
		t.Fatalf("LoadFrom() error: %v", err)
	}
	if cfg.APIURL != "http://localhost:8000" {
		t.Errorf("APIURL = %q, want %q", cfg.APIURL, "http://localhost:8000")
	}
	if cfg.Room != "default-chat" {
		t.Errorf("Room = %q, want %q", cfg.Room, "default-chat")
	}
	if cfg.Store != "pebble" {
		t.Errorf("Store = %q, want %q", cfg.Store, "pebble")
	}
	if cfg.HTTPTimeout.Duration != 30*time.Second {
		t.Errorf("HTTPTimeout = %v, want 30s", cfg.HTTPTimeout.Duration)
	}
	if cfg.MaxInputLen != 1000 {
		t.Errorf("MaxInputLen = %d, want 1000", cfg.MaxInputLen)
	}
	if cfg.PebblePath != filepath.Join(dir, "data") {
		t.Errorf("PebblePath = %q, want %q", cfg.PebblePath, filepath.Join(dir, "data"))
	}
}

func TestLoadFrom_Precedence(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	writeFile(t, path, strings.Join([]string{
		`api_url = "http://file:9000/"`,
		`room = "file-room"`,
		`store = "memory"`,
		`http_timeout = "5s"`,
	}, "\n"))
	envFile := filepath.Join(dir, ".env")
	writeFile(t, envFile, "MURMUR_ROOM=dotenv-room\nMURMUR_ROOM_NAME=Dotenv\n")

	t.Setenv("MURMUR_ROOM_NAME", "Env Name")
	t.Setenv("MURMUR_HTTP_TIMEOUT", "1500")
	t.Setenv("MURMUR_ROOM", "")
	os.Unsetenv("MURMUR_ROOM") //nolint:errcheck // restored by t.Setenv cleanup

	cfg, err := LoadFrom(dir, path, envFile)
	if err != nil {
		t.Fatalf("LoadFrom() error: %v", err)
	}
	if cfg.APIURL != "http://file:9000" {
		t.Errorf("APIURL = %q, want file value without trailing slash", cfg.APIURL)
	}
	if cfg.Room != "dotenv-room" {
		t.Errorf("Room = %q, want %q (from .env)", cfg.Room, "dotenv-room")
	}
	if cfg.RoomName != "Env Name" {
		t.Errorf("RoomName = %q, want %q (env beats .env)", cfg.RoomName, "Env Name")
	}
	if cfg.HTTPTimeout.Duration != 1500*time.Millisecond {
		t.Errorf("HTTPTimeout = %v, want 1.5s", cfg.HTTPTimeout.Duration)
	}
	if cfg.Store != "memory" {
		t.Errorf("Store = %q, want memory", cfg.Store)
	}
}

func TestLoadFrom_BadEnvInt(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("MURMUR_MAX_INPUT_LEN", "lots")
	if _, err := LoadFrom(dir, "", ""); err == nil {
		t.Fatal("expected error for non-numeric MURMUR_MAX_INPUT_LEN")
	}
}

func TestLoadFrom_MalformedFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	writeFile(t, path, "room = = nope")
	if _, err := LoadFrom(dir, path, ""); err == nil {
		t.Fatal("expected error for malformed TOML")
	}
}

func TestValidate(t *testing.T) {
	base := Default("/tmp/murmur")
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"defaults", func(*Config) {}, false},
		{"memory", func(c *Config) { c.Store = "memory" }, false},
		{"unknown store", func(c *Config) { c.Store = "sqlite" }, true},
		{"redis without addr", func(c *Config) { c.Store = "redis"; c.RedisAddr = "" }, true},
		{"zero timeout", func(c *Config) { c.HTTPTimeout = Duration{0} }, true},
		{"negative max input", func(c *Config) { c.MaxInputLen = -1 }, true},
		{"blank room", func(c *Config) { c.Room = "  " }, true},
		{"bad scheme", func(c *Config) { c.APIURL = "localhost:8000" }, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := base
			tt.mutate(&c)
			err := c.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestStoreOptions(t *testing.T) {
	c := Default("/tmp/murmur")
	c.Store = "redis"
	c.RedisAddr = "cache:6379"
	c.RedisDB = 2
	opts := c.StoreOptions()
	if opts.Kind != "redis" || opts.RedisAddr != "cache:6379" || opts.RedisDB != 2 {
		t.Errorf("StoreOptions() = %+v", opts)
	}
}

func TestRoomInfo(t *testing.T) {
	c := Default("/tmp/murmur")
	if got := c.RoomInfo().Name; got != "AI Assistant" {
		t.Errorf("RoomInfo().Name = %q, want %q", got, "AI Assistant")
	}
	c.RoomName = "Lounge"
	if got := c.RoomInfo().DisplayName(); got != "Lounge" {
		t.Errorf("RoomInfo().DisplayName() = %q, want %q", got, "Lounge")
	}
}

func TestParseDuration(t *testing.T) {
	tests := []struct {
		in   string
		want time.Duration
	}{
		{"30000", 30 * time.Second},
		{"45s", 45 * time.Second},
		{" 2m ", 2 * time.Minute},
	}
	for _, tt := range tests {
		got, err := parseDuration(tt.in)
		if err != nil {
			t.Fatalf("parseDuration(%q) error: %v", tt.in, err)
		}
		if got != tt.want {
			t.Errorf("parseDuration(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}
