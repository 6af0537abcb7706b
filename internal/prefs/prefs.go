// Package prefs persists the theme and settings bundle between sessions.
package prefs

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/naveenspark/murmur/pkg/domain"
)

// FileName is the preferences file inside the murmur home directory.
const FileName = "prefs.toml"

// Prefs is what survives a restart.
type Prefs struct {
	Theme    domain.Theme
	Settings domain.Settings
}

// Default returns the preferences used when nothing has been saved.
func Default() Prefs {
	return Prefs{Theme: domain.ThemeLight, Settings: domain.DefaultSettings()}
}

// file is the on-disk layout. The two top-level keys are fixed.
type file struct {
	Theme    string       `toml:"chatbot-theme"`
	Settings settingsFile `toml:"chatbot-settings"`
}

type settingsFile struct {
	Effects          *bool  `toml:"effects"`
	Sound            *bool  `toml:"sound"`
	AutoScroll       *bool  `toml:"auto_scroll"`
	TypingSimulation *bool  `toml:"typing_simulation"`
	TypingSpeedMS    *int64 `toml:"typing_speed_ms"`
	Personality      string `toml:"personality,omitempty"`
	Mood             string `toml:"mood,omitempty"`
}

// Store reads and writes a preferences file.
type Store struct {
	path string
}

// New returns a Store for path.
func New(path string) *Store {
	return &Store{path: path}
}

// DefaultPath returns ~/.murmur/prefs.toml.
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("prefs.DefaultPath: %w", err)
	}
	return filepath.Join(home, ".murmur", FileName), nil
}

// Path returns the file location.
func (s *Store) Path() string {
	return s.path
}

// Load reads the file. A missing file yields Default. Keys absent from the
// file keep their default values.
func (s *Store) Load() (Prefs, error) {
	p := Default()
	var f file
	if _, err := toml.DecodeFile(s.path, &f); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return p, nil
		}
		return p, fmt.Errorf("prefs.Load: %w", err)
	}

	switch domain.Theme(f.Theme) {
	case domain.ThemeDark, domain.ThemeLight:
		p.Theme = domain.Theme(f.Theme)
	}
	st := &p.Settings
	setBool(&st.Effects, f.Settings.Effects)
	setBool(&st.Sound, f.Settings.Sound)
	setBool(&st.AutoScroll, f.Settings.AutoScroll)
	setBool(&st.TypingSimulation, f.Settings.TypingSimulation)
	if f.Settings.TypingSpeedMS != nil {
		st.TypingSpeed = domain.ClampTypingSpeed(time.Duration(*f.Settings.TypingSpeedMS) * time.Millisecond)
	}
	st.Personality = f.Settings.Personality
	st.Mood = f.Settings.Mood
	return p, nil
}

func setBool(dst *bool, v *bool) {
	if v != nil {
		*dst = *v
	}
}

// Save writes p atomically: a temp file in the same directory is renamed over the old one.
func (s *Store) Save(p Prefs) error {
	ms := p.Settings.TypingSpeed.Milliseconds()
	f := file{
		Theme: string(p.Theme),
		Settings: settingsFile{
			Effects:          &p.Settings.Effects,
			Sound:            &p.Settings.Sound,
			AutoScroll:       &p.Settings.AutoScroll,
			TypingSimulation: &p.Settings.TypingSimulation,
			TypingSpeedMS:    &ms,
			Personality:      p.Settings.Personality,
			Mood:             p.Settings.Mood,
		},
	}
	var buf bytes.Buffer
	buf.WriteString("# murmur preferences, rewritten on every change\n\n")
	if err := toml.NewEncoder(&buf).Encode(f); err != nil {
		return fmt.Errorf("prefs.Save: encode: %w", err)
	}
	if err := writeAtomic(s.path, buf.Bytes()); err != nil {
		return fmt.Errorf("prefs.Save: %w", err)
	}
	return nil
}

func writeAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, ".prefs-*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName) //nolint:errcheck // no-op after a successful rename

	if _, err := tmp.Write(data); err != nil {
		tmp.Close() //nolint:errcheck
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close() //nolint:errcheck
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmpName, 0o600); err != nil {
		return err
	}
	return os.Rename(tmpName, path)
}
