package prefs

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/naveenspark/murmur/pkg/domain"
	"github.com/stretchr/testify/require"
)

func TestLoad_MissingFileGivesDefaults(t *testing.T) {
	s := New(filepath.Join(t.TempDir(), "nope", FileName))
	p, err := s.Load()
	require.NoError(t, err)
	require.Equal(t, Default(), p)
}

func TestSaveLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sub", FileName)
	s := New(path)

	want := Prefs{
		Theme: domain.ThemeDark,
		Settings: domain.Settings{
			Effects:          false,
			Sound:            true,
			AutoScroll:       false,
			TypingSimulation: false,
			TypingSpeed:      120 * time.Millisecond,
			Mood:             "cheerful",
		},
	}
	require.NoError(t, s.Save(want))

	got, err := s.Load()
	require.NoError(t, err)
	require.Equal(t, want, got)

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Contains(t, string(raw), `chatbot-theme = "dark"`)
	require.Contains(t, string(raw), "[chatbot-settings]")

	info, err := os.Stat(path)
	require.NoError(t, err)
	require.Equal(t, os.FileMode(0o600), info.Mode().Perm())
}

func TestSave_LeavesNoTempFiles(t *testing.T) {
	dir := t.TempDir()
	s := New(filepath.Join(dir, FileName))
	require.NoError(t, s.Save(Default()))
	require.NoError(t, s.Save(Default()))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.Equal(t, FileName, entries[0].Name())
}

func TestLoad_PartialFileKeepsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), FileName)
	content := strings.Join([]string{
		`chatbot-theme = "dark"`,
		``,
		`[chatbot-settings]`,
		`sound = true`,
		`typing_speed_ms = 1`,
	}, "\n")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	p, err := New(path).Load()
	require.NoError(t, err)
	require.Equal(t, domain.ThemeDark, p.Theme)
	require.True(t, p.Settings.Sound)
	require.True(t, p.Settings.Effects)
	require.True(t, p.Settings.TypingSimulation)
	require.Equal(t, domain.MinTypingSpeed, p.Settings.TypingSpeed)
}

func TestLoad_UnknownThemeIgnored(t *testing.T) {
	path := filepath.Join(t.TempDir(), FileName)
	require.NoError(t, os.WriteFile(path, []byte(`chatbot-theme = "neon"`), 0o600))

	p, err := New(path).Load()
	require.NoError(t, err)
	require.Equal(t, domain.ThemeLight, p.Theme)
}

func TestLoad_Malformed(t *testing.T) {
	path := filepath.Join(t.TempDir(), FileName)
	require.NoError(t, os.WriteFile(path, []byte("chatbot-theme = = ="), 0o600))

	p, err := New(path).Load()
	require.Error(t, err)
	require.Equal(t, Default(), p)
}
