// Package capability describes optional platform features. A nil field
// means the feature is unavailable and its affordance is hidden.
package capability

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"runtime"

	"github.com/atotto/clipboard"
)

// Clipboard copies text to the system clipboard.
type Clipboard interface {
	Copy(text string) error
}

// Opener opens a file or URL with the platform's default handler.
type Opener interface {
	Open(target string) error
}

// Bell makes an audible notification.
type Bell interface {
	Ring() error
}

// Voice captures speech as text.
type Voice interface {
	Listen(ctx context.Context) (string, error)
}

// Set holds the capabilities available in this session.
type Set struct {
	Clipboard Clipboard
	Opener    Opener
	Bell      Bell
	Voice     Voice
}

// Detect probes the current platform. Voice input has no terminal
// implementation and is always absent.
func Detect() Set {
	var s Set
	if !clipboard.Unsupported {
		s.Clipboard = systemClipboard{}
	}
	if name, _, err := openCommand(runtime.GOOS, ""); err == nil {
		if _, err := exec.LookPath(name); err == nil {
			s.Opener = systemOpener{goos: runtime.GOOS}
		}
	}
	s.Bell = TerminalBell{W: os.Stderr}
	return s
}

type systemClipboard struct{}

func (systemClipboard) Copy(text string) error {
	return clipboard.WriteAll(text)
}

type systemOpener struct {
	goos string
}

func (o systemOpener) Open(target string) error {
	name, args, err := openCommand(o.goos, target)
	if err != nil {
		return err
	}
	return exec.Command(name, args...).Start()
}

func openCommand(goos, target string) (string, []string, error) {
	switch goos {
	case "darwin":
		return "open", []string{target}, nil
	case "linux", "freebsd", "openbsd", "netbsd":
		return "xdg-open", []string{target}, nil
	case "windows":
		return "rundll32", []string{"url.dll,FileProtocolHandler", target}, nil
	default:
		return "", nil, fmt.Errorf("unsupported OS: %s", goos)
	}
}

// TerminalBell rings by writing BEL to W.
type TerminalBell struct {
	W io.Writer
}

func (b TerminalBell) Ring() error {
	_, err := io.WriteString(b.W, "\a")
	return err
}
