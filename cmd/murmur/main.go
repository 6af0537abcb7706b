package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"

	"github.com/naveenspark/murmur/internal/capability"
	"github.com/naveenspark/murmur/internal/chat"
	"github.com/naveenspark/murmur/internal/config"
	"github.com/naveenspark/murmur/internal/export"
	"github.com/naveenspark/murmur/internal/logging"
	"github.com/naveenspark/murmur/internal/mirror"
	"github.com/naveenspark/murmur/internal/prefs"
	"github.com/naveenspark/murmur/internal/store"
	"github.com/naveenspark/murmur/internal/tui"
	"github.com/naveenspark/murmur/pkg/client"
	"github.com/naveenspark/murmur/pkg/domain"
)

// version is set at build time via -ldflags "-X main.version=..."
var version = "dev"

// storeDialTimeout bounds store connection attempts in headless commands.
const storeDialTimeout = 5 * time.Second

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	cmd := ""
	if len(args) > 0 {
		cmd = args[0]
	}
	switch cmd {
	case "--version", "version", "-v":
		fmt.Println("murmur " + version)
		return nil
	case "help", "--help", "-h":
		printHelp(os.Stdout)
		return nil
	case "", "export", "clear", "doctor":
	default:
		return fmt.Errorf("unknown command %q (see: murmur help)", cmd)
	}

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	logger, closeLog, err := logging.New(cfg.LogFile, cfg.LogLevel)
	if err != nil {
		return err
	}
	defer closeLog()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	switch cmd {
	case "export":
		dir := cfg.ExportDir
		if len(args) > 1 {
			dir = args[1]
		}
		return withStore(ctx, cfg, logger, func(a *mirror.Adapter) error {
			return runExport(ctx, a, cfg.Room, dir, time.Now(), os.Stdout)
		})
	case "clear":
		return withStore(ctx, cfg, logger, func(a *mirror.Adapter) error {
			return runClear(ctx, a, cfg.Room, os.Stdout)
		})
	case "doctor":
		return runDoctor(ctx, doctorChecks(cfg, logger), os.Stdout)
	}
	return runTUI(ctx, cfg, logger)
}

// withStore opens the configured store, wraps it in an adapter and closes
// it once fn returns.
func withStore(ctx context.Context, cfg config.Config, logger *zap.Logger, fn func(*mirror.Adapter) error) error {
	dialCtx, cancel := context.WithTimeout(ctx, storeDialTimeout)
	defer cancel()
	st, err := store.Open(dialCtx, cfg.StoreOptions(), logger)
	if err != nil {
		return err
	}
	defer st.Close() //nolint:errcheck
	return fn(mirror.New(st, mirror.WithLogger(logger)))
}

func runTUI(ctx context.Context, cfg config.Config, logger *zap.Logger) error {
	st, err := store.Open(ctx, cfg.StoreOptions(), logger)
	if err != nil {
		return err
	}
	defer st.Close() //nolint:errcheck

	ps, initial := loadPrefs(logger)
	caps := capability.Detect()
	timeout := cfg.HTTPTimeout.Duration

	model := chat.New(ctx, chat.Options{
		Room:        cfg.RoomInfo(),
		Mirror:      mirror.New(st, mirror.WithLogger(logger)),
		Replier:     client.New(cfg.APIURL, timeout),
		Prefs:       ps,
		Bell:        caps.Bell,
		Initial:     initial,
		Timeout:     timeout,
		MaxInputLen: cfg.MaxInputLen,
		ExportDir:   cfg.ExportDir,
		Logger:      logger,
	})
	logger.Info("session_start",
		zap.String("version", version),
		zap.String("room", cfg.Room),
		zap.String("store", cfg.Store),
		zap.String("api_url", cfg.APIURL),
	)

	p := tea.NewProgram(tui.NewApp(model, caps, version), tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("tui error: %w", err)
	}
	return nil
}

// loadPrefs reads the preferences file. A broken file falls back to the
// defaults and is overwritten on the next change.
func loadPrefs(logger *zap.Logger) (chat.PrefsSaver, prefs.Prefs) {
	path, err := prefs.DefaultPath()
	if err != nil {
		logger.Warn("prefs_unavailable", zap.Error(err))
		return nil, prefs.Default()
	}
	ps := prefs.New(path)
	p, err := ps.Load()
	if err != nil {
		logger.Warn("prefs_load_failed", zap.String("path", path), zap.Error(err))
		return ps, prefs.Default()
	}
	return ps, p
}

// loader reads a stored conversation once.
type loader interface {
	Load(ctx context.Context, roomID string) ([]domain.Message, error)
}

func runExport(ctx context.Context, l loader, room, dir string, now time.Time, out io.Writer) error {
	msgs, err := l.Load(ctx, room)
	if err != nil {
		return fmt.Errorf("export: %w", err)
	}
	a := export.Build(room, msgs, now)
	path, err := export.Write(dir, a)
	if err != nil {
		return err
	}
	printOK(out, fmt.Sprintf("exported %d messages to %s", a.MessageCount, path))
	return nil
}

type clearer interface {
	Clear(ctx context.Context, roomID string) (mirror.ClearResult, error)
}

func runClear(ctx context.Context, c clearer, room string, out io.Writer) error {
	res, err := c.Clear(ctx, room)
	if err != nil {
		printFail(out, fmt.Sprintf("%d of %d messages could not be deleted", res.Failed, res.Attempted))
		return err
	}
	printOK(out, fmt.Sprintf("cleared %d messages from %s", res.Attempted, room))
	return nil
}

// check is one doctor probe.
type check struct {
	name string
	run  func(ctx context.Context) error
}

func doctorChecks(cfg config.Config, logger *zap.Logger) []check {
	return []check{
		{"backend " + cfg.APIURL, func(ctx context.Context) error {
			return client.New(cfg.APIURL, cfg.HTTPTimeout.Duration).Ping(ctx)
		}},
		{"store " + cfg.Store, func(ctx context.Context) error {
			return withStore(ctx, cfg, logger, func(a *mirror.Adapter) error {
				_, err := a.Load(ctx, cfg.Room)
				return err
			})
		}},
		{"preferences", func(context.Context) error {
			path, err := prefs.DefaultPath()
			if err != nil {
				return err
			}
			_, err = prefs.New(path).Load()
			return err
		}},
	}
}

var errChecksFailed = errors.New("doctor: some checks failed")

func runDoctor(ctx context.Context, checks []check, out io.Writer) error {
	failed := 0
	for _, c := range checks {
		if err := c.run(ctx); err != nil {
			failed++
			printFail(out, c.name+": "+describe(err))
			continue
		}
		printOK(out, c.name)
	}
	if failed > 0 {
		return fmt.Errorf("%w (%d of %d)", errChecksFailed, failed, len(checks))
	}
	return nil
}

// describe renders err for the terminal, using the canned notice for
// refused and timed-out backend calls.
func describe(err error) string {
	if f := client.Classify(err); f != client.FailureGeneric {
		return f.Notice()
	}
	return err.Error()
}
