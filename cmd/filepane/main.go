package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/term"

	"github.com/justyntemme/filepane/internal/app"
	"github.com/justyntemme/filepane/internal/config"
	"github.com/justyntemme/filepane/internal/debug"
	"github.com/justyntemme/filepane/internal/fs"
	"github.com/justyntemme/filepane/internal/logging"
	"github.com/justyntemme/filepane/internal/notify"
	"github.com/justyntemme/filepane/internal/server"
	"github.com/justyntemme/filepane/internal/store"
)

func main() {
	configPath := flag.String("config", "", "Path to config file (default ~/.config/filepane/config.json)")
	debugFlag := flag.Bool("debug", false, "Enable verbose debug logging")
	serve := flag.Bool("serve", false, "Serve the namespace store over HTTP instead of starting the shell")
	listen := flag.String("listen", "", "Listen address for -serve, overrides the config file")
	delay := flag.Int("delay", -1, "Simulated latency in milliseconds, overrides the config file")
	genConfig := flag.Bool("generate-config", false, "Write a default config file and exit")
	flag.Parse()

	if err := run(*configPath, *debugFlag, *serve, *listen, *delay, *genConfig); err != nil {
		fmt.Fprintf(os.Stderr, "filepane: %v\n", err)
		os.Exit(1)
	}
}

func run(configPath string, debugMode, serve bool, listen string, delayMs int, genConfig bool) error {
	mgr := config.NewManager(configPath)

	if genConfig {
		backup, err := config.GenerateConfig(mgr.Path())
		if err != nil {
			return err
		}
		fmt.Printf("Wrote %s\n", mgr.Path())
		if backup != "" {
			fmt.Printf("Previous config saved as %s\n", backup)
		}
		return nil
	}

	if err := mgr.Load(); err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	cfg := mgr.Get()

	level := cfg.Logging.Level
	if debugMode {
		level = "debug"
		debug.EnableAll()
	}
	if err := logging.Init(logging.Config{
		Level:      level,
		Format:     cfg.Logging.Format,
		OutputPath: cfg.Logging.Output,
	}); err != nil {
		return err
	}
	defer logging.Sync()

	if err := mgr.ParseError(); err != nil {
		logging.Warn("config file could not be parsed, using defaults",
			logging.String("path", mgr.Path()), logging.Err(err))
	}
	if delayMs >= 0 {
		cfg.Engine.SimulatedDelayMs = delayMs
	}
	if listen != "" {
		cfg.Server.ListenAddr = listen
	}
	logging.Debug("configuration ready",
		logging.String("config", mgr.Path()),
		logging.Int("delay_ms", cfg.Engine.SimulatedDelayMs),
		logging.Bool("serve", serve))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	st, err := store.Open(ctx, cfg.Storage)
	if err != nil {
		return err
	}
	defer st.Close()

	if serve {
		if _, ok := st.(*store.Remote); ok {
			return errors.New("cannot serve a remote store, pick a local backend")
		}
		if err := st.EnsureInitialized(ctx); err != nil {
			return err
		}
		timeout := time.Duration(cfg.Server.ShutdownTimeout) * time.Second
		return server.New(st).ListenAndServe(ctx, cfg.Server.ListenAddr, timeout)
	}
	return runShell(ctx, mgr, cfg, st)
}

func runShell(ctx context.Context, mgr *config.Manager, cfg config.Config, st store.Store) error {
	sortField, err := fs.ParseSortField(cfg.Engine.DefaultSort)
	if err != nil {
		logging.Warn("unknown default sort, using name", logging.Err(err))
	}

	fd := int(os.Stdin.Fd())
	interactive := term.IsTerminal(fd)

	toast := notify.NewToast()
	var notifier notify.Notifier = toast
	if !interactive {
		notifier = notify.Multi{toast, notify.Log{}}
	}

	engine := app.New(st, app.Options{
		InitialPath:   cfg.Engine.InitialPath,
		Delay:         cfg.Engine.SimulatedDelay(),
		SortField:     sortField,
		SortAscending: cfg.Engine.SortAscending,
		ViewMode:      app.ParseViewMode(cfg.Engine.ViewMode),
		HistorySize:   cfg.Engine.HistorySize,
		Notifier:      notifier,
	})

	if cfg.Storage.Watch {
		if ks, ok := st.(*store.KeyStore); ok {
			if f, ok := ks.Medium().(*store.File); ok {
				w, err := store.NewWatcher(f.Path(), 0)
				if err != nil {
					logging.Warn("cannot watch namespace file", logging.String("path", f.Path()), logging.Err(err))
				} else {
					defer w.Close()
					go engine.Follow(ctx, w.Notify(), ks)
				}
			}
		}
	}

	if err := engine.Start(ctx); err != nil {
		// The shell stays usable; refresh retries.
		logging.Error("initial load failed", logging.Err(err))
		fmt.Fprintln(os.Stderr, engine.Snapshot().ErrorMessage)
	}

	if !interactive {
		sh := newShell(engine, mgr, toast, os.Stdout)
		return sh.run(ctx, scanLines{sc: bufio.NewScanner(os.Stdin)})
	}

	oldState, err := term.MakeRaw(fd)
	if err != nil {
		return fmt.Errorf("enter raw mode: %w", err)
	}
	defer term.Restore(fd, oldState)

	t := term.NewTerminal(struct {
		io.Reader
		io.Writer
	}{os.Stdin, os.Stdout}, "")

	sh := newShell(engine, mgr, toast, t)
	if width, _, err := term.GetSize(int(os.Stdout.Fd())); err == nil {
		sh.width = width
	}
	sh.printf("filepane: type help for commands\n")
	return sh.run(ctx, t)
}
