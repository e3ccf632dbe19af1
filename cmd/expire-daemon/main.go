// Command expire-daemon runs the expiration engine against a local store.
//
// The daemon watches every object carrying an enabled settings block for its
// namespace and forces the configured expired value onto values that are not
// refreshed within their interval.
//
// Usage:
//
//	expire-daemon [flags]
//
// Flags:
//
//	-config string       Configuration file path (YAML)
//	-namespace string    Settings namespace (default "expire.0")
//	-log-level string    Log level: debug, info, warn, error
//	-log-format string   Log format: text, json
//	-event-log string    Write the CBOR event trace to this file
//	-store string        Store driver: memory, sqlite
//	-db string           SQLite database path
//	-snapshot string     Memory store snapshot path (loaded at start, saved at stop)
//	-interactive         Enable interactive command mode
//	-version             Print version and exit
//
// Examples:
//
//	# Interactive session on an in-memory store
//	expire-daemon -interactive -log-level debug
//
//	# Persistent store with an event trace
//	expire-daemon -store sqlite -db /var/lib/expire/state.db -event-log /var/log/expire.cbor
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/expire-adapter/expire-go/cmd/expire-daemon/interactive"
	"github.com/expire-adapter/expire-go/pkg/config"
	"github.com/expire-adapter/expire-go/pkg/expire"
	"github.com/expire-adapter/expire-go/pkg/log"
	"github.com/expire-adapter/expire-go/pkg/persistence"
	"github.com/expire-adapter/expire-go/pkg/store"
	"github.com/expire-adapter/expire-go/pkg/version"
)

// Flags holds the command-line settings.
type Flags struct {
	ConfigFile  string
	Namespace   string
	LogLevel    string
	LogFormat   string
	EventLog    string
	Driver      string
	DBPath      string
	Snapshot    string
	Interactive bool
	Version     bool
}

var flags Flags

func init() {
	flag.StringVar(&flags.ConfigFile, "config", "", "Configuration file path (YAML)")
	flag.StringVar(&flags.Namespace, "namespace", config.DefaultNamespace, "Settings namespace")
	flag.StringVar(&flags.LogLevel, "log-level", "info", "Log level: debug, info, warn, error")
	flag.StringVar(&flags.LogFormat, "log-format", config.FormatText, "Log format: text, json")
	flag.StringVar(&flags.EventLog, "event-log", "", "Write the CBOR event trace to this file")
	flag.StringVar(&flags.Driver, "store", config.DriverMemory, "Store driver: memory, sqlite")
	flag.StringVar(&flags.DBPath, "db", "expire.db", "SQLite database path")
	flag.StringVar(&flags.Snapshot, "snapshot", "", "Memory store snapshot path")
	flag.BoolVar(&flags.Interactive, "interactive", false, "Enable interactive command mode")
	flag.BoolVar(&flags.Version, "version", false, "Print version and exit")
}

func main() {
	flag.Parse()

	if flags.Version {
		fmt.Println(version.Summary())
		return
	}

	cfg, err := loadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Invalid configuration: %v\n", err)
		os.Exit(1)
	}

	st, saveSnapshot, err := openStore(cfg.Store)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to open store: %v\n", err)
		os.Exit(1)
	}

	// In interactive mode logs go through readline so they don't clobber the prompt.
	var shell *interactive.Shell
	var logOut io.Writer = os.Stderr
	if flags.Interactive {
		shell, err = interactive.New(st, cfg.Namespace)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to start interactive mode: %v\n", err)
			os.Exit(1)
		}
		logOut = shell.Stderr()
	}
	logger := cfg.Log.NewLogger(logOut)

	events, closeEvents, err := openEventLog(cfg.Log.EventLog, logger)
	if err != nil {
		logger.Error("Failed to open event log", "path", cfg.Log.EventLog, "error", err)
		os.Exit(1)
	}

	engine := expire.New(st, cfg.Namespace,
		expire.WithLogger(logger),
		expire.WithEventLogger(events),
	)

	logger.Info("Expire daemon",
		"version", version.Release,
		"namespace", cfg.Namespace,
		"store", cfg.Store.Driver,
		"session", engine.SessionID())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := engine.Start(ctx); err != nil {
		logger.Error("Failed to start engine", "error", err)
		os.Exit(1)
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	if shell != nil {
		shell.SetEngine(engine)
		go shell.Run(ctx, cancel)
	}

	select {
	case sig := <-sigCh:
		logger.Info("Received signal", "signal", sig.String())
	case <-ctx.Done():
	}
	cancel()

	logger.Info("Shutting down...")

	// Cleanup is best effort: errors are logged and shutdown continues.
	if err := engine.Stop(); err != nil {
		logger.Debug("Engine stop", "error", err)
	}
	if saveSnapshot != nil {
		if err := saveSnapshot(); err != nil {
			logger.Warn("Failed to save snapshot", "error", err)
		}
	}
	if err := st.Close(); err != nil {
		logger.Warn("Failed to close store", "error", err)
	}
	if err := closeEvents(); err != nil {
		logger.Warn("Failed to close event log", "error", err)
	}

	logger.Info("Shutdown complete")
}

// loadConfig reads the configuration file and applies explicitly set flags.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(flags.ConfigFile)
	if err != nil {
		return nil, err
	}

	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "namespace":
			cfg.Namespace = flags.Namespace
		case "log-level":
			cfg.Log.Level = flags.LogLevel
		case "log-format":
			cfg.Log.Format = flags.LogFormat
		case "event-log":
			cfg.Log.EventLog = flags.EventLog
		case "store":
			cfg.Store.Driver = flags.Driver
		case "db":
			cfg.Store.Path = flags.DBPath
		case "snapshot":
			cfg.Store.Snapshot = flags.Snapshot
		}
	})

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// openStore opens the configured store. For the memory store with a snapshot
// path it also returns the function that saves the snapshot.
func openStore(cfg config.StoreConfig) (interactive.Backend, func() error, error) {
	switch cfg.Driver {
	case config.DriverSQLite:
		st, err := store.NewSQLiteStore(cfg.Path)
		if err != nil {
			return nil, nil, err
		}
		return st, nil, nil

	default:
		st := store.NewMemoryStore()
		if cfg.Snapshot == "" {
			return st, nil, nil
		}

		file := persistence.NewSnapshotFile(cfg.Snapshot)
		snap, err := file.Load()
		if err != nil {
			st.Close()
			return nil, nil, fmt.Errorf("loading snapshot: %w", err)
		}
		if snap != nil {
			st.Restore(snap)
		}
		return st, func() error { return file.Save(st.Snapshot()) }, nil
	}
}

// openEventLog builds the event logger: trace events always reach slog at
// debug level, and the CBOR file when path is set.
func openEventLog(path string, logger *slog.Logger) (log.Logger, func() error, error) {
	adapter := log.NewSlogAdapter(logger)
	if path == "" {
		return adapter, func() error { return nil }, nil
	}

	file, err := log.NewFileLogger(path)
	if err != nil {
		return nil, nil, err
	}
	return log.NewMultiLogger(file, adapter), file.Close, nil
}
