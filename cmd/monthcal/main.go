package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/joho/godotenv"

	"monthcal/internal/calendar"
	"monthcal/internal/config"
	appLog "monthcal/internal/log"
	"monthcal/internal/store"
	"monthcal/internal/tui"
	"monthcal/internal/view"
)

// flagConfig holds CLI flag values; they override the config file.
type flagConfig struct {
	configPath string
	storeName  string
	logPath    string
	debug      bool
}

func main() {
	flags := parseFlags()

	// The terminal belongs to the UI; log lines go to a file.
	logFile, err := openLog(flags.logPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "monthcal: open log: %v\n", err)
		os.Exit(1)
	}
	defer logFile.Close()
	appLog.SetOutput(logFile)

	appLog.Info("monthcal starting", "version", "0.1.0")

	if err := godotenv.Load(); err != nil {
		appLog.Debug("no .env file loaded", "error", err.Error())
	}

	conf, err := config.Load(flags.configPath)
	if err != nil {
		if conf == nil {
			fail("failed to load config", err, "config_path", flags.configPath)
		}
		appLog.Warn("could not write default config", "config_path", flags.configPath, "error", err.Error())
	}
	conf.ApplyEnv()

	if flags.storeName != "" {
		conf.Store = flags.storeName
		conf.Normalize()
	}
	if flags.debug {
		conf.LogLevel = "debug"
	}
	appLog.SetLevel(appLog.ParseLevel(conf.LogLevel))

	loc, err := conf.Location()
	if err != nil {
		appLog.Error("failed to load timezone; falling back to local", err, "name", conf.Timezone)
	}

	appLog.Info("effective config",
		"timezone", conf.Timezone,
		"week_start", conf.WeekStart,
		"store", conf.Store,
		"form_default_start", conf.Form.DefaultStart,
		"form_default_end", conf.Form.DefaultEnd,
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	st, closeStore, err := store.Open(ctx, conf)
	if err != nil {
		fail("failed to open event store", err, "store", conf.Store)
	}
	defer closeStore()

	ctrl := view.NewController(st,
		view.WithLocation(loc),
		view.WithWeekStart(calendar.ParseWeekStart(conf.WeekStart)),
		view.WithFormDefaults(conf.Form.DefaultStart, conf.Form.DefaultEnd),
	)
	defer ctrl.Close()

	p := tea.NewProgram(tui.New(ctx, ctrl), tea.WithAltScreen(), tea.WithContext(ctx))
	if _, err := p.Run(); err != nil {
		appLog.Error("terminal UI failed", err)
		fmt.Fprintf(os.Stderr, "monthcal: %v\n", err)
		ctrl.Close()
		closeStore()
		os.Exit(1)
	}
	appLog.Info("monthcal exiting")
}

// fail logs to both the log file and stderr, then exits.
func fail(msg string, err error, kv ...any) {
	appLog.Error(msg, err, kv...)
	fmt.Fprintf(os.Stderr, "monthcal: %s: %v\n", msg, err)
	os.Exit(1)
}

func openLog(path string) (io.WriteCloser, error) {
	if path == "-" {
		return nopCloser{os.Stderr}, nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, err
	}
	return os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
}

type nopCloser struct{ io.Writer }

func (nopCloser) Close() error { return nil }

func defaultLogPath() string {
	dir, err := os.UserCacheDir()
	if err != nil {
		return "monthcal.log"
	}
	return filepath.Join(dir, "monthcal", "monthcal.log")
}

func parseFlags() flagConfig {
	var cfg flagConfig

	flag.StringVar(&cfg.configPath, "config", config.DefaultPath(), "Path to config file")
	flag.StringVar(&cfg.storeName, "store", "", "Event store backend: file, postgres or remote (overrides config)")
	flag.StringVar(&cfg.logPath, "log", defaultLogPath(), `Log file path ("-" for stderr)`)
	flag.BoolVar(&cfg.debug, "debug", false, "Enable debug logging")

	flag.Parse()

	return cfg
}
