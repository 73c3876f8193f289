package main

import (
	"context"
	"errors"
	"flag"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"monthcal/internal/calendar"
	"monthcal/internal/capture"
	"monthcal/internal/config"
	"monthcal/internal/ics"
	appLog "monthcal/internal/log"
	"monthcal/internal/reminder"
	"monthcal/internal/store"
	"monthcal/internal/web"
)

// flagConfig holds CLI flag values; they override the config file.
type flagConfig struct {
	configPath string
	listen     string
	debug      bool
	bell       bool

	snapshot string
	month    string
	width    int
	height   int

	importSrc string
}

func main() {
	appLog.Info("calendard starting", "version", "0.1.0")

	flags := parseFlags()

	if err := godotenv.Load(); err != nil {
		appLog.Debug("no .env file loaded", "error", err.Error())
	}

	conf, err := config.Load(flags.configPath)
	if err != nil {
		if conf == nil {
			appLog.Error("failed to load config", err, "config_path", flags.configPath)
			os.Exit(1)
		}
		appLog.Warn("could not write default config", "config_path", flags.configPath, "error", err.Error())
	}
	conf.ApplyEnv()

	if flags.listen != "" {
		conf.Listen = flags.listen
	}
	if flags.debug {
		conf.LogLevel = "debug"
	}
	appLog.SetLevel(appLog.ParseLevel(conf.LogLevel))

	appLog.Info("effective config",
		"listen", conf.Listen,
		"timezone", conf.Timezone,
		"week_start", conf.WeekStart,
		"store", conf.Store,
		"reminders", conf.Reminder.Enabled,
		"basic_auth", conf.BasicAuth != nil,
	)

	if conf.Store == config.StoreRemote {
		appLog.Error("calendard needs a local store", errors.New("store: remote"), "store", conf.Store)
		os.Exit(1)
	}

	// Root context with cancellation on SIGINT/SIGTERM.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		appLog.Info("signal received, shutting down", "signal", sig.String())
		cancel()
	}()

	st, closeStore, err := store.Open(ctx, conf)
	if err != nil {
		appLog.Error("failed to open event store", err, "store", conf.Store)
		os.Exit(1)
	}
	defer closeStore()

	switch {
	case flags.importSrc != "":
		err = runImport(ctx, st, flags.importSrc)
	case flags.snapshot != "":
		err = runSnapshot(ctx, conf, st, flags)
	default:
		err = runServer(ctx, conf, st, flags.bell)
	}
	if err != nil {
		appLog.Error("calendard failed", err)
		closeStore()
		os.Exit(1)
	}

	// Give in-flight reminder ticks a moment to finish.
	time.Sleep(100 * time.Millisecond)
	appLog.Info("calendard exiting")
}

func runServer(ctx context.Context, conf *config.Config, st store.EventStore, bell bool) error {
	if conf.Reminder.Enabled {
		loc, err := conf.Location()
		if err != nil {
			appLog.Error("failed to load timezone; reminders use local time", err, "name", conf.Timezone)
		}
		var notifier reminder.Notifier = reminder.LogNotifier{}
		if bell {
			notifier = reminder.Multi{notifier, reminder.NewBellNotifier(os.Stdout)}
		}
		checker := reminder.NewChecker(st, notifier,
			reminder.WithLead(time.Duration(conf.Reminder.LeadMinutes)*time.Minute),
			reminder.WithLocation(loc),
		)
		sched, err := reminder.NewScheduler(conf.Reminder.Schedule, checker)
		if err != nil {
			return err
		}
		sched.Start(ctx)
	}
	return web.StartServer(ctx, conf, st)
}

func runImport(ctx context.Context, st store.EventStore, src string) error {
	cacheDir := ""
	if dir, err := os.UserCacheDir(); err == nil {
		cacheDir = filepath.Join(dir, "monthcal", "ics")
	}
	res, err := ics.ImportFrom(ctx, ics.NewFetcher(cacheDir), st, src)
	if err != nil {
		return err
	}
	appLog.Info("import finished", "source", src, "created", res.Created, "skipped", res.Skipped)
	return nil
}

// runSnapshot renders /calendar through an in-process server and writes
// it as a PNG. Basic auth is left off the private server.
func runSnapshot(ctx context.Context, conf *config.Config, st store.EventStore, flags flagConfig) error {
	path := "/calendar"
	if flags.month != "" {
		m, err := calendar.ParseMonth(flags.month)
		if err != nil {
			return err
		}
		path += "?month=" + m.Key()
	}

	snapCfg := *conf
	snapCfg.BasicAuth = nil
	h := web.NewServer(&snapCfg, st).Handler()

	return capture.CaptureHandler(ctx, h, path, capture.CaptureOptions{
		OutputPath: flags.snapshot,
		Width:      flags.width,
		Height:     flags.height,
	})
}

func parseFlags() flagConfig {
	var cfg flagConfig

	flag.StringVar(&cfg.configPath, "config", config.DefaultPath(), "Path to config file")
	flag.StringVar(&cfg.listen, "listen", "", "HTTP listen address (overrides config if set)")
	flag.BoolVar(&cfg.debug, "debug", false, "Enable debug logging")
	flag.BoolVar(&cfg.bell, "bell", false, "Also announce reminders on stdout with the terminal bell")
	flag.StringVar(&cfg.snapshot, "snapshot", "", "Render the month page to this PNG path and exit")
	flag.StringVar(&cfg.month, "month", "", "Month for -snapshot (YYYY-MM, default current)")
	flag.IntVar(&cfg.width, "width", capture.DefaultWidth, "Snapshot viewport width")
	flag.IntVar(&cfg.height, "height", capture.DefaultHeight, "Snapshot viewport height")
	flag.StringVar(&cfg.importSrc, "import", "", "Import events from an ICS file or URL and exit")

	flag.Parse()

	return cfg
}
