package cli

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/spf13/cobra"

	"iuhsched/internal/capture"
	"iuhsched/internal/config"
	"iuhsched/internal/engine"
	appLog "iuhsched/internal/log"
	"iuhsched/internal/portal"
	"iuhsched/internal/store"
)

// App carries the lazily opened engine shared by all subcommands.
type App struct {
	ConfigPath string
	LogLevel   string

	// Now overrides the clock; nil means time.Now.
	Now func() time.Time

	once   sync.Once
	cfg    *config.Config
	engine *engine.Engine
	err    error
}

// NewApp returns an App that loads its configuration from configPath.
func NewApp(configPath string) *App {
	return &App{ConfigPath: configPath}
}

// open loads the configuration, opens the store and starts the engine
// writer loop bound to ctx. Later calls return the same engine.
func (a *App) open(ctx context.Context) (*config.Config, *engine.Engine, error) {
	a.once.Do(func() {
		cfg, err := config.Load(a.ConfigPath)
		if err != nil {
			a.err = fmt.Errorf("load config %s: %w", a.ConfigPath, err)
			return
		}
		level := cfg.LogLevel
		if a.LogLevel != "" {
			level = a.LogLevel
		}
		appLog.SetLevel(appLog.ParseLevel(level))

		loc := cfg.Location()
		now := a.Now
		if now == nil {
			now = func() time.Time { return time.Now().In(loc) }
		}

		st, err := store.Open(cfg.DataPath(), store.WithClock(now))
		if err != nil {
			// The store stays usable; only the unreadable file is skipped.
			appLog.Warn("data file could not be loaded, starting empty", "path", cfg.DataPath(), "err", err)
		}

		eng := engine.New(st, engine.WithClock(now), engine.WithSource(newSource(cfg)))
		go eng.Run(ctx)

		a.cfg, a.engine = cfg, eng
	})
	return a.cfg, a.engine, a.err
}

// newSource picks the plain HTTP fetcher or the headless browser.
func newSource(cfg *config.Config) engine.Source {
	if cfg.Browser.Enabled {
		return capture.NewBrowser(capture.Options{
			BaseURL:     cfg.PortalURL,
			CookiesPath: cfg.CookiesPath(),
			ExecPath:    cfg.Browser.ExecPath,
			Timeout:     cfg.FetchTimeout,
		})
	}
	return portal.NewFetcher(cfg.PortalURL, cfg.CookiesPath(), cfg.CachePath(), cfg.FetchTimeout)
}

// NewRootCommand creates the top-level command and registers all
// subcommands against app.
func NewRootCommand(ctx context.Context, app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "iuhsched",
		Short:         "Sync the IUH student portal timetable and keep tasks next to it.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.PersistentFlags().StringVar(&app.ConfigPath, "config", app.ConfigPath, "Path to config file")
	cmd.PersistentFlags().StringVar(&app.LogLevel, "log-level", "", "Log level (debug, info, warn, error); overrides config")

	cmd.AddCommand(
		newServeCommand(ctx, app),
		newSyncCommand(ctx, app),
		newWeekCommand(ctx, app),
		newImportCommand(ctx, app),
		newTaskCommand(ctx, app),
	)
	return cmd
}

// Main is used by cmd/iuhsched/main.go to keep wiring in one package.
func Main(ctx context.Context) {
	app := NewApp("config.yaml")
	if err := NewRootCommand(ctx, app).Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func (a *App) now() time.Time {
	if a.Now != nil {
		return a.Now()
	}
	if a.cfg != nil {
		return time.Now().In(a.cfg.Location())
	}
	return time.Now()
}
