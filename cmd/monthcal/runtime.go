package main

import (
	"context"
	"time"

	"github.com/urfave/cli"

	"monthcal/internal/config"
	"monthcal/internal/controller"
	appLog "monthcal/internal/log"
	"monthcal/internal/source"
	"monthcal/internal/store"
)

// runtime is the state every command starts from: effective config, the
// display location and a controller seeded from the event source.
type runtime struct {
	cfg    *config.Config
	loc    *time.Location
	loader *source.Loader
	ctrl   *controller.Controller
}

// loadConfig reads the config file and applies global flag overrides.
// Config errors are fatal.
func loadConfig(c *cli.Context) (*config.Config, error) {
	path := c.GlobalString("config")
	cfg, err := config.Load(path)
	if err != nil {
		appLog.Error("failed to load config", err, "config_path", path)
		return nil, cli.NewExitError("config: "+err.Error(), 1)
	}
	if v := c.GlobalString("events"); v != "" {
		cfg.Events = v
	}

	level := appLog.ParseLevel(cfg.LogLevel)
	if c.GlobalBool("debug") {
		level = appLog.LevelDebug
	}
	appLog.SetLevel(level)
	return cfg, nil
}

func newRuntime(ctx context.Context, c *cli.Context) (*runtime, error) {
	cfg, err := loadConfig(c)
	if err != nil {
		return nil, err
	}

	loc, err := cfg.Location()
	if err != nil {
		appLog.Error("failed to load timezone; falling back to local", err, "name", cfg.Timezone)
	}

	appLog.Info("effective config",
		"timezone", loc.String(),
		"week_start", cfg.WeekStart,
		"events", source.Describe(cfg.Events),
		"events_format", cfg.EventsFormat,
		"today_refresh", cfg.TodayRefresh,
	)

	rt := &runtime{
		cfg: cfg,
		loc: loc,
		loader: source.NewLoader(
			source.WithFormat(source.ParseFormat(cfg.EventsFormat)),
			source.WithLocation(loc),
		),
		ctrl: controller.New(store.New(),
			controller.WithLocation(loc),
			controller.WithWeekStart(cfg.WeekStartDay()),
		),
	}
	source.LoadInto(ctx, rt.loader, rt.ctrl, cfg.Events)
	return rt, nil
}
