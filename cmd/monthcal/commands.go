package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/urfave/cli"
	"golang.org/x/sync/errgroup"

	"monthcal/internal/calendar"
	"monthcal/internal/capture"
	"monthcal/internal/ics"
	appLog "monthcal/internal/log"
	"monthcal/internal/model"
	"monthcal/internal/schedule"
	"monthcal/internal/source"
	"monthcal/internal/store"
	"monthcal/internal/tui"
	"monthcal/internal/web"
)

var Serve = cli.Command{
	Name:  "serve",
	Usage: "Serves the month page and JSON API",
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:  "listen",
			Usage: "HTTP listen address (overrides config if set)",
		},
	},
	Action: serve,
}

var TUI = cli.Command{
	Name:   "tui",
	Usage:  "Opens the interactive terminal calendar",
	Action: runTUI,
}

var Month = cli.Command{
	Name:  "month",
	Usage: "Prints a month grid, marking days with events",
	Flags: []cli.Flag{
		&cli.IntFlag{
			Name:  "year",
			Usage: "Year to print (default: current)",
		},
		&cli.IntFlag{
			Name:  "month",
			Usage: "Month to print, 1-12 (default: current)",
		},
	},
	Action: printMonth,
}

var Capture = cli.Command{
	Name:  "capture",
	Usage: "Renders the month page to a PNG with headless Chromium",
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:  "out",
			Usage: "Output PNG path (overrides config if set)",
		},
	},
	Action: capturePNG,
}

var Check = cli.Command{
	Name:   "check",
	Usage:  "Loads the event source strictly and reports problems",
	Action: check,
}

var Export = cli.Command{
	Name:   "export",
	Usage:  "Writes the loaded events to stdout as iCalendar",
	Action: export,
}

// signalContext is cancelled on SIGINT/SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		select {
		case sig := <-sigCh:
			appLog.Info("signal received, shutting down", "signal", sig.String())
			cancel()
		case <-ctx.Done():
		}
		signal.Stop(sigCh)
	}()
	return ctx, cancel
}

func serve(c *cli.Context) error {
	ctx, cancel := signalContext()
	defer cancel()

	rt, err := newRuntime(ctx, c)
	if err != nil {
		return err
	}
	if v := c.String("listen"); v != "" {
		rt.cfg.Listen = v
	}

	srv, err := web.NewServer(rt.cfg, rt.ctrl)
	if err != nil {
		return err
	}
	sched, err := schedule.New(rt.cfg.TodayRefresh, rt.loc, rt.ctrl)
	if err != nil {
		return cli.NewExitError(err.Error(), 1)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		err := srv.Serve(gctx, rt.cfg.Listen)
		cancel()
		return err
	})
	g.Go(func() error {
		return sched.Run(gctx)
	})

	err = g.Wait()
	appLog.Info("monthcal exiting")
	return err
}

func runTUI(c *cli.Context) error {
	ctx, cancel := signalContext()
	defer cancel()

	rt, err := newRuntime(ctx, c)
	if err != nil {
		return err
	}

	// Log lines would tear the full-screen UI.
	if !c.GlobalBool("debug") {
		appLog.SetOutput(io.Discard)
		defer appLog.SetOutput(os.Stderr)
	}

	sched, err := schedule.New(rt.cfg.TodayRefresh, rt.loc, rt.ctrl)
	if err != nil {
		return cli.NewExitError(err.Error(), 1)
	}
	go func() { _ = sched.Run(ctx) }()

	return tui.Run(rt.ctrl)
}

func printMonth(c *cli.Context) error {
	rt, err := newRuntime(context.Background(), c)
	if err != nil {
		return err
	}

	st := rt.ctrl.State()
	year, month := st.ViewYear, st.ViewMonth
	if c.IsSet("year") {
		year = c.Int("year")
		if year < 1 || year > 9999 {
			return cli.NewExitError(fmt.Sprintf("year %d out of range 1-9999", year), 2)
		}
	}
	if c.IsSet("month") {
		m := c.Int("month")
		if m < 1 || m > 12 {
			return cli.NewExitError(fmt.Sprintf("month %d out of range 1-12", m), 2)
		}
		month = time.Month(m)
	}

	grid := calendar.Build(year, month, st.Today, st.Selected, rt.ctrl.Store(), rt.cfg.WeekStartDay())
	if err := calendar.Format(os.Stdout, grid); err != nil {
		return err
	}

	for _, ev := range rt.ctrl.Store().All() {
		if t, err := model.ParseKey(string(ev.Date), rt.loc); err == nil && t.Year() == year && t.Month() == month {
			fmt.Printf("%s  %s\n", ev.Date, ev)
		}
	}
	return nil
}

func capturePNG(c *cli.Context) error {
	ctx, cancel := signalContext()
	defer cancel()

	rt, err := newRuntime(ctx, c)
	if err != nil {
		return err
	}
	out := rt.cfg.Capture.Output
	if v := c.String("out"); v != "" {
		out = v
	}

	srv, err := web.NewServer(rt.cfg, rt.ctrl)
	if err != nil {
		return err
	}

	opts := capture.Options{
		OutputPath: out,
		Width:      rt.cfg.Capture.Width,
		Height:     rt.cfg.Capture.Height,
		Timeout:    rt.cfg.CaptureTimeout(),
	}
	if ba := rt.cfg.BasicAuth; ba != nil {
		opts.Headers = map[string]string{"Authorization": capture.BasicAuth(ba.Username, ba.Password)}
	}
	if err := capture.ServeAndCapture(ctx, srv.Handler(), opts); err != nil {
		appLog.Error("capture failed", err)
		return cli.NewExitError(err.Error(), 1)
	}
	fmt.Println(out)
	return nil
}

func check(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	loc, err := cfg.Location()
	if err != nil {
		return cli.NewExitError(fmt.Sprintf("timezone %q: %s", cfg.Timezone, err), 1)
	}

	loader := source.NewLoader(source.WithFormat(source.ParseFormat(cfg.EventsFormat)), source.WithLocation(loc))
	events, err := loader.Load(context.Background(), cfg.Events)
	if err != nil {
		return cli.NewExitError(fmt.Sprintf("%s: %s", source.Describe(cfg.Events), err), 1)
	}

	st := store.New()
	st.Load(events)
	days := make(map[model.DateKey]struct{})
	for _, ev := range st.All() {
		days[ev.Date] = struct{}{}
	}
	fmt.Printf("ok: %d events on %d days from %s\n", st.Len(), len(days), source.Describe(cfg.Events))
	return nil
}

func export(c *cli.Context) error {
	rt, err := newRuntime(context.Background(), c)
	if err != nil {
		return err
	}
	_, err = io.WriteString(os.Stdout, ics.Export(rt.ctrl.Store().All(), rt.loc, time.Now()))
	return err
}
