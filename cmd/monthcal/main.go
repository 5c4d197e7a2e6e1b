package main

import (
	"fmt"
	"os"

	"github.com/urfave/cli"
)

var version = "0.1.0-dev"

func main() {
	app := cli.NewApp()
	app.Name = "monthcal"
	app.Usage = "Month-view calendar with a day event list"
	app.Version = version
	app.Flags = []cli.Flag{
		&cli.StringFlag{
			Name:   "config",
			Usage:  "Path to config file (created with defaults if missing)",
			Value:  "monthcal.yaml",
			EnvVar: "MONTHCAL_CONFIG",
		},
		&cli.StringFlag{
			Name:  "events",
			Usage: "Startup event source, file or http(s) URL (overrides config)",
		},
		&cli.BoolFlag{
			Name:  "debug",
			Usage: "Output debug messages",
		},
	}
	app.Commands = []cli.Command{
		Serve,
		TUI,
		Month,
		Capture,
		Check,
		Export,
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "error: %s\n", err)
		os.Exit(1)
	}
}
