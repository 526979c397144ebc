package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	chlog "github.com/charmbracelet/log"
	"github.com/muesli/termenv"
	"github.com/urfave/cli/v2"

	"github.com/mklimuk/mma845x/accel"
)

var version string
var commit string
var date string

func main() {
	os.Exit(run())
}

func run() int {
	app := cli.NewApp()
	app.Name = "accel"
	app.EnableBashCompletion = true
	app.Version = fmt.Sprintf("%s-%s-%s", version, date, commit)
	app.Usage = "MMA845x accelerometer cli"
	app.Flags = []cli.Flag{
		&cli.BoolFlag{
			Name:  "verbose",
			Usage: "enable debug logging and bus frame dumps",
		},
		&cli.StringFlag{
			Name:    "adapter",
			Aliases: []string{"a"},
			Value:   "sim",
			Usage:   "bus adapter: sim, mcp2221, generic or nanopi",
			EnvVars: []string{"ACCEL_ADAPTER"},
		},
		&cli.StringFlag{
			Name:    "device",
			Usage:   "adapter device: MCP2221 index or periph bus name",
			EnvVars: []string{"ACCEL_DEVICE"},
		},
		&cli.IntFlag{
			Name:  "bus",
			Value: 0,
			Usage: "I2C bus number of the nanopi adapter",
		},
		&cli.UintFlag{
			Name:  "address",
			Value: accel.AddressSA0Low,
			Usage: "7-bit chip address",
		},
		&cli.UintFlag{
			Name:  "identity",
			Usage: "expected WHO_AM_I value, 0 accepts any known chip",
		},
	}
	app.Before = func(ctx *cli.Context) error {
		charm := chlog.NewWithOptions(os.Stderr, chlog.Options{
			ReportCaller:    true,
			ReportTimestamp: true,
			TimeFormat:      time.DateTime,
		})
		charm.SetColorProfile(termenv.TrueColor)
		charm.SetLevel(chlog.InfoLevel)
		if ctx.Bool("verbose") {
			charm.SetLevel(chlog.DebugLevel)
		}
		slog.SetDefault(slog.New(charm))
		return nil
	}
	app.Commands = cli.Commands{
		&infoCmd,
		&modeCmd,
		&rangeCmd,
		&readCmd,
		&eventCmd,
		&attrCmd,
		&resetCmd,
		&streamCmd,
		&usbCmd,
		&mcp2221Cmd,
	}
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	err := app.RunContext(ctx, os.Args)
	if err != nil {
		var exerr cli.ExitCoder
		if errors.As(err, &exerr) {
			return exerr.ExitCode()
		}
		slog.Error("unexpected error", "error", err)
		return 1
	}
	return 0
}
