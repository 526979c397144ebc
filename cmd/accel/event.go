package main

import (
	"context"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/mklimuk/mma845x/accel"
	"github.com/mklimuk/mma845x/cmd/accel/console"
)

var eventCmd = cli.Command{
	Name:  "event",
	Usage: "configure and watch motion events",
	Subcommands: cli.Commands{
		&eventLsCmd,
		&eventSetCmd,
		&eventPollCmd,
	},
}

var eventLsCmd = cli.Command{
	Name: "ls",
	Action: func(c *cli.Context) error {
		s, release, err := openSession(c)
		if err != nil {
			return console.Exit(1, "could not open session: %s", err)
		}
		defer release()
		w := tabwriter.NewWriter(console.Writer(), 14, 0, 1, ' ', 0)
		_, _ = fmt.Fprintf(w, "EVENT\tENABLED\tLATCH\tTHRESHOLD\tDEBOUNCE\n")
		for _, e := range s.Events() {
			_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%d\n", e.Kind, console.Flag(e.Enabled), console.Flag(e.Latch), e.Threshold, e.Debounce)
		}
		return w.Flush()
	},
}

var eventSetCmd = cli.Command{
	Name:      "set",
	ArgsUsage: "transient_x|transient_y|transient_z|freefall",
	Flags: []cli.Flag{
		&cli.BoolFlag{Name: "enable"},
		&cli.BoolFlag{Name: "latch"},
		&cli.UintFlag{Name: "threshold"},
		&cli.UintFlag{Name: "debounce"},
	},
	Action: func(c *cli.Context) error {
		kind, err := accel.ParseEventKind(c.Args().First())
		if err != nil {
			return console.Exit(2, "%s", err)
		}
		if c.Uint("threshold") > accel.MaxThreshold {
			return console.Exit(2, "threshold must not exceed %d", accel.MaxThreshold)
		}
		if c.Uint("debounce") > 255 {
			return console.Exit(2, "debounce must fit in a byte")
		}
		s, release, err := openSession(c)
		if err != nil {
			return console.Exit(1, "could not open session: %s", err)
		}
		defer release()
		cfg, err := s.Event(kind)
		if err != nil {
			return console.Exit(1, "%s", err)
		}
		if c.IsSet("enable") {
			cfg.Enabled = c.Bool("enable")
		}
		if c.IsSet("latch") {
			cfg.Latch = c.Bool("latch")
		}
		if c.IsSet("threshold") {
			cfg.Threshold = uint8(c.Uint("threshold"))
		}
		if c.IsSet("debounce") {
			cfg.Debounce = uint8(c.Uint("debounce"))
		}
		if err := s.ConfigureEvent(commandContext(c), kind, cfg); err != nil {
			return console.Exit(1, "could not configure %s: %s", kind, err)
		}
		console.Infof("%s: enabled=%s threshold=%d debounce=%d", kind, console.Flag(cfg.Enabled), cfg.Threshold, cfg.Debounce)
		return nil
	},
}

var eventPollCmd = cli.Command{
	Name:  "poll",
	Usage: "reset the chip, enable the given events and print them as they fire",
	Flags: []cli.Flag{
		&cli.StringSliceFlag{Name: "event", Aliases: []string{"e"}, Usage: "event to enable, defaults to the chip's default events"},
		&cli.UintFlag{Name: "threshold", Value: 16},
		&cli.DurationFlag{Name: "interval", Value: 50 * time.Millisecond},
		&cli.DurationFlag{Name: "for", Usage: "stop after this long, 0 polls until interrupted"},
	},
	Action: func(c *cli.Context) error {
		s, release, err := openSession(c)
		if err != nil {
			return console.Exit(1, "could not open session: %s", err)
		}
		defer release()
		ctx := commandContext(c)
		defer s.Close(ctx)

		kinds := s.Descriptor().DefaultEvents
		if names := c.StringSlice("event"); len(names) > 0 {
			kinds = nil
			for _, n := range names {
				k, err := accel.ParseEventKind(n)
				if err != nil {
					return console.Exit(2, "%s", err)
				}
				kinds = append(kinds, k)
			}
		}
		// reset enables the interrupt sources INT_SOURCE reports on
		if err := s.Reset(ctx); err != nil {
			return console.Exit(1, "could not reset the chip: %s", err)
		}
		for _, k := range kinds {
			cfg := accel.EventConfig{Enabled: true, Latch: true, Threshold: uint8(c.Uint("threshold"))}
			if err := s.ConfigureEvent(ctx, k, cfg); err != nil {
				return console.Exit(1, "could not configure %s: %s", k, err)
			}
		}
		if err := s.SetMode(ctx, accel.Wake); err != nil {
			return console.Exit(1, "could not wake the chip: %s", err)
		}
		if d := c.Duration("for"); d > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, d)
			defer cancel()
		}

		ticker := time.NewTicker(c.Duration("interval"))
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				console.PInfof(console.PictoStop, "polling stopped")
				return nil
			case <-ticker.C:
			}
			fired, err := s.PollEvents(ctx)
			if err != nil {
				return console.Exit(1, "poll failed: %s", err)
			}
			for _, k := range fired {
				picto := console.PictoMotion
				if k == accel.EventFreefall {
					picto = console.PictoFall
				}
				console.PInfof(picto, "%s %s", time.Now().Format(time.TimeOnly), console.Yellow(k))
			}
		}
	},
}
