package main

import (
	"github.com/urfave/cli/v2"

	"github.com/mklimuk/mma845x/accel"
	"github.com/mklimuk/mma845x/cmd/accel/console"
)

var modeCmd = cli.Command{
	Name:  "mode",
	Usage: "inspect or change the power mode",
	Subcommands: cli.Commands{
		&modeGetCmd,
		&modeSetCmd,
	},
}

var modeGetCmd = cli.Command{
	Name: "get",
	Action: func(c *cli.Context) error {
		s, release, err := openSession(c)
		if err != nil {
			return console.Exit(1, "could not open session: %s", err)
		}
		defer release()
		mode, err := s.DeviceMode(commandContext(c))
		if err != nil {
			return console.Exit(1, "could not read mode: %s", err)
		}
		console.Printf("%s\n", console.Bold(mode))
		return nil
	},
}

var modeSetCmd = cli.Command{
	Name:      "set",
	ArgsUsage: "standby|wake|sleep",
	Action: func(c *cli.Context) error {
		target, err := accel.ParsePowerMode(c.Args().First())
		if err != nil {
			return console.Exit(2, "%s", err)
		}
		s, release, err := openSession(c)
		if err != nil {
			return console.Exit(1, "could not open session: %s", err)
		}
		defer release()
		ctx := commandContext(c)
		// the session starts out in standby, align it with a chip left active by an earlier run
		current, err := s.DeviceMode(ctx)
		if err != nil {
			return console.Exit(1, "could not read mode: %s", err)
		}
		if current != accel.Standby && target != accel.Standby {
			if err := s.SetMode(ctx, accel.Standby); err != nil {
				return console.Exit(1, "could not enter standby: %s", err)
			}
		}
		// sleep is only reachable through wake
		if target == accel.Sleep {
			if err := s.SetMode(ctx, accel.Wake); err != nil {
				return console.Exit(1, "could not wake the chip: %s", err)
			}
		}
		if err := s.SetMode(ctx, target); err != nil {
			return console.Exit(1, "could not set mode: %s", err)
		}
		console.Infof("mode set to %s", console.Green(target))
		return nil
	},
}

var rangeCmd = cli.Command{
	Name:  "range",
	Usage: "inspect or change the full-scale range",
	Subcommands: cli.Commands{
		&rangeGetCmd,
		&rangeSetCmd,
	},
}

var rangeGetCmd = cli.Command{
	Name: "get",
	Action: func(c *cli.Context) error {
		s, release, err := openSession(c)
		if err != nil {
			return console.Exit(1, "could not open session: %s", err)
		}
		defer release()
		console.Printf("%s (scale %s)\n", console.Bold(s.Range()), s.Scale())
		return nil
	},
}

var rangeSetCmd = cli.Command{
	Name:      "set",
	ArgsUsage: "2g|4g|8g",
	Action: func(c *cli.Context) error {
		r, err := accel.ParseRange(c.Args().First())
		if err != nil {
			return console.Exit(2, "%s", err)
		}
		s, release, err := openSession(c)
		if err != nil {
			return console.Exit(1, "could not open session: %s", err)
		}
		defer release()
		ctx := commandContext(c)
		// range writes are only accepted in standby
		if err := s.SetMode(ctx, accel.Standby); err != nil {
			return console.Exit(1, "could not enter standby: %s", err)
		}
		if err := s.SetRange(ctx, r); err != nil {
			return console.Exit(1, "could not set range: %s", err)
		}
		console.Infof("range set to %s", console.Green(r))
		return nil
	},
}
