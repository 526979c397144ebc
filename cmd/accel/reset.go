package main

import (
	"github.com/urfave/cli/v2"

	"github.com/mklimuk/mma845x/cmd/accel/console"
)

var resetCmd = cli.Command{
	Name:  "reset",
	Usage: "soft-reset the chip to its power-on configuration",
	Flags: []cli.Flag{
		&cli.BoolFlag{Name: "yes", Aliases: []string{"y"}, Usage: "do not ask for confirmation"},
	},
	Action: func(c *cli.Context) error {
		if !c.Bool("yes") {
			ok, err := console.Confirm("reset the chip and drop its configuration?")
			if err != nil {
				return console.Exit(1, "%s", err)
			}
			if !ok {
				return nil
			}
		}
		s, release, err := openSession(c)
		if err != nil {
			return console.Exit(1, "could not open session: %s", err)
		}
		defer release()
		if err := s.Reset(commandContext(c)); err != nil {
			return console.Exit(1, "reset failed: %s", err)
		}
		console.Infof("%s reset, range %s", s.Descriptor().Name, s.Range())
		return nil
	},
}
