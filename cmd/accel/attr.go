package main

import (
	"github.com/urfave/cli/v2"

	"github.com/mklimuk/mma845x/cmd/accel/console"
	"github.com/mklimuk/mma845x/iio"
)

var attrCmd = cli.Command{
	Name:  "attr",
	Usage: "access the chip through its iio attributes",
	Subcommands: cli.Commands{
		&attrLsCmd,
		&attrGetCmd,
		&attrSetCmd,
	},
}

var attrLsCmd = cli.Command{
	Name: "ls",
	Action: func(c *cli.Context) error {
		s, release, err := openSession(c)
		if err != nil {
			return console.Exit(1, "could not open session: %s", err)
		}
		defer release()
		dev := iio.NewDevice(s)
		console.Printf("%s\n", console.Bold(dev.Name()))
		for _, ch := range dev.Channels() {
			console.Printf("  channel %s\n", ch.Name())
		}
		for _, a := range dev.Attributes() {
			console.Printf("  %s\n", a)
		}
		return nil
	},
}

var attrGetCmd = cli.Command{
	Name:      "get",
	ArgsUsage: "<attribute>",
	Action: func(c *cli.Context) error {
		if c.NArg() != 1 {
			return console.Exit(2, "expected one attribute name")
		}
		s, release, err := openSession(c)
		if err != nil {
			return console.Exit(1, "could not open session: %s", err)
		}
		defer release()
		v, err := iio.NewDevice(s).Read(commandContext(c), c.Args().First())
		if err != nil {
			return console.Exit(1, "%s", err)
		}
		console.Printf("%s\n", v)
		return nil
	},
}

var attrSetCmd = cli.Command{
	Name:      "set",
	ArgsUsage: "<attribute> <value>",
	Action: func(c *cli.Context) error {
		if c.NArg() != 2 {
			return console.Exit(2, "expected an attribute name and a value")
		}
		s, release, err := openSession(c)
		if err != nil {
			return console.Exit(1, "could not open session: %s", err)
		}
		defer release()
		name, value := c.Args().Get(0), c.Args().Get(1)
		if err := iio.NewDevice(s).Write(commandContext(c), name, value); err != nil {
			return console.Exit(1, "%s", err)
		}
		console.Infof("%s = %s", name, console.Green(value))
		return nil
	},
}
