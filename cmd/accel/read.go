package main

import (
	"context"
	"fmt"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/mklimuk/mma845x/accel"
	"github.com/mklimuk/mma845x/cmd/accel/console"
)

var readCmd = cli.Command{
	Name:  "read",
	Usage: "wake the chip and print samples",
	Flags: []cli.Flag{
		&cli.BoolFlag{Name: "scaled", Usage: "print m/s² instead of raw counts"},
		&cli.BoolFlag{Name: "ready", Usage: "wait for the data-ready flag before every read"},
		&cli.IntFlag{Name: "count", Aliases: []string{"n"}, Value: 1},
		&cli.DurationFlag{Name: "interval", Value: 100 * time.Millisecond},
	},
	Action: func(c *cli.Context) error {
		s, release, err := openSession(c)
		if err != nil {
			return console.Exit(1, "could not open session: %s", err)
		}
		defer release()
		ctx := commandContext(c)
		defer s.Close(ctx)
		if err := s.SetMode(ctx, accel.Wake); err != nil {
			return console.Exit(1, "could not wake the chip: %s", err)
		}

		for i := 0; i < c.Int("count"); i++ {
			if i > 0 {
				select {
				case <-ctx.Done():
					return nil
				case <-time.After(c.Duration("interval")):
				}
			}
			line, err := readLine(ctx, s, c.Bool("scaled"), c.Bool("ready"))
			if err != nil {
				return console.Exit(1, "read failed: %s", err)
			}
			console.Printf("%s\n", line)
		}
		return nil
	},
}

func readLine(ctx context.Context, s *accel.Session, scaled, ready bool) (string, error) {
	var sample accel.Sample
	var err error
	if ready {
		sample, err = s.ReadAxesWhenReady(ctx)
	} else {
		sample, err = s.ReadAxes(ctx)
	}
	if err != nil {
		return "", err
	}
	ts := sample.Timestamp.Format(time.TimeOnly + ".000")
	if !scaled {
		return fmt.Sprintf("%s x=%s y=%s z=%s", ts, console.Cyan(sample.X), console.Cyan(sample.Y), console.Cyan(sample.Z)), nil
	}
	a := sample.Scale(s.Scale())
	return fmt.Sprintf("%s x=%s y=%s z=%s", ts, console.Cyan(a.X), console.Cyan(a.Y), console.Cyan(a.Z)), nil
}
