package main

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/mklimuk/mma845x/accel"
	"github.com/mklimuk/mma845x/cmd/accel/console"
	"github.com/mklimuk/mma845x/stream"
)

var streamCmd = cli.Command{
	Name:  "stream",
	Usage: "publish scaled samples to an MQTT broker until interrupted",
	Flags: []cli.Flag{
		&cli.StringFlag{Name: "broker", Value: "tcp://localhost:1883", EnvVars: []string{"ACCEL_BROKER"}},
		&cli.StringFlag{Name: "topic", Usage: "defaults to accel/<chip>"},
		&cli.StringFlag{Name: "client-id", Usage: "defaults to mma845x-<session>"},
		&cli.DurationFlag{Name: "interval", Value: 100 * time.Millisecond},
		&cli.BoolFlag{Name: "retained"},
	},
	Action: func(c *cli.Context) error {
		s, release, err := openSession(c)
		if err != nil {
			return console.Exit(1, "could not open session: %s", err)
		}
		defer release()
		ctx := commandContext(c)
		defer s.Close(ctx)

		topic := c.String("topic")
		if topic == "" {
			topic = "accel/" + s.Descriptor().Name
		}
		clientID := c.String("client-id")
		if clientID == "" {
			clientID = fmt.Sprintf("mma845x-%s", s.ID())
		}
		client, err := stream.Connect(c.String("broker"), clientID)
		if err != nil {
			return console.Exit(1, "%s", err)
		}
		defer client.Disconnect(250)

		if err := s.SetMode(ctx, accel.Wake); err != nil {
			return console.Exit(1, "could not wake the chip: %s", err)
		}
		opts := []stream.Option{
			stream.WithInterval(c.Duration("interval")),
			stream.WithLogger(slog.Default()),
		}
		if c.Bool("retained") {
			opts = append(opts, stream.WithRetained())
		}
		console.PInfof(console.PictoSignal, "publishing to %s on %s", console.Bold(topic), c.String("broker"))
		return stream.NewPublisher(client, topic, s, opts...).Run(ctx)
	},
}
