package main

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"strconv"

	"github.com/urfave/cli/v2"

	"github.com/mklimuk/mma845x"
	"github.com/mklimuk/mma845x/accel"
	"github.com/mklimuk/mma845x/adapter"
	"github.com/mklimuk/mma845x/i2c"
	"github.com/mklimuk/mma845x/snsctx"
)

// busyRetries is how many times a transfer refused by a busy MCP2221 engine is retried.
const busyRetries = 3

func commandContext(c *cli.Context) context.Context {
	return snsctx.SetVerbose(c.Context, c.Bool("verbose"))
}

func newMCP2221(c *cli.Context) (*adapter.MCP2221, error) {
	index := 0
	if dev := c.String("device"); dev != "" {
		var err error
		index, err = strconv.Atoi(dev)
		if err != nil {
			return nil, fmt.Errorf("invalid MCP2221 index %q: %w", dev, err)
		}
	}
	return adapter.NewMCP2221(adapter.WithDeviceIndex(index)), nil
}

// gravity returns a sampler that reports 1g on Z with a little noise on every axis.
func gravity(desc *accel.ChipDescriptor) accel.Sampler {
	oneG := int32(1) << (desc.Resolution() - 2)
	noise := func() int32 { return rand.Int31n(5) - 2 }
	return func() (int32, int32, int32) {
		return noise(), noise(), oneG + noise()
	}
}

func openTransport(c *cli.Context) (mma845x.RegisterTransport, func(), error) {
	address := byte(c.Uint("address"))
	switch name := c.String("adapter"); name {
	case "sim":
		id := byte(c.Uint("identity"))
		if id == 0 {
			id = accel.MMA8452ID
		}
		desc, ok := accel.Lookup(id)
		if !ok {
			return nil, nil, fmt.Errorf("%w: no simulated chip with identity %#04x", accel.ErrIdentityMismatch, id)
		}
		dev := accel.NewMockDevice(id, accel.WithMockAddress(uint16(address)), accel.WithSampler(gravity(desc)))
		return mma845x.NewRegisterBus(i2c.NewTinyGoBus(dev), address), func() {}, nil
	case "mcp2221":
		a, err := newMCP2221(c)
		if err != nil {
			return nil, nil, err
		}
		return mma845x.NewRegisterBus(a, address, mma845x.WithBusyRetries(busyRetries)), func() {}, nil
	case "generic":
		bus, err := i2c.NewGenericBus(c.String("device"))
		if err != nil {
			return nil, nil, err
		}
		return bus.Registers(uint16(address)), func() {
			if err := bus.Close(); err != nil {
				slog.Warn("could not close bus", "error", err)
			}
		}, nil
	case "nanopi":
		regs, closer, err := i2c.OpenNanoPi(c.Int("bus"), address)
		if err != nil {
			return nil, nil, err
		}
		return regs, closer, nil
	default:
		return nil, nil, fmt.Errorf("unknown adapter %q", name)
	}
}

// openSession opens a session on the configured adapter. The returned release
// function frees the adapter without touching the chip, so modes set by one
// invocation survive until the next one.
func openSession(c *cli.Context) (*accel.Session, func(), error) {
	ctx := commandContext(c)
	transport, release, err := openTransport(c)
	if err != nil {
		return nil, nil, err
	}
	opts := []accel.Option{accel.WithLogger(slog.Default())}
	if id := c.Uint("identity"); id != 0 {
		opts = append(opts, accel.WithExpectedIdentity(byte(id)))
	}
	s, err := accel.Open(ctx, transport, opts...)
	if err != nil {
		release()
		return nil, nil, err
	}
	return s, release, nil
}
