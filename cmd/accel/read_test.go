package main

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mklimuk/mma845x"
	"github.com/mklimuk/mma845x/accel"
	"github.com/mklimuk/mma845x/i2c"
)

func TestGravitySampler(t *testing.T) {
	desc, ok := accel.Lookup(accel.MMA8451ID)
	require.True(t, ok)
	x, y, z := gravity(desc)()
	assert.InDelta(t, 0, x, 2)
	assert.InDelta(t, 0, y, 2)
	assert.InDelta(t, 4096, z, 2)
}

func TestReadLine(t *testing.T) {
	color.NoColor = true
	ctx := context.Background()
	dev := accel.NewMockDevice(accel.MMA8452ID)
	transport := mma845x.NewRegisterBus(i2c.NewTinyGoBus(dev), accel.AddressSA0Low)
	s, err := accel.Open(ctx, transport, accel.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))
	require.NoError(t, err)
	dev.SetSample(0, -2, 1024)

	line, err := readLine(ctx, s, false, true)
	require.NoError(t, err)
	assert.Contains(t, line, "x=0 y=-2 z=1024")

	line, err = readLine(ctx, s, true, false)
	require.NoError(t, err)
	assert.Contains(t, line, "z=9.806848 m/s²")
	assert.Contains(t, line, "y=-0.019154 m/s²")
}
