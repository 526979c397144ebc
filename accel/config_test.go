package accel

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetRange(t *testing.T) {
	ctx := context.Background()
	s, dev := openMock(t, MMA8452ID)

	require.NoError(t, s.SetRange(ctx, Range4G))
	assert.Equal(t, Range4G, s.Range())
	assert.Equal(t, FixedPoint{0, 19154}, s.Scale())
	assert.Equal(t, byte(0x01), dev.Register(regXYZDataCfg))

	dev.SetSample(1024, 0, 0)
	scaled, err := s.ReadScaled(ctx)
	require.NoError(t, err)
	assert.Equal(t, Acceleration(1024*19154), scaled.X)

	assert.ErrorIs(t, s.SetRange(ctx, FullScaleRange(9)), ErrInvalidArgument)

	require.NoError(t, s.SetMode(ctx, Wake))
	assert.ErrorIs(t, s.SetRange(ctx, Range8G), ErrDeviceNotReady)
	assert.Equal(t, Range4G, s.Range())
}

func TestSampleFrequency(t *testing.T) {
	ctx := context.Background()
	s, dev := openMock(t, MMA8452ID)

	f, err := s.SampleFrequency(ctx)
	require.NoError(t, err)
	assert.Equal(t, FixedPoint{800, 0}, f)

	require.NoError(t, s.SetSampleFrequency(ctx, FixedPoint{12, 500000}))
	assert.Equal(t, byte(0x28), dev.Register(regCtrl1))
	f, err = s.SampleFrequency(ctx)
	require.NoError(t, err)
	assert.Equal(t, "12.500000", f.String())

	assert.ErrorIs(t, s.SetSampleFrequency(ctx, FixedPoint{7, 0}), ErrInvalidArgument)
	assert.Len(t, SampleFrequencies(), 8)
}

func TestOversampling(t *testing.T) {
	ctx := context.Background()
	s, dev := openMock(t, MMA8451ID)

	require.NoError(t, s.SetOversampling(ctx, OversamplingHighResolution))
	assert.Equal(t, byte(0x02), dev.Register(regCtrl2))
	m, err := s.Oversampling(ctx)
	require.NoError(t, err)
	assert.Equal(t, OversamplingHighResolution, m)

	parsed, err := ParseOversamplingMode("low-power")
	require.NoError(t, err)
	assert.Equal(t, OversamplingLowPower, parsed)
	_, err = ParseOversamplingMode("turbo")
	assert.ErrorIs(t, err, ErrInvalidArgument)
}

func TestHighPassFilter(t *testing.T) {
	ctx := context.Background()
	s, dev := openMock(t, MMA8452ID)
	require.NoError(t, s.SetRange(ctx, Range8G))

	require.NoError(t, s.SetHighPassFilter(ctx, HighPassFilter{Enabled: true, Cutoff: 2}))
	assert.Equal(t, byte(0x12), dev.Register(regXYZDataCfg))
	assert.Equal(t, byte(0x02), dev.Register(regHPFilterCutoff))

	f, err := s.HighPassFilter(ctx)
	require.NoError(t, err)
	assert.Equal(t, HighPassFilter{Enabled: true, Cutoff: 2}, f)

	assert.ErrorIs(t, s.SetHighPassFilter(ctx, HighPassFilter{Cutoff: 4}), ErrInvalidArgument)
}

func TestCalibBias(t *testing.T) {
	ctx := context.Background()
	s, dev := openMock(t, MMA8452ID)

	require.NoError(t, s.SetCalibBias(ctx, AxisY, -3))
	assert.Equal(t, byte(0xFD), dev.Register(regOffY))
	v, err := s.CalibBias(ctx, AxisY)
	require.NoError(t, err)
	assert.Equal(t, int8(-3), v)

	_, err = s.CalibBias(ctx, AxisXYZ)
	assert.ErrorIs(t, err, ErrInvalidArgument)
}

func TestReset(t *testing.T) {
	ctx := context.Background()
	s, dev := openMock(t, MMA8452ID)
	require.NoError(t, s.SetRange(ctx, Range8G))
	require.NoError(t, s.ConfigureEvent(ctx, EventFreefall, EventConfig{Enabled: true, Threshold: 5}))
	require.NoError(t, s.SetMode(ctx, Wake))

	require.NoError(t, s.Reset(ctx))
	assert.Equal(t, Standby, s.Mode())
	assert.Equal(t, Range2G, s.Range())
	assert.Empty(t, s.EnabledEvents())
	assert.Equal(t, byte(0x20), dev.Register(regCtrl1))
	assert.Equal(t, byte(intTransient|intFFMt), dev.Register(regCtrl4))
	assert.Equal(t, byte(0), dev.Register(regFFMtCfg))
	f, err := s.SampleFrequency(ctx)
	require.NoError(t, err)
	assert.Equal(t, FixedPoint{50, 0}, f)
}

func TestResetNack(t *testing.T) {
	ctx := context.Background()
	dev := NewMockDevice(MMA8653ID, WithResetNack())
	s, err := openOn(dev, WithResetPolling(time.Microsecond, 2))
	require.NoError(t, err)
	require.NoError(t, s.Reset(ctx))
	assert.Equal(t, byte(intFFMt), dev.Register(regCtrl4))
}

func TestResetTimeout(t *testing.T) {
	ctx := context.Background()
	dev := NewMockDevice(MMA8452ID)
	s, err := openOn(dev, WithResetPolling(time.Microsecond, 2))
	require.NoError(t, err)
	// the device never reports the reset as complete
	dev.Fail(regCtrl2, false, ErrMockNack)
	err = s.Reset(ctx)
	assert.ErrorIs(t, err, ErrDeviceNotReady)
}

func TestConfigurationRequiresStandby(t *testing.T) {
	ctx := context.Background()
	s, _ := openMock(t, MMA8452ID)
	require.NoError(t, s.SetMode(ctx, Wake))
	assert.ErrorIs(t, s.SetSampleFrequency(ctx, FixedPoint{100, 0}), ErrDeviceNotReady)
	assert.ErrorIs(t, s.SetOversampling(ctx, OversamplingLowPower), ErrDeviceNotReady)
	assert.ErrorIs(t, s.SetHighPassFilter(ctx, HighPassFilter{}), ErrDeviceNotReady)
	assert.ErrorIs(t, s.SetCalibBias(ctx, AxisX, 1), ErrDeviceNotReady)
	// events may be reconfigured while active
	assert.NoError(t, s.ConfigureEvent(ctx, EventFreefall, EventConfig{Enabled: true}))
}
