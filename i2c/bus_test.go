package i2c

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"periph.io/x/conn/v3/i2c/i2ctest"

	"github.com/mklimuk/mma845x"
	"github.com/mklimuk/mma845x/snsctx"
)

func TestGenericBus(t *testing.T) {
	ctx := context.Background()
	playback := &i2ctest.Playback{
		Ops: []i2ctest.IO{
			{Addr: 0x1C, W: []byte{0x0D}, R: []byte{0x2A}},
			{Addr: 0x1C, W: []byte{0x2A, 0x01}},
			{Addr: 0x1C, W: []byte{0x01}, R: []byte{0x40, 0x00, 0x20, 0x00, 0x10, 0x00}},
		},
	}
	bus := NewGenericBusFrom(playback)
	regs := mma845x.NewRegisterBus(bus, 0x1C)

	id, err := regs.ReadRegister(ctx, 0x0D)
	require.NoError(t, err)
	assert.Equal(t, byte(0x2A), id)
	require.NoError(t, regs.WriteRegister(ctx, 0x2A, 0x01))
	buf := make([]byte, 6)
	require.NoError(t, regs.ReadBlock(ctx, 0x01, buf))
	assert.Equal(t, []byte{0x40, 0x00, 0x20, 0x00, 0x10, 0x00}, buf)
	require.NoError(t, bus.Close())
}

func TestGenericBusRegisters(t *testing.T) {
	ctx := context.Background()
	playback := &i2ctest.Playback{
		Ops: []i2ctest.IO{
			{Addr: 0x1D, W: []byte{0x0B}, R: []byte{0x01}},
			{Addr: 0x1D, W: []byte{0x2E, 0x04}},
			{Addr: 0x1D, W: []byte{0x01}, R: []byte{1, 2, 3, 4, 5, 6}},
		},
	}
	regs := NewGenericBusFrom(playback).Registers(0x1D)

	v, err := regs.ReadRegister(ctx, 0x0B)
	require.NoError(t, err)
	assert.Equal(t, byte(0x01), v)
	require.NoError(t, regs.WriteRegister(ctx, 0x2E, 0x04))
	buf := make([]byte, 6)
	require.NoError(t, regs.ReadBlock(ctx, 0x01, buf))
	assert.Equal(t, []byte{1, 2, 3, 4, 5, 6}, buf)
	require.NoError(t, playback.Close())
}

// fakeTx records transfers and answers reads from a register file.
type fakeTx struct {
	mu      sync.Mutex
	regs    [64]byte
	pointer byte
	calls   int
	err     error
}

func (f *fakeTx) Tx(addr uint16, w, r []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return f.err
	}
	if len(w) > 0 {
		f.pointer = w[0]
		for i, v := range w[1:] {
			f.regs[int(f.pointer)+i] = v
		}
	}
	for i := range r {
		r[i] = f.regs[int(f.pointer)+i]
	}
	return nil
}

func TestTinyGoBus(t *testing.T) {
	ctx := snsctx.SetVerbose(context.Background(), true)
	fake := &fakeTx{}
	fake.regs[0x0D] = 0x5A
	bus := NewTinyGoBus(fake)

	buf := []byte{0}
	require.NoError(t, bus.ReadRegisterFromAddr(ctx, 0x1C, 0x0D, buf))
	assert.Equal(t, byte(0x5A), buf[0])
	assert.Equal(t, 1, fake.calls)

	require.NoError(t, bus.WriteToAddr(ctx, 0x1C, []byte{0x2F, 0x7F}))
	assert.Equal(t, byte(0x7F), fake.regs[0x2F])

	require.NoError(t, bus.WriteToAddr(ctx, 0x1C, []byte{0x2F}))
	require.NoError(t, bus.ReadFromAddr(ctx, 0x1C, buf))
	assert.Equal(t, byte(0x7F), buf[0])

	fake.err = errors.New("nack")
	assert.ErrorIs(t, bus.ReadFromAddr(ctx, 0x1C, buf), fake.err)

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	calls := fake.calls
	assert.ErrorIs(t, bus.WriteToAddr(cancelled, 0x1C, []byte{0x00}), context.Canceled)
	assert.Equal(t, calls, fake.calls)
}

type mockGobotDriver struct {
	mock.Mock
}

func (m *mockGobotDriver) ReadByteData(reg uint8) (uint8, error) {
	args := m.Called(reg)
	return uint8(args.Int(0)), args.Error(1)
}

func (m *mockGobotDriver) WriteByteData(reg uint8, val uint8) error {
	return m.Called(reg, val).Error(0)
}

func (m *mockGobotDriver) Write(data []byte) error {
	return m.Called(data).Error(0)
}

func (m *mockGobotDriver) Read(data []byte) error {
	args := m.Called(data)
	if b, ok := args.Get(0).([]byte); ok {
		copy(data, b)
	}
	return args.Error(1)
}

func TestGobotRegisters(t *testing.T) {
	ctx := context.Background()
	driver := new(mockGobotDriver)
	driver.On("ReadByteData", uint8(0x0D)).Return(0x4A, nil).Once()
	driver.On("WriteByteData", uint8(0x2A), uint8(0x01)).Return(nil).Once()
	driver.On("Write", []byte{0x01}).Return(nil).Once()
	driver.On("Read", mock.Anything).Return([]byte{9, 8, 7, 6, 5, 4}, nil).Once()
	driver.On("ReadByteData", uint8(0x0B)).Return(0, errors.New("timeout")).Once()

	regs := NewGobotRegisters(driver)
	v, err := regs.ReadRegister(ctx, 0x0D)
	require.NoError(t, err)
	assert.Equal(t, byte(0x4A), v)
	require.NoError(t, regs.WriteRegister(ctx, 0x2A, 0x01))
	buf := make([]byte, 6)
	require.NoError(t, regs.ReadBlock(ctx, 0x01, buf))
	assert.Equal(t, []byte{9, 8, 7, 6, 5, 4}, buf)
	_, err = regs.ReadRegister(ctx, 0x0B)
	assert.ErrorContains(t, err, "could not read register 0xb: timeout")
	driver.AssertExpectations(t)
}
