package accel

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestCanTransition(t *testing.T) {
	tests := []struct {
		from, to PowerMode
		allowed  bool
	}{
		{Standby, Standby, true},
		{Standby, Wake, true},
		{Standby, Sleep, false},
		{Wake, Standby, true},
		{Wake, Sleep, true},
		{Wake, Wake, false},
		{Sleep, Standby, true},
		{Sleep, Wake, false},
		{Sleep, Sleep, false},
	}
	for _, tt := range tests {
		t.Run(tt.from.String()+"->"+tt.to.String(), func(t *testing.T) {
			assert.Equal(t, tt.allowed, tt.from.CanTransition(tt.to))
		})
	}
}

func TestSetMode(t *testing.T) {
	ctx := context.Background()
	s, dev := openMock(t, MMA8452ID)
	assert.Equal(t, Standby, s.Mode())

	require.NoError(t, s.SetMode(ctx, Wake))
	assert.Equal(t, Wake, s.Mode())
	assert.Equal(t, byte(0x01), dev.Register(regCtrl1)&0x03)

	require.NoError(t, s.SetMode(ctx, Sleep))
	assert.Equal(t, Sleep, s.Mode())
	observed, err := s.DeviceMode(ctx)
	require.NoError(t, err)
	assert.Equal(t, Sleep, observed)

	require.NoError(t, s.SetMode(ctx, Standby))
	assert.Equal(t, Standby, s.Mode())
	assert.Equal(t, byte(0x00), dev.Register(regCtrl1)&0x03)
}

func TestSetModePreservesDataRate(t *testing.T) {
	s, dev := openMock(t, MMA8452ID)
	dev.SetRegister(regCtrl1, 0x28)
	require.NoError(t, s.SetMode(context.Background(), Wake))
	assert.Equal(t, byte(0x29), dev.Register(regCtrl1))
}

func TestSetModeRejected(t *testing.T) {
	ctx := context.Background()

	t.Run("standby to sleep", func(t *testing.T) {
		s, dev := openMock(t, MMA8452ID)
		err := s.SetMode(ctx, Sleep)
		assert.ErrorIs(t, err, ErrInvalidMode)
		assert.Equal(t, Standby, s.Mode())
		assert.Empty(t, dev.Writes())
	})

	t.Run("unknown mode", func(t *testing.T) {
		s, _ := openMock(t, MMA8452ID)
		assert.ErrorIs(t, s.SetMode(ctx, PowerMode(7)), ErrInvalidMode)
	})

	t.Run("device not in recorded mode", func(t *testing.T) {
		s, dev := openMock(t, MMA8452ID)
		require.NoError(t, s.SetMode(ctx, Wake))
		dev.SetSystemMode(Standby)
		err := s.SetMode(ctx, Sleep)
		assert.ErrorIs(t, err, ErrDeviceNotReady)
		assert.Equal(t, Wake, s.Mode())
	})

	t.Run("standby is always issued", func(t *testing.T) {
		s, dev := openMock(t, MMA8452ID)
		require.NoError(t, s.SetMode(ctx, Wake))
		dev.SetSystemMode(Sleep)
		require.NoError(t, s.SetMode(ctx, Standby))
		assert.Equal(t, Standby, s.Mode())
	})

	t.Run("failed write keeps mode", func(t *testing.T) {
		errBus := errors.New("bus fault")
		s, dev := openMock(t, MMA8452ID)
		dev.Fail(regCtrl1, true, errBus)
		err := s.SetMode(ctx, Wake)
		assert.ErrorIs(t, err, ErrTransport)
		assert.ErrorIs(t, err, errBus)
		assert.Equal(t, Standby, s.Mode())
	})
}

func TestSetModeUnsettledIsNotAnError(t *testing.T) {
	ctx := context.Background()
	transport := new(MockTransport)
	transport.expectOpen(MMA8452ID, 0x00, 0x00)
	transport.On("ReadRegister", mock.Anything, byte(regSysMod)).Return(0x00, nil).Once()
	transport.On("ReadRegister", mock.Anything, byte(regCtrl1)).Return(0x20, nil).Once()
	transport.On("WriteRegister", mock.Anything, byte(regCtrl1), byte(0x21)).Return(nil).Once()
	// still reporting standby right after the write
	transport.On("ReadRegister", mock.Anything, byte(regSysMod)).Return(0x00, nil).Once()

	s, err := Open(ctx, transport, WithLogger(quietLogger()))
	require.NoError(t, err)
	require.NoError(t, s.SetMode(ctx, Wake))
	assert.Equal(t, Wake, s.Mode())
	transport.AssertExpectations(t)
}

func TestSetModeUnconfirmedRecordsWrittenMode(t *testing.T) {
	ctx := context.Background()
	errBus := errors.New("arbitration lost")
	transport := new(MockTransport)
	transport.expectOpen(MMA8452ID, 0x00, 0x00)
	transport.On("ReadRegister", mock.Anything, byte(regSysMod)).Return(0x00, nil).Once()
	transport.On("ReadRegister", mock.Anything, byte(regCtrl1)).Return(0x20, nil).Once()
	transport.On("WriteRegister", mock.Anything, byte(regCtrl1), byte(0x21)).Return(nil).Once()
	transport.On("ReadRegister", mock.Anything, byte(regSysMod)).Return(0x00, errBus).Once()

	s, err := Open(ctx, transport, WithLogger(quietLogger()))
	require.NoError(t, err)
	err = s.SetMode(ctx, Wake)
	assert.ErrorIs(t, err, ErrTransport)
	assert.ErrorIs(t, err, errBus)
	assert.Equal(t, Wake, s.Mode())
	// the chip is active, range writes would be ignored
	assert.ErrorIs(t, s.SetRange(ctx, Range8G), ErrDeviceNotReady)
	assert.Equal(t, Range2G, s.Range())
	transport.AssertExpectations(t)
}

func TestDeviceModeUnknown(t *testing.T) {
	s, dev := openMock(t, MMA8452ID)
	dev.SetRegister(regSysMod, 0x03)
	_, err := s.DeviceMode(context.Background())
	assert.ErrorIs(t, err, ErrDeviceNotReady)
}

func TestParsePowerMode(t *testing.T) {
	for in, want := range map[string]PowerMode{"standby": Standby, "WAKE": Wake, "active": Wake, "sleep": Sleep} {
		got, err := ParsePowerMode(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got)
	}
	_, err := ParsePowerMode("off")
	assert.ErrorIs(t, err, ErrInvalidMode)
}
