package accel

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/mklimuk/mma845x"
	"github.com/mklimuk/mma845x/i2c"
)

func TestOpen(t *testing.T) {
	ctx := context.Background()

	t.Run("identifies chip", func(t *testing.T) {
		transport := new(MockTransport)
		transport.expectOpen(MMA8451ID, 0x02, 0x00)
		s, err := Open(ctx, transport, WithLogger(quietLogger()))
		require.NoError(t, err)
		assert.Equal(t, "mma8451", s.Descriptor().Name)
		assert.Equal(t, Range8G, s.Range())
		assert.Equal(t, FixedPoint{0, 9577}, s.Scale())
		assert.Equal(t, Standby, s.Mode())
		assert.NotEqual(t, [16]byte{}, [16]byte(s.ID()))
		transport.AssertExpectations(t)
	})

	t.Run("unknown identity", func(t *testing.T) {
		transport := new(MockTransport)
		transport.On("ReadRegister", mock.Anything, byte(regWhoAmI)).Return(0xC7, nil).Once()
		_, err := Open(ctx, transport, WithLogger(quietLogger()))
		assert.ErrorIs(t, err, ErrIdentityMismatch)
		transport.AssertExpectations(t)
	})

	t.Run("expected identity differs", func(t *testing.T) {
		transport := new(MockTransport)
		transport.On("ReadRegister", mock.Anything, byte(regWhoAmI)).Return(int(MMA8453ID), nil).Once()
		_, err := Open(ctx, transport, WithLogger(quietLogger()), WithExpectedIdentity(MMA8452ID))
		assert.ErrorIs(t, err, ErrIdentityMismatch)
		assert.ErrorContains(t, err, "mma8453")
	})

	t.Run("identity read fails", func(t *testing.T) {
		errBus := errors.New("no device")
		transport := new(MockTransport)
		transport.On("ReadRegister", mock.Anything, byte(regWhoAmI)).Return(0, errBus).Once()
		_, err := Open(ctx, transport, WithLogger(quietLogger()))
		assert.ErrorIs(t, err, ErrTransport)
		assert.ErrorIs(t, err, errBus)
		assert.ErrorContains(t, err, "WHO_AM_I")
	})

	t.Run("device left active", func(t *testing.T) {
		transport := new(MockTransport)
		transport.expectOpen(MMA8452ID, 0x00, 0x01)
		s, err := Open(ctx, transport, WithLogger(quietLogger()))
		require.NoError(t, err)
		assert.Equal(t, Standby, s.Mode())
	})

	t.Run("wrong bus address", func(t *testing.T) {
		dev := NewMockDevice(MMA8452ID, WithMockAddress(AddressSA0High))
		transport := mma845x.NewRegisterBus(i2c.NewTinyGoBus(dev), AddressSA0Low)
		_, err := Open(ctx, transport, WithLogger(quietLogger()))
		assert.ErrorIs(t, err, ErrMockNack)
		assert.ErrorIs(t, err, ErrTransport)
	})
}

func TestClose(t *testing.T) {
	ctx := context.Background()
	s, dev := openMock(t, MMA8452ID)
	require.NoError(t, s.SetMode(ctx, Wake))
	s.Close(ctx)
	assert.Equal(t, Standby, s.Mode())
	assert.Equal(t, byte(0x00), dev.Register(regSysMod))

	_, err := s.ReadAxes(ctx)
	assert.ErrorIs(t, err, ErrSessionClosed)
	assert.ErrorIs(t, s.SetMode(ctx, Wake), ErrSessionClosed)
	assert.ErrorIs(t, s.ConfigureEvent(ctx, EventFreefall, EventConfig{}), ErrSessionClosed)
	// second close is a no-op
	s.Close(ctx)
}

func TestCloseTransportFailure(t *testing.T) {
	ctx := context.Background()
	s, dev := openMock(t, MMA8452ID)
	require.NoError(t, s.SetMode(ctx, Wake))
	dev.Fail(regCtrl1, true, errors.New("bus fault"))
	s.Close(ctx)
	assert.Equal(t, Wake, s.Mode())
	_, err := s.ReadAxes(ctx)
	assert.ErrorIs(t, err, ErrSessionClosed)
}

func TestReadAxesMockDevice(t *testing.T) {
	ctx := context.Background()
	for _, id := range []byte{MMA8451ID, MMA8452ID, MMA8453ID} {
		s, dev := openMock(t, id)
		bits := s.Descriptor().Resolution()
		max := int32(1)<<(bits-1) - 1
		dev.SetSample(-1, max, -max-1)
		sample, err := s.ReadAxes(ctx)
		require.NoError(t, err)
		assert.Equal(t, int32(-1), sample.X, s.Descriptor().Name)
		assert.Equal(t, max, sample.Y, s.Descriptor().Name)
		assert.Equal(t, -max-1, sample.Z, s.Descriptor().Name)
	}
}

func TestReadAxesWhenReady(t *testing.T) {
	ctx := context.Background()

	t.Run("data available", func(t *testing.T) {
		s, dev := openMock(t, MMA8452ID, WithDataReadyPolling(time.Microsecond, 3))
		dev.SetSample(10, 20, 30)
		sample, err := s.ReadAxesWhenReady(ctx)
		require.NoError(t, err)
		assert.Equal(t, int32(20), sample.Y)
		// reading the block consumed the data-ready flags
		assert.Equal(t, byte(0), dev.Register(regStatus))
	})

	t.Run("no data", func(t *testing.T) {
		s, _ := openMock(t, MMA8452ID, WithDataReadyPolling(time.Microsecond, 3))
		_, err := s.ReadAxesWhenReady(ctx)
		assert.ErrorIs(t, err, ErrDeviceNotReady)
	})

	t.Run("sampler while active", func(t *testing.T) {
		var n int32
		dev := NewMockDevice(MMA8452ID, WithSampler(func() (int32, int32, int32) {
			v := atomic.AddInt32(&n, 1)
			return v, -v, 0
		}))
		transport := mma845x.NewRegisterBus(i2c.NewTinyGoBus(dev), AddressSA0Low)
		s, err := Open(ctx, transport, WithLogger(quietLogger()), WithDataReadyPolling(time.Microsecond, 3))
		require.NoError(t, err)
		require.NoError(t, s.SetMode(ctx, Wake))
		sample, err := s.ReadAxesWhenReady(ctx)
		require.NoError(t, err)
		assert.Equal(t, int32(1), sample.X)
		assert.Equal(t, int32(-1), sample.Y)
	})

	t.Run("cancelled", func(t *testing.T) {
		s, _ := openMock(t, MMA8452ID, WithDataReadyPolling(time.Second, 3))
		cctx, cancel := context.WithTimeout(ctx, 5*time.Millisecond)
		defer cancel()
		_, err := s.ReadAxesWhenReady(cctx)
		assert.ErrorIs(t, err, context.DeadlineExceeded)
	})
}

func TestSessionSerializesTransactions(t *testing.T) {
	transport := new(MockTransport)
	transport.expectOpen(MMA8452ID, 0x00, 0x00)
	s, err := Open(context.Background(), transport, WithLogger(quietLogger()))
	require.NoError(t, err)

	const numOps = 5
	transport.On("ReadBlock", mock.Anything, byte(regOutX), mock.Anything).
		Return([]byte{0x40, 0x00, 0x20, 0x00, 0x10, 0x00}, nil).Times(numOps)

	var wg sync.WaitGroup
	wg.Add(numOps)
	for i := 0; i < numOps; i++ {
		go func() {
			defer wg.Done()
			_, err := s.ReadAxes(context.Background())
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.LessOrEqual(t, atomic.LoadInt64(&transport.maxConcurrent), int64(1), "session should serialize operations")
	transport.AssertExpectations(t)
}

func TestRegisterErrorMessage(t *testing.T) {
	err := &RegisterError{Op: "write", Reg: regCtrl1, Err: errors.New("nack")}
	assert.Equal(t, "could not write CTRL_REG1 (0x2a): nack", err.Error())
	assert.Equal(t, "REG_7F", registerName(0x7F))
}
