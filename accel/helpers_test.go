package accel

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/mklimuk/mma845x"
	"github.com/mklimuk/mma845x/i2c"
)

// MockTransport is a testify mock of mma845x.RegisterTransport that also records
// the number of overlapping transactions.
type MockTransport struct {
	mock.Mock
	concurrentOps int64
	maxConcurrent int64
	mu            sync.Mutex
}

func (m *MockTransport) enter() {
	m.mu.Lock()
	concurrent := atomic.AddInt64(&m.concurrentOps, 1)
	if concurrent > atomic.LoadInt64(&m.maxConcurrent) {
		atomic.StoreInt64(&m.maxConcurrent, concurrent)
	}
	m.mu.Unlock()
}

func (m *MockTransport) leave() {
	m.mu.Lock()
	atomic.AddInt64(&m.concurrentOps, -1)
	m.mu.Unlock()
}

func (m *MockTransport) ReadRegister(ctx context.Context, register byte) (byte, error) {
	m.enter()
	defer m.leave()
	args := m.Called(ctx, register)
	return byte(args.Int(0)), args.Error(1)
}

func (m *MockTransport) WriteRegister(ctx context.Context, register byte, value byte) error {
	m.enter()
	defer m.leave()
	args := m.Called(ctx, register, value)
	return args.Error(0)
}

func (m *MockTransport) ReadBlock(ctx context.Context, register byte, buffer []byte) error {
	m.enter()
	defer m.leave()
	// give concurrent callers a chance to overlap
	time.Sleep(time.Millisecond)
	args := m.Called(ctx, register, buffer)
	if data, ok := args.Get(0).([]byte); ok && len(data) <= len(buffer) {
		copy(buffer, data)
	}
	return args.Error(1)
}

func (m *MockTransport) expectOpen(id, dataCfg, sysmod byte) {
	m.On("ReadRegister", mock.Anything, byte(regWhoAmI)).Return(int(id), nil).Once()
	m.On("ReadRegister", mock.Anything, byte(regXYZDataCfg)).Return(int(dataCfg), nil).Once()
	m.On("ReadRegister", mock.Anything, byte(regSysMod)).Return(int(sysmod), nil).Once()
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// openMock opens a session on a simulated chip reached through the tinygo bus adapter.
func openMock(t *testing.T, id byte, opts ...Option) (*Session, *MockDevice) {
	t.Helper()
	dev := NewMockDevice(id)
	s, err := openOn(dev, opts...)
	require.NoError(t, err)
	return s, dev
}

func openOn(dev *MockDevice, opts ...Option) (*Session, error) {
	transport := mma845x.NewRegisterBus(i2c.NewTinyGoBus(dev), AddressSA0Low)
	opts = append([]Option{WithLogger(quietLogger()), WithResetPolling(time.Microsecond, 3)}, opts...)
	return Open(context.Background(), transport, opts...)
}
