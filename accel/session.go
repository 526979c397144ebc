package accel

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/mklimuk/mma845x"
)

type Options struct {
	ExpectedIdentity  byte
	CheckIdentity     bool
	Logger            *slog.Logger
	DataReadyInterval time.Duration
	DataReadyAttempts int
	ResetInterval     time.Duration
	ResetAttempts     int
}

type Option func(*Options)

// WithExpectedIdentity makes Open fail unless WHO_AM_I reports id.
func WithExpectedIdentity(id byte) Option {
	return func(o *Options) {
		o.ExpectedIdentity = id
		o.CheckIdentity = true
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(o *Options) {
		o.Logger = logger
	}
}

// WithDataReadyPolling bounds ReadAxesWhenReady.
func WithDataReadyPolling(interval time.Duration, attempts int) Option {
	return func(o *Options) {
		o.DataReadyInterval = interval
		o.DataReadyAttempts = attempts
	}
}

// WithResetPolling bounds the wait for the soft reset bit to clear.
func WithResetPolling(interval time.Duration, attempts int) Option {
	return func(o *Options) {
		o.ResetInterval = interval
		o.ResetAttempts = attempts
	}
}

// Session is an attached device. All register transactions of a session are
// serialized; concurrent callers wait for the running operation to finish.
type Session struct {
	mx sync.Mutex

	id        uuid.UUID
	config    Options
	transport mma845x.RegisterTransport
	desc      *ChipDescriptor
	log       *slog.Logger
	buf       []byte

	mode   PowerMode
	rng    FullScaleRange
	events map[EventKind]EventConfig
	closed bool
}

// Open identifies the chip behind transport and returns a session in Standby.
// Open reads registers but never writes them.
func Open(ctx context.Context, transport mma845x.RegisterTransport, opts ...Option) (*Session, error) {
	config := Options{
		Logger:            slog.Default(),
		DataReadyInterval: 2 * time.Millisecond,
		DataReadyAttempts: 50,
		ResetInterval:     time.Millisecond,
		ResetAttempts:     10,
	}
	for _, opt := range opts {
		opt(&config)
	}
	id, err := transport.ReadRegister(ctx, regWhoAmI)
	if err != nil {
		return nil, &RegisterError{Op: "read", Reg: regWhoAmI, Err: err}
	}
	desc, ok := chipTable[id]
	if !ok {
		return nil, fmt.Errorf("%w: unknown chip id %#04x", ErrIdentityMismatch, id)
	}
	if config.CheckIdentity && id != config.ExpectedIdentity {
		return nil, fmt.Errorf("%w: expected %#04x, found %s (%#04x)", ErrIdentityMismatch, config.ExpectedIdentity, desc.Name, id)
	}
	sid := uuid.New()
	s := &Session{
		id:        sid,
		config:    config,
		transport: transport,
		desc:      desc,
		log:       config.Logger.With("session", sid.String(), "chip", desc.Name),
		buf:       make([]byte, desc.scanBytes()),
		mode:      Standby,
		rng:       Range2G,
		events:    make(map[EventKind]EventConfig, len(desc.SupportedEvents)),
	}
	for _, k := range desc.SupportedEvents {
		s.events[k] = EventConfig{}
	}
	dataCfg, err := s.read(ctx, regXYZDataCfg)
	if err != nil {
		return nil, fmt.Errorf("could not read full-scale range: %w", err)
	}
	if r, ok := rangeFromBits(fieldFullScale.get(dataCfg)); ok {
		s.rng = r
	}
	observed, err := s.deviceMode(ctx)
	if err != nil {
		return nil, fmt.Errorf("could not read system mode: %w", err)
	}
	if observed != Standby {
		s.log.Warn("device is not in standby, set standby mode before activating it", "sysmod", observed)
	}
	s.log.Debug("session opened", "id", fmt.Sprintf("%#04x", id), "range", s.rng)
	return s, nil
}

// Close puts the device in Standby. Transport failures are logged, not returned.
func (s *Session) Close(ctx context.Context) {
	s.mx.Lock()
	defer s.mx.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	err := s.setMode(ctx, Standby)
	if err != nil {
		s.log.Warn("could not put device in standby on close", "error", err)
		return
	}
	s.log.Debug("session closed")
}

func (s *Session) ID() uuid.UUID {
	return s.id
}

// Descriptor returns a copy of the chip description; the session keeps the shared one.
func (s *Session) Descriptor() *ChipDescriptor {
	return s.desc.clone()
}

func (s *Session) checkOpen() error {
	if s.closed {
		return ErrSessionClosed
	}
	return nil
}

// requireStandby guards configuration registers the chip only accepts in Standby.
func (s *Session) requireStandby(what string) error {
	if s.mode != Standby {
		return fmt.Errorf("%w: %s can only be changed in standby (current mode: %s)", ErrDeviceNotReady, what, s.mode)
	}
	return nil
}

func (s *Session) read(ctx context.Context, reg byte) (byte, error) {
	v, err := s.transport.ReadRegister(ctx, reg)
	if err != nil {
		return 0, &RegisterError{Op: "read", Reg: reg, Err: err}
	}
	return v, nil
}

func (s *Session) write(ctx context.Context, reg byte, value byte) error {
	err := s.transport.WriteRegister(ctx, reg, value)
	if err != nil {
		return &RegisterError{Op: "write", Reg: reg, Err: err}
	}
	return nil
}

func (s *Session) readBlock(ctx context.Context, reg byte, buf []byte) error {
	err := s.transport.ReadBlock(ctx, reg, buf)
	if err != nil {
		return &RegisterError{Op: "read block at", Reg: reg, Err: err}
	}
	return nil
}

// update is a read-modify-write of a single field.
func (s *Session) update(ctx context.Context, f regField, value byte) error {
	v, err := s.read(ctx, f.reg)
	if err != nil {
		return err
	}
	return s.write(ctx, f.reg, f.set(v, value))
}

// ReadAxes block-reads the output registers and decodes X, Y and Z.
func (s *Session) ReadAxes(ctx context.Context) (Sample, error) {
	s.mx.Lock()
	defer s.mx.Unlock()
	if err := s.checkOpen(); err != nil {
		return Sample{}, err
	}
	return s.readAxes(ctx)
}

func (s *Session) readAxes(ctx context.Context) (Sample, error) {
	err := s.readBlock(ctx, regOutX, s.buf)
	if err != nil {
		return Sample{}, fmt.Errorf("could not read axes: %w", err)
	}
	sample, err := DecodeAxes(s.desc.Channels, s.buf)
	if err != nil {
		return Sample{}, err
	}
	sample.Timestamp = time.Now()
	return sample, nil
}

// ReadScaled reads the axes and applies the scale of the active range.
func (s *Session) ReadScaled(ctx context.Context) (ScaledSample, error) {
	s.mx.Lock()
	defer s.mx.Unlock()
	if err := s.checkOpen(); err != nil {
		return ScaledSample{}, err
	}
	sample, err := s.readAxes(ctx)
	if err != nil {
		return ScaledSample{}, err
	}
	return sample.Scale(s.desc.Scales[s.rng]), nil
}

// ReadAxesWhenReady polls STATUS until a new sample is available and reads it.
func (s *Session) ReadAxesWhenReady(ctx context.Context) (Sample, error) {
	s.mx.Lock()
	defer s.mx.Unlock()
	if err := s.checkOpen(); err != nil {
		return Sample{}, err
	}
	for i := 0; i < s.config.DataReadyAttempts; i++ {
		status, err := s.read(ctx, regStatus)
		if err != nil {
			return Sample{}, fmt.Errorf("could not read data status: %w", err)
		}
		if status&statusZYXDR != 0 || status&statusXYZReady == statusXYZReady {
			return s.readAxes(ctx)
		}
		if err := sleep(ctx, s.config.DataReadyInterval); err != nil {
			return Sample{}, err
		}
	}
	return Sample{}, fmt.Errorf("%w: no data after %d status polls", ErrDeviceNotReady, s.config.DataReadyAttempts)
}

func sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
