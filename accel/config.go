package accel

import (
	"context"
	"fmt"
	"strings"
)

// Range returns the active full-scale range.
func (s *Session) Range() FullScaleRange {
	s.mx.Lock()
	defer s.mx.Unlock()
	return s.rng
}

// Scale returns the scale factor of the active range.
func (s *Session) Scale() FixedPoint {
	s.mx.Lock()
	defer s.mx.Unlock()
	return s.desc.Scales[s.rng]
}

func (s *Session) SetRange(ctx context.Context, r FullScaleRange) error {
	s.mx.Lock()
	defer s.mx.Unlock()
	if err := s.checkOpen(); err != nil {
		return err
	}
	bits, ok := rangeBits[r]
	if !ok {
		return fmt.Errorf("%w: unknown full-scale range %s", ErrInvalidArgument, r)
	}
	if err := s.requireStandby("full-scale range"); err != nil {
		return err
	}
	err := s.update(ctx, fieldFullScale, bits)
	if err != nil {
		return fmt.Errorf("could not set range %s: %w", r, err)
	}
	s.rng = r
	s.log.Debug("range changed", "range", r)
	return nil
}

// output data rates indexed by the CTRL_REG1 DR field
var dataRates = []FixedPoint{
	{800, 0},
	{400, 0},
	{200, 0},
	{100, 0},
	{50, 0},
	{12, 500000},
	{6, 250000},
	{1, 560000},
}

func SampleFrequencies() []FixedPoint {
	res := make([]FixedPoint, len(dataRates))
	copy(res, dataRates)
	return res
}

func (s *Session) SampleFrequency(ctx context.Context) (FixedPoint, error) {
	s.mx.Lock()
	defer s.mx.Unlock()
	if err := s.checkOpen(); err != nil {
		return FixedPoint{}, err
	}
	v, err := s.read(ctx, regCtrl1)
	if err != nil {
		return FixedPoint{}, fmt.Errorf("could not read data rate: %w", err)
	}
	return dataRates[fieldDataRate.get(v)], nil
}

func (s *Session) SetSampleFrequency(ctx context.Context, hz FixedPoint) error {
	s.mx.Lock()
	defer s.mx.Unlock()
	if err := s.checkOpen(); err != nil {
		return err
	}
	idx := -1
	for i, r := range dataRates {
		if r == hz {
			idx = i
			break
		}
	}
	if idx < 0 {
		return fmt.Errorf("%w: unsupported sampling frequency %s Hz", ErrInvalidArgument, hz)
	}
	if err := s.requireStandby("sampling frequency"); err != nil {
		return err
	}
	err := s.update(ctx, fieldDataRate, byte(idx))
	if err != nil {
		return fmt.Errorf("could not set sampling frequency: %w", err)
	}
	s.log.Debug("sampling frequency changed", "hz", hz)
	return nil
}

// OversamplingMode selects the active-mode power scheme (CTRL_REG2 MODS).
type OversamplingMode uint8

const (
	OversamplingNormal OversamplingMode = iota
	OversamplingLowNoiseLowPower
	OversamplingHighResolution
	OversamplingLowPower
)

var oversamplingNames = []string{"normal", "low-noise-low-power", "high-resolution", "low-power"}

func (m OversamplingMode) String() string {
	if int(m) < len(oversamplingNames) {
		return oversamplingNames[m]
	}
	return fmt.Sprintf("oversampling(%d)", uint8(m))
}

func OversamplingModes() []string {
	return append([]string(nil), oversamplingNames...)
}

func ParseOversamplingMode(s string) (OversamplingMode, error) {
	for i, n := range oversamplingNames {
		if n == strings.ToLower(s) {
			return OversamplingMode(i), nil
		}
	}
	return 0, fmt.Errorf("%w: unknown oversampling mode %q", ErrInvalidArgument, s)
}

func (s *Session) Oversampling(ctx context.Context) (OversamplingMode, error) {
	s.mx.Lock()
	defer s.mx.Unlock()
	if err := s.checkOpen(); err != nil {
		return 0, err
	}
	v, err := s.read(ctx, regCtrl2)
	if err != nil {
		return 0, fmt.Errorf("could not read oversampling mode: %w", err)
	}
	return OversamplingMode(fieldOversampling.get(v)), nil
}

func (s *Session) SetOversampling(ctx context.Context, m OversamplingMode) error {
	s.mx.Lock()
	defer s.mx.Unlock()
	if err := s.checkOpen(); err != nil {
		return err
	}
	if int(m) >= len(oversamplingNames) {
		return fmt.Errorf("%w: %s", ErrInvalidArgument, m)
	}
	if err := s.requireStandby("oversampling mode"); err != nil {
		return err
	}
	err := s.update(ctx, fieldOversampling, byte(m))
	if err != nil {
		return fmt.Errorf("could not set oversampling mode: %w", err)
	}
	return nil
}

// HighPassFilter is the output filter setting. Cutoff indexes the HP_FILTER_CUTOFF
// table of the chip; the frequency it selects depends on the data rate.
type HighPassFilter struct {
	Enabled bool
	Cutoff  uint8
}

const maxCutoff = 3

func (s *Session) HighPassFilter(ctx context.Context) (HighPassFilter, error) {
	s.mx.Lock()
	defer s.mx.Unlock()
	if err := s.checkOpen(); err != nil {
		return HighPassFilter{}, err
	}
	cfg, err := s.read(ctx, regXYZDataCfg)
	if err != nil {
		return HighPassFilter{}, fmt.Errorf("could not read filter output: %w", err)
	}
	cutoff, err := s.read(ctx, regHPFilterCutoff)
	if err != nil {
		return HighPassFilter{}, fmt.Errorf("could not read filter cutoff: %w", err)
	}
	return HighPassFilter{Enabled: fieldHPFOut.get(cfg) == 1, Cutoff: fieldHPFCutoff.get(cutoff)}, nil
}

func (s *Session) SetHighPassFilter(ctx context.Context, f HighPassFilter) error {
	s.mx.Lock()
	defer s.mx.Unlock()
	if err := s.checkOpen(); err != nil {
		return err
	}
	if f.Cutoff > maxCutoff {
		return fmt.Errorf("%w: cutoff index %d exceeds %d", ErrInvalidArgument, f.Cutoff, maxCutoff)
	}
	if err := s.requireStandby("high-pass filter"); err != nil {
		return err
	}
	err := s.update(ctx, fieldHPFCutoff, f.Cutoff)
	if err != nil {
		return fmt.Errorf("could not set filter cutoff: %w", err)
	}
	var out byte
	if f.Enabled {
		out = 1
	}
	err = s.update(ctx, fieldHPFOut, out)
	if err != nil {
		return fmt.Errorf("could not set filter output: %w", err)
	}
	return nil
}

var offsetRegisters = map[Axis]byte{
	AxisX: regOffX,
	AxisY: regOffY,
	AxisZ: regOffZ,
}

// CalibBias returns the signed offset correction of an axis.
func (s *Session) CalibBias(ctx context.Context, axis Axis) (int8, error) {
	s.mx.Lock()
	defer s.mx.Unlock()
	if err := s.checkOpen(); err != nil {
		return 0, err
	}
	reg, ok := offsetRegisters[axis]
	if !ok {
		return 0, fmt.Errorf("%w: no offset register for axis %s", ErrInvalidArgument, axis)
	}
	v, err := s.read(ctx, reg)
	if err != nil {
		return 0, err
	}
	return int8(v), nil
}

func (s *Session) SetCalibBias(ctx context.Context, axis Axis, bias int8) error {
	s.mx.Lock()
	defer s.mx.Unlock()
	if err := s.checkOpen(); err != nil {
		return err
	}
	reg, ok := offsetRegisters[axis]
	if !ok {
		return fmt.Errorf("%w: no offset register for axis %s", ErrInvalidArgument, axis)
	}
	if err := s.requireStandby("calibration bias"); err != nil {
		return err
	}
	return s.write(ctx, reg, byte(bias))
}

// Reset soft-resets the chip and restores the session defaults: Standby, ±2g,
// every event disabled, 50 Hz and the interrupt sources of the default events.
func (s *Session) Reset(ctx context.Context) error {
	s.mx.Lock()
	defer s.mx.Unlock()
	if err := s.checkOpen(); err != nil {
		return err
	}
	// the chip may NACK the write that resets it
	err := s.write(ctx, regCtrl2, fieldReset.set(0, 1))
	if err != nil {
		s.log.Debug("reset write not acknowledged", "error", err)
	}
	done := false
	for i := 0; i < s.config.ResetAttempts; i++ {
		if err := sleep(ctx, s.config.ResetInterval); err != nil {
			return err
		}
		v, err := s.read(ctx, regCtrl2)
		if err != nil {
			s.log.Debug("device not responding after reset", "attempt", i+1, "error", err)
			continue
		}
		if fieldReset.get(v) == 0 {
			done = true
			break
		}
	}
	if !done {
		return fmt.Errorf("%w: reset did not complete after %d polls", ErrDeviceNotReady, s.config.ResetAttempts)
	}
	s.mode = Standby
	s.rng = Range2G
	for k := range s.events {
		s.events[k] = EventConfig{}
	}
	err = s.write(ctx, regCtrl1, fieldDataRate.set(0, defaultDataRate))
	if err != nil {
		return fmt.Errorf("could not restore data rate: %w", err)
	}
	err = s.write(ctx, regCtrl4, interruptMask(s.desc.DefaultEvents))
	if err != nil {
		return fmt.Errorf("could not enable default interrupt sources: %w", err)
	}
	s.log.Info("device reset")
	return nil
}
