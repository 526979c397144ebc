package accel

import (
	"context"
	"fmt"
	"strings"
)

type PowerMode uint8

const (
	Standby PowerMode = iota
	Wake
	Sleep
)

func (m PowerMode) String() string {
	switch m {
	case Standby:
		return "standby"
	case Wake:
		return "wake"
	case Sleep:
		return "sleep"
	default:
		return fmt.Sprintf("mode(%d)", uint8(m))
	}
}

func ParsePowerMode(s string) (PowerMode, error) {
	switch strings.ToLower(s) {
	case "standby":
		return Standby, nil
	case "wake", "active":
		return Wake, nil
	case "sleep":
		return Sleep, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrInvalidMode, s)
}

// Low CTRL_REG1 bits written for each mode. On the chip bit 0 is ACTIVE and bit 1 is
// F_READ, so the Sleep pattern clears ACTIVE and turns on 8-bit fast reads.
var modeBits = map[PowerMode]byte{
	Standby: 0b00,
	Wake:    0b01,
	Sleep:   0b10,
}

// SYSMOD values reported by the device.
var sysModes = map[byte]PowerMode{
	0: Standby,
	1: Wake,
	2: Sleep,
}

var transitions = map[PowerMode][]PowerMode{
	Standby: {Standby, Wake},
	Wake:    {Standby, Sleep},
	Sleep:   {Standby},
}

// CanTransition reports whether the controller accepts a change from m to target.
func (m PowerMode) CanTransition(target PowerMode) bool {
	for _, t := range transitions[m] {
		if t == target {
			return true
		}
	}
	return false
}

// Mode returns the last mode successfully written to the device.
func (s *Session) Mode() PowerMode {
	s.mx.Lock()
	defer s.mx.Unlock()
	return s.mode
}

// DeviceMode reads the mode the device currently reports in SYSMOD.
func (s *Session) DeviceMode(ctx context.Context) (PowerMode, error) {
	s.mx.Lock()
	defer s.mx.Unlock()
	if err := s.checkOpen(); err != nil {
		return 0, err
	}
	return s.deviceMode(ctx)
}

func (s *Session) deviceMode(ctx context.Context) (PowerMode, error) {
	v, err := s.read(ctx, regSysMod)
	if err != nil {
		return 0, err
	}
	mode, ok := sysModes[fieldSysMode.get(v)]
	if !ok {
		return 0, fmt.Errorf("%w: unknown system mode %#04x", ErrDeviceNotReady, v)
	}
	return mode, nil
}

// SetMode moves the device to target. Leaving the current mode requires the device to
// report it first; a transition to Standby is always issued.
func (s *Session) SetMode(ctx context.Context, target PowerMode) error {
	s.mx.Lock()
	defer s.mx.Unlock()
	if err := s.checkOpen(); err != nil {
		return err
	}
	return s.setMode(ctx, target)
}

func (s *Session) setMode(ctx context.Context, target PowerMode) error {
	bits, ok := modeBits[target]
	if !ok {
		return fmt.Errorf("%w: %s", ErrInvalidMode, target)
	}
	if !s.mode.CanTransition(target) {
		return fmt.Errorf("%w: transition %s -> %s is not permitted", ErrInvalidMode, s.mode, target)
	}
	observed, err := s.deviceMode(ctx)
	if err != nil {
		return fmt.Errorf("could not check system mode: %w", err)
	}
	if target != Standby && observed != s.mode {
		return fmt.Errorf("%w: device reports %s, expected %s", ErrDeviceNotReady, observed, s.mode)
	}
	err = s.update(ctx, fieldMode, bits)
	if err != nil {
		return fmt.Errorf("could not set %s mode: %w", target, err)
	}
	from := s.mode
	s.mode = target
	s.log.Debug("power mode changed", "from", from, "to", target)
	// the write landed, a failed confirmation does not undo it
	v, err := s.read(ctx, regSysMod)
	if err != nil {
		return fmt.Errorf("could not confirm %s mode: %w", target, err)
	}
	if settled, ok := sysModes[fieldSysMode.get(v)]; !ok || settled != target {
		s.log.Debug("system mode not settled yet", "requested", target, "sysmod", v)
	}
	return nil
}
