package accel

import (
	"context"
	"fmt"
	"strings"
)

type EventKind uint8

const (
	EventTransientX EventKind = iota
	EventTransientY
	EventTransientZ
	EventFreefall
)

func (k EventKind) String() string {
	switch k {
	case EventTransientX:
		return "transient_x"
	case EventTransientY:
		return "transient_y"
	case EventTransientZ:
		return "transient_z"
	case EventFreefall:
		return "freefall"
	default:
		return fmt.Sprintf("event(%d)", uint8(k))
	}
}

func ParseEventKind(s string) (EventKind, error) {
	for k := range eventRoutes {
		if k.String() == strings.ToLower(s) {
			return k, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnsupportedEvent, s)
}

// MaxThreshold is the largest value of the 7-bit threshold registers.
const MaxThreshold = 127

type EventConfig struct {
	Enabled bool
	// Latch keeps the event flag set until the source register is read.
	Latch     bool
	Threshold uint8
	// Debounce is the number of consecutive qualifying samples before the event asserts.
	Debounce uint8
}

type Threshold struct {
	Magnitude uint8
	Debounce  uint8
}

// eventSource is one detection block of the chip with its register set.
type eventSource struct {
	name      string
	cfg       byte
	src       byte
	ths       regField
	count     byte
	latch     regField
	clear     byte // cfg bits forced to zero on every write
	interrupt byte // INT_SOURCE / CTRL_REG4 bit
	active    byte // SRC "event active" flag
}

var (
	transientSource = &eventSource{
		name:      "transient",
		cfg:       regTransientCfg,
		src:       regTransientSrc,
		ths:       fieldTransientThs,
		count:     regTransientCount,
		latch:     fieldTransientLat,
		interrupt: intTransient,
		active:    1 << 6,
	}
	freefallSource = &eventSource{
		name:  "freefall",
		cfg:   regFFMtCfg,
		src:   regFFMtSrc,
		ths:   fieldFFMtThs,
		count: regFFMtCount,
		latch: fieldFFMtLatch,
		// OAE=0 combines the axes with AND, i.e. free-fall rather than motion
		clear:     byte(fieldFFMtOrCombine.Mask()),
		interrupt: intFFMt,
		active:    1 << 7,
	}
	eventSources = []*eventSource{transientSource, freefallSource}
)

type eventRoute struct {
	source *eventSource
	enable byte // cfg bits enabling the event
	flag   byte // src bits reporting the event
}

var eventRoutes = map[EventKind]eventRoute{
	EventTransientX: {source: transientSource, enable: 1 << 1, flag: 1 << 1},
	EventTransientY: {source: transientSource, enable: 1 << 2, flag: 1 << 3},
	EventTransientZ: {source: transientSource, enable: 1 << 3, flag: 1 << 5},
	EventFreefall:   {source: freefallSource, enable: 1<<3 | 1<<4 | 1<<5, flag: 1 << 7},
}

func (r eventRoute) compose(cfg byte, ec EventConfig) byte {
	if ec.Enabled {
		cfg |= r.enable
	} else {
		cfg &^= r.enable
	}
	cfg &^= r.source.clear
	var latch byte
	if ec.Latch {
		latch = 1
	}
	return r.source.latch.set(cfg, latch)
}

// interruptMask is the CTRL_REG4 value enabling the sources of kinds.
func interruptMask(kinds []EventKind) byte {
	var mask byte
	for _, k := range kinds {
		mask |= eventRoutes[k].source.interrupt
	}
	return mask
}

// ConfigureEvent writes the configuration, threshold and debounce registers of the
// source behind kind. Session state changes only when every write succeeded.
// Threshold, debounce and latch are shared by the axes of the transient source.
func (s *Session) ConfigureEvent(ctx context.Context, kind EventKind, ec EventConfig) error {
	s.mx.Lock()
	defer s.mx.Unlock()
	if err := s.checkOpen(); err != nil {
		return err
	}
	route, ok := eventRoutes[kind]
	if !ok || !s.desc.Supports(kind) {
		return fmt.Errorf("%w: %s on %s", ErrUnsupportedEvent, kind, s.desc.Name)
	}
	if ec.Threshold > MaxThreshold {
		return fmt.Errorf("%w: %d exceeds %d", ErrInvalidThreshold, ec.Threshold, MaxThreshold)
	}
	src := route.source
	cfg, err := s.read(ctx, src.cfg)
	if err != nil {
		return fmt.Errorf("could not read %s configuration: %w", src.name, err)
	}
	err = s.write(ctx, src.cfg, route.compose(cfg, ec))
	if err != nil {
		return fmt.Errorf("could not write %s configuration: %w", src.name, err)
	}
	err = s.write(ctx, src.ths.reg, src.ths.set(0, ec.Threshold))
	if err != nil {
		return fmt.Errorf("could not write %s threshold: %w", src.name, err)
	}
	err = s.write(ctx, src.count, ec.Debounce)
	if err != nil {
		return fmt.Errorf("could not write %s debounce count: %w", src.name, err)
	}
	for _, k := range s.desc.SupportedEvents {
		if eventRoutes[k].source != src {
			continue
		}
		c := s.events[k]
		c.Latch, c.Threshold, c.Debounce = ec.Latch, ec.Threshold, ec.Debounce
		if k == kind {
			c.Enabled = ec.Enabled
		}
		s.events[k] = c
	}
	s.log.Debug("event configured", "event", kind, "enabled", ec.Enabled, "threshold", ec.Threshold, "debounce", ec.Debounce)
	return nil
}

// Event returns the recorded configuration of kind. Event, Events, EnabledEvents and
// Thresholds only read session state, so they keep answering after Close.
func (s *Session) Event(kind EventKind) (EventConfig, error) {
	s.mx.Lock()
	defer s.mx.Unlock()
	if !s.desc.Supports(kind) {
		return EventConfig{}, fmt.Errorf("%w: %s on %s", ErrUnsupportedEvent, kind, s.desc.Name)
	}
	return s.events[kind], nil
}

// EventState pairs a supported event with its current configuration.
type EventState struct {
	Kind EventKind
	EventConfig
}

// Events lists every supported kind with its recorded configuration.
func (s *Session) Events() []EventState {
	s.mx.Lock()
	defer s.mx.Unlock()
	res := make([]EventState, 0, len(s.desc.SupportedEvents))
	for _, k := range s.desc.SupportedEvents {
		res = append(res, EventState{Kind: k, EventConfig: s.events[k]})
	}
	return res
}

// EnabledEvents lists the kinds currently enabled, in descriptor order.
func (s *Session) EnabledEvents() []EventKind {
	s.mx.Lock()
	defer s.mx.Unlock()
	var res []EventKind
	for _, k := range s.desc.SupportedEvents {
		if s.events[k].Enabled {
			res = append(res, k)
		}
	}
	return res
}

// Thresholds returns the recorded threshold and debounce per event kind.
func (s *Session) Thresholds() map[EventKind]Threshold {
	s.mx.Lock()
	defer s.mx.Unlock()
	res := make(map[EventKind]Threshold, len(s.events))
	for k, c := range s.events {
		res[k] = Threshold{Magnitude: c.Threshold, Debounce: c.Debounce}
	}
	return res
}

// PollEvents reads INT_SOURCE and the source register of every asserted block.
// Reading a source register clears its latched flags.
func (s *Session) PollEvents(ctx context.Context) ([]EventKind, error) {
	s.mx.Lock()
	defer s.mx.Unlock()
	if err := s.checkOpen(); err != nil {
		return nil, err
	}
	pending, err := s.read(ctx, regIntSrc)
	if err != nil {
		return nil, fmt.Errorf("could not read interrupt source: %w", err)
	}
	var fired []EventKind
	for _, src := range eventSources {
		if pending&src.interrupt == 0 || !s.usesSource(src) {
			continue
		}
		flags, err := s.read(ctx, src.src)
		if err != nil {
			return nil, fmt.Errorf("could not read %s source: %w", src.name, err)
		}
		if flags&src.active == 0 {
			continue
		}
		for _, k := range s.desc.SupportedEvents {
			route := eventRoutes[k]
			if route.source == src && flags&route.flag != 0 {
				fired = append(fired, k)
			}
		}
	}
	return fired, nil
}

func (s *Session) usesSource(src *eventSource) bool {
	for _, k := range s.desc.SupportedEvents {
		if eventRoutes[k].source == src {
			return true
		}
	}
	return false
}
