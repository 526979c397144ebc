// Package iio exposes an accelerometer session as named channel and attribute files,
// the way an industrial-I/O framework registers a device.
package iio

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/mklimuk/mma845x/accel"
)

var (
	ErrUnknownAttribute = errors.New("iio: unknown attribute")
	ErrReadOnly         = errors.New("iio: attribute is read-only")
)

type attribute struct {
	read  func(ctx context.Context) (string, error)
	write func(ctx context.Context, value string) error
}

// Device is the registration of one session.
type Device struct {
	session *accel.Session
	attrs   map[string]attribute
}

func NewDevice(session *accel.Session) *Device {
	d := &Device{session: session, attrs: make(map[string]attribute)}
	d.register()
	return d
}

func (d *Device) Name() string {
	return d.session.Descriptor().Name
}

func (d *Device) Channels() []accel.ChannelSpec {
	return d.session.Descriptor().Channels
}

// Attributes returns the attribute names in lexical order.
func (d *Device) Attributes() []string {
	names := make([]string, 0, len(d.attrs))
	for n := range d.attrs {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

func (d *Device) Read(ctx context.Context, name string) (string, error) {
	a, ok := d.attrs[name]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrUnknownAttribute, name)
	}
	return a.read(ctx)
}

func (d *Device) Write(ctx context.Context, name string, value string) error {
	a, ok := d.attrs[name]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownAttribute, name)
	}
	if a.write == nil {
		return fmt.Errorf("%w: %s", ErrReadOnly, name)
	}
	return a.write(ctx, strings.TrimSpace(value))
}

func (d *Device) register() {
	s := d.session
	d.attrs["name"] = attribute{read: func(context.Context) (string, error) {
		return s.Descriptor().Name, nil
	}}
	for _, c := range d.Channels() {
		if c.Type != accel.ChannelAccel || c.ScanIndex < 0 {
			continue
		}
		axis := c.Axis
		d.attrs[fmt.Sprintf("in_accel_%s_raw", axis)] = attribute{read: func(ctx context.Context) (string, error) {
			sample, err := s.ReadAxes(ctx)
			if err != nil {
				return "", err
			}
			return strconv.Itoa(int(sample.Axis(axis))), nil
		}}
		d.attrs[fmt.Sprintf("in_accel_%s_calibbias", axis)] = attribute{
			read: func(ctx context.Context) (string, error) {
				v, err := s.CalibBias(ctx, axis)
				if err != nil {
					return "", err
				}
				return strconv.Itoa(int(v)), nil
			},
			write: func(ctx context.Context, value string) error {
				v, err := strconv.ParseInt(value, 10, 8)
				if err != nil {
					return fmt.Errorf("%w: %v", accel.ErrInvalidArgument, err)
				}
				return s.SetCalibBias(ctx, axis, int8(v))
			},
		}
	}
	d.attrs["in_accel_scale"] = attribute{
		read: func(context.Context) (string, error) {
			return s.Scale().String(), nil
		},
		write: func(ctx context.Context, value string) error {
			scale, err := accel.ParseFixedPoint(value)
			if err != nil {
				return err
			}
			for r, v := range s.Descriptor().Scales {
				if v == scale {
					return s.SetRange(ctx, r)
				}
			}
			return fmt.Errorf("%w: scale %s not available", accel.ErrInvalidArgument, value)
		},
	}
	d.attrs["in_accel_scale_available"] = attribute{read: func(context.Context) (string, error) {
		scales := s.Descriptor().Scales
		parts := make([]string, 0, len(scales))
		for _, r := range []accel.FullScaleRange{accel.Range2G, accel.Range4G, accel.Range8G} {
			parts = append(parts, scales[r].String())
		}
		return strings.Join(parts, " "), nil
	}}
	d.attrs["in_accel_sampling_frequency"] = attribute{
		read: func(ctx context.Context) (string, error) {
			f, err := s.SampleFrequency(ctx)
			if err != nil {
				return "", err
			}
			return f.String(), nil
		},
		write: func(ctx context.Context, value string) error {
			f, err := accel.ParseFixedPoint(value)
			if err != nil {
				return err
			}
			return s.SetSampleFrequency(ctx, f)
		},
	}
	d.attrs["in_accel_sampling_frequency_available"] = attribute{read: func(context.Context) (string, error) {
		freqs := accel.SampleFrequencies()
		parts := make([]string, len(freqs))
		for i, f := range freqs {
			parts[i] = f.String()
		}
		return strings.Join(parts, " "), nil
	}}
	d.attrs["in_accel_filter_high_pass_3db_frequency"] = attribute{
		read: func(ctx context.Context) (string, error) {
			f, err := s.HighPassFilter(ctx)
			if err != nil {
				return "", err
			}
			if !f.Enabled {
				return "off", nil
			}
			return strconv.Itoa(int(f.Cutoff)), nil
		},
		write: func(ctx context.Context, value string) error {
			if value == "off" {
				return s.SetHighPassFilter(ctx, accel.HighPassFilter{})
			}
			v, err := strconv.ParseUint(value, 10, 8)
			if err != nil {
				return fmt.Errorf("%w: %v", accel.ErrInvalidArgument, err)
			}
			return s.SetHighPassFilter(ctx, accel.HighPassFilter{Enabled: true, Cutoff: uint8(v)})
		},
	}
	d.attrs["in_accel_oversampling_mode"] = attribute{
		read: func(ctx context.Context) (string, error) {
			m, err := s.Oversampling(ctx)
			if err != nil {
				return "", err
			}
			return m.String(), nil
		},
		write: func(ctx context.Context, value string) error {
			m, err := accel.ParseOversamplingMode(value)
			if err != nil {
				return err
			}
			return s.SetOversampling(ctx, m)
		},
	}
	d.attrs["in_accel_oversampling_mode_available"] = attribute{read: func(context.Context) (string, error) {
		return strings.Join(accel.OversamplingModes(), " "), nil
	}}
	d.attrs["power_mode"] = attribute{
		read: func(context.Context) (string, error) {
			return s.Mode().String(), nil
		},
		write: func(ctx context.Context, value string) error {
			m, err := accel.ParsePowerMode(value)
			if err != nil {
				return err
			}
			return s.SetMode(ctx, m)
		},
	}
	for _, kind := range s.Descriptor().SupportedEvents {
		d.registerEvent(kind)
	}
}

func (d *Device) registerEvent(kind accel.EventKind) {
	s := d.session
	update := func(ctx context.Context, change func(*accel.EventConfig)) error {
		ec, err := s.Event(kind)
		if err != nil {
			return err
		}
		change(&ec)
		return s.ConfigureEvent(ctx, kind, ec)
	}
	prefix := "events/" + kind.String()
	d.attrs[prefix+"_en"] = attribute{
		read: func(context.Context) (string, error) {
			ec, err := s.Event(kind)
			if err != nil {
				return "", err
			}
			if ec.Enabled {
				return "1", nil
			}
			return "0", nil
		},
		write: func(ctx context.Context, value string) error {
			enabled, err := strconv.ParseBool(value)
			if err != nil {
				return fmt.Errorf("%w: %v", accel.ErrInvalidArgument, err)
			}
			return update(ctx, func(ec *accel.EventConfig) { ec.Enabled = enabled })
		},
	}
	d.attrs[prefix+"_value"] = attribute{
		read: func(context.Context) (string, error) {
			ec, err := s.Event(kind)
			if err != nil {
				return "", err
			}
			return strconv.Itoa(int(ec.Threshold)), nil
		},
		write: func(ctx context.Context, value string) error {
			v, err := strconv.ParseUint(value, 10, 8)
			if err != nil {
				return fmt.Errorf("%w: %v", accel.ErrInvalidThreshold, err)
			}
			return update(ctx, func(ec *accel.EventConfig) { ec.Threshold = uint8(v) })
		},
	}
	d.attrs[prefix+"_period"] = attribute{
		read: func(context.Context) (string, error) {
			ec, err := s.Event(kind)
			if err != nil {
				return "", err
			}
			return strconv.Itoa(int(ec.Debounce)), nil
		},
		write: func(ctx context.Context, value string) error {
			v, err := strconv.ParseUint(value, 10, 8)
			if err != nil {
				return fmt.Errorf("%w: %v", accel.ErrInvalidArgument, err)
			}
			return update(ctx, func(ec *accel.EventConfig) { ec.Debounce = uint8(v) })
		},
	}
}
