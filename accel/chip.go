package accel

import (
	"errors"
	"fmt"
	"maps"
	"slices"
	"sort"
	"strconv"
	"strings"
)

// Identity bytes reported by WHO_AM_I.
const (
	MMA8451ID  = 0x1A
	MMA8452ID  = 0x2A
	MMA8453ID  = 0x3A
	MMA8652ID  = 0x4A
	MMA8653ID  = 0x5A
	FXLS8471ID = 0x6A
)

type Axis uint8

const (
	AxisX Axis = iota
	AxisY
	AxisZ
	// AxisXYZ is the aggregate modifier of channels combining all three axes.
	AxisXYZ
)

func (a Axis) String() string {
	switch a {
	case AxisX:
		return "x"
	case AxisY:
		return "y"
	case AxisZ:
		return "z"
	case AxisXYZ:
		return "x&y&z"
	default:
		return fmt.Sprintf("axis(%d)", uint8(a))
	}
}

func ParseAxis(s string) (Axis, error) {
	switch strings.ToLower(s) {
	case "x":
		return AxisX, nil
	case "y":
		return AxisY, nil
	case "z":
		return AxisZ, nil
	}
	return 0, fmt.Errorf("%w: unknown axis %q", ErrInvalidArgument, s)
}

type ChannelType uint8

const (
	ChannelAccel ChannelType = iota
	ChannelTimestamp
)

// ScanType describes how a channel sample is stored in the output registers.
type ScanType struct {
	BitWidth     uint8
	StorageWidth uint8
	Shift        uint8
	Signed       bool
	BigEndian    bool
}

// Field is the location of the significant bits inside the storage word.
func (t ScanType) Field() BitField {
	return BitField{Offset: t.Shift, Width: t.BitWidth}
}

func (t ScanType) StorageBytes() int {
	return int(t.StorageWidth) / 8
}

type ChannelSpec struct {
	Type ChannelType
	Axis Axis
	// ScanIndex is the position of the channel in a sample scan, -1 when the channel is
	// not part of the scan.
	ScanIndex int
	Scan      ScanType
	Events    []EventKind
}

func (c ChannelSpec) Name() string {
	if c.Type == ChannelTimestamp {
		return "timestamp"
	}
	return "accel_" + c.Axis.String()
}

// FixedPoint is a value split in an integer part and a micro (1e-6) part.
type FixedPoint struct {
	Integer int
	Micro   int
}

func (f FixedPoint) Micros() int64 {
	return int64(f.Integer)*1_000_000 + int64(f.Micro)
}

// Apply scales a raw count, the result is expressed in micro-units.
func (f FixedPoint) Apply(raw int32) Acceleration {
	return Acceleration(int64(raw) * f.Micros())
}

func (f FixedPoint) String() string {
	return formatMicros(f.Micros())
}

func ParseFixedPoint(s string) (FixedPoint, error) {
	s = strings.TrimSpace(s)
	neg := strings.HasPrefix(s, "-")
	s = strings.TrimPrefix(s, "-")
	whole, frac, _ := strings.Cut(s, ".")
	if whole == "" && frac == "" {
		return FixedPoint{}, fmt.Errorf("%w: empty value", ErrInvalidArgument)
	}
	if len(frac) > 6 {
		return FixedPoint{}, fmt.Errorf("%w: %q has more than 6 decimals", ErrInvalidArgument, s)
	}
	frac += strings.Repeat("0", 6-len(frac))
	var integer int
	if whole != "" {
		v, err := strconv.ParseUint(whole, 10, 31)
		if err != nil {
			return FixedPoint{}, fmt.Errorf("%w: %q: %v", ErrInvalidArgument, s, err)
		}
		integer = int(v)
	}
	micro, err := strconv.ParseUint(frac, 10, 31)
	if err != nil {
		return FixedPoint{}, fmt.Errorf("%w: %q: %v", ErrInvalidArgument, s, err)
	}
	if neg {
		return FixedPoint{Integer: -integer, Micro: -int(micro)}, nil
	}
	return FixedPoint{Integer: integer, Micro: int(micro)}, nil
}

// Acceleration in micro m/s².
type Acceleration int64

func (a Acceleration) MetersPerSecond2() float64 {
	return float64(a) / 1e6
}

func (a Acceleration) String() string {
	return formatMicros(int64(a)) + " m/s²"
}

func formatMicros(v int64) string {
	sign := ""
	if v < 0 {
		sign = "-"
		v = -v
	}
	return fmt.Sprintf("%s%d.%06d", sign, v/1_000_000, v%1_000_000)
}

// ChipDescriptor is the static description of one chip model.
type ChipDescriptor struct {
	ID              byte
	Name            string
	Channels        []ChannelSpec
	Scales          map[FullScaleRange]FixedPoint
	SupportedEvents []EventKind
	DefaultEvents   []EventKind
}

func (d *ChipDescriptor) Resolution() uint8 {
	for _, c := range d.Channels {
		if c.Type == ChannelAccel && c.ScanIndex >= 0 {
			return c.Scan.BitWidth
		}
	}
	return 0
}

func (d *ChipDescriptor) Supports(kind EventKind) bool {
	for _, k := range d.SupportedEvents {
		if k == kind {
			return true
		}
	}
	return false
}

// scanBytes is the size of the X, Y, Z block read.
func (d *ChipDescriptor) scanBytes() int {
	n := 0
	for _, c := range d.Channels {
		if c.Type == ChannelAccel && c.ScanIndex >= 0 {
			n += c.Scan.StorageBytes()
		}
	}
	return n
}

func accelChannel(axis Axis, bits uint8, events ...EventKind) ChannelSpec {
	return ChannelSpec{
		Type:      ChannelAccel,
		Axis:      axis,
		ScanIndex: int(axis),
		Scan: ScanType{
			BitWidth:     bits,
			StorageWidth: 16,
			Shift:        16 - bits,
			Signed:       true,
			BigEndian:    true,
		},
		Events: events,
	}
}

func channels(bits uint8, transient bool) []ChannelSpec {
	var x, y, z []EventKind
	if transient {
		x, y, z = []EventKind{EventTransientX}, []EventKind{EventTransientY}, []EventKind{EventTransientZ}
	}
	return []ChannelSpec{
		accelChannel(AxisX, bits, x...),
		accelChannel(AxisY, bits, y...),
		accelChannel(AxisZ, bits, z...),
		{
			Type:      ChannelTimestamp,
			ScanIndex: 3,
			Scan:      ScanType{BitWidth: 64, StorageWidth: 64, Signed: true},
		},
		{
			Type:      ChannelAccel,
			Axis:      AxisXYZ,
			ScanIndex: -1,
			Events:    []EventKind{EventFreefall},
		},
	}
}

var (
	scales14 = map[FullScaleRange]FixedPoint{Range2G: {0, 2394}, Range4G: {0, 4788}, Range8G: {0, 9577}}
	scales12 = map[FullScaleRange]FixedPoint{Range2G: {0, 9577}, Range4G: {0, 19154}, Range8G: {0, 38307}}
	scales10 = map[FullScaleRange]FixedPoint{Range2G: {0, 38307}, Range4G: {0, 76614}, Range8G: {0, 153228}}

	allEvents      = []EventKind{EventTransientX, EventTransientY, EventTransientZ, EventFreefall}
	freefallEvents = []EventKind{EventFreefall}
)

var chipTable = mustBuildTable([]ChipDescriptor{
	{ID: MMA8451ID, Name: "mma8451", Channels: channels(14, true), Scales: scales14, SupportedEvents: allEvents, DefaultEvents: allEvents},
	{ID: MMA8452ID, Name: "mma8452", Channels: channels(12, true), Scales: scales12, SupportedEvents: allEvents, DefaultEvents: allEvents},
	{ID: MMA8453ID, Name: "mma8453", Channels: channels(10, true), Scales: scales10, SupportedEvents: allEvents, DefaultEvents: allEvents},
	{ID: MMA8652ID, Name: "mma8652", Channels: channels(12, false), Scales: scales12, SupportedEvents: freefallEvents, DefaultEvents: freefallEvents},
	{ID: MMA8653ID, Name: "mma8653", Channels: channels(10, false), Scales: scales10, SupportedEvents: freefallEvents, DefaultEvents: freefallEvents},
	{ID: FXLS8471ID, Name: "fxls8471", Channels: channels(14, true), Scales: scales14, SupportedEvents: allEvents, DefaultEvents: allEvents},
})

func mustBuildTable(chips []ChipDescriptor) map[byte]*ChipDescriptor {
	table, err := buildTable(chips)
	if err != nil {
		panic(fmt.Sprintf("invalid chip table: %v", err))
	}
	return table
}

func buildTable(chips []ChipDescriptor) (map[byte]*ChipDescriptor, error) {
	table := make(map[byte]*ChipDescriptor, len(chips))
	for i := range chips {
		chip := &chips[i]
		if other, ok := table[chip.ID]; ok {
			return nil, fmt.Errorf("%s and %s both claim id %#04x", other.Name, chip.Name, chip.ID)
		}
		if err := chip.validate(); err != nil {
			return nil, fmt.Errorf("%s: %w", chip.Name, err)
		}
		table[chip.ID] = chip
	}
	return table, nil
}

func (d *ChipDescriptor) validate() error {
	var errs []error
	for _, c := range d.Channels {
		if c.Scan.StorageWidth == 0 {
			continue
		}
		if c.Scan.Shift+c.Scan.BitWidth != c.Scan.StorageWidth {
			errs = append(errs, fmt.Errorf("channel %s: shift %d + bits %d != storage %d",
				c.Name(), c.Scan.Shift, c.Scan.BitWidth, c.Scan.StorageWidth))
		}
		for _, k := range c.Events {
			if !d.Supports(k) {
				errs = append(errs, fmt.Errorf("channel %s: event %s not supported", c.Name(), k))
			}
		}
	}
	for _, r := range []FullScaleRange{Range2G, Range4G, Range8G} {
		if _, ok := d.Scales[r]; !ok {
			errs = append(errs, fmt.Errorf("no scale for range %s", r))
		}
	}
	for _, k := range d.DefaultEvents {
		if !d.Supports(k) {
			errs = append(errs, fmt.Errorf("default event %s not supported", k))
		}
	}
	return errors.Join(errs...)
}

// clone copies d down to its slices and maps, several chips share scale tables.
func (d *ChipDescriptor) clone() *ChipDescriptor {
	c := *d
	c.Channels = make([]ChannelSpec, len(d.Channels))
	for i, ch := range d.Channels {
		ch.Events = slices.Clone(ch.Events)
		c.Channels[i] = ch
	}
	c.Scales = maps.Clone(d.Scales)
	c.SupportedEvents = slices.Clone(d.SupportedEvents)
	c.DefaultEvents = slices.Clone(d.DefaultEvents)
	return &c
}

// Lookup returns a copy of the descriptor of the chip reporting id in WHO_AM_I.
func Lookup(id byte) (*ChipDescriptor, bool) {
	d, ok := chipTable[id]
	if !ok {
		return nil, false
	}
	return d.clone(), true
}

// Descriptors returns a copy of every known chip ordered by identity byte.
func Descriptors() []*ChipDescriptor {
	res := make([]*ChipDescriptor, 0, len(chipTable))
	for _, d := range chipTable {
		res = append(res, d.clone())
	}
	sort.Slice(res, func(i, j int) bool { return res[i].ID < res[j].ID })
	return res
}
