package accel

import (
	"encoding/binary"
	"fmt"
	"strings"
	"time"
)

type FullScaleRange uint8

const (
	Range2G FullScaleRange = iota
	Range4G
	Range8G
)

// XYZ_DATA_CFG FS[1:0] encoding of each range.
var rangeBits = map[FullScaleRange]byte{
	Range2G: 0b00,
	Range4G: 0b01,
	Range8G: 0b10,
}

func rangeFromBits(bits byte) (FullScaleRange, bool) {
	for r, b := range rangeBits {
		if b == bits {
			return r, true
		}
	}
	return 0, false
}

func (r FullScaleRange) String() string {
	switch r {
	case Range2G:
		return "2g"
	case Range4G:
		return "4g"
	case Range8G:
		return "8g"
	default:
		return fmt.Sprintf("range(%d)", uint8(r))
	}
}

func ParseRange(s string) (FullScaleRange, error) {
	switch strings.TrimPrefix(strings.ToLower(s), "±") {
	case "2g", "2":
		return Range2G, nil
	case "4g", "4":
		return Range4G, nil
	case "8g", "8":
		return Range8G, nil
	}
	return 0, fmt.Errorf("%w: unknown full-scale range %q", ErrInvalidArgument, s)
}

// Sample holds raw counts in the native resolution of the chip.
type Sample struct {
	X, Y, Z   int32
	Timestamp time.Time
}

func (s Sample) Axis(a Axis) int32 {
	switch a {
	case AxisX:
		return s.X
	case AxisY:
		return s.Y
	case AxisZ:
		return s.Z
	}
	return 0
}

// Scale converts the sample with the given scale factor.
func (s Sample) Scale(scale FixedPoint) ScaledSample {
	return ScaledSample{
		X:         scale.Apply(s.X),
		Y:         scale.Apply(s.Y),
		Z:         scale.Apply(s.Z),
		Timestamp: s.Timestamp,
	}
}

type ScaledSample struct {
	X, Y, Z   Acceleration
	Timestamp time.Time
}

func (t ScanType) order() binary.ByteOrder {
	if t.BigEndian {
		return binary.BigEndian
	}
	return binary.LittleEndian
}

func (t ScanType) word(raw []byte) uint32 {
	switch t.StorageWidth {
	case 8:
		return uint32(raw[0])
	case 16:
		return uint32(t.order().Uint16(raw))
	default:
		return t.order().Uint32(raw)
	}
}

// Decode converts one storage word into a value of the native resolution.
func (t ScanType) Decode(raw []byte) int32 {
	word := t.word(raw)
	if t.Signed {
		return t.Field().SignExtend(word)
	}
	return int32(t.Field().Get(word))
}

// Encode is the inverse of Decode; bits outside the field are left zero.
func (t ScanType) Encode(value int32) []byte {
	word := t.Field().Set(0, uint32(value))
	buf := make([]byte, t.StorageBytes())
	switch t.StorageWidth {
	case 8:
		buf[0] = byte(word)
	case 16:
		t.order().PutUint16(buf, uint16(word))
	default:
		t.order().PutUint32(buf, word)
	}
	return buf
}

// DecodeAxes decodes an X, Y, Z block laid out as described by channels.
func DecodeAxes(channels []ChannelSpec, raw []byte) (Sample, error) {
	var s Sample
	offset := 0
	for _, c := range channels {
		if c.Type != ChannelAccel || c.ScanIndex < 0 {
			continue
		}
		n := c.Scan.StorageBytes()
		if offset+n > len(raw) {
			return Sample{}, fmt.Errorf("%w: block of %d bytes too short for channel %s", ErrInvalidArgument, len(raw), c.Name())
		}
		v := c.Scan.Decode(raw[offset : offset+n])
		switch c.Axis {
		case AxisX:
			s.X = v
		case AxisY:
			s.Y = v
		case AxisZ:
			s.Z = v
		}
		offset += n
	}
	return s, nil
}
