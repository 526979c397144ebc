package accel

import "fmt"

// I2C addresses selected by the SA0 pin.
const (
	AddressSA0Low  = 0x1C
	AddressSA0High = 0x1D
)

const (
	regStatus         = 0x00
	regOutX           = 0x01 // MSB first
	regOutY           = 0x03
	regOutZ           = 0x05
	regSysMod         = 0x0B
	regIntSrc         = 0x0C
	regWhoAmI         = 0x0D
	regXYZDataCfg     = 0x0E
	regHPFilterCutoff = 0x0F
	regFFMtCfg        = 0x15
	regFFMtSrc        = 0x16
	regFFMtThs        = 0x17
	regFFMtCount      = 0x18
	regTransientCfg   = 0x1D
	regTransientSrc   = 0x1E
	regTransientThs   = 0x1F
	regTransientCount = 0x20
	regCtrl1          = 0x2A
	regCtrl2          = 0x2B
	regCtrl4          = 0x2D
	regCtrl5          = 0x2E
	regOffX           = 0x2F
	regOffY           = 0x30
	regOffZ           = 0x31

	regMax = regOffZ
)

var registerNames = map[byte]string{
	regStatus:         "STATUS",
	regOutX:           "OUT_X_MSB",
	regOutX + 1:       "OUT_X_LSB",
	regOutY:           "OUT_Y_MSB",
	regOutY + 1:       "OUT_Y_LSB",
	regOutZ:           "OUT_Z_MSB",
	regOutZ + 1:       "OUT_Z_LSB",
	regSysMod:         "SYSMOD",
	regIntSrc:         "INT_SOURCE",
	regWhoAmI:         "WHO_AM_I",
	regXYZDataCfg:     "XYZ_DATA_CFG",
	regHPFilterCutoff: "HP_FILTER_CUTOFF",
	regFFMtCfg:        "FF_MT_CFG",
	regFFMtSrc:        "FF_MT_SRC",
	regFFMtThs:        "FF_MT_THS",
	regFFMtCount:      "FF_MT_COUNT",
	regTransientCfg:   "TRANSIENT_CFG",
	regTransientSrc:   "TRANSIENT_SRC",
	regTransientThs:   "TRANSIENT_THS",
	regTransientCount: "TRANSIENT_COUNT",
	regCtrl1:          "CTRL_REG1",
	regCtrl2:          "CTRL_REG2",
	regCtrl4:          "CTRL_REG4",
	regCtrl5:          "CTRL_REG5",
	regOffX:           "OFF_X",
	regOffY:           "OFF_Y",
	regOffZ:           "OFF_Z",
}

func registerName(reg byte) string {
	if name, ok := registerNames[reg]; ok {
		return name
	}
	return fmt.Sprintf("REG_%02X", reg)
}

// BitField locates Width bits starting at Offset (counted from the least significant
// bit) inside a register or a sample storage word.
type BitField struct {
	Offset uint8
	Width  uint8
}

func (f BitField) Mask() uint32 {
	return (uint32(1)<<f.Width - 1) << f.Offset
}

func (f BitField) Get(word uint32) uint32 {
	return (word & f.Mask()) >> f.Offset
}

func (f BitField) Set(word uint32, value uint32) uint32 {
	return word&^f.Mask() | (value<<f.Offset)&f.Mask()
}

// SignExtend extracts the field and treats its top bit as the sign bit.
func (f BitField) SignExtend(word uint32) int32 {
	shift := 32 - f.Width
	return int32(f.Get(word)<<shift) >> shift
}

// regField is a BitField bound to the register that holds it.
type regField struct {
	reg byte
	BitField
}

func (f regField) get(value byte) byte {
	return byte(f.Get(uint32(value)))
}

func (f regField) set(value byte, field byte) byte {
	return byte(f.BitField.Set(uint32(value), uint32(field)))
}

var (
	fieldSysMode       = regField{regSysMod, BitField{Offset: 0, Width: 2}}
	fieldFullScale     = regField{regXYZDataCfg, BitField{Offset: 0, Width: 2}}
	fieldHPFOut        = regField{regXYZDataCfg, BitField{Offset: 4, Width: 1}}
	fieldHPFCutoff     = regField{regHPFilterCutoff, BitField{Offset: 0, Width: 2}}
	fieldMode          = regField{regCtrl1, BitField{Offset: 0, Width: 2}}
	fieldDataRate      = regField{regCtrl1, BitField{Offset: 3, Width: 3}}
	fieldOversampling  = regField{regCtrl2, BitField{Offset: 0, Width: 2}}
	fieldReset         = regField{regCtrl2, BitField{Offset: 6, Width: 1}}
	fieldTransientLat  = regField{regTransientCfg, BitField{Offset: 4, Width: 1}}
	fieldTransientThs  = regField{regTransientThs, BitField{Offset: 0, Width: 7}}
	fieldFFMtLatch     = regField{regFFMtCfg, BitField{Offset: 7, Width: 1}}
	fieldFFMtOrCombine = regField{regFFMtCfg, BitField{Offset: 6, Width: 1}}
	fieldFFMtThs       = regField{regFFMtThs, BitField{Offset: 0, Width: 7}}
)

// STATUS data-ready flags.
const (
	statusXYZReady = 0x07 // XDR | YDR | ZDR
	statusZYXDR    = 0x08
)

// INT_SOURCE and CTRL_REG4 share the bit layout.
const (
	intDataReady = 1 << 0
	intFFMt      = 1 << 2
	intTransient = 1 << 5
)

const defaultDataRate = 0x04 // 50 Hz
