package accel

import (
	"errors"
	"sync"

	"tinygo.org/x/drivers"
)

var _ drivers.I2C = (*MockDevice)(nil)

// ErrMockNack is returned by MockDevice for transfers it does not acknowledge.
var ErrMockNack = errors.New("mma845x mock: no acknowledge")

// Sampler produces the raw counts loaded when a new sample is due.
type Sampler func() (x, y, z int32)

type MockOption func(*MockDevice)

func WithMockAddress(address uint16) MockOption {
	return func(d *MockDevice) {
		d.address = address
	}
}

// WithSampler loads a fresh sample every time STATUS is read while the device is active.
func WithSampler(s Sampler) MockOption {
	return func(d *MockDevice) {
		d.sampler = s
	}
}

// WithResetNack makes the device drop the acknowledge of the transfer that resets it.
func WithResetNack() MockOption {
	return func(d *MockDevice) {
		d.nackReset = true
	}
}

type fault struct {
	reg   byte
	write bool
}

// MockDevice emulates the register file of an MMA845x chip behind the tinygo I2C
// transfer contract. The register pointer auto-increments and persists between
// transfers, so a pointer write followed by a separate read behaves like the chip.
type MockDevice struct {
	mx        sync.Mutex
	address   uint16
	id        byte
	channels  []ChannelSpec
	regs      [regMax + 1]byte
	pointer   byte
	sampler   Sampler
	nackReset bool
	faults    map[fault]error
	writes    []byte
}

func NewMockDevice(id byte, opts ...MockOption) *MockDevice {
	d := &MockDevice{
		address: AddressSA0Low,
		id:      id,
		faults:  make(map[fault]error),
	}
	if desc, ok := Lookup(id); ok {
		d.channels = desc.Channels
	} else {
		d.channels = channels(12, true)
	}
	for _, opt := range opts {
		opt(d)
	}
	d.powerOn()
	return d
}

func (d *MockDevice) powerOn() {
	d.regs = [regMax + 1]byte{}
	d.regs[regWhoAmI] = d.id
	d.pointer = 0
}

func (d *MockDevice) Tx(addr uint16, w, r []byte) error {
	d.mx.Lock()
	defer d.mx.Unlock()
	if addr != d.address {
		return ErrMockNack
	}
	if len(w) > 0 {
		d.pointer = w[0]
		if len(w) > 1 {
			if err := d.faults[fault{reg: d.pointer, write: true}]; err != nil {
				return err
			}
			for _, v := range w[1:] {
				if err := d.store(d.pointer, v); err != nil {
					return err
				}
				d.advance()
			}
		}
	}
	if len(r) == 0 {
		return nil
	}
	if err := d.faults[fault{reg: d.pointer}]; err != nil {
		return err
	}
	for i := range r {
		r[i] = d.load(d.pointer)
		d.advance()
	}
	return nil
}

func (d *MockDevice) advance() {
	d.pointer++
	if int(d.pointer) > regMax {
		d.pointer = 0
	}
}

func (d *MockDevice) load(reg byte) byte {
	if int(reg) > regMax {
		return 0
	}
	v := d.regs[reg]
	switch reg {
	case regStatus:
		if d.sampler != nil && d.regs[regSysMod] != 0 {
			d.loadSample(d.sampler())
			v = d.regs[regStatus]
		}
	case regOutZ + 1:
		d.regs[regStatus] = 0
	case regTransientSrc:
		d.regs[regTransientSrc] = 0
		d.regs[regIntSrc] &^= intTransient
	case regFFMtSrc:
		d.regs[regFFMtSrc] = 0
		d.regs[regIntSrc] &^= intFFMt
	}
	return v
}

func (d *MockDevice) store(reg byte, v byte) error {
	if int(reg) > regMax {
		return nil
	}
	d.writes = append(d.writes, reg)
	switch reg {
	case regStatus, regOutX, regOutX + 1, regOutY, regOutY + 1, regOutZ, regOutZ + 1,
		regSysMod, regIntSrc, regWhoAmI, regFFMtSrc, regTransientSrc:
		// read-only
	case regCtrl1:
		d.regs[reg] = v
		d.regs[regSysMod] = fieldMode.get(v)
	case regCtrl2:
		if fieldReset.get(v) == 1 {
			d.powerOn()
			if d.nackReset {
				return ErrMockNack
			}
			return nil
		}
		d.regs[reg] = v
	default:
		d.regs[reg] = v
	}
	return nil
}

func (d *MockDevice) loadSample(x, y, z int32) {
	for _, c := range d.channels {
		if c.Type != ChannelAccel || c.ScanIndex < 0 {
			continue
		}
		var v int32
		switch c.Axis {
		case AxisX:
			v = x
		case AxisY:
			v = y
		case AxisZ:
			v = z
		}
		copy(d.regs[regOutX+byte(c.ScanIndex)*2:], c.Scan.Encode(v))
	}
	d.regs[regStatus] = statusZYXDR | statusXYZReady
	d.regs[regIntSrc] |= intDataReady
}

// SetSample loads raw counts into the output registers and raises the data-ready flags.
func (d *MockDevice) SetSample(x, y, z int32) {
	d.mx.Lock()
	defer d.mx.Unlock()
	d.loadSample(x, y, z)
}

// SetRegister overwrites a register without the side effects of a bus write.
func (d *MockDevice) SetRegister(reg byte, v byte) {
	d.mx.Lock()
	defer d.mx.Unlock()
	d.regs[reg] = v
}

func (d *MockDevice) Register(reg byte) byte {
	d.mx.Lock()
	defer d.mx.Unlock()
	return d.regs[reg]
}

// SetSystemMode forces SYSMOD, e.g. to emulate a device that has not settled.
func (d *MockDevice) SetSystemMode(m PowerMode) {
	d.mx.Lock()
	defer d.mx.Unlock()
	d.regs[regSysMod] = modeBits[m]
}

// Fail makes every transfer touching reg in the given direction return err.
// A nil err removes the fault.
func (d *MockDevice) Fail(reg byte, write bool, err error) {
	d.mx.Lock()
	defer d.mx.Unlock()
	if err == nil {
		delete(d.faults, fault{reg: reg, write: write})
		return
	}
	d.faults[fault{reg: reg, write: write}] = err
}

// Writes returns the registers written so far, in order.
func (d *MockDevice) Writes() []byte {
	d.mx.Lock()
	defer d.mx.Unlock()
	return append([]byte(nil), d.writes...)
}

// Trigger asserts kind the way the detection block would. It reports false when the
// event is not enabled in the configuration register.
func (d *MockDevice) Trigger(kind EventKind) bool {
	d.mx.Lock()
	defer d.mx.Unlock()
	route, ok := eventRoutes[kind]
	if !ok {
		return false
	}
	src := route.source
	if d.regs[src.cfg]&route.enable == 0 {
		return false
	}
	d.regs[src.src] |= route.flag | src.active
	// INT_SOURCE only reports sources enabled in CTRL_REG4
	if d.regs[regCtrl4]&src.interrupt != 0 {
		d.regs[regIntSrc] |= src.interrupt
	}
	return true
}
