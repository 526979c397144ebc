package i2c

import (
	"context"
	"encoding/binary"
	"fmt"
	"log/slog"

	"github.com/mklimuk/mma845x"
	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/conn/v3/mmr"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/host/v3"
)

var (
	_ mma845x.I2CBus                    = &GenericBus{}
	_ mma845x.AddressableRegisterReader = &GenericBus{}
	_ mma845x.RegisterTransport         = &Registers{}
)

// GenericBus is a host I2C bus opened through periph.
type GenericBus struct {
	bus i2c.BusCloser
}

// NewGenericBus initializes the host drivers and opens dev ("" selects the first bus).
func NewGenericBus(dev string) (*GenericBus, error) {
	state, err := host.Init()
	if err != nil {
		return nil, fmt.Errorf("could not init host: %w", err)
	}
	for _, driver := range state.Loaded {
		slog.Debug("host driver loaded", "driver", driver.String())
	}
	for _, failure := range state.Failed {
		slog.Debug("host driver failed", "driver", failure.D.String(), "error", failure.Err)
	}
	bus, err := i2creg.Open(dev)
	if err != nil {
		return nil, fmt.Errorf("could not open i2c bus: %w", err)
	}
	return NewGenericBusFrom(bus), nil
}

func NewGenericBusFrom(bus i2c.BusCloser) *GenericBus {
	return &GenericBus{bus: bus}
}

// SetSpeed changes the bus clock, e.g. 400*physic.KiloHertz for fast mode.
func (b *GenericBus) SetSpeed(f physic.Frequency) error {
	err := b.bus.SetSpeed(f)
	if err != nil {
		return fmt.Errorf("could not set bus speed to %s: %w", f, err)
	}
	return nil
}

func (b *GenericBus) ReadFromAddr(ctx context.Context, address byte, buffer []byte) error {
	err := b.bus.Tx(uint16(address), nil, buffer)
	if err != nil {
		return fmt.Errorf("could not read from i2c bus %#x: %w", address, err)
	}
	return nil
}

func (b *GenericBus) WriteToAddr(ctx context.Context, address byte, buffer []byte) error {
	err := b.bus.Tx(uint16(address), buffer, nil)
	if err != nil {
		return fmt.Errorf("could not write to i2c bus %#x: %w", address, err)
	}
	return nil
}

// ReadRegisterFromAddr addresses register and reads buffer back with a repeated start.
func (b *GenericBus) ReadRegisterFromAddr(ctx context.Context, address byte, register byte, buffer []byte) error {
	err := b.bus.Tx(uint16(address), []byte{register}, buffer)
	if err != nil {
		return fmt.Errorf("could not read register %#x from i2c bus %#x: %w", register, address, err)
	}
	return nil
}

func (b *GenericBus) Release(ctx context.Context) error {
	return nil
}

func (b *GenericBus) Close() error {
	return b.bus.Close()
}

// Registers returns the register view of the device at address.
func (b *GenericBus) Registers(address uint16) *Registers {
	return &Registers{dev: mmr.Dev8{
		Conn:  &i2c.Dev{Bus: b.bus, Addr: address},
		Order: binary.BigEndian,
	}}
}

// Registers is a periph memory-mapped register device.
type Registers struct {
	dev mmr.Dev8
}

func (r *Registers) ReadRegister(ctx context.Context, register byte) (byte, error) {
	v, err := r.dev.ReadUint8(register)
	if err != nil {
		return 0, fmt.Errorf("could not read register %#x: %w", register, err)
	}
	return v, nil
}

func (r *Registers) WriteRegister(ctx context.Context, register byte, value byte) error {
	err := r.dev.WriteUint8(register, value)
	if err != nil {
		return fmt.Errorf("could not write register %#x: %w", register, err)
	}
	return nil
}

func (r *Registers) ReadBlock(ctx context.Context, register byte, buffer []byte) error {
	err := r.dev.Conn.Tx([]byte{register}, buffer)
	if err != nil {
		return fmt.Errorf("could not read %d registers from %#x: %w", len(buffer), register, err)
	}
	return nil
}
