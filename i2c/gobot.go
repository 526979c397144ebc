package i2c

import (
	"context"
	"fmt"

	"github.com/mklimuk/mma845x"
	gobot "gobot.io/x/gobot/v2/drivers/i2c"
	"gobot.io/x/gobot/v2/platforms/nanopi"
)

var _ mma845x.RegisterTransport = &GobotRegisters{}

// GobotDriver is the subset of the gobot generic I2C driver used for register access.
type GobotDriver interface {
	ReadByteData(reg uint8) (uint8, error)
	WriteByteData(reg uint8, val uint8) error
	Write(data []byte) error
	Read(data []byte) error
}

// GobotRegisters exposes a device driven by gobot as a RegisterTransport.
type GobotRegisters struct {
	driver GobotDriver
}

func NewGobotRegisters(driver GobotDriver) *GobotRegisters {
	return &GobotRegisters{driver: driver}
}

func (g *GobotRegisters) ReadRegister(ctx context.Context, register byte) (byte, error) {
	v, err := g.driver.ReadByteData(register)
	if err != nil {
		return 0, fmt.Errorf("could not read register %#x: %w", register, err)
	}
	return v, nil
}

func (g *GobotRegisters) WriteRegister(ctx context.Context, register byte, value byte) error {
	err := g.driver.WriteByteData(register, value)
	if err != nil {
		return fmt.Errorf("could not write register %#x: %w", register, err)
	}
	return nil
}

func (g *GobotRegisters) ReadBlock(ctx context.Context, register byte, buffer []byte) error {
	// set registry pointer first
	err := g.driver.Write([]byte{register})
	if err != nil {
		return fmt.Errorf("could not set registry pointer %#x: %w", register, err)
	}
	err = g.driver.Read(buffer)
	if err != nil {
		return fmt.Errorf("could not read registry content %#x: %w", register, err)
	}
	return nil
}

// OpenNanoPi starts a generic gobot driver for the device at address on a NanoPi NEO
// I2C bus. The returned function halts the driver and releases the adaptor.
func OpenNanoPi(bus int, address byte) (*GobotRegisters, func(), error) {
	npi := nanopi.NewNeoAdaptor()
	err := npi.I2cBusAdaptor.Connect()
	if err != nil {
		return nil, nil, fmt.Errorf("adaptor connect error: %w", err)
	}
	driver := gobot.NewGenericDriver(npi, "mma845x", int(address), func(c gobot.Config) {
		c.SetBus(bus)
	})
	err = driver.Start()
	if err != nil {
		_ = npi.I2cBusAdaptor.Finalize()
		return nil, nil, fmt.Errorf("driver start error: %w", err)
	}
	closer := func() {
		_ = driver.Halt()
		_ = npi.I2cBusAdaptor.Finalize()
	}
	return NewGobotRegisters(driver), closer, nil
}
