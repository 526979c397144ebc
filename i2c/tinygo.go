package i2c

import (
	"context"
	"fmt"
	"sync"

	"github.com/mklimuk/mma845x"
	"github.com/mklimuk/mma845x/snsctx"
	"tinygo.org/x/drivers"
)

var (
	_ mma845x.I2CBus                    = &TinyGoBus{}
	_ mma845x.AddressableRegisterReader = &TinyGoBus{}
)

// TinyGoBus serializes transfers on a tinygo driver bus shared by several devices.
type TinyGoBus struct {
	mx  sync.Mutex
	bus drivers.I2C
}

func NewTinyGoBus(bus drivers.I2C) *TinyGoBus {
	return &TinyGoBus{bus: bus}
}

func (b *TinyGoBus) tx(ctx context.Context, address byte, w, r []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	b.mx.Lock()
	defer b.mx.Unlock()
	snsctx.Dump(ctx, "i2c write", address, w)
	err := b.bus.Tx(uint16(address), w, r)
	if err != nil {
		return err
	}
	snsctx.Dump(ctx, "i2c read", address, r)
	return nil
}

func (b *TinyGoBus) ReadFromAddr(ctx context.Context, address byte, buffer []byte) error {
	err := b.tx(ctx, address, nil, buffer)
	if err != nil {
		return fmt.Errorf("could not read from i2c bus %#x: %w", address, err)
	}
	return nil
}

func (b *TinyGoBus) WriteToAddr(ctx context.Context, address byte, buffer []byte) error {
	err := b.tx(ctx, address, buffer, nil)
	if err != nil {
		return fmt.Errorf("could not write to i2c bus %#x: %w", address, err)
	}
	return nil
}

func (b *TinyGoBus) ReadRegisterFromAddr(ctx context.Context, address byte, register byte, buffer []byte) error {
	err := b.tx(ctx, address, []byte{register}, buffer)
	if err != nil {
		return fmt.Errorf("could not read register %#x from i2c bus %#x: %w", register, address, err)
	}
	return nil
}

func (b *TinyGoBus) Release(ctx context.Context) error {
	return nil
}
