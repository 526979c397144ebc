package mma845x

import (
	"context"
	"errors"
	"fmt"
)

var _ RegisterTransport = &RegisterBus{}

type RegisterBusOpt func(*RegisterBus)

// WithBusyRetries sets how many times a transaction is attempted when the bus reports
// ErrBusBusy. Only whole transactions are repeated; a busy bus has not started them.
func WithBusyRetries(limit int) RegisterBusOpt {
	return func(b *RegisterBus) {
		if limit > 0 {
			b.retryLimit = limit
		}
	}
}

// RegisterBus exposes a single device on an addressable bus as a RegisterTransport.
type RegisterBus struct {
	bus        I2CBus
	address    byte
	retryLimit int
}

func NewRegisterBus(bus I2CBus, address byte, opts ...RegisterBusOpt) *RegisterBus {
	b := &RegisterBus{bus: bus, address: address, retryLimit: 1}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

func (b *RegisterBus) Address() byte {
	return b.address
}

func (b *RegisterBus) ReadRegister(ctx context.Context, register byte) (byte, error) {
	buf := []byte{0x00}
	err := b.ReadBlock(ctx, register, buf)
	if err != nil {
		return 0, err
	}
	return buf[0], nil
}

func (b *RegisterBus) WriteRegister(ctx context.Context, register byte, value byte) error {
	err := b.retry(ctx, func() error {
		return b.bus.WriteToAddr(ctx, b.address, []byte{register, value})
	})
	if err != nil {
		return fmt.Errorf("could not write register %#04x: %w", register, err)
	}
	return nil
}

func (b *RegisterBus) ReadBlock(ctx context.Context, register byte, buffer []byte) error {
	if rr, ok := b.bus.(AddressableRegisterReader); ok {
		err := b.retry(ctx, func() error {
			return rr.ReadRegisterFromAddr(ctx, b.address, register, buffer)
		})
		if err != nil {
			return fmt.Errorf("could not read register %#04x: %w", register, err)
		}
		return nil
	}
	// set registry pointer first
	err := b.retry(ctx, func() error {
		return b.bus.WriteToAddr(ctx, b.address, []byte{register})
	})
	if err != nil {
		return fmt.Errorf("could not set registry pointer %#04x: %w", register, err)
	}
	err = b.retry(ctx, func() error {
		return b.bus.ReadFromAddr(ctx, b.address, buffer)
	})
	if err != nil {
		return fmt.Errorf("could not read registry content %#04x: %w", register, err)
	}
	return nil
}

func (b *RegisterBus) retry(ctx context.Context, tx func() error) error {
	var err error
	for i := b.retryLimit; i > 0; i-- {
		err = tx()
		if err == nil {
			return nil
		}
		if !errors.Is(err, ErrBusBusy) {
			return err
		}
		// try to release the bus
		_ = b.bus.Release(ctx)
	}
	return err
}
