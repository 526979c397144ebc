package mma845x

import (
	"context"
	"fmt"
)

var ErrBusBusy = fmt.Errorf("I2C engine is busy (command not completed)")

type AddressableReader interface {
	ReadFromAddr(ctx context.Context, address byte, buffer []byte) error
}

type AddressableWriter interface {
	WriteToAddr(ctx context.Context, address byte, buffer []byte) error
	Release(ctx context.Context) error
}

// AddressableRegisterReader is implemented by buses able to address a register and read
// it back in a single transaction (write followed by a repeated start).
type AddressableRegisterReader interface {
	ReadRegisterFromAddr(ctx context.Context, address byte, register byte, buffer []byte) error
}

type I2CBus interface {
	AddressableReader
	AddressableWriter
}

// RegisterTransport is the byte-addressed register channel a driver talks through.
// ReadBlock reads len(buffer) consecutive registers starting at register.
type RegisterTransport interface {
	ReadRegister(ctx context.Context, register byte) (byte, error)
	WriteRegister(ctx context.Context, register byte, value byte) error
	ReadBlock(ctx context.Context, register byte, buffer []byte) error
}
