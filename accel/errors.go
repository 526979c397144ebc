package accel

import (
	"errors"
	"fmt"
)

var (
	ErrTransport        = errors.New("mma845x: register transport failure")
	ErrIdentityMismatch = errors.New("mma845x: identity mismatch")
	ErrDeviceNotReady   = errors.New("mma845x: device not ready")
	ErrInvalidMode      = errors.New("mma845x: invalid power mode")
	ErrUnsupportedEvent = errors.New("mma845x: unsupported event")
	ErrInvalidThreshold = errors.New("mma845x: invalid threshold")
	ErrInvalidArgument  = errors.New("mma845x: invalid argument")
	ErrSessionClosed    = errors.New("mma845x: session closed")
)

// RegisterError reports a failed register transaction. It matches both ErrTransport
// and the error returned by the transport.
type RegisterError struct {
	Op  string
	Reg byte
	Err error
}

func (e *RegisterError) Error() string {
	return fmt.Sprintf("could not %s %s (%#04x): %v", e.Op, registerName(e.Reg), e.Reg, e.Err)
}

func (e *RegisterError) Unwrap() []error {
	return []error{ErrTransport, e.Err}
}
