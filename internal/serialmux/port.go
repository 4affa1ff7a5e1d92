// Package serialmux provides the serial transport for the ranging sensor:
// opening a real port through go.bug.st/serial, replaying captured byte
// streams and in-memory ports for tests.
package serialmux

import (
	"errors"
	"io"
	"time"
)

// ErrPortClosed is returned by ports that have been closed.
var ErrPortClosed = errors.New("serial port closed")

// SerialPorter defines the minimal interface needed for a serial port.
// This abstraction enables unit testing without real serial hardware.
type SerialPorter interface {
	io.ReadWriter
	io.Closer
}

// TimeoutSerialPorter extends SerialPorter with timeout capabilities.
// This is an optional interface that serial ports may implement. A port with
// a read timeout returns (0, nil) from Read when no byte arrived in time.
type TimeoutSerialPorter interface {
	SerialPorter
	// SetReadTimeout sets the read timeout for the serial port.
	SetReadTimeout(timeout time.Duration) error
}

// SerialPortFactory defines an interface for creating serial ports.
// This abstraction enables dependency injection of serial port creation.
type SerialPortFactory interface {
	// Open opens a serial port at the specified path with the given options.
	Open(path string, opts PortOptions) (SerialPorter, error)
}

// SerialPortOpener is a function type for opening serial ports.
type SerialPortOpener func(path string, opts PortOptions) (SerialPorter, error)

// Open implements SerialPortFactory.
func (f SerialPortOpener) Open(path string, opts PortOptions) (SerialPorter, error) {
	return f(path, opts)
}
