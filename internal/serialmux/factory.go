package serialmux

import (
	"fmt"

	"go.bug.st/serial"
)

// RealSerialPortFactory opens hardware ports through go.bug.st/serial.
type RealSerialPortFactory struct{}

// NewRealSerialPortFactory returns a factory for hardware ports.
func NewRealSerialPortFactory() *RealSerialPortFactory {
	return &RealSerialPortFactory{}
}

// Open opens the serial device at path and applies the read timeout from opts.
func (RealSerialPortFactory) Open(path string, opts PortOptions) (SerialPorter, error) {
	return OpenRealPort(path, opts)
}

// OpenRealPort opens the serial device at path with opts. The returned port
// has its read timeout set so reads return (0, nil) when the line is idle.
func OpenRealPort(path string, opts PortOptions) (serial.Port, error) {
	opts, err := opts.Normalise()
	if err != nil {
		return nil, err
	}
	mode, err := opts.SerialMode()
	if err != nil {
		return nil, err
	}

	port, err := serial.Open(path, mode)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}

	if opts.ReadTimeout > 0 {
		if err := port.SetReadTimeout(opts.ReadTimeout); err != nil {
			port.Close()
			return nil, fmt.Errorf("set read timeout on %s: %w", path, err)
		}
	}
	return port, nil
}

// ListPorts returns the serial devices present on the host.
func ListPorts() ([]string, error) {
	return serial.GetPortsList()
}
