package serialmux

import (
	"errors"
	"testing"
)

func TestRealSerialPortFactory_Open_InvalidPath(t *testing.T) {
	// We can't open a real device in a unit test, but a missing path must
	// surface as an error rather than a nil port.
	port, err := NewRealSerialPortFactory().Open("/dev/nonexistent-serial-port-12345", PortOptions{})
	if err == nil {
		t.Error("Expected error when opening non-existent serial port")
		if port != nil {
			port.Close()
		}
	}
}

func TestOpenRealPort_InvalidOptions(t *testing.T) {
	_, err := OpenRealPort("/dev/nonexistent-serial-port-12345", PortOptions{Parity: "X"})
	if err == nil {
		t.Error("Expected error for invalid parity")
	}
}

func TestSerialPortOpener(t *testing.T) {
	want := NewTestableSerialPort()
	var gotPath string
	var factory SerialPortFactory = SerialPortOpener(func(path string, opts PortOptions) (SerialPorter, error) {
		gotPath = path
		return want, nil
	})

	port, err := factory.Open("/dev/ttyUSB0", PortOptions{})
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	if port != want {
		t.Error("Open() returned a different port")
	}
	if gotPath != "/dev/ttyUSB0" {
		t.Errorf("path = %q", gotPath)
	}
}

func TestMockSerialPortFactory(t *testing.T) {
	port := NewTestableSerialPort()
	factory := NewMockSerialPortFactory(port)

	if factory.LastCall() != nil {
		t.Error("LastCall() should be nil before Open")
	}

	got, err := factory.Open("/dev/ttyACM0", PortOptions{BaudRate: 230400})
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	if got != port {
		t.Error("Open() returned a different port")
	}
	call := factory.LastCall()
	if call == nil || call.Path != "/dev/ttyACM0" || call.Options.BaudRate != 230400 {
		t.Errorf("LastCall() = %+v", call)
	}

	factory.Error = errors.New("busy")
	if _, err := factory.Open("/dev/ttyACM0", PortOptions{}); err == nil {
		t.Error("expected configured error")
	}
	if len(factory.OpenCalls) != 2 {
		t.Errorf("OpenCalls = %d, want 2", len(factory.OpenCalls))
	}
}
