package serialmux

import (
	"errors"
	"io"
	"testing"
	"time"
)

func TestTestableSerialPort_ReadWrite(t *testing.T) {
	port := NewTestableSerialPort()

	testData := []byte{0xFA, 0xA0, 0x01}
	port.AddReadData(testData)

	buf := make([]byte, 100)
	n, err := port.Read(buf)
	if err != nil {
		t.Errorf("Read returned error: %v", err)
	}
	if string(buf[:n]) != string(testData) {
		t.Errorf("Read returned %v, expected %v", buf[:n], testData)
	}
	if port.ReadCalls != 1 {
		t.Errorf("Expected 1 read call, got %d", port.ReadCalls)
	}

	if _, err := port.Write([]byte("x")); err != nil {
		t.Errorf("Write returned error: %v", err)
	}
	if port.WriteBuffer.String() != "x" {
		t.Errorf("WriteBuffer = %q", port.WriteBuffer.String())
	}
}

func TestTestableSerialPort_EmptyBuffer(t *testing.T) {
	port := NewTestableSerialPort()
	if _, err := port.Read(make([]byte, 4)); err != io.EOF {
		t.Errorf("Read on empty buffer = %v, want io.EOF", err)
	}

	port.IdleWhenEmpty = true
	n, err := port.Read(make([]byte, 4))
	if n != 0 || err != nil {
		t.Errorf("idle Read = (%d, %v), want (0, nil)", n, err)
	}
}

func TestTestableSerialPort_MaxReadSize(t *testing.T) {
	port := NewTestableSerialPort()
	port.MaxReadSize = 1
	port.AddReadData([]byte{1, 2, 3})

	n, err := port.Read(make([]byte, 8))
	if err != nil || n != 1 {
		t.Errorf("Read = (%d, %v), want (1, nil)", n, err)
	}
}

func TestTestableSerialPort_ReadError(t *testing.T) {
	port := NewTestableSerialPort()
	want := errors.New("device unplugged")
	port.ReadError = want
	port.AddReadData([]byte{1})

	if _, err := port.Read(make([]byte, 1)); !errors.Is(err, want) {
		t.Errorf("Read error = %v, want %v", err, want)
	}
	// The error is one-shot.
	if _, err := port.Read(make([]byte, 1)); err != nil {
		t.Errorf("second Read error = %v", err)
	}
}

func TestTestableSerialPort_CloseUnblocksReader(t *testing.T) {
	port := NewTestableSerialPort()
	port.BlockReads = true

	done := make(chan error, 1)
	go func() {
		_, err := port.Read(make([]byte, 1))
		done <- err
	}()

	time.Sleep(10 * time.Millisecond)
	if err := port.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	select {
	case err := <-done:
		if !errors.Is(err, ErrPortClosed) {
			t.Errorf("blocked Read error = %v, want ErrPortClosed", err)
		}
	case <-time.After(time.Second):
		t.Fatal("blocked Read did not return after Close")
	}
	if !port.IsClosed() {
		t.Error("IsClosed() = false after Close")
	}
	if _, err := port.Write([]byte{1}); !errors.Is(err, ErrPortClosed) {
		t.Errorf("Write after Close = %v, want ErrPortClosed", err)
	}
}

func TestTestableSerialPort_SetReadTimeout(t *testing.T) {
	port := NewTestableSerialPort()
	var _ TimeoutSerialPorter = port

	if err := port.SetReadTimeout(25 * time.Millisecond); err != nil {
		t.Fatalf("SetReadTimeout() error = %v", err)
	}
	if port.ReadTimeout != 25*time.Millisecond {
		t.Errorf("ReadTimeout = %v", port.ReadTimeout)
	}
}
