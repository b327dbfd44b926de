package instrument

import (
	"fmt"
	"strings"
	"time"

	"go.bug.st/serial"
)

const defaultBaudRate = 115200

// SerialHandle drives an instrument over a serial (USB-CDC or RS-232) VISA
// bridge. Commands are newline-terminated; responses are read up to a
// newline within the configured timeout.
type SerialHandle struct {
	port    serial.Port
	timeout time.Duration
}

// OpenSerial opens the named serial port and returns a handle with the given
// response timeout. A zero baud rate falls back to 115200.
func OpenSerial(portName string, baudRate int, timeout time.Duration) (*SerialHandle, error) {
	if baudRate <= 0 {
		baudRate = defaultBaudRate
	}

	port, err := serial.Open(portName, &serial.Mode{BaudRate: baudRate})
	if err != nil {
		return nil, fmt.Errorf("opening serial port %s: %w", portName, err)
	}
	if err = port.SetReadTimeout(timeout); err != nil {
		_ = port.Close()
		return nil, fmt.Errorf("setting read timeout: %w", err)
	}

	return &SerialHandle{port: port, timeout: timeout}, nil
}

func (h *SerialHandle) Write(command string) error {
	if _, err := h.port.Write([]byte(command + "\n")); err != nil {
		return fmt.Errorf("writing to serial port: %w", err)
	}
	return nil
}

func (h *SerialHandle) Query(command string) (string, error) {
	if err := h.Write(command); err != nil {
		return "", err
	}

	var sb strings.Builder
	buf := make([]byte, 256)
	deadline := time.Now().Add(h.timeout)

	for {
		n, err := h.port.Read(buf)
		if err != nil {
			return "", fmt.Errorf("reading from serial port: %w", err)
		}
		if n == 0 { // read timeout expired
			return "", fmt.Errorf("timeout waiting for response to %q", command)
		}

		sb.Write(buf[:n])
		if chunk := buf[:n]; chunk[len(chunk)-1] == '\n' {
			return strings.TrimSpace(sb.String()), nil
		}
		if time.Now().After(deadline) {
			return "", fmt.Errorf("timeout waiting for response to %q", command)
		}
	}
}

func (h *SerialHandle) Close() error {
	return h.port.Close()
}
