package instrument

import (
	"bufio"
	"fmt"
	"net"
	"strings"
	"time"
)

// TCPHandle drives an instrument over a raw SCPI socket (LXI port 5025
// style). Commands are newline-terminated; responses are read up to a
// newline within the configured timeout.
type TCPHandle struct {
	conn    net.Conn
	reader  *bufio.Reader
	timeout time.Duration
}

// DialTCP connects to an instrument socket at addr (host:port) with the
// given connect and response timeout.
func DialTCP(addr string, timeout time.Duration) (*TCPHandle, error) {
	conn, err := net.DialTimeout("tcp", addr, timeout)
	if err != nil {
		return nil, fmt.Errorf("dialing %s: %w", addr, err)
	}

	return &TCPHandle{
		conn:    conn,
		reader:  bufio.NewReader(conn),
		timeout: timeout,
	}, nil
}

func (h *TCPHandle) Write(command string) error {
	if err := h.conn.SetWriteDeadline(time.Now().Add(h.timeout)); err != nil {
		return fmt.Errorf("setting write deadline: %w", err)
	}
	if _, err := h.conn.Write([]byte(command + "\n")); err != nil {
		return fmt.Errorf("writing to socket: %w", err)
	}
	return nil
}

func (h *TCPHandle) Query(command string) (string, error) {
	if err := h.Write(command); err != nil {
		return "", err
	}

	if err := h.conn.SetReadDeadline(time.Now().Add(h.timeout)); err != nil {
		return "", fmt.Errorf("setting read deadline: %w", err)
	}

	line, err := h.reader.ReadString('\n')
	if err != nil {
		return "", fmt.Errorf("reading response to %q: %w", command, err)
	}
	return strings.TrimSpace(line), nil
}

func (h *TCPHandle) Close() error {
	return h.conn.Close()
}
