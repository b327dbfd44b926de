package instrument

import (
	"errors"
	"strings"
)

var (
	// ErrNotConnected is returned when an operation requires an open
	// instrument handle and none is available.
	ErrNotConnected = errors.New("instrument not connected")

	// ErrLengthMismatch is returned when the frequency axis and the power
	// trace of one sweep disagree in length. No partial data is returned in
	// that case; the instrument was likely queried mid-update.
	ErrLengthMismatch = errors.New("frequency and power arrays differ in length")
)

// Handle is the minimal VISA-style capability the scan core talks to: raw
// SCPI command write and query with an associated response timeout owned by
// the transport. Implementations are not safe for concurrent use; during a
// scan only the worker goroutine may touch the handle.
type Handle interface {
	Write(command string) error
	Query(command string) (string, error)
	Close() error
}

// Identify queries the instrument identification string and returns the
// model token (the second field of the comma-separated *IDN? response, e.g.
// "N9340B"). Falls back to the whole trimmed response when the field is
// missing.
func Identify(h Handle) (string, error) {
	if h == nil {
		return "", ErrNotConnected
	}

	resp, err := h.Query(queryIdentify)
	if err != nil {
		return "", err
	}

	resp = strings.TrimSpace(resp)
	if fields := strings.Split(resp, ","); len(fields) >= 2 && strings.TrimSpace(fields[1]) != "" {
		return strings.TrimSpace(fields[1]), nil
	}
	return resp, nil
}
