// Package device opens and enumerates serial devices for the bridge.
package device

import (
	"errors"
	"time"
)

// ErrReadTimeout is returned by a Port when no data arrived within the read timeout.
// A Read returning (0, nil) is treated the same way.
var ErrReadTimeout = errors.New("serial read timeout")

// Port is an open serial device.
type Port interface {
	Read(p []byte) (int, error)
	Close() error
}

// Opener enumerates and opens serial devices.
type Opener interface {
	// List returns the device identifiers currently present. Never fails.
	List() []string
	// Open opens the named device.
	Open(name string) (Port, error)
}

// Mode holds line settings applied to every opened port.
type Mode struct {
	BaudRate    int
	ReadTimeout time.Duration
}

// Default line settings of the nurse-call panel.
const (
	DefaultBaudRate    = 9600
	DefaultReadTimeout = 200 * time.Millisecond
)

// DefaultMode returns 9600 8N1 with a 200ms read timeout.
func DefaultMode() Mode {
	return Mode{BaudRate: DefaultBaudRate, ReadTimeout: DefaultReadTimeout}
}

// IsTimeout reports whether a read result means "no data yet".
func IsTimeout(n int, err error) bool {
	if err == nil {
		return n == 0
	}
	return errors.Is(err, ErrReadTimeout)
}
