package device

import (
	"fmt"
	"sort"

	"go.bug.st/serial"
)

// SerialOpener opens real serial ports.
type SerialOpener struct {
	mode Mode
}

var _ Opener = (*SerialOpener)(nil)

func NewSerialOpener(mode Mode) *SerialOpener {
	if mode.BaudRate <= 0 {
		mode.BaudRate = DefaultBaudRate
	}
	if mode.ReadTimeout <= 0 {
		mode.ReadTimeout = DefaultReadTimeout
	}
	return &SerialOpener{mode: mode}
}

// List returns the available ports sorted by name, or an empty slice when
// enumeration is not supported on this host.
func (o *SerialOpener) List() []string {
	ports, err := serial.GetPortsList()
	if err != nil || len(ports) == 0 {
		return []string{}
	}
	sort.Strings(ports)
	return ports
}

func (o *SerialOpener) Open(name string) (Port, error) {
	port, err := serial.Open(name, &serial.Mode{
		BaudRate: o.mode.BaudRate,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	})
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", name, err)
	}
	if err := port.SetReadTimeout(o.mode.ReadTimeout); err != nil {
		_ = port.Close()
		return nil, fmt.Errorf("set read timeout on %s: %w", name, err)
	}
	return port, nil
}
