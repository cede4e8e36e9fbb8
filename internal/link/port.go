package link

import (
	"io"
	"time"

	"go.bug.st/serial"
)

// BaudRate is the device's fixed line speed.
const BaudRate = 9600

// Port is the subset of a serial port the manager needs.
// go.bug.st/serial.Port satisfies it.
type Port interface {
	io.ReadWriteCloser
	ResetInputBuffer() error
	SetReadTimeout(t time.Duration) error
}

// Opener opens the named port.
type Opener func(name string) (Port, error)

// SerialOpener opens a physical port at baud, 8N1.
func SerialOpener(baud int) Opener {
	return func(name string) (Port, error) {
		p, err := serial.Open(name, &serial.Mode{
			BaudRate: baud,
			DataBits: 8,
			Parity:   serial.NoParity,
			StopBits: serial.OneStopBit,
		})
		if err != nil {
			return nil, err
		}
		return p, nil
	}
}
