package link

import (
	"fmt"
	"os"
)

// OpenSerial opens a character device (e.g. /dev/ttyUSB0) configured by the
// operating system for the controller baud rate.
func OpenSerial(device string) (*Stream, error) {
	f, err := os.OpenFile(device, os.O_RDWR, 0)
	if err != nil {
		return nil, fmt.Errorf("open serial device %s: %w", device, err)
	}
	return NewStream(f), nil
}
