package core

import (
	"context"
	"io"
)

// Output identifies a digital output line.
type Output int

const (
	Relay1 Output = iota
	Relay2
	Indicator
)

func (o Output) String() string {
	switch o {
	case Relay1:
		return "relay1"
	case Relay2:
		return "relay2"
	case Indicator:
		return "indicator"
	default:
		return "unknown"
	}
}

// GPIO drives the relay and indicator lines. active is the logical level: the implementation
// handles active-low wiring.
type GPIO interface {
	Write(out Output, active bool) error
}

// Flasher replaces the running firmware image.
type Flasher interface {
	// Begin reserves room for an image of exactly size bytes.
	Begin(size int64) bool

	// Write streams the image and returns the number of bytes accepted.
	Write(r io.Reader) int64

	// Finalize commits the written image.
	Finalize() bool

	// IsComplete reports whether the committed image has the size announced to Begin.
	IsComplete() bool

	// LastError returns the error of the last failed step, nil if none.
	LastError() error

	// Abort discards a pending image.
	Abort()
}

// HAL (Hardware Abstraction Layer) is the agent's view of the device it runs on.
type HAL interface {
	DeviceID() string
	GPIO() GPIO
	Flasher() Flasher

	// Restart reboots the device. On real hardware it does not return on success.
	Restart(ctx context.Context) error
}
