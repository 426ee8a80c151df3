package core

import (
	"context"
	"time"
)

// Modem drives the radio and packet-data bearer layers.
type Modem interface {
	// Restart power-cycles the radio and waits for it to answer again.
	Restart(ctx context.Context) error

	// WaitForNetwork blocks until the radio is registered or timeout elapses. With force set, a
	// registration without a measurable signal is not accepted.
	WaitForNetwork(ctx context.Context, timeout time.Duration, force bool) bool

	IsNetworkConnected(ctx context.Context) bool

	// AttachBearer activates the packet-data context.
	AttachBearer(ctx context.Context, apn, user, password string) bool

	IsBearerConnected(ctx context.Context) bool

	// SignalQuality returns the raw CSQ value, 99 when unknown.
	SignalQuality(ctx context.Context) int
}
