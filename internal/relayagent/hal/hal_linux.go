//go:build linux

package hal

import (
	"context"
	"fmt"

	"golang.org/x/sys/unix"

	"github.com/autopeer-io/cellrelay/internal/relayagent/core"
	"github.com/autopeer-io/cellrelay/pkg/log"
)

// LinuxHAL drives a relay node running Linux.
type LinuxHAL struct {
	deviceID string
	gpio     *SysfsGPIO
	flasher  *FileFlasher
}

func NewHAL(cfg Config) (core.HAL, error) {
	if cfg.DeviceID == "" {
		return nil, fmt.Errorf("device id is required")
	}
	root := cfg.GPIORoot
	if root == "" {
		root = DefaultGPIORoot
	}

	gpio, err := NewSysfsGPIO(root, cfg.Lines, cfg.ActiveLow)
	if err != nil {
		return nil, fmt.Errorf("init gpio: %w", err)
	}

	return &LinuxHAL{
		deviceID: cfg.DeviceID,
		gpio:     gpio,
		flasher:  NewFileFlasher(cfg.ImagePath),
	}, nil
}

func (h *LinuxHAL) DeviceID() string {
	return h.deviceID
}

func (h *LinuxHAL) GPIO() core.GPIO {
	return h.gpio
}

func (h *LinuxHAL) Flasher() core.Flasher {
	return h.flasher
}

func (h *LinuxHAL) Restart(ctx context.Context) error {
	log.Info("System is rebooting NOW...")
	unix.Sync()
	return unix.Reboot(unix.LINUX_REBOOT_CMD_RESTART)
}
