//go:build !linux

package hal

import (
	"context"
	"os"
	"path/filepath"

	"github.com/autopeer-io/cellrelay/internal/relayagent/core"
	"github.com/autopeer-io/cellrelay/pkg/log"
)

// MockHAL logs relay activity and installs firmware into a temporary directory.
type MockHAL struct {
	deviceID string
	gpio     *logGPIO
	flasher  *FileFlasher
}

func NewHAL(cfg Config) (core.HAL, error) {
	id := cfg.DeviceID
	if id == "" {
		host, _ := os.Hostname()
		id = "mock-" + host
	}

	baseDir := filepath.Join(os.TempDir(), "cellrelay-mock-hal", id)
	return &MockHAL{
		deviceID: id,
		gpio:     &logGPIO{levels: make(map[core.Output]bool)},
		flasher:  NewFileFlasher(filepath.Join(baseDir, "firmware.bin")),
	}, nil
}

func (h *MockHAL) DeviceID() string {
	return h.deviceID
}

func (h *MockHAL) GPIO() core.GPIO {
	return h.gpio
}

func (h *MockHAL) Flasher() core.Flasher {
	return h.flasher
}

func (h *MockHAL) Restart(ctx context.Context) error {
	log.Warn("[HAL-Mock] >>> REBOOT REQUESTED <<<")
	log.Info("[HAL-Mock] Restart the agent manually to run the new image.", "image", h.flasher.path)
	return nil
}

type logGPIO struct {
	levels map[core.Output]bool
}

func (g *logGPIO) Write(out core.Output, active bool) error {
	g.levels[out] = active
	log.Info("[HAL-Mock] GPIO", "output", out.String(), "active", active)
	return nil
}
