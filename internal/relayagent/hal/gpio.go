package hal

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/autopeer-io/cellrelay/internal/relayagent/core"
	"github.com/autopeer-io/cellrelay/pkg/log"
)

// DefaultGPIORoot is the sysfs GPIO class directory.
const DefaultGPIORoot = "/sys/class/gpio"

// Lines maps each output to its GPIO line number.
type Lines map[core.Output]int

// SysfsGPIO drives output lines through the sysfs GPIO interface.
type SysfsGPIO struct {
	root      string
	lines     Lines
	activeLow bool
}

var _ core.GPIO = (*SysfsGPIO)(nil)

// NewSysfsGPIO exports every line as an output and drives it inactive.
func NewSysfsGPIO(root string, lines Lines, activeLow bool) (*SysfsGPIO, error) {
	g := &SysfsGPIO{root: root, lines: lines, activeLow: activeLow}
	for out, line := range lines {
		if err := g.export(line); err != nil {
			return nil, fmt.Errorf("export %s (gpio%d): %w", out, line, err)
		}
		if err := g.Write(out, false); err != nil {
			return nil, err
		}
	}
	return g, nil
}

func (g *SysfsGPIO) export(line int) error {
	dir := filepath.Join(g.root, fmt.Sprintf("gpio%d", line))
	if _, err := os.Stat(dir); errors.Is(err, os.ErrNotExist) {
		if err := os.WriteFile(filepath.Join(g.root, "export"), []byte(strconv.Itoa(line)), 0o200); err != nil {
			return err
		}
	}
	return os.WriteFile(filepath.Join(dir, "direction"), []byte("out"), 0o644)
}

func (g *SysfsGPIO) Write(out core.Output, active bool) error {
	line, ok := g.lines[out]
	if !ok {
		return fmt.Errorf("no gpio line for %s", out)
	}

	value := "0"
	if active != g.activeLow {
		value = "1"
	}
	path := filepath.Join(g.root, fmt.Sprintf("gpio%d", line), "value")
	if err := os.WriteFile(path, []byte(value), 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	log.Debug("GPIO", "output", out.String(), "line", line, "active", active)
	return nil
}
