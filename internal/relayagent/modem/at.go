package modem

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"go.bug.st/serial"
	"k8s.io/utils/clock"

	"github.com/autopeer-io/cellrelay/pkg/log"
)

var (
	// ErrTimeout is returned when the modem does not finish a command in time.
	ErrTimeout = errors.New("modem command timed out")
	// ErrCommand is returned when the modem answers ERROR.
	ErrCommand = errors.New("modem command failed")
)

// readTimeout is the serial read timeout. It bounds how late a command deadline is noticed.
const readTimeout = 100 * time.Millisecond

// Port is the part of a serial port the driver needs.
type Port interface {
	io.ReadWriteCloser
	ResetInputBuffer() error
}

// OpenPort opens the modem AT interface with 8N1 framing.
func OpenPort(name string, baudRate int) (Port, error) {
	mode := &serial.Mode{
		BaudRate: baudRate,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}

	port, err := serial.Open(name, mode)
	if err != nil {
		return nil, fmt.Errorf("failed to open serial port %s: %w", name, err)
	}
	if err := port.SetReadTimeout(readTimeout); err != nil {
		_ = port.Close()
		return nil, fmt.Errorf("failed to set read timeout on %s: %w", name, err)
	}
	return port, nil
}

// at runs AT commands over a serial port, one at a time.
type at struct {
	port    Port
	clock   clock.Clock
	timeout time.Duration

	mu  sync.Mutex
	buf []byte
}

// Command sends cmd and collects the information lines until the final result code. The echo
// of cmd and blank lines are dropped.
func (a *at) Command(ctx context.Context, cmd string, timeout time.Duration) ([]string, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if timeout <= 0 {
		timeout = a.timeout
	}

	_ = a.port.ResetInputBuffer()
	if _, err := a.port.Write([]byte(cmd + "\r")); err != nil {
		return nil, fmt.Errorf("write %s: %w", cmd, err)
	}

	deadline := a.clock.Now().Add(timeout)
	var (
		lines   []string
		pending []byte
	)
	if a.buf == nil {
		a.buf = make([]byte, 256)
	}
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if !a.clock.Now().Before(deadline) {
			return nil, fmt.Errorf("%s: %w", cmd, ErrTimeout)
		}

		n, err := a.port.Read(a.buf)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", cmd, err)
		}
		pending = append(pending, a.buf[:n]...)

		for {
			i := bytes.IndexByte(pending, '\n')
			if i < 0 {
				break
			}
			line := strings.TrimSpace(string(pending[:i]))
			pending = pending[i+1:]

			switch {
			case line == "" || line == cmd:
			case line == "OK":
				log.Debug("AT", "cmd", cmd, "lines", lines)
				return lines, nil
			case line == "ERROR", strings.HasPrefix(line, "+CME ERROR"), strings.HasPrefix(line, "+CMS ERROR"):
				return lines, fmt.Errorf("%s: %w: %s", cmd, ErrCommand, line)
			default:
				lines = append(lines, line)
			}
		}
	}
}

// field returns the comma separated values of the first line carrying prefix, e.g.
// "+CSQ: 18,99" -> ["18", "99"].
func field(lines []string, prefix string) ([]string, bool) {
	for _, l := range lines {
		if rest, ok := strings.CutPrefix(l, prefix+":"); ok {
			parts := strings.Split(strings.TrimSpace(rest), ",")
			for i := range parts {
				parts[i] = strings.Trim(strings.TrimSpace(parts[i]), `"`)
			}
			return parts, true
		}
	}
	return nil, false
}
