package hal

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/autopeer-io/cellrelay/internal/relayagent/core"
	"github.com/autopeer-io/cellrelay/pkg/log"
)

var (
	ErrNoSpace    = errors.New("not enough space for firmware image")
	ErrNotStarted = errors.New("no firmware update in progress")
)

// freeSpace is replaced in tests.
var freeSpace = diskFree

// FileFlasher installs a firmware image file. The image is staged next to the target and
// renamed over it once complete, so the target is never half written.
type FileFlasher struct {
	path string

	staging   *os.File
	expected  int64
	written   int64
	finalized bool
	err       error
}

var _ core.Flasher = (*FileFlasher)(nil)

func NewFileFlasher(path string) *FileFlasher {
	return &FileFlasher{path: path}
}

func (f *FileFlasher) Begin(size int64) bool {
	f.Abort()
	f.expected, f.written, f.finalized, f.err = size, 0, false, nil

	if size <= 0 {
		f.err = fmt.Errorf("invalid image size %d", size)
		return false
	}

	dir := filepath.Dir(f.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		f.err = err
		return false
	}
	if free, err := freeSpace(dir); err == nil && free < uint64(size) {
		f.err = fmt.Errorf("%w: need %d bytes, %d free", ErrNoSpace, size, free)
		return false
	}

	staging, err := os.CreateTemp(dir, "."+filepath.Base(f.path)+"-*")
	if err != nil {
		f.err = err
		return false
	}
	f.staging = staging
	log.Info("Firmware staging started", "staging", staging.Name(), "size", size)
	return true
}

func (f *FileFlasher) Write(r io.Reader) int64 {
	if f.staging == nil {
		f.err = ErrNotStarted
		return 0
	}
	n, err := io.Copy(f.staging, io.LimitReader(r, f.expected-f.written))
	f.written += n
	if err != nil {
		f.err = fmt.Errorf("write firmware image: %w", err)
	}
	return n
}

// Finalize refuses an image whose size differs from the one announced to Begin.
func (f *FileFlasher) Finalize() bool {
	if f.staging == nil {
		f.err = ErrNotStarted
		return false
	}
	if f.written != f.expected {
		f.err = fmt.Errorf("incomplete image: %d of %d bytes", f.written, f.expected)
		f.Abort()
		return false
	}

	name := f.staging.Name()
	if err := f.staging.Sync(); err != nil {
		f.err = err
		f.Abort()
		return false
	}
	if err := f.staging.Close(); err != nil {
		f.err = err
		f.staging = nil
		_ = os.Remove(name)
		return false
	}
	f.staging = nil

	if err := os.Rename(name, f.path); err != nil {
		f.err = err
		_ = os.Remove(name)
		return false
	}
	f.finalized = true
	log.Info("Firmware image installed", "path", f.path, "bytes", f.written)
	return true
}

func (f *FileFlasher) IsComplete() bool {
	return f.finalized && f.written == f.expected
}

func (f *FileFlasher) LastError() error {
	return f.err
}

func (f *FileFlasher) Abort() {
	if f.staging == nil {
		return
	}
	name := f.staging.Name()
	_ = f.staging.Close()
	_ = os.Remove(name)
	f.staging = nil
}
