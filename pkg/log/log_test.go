package log

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestNewLoggerRotatingFile(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "agent.log")

	opts := NewOptions()
	opts.OutputPaths = []string{"stderr"}
	opts.Rotate.Filename = file

	l := NewLogger(opts)
	l.Info("link layer up", "layer", "radio")
	if zl, ok := l.(*zapLogger); ok {
		_ = zl.core.Sync()
	}

	data, err := os.ReadFile(file)
	if err != nil {
		t.Fatalf("rotating file not written: %v", err)
	}
	if !strings.Contains(string(data), `"layer":"radio"`) {
		t.Errorf("rotating file missing structured field, got %s", data)
	}
}

func TestOptionsValidate(t *testing.T) {
	opts := NewOptions()
	if errs := opts.Validate(); len(errs) != 0 {
		t.Fatalf("default options should be valid, got %v", errs)
	}

	opts.Format = "xml"
	if errs := opts.Validate(); len(errs) != 1 {
		t.Errorf("expected one error for bad format, got %v", errs)
	}
}
