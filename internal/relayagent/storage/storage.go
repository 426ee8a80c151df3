// Package storage resolves the locations of firmware artifacts.
package storage

import (
	"context"
	"fmt"
)

// Static serves fixed firmware and version URLs.
type Static struct {
	firmwareURL string
	versionURL  string
}

func NewStatic(firmwareURL, versionURL string) *Static {
	return &Static{firmwareURL: firmwareURL, versionURL: versionURL}
}

func (s *Static) FirmwareURL(ctx context.Context) (string, error) {
	if s.firmwareURL == "" {
		return "", fmt.Errorf("firmware url is not configured")
	}
	return s.firmwareURL, nil
}

func (s *Static) VersionURL(ctx context.Context) (string, error) {
	if s.versionURL == "" {
		return "", fmt.Errorf("version url is not configured")
	}
	return s.versionURL, nil
}
