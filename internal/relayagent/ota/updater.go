package ota

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"k8s.io/utils/clock"

	"github.com/autopeer-io/cellrelay/internal/pkg/metrics"
	"github.com/autopeer-io/cellrelay/internal/relayagent/core"
	"github.com/autopeer-io/cellrelay/pkg/log"
)

// Status strings published on the status topic.
const (
	StatusUpdateAvailable    = "update_available"
	StatusFirmwareCurrent    = "firmware_current"
	StatusVersionCheckFailed = "version_check_failed"

	StatusHTTPError = "update_failed_http_error"
	StatusNoContent = "update_failed_no_content"
	StatusFailed    = "update_failed"
	StatusSuccess   = "update_success_rebooting"
)

// maxVersionTokenSize bounds how much of the version document is read.
const maxVersionTokenSize = 256

// Source resolves where the firmware artifacts are fetched from.
type Source interface {
	FirmwareURL(ctx context.Context) (string, error)
	VersionURL(ctx context.Context) (string, error)
}

// Restarter reboots the device.
type Restarter interface {
	Restart(ctx context.Context) error
}

type Config struct {
	// FirmwareVersion is the version token of the running image.
	FirmwareVersion string
	// FlushDelay is the pause between the success status and the restart.
	FlushDelay time.Duration
}

// Updater checks for and applies firmware updates. It keeps no state between calls: every
// PerformUpdate runs a fresh UpdateSession.
type Updater struct {
	cfg       Config
	source    Source
	client    *http.Client
	sender    core.Sender
	flasher   core.Flasher
	restarter Restarter
	clock     clock.Clock

	// session and result describe the most recent attempt.
	session *UpdateSession
	result  Result
}

// Result is the outcome of one PerformUpdate, captured before its session resets.
type Result struct {
	SessionID    string
	Status       string
	ExpectedSize int64
	BytesWritten int64
}

func NewUpdater(cfg Config, source Source, client *http.Client, sender core.Sender, flasher core.Flasher, restarter Restarter, clk clock.Clock) *Updater {
	return &Updater{
		cfg:       cfg,
		source:    source,
		client:    client,
		sender:    sender,
		flasher:   flasher,
		restarter: restarter,
		clock:     clk,
	}
}

// LastSession returns the session of the most recent PerformUpdate, nil before the first.
// A finished session is back in PhaseIdle.
func (u *Updater) LastSession() *UpdateSession {
	return u.session
}

// LastResult returns the outcome of the most recent PerformUpdate.
func (u *Updater) LastResult() Result {
	return u.result
}

// CheckForUpdates compares the remote version token with the running one and publishes exactly
// one of update_available, firmware_current or version_check_failed.
func (u *Updater) CheckForUpdates(ctx context.Context) {
	remote, err := u.fetchVersion(ctx)
	if err != nil {
		log.Error(err, "Version check failed")
		u.report(ctx, StatusVersionCheckFailed)
		return
	}

	log.Info("Version check", "running", u.cfg.FirmwareVersion, "remote", remote)
	if remote == u.cfg.FirmwareVersion {
		u.report(ctx, StatusFirmwareCurrent)
		return
	}
	u.report(ctx, StatusUpdateAvailable)
}

func (u *Updater) fetchVersion(ctx context.Context) (string, error) {
	url, err := u.source.VersionURL(ctx)
	if err != nil {
		return "", fmt.Errorf("resolve version url: %w", err)
	}

	resp, err := u.get(ctx, url)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("server returned status: %s", resp.Status)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxVersionTokenSize))
	if err != nil {
		return "", fmt.Errorf("read version token: %w", err)
	}
	token := strings.TrimSpace(string(body))
	if token == "" {
		return "", fmt.Errorf("empty version token")
	}
	return token, nil
}

// PerformUpdate downloads the firmware image and replaces the running one. On success it
// publishes update_success_rebooting and restarts the device; every failure is published and
// the attempt is abandoned.
func (u *Updater) PerformUpdate(ctx context.Context) {
	s := NewUpdateSession()
	u.session = s
	log.Info("Starting firmware update", "session", s.ID)

	status := u.perform(ctx, s)
	if status != StatusSuccess {
		if err := s.Advance(ctx, EventFail, status); err != nil {
			log.Error(err, "Update session transition failed")
		}
	}
	u.result = Result{SessionID: s.ID, Status: status, ExpectedSize: s.ExpectedSize, BytesWritten: s.BytesWritten}
	u.report(ctx, status)
	if err := s.Advance(ctx, EventReset); err != nil {
		log.Error(err, "Update session transition failed")
	}
	if status != StatusSuccess {
		return
	}

	u.clock.Sleep(u.cfg.FlushDelay)
	log.Warn("Firmware update complete, restarting device", "session", s.ID)
	if err := u.restarter.Restart(ctx); err != nil {
		log.Error(err, "Device restart failed", "session", s.ID)
	}
}

// perform runs the fetch, write and finalize phases and returns the status to publish.
func (u *Updater) perform(ctx context.Context, s *UpdateSession) string {
	if err := s.Advance(ctx, EventFetch); err != nil {
		log.Error(err, "Update session transition failed")
		return StatusFailed
	}

	url, err := u.source.FirmwareURL(ctx)
	if err != nil {
		log.Error(err, "Failed to resolve firmware url")
		return StatusHTTPError
	}
	resp, err := u.get(ctx, url)
	if err != nil {
		log.Error(err, "Firmware download failed")
		return StatusHTTPError
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		log.Warn("Firmware download refused", "status", resp.Status)
		return StatusHTTPError
	}
	if resp.ContentLength <= 0 {
		log.Warn("Firmware download has no content length")
		return StatusNoContent
	}
	s.ExpectedSize = resp.ContentLength

	if err := s.Advance(ctx, EventWrite); err != nil {
		log.Error(err, "Update session transition failed")
		return StatusFailed
	}
	if !u.flasher.Begin(s.ExpectedSize) {
		log.Error(u.flasher.LastError(), "Not enough space for firmware image", "size", s.ExpectedSize)
		return StatusFailed
	}

	s.BytesWritten = u.flasher.Write(resp.Body)
	if s.BytesWritten != s.ExpectedSize {
		// Finalize decides whether the image is usable.
		log.Warn("Short firmware write", "written", s.BytesWritten, "expected", s.ExpectedSize)
	} else {
		log.Info("Firmware image written", "bytes", s.BytesWritten)
	}

	if err := s.Advance(ctx, EventFinalize); err != nil {
		log.Error(err, "Update session transition failed")
		u.flasher.Abort()
		return StatusFailed
	}
	if !u.flasher.Finalize() {
		log.Error(u.flasher.LastError(), "Firmware finalize failed")
		u.flasher.Abort()
		return StatusFailed
	}
	if !u.flasher.IsComplete() {
		log.Error(u.flasher.LastError(), "Firmware image incomplete after finalize")
		u.flasher.Abort()
		return StatusFailed
	}

	if err := s.Advance(ctx, EventSucceed); err != nil {
		log.Error(err, "Update session transition failed")
		return StatusFailed
	}
	return StatusSuccess
}

func (u *Updater) get(ctx context.Context, url string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	// A transparently decompressed body loses its Content-Length.
	req.Header.Set("Accept-Encoding", "identity")
	resp, err := u.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("network error: %w", err)
	}
	return resp, nil
}

func (u *Updater) report(ctx context.Context, status string) {
	metrics.OTAStatusTotal.WithLabelValues(status).Inc()
	if err := u.sender.Send(ctx, core.EventStatus, status); err != nil {
		log.Error(err, "Failed to publish update status", "status", status)
	}
}
