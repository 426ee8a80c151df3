package ota

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/looplab/fsm"

	fsmutil "github.com/autopeer-io/cellrelay/internal/pkg/util/fsm"
	"github.com/autopeer-io/cellrelay/pkg/log"
)

// Phase of an UpdateSession.
type Phase string

const (
	PhaseIdle       Phase = "idle"
	PhaseFetching   Phase = "fetching"
	PhaseWriting    Phase = "writing"
	PhaseFinalizing Phase = "finalizing"
	PhaseSucceeded  Phase = "succeeded"
	PhaseFailed     Phase = "failed"
)

const (
	EventFetch    = "fetch"
	EventWrite    = "write"
	EventFinalize = "finalize"
	EventSucceed  = "succeed"
	EventFail     = "fail"
	EventReset    = "reset"
)

// UpdateSession tracks one update attempt. The phases only move forward; any active phase may
// fail, and a concluded session resets to idle.
type UpdateSession struct {
	ID           string
	ExpectedSize int64
	BytesWritten int64
	// Reason is the status reported when the session failed.
	Reason string

	*fsm.FSM
}

func NewUpdateSession() *UpdateSession {
	s := &UpdateSession{ID: uuid.NewString()}

	idle, fetching, writing := string(PhaseIdle), string(PhaseFetching), string(PhaseWriting)
	finalizing, succeeded, failed := string(PhaseFinalizing), string(PhaseSucceeded), string(PhaseFailed)

	events := fsm.Events{
		{Name: EventFetch, Src: []string{idle}, Dst: fetching},
		{Name: EventWrite, Src: []string{fetching}, Dst: writing},
		{Name: EventFinalize, Src: []string{writing}, Dst: finalizing},
		{Name: EventSucceed, Src: []string{finalizing}, Dst: succeeded},
		{Name: EventFail, Src: []string{fetching, writing, finalizing}, Dst: failed},
		{Name: EventReset, Src: []string{idle, succeeded, failed}, Dst: idle},
	}

	callbacks := fsm.Callbacks{
		"enter_state":           fsmutil.WrapEvent(s.actionEnterState),
		"enter_" + failed:       fsmutil.WrapEvent(s.actionEnterFailed),
		"enter_" + string(idle): fsmutil.WrapEvent(s.actionEnterIdle),
	}

	s.FSM = fsm.NewFSM(idle, events, callbacks)
	return s
}

func (s *UpdateSession) Phase() Phase {
	return Phase(s.Current())
}

// Advance moves the session to the next phase. A refused transition means a programming error
// and is returned to the caller.
func (s *UpdateSession) Advance(ctx context.Context, event string, args ...any) error {
	if err := fsmutil.Fire(ctx, s.FSM, event, args...); err != nil {
		return fmt.Errorf("update session %s: %w", s.ID, err)
	}
	return nil
}

func (s *UpdateSession) actionEnterState(_ context.Context, e *fsm.Event) error {
	log.Info("Update session phase", "session", s.ID, "from", e.Src, "to", e.Dst)
	return nil
}

// actionEnterFailed records the reported status passed as the first event argument.
func (s *UpdateSession) actionEnterFailed(_ context.Context, e *fsm.Event) error {
	if len(e.Args) > 0 {
		if reason, ok := e.Args[0].(string); ok {
			s.Reason = reason
		}
	}
	return nil
}

func (s *UpdateSession) actionEnterIdle(_ context.Context, _ *fsm.Event) error {
	s.ExpectedSize, s.BytesWritten, s.Reason = 0, 0, ""
	return nil
}
