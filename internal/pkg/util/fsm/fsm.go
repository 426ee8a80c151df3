package fsm

import (
	"context"
	"errors"

	"github.com/looplab/fsm"
)

func WrapEvent(fn func(ctx context.Context, event *fsm.Event) error) fsm.Callback {
	return func(ctx context.Context, event *fsm.Event) {
		if err := fn(ctx, event); err != nil {
			event.Err = err
		}
	}
}

// Fire triggers event and treats "already in the destination state" as success.
func Fire(ctx context.Context, m *fsm.FSM, event string, args ...any) error {
	err := m.Event(ctx, event, args...)
	var nte fsm.NoTransitionError
	if errors.As(err, &nte) {
		return nil
	}
	return err
}
