package volumetrize

import "time"

// FrameStateEvent reports a frame moving between lifecycle states.
type FrameStateEvent struct {
	Frame    Frame
	Previous FrameState
	Current  FrameState
	Reason   string
}

// InvocationEvent reports one finished external tool invocation.
type InvocationEvent struct {
	Frame    Frame
	Step     string
	Argv     []string
	ExitCode int
	Duration time.Duration
	Err      error
}

// EventHandler receives frame events.
type EventHandler interface {
	OnFrameStateChange(event FrameStateEvent)
	OnInvocation(event InvocationEvent)
}

// BaseEventHandler implements EventHandler with no-ops. Embed it to handle
// only some events.
type BaseEventHandler struct{}

func (BaseEventHandler) OnFrameStateChange(FrameStateEvent) {}
func (BaseEventHandler) OnInvocation(InvocationEvent)       {}

// eventEmitterWrapper adapts EventHandler to the scheduler's emitter.
type eventEmitterWrapper struct {
	handler EventHandler
}

func (e *eventEmitterWrapper) OnFrameStateChange(frame Frame, previous, current FrameState, reason string) {
	if e.handler == nil {
		return
	}
	e.handler.OnFrameStateChange(FrameStateEvent{
		Frame:    frame,
		Previous: previous,
		Current:  current,
		Reason:   reason,
	})
}

func (e *eventEmitterWrapper) OnInvocation(frame Frame, step string, inv Invocation, err error) {
	if e.handler == nil {
		return
	}
	e.handler.OnInvocation(InvocationEvent{
		Frame:    frame,
		Step:     step,
		Argv:     inv.Argv,
		ExitCode: inv.ExitCode,
		Duration: inv.Duration,
		Err:      err,
	})
}
