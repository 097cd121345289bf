package app

import (
	"fmt"
	"sync"

	"github.com/bft-labs/volumetrize/internal/domain"
	"github.com/bft-labs/volumetrize/internal/ports"
)

// EventEmitter is notified of frame state changes and tool invocations.
type EventEmitter interface {
	OnFrameStateChange(frame domain.FrameRecord, previous, current domain.FrameState, reason string)
	OnInvocation(frame domain.FrameRecord, step string, inv domain.Invocation, err error)
}

// allowed lists the successors of every non-terminal state. Failed is
// reachable from any non-terminal state and is not listed.
var allowed = map[domain.FrameState][]domain.FrameState{
	domain.FramePending:     {domain.FrameCalibrating, domain.FramePropagated},
	domain.FrameCalibrating: {domain.FrameCalibrated},
	domain.FrameCalibrated:  {domain.FrameDone},
	domain.FramePropagated:  {domain.FrameProcessing},
	domain.FrameProcessing:  {domain.FrameDone},
}

// Lifecycle owns the state machine of every frame in a run.
type Lifecycle struct {
	mu      sync.RWMutex
	frames  []domain.FrameRecord
	logger  ports.Logger
	emitter EventEmitter
}

// NewLifecycle creates a lifecycle over a copy of frames.
func NewLifecycle(frames []domain.FrameRecord, logger ports.Logger, emitter EventEmitter) *Lifecycle {
	return &Lifecycle{
		frames:  append([]domain.FrameRecord(nil), frames...),
		logger:  logger,
		emitter: emitter,
	}
}

// Frame returns the record at index.
func (l *Lifecycle) Frame(index int) domain.FrameRecord {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.frames[index]
}

// Frames returns a snapshot of every record.
func (l *Lifecycle) Frames() []domain.FrameRecord {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return append([]domain.FrameRecord(nil), l.frames...)
}

// State returns the current state of the frame at index.
func (l *Lifecycle) State(index int) domain.FrameState {
	return l.Frame(index).State
}

// Len returns the number of frames.
func (l *Lifecycle) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.frames)
}

// TransitionTo moves the frame at index to next.
// Returns ErrInvalidTransition if the state machine forbids it.
func (l *Lifecycle) TransitionTo(index int, next domain.FrameState, reason string) error {
	l.mu.Lock()
	if index < 0 || index >= len(l.frames) {
		l.mu.Unlock()
		return fmt.Errorf("frame index %d: %w", index, domain.ErrInvalidTransition)
	}
	frame := l.frames[index]
	prev := frame.State

	if !canTransition(prev, next) {
		l.mu.Unlock()
		return fmt.Errorf("frame %s %s -> %s: %w", frame.Name, prev, next, domain.ErrInvalidTransition)
	}
	l.frames[index].State = next
	frame = l.frames[index]
	l.mu.Unlock()

	// Emit event outside of lock
	if l.emitter != nil {
		l.emitter.OnFrameStateChange(frame, prev, next, reason)
	}

	l.logger.Debug("frame state transition",
		ports.String("frame", frame.Name),
		ports.String("from", prev.String()),
		ports.String("to", next.String()),
		ports.String("reason", reason),
	)
	return nil
}

// Restore marks a pending frame Done without emitting an event. It is used
// for frames a previous run already finished.
func (l *Lifecycle) Restore(index int) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.frames[index].State != domain.FramePending {
		return fmt.Errorf("restore frame %s from %s: %w", l.frames[index].Name, l.frames[index].State, domain.ErrInvalidTransition)
	}
	l.frames[index].State = domain.FrameDone
	return nil
}

// Fail moves a non-terminal frame to Failed. Terminal frames are left alone.
func (l *Lifecycle) Fail(index int, reason string) {
	if l.State(index).Terminal() {
		return
	}
	_ = l.TransitionTo(index, domain.FrameFailed, reason)
}

func canTransition(from, to domain.FrameState) bool {
	if from.Terminal() {
		return false
	}
	if to == domain.FrameFailed {
		return true
	}
	for _, s := range allowed[from] {
		if s == to {
			return true
		}
	}
	return false
}
