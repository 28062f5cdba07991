package session

import (
	"fmt"
	"sync"

	"github.com/felixgeelhaar/statekit"

	apperrors "github.com/anime-shed/webcritic-go/internal/errors"
)

// Flow states and events. Untyped so they convert to statekit IDs.
const (
	FlowIdle       = "idle"
	FlowProcessing = "processing"

	EventUpload = "upload"
	EventFinish = "finish"
)

// FlowContext is the machine context
type FlowContext struct {
	SessionID string
}

// FlowMachine guards the upload flow: idle --upload--> processing --finish--> idle.
// An upload while processing does not transition and is reported as busy.
type FlowMachine struct {
	mu          sync.Mutex
	interpreter *statekit.Interpreter[FlowContext]
}

func NewFlowMachine(sessionID string) (*FlowMachine, error) {
	builder := statekit.NewMachine[FlowContext]("upload-flow").
		WithInitial(statekit.StateID(FlowIdle)).
		WithContext(FlowContext{SessionID: sessionID})

	builder.State(FlowIdle).
		On(EventUpload).Target(FlowProcessing).
		Done()

	builder.State(FlowProcessing).
		On(EventFinish).Target(FlowIdle).
		Done()

	machine, err := builder.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to build upload flow machine: %w", err)
	}

	interpreter := statekit.NewInterpreter(machine)
	interpreter.Start()

	return &FlowMachine{interpreter: interpreter}, nil
}

// TryBegin moves idle to processing, or returns a busy error
func (m *FlowMachine) TryBegin() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.sendLocked(EventUpload); err != nil {
		return apperrors.NewBusyError("a critique is already in progress for this session")
	}
	return nil
}

// Finish returns the machine to idle. Finishing an idle machine is a no-op.
func (m *FlowMachine) Finish() {
	m.mu.Lock()
	defer m.mu.Unlock()

	_ = m.sendLocked(EventFinish)
}

func (m *FlowMachine) Current() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.currentLocked()
}

func (m *FlowMachine) sendLocked(event string) error {
	before := m.currentLocked()
	m.interpreter.Send(statekit.Event{Type: statekit.EventType(event)})
	if after := m.currentLocked(); after != before {
		return nil
	}
	return fmt.Errorf("event %q is not allowed in state %q", event, before)
}

func (m *FlowMachine) currentLocked() string {
	return string(m.interpreter.State().Value)
}
