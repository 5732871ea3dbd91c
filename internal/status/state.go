// Package status tracks and enforces the Merge Executor's long-running
// operation lifecycle: a single named store can have at most one merge or
// ingestion in flight, and its progress is exposed to callers (CLI
// polling, a future UI) as a small state machine rather than raw log
// lines.
package status

import (
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/chathive/chathive/internal/bus"
)

// State represents a store's current long-running-operation phase.
type State string

const (
	// Idle means no ingestion or merge is in progress.
	Idle State = "IDLE"
	// Ingesting means a loader's output is being absorbed into a dataset.
	Ingesting State = "INGESTING"
	// Diffing means the Merger is streaming the two-way diff between a
	// master and slave chat.
	Diffing State = "DIFFING"
	// AwaitingDecision means a diff has completed and is waiting for its
	// chat/message/user decisions to be supplied before execution.
	AwaitingDecision State = "AWAITING_DECISION"
	// Executing means the Merge Executor is replaying decisions into a
	// fresh store.
	Executing State = "EXECUTING"
	// BackingUp means the Executor is taking the final unconditional
	// backup of the newly created store.
	BackingUp State = "BACKING_UP"
	// Done means the last operation completed successfully.
	Done State = "DONE"
	// Error means the last operation failed; Idle is the only way out.
	Error State = "ERROR"
)

// validTransitions defines allowed state transitions.
var validTransitions = map[State][]State{
	Idle:             {Ingesting, Diffing, Error},
	Ingesting:        {Idle, Diffing, Error},
	Diffing:          {AwaitingDecision, Error},
	AwaitingDecision: {Executing, Error},
	Executing:        {BackingUp, Error},
	BackingUp:        {Done, Error},
	Done:             {Idle, Ingesting, Diffing},
	Error:            {Idle},
}

// Machine tracks and enforces a store's operation-phase transitions.
type Machine struct {
	mu      sync.RWMutex
	current State
	bus     *bus.Bus
}

// NewMachine creates a new state machine starting in Idle state.
func NewMachine(b *bus.Bus) *Machine {
	return &Machine{
		current: Idle,
		bus:     b,
	}
}

// Current returns the current state.
func (m *Machine) Current() State {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.current
}

// Transition attempts to move to a new state. Returns error if transition is invalid.
func (m *Machine) Transition(to State) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	allowed := validTransitions[m.current]
	if !slices.Contains(allowed, to) {
		return fmt.Errorf("invalid transition from %s to %s", m.current, to)
	}
	from := m.current
	m.current = to
	if m.bus != nil {
		m.bus.Publish(bus.Event{
			Kind:      "operation.status_changed",
			Timestamp: time.Now(),
			Payload: StatusChange{
				From: from,
				To:   to,
			},
		})
	}
	return nil
}

// StatusChange is the payload for status change events.
type StatusChange struct {
	From State
	To   State
}
