package status

import (
	"testing"

	"github.com/chathive/chathive/internal/bus"
)

func TestInitialState(t *testing.T) {
	m := NewMachine(nil)
	if m.Current() != Idle {
		t.Errorf("initial state = %s, want IDLE", m.Current())
	}
}

func TestValidTransitions(t *testing.T) {
	tests := []struct {
		from State
		to   State
	}{
		{Idle, Ingesting},
		{Idle, Diffing},
		{Ingesting, Diffing},
		{Diffing, AwaitingDecision},
		{AwaitingDecision, Executing},
		{Executing, BackingUp},
		{BackingUp, Done},
		{Done, Idle},
	}
	for _, tt := range tests {
		t.Run(string(tt.from)+"->"+string(tt.to), func(t *testing.T) {
			m := NewMachine(nil)
			walkTo(t, m, tt.from)
			if err := m.Transition(tt.to); err != nil {
				t.Errorf("Transition(%s -> %s) error = %v", tt.from, tt.to, err)
			}
			if m.Current() != tt.to {
				t.Errorf("state = %s, want %s", m.Current(), tt.to)
			}
		})
	}
}

func TestInvalidTransition(t *testing.T) {
	m := NewMachine(nil)
	if err := m.Transition(Executing); err == nil {
		t.Error("Transition(IDLE -> EXECUTING) should fail")
	}
}

func TestTransitionEmitsEvent(t *testing.T) {
	b := bus.New()
	ch, unsub := b.Subscribe("operation.", 10)
	defer unsub()

	m := NewMachine(b)
	if err := m.Transition(Diffing); err != nil {
		t.Fatal(err)
	}

	evt := <-ch
	if evt.Kind != "operation.status_changed" {
		t.Errorf("event kind = %q, want operation.status_changed", evt.Kind)
	}
	change, ok := evt.Payload.(StatusChange)
	if !ok {
		t.Fatalf("payload type = %T, want StatusChange", evt.Payload)
	}
	if change.From != Idle || change.To != Diffing {
		t.Errorf("change = %v -> %v, want IDLE -> DIFFING", change.From, change.To)
	}
}

// TestAwaitingDecisionRequiresDiffing verifies that AWAITING_DECISION can
// only be reached via DIFFING — a planner cannot be handed decisions for a
// diff that was never run.
func TestAwaitingDecisionRequiresDiffing(t *testing.T) {
	m := NewMachine(nil)
	if err := m.Transition(AwaitingDecision); err == nil {
		t.Fatal("Transition(IDLE -> AWAITING_DECISION) should fail; must go through DIFFING first")
	}
	if m.Current() != Idle {
		t.Errorf("state = %s, want IDLE (should not have changed)", m.Current())
	}

	if err := m.Transition(Diffing); err != nil {
		t.Fatalf("IDLE -> DIFFING: %v", err)
	}
	if err := m.Transition(AwaitingDecision); err != nil {
		t.Fatalf("DIFFING -> AWAITING_DECISION: %v", err)
	}
}

// TestFullMergeLifecycle simulates a complete merge run end to end.
func TestFullMergeLifecycle(t *testing.T) {
	m := NewMachine(nil)

	steps := []State{Diffing, AwaitingDecision, Executing, BackingUp, Done}
	for _, s := range steps {
		if err := m.Transition(s); err != nil {
			t.Fatalf("Transition to %s: %v (current: %s)", s, err, m.Current())
		}
	}
	if m.Current() != Done {
		t.Errorf("final state = %s, want DONE", m.Current())
	}
}

// TestFailureFromAnyPhaseReturnsToIdle verifies the error-recovery path:
// a failure from any in-progress phase lands in ERROR, and the only way
// forward from ERROR is back to IDLE.
func TestFailureFromAnyPhaseReturnsToIdle(t *testing.T) {
	for _, phase := range []State{Ingesting, Diffing, AwaitingDecision, Executing, BackingUp} {
		m := NewMachine(nil)
		walkTo(t, m, phase)

		if err := m.Transition(Error); err != nil {
			t.Fatalf("%s -> ERROR: %v", phase, err)
		}
		if err := m.Transition(Diffing); err == nil {
			t.Fatal("Transition(ERROR -> DIFFING) should fail; must go through IDLE first")
		}
		if err := m.Transition(Idle); err != nil {
			t.Fatalf("ERROR -> IDLE: %v", err)
		}
	}
}

// walkTo is a helper that transitions the machine to a target state.
func walkTo(t *testing.T, m *Machine, target State) {
	t.Helper()
	paths := map[State][]State{
		Idle:             {},
		Ingesting:        {Ingesting},
		Diffing:          {Diffing},
		AwaitingDecision: {Diffing, AwaitingDecision},
		Executing:        {Diffing, AwaitingDecision, Executing},
		BackingUp:        {Diffing, AwaitingDecision, Executing, BackingUp},
		Done:             {Diffing, AwaitingDecision, Executing, BackingUp, Done},
		Error:            {Error},
	}
	for _, s := range paths[target] {
		if err := m.Transition(s); err != nil {
			t.Fatalf("walkTo(%s): %v", target, err)
		}
	}
}
