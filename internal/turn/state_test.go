package turn

import "testing"

func TestMachineInitialState(t *testing.T) {
	m := NewMachine()
	if m.State() != Listening {
		t.Errorf("expected initial state listening, got %s", m.State())
	}
}

func TestMachineFullCycle(t *testing.T) {
	m := NewMachine()
	steps := []State{Thinking, Speaking, Listening, Thinking, Speaking, Listening}
	for _, next := range steps {
		if err := m.To(next); err != nil {
			t.Fatalf("transition to %s: %v", next, err)
		}
	}
}

func TestMachineAbandonedTurn(t *testing.T) {
	// Empty transcript or provider failure sends thinking back to listening.
	m := NewMachine()
	if err := m.To(Thinking); err != nil {
		t.Fatal(err)
	}
	if err := m.To(Listening); err != nil {
		t.Errorf("expected thinking -> listening to be legal: %v", err)
	}
}

func TestMachineIllegalTransitions(t *testing.T) {
	cases := []struct {
		name string
		from []State
		to   State
	}{
		{"listening to speaking skips thinking", nil, Speaking},
		{"listening to listening", nil, Listening},
		{"speaking to thinking", []State{Thinking, Speaking}, Thinking},
		{"thinking to thinking", []State{Thinking}, Thinking},
	}
	for _, c := range cases {
		m := NewMachine()
		for _, s := range c.from {
			if err := m.To(s); err != nil {
				t.Fatalf("%s: setup transition to %s: %v", c.name, s, err)
			}
		}
		before := m.State()
		if err := m.To(c.to); err == nil {
			t.Errorf("%s: expected transition to be rejected", c.name)
		}
		if m.State() != before {
			t.Errorf("%s: rejected transition mutated state to %s", c.name, m.State())
		}
	}
}

func TestStateString(t *testing.T) {
	if Listening.String() != "listening" || Thinking.String() != "thinking" || Speaking.String() != "speaking" {
		t.Error("unexpected state names")
	}
}
