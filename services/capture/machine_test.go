package capture

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMachine(t *testing.T) {
	var tests = []struct {
		events []string
		state  string
	}{
		{nil, Idle},
		{[]string{"triggered"}, Priming},
		{[]string{"triggered", "primed"}, Capturing},
		{[]string{"triggered", "failed"}, Idle},
		{[]string{"triggered", "primed", "empty"}, Idle},
		{[]string{"triggered", "primed", "failed"}, Idle},
		{[]string{"triggered", "primed", "detected"}, Dispatching},
		{[]string{"triggered", "primed", "detected", "dispatched"}, Idle},
		// ignored out of order
		{[]string{"primed", "detected"}, Idle},
		{[]string{"triggered", "triggered"}, Priming},
		{[]string{"triggered", "primed", "detected", "failed"}, Dispatching},
	}
	for _, test := range tests {
		_, automaton, err := loadMachine()
		require.NoError(t, err)
		for _, ev := range test.events {
			automaton.Process(event(ev))
		}
		assert.Equal(t, test.state, automaton.State.Name, "events %v", test.events)
	}
}

func TestMachineActions(t *testing.T) {
	automata, automaton, err := loadMachine()
	require.NoError(t, err)
	automaton.Process(event("triggered"))
	action := <-automata.Actions
	assert.Equal(t, "prime", action.Name)
	change := <-automata.Changes
	assert.Equal(t, Idle, change.Old)
	assert.Equal(t, Priming, change.New)
}
