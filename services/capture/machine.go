package capture

import (
	"github.com/barnybug/gofsm"
	"github.com/pkg/errors"
)

const (
	Idle        = "Idle"
	Priming     = "Priming"
	Capturing   = "Capturing"
	Dispatching = "Dispatching"
)

// The entering action of each state performs its work and returns the
// event that moves the machine on.
const machine = `
capture:
  start: Idle
  states:
    Idle:
      entering: [release]
    Priming:
      entering: [prime]
    Capturing:
      entering: [capture]
    Dispatching:
      entering: [dispatch]
  transitions:
    Idle->Priming:
      - when: triggered
    Priming->Capturing:
      - when: primed
    Capturing->Dispatching:
      - when: detected
    Capturing->Idle:
      - when: empty
    Priming,Capturing->Idle:
      - when: failed
    Dispatching->Idle:
      - when: dispatched
`

type event string

func (e event) Match(when string) bool {
	return string(e) == when
}

func (e event) String() string {
	return string(e)
}

func loadMachine() (*gofsm.Automata, *gofsm.Automaton, error) {
	automata, err := gofsm.Load([]byte(machine))
	if err != nil {
		return nil, nil, errors.Wrap(err, "loading capture state machine")
	}
	automaton, ok := automata.Automaton["capture"]
	if !ok {
		return nil, nil, errors.New("capture state machine missing")
	}
	return automata, automaton, nil
}
