// Package umlsm is a UML 2 behavioral state machine runtime.
//
// A StateMachine is an immutable definition assembled with a Builder:
// regions, simple, composite, orthogonal and submachine states, final
// states, the pseudostates (initial, choice, junction, fork, join, shallow
// and deep history, entry and exit points, terminate) and external, local or
// internal transitions with triggers, guards and effects.
//
// An Executor runs one instance of a definition over a context value of type
// C. It keeps the active state configuration, selects transitions with
// innermost-first priority, fires compound transitions through chains of
// pseudostates, runs entry, exit and effect behaviors and do-activities, and
// maintains history, deferred events and completion events. Pause returns a
// Snapshot that can be encoded as JSON or YAML and later handed to Resume.
//
//	b := umlsm.NewBuilder[*umlsm.Variables]("door")
//	top := b.Region("main")
//	top.Initial().To("closed")
//	top.State("closed").To("open").On("open")
//	top.State("open").To("closed").On("close")
//	m, err := b.Build()
//	if err != nil {
//		return err
//	}
//	e := umlsm.NewExecutor(m, umlsm.NewVariables())
//	if err := e.Go(); err != nil {
//		return err
//	}
//	err = e.Take(umlsm.Signal("open"))
package umlsm

import "time"

// Duration converts milliseconds to a time.Duration
func Duration(milliseconds int) time.Duration {
	return time.Duration(milliseconds) * time.Millisecond
}

// Run builds an executor for m and starts it
func Run[C any](m *StateMachine[C], ctx C, opts ...Option) (*Executor[C], error) {
	e := NewExecutor(m, ctx, opts...)
	if err := e.Go(); err != nil {
		return nil, err
	}
	return e, nil
}

// Send takes every named signal in order and stops at the first error
func Send[C any](e *Executor[C], names ...string) error {
	for _, name := range names {
		if err := e.Take(Signal(name)); err != nil {
			return err
		}
	}
	return nil
}
