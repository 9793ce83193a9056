// Package umlsmtest provides observers and assertions for testing machines
// built with umlsm.
package umlsmtest

import (
	"sync"
	"testing"

	"github.com/anggasct/umlsm"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TransitionEvent records one fired transition
type TransitionEvent struct {
	Transition umlsm.TransitionInfo
	Event      umlsm.Event
}

// RejectEvent records one dropped event
type RejectEvent struct {
	Event  umlsm.Event
	Reason string
}

// GuardEvent records one guard evaluation
type GuardEvent struct {
	Transition umlsm.TransitionInfo
	Event      umlsm.Event
	Result     bool
}

// Recorder is an observer that keeps every callback for later assertions
type Recorder struct {
	umlsm.BaseObserver

	mutex       sync.RWMutex
	transitions []TransitionEvent
	enters      []string
	exits       []string
	deferred    []umlsm.Event
	rejects     []RejectEvent
	guards      []GuardEvent
	errors      []error
	terminated  bool
}

// NewRecorder creates an empty recorder
func NewRecorder() *Recorder {
	return &Recorder{}
}

func (r *Recorder) OnTransition(_ umlsm.Origin, t umlsm.TransitionInfo, ev umlsm.Event) {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	r.transitions = append(r.transitions, TransitionEvent{Transition: t, Event: ev})
}

func (r *Recorder) OnStateEnter(_ umlsm.Origin, state string) {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	r.enters = append(r.enters, state)
}

func (r *Recorder) OnStateExit(_ umlsm.Origin, state string) {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	r.exits = append(r.exits, state)
}

func (r *Recorder) OnGuardEvaluation(_ umlsm.Origin, t umlsm.TransitionInfo, ev umlsm.Event, result bool) {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	r.guards = append(r.guards, GuardEvent{Transition: t, Event: ev, Result: result})
}

func (r *Recorder) OnEventDeferred(_ umlsm.Origin, ev umlsm.Event) {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	r.deferred = append(r.deferred, ev)
}

func (r *Recorder) OnEventRejected(_ umlsm.Origin, ev umlsm.Event, reason string) {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	r.rejects = append(r.rejects, RejectEvent{Event: ev, Reason: reason})
}

func (r *Recorder) OnError(_ umlsm.Origin, err error) {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	r.errors = append(r.errors, err)
}

func (r *Recorder) OnMachineTerminated(umlsm.Origin) {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	r.terminated = true
}

// Reset forgets everything recorded so far
func (r *Recorder) Reset() {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	r.transitions = nil
	r.enters = nil
	r.exits = nil
	r.deferred = nil
	r.rejects = nil
	r.guards = nil
	r.errors = nil
	r.terminated = false
}

// Transitions returns the fired transitions in order
func (r *Recorder) Transitions() []TransitionEvent {
	r.mutex.RLock()
	defer r.mutex.RUnlock()
	return append([]TransitionEvent(nil), r.transitions...)
}

// Entered returns the ids of entered states in order
func (r *Recorder) Entered() []string {
	r.mutex.RLock()
	defer r.mutex.RUnlock()
	return append([]string(nil), r.enters...)
}

// Exited returns the ids of exited states in order
func (r *Recorder) Exited() []string {
	r.mutex.RLock()
	defer r.mutex.RUnlock()
	return append([]string(nil), r.exits...)
}

// Deferred returns the events that were deferred
func (r *Recorder) Deferred() []umlsm.Event {
	r.mutex.RLock()
	defer r.mutex.RUnlock()
	return append([]umlsm.Event(nil), r.deferred...)
}

// Rejected returns the dropped events
func (r *Recorder) Rejected() []RejectEvent {
	r.mutex.RLock()
	defer r.mutex.RUnlock()
	return append([]RejectEvent(nil), r.rejects...)
}

// Guards returns the guard evaluations
func (r *Recorder) Guards() []GuardEvent {
	r.mutex.RLock()
	defer r.mutex.RUnlock()
	return append([]GuardEvent(nil), r.guards...)
}

// Errors returns the reported errors
func (r *Recorder) Errors() []error {
	r.mutex.RLock()
	defer r.mutex.RUnlock()
	return append([]error(nil), r.errors...)
}

// Terminated reports whether a terminate pseudostate was reached
func (r *Recorder) Terminated() bool {
	r.mutex.RLock()
	defer r.mutex.RUnlock()
	return r.terminated
}

// LastTransition returns the most recent transition, nil when none fired
func (r *Recorder) LastTransition() *TransitionEvent {
	r.mutex.RLock()
	defer r.mutex.RUnlock()
	if len(r.transitions) == 0 {
		return nil
	}
	last := r.transitions[len(r.transitions)-1]
	return &last
}

// Start creates an executor for m, registers a recorder and runs Go
func Start[C any](t testing.TB, m *umlsm.StateMachine[C], ctx C, opts ...umlsm.Option) (*umlsm.Executor[C], *Recorder) {
	t.Helper()
	rec := NewRecorder()
	e := umlsm.NewExecutor(m, ctx, append(opts, umlsm.WithObserver(rec))...)
	require.NoError(t, e.Go())
	return e, rec
}

// Send takes a signal for every name and fails the test on the first error
func Send[C any](t testing.TB, e *umlsm.Executor[C], names ...string) {
	t.Helper()
	for _, name := range names {
		require.NoError(t, e.Take(umlsm.Signal(name)), "event %s", name)
	}
}

// RequireActive fails the test unless the active states are exactly ids, in
// document order.
func RequireActive[C any](t testing.TB, e *umlsm.Executor[C], ids ...string) {
	t.Helper()
	require.Equal(t, ids, e.ActiveStates())
}

// AssertObserverCalled checks how many transitions, entries and exits were
// recorded.
func AssertObserverCalled(t testing.TB, r *Recorder, transitions, enters, exits int) bool {
	t.Helper()
	ok := assert.Len(t, r.Transitions(), transitions, "transitions")
	ok = assert.Len(t, r.Entered(), enters, "state entries") && ok
	return assert.Len(t, r.Exited(), exits, "state exits") && ok
}

// AssertTransitionSequence checks the labels of the fired transitions
func AssertTransitionSequence(t testing.TB, r *Recorder, labels ...string) bool {
	t.Helper()
	var got []string
	for _, tr := range r.Transitions() {
		got = append(got, tr.Transition.Label())
	}
	return assert.Equal(t, labels, got)
}
