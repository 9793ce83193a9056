package umlsm

import (
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

// trail is the context used by most tests: behaviors append what they did
type trail struct {
	Steps []string `json:"steps" yaml:"steps"`
	N     int      `json:"n" yaml:"n"`
}

func (t *trail) add(step string) {
	t.Steps = append(t.Steps, step)
}

func enterLog(name string) Behavior[*trail] {
	return func(t *trail, _ Event) error {
		t.add("enter " + name)
		return nil
	}
}

func exitLog(name string) Behavior[*trail] {
	return func(t *trail, _ Event) error {
		t.add("exit " + name)
		return nil
	}
}

func effectLog(name string) Behavior[*trail] {
	return func(t *trail, _ Event) error {
		t.add("effect " + name)
		return nil
	}
}

func failing(msg string) Behavior[*trail] {
	return func(*trail, Event) error {
		return errors.New(msg)
	}
}

// logged declares a state whose entry and exit are recorded
func logged(r *RegionBuilder[*trail], name string) *StateBuilder[*trail] {
	return r.State(name).Entry(enterLog(name)).Exit(exitLog(name))
}

func mustBuild[C any](t *testing.T, b *Builder[C]) *StateMachine[C] {
	t.Helper()
	m, err := b.Build()
	require.NoError(t, err)
	return m
}

func start(t *testing.T, m *StateMachine[*trail], opts ...Option) (*Executor[*trail], *trail) {
	t.Helper()
	tr := &trail{}
	e := NewExecutor(m, tr, opts...)
	require.NoError(t, e.Go())
	return e, tr
}

func send(t *testing.T, e *Executor[*trail], names ...string) {
	t.Helper()
	for _, name := range names {
		require.NoError(t, e.Take(Signal(name)), "event %s", name)
	}
}

// stepObserver records observer callbacks as short strings
type stepObserver struct {
	BaseObserver
	mu    sync.Mutex
	steps []string
}

func (o *stepObserver) record(step string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.steps = append(o.steps, step)
}

func (o *stepObserver) Steps() []string {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]string(nil), o.steps...)
}

func (o *stepObserver) OnTransition(_ Origin, t TransitionInfo, _ Event) {
	o.record("transition " + t.Label())
}

func (o *stepObserver) OnStateEnter(_ Origin, state string) {
	o.record("enter " + state)
}

func (o *stepObserver) OnStateExit(_ Origin, state string) {
	o.record("exit " + state)
}

func (o *stepObserver) OnEventDeferred(_ Origin, ev Event) {
	o.record("deferred " + ev.Name())
}

func (o *stepObserver) OnEventRejected(_ Origin, ev Event, _ string) {
	o.record("rejected " + ev.Name())
}

func (o *stepObserver) OnError(_ Origin, err error) {
	o.record("error " + err.Error())
}

func (o *stepObserver) OnMachineTerminated(Origin) {
	o.record("terminated")
}
