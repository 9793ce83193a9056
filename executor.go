package umlsm

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"
)

// Executor runs one instance of a state machine. It follows the
// run-to-completion discipline: an event is fully processed, together with
// every completion event it causes, before the call returns.
//
// Methods are serialized by a mutex. Behaviors, guards and observers run
// while it is held and must not call back into the executor.
type Executor[C any] struct {
	id        string
	machine   *StateMachine[C]
	context   C
	config    Config
	logger    *slog.Logger
	tracer    trace.Tracer
	observers *ObserverManager
	mutex     sync.RWMutex

	rt     *runtime[C]
	paused bool
	failed bool

	inbox  *inbox
	tokens uint64
}

// NewExecutor creates an executor for m. ctx is handed to every guard and
// behavior; the engine never inspects it.
func NewExecutor[C any](m *StateMachine[C], ctx C, opts ...Option) *Executor[C] {
	o := newOptions(opts)
	e := &Executor[C]{
		id:        o.id,
		machine:   m,
		context:   ctx,
		config:    o.config,
		logger:    o.logger,
		tracer:    o.tracer.Tracer(instrumentationName),
		observers: NewObserverManager(),
		rt:        newRuntime[C](),
		inbox:     newInbox(),
	}
	if e.id == "" {
		e.id = uuid.NewString()
	}
	for _, observer := range o.observers {
		e.observers.AddObserver(observer)
	}
	return e
}

// ID returns the executor id
func (e *Executor[C]) ID() string {
	return e.id
}

// Machine returns the definition the executor runs
func (e *Executor[C]) Machine() *StateMachine[C] {
	return e.machine
}

// Context returns the value passed to behaviors and guards
func (e *Executor[C]) Context() C {
	e.mutex.RLock()
	defer e.mutex.RUnlock()
	return e.context
}

// AddObserver registers an observer
func (e *Executor[C]) AddObserver(observer Observer) {
	e.observers.AddObserver(observer)
}

// RemoveObserver unregisters an observer
func (e *Executor[C]) RemoveObserver(observer Observer) {
	e.observers.RemoveObserver(observer)
}

// Go enters the top-level regions through their initial pseudostates and
// drains the resulting completion events. It does nothing once started.
func (e *Executor[C]) Go() error {
	return e.GoContext(context.Background())
}

// GoContext is Go with a context used for tracing
func (e *Executor[C]) GoContext(ctx context.Context) error {
	e.mutex.Lock()
	defer e.mutex.Unlock()

	ctx, span := e.startSpan(ctx, "go", nil)
	err := e.start(ctx)
	endSpan(span, err)
	return err
}

func (e *Executor[C]) start(ctx context.Context) error {
	switch {
	case e.failed:
		return lifecycle(ErrExecutorFailed, "go")
	case e.paused:
		return lifecycle(ErrPaused, "go")
	case e.rt.started || e.rt.terminated:
		return nil
	}
	e.rt.started = true
	s := e.newStep(ctx, nil)
	for _, r := range e.machine.regions {
		if err := s.defaultEnterRegion(r); err != nil {
			return e.fail(err)
		}
	}
	if err := s.flush(); err != nil {
		return e.fail(err)
	}
	e.observers.NotifyMachineStarted(e.origin())
	if err := e.drain(ctx); err != nil {
		return e.fail(err)
	}
	return nil
}

// Take processes one event. It returns once the event and every completion
// event it caused were handled. An event no transition consumes is deferred
// when an active state lists it as deferrable, and dropped otherwise.
func (e *Executor[C]) Take(ev Event) error {
	return e.TakeContext(context.Background(), ev)
}

// TakeContext is Take with a context used for tracing
func (e *Executor[C]) TakeContext(ctx context.Context, ev Event) error {
	e.mutex.Lock()
	defer e.mutex.Unlock()

	ctx, span := e.startSpan(ctx, "take", ev)
	err := e.take(ctx, ev)
	endSpan(span, err)
	return err
}

func (e *Executor[C]) take(ctx context.Context, ev Event) error {
	if err := e.ready("take"); err != nil {
		return err
	}
	if ev == nil {
		return NewMachineError(ErrCodeInvalidEvent, "take", "event is nil")
	}
	if e.rt.terminated {
		e.observers.NotifyEventRejected(e.origin(), ev, "executor is terminated")
		return nil
	}

	// completions of finished do-activities may change the configuration
	// before ev is looked at; older deferred events go first
	version := e.rt.version
	e.collect()
	if err := e.drain(ctx); err != nil {
		return e.fail(err)
	}
	if e.rt.version != version {
		if err := e.retryDeferred(ctx); err != nil {
			return e.fail(err)
		}
	}
	if e.rt.terminated {
		e.observers.NotifyEventRejected(e.origin(), ev, "executor is terminated")
		return nil
	}

	version = e.rt.version
	fired, err := e.dispatch(ctx, ev)
	if err != nil {
		return e.fail(err)
	}
	if !fired {
		e.discard(ev)
	}
	if fired || e.rt.version != version {
		if err := e.retryDeferred(ctx); err != nil {
			return e.fail(err)
		}
	}
	return nil
}

// discard defers or drops an event that fired nothing
func (e *Executor[C]) discard(ev Event) {
	if e.rt.terminated {
		return
	}
	if e.rt.defers(ev) {
		e.rt.deferred = append(e.rt.deferred, ev)
		e.observers.NotifyEventDeferred(e.origin(), ev)
		return
	}
	e.logger.Debug("event discarded",
		"machine", e.machine.id,
		"executor", e.id,
		"event", ev.Name())
	e.observers.NotifyEventRejected(e.origin(), ev, "no enabled transition")
}

// dispatch fires the transitions ev enables and drains completions. A
// candidate whose source was exited by an earlier one in the same step is
// skipped.
func (e *Executor[C]) dispatch(ctx context.Context, ev Event) (bool, error) {
	fired := false
	for _, c := range e.selectTransitions(ev) {
		if e.rt.terminated {
			break
		}
		if !c.stillEnabled(e.rt) {
			continue
		}
		if err := e.newStep(ctx, ev).fire(c); err != nil {
			return fired, err
		}
		fired = true
	}
	if !fired {
		return false, nil
	}
	return true, e.drain(ctx)
}

// drain processes queued completion events until none is left
func (e *Executor[C]) drain(ctx context.Context) error {
	steps := 0
	for len(e.rt.completions) > 0 && !e.rt.terminated {
		if steps >= e.config.MaxCompletionSteps {
			return NewConfigurationError("executor",
				fmt.Sprintf("more than %d completion steps, completion transitions form a cycle", e.config.MaxCompletionSteps))
		}
		steps++
		v := e.rt.popCompletion()
		if !e.rt.isActive(v) {
			continue
		}
		c := e.selectCompletion(v)
		if c == nil {
			continue
		}
		if err := e.newStep(ctx, nil).fire(c); err != nil {
			return err
		}
	}
	return nil
}

// retryDeferred offers the deferred events again, oldest first, as long as
// the configuration keeps changing.
func (e *Executor[C]) retryDeferred(ctx context.Context) error {
	for len(e.rt.deferred) > 0 && !e.rt.terminated {
		version := e.rt.version
		queue := e.rt.deferred
		e.rt.deferred = nil
		for i, ev := range queue {
			fired, err := e.dispatch(ctx, ev)
			if err != nil {
				e.rt.deferred = append(e.rt.deferred, queue[i+1:]...)
				return err
			}
			if fired {
				continue
			}
			if !e.rt.terminated && e.rt.defers(ev) {
				// still deferred, observers heard about it already
				e.rt.deferred = append(e.rt.deferred, ev)
				continue
			}
			e.discard(ev)
		}
		if e.rt.version == version {
			return nil
		}
	}
	return nil
}

// Flush turns do-activities that returned into completion events and
// processes them. Hosts call it when ActivityDone fires.
func (e *Executor[C]) Flush() error {
	return e.FlushContext(context.Background())
}

// FlushContext is Flush with a context used for tracing
func (e *Executor[C]) FlushContext(ctx context.Context) error {
	e.mutex.Lock()
	defer e.mutex.Unlock()

	if e.failed {
		return lifecycle(ErrExecutorFailed, "flush")
	}
	if e.paused || !e.rt.started || e.rt.terminated {
		return nil
	}
	ctx, span := e.startSpan(ctx, "flush", nil)
	err := e.flush(ctx)
	endSpan(span, err)
	return err
}

func (e *Executor[C]) flush(ctx context.Context) error {
	version := e.rt.version
	e.collect()
	if err := e.drain(ctx); err != nil {
		return e.fail(err)
	}
	if e.rt.version == version {
		return nil
	}
	if err := e.retryDeferred(ctx); err != nil {
		return e.fail(err)
	}
	return nil
}

// ActivityDone signals that a do-activity returned and Flush has work to do
func (e *Executor[C]) ActivityDone() <-chan struct{} {
	return e.inbox.signal
}

// Pause stops accepting events, cancels the running do-activities and
// returns a snapshot of the executor. Deferred events are discarded.
func (e *Executor[C]) Pause() (*Snapshot[C], error) {
	e.mutex.Lock()
	defer e.mutex.Unlock()

	_, span := e.startSpan(context.Background(), "pause", nil)
	if e.failed {
		err := lifecycle(ErrExecutorFailed, "pause")
		endSpan(span, err)
		return nil, err
	}
	if !e.paused {
		e.paused = true
		e.stopActivities()
		e.rt.deferred = nil
		e.inbox.reset()
		e.observers.NotifyMachinePaused(e.origin())
	}
	endSpan(span, nil)
	return e.snapshot(), nil
}

// Resume replaces the runtime state with the one captured by snap and
// accepts events again. It also recovers an executor that failed.
func (e *Executor[C]) Resume(snap *Snapshot[C]) error {
	return e.ResumeContext(context.Background(), snap)
}

// ResumeContext is Resume with a context used for tracing
func (e *Executor[C]) ResumeContext(ctx context.Context, snap *Snapshot[C]) error {
	e.mutex.Lock()
	defer e.mutex.Unlock()

	_, span := e.startSpan(ctx, "resume", nil)
	err := e.resume(snap)
	endSpan(span, err)
	return err
}

func (e *Executor[C]) resume(snap *Snapshot[C]) error {
	if snap == nil {
		return lifecycle(ErrSnapshotMismatch, "resume")
	}
	if snap.StateMachine != e.machine.id {
		return NewMachineError(ErrCodeSnapshotMismatch, "resume",
			fmt.Sprintf("snapshot of machine '%s' cannot resume machine '%s'", snap.StateMachine, e.machine.id))
	}
	rt, err := rebuild(e.machine, snap)
	if err != nil {
		return err
	}
	e.stopActivities()
	e.rt = rt
	e.context = snap.Context
	e.paused = false
	e.failed = false
	e.inbox.reset()
	if !rt.terminated {
		e.restartActivities()
	}
	e.observers.NotifyMachineResumed(e.origin())
	return nil
}

// Snapshot captures the executor without pausing it
func (e *Executor[C]) Snapshot() *Snapshot[C] {
	e.mutex.RLock()
	defer e.mutex.RUnlock()
	return e.snapshot()
}

// Configuration returns a copy of the active state configuration. The root
// node has no state; its children are the active states of the top-level
// regions.
func (e *Executor[C]) Configuration() *StateConfiguration[C] {
	e.mutex.RLock()
	defer e.mutex.RUnlock()
	return e.rt.root.clone(-1)
}

// IsActive reports whether the vertex with the given id is active
func (e *Executor[C]) IsActive(id string) bool {
	e.mutex.RLock()
	defer e.mutex.RUnlock()
	_, ok := e.rt.active[id]
	return ok
}

// ActiveStates lists the ids of the active states, parents first
func (e *Executor[C]) ActiveStates() []string {
	e.mutex.RLock()
	defer e.mutex.RUnlock()
	return e.rt.activeIDs()
}

// Deferred returns the deferred events, oldest first
func (e *Executor[C]) Deferred() []Event {
	e.mutex.RLock()
	defer e.mutex.RUnlock()
	return append([]Event(nil), e.rt.deferred...)
}

// Started reports whether Go ran
func (e *Executor[C]) Started() bool {
	e.mutex.RLock()
	defer e.mutex.RUnlock()
	return e.rt.started
}

// Terminated reports whether a terminate pseudostate was reached
func (e *Executor[C]) Terminated() bool {
	e.mutex.RLock()
	defer e.mutex.RUnlock()
	return e.rt.terminated
}

// Paused reports whether the executor waits for Resume
func (e *Executor[C]) Paused() bool {
	e.mutex.RLock()
	defer e.mutex.RUnlock()
	return e.paused
}

// Failed reports whether a behavior failure made the executor unusable
func (e *Executor[C]) Failed() bool {
	e.mutex.RLock()
	defer e.mutex.RUnlock()
	return e.failed
}

func (e *Executor[C]) origin() Origin {
	return Origin{MachineID: e.machine.id, ExecutorID: e.id}
}

// ready checks that events can be taken. A terminated executor is ready: it
// silently ignores events.
func (e *Executor[C]) ready(op string) error {
	switch {
	case e.failed:
		return lifecycle(ErrExecutorFailed, op)
	case e.paused:
		return lifecycle(ErrPaused, op)
	case !e.rt.started:
		return lifecycle(ErrNotStarted, op)
	}
	return nil
}

// fail marks the executor unusable after err. Reaching a terminate
// pseudostate is not a failure.
func (e *Executor[C]) fail(err error) error {
	if errors.Is(err, errHalt) {
		return nil
	}
	e.failed = true
	e.stopActivities()
	e.logger.Error("executor failed",
		"machine", e.machine.id,
		"executor", e.id,
		"error", err)
	e.observers.NotifyError(e.origin(), err)
	return err
}

// evaluate runs the guard of t. A panicking guard counts as false.
func (e *Executor[C]) evaluate(t *Transition[C], ev Event) (result bool) {
	if t.guard == nil {
		return true
	}
	defer func() {
		if r := recover(); r != nil {
			result = false
			err := NewGuardError(t.String(), eventName(ev), fmt.Errorf("guard panic: %v", r))
			e.logger.Warn("guard failed",
				"machine", e.machine.id,
				"executor", e.id,
				"transition", t.String(),
				"error", err)
			e.observers.NotifyError(e.origin(), err)
		}
		e.observers.NotifyGuardEvaluation(e.origin(), t.Info(), ev, result)
	}()
	return t.guard(e.context, ev)
}

// run executes one behavior, turning failures and panics into ActionErrors
func (e *Executor[C]) run(b Behavior[C], action, where string, ev Event) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = NewActionError(action, where, fmt.Errorf("action panic: %v", r))
		}
	}()
	if cause := b(e.context, ev); cause != nil {
		return NewActionError(action, where, cause)
	}
	return nil
}
