package umlsm

import (
	"fmt"
	"sync"
)

// Origin identifies the executor an observer callback comes from
type Origin struct {
	MachineID  string
	ExecutorID string
}

// Observer represents an entity that observes executor activity
type Observer interface {
	// Required methods

	// OnTransition is called after the effects of a transition ran
	OnTransition(origin Origin, transition TransitionInfo, event Event)

	// OnStateEnter is called after the entry behaviors of a state ran
	OnStateEnter(origin Origin, state string)
}

// ExtendedObserver provides additional optional observation methods
type ExtendedObserver interface {
	Observer

	// OnStateExit is called after the exit behaviors of a state ran
	OnStateExit(origin Origin, state string)

	// OnGuardEvaluation is called when a guard condition is evaluated
	OnGuardEvaluation(origin Origin, transition TransitionInfo, event Event, result bool)

	// OnEventDeferred is called when an event is kept for later
	OnEventDeferred(origin Origin, event Event)

	// OnEventRejected is called when an event is dropped (no enabled transition)
	OnEventRejected(origin Origin, event Event, reason string)

	// OnError is called when an error occurs during processing
	OnError(origin Origin, err error)

	// OnMachineStarted is called once Go has entered the top-level regions
	OnMachineStarted(origin Origin)

	// OnMachinePaused is called when Pause stops accepting events
	OnMachinePaused(origin Origin)

	// OnMachineResumed is called after Resume rebuilt the configuration
	OnMachineResumed(origin Origin)

	// OnMachineTerminated is called when a terminate pseudostate is reached
	OnMachineTerminated(origin Origin)
}

// BaseObserver provides a default implementation with no-op methods
type BaseObserver struct{}

// OnTransition implements the required Observer method
func (o *BaseObserver) OnTransition(origin Origin, transition TransitionInfo, event Event) {}

// OnStateEnter implements the required Observer method
func (o *BaseObserver) OnStateEnter(origin Origin, state string) {}

// OnStateExit implements the optional ExtendedObserver method
func (o *BaseObserver) OnStateExit(origin Origin, state string) {}

// OnGuardEvaluation implements the optional ExtendedObserver method
func (o *BaseObserver) OnGuardEvaluation(origin Origin, transition TransitionInfo, event Event, result bool) {
}

// OnEventDeferred implements the optional ExtendedObserver method
func (o *BaseObserver) OnEventDeferred(origin Origin, event Event) {}

// OnEventRejected implements the optional ExtendedObserver method
func (o *BaseObserver) OnEventRejected(origin Origin, event Event, reason string) {}

// OnError implements the optional ExtendedObserver method
func (o *BaseObserver) OnError(origin Origin, err error) {}

// OnMachineStarted implements the optional ExtendedObserver method
func (o *BaseObserver) OnMachineStarted(origin Origin) {}

// OnMachinePaused implements the optional ExtendedObserver method
func (o *BaseObserver) OnMachinePaused(origin Origin) {}

// OnMachineResumed implements the optional ExtendedObserver method
func (o *BaseObserver) OnMachineResumed(origin Origin) {}

// OnMachineTerminated implements the optional ExtendedObserver method
func (o *BaseObserver) OnMachineTerminated(origin Origin) {}

// ObserverManager fans callbacks out to a set of observers. A panicking
// observer is reported through OnError and never reaches the engine.
type ObserverManager struct {
	mu        sync.RWMutex
	observers []Observer
}

// NewObserverManager creates a new observer manager
func NewObserverManager() *ObserverManager {
	return &ObserverManager{
		observers: make([]Observer, 0),
	}
}

// AddObserver adds an observer to the manager
func (om *ObserverManager) AddObserver(observer Observer) {
	om.mu.Lock()
	defer om.mu.Unlock()
	om.observers = append(om.observers, observer)
}

// RemoveObserver removes an observer from the manager
func (om *ObserverManager) RemoveObserver(observer Observer) {
	om.mu.Lock()
	defer om.mu.Unlock()
	for i, obs := range om.observers {
		if obs == observer {
			om.observers = append(om.observers[:i], om.observers[i+1:]...)
			break
		}
	}
}

// Len returns the number of registered observers
func (om *ObserverManager) Len() int {
	om.mu.RLock()
	defer om.mu.RUnlock()
	return len(om.observers)
}

func (om *ObserverManager) snapshot() []Observer {
	om.mu.RLock()
	defer om.mu.RUnlock()
	observers := make([]Observer, len(om.observers))
	copy(observers, om.observers)
	return observers
}

// call invokes fn for every observer, recovering panics
func (om *ObserverManager) call(origin Origin, hook string, fn func(Observer)) {
	for _, observer := range om.snapshot() {
		func() {
			defer func() {
				if r := recover(); r != nil {
					if extObs, ok := observer.(ExtendedObserver); ok {
						func() {
							defer func() { _ = recover() }()
							extObs.OnError(origin, fmt.Errorf("observer panic in %s: %v", hook, r))
						}()
					}
				}
			}()
			fn(observer)
		}()
	}
}

// extended invokes fn for every ExtendedObserver, recovering panics
func (om *ObserverManager) extended(origin Origin, hook string, fn func(ExtendedObserver)) {
	om.call(origin, hook, func(o Observer) {
		if extObs, ok := o.(ExtendedObserver); ok {
			fn(extObs)
		}
	})
}

// NotifyTransition notifies all observers of a fired transition
func (om *ObserverManager) NotifyTransition(origin Origin, transition TransitionInfo, event Event) {
	om.call(origin, "OnTransition", func(o Observer) {
		o.OnTransition(origin, transition, event)
	})
}

// NotifyStateEnter notifies all observers of state entry
func (om *ObserverManager) NotifyStateEnter(origin Origin, state string) {
	om.call(origin, "OnStateEnter", func(o Observer) {
		o.OnStateEnter(origin, state)
	})
}

// NotifyStateExit notifies all observers of state exit
func (om *ObserverManager) NotifyStateExit(origin Origin, state string) {
	om.extended(origin, "OnStateExit", func(o ExtendedObserver) {
		o.OnStateExit(origin, state)
	})
}

// NotifyGuardEvaluation notifies all observers of guard evaluation
func (om *ObserverManager) NotifyGuardEvaluation(origin Origin, transition TransitionInfo, event Event, result bool) {
	om.extended(origin, "OnGuardEvaluation", func(o ExtendedObserver) {
		o.OnGuardEvaluation(origin, transition, event, result)
	})
}

// NotifyEventDeferred notifies all observers of a deferred event
func (om *ObserverManager) NotifyEventDeferred(origin Origin, event Event) {
	om.extended(origin, "OnEventDeferred", func(o ExtendedObserver) {
		o.OnEventDeferred(origin, event)
	})
}

// NotifyEventRejected notifies all observers of event rejection
func (om *ObserverManager) NotifyEventRejected(origin Origin, event Event, reason string) {
	om.extended(origin, "OnEventRejected", func(o ExtendedObserver) {
		o.OnEventRejected(origin, event, reason)
	})
}

// NotifyError notifies all observers of errors
func (om *ObserverManager) NotifyError(origin Origin, err error) {
	for _, observer := range om.snapshot() {
		if extObs, ok := observer.(ExtendedObserver); ok {
			func() {
				defer func() { _ = recover() }()
				extObs.OnError(origin, err)
			}()
		}
	}
}

// NotifyMachineStarted notifies all observers that the executor started
func (om *ObserverManager) NotifyMachineStarted(origin Origin) {
	om.extended(origin, "OnMachineStarted", func(o ExtendedObserver) {
		o.OnMachineStarted(origin)
	})
}

// NotifyMachinePaused notifies all observers that the executor paused
func (om *ObserverManager) NotifyMachinePaused(origin Origin) {
	om.extended(origin, "OnMachinePaused", func(o ExtendedObserver) {
		o.OnMachinePaused(origin)
	})
}

// NotifyMachineResumed notifies all observers that the executor resumed
func (om *ObserverManager) NotifyMachineResumed(origin Origin) {
	om.extended(origin, "OnMachineResumed", func(o ExtendedObserver) {
		o.OnMachineResumed(origin)
	})
}

// NotifyMachineTerminated notifies all observers that the executor terminated
func (om *ObserverManager) NotifyMachineTerminated(origin Origin) {
	om.extended(origin, "OnMachineTerminated", func(o ExtendedObserver) {
		o.OnMachineTerminated(origin)
	})
}
