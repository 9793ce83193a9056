package observers

import (
	"fmt"
	"sort"
	"sync"

	"github.com/anggasct/umlsm"
)

// ValidationObserver checks executor activity against an expected model: the
// states that should be visited and the transitions allowed between states.
// Transitions whose source has no allowed list are not checked.
type ValidationObserver struct {
	umlsm.BaseObserver

	expectedStates     map[string]bool
	visitedStates      map[string]bool
	allowedTransitions map[string]map[string]bool
	violations         []string
	mutex              sync.RWMutex
}

// NewValidationObserver creates a new validation observer
func NewValidationObserver() *ValidationObserver {
	return &ValidationObserver{
		expectedStates:     make(map[string]bool),
		visitedStates:      make(map[string]bool),
		allowedTransitions: make(map[string]map[string]bool),
	}
}

// AddExpectedState adds a state that should be entered at least once
func (o *ValidationObserver) AddExpectedState(state string) {
	o.mutex.Lock()
	defer o.mutex.Unlock()
	o.expectedStates[state] = true
}

// AddAllowedTransition allows transitions from source to target
func (o *ValidationObserver) AddAllowedTransition(source, target string) {
	o.mutex.Lock()
	defer o.mutex.Unlock()

	if _, exists := o.allowedTransitions[source]; !exists {
		o.allowedTransitions[source] = make(map[string]bool)
	}
	o.allowedTransitions[source][target] = true
}

// OnStateEnter marks the state as visited
func (o *ValidationObserver) OnStateEnter(origin umlsm.Origin, state string) {
	o.mutex.Lock()
	defer o.mutex.Unlock()
	o.visitedStates[state] = true
}

// OnTransition checks the transition against the allowed list
func (o *ValidationObserver) OnTransition(origin umlsm.Origin, t umlsm.TransitionInfo, ev umlsm.Event) {
	o.mutex.Lock()
	defer o.mutex.Unlock()

	allowed, exists := o.allowedTransitions[t.Source]
	if exists && !allowed[t.Target] {
		o.violations = append(o.violations, fmt.Sprintf(
			"invalid transition from '%s' to '%s' on %s", t.Source, t.Target, name(ev)))
	}
}

// OnError records the error as a violation
func (o *ValidationObserver) OnError(origin umlsm.Origin, err error) {
	o.mutex.Lock()
	defer o.mutex.Unlock()
	o.violations = append(o.violations, fmt.Sprintf("error occurred: %v", err))
}

// Violations returns the recorded violations in order
func (o *ValidationObserver) Violations() []string {
	o.mutex.RLock()
	defer o.mutex.RUnlock()
	return append([]string(nil), o.violations...)
}

// UnvisitedStates returns the expected states never entered, sorted
func (o *ValidationObserver) UnvisitedStates() []string {
	o.mutex.RLock()
	defer o.mutex.RUnlock()

	var unvisited []string
	for state := range o.expectedStates {
		if !o.visitedStates[state] {
			unvisited = append(unvisited, state)
		}
	}
	sort.Strings(unvisited)
	return unvisited
}

// HasViolations reports whether any violation was recorded
func (o *ValidationObserver) HasViolations() bool {
	o.mutex.RLock()
	defer o.mutex.RUnlock()
	return len(o.violations) > 0
}

// Reset forgets visits and violations, keeping the expectations
func (o *ValidationObserver) Reset() {
	o.mutex.Lock()
	defer o.mutex.Unlock()
	o.visitedStates = make(map[string]bool)
	o.violations = nil
}
