package builders

import (
	"errors"
	"fmt"

	"github.com/anggasct/umlsm"
	"github.com/anggasct/umlsm/pkg/observers"
)

// ValidationBuilder prepares a ValidationObserver from a machine definition
type ValidationBuilder[C any] struct {
	machine  *umlsm.StateMachine[C]
	observer *observers.ValidationObserver
	unknown  []string
}

// NewValidationBuilder creates a new validation builder
func NewValidationBuilder[C any](m *umlsm.StateMachine[C]) *ValidationBuilder[C] {
	return &ValidationBuilder[C]{
		machine:  m,
		observer: observers.NewValidationObserver(),
	}
}

func (v *ValidationBuilder[C]) known(id string) bool {
	if _, ok := v.machine.Vertex(id); ok {
		return true
	}
	v.unknown = append(v.unknown, id)
	return false
}

// ExpectState adds a state that should be entered
func (v *ValidationBuilder[C]) ExpectState(id string) *ValidationBuilder[C] {
	if v.known(id) {
		v.observer.AddExpectedState(id)
	}
	return v
}

// ExpectAllStates expects every state of the machine, finals included
func (v *ValidationBuilder[C]) ExpectAllStates() *ValidationBuilder[C] {
	for _, vx := range v.machine.Vertices() {
		if vx.IsState() {
			v.observer.AddExpectedState(vx.ID())
		}
	}
	return v
}

// AllowTransition allows transitions from one vertex to another
func (v *ValidationBuilder[C]) AllowTransition(from, to string) *ValidationBuilder[C] {
	if v.known(from) && v.known(to) {
		v.observer.AddAllowedTransition(from, to)
	}
	return v
}

// AllowDeclared allows every transition the machine declares
func (v *ValidationBuilder[C]) AllowDeclared() *ValidationBuilder[C] {
	for _, vx := range v.machine.Vertices() {
		for _, t := range vx.Outgoing() {
			v.observer.AddAllowedTransition(t.Source().ID(), t.Target().ID())
		}
	}
	return v
}

// Validate reports the ids that were named but do not exist in the machine
func (v *ValidationBuilder[C]) Validate() error {
	var errs []error
	for _, id := range v.unknown {
		errs = append(errs, fmt.Errorf("machine '%s' has no vertex '%s'", v.machine.ID(), id))
	}
	return errors.Join(errs...)
}

// Build returns the validation observer
func (v *ValidationBuilder[C]) Build() *observers.ValidationObserver {
	return v.observer
}
