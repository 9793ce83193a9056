package umlsm

import (
	"time"

	"github.com/google/uuid"
)

// Event is anything that can be offered to an executor. Triggers decide
// whether an event matches; the engine never looks inside.
type Event interface {
	Name() string
	Data() any
}

// BaseEvent provides a basic implementation of the Event interface
type BaseEvent struct {
	id        string
	name      string
	data      any
	timestamp time.Time
}

// NewEvent creates a new event carrying data
func NewEvent(name string, data any) *BaseEvent {
	return &BaseEvent{
		id:        uuid.New().String(),
		name:      name,
		data:      data,
		timestamp: time.Now(),
	}
}

// Signal creates an event with a name and no data
func Signal(name string) *BaseEvent {
	return NewEvent(name, nil)
}

// ID returns the unique event identifier
func (e *BaseEvent) ID() string {
	return e.id
}

// Name returns the event name
func (e *BaseEvent) Name() string {
	return e.name
}

// Data returns the event payload
func (e *BaseEvent) Data() any {
	return e.data
}

// Timestamp returns the creation time of the event
func (e *BaseEvent) Timestamp() time.Time {
	return e.timestamp
}

func (e *BaseEvent) String() string {
	return e.name
}

// Trigger is an event predicate attached to transitions and deferrable sets
type Trigger struct {
	name  string
	match func(Event) bool
}

// On returns a trigger matching events by name
func On(name string) Trigger {
	return Trigger{
		name: name,
		match: func(ev Event) bool {
			return ev.Name() == name
		},
	}
}

// When returns a trigger backed by an arbitrary predicate
func When(name string, match func(Event) bool) Trigger {
	return Trigger{name: name, match: match}
}

// Name returns the trigger label
func (t Trigger) Name() string {
	return t.name
}

// Matches reports whether ev satisfies the trigger. A nil event never matches.
func (t Trigger) Matches(ev Event) bool {
	if ev == nil || t.match == nil {
		return false
	}
	return t.match(ev)
}

// eventName returns a printable name for ev, including the completion event
func eventName(ev Event) string {
	if ev == nil {
		return "<completion>"
	}
	return ev.Name()
}
