// Package builders holds helpers for assembling machines: reusable guards
// and behaviors, a linear workflow builder and a validation builder.
package builders

import (
	"log/slog"
	"reflect"

	"github.com/anggasct/umlsm"
)

// IfDataEquals creates a guard that checks a context variable against value
func IfDataEquals(key string, value any) umlsm.Guard[*umlsm.Variables] {
	return func(vars *umlsm.Variables, _ umlsm.Event) bool {
		if val, exists := vars.Get(key); exists {
			return reflect.DeepEqual(val, value)
		}
		return false
	}
}

// IfDataExists creates a guard that checks a context variable is set
func IfDataExists(key string) umlsm.Guard[*umlsm.Variables] {
	return func(vars *umlsm.Variables, _ umlsm.Event) bool {
		_, exists := vars.Get(key)
		return exists
	}
}

// IfEventDataEquals creates a guard that checks the event payload
func IfEventDataEquals[C any](value any) umlsm.Guard[C] {
	return func(_ C, ev umlsm.Event) bool {
		return ev != nil && reflect.DeepEqual(ev.Data(), value)
	}
}

// And holds when every guard holds
func And[C any](guards ...umlsm.Guard[C]) umlsm.Guard[C] {
	return func(ctx C, ev umlsm.Event) bool {
		for _, g := range guards {
			if !g(ctx, ev) {
				return false
			}
		}
		return true
	}
}

// Or holds when at least one guard holds
func Or[C any](guards ...umlsm.Guard[C]) umlsm.Guard[C] {
	return func(ctx C, ev umlsm.Event) bool {
		for _, g := range guards {
			if g(ctx, ev) {
				return true
			}
		}
		return false
	}
}

// Not negates a guard
func Not[C any](guard umlsm.Guard[C]) umlsm.Guard[C] {
	return func(ctx C, ev umlsm.Event) bool {
		return !guard(ctx, ev)
	}
}

// SetData creates a behavior that sets a context variable
func SetData(key string, value any) umlsm.Behavior[*umlsm.Variables] {
	return func(vars *umlsm.Variables, _ umlsm.Event) error {
		vars.Set(key, value)
		return nil
	}
}

// CopyEventData creates a behavior that stores the event payload under key
func CopyEventData(key string) umlsm.Behavior[*umlsm.Variables] {
	return func(vars *umlsm.Variables, ev umlsm.Event) error {
		if ev != nil && ev.Data() != nil {
			vars.Set(key, ev.Data())
		}
		return nil
	}
}

// LogMessage creates a behavior that logs message at info level. A nil
// logger uses slog.Default.
func LogMessage[C any](logger *slog.Logger, message string) umlsm.Behavior[C] {
	if logger == nil {
		logger = slog.Default()
	}
	return func(_ C, ev umlsm.Event) error {
		args := []any{}
		if ev != nil {
			args = append(args, "event", ev.Name())
		}
		logger.Info(message, args...)
		return nil
	}
}
