// Package observers provides observers for monitoring state machine executors
package observers

import (
	"context"
	"log/slog"

	"github.com/anggasct/umlsm"
)

// LoggingObserver logs executor activity through slog. Structural steps are
// logged at the configured level, guard evaluations and discarded events at
// debug, errors at error.
type LoggingObserver struct {
	umlsm.BaseObserver
	logger *slog.Logger
	level  slog.Level
}

// NewLoggingObserver creates a logging observer writing step records at level
func NewLoggingObserver(logger *slog.Logger, level slog.Level) *LoggingObserver {
	if logger == nil {
		logger = slog.Default()
	}
	return &LoggingObserver{logger: logger, level: level}
}

// NewDefaultLoggingObserver logs to slog.Default at info level
func NewDefaultLoggingObserver() *LoggingObserver {
	return NewLoggingObserver(slog.Default(), slog.LevelInfo)
}

func (o *LoggingObserver) log(level slog.Level, msg string, origin umlsm.Origin, args ...any) {
	attrs := append([]any{"machine", origin.MachineID, "executor", origin.ExecutorID}, args...)
	o.logger.Log(context.Background(), level, msg, attrs...)
}

func name(ev umlsm.Event) string {
	if ev == nil {
		return "<completion>"
	}
	return ev.Name()
}

// OnTransition logs a fired transition
func (o *LoggingObserver) OnTransition(origin umlsm.Origin, t umlsm.TransitionInfo, ev umlsm.Event) {
	o.log(o.level, "transition", origin,
		"transition", t.Label(),
		"source", t.Source,
		"target", t.Target,
		"kind", t.Kind.String(),
		"event", name(ev))
}

// OnStateEnter logs state entry
func (o *LoggingObserver) OnStateEnter(origin umlsm.Origin, state string) {
	o.log(o.level, "state entered", origin, "state", state)
}

// OnStateExit logs state exit
func (o *LoggingObserver) OnStateExit(origin umlsm.Origin, state string) {
	o.log(o.level, "state exited", origin, "state", state)
}

// OnGuardEvaluation logs guard results
func (o *LoggingObserver) OnGuardEvaluation(origin umlsm.Origin, t umlsm.TransitionInfo, ev umlsm.Event, result bool) {
	o.log(slog.LevelDebug, "guard evaluated", origin,
		"transition", t.Label(),
		"event", name(ev),
		"result", result)
}

// OnEventDeferred logs deferred events
func (o *LoggingObserver) OnEventDeferred(origin umlsm.Origin, ev umlsm.Event) {
	o.log(o.level, "event deferred", origin, "event", name(ev))
}

// OnEventRejected logs discarded events
func (o *LoggingObserver) OnEventRejected(origin umlsm.Origin, ev umlsm.Event, reason string) {
	o.log(slog.LevelDebug, "event rejected", origin, "event", name(ev), "reason", reason)
}

// OnError logs errors
func (o *LoggingObserver) OnError(origin umlsm.Origin, err error) {
	o.log(slog.LevelError, "executor error", origin, "error", err)
}

// OnMachineStarted logs Go
func (o *LoggingObserver) OnMachineStarted(origin umlsm.Origin) {
	o.log(o.level, "executor started", origin)
}

// OnMachinePaused logs Pause
func (o *LoggingObserver) OnMachinePaused(origin umlsm.Origin) {
	o.log(o.level, "executor paused", origin)
}

// OnMachineResumed logs Resume
func (o *LoggingObserver) OnMachineResumed(origin umlsm.Origin) {
	o.log(o.level, "executor resumed", origin)
}

// OnMachineTerminated logs termination
func (o *LoggingObserver) OnMachineTerminated(origin umlsm.Origin) {
	o.log(o.level, "executor terminated", origin)
}
