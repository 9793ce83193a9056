package umlsm

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// activity is a running do-activity
type activity struct {
	state  string
	token  uint64
	cancel context.CancelFunc
	done   chan struct{}
}

// finishedActivity is reported by a do-activity that returned on its own
type finishedActivity struct {
	state string
	token uint64
}

// inbox collects finished do-activities until the owner of the executor calls
// Flush. Activities never touch the runtime directly.
type inbox struct {
	mu       sync.Mutex
	finished []finishedActivity
	signal   chan struct{}
}

func newInbox() *inbox {
	return &inbox{signal: make(chan struct{}, 1)}
}

func (in *inbox) push(f finishedActivity) {
	in.mu.Lock()
	in.finished = append(in.finished, f)
	in.mu.Unlock()
	select {
	case in.signal <- struct{}{}:
	default:
	}
}

func (in *inbox) drain() []finishedActivity {
	in.mu.Lock()
	defer in.mu.Unlock()
	out := in.finished
	in.finished = nil
	return out
}

func (in *inbox) reset() {
	in.drain()
	select {
	case <-in.signal:
	default:
	}
}

// startActivity launches the do-activity of v, if it has one
func (e *Executor[C]) startActivity(v *Vertex[C]) {
	if v.doActivity == nil {
		return
	}
	e.tokens++
	ctx, cancel := context.WithCancel(context.Background())
	a := &activity{
		state:  v.id,
		token:  e.tokens,
		cancel: cancel,
		done:   make(chan struct{}),
	}
	e.rt.activities[v.id] = a

	run := v.doActivity
	c := e.context
	logger := e.logger.With("machine", e.machine.id, "executor", e.id, "state", v.id)
	go func() {
		defer close(a.done)
		var err error
		func() {
			defer func() {
				if r := recover(); r != nil {
					err = fmt.Errorf("do-activity panicked: %v", r)
				}
			}()
			err = run(ctx, c)
		}()
		switch {
		case ctx.Err() != nil:
			return
		case err != nil:
			logger.Error("do-activity failed", "error", err)
			return
		}
		e.inbox.push(finishedActivity{state: a.state, token: a.token})
	}()
}

// stopActivity cancels the do-activity of v and waits for it to return, at
// most for the configured grace period.
func (e *Executor[C]) stopActivity(v *Vertex[C]) {
	a, ok := e.rt.activities[v.id]
	if !ok {
		return
	}
	delete(e.rt.activities, v.id)
	e.await(a)
}

func (e *Executor[C]) await(a *activity) {
	a.cancel()
	timer := time.NewTimer(e.config.ActivityGracePeriod)
	defer timer.Stop()
	select {
	case <-a.done:
	case <-timer.C:
		e.logger.Warn("do-activity ignored cancellation",
			"machine", e.machine.id,
			"executor", e.id,
			"state", a.state,
			"grace", e.config.ActivityGracePeriod)
	}
}

// stopActivities cancels every running do-activity
func (e *Executor[C]) stopActivities() {
	for id, a := range e.rt.activities {
		delete(e.rt.activities, id)
		e.await(a)
	}
}

// restartActivities starts the do-activities of every active state, in
// configuration order.
func (e *Executor[C]) restartActivities() {
	e.rt.root.Walk(func(n *StateConfiguration[C]) {
		if n.state != nil && !n.state.IsFinal() {
			e.startActivity(n.state)
		}
	})
}

// collect turns finished do-activities into completion events. Reports from
// activities that were stopped or restarted since are ignored.
func (e *Executor[C]) collect() {
	for _, f := range e.inbox.drain() {
		a, ok := e.rt.activities[f.state]
		if !ok || a.token != f.token {
			continue
		}
		delete(e.rt.activities, f.state)
		node := e.rt.active[f.state]
		if node != nil && (node.state.IsSimple() || node.finished()) {
			e.rt.enqueueCompletion(node.state)
		}
	}
}
