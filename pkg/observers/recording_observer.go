package observers

import (
	"fmt"
	"sync"

	"github.com/anggasct/umlsm"
)

// Record is one observed step
type Record struct {
	Kind   string
	Origin umlsm.Origin
	// Subject is the state, transition label or event name
	Subject string
	Detail  string
}

func (r Record) String() string {
	if r.Detail == "" {
		return fmt.Sprintf("%s(%s)", r.Kind, r.Subject)
	}
	return fmt.Sprintf("%s(%s: %s)", r.Kind, r.Subject, r.Detail)
}

// RecordingObserver keeps every callback in order. Hosts use it for audit
// trails, tests for asserting step sequences.
type RecordingObserver struct {
	mutex   sync.Mutex
	records []Record
	guards  bool
}

// NewRecordingObserver creates a recorder. Guard evaluations are recorded
// only when withGuards is set.
func NewRecordingObserver(withGuards bool) *RecordingObserver {
	return &RecordingObserver{guards: withGuards}
}

func (o *RecordingObserver) add(kind string, origin umlsm.Origin, subject, detail string) {
	o.mutex.Lock()
	defer o.mutex.Unlock()
	o.records = append(o.records, Record{Kind: kind, Origin: origin, Subject: subject, Detail: detail})
}

// Records returns a copy of the records
func (o *RecordingObserver) Records() []Record {
	o.mutex.Lock()
	defer o.mutex.Unlock()
	return append([]Record(nil), o.records...)
}

// Steps renders the records as strings, e.g. "enter(A)" or "transition(t1)"
func (o *RecordingObserver) Steps() []string {
	records := o.Records()
	steps := make([]string, len(records))
	for i, r := range records {
		steps[i] = r.Kind + "(" + r.Subject + ")"
	}
	return steps
}

// Reset drops the records
func (o *RecordingObserver) Reset() {
	o.mutex.Lock()
	defer o.mutex.Unlock()
	o.records = nil
}

func (o *RecordingObserver) OnTransition(origin umlsm.Origin, t umlsm.TransitionInfo, ev umlsm.Event) {
	o.add("transition", origin, t.Label(), name(ev))
}

func (o *RecordingObserver) OnStateEnter(origin umlsm.Origin, state string) {
	o.add("enter", origin, state, "")
}

func (o *RecordingObserver) OnStateExit(origin umlsm.Origin, state string) {
	o.add("exit", origin, state, "")
}

func (o *RecordingObserver) OnGuardEvaluation(origin umlsm.Origin, t umlsm.TransitionInfo, ev umlsm.Event, result bool) {
	if o.guards {
		o.add("guard", origin, t.Label(), fmt.Sprint(result))
	}
}

func (o *RecordingObserver) OnEventDeferred(origin umlsm.Origin, ev umlsm.Event) {
	o.add("deferred", origin, name(ev), "")
}

func (o *RecordingObserver) OnEventRejected(origin umlsm.Origin, ev umlsm.Event, reason string) {
	o.add("rejected", origin, name(ev), reason)
}

func (o *RecordingObserver) OnError(origin umlsm.Origin, err error) {
	o.add("error", origin, "", err.Error())
}

func (o *RecordingObserver) OnMachineStarted(origin umlsm.Origin) {
	o.add("started", origin, origin.ExecutorID, "")
}

func (o *RecordingObserver) OnMachinePaused(origin umlsm.Origin) {
	o.add("paused", origin, origin.ExecutorID, "")
}

func (o *RecordingObserver) OnMachineResumed(origin umlsm.Origin) {
	o.add("resumed", origin, origin.ExecutorID, "")
}

func (o *RecordingObserver) OnMachineTerminated(origin umlsm.Origin) {
	o.add("terminated", origin, origin.ExecutorID, "")
}

var _ umlsm.ExtendedObserver = (*RecordingObserver)(nil)
