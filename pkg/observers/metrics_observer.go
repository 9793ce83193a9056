package observers

import (
	"sync"
	"time"

	"github.com/anggasct/umlsm"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// MetricsObserver exports executor activity as Prometheus metrics. One
// observer can be shared by many executors; series are labelled by machine.
type MetricsObserver struct {
	umlsm.BaseObserver

	transitions *prometheus.CounterVec
	entries     *prometheus.CounterVec
	events      *prometheus.CounterVec
	errors      *prometheus.CounterVec
	running     *prometheus.GaugeVec
	timeInState *prometheus.HistogramVec

	mutex   sync.Mutex
	entered map[stateKey]time.Time
	now     func() time.Time
}

type stateKey struct {
	executor string
	state    string
}

// NewMetricsObserver registers the umlsm metrics with registerer. A nil
// registerer uses prometheus.DefaultRegisterer.
func NewMetricsObserver(registerer prometheus.Registerer) *MetricsObserver {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}
	factory := promauto.With(registerer)
	return &MetricsObserver{
		transitions: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "umlsm_transitions_total",
				Help: "Total number of fired transitions",
			},
			[]string{"machine", "transition"},
		),
		entries: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "umlsm_state_entries_total",
				Help: "Total number of state entries",
			},
			[]string{"machine", "state"},
		),
		events: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "umlsm_events_total",
				Help: "Total number of events not consumed by a transition",
			},
			[]string{"machine", "outcome"}, // outcome: deferred, rejected
		),
		errors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "umlsm_errors_total",
				Help: "Total number of errors reported by executors",
			},
			[]string{"machine"},
		),
		running: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "umlsm_running_executors",
				Help: "Number of started executors not yet terminated",
			},
			[]string{"machine"},
		),
		timeInState: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "umlsm_state_duration_seconds",
				Help:    "Time spent in a state between entry and exit",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"machine", "state"},
		),
		entered: make(map[stateKey]time.Time),
		now:     time.Now,
	}
}

// OnTransition counts fired transitions
func (o *MetricsObserver) OnTransition(origin umlsm.Origin, t umlsm.TransitionInfo, ev umlsm.Event) {
	o.transitions.WithLabelValues(origin.MachineID, t.Label()).Inc()
}

// OnStateEnter counts state entries
func (o *MetricsObserver) OnStateEnter(origin umlsm.Origin, state string) {
	o.entries.WithLabelValues(origin.MachineID, state).Inc()
	o.mutex.Lock()
	o.entered[stateKey{origin.ExecutorID, state}] = o.now()
	o.mutex.Unlock()
}

// OnStateExit observes the time spent in the state
func (o *MetricsObserver) OnStateExit(origin umlsm.Origin, state string) {
	key := stateKey{origin.ExecutorID, state}
	o.mutex.Lock()
	since, ok := o.entered[key]
	delete(o.entered, key)
	o.mutex.Unlock()
	if ok {
		o.timeInState.WithLabelValues(origin.MachineID, state).Observe(o.now().Sub(since).Seconds())
	}
}

// OnEventDeferred counts deferred events
func (o *MetricsObserver) OnEventDeferred(origin umlsm.Origin, ev umlsm.Event) {
	o.events.WithLabelValues(origin.MachineID, "deferred").Inc()
}

// OnEventRejected counts discarded events
func (o *MetricsObserver) OnEventRejected(origin umlsm.Origin, ev umlsm.Event, reason string) {
	o.events.WithLabelValues(origin.MachineID, "rejected").Inc()
}

// OnError counts errors
func (o *MetricsObserver) OnError(origin umlsm.Origin, err error) {
	o.errors.WithLabelValues(origin.MachineID).Inc()
}

// OnMachineStarted tracks running executors
func (o *MetricsObserver) OnMachineStarted(origin umlsm.Origin) {
	o.running.WithLabelValues(origin.MachineID).Inc()
}

// OnMachineTerminated tracks running executors. A terminated executor
// exits no states, so its entry times are dropped here.
func (o *MetricsObserver) OnMachineTerminated(origin umlsm.Origin) {
	o.running.WithLabelValues(origin.MachineID).Dec()
	o.mutex.Lock()
	for key := range o.entered {
		if key.executor == origin.ExecutorID {
			delete(o.entered, key)
		}
	}
	o.mutex.Unlock()
}
