package builders

import "github.com/anggasct/umlsm"

const (
	// Next is the signal that moves a workflow past a sequential step
	Next = "next"
	// Completed is the id of the final state added by Finish
	Completed = "completed"
)

// Done names the signal that finishes step inside a parallel branch
func Done(step string) string {
	return step + ".done"
}

// Branch is one region of a parallel step, its steps run in order
type Branch struct {
	Name  string
	Steps []string
}

// NewBranch creates a branch
func NewBranch(name string, steps ...string) Branch {
	return Branch{Name: name, Steps: steps}
}

type link struct {
	source  string
	trigger string
}

// WorkflowBuilder lays out a linear workflow in a single region. Every step
// is connected to the one declared after it.
type WorkflowBuilder[C any] struct {
	builder *umlsm.Builder[C]
	flow    *umlsm.RegionBuilder[C]
	states  map[string]*umlsm.StateBuilder[C]
	pending []link
	started bool
}

// NewWorkflowBuilder creates a new workflow builder
func NewWorkflowBuilder[C any](name string) *WorkflowBuilder[C] {
	b := umlsm.NewBuilder[C](name)
	return &WorkflowBuilder[C]{
		builder: b,
		flow:    b.Region("flow"),
		states:  make(map[string]*umlsm.StateBuilder[C]),
	}
}

func (w *WorkflowBuilder[C]) connect(target string) {
	if !w.started {
		w.flow.Initial().To(target)
		w.started = true
		return
	}
	for _, l := range w.pending {
		t := w.states[l.source].To(target)
		if l.trigger != "" {
			t.On(l.trigger)
		}
	}
	w.pending = nil
}

func (w *WorkflowBuilder[C]) state(name string) *umlsm.StateBuilder[C] {
	s := w.flow.State(name)
	w.states[name] = s
	return s
}

// Step adds a sequential step that runs behaviors on entry and waits for Next
func (w *WorkflowBuilder[C]) Step(name string, behaviors ...umlsm.Behavior[C]) *WorkflowBuilder[C] {
	w.connect(name)
	w.state(name).Entry(behaviors...)
	w.pending = []link{{source: name, trigger: Next}}
	return w
}

// Parallel adds an orthogonal step with one region per branch. Each branch
// step waits for its Done signal and the workflow moves on once every
// branch finished.
func (w *WorkflowBuilder[C]) Parallel(name string, branches ...Branch) *WorkflowBuilder[C] {
	w.connect(name)
	s := w.state(name)
	for _, br := range branches {
		r := s.Region(br.Name)
		final := br.Name + "_done"
		if len(br.Steps) == 0 {
			r.Initial().To(final)
		} else {
			r.Initial().To(br.Steps[0])
		}
		for i, step := range br.Steps {
			target := final
			if i+1 < len(br.Steps) {
				target = br.Steps[i+1]
			}
			r.State(step).To(target).On(Done(step))
		}
		r.Final(final)
	}
	w.pending = []link{{source: name}}
	return w
}

// Choice adds a decision taken when the previous step finishes: then is
// entered when guard holds, otherwise is entered when it does not. Both
// branches wait for Next.
func (w *WorkflowBuilder[C]) Choice(name string, guard umlsm.Guard[C], then, otherwise string) *WorkflowBuilder[C] {
	w.connect(name)
	c := w.flow.Choice(name)
	c.To(then).When(guard)
	c.To(otherwise)
	w.state(then)
	w.state(otherwise)
	w.pending = []link{{source: then, trigger: Next}, {source: otherwise, trigger: Next}}
	return w
}

// Finish adds the Completed final state after the last step
func (w *WorkflowBuilder[C]) Finish() *WorkflowBuilder[C] {
	w.connect(Completed)
	w.flow.Final(Completed)
	return w
}

// Build validates and returns the workflow machine
func (w *WorkflowBuilder[C]) Build() (*umlsm.StateMachine[C], error) {
	return w.builder.Build()
}
