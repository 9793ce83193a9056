package umlsm

// TransitionKind selects how a transition treats its source state
type TransitionKind int

const (
	// External exits the source state
	External TransitionKind = iota
	// Local does not exit its composite source when targeting a substate
	Local
	// Internal runs its effects without exiting or entering anything
	Internal
)

func (k TransitionKind) String() string {
	switch k {
	case External:
		return "external"
	case Local:
		return "local"
	case Internal:
		return "internal"
	default:
		return "unknown"
	}
}

// Transition connects a source vertex to a target vertex
type Transition[C any] struct {
	id        string
	name      string
	source    *Vertex[C]
	target    *Vertex[C]
	container string
	kind      TransitionKind
	triggers  []Trigger
	guard     Guard[C]
	effects   []Behavior[C]
}

// ID returns the transition identifier
func (t *Transition[C]) ID() string {
	return t.id
}

// Name returns the declared name, which may be empty
func (t *Transition[C]) Name() string {
	return t.name
}

// Source returns the source vertex
func (t *Transition[C]) Source() *Vertex[C] {
	return t.source
}

// Target returns the target vertex
func (t *Transition[C]) Target() *Vertex[C] {
	return t.target
}

// Container returns the id of the region containing the transition
func (t *Transition[C]) Container() string {
	return t.container
}

// Kind returns the transition kind
func (t *Transition[C]) Kind() TransitionKind {
	return t.kind
}

// Triggers returns the triggers in declaration order
func (t *Transition[C]) Triggers() []Trigger {
	return t.triggers
}

// Guard returns the guard, or nil
func (t *Transition[C]) Guard() Guard[C] {
	return t.guard
}

// Effects returns the effect behaviors in declaration order
func (t *Transition[C]) Effects() []Behavior[C] {
	return t.effects
}

// IsCompletion reports whether the transition is triggered by completion
func (t *Transition[C]) IsCompletion() bool {
	return len(t.triggers) == 0
}

// Info returns a description of the transition for observers
func (t *Transition[C]) Info() TransitionInfo {
	info := TransitionInfo{
		ID:   t.id,
		Name: t.name,
		Kind: t.kind,
	}
	if t.source != nil {
		info.Source = t.source.id
	}
	if t.target != nil {
		info.Target = t.target.id
	}
	return info
}

// accepts reports whether one of the triggers matches ev
func (t *Transition[C]) accepts(ev Event) bool {
	for _, trigger := range t.triggers {
		if trigger.Matches(ev) {
			return true
		}
	}
	return false
}

func (t *Transition[C]) String() string {
	if t.name != "" {
		return t.name
	}
	return t.id
}

// TransitionInfo is a context-free description of a transition
type TransitionInfo struct {
	ID     string
	Name   string
	Source string
	Target string
	Kind   TransitionKind
}

// Label returns the name of the transition, falling back to its id
func (i TransitionInfo) Label() string {
	if i.Name != "" {
		return i.Name
	}
	return i.ID
}
