package umlsm

import "context"

// VertexKind tags the variant held by a Vertex
type VertexKind int

const (
	// KindState is a simple, composite or submachine state
	KindState VertexKind = iota
	// KindFinalState marks completion of its region
	KindFinalState
	// KindPseudoState is a transient vertex, see PseudoStateKind
	KindPseudoState
	// KindConnectionPointReference stands for an entry or exit point of a submachine
	KindConnectionPointReference
)

func (k VertexKind) String() string {
	switch k {
	case KindState:
		return "state"
	case KindFinalState:
		return "final"
	case KindPseudoState:
		return "pseudostate"
	case KindConnectionPointReference:
		return "connection"
	default:
		return "unknown"
	}
}

// PseudoStateKind enumerates the types of pseudostates
type PseudoStateKind int

const (
	// Initial pseudostate marks the default entry of a region
	Initial PseudoStateKind = iota
	// Choice pseudostate evaluates its guards when reached
	Choice
	// Junction pseudostate evaluates its guards when the transition is selected
	Junction
	// Fork pseudostate splits a transition into orthogonal regions
	Fork
	// Join pseudostate merges transitions coming from orthogonal regions
	Join
	// ShallowHistory restores the last active direct substate
	ShallowHistory
	// DeepHistory restores the last active descendant tree
	DeepHistory
	// EntryPoint is a named way into a composite state
	EntryPoint
	// ExitPoint is a named way out of a composite state
	ExitPoint
	// Terminate stops the machine without running exit behaviors
	Terminate
)

func (k PseudoStateKind) String() string {
	switch k {
	case Initial:
		return "initial"
	case Choice:
		return "choice"
	case Junction:
		return "junction"
	case Fork:
		return "fork"
	case Join:
		return "join"
	case ShallowHistory:
		return "shallowHistory"
	case DeepHistory:
		return "deepHistory"
	case EntryPoint:
		return "entryPoint"
	case ExitPoint:
		return "exitPoint"
	case Terminate:
		return "terminate"
	default:
		return "unknown"
	}
}

// Behavior is an entry, exit or effect behavior. ev is nil during completion
// steps and default entries.
type Behavior[C any] func(ctx C, ev Event) error

// Guard is a boolean condition over the context and the current event
type Guard[C any] func(ctx C, ev Event) bool

// Activity is a do-activity. It runs on its own goroutine and must return
// once ctx is cancelled.
type Activity[C any] func(ctx context.Context, c C) error

// Vertex is a node of the state machine graph. The variant is selected by
// Kind; state-only fields are empty for pseudostates and connection point
// references.
type Vertex[C any] struct {
	id   string
	name string
	kind VertexKind
	// pseudo is meaningful only when kind is KindPseudoState
	pseudo PseudoStateKind

	// container is the id of the owning region. Connection points and
	// connection point references have no region; owner names their state.
	container string
	owner     string
	// slot is the position of the container region among its siblings
	slot int
	// seq is the position of the vertex in declaration order
	seq int

	outgoing []*Transition[C]
	incoming []*Transition[C]

	regions          []*Region[C]
	entry            []Behavior[C]
	exit             []Behavior[C]
	doActivity       Activity[C]
	deferrable       []Trigger
	submachine       string
	connectionPoints []*Vertex[C]
	connections      []*Vertex[C]

	// entries and exits are the connection points a reference stands for
	entries []*Vertex[C]
	exits   []*Vertex[C]
}

// ID returns the vertex identifier, unique within its machine
func (v *Vertex[C]) ID() string {
	return v.id
}

// Name returns the declared name, which may be empty
func (v *Vertex[C]) Name() string {
	return v.name
}

// Kind returns the vertex variant
func (v *Vertex[C]) Kind() VertexKind {
	return v.kind
}

// PseudoKind returns the pseudostate kind. It is only meaningful when IsPseudo
// reports true.
func (v *Vertex[C]) PseudoKind() PseudoStateKind {
	return v.pseudo
}

// Container returns the id of the region owning the vertex, or "" for
// connection points.
func (v *Vertex[C]) Container() string {
	return v.container
}

// Owner returns the id of the state owning a connection point or connection
// point reference.
func (v *Vertex[C]) Owner() string {
	return v.owner
}

// Outgoing returns the transitions leaving the vertex in declaration order
func (v *Vertex[C]) Outgoing() []*Transition[C] {
	return v.outgoing
}

// Incoming returns the transitions entering the vertex
func (v *Vertex[C]) Incoming() []*Transition[C] {
	return v.incoming
}

// Regions returns the regions owned by a state
func (v *Vertex[C]) Regions() []*Region[C] {
	return v.regions
}

// Entry returns the entry behaviors in declaration order
func (v *Vertex[C]) Entry() []Behavior[C] {
	return v.entry
}

// Exit returns the exit behaviors in declaration order
func (v *Vertex[C]) Exit() []Behavior[C] {
	return v.exit
}

// DoActivity returns the do-activity of a state, if any
func (v *Vertex[C]) DoActivity() Activity[C] {
	return v.doActivity
}

// Deferrable returns the triggers a state retains when nothing consumes them
func (v *Vertex[C]) Deferrable() []Trigger {
	return v.deferrable
}

// Submachine returns the id of the machine a submachine state instantiates
func (v *Vertex[C]) Submachine() string {
	return v.submachine
}

// ConnectionPoints returns the entry and exit points of a composite state
func (v *Vertex[C]) ConnectionPoints() []*Vertex[C] {
	return v.connectionPoints
}

// Connections returns the connection point references of a submachine state
func (v *Vertex[C]) Connections() []*Vertex[C] {
	return v.connections
}

// Entries returns the entry points referenced by a connection point reference
func (v *Vertex[C]) Entries() []*Vertex[C] {
	return v.entries
}

// Exits returns the exit points referenced by a connection point reference
func (v *Vertex[C]) Exits() []*Vertex[C] {
	return v.exits
}

// IsState reports whether the vertex is a state, final states included
func (v *Vertex[C]) IsState() bool {
	return v.kind == KindState || v.kind == KindFinalState
}

// IsFinal reports whether the vertex is a final state
func (v *Vertex[C]) IsFinal() bool {
	return v.kind == KindFinalState
}

// IsPseudo reports whether the vertex is a pseudostate
func (v *Vertex[C]) IsPseudo() bool {
	return v.kind == KindPseudoState
}

// IsHistory reports whether the vertex is a shallow or deep history pseudostate
func (v *Vertex[C]) IsHistory() bool {
	return v.kind == KindPseudoState && (v.pseudo == ShallowHistory || v.pseudo == DeepHistory)
}

// IsSimple reports whether the vertex is a state without regions or submachine
func (v *Vertex[C]) IsSimple() bool {
	return v.kind == KindState && len(v.regions) == 0 && v.submachine == ""
}

// IsComposite reports whether the state owns at least one region or refers to
// a submachine.
func (v *Vertex[C]) IsComposite() bool {
	return v.kind == KindState && (len(v.regions) > 0 || v.submachine != "")
}

// IsOrthogonal reports whether the state owns two or more regions
func (v *Vertex[C]) IsOrthogonal() bool {
	return v.kind == KindState && len(v.regions) > 1
}

// IsSubmachine reports whether the state instantiates another machine
func (v *Vertex[C]) IsSubmachine() bool {
	return v.kind == KindState && v.submachine != ""
}

func (v *Vertex[C]) String() string {
	if v.kind == KindPseudoState {
		return v.pseudo.String() + ":" + v.id
	}
	return v.id
}

// defers reports whether ev matches one of the deferrable triggers
func (v *Vertex[C]) defers(ev Event) bool {
	for _, trigger := range v.deferrable {
		if trigger.Matches(ev) {
			return true
		}
	}
	return false
}

// region returns the owned region with the given id
func (v *Vertex[C]) region(id string) *Region[C] {
	for _, r := range v.regions {
		if r.id == id {
			return r
		}
	}
	return nil
}
