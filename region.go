package umlsm

// Region is an ordered container of vertices and transitions, owned either by
// a state or by the state machine itself.
type Region[C any] struct {
	id    string
	name  string
	owner string
	index int

	subvertices []*Vertex[C]
	transitions []*Transition[C]
	initial     *Vertex[C]
	shallow     *Vertex[C]
	deep        *Vertex[C]
}

// ID returns the region identifier
func (r *Region[C]) ID() string {
	return r.id
}

// Name returns the declared name, which may be empty
func (r *Region[C]) Name() string {
	return r.name
}

// Owner returns the id of the owning state, or "" for a top-level region
func (r *Region[C]) Owner() string {
	return r.owner
}

// Index returns the declaration position of the region within its owner
func (r *Region[C]) Index() int {
	return r.index
}

// Subvertices returns the vertices of the region in declaration order
func (r *Region[C]) Subvertices() []*Vertex[C] {
	return r.subvertices
}

// Transitions returns the transitions contained by the region
func (r *Region[C]) Transitions() []*Transition[C] {
	return r.transitions
}

// Initial returns the initial pseudostate, or nil
func (r *Region[C]) Initial() *Vertex[C] {
	return r.initial
}

// History returns the history pseudostate of the given kind, or nil
func (r *Region[C]) History(kind PseudoStateKind) *Vertex[C] {
	switch kind {
	case ShallowHistory:
		return r.shallow
	case DeepHistory:
		return r.deep
	default:
		return nil
	}
}

// IsTopLevel reports whether the region is owned by the state machine
func (r *Region[C]) IsTopLevel() bool {
	return r.owner == ""
}

// keepsHistory reports whether exiting the region must record its history
func (r *Region[C]) keepsHistory() bool {
	return r.shallow != nil || r.deep != nil
}
