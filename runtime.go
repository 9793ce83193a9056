package umlsm

// runtime is the mutable record of one executor: the active configuration,
// history caches, event queues and running do-activities.
type runtime[C any] struct {
	started    bool
	terminated bool

	root   *StateConfiguration[C]
	active map[string]*StateConfiguration[C]
	// history maps a region id to a detached copy of its last active subtree
	history map[string]*StateConfiguration[C]

	deferred    []Event
	completions []*Vertex[C]
	activities  map[string]*activity

	// version changes whenever a state is entered or exited
	version uint64
	// enabled caches the transitions whose source is active
	enabled []*Transition[C]
	stale   bool
}

func newRuntime[C any]() *runtime[C] {
	return &runtime[C]{
		root:       newConfiguration[C](),
		active:     make(map[string]*StateConfiguration[C]),
		history:    make(map[string]*StateConfiguration[C]),
		activities: make(map[string]*activity),
		stale:      true,
	}
}

func (rt *runtime[C]) isActive(v *Vertex[C]) bool {
	_, ok := rt.active[v.id]
	return ok
}

func (rt *runtime[C]) node(v *Vertex[C]) *StateConfiguration[C] {
	return rt.active[v.id]
}

// attach makes v active under parent
func (rt *runtime[C]) attach(parent *StateConfiguration[C], v *Vertex[C]) *StateConfiguration[C] {
	node := parent.addChild(v)
	rt.active[v.id] = node
	rt.changed()
	return node
}

// detach removes a node whose children have already been detached
func (rt *runtime[C]) detach(node *StateConfiguration[C]) {
	if node.parent != nil {
		node.parent.removeChild(node)
	}
	if rt.active[node.state.id] == node {
		delete(rt.active, node.state.id)
	}
	rt.dropCompletion(node.state)
	rt.changed()
}

func (rt *runtime[C]) changed() {
	rt.version++
	rt.stale = true
}

// activeTransitions returns the outgoing transitions of every active state,
// innermost states last, in configuration order.
func (rt *runtime[C]) activeTransitions() []*Transition[C] {
	if !rt.stale {
		return rt.enabled
	}
	rt.enabled = rt.enabled[:0]
	rt.root.Walk(func(n *StateConfiguration[C]) {
		if n.state != nil {
			rt.enabled = append(rt.enabled, n.state.outgoing...)
		}
	})
	rt.stale = false
	return rt.enabled
}

// mayConsume reports whether any active transition has a trigger matching ev
func (rt *runtime[C]) mayConsume(ev Event) bool {
	for _, t := range rt.activeTransitions() {
		if t.accepts(ev) {
			return true
		}
	}
	return false
}

// defers reports whether an active state lists ev as deferrable
func (rt *runtime[C]) defers(ev Event) bool {
	for _, n := range rt.active {
		if n.state.defers(ev) {
			return true
		}
	}
	return false
}

func (rt *runtime[C]) enqueueCompletion(v *Vertex[C]) {
	for _, queued := range rt.completions {
		if queued == v {
			return
		}
	}
	rt.completions = append(rt.completions, v)
}

func (rt *runtime[C]) dropCompletion(v *Vertex[C]) {
	for i, queued := range rt.completions {
		if queued == v {
			rt.completions = append(rt.completions[:i], rt.completions[i+1:]...)
			return
		}
	}
}

func (rt *runtime[C]) popCompletion() *Vertex[C] {
	v := rt.completions[0]
	rt.completions = rt.completions[1:]
	return v
}

// recordHistory stores the active subtree of every region of node that has
// a history pseudostate. Deep history keeps the whole subtree, shallow only
// the direct child.
func (rt *runtime[C]) recordHistory(node *StateConfiguration[C]) {
	for _, r := range node.state.regions {
		if !r.keepsHistory() {
			continue
		}
		child := node.childIn(r.id)
		if child == nil {
			delete(rt.history, r.id)
			continue
		}
		depth := 0
		if r.deep != nil {
			depth = -1
		}
		rt.history[r.id] = child.clone(depth)
	}
}

// clearHistory forgets the history of the regions owned by v
func (rt *runtime[C]) clearHistory(v *Vertex[C]) {
	for _, r := range v.regions {
		delete(rt.history, r.id)
	}
}

// activeIDs lists the active states, parents before children
func (rt *runtime[C]) activeIDs() []string {
	var ids []string
	rt.root.Walk(func(n *StateConfiguration[C]) {
		if n.state != nil {
			ids = append(ids, n.state.id)
		}
	})
	return ids
}
