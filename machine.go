package umlsm

// StateMachine is a frozen state machine definition. It is built once by a
// Builder and may be shared by any number of executors.
type StateMachine[C any] struct {
	id               string
	name             string
	regions          []*Region[C]
	connectionPoints []*Vertex[C]

	vertices    map[string]*Vertex[C]
	order       []*Vertex[C]
	regionIndex map[string]*Region[C]
	transitions map[string]*Transition[C]
	paths       map[string][]pathNode[C]
}

// pathNode is one step of a containment chain: either a region or a state
type pathNode[C any] struct {
	region *Region[C]
	state  *Vertex[C]
}

func (n pathNode[C]) isRegion() bool {
	return n.region != nil
}

// ID returns the machine identifier recorded in snapshots
func (m *StateMachine[C]) ID() string {
	return m.id
}

// Name returns the machine name
func (m *StateMachine[C]) Name() string {
	return m.name
}

// Regions returns the top-level regions in declaration order
func (m *StateMachine[C]) Regions() []*Region[C] {
	return m.regions
}

// ConnectionPoints returns the entry and exit points a submachine state can
// reference.
func (m *StateMachine[C]) ConnectionPoints() []*Vertex[C] {
	return m.connectionPoints
}

// Vertex looks a vertex up by id
func (m *StateMachine[C]) Vertex(id string) (*Vertex[C], bool) {
	v, ok := m.vertices[id]
	return v, ok
}

// Vertices returns every vertex in declaration order
func (m *StateMachine[C]) Vertices() []*Vertex[C] {
	return m.order
}

// Region looks a region up by id
func (m *StateMachine[C]) Region(id string) (*Region[C], bool) {
	r, ok := m.regionIndex[id]
	return r, ok
}

// Transition looks a transition up by id
func (m *StateMachine[C]) Transition(id string) (*Transition[C], bool) {
	t, ok := m.transitions[id]
	return t, ok
}

// ContainerOf returns the region owning v, or nil for connection points
func (m *StateMachine[C]) ContainerOf(v *Vertex[C]) *Region[C] {
	return m.regionIndex[v.container]
}

// OwnerOf returns the state owning r, or nil for a top-level region
func (m *StateMachine[C]) OwnerOf(r *Region[C]) *Vertex[C] {
	if r == nil || r.owner == "" {
		return nil
	}
	return m.vertices[r.owner]
}

// ParentState returns the innermost state containing v, or nil at top level
func (m *StateMachine[C]) ParentState(v *Vertex[C]) *Vertex[C] {
	if v.container == "" {
		return m.vertices[v.owner]
	}
	return m.OwnerOf(m.regionIndex[v.container])
}

// LCA returns the least common ancestor region of u and v: the first region
// on v's chain of containing regions that also contains u. It returns nil
// when the vertices share no region, e.g. two distinct top-level regions.
func (m *StateMachine[C]) LCA(u, v *Vertex[C]) *Region[C] {
	marked := make(map[string]bool)
	for _, n := range m.paths[u.id] {
		if n.isRegion() {
			marked[n.region.id] = true
		}
	}
	path := m.paths[v.id]
	for i := len(path) - 1; i >= 0; i-- {
		if path[i].isRegion() && marked[path[i].region.id] {
			return path[i].region
		}
	}
	return nil
}

// IsAncestor reports whether state a contains v at any depth
func (m *StateMachine[C]) IsAncestor(a, v *Vertex[C]) bool {
	for _, n := range m.paths[v.id] {
		if n.state == a {
			return true
		}
	}
	return false
}

// depth is the number of states containing v
func (m *StateMachine[C]) depth(v *Vertex[C]) int {
	d := 0
	for _, n := range m.paths[v.id] {
		if !n.isRegion() {
			d++
		}
	}
	return d
}

// path returns the containment chain of v from the top-level region down to
// its immediate container. v itself is not part of the chain.
func (m *StateMachine[C]) path(v *Vertex[C]) []pathNode[C] {
	return m.paths[v.id]
}

// fullPath is path(v) followed by v itself
func (m *StateMachine[C]) fullPath(v *Vertex[C]) []pathNode[C] {
	p := m.paths[v.id]
	full := make([]pathNode[C], len(p), len(p)+1)
	copy(full, p)
	return append(full, pathNode[C]{state: v})
}

// index populates the lookup tables and containment chains. It is called once
// by the builder after every vertex and region has been attached.
func (m *StateMachine[C]) index() {
	m.vertices = make(map[string]*Vertex[C])
	m.regionIndex = make(map[string]*Region[C])
	m.transitions = make(map[string]*Transition[C])
	m.paths = make(map[string][]pathNode[C])
	m.order = m.order[:0]

	var addState func(v *Vertex[C])
	var addRegion func(r *Region[C])
	addState = func(v *Vertex[C]) {
		m.vertices[v.id] = v
		m.order = append(m.order, v)
		for _, cp := range v.connectionPoints {
			m.vertices[cp.id] = cp
			m.order = append(m.order, cp)
		}
		for _, ref := range v.connections {
			m.vertices[ref.id] = ref
			m.order = append(m.order, ref)
		}
		for _, r := range v.regions {
			addRegion(r)
		}
	}
	addRegion = func(r *Region[C]) {
		m.regionIndex[r.id] = r
		for _, v := range r.subvertices {
			addState(v)
		}
	}
	for _, cp := range m.connectionPoints {
		m.vertices[cp.id] = cp
		m.order = append(m.order, cp)
	}
	for _, r := range m.regions {
		addRegion(r)
	}
	for i, v := range m.order {
		v.seq = i
		m.paths[v.id] = m.chain(v)
		for _, t := range v.outgoing {
			m.transitions[t.id] = t
		}
	}
}

func (m *StateMachine[C]) chain(v *Vertex[C]) []pathNode[C] {
	var reversed []pathNode[C]
	cur := v
	for {
		if cur.container != "" {
			r := m.regionIndex[cur.container]
			reversed = append(reversed, pathNode[C]{region: r})
			if r.owner == "" {
				break
			}
			owner := m.vertices[r.owner]
			reversed = append(reversed, pathNode[C]{state: owner})
			cur = owner
			continue
		}
		if cur.owner == "" {
			break
		}
		owner := m.vertices[cur.owner]
		reversed = append(reversed, pathNode[C]{state: owner})
		cur = owner
	}
	chain := make([]pathNode[C], len(reversed))
	for i, n := range reversed {
		chain[len(reversed)-1-i] = n
	}
	return chain
}
