package umlsm

// ConfigurationKind classifies a node of the active-state tree
type ConfigurationKind int

const (
	// LeafConfiguration holds a state with no active substates
	LeafConfiguration ConfigurationKind = iota
	// CompositeConfiguration holds a single-region state and its active child
	CompositeConfiguration
	// OrthogonalConfiguration holds a multi-region state and one child per region
	OrthogonalConfiguration
)

func (k ConfigurationKind) String() string {
	switch k {
	case LeafConfiguration:
		return "leaf"
	case CompositeConfiguration:
		return "composite"
	case OrthogonalConfiguration:
		return "orthogonal"
	default:
		return "unknown"
	}
}

// StateConfiguration is a node of the active-state tree. The root node has a
// nil state and stands for the top-level regions. Only the engine mutates
// the tree; clients get read access.
type StateConfiguration[C any] struct {
	state    *Vertex[C]
	parent   *StateConfiguration[C]
	children []*StateConfiguration[C]
}

func newConfiguration[C any]() *StateConfiguration[C] {
	return &StateConfiguration[C]{}
}

// State returns the state of this node, nil for the root
func (c *StateConfiguration[C]) State() *Vertex[C] {
	return c.state
}

// Parent returns the enclosing node, nil for the root
func (c *StateConfiguration[C]) Parent() *StateConfiguration[C] {
	return c.parent
}

// Size returns the number of direct children
func (c *StateConfiguration[C]) Size() int {
	return len(c.children)
}

// IsEmpty reports whether the node has no children
func (c *StateConfiguration[C]) IsEmpty() bool {
	return len(c.children) == 0
}

// Kind classifies the node by the state it holds
func (c *StateConfiguration[C]) Kind() ConfigurationKind {
	switch {
	case c.state == nil:
		if len(c.children) > 1 {
			return OrthogonalConfiguration
		}
		return CompositeConfiguration
	case c.state.IsOrthogonal():
		return OrthogonalConfiguration
	case c.state.IsComposite():
		return CompositeConfiguration
	default:
		return LeafConfiguration
	}
}

// ForEach visits the direct children in region order
func (c *StateConfiguration[C]) ForEach(visit func(*StateConfiguration[C])) {
	for _, child := range c.children {
		visit(child)
	}
}

// Children returns a copy of the direct children in region order
func (c *StateConfiguration[C]) Children() []*StateConfiguration[C] {
	children := make([]*StateConfiguration[C], len(c.children))
	copy(children, c.children)
	return children
}

// Walk visits the node and all its descendants depth-first, parents first
func (c *StateConfiguration[C]) Walk(visit func(*StateConfiguration[C])) {
	visit(c)
	for _, child := range c.children {
		child.Walk(visit)
	}
}

// Leaves returns the deepest nodes in region order
func (c *StateConfiguration[C]) Leaves() []*StateConfiguration[C] {
	var leaves []*StateConfiguration[C]
	c.Walk(func(n *StateConfiguration[C]) {
		if n.state != nil && len(n.children) == 0 {
			leaves = append(leaves, n)
		}
	})
	return leaves
}

// childIn returns the active child located in the given region
func (c *StateConfiguration[C]) childIn(region string) *StateConfiguration[C] {
	for _, child := range c.children {
		if child.state.container == region {
			return child
		}
	}
	return nil
}

// addChild attaches a new node for state. Children stay sorted by the
// declaration order of their regions; states without a region are appended.
func (c *StateConfiguration[C]) addChild(state *Vertex[C]) *StateConfiguration[C] {
	child := &StateConfiguration[C]{state: state, parent: c}
	pos := len(c.children)
	if state != nil && state.container != "" {
		for i, existing := range c.children {
			if existing.state != nil && existing.state.container != "" && existing.state.slot > state.slot {
				pos = i
				break
			}
		}
	}
	c.children = append(c.children, nil)
	copy(c.children[pos+1:], c.children[pos:])
	c.children[pos] = child
	return child
}

// removeChild detaches child; it is a no-op for a node that is not a child
func (c *StateConfiguration[C]) removeChild(child *StateConfiguration[C]) {
	for i, existing := range c.children {
		if existing == child {
			c.children = append(c.children[:i], c.children[i+1:]...)
			child.parent = nil
			return
		}
	}
}

// clone deep-copies the subtree rooted at c, detached from any parent
func (c *StateConfiguration[C]) clone(depth int) *StateConfiguration[C] {
	copied := &StateConfiguration[C]{state: c.state}
	if depth == 0 {
		return copied
	}
	for _, child := range c.children {
		cc := child.clone(depth - 1)
		cc.parent = copied
		copied.children = append(copied.children, cc)
	}
	return copied
}

// tree converts the subtree to its snapshot form
func (c *StateConfiguration[C]) tree() *Tree {
	t := &Tree{}
	if c.state != nil {
		t.State = c.state.id
	}
	for _, child := range c.children {
		t.Children = append(t.Children, child.tree())
	}
	return t
}

// finished reports whether every region of a composite node holds a final
// state.
func (c *StateConfiguration[C]) finished() bool {
	if c.state == nil || len(c.state.regions) == 0 {
		return false
	}
	for _, r := range c.state.regions {
		child := c.childIn(r.id)
		if child == nil || !child.state.IsFinal() {
			return false
		}
	}
	return true
}
