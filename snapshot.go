package umlsm

import (
	"encoding/json"
	"fmt"

	"gopkg.in/yaml.v3"
)

// Tree is the serialized form of a configuration subtree. The root of an
// active configuration has no state; every other node names an active state
// and lists its active children in region order.
type Tree struct {
	State    string  `json:"state,omitempty" yaml:"state,omitempty"`
	Children []*Tree `json:"children,omitempty" yaml:"children,omitempty"`
}

// Snapshot is a logically complete picture of an executor taken between two
// events. Queues are not part of it: completion events are drained at every
// quiescent point and Pause discards deferred events.
type Snapshot[C any] struct {
	StateMachine string           `json:"stateMachine" yaml:"stateMachine"`
	Started      bool             `json:"started" yaml:"started"`
	Terminated   bool             `json:"terminated" yaml:"terminated"`
	Active       Tree             `json:"active" yaml:"active"`
	History      map[string]*Tree `json:"history,omitempty" yaml:"history,omitempty"`
	Context      C                `json:"context" yaml:"context"`
}

// EncodeJSON serializes the snapshot as JSON
func (s *Snapshot[C]) EncodeJSON() ([]byte, error) {
	return json.Marshal(s)
}

// DecodeJSON parses a snapshot produced by EncodeJSON
func DecodeJSON[C any](data []byte) (*Snapshot[C], error) {
	var s Snapshot[C]
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("failed to decode snapshot: %w", err)
	}
	return &s, nil
}

// EncodeYAML serializes the snapshot as YAML
func (s *Snapshot[C]) EncodeYAML() ([]byte, error) {
	return yaml.Marshal(s)
}

// DecodeYAML parses a snapshot produced by EncodeYAML
func DecodeYAML[C any](data []byte) (*Snapshot[C], error) {
	var s Snapshot[C]
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("failed to decode snapshot: %w", err)
	}
	return &s, nil
}

// Clone copies the configuration trees. The context is copied by value.
func (s *Snapshot[C]) Clone() *Snapshot[C] {
	c := *s
	c.Active = *s.Active.clone()
	if s.History != nil {
		c.History = make(map[string]*Tree, len(s.History))
		for id, t := range s.History {
			c.History[id] = t.clone()
		}
	}
	return &c
}

func (t *Tree) clone() *Tree {
	if t == nil {
		return nil
	}
	c := &Tree{State: t.State}
	for _, child := range t.Children {
		c.Children = append(c.Children, child.clone())
	}
	return c
}

func (e *Executor[C]) snapshot() *Snapshot[C] {
	s := &Snapshot[C]{
		StateMachine: e.machine.id,
		Started:      e.rt.started,
		Terminated:   e.rt.terminated,
		Active:       *e.rt.root.tree(),
		Context:      e.context,
	}
	if len(e.rt.history) > 0 {
		s.History = make(map[string]*Tree, len(e.rt.history))
		for id, node := range e.rt.history {
			s.History[id] = node.tree()
		}
	}
	return s
}

// rebuild reconstructs a runtime from a snapshot, resolving every id against
// m. Trees that do not fit the machine are reported as snapshot mismatches.
func rebuild[C any](m *StateMachine[C], snap *Snapshot[C]) (*runtime[C], error) {
	rt := newRuntime[C]()
	rt.started = snap.Started
	rt.terminated = snap.Terminated
	if snap.Active.State != "" {
		return nil, mismatch("active configuration root names state '%s'", snap.Active.State)
	}
	for _, child := range snap.Active.Children {
		if err := graft(m, rt.root, child, rt.active); err != nil {
			return nil, err
		}
	}
	for id, t := range snap.History {
		r, ok := m.regionIndex[id]
		if !ok {
			return nil, mismatch("unknown history region '%s'", id)
		}
		if t == nil {
			continue
		}
		holder := newConfiguration[C]()
		if err := graft(m, holder, t, nil); err != nil {
			return nil, err
		}
		cached := holder.children[0]
		if cached.state.container != r.id {
			return nil, mismatch("history of region '%s' names state '%s' of another region", id, t.State)
		}
		cached.parent = nil
		rt.history[id] = cached
	}
	rt.changed()
	return rt, nil
}

// graft attaches the subtree t under parent. When index is not nil the new
// nodes are registered as active.
func graft[C any](m *StateMachine[C], parent *StateConfiguration[C], t *Tree, index map[string]*StateConfiguration[C]) error {
	if t == nil {
		return mismatch("empty configuration node")
	}
	v, ok := m.vertices[t.State]
	if !ok {
		return mismatch("unknown state '%s'", t.State)
	}
	if !v.IsState() {
		return mismatch("'%s' is not a state", t.State)
	}
	if parent.state != nil && m.ParentState(v) != parent.state {
		return mismatch("state '%s' is not a substate of '%s'", v.id, parent.state.id)
	}
	if parent.state == nil && index != nil && m.ParentState(v) != nil {
		return mismatch("state '%s' is not in a top-level region", v.id)
	}
	if parent.childIn(v.container) != nil {
		return mismatch("region '%s' holds more than one active state", v.container)
	}
	if index != nil {
		if _, dup := index[v.id]; dup {
			return mismatch("state '%s' is active twice", v.id)
		}
	}
	node := parent.addChild(v)
	if index != nil {
		index[v.id] = node
	}
	for _, child := range t.Children {
		if err := graft(m, node, child, index); err != nil {
			return err
		}
	}
	return nil
}

func mismatch(format string, args ...any) *MachineError {
	return NewMachineError(ErrCodeSnapshotMismatch, "resume", fmt.Sprintf(format, args...))
}
