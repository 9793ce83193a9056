package umlsm

import (
	"fmt"
	"sort"
)

// candidate is a transition found enabled for the current event together
// with everything needed to fire it.
type candidate[C any] struct {
	transition *Transition[C]
	// chain is the transition followed by the junction branches chosen when
	// it was selected
	chain []*Transition[C]
	// joined lists every incoming transition of a join target, in
	// declaration order of their sources; nil when the chain ends elsewhere
	joined []*Transition[C]
	// exits are the configuration subtrees the first segment leaves
	exits []*StateConfiguration[C]
	// plan holds the branch chosen for every junction the compound
	// transition crosses, decided before anything fires
	plan map[*Vertex[C]]*Transition[C]
	// sources must still be active when the candidate fires
	sources []*StateConfiguration[C]
	depth   int
	order   int
}

// selectTransitions returns the non-conflicting transitions enabled by ev in
// firing order. Each leaf contributes the innermost enabled transition on its
// path to the root; deeper transitions win conflicts and the survivors fire
// in region order.
func (e *Executor[C]) selectTransitions(ev Event) []*candidate[C] {
	if !e.rt.mayConsume(ev) {
		return nil
	}
	var found []*candidate[C]
	seen := make(map[*Transition[C]]bool)
	// states shared by several leaves are evaluated once
	checked := make(map[*Vertex[C]]*candidate[C])
	for _, leaf := range e.rt.root.Leaves() {
		for node := leaf; node != nil && node.state != nil; node = node.parent {
			c, done := checked[node.state]
			if !done {
				c = e.enabled(node.state, ev)
				checked[node.state] = c
			}
			if c == nil {
				continue
			}
			if !seen[c.transition] {
				seen[c.transition] = true
				c.order = len(found)
				found = append(found, c)
			}
			break
		}
	}
	return resolveConflicts(found)
}

// selectCompletion returns the completion transition of v to fire, if any
func (e *Executor[C]) selectCompletion(v *Vertex[C]) *candidate[C] {
	return e.enabled(v, nil)
}

// enabled returns the first transition of v, in declaration order, that is
// triggered by ev (or is a completion transition when ev is nil), whose guard
// holds and whose static part can be traversed.
func (e *Executor[C]) enabled(v *Vertex[C], ev Event) *candidate[C] {
	for _, t := range v.outgoing {
		if ev == nil {
			if !t.IsCompletion() {
				continue
			}
		} else if !t.accepts(ev) {
			continue
		}
		if !e.evaluate(t, ev) {
			continue
		}
		plan := make(map[*Vertex[C]]*Transition[C])
		chain, ok := e.resolve(t, ev, plan)
		if !ok {
			continue
		}
		c := &candidate[C]{
			transition: t,
			chain:      chain,
			plan:       plan,
			depth:      e.machine.depth(v),
		}
		last := chain[len(chain)-1]
		if last.target.IsPseudo() && last.target.pseudo == Join {
			joined, ok := e.joinReady(last, last.target, ev)
			if !ok {
				continue
			}
			c.joined = joined
			if len(last.target.outgoing) > 0 && !e.passable(last.target.outgoing[0], ev, plan, nil) {
				continue
			}
		} else if t.kind != Internal && !e.reachable(t.source, last.target, ev, plan, nil) {
			continue
		}
		e.scopeCandidate(c)
		return c
	}
	return nil
}

// resolve follows junctions from t, choosing branches now. It fails when a
// junction has no enabled branch. Choices already made in plan are reused
// and new ones are recorded there.
func (e *Executor[C]) resolve(t *Transition[C], ev Event, plan map[*Vertex[C]]*Transition[C]) ([]*Transition[C], bool) {
	chain := []*Transition[C]{t}
	visited := make(map[*Vertex[C]]bool)
	for v := t.target; v.IsPseudo() && v.pseudo == Junction; {
		if visited[v] {
			return nil, false
		}
		visited[v] = true
		next := e.junction(v, ev, plan)
		if next == nil {
			return nil, false
		}
		chain = append(chain, next)
		v = next.target
	}
	return chain, true
}

// junction returns the branch of junction v, taken from plan when the
// compound transition already decided it
func (e *Executor[C]) junction(v *Vertex[C], ev Event, plan map[*Vertex[C]]*Transition[C]) *Transition[C] {
	if t, ok := plan[v]; ok {
		return t
	}
	t := e.branch(v, ev)
	if t != nil && plan != nil {
		plan[v] = t
	}
	return t
}

// passable reports whether the static part of a compound transition
// continuing with t can be traversed: every junction it meets, directly or
// through entry points, initial and history default transitions of the
// states it enters, has an enabled branch. Choices are dynamic and end the
// check.
func (e *Executor[C]) passable(t *Transition[C], ev Event, plan map[*Vertex[C]]*Transition[C], visited map[*Vertex[C]]bool) bool {
	chain, ok := e.resolve(t, ev, plan)
	if !ok {
		return false
	}
	return e.reachable(t.source, chain[len(chain)-1].target, ev, plan, visited)
}

// reachable checks the vertices entered on the way from src to tgt and what
// entering tgt sets off
func (e *Executor[C]) reachable(src, tgt *Vertex[C], ev Event, plan map[*Vertex[C]]*Transition[C], visited map[*Vertex[C]]bool) bool {
	if visited == nil {
		visited = make(map[*Vertex[C]]bool)
	}
	if visited[tgt] {
		return true
	}
	visited[tgt] = true

	sc := e.machine.scope(src, tgt, false)
	for i, n := range sc.enter {
		if n.isRegion() || i == len(sc.enter)-1 || e.rt.isActive(n.state) {
			continue
		}
		// ancestors entered on the way get a default entry in the regions the
		// path does not go through
		next := sc.enter[i+1]
		if !next.isRegion() {
			// an entry or exit point, whose own transitions fill the regions
			continue
		}
		through := next.region.id
		for _, r := range n.state.regions {
			if r.id != through && !e.defaultPassable(r, ev, plan, visited) {
				return false
			}
		}
	}

	switch tgt.kind {
	case KindState:
		for _, r := range tgt.regions {
			if !e.defaultPassable(r, ev, plan, visited) {
				return false
			}
		}
		return true
	case KindFinalState:
		return true
	case KindConnectionPointReference:
		if len(tgt.entries) > 0 {
			for _, entry := range tgt.entries {
				if !e.reachable(tgt, entry, ev, plan, visited) {
					return false
				}
			}
			return true
		}
		return len(tgt.outgoing) == 0 || e.passable(tgt.outgoing[0], ev, plan, visited)
	}

	switch tgt.pseudo {
	case Initial, Join, ExitPoint:
		return len(tgt.outgoing) == 0 || e.passable(tgt.outgoing[0], ev, plan, visited)
	case Junction:
		next := e.junction(tgt, ev, plan)
		return next != nil && e.passable(next, ev, plan, visited)
	case EntryPoint, Fork:
		for _, t := range tgt.outgoing {
			if !e.passable(t, ev, plan, visited) {
				return false
			}
		}
		return true
	case ShallowHistory, DeepHistory:
		r := e.machine.ContainerOf(tgt)
		if cached := e.rt.history[r.id]; cached != nil {
			if tgt.pseudo == ShallowHistory {
				for _, sub := range cached.state.regions {
					if !e.defaultPassable(sub, ev, plan, visited) {
						return false
					}
				}
			}
			return true
		}
		if len(tgt.outgoing) > 0 {
			return e.passable(tgt.outgoing[0], ev, plan, visited)
		}
		return e.defaultPassable(r, ev, plan, visited)
	default:
		return true
	}
}

// defaultPassable checks the initial transition of r, if any
func (e *Executor[C]) defaultPassable(r *Region[C], ev Event, plan map[*Vertex[C]]*Transition[C], visited map[*Vertex[C]]bool) bool {
	if r.initial == nil || len(r.initial.outgoing) == 0 {
		return true
	}
	return e.passable(r.initial.outgoing[0], ev, plan, visited)
}

// branch picks the outgoing transition of a choice or junction. Guarded
// branches are tried in declaration order; an unguarded branch is the else.
func (e *Executor[C]) branch(v *Vertex[C], ev Event) *Transition[C] {
	var fallback *Transition[C]
	for _, t := range v.outgoing {
		if t.guard == nil {
			if fallback == nil {
				fallback = t
			}
			continue
		}
		if e.evaluate(t, ev) {
			return t
		}
	}
	return fallback
}

// joinReady checks that every other transition entering join has an active
// source and a satisfied guard.
func (e *Executor[C]) joinReady(arriving *Transition[C], join *Vertex[C], ev Event) ([]*Transition[C], bool) {
	joined := make([]*Transition[C], 0, len(join.incoming))
	for _, in := range join.incoming {
		if in != arriving {
			if !in.source.IsState() || !e.rt.isActive(in.source) {
				return nil, false
			}
			if !e.evaluate(in, ev) {
				return nil, false
			}
		}
		joined = append(joined, in)
	}
	sort.SliceStable(joined, func(i, j int) bool {
		return joined[i].source.seq < joined[j].source.seq
	})
	return joined, true
}

// scopeCandidate fills the exit and source sets used for conflict detection
func (e *Executor[C]) scopeCandidate(c *candidate[C]) {
	if c.transition.source.IsState() {
		if n := e.rt.node(c.transition.source); n != nil {
			c.sources = append(c.sources, n)
		}
	}
	if c.transition.kind == Internal {
		return
	}
	last := c.chain[len(c.chain)-1]
	if c.joined == nil {
		sc := e.machine.scope(c.transition.source, last.target, c.transition.kind == Local)
		c.exits = e.rt.exitRoots(sc)
		return
	}
	for _, in := range c.joined {
		if in != last {
			if n := e.rt.node(in.source); n != nil {
				c.sources = append(c.sources, n)
			}
		}
		sc := e.machine.scope(in.source, last.target, false)
		for _, n := range e.rt.exitRoots(sc) {
			if !containsNode(c.exits, n) {
				c.exits = append(c.exits, n)
			}
		}
	}
}

func resolveConflicts[C any](found []*candidate[C]) []*candidate[C] {
	if len(found) < 2 {
		return found
	}
	byDepth := make([]*candidate[C], len(found))
	copy(byDepth, found)
	sort.SliceStable(byDepth, func(i, j int) bool {
		return byDepth[i].depth > byDepth[j].depth
	})
	var selected []*candidate[C]
	for _, c := range byDepth {
		conflict := false
		for _, s := range selected {
			if c.conflicts(s) {
				conflict = true
				break
			}
		}
		if !conflict {
			selected = append(selected, c)
		}
	}
	sort.SliceStable(selected, func(i, j int) bool {
		return selected[i].order < selected[j].order
	})
	return selected
}

// conflicts reports whether c and other cannot fire in the same step: their
// exited subtrees overlap, or one exits a state the other needs active.
func (c *candidate[C]) conflicts(other *candidate[C]) bool {
	for _, x := range c.exits {
		for _, y := range other.exits {
			if within(x, y) || within(y, x) {
				return true
			}
		}
		for _, s := range other.sources {
			if within(s, x) {
				return true
			}
		}
	}
	for _, y := range other.exits {
		for _, s := range c.sources {
			if within(s, y) {
				return true
			}
		}
	}
	return false
}

// stillEnabled reports whether the sources of c survived the transitions
// fired before it in the same step.
func (c *candidate[C]) stillEnabled(rt *runtime[C]) bool {
	for _, s := range c.sources {
		if rt.active[s.state.id] != s {
			return false
		}
	}
	return true
}

// within reports whether n lies inside the subtree rooted at root
func within[C any](n, root *StateConfiguration[C]) bool {
	for cur := n; cur != nil; cur = cur.parent {
		if cur == root {
			return true
		}
	}
	return false
}

func containsNode[C any](nodes []*StateConfiguration[C], n *StateConfiguration[C]) bool {
	for _, existing := range nodes {
		if existing == n {
			return true
		}
	}
	return false
}

func (c *candidate[C]) String() string {
	return fmt.Sprintf("%s(depth %d)", c.transition, c.depth)
}
