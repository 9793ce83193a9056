package umlsm

import (
	"context"
	"errors"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// errHalt unwinds a step after a terminate pseudostate was entered
var errHalt = errors.New("umlsm: terminated")

// scope tells a transition segment what to leave and what to enter
type scope[C any] struct {
	// exit is the vertex right below the least common ancestor on the source
	// side. It is exited when active.
	exit *Vertex[C]
	// exitRegion is set for local transitions: the active child of this
	// region is exited instead.
	exitRegion *Region[C]
	// enter is the chain below the least common ancestor down to the target
	enter []pathNode[C]
}

// scope computes the exit/enter scope of a segment from src to tgt. The
// common ancestor is the deepest shared element of both containment chains:
// a region, or a state whose different regions hold src and tgt.
func (m *StateMachine[C]) scope(src, tgt *Vertex[C], local bool) scope[C] {
	a := m.path(src)
	if local && m.IsAncestor(src, tgt) {
		a = m.fullPath(src)
	}
	b := m.path(tgt)
	k := 0
	for k < len(a) && k < len(b) && a[k] == b[k] {
		k++
	}
	fs := m.fullPath(src)
	sc := scope[C]{enter: m.fullPath(tgt)[k:]}
	if k > 0 && a[k-1].isRegion() {
		sc.exit = fs[k].state
		return sc
	}
	switch {
	case k < len(fs) && fs[k].isRegion():
		if k+1 < len(fs) {
			sc.exit = fs[k+1].state
		}
	case k < len(fs):
		sc.exit = fs[k].state
	case k < len(b) && b[k].isRegion():
		sc.exitRegion = b[k].region
	}
	return sc
}

// exitRoots resolves a scope against the active configuration
func (rt *runtime[C]) exitRoots(sc scope[C]) []*StateConfiguration[C] {
	if sc.exit != nil {
		if n := rt.node(sc.exit); n != nil {
			return []*StateConfiguration[C]{n}
		}
		return nil
	}
	if sc.exitRegion != nil {
		owner := rt.active[sc.exitRegion.owner]
		if owner == nil {
			return nil
		}
		if child := owner.childIn(sc.exitRegion.id); child != nil {
			return []*StateConfiguration[C]{child}
		}
	}
	return nil
}

// step executes one run-to-completion microstep: a fired transition with
// everything it chains to, or the default entry performed by Go.
type step[C any] struct {
	e     *Executor[C]
	rt    *runtime[C]
	m     *StateMachine[C]
	ctx   context.Context
	event Event
	// plan holds the junction branches chosen when the transition was
	// selected
	plan map[*Vertex[C]]*Transition[C]
	// pending holds composite states entered on the way to a deeper target.
	// Their regions left without an explicit target get a default entry once
	// the whole compound transition ran.
	pending []*StateConfiguration[C]
}

func (e *Executor[C]) newStep(ctx context.Context, ev Event) *step[C] {
	return &step[C]{
		e:     e,
		rt:    e.rt,
		m:     e.machine,
		ctx:   ctx,
		event: ev,
	}
}

// fire runs a selected candidate to completion
func (s *step[C]) fire(c *candidate[C]) error {
	s.plan = c.plan
	var err error
	if c.joined != nil {
		err = s.join(c)
	} else {
		err = s.segment(c.chain)
	}
	if err != nil {
		return err
	}
	return s.flush()
}

// flush performs the default entries postponed while entering ancestors
func (s *step[C]) flush() error {
	for i := 0; i < len(s.pending); i++ {
		node := s.pending[i]
		if s.rt.active[node.state.id] != node {
			continue
		}
		if err := s.defaultEnter(node); err != nil {
			return err
		}
	}
	s.pending = s.pending[:0]
	return nil
}

// segment fires a chain of transitions joined by junctions: exits up to the
// common ancestor, effects in order, then entries down to the last target.
func (s *step[C]) segment(chain []*Transition[C]) error {
	first := chain[0]
	last := chain[len(chain)-1]
	if first.kind == Internal {
		return s.effects(chain)
	}
	if last.target.IsPseudo() && last.target.pseudo == Terminate {
		// the configuration is frozen as is, nothing is exited
		if err := s.effects(chain); err != nil {
			return err
		}
		return s.terminate()
	}
	sc := s.m.scope(first.source, last.target, first.kind == Local)
	for _, n := range s.rt.exitRoots(sc) {
		if err := s.exit(n); err != nil {
			return err
		}
	}
	if err := s.effects(chain); err != nil {
		return err
	}
	return s.enter(sc, last.target.IsHistory())
}

// follow resolves junctions from t now and fires the resulting segment
func (s *step[C]) follow(t *Transition[C]) error {
	chain, ok := s.e.resolve(t, s.event, s.plan)
	if !ok {
		return NewTransitionError(t.source.id, t.target.id, eventName(s.event), "junction has no enabled branch")
	}
	return s.segment(chain)
}

// join fires every transition entering a join, then its outgoing transition
func (s *step[C]) join(c *candidate[C]) error {
	last := c.chain[len(c.chain)-1]
	join := last.target
	for _, in := range c.joined {
		sc := s.m.scope(in.source, join, false)
		for _, n := range s.rt.exitRoots(sc) {
			if err := s.exit(n); err != nil {
				return err
			}
		}
	}
	for _, in := range c.joined {
		chain := []*Transition[C]{in}
		if in == last {
			chain = c.chain
		}
		if err := s.effects(chain); err != nil {
			return err
		}
	}
	if len(join.outgoing) == 0 {
		return nil
	}
	return s.follow(join.outgoing[0])
}

func (s *step[C]) effects(chain []*Transition[C]) error {
	for _, t := range chain {
		for _, b := range t.effects {
			if err := s.e.run(b, "effect", t.String(), s.event); err != nil {
				return err
			}
		}
		s.e.observers.NotifyTransition(s.e.origin(), t.Info(), s.event)
		trace.SpanFromContext(s.ctx).AddEvent("transition", trace.WithAttributes(
			attribute.String("umlsm.transition", t.String()),
			attribute.String("umlsm.source", t.source.id),
			attribute.String("umlsm.target", t.target.id),
		))
	}
	return nil
}

// exit leaves the subtree rooted at node, children first
func (s *step[C]) exit(node *StateConfiguration[C]) error {
	v := node.state
	s.rt.recordHistory(node)
	for _, child := range node.Children() {
		if err := s.exit(child); err != nil {
			return err
		}
	}
	s.e.stopActivity(v)
	for _, b := range v.exit {
		if err := s.e.run(b, "exit", v.id, s.event); err != nil {
			return err
		}
	}
	s.rt.detach(node)
	s.e.observers.NotifyStateExit(s.e.origin(), v.id)
	return nil
}

// enter walks the scope chain, entering ancestors and arriving at the target
func (s *step[C]) enter(sc scope[C], viaHistory bool) error {
	last := len(sc.enter) - 1
	for i, n := range sc.enter {
		if n.isRegion() {
			continue
		}
		v := n.state
		if i == last {
			return s.arrive(v)
		}
		if s.rt.isActive(v) {
			continue
		}
		if !v.IsState() {
			return NewInvalidStateError(v.id, "pseudostate cannot contain the target of a transition")
		}
		node, err := s.activate(v, viaHistory)
		if err != nil {
			return err
		}
		s.pending = append(s.pending, node)
	}
	return nil
}

// activate enters v: any other state active in its region is exited first,
// then v is attached and its entry behaviors and do-activity run.
func (s *step[C]) activate(v *Vertex[C], keepHistory bool) (*StateConfiguration[C], error) {
	parent := s.rt.root
	if owner := s.m.ParentState(v); owner != nil {
		parent = s.rt.node(owner)
		if parent == nil {
			return nil, NewInvalidStateError(v.id, fmt.Sprintf("parent state '%s' is not active", owner.id))
		}
	}
	if occupant := parent.childIn(v.container); occupant != nil {
		if err := s.exit(occupant); err != nil {
			return nil, err
		}
	}
	node := s.rt.attach(parent, v)
	if !keepHistory {
		s.rt.clearHistory(v)
	}
	for _, b := range v.entry {
		if err := s.e.run(b, "entry", v.id, s.event); err != nil {
			return nil, err
		}
	}
	s.e.observers.NotifyStateEnter(s.e.origin(), v.id)
	s.e.startActivity(v)
	s.completed(node)
	return node, nil
}

// completed queues the completion events caused by entering node
func (s *step[C]) completed(node *StateConfiguration[C]) {
	v := node.state
	switch {
	case v.IsFinal():
		parent := node.parent
		if parent == nil || !parent.finished() {
			return
		}
		if _, running := s.rt.activities[parent.state.id]; running {
			return
		}
		s.rt.enqueueCompletion(parent.state)
	case v.IsSimple() && v.doActivity == nil:
		s.rt.enqueueCompletion(v)
	}
}

// arrive handles the target of a segment according to its kind
func (s *step[C]) arrive(v *Vertex[C]) error {
	switch v.kind {
	case KindState:
		node, err := s.activate(v, false)
		if err != nil {
			return err
		}
		return s.defaultEnter(node)
	case KindFinalState:
		_, err := s.activate(v, false)
		return err
	case KindConnectionPointReference:
		return s.reference(v)
	default:
		return s.pass(v)
	}
}

// defaultEnter enters every empty region of node through its initial
// pseudostate.
func (s *step[C]) defaultEnter(node *StateConfiguration[C]) error {
	for _, r := range node.state.regions {
		if node.childIn(r.id) != nil {
			continue
		}
		if err := s.defaultEnterRegion(r); err != nil {
			return err
		}
	}
	return nil
}

// defaultEnterRegion fires the initial transition of r. A region without
// initial pseudostate stays empty.
func (s *step[C]) defaultEnterRegion(r *Region[C]) error {
	if r.initial == nil || len(r.initial.outgoing) == 0 {
		return nil
	}
	return s.follow(r.initial.outgoing[0])
}

// pass traverses a pseudostate
func (s *step[C]) pass(v *Vertex[C]) error {
	switch v.pseudo {
	case Initial, Join:
		if len(v.outgoing) == 0 {
			return nil
		}
		return s.follow(v.outgoing[0])
	case Choice:
		t := s.e.branch(v, s.event)
		if t == nil {
			return NewTransitionError(v.id, "", eventName(s.event), "choice has no enabled branch")
		}
		return s.follow(t)
	case Junction:
		t := s.e.junction(v, s.event, s.plan)
		if t == nil {
			return NewTransitionError(v.id, "", eventName(s.event), "junction has no enabled branch")
		}
		return s.follow(t)
	case Fork:
		for _, t := range v.outgoing {
			if err := s.segment([]*Transition[C]{t}); err != nil {
				return err
			}
		}
		return nil
	case ShallowHistory, DeepHistory:
		return s.restore(v)
	case EntryPoint:
		for _, t := range v.outgoing {
			if err := s.follow(t); err != nil {
				return err
			}
		}
		return nil
	case ExitPoint:
		if len(v.outgoing) > 0 {
			return s.follow(v.outgoing[0])
		}
		owner := s.m.vertices[v.owner]
		if owner != nil {
			for _, ref := range owner.connections {
				for _, exit := range ref.exits {
					if exit == v && len(ref.outgoing) > 0 {
						return s.follow(ref.outgoing[0])
					}
				}
			}
		}
		return NewTransitionError(v.id, "", eventName(s.event), "exit point has no continuation")
	case Terminate:
		return s.terminate()
	default:
		return NewInvalidStateError(v.id, "unknown pseudostate kind")
	}
}

// reference traverses a connection point reference of a submachine state
func (s *step[C]) reference(ref *Vertex[C]) error {
	if len(ref.entries) > 0 {
		for _, entry := range ref.entries {
			if err := s.pass(entry); err != nil {
				return err
			}
		}
		return nil
	}
	if len(ref.outgoing) > 0 {
		return s.follow(ref.outgoing[0])
	}
	return nil
}

// restore substitutes the cached configuration of the history's region, or
// falls back to the default transition, then to the region's default entry.
func (s *step[C]) restore(h *Vertex[C]) error {
	r := s.m.ContainerOf(h)
	cached := s.rt.history[r.id]
	if cached != nil {
		if h.pseudo == DeepHistory {
			return s.restoreTree(cached)
		}
		node, err := s.activate(cached.state, true)
		if err != nil {
			return err
		}
		return s.defaultEnter(node)
	}
	if len(h.outgoing) > 0 {
		return s.follow(h.outgoing[0])
	}
	return s.defaultEnterRegion(r)
}

func (s *step[C]) restoreTree(cached *StateConfiguration[C]) error {
	node, err := s.activate(cached.state, true)
	if err != nil {
		return err
	}
	for _, child := range cached.children {
		if err := s.restoreTree(child); err != nil {
			return err
		}
	}
	return s.defaultEnter(node)
}

// terminate freezes the executor without running exit behaviors
func (s *step[C]) terminate() error {
	s.rt.terminated = true
	s.e.stopActivities()
	s.e.observers.NotifyMachineTerminated(s.e.origin())
	return errHalt
}
