package umlsm

import (
	"errors"
	"fmt"
)

// Builder assembles a StateMachine. Vertices are identified by their names;
// transition targets are names resolved when Build runs, so a transition may
// point at a vertex declared later. Unnamed vertices and regions get
// generated ids.
//
//	b := umlsm.NewBuilder[*Counter]("turnstile")
//	top := b.Region("main")
//	top.Initial().To("locked")
//	top.State("locked").To("unlocked").On("coin")
//	top.State("unlocked").To("locked").On("push")
//	m, err := b.Build()
type Builder[C any] struct {
	id          string
	name        string
	regions     []*Region[C]
	points      []*Vertex[C]
	transitions []*TransitionBuilder[C]
	submachines []submachine[C]
	references  []*ConnectionBuilder[C]
	errs        []error
	seq         int
	built       bool
}

type submachine[C any] struct {
	state   *Vertex[C]
	machine *StateMachine[C]
}

// NewBuilder starts a machine definition. id is recorded in snapshots and
// checked by Resume.
func NewBuilder[C any](id string) *Builder[C] {
	return &Builder[C]{id: id, name: id}
}

// Name sets a display name distinct from the id
func (b *Builder[C]) Name(name string) *Builder[C] {
	b.name = name
	return b
}

// Region adds a top-level region
func (b *Builder[C]) Region(name string) *RegionBuilder[C] {
	r := &Region[C]{
		id:    b.regionID(name, "", len(b.regions)),
		name:  name,
		index: len(b.regions),
	}
	b.regions = append(b.regions, r)
	return &RegionBuilder[C]{b: b, region: r}
}

// EntryPoint declares an entry point of the machine, used when the machine
// is instantiated as a submachine.
func (b *Builder[C]) EntryPoint(name string) *PseudoStateBuilder[C] {
	v := b.pseudo(name, EntryPoint, "")
	b.points = append(b.points, v)
	return &PseudoStateBuilder[C]{b: b, vertex: v}
}

// ExitPoint declares an exit point of the machine
func (b *Builder[C]) ExitPoint(name string) *PseudoStateBuilder[C] {
	v := b.pseudo(name, ExitPoint, "")
	b.points = append(b.points, v)
	return &PseudoStateBuilder[C]{b: b, vertex: v}
}

func (b *Builder[C]) nextID(prefix string) string {
	b.seq++
	return fmt.Sprintf("%s#%d", prefix, b.seq)
}

func (b *Builder[C]) vertexID(name, prefix string) string {
	if name != "" {
		return name
	}
	return b.nextID(prefix)
}

func (b *Builder[C]) regionID(name, owner string, index int) string {
	switch {
	case name != "":
		return name
	case owner != "":
		return fmt.Sprintf("%s#%d", owner, index)
	default:
		return fmt.Sprintf("region#%d", index)
	}
}

func (b *Builder[C]) pseudo(name string, kind PseudoStateKind, container string) *Vertex[C] {
	return &Vertex[C]{
		id:        b.vertexID(name, kind.String()),
		name:      name,
		kind:      KindPseudoState,
		pseudo:    kind,
		container: container,
	}
}

func (b *Builder[C]) fail(component, format string, args ...any) {
	b.errs = append(b.errs, NewConfigurationError(component, fmt.Sprintf(format, args...)))
}

func (b *Builder[C]) transition(source *Vertex[C], target string) *TransitionBuilder[C] {
	t := &TransitionBuilder[C]{b: b, source: source, target: target}
	b.transitions = append(b.transitions, t)
	return t
}

// RegionBuilder declares the vertices of one region
type RegionBuilder[C any] struct {
	b      *Builder[C]
	region *Region[C]
}

// ID returns the region id
func (rb *RegionBuilder[C]) ID() string {
	return rb.region.id
}

func (rb *RegionBuilder[C]) add(v *Vertex[C]) *Vertex[C] {
	v.container = rb.region.id
	v.slot = rb.region.index
	rb.region.subvertices = append(rb.region.subvertices, v)
	return v
}

// State adds a simple state. It becomes composite once regions are added.
func (rb *RegionBuilder[C]) State(name string) *StateBuilder[C] {
	v := rb.add(&Vertex[C]{
		id:   rb.b.vertexID(name, "state"),
		name: name,
		kind: KindState,
	})
	return &StateBuilder[C]{b: rb.b, vertex: v}
}

// Final adds a final state
func (rb *RegionBuilder[C]) Final(name string) *StateBuilder[C] {
	v := rb.add(&Vertex[C]{
		id:   rb.b.vertexID(name, "final"),
		name: name,
		kind: KindFinalState,
	})
	return &StateBuilder[C]{b: rb.b, vertex: v}
}

// Submachine adds a state instantiating sub. The regions and connection
// points of sub are copied under the state with ids prefixed by "<name>/".
func (rb *RegionBuilder[C]) Submachine(name string, sub *StateMachine[C]) *StateBuilder[C] {
	sb := rb.State(name)
	if sub == nil {
		rb.b.fail(sb.vertex.id, "submachine is nil")
		return sb
	}
	sb.vertex.submachine = sub.id
	rb.b.submachines = append(rb.b.submachines, submachine[C]{state: sb.vertex, machine: sub})
	return sb
}

// Initial adds the initial pseudostate of the region
func (rb *RegionBuilder[C]) Initial() *PseudoStateBuilder[C] {
	if rb.region.initial != nil {
		rb.b.fail(rb.region.id, "region has more than one initial pseudostate")
	}
	v := rb.add(rb.b.pseudo("", Initial, ""))
	rb.region.initial = v
	return &PseudoStateBuilder[C]{b: rb.b, vertex: v}
}

// Choice adds a choice pseudostate; its guards are evaluated when reached
func (rb *RegionBuilder[C]) Choice(name string) *PseudoStateBuilder[C] {
	return rb.pseudo(name, Choice)
}

// Junction adds a junction pseudostate; its guards are evaluated when the
// incoming transition is selected.
func (rb *RegionBuilder[C]) Junction(name string) *PseudoStateBuilder[C] {
	return rb.pseudo(name, Junction)
}

// Fork adds a fork pseudostate
func (rb *RegionBuilder[C]) Fork(name string) *PseudoStateBuilder[C] {
	return rb.pseudo(name, Fork)
}

// Join adds a join pseudostate
func (rb *RegionBuilder[C]) Join(name string) *PseudoStateBuilder[C] {
	return rb.pseudo(name, Join)
}

// ShallowHistory adds the shallow history pseudostate of the region
func (rb *RegionBuilder[C]) ShallowHistory(name string) *PseudoStateBuilder[C] {
	if rb.region.shallow != nil {
		rb.b.fail(rb.region.id, "region has more than one shallow history")
	}
	pb := rb.pseudo(name, ShallowHistory)
	rb.region.shallow = pb.vertex
	return pb
}

// DeepHistory adds the deep history pseudostate of the region
func (rb *RegionBuilder[C]) DeepHistory(name string) *PseudoStateBuilder[C] {
	if rb.region.deep != nil {
		rb.b.fail(rb.region.id, "region has more than one deep history")
	}
	pb := rb.pseudo(name, DeepHistory)
	rb.region.deep = pb.vertex
	return pb
}

// Terminate adds a terminate pseudostate
func (rb *RegionBuilder[C]) Terminate(name string) *PseudoStateBuilder[C] {
	return rb.pseudo(name, Terminate)
}

func (rb *RegionBuilder[C]) pseudo(name string, kind PseudoStateKind) *PseudoStateBuilder[C] {
	v := rb.add(rb.b.pseudo(name, kind, ""))
	return &PseudoStateBuilder[C]{b: rb.b, vertex: v}
}

// StateBuilder configures a state
type StateBuilder[C any] struct {
	b      *Builder[C]
	vertex *Vertex[C]
}

// ID returns the state id
func (sb *StateBuilder[C]) ID() string {
	return sb.vertex.id
}

// Entry appends entry behaviors
func (sb *StateBuilder[C]) Entry(behaviors ...Behavior[C]) *StateBuilder[C] {
	sb.vertex.entry = append(sb.vertex.entry, behaviors...)
	return sb
}

// Exit appends exit behaviors
func (sb *StateBuilder[C]) Exit(behaviors ...Behavior[C]) *StateBuilder[C] {
	sb.vertex.exit = append(sb.vertex.exit, behaviors...)
	return sb
}

// Do sets the do-activity
func (sb *StateBuilder[C]) Do(activity Activity[C]) *StateBuilder[C] {
	sb.vertex.doActivity = activity
	return sb
}

// Defer marks events with the given names as deferrable
func (sb *StateBuilder[C]) Defer(names ...string) *StateBuilder[C] {
	for _, name := range names {
		sb.vertex.deferrable = append(sb.vertex.deferrable, On(name))
	}
	return sb
}

// DeferOn marks events matching the triggers as deferrable
func (sb *StateBuilder[C]) DeferOn(triggers ...Trigger) *StateBuilder[C] {
	sb.vertex.deferrable = append(sb.vertex.deferrable, triggers...)
	return sb
}

// Region adds a region to the state
func (sb *StateBuilder[C]) Region(name string) *RegionBuilder[C] {
	v := sb.vertex
	r := &Region[C]{
		id:    sb.b.regionID(name, v.id, len(v.regions)),
		name:  name,
		owner: v.id,
		index: len(v.regions),
	}
	v.regions = append(v.regions, r)
	return &RegionBuilder[C]{b: sb.b, region: r}
}

// EntryPoint adds an entry point to a composite state
func (sb *StateBuilder[C]) EntryPoint(name string) *PseudoStateBuilder[C] {
	return sb.point(name, EntryPoint)
}

// ExitPoint adds an exit point to a composite state
func (sb *StateBuilder[C]) ExitPoint(name string) *PseudoStateBuilder[C] {
	return sb.point(name, ExitPoint)
}

func (sb *StateBuilder[C]) point(name string, kind PseudoStateKind) *PseudoStateBuilder[C] {
	v := sb.b.pseudo(name, kind, "")
	v.owner = sb.vertex.id
	sb.vertex.connectionPoints = append(sb.vertex.connectionPoints, v)
	return &PseudoStateBuilder[C]{b: sb.b, vertex: v}
}

// Connection adds a connection point reference to a submachine state
func (sb *StateBuilder[C]) Connection(name string) *ConnectionBuilder[C] {
	v := &Vertex[C]{
		id:    sb.b.vertexID(name, "connection"),
		name:  name,
		kind:  KindConnectionPointReference,
		owner: sb.vertex.id,
	}
	sb.vertex.connections = append(sb.vertex.connections, v)
	cb := &ConnectionBuilder[C]{b: sb.b, vertex: v}
	sb.b.references = append(sb.b.references, cb)
	return cb
}

// To adds an external transition to the vertex named target
func (sb *StateBuilder[C]) To(target string) *TransitionBuilder[C] {
	return sb.b.transition(sb.vertex, target)
}

// Internal adds an internal transition: effects run without leaving the state
func (sb *StateBuilder[C]) Internal() *TransitionBuilder[C] {
	t := sb.b.transition(sb.vertex, sb.vertex.id)
	t.kind = Internal
	return t
}

// PseudoStateBuilder configures the outgoing transitions of a pseudostate
type PseudoStateBuilder[C any] struct {
	b      *Builder[C]
	vertex *Vertex[C]
}

// ID returns the pseudostate id
func (pb *PseudoStateBuilder[C]) ID() string {
	return pb.vertex.id
}

// To adds an outgoing transition
func (pb *PseudoStateBuilder[C]) To(target string) *TransitionBuilder[C] {
	return pb.b.transition(pb.vertex, target)
}

// ConnectionBuilder maps a connection point reference to the entry or exit
// points of the submachine.
type ConnectionBuilder[C any] struct {
	b      *Builder[C]
	vertex *Vertex[C]
	entry  []string
	exit   []string
}

// ID returns the connection point reference id
func (cb *ConnectionBuilder[C]) ID() string {
	return cb.vertex.id
}

// Entry names the entry points the reference stands for
func (cb *ConnectionBuilder[C]) Entry(points ...string) *ConnectionBuilder[C] {
	cb.entry = append(cb.entry, points...)
	return cb
}

// Exit names the exit points the reference stands for
func (cb *ConnectionBuilder[C]) Exit(points ...string) *ConnectionBuilder[C] {
	cb.exit = append(cb.exit, points...)
	return cb
}

// To adds the transition leaving the submachine through this reference
func (cb *ConnectionBuilder[C]) To(target string) *TransitionBuilder[C] {
	return cb.b.transition(cb.vertex, target)
}

// TransitionBuilder configures one transition
type TransitionBuilder[C any] struct {
	b        *Builder[C]
	source   *Vertex[C]
	target   string
	name     string
	kind     TransitionKind
	triggers []Trigger
	guard    Guard[C]
	effects  []Behavior[C]
}

// Name names the transition. Names double as transition ids.
func (tb *TransitionBuilder[C]) Name(name string) *TransitionBuilder[C] {
	tb.name = name
	return tb
}

// On adds triggers matching events by name
func (tb *TransitionBuilder[C]) On(names ...string) *TransitionBuilder[C] {
	for _, name := range names {
		tb.triggers = append(tb.triggers, On(name))
	}
	return tb
}

// OnEvent adds arbitrary triggers
func (tb *TransitionBuilder[C]) OnEvent(triggers ...Trigger) *TransitionBuilder[C] {
	tb.triggers = append(tb.triggers, triggers...)
	return tb
}

// When sets the guard
func (tb *TransitionBuilder[C]) When(guard Guard[C]) *TransitionBuilder[C] {
	tb.guard = guard
	return tb
}

// Effect appends effect behaviors
func (tb *TransitionBuilder[C]) Effect(behaviors ...Behavior[C]) *TransitionBuilder[C] {
	tb.effects = append(tb.effects, behaviors...)
	return tb
}

// Local makes the transition local: a composite source is not exited when
// the target is one of its substates.
func (tb *TransitionBuilder[C]) Local() *TransitionBuilder[C] {
	if tb.kind != Internal {
		tb.kind = Local
	}
	return tb
}

// To starts another transition from the same source
func (tb *TransitionBuilder[C]) To(target string) *TransitionBuilder[C] {
	return tb.b.transition(tb.source, target)
}

// Build freezes the definition. Structural problems are reported together
// as joined *ConfigurationError values.
func (b *Builder[C]) Build() (*StateMachine[C], error) {
	if b.built {
		return nil, NewConfigurationError(b.id, "builder already used")
	}
	b.built = true
	m := &StateMachine[C]{
		id:               b.id,
		name:             b.name,
		regions:          b.regions,
		connectionPoints: b.points,
	}
	errs := append([]error(nil), b.errs...)
	for _, s := range b.submachines {
		expand(s.state, s.machine)
	}
	errs = append(errs, b.checkIDs()...)
	m.index()
	errs = append(errs, b.resolveReferences(m)...)
	errs = append(errs, b.resolveTransitions(m)...)
	m.index()
	errs = append(errs, validate(m)...)
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return m, nil
}

// checkIDs reports vertex and region ids used more than once
func (b *Builder[C]) checkIDs() []error {
	var errs []error
	vertices := make(map[string]bool)
	regions := make(map[string]bool)
	vertex := func(v *Vertex[C]) {
		if vertices[v.id] {
			errs = append(errs, NewConfigurationError(v.id, "duplicate vertex id"))
		}
		vertices[v.id] = true
	}
	var walk func(r *Region[C])
	walk = func(r *Region[C]) {
		if regions[r.id] {
			errs = append(errs, NewConfigurationError(r.id, "duplicate region id"))
		}
		regions[r.id] = true
		for _, v := range r.subvertices {
			vertex(v)
			for _, cp := range v.connectionPoints {
				vertex(cp)
			}
			for _, ref := range v.connections {
				vertex(ref)
			}
			for _, sub := range v.regions {
				walk(sub)
			}
		}
	}
	for _, cp := range b.points {
		vertex(cp)
	}
	for _, r := range b.regions {
		walk(r)
	}
	return errs
}

// resolveReferences maps connection point references to the connection
// points of their submachine state.
func (b *Builder[C]) resolveReferences(m *StateMachine[C]) []error {
	var errs []error
	resolve := func(cb *ConnectionBuilder[C], name string, kind PseudoStateKind) *Vertex[C] {
		owner := m.vertices[cb.vertex.owner]
		for _, cp := range owner.connectionPoints {
			if cp.pseudo == kind && (cp.name == name || cp.id == name || cp.id == owner.id+"/"+name) {
				return cp
			}
		}
		errs = append(errs, NewConfigurationError(cb.vertex.id, fmt.Sprintf("%s '%s' not found on '%s'", kind, name, owner.id)))
		return nil
	}
	for _, cb := range b.references {
		if len(cb.entry) > 0 && len(cb.exit) > 0 {
			errs = append(errs, NewConfigurationError(cb.vertex.id, "connection point reference mixes entry and exit points"))
			continue
		}
		for _, name := range cb.entry {
			if cp := resolve(cb, name, EntryPoint); cp != nil {
				cb.vertex.entries = append(cb.vertex.entries, cp)
			}
		}
		for _, name := range cb.exit {
			if cp := resolve(cb, name, ExitPoint); cp != nil {
				cb.vertex.exits = append(cb.vertex.exits, cp)
			}
		}
	}
	return errs
}

// resolveTransitions links the declared transitions to their vertices. The
// container of a transition is the least common ancestor region of its
// ends, or the region of its source.
func (b *Builder[C]) resolveTransitions(m *StateMachine[C]) []error {
	var errs []error
	used := make(map[string]bool)
	for _, t := range m.transitions {
		used[t.id] = true
	}
	for _, tb := range b.transitions {
		target, ok := m.vertices[tb.target]
		if !ok {
			errs = append(errs, NewConfigurationError(tb.source.id, fmt.Sprintf("unknown transition target '%s'", tb.target)))
			continue
		}
		id := tb.name
		if id == "" || used[id] {
			if tb.name != "" {
				errs = append(errs, NewConfigurationError(tb.name, "duplicate transition name"))
			}
			id = b.nextID(tb.source.id + "->" + target.id)
		}
		used[id] = true
		t := &Transition[C]{
			id:       id,
			name:     tb.name,
			source:   tb.source,
			target:   target,
			kind:     tb.kind,
			triggers: tb.triggers,
			guard:    tb.guard,
			effects:  tb.effects,
		}
		container := m.LCA(t.source, t.target)
		if container == nil {
			container = m.ContainerOf(t.source)
		}
		if container != nil {
			t.container = container.id
			container.transitions = append(container.transitions, t)
		}
		t.source.outgoing = append(t.source.outgoing, t)
		t.target.incoming = append(t.target.incoming, t)
	}
	return errs
}

// validate checks the structural rules the engine relies on
func validate[C any](m *StateMachine[C]) []error {
	var errs []error
	fail := func(component, issue string) {
		errs = append(errs, NewConfigurationError(component, issue))
	}
	for _, v := range m.order {
		switch v.kind {
		case KindFinalState:
			if len(v.outgoing) > 0 {
				fail(v.id, "final state has outgoing transitions")
			}
			if len(v.regions) > 0 {
				fail(v.id, "final state has regions")
			}
		case KindState:
			if len(v.connectionPoints) > 0 && len(v.regions) == 0 {
				fail(v.id, "entry and exit points require a composite state")
			}
			if len(v.connections) > 0 && v.submachine == "" {
				fail(v.id, "connection point references require a submachine state")
			}
		case KindConnectionPointReference:
			if len(v.entries) == 0 && len(v.exits) == 0 {
				fail(v.id, "connection point reference maps no entry or exit point")
			}
		case KindPseudoState:
			errs = append(errs, validatePseudo(v)...)
		}
	}
	for _, v := range m.order {
		for _, t := range v.outgoing {
			errs = append(errs, validateTransition(m, t)...)
		}
	}
	return errs
}

func validateTransition[C any](m *StateMachine[C], t *Transition[C]) []error {
	var errs []error
	fail := func(component, issue string) {
		errs = append(errs, NewConfigurationError(component, issue))
	}
	switch {
	case t.target.IsPseudo() && t.target.pseudo == Initial:
		fail(t.String(), "initial pseudostate cannot be a transition target")
	case t.kind == Internal && !t.source.IsState():
		fail(t.String(), "internal transition source must be a state")
	case t.kind == Local && !m.IsAncestor(t.source, t.target):
		fail(t.String(), "local transition target must be inside its source")
	}
	return errs
}

func validatePseudo[C any](v *Vertex[C]) []error {
	var errs []error
	fail := func(issue string) {
		errs = append(errs, NewConfigurationError(v.String(), issue))
	}
	switch v.pseudo {
	case Initial:
		if len(v.outgoing) != 1 {
			fail("initial pseudostate must have exactly one outgoing transition")
			break
		}
		if t := v.outgoing[0]; len(t.triggers) > 0 || t.guard != nil {
			fail("initial transition cannot have triggers or a guard")
		}
	case ShallowHistory, DeepHistory:
		if len(v.outgoing) > 1 {
			fail("history pseudostate has more than one default transition")
		}
	case Choice, Junction:
		if len(v.outgoing) == 0 {
			fail(v.pseudo.String() + " has no outgoing transition")
		}
	case Fork:
		if len(v.outgoing) == 0 {
			fail("fork has no outgoing transition")
		}
		for _, t := range v.outgoing {
			if len(t.triggers) > 0 || t.guard != nil {
				fail("fork branches cannot have triggers or guards")
			}
			if !t.target.IsState() {
				fail("fork branch target '" + t.target.id + "' is not a state")
			}
		}
	case Join:
		if len(v.outgoing) != 1 {
			fail("join must have exactly one outgoing transition")
		}
		regions := make(map[string]bool)
		for _, t := range v.incoming {
			if len(t.triggers) > 0 {
				fail("transitions entering a join cannot have triggers")
			}
			if !t.source.IsState() {
				fail("join source '" + t.source.id + "' is not a state")
				continue
			}
			if regions[t.source.container] {
				fail("join has two incoming transitions from region '" + t.source.container + "'")
			}
			regions[t.source.container] = true
		}
	case EntryPoint, ExitPoint:
		if v.pseudo == EntryPoint && len(v.outgoing) == 0 {
			fail("entry point has no outgoing transition")
		}
	case Terminate:
		if len(v.outgoing) > 0 {
			fail("terminate pseudostate has outgoing transitions")
		}
	}
	return errs
}

// expand copies the regions, connection points and transitions of sub under
// state. Copied ids are prefixed with the state id so every instance keeps
// its own configuration and history.
func expand[C any](state *Vertex[C], sub *StateMachine[C]) {
	prefix := state.id + "/"
	vertices := make(map[*Vertex[C]]*Vertex[C])
	regions := make(map[string]*Region[C])

	var cloneRegion func(r *Region[C], owner string) *Region[C]
	var cloneVertex func(v *Vertex[C], container, owner string) *Vertex[C]
	cloneVertex = func(v *Vertex[C], container, owner string) *Vertex[C] {
		c := &Vertex[C]{
			id:         prefix + v.id,
			name:       v.name,
			kind:       v.kind,
			pseudo:     v.pseudo,
			container:  container,
			owner:      owner,
			slot:       v.slot,
			entry:      v.entry,
			exit:       v.exit,
			doActivity: v.doActivity,
			deferrable: v.deferrable,
			submachine: v.submachine,
		}
		vertices[v] = c
		for _, cp := range v.connectionPoints {
			c.connectionPoints = append(c.connectionPoints, cloneVertex(cp, "", c.id))
		}
		for _, ref := range v.connections {
			c.connections = append(c.connections, cloneVertex(ref, "", c.id))
		}
		for _, r := range v.regions {
			c.regions = append(c.regions, cloneRegion(r, c.id))
		}
		return c
	}
	cloneRegion = func(r *Region[C], owner string) *Region[C] {
		c := &Region[C]{
			id:    prefix + r.id,
			name:  r.name,
			owner: owner,
			index: r.index,
		}
		regions[r.id] = c
		for _, v := range r.subvertices {
			c.subvertices = append(c.subvertices, cloneVertex(v, c.id, ""))
		}
		c.initial = vertices[r.initial]
		c.shallow = vertices[r.shallow]
		c.deep = vertices[r.deep]
		return c
	}

	for _, r := range sub.regions {
		state.regions = append(state.regions, cloneRegion(r, state.id))
	}
	for _, cp := range sub.connectionPoints {
		state.connectionPoints = append(state.connectionPoints, cloneVertex(cp, "", state.id))
	}
	for old, c := range vertices {
		for _, entry := range old.entries {
			c.entries = append(c.entries, vertices[entry])
		}
		for _, exit := range old.exits {
			c.exits = append(c.exits, vertices[exit])
		}
	}
	for _, old := range sub.order {
		for _, t := range old.outgoing {
			c := &Transition[C]{
				id:       prefix + t.id,
				name:     t.name,
				source:   vertices[t.source],
				target:   vertices[t.target],
				kind:     t.kind,
				triggers: t.triggers,
				guard:    t.guard,
				effects:  t.effects,
			}
			if r, ok := regions[t.container]; ok {
				c.container = r.id
				r.transitions = append(r.transitions, c)
			}
			c.source.outgoing = append(c.source.outgoing, c)
			c.target.incoming = append(c.target.incoming, c)
		}
	}
}
