package umlsm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func big(t *trail, _ Event) bool   { return t.N > 10 }
func small(t *trail, _ Event) bool { return t.N <= 10 }

// branchMachine routes A to big or small through a choice or a junction. The
// effect of the incoming transition moves N past the threshold.
func branchMachine(t *testing.T, kind PseudoStateKind, guards ...Guard[*trail]) *StateMachine[*trail] {
	b := NewBuilder[*trail]("branch")
	top := b.Region("top")
	top.Initial().To("A")
	logged(top, "A").To("pick").On("go").Effect(func(t *trail, _ Event) error {
		t.N += 100
		return nil
	})
	var p *PseudoStateBuilder[*trail]
	if kind == Junction {
		p = top.Junction("pick")
	} else {
		p = top.Choice("pick")
	}
	targets := []string{"big", "small"}
	for i, g := range guards {
		p.To(targets[i]).When(g)
	}
	if len(guards) < len(targets) {
		p.To(targets[len(guards)])
	}
	logged(top, "big")
	logged(top, "small")
	return mustBuild(t, b)
}

func TestChoice_EvaluatesAfterEffects(t *testing.T) {
	e := NewExecutor(branchMachine(t, Choice, big, small), &trail{N: 1})
	require.NoError(t, e.Go())

	require.NoError(t, e.Take(Signal("go")))

	assert.Equal(t, []string{"big"}, e.ActiveStates())
}

func TestJunction_EvaluatesBeforeEffects(t *testing.T) {
	e := NewExecutor(branchMachine(t, Junction, big, small), &trail{N: 1})
	require.NoError(t, e.Go())

	require.NoError(t, e.Take(Signal("go")))

	assert.Equal(t, []string{"small"}, e.ActiveStates())
}

func TestChoice_UnguardedBranchIsElse(t *testing.T) {
	never := func(*trail, Event) bool { return false }
	e, _ := start(t, branchMachine(t, Choice, never))

	send(t, e, "go")

	assert.Equal(t, []string{"small"}, e.ActiveStates())
}

func TestChoice_NoEnabledBranchFails(t *testing.T) {
	never := func(*trail, Event) bool { return false }
	e, tr := start(t, branchMachine(t, Choice, never, never))

	err := e.Take(Signal("go"))

	require.Error(t, err)
	assert.True(t, IsTransitionError(err))
	assert.True(t, e.Failed())
	assert.Contains(t, tr.Steps, "exit A")
}

func TestJunction_NoEnabledBranchDisablesTransition(t *testing.T) {
	never := func(*trail, Event) bool { return false }
	obs := &stepObserver{}
	e, tr := start(t, branchMachine(t, Junction, never, never), WithObserver(obs))

	require.NoError(t, e.Take(Signal("go")))

	assert.Equal(t, []string{"A"}, e.ActiveStates())
	assert.NotContains(t, tr.Steps, "exit A")
	assert.Contains(t, obs.Steps(), "rejected go")
	assert.False(t, e.Failed())
}

func TestJunction_ChainsSegments(t *testing.T) {
	b := NewBuilder[*trail]("junctions")
	top := b.Region("top")
	top.Initial().To("A")
	top.State("A").To("j1").On("go").Name("a").Effect(effectLog("a"))
	top.Junction("j1").To("j2").Name("b").Effect(effectLog("b"))
	top.Junction("j2").To("B").Name("c").Effect(effectLog("c"))
	top.State("B")

	obs := &stepObserver{}
	e, tr := start(t, mustBuild(t, b), WithObserver(obs))
	before := len(obs.Steps())
	send(t, e, "go")

	assert.Equal(t, []string{"B"}, e.ActiveStates())
	assert.Equal(t, []string{"effect a", "effect b", "effect c"}, tr.Steps)
	assert.Equal(t, []string{"exit A", "transition a", "transition b", "transition c", "enter B"}, obs.Steps()[before:])
}

func pointsMachine(t *testing.T) *StateMachine[*trail] {
	b := NewBuilder[*trail]("points")
	top := b.Region("top")
	top.Initial().To("idle")
	logged(top, "idle").To("in").On("enter")
	s := logged(top, "S")
	s.EntryPoint("in").To("S2")
	s.ExitPoint("out").To("after")
	r := s.Region("sr")
	r.Initial().To("S1")
	logged(r, "S1")
	logged(r, "S2").To("out").On("leave")
	logged(top, "after")
	return mustBuild(t, b)
}

func TestEntryPoint_EntersNamedSubstate(t *testing.T) {
	e, tr := start(t, pointsMachine(t))
	tr.Steps = nil

	send(t, e, "enter")

	assert.Equal(t, []string{"S", "S2"}, e.ActiveStates())
	assert.Equal(t, []string{"exit idle", "enter S", "enter S2"}, tr.Steps)
}

func TestExitPoint_LeavesComposite(t *testing.T) {
	e, tr := start(t, pointsMachine(t))
	send(t, e, "enter")
	tr.Steps = nil

	send(t, e, "leave")

	assert.Equal(t, []string{"after"}, e.ActiveStates())
	assert.Equal(t, []string{"exit S2", "exit S", "enter after"}, tr.Steps)
}

func doorMachine(t *testing.T) *StateMachine[*trail] {
	b := NewBuilder[*trail]("door")
	b.EntryPoint("open-in").To("opened")
	b.ExitPoint("done")
	r := b.Region("main")
	r.Initial().To("closed")
	logged(r, "closed").To("opened").On("open")
	logged(r, "opened").To("done").On("finish")
	return mustBuild(t, b)
}

func houseMachine(t *testing.T) *StateMachine[*trail] {
	door := doorMachine(t)
	b := NewBuilder[*trail]("house")
	top := b.Region("top")
	top.Initial().To("front")
	front := top.Submachine("front", door)
	front.Connection("via").Entry("open-in")
	front.Connection("leaving").Exit("done").To("hall")
	hall := logged(top, "hall")
	hall.To("via").On("back")
	hall.To("back-door").On("garden")
	back := top.Submachine("back-door", door)
	back.Connection("back-leaving").Exit("done").To("hall")
	return mustBuild(t, b)
}

func TestSubmachine_DefaultEntry(t *testing.T) {
	e, tr := start(t, houseMachine(t))

	assert.Equal(t, []string{"front", "front/closed"}, e.ActiveStates())
	assert.Equal(t, []string{"enter closed"}, tr.Steps)
}

func TestSubmachine_ExitThroughConnectionPoint(t *testing.T) {
	e, _ := start(t, houseMachine(t))

	send(t, e, "open", "finish")

	assert.Equal(t, []string{"hall"}, e.ActiveStates())
}

func TestSubmachine_EntryThroughConnectionPoint(t *testing.T) {
	e, tr := start(t, houseMachine(t))
	send(t, e, "open", "finish")
	tr.Steps = nil

	send(t, e, "back")

	assert.Equal(t, []string{"front", "front/opened"}, e.ActiveStates())
	assert.Equal(t, []string{"exit hall", "enter opened"}, tr.Steps)
}

func TestSubmachine_InstancesAreIndependent(t *testing.T) {
	m := houseMachine(t)
	e, _ := start(t, m)
	send(t, e, "open", "finish", "garden")

	assert.Equal(t, []string{"back-door", "back-door/closed"}, e.ActiveStates())

	send(t, e, "open", "finish")
	assert.Equal(t, []string{"hall"}, e.ActiveStates())

	_, ok := m.Vertex("front/opened")
	assert.True(t, ok)
	_, ok = m.Vertex("back-door/opened")
	assert.True(t, ok)
}

func TestJunction_StaticPathIsResolvedBeforeFiring(t *testing.T) {
	never := func(*trail, Event) bool { return false }
	for _, tc := range []struct {
		name  string
		build func(top, inner *RegionBuilder[*trail], s *StateBuilder[*trail])
	}{
		{"behind an entry point", func(top, inner *RegionBuilder[*trail], s *StateBuilder[*trail]) {
			logged(top, "A").To("ep").On("go")
			s.EntryPoint("ep").To("j")
		}},
		{"behind an initial pseudostate", func(top, inner *RegionBuilder[*trail], s *StateBuilder[*trail]) {
			logged(top, "A").To("S").On("go")
			inner.Initial().To("j")
		}},
		{"behind a history default", func(top, inner *RegionBuilder[*trail], s *StateBuilder[*trail]) {
			logged(top, "A").To("h").On("go")
			inner.DeepHistory("h").To("j")
		}},
	} {
		t.Run(tc.name, func(t *testing.T) {
			b := NewBuilder[*trail]("static-junction")
			top := b.Region("top")
			top.Initial().To("A")
			s := logged(top, "S")
			inner := s.Region("sr")
			inner.Junction("j").To("X").When(never).To("Y").When(never)
			logged(inner, "X")
			logged(inner, "Y")
			tc.build(top, inner, s)

			obs := &stepObserver{}
			e, tr := start(t, mustBuild(t, b), WithObserver(obs))
			tr.Steps = nil

			require.NoError(t, e.Take(Signal("go")))

			assert.Equal(t, []string{"A"}, e.ActiveStates())
			assert.Empty(t, tr.Steps)
			assert.Contains(t, obs.Steps(), "rejected go")
			assert.False(t, e.Failed())
		})
	}
}

func TestJunction_BranchChosenAtSelectionIsKept(t *testing.T) {
	calls := 0
	counted := func(*trail, Event) bool {
		calls++
		return true
	}
	b := NewBuilder[*trail]("planned-junction")
	top := b.Region("top")
	top.Initial().To("A")
	logged(top, "A").To("S").On("go")
	s := logged(top, "S")
	inner := s.Region("sr")
	inner.Initial().To("j")
	inner.Junction("j").To("X").When(counted).To("Y")
	logged(inner, "X")
	logged(inner, "Y")
	e, tr := start(t, mustBuild(t, b))
	tr.Steps = nil

	send(t, e, "go")

	assert.Equal(t, []string{"S", "X"}, e.ActiveStates())
	assert.Equal(t, []string{"exit A", "enter S", "enter X"}, tr.Steps)
	assert.Equal(t, 1, calls)
}
