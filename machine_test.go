package umlsm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func vertex(t *testing.T, m *StateMachine[*trail], id string) *Vertex[*trail] {
	t.Helper()
	v, ok := m.Vertex(id)
	require.True(t, ok, "vertex %s", id)
	return v
}

func TestMachine_Lookups(t *testing.T) {
	m := forkMachine(t)

	a := vertex(t, m, "A")
	assert.Equal(t, "r1", a.Container())
	assert.True(t, a.IsState())
	assert.True(t, a.IsSimple())

	ortho := vertex(t, m, "ortho")
	assert.True(t, ortho.IsComposite())
	assert.True(t, ortho.IsOrthogonal())
	assert.Len(t, ortho.Regions(), 2)
	assert.Equal(t, ortho, m.ParentState(a))
	assert.Nil(t, m.ParentState(ortho))

	split := vertex(t, m, "split")
	assert.True(t, split.IsPseudo())
	assert.Equal(t, Fork, split.PseudoKind())
	assert.Len(t, split.Outgoing(), 2)

	end := vertex(t, m, "end")
	assert.True(t, end.IsFinal())
	assert.Equal(t, KindFinalState, end.Kind())

	r1, ok := m.Region("r1")
	require.True(t, ok)
	assert.Equal(t, "ortho", r1.Owner())
	assert.False(t, r1.IsTopLevel())
	assert.Equal(t, ortho, m.OwnerOf(r1))
	assert.Equal(t, r1, m.ContainerOf(a))

	_, ok = m.Vertex("missing")
	assert.False(t, ok)
}

func TestMachine_VerticesInDeclarationOrder(t *testing.T) {
	m := forkMachine(t)
	var ids []string
	for _, v := range m.Vertices() {
		if v.IsState() {
			ids = append(ids, v.ID())
		}
	}
	assert.Equal(t, []string{"ortho", "A", "B", "end1", "C", "D", "end2", "end"}, ids)
}

func TestMachine_LCA(t *testing.T) {
	m := forkMachine(t)

	for _, tc := range []struct {
		u, v, want string
	}{
		{"A", "B", "r1"},
		{"A", "C", "top"},
		{"A", "end", "top"},
		{"ortho", "end", "top"},
		{"split", "A", "top"},
	} {
		lca := m.LCA(vertex(t, m, tc.u), vertex(t, m, tc.v))
		require.NotNil(t, lca, "%s, %s", tc.u, tc.v)
		assert.Equal(t, tc.want, lca.ID(), "%s, %s", tc.u, tc.v)
	}
}

func TestMachine_LCAAcrossTopLevelRegions(t *testing.T) {
	b := NewBuilder[*trail]("two")
	left := b.Region("left")
	left.Initial().To("L")
	left.State("L")
	right := b.Region("right")
	right.Initial().To("R")
	right.State("R")
	m := mustBuild(t, b)

	assert.Nil(t, m.LCA(vertex(t, m, "L"), vertex(t, m, "R")))
}

func TestMachine_IsAncestor(t *testing.T) {
	m := historyMachine(t, false, "compo")

	assert.True(t, m.IsAncestor(vertex(t, m, "compo"), vertex(t, m, "Ab")))
	assert.True(t, m.IsAncestor(vertex(t, m, "A"), vertex(t, m, "Ab")))
	assert.False(t, m.IsAncestor(vertex(t, m, "B"), vertex(t, m, "Ab")))
	assert.False(t, m.IsAncestor(vertex(t, m, "Ab"), vertex(t, m, "Ab")))
	assert.Equal(t, 2, m.depth(vertex(t, m, "Ab")))
}

func TestMachine_Scope(t *testing.T) {
	m := compositeMachine(t, false)
	ids := func(sc scope[*trail]) (string, []string) {
		exit := ""
		if sc.exit != nil {
			exit = sc.exit.ID()
		}
		var enter []string
		for _, n := range sc.enter {
			if n.isRegion() {
				enter = append(enter, "["+n.region.ID()+"]")
			} else {
				enter = append(enter, n.state.ID())
			}
		}
		return exit, enter
	}

	exit, enter := ids(m.scope(vertex(t, m, "X"), vertex(t, m, "Y"), false))
	assert.Equal(t, "X", exit)
	assert.Equal(t, []string{"Y"}, enter)

	exit, enter = ids(m.scope(vertex(t, m, "X"), vertex(t, m, "Z"), false))
	assert.Equal(t, "compo", exit)
	assert.Equal(t, []string{"Z"}, enter)

	exit, enter = ids(m.scope(vertex(t, m, "Z"), vertex(t, m, "Y"), false))
	assert.Equal(t, "Z", exit)
	assert.Equal(t, []string{"compo", "[inner]", "Y"}, enter)

	local := m.scope(vertex(t, m, "compo"), vertex(t, m, "Y"), true)
	assert.Nil(t, local.exit)
	require.NotNil(t, local.exitRegion)
	assert.Equal(t, "inner", local.exitRegion.ID())
	_, enter = ids(local)
	assert.Equal(t, []string{"[inner]", "Y"}, enter)
}

func TestMachine_ScopeAcrossOrthogonalRegions(t *testing.T) {
	m := forkMachine(t)

	sc := m.scope(vertex(t, m, "A"), vertex(t, m, "D"), false)

	require.NotNil(t, sc.exit)
	assert.Equal(t, "A", sc.exit.ID())
	require.Len(t, sc.enter, 2)
	assert.Equal(t, "r2", sc.enter[0].region.ID())
	assert.Equal(t, "D", sc.enter[1].state.ID())
}
